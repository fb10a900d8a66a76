package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selectors locate job fields inside a listing page. Skills and summary are
// found by the text of a label element followed by the value element.
type Selectors struct {
	Card         string `mapstructure:"card"`
	Title        string `mapstructure:"title"`
	Company      string `mapstructure:"company"`
	Location     string `mapstructure:"location"`
	Experience   string `mapstructure:"experience"`
	PostedOn     string `mapstructure:"posted-on"`
	Label        string `mapstructure:"label"`
	SkillsLabel  string `mapstructure:"skills-label"`
	SummaryLabel string `mapstructure:"summary-label"`
}

func (s Selectors) withDefaults() Selectors {
	def := Selectors{
		Card:         "div.ads-details",
		Title:        "h4",
		Company:      "a[href*='Employer-Profile']",
		Location:     "p",
		Experience:   "p.emp-exp",
		PostedOn:     "p.posted-on",
		Label:        "span",
		SkillsLabel:  "Key Skills",
		SummaryLabel: "Summary",
	}
	for _, pair := range []struct{ dst, src *string }{
		{&s.Card, &def.Card},
		{&s.Title, &def.Title},
		{&s.Company, &def.Company},
		{&s.Location, &def.Location},
		{&s.Experience, &def.Experience},
		{&s.PostedOn, &def.PostedOn},
		{&s.Label, &def.Label},
		{&s.SkillsLabel, &def.SkillsLabel},
		{&s.SummaryLabel, &def.SummaryLabel},
	} {
		if *pair.dst == "" {
			*pair.dst = *pair.src
		}
	}
	return s
}

// parseListings extracts one row per job card, keyed by display headers.
func parseListings(html string, sel Selectors) ([]map[string]any, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	doc.Find(sel.Card).Each(func(_ int, card *goquery.Selection) {
		title := text(card.Find(sel.Title))
		if title == "" {
			return
		}
		rows = append(rows, map[string]any{
			"Title":      title,
			"Company":    text(card.Find(sel.Company)),
			"Location":   text(card.Find(sel.Location)),
			"Experience": text(card.Find(sel.Experience)),
			"Skills":     labelled(card, sel.Label, sel.SkillsLabel),
			"Summary":    labelled(card, sel.Label, sel.SummaryLabel),
			"Posted On":  text(card.Find(sel.PostedOn)),
		})
	})
	return rows, nil
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.First().Text()), " ")
}

// labelled returns the text of the element following the label whose text
// contains name.
func labelled(card *goquery.Selection, labelSel, name string) string {
	var value string
	card.Find(labelSel).EachWithBreak(func(_ int, label *goquery.Selection) bool {
		if !strings.Contains(label.Text(), name) {
			return true
		}
		value = text(label.Next())
		if value == "" {
			value = text(label.Parent().Next())
		}
		return false
	})
	return value
}
