package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/spigell/smart-applier/internal/keywords"
	"github.com/spigell/smart-applier/internal/state"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	good    = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	faint   = color.New(color.Faint)
)

// report prints the human-readable outcome of a workflow run.
func report(w io.Writer, record state.Record) {
	if record.MatchedJobs != nil {
		heading.Fprintf(w, "\nTop matched jobs (%d)\n", len(record.MatchedJobs))
		if len(record.MatchedJobs) == 0 {
			warn.Fprintln(w, "  no jobs found")
		}
		for i, m := range record.MatchedJobs {
			good.Fprintf(w, "  %2d. %.3f ", i+1, m.Score)
			fmt.Fprintf(w, "%s", m.Job.Title)
			if m.Job.Company != "" {
				fmt.Fprintf(w, " @ %s", m.Job.Company)
			}
			if m.Job.Location != "" {
				faint.Fprintf(w, " (%s)", m.Job.Location)
			}
			fmt.Fprintln(w)
			if m.Job.Skills != "" {
				faint.Fprintf(w, "      %s\n", m.Job.Skills)
			}
		}
	}

	if record.JDKeywords != nil {
		heading.Fprintf(w, "\nJob description keywords (%d)\n", len(record.JDKeywords))
		fmt.Fprintf(w, "  %s\n", strings.Join(record.JDKeywords, ", "))
		if record.Profile != nil {
			matched := keywords.Compare(record.JDKeywords, record.Profile.FlatSkills())
			coverage := keywords.Coverage(matched, record.JDKeywords)
			c := good
			if coverage < 50 {
				c = warn
			}
			c.Fprintf(w, "  coverage %.1f%%", coverage)
			fmt.Fprintf(w, " matched: %s\n", listOrDash(matched))
		}
	}

	if record.SkillGapRecommendations != nil {
		heading.Fprintf(w, "\nSkill gaps (%d)\n", len(record.SkillGapRecommendations))
		if len(record.SkillGapRecommendations) == 0 {
			good.Fprintln(w, "  your profile covers every required skill")
		}
		skills := make([]string, 0, len(record.SkillGapRecommendations))
		for skill := range record.SkillGapRecommendations {
			skills = append(skills, skill)
		}
		sort.Strings(skills)
		for _, skill := range skills {
			warn.Fprintf(w, "  %s\n", skill)
			for _, link := range record.SkillGapRecommendations[skill] {
				faint.Fprintf(w, "    - %s\n", link)
			}
		}
	}

	if record.ResumeBytes != nil || record.TailoredResumeBytes != nil {
		heading.Fprintln(w, "\nResumes")
		if record.ResumeBytes != nil {
			fmt.Fprintf(w, "  generated: %d bytes\n", len(record.ResumeBytes))
		}
		if record.TailoredResumeBytes != nil {
			fmt.Fprintf(w, "  tailored:  %d bytes\n", len(record.TailoredResumeBytes))
		}
	}
}

func listOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
