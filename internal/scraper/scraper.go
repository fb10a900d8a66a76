// Package scraper collects job postings from a paginated HTML job board.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/smart-applier/internal/model"
)

const (
	defaultBaseURL   = "https://www.karkidi.com"
	defaultPath      = "/Find-Jobs/{page}/all/India"
	defaultUserAgent = "spigell/smart-applier"
	defaultPages     = 2
	defaultTimeout   = 15 * time.Second

	pagePlaceholder = "{page}"
)

// Config describes the job board.
type Config struct {
	BaseURL string `mapstructure:"base-url"`
	// Path is appended to BaseURL; {page} is replaced with the 1-based page.
	Path       string        `mapstructure:"path"`
	QueryParam string        `mapstructure:"query-param"`
	Pages      int           `mapstructure:"pages"`
	Timeout    time.Duration `mapstructure:"timeout"`
	UserAgent  string        `mapstructure:"user-agent"`
	// Browser renders pages with headless Chrome instead of plain HTTP.
	Browser   bool      `mapstructure:"browser"`
	Selectors Selectors `mapstructure:"selectors"`
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Path == "" {
		c.Path = defaultPath
	}
	if c.QueryParam == "" {
		c.QueryParam = "search"
	}
	if c.Pages <= 0 {
		c.Pages = defaultPages
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	c.Selectors = c.Selectors.withDefaults()
	return c
}

// fetcher returns the HTML of a page.
type fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// Client scrapes job listings.
type Client struct {
	cfg     Config
	fetcher fetcher
	logger  *zap.Logger
}

// New creates a Client. The HTTP client is used unless cfg.Browser is set.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	var f fetcher = &httpFetcher{client: httpClient, userAgent: cfg.UserAgent, logger: logger}
	if cfg.Browser {
		f = &browserFetcher{timeout: cfg.Timeout, logger: logger}
	}

	return &Client{cfg: cfg, fetcher: f, logger: logger}
}

// Scrape fetches up to pages listing pages for query. A page without any job
// card ends the scan early. Finding no jobs is not an error.
func (c *Client) Scrape(ctx context.Context, query string, pages int) ([]model.Job, error) {
	if pages <= 0 {
		pages = c.cfg.Pages
	}

	var rows []map[string]any
	for page := 1; page <= pages; page++ {
		pageURL, err := c.pageURL(query, page)
		if err != nil {
			return nil, err
		}

		html, err := c.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("scrape page %d: %w", page, err)
		}

		found, err := parseListings(html, c.cfg.Selectors)
		if err != nil {
			return nil, fmt.Errorf("parse page %d: %w", page, err)
		}

		c.logger.Debug("scraped listing page",
			zap.Int("page", page),
			zap.String("url", pageURL),
			zap.Int("jobs", len(found)),
		)
		if len(found) == 0 {
			break
		}
		rows = append(rows, found...)
	}

	jobs, err := model.DecodeJobs(rows)
	if err != nil {
		return nil, err
	}

	c.logger.Info("scraping finished", zap.String("query", query), zap.Int("jobs", len(jobs)))
	return jobs, nil
}

func (c *Client) pageURL(query string, page int) (string, error) {
	path := strings.ReplaceAll(c.cfg.Path, pagePlaceholder, strconv.Itoa(page))
	u, err := url.Parse(strings.TrimRight(c.cfg.BaseURL, "/") + path)
	if err != nil {
		return "", fmt.Errorf("build page url: %w", err)
	}

	if query = strings.TrimSpace(query); query != "" {
		q := u.Query()
		q.Set(c.cfg.QueryParam, query)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
