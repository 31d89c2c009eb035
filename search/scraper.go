package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/lexflow/types"
)

const scraperUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// CaseLawScraper searches a case-law site by scraping its HTML results page.
// Requests are throttled per instance with a minimum inter-request delay so
// the site never sees a burst; separate provider instances keep separate
// limiters.
type CaseLawScraper struct {
	baseURL          string
	preferredDomains []string
	limiter          *rate.Limiter
	client           *http.Client
	logger           *zap.Logger
}

// NewCaseLawScraper creates a scraper for the site at baseURL, issuing at
// most one request per delay.
func NewCaseLawScraper(baseURL string, preferredDomains []string, delay, timeout time.Duration, logger *zap.Logger) *CaseLawScraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaseLawScraper{
		baseURL:          strings.TrimRight(baseURL, "/"),
		preferredDomains: preferredDomains,
		limiter:          rate.NewLimiter(rate.Every(delay), 1),
		client:           &http.Client{Timeout: timeout},
		logger:           logger.With(zap.String("component", "case_law_scraper")),
	}
}

func (s *CaseLawScraper) Name() string { return "case_law_scraper" }

func (s *CaseLawScraper) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", scraperUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrProviderUnavailable, "fetch page").
			WithCause(err).WithProvider(s.Name()).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.ErrProviderUnavailable,
			fmt.Sprintf("page fetch returned status %d", resp.StatusCode)).
			WithProvider(s.Name()).WithRetryable(resp.StatusCode >= 500)
	}

	return goquery.NewDocumentFromReader(resp.Body)
}

// Search scrapes the site's results page. A configured domain allowlist is
// folded into the query as site: operators.
func (s *CaseLawScraper) Search(ctx context.Context, query string, maxResults int) ([]Hit, error) {
	if len(s.preferredDomains) > 0 {
		ops := make([]string, len(s.preferredDomains))
		for i, d := range s.preferredDomains {
			ops[i] = "site:" + d
		}
		query = fmt.Sprintf("%s (%s)", query, strings.Join(ops, " OR "))
	}

	searchURL := s.baseURL + "/search/?formInput=" + url.QueryEscape(query)
	doc, err := s.fetch(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(hits) >= maxResults {
			return false
		}

		link := sel.Find("a.result_title").First()
		if link.Length() == 0 {
			link = sel.Find("a").First()
		}
		href, ok := link.Attr("href")
		if !ok {
			return true
		}

		hits = append(hits, Hit{
			Title:   strings.TrimSpace(link.Text()),
			URL:     s.absoluteURL(href),
			Snippet: strings.TrimSpace(sel.Find("div.result_text").First().Text()),
		})
		return true
	})

	s.logger.Debug("scrape search complete",
		zap.String("query", types.TruncateText(query, 80)),
		zap.Int("hits", len(hits)))
	return hits, nil
}

// Extract fetches a document page and pulls the judgment body out of the
// containers the site is known to use, falling back to the whole page text.
func (s *CaseLawScraper) Extract(ctx context.Context, pageURL string) (string, error) {
	doc, err := s.fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}

	for _, selector := range []string{"div.judgments", "div.doc", "article"} {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			if text := normalizeText(sel.Text()); text != "" {
				return text, nil
			}
		}
	}
	return normalizeText(doc.Find("body").Text()), nil
}

func (s *CaseLawScraper) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return s.baseURL + "/" + strings.TrimLeft(href, "/")
}

// normalizeText collapses runs of whitespace left behind by HTML stripping.
func normalizeText(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
