package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/BaSui01/lexflow/types"
)

// PageExtractor is the primary full-text extractor: it fetches a page and
// collects prose from content elements while skipping navigation chrome.
type PageExtractor struct {
	client *http.Client
}

// NewPageExtractor creates an extractor with its own HTTP client.
func NewPageExtractor(timeout time.Duration) *PageExtractor {
	return &PageExtractor{client: &http.Client{Timeout: timeout}}
}

var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true,
	"nav": true, "header": true, "footer": true, "aside": true,
	"form": true, "button": true, "iframe": true,
}

var contentElements = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"li": true, "blockquote": true, "pre": true, "td": true,
}

func (e *PageExtractor) Extract(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", scraperUserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", types.NewError(types.ErrProviderUnavailable, "fetch page").
			WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", types.NewError(types.ErrProviderUnavailable,
			fmt.Sprintf("page fetch returned status %d", resp.StatusCode)).
			WithRetryable(resp.StatusCode >= 500)
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var blocks []string
	collectContent(root, &blocks)
	return strings.Join(blocks, "\n"), nil
}

// collectContent walks the DOM gathering the text of content elements.
func collectContent(n *html.Node, blocks *[]string) {
	if n.Type == html.ElementNode {
		if skippedElements[n.Data] {
			return
		}
		if contentElements[n.Data] {
			if text := nodeText(n); text != "" {
				*blocks = append(*blocks, text)
			}
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectContent(c, blocks)
	}
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		if node.Type == html.ElementNode && skippedElements[node.Data] {
			return
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
