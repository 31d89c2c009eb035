// Package search wraps external search services behind a uniform provider
// contract: search returns title/url/snippet hits, extract hydrates a hit
// into full body text.
//
// Two searcher families are implemented: a JSON search API client and an
// HTML results scraper for case-law sites. Scraping providers enforce a
// minimum inter-request delay per provider instance; concurrent providers
// are never serialized against each other.
package search
