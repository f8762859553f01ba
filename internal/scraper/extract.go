package scraper

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"

	"github.com/newslens/newslens/internal/model"
)

var publishedMeta = regexp.MustCompile(`<meta[^>]+(?:property|name)=["'](?:article:published_time|date|publish-date)["'][^>]+content=["']([^"']+)["']`)

// Extract parses raw markup into article content. It is CPU bound and
// should be called off the network I/O path.
func Extract(pageURL, html string) (*model.ScrapedArticle, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse article URL: %w", err)
	}

	art, err := readability.FromReader(strings.NewReader(html), u)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}

	publication := strings.TrimSpace(art.SiteName)
	if publication == "" {
		publication = u.Hostname()
	}

	scraped := &model.ScrapedArticle{
		Title:       strings.TrimSpace(art.Title),
		Authors:     splitByline(art.Byline),
		Publication: publication,
		PublishedAt: art.PublishedTime,
		Text:        strings.TrimSpace(art.TextContent),
	}

	if scraped.PublishedAt == nil {
		if t, ok := publishedFromMeta(html); ok {
			scraped.PublishedAt = &t
		}
	}

	return scraped, nil
}

// splitByline turns a readability byline ("By A, B and C") into author names.
func splitByline(byline string) []string {
	byline = strings.TrimSpace(byline)
	byline = strings.TrimPrefix(byline, "By ")
	byline = strings.TrimPrefix(byline, "by ")
	if byline == "" {
		return nil
	}

	byline = strings.ReplaceAll(byline, " and ", ", ")
	parts := strings.Split(byline, ",")
	var authors []string
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}

func publishedFromMeta(html string) (time.Time, bool) {
	m := publishedMeta.FindStringSubmatch(html)
	if m == nil {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(m[1])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
