// Package validate gates requests before any fetch or model spend occurs.
package validate

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/newslens/newslens/internal/model"
)

// Error is a terminal, user-visible rejection. It never triggers a retry.
type Error struct {
	Detail string
}

func (e *Error) Error() string { return e.Detail }

var (
	datePath    = regexp.MustCompile(`/\d{4}/\d{1,2}/\d{1,2}/`)
	sectionHint = []string{"article", "news", "story", "posts", "politics", "world", "economy", "health"}
)

// CheckURL rejects URLs that are unlikely to point at an individual article:
// bare domains, root paths, and paths with a single segment.
func CheckURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return &Error{Detail: "This link doesn't appear to be a news article URL."}
	}

	path := strings.ToLower(parsed.Path)
	if path == "" || path == "/" || len(strings.Split(strings.Trim(path, "/"), "/")) <= 1 {
		return &Error{Detail: "This link doesn't appear to be a news article URL."}
	}

	if datePath.MatchString(path) {
		return nil
	}
	for _, seg := range sectionHint {
		if strings.Contains(path, seg) {
			return nil
		}
	}
	if strings.HasSuffix(path, ".html") || strings.HasSuffix(path, ".htm") {
		return nil
	}

	return &Error{Detail: "This link doesn't appear to be a news article URL."}
}

// CheckContent rejects extractions that are too thin to evaluate.
func CheckContent(a *model.ScrapedArticle) error {
	if utf8.RuneCountInString(strings.TrimSpace(a.Text)) < 500 {
		return &Error{Detail: "Extracted content is too short — likely not a full article."}
	}
	if len(strings.TrimSpace(a.Title)) < 5 {
		return &Error{Detail: "No valid title detected — likely not a news article."}
	}
	return nil
}

// AsError reports whether err is a validation rejection.
func AsError(err error) (*Error, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
