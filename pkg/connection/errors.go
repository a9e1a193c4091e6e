package connection

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrCallFailed is wrapped by every error a call produces.
	ErrCallFailed = errors.New("singly call failed")

	// ErrNilRequest is returned when a Connection has no Request to perform.
	ErrNilRequest = errors.New("connection has no request")

	// ErrEmptyResponse is returned when a successful response carries no JSON value.
	ErrEmptyResponse = errors.New("response body is empty")
)

const maxSummaryLen = 512

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	StatusCode int
	Method     string
	URL        string
	// Summary is a short, human readable excerpt of the body.
	Summary string
	// Payload is the decoded body when the server answered with JSON.
	Payload any
}

func (e *StatusError) Error() string {
	if e.Summary == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Summary)
}

// Unwrap lets errors.Is(err, ErrCallFailed) match status failures.
func (e *StatusError) Unwrap() error { return ErrCallFailed }

func callError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrCallFailed}, args...)...)
}

// summarizeBody returns a short description of an error body. HTML pages
// (typically from proxies or load balancers) are reduced to their title.
func summarizeBody(body []byte, contentType string) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	if looksLikeHTML(trimmed, contentType) {
		if title := htmlTitle(trimmed); title != "" {
			return title
		}
	}
	s := string(trimmed)
	if len(s) > maxSummaryLen {
		cut := maxSummaryLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "..."
	}
	return s
}

func looksLikeHTML(body []byte, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	head := bytes.ToLower(body[:min(len(body), 64)])
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

func htmlTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}
