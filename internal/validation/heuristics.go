package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Reason markers prefixed onto validation findings.
const (
	MarkerErrorPage        = "error_page_detected"
	MarkerGenericContent   = "generic_content_detected"
	MarkerInsufficientInfo = "insufficient_detail"
	MarkerDateOutOfWindow  = "published_before_cutoff"
	MarkerSafetyDefault    = "defaulted to rejection for safety"
)

var errorPagePhrases = []string{
	"page not found",
	"404 not found",
	"error 404",
	"403 forbidden",
	"access denied",
	"internal server error",
	"service unavailable",
	"this page could not be found",
	"the page you requested",
	"page you are looking for",
	"page does not exist",
	"has been removed",
	"no longer available",
	"please enable javascript",
	"enable cookies",
	"are you a robot",
	"verify you are human",
	"captcha",
	"subscribe to continue reading",
	"sign in to continue",
}

var genericPhrases = []string{
	"lorem ipsum",
	"placeholder",
	"[insert",
	"this is a sample",
	"example article",
	"no content available",
	"content not available",
	"unable to extract",
	"could not extract",
	"no article content",
	"article title here",
	"summary of the article",
}

var detailMarkers = []*regexp.Regexp{
	regexp.MustCompile(`\b(19|20)\d{2}\b`),
	regexp.MustCompile(`\b\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}\b`),
	regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.? \d{1,2}\b`),
	regexp.MustCompile(`[$€£¥]\s?\d`),
	regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s?(million|billion|usd|eur|gbp)\b`),
	regexp.MustCompile(`\b\d+(\.\d+)?\s?%`),
	regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`),
}

// shellBodyLength is the size below which a body is treated as a bare error or placeholder page.
// Longer bodies only match when they open with the phrase.
const shellBodyLength = 300

// detectGarbage returns a rejection reason when the candidate looks like an error page,
// templated filler, or too thin to hold any concrete fact.
func detectGarbage(c Candidate, minLength int) (string, bool) {
	if reason, ok := matchPhrases(c, errorPagePhrases, MarkerErrorPage); ok {
		return reason, true
	}
	if reason, ok := matchPhrases(c, genericPhrases, MarkerGenericContent); ok {
		return reason, true
	}

	body := strings.TrimSpace(c.Content)
	if body == "" {
		body = strings.TrimSpace(c.Summary)
	}
	if len([]rune(body)) < minLength && !hasDetail(c.Title+" "+c.Summary+" "+c.Content) {
		return fmt.Sprintf("%s: %d characters and no concrete detail", MarkerInsufficientInfo, len([]rune(body))), true
	}

	return "", false
}

// matchPhrases checks title and summary anywhere, and the body only when it reads as a whole-page shell.
func matchPhrases(c Candidate, phrases []string, marker string) (string, bool) {
	title := strings.ToLower(c.Title)
	summary := strings.ToLower(c.Summary)
	content := strings.ToLower(strings.TrimSpace(c.Content))
	shortBody := len([]rune(content)) < shellBodyLength
	lead := strings.TrimLeft(content, " \t\n\"'([-*#>")

	for _, phrase := range phrases {
		switch {
		case strings.Contains(title, phrase):
			return fmt.Sprintf("%s: title contains %q", marker, phrase), true
		case strings.Contains(summary, phrase):
			return fmt.Sprintf("%s: summary contains %q", marker, phrase), true
		case strings.HasPrefix(lead, phrase), shortBody && strings.Contains(content, phrase):
			return fmt.Sprintf("%s: content contains %q", marker, phrase), true
		}
	}
	return "", false
}

func hasDetail(text string) bool {
	for _, re := range detailMarkers {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"01/02/2006",
}

// ParsePublished tries the layouts extraction services commonly emit.
func ParsePublished(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// checkDateWindow rejects only a parseable date earlier than cutoff.
func checkDateWindow(raw string, cutoff time.Time) (string, bool) {
	published, ok := ParsePublished(raw)
	if !ok || cutoff.IsZero() {
		return "", true
	}
	if published.Before(cutoff) {
		return fmt.Sprintf("%s: published %s, cutoff %s", MarkerDateOutOfWindow,
			published.Format("2006-01-02"), cutoff.Format("2006-01-02")), false
	}
	return "", true
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
