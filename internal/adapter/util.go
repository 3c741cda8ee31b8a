package adapter

import (
	"encoding/json"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobfeed/internal/identity"
	"github.com/amishk599/jobfeed/internal/model"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// extractText converts an HTML or HTML-encoded string to plain text.
// It first unescapes HTML entities (handles double-encoding; no-op on
// already-real HTML), strips all tags, then collapses whitespace.
func extractText(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, "")
	return strings.Join(strings.Fields(plain), " ")
}

// stripQuery drops everything from the first '?' on, which is where providers
// put their tracking parameters.
func stripQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}

// modalityFromText guesses the work modality from free text. Hybrid wins over
// remote because hybrid postings usually mention both.
func modalityFromText(fallback string, texts ...string) string {
	joined := strings.ToLower(strings.Join(texts, " "))
	switch {
	case strings.Contains(joined, "hybrid"):
		return model.ModalityHybrid
	case strings.Contains(joined, "remote"):
		return model.ModalityRemote
	case strings.Contains(joined, "on-site"), strings.Contains(joined, "onsite"), strings.Contains(joined, "in-office"):
		return model.ModalityOnSite
	default:
		return fallback
	}
}

// nativeID accepts a provider id that may arrive as a JSON string or number.
type nativeID string

func (n *nativeID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*n = nativeID(strings.TrimSpace(s))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*n = nativeID(num.String())
	return nil
}

// resolve maps the native id onto the shared id space, using small numeric
// ids as they are.
func (n nativeID) resolve() int64 {
	if v, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return identity.FromNative(v, string(n))
	}
	return identity.Resolve(string(n))
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime parses the timestamp formats seen across providers. Results are UTC.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
