// Package tags turns the many shapes a skill/tag field arrives in into one
// ordered list of clean tag strings.
package tags

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// Raw is a tag field as received. The only variants are List and Text.
type Raw interface {
	isRaw()
}

// List is a tag field that arrived as a sequence of strings. A List whose
// elements are all single characters is a corrupted string and gets rebuilt.
type List []string

// Text is a tag field that arrived as one string: delimited, brace-wrapped
// ({a,b}) or a JSON array.
type Text string

func (List) isRaw() {}
func (Text) isRaw() {}

// FromAny picks the variant for a value decoded from JSON.
func FromAny(v any) Raw {
	switch t := v.(type) {
	case nil:
		return List(nil)
	case List:
		return t
	case Text:
		return t
	case []string:
		return List(t)
	case []any:
		out := make(List, 0, len(t))
		for _, e := range t {
			if s, ok := scalarString(e); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return Text(t)
	default:
		s, _ := scalarString(t)
		return Text(s)
	}
}

// FromJSON decodes a raw JSON tag field and picks its variant. Input that is
// not valid JSON is treated as Text.
func FromJSON(data json.RawMessage) Raw {
	if len(data) == 0 {
		return List(nil)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return Text(string(data))
	}
	return FromAny(v)
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64, bool, int, int64:
		return fmt.Sprint(t), true
	default:
		return "", false
	}
}

// Parse returns the clean, ordered tag list for raw. The result is never nil,
// never holds pieces of one character or less, and Parse(List(Parse(x)))
// equals Parse(x).
func Parse(raw Raw) []string {
	switch r := raw.(type) {
	case List:
		if len(r) == 0 {
			return []string{}
		}
		if allSingleChars(r) {
			return parseText(strings.Join(r, ""))
		}
		return clean(r)
	case Text:
		return parseText(string(r))
	default:
		return []string{}
	}
}

// Repair parses raw and reports whether the stored form differs from the
// clean one, i.e. whether the row needs rewriting.
func Repair(raw Raw) ([]string, bool) {
	cleaned := Parse(raw)
	stored, ok := raw.(List)
	return cleaned, !ok || !slices.Equal([]string(stored), cleaned)
}

func parseText(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}

	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return clean(splitBraced(s[1 : len(s)-1]))
	}

	var items []any
	if err := json.Unmarshal([]byte(s), &items); err == nil {
		parsed := make([]string, 0, len(items))
		for _, e := range items {
			if str, ok := scalarString(e); ok {
				parsed = append(parsed, str)
			}
		}
		return clean(parsed)
	}

	return clean(strings.Split(s, ","))
}

// splitBraced splits the body of a {a,"b c"} literal on commas that are not
// inside double quotes, and unquotes the pieces.
func splitBraced(body string) []string {
	var (
		parts   []string
		cur     strings.Builder
		quoted  bool
		escaped bool
	)
	for _, r := range body {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quoted:
			escaped = true
		case r == '"':
			quoted = !quoted
		case r == ',' && !quoted:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(parts, cur.String())
}

func clean(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		t := strings.TrimSpace(item)
		if utf8.RuneCountInString(t) <= 1 {
			continue
		}
		out = append(out, t)
	}
	return out
}

func allSingleChars(items []string) bool {
	for _, item := range items {
		if utf8.RuneCountInString(item) > 1 {
			return false
		}
	}
	return true
}
