// Package filter selects listings by work modality and tags.
package filter

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/amishk599/jobfeed/internal/model"
	"github.com/amishk599/jobfeed/internal/tags"
)

// ModalityAndTagFilter matches listings whose work modality contains the
// region term and, when tag terms are given, that carry a tag containing any
// of them. Matching is a case-folded substring test. An empty region and an
// empty tag list match everything.
//
// A filter holds a caser and is not safe for concurrent use.
type ModalityAndTagFilter struct {
	region string
	tags   []string
	fold   cases.Caser
}

// NewModalityAndTagFilter returns a filter for region and tag terms. Tag terms
// are trimmed and blank ones ignored.
func NewModalityAndTagFilter(region string, tagTerms []string) *ModalityAndTagFilter {
	f := &ModalityAndTagFilter{fold: cases.Fold()}
	f.region = f.fold.String(strings.TrimSpace(region))
	for _, term := range tagTerms {
		if term = strings.TrimSpace(term); term != "" {
			f.tags = append(f.tags, f.fold.String(term))
		}
	}
	return f
}

// Tags returns the cleaned, case-folded tag terms.
func (f *ModalityAndTagFilter) Tags() []string {
	out := make([]string, len(f.tags))
	copy(out, f.tags)
	return out
}

// Match reports whether l passes both the modality and the tag test.
func (f *ModalityAndTagFilter) Match(l model.Listing) bool {
	if f.region != "" && !strings.Contains(f.fold.String(l.WorkModality), f.region) {
		return false
	}

	if len(f.tags) > 0 {
		for _, tag := range tags.Parse(tags.List(l.Tags)) {
			folded := f.fold.String(tag)
			for _, term := range f.tags {
				if strings.Contains(folded, term) {
					return true
				}
			}
		}
		return false
	}

	return true
}

// Apply returns the listings that match, in order.
func (f *ModalityAndTagFilter) Apply(listings []model.Listing) []model.Listing {
	out := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out
}
