// Package notifier delivers summary digests.
package notifier

import (
	"fmt"
	"time"

	"github.com/amishk599/jobfeed/internal/model"
)

// maxHighlights caps the listings spelled out in a digest.
const maxHighlights = 10

func highlights(s model.Summary) []model.Listing {
	if len(s.Listings) > maxHighlights {
		return s.Listings[:maxHighlights]
	}
	return s.Listings
}

func tagNames(tc []model.TagCount) []string {
	out := make([]string, len(tc))
	for i, t := range tc {
		out[i] = fmt.Sprintf("%s (%d)", t.Tag, t.Count)
	}
	return out
}

// SendTestMessage sends a sample digest to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	now := time.Now()
	sample := model.Summary{
		Total:          1,
		PeriodDays:     1,
		WindowDays:     1,
		TopCompanies:   []string{"jobfeed"},
		TopTags:        []model.TagCount{{Tag: "golang", Count: 1}},
		WorkModalities: []string{model.ModalityRemote},
		Listings: []model.Listing{{
			ID:           1,
			Title:        "Test Notification: Integration Verified",
			Company:      "jobfeed",
			WorkModality: model.ModalityRemote,
			Source:       "test",
			Tags:         []string{"golang"},
			URL:          "https://remoteok.com",
			CreatedAt:    now,
		}},
	}
	return n.Notify(sample)
}
