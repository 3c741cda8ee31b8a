package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amishk599/jobfeed/internal/model"
	"github.com/amishk599/jobfeed/internal/tags"
)

const remoteOKBaseURL = "https://remoteok.com"

// remoteOKJob is a single raw item of the RemoteOK feed.
type remoteOKJob struct {
	ID           nativeID        `json:"id"`
	Position     string          `json:"position"`
	Company      string          `json:"company"`
	Location     string          `json:"location"`
	WorkModality string          `json:"work_modality"`
	Tags         json.RawMessage `json:"tags"`
	URL          string          `json:"url"`
	Date         string          `json:"date"`
	Epoch        int64           `json:"epoch"`
}

// RemoteOKAdapter fetches postings from the RemoteOK public feed. The feed is
// a single page and has no regional index.
type RemoteOKAdapter struct {
	client *http.Client
}

// NewRemoteOKAdapter creates a connector for the RemoteOK feed.
func NewRemoteOKAdapter(client *http.Client) *RemoteOKAdapter {
	return &RemoteOKAdapter{client: client}
}

func (a *RemoteOKAdapter) Name() string { return "remoteok" }

// MaxPages caps pagination: the feed only ever has one page.
func (a *RemoteOKAdapter) MaxPages() int { return 1 }

// Fetch retrieves the feed, filtered by tag when a query is given. Pages past
// the first are always empty and cost no request.
func (a *RemoteOKAdapter) Fetch(ctx context.Context, p model.FetchParams) ([]json.RawMessage, error) {
	if p.Page > 1 {
		return []json.RawMessage{}, nil
	}

	endpoint := remoteOKBaseURL + "/api"
	if q := strings.TrimSpace(p.Query); q != "" {
		endpoint += "?" + url.Values{"tag": {q}}.Encode()
	}

	header := http.Header{}
	header.Set("User-Agent", "Mozilla/5.0 (compatible; jobfeed)")
	header.Set("Accept", "application/json")

	var items []json.RawMessage
	if err := getJSON(ctx, a.client, a.Name(), endpoint, header, &items); err != nil {
		return []json.RawMessage{}, err
	}
	// The first element is the legal notice, not a posting.
	if len(items) <= 1 {
		return []json.RawMessage{}, nil
	}
	return items[1:], nil
}

// Normalize maps RemoteOK items into Listings.
func (a *RemoteOKAdapter) Normalize(raw []json.RawMessage) ([]model.Listing, []error) {
	listings := make([]model.Listing, 0, len(raw))
	var errs []error

	for i, item := range raw {
		var rj remoteOKJob
		if err := json.Unmarshal(item, &rj); err != nil {
			errs = append(errs, fmt.Errorf("remoteok item %d: %w", i, err))
			continue
		}
		if strings.TrimSpace(rj.Position) == "" {
			errs = append(errs, &model.DropError{Source: a.Name(), Index: i, Field: "position"})
			continue
		}
		if rj.ID == "" {
			errs = append(errs, &model.DropError{Source: a.Name(), Index: i, Field: "id"})
			continue
		}

		l := model.Listing{
			ID:           rj.ID.resolve(),
			Title:        strings.TrimSpace(rj.Position),
			Company:      rj.Company,
			WorkModality: modalityFromText(model.ModalityRemote, rj.WorkModality),
			Location:     rj.Location,
			Source:       a.Name(),
			Tags:         tags.Parse(tags.FromJSON(rj.Tags)),
			URL:          stripQuery(rj.URL),
		}
		if t, ok := parseTime(rj.Date); ok {
			l.CreatedAt = t
		} else if rj.Epoch > 0 {
			l.CreatedAt = time.Unix(rj.Epoch, 0).UTC()
		}
		listings = append(listings, l)
	}

	return listings, errs
}
