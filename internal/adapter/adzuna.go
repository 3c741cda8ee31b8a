package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/amishk599/jobfeed/internal/identity"
	"github.com/amishk599/jobfeed/internal/model"
	"github.com/amishk599/jobfeed/internal/tags"
)

const (
	adzunaBaseURL       = "https://api.adzuna.com/v1/api/jobs"
	adzunaDefaultRegion = "gb"
)

// adzunaResponse is the top-level Adzuna search response.
type adzunaResponse struct {
	Results []json.RawMessage `json:"results"`
}

// adzunaJob is a single raw result item.
type adzunaJob struct {
	ID          nativeID        `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Created     string          `json:"created"`
	RedirectURL string          `json:"redirect_url"`
	URL         string          `json:"url"`
	Company     adzunaNamed     `json:"company"`
	Location    adzunaNamed     `json:"location"`
	Category    adzunaCategory  `json:"category"`
	Tags        json.RawMessage `json:"tags"`
}

// link prefers the redirect URL and falls back to the plain one.
func (aj adzunaJob) link() string {
	if aj.RedirectURL != "" {
		return aj.RedirectURL
	}
	return aj.URL
}

type adzunaNamed struct {
	DisplayName string `json:"display_name"`
}

type adzunaCategory struct {
	Tag string `json:"tag"`
}

// AdzunaConfig holds the credentials and optional search filters.
type AdzunaConfig struct {
	AppID          string
	AppKey         string
	ResultsPerPage int
	SalaryMin      int
	Where          string
}

// AdzunaAdapter fetches postings from the Adzuna search API.
type AdzunaAdapter struct {
	cfg    AdzunaConfig
	client *http.Client
}

// NewAdzunaAdapter creates a connector for the Adzuna search API.
func NewAdzunaAdapter(cfg AdzunaConfig, client *http.Client) *AdzunaAdapter {
	if cfg.ResultsPerPage <= 0 {
		cfg.ResultsPerPage = 20
	}
	return &AdzunaAdapter{cfg: cfg, client: client}
}

func (a *AdzunaAdapter) Name() string { return "adzuna" }

// Fetch retrieves one page of search results for the query in the region's
// country index.
func (a *AdzunaAdapter) Fetch(ctx context.Context, p model.FetchParams) ([]json.RawMessage, error) {
	country := strings.ToLower(strings.TrimSpace(p.Region))
	if country == "" {
		country = adzunaDefaultRegion
	}
	page := max(p.Page, 1)

	params := url.Values{}
	params.Set("app_id", a.cfg.AppID)
	params.Set("app_key", a.cfg.AppKey)
	params.Set("results_per_page", strconv.Itoa(a.cfg.ResultsPerPage))
	params.Set("what", p.Query)
	if a.cfg.SalaryMin > 0 {
		params.Set("salary_min", strconv.Itoa(a.cfg.SalaryMin))
	}
	if a.cfg.Where != "" {
		params.Set("where", a.cfg.Where)
	}
	endpoint := fmt.Sprintf("%s/%s/search/%d?%s", adzunaBaseURL, url.PathEscape(country), page, params.Encode())

	var resp adzunaResponse
	if err := getJSON(ctx, a.client, a.Name(), endpoint, nil, &resp); err != nil {
		return []json.RawMessage{}, err
	}
	if resp.Results == nil {
		return []json.RawMessage{}, nil
	}
	return resp.Results, nil
}

// Normalize maps Adzuna result items into Listings.
func (a *AdzunaAdapter) Normalize(raw []json.RawMessage) ([]model.Listing, []error) {
	listings := make([]model.Listing, 0, len(raw))
	var errs []error

	for i, item := range raw {
		var aj adzunaJob
		if err := json.Unmarshal(item, &aj); err != nil {
			errs = append(errs, fmt.Errorf("adzuna item %d: %w", i, err))
			continue
		}
		title := extractText(aj.Title)
		if title == "" {
			errs = append(errs, &model.DropError{Source: a.Name(), Index: i, Field: "title"})
			continue
		}
		if aj.ID == "" {
			errs = append(errs, &model.DropError{Source: a.Name(), Index: i, Field: "id"})
			continue
		}

		description := extractText(aj.Description)
		l := model.Listing{
			ID:           identity.Resolve(string(aj.ID)),
			Title:        title,
			Company:      aj.Company.DisplayName,
			WorkModality: modalityFromText(model.ModalityRemote, title, description),
			Location:     aj.Location.DisplayName,
			Source:       a.Name(),
			Tags:         tags.Parse(tags.FromJSON(aj.Tags)),
			URL:          stripQuery(aj.link()),
		}
		if len(l.Tags) == 0 && aj.Category.Tag != "" {
			l.Tags = tags.Parse(tags.List{aj.Category.Tag})
		}
		if t, ok := parseTime(aj.Created); ok {
			l.CreatedAt = t
		}
		listings = append(listings, l)
	}

	return listings, errs
}
