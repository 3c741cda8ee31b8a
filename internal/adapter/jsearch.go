package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobfeed/internal/identity"
	"github.com/amishk599/jobfeed/internal/model"
	"github.com/amishk599/jobfeed/internal/tags"
)

const (
	jsearchBaseURL       = "https://jsearch.p.rapidapi.com"
	jsearchHost          = "jsearch.p.rapidapi.com"
	jsearchDefaultRegion = "us"
)

type jsearchResponse struct {
	Data []json.RawMessage `json:"data"`
}

// jsearchJob is a single raw item of a JSearch response.
type jsearchJob struct {
	JobID          string           `json:"job_id"`
	Title          string           `json:"job_title"`
	EmployerName   string           `json:"employer_name"`
	IsRemote       bool             `json:"job_is_remote"`
	City           string           `json:"job_city"`
	Country        string           `json:"job_country"`
	ApplyLink      string           `json:"job_apply_link"`
	GoogleLink     string           `json:"job_google_link"`
	RequiredSkills json.RawMessage  `json:"job_required_skills"`
	Highlights     jsearchHighlight `json:"job_highlights"`
	PostedAtUTC    string           `json:"job_posted_at_datetime_utc"`
	PostedAtUnix   int64            `json:"job_posted_at_timestamp"`
}

type jsearchHighlight struct {
	Qualifications []string `json:"Qualifications"`
}

// JSearchConfig holds the RapidAPI key and optional search filters.
type JSearchConfig struct {
	APIKey     string
	DatePosted string
	Location   string
}

// JSearchAdapter fetches postings from the JSearch API on RapidAPI.
type JSearchAdapter struct {
	cfg    JSearchConfig
	client *http.Client
}

// NewJSearchAdapter creates a connector for JSearch. DatePosted is passed
// through as the date_posted filter ("all" when empty); Location is sent only
// when set.
func NewJSearchAdapter(cfg JSearchConfig, client *http.Client) *JSearchAdapter {
	if cfg.DatePosted == "" {
		cfg.DatePosted = "all"
	}
	return &JSearchAdapter{cfg: cfg, client: client}
}

func (a *JSearchAdapter) Name() string { return "jsearch" }

// Fetch retrieves one page of search results for the query in the region.
func (a *JSearchAdapter) Fetch(ctx context.Context, p model.FetchParams) ([]json.RawMessage, error) {
	country := strings.ToLower(strings.TrimSpace(p.Region))
	if country == "" {
		country = jsearchDefaultRegion
	}

	params := url.Values{}
	params.Set("query", p.Query)
	params.Set("page", strconv.Itoa(max(p.Page, 1)))
	params.Set("country", country)
	params.Set("date_posted", a.cfg.DatePosted)
	if a.cfg.Location != "" {
		params.Set("location", a.cfg.Location)
	}

	header := http.Header{}
	header.Set("x-rapidapi-key", a.cfg.APIKey)
	header.Set("x-rapidapi-host", jsearchHost)

	var resp jsearchResponse
	if err := getJSON(ctx, a.client, a.Name(), jsearchBaseURL+"/search?"+params.Encode(), header, &resp); err != nil {
		return []json.RawMessage{}, err
	}
	if resp.Data == nil {
		return []json.RawMessage{}, nil
	}
	return resp.Data, nil
}

// Normalize maps JSearch items into Listings.
func (a *JSearchAdapter) Normalize(raw []json.RawMessage) ([]model.Listing, []error) {
	listings := make([]model.Listing, 0, len(raw))
	var errs []error

	for i, item := range raw {
		var jj jsearchJob
		if err := json.Unmarshal(item, &jj); err != nil {
			errs = append(errs, fmt.Errorf("jsearch item %d: %w", i, err))
			continue
		}
		if strings.TrimSpace(jj.Title) == "" {
			errs = append(errs, &model.DropError{Source: a.Name(), Index: i, Field: "job_title"})
			continue
		}
		if strings.TrimSpace(jj.JobID) == "" {
			errs = append(errs, &model.DropError{Source: a.Name(), Index: i, Field: "job_id"})
			continue
		}

		modality := model.ModalityOnSite
		if jj.IsRemote {
			modality = model.ModalityRemote
		}

		link := jj.ApplyLink
		if link == "" {
			link = jj.GoogleLink
		}

		skills := tags.Parse(tags.FromJSON(jj.RequiredSkills))
		if len(skills) == 0 {
			skills = tags.Parse(tags.List(jj.Highlights.Qualifications))
		}

		l := model.Listing{
			ID:           identity.Resolve(jj.JobID),
			Title:        strings.TrimSpace(jj.Title),
			Company:      jj.EmployerName,
			WorkModality: modality,
			Location:     joinNonEmpty(", ", jj.City, jj.Country),
			Source:       a.Name(),
			Tags:         skills,
			URL:          stripQuery(link),
		}
		if t, ok := parseTime(jj.PostedAtUTC); ok {
			l.CreatedAt = t
		} else if jj.PostedAtUnix > 0 {
			l.CreatedAt = time.Unix(jj.PostedAtUnix, 0).UTC()
		}
		listings = append(listings, l)
	}

	return listings, errs
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
