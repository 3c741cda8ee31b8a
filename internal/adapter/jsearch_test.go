package adapter

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/amishk599/jobfeed/internal/identity"
	"github.com/amishk599/jobfeed/internal/model"
)

const jsearchPayload = `{
	"status": "OK",
	"data": [
		{
			"job_id": "Ab12Cd34==",
			"job_title": "Go Developer",
			"employer_name": "Gopher Inc",
			"job_is_remote": true,
			"job_city": "Austin",
			"job_country": "US",
			"job_apply_link": "https://jobs.example.com/apply/1?utm_source=jsearch",
			"job_required_skills": ["Go", "Kubernetes"],
			"job_posted_at_datetime_utc": "2025-03-02T08:30:00.000Z"
		},
		{
			"job_id": "Zz99",
			"job_title": "Site Reliability Engineer",
			"employer_name": "Ops LLC",
			"job_is_remote": false,
			"job_google_link": "https://www.google.com/search?q=sre",
			"job_required_skills": null,
			"job_highlights": {"Qualifications": ["Linux", "Terraform"]},
			"job_posted_at_timestamp": 1740823200
		}
	]
}`

func TestJSearchFetch_Success(t *testing.T) {
	srv := jsonServer(t, jsearchPayload, func(r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-rapidapi-key") != "key" || r.Header.Get("x-rapidapi-host") != "jsearch.p.rapidapi.com" {
			t.Errorf("missing RapidAPI headers: %v", r.Header)
		}
		q := r.URL.Query()
		if q.Get("query") != "go developer" || q.Get("page") != "1" || q.Get("country") != "us" || q.Get("date_posted") != "week" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
	})

	a := NewJSearchAdapter(JSearchConfig{APIKey: "key", DatePosted: "week"}, testClient(srv))
	raw, err := a.Fetch(t.Context(), model.FetchParams{Query: "go developer", Page: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("expected 2 items, got %d", len(raw))
	}
}

func TestJSearchFetch_Location(t *testing.T) {
	var got []string
	srv := jsonServer(t, jsearchPayload, func(r *http.Request) {
		if loc, ok := r.URL.Query()["location"]; ok {
			got = append(got, loc[0])
		} else {
			got = append(got, "<unset>")
		}
	})

	with := NewJSearchAdapter(JSearchConfig{APIKey: "key", Location: "remote"}, testClient(srv))
	if _, err := with.Fetch(t.Context(), model.FetchParams{Query: "go", Page: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	without := NewJSearchAdapter(JSearchConfig{APIKey: "key"}, testClient(srv))
	if _, err := without.Fetch(t.Context(), model.FetchParams{Query: "go", Page: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 || got[0] != "remote" || got[1] != "<unset>" {
		t.Errorf("unexpected location params %q", got)
	}
}

func TestJSearchFetch_Forbidden(t *testing.T) {
	srv := statusServer(t, http.StatusForbidden, "")

	a := NewJSearchAdapter(JSearchConfig{APIKey: "bad"}, testClient(srv))
	raw, err := a.Fetch(t.Context(), model.FetchParams{Query: "go", Page: 1})
	if err == nil {
		t.Fatal("expected error for HTTP 403")
	}
	if raw == nil || len(raw) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", raw)
	}
}

func TestJSearchNormalize(t *testing.T) {
	var resp jsearchResponse
	if err := json.Unmarshal([]byte(jsearchPayload), &resp); err != nil {
		t.Fatal(err)
	}

	a := NewJSearchAdapter(JSearchConfig{APIKey: "key"}, http.DefaultClient)
	listings, errs := a.Normalize(append(resp.Data, json.RawMessage(`{"job_title": "No id"}`)))
	if len(listings) != 2 || len(errs) != 1 {
		t.Fatalf("expected 2 listings and 1 drop, got %d and %v", len(listings), errs)
	}

	l := listings[0]
	if l.ID != identity.Resolve("Ab12Cd34==") {
		t.Errorf("unexpected id %d", l.ID)
	}
	if l.WorkModality != model.ModalityRemote || l.Location != "Austin, US" {
		t.Errorf("unexpected listing: %+v", l)
	}
	if l.URL != "https://jobs.example.com/apply/1" {
		t.Errorf("unexpected url %q", l.URL)
	}
	if len(l.Tags) != 2 || l.Tags[0] != "Go" {
		t.Errorf("unexpected tags %v", l.Tags)
	}
	if !l.CreatedAt.Equal(time.Date(2025, 3, 2, 8, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected created_at %v", l.CreatedAt)
	}

	sre := listings[1]
	if sre.WorkModality != model.ModalityOnSite {
		t.Errorf("expected On-site, got %q", sre.WorkModality)
	}
	if sre.URL != "https://www.google.com/search" {
		t.Errorf("expected google link fallback, got %q", sre.URL)
	}
	if len(sre.Tags) != 2 || sre.Tags[1] != "Terraform" {
		t.Errorf("expected qualifications as tags, got %v", sre.Tags)
	}
	if !sre.CreatedAt.Equal(time.Unix(1740823200, 0)) {
		t.Errorf("expected timestamp fallback, got %v", sre.CreatedAt)
	}
}
