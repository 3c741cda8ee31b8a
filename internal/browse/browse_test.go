package browse

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobfeed/internal/model"
)

func keyRune(r string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)} }

func testSummary() model.Summary {
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return model.Summary{
		Total:           3,
		PeriodDays:      1,
		WindowDays:      7,
		FallbackApplied: true,
		TopCompanies:    []string{"Acme", "Globex"},
		TopTags:         []model.TagCount{{Tag: "go", Count: 2}},
		WorkModalities:  []string{"Hybrid", "Remote"},
		Listings: []model.Listing{
			{ID: 1, Title: "Go Engineer", Company: "Acme", WorkModality: "Remote", URL: "https://a.example/1", CreatedAt: created},
			{ID: 2, Title: "SRE", Company: "Globex", WorkModality: "Hybrid", URL: "https://g.example/2", CreatedAt: created},
			{ID: 3, Title: "Data Engineer", Company: "Acme", WorkModality: "Remote", Tags: []string{"go", "sql"}, URL: "https://a.example/3", CreatedAt: created},
		},
	}
}

func sized(t *testing.T, m browseModel) browseModel {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(browseModel)
}

func press(m browseModel, keys ...tea.KeyMsg) browseModel {
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(browseModel)
	}
	return m
}

func TestBrowse_CursorClamps(t *testing.T) {
	m := sized(t, newBrowseModel(testSummary()))

	m = press(m, keyRune("k"))
	assert.Equal(t, 0, m.cursor)

	m = press(m, keyRune("j"), keyRune("j"), keyRune("j"), keyRune("j"))
	assert.Equal(t, 2, m.cursor)
}

func TestBrowse_DetailAndOpen(t *testing.T) {
	var opened []string
	m := newBrowseModel(testSummary())
	m.openFn = func(url string) { opened = append(opened, url) }
	m = sized(t, m)

	m = press(m, keyRune("j"), tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, viewDetail, m.view)
	assert.Equal(t, int64(2), m.detail.ID)
	assert.Contains(t, m.View(), "Listing Details")

	m = press(m, keyRune("o"))
	assert.Equal(t, []string{"https://g.example/2"}, opened)

	m = press(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, viewList, m.view)
	assert.False(t, m.wantQuit)
}

func TestBrowse_EnterIgnoredOnOverview(t *testing.T) {
	m := sized(t, newBrowseModel(testSummary()))
	m = press(m, tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, 1, m.activePane)
	assert.Equal(t, viewList, m.view)
}

func TestBrowse_QuitVersusBack(t *testing.T) {
	m := sized(t, newBrowseModel(testSummary()))

	next, cmd := m.Update(keyRune("q"))
	assert.True(t, next.(browseModel).wantQuit)
	assert.NotNil(t, cmd)

	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, next.(browseModel).wantQuit)
	assert.NotNil(t, cmd)
}

func TestBrowse_EmptySummary(t *testing.T) {
	m := sized(t, newBrowseModel(model.Summary{}))
	m = press(m, keyRune("j"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, viewList, m.view)
	assert.Contains(t, m.View(), "(no listings)")
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(testSummary())
	assert.Contains(t, out, "3 listings in the last 7 day(s)")
	assert.Contains(t, out, "widened to 7")
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "go")
	assert.Contains(t, out, "Hybrid")

	empty := RenderSummary(model.Summary{WindowDays: 1})
	assert.Equal(t, 3, strings.Count(empty, "(none)"))

	failed := RenderSummary(model.Summary{Error: "summary generation failed: db down"})
	assert.Contains(t, failed, "db down")
	assert.NotContains(t, failed, "Top companies")
}

func TestPicker(t *testing.T) {
	m := pickerModel{options: Modalities, chosen: -1}

	next, _ := m.Update(keyRune("j"))
	next, cmd := next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	final := next.(pickerModel)
	assert.Equal(t, 1, final.chosen)
	assert.NotNil(t, cmd)
	assert.Equal(t, model.ModalityRemote, RegionFor(Modalities[final.chosen]))
	assert.Equal(t, "", RegionFor(AnyModality))

	next, _ = m.Update(keyRune("q"))
	assert.Equal(t, -2, next.(pickerModel).chosen)
}

func TestLoader_ErrorSummary(t *testing.T) {
	m := loaderModel{label: "listings"}
	next, _ := m.Update(loadDoneMsg{summary: model.Summary{Error: "summary generation failed: x"}})
	final := next.(loaderModel)
	assert.True(t, final.done)
	assert.EqualError(t, final.err, "summary generation failed: x")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.ErrorIs(t, next.(loaderModel).err, ErrCancelled)
}
