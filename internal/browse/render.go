package browse

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobfeed/internal/model"
)

var (
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// RenderSummary formats the aggregate part of a summary for a terminal.
func RenderSummary(s model.Summary) string {
	var b strings.Builder

	if s.Error != "" {
		b.WriteString(errorStyle.Render("⚠ "+s.Error) + "\n")
		return b.String()
	}

	window := fmt.Sprintf("%d listings in the last %d day(s)", s.Total, s.WindowDays)
	b.WriteString(sectionStyle.Render(window) + "\n")
	if s.FallbackApplied {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("nothing in the last %d day(s), widened to %d", s.PeriodDays, s.WindowDays)) + "\n")
	}
	if s.Filters.Region != "" || len(s.Filters.Tags) > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("filters: region=%q tags=%s", s.Filters.Region, strings.Join(s.Filters.Tags, ","))) + "\n")
	}

	b.WriteString("\n" + sectionStyle.Render("Top companies") + "\n")
	writeList(&b, s.TopCompanies)

	b.WriteString("\n" + sectionStyle.Render("Top tags") + "\n")
	tags := make([]string, len(s.TopTags))
	for i, t := range s.TopTags {
		tags[i] = fmt.Sprintf("%-20s %d", t.Tag, t.Count)
	}
	writeList(&b, tags)

	b.WriteString("\n" + sectionStyle.Render("Work modalities") + "\n")
	writeList(&b, s.WorkModalities)

	return b.String()
}

func writeList(b *strings.Builder, items []string) {
	if len(items) == 0 {
		b.WriteString(mutedStyle.Render("  (none)") + "\n")
		return
	}
	for _, it := range items {
		b.WriteString("  " + it + "\n")
	}
}
