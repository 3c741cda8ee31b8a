package notifier

import (
	"log/slog"

	"github.com/amishk599/jobfeed/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes a digest to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs the digest via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs one line for the summary and one per highlighted listing.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(s model.Summary) error {
	n.logger.Info("job digest",
		"total", s.Total,
		"window_days", s.WindowDays,
		"fallback", s.FallbackApplied,
		"top_companies", s.TopCompanies,
		"top_tags", tagNames(s.TopTags),
		"work_modalities", s.WorkModalities,
	)
	for _, l := range highlights(s) {
		n.logger.Info("listing",
			"company", l.Company,
			"title", l.Title,
			"work_modality", l.WorkModality,
			"url", l.URL,
			"created_at", l.CreatedAt,
		)
	}
	return nil
}
