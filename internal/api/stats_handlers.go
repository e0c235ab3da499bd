package api

import (
	"net/http"
	"time"

	apperrors "github.com/vilela/ideaflash/internal/errors"
)

// handleDailyStats returns the aggregate for one day, today by default. Days
// with no activity report zeroes.
func (s *Server) handleDailyStats(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if day == "" {
		day = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", day); err != nil {
		handleError(w, r, apperrors.NewValidationError("day", "must be YYYY-MM-DD"))
		return
	}

	stats, err := s.stats.GetDay(r.Context(), day)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":    stats,
		"accuracy": stats.Accuracy(),
	})
}
