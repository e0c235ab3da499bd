package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vilela/ideaflash/internal/logger"
	"github.com/vilela/ideaflash/internal/models"
	"github.com/vilela/ideaflash/internal/repository"
)

type statsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new StatsRepository implementation
func NewStatsRepository(db *sql.DB) repository.StatsRepository {
	return &statsRepository{db: db}
}

// AddToDay accumulates session totals into the day's aggregate row.
func (r *statsRepository) AddToDay(ctx context.Context, day string, brainCal, answered, correct int, attentionMinutes float64) error {
	log := logger.FromContext(ctx).WithPrefix("stats_repo")
	log.Debug("adding to daily stats: day=%s, bcal=%d, answered=%d", day, brainCal, answered)

	_, err := r.db.ExecContext(ctx, `
INSERT INTO daily_stats (day, brain_cal, questions_answered, questions_correct, attention_minutes)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (day) DO UPDATE SET
    brain_cal = brain_cal + excluded.brain_cal,
    questions_answered = questions_answered + excluded.questions_answered,
    questions_correct = questions_correct + excluded.questions_correct,
    attention_minutes = attention_minutes + excluded.attention_minutes
`, day, brainCal, answered, correct, attentionMinutes)
	if err != nil {
		log.Error("failed to add to daily stats: %v", err)
	}
	return err
}

func (r *statsRepository) GetDay(ctx context.Context, day string) (*models.DailyStats, error) {
	log := logger.FromContext(ctx).WithPrefix("stats_repo")

	var d models.DailyStats
	err := r.db.QueryRowContext(ctx, `
SELECT id, day, brain_cal, questions_answered, questions_correct, attention_minutes
FROM daily_stats
WHERE day = ?
`, day).Scan(&d.ID, &d.Day, &d.BrainCal, &d.QuestionsAnswered, &d.QuestionsCorrect, &d.AttentionMinutes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("no daily stats yet: day=%s", day)
			return &models.DailyStats{Day: day}, nil
		}
		log.Error("failed to get daily stats: %v", err)
		return nil, err
	}
	return &d, nil
}
