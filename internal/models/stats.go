package models

// DailyStats is the per-day aggregate shown to the learner: total brain
// calories, answer counts, and attention time. Upserted by day.
type DailyStats struct {
	ID                int64   `json:"id"`
	Day               string  `json:"day"` // YYYY-MM-DD
	BrainCal          int     `json:"brain_cal"`
	QuestionsAnswered int     `json:"questions_answered"`
	QuestionsCorrect  int     `json:"questions_correct"`
	AttentionMinutes  float64 `json:"attention_minutes"`
}

// Accuracy returns the day's correct/answered ratio, zero when nothing was
// answered.
func (d DailyStats) Accuracy() float64 {
	if d.QuestionsAnswered == 0 {
		return 0
	}
	return float64(d.QuestionsCorrect) / float64(d.QuestionsAnswered)
}
