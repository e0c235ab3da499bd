package models

import "time"

type Book struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// Concept is a single extracted unit of book content, independently tracked
// for mastery.
type Concept struct {
	ID          int64     `json:"id"`
	BookID      int64     `json:"book_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ConceptProgress is the list-rendering projection of a concept: coverage
// percentage and mastery flag alongside the concept itself.
type ConceptProgress struct {
	Concept
	CoveragePercent float64 `json:"coverage_percent"`
	Mastered        bool    `json:"mastered"`
}
