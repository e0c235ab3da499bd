package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vilela/ideaflash/internal/logger"
	"github.com/vilela/ideaflash/internal/models"
	"github.com/vilela/ideaflash/internal/repository"
)

type conceptRepository struct {
	db *sql.DB
}

// NewConceptRepository creates a new ConceptRepository implementation
func NewConceptRepository(db *sql.DB) repository.ConceptRepository {
	return &conceptRepository{db: db}
}

func (r *conceptRepository) CreateBook(ctx context.Context, book models.Book) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("concept_repo")
	log.Debug("creating book: title=%q", book.Title)

	res, err := r.db.ExecContext(ctx, `
INSERT INTO books (title, author)
VALUES (?, ?)
`, book.Title, book.Author)
	if err != nil {
		log.Error("failed to insert book: %v", err)
		return 0, err
	}
	return res.LastInsertId()
}

func (r *conceptRepository) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	log := logger.FromContext(ctx).WithPrefix("concept_repo")

	var b models.Book
	err := r.db.QueryRowContext(ctx, `
SELECT id, title, author, created_at
FROM books
WHERE id = ?
`, id).Scan(&b.ID, &b.Title, &b.Author, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("book not found: id=%d", id)
			return nil, nil
		}
		log.Error("failed to get book: %v", err)
		return nil, err
	}
	return &b, nil
}

func (r *conceptRepository) ListBooks(ctx context.Context) ([]models.Book, error) {
	log := logger.FromContext(ctx).WithPrefix("concept_repo")

	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, author, created_at
FROM books
ORDER BY created_at ASC
`)
	if err != nil {
		log.Error("failed to list books: %v", err)
		return nil, err
	}
	defer rows.Close()

	var books []models.Book
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.CreatedAt); err != nil {
			log.Error("failed to scan book row: %v", err)
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

func (r *conceptRepository) CreateConcept(ctx context.Context, concept models.Concept) (int64, error) {
	log := logger.FromContext(ctx).WithPrefix("concept_repo")
	log.Debug("creating concept: book_id=%d, title=%q", concept.BookID, concept.Title)

	res, err := r.db.ExecContext(ctx, `
INSERT INTO concepts (book_id, title, description)
VALUES (?, ?, ?)
`, concept.BookID, concept.Title, concept.Description)
	if err != nil {
		log.Error("failed to insert concept: %v", err)
		return 0, err
	}
	return res.LastInsertId()
}

func (r *conceptRepository) GetConcept(ctx context.Context, id int64) (*models.Concept, error) {
	log := logger.FromContext(ctx).WithPrefix("concept_repo")

	var c models.Concept
	err := r.db.QueryRowContext(ctx, `
SELECT id, book_id, title, description, created_at
FROM concepts
WHERE id = ?
`, id).Scan(&c.ID, &c.BookID, &c.Title, &c.Description, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("concept not found: id=%d", id)
			return nil, nil
		}
		log.Error("failed to get concept: %v", err)
		return nil, err
	}
	return &c, nil
}

func (r *conceptRepository) ListConcepts(ctx context.Context, bookID int64) ([]models.Concept, error) {
	log := logger.FromContext(ctx).WithPrefix("concept_repo")
	log.Debug("listing concepts: book_id=%d", bookID)

	rows, err := r.db.QueryContext(ctx, `
SELECT id, book_id, title, description, created_at
FROM concepts
WHERE book_id = ?
ORDER BY id ASC
`, bookID)
	if err != nil {
		log.Error("failed to list concepts: %v", err)
		return nil, err
	}
	defer rows.Close()

	var concepts []models.Concept
	for rows.Next() {
		var c models.Concept
		if err := rows.Scan(&c.ID, &c.BookID, &c.Title, &c.Description, &c.CreatedAt); err != nil {
			log.Error("failed to scan concept row: %v", err)
			return nil, err
		}
		concepts = append(concepts, c)
	}
	return concepts, rows.Err()
}
