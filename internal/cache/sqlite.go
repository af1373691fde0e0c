package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/applypilot/internal/model"
)

// SQLiteStore persists cache entries in a SQLite database. Text columns are
// written once on insert; only rating, usage_count and last_used are updated
// afterwards.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the answers table and its question-type index exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS answers (
		id            TEXT PRIMARY KEY,
		question      TEXT NOT NULL,
		question_type TEXT NOT NULL,
		answer        TEXT NOT NULL,
		rating        INTEGER,
		usage_count   INTEGER NOT NULL DEFAULT 0,
		created_at    DATETIME NOT NULL,
		last_used     DATETIME NOT NULL,
		job_company   TEXT NOT NULL DEFAULT '',
		job_title     TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_answers_question_type ON answers(question_type)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating answers table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Insert writes a new entry. The id must be unique.
func (s *SQLiteStore) Insert(e model.CacheEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO answers (id, question, question_type, answer, rating, usage_count, created_at, last_used, job_company, job_title)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Question, string(e.QuestionType), e.Answer, ratingValue(e.Rating),
		e.UsageCount, e.CreatedAt, e.LastUsed, e.JobCompany, e.JobTitle,
	)
	if err != nil {
		return fmt.Errorf("inserting cache entry %s: %w", e.ID, err)
	}
	return nil
}

// Get returns the entry with the given id, or sql.ErrNoRows wrapped.
func (s *SQLiteStore) Get(id string) (model.CacheEntry, error) {
	row := s.db.QueryRow(
		`SELECT id, question, question_type, answer, rating, usage_count, created_at, last_used, job_company, job_title
		 FROM answers WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err != nil {
		return model.CacheEntry{}, fmt.Errorf("reading cache entry %s: %w", id, err)
	}
	return e, nil
}

// ListByType returns all entries with the given question type. Rows that
// fail to scan are skipped rather than failing the whole query.
func (s *SQLiteStore) ListByType(qtype model.QuestionType) ([]model.CacheEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, question, question_type, answer, rating, usage_count, created_at, last_used, job_company, job_title
		 FROM answers WHERE question_type = ?`, string(qtype))
	if err != nil {
		return nil, fmt.Errorf("listing cache entries for type %s: %w", qtype, err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// All returns every entry in the store.
func (s *SQLiteStore) All() ([]model.CacheEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, question, question_type, answer, rating, usage_count, created_at, last_used, job_company, job_title
		 FROM answers`)
	if err != nil {
		return nil, fmt.Errorf("listing cache entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// IncrementUsage bumps usage_count by exactly 1 and sets last_used.
func (s *SQLiteStore) IncrementUsage(id string, when time.Time) error {
	res, err := s.db.Exec(
		`UPDATE answers SET usage_count = usage_count + 1, last_used = ? WHERE id = ?`, when, id)
	if err != nil {
		return fmt.Errorf("recording usage for %s: %w", id, err)
	}
	return requireRow(res, id)
}

// SetRating updates the rating only.
func (s *SQLiteStore) SetRating(id string, rating int) error {
	res, err := s.db.Exec(`UPDATE answers SET rating = ? WHERE id = ?`, rating, id)
	if err != nil {
		return fmt.Errorf("setting rating for %s: %w", id, err)
	}
	return requireRow(res, id)
}

// Delete removes the entry with the given id. Deleting a missing id is a no-op.
func (s *SQLiteStore) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM answers WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting cache entry %s: %w", id, err)
	}
	return nil
}

// DeleteAll removes every entry.
func (s *SQLiteStore) DeleteAll() error {
	if _, err := s.db.Exec(`DELETE FROM answers`); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (model.CacheEntry, error) {
	var (
		e      model.CacheEntry
		qtype  string
		rating sql.NullInt64
	)
	err := r.Scan(&e.ID, &e.Question, &qtype, &e.Answer, &rating,
		&e.UsageCount, &e.CreatedAt, &e.LastUsed, &e.JobCompany, &e.JobTitle)
	if err != nil {
		return model.CacheEntry{}, err
	}
	e.QuestionType = model.QuestionType(qtype)
	if rating.Valid {
		v := int(rating.Int64)
		e.Rating = &v
	}
	e.Keywords = ExtractKeywords(e.Question)
	return e, nil
}

// collectEntries scans all rows, skipping any that fail to deserialize so a
// single corrupt entry cannot fail the whole query.
func collectEntries(rows *sql.Rows) ([]model.CacheEntry, error) {
	var entries []model.CacheEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cache entries: %w", err)
	}
	return entries, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil // driver without RowsAffected support; treat as success
	}
	if n == 0 {
		return fmt.Errorf("cache entry %s not found", id)
	}
	return nil
}

func ratingValue(r *int) any {
	if r == nil {
		return nil
	}
	return *r
}
