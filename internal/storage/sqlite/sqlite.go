package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kshou/lualab/internal/storage"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements storage.Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and runs
// migrations. Use ":memory:" for an in-memory database (useful for testing).
func Open(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SubmitScore(ctx context.Context, score *storage.Score) (bool, error) {
	score.ClampCode()
	now := time.Now().UTC()

	var existing int
	row := s.db.QueryRowContext(ctx, `
		SELECT overall FROM scores WHERE student_name = ? AND question_id = ?`,
		score.StudentName, score.QuestionID)
	switch err := row.Scan(&existing); err {
	case sql.ErrNoRows:
		score.ID = uuid.New().String()
		score.CreatedAt = now
		score.UpdatedAt = now
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO scores (id, student_name, question_id, question_title,
				overall, time_complexity, space_complexity, readability, stability,
				code, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			score.ID, score.StudentName, score.QuestionID, score.QuestionTitle,
			score.Overall, score.TimeComplexity, score.SpaceComplexity,
			score.Readability, score.Stability, score.Code,
			now.Format(time.RFC3339), now.Format(time.RFC3339),
		)
		if err != nil {
			return false, fmt.Errorf("inserting score: %w", err)
		}
		return true, nil
	case nil:
		// Keep the highest overall score on record.
		if score.Overall <= existing {
			return false, nil
		}
		score.UpdatedAt = now
		_, err := s.db.ExecContext(ctx, `
			UPDATE scores SET question_title = ?, overall = ?, time_complexity = ?,
				space_complexity = ?, readability = ?, stability = ?, code = ?,
				updated_at = ?
			WHERE student_name = ? AND question_id = ?`,
			score.QuestionTitle, score.Overall, score.TimeComplexity,
			score.SpaceComplexity, score.Readability, score.Stability, score.Code,
			now.Format(time.RFC3339), score.StudentName, score.QuestionID,
		)
		if err != nil {
			return false, fmt.Errorf("updating score: %w", err)
		}
		return true, nil
	default:
		return false, fmt.Errorf("querying score: %w", err)
	}
}

func (s *SQLiteStore) StudentScores(ctx context.Context, studentName string) ([]storage.Score, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_name, question_id, question_title,
			overall, time_complexity, space_complexity, readability, stability,
			code, created_at, updated_at
		FROM scores WHERE student_name = ? ORDER BY updated_at DESC`, studentName)
	if err != nil {
		return nil, fmt.Errorf("listing scores: %w", err)
	}
	defer rows.Close()

	var scores []storage.Score
	for rows.Next() {
		var sc storage.Score
		var created, updated string
		if err := rows.Scan(&sc.ID, &sc.StudentName, &sc.QuestionID, &sc.QuestionTitle,
			&sc.Overall, &sc.TimeComplexity, &sc.SpaceComplexity, &sc.Readability,
			&sc.Stability, &sc.Code, &created, &updated); err != nil {
			return nil, fmt.Errorf("scanning score: %w", err)
		}
		sc.CreatedAt, _ = time.Parse(time.RFC3339, created)
		sc.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
