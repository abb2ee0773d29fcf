package sqlite

import "database/sql"

const schemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS scores (
    id               TEXT PRIMARY KEY,
    student_name     TEXT NOT NULL,
    question_id      TEXT NOT NULL,
    question_title   TEXT NOT NULL DEFAULT '',
    overall          INTEGER NOT NULL DEFAULT 0,
    time_complexity  INTEGER NOT NULL DEFAULT 0,
    space_complexity INTEGER NOT NULL DEFAULT 0,
    readability      INTEGER NOT NULL DEFAULT 0,
    stability        INTEGER NOT NULL DEFAULT 0,
    code             TEXT NOT NULL DEFAULT '',
    created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at       DATETIME NOT NULL DEFAULT (datetime('now')),
    UNIQUE(student_name, question_id)
);

CREATE INDEX IF NOT EXISTS idx_scores_student ON scores(student_name);
`

func runMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}

	var current int
	row := db.QueryRow("SELECT version FROM schema_version LIMIT 1")
	if err := row.Scan(&current); err != nil {
		// Table doesn't exist or is empty — run initial schema
		current = 0
	}

	if current >= schemaVersion {
		return nil
	}

	if current < 1 {
		if _, err := db.Exec(schemaV1); err != nil {
			return err
		}
	}

	_, err := db.Exec(`
		DELETE FROM schema_version;
		INSERT INTO schema_version (version) VALUES (?);
	`, schemaVersion)
	return err
}
