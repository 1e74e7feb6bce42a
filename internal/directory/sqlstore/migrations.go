package sqlstore

import "fmt"

// The DDL sticks to the portable subset accepted by sqlite, postgres, and
// mysql: VARCHAR keys (mysql cannot index TEXT), TIMESTAMP columns, and no
// database-generated ids (UUIDv7 strings come from the application).
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(64) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL,
			password VARCHAR(255) NOT NULL,
			role VARCHAR(16) NOT NULL,
			status VARCHAR(16) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			last_login_at TIMESTAMP NULL
		)`,

		`CREATE TABLE IF NOT EXISTS activity_logs (
			id VARCHAR(64) PRIMARY KEY,
			actor VARCHAR(64) NOT NULL,
			action VARCHAR(32) NOT NULL,
			target VARCHAR(64) NULL,
			recorded_at TIMESTAMP NOT NULL,
			details VARCHAR(512) NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
