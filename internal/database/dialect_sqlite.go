package database

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDialect implements Dialect for SQLite
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

func (d *SQLiteDialect) DSN(config DialectConfig) string {
	// Immediate transactions take the write lock up front so busy_timeout
	// applies instead of failing with SQLITE_BUSY on lock upgrade.
	return config.Path + "?_busy_timeout=5000&_txlock=immediate"
}

func (d *SQLiteDialect) RewriteQuery(query string) string {
	// SQLite uses ? placeholders, no rewrite needed
	return query
}

func (d *SQLiteDialect) SupportsLastInsertId() bool {
	return true
}

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return err
	}

	return nil
}

func (d *SQLiteDialect) MigrationsSubdir() string {
	return "sqlite"
}

func (d *SQLiteDialect) CreateMigrationsTableQuery() string {
	return `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT UNIQUE NOT NULL,
			executed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
}

func (d *SQLiteDialect) BoolValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (d *SQLiteDialect) InsertIgnore(table string, columns ...string) string {
	return "INSERT OR IGNORE INTO " + insertValues(table, columns)
}

func (d *SQLiteDialect) UpsertProgress() string {
	return `
		INSERT INTO user_progress (user_id, sprint_id, start_date, current_day, completed, completed_date)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, sprint_id) DO UPDATE SET
			completed_date = CASE
				WHEN user_progress.completed AND excluded.completed THEN user_progress.completed_date
				ELSE excluded.completed_date
			END,
			completed = excluded.completed,
			current_day = excluded.current_day,
			updated_at = CURRENT_TIMESTAMP
	`
}
