package database

import (
	"strings"
	"testing"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "sqlite3"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if !result {
			t.Error("SupportsLastInsertId() should return true for SQLite")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "sqlite"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectPostgreSQL(t *testing.T) {
	dialect := NewPostgresDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "postgres"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if result {
			t.Error("SupportsLastInsertId() should return false for PostgreSQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "postgres"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "mysql"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if !result {
			t.Error("SupportsLastInsertId() should return true for MySQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "mysql"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM users WHERE id = ?",
			expected: "SELECT * FROM users WHERE id = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM users WHERE id = ?",
			expected: "SELECT * FROM users WHERE id = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO users (name, email) VALUES (?, ?)",
			expected: "INSERT INTO users (name, email) VALUES ($1, $2)",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE users SET name = ?, email = ? WHERE id = ?",
			expected: "UPDATE users SET name = ?, email = ? WHERE id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestInsertIgnore(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		expected string
	}{
		{
			name:     "SQLite",
			dialect:  NewSQLiteDialect(),
			expected: "INSERT OR IGNORE INTO challenges (sprint_id, day) VALUES (?, ?)",
		},
		{
			name:     "PostgreSQL",
			dialect:  NewPostgresDialect(),
			expected: "INSERT INTO challenges (sprint_id, day) VALUES (?, ?) ON CONFLICT DO NOTHING",
		},
		{
			name:     "MySQL",
			dialect:  NewMySQLDialect(),
			expected: "INSERT IGNORE INTO challenges (sprint_id, day) VALUES (?, ?)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.InsertIgnore("challenges", "sprint_id", "day")
			if result != tt.expected {
				t.Errorf("InsertIgnore() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestUpsertProgressPlaceholders(t *testing.T) {
	for _, dialect := range []Dialect{NewSQLiteDialect(), NewPostgresDialect(), NewMySQLDialect()} {
		query := dialect.UpsertProgress()
		if got := strings.Count(query, "?"); got != 6 {
			t.Errorf("%s UpsertProgress() has %d placeholders, want 6", dialect.DriverName(), got)
		}
		if !strings.Contains(query, "user_progress") {
			t.Errorf("%s UpsertProgress() does not target user_progress", dialect.DriverName())
		}
	}

	rewritten := NewPostgresDialect().RewriteQuery(NewPostgresDialect().UpsertProgress())
	if !strings.Contains(rewritten, "$6") || strings.Contains(rewritten, "?") {
		t.Errorf("postgres rewrite did not number all placeholders: %s", rewritten)
	}
}

func TestMySQLDSNAddsParseTime(t *testing.T) {
	dialect := NewMySQLDialect()
	tests := []struct {
		url      string
		expected string
	}{
		{"user:pw@tcp(db:3306)/sprint", "user:pw@tcp(db:3306)/sprint?parseTime=true"},
		{"user:pw@tcp(db:3306)/sprint?charset=utf8mb4", "user:pw@tcp(db:3306)/sprint?charset=utf8mb4&parseTime=true"},
		{"user:pw@tcp(db:3306)/sprint?parseTime=true", "user:pw@tcp(db:3306)/sprint?parseTime=true"},
	}
	for _, tt := range tests {
		if got := dialect.DSN(DialectConfig{URL: tt.url}); got != tt.expected {
			t.Errorf("DSN(%q) = %q, want %q", tt.url, got, tt.expected)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	content := `-- comment
CREATE TABLE a (
    id INTEGER
);

CREATE INDEX idx_a ON a(id);
`
	statements := SplitStatements(content)
	if len(statements) != 2 {
		t.Fatalf("SplitStatements() returned %d statements, want 2: %q", len(statements), statements)
	}
	if !strings.HasPrefix(statements[0], "CREATE TABLE a") {
		t.Errorf("first statement = %q", statements[0])
	}
	if strings.HasSuffix(statements[1], ";") {
		t.Errorf("statement should not keep trailing semicolon: %q", statements[1])
	}
}
