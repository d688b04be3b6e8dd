package history

import (
	"fmt"
	"strings"
)

// Dialect abstracts the SQL syntax differences between the SQLite and
// PostgreSQL backends.
type Dialect interface {
	// DriverName returns the driver name for sql.Open().
	DriverName() string

	// Rebind converts a query written with ? placeholders to the dialect's
	// placeholder style.
	Rebind(query string) string

	// InitStatements returns backend-specific statements run once at open.
	InitStatements() []string

	// IsDuplicateKeyError reports whether err is a unique constraint violation.
	IsDuplicateKeyError(err error) bool
}

// DialectType identifies the database dialect
type DialectType string

const (
	DialectSQLite   DialectType = "sqlite"
	DialectPostgres DialectType = "postgres"
)

// NewDialect creates a Dialect for the given type
func NewDialect(dialectType DialectType) Dialect {
	switch dialectType {
	case DialectPostgres:
		return &postgresDialect{}
	default:
		return &sqliteDialect{}
	}
}

type sqliteDialect struct{}

func (d *sqliteDialect) DriverName() string { return "sqlite" }

// Rebind is a no-op: SQLite already uses ? placeholders
func (d *sqliteDialect) Rebind(query string) string { return query }

func (d *sqliteDialect) InitStatements() []string {
	return []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
}

func (d *sqliteDialect) IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type postgresDialect struct{}

func (d *postgresDialect) DriverName() string { return "postgres" }

// Rebind converts ? placeholders to $1, $2, ...
func (d *postgresDialect) Rebind(query string) string {
	var result strings.Builder
	position := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result.WriteString(fmt.Sprintf("$%d", position))
			position++
		} else {
			result.WriteByte(query[i])
		}
	}
	return result.String()
}

func (d *postgresDialect) InitStatements() []string {
	return nil
}

func (d *postgresDialect) IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// PostgreSQL error code 23505 is unique_violation
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "23505") ||
		strings.Contains(errStr, "unique constraint")
}
