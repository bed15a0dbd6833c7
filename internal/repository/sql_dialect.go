package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/landertag/mailflow/internal/config"
	"github.com/landertag/mailflow/pkg/mailflow/core"
)

// Dialect selects placeholder style and timestamp formatting per database.
type Dialect string

const (
	DialectPostgres Dialect = "POSTGRES"
	DialectMysql    Dialect = "MYSQL"
	DialectSqllite  Dialect = "SQLLITE"
)

func DialectFor(databaseType string) Dialect {
	switch databaseType {
	case config.DatabaseTypePostgres:
		return DialectPostgres
	case config.DatabaseTypeMysql:
		return DialectMysql
	default:
		return DialectSqllite
	}
}

// placeholder returns the correct bind variable for the given index.
// Postgres uses $1, $2... while MySQL and SQLite use ?
func (d Dialect) placeholder(i int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

// nowFunc renders the clock's current time as a quoted SQL literal so that
// "now" is always the injected clock, never the database server's clock.
func (d Dialect) nowFunc(clock core.Clock) string {
	switch d {
	case DialectSqllite:
		return fmt.Sprintf("'%s'", clock.Now().UTC().Format("2006-01-02 15:04:05.000"))
	default:
		return fmt.Sprintf("'%s'", clock.Now().UTC().Format("2006-01-02 15:04:05.000000"))
	}
}

// dateDue returns a SQL predicate checking that the datetime column is at or
// before the clock's current time. SQLite coerces via julianday so TEXT
// timestamps compare correctly.
func (d Dialect) dateDue(column string, clock core.Clock) string {
	now := clock.Now().UTC().Format("2006-01-02 15:04:05.000")
	if d == DialectSqllite {
		return fmt.Sprintf("julianday(%s) <= julianday('%s')", column, now)
	}
	return fmt.Sprintf("%s <= '%s'", column, now)
}

func (d Dialect) formatDate(t time.Time) string {
	switch d {
	case DialectSqllite:
		return t.UTC().Format("2006-01-02 15:04:05.000")
	case DialectMysql:
		return t.UTC().Format("2006-01-02 15:04:05.000000")
	default:
		return t.UTC().Format(time.RFC3339Nano)
	}
}

func (d Dialect) formatDateNull(t sql.NullTime) interface{} {
	if !t.Valid {
		return nil
	}
	switch d {
	case DialectSqllite:
		return t.Time.UTC().Format("2006-01-02 15:04:05.000")
	case DialectMysql:
		return t.Time.UTC().Format("2006-01-02 15:04:05.000000")
	default:
		return t.Time
	}
}
