package nebula_db

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Executor runs a statement. *pgxpool.Pool, *pgxpool.Conn and pgx.Tx all satisfy it.
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// InsertBuilder builds a parameterized INSERT for one or more rows.
//
//	query, args := nebula_db.Insert("requests").
//	    Set("method", "GET").Set("path", "/").
//	    Build()
//	// INSERT INTO requests (method,path) VALUES ($1,$2)
type InsertBuilder struct {
	table string
	rows  []map[string]any
	debug bool
}

func Insert(table string) *InsertBuilder {
	return &InsertBuilder{
		table: table,
		rows:  []map[string]any{{}},
	}
}

// Set assigns a column on the current row.
func (b *InsertBuilder) Set(field string, value any) *InsertBuilder {
	b.rows[len(b.rows)-1][field] = value
	return b
}

// Row starts a new row. Every row must set the same columns as the first.
func (b *InsertBuilder) Row() *InsertBuilder {
	b.rows = append(b.rows, map[string]any{})
	return b
}

func (b *InsertBuilder) Debug() *InsertBuilder {
	b.debug = true
	return b
}

// Build returns the statement with numbered placeholders and its arguments.
// Columns are emitted in sorted order so the statement text is stable.
func (b *InsertBuilder) Build() (string, []any) {
	return b.BuildOffset(0)
}

// BuildOffset numbers placeholders starting after idx existing arguments.
func (b *InsertBuilder) BuildOffset(idx int) (string, []any) {
	keys := make([]string, 0, len(b.rows[0]))
	for k := range b.rows[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := []any{}
	values := make([]string, 0, len(b.rows))
	argCt := idx + 1
	for _, row := range b.rows {
		if len(row) == 0 {
			continue
		}
		placeholders := make([]string, 0, len(keys))
		for _, k := range keys {
			placeholders = append(placeholders, fmt.Sprintf("$%d", argCt))
			args = append(args, row[k])
			argCt++
		}
		values = append(values, "("+strings.Join(placeholders, ",")+")")
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", b.table, strings.Join(keys, ","), strings.Join(values, ","))
	if b.debug {
		log.Printf("[QUERY]: '%s'", query)
	}
	return query, args
}

// Exec runs the insert on db.
func (b *InsertBuilder) Exec(ctx context.Context, db Executor) *QueryBuilderError {
	if len(b.rows[0]) == 0 {
		return PostgresError(b.table, errors.New("no columns set"))
	}
	query, args := b.Build()
	if _, err := db.Exec(ctx, query, args...); err != nil {
		return PostgresError(b.table, err)
	}
	return nil
}

type QueryBuilderError struct {
	table        string
	genericError error
}

func (e *QueryBuilderError) Error() string {
	friendlyName := strings.ReplaceAll(e.table, "_", " ")
	friendlyName = cases.Title(language.English).String(friendlyName)
	if e.genericError != nil {
		return friendlyName + ": " + e.genericError.Error()
	}
	return friendlyName + ": unknown error"
}

func (e *QueryBuilderError) Unwrap() error {
	return e.genericError
}

// Violates reports whether the underlying Postgres error has the given code.
func (e *QueryBuilderError) Violates(code PostgresErrorCode) bool {
	var pgError *pgconn.PgError
	if errors.As(e.genericError, &pgError) {
		return pgError.Code == string(code)
	}
	return false
}

func PostgresError(table string, err error) *QueryBuilderError {
	return &QueryBuilderError{
		table:        table,
		genericError: err,
	}
}

type PostgresErrorCode string

const (
	PostgresErrorCodeUniqueViolation  PostgresErrorCode = "23505"
	PostgresErrorCodeNotNullViolation PostgresErrorCode = "23502"
	PostgresErrorCodeUndefinedTable   PostgresErrorCode = "42P01"
	PostgresErrorCodeCheckViolation   PostgresErrorCode = "23514"
)
