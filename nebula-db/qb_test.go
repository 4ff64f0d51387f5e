package nebula_db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeExecutor struct {
	calls []execCall
	err   error
}

func (f *fakeExecutor) Exec(_ context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: arguments})
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func TestInsertBuild(t *testing.T) {
	tests := []struct {
		name      string
		builder   *InsertBuilder
		offset    int
		wantQuery string
		wantArgs  []any
	}{
		{
			name:      "single row",
			builder:   Insert("requests").Set("path", "/").Set("method", "GET"),
			wantQuery: "INSERT INTO requests (method,path) VALUES ($1,$2)",
			wantArgs:  []any{"GET", "/"},
		},
		{
			name: "multiple rows",
			builder: Insert("requests").
				Set("path", "/a").Set("method", "GET").
				Row().
				Set("path", "/b").Set("method", "POST"),
			wantQuery: "INSERT INTO requests (method,path) VALUES ($1,$2),($3,$4)",
			wantArgs:  []any{"GET", "/a", "POST", "/b"},
		},
		{
			name:      "offset",
			builder:   Insert("requests").Set("path", "/"),
			offset:    3,
			wantQuery: "INSERT INTO requests (path) VALUES ($4)",
			wantArgs:  []any{"/"},
		},
		{
			name:      "trailing empty row skipped",
			builder:   Insert("requests").Set("path", "/").Row(),
			wantQuery: "INSERT INTO requests (path) VALUES ($1)",
			wantArgs:  []any{"/"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := tt.builder.BuildOffset(tt.offset)
			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestInsertExec(t *testing.T) {
	db := &fakeExecutor{}
	err := Insert("requests").Set("path", "/").Exec(context.Background(), db)
	require.Nil(t, err)
	require.Len(t, db.calls, 1)
	assert.Equal(t, "INSERT INTO requests (path) VALUES ($1)", db.calls[0].sql)

	err = Insert("access_requests").Exec(context.Background(), db)
	require.NotNil(t, err)
	assert.Equal(t, "Access Requests: no columns set", err.Error())
	assert.Len(t, db.calls, 1)
}

func TestQueryBuilderError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: string(PostgresErrorCodeUniqueViolation), Message: "duplicate key"}
	db := &fakeExecutor{err: pgErr}

	qbErr := Insert("nebula_requests").Set("request_id", "x").Exec(context.Background(), db)
	require.NotNil(t, qbErr)
	assert.True(t, qbErr.Violates(PostgresErrorCodeUniqueViolation))
	assert.False(t, qbErr.Violates(PostgresErrorCodeNotNullViolation))
	assert.Equal(t, "Nebula Requests: "+pgErr.Error(), qbErr.Error())

	var target *pgconn.PgError
	assert.True(t, errors.As(qbErr, &target))

	assert.Equal(t, "Requests: unknown error", PostgresError("requests", nil).Error())
	assert.False(t, PostgresError("requests", errors.New("plain")).Violates(PostgresErrorCodeCheckViolation))
}
