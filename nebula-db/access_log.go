package nebula_db

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jacksonzamorano/nebula"
	"github.com/pkg/errors"
)

const DefaultAccessLogTable = "nebula_requests"

// CreateAccessLogTable is the schema AccessLog writes to, with %s standing for the table.
const CreateAccessLogTable = `CREATE TABLE IF NOT EXISTS %s (
	request_id UUID PRIMARY KEY,
	method TEXT NOT NULL,
	path TEXT NOT NULL,
	query TEXT NOT NULL,
	ip_address TEXT NOT NULL,
	received_at TIMESTAMPTZ NOT NULL
)`

// Querier reads rows. *pgxpool.Pool and pgx.Tx satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// AccessRecord is one stored request.
type AccessRecord struct {
	RequestId  string    `json:"request_id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Query      string    `json:"query"`
	IpAddress  string    `json:"ip_address"`
	ReceivedAt time.Time `json:"received_at"`
}

func accessRecordFromRow(row pgx.Rows, rec *AccessRecord) error {
	return row.Scan(&rec.RequestId, &rec.Method, &rec.Path, &rec.Query, &rec.IpAddress, &rec.ReceivedAt)
}

// AccessLog writes one row per dispatched request.
type AccessLog struct {
	db      Executor
	table   string
	timeout time.Duration
}

func NewAccessLog(db Executor, table string) *AccessLog {
	if table == "" {
		table = DefaultAccessLogTable
	}
	return &AccessLog{db: db, table: table, timeout: 5 * time.Second}
}

// Migrate creates the table if it does not exist.
func (l *AccessLog) Migrate(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, fmt.Sprintf(CreateAccessLogTable, l.table)); err != nil {
		return PostgresError(l.table, err)
	}
	return nil
}

// Record inserts a row describing req.
func (l *AccessLog) Record(ctx context.Context, requestId string, method string, path string, query string, ip string, receivedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	qbErr := Insert(l.table).
		Set("request_id", requestId).
		Set("method", method).
		Set("path", path).
		Set("query", query).
		Set("ip_address", ip).
		Set("received_at", receivedAt).
		Exec(ctx, l.db)
	if qbErr != nil {
		return qbErr
	}
	return nil
}

// Recent returns up to limit records, newest first. The executor the log was created
// with must also be a Querier.
func (l *AccessLog) Recent(ctx context.Context, limit int) ([]AccessRecord, error) {
	q, ok := l.db.(Querier)
	if !ok {
		return nil, PostgresError(l.table, errors.New("executor cannot run queries"))
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	rows, err := q.Query(ctx, recentQuery(l.table), limit)
	if err != nil {
		return nil, PostgresError(l.table, err)
	}
	defer rows.Close()

	records := []AccessRecord{}
	for rows.Next() {
		var rec AccessRecord
		if err := accessRecordFromRow(rows, &rec); err != nil {
			return nil, PostgresError(l.table, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, PostgresError(l.table, err)
	}
	return records, nil
}

func recentQuery(table string) string {
	return fmt.Sprintf("SELECT request_id::text, method, path, query, ip_address, received_at FROM %s ORDER BY received_at DESC LIMIT $1", table)
}

// Hook returns an after-request hook that records every dispatched request.
func Hook[RouteState any](l *AccessLog) nebula.HookFn[RouteState] {
	return func(req *nebula.RouteRequest[RouteState]) error {
		return l.Record(req.Context, req.RequestId.String(), req.Method.String(), req.Path, encodeQuery(req.Query), req.IpAddress, req.ReceivedAt())
	}
}

func encodeQuery(q nebula.QueryParams) string {
	return url.Values(q).Encode()
}
