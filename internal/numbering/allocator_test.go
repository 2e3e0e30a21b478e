package numbering

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type scriptedRow struct {
	value int64
	err   error
}

func (r scriptedRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	switch p := dest[0].(type) {
	case *int64:
		*p = r.value
	case *int:
		*p = int(r.value)
	}
	return nil
}

// scriptDB plays back prepared single-row answers in order and records every
// statement it sees, standing in for a live connection.
type scriptDB struct {
	t         *testing.T
	rows      []scriptedRow
	querySQL  []string
	queryArgs [][]any
	execSQL   []string
	execArgs  [][]any
}

func (d *scriptDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.execSQL = append(d.execSQL, sql)
	d.execArgs = append(d.execArgs, args)
	return pgconn.CommandTag{}, nil
}

func (d *scriptDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	d.t.Fatalf("unexpected Query: %s", sql)
	return nil, nil
}

func (d *scriptDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	d.querySQL = append(d.querySQL, sql)
	d.queryArgs = append(d.queryArgs, args)
	if len(d.rows) == 0 {
		d.t.Fatalf("unexpected QueryRow: %s", sql)
	}
	row := d.rows[0]
	d.rows = d.rows[1:]
	return row
}

func TestNextRawIDSeedsMissingCounter(t *testing.T) {
	d := &scriptDB{t: t, rows: []scriptedRow{
		{err: pgx.ErrNoRows}, // no counter row yet
		{value: 41},          // max(id)
		{value: 42},          // re-read after seeding
	}}
	a := NewAllocator(testLogger(), nil)

	id, err := a.NextRawID(context.Background(), d, "sales_orders")
	require.NoError(t, err)
	require.Equal(t, int64(42), id)

	require.Len(t, d.execSQL, 2)
	require.Contains(t, d.execSQL[0], "ON CONFLICT (table_name) DO NOTHING")
	require.Equal(t, []any{"sales_orders", int64(42)}, d.execArgs[0])
	require.Equal(t, []any{int64(43), "sales_orders"}, d.execArgs[1])
}

func TestNextRawIDBumpsCounterBehindMaxID(t *testing.T) {
	d := &scriptDB{t: t, rows: []scriptedRow{
		{value: 5}, // locked counter
		{value: 9}, // max(id) already past it
	}}
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	a := NewAllocator(logger, shared.NewIntegrityLogger(nil, logger))

	id, err := a.NextRawID(context.Background(), d, "invoices")
	require.NoError(t, err)
	require.Equal(t, int64(10), id)

	require.Len(t, d.execSQL, 1)
	require.Equal(t, []any{int64(11), "invoices"}, d.execArgs[0])
	require.Contains(t, buf.String(), "id counter drift corrected")
	require.Contains(t, buf.String(), "sequence_drift")
}

func TestNextRawIDAdvancesCounter(t *testing.T) {
	d := &scriptDB{t: t, rows: []scriptedRow{
		{value: 7}, {value: 3}, // counter, max(id)
		{value: 8}, {value: 3},
	}}
	a := NewAllocator(testLogger(), nil)

	first, err := a.NextRawID(context.Background(), d, "invoices")
	require.NoError(t, err)
	second, err := a.NextRawID(context.Background(), d, "invoices")
	require.NoError(t, err)

	require.Equal(t, int64(7), first)
	require.Equal(t, int64(8), second)
	require.Equal(t, []any{int64(8), "invoices"}, d.execArgs[0])
	require.Equal(t, []any{int64(9), "invoices"}, d.execArgs[1])
}

func TestNextDocumentNumberUpserts(t *testing.T) {
	d := &scriptDB{t: t, rows: []scriptedRow{{value: 3}}}
	a := NewAllocator(testLogger(), nil)

	number, err := a.NextDocumentNumber(context.Background(), d, 7, "FV", 2026, 3)
	require.NoError(t, err)
	require.Equal(t, 3, number)

	require.Len(t, d.querySQL, 1)
	require.Contains(t, d.querySQL[0], "ON CONFLICT (company_id, doc_type, year, month)")
	require.Contains(t, d.querySQL[0], "RETURNING next_value")
	require.Equal(t, []any{int64(7), "FV", 2026, 3}, d.queryArgs[0])
}

func TestNextNumberFormatsPeriod(t *testing.T) {
	d := &scriptDB{t: t, rows: []scriptedRow{{value: 12}}}
	a := NewAllocator(testLogger(), nil)

	year, month, number, full, err := a.NextNumber(context.Background(), d, 7, "FVZ",
		time.Date(2026, time.March, 7, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 2026, year)
	require.Equal(t, 3, month)
	require.Equal(t, 12, number)
	require.Equal(t, "FVZ/2026/03/000012", full)
}
