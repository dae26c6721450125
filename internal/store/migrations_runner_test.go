package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saadiahenna/hennabook/internal/migrations"
)

func migrationTx(marker, name string) *mockTx {
	return &mockTx{execs: []execExpectation{
		{expect: regexp.MustCompile("pg_advisory_xact_lock"), args: []any{migrationLockID}},
		{expect: regexp.MustCompile(marker)},
		{expect: regexp.MustCompile("INSERT INTO schema_migrations"), args: []any{name}},
	}}
}

func versionQuery(name string, applied bool) queryExpectation {
	return queryExpectation{expect: regexp.MustCompile(`schema_migrations WHERE version=\$1`), args: []any{name}, value: applied}
}

func TestApplyMigrationsEmptyDatabase(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	tx1 := migrationTx("-- Initial schema for booking requests", "001_bookings.sql")
	tx2 := migrationTx("-- Confirmed bookings always carry a confirmation time", "002_confirmed_at_check.sql")

	pool := &mockPool{
		t: t,
		queries: []queryExpectation{
			{expect: regexp.MustCompile("schema_migrations"), value: false},
			{expect: regexp.MustCompile(`COUNT\(\*\) FROM information_schema.tables`), value: 0},
			versionQuery("001_bookings.sql", false),
			versionQuery("002_confirmed_at_check.sql", false),
		},
		execs: []execExpectation{
			{expect: regexp.MustCompile("CREATE TABLE IF NOT EXISTS schema_migrations")},
		},
		txs: []*mockTx{tx1, tx2},
	}

	applied, err := ApplyMigrations(context.Background(), pool, log)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_bookings.sql", "002_confirmed_at_check.sql"}, applied)
	assert.Len(t, hook.Entries, 2)

	pool.assertDone()
	tx1.assertDone()
	tx2.assertDone()
	assert.True(t, tx1.committed)
	assert.True(t, tx2.committed)
}

func TestApplyMigrationsPopulatedWithoutTracking(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	tx2 := migrationTx("-- Confirmed bookings always carry a confirmation time", "002_confirmed_at_check.sql")

	pool := &mockPool{
		t: t,
		queries: []queryExpectation{
			{expect: regexp.MustCompile("schema_migrations"), value: false},
			{expect: regexp.MustCompile(`COUNT\(\*\) FROM information_schema.tables`), value: 3},
			versionQuery("001_bookings.sql", true),
			versionQuery("002_confirmed_at_check.sql", false),
		},
		execs: []execExpectation{
			{expect: regexp.MustCompile("CREATE TABLE IF NOT EXISTS schema_migrations")},
			{expect: regexp.MustCompile("INSERT INTO schema_migrations"), args: []any{"001_bookings.sql"}},
		},
		txs: []*mockTx{tx2},
	}

	applied, err := ApplyMigrations(context.Background(), pool, log)
	require.NoError(t, err)
	assert.Equal(t, []string{"002_confirmed_at_check.sql"}, applied)
	require.NotEmpty(t, hook.Entries)
	assert.Equal(t, logrus.WarnLevel, hook.Entries[0].Level)

	pool.assertDone()
	tx2.assertDone()
}

func TestApplyMigrationsAllAlreadyApplied(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	pool := &mockPool{
		t: t,
		queries: []queryExpectation{
			{expect: regexp.MustCompile("schema_migrations"), value: true},
			versionQuery("001_bookings.sql", true),
			versionQuery("002_confirmed_at_check.sql", true),
		},
	}

	applied, err := ApplyMigrations(context.Background(), pool, log)
	require.NoError(t, err)
	assert.Empty(t, applied)
	pool.assertDone()
}

func TestApplyMigrationsRollsBackFailedFile(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	tx2 := &mockTx{execs: []execExpectation{
		{expect: regexp.MustCompile("pg_advisory_xact_lock")},
		{expect: regexp.MustCompile("-- Confirmed bookings"), err: errors.New("check violation")},
	}}
	pool := &mockPool{
		t: t,
		queries: []queryExpectation{
			{expect: regexp.MustCompile("schema_migrations"), value: true},
			versionQuery("001_bookings.sql", true),
			versionQuery("002_confirmed_at_check.sql", false),
		},
		txs: []*mockTx{tx2},
	}

	applied, err := ApplyMigrations(context.Background(), pool, log)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "002_confirmed_at_check.sql")
	assert.Empty(t, applied)
	assert.True(t, tx2.rolled)
	assert.False(t, tx2.committed)
}

func readMigration(t *testing.T, name string) string {
	t.Helper()
	b, err := fs.ReadFile(migrations.Files, name)
	require.NoError(t, err)
	return string(b)
}

func TestBookingSchemaMatchesStore(t *testing.T) {
	names, err := listMigrationFiles()
	require.NoError(t, err)
	require.Equal(t, []string{"001_bookings.sql", "002_confirmed_at_check.sql"}, names)

	schema := readMigration(t, "001_bookings.sql")
	assert.Contains(t, schema, "CONSTRAINT "+confirmTokenConstraint+" UNIQUE (confirm_token)")
	assert.Contains(t, schema, fmt.Sprintf("status IN ('%s', '%s')", StatusRequested, StatusConfirmed))
	assert.Contains(t, schema, fmt.Sprintf("DEFAULT '%s'", StatusRequested))
	assert.NotContains(t, schema, "bookings_confirmed_at_check")

	check := readMigration(t, "002_confirmed_at_check.sql")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(strings.SplitN(check, "\n", 2)[1]), "ALTER TABLE bookings"))
	assert.Contains(t, check, "ADD CONSTRAINT bookings_confirmed_at_check")
	assert.Contains(t, check, "(status = 'CONFIRMED') = (confirmed_at IS NOT NULL)")
}

func TestApplyMigrationsAddsConfirmedAtCheckAfterTable(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	var order []string
	record := func(label string) func(dest ...any) error {
		return func(dest ...any) error {
			order = append(order, label)
			*dest[0].(*bool) = false
			return nil
		}
	}

	table := migrationTx(`(?s)CREATE TABLE IF NOT EXISTS bookings \(.*confirmed_at\s+TIMESTAMPTZ`, "001_bookings.sql")
	check := migrationTx(`(?s)ALTER TABLE bookings\s+ADD CONSTRAINT bookings_confirmed_at_check`, "002_confirmed_at_check.sql")
	pool := &mockPool{
		t: t,
		queries: []queryExpectation{
			{expect: regexp.MustCompile("schema_migrations"), value: true},
			{expect: regexp.MustCompile(`schema_migrations WHERE version=\$1`), args: []any{"001_bookings.sql"}, scan: record("001")},
			{expect: regexp.MustCompile(`schema_migrations WHERE version=\$1`), args: []any{"002_confirmed_at_check.sql"}, scan: record("002")},
		},
		txs: []*mockTx{table, check},
	}

	applied, err := ApplyMigrations(context.Background(), pool, log)
	require.NoError(t, err)
	assert.Equal(t, []string{"001", "002"}, order)
	assert.Equal(t, []string{"001_bookings.sql", "002_confirmed_at_check.sql"}, applied)

	pool.assertDone()
	table.assertDone()
	check.assertDone()
}

type queryExpectation struct {
	expect *regexp.Regexp
	args   []any
	value  any
	scan   func(dest ...any) error
	err    error
}

type execExpectation struct {
	expect *regexp.Regexp
	args   []any
	err    error
}

type mockPool struct {
	t       *testing.T
	queries []queryExpectation
	execs   []execExpectation
	txs     []*mockTx
	txIdx   int
}

func (m *mockPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if len(m.queries) == 0 {
		m.t.Fatalf("unexpected query: %s", sql)
	}
	exp := m.queries[0]
	m.queries = m.queries[1:]
	if !exp.expect.MatchString(sql) {
		m.t.Fatalf("query mismatch: %s", sql)
	}
	assertArgs(m.t, exp.args, args)
	return mockRow{value: exp.value, scan: exp.scan, err: exp.err}
}

func (m *mockPool) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	if len(m.execs) == 0 {
		m.t.Fatalf("unexpected exec: %s", sql)
	}
	exp := m.execs[0]
	m.execs = m.execs[1:]
	if !exp.expect.MatchString(sql) {
		m.t.Fatalf("exec mismatch: %s", sql)
	}
	assertArgs(m.t, exp.args, arguments)
	return pgconn.NewCommandTag("MOCK"), exp.err
}

func (m *mockPool) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	if m.txIdx >= len(m.txs) {
		m.t.Fatalf("unexpected begin tx (no more transactions)")
	}
	tx := m.txs[m.txIdx]
	m.txIdx++
	tx.started = true
	return tx, nil
}
func (m *mockPool) Ping(ctx context.Context) error { return nil }

func (m *mockPool) assertDone() {
	if len(m.queries) != 0 {
		m.t.Fatalf("pending queries: %v", m.queries)
	}
	if len(m.execs) != 0 {
		m.t.Fatalf("pending execs: %v", m.execs)
	}
	if m.txIdx != len(m.txs) {
		m.t.Fatalf("expected %d transactions, got %d", len(m.txs), m.txIdx)
	}
}

type mockRow struct {
	value any
	scan  func(dest ...any) error
	err   error
}

func (m mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if m.scan != nil {
		return m.scan(dest...)
	}
	if len(dest) != 1 {
		return fmt.Errorf("unexpected dest count: %d", len(dest))
	}
	switch v := m.value.(type) {
	case bool:
		ptr, ok := dest[0].(*bool)
		if !ok {
			return fmt.Errorf("expected *bool destination")
		}
		*ptr = v
	case int:
		ptr, ok := dest[0].(*int)
		if !ok {
			return fmt.Errorf("expected *int destination")
		}
		*ptr = v
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

type mockTx struct {
	execs     []execExpectation
	queries   []queryExpectation
	started   bool
	committed bool
	rolled    bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, fmt.Errorf("unexpected nested begin")
}
func (m *mockTx) Commit(ctx context.Context) error {
	m.committed = true
	return nil
}
func (m *mockTx) Rollback(ctx context.Context) error {
	m.rolled = true
	return nil
}
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, fmt.Errorf("unexpected CopyFrom")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return emptyBatchResults{}
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, fmt.Errorf("unexpected Prepare")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	if len(m.execs) == 0 {
		return pgconn.CommandTag{}, fmt.Errorf("unexpected tx exec: %s", sql)
	}
	exp := m.execs[0]
	m.execs = m.execs[1:]
	if !exp.expect.MatchString(sql) {
		return pgconn.CommandTag{}, fmt.Errorf("exec mismatch: %s", sql)
	}
	if err := assertArgs(nil, exp.args, arguments); err != nil {
		return pgconn.CommandTag{}, err
	}
	return pgconn.NewCommandTag("MOCK"), exp.err
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, fmt.Errorf("unexpected query")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if len(m.queries) == 0 {
		return mockRow{err: fmt.Errorf("unexpected queryrow: %s", sql)}
	}
	exp := m.queries[0]
	m.queries = m.queries[1:]
	if !exp.expect.MatchString(sql) {
		return mockRow{err: fmt.Errorf("queryrow mismatch: %s", sql)}
	}
	if err := assertArgs(nil, exp.args, args); err != nil {
		return mockRow{err: err}
	}
	return mockRow{value: exp.value, scan: exp.scan, err: exp.err}
}
func (m *mockTx) Conn() *pgx.Conn { return nil }

func (m *mockTx) assertDone() {
	if len(m.execs) != 0 {
		panic(fmt.Sprintf("pending tx execs: %v", m.execs))
	}
	if len(m.queries) != 0 {
		panic(fmt.Sprintf("pending tx queries: %v", m.queries))
	}
	if !m.committed && !m.rolled {
		panic("transaction not finished")
	}
}

func assertArgs(t *testing.T, expected, actual []any) error {
	if len(expected) == 0 {
		return nil
	}
	if len(expected) != len(actual) {
		if t != nil {
			t.Fatalf("argument length mismatch: expected %d got %d", len(expected), len(actual))
		}
		return fmt.Errorf("argument length mismatch")
	}
	for i, exp := range expected {
		if exp == nil {
			continue
		}
		if exp != actual[i] {
			if t != nil {
				t.Fatalf("argument mismatch at %d: expected %v got %v", i, exp, actual[i])
			}
			return fmt.Errorf("argument mismatch")
		}
	}
	return nil
}

type emptyBatchResults struct{}

func (emptyBatchResults) Exec() (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, fmt.Errorf("unexpected batch exec")
}
func (emptyBatchResults) Query() (pgx.Rows, error) { return nil, fmt.Errorf("unexpected batch query") }
func (emptyBatchResults) QueryRow() pgx.Row {
	return mockRow{err: fmt.Errorf("unexpected batch queryrow")}
}
func (emptyBatchResults) Close() error { return nil }
