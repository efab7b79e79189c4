package resultdb

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	payload []byte
	err     error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*[]byte)) = r.payload
	return nil
}

type fakeRows struct {
	records [][]any
	idx     int
	err     error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.records) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	record := r.records[r.idx-1]
	*(dest[0].(*string)) = record[0].(string)
	*(dest[1].(*string)) = record[1].(string)
	*(dest[2].(*time.Time)) = record[2].(time.Time)
	return nil
}

type fakeDB struct {
	execSQL   []string
	execArgs  [][]any
	execTag   pgconn.CommandTag
	execErr   error
	row       fakeRow
	rows      *fakeRows
	querySQL  string
	queryArgs []any
	queryErr  error
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.execSQL = append(db.execSQL, sql)
	db.execArgs = append(db.execArgs, args)
	return db.execTag, db.execErr
}

func (db *fakeDB) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row {
	return db.row
}

func (db *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.querySQL = sql
	db.queryArgs = args
	if db.queryErr != nil {
		return nil, db.queryErr
	}
	return db.rows, nil
}

func sampleResult(id string) domain.AnalysisResult {
	return domain.AnalysisResult{
		ID:     id,
		Status: domain.AnalysisCompleted,
		Summary: domain.AnalysisSummary{
			TotalFindings:      1,
			FindingsBySeverity: map[domain.Severity]int{domain.SeverityHigh: 1},
			OverallScore:       90,
			RiskLevel:          domain.RiskLow,
		},
		Findings: []domain.Finding{
			{
				ID:                "f-1",
				RuleID:            "encrypt-at-rest",
				FrameworkID:       "baseline",
				PillarID:          "security",
				Severity:          domain.SeverityHigh,
				Status:            domain.FindingFailed,
				Message:           "storage is not encrypted",
				AffectedResources: []string{"orders-db"},
			},
		},
		UnitResults: []domain.UnitResult{
			{UnitID: "u-1", FrameworkID: "baseline", Status: domain.UnitCompleted},
		},
		StartedAt:   time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
		CompletedAt: time.Date(2025, 7, 1, 10, 0, 5, 0, time.UTC),
	}
}

func TestNewStoreRequiresPool(t *testing.T) {
	s, err := NewStore(nil)
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestStoreWritesResult(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("INSERT 0 1")}
	s := &Store{db: db}
	result := sampleResult("a-1")

	require.NoError(t, s.Store(context.Background(), result))

	require.Len(t, db.execArgs, 1)
	args := db.execArgs[0]
	assert.Equal(t, "a-1", args[0])
	assert.Equal(t, "COMPLETED", args[1])
	assert.Contains(t, db.execSQL[0], "ON CONFLICT (id) DO NOTHING")

	var stored domain.AnalysisResult
	require.NoError(t, json.Unmarshal(args[2].([]byte), &stored))
	assert.Equal(t, result, stored)
}

func TestStoreReportsDuplicate(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("INSERT 0 0")}
	s := &Store{db: db}

	err := s.Store(context.Background(), sampleResult("a-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicateAnalysis)
}

func TestStoreWrapsExecFailure(t *testing.T) {
	db := &fakeDB{execErr: assert.AnError}
	s := &Store{db: db}

	err := s.Store(context.Background(), sampleResult("a-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestGetRoundTripsResult(t *testing.T) {
	result := sampleResult("a-2")
	payload, err := json.Marshal(result)
	require.NoError(t, err)

	s := &Store{db: &fakeDB{row: fakeRow{payload: payload}}}

	loaded, err := s.Get(context.Background(), "a-2")
	require.NoError(t, err)
	assert.Equal(t, result, loaded)
}

func TestGetUnknownAnalysis(t *testing.T) {
	s := &Store{db: &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}}

	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAnalysisNotFound)
}

func TestGetRejectsCorruptPayload(t *testing.T) {
	s := &Store{db: &fakeDB{row: fakeRow{payload: []byte("{")}}}

	_, err := s.Get(context.Background(), "a-3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestListReturnsNewestFirst(t *testing.T) {
	now := time.Date(2025, 7, 2, 9, 0, 0, 0, time.UTC)
	db := &fakeDB{rows: &fakeRows{records: [][]any{
		{"a-2", "COMPLETED", now},
		{"a-1", "PARTIAL", now.Add(-time.Hour)},
	}}}
	s := &Store{db: db}

	records, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a-2", records[0].ID)
	assert.Equal(t, "PARTIAL", records[1].Status)
	assert.Contains(t, db.querySQL, "ORDER BY created_at DESC")
	assert.Equal(t, []any{50}, db.queryArgs)
}

func TestMigrateCreatesTable(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("CREATE TABLE")}
	s := &Store{db: db}

	require.NoError(t, s.Migrate(context.Background()))
	require.Len(t, db.execSQL, 1)
	assert.Contains(t, db.execSQL[0], "CREATE TABLE IF NOT EXISTS analyses")
}
