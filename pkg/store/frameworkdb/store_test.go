package frameworkdb

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baselineYAML = `id: baseline
name: Security Baseline
version: "1.0.0"
status: ACTIVE
pillars:
  - id: security
    name: Security
    weight: 1.0
rules:
  - id: bucket-encrypted
    pillar: security
    category: encryption
    severity: HIGH
    conditions:
      - type: PROPERTY_VALUE
        operator: EXISTS
        field: BucketEncryption
    remediation:
      description: Enable default bucket encryption
      steps:
        - Enable SSE on the bucket
`

func setupStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestNewStoreRequiresDB(t *testing.T) {
	store, err := NewStore(nil)
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestGetFrameworkParsesStoredDefinition(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT definition FROM frameworks WHERE id = $1`)).
		WithArgs("baseline").
		WillReturnRows(sqlmock.NewRows([]string{"definition"}).AddRow([]byte(baselineYAML)))

	framework, err := store.GetFramework(context.Background(), "baseline")
	require.NoError(t, err)
	assert.Equal(t, "baseline", framework.ID)
	assert.Equal(t, "Security Baseline", framework.Name)
	assert.Equal(t, domain.FrameworkStatusActive, framework.Status)
	require.Len(t, framework.Rules, 1)
	assert.Equal(t, domain.SeverityHigh, framework.Rules[0].Severity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFrameworkUnknownID(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT definition FROM frameworks WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"definition"}))

	_, err := store.GetFramework(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFrameworkNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetFrameworkCorruptRow(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT definition FROM frameworks WHERE id = $1`)).
		WithArgs("broken").
		WillReturnRows(sqlmock.NewRows([]string{"definition"}).AddRow([]byte("{not yaml")))

	_, err := store.GetFramework(context.Background(), "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")
}

func TestListFrameworksFiltersByStatus(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, version, status, definition FROM frameworks WHERE status = $1 ORDER BY id`)).
		WithArgs("ACTIVE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "version", "status", "definition"}).
			AddRow("baseline", "Security Baseline", "1.0.0", "ACTIVE", []byte(baselineYAML)))

	frameworks, err := store.ListFrameworks(context.Background(), registry.Filter{
		Status: domain.FrameworkStatusActive,
	})
	require.NoError(t, err)
	require.Len(t, frameworks, 1)
	assert.Equal(t, "baseline", frameworks[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFrameworksUnfiltered(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, version, status, definition FROM frameworks ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "version", "status", "definition"}))

	frameworks, err := store.ListFrameworks(context.Background(), registry.Filter{})
	require.NoError(t, err)
	assert.Empty(t, frameworks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveFrameworkUpserts(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO frameworks`)).
		WithArgs("baseline", "Security Baseline", "1.0.0", "ACTIVE", baselineYAML).
		WillReturnResult(sqlmock.NewResult(0, 1))

	framework, err := store.SaveFramework(context.Background(), []byte(baselineYAML))
	require.NoError(t, err)
	assert.Equal(t, "baseline", framework.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveFrameworkRejectsInvalidDefinition(t *testing.T) {
	store, mock := setupStore(t)

	// No id, so validation fails before any SQL runs.
	_, err := store.SaveFramework(context.Background(), []byte("name: No ID\n"))
	require.Error(t, err)

	var cfgErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateCreatesTable(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS frameworks").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
