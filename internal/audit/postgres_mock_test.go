package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock-backed tests that exercise the PostgreSQL store's SQL without a live
// database. End-to-end coverage lives in postgres_test.go behind
// TEST_DATABASE_URL.

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store, err := NewPostgresStore(db)
	require.NoError(t, err)

	return store, mock, db
}

func TestPostgresStore_Save_Mock(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	created := time.Now()
	mock.ExpectQuery("INSERT INTO prediction_audit").
		WithArgs("corr-123", "10.0.0.1", 24, 5, "Diabetes", 90, "High",
			true, "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	rec := &Record{
		CorrelationID:  "corr-123",
		ClientIP:       "10.0.0.1",
		ParameterCount: 24,
		AbnormalCount:  5,
		TopDisease:     "Diabetes",
		TopProbability: 90,
		RiskLevel:      "High",
		MLUsed:         true,
	}

	err := store.Save(context.Background(), rec)

	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, created, rec.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_Mock(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "correlation_id", "client_ip", "parameter_count", "abnormal_count",
		"top_disease", "top_probability", "risk_level", "ml_used", "notes",
		"created_at", "updated_at",
	}).AddRow(int64(3), "corr-9", "192.168.1.5", 12, 2, "Heart Disease", 55, "Moderate", false, "", now, now)

	mock.ExpectQuery("SELECT (.+) FROM prediction_audit").
		WithArgs("corr-9").
		WillReturnRows(rows)

	rec, err := store.Get(context.Background(), "corr-9")

	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Heart Disease", rec.TopDisease)
	assert.Equal(t, 55, rec.TopProbability)
	assert.False(t, rec.MLUsed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_Mock_NotFound(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM prediction_audit").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	rec, err := store.Get(context.Background(), "missing")

	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count_Mock(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	count, err := store.Count(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete_Mock(t *testing.T) {
	store, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM prediction_audit").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Delete(context.Background(), 3)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
