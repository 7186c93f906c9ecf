package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivf-outcome-server/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectPing()
	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	return store, mock
}

func TestNewPostgresStore_RequiresConnection(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_SavePrediction(t *testing.T) {
	store, mock := newMockStore(t)
	rec := testRecord("rec-1")

	mock.ExpectExec("INSERT INTO predictions").
		WithArgs(
			rec.ID, rec.OocyteAge, int(rec.Day), rec.Expansion,
			"A", "A", "EUPLOID", "", "", "FROZEN",
			rec.Estimate.LiveBirthRate, rec.Estimate.ClinicalPregnancyRate,
			rec.Estimate.ImplantationRate, rec.Estimate.MiscarriageRate,
			"High", sqlmock.AnyArg(), rec.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.SavePrediction(context.Background(), rec)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPrediction(t *testing.T) {
	store, mock := newMockStore(t)
	rec := testRecord("rec-1")
	estimateJSON, err := json.Marshal(rec.Estimate)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{
		"id", "oocyte_age", "embryo_day", "expansion", "icm", "te",
		"genetic_status", "mosaic_level", "hatching_status", "transfer_type",
		"estimate_json", "created_at",
	}).AddRow(
		rec.ID, rec.OocyteAge, int(rec.Day), rec.Expansion, "A", "A",
		"EUPLOID", "", "", "FROZEN",
		string(estimateJSON), rec.CreatedAt,
	)

	mock.ExpectQuery("SELECT (.+) FROM predictions").
		WithArgs("rec-1").
		WillReturnRows(rows)

	loaded, err := store.GetPrediction(context.Background(), "rec-1")

	require.NoError(t, err)
	assert.Equal(t, rec.ID, loaded.ID)
	assert.Equal(t, domain.EUPLOID, loaded.GeneticStatus)
	assert.InDelta(t, 0.688, loaded.Estimate.LiveBirthRate, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPredictionNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM predictions").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetPrediction(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountPredictions(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	count, err := store.CountPredictions(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(42), count)
}

func TestPostgresStore_ListPredictions(t *testing.T) {
	store, mock := newMockStore(t)
	rec := testRecord("rec-1")
	estimateJSON, err := json.Marshal(rec.Estimate)
	require.NoError(t, err)

	created := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "oocyte_age", "embryo_day", "expansion", "icm", "te",
		"genetic_status", "mosaic_level", "hatching_status", "transfer_type",
		"estimate_json", "created_at",
	}).
		AddRow("b", 36, 6, 4, "B", "B", "MOSAIC", "LOW_LEVEL", "", "FROZEN", string(estimateJSON), created.Add(time.Hour)).
		AddRow("a", 33, 5, 5, "A", "A", "EUPLOID", "", "", "FROZEN", string(estimateJSON), created)

	mock.ExpectQuery("SELECT (.+) FROM predictions").
		WithArgs(10, 0).
		WillReturnRows(rows)

	recs, err := store.ListPredictions(context.Background(), 10, 0)

	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].ID)
	assert.Equal(t, domain.LOW_LEVEL, recs[0].MosaicLevel)
	assert.Equal(t, "a", recs[1].ID)
}
