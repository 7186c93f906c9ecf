package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ivf-outcome-server/internal/database"
	"github.com/ivf-outcome-server/internal/domain"
)

// generateTestPassword creates a random password for the test database
func generateTestPassword() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "test_fallback_password_123"
	}
	return "test_" + hex.EncodeToString(bytes)
}

func setupTestDB(t *testing.T) (*database.DB, func()) {
	ctx := context.Background()

	testPassword := generateTestPassword()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	config := database.Config{
		Host:        host,
		Port:        port.Int(),
		Database:    "testdb",
		Username:    "testuser",
		Password:    testPassword,
		MaxConns:    10,
		MinConns:    2,
		MaxConnLife: time.Hour,
		MaxConnIdle: time.Minute * 30,
		SSLMode:     "disable",
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := database.NewConnection(ctx, config, logger)
	if err != nil {
		t.Fatalf("Failed to create database connection: %v", err)
	}

	migrationRunner, err := database.NewMigrationRunner(config.URL(), "../../migrations", logger)
	if err != nil {
		t.Fatalf("Failed to create migration runner: %v", err)
	}

	if err := migrationRunner.Up(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		migrationRunner.Close()
		db.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}

	return db, cleanup
}

func newTestRepo(db *database.DB) *PredictionRepository {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return NewPredictionRepository(db.Pool, logger)
}

func sampleRecord() *domain.PredictionRecord {
	return &domain.PredictionRecord{
		ID:            uuid.New().String(),
		OocyteAge:     33,
		Day:           domain.DAY_5,
		Expansion:     5,
		ICM:           domain.GRADE_A,
		TE:            domain.GRADE_A,
		GeneticStatus: domain.EUPLOID,
		Transfer:      domain.FROZEN,
		Estimate: domain.OutcomeEstimate{
			LiveBirthRate:         0.688,
			ClinicalPregnancyRate: 0.753,
			ImplantationRate:      0.715,
			MiscarriageRate:       0.086,
			Confidence:            domain.CONFIDENCE_HIGH,
			Factors:               []domain.Factor{{Label: "Oocyte Age", Value: "33 years"}},
			References:            domain.References(),
			Methodology:           domain.Methodology,
		},
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestPredictionRepository_SaveAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := newTestRepo(db)
	ctx := context.Background()

	rec := sampleRecord()
	require.NoError(t, repo.SavePrediction(ctx, rec))

	loaded, err := repo.GetPrediction(ctx, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, rec.ID, loaded.ID)
	assert.Equal(t, rec.OocyteAge, loaded.OocyteAge)
	assert.Equal(t, rec.GeneticStatus, loaded.GeneticStatus)
	assert.InDelta(t, rec.Estimate.LiveBirthRate, loaded.Estimate.LiveBirthRate, 1e-9)
	assert.Equal(t, rec.Estimate.Factors, loaded.Estimate.Factors)
}

func TestPredictionRepository_GetNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := newTestRepo(db)

	_, err := repo.GetPrediction(context.Background(), uuid.New().String())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPredictionRepository_ListAndCount(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := newTestRepo(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	var ids []string
	for i := 0; i < 3; i++ {
		rec := sampleRecord()
		rec.CreatedAt = now.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.SavePrediction(ctx, rec))
		ids = append(ids, rec.ID)
	}

	count, err := repo.CountPredictions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	recs, err := repo.ListPredictions(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, ids[2], recs[0].ID)
	assert.Equal(t, ids[1], recs[1].ID)
}

func TestPredictionRepository_Delete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := newTestRepo(db)
	ctx := context.Background()

	rec := sampleRecord()
	require.NoError(t, repo.SavePrediction(ctx, rec))
	require.NoError(t, repo.DeletePrediction(ctx, rec.ID))

	_, err := repo.GetPrediction(ctx, rec.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	err = repo.DeletePrediction(ctx, rec.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPredictionRepository_LiveBirthRatesExcludeSentinels(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := newTestRepo(db)
	ctx := context.Background()

	rec := sampleRecord()
	require.NoError(t, repo.SavePrediction(ctx, rec))

	sentinel := sampleRecord()
	sentinel.OocyteAge = 55
	sentinel.Estimate = domain.OutcomeEstimate{
		Confidence: domain.CONFIDENCE_LOW,
		Factors:    []domain.Factor{{Label: domain.ErrorFactorLabel, Value: "age out of range"}},
	}
	require.NoError(t, repo.SavePrediction(ctx, sentinel))

	rates, err := repo.LiveBirthRates(ctx, 100)
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.InDelta(t, 0.688, rates[0], 1e-9)
}
