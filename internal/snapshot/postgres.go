package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/ivf-outcome-server/internal/domain"
)

// PostgresStore persists prediction records in PostgreSQL via database/sql.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL prediction store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL prediction store from a
// connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// SavePrediction stores or replaces a prediction record by ID.
func (s *PostgresStore) SavePrediction(ctx context.Context, rec *domain.PredictionRecord) error {
	estimateJSON, err := json.Marshal(rec.Estimate)
	if err != nil {
		return fmt.Errorf("failed to encode estimate: %w", err)
	}

	query := `
		INSERT INTO predictions (
			id, oocyte_age, embryo_day, expansion, icm, te,
			genetic_status, mosaic_level, hatching_status, transfer_type,
			live_birth_rate, clinical_pregnancy_rate, implantation_rate, miscarriage_rate,
			confidence, estimate_json, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			oocyte_age = EXCLUDED.oocyte_age,
			embryo_day = EXCLUDED.embryo_day,
			expansion = EXCLUDED.expansion,
			icm = EXCLUDED.icm,
			te = EXCLUDED.te,
			genetic_status = EXCLUDED.genetic_status,
			mosaic_level = EXCLUDED.mosaic_level,
			hatching_status = EXCLUDED.hatching_status,
			transfer_type = EXCLUDED.transfer_type,
			live_birth_rate = EXCLUDED.live_birth_rate,
			clinical_pregnancy_rate = EXCLUDED.clinical_pregnancy_rate,
			implantation_rate = EXCLUDED.implantation_rate,
			miscarriage_rate = EXCLUDED.miscarriage_rate,
			confidence = EXCLUDED.confidence,
			estimate_json = EXCLUDED.estimate_json
	`

	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.OocyteAge, int(rec.Day), rec.Expansion,
		string(rec.ICM), string(rec.TE),
		string(rec.GeneticStatus), string(rec.MosaicLevel),
		string(rec.Hatching), string(rec.Transfer),
		rec.Estimate.LiveBirthRate, rec.Estimate.ClinicalPregnancyRate,
		rec.Estimate.ImplantationRate, rec.Estimate.MiscarriageRate,
		rec.Estimate.Confidence.String(), estimateJSON, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}
	return nil
}

// GetPrediction retrieves a prediction record by ID.
func (s *PostgresStore) GetPrediction(ctx context.Context, id string) (*domain.PredictionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM predictions
		WHERE id = $1
	`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rec, nil
}

// ListPredictions returns prediction records with pagination, newest first.
func (s *PostgresStore) ListPredictions(ctx context.Context, limit, offset int) ([]*domain.PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM predictions
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*domain.PredictionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// CountPredictions returns the total number of saved predictions.
func (s *PostgresStore) CountPredictions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM predictions").Scan(&count)
	return count, err
}

// DeletePrediction removes a prediction record by ID.
func (s *PostgresStore) DeletePrediction(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM predictions WHERE id = $1", id)
	return err
}

// ExportJSON exports all prediction records to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.ListPredictions(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list predictions: %w", err)
	}

	export := &Export{
		Version:       ExportVersion,
		EngineVersion: domain.EngineVersion,
		ExportedAt:    time.Now().UTC(),
		Count:         len(all),
		Predictions:   all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON imports prediction records from a JSON reader. Records whose
// ID already exists are skipped, not overwritten.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, rec := range export.Predictions {
		_, err := s.GetPrediction(ctx, rec.ID)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if err := s.SavePrediction(ctx, rec); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
