package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ivf-outcome-server/internal/domain"
)

// SQLiteStore persists prediction records in an embedded SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite prediction store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a row into a PredictionRecord. The full estimate is
// rehydrated from its JSON column; the numeric rate columns exist for
// SQL-side querying only.
func scanRecord(s scanner) (*domain.PredictionRecord, error) {
	rec := &domain.PredictionRecord{}
	var (
		day, expansion                      int
		icm, te, genetics, mosaic, hatching string
		transfer, estimateJSON              string
	)

	err := s.Scan(
		&rec.ID, &rec.OocyteAge, &day, &expansion, &icm, &te,
		&genetics, &mosaic, &hatching, &transfer,
		&estimateJSON, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Day = domain.EmbryoDay(day)
	rec.Expansion = expansion
	rec.ICM = domain.Grade(icm)
	rec.TE = domain.Grade(te)
	rec.GeneticStatus = domain.GeneticStatusKind(genetics)
	rec.MosaicLevel = domain.MosaicLevel(mosaic)
	rec.Hatching = domain.HatchingStatus(hatching)
	rec.Transfer = domain.TransferType(transfer)

	if err := json.Unmarshal([]byte(estimateJSON), &rec.Estimate); err != nil {
		return nil, fmt.Errorf("failed to decode estimate: %w", err)
	}
	return rec, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS predictions (
		id TEXT PRIMARY KEY,
		oocyte_age INTEGER NOT NULL,
		embryo_day INTEGER NOT NULL,
		expansion INTEGER NOT NULL,
		icm TEXT NOT NULL,
		te TEXT NOT NULL,
		genetic_status TEXT NOT NULL,
		mosaic_level TEXT DEFAULT '',
		hatching_status TEXT DEFAULT '',
		transfer_type TEXT NOT NULL,
		live_birth_rate REAL NOT NULL,
		clinical_pregnancy_rate REAL NOT NULL,
		implantation_rate REAL NOT NULL,
		miscarriage_rate REAL NOT NULL,
		confidence TEXT NOT NULL,
		estimate_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_predictions_genetic_status ON predictions(genetic_status);
	CREATE INDEX IF NOT EXISTS idx_predictions_oocyte_age ON predictions(oocyte_age);
	CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

const selectColumns = `id, oocyte_age, embryo_day, expansion, icm, te,
		genetic_status, mosaic_level, hatching_status, transfer_type,
		estimate_json, created_at`

// SavePrediction stores or replaces a prediction record by ID.
func (s *SQLiteStore) SavePrediction(ctx context.Context, rec *domain.PredictionRecord) error {
	estimateJSON, err := json.Marshal(rec.Estimate)
	if err != nil {
		return fmt.Errorf("failed to encode estimate: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO predictions (
			id, oocyte_age, embryo_day, expansion, icm, te,
			genetic_status, mosaic_level, hatching_status, transfer_type,
			live_birth_rate, clinical_pregnancy_rate, implantation_rate, miscarriage_rate,
			confidence, estimate_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			oocyte_age = excluded.oocyte_age,
			embryo_day = excluded.embryo_day,
			expansion = excluded.expansion,
			icm = excluded.icm,
			te = excluded.te,
			genetic_status = excluded.genetic_status,
			mosaic_level = excluded.mosaic_level,
			hatching_status = excluded.hatching_status,
			transfer_type = excluded.transfer_type,
			live_birth_rate = excluded.live_birth_rate,
			clinical_pregnancy_rate = excluded.clinical_pregnancy_rate,
			implantation_rate = excluded.implantation_rate,
			miscarriage_rate = excluded.miscarriage_rate,
			confidence = excluded.confidence,
			estimate_json = excluded.estimate_json
	`,
		rec.ID, rec.OocyteAge, int(rec.Day), rec.Expansion,
		string(rec.ICM), string(rec.TE),
		string(rec.GeneticStatus), string(rec.MosaicLevel),
		string(rec.Hatching), string(rec.Transfer),
		rec.Estimate.LiveBirthRate, rec.Estimate.ClinicalPregnancyRate,
		rec.Estimate.ImplantationRate, rec.Estimate.MiscarriageRate,
		rec.Estimate.Confidence.String(), string(estimateJSON), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save prediction: %w", err)
	}
	return nil
}

// GetPrediction retrieves a prediction record by ID.
func (s *SQLiteStore) GetPrediction(ctx context.Context, id string) (*domain.PredictionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+selectColumns+`
		FROM predictions
		WHERE id = ?
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
func (s *SQLiteStore) ListPredictions(ctx context.Context, limit, offset int) ([]*domain.PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM predictions
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
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
func (s *SQLiteStore) CountPredictions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM predictions").Scan(&count)
	return count, err
}

// DeletePrediction removes a prediction record by ID.
func (s *SQLiteStore) DeletePrediction(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM predictions WHERE id = ?", id)
	return err
}

// maxExportLimit is the maximum number of records to export at once.
const maxExportLimit = 1000000

// ExportJSON exports all prediction records to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
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
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
