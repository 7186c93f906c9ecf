// Package repository provides pgx-backed persistence for the main server
// deployment, where predictions live in a shared PostgreSQL instance.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/ivf-outcome-server/internal/domain"
)

// PredictionRepository handles prediction record persistence
type PredictionRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPredictionRepository creates a new prediction repository
func NewPredictionRepository(db *pgxpool.Pool, logger *logrus.Logger) *PredictionRepository {
	return &PredictionRepository{
		db:  db,
		log: logger,
	}
}

const predictionColumns = `id, oocyte_age, embryo_day, expansion, icm, te,
	   genetic_status, mosaic_level, hatching_status, transfer_type,
	   estimate_json, created_at`

// SavePrediction inserts a prediction record, replacing any record with the
// same ID.
func (r *PredictionRepository) SavePrediction(ctx context.Context, rec *domain.PredictionRecord) error {
	estimateJSON, err := json.Marshal(rec.Estimate)
	if err != nil {
		return fmt.Errorf("encoding estimate: %w", err)
	}

	query := `
		INSERT INTO predictions (
			id, oocyte_age, embryo_day, expansion, icm, te,
			genetic_status, mosaic_level, hatching_status, transfer_type,
			live_birth_rate, clinical_pregnancy_rate, implantation_rate, miscarriage_rate,
			confidence, estimate_json, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
		ON CONFLICT (id) DO UPDATE SET
			estimate_json = EXCLUDED.estimate_json,
			live_birth_rate = EXCLUDED.live_birth_rate,
			clinical_pregnancy_rate = EXCLUDED.clinical_pregnancy_rate,
			implantation_rate = EXCLUDED.implantation_rate,
			miscarriage_rate = EXCLUDED.miscarriage_rate,
			confidence = EXCLUDED.confidence`

	_, err = r.db.Exec(ctx, query,
		rec.ID,
		rec.OocyteAge,
		int(rec.Day),
		rec.Expansion,
		string(rec.ICM),
		string(rec.TE),
		string(rec.GeneticStatus),
		string(rec.MosaicLevel),
		string(rec.Hatching),
		string(rec.Transfer),
		rec.Estimate.LiveBirthRate,
		rec.Estimate.ClinicalPregnancyRate,
		rec.Estimate.ImplantationRate,
		rec.Estimate.MiscarriageRate,
		rec.Estimate.Confidence.String(),
		estimateJSON,
		rec.CreatedAt,
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"prediction_id": rec.ID,
			"error":         err,
		}).Error("Failed to save prediction")
		return fmt.Errorf("saving prediction: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"prediction_id":  rec.ID,
		"genetic_status": string(rec.GeneticStatus),
		"oocyte_age":     rec.OocyteAge,
	}).Info("Prediction saved successfully")

	return nil
}

// GetPrediction retrieves a prediction record by its ID
func (r *PredictionRepository) GetPrediction(ctx context.Context, id string) (*domain.PredictionRecord, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE id = $1`

	rec, err := r.scanPrediction(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("prediction not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"prediction_id": id,
			"error":         err,
		}).Error("Failed to get prediction by ID")
		return nil, fmt.Errorf("getting prediction by ID: %w", err)
	}

	return rec, nil
}

// ListPredictions retrieves prediction records with pagination, newest first
func (r *PredictionRepository) ListPredictions(ctx context.Context, limit, offset int) ([]*domain.PredictionRecord, error) {
	query := `
		SELECT ` + predictionColumns + `
		FROM predictions
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"error": err,
		}).Error("Failed to list predictions")
		return nil, fmt.Errorf("listing predictions: %w", err)
	}
	defer rows.Close()

	var records []*domain.PredictionRecord
	for rows.Next() {
		rec, err := r.scanPrediction(rows)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"error": err,
			}).Error("Failed to scan prediction row")
			return nil, fmt.Errorf("scanning prediction row: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating prediction rows: %w", err)
	}

	return records, nil
}

// CountPredictions returns the total number of stored predictions
func (r *PredictionRepository) CountPredictions(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM predictions").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting predictions: %w", err)
	}
	return count, nil
}

// DeletePrediction removes a prediction record from the database
func (r *PredictionRepository) DeletePrediction(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, "DELETE FROM predictions WHERE id = $1", id)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"prediction_id": id,
			"error":         err,
		}).Error("Failed to delete prediction")
		return fmt.Errorf("deleting prediction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("prediction not found: %w", domain.ErrNotFound)
	}

	r.log.WithFields(logrus.Fields{
		"prediction_id": id,
	}).Info("Prediction deleted successfully")

	return nil
}

// LiveBirthRates returns the stored live-birth rates of the most recent
// predictions, excluding sentinel records, for cohort statistics.
func (r *PredictionRepository) LiveBirthRates(ctx context.Context, limit int) ([]float64, error) {
	query := `
		SELECT live_birth_rate
		FROM predictions
		WHERE live_birth_rate > 0
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying live birth rates: %w", err)
	}
	defer rows.Close()

	var rates []float64
	for rows.Next() {
		var rate float64
		if err := rows.Scan(&rate); err != nil {
			return nil, fmt.Errorf("scanning rate: %w", err)
		}
		rates = append(rates, rate)
	}
	return rates, rows.Err()
}

type pgxScanner interface {
	Scan(dest ...any) error
}

func (r *PredictionRepository) scanPrediction(s pgxScanner) (*domain.PredictionRecord, error) {
	rec := &domain.PredictionRecord{}
	var (
		day, expansion                      int
		icm, te, genetics, mosaic, hatching string
		transfer                            string
		estimateJSON                        []byte
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

	if err := json.Unmarshal(estimateJSON, &rec.Estimate); err != nil {
		return nil, fmt.Errorf("decoding estimate: %w", err)
	}
	return rec, nil
}
