// Package service orchestrates prediction computation, memoization,
// distributed caching, and persistence.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/ivf-outcome-server/internal/domain"
	"github.com/ivf-outcome-server/internal/engine"
)

// memoCacheSize bounds the in-process memo. The input space is small
// (four age bands times the categorical grid), so this covers it fully.
const memoCacheSize = 4096

// PredictionStore persists prediction records. Both the SQL stores and the
// pgx repository satisfy it.
type PredictionStore interface {
	SavePrediction(ctx context.Context, rec *domain.PredictionRecord) error
	GetPrediction(ctx context.Context, id string) (*domain.PredictionRecord, error)
	ListPredictions(ctx context.Context, limit, offset int) ([]*domain.PredictionRecord, error)
	CountPredictions(ctx context.Context) (int64, error)
}

// EstimateCache is the distributed cache layer for computed estimates.
// Implementations must degrade silently: a cache failure is never a
// prediction failure.
type EstimateCache interface {
	GetEstimate(ctx context.Context, in domain.TransferInput) (*domain.OutcomeEstimate, bool)
	SetEstimate(ctx context.Context, in domain.TransferInput, est domain.OutcomeEstimate)
}

// Predictor computes, memoizes, and optionally persists outcome estimates.
// Store and cache are optional; a nil store disables persistence and a nil
// cache disables the distributed tier. The in-process memo is always on.
type Predictor struct {
	engine *engine.Engine
	store  PredictionStore
	cache  EstimateCache
	memo   *lru.Cache
	logger *logrus.Logger
	now    func() time.Time
}

// NewPredictor creates a prediction service around the given engine.
func NewPredictor(eng *engine.Engine, store PredictionStore, cache EstimateCache, logger *logrus.Logger) (*Predictor, error) {
	memo, err := lru.New(memoCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create memo cache: %w", err)
	}
	return &Predictor{
		engine: eng,
		store:  store,
		cache:  cache,
		memo:   memo,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Predict validates the categorical inputs and returns the outcome estimate.
// Identical inputs hit the memo and return the previously computed value.
// An out-of-range oocyte age is not an error here: it flows through to the
// engine and comes back as the sentinel estimate.
func (p *Predictor) Predict(ctx context.Context, in domain.TransferInput) (domain.OutcomeEstimate, error) {
	if err := in.Validate(); err != nil {
		return domain.OutcomeEstimate{}, fmt.Errorf("invalid transfer input: %w", err)
	}

	key := in.Canonical()
	if cached, ok := p.memo.Get(key); ok {
		p.logger.WithField("cache", "memo").Debug("Estimate served from memo")
		return cached.(domain.OutcomeEstimate), nil
	}

	if p.cache != nil {
		if est, ok := p.cache.GetEstimate(ctx, in); ok {
			p.memo.Add(key, *est)
			p.logger.WithField("cache", "redis").Debug("Estimate served from distributed cache")
			return *est, nil
		}
	}

	est := p.engine.ComputePrediction(in)
	p.memo.Add(key, est)
	if p.cache != nil {
		p.cache.SetEstimate(ctx, in, est)
	}
	return est, nil
}

// PredictAndSave computes the estimate and persists it as a new record with
// a generated ID. Sentinel estimates are saved too: an out-of-range request
// is part of the audit trail.
func (p *Predictor) PredictAndSave(ctx context.Context, in domain.TransferInput) (*domain.PredictionRecord, error) {
	est, err := p.Predict(ctx, in)
	if err != nil {
		return nil, err
	}

	rec := domain.NewPredictionRecord(uuid.New().String(), in, est, p.now())
	if p.store != nil {
		if err := p.store.SavePrediction(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to save prediction %s: %w", rec.ID, err)
		}
	}

	p.logger.WithFields(logrus.Fields(rec.LogFields())).Info("Prediction saved")
	return rec, nil
}

// GetPrediction retrieves a saved prediction by ID.
func (p *Predictor) GetPrediction(ctx context.Context, id string) (*domain.PredictionRecord, error) {
	if p.store == nil {
		return nil, domain.ErrNotFound
	}
	return p.store.GetPrediction(ctx, id)
}

// ListPredictions returns saved predictions, most recent first.
func (p *Predictor) ListPredictions(ctx context.Context, limit, offset int) ([]*domain.PredictionRecord, error) {
	if p.store == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return p.store.ListPredictions(ctx, limit, offset)
}

// CountPredictions returns the number of saved predictions.
func (p *Predictor) CountPredictions(ctx context.Context) (int64, error) {
	if p.store == nil {
		return 0, nil
	}
	return p.store.CountPredictions(ctx)
}
