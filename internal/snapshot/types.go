// Package snapshot provides embedded persistence for prediction records
// (SQLite for single-node deployments, PostgreSQL via database/sql for
// shared ones) plus JSON export/import for backup and clinic migration.
package snapshot

import (
	"time"

	"github.com/ivf-outcome-server/internal/domain"
)

// ExportVersion identifies the export envelope format.
const ExportVersion = "1.0"

// Export is the JSON envelope written by ExportJSON and read by ImportJSON.
type Export struct {
	Version       string                     `json:"version"`
	EngineVersion string                     `json:"engine_version"`
	ExportedAt    time.Time                  `json:"exported_at"`
	Count         int                        `json:"count"`
	Predictions   []*domain.PredictionRecord `json:"predictions"`
}
