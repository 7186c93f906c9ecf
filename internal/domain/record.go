package domain

import (
	"time"
)

// PredictionRecord is one saved prediction: the flattened scenario inputs,
// the computed estimate, and audit metadata. Inputs are stored flat (kind
// plus optional mosaic level) so records round-trip through SQL and JSON
// without encoding the sealed genetic-status variant.
type PredictionRecord struct {
	ID string `json:"id"`

	OocyteAge     int               `json:"oocyte_age"`
	Day           EmbryoDay         `json:"embryo_day"`
	Expansion     int               `json:"expansion"`
	ICM           Grade             `json:"icm"`
	TE            Grade             `json:"te"`
	GeneticStatus GeneticStatusKind `json:"genetic_status"`
	MosaicLevel   MosaicLevel       `json:"mosaic_level,omitempty"`
	Hatching      HatchingStatus    `json:"hatching_status,omitempty"`
	Transfer      TransferType      `json:"transfer_type"`

	Estimate OutcomeEstimate `json:"estimate"`

	CreatedAt time.Time `json:"created_at"`
}

// NewPredictionRecord flattens the input and pairs it with its estimate.
func NewPredictionRecord(id string, in TransferInput, est OutcomeEstimate, createdAt time.Time) *PredictionRecord {
	kind, level := FlattenGeneticStatus(in.Genetics)
	return &PredictionRecord{
		ID:            id,
		OocyteAge:     in.OocyteAge,
		Day:           in.Day,
		Expansion:     in.Grade.Expansion,
		ICM:           in.Grade.ICM,
		TE:            in.Grade.TE,
		GeneticStatus: kind,
		MosaicLevel:   level,
		Hatching:      in.Hatching,
		Transfer:      in.Transfer,
		Estimate:      est,
		CreatedAt:     createdAt.UTC(),
	}
}

// Input reconstructs the transfer scenario from the flattened fields.
func (r *PredictionRecord) Input() (TransferInput, error) {
	gs, err := ParseGeneticStatus(r.GeneticStatus, r.MosaicLevel)
	if err != nil {
		return TransferInput{}, err
	}
	return TransferInput{
		OocyteAge: r.OocyteAge,
		Day:       r.Day,
		Grade:     BlastocystGrade{Expansion: r.Expansion, ICM: r.ICM, TE: r.TE},
		Genetics:  gs,
		Hatching:  r.Hatching,
		Transfer:  r.Transfer,
	}, nil
}

// LogFields returns structured logging fields for audit trails.
func (r *PredictionRecord) LogFields() map[string]any {
	return map[string]any{
		"prediction_id":   r.ID,
		"oocyte_age":      r.OocyteAge,
		"genetic_status":  string(r.GeneticStatus),
		"live_birth_rate": r.Estimate.LiveBirthRate,
		"created_at":      r.CreatedAt,
	}
}
