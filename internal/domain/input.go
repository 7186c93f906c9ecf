package domain

import (
	"fmt"
)

// Clinically valid oocyte age range. Age refers to age at egg retrieval,
// not current age: frozen and donor transfers decouple the two.
const (
	MinOocyteAge = 20
	MaxOocyteAge = 50
)

// Expansion stage bounds under the Gardner grading system. Stages 1-2 are
// pre-blastocyst and not accepted as transfer input.
const (
	MinExpansionStage = 3
	MaxExpansionStage = 6
)

// GeneticStatus is the closed set of PGT-A result categories. Only the
// Mosaic variant carries a mosaicism level, so an inconsistent record such
// as "euploid with a mosaic level" cannot be constructed.
type GeneticStatus interface {
	Kind() GeneticStatusKind

	// sealed prevents implementations outside this package.
	sealed()
}

// Euploid marks an embryo with a normal PGT-A result.
type Euploid struct{}

// Aneuploid marks an embryo with a uniformly abnormal PGT-A result.
type Aneuploid struct{}

// Untested marks an embryo transferred without PGT-A.
type Untested struct{}

// Mosaic marks an embryo with a mosaic PGT-A result. Level may be
// MOSAIC_LEVEL_UNKNOWN when the lab did not report the mosaicism fraction.
type Mosaic struct {
	Level MosaicLevel
}

func (Euploid) Kind() GeneticStatusKind   { return EUPLOID }
func (Aneuploid) Kind() GeneticStatusKind { return ANEUPLOID }
func (Untested) Kind() GeneticStatusKind  { return UNTESTED }
func (m Mosaic) Kind() GeneticStatusKind  { return MOSAIC }

func (Euploid) sealed()   {}
func (Aneuploid) sealed() {}
func (Untested) sealed()  {}
func (Mosaic) sealed()    {}

// ParseGeneticStatus builds the sealed variant from its flat string form
// (wire and storage representation). A mosaic level is only accepted for
// the mosaic kind.
func ParseGeneticStatus(kind GeneticStatusKind, level MosaicLevel) (GeneticStatus, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("genetic status %q: %w", kind, ErrInvalidGeneticStatus)
	}
	if kind != MOSAIC && level != MOSAIC_LEVEL_UNKNOWN {
		return nil, fmt.Errorf("mosaic level set for %s status: %w", kind, ErrInvalidGeneticStatus)
	}
	switch kind {
	case EUPLOID:
		return Euploid{}, nil
	case ANEUPLOID:
		return Aneuploid{}, nil
	case UNTESTED:
		return Untested{}, nil
	default:
		if !level.IsValid() {
			return nil, fmt.Errorf("mosaic level %q: %w", level, ErrInvalidMosaicLevel)
		}
		return Mosaic{Level: level}, nil
	}
}

// FlattenGeneticStatus returns the flat string form of a sealed variant for
// wire and storage use.
func FlattenGeneticStatus(gs GeneticStatus) (GeneticStatusKind, MosaicLevel) {
	if m, ok := gs.(Mosaic); ok {
		return MOSAIC, m.Level
	}
	return gs.Kind(), MOSAIC_LEVEL_UNKNOWN
}

// BlastocystGrade is the composite Gardner grade of the blastocyst:
// expansion stage plus ICM and TE quality grades.
type BlastocystGrade struct {
	Expansion int   `json:"expansion"`
	ICM       Grade `json:"icm"`
	TE        Grade `json:"te"`
}

// Validate ensures the grade components are within the Gardner system.
func (g BlastocystGrade) Validate() error {
	if g.Expansion < MinExpansionStage || g.Expansion > MaxExpansionStage {
		return fmt.Errorf("expansion stage %d: %w", g.Expansion, ErrInvalidExpansion)
	}
	if !g.ICM.IsValid() {
		return fmt.Errorf("ICM grade %q: %w", g.ICM, ErrInvalidGrade)
	}
	if !g.TE.IsValid() {
		return fmt.Errorf("TE grade %q: %w", g.TE, ErrInvalidGrade)
	}
	return nil
}

// Code returns the conventional display code for the grade, e.g. "5AA".
func (g BlastocystGrade) Code() string {
	return fmt.Sprintf("%d%s%s", g.Expansion, g.ICM, g.TE)
}

// TransferInput is one embryo-transfer scenario to estimate. Records are
// constructed per interaction and discarded after one computation; they are
// never mutated by the engine.
type TransferInput struct {
	OocyteAge int
	Day       EmbryoDay
	Grade     BlastocystGrade
	Genetics  GeneticStatus
	Hatching  HatchingStatus
	Transfer  TransferType
}

// Validate checks the categorical fields. Oocyte age is deliberately NOT
// checked here: an out-of-range age is a domain outcome (a sentinel
// estimate), not a malformed request, and must flow through to the engine.
func (in TransferInput) Validate() error {
	if !in.Day.IsValid() {
		return fmt.Errorf("embryo day %d: %w", in.Day, ErrInvalidEmbryoDay)
	}
	if err := in.Grade.Validate(); err != nil {
		return err
	}
	if in.Genetics == nil {
		return fmt.Errorf("genetic status is required: %w", ErrInvalidGeneticStatus)
	}
	if !in.Hatching.IsValid() {
		return fmt.Errorf("hatching status %q: %w", in.Hatching, ErrInvalidHatchingStatus)
	}
	if !in.Transfer.IsValid() {
		return fmt.Errorf("transfer type %q: %w", in.Transfer, ErrInvalidTransferType)
	}
	return nil
}

// AgeInRange reports whether the oocyte age is within the clinically valid
// range. Out-of-range ages produce the sentinel estimate.
func (in TransferInput) AgeInRange() bool {
	return in.OocyteAge >= MinOocyteAge && in.OocyteAge <= MaxOocyteAge
}

// Canonical returns a stable, unambiguous string form of the input used for
// cache keys and memoization. Identical inputs always produce identical
// canonical strings.
func (in TransferInput) Canonical() string {
	kind, level := FlattenGeneticStatus(in.Genetics)
	return fmt.Sprintf("age=%d|day=%d|grade=%s|genetics=%s|mosaic=%s|hatching=%s|transfer=%s",
		in.OocyteAge, in.Day, in.Grade.Code(), kind, level, in.Hatching, in.Transfer)
}
