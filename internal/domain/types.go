// Package domain contains core business entities and types for embryo-transfer
// outcome prediction based on published population statistics.
//
// Rates follow the conventions of the SART national summary and the cited
// blastocyst-grading literature: all probabilities are fractions in [0, 1];
// formatting as percentages is a presentation concern outside this package.
package domain

import "errors"

// EmbryoDay represents the day of blastocyst development at vitrification
// or transfer. Only days 5-7 are clinically meaningful for blastocysts.
type EmbryoDay int

const (
	DAY_5 EmbryoDay = 5
	DAY_6 EmbryoDay = 6
	DAY_7 EmbryoDay = 7
)

// Grade represents an inner-cell-mass or trophectoderm quality grade
// under the Gardner grading system.
type Grade string

const (
	GRADE_A Grade = "A"
	GRADE_B Grade = "B"
	GRADE_C Grade = "C"
)

// TransferType distinguishes fresh from frozen-thawed embryo transfer.
type TransferType string

const (
	FRESH  TransferType = "FRESH"
	FROZEN TransferType = "FROZEN"
)

// HatchingStatus represents the zona pellucida status of the blastocyst.
// The empty value means unknown / not assessed; the engine treats it as a
// neutral multiplier.
type HatchingStatus string

const (
	HATCHING_UNKNOWN HatchingStatus = ""
	NON_HATCHING     HatchingStatus = "NON_HATCHING"
	HATCHING         HatchingStatus = "HATCHING"
	HATCHED          HatchingStatus = "HATCHED"
)

// MosaicLevel represents the mosaicism level reported by PGT-A.
// The empty value means the level was not reported; the engine uses a
// blended estimate in that case.
type MosaicLevel string

const (
	MOSAIC_LEVEL_UNKNOWN MosaicLevel = ""
	LOW_LEVEL            MosaicLevel = "LOW_LEVEL"
	HIGH_LEVEL           MosaicLevel = "HIGH_LEVEL"
)

// GeneticStatusKind identifies the PGT-A result category of the embryo.
type GeneticStatusKind string

const (
	EUPLOID   GeneticStatusKind = "EUPLOID"
	MOSAIC    GeneticStatusKind = "MOSAIC"
	ANEUPLOID GeneticStatusKind = "ANEUPLOID"
	UNTESTED  GeneticStatusKind = "UNTESTED"
)

// ConfidenceLevel reflects the strength of the evidence base behind an
// estimate for the given genetic status category.
type ConfidenceLevel string

const (
	CONFIDENCE_HIGH     ConfidenceLevel = "High"
	CONFIDENCE_MODERATE ConfidenceLevel = "Moderate"
	CONFIDENCE_LOW      ConfidenceLevel = "Low"
)

// Validation errors for clinical data integrity
var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidEmbryoDay      = errors.New("invalid embryo day")
	ErrInvalidGrade          = errors.New("invalid blastocyst grade")
	ErrInvalidExpansion      = errors.New("invalid expansion stage")
	ErrInvalidTransferType   = errors.New("invalid transfer type")
	ErrInvalidHatchingStatus = errors.New("invalid hatching status")
	ErrInvalidMosaicLevel    = errors.New("invalid mosaic level")
	ErrInvalidGeneticStatus  = errors.New("invalid genetic status")
)

// IsValid validates the embryo day.
func (d EmbryoDay) IsValid() bool {
	switch d {
	case DAY_5, DAY_6, DAY_7:
		return true
	default:
		return false
	}
}

// IsValid validates an ICM/TE grade under the Gardner system.
func (g Grade) IsValid() bool {
	switch g {
	case GRADE_A, GRADE_B, GRADE_C:
		return true
	default:
		return false
	}
}

// String returns the string representation of the grade.
func (g Grade) String() string {
	return string(g)
}

// IsValid validates the transfer type.
func (tt TransferType) IsValid() bool {
	switch tt {
	case FRESH, FROZEN:
		return true
	default:
		return false
	}
}

// String returns the string representation of the transfer type.
func (tt TransferType) String() string {
	return string(tt)
}

// IsValid validates the hatching status. The unknown (empty) value is valid
// because hatching assessment is optional input.
func (hs HatchingStatus) IsValid() bool {
	switch hs {
	case HATCHING_UNKNOWN, NON_HATCHING, HATCHING, HATCHED:
		return true
	default:
		return false
	}
}

// IsValid validates the mosaic level. The unknown (empty) value is valid
// because labs do not always report the mosaicism fraction.
func (ml MosaicLevel) IsValid() bool {
	switch ml {
	case MOSAIC_LEVEL_UNKNOWN, LOW_LEVEL, HIGH_LEVEL:
		return true
	default:
		return false
	}
}

// IsValid validates the genetic status kind.
func (k GeneticStatusKind) IsValid() bool {
	switch k {
	case EUPLOID, MOSAIC, ANEUPLOID, UNTESTED:
		return true
	default:
		return false
	}
}

// String returns the string representation of the genetic status kind.
func (k GeneticStatusKind) String() string {
	return string(k)
}

// IsValid validates the confidence level.
func (cl ConfidenceLevel) IsValid() bool {
	switch cl {
	case CONFIDENCE_HIGH, CONFIDENCE_MODERATE, CONFIDENCE_LOW:
		return true
	default:
		return false
	}
}

// String returns the string representation of the confidence level.
func (cl ConfidenceLevel) String() string {
	return string(cl)
}

// LogFields returns structured logging fields for audit trails.
func (cl ConfidenceLevel) LogFields() map[string]any {
	return map[string]any{
		"confidence": string(cl),
		"is_valid":   cl.IsValid(),
	}
}

// ClinicalDescription returns a human-readable description of the confidence
// level for patient-facing reporting.
func (cl ConfidenceLevel) ClinicalDescription() string {
	switch cl {
	case CONFIDENCE_HIGH:
		return "High - supported by large published cohorts"
	case CONFIDENCE_MODERATE:
		return "Moderate - emerging evidence base, smaller cohorts"
	case CONFIDENCE_LOW:
		return "Low - limited case-series evidence"
	default:
		return "Unknown confidence level"
	}
}
