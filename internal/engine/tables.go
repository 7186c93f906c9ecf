// Package engine implements the evidence-based outcome prediction engine:
// a deterministic evaluator mapping one embryo-transfer scenario to point
// estimates of live birth, clinical pregnancy, implantation, and miscarriage
// rates using age-banded base rates and multiplicative adjustment factors
// drawn from the literature cited in the domain package.
//
// All tables in this file are immutable data, separated from branch dispatch
// so the constants can be audited against the cited literature without
// re-deriving control flow.
package engine

import (
	"github.com/ivf-outcome-server/internal/domain"
)

// ageBand indexes the four age bands used by every age-keyed table.
// Ages at or above 50 reuse the 41-49 band (extrapolated).
type ageBand int

const (
	bandUnder35 ageBand = iota
	band35to37
	band38to40
	band41plus
)

// bandForAge maps an oocyte age to its lookup band. Callers must have
// range-checked the age already.
func bandForAge(age int) ageBand {
	switch {
	case age < 35:
		return bandUnder35
	case age <= 37:
		return band35to37
	case age <= 40:
		return band38to40
	default:
		return band41plus
	}
}

// Base live-birth rates for an AA-grade blastocyst by age band. All other
// grade combinations derive from the AA rate via gradeRatio. Euploid rates
// track PGT-A cohorts; untested rates track unscreened population cohorts
// and are lower at every band.
var (
	euploidBaseLiveBirthAA = [4]float64{
		bandUnder35: 0.688,
		band35to37:  0.601,
		band38to40:  0.528,
		band41plus:  0.412,
	}

	untestedBaseLiveBirthAA = [4]float64{
		bandUnder35: 0.522,
		band35to37:  0.441,
		band38to40:  0.330,
		band41plus:  0.182,
	}
)

// Grade-ratio constants: each non-AA combination is a fixed fraction of the
// AA rate for the same age band.
const (
	ratioAA     = 1.00
	ratioAB     = 0.90 // AB or BA
	ratioBB     = 0.80
	ratioCC     = 0.45
	ratioMixedC = 0.65 // exactly one C component
)

// gradeRatio reduces any ICM/TE pair to its fraction of the AA baseline.
func gradeRatio(icm, te domain.Grade) float64 {
	switch {
	case icm == domain.GRADE_A && te == domain.GRADE_A:
		return ratioAA
	case icm == domain.GRADE_C && te == domain.GRADE_C:
		return ratioCC
	case icm == domain.GRADE_C || te == domain.GRADE_C:
		return ratioMixedC
	case icm == domain.GRADE_B && te == domain.GRADE_B:
		return ratioBB
	default:
		return ratioAB
	}
}

// Day-of-development multipliers, day 5 baseline. Shared by the euploid,
// mosaic, and untested branches.
var dayMultipliers = map[domain.EmbryoDay]float64{
	domain.DAY_5: 1.00,
	domain.DAY_6: 0.76,
	domain.DAY_7: 0.60,
}

// Expansion-stage multipliers, stage 5 baseline. Shared across branches.
var expansionMultipliers = map[int]float64{
	3: 0.85,
	4: 0.95,
	5: 1.00,
	6: 1.02,
}

// Hatching-status multipliers. Unknown status is neutral.
var hatchingMultipliers = map[domain.HatchingStatus]float64{
	domain.HATCHING_UNKNOWN: 1.00,
	domain.NON_HATCHING:     0.95,
	domain.HATCHING:         1.00,
	domain.HATCHED:          1.03,
}

// Transfer-type multipliers, frozen baseline. Frozen transfer is slightly
// favored for mosaic embryos relative to the euploid penalty for fresh.
var (
	euploidTransferMultipliers = map[domain.TransferType]float64{
		domain.FROZEN: 1.00,
		domain.FRESH:  0.95,
	}

	mosaicTransferMultipliers = map[domain.TransferType]float64{
		domain.FROZEN: 1.00,
		domain.FRESH:  0.90,
	}
)

// Age-banded miscarriage rates, independent of the live-birth chain.
var (
	euploidMiscarriage = [4]float64{
		bandUnder35: 0.086,
		band35to37:  0.118,
		band38to40:  0.162,
		band41plus:  0.275,
	}

	untestedMiscarriage = [4]float64{
		bandUnder35: 0.120,
		band35to37:  0.165,
		band38to40:  0.240,
		band41plus:  0.380,
	}
)

// Mosaic base rates keyed by reported mosaicism level. When the level is
// unreported the engine blends the two, weighted toward low-level mosaicism
// which dominates published transfer cohorts.
const (
	mosaicLowBaseLiveBirth  = 0.450
	mosaicHighBaseLiveBirth = 0.250
	mosaicLowMiscarriage    = 0.150
	mosaicHighMiscarriage   = 0.300

	mosaicBlendLowWeight = 0.60
)

// mosaicBase returns the base live-birth and miscarriage rates for the
// reported mosaicism level.
func mosaicBase(level domain.MosaicLevel) (liveBirth, miscarriage float64) {
	switch level {
	case domain.LOW_LEVEL:
		return mosaicLowBaseLiveBirth, mosaicLowMiscarriage
	case domain.HIGH_LEVEL:
		return mosaicHighBaseLiveBirth, mosaicHighMiscarriage
	default:
		w := mosaicBlendLowWeight
		return w*mosaicLowBaseLiveBirth + (1-w)*mosaicHighBaseLiveBirth,
			w*mosaicLowMiscarriage + (1-w)*mosaicHighMiscarriage
	}
}

// mosaicAgeMultiplier brackets favor younger retrieval ages, peak in the
// early thirties, and sharply penalize ages above 43. The table is
// intentionally not monotonic.
func mosaicAgeMultiplier(age int) float64 {
	switch {
	case age < 30:
		return 1.08
	case age <= 34:
		return 1.10
	case age <= 37:
		return 1.00
	case age <= 40:
		return 0.90
	case age <= 43:
		return 0.75
	default:
		return 0.40
	}
}

// Mosaic grade-quality multipliers, BB baseline.
const (
	mosaicQualityAA      = 1.20
	mosaicQualitySingleA = 1.10
	mosaicQualityBB      = 1.00
	mosaicQualityWithC   = 0.80
)

// mosaicQualityMultiplier reduces the ICM/TE pair to a quality multiplier.
// Any C component is penalized before single-A credit is considered.
func mosaicQualityMultiplier(icm, te domain.Grade) float64 {
	switch {
	case icm == domain.GRADE_C || te == domain.GRADE_C:
		return mosaicQualityWithC
	case icm == domain.GRADE_A && te == domain.GRADE_A:
		return mosaicQualityAA
	case icm == domain.GRADE_A || te == domain.GRADE_A:
		return mosaicQualitySingleA
	default:
		return mosaicQualityBB
	}
}

// Aneuploid transfers have no multiplicative chain: outcomes come from a
// three-way grade-quality bucket reflecting self-correction case series.
type aneuploidBucket struct {
	liveBirth         float64
	clinicalPregnancy float64
	implantation      float64
	miscarriage       float64
}

var (
	aneuploidAnyA = aneuploidBucket{
		liveBirth:         0.075,
		clinicalPregnancy: 0.120,
		implantation:      0.110,
		miscarriage:       0.550,
	}

	aneuploidBothB = aneuploidBucket{
		liveBirth:         0.050,
		clinicalPregnancy: 0.090,
		implantation:      0.080,
		miscarriage:       0.600,
	}

	aneuploidOther = aneuploidBucket{
		liveBirth:         0.030,
		clinicalPregnancy: 0.060,
		implantation:      0.050,
		miscarriage:       0.650,
	}
)

// aneuploidBucketFor selects the outcome bucket: any A component, both B,
// or anything else.
func aneuploidBucketFor(icm, te domain.Grade) aneuploidBucket {
	switch {
	case icm == domain.GRADE_A || te == domain.GRADE_A:
		return aneuploidAnyA
	case icm == domain.GRADE_B && te == domain.GRADE_B:
		return aneuploidBothB
	default:
		return aneuploidOther
	}
}

// Implantation-rate coefficients applied to the clinical pregnancy rate.
// The mosaic evidence base supports a slightly lower coefficient.
const (
	implantationCoeffEuploid = 0.95
	implantationCoeffMosaic  = 0.92
)

// Engine-wide plausibility ceilings applied to the euploid and untested
// branches. The mosaic branch deliberately omits them: its bucket-derived
// base rates are self-limiting. Preserved as-is pending clinical review.
const (
	maxLiveBirthRate         = 0.90
	maxClinicalPregnancyRate = 0.95
	maxImplantationRate      = 0.92
)
