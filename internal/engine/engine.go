package engine

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ivf-outcome-server/internal/domain"
)

// Engine evaluates embryo-transfer scenarios against the rate tables.
// It is stateless and safe for concurrent use. Computation is total: every
// input produces an estimate, never an error, so a prediction can always be
// rendered to the user.
type Engine struct {
	logger *logrus.Logger
}

// NewEngine creates an outcome prediction engine.
func NewEngine(logger *logrus.Logger) *Engine {
	return &Engine{logger: logger}
}

// ComputePrediction produces the outcome estimate for one transfer scenario.
// Dispatch is on the PGT-A result category; an out-of-range oocyte age short
// circuits to the sentinel estimate before any table lookup.
func (e *Engine) ComputePrediction(in domain.TransferInput) domain.OutcomeEstimate {
	if !in.AgeInRange() {
		return e.sentinelEstimate(in)
	}

	var est domain.OutcomeEstimate
	switch gs := in.Genetics.(type) {
	case domain.Euploid:
		est = e.computeTested(in, euploidBaseLiveBirthAA, euploidMiscarriage)
		est.Confidence = domain.CONFIDENCE_HIGH
	case domain.Mosaic:
		est = e.computeMosaic(in, gs.Level)
		est.Confidence = domain.CONFIDENCE_MODERATE
	case domain.Aneuploid:
		est = e.computeAneuploid(in)
		est.Confidence = domain.CONFIDENCE_LOW
	case domain.Untested:
		est = e.computeTested(in, untestedBaseLiveBirthAA, untestedMiscarriage)
		est.Confidence = domain.CONFIDENCE_HIGH
	default:
		// Unreachable through ParseGeneticStatus; a nil or foreign value is
		// reported the same way as any other uncomputable input.
		return e.sentinelEstimate(in)
	}

	est.Factors = inputFactors(in)
	est.References = domain.References()
	est.Methodology = domain.Methodology

	e.logger.WithFields(logrus.Fields{
		"genetic_status":  in.Genetics.Kind().String(),
		"oocyte_age":      in.OocyteAge,
		"grade":           in.Grade.Code(),
		"live_birth_rate": est.LiveBirthRate,
		"confidence":      est.Confidence.String(),
		"engine_version":  domain.EngineVersion,
	}).Debug("Outcome estimate computed")

	return est
}

// computeTested handles the euploid and untested branches, which share the
// same composition: age-banded AA base rate, grade ratio, then the fixed
// multiplier chain transfer -> day -> expansion -> hatching.
func (e *Engine) computeTested(in domain.TransferInput, baseAA, miscarriage [4]float64) domain.OutcomeEstimate {
	band := bandForAge(in.OocyteAge)

	lbr := baseAA[band] * gradeRatio(in.Grade.ICM, in.Grade.TE)
	lbr *= euploidTransferMultipliers[in.Transfer]
	lbr *= dayMultipliers[in.Day]
	lbr *= expansionMultipliers[in.Grade.Expansion]
	lbr *= hatchingMultipliers[in.Hatching]

	mr := miscarriage[band]
	cpr, ir := deriveSecondary(lbr, mr, implantationCoeffEuploid)

	return domain.OutcomeEstimate{
		LiveBirthRate:         clamp(lbr, maxLiveBirthRate),
		ClinicalPregnancyRate: clamp(cpr, maxClinicalPregnancyRate),
		ImplantationRate:      clamp(ir, maxImplantationRate),
		MiscarriageRate:       mr,
	}
}

// computeMosaic handles the mosaic branch: level-keyed base rates adjusted by
// the fixed chain age -> quality -> day -> hatching -> transfer -> expansion.
// No plausibility ceilings apply on this branch.
func (e *Engine) computeMosaic(in domain.TransferInput, level domain.MosaicLevel) domain.OutcomeEstimate {
	lbr, mr := mosaicBase(level)

	lbr *= mosaicAgeMultiplier(in.OocyteAge)
	lbr *= mosaicQualityMultiplier(in.Grade.ICM, in.Grade.TE)
	lbr *= dayMultipliers[in.Day]
	lbr *= hatchingMultipliers[in.Hatching]
	lbr *= mosaicTransferMultipliers[in.Transfer]
	lbr *= expansionMultipliers[in.Grade.Expansion]

	cpr, ir := deriveSecondary(lbr, mr, implantationCoeffMosaic)

	return domain.OutcomeEstimate{
		LiveBirthRate:         lbr,
		ClinicalPregnancyRate: cpr,
		ImplantationRate:      ir,
		MiscarriageRate:       mr,
	}
}

// computeAneuploid handles the aneuploid branch: a direct bucket lookup with
// no adjustment chain. Age, day, and transfer type do not move the estimate.
func (e *Engine) computeAneuploid(in domain.TransferInput) domain.OutcomeEstimate {
	b := aneuploidBucketFor(in.Grade.ICM, in.Grade.TE)
	return domain.OutcomeEstimate{
		LiveBirthRate:         b.liveBirth,
		ClinicalPregnancyRate: b.clinicalPregnancy,
		ImplantationRate:      b.implantation,
		MiscarriageRate:       b.miscarriage,
	}
}

// sentinelEstimate is the zero-rate result returned for an out-of-range
// oocyte age. Its single Error factor is what marks the estimate invalid;
// rates of zero alone are not a reliable signal.
func (e *Engine) sentinelEstimate(in domain.TransferInput) domain.OutcomeEstimate {
	e.logger.WithFields(logrus.Fields{
		"oocyte_age":     in.OocyteAge,
		"engine_version": domain.EngineVersion,
	}).Warn("Oocyte age outside supported range, returning sentinel estimate")

	return domain.OutcomeEstimate{
		Confidence: domain.CONFIDENCE_LOW,
		Factors: []domain.Factor{
			{
				Label: domain.ErrorFactorLabel,
				Value: fmt.Sprintf("Oocyte age %d is outside the supported range of %d-%d years",
					in.OocyteAge, domain.MinOocyteAge, domain.MaxOocyteAge),
			},
		},
		References:  domain.References(),
		Methodology: domain.Methodology,
	}
}

// deriveSecondary derives the clinical pregnancy and implantation rates from
// the live-birth and miscarriage rates. CPR inverts "live birth = clinical
// pregnancy that did not miscarry"; IR applies the branch coefficient.
func deriveSecondary(lbr, mr, implantationCoeff float64) (cpr, ir float64) {
	cpr = lbr / (1 - mr)
	ir = cpr * implantationCoeff
	return cpr, ir
}

func clamp(v, ceiling float64) float64 {
	if v > ceiling {
		return ceiling
	}
	return v
}

// inputFactors echoes the scenario inputs as display factors, in fixed order.
// The mosaic level factor appears only when the scenario is mosaic.
func inputFactors(in domain.TransferInput) []domain.Factor {
	kind, level := domain.FlattenGeneticStatus(in.Genetics)

	factors := []domain.Factor{
		{Label: "Oocyte Age", Value: fmt.Sprintf("%d years", in.OocyteAge)},
		{Label: "Embryo Day", Value: fmt.Sprintf("Day %d", in.Day)},
		{Label: "Blastocyst Grade", Value: in.Grade.Code()},
		{Label: "Genetic Status", Value: displayKind(kind)},
	}
	if kind == domain.MOSAIC {
		factors = append(factors, domain.Factor{Label: "Mosaic Level", Value: displayMosaicLevel(level)})
	}
	if in.Hatching != domain.HATCHING_UNKNOWN {
		factors = append(factors, domain.Factor{Label: "Hatching Status", Value: displayHatching(in.Hatching)})
	}
	factors = append(factors, domain.Factor{Label: "Transfer Type", Value: displayTransfer(in.Transfer)})
	return factors
}

func displayKind(k domain.GeneticStatusKind) string {
	switch k {
	case domain.EUPLOID:
		return "Euploid (PGT-A normal)"
	case domain.MOSAIC:
		return "Mosaic (PGT-A mosaic)"
	case domain.ANEUPLOID:
		return "Aneuploid (PGT-A abnormal)"
	case domain.UNTESTED:
		return "Untested (no PGT-A)"
	default:
		return string(k)
	}
}

func displayMosaicLevel(ml domain.MosaicLevel) string {
	switch ml {
	case domain.LOW_LEVEL:
		return "Low level (<50% abnormal cells)"
	case domain.HIGH_LEVEL:
		return "High level (>=50% abnormal cells)"
	default:
		return "Not reported"
	}
}

func displayHatching(hs domain.HatchingStatus) string {
	switch hs {
	case domain.NON_HATCHING:
		return "Non-hatching"
	case domain.HATCHING:
		return "Hatching"
	case domain.HATCHED:
		return "Fully hatched"
	default:
		return "Unknown"
	}
}

func displayTransfer(tt domain.TransferType) string {
	switch tt {
	case domain.FROZEN:
		return "Frozen (FET)"
	case domain.FRESH:
		return "Fresh"
	default:
		return string(tt)
	}
}
