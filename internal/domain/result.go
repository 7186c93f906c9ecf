package domain

// Factor is one human-readable label/value pair recording an input that
// contributed to an estimate. Factors exist for display and audit, not for
// further computation, and their order is part of the result.
type Factor struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ErrorFactorLabel marks the single factor present on a sentinel estimate
// produced for an out-of-range oocyte age.
const ErrorFactorLabel = "Error"

// OutcomeEstimate is the immutable result of one prediction. All rate
// fields are fractions in [0, 1]. A fresh value is produced per computation;
// estimates are never mutated after creation.
type OutcomeEstimate struct {
	LiveBirthRate         float64 `json:"live_birth_rate"`
	ClinicalPregnancyRate float64 `json:"clinical_pregnancy_rate"`
	ImplantationRate      float64 `json:"implantation_rate"`
	MiscarriageRate       float64 `json:"miscarriage_rate"`

	Confidence ConfidenceLevel `json:"confidence"`

	// Factors echoes the inputs that produced the estimate, in display order.
	Factors []Factor `json:"factors"`

	// References and Methodology are static per engine version.
	References  []string `json:"references"`
	Methodology string   `json:"methodology"`
}

// Invalid reports whether the estimate is the sentinel produced for an
// out-of-range oocyte age. Callers that care to distinguish "computed zero"
// from "invalid input" branch on this instead of catching an error.
func (e OutcomeEstimate) Invalid() bool {
	for _, f := range e.Factors {
		if f.Label == ErrorFactorLabel {
			return true
		}
	}
	return false
}

// RatesInRange reports whether every rate field is a valid probability.
func (e OutcomeEstimate) RatesInRange() bool {
	for _, r := range []float64{e.LiveBirthRate, e.ClinicalPregnancyRate, e.ImplantationRate, e.MiscarriageRate} {
		if r < 0 || r > 1 {
			return false
		}
	}
	return true
}

// LogFields returns structured logging fields for audit trails.
func (e OutcomeEstimate) LogFields() map[string]any {
	return map[string]any{
		"live_birth_rate":         e.LiveBirthRate,
		"clinical_pregnancy_rate": e.ClinicalPregnancyRate,
		"implantation_rate":       e.ImplantationRate,
		"miscarriage_rate":        e.MiscarriageRate,
		"confidence":              e.Confidence.String(),
		"invalid_input":           e.Invalid(),
	}
}
