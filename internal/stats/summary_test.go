package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ivf-outcome-server/internal/domain"
)

func record(status domain.GeneticStatusKind, lbr float64) *domain.PredictionRecord {
	return &domain.PredictionRecord{
		GeneticStatus: status,
		Estimate: domain.OutcomeEstimate{
			LiveBirthRate: lbr,
			Confidence:    domain.CONFIDENCE_HIGH,
			Factors:       []domain.Factor{{Label: "Oocyte Age", Value: "33 years"}},
		},
	}
}

func sentinelRecord() *domain.PredictionRecord {
	return &domain.PredictionRecord{
		GeneticStatus: domain.EUPLOID,
		Estimate: domain.OutcomeEstimate{
			Confidence: domain.CONFIDENCE_LOW,
			Factors:    []domain.Factor{{Label: domain.ErrorFactorLabel, Value: "age out of range"}},
		},
	}
}

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(nil)

	assert.Zero(t, summary.Count)
	assert.Zero(t, summary.Mean)
	assert.Empty(t, summary.ByGeneticStatus)
}

func TestSummarize_BasicDistribution(t *testing.T) {
	records := []*domain.PredictionRecord{
		record(domain.EUPLOID, 0.60),
		record(domain.EUPLOID, 0.70),
		record(domain.MOSAIC, 0.40),
		record(domain.UNTESTED, 0.50),
	}

	summary := Summarize(records)

	assert.Equal(t, 4, summary.Count)
	assert.Zero(t, summary.Excluded)
	assert.InDelta(t, 0.55, summary.Mean, 1e-9)
	assert.InDelta(t, 0.55, summary.Median, 1e-9)
	assert.InDelta(t, 0.40, summary.Min, 1e-9)
	assert.InDelta(t, 0.70, summary.Max, 1e-9)
	assert.Greater(t, summary.StdDev, 0.0)
	assert.Equal(t, 2, summary.ByGeneticStatus["EUPLOID"])
	assert.Equal(t, 1, summary.ByGeneticStatus["MOSAIC"])
	assert.Equal(t, 1, summary.ByGeneticStatus["UNTESTED"])
}

func TestSummarize_ExcludesSentinels(t *testing.T) {
	records := []*domain.PredictionRecord{
		record(domain.EUPLOID, 0.688),
		sentinelRecord(),
		sentinelRecord(),
	}

	summary := Summarize(records)

	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, 2, summary.Excluded)
	assert.InDelta(t, 0.688, summary.Mean, 1e-9)
	assert.Zero(t, summary.StdDev)
}

func TestSummarize_AllSentinels(t *testing.T) {
	summary := Summarize([]*domain.PredictionRecord{sentinelRecord()})

	assert.Zero(t, summary.Count)
	assert.Equal(t, 1, summary.Excluded)
	assert.Zero(t, summary.Mean)
}
