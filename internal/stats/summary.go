// Package stats computes descriptive statistics over saved prediction
// cohorts for the reporting endpoint.
package stats

import (
	"github.com/montanaflynn/stats"

	"github.com/ivf-outcome-server/internal/domain"
)

// Summary describes the distribution of live-birth estimates across a
// cohort of saved predictions. Sentinel records are excluded before any
// statistic is computed.
type Summary struct {
	Count    int     `json:"count"`
	Excluded int     `json:"excluded"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	P25      float64 `json:"p25"`
	P75      float64 `json:"p75"`

	ByGeneticStatus map[string]int `json:"by_genetic_status"`
}

// Summarize computes the live-birth distribution over the given records.
// An empty (or all-sentinel) cohort yields a zero-valued summary rather
// than an error.
func Summarize(records []*domain.PredictionRecord) Summary {
	summary := Summary{
		ByGeneticStatus: make(map[string]int),
	}

	var rates []float64
	for _, rec := range records {
		if rec.Estimate.Invalid() {
			summary.Excluded++
			continue
		}
		rates = append(rates, rec.Estimate.LiveBirthRate)
		summary.ByGeneticStatus[string(rec.GeneticStatus)]++
	}

	summary.Count = len(rates)
	if len(rates) == 0 {
		return summary
	}

	data := stats.Float64Data(rates)

	// These only fail on empty input, which is excluded above.
	summary.Mean, _ = stats.Mean(data)
	summary.Median, _ = stats.Median(data)
	summary.Min, _ = stats.Min(data)
	summary.Max, _ = stats.Max(data)
	summary.P25, _ = stats.Percentile(data, 25)
	summary.P75, _ = stats.Percentile(data, 75)

	if len(rates) > 1 {
		summary.StdDev, _ = stats.StandardDeviationSample(data)
	}

	return summary
}
