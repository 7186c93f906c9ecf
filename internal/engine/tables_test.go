package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ivf-outcome-server/internal/domain"
)

func TestBandForAge_Boundaries(t *testing.T) {
	tests := []struct {
		age  int
		want ageBand
	}{
		{20, bandUnder35},
		{34, bandUnder35},
		{35, band35to37},
		{37, band35to37},
		{38, band38to40},
		{40, band38to40},
		{41, band41plus},
		{50, band41plus},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, bandForAge(tt.age), "age %d", tt.age)
	}
}

func TestGradeRatio_AllCombinations(t *testing.T) {
	tests := []struct {
		icm, te domain.Grade
		want    float64
	}{
		{domain.GRADE_A, domain.GRADE_A, 1.00},
		{domain.GRADE_A, domain.GRADE_B, 0.90},
		{domain.GRADE_B, domain.GRADE_A, 0.90},
		{domain.GRADE_B, domain.GRADE_B, 0.80},
		{domain.GRADE_C, domain.GRADE_C, 0.45},
		{domain.GRADE_A, domain.GRADE_C, 0.65},
		{domain.GRADE_C, domain.GRADE_A, 0.65},
		{domain.GRADE_B, domain.GRADE_C, 0.65},
		{domain.GRADE_C, domain.GRADE_B, 0.65},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, gradeRatio(tt.icm, tt.te), "%s%s", tt.icm, tt.te)
	}
}

func TestBaseTables_DeclineWithAge(t *testing.T) {
	for _, table := range [][4]float64{euploidBaseLiveBirthAA, untestedBaseLiveBirthAA} {
		for i := 1; i < len(table); i++ {
			assert.Less(t, table[i], table[i-1])
		}
	}
	for _, table := range [][4]float64{euploidMiscarriage, untestedMiscarriage} {
		for i := 1; i < len(table); i++ {
			assert.Greater(t, table[i], table[i-1])
		}
	}
}

func TestMosaicBase_BlendBetweenLevels(t *testing.T) {
	lowLB, lowMR := mosaicBase(domain.LOW_LEVEL)
	highLB, highMR := mosaicBase(domain.HIGH_LEVEL)
	blendLB, blendMR := mosaicBase(domain.MOSAIC_LEVEL_UNKNOWN)

	assert.Equal(t, 0.450, lowLB)
	assert.Equal(t, 0.250, highLB)
	assert.Greater(t, blendLB, highLB)
	assert.Less(t, blendLB, lowLB)
	assert.Greater(t, blendMR, lowMR)
	assert.Less(t, blendMR, highMR)
}

func TestMosaicAgeMultiplier_Brackets(t *testing.T) {
	assert.Equal(t, 1.08, mosaicAgeMultiplier(25))
	assert.Equal(t, 1.10, mosaicAgeMultiplier(32))
	assert.Equal(t, 1.00, mosaicAgeMultiplier(36))
	assert.Equal(t, 0.90, mosaicAgeMultiplier(39))
	assert.Equal(t, 0.75, mosaicAgeMultiplier(42))
	assert.Equal(t, 0.40, mosaicAgeMultiplier(46))

	// Deliberately not monotonic: early thirties outrank under-30.
	assert.Greater(t, mosaicAgeMultiplier(32), mosaicAgeMultiplier(25))
}

func TestMosaicQualityMultiplier_CPenaltyWinsOverA(t *testing.T) {
	assert.Equal(t, 1.20, mosaicQualityMultiplier(domain.GRADE_A, domain.GRADE_A))
	assert.Equal(t, 1.10, mosaicQualityMultiplier(domain.GRADE_A, domain.GRADE_B))
	assert.Equal(t, 1.00, mosaicQualityMultiplier(domain.GRADE_B, domain.GRADE_B))
	assert.Equal(t, 0.80, mosaicQualityMultiplier(domain.GRADE_A, domain.GRADE_C))
	assert.Equal(t, 0.80, mosaicQualityMultiplier(domain.GRADE_C, domain.GRADE_C))
}

func TestAneuploidBuckets_Ordering(t *testing.T) {
	assert.Greater(t, aneuploidAnyA.liveBirth, aneuploidBothB.liveBirth)
	assert.Greater(t, aneuploidBothB.liveBirth, aneuploidOther.liveBirth)
	assert.Less(t, aneuploidAnyA.miscarriage, aneuploidBothB.miscarriage)
	assert.Less(t, aneuploidBothB.miscarriage, aneuploidOther.miscarriage)
}

func TestMultiplierTables_CoverAllEnumValues(t *testing.T) {
	for _, d := range []domain.EmbryoDay{domain.DAY_5, domain.DAY_6, domain.DAY_7} {
		assert.Contains(t, dayMultipliers, d)
	}
	for exp := domain.MinExpansionStage; exp <= domain.MaxExpansionStage; exp++ {
		assert.Contains(t, expansionMultipliers, exp)
	}
	for _, hs := range []domain.HatchingStatus{
		domain.HATCHING_UNKNOWN, domain.NON_HATCHING, domain.HATCHING, domain.HATCHED,
	} {
		assert.Contains(t, hatchingMultipliers, hs)
	}
	for _, tt := range []domain.TransferType{domain.FRESH, domain.FROZEN} {
		assert.Contains(t, euploidTransferMultipliers, tt)
		assert.Contains(t, mosaicTransferMultipliers, tt)
	}
}
