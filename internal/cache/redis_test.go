package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ivf-outcome-server/internal/domain"
)

func TestCacheKey_DeterministicAndVersioned(t *testing.T) {
	in := domain.TransferInput{
		OocyteAge: 33,
		Day:       domain.DAY_5,
		Grade:     domain.BlastocystGrade{Expansion: 5, ICM: domain.GRADE_A, TE: domain.GRADE_A},
		Genetics:  domain.Euploid{},
		Transfer:  domain.FROZEN,
	}

	key := cacheKey(in)
	assert.True(t, strings.HasPrefix(key, keyPrefix))
	assert.Equal(t, key, cacheKey(in))

	// 64 hex chars regardless of input shape.
	assert.Len(t, strings.TrimPrefix(key, keyPrefix), 64)

	other := in
	other.OocyteAge = 34
	assert.NotEqual(t, key, cacheKey(other))
}

func TestCacheKey_DistinguishesMosaicLevels(t *testing.T) {
	base := domain.TransferInput{
		OocyteAge: 36,
		Day:       domain.DAY_5,
		Grade:     domain.BlastocystGrade{Expansion: 4, ICM: domain.GRADE_B, TE: domain.GRADE_B},
		Transfer:  domain.FROZEN,
	}

	low := base
	low.Genetics = domain.Mosaic{Level: domain.LOW_LEVEL}
	high := base
	high.Genetics = domain.Mosaic{Level: domain.HIGH_LEVEL}
	unknown := base
	unknown.Genetics = domain.Mosaic{}

	keys := map[string]bool{
		cacheKey(low):     true,
		cacheKey(high):    true,
		cacheKey(unknown): true,
	}
	assert.Len(t, keys, 3)
}
