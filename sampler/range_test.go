package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRangeValidation(t *testing.T) {
	assert := assert.New(t)

	var err error
	_, err = NewRange(0, 0, 1)
	assert.Error(err)
	_, err = NewRange(10, -1, 1)
	assert.Error(err)
	_, err = NewRange(10, 10, 1)
	assert.Error(err)
	_, err = NewRange(10, 0, 0)
	assert.Error(err)

	r, err := NewRange(10, 0, 1)
	assert.NoError(err)
	assert.Equal(10, r.SavedCount())
}

func TestRangeSavedCount(t *testing.T) {
	assert := assert.New(t)

	// Brute-force check of the ceil((T-B)/K) formula against the
	// membership predicate across a small grid
	for total := 1; total <= 25; total++ {
		for burn := 0; burn < total; burn++ {
			for thin := 1; thin <= 5; thin++ {
				r, err := NewRange(total, burn, thin)
				assert.NoError(err)

				count := 0
				for i := 1; i <= total; i++ {
					if r.Saves(i) {
						count++
					}
				}

				assert.Equal(r.SavedCount(), count, "T=%d B=%d K=%d", total, burn, thin)
				assert.Equal(count, len(r.SavedIndices()))
			}
		}
	}
}

func TestRangeSavedIndices(t *testing.T) {
	assert := assert.New(t)

	r, err := NewRange(10, 3, 2)
	assert.NoError(err)

	assert.Equal([]int{4, 6, 8, 10}, r.SavedIndices())
	assert.Equal(4, r.SavedCount())

	assert.False(r.Saves(0))
	assert.False(r.Saves(3))
	assert.True(r.Saves(4))
	assert.False(r.Saves(5))
	assert.True(r.Saves(10))
	assert.False(r.Saves(11))

	r2, err := NewRange(1000, 0, 1)
	assert.NoError(err)
	assert.Equal(1000, r2.SavedCount())
	assert.True(r2.Saves(1))
	assert.True(r2.Saves(1000))
}
