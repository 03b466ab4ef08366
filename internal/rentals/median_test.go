package rentals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMedian_OddCount(t *testing.T) {
	mid, ok := median([]float64{300, 100, 200})
	assert.True(t, ok)
	assert.Equal(t, float64(200), mid)
}

func TestMedian_EvenCount(t *testing.T) {
	mid, ok := median([]float64{200, 100})
	assert.True(t, ok)
	assert.Equal(t, float64(150), mid)
}

func TestMedian_Empty(t *testing.T) {
	_, ok := median(nil)
	assert.False(t, ok)
}

func TestMedian_DoesNotModifyInput(t *testing.T) {
	prices := []float64{300, 100, 200}
	median(prices)
	assert.Equal(t, []float64{300, 100, 200}, prices)
}

func TestParseCompPrice(t *testing.T) {
	assert.Equal(t, float64(1500), parseCompPrice("$1,500"))
	assert.Equal(t, float64(1500), parseCompPrice("1.500"))
	assert.Equal(t, float64(2000), parseCompPrice("2000/mo"))
	assert.Equal(t, float64(0), parseCompPrice("call for price"))
	assert.Equal(t, float64(0), parseCompPrice(""))
}
