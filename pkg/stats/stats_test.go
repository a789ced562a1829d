package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrendEmpty(t *testing.T) {
	tr := NewTrend(4)
	assert.Zero(t, tr.Len())
	assert.Zero(t, tr.Mean())
	assert.Zero(t, tr.StdDev())
	assert.Zero(t, tr.Slope())
	assert.Zero(t, tr.Quantile(0.5))
}

func TestTrendKeepsMostRecent(t *testing.T) {
	tr := NewTrend(4)
	for i := 1; i <= 10; i++ {
		tr.Add(float64(i))
	}
	assert.Equal(t, 4, tr.Len())
	assert.Equal(t, []float64{7, 8, 9, 10}, tr.ordered())
	assert.InDelta(t, 8.5, tr.Mean(), 1e-12)
	assert.InDelta(t, 1.0, tr.Slope(), 1e-12)
	assert.Equal(t, 10.0, tr.Quantile(1))
	assert.Equal(t, 7.0, tr.Quantile(0))
}

func TestTrendPartial(t *testing.T) {
	tr := NewTrend(10)
	tr.Add(3)
	tr.Add(1)
	tr.Add(2)
	assert.Equal(t, 3, tr.Len())
	assert.InDelta(t, 2.0, tr.Mean(), 1e-12)
	assert.InDelta(t, 1.0, tr.StdDev(), 1e-12)
	assert.InDelta(t, -0.5, tr.Slope(), 1e-12)
	assert.Equal(t, 2.0, tr.Quantile(0.5))
}
