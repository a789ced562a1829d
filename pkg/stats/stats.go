package stats

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Trend keeps the most recent averages in a ring and summarizes them.
type Trend struct {
	size   int
	next   int
	full   bool
	values []float64
	x      []float64
	y      []float64
}

func NewTrend(size int) *Trend {
	if size < 2 {
		size = 2
	}
	x := make([]float64, size)
	for i := range x {
		x[i] = float64(i + 1)
	}
	return &Trend{
		size:   size,
		values: make([]float64, size),
		x:      x,
		y:      make([]float64, 0, size),
	}
}

func (t *Trend) Add(value float64) {
	t.values[t.next] = value
	t.next++
	if t.next == t.size {
		t.next = 0
		t.full = true
	}
}

func (t *Trend) Len() int {
	if t.full {
		return t.size
	}
	return t.next
}

// ordered returns the retained values oldest first. The slice is reused.
func (t *Trend) ordered() []float64 {
	t.y = t.y[:0]
	if t.full {
		t.y = append(t.y, t.values[t.next:]...)
	}
	return append(t.y, t.values[:t.next]...)
}

func (t *Trend) Mean() float64 {
	if t.Len() == 0 {
		return 0
	}
	return stat.Mean(t.ordered(), nil)
}

func (t *Trend) StdDev() float64 {
	if t.Len() < 2 {
		return 0
	}
	return stat.StdDev(t.ordered(), nil)
}

// Slope is the least squares change per sample across the retained values.
func (t *Trend) Slope() float64 {
	n := t.Len()
	if n < 2 {
		return 0
	}
	_, beta := stat.LinearRegression(t.x[:n], t.ordered(), nil, false)
	return beta
}

func (t *Trend) Quantile(p float64) float64 {
	if t.Len() == 0 {
		return 0
	}
	v := append([]float64(nil), t.ordered()...)
	slices.Sort(v)
	return stat.Quantile(p, stat.Empirical, v, nil)
}
