// Package swma maintains a sliding window moving average in O(1) per sample.
package swma

import (
	"github.com/gammazero/deque"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

var ErrInvalidPeriod = errors.New("period must be positive")

// Number is any value the accumulator can add, subtract and convert to float64.
// The running sum is kept in T, so an integer type must be wide enough to hold
// period times the largest sample or the sum wraps. Use int64 or float64 when in
// doubt.
type Number interface {
	constraints.Integer | constraints.Float
}

// Accumulator is not safe for concurrent use. A single goroutine owns it for the
// lifetime of a stream; build a new one to start over.
type Accumulator[T Number] struct {
	period int
	sum    T
	window *deque.Deque[T]
}

func New[T Number](period int) (*Accumulator[T], error) {
	if period < 1 {
		return nil, errors.Wrapf(ErrInvalidPeriod, "period %d", period)
	}
	return &Accumulator[T]{
		period: period,
		window: deque.New[T](period + 1),
	}, nil
}

// Push adds a sample and reports the window average once period samples are resident.
func (a *Accumulator[T]) Push(value T) (float64, bool) {
	a.window.PushBack(value)
	var old T
	if a.window.Len() > a.period {
		old = a.window.PopFront()
	}
	a.sum = a.sum + value - old
	if a.window.Len() == a.period {
		return float64(a.sum) / float64(a.period), true
	}
	return 0, false
}

func (a *Accumulator[T]) Ready() bool {
	return a.window.Len() == a.period
}

func (a *Accumulator[T]) Average() (float64, bool) {
	if !a.Ready() {
		return 0, false
	}
	return float64(a.sum) / float64(a.period), true
}

func (a *Accumulator[T]) Sum() T {
	return a.sum
}

func (a *Accumulator[T]) Len() int {
	return a.window.Len()
}

func (a *Accumulator[T]) Period() int {
	return a.period
}

// Window returns a copy of the resident samples, oldest first.
func (a *Accumulator[T]) Window() []T {
	out := make([]T, a.window.Len())
	for i := range out {
		out[i] = a.window.At(i)
	}
	return out
}
