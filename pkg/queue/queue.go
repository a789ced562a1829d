// Package queue is an append-only measurement buffer shared between goroutines.
//
// Every access takes the same exclusive lock. If a critical section panics the
// queue is marked poisoned before the lock is released, and every later access
// fails with ErrPoisoned instead of touching a buffer that may be inconsistent.
package queue

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

var ErrPoisoned = errors.New("queue poisoned by a panic in a previous critical section")

type Measurement struct {
	Time     time.Time
	Value    float64
	Producer int
}

func NewMeasurement(value float64, producer int) Measurement {
	return Measurement{
		Time:     time.Now().UTC(),
		Value:    value,
		Producer: producer,
	}
}

type state struct {
	mu       sync.Mutex
	poisoned bool
	items    []Measurement
}

// Queue is a handle. Copies made with Clone, or by plain assignment, share the
// same buffer.
type Queue struct {
	s *state
}

func New() Queue {
	return Queue{s: &state{}}
}

func (q Queue) Clone() Queue {
	return q
}

func (q Queue) with(op string, fn func(items *[]Measurement)) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	if q.s.poisoned {
		return errors.Wrap(ErrPoisoned, op)
	}

	done := false
	defer func() {
		if !done {
			q.s.poisoned = true
		}
	}()
	fn(&q.s.items)
	done = true
	return nil
}

func (q Queue) Append(m Measurement) error {
	return q.with("append", func(items *[]Measurement) {
		*items = append(*items, m)
	})
}

// PeekLast returns a copy of the most recently appended measurement.
func (q Queue) PeekLast() (Measurement, bool, error) {
	var (
		last Measurement
		ok   bool
	)
	err := q.with("peek last", func(items *[]Measurement) {
		if n := len(*items); n > 0 {
			last, ok = (*items)[n-1], true
		}
	})
	return last, ok, err
}

func (q Queue) Len() (int, error) {
	var n int
	err := q.with("len", func(items *[]Measurement) {
		n = len(*items)
	})
	return n, err
}

// Since copies the measurements appended at or after offset.
func (q Queue) Since(offset int) ([]Measurement, error) {
	var out []Measurement
	err := q.with("since", func(items *[]Measurement) {
		if offset < 0 {
			offset = 0
		}
		if offset < len(*items) {
			out = append([]Measurement(nil), (*items)[offset:]...)
		}
	})
	return out, err
}

// Inspect runs fn on the buffer while holding the lock. fn must not retain or
// modify the slice.
func (q Queue) Inspect(fn func(items []Measurement)) error {
	return q.with("inspect", func(items *[]Measurement) {
		fn(*items)
	})
}

func (q Queue) Poisoned() bool {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	return q.s.poisoned
}
