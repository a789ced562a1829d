// Package stream runs the sliding window accumulator over sample sources one
// value at a time. Memory stays proportional to the period no matter how long
// the source is.
package stream

import (
	"context"
	"iter"
	"log/slog"

	"github.com/mikesmitty/rollavg/pkg/swma"
	"golang.org/x/sync/errgroup"
)

// Item carries one sample, or the error that replaced it, across a channel.
type Item[T swma.Number] struct {
	Value T
	Err   error
}

// Pull wraps src so that iterating the result drives the source directly and
// yields each completed average in order.
func Pull[T swma.Number](src iter.Seq[T], period int) (iter.Seq[float64], error) {
	acc, err := swma.New[T](period)
	if err != nil {
		return nil, err
	}
	return func(yield func(float64) bool) {
		for v := range src {
			if avg, ok := acc.Push(v); ok {
				if !yield(avg) {
					return
				}
			}
		}
	}, nil
}

// Feed returns a channel and the feeder that fills it from src. The feeder must
// be started by the caller, usually with errgroup.Group.Go. It closes the channel
// when src is exhausted or ctx is done.
func Feed[T swma.Number](ctx context.Context, src iter.Seq2[T, error], size int) (<-chan Item[T], func() error) {
	c := make(chan Item[T], size)
	return c, func() error {
		defer close(c)
		sent := 0
		for v, err := range src {
			select {
			case <-ctx.Done():
				slog.Debug("feeder cancelled", "sent", sent, "module", "stream")
				return ctx.Err()
			case c <- Item[T]{Value: v, Err: err}:
				sent++
			}
		}
		slog.Debug("feeder finished", "sent", sent, "module", "stream")
		return nil
	}
}

// Receive consumes in until it is closed. Failed items are yielded as errors and
// never reach the accumulator.
func Receive[T swma.Number](in <-chan Item[T], period int) (iter.Seq2[float64, error], error) {
	acc, err := swma.New[T](period)
	if err != nil {
		return nil, err
	}
	return func(yield func(float64, error) bool) {
		for item := range in {
			if item.Err != nil {
				if !yield(0, item.Err) {
					return
				}
				continue
			}
			if avg, ok := acc.Push(item.Value); ok {
				if !yield(avg, nil) {
					return
				}
			}
		}
	}, nil
}

type Stats struct {
	Emitted int
	Dropped int
	Last    float64
}

// Run parses src on a feeder goroutine and aggregates on another, passing each
// average to sink in order. Failed samples are logged and dropped. A sink error
// stops the feeder and is returned.
func Run[T swma.Number](ctx context.Context, src iter.Seq2[T, error], period, size int, sink func(float64) error) (Stats, error) {
	var stats Stats
	g, ctx := errgroup.WithContext(ctx)
	ch, feeder := Feed(ctx, src, size)
	averages, err := Receive(ch, period)
	if err != nil {
		return stats, err
	}

	g.Go(feeder)
	g.Go(func() error {
		for avg, err := range averages {
			if err != nil {
				stats.Dropped++
				slog.Debug("dropping sample", "error", err, "module", "stream")
				continue
			}
			stats.Emitted++
			stats.Last = avg
			if err := sink(avg); err != nil {
				return err
			}
		}
		return nil
	})

	err = g.Wait()
	return stats, err
}

// Items adapts a channel of items, such as one filled by a network subscriber,
// to a sequence that Run or Feed can consume.
func Items[T swma.Number](in <-chan Item[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for item := range in {
			if !yield(item.Value, item.Err) {
				return
			}
		}
	}
}
