// Package ingest fans measurements from several producers into one shared queue,
// watches it with a polling observer and averages its contents on a single
// consumer goroutine.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mikesmitty/rollavg/pkg/queue"
	"github.com/mikesmitty/rollavg/pkg/swma"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const DefaultInterval = time.Millisecond

type Config struct {
	Producers       int
	PerProducer     int
	Period          int
	ObserveInterval time.Duration
	ConsumeInterval time.Duration
}

type Result struct {
	Total       int
	Observed    int
	Averages    int
	Last        float64
	PerProducer map[int]int
}

func (c Config) validate() error {
	if c.Producers < 1 {
		return fmt.Errorf("producers must be positive: %d", c.Producers)
	}
	if c.PerProducer < 0 {
		return fmt.Errorf("measurements per producer must not be negative: %d", c.PerProducer)
	}
	_, err := swma.New[float64](c.Period)
	return err
}

// Produce appends count measurements valued 1..count, tagged with producer.
func Produce(ctx context.Context, q queue.Queue, producer, count int) error {
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := q.Append(queue.NewMeasurement(float64(i), producer)); err != nil {
			return err
		}
	}
	slog.Debug("producer finished", "producer", producer, "count", count, "module", "ingest")
	return nil
}

// Observer polls the newest measurement. It may miss measurements between polls.
type Observer struct {
	Interval time.Duration
}

// Run polls q until ctx is done and returns how many polls found a measurement.
// Cancellation is the normal way to stop it and is not reported as an error.
func (o Observer) Run(ctx context.Context, q queue.Queue, fn func(queue.Measurement)) (int, error) {
	interval := o.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := time.NewTimer(interval)
	defer t.Stop()

	observed := 0
	for {
		m, ok, err := q.PeekLast()
		if err != nil {
			return observed, err
		}
		if ok {
			observed++
			if fn != nil {
				fn(m)
			}
		}

		t.Reset(interval)
		select {
		case <-ctx.Done():
			slog.Debug("observer stopped", "observed", observed, "module", "ingest")
			return observed, nil
		case <-t.C:
		}
	}
}

// Consume is the single owner of an accumulator fed from q. It picks up new
// measurements every interval and, once ctx is done, drains what is left and
// returns the number of measurements pushed.
func Consume(ctx context.Context, q queue.Queue, period int, interval time.Duration, emit func(queue.Measurement, float64)) (int, error) {
	acc, err := swma.New[float64](period)
	if err != nil {
		return 0, err
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	offset := 0
	drain := func() error {
		batch, err := q.Since(offset)
		if err != nil {
			return err
		}
		for _, m := range batch {
			if avg, ok := acc.Push(m.Value); ok && emit != nil {
				emit(m, avg)
			}
		}
		offset += len(batch)
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			err := drain()
			return offset, err
		case <-t.C:
			if err := drain(); err != nil {
				return offset, err
			}
		}
	}
}

// Run starts cfg.Producers producers, an observer and a consumer over one queue.
// It waits for every producer, then stops the observer and lets the consumer
// drain the queue before returning.
func Run(ctx context.Context, cfg Config) (Result, error) {
	res := Result{PerProducer: make(map[int]int)}
	if err := cfg.validate(); err != nil {
		return res, err
	}

	q := queue.New()

	bgCtx, stop := context.WithCancel(ctx)
	defer stop()
	bg, bgCtx := errgroup.WithContext(bgCtx)

	observer := Observer{Interval: cfg.ObserveInterval}
	observerQueue := q.Clone()
	bg.Go(func() error {
		n, err := observer.Run(bgCtx, observerQueue, func(m queue.Measurement) {
			slog.Debug("latest measurement", "producer", m.Producer, "value", m.Value, "time", m.Time, "module", "ingest")
		})
		res.Observed = n
		return err
	})

	consumerQueue := q.Clone()
	bg.Go(func() error {
		n, err := Consume(bgCtx, consumerQueue, cfg.Period, cfg.ConsumeInterval, func(m queue.Measurement, avg float64) {
			res.Averages++
			res.Last = avg
		})
		res.Total = n
		return err
	})

	producers := pool.New().WithErrors().WithContext(ctx)
	for id := 1; id <= cfg.Producers; id++ {
		h := q.Clone()
		producers.Go(func(ctx context.Context) error {
			return Produce(ctx, h, id, cfg.PerProducer)
		})
	}
	err := producers.Wait()
	slog.Info("producers joined", "producers", cfg.Producers, "module", "ingest")

	stop()
	err = multierr.Append(err, bg.Wait())
	if err != nil {
		return res, err
	}

	err = q.Inspect(func(items []queue.Measurement) {
		for _, m := range items {
			res.PerProducer[m.Producer]++
		}
	})
	return res, err
}
