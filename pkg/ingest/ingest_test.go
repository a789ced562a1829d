package ingest

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikesmitty/rollavg/pkg/queue"
	"github.com/mikesmitty/rollavg/pkg/swma"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestRunTwoProducers(t *testing.T) {
	res, err := Run(context.Background(), Config{
		Producers:       2,
		PerProducer:     10000,
		Period:          7,
		ObserveInterval: time.Millisecond,
	})
	require.NoError(t, err)
	assert.Equal(t, 20000, res.Total)
	assert.Equal(t, 20000-7+1, res.Averages)
	assert.Equal(t, map[int]int{1: 10000, 2: 10000}, res.PerProducer)
}

func TestRunInvalidConfig(t *testing.T) {
	_, err := Run(context.Background(), Config{Producers: 0, PerProducer: 1, Period: 1})
	assert.Error(t, err)
	_, err = Run(context.Background(), Config{Producers: 1, PerProducer: -1, Period: 1})
	assert.Error(t, err)
	_, err = Run(context.Background(), Config{Producers: 1, PerProducer: 1, Period: 0})
	assert.ErrorIs(t, err, swma.ErrInvalidPeriod)
}

func TestObserverSeesWholeMeasurements(t *testing.T) {
	const perProducer = 10000
	q := queue.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var torn atomic.Int32
	var observed int
	done := make(chan error, 1)
	go func() {
		var err error
		observed, err = Observer{Interval: time.Millisecond}.Run(ctx, q.Clone(), func(m queue.Measurement) {
			if m.Time.IsZero() || m.Value < 1 || m.Value > perProducer || (m.Producer != 1 && m.Producer != 2) {
				torn.Add(1)
			}
		})
		done <- err
	}()

	g, gctx := errgroup.WithContext(context.Background())
	for id := 1; id <= 2; id++ {
		h := q.Clone()
		g.Go(func() error { return Produce(gctx, h, id, perProducer) })
	}
	require.NoError(t, g.Wait())

	// give the observer at least one poll after the producers are done
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("observer did not stop after cancellation")
	}

	n, err := q.Len()
	require.NoError(t, err)
	assert.Equal(t, 2*perProducer, n)
	assert.Zero(t, torn.Load())
	assert.Positive(t, observed)
}

func TestObserverPoisoned(t *testing.T) {
	q := queue.New()
	require.NoError(t, q.Append(queue.NewMeasurement(1, 1)))
	assert.Panics(t, func() {
		_ = q.Inspect(func([]queue.Measurement) { panic("producer crashed") })
	})

	_, err := Observer{}.Run(context.Background(), q, nil)
	assert.ErrorIs(t, err, queue.ErrPoisoned)
}

func TestProduceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q := queue.New()
	assert.ErrorIs(t, Produce(ctx, q, 1, 100), context.Canceled)
	n, err := q.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConsumeDrainsOnStop(t *testing.T) {
	q := queue.New()
	for i := 1; i <= 5; i++ {
		require.NoError(t, q.Append(queue.NewMeasurement(float64(i), 1)))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got []float64
	n, err := Consume(ctx, q, 2, time.Hour, func(_ queue.Measurement, avg float64) {
		got = append(got, avg)
	})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []float64{1.5, 2.5, 3.5, 4.5}, got)
}
