package stream

import (
	"context"
	"errors"
	"iter"
	"slices"
	"strings"
	"testing"

	"github.com/mikesmitty/rollavg/pkg/batch"
	"github.com/mikesmitty/rollavg/pkg/source"
	"github.com/mikesmitty/rollavg/pkg/swma"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestPull(t *testing.T) {
	averages, err := Pull(slices.Values([]float64{1, 2, 3, 4, 5}), 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5, 3.5, 4.5}, slices.Collect(averages))
}

func TestPullNeverEmitsWhileFilling(t *testing.T) {
	averages, err := Pull(slices.Values([]float64{101, 102, 103}), 4)
	require.NoError(t, err)
	assert.Empty(t, slices.Collect(averages))
}

func TestPullInvalidPeriod(t *testing.T) {
	_, err := Pull(slices.Values([]int{1}), 0)
	assert.True(t, errors.Is(err, swma.ErrInvalidPeriod))
}

func TestPullMatchesBatch(t *testing.T) {
	samples := slices.Collect(source.Generate(5000))
	for _, period := range []int{1, 7, 64, 5000} {
		want, err := batch.PrefixDifference(samples, period)
		require.NoError(t, err)
		averages, err := Pull(source.Generate(5000), period)
		require.NoError(t, err)
		got := slices.Collect(averages)
		require.Len(t, got, len(samples)-period+1)
		assert.Equal(t, want, got, "period %d", period)
	}
}

// An unbounded source only works if nothing is buffered ahead of the consumer.
func TestPullInfiniteSource(t *testing.T) {
	var naturals iter.Seq[int] = func(yield func(int) bool) {
		for i := 1; ; i++ {
			if !yield(i) {
				return
			}
		}
	}
	averages, err := Pull(naturals, 3)
	require.NoError(t, err)
	var got []float64
	for avg := range averages {
		got = append(got, avg)
		if len(got) == 4 {
			break
		}
	}
	assert.Equal(t, []float64{2, 3, 4, 5}, got)
}

func TestFeedReceive(t *testing.T) {
	ctx := context.Background()
	g, ctx := errgroup.WithContext(ctx)
	ch, feeder := Feed(ctx, source.Slice([]int{1, 2, 3, 4, 5}), 0)
	g.Go(feeder)

	averages, err := Receive(ch, 2)
	require.NoError(t, err)
	var got []float64
	for avg, err := range averages {
		require.NoError(t, err)
		got = append(got, avg)
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, []float64{1.5, 2.5, 3.5, 4.5}, got)
}

func TestReceiveDropsFailedSamples(t *testing.T) {
	in := make(chan Item[float64], 6)
	in <- Item[float64]{Value: 1}
	in <- Item[float64]{Err: errors.New("bad row")}
	in <- Item[float64]{Value: 3}
	in <- Item[float64]{Value: 5}
	close(in)

	averages, err := Receive[float64](in, 2)
	require.NoError(t, err)
	var got []float64
	var errs int
	for avg, err := range averages {
		if err != nil {
			errs++
			continue
		}
		got = append(got, avg)
	}
	assert.Equal(t, 1, errs)
	assert.Equal(t, []float64{2, 4}, got)
}

func TestRunCSV(t *testing.T) {
	in := "value\n1\n2\nx\n3\n4\n5\n"
	var got []float64
	stats, err := Run(context.Background(), source.CSV(strings.NewReader(in)), 2, 4, func(avg float64) error {
		got = append(got, avg)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5, 3.5, 4.5}, got)
	assert.Equal(t, Stats{Emitted: 4, Dropped: 1, Last: 4.5}, stats)
}

func TestRunSinkError(t *testing.T) {
	errStop := errors.New("stop")
	calls := 0
	_, err := Run(context.Background(), source.Infallible(source.Generate(1_000_000)), 3, 1, func(float64) error {
		calls++
		if calls == 10 {
			return errStop
		}
		return nil
	})
	assert.ErrorIs(t, err, errStop)
	assert.Equal(t, 10, calls)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Run(ctx, source.Infallible(source.Generate(1_000_000)), 1, 1, func(float64) error {
		calls++
		if calls == 5 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, calls, 1_000_000)
}

func TestRunInvalidPeriod(t *testing.T) {
	_, err := Run(context.Background(), source.Slice([]float64{1}), -1, 0, func(float64) error { return nil })
	assert.ErrorIs(t, err, swma.ErrInvalidPeriod)
}

func TestRunItems(t *testing.T) {
	in := make(chan Item[int], 4)
	for _, v := range []int{2, 4, 6} {
		in <- Item[int]{Value: v}
	}
	close(in)
	var got []float64
	stats, err := Run(context.Background(), Items[int](in), 2, 0, func(avg float64) error {
		got = append(got, avg)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 5}, got)
	assert.Equal(t, 2, stats.Emitted)
}
