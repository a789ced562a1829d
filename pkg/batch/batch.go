// Package batch computes moving averages over a fully loaded sample slice.
//
// Naive and PrefixDifference share one signature so callers can swap them and
// cross-check results. They agree within a small relative tolerance for
// well-conditioned input but are not bit-identical because they sum in a
// different order.
package batch

import (
	"fmt"

	"github.com/mikesmitty/rollavg/pkg/simdsum"
	"github.com/mikesmitty/rollavg/pkg/swma"
	"github.com/pkg/errors"
)

var (
	ErrWindowTooLarge = errors.New("period exceeds sample count")
	ErrInvalidPeriod  = swma.ErrInvalidPeriod
)

const (
	NameNaive  = "naive"
	NamePrefix = "prefix"
)

type Strategy[T swma.Number] func(samples []T, period int) ([]float64, error)

func ByName[T swma.Number](name string) (Strategy[T], error) {
	switch name {
	case NameNaive:
		return Naive[T], nil
	case NamePrefix, "prefix-difference", "online":
		return PrefixDifference[T], nil
	default:
		return nil, fmt.Errorf("unknown batch strategy: %s", name)
	}
}

// OutputLen returns the number of averages a strategy produces, or an error when
// the period cannot fit the samples.
func OutputLen(samples, period int) (int, error) {
	if period < 1 {
		return 0, errors.Wrapf(ErrInvalidPeriod, "period %d", period)
	}
	size := samples - period + 1
	if size <= 0 {
		return 0, errors.Wrapf(ErrWindowTooLarge, "period %d, samples %d", period, samples)
	}
	return size, nil
}

// Naive recomputes every window from scratch. Windows at least simdsum.Lanes wide
// go through simdsum.Sum.
func Naive[T swma.Number](samples []T, period int) ([]float64, error) {
	size, err := OutputLen(len(samples), period)
	if err != nil {
		return nil, err
	}

	values := toFloat64(samples)
	out := make([]float64, size)
	for i := range out {
		window := values[i : i+period]
		var sum float64
		if period >= simdsum.Lanes {
			sum = simdsum.Sum(window)
		} else {
			for _, v := range window {
				sum += v
			}
		}
		out[i] = sum / float64(period)
	}
	return out, nil
}

// PrefixDifference sums the first window once and slides it by adding the
// entering sample and subtracting the leaving one. Division happens after every
// sum is known.
func PrefixDifference[T swma.Number](samples []T, period int) ([]float64, error) {
	size, err := OutputLen(len(samples), period)
	if err != nil {
		return nil, err
	}

	out := make([]float64, size)
	sum := 0.0
	for _, v := range samples[:period] {
		sum += float64(v)
	}
	out[0] = sum
	for i := period; i < len(samples); i++ {
		out[i-period+1] = out[i-period] + float64(samples[i]) - float64(samples[i-period])
	}
	for i := range out {
		out[i] /= float64(period)
	}
	return out, nil
}

func toFloat64[T swma.Number](samples []T) []float64 {
	if f, ok := any(samples).([]float64); ok {
		return f
	}
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = float64(v)
	}
	return out
}
