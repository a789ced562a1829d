// Package source turns files and generators into ordered sample sequences.
package source

import (
	"encoding/csv"
	"io"
	"iter"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// CSV yields the first column of every data row as a float64. The header row is
// skipped. Rows that fail to read or parse are yielded with a non-nil error so a
// consumer can decide to drop them; reading stops at the first I/O error that is
// not a per-row format problem.
func CSV(r io.Reader) iter.Seq2[float64, error] {
	return func(yield func(float64, error) bool) {
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.ReuseRecord = true

		header := true
		for {
			record, err := cr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				var parseErr *csv.ParseError
				if !errors.As(err, &parseErr) {
					yield(0, errors.Wrap(err, "read csv"))
					return
				}
				if !yield(0, errors.Wrap(err, "parse csv row")) {
					return
				}
				continue
			}
			if header {
				header = false
				continue
			}
			line, _ := cr.FieldPos(0)
			if len(record) == 0 {
				if !yield(0, errors.Errorf("line %d: empty row", line)) {
					return
				}
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
			if err != nil {
				if !yield(0, errors.Wrapf(err, "line %d", line)) {
					return
				}
				continue
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Floats is CSV with malformed rows filtered out.
func Floats(r io.Reader) iter.Seq[float64] {
	return Valid(CSV(r))
}

// Valid drops every element that carries an error.
func Valid[T any](seq iter.Seq2[T, error]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v, err := range seq {
			if err != nil {
				slog.Debug("skipping sample", "error", err, "module", "source")
				continue
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Generate yields n synthetic samples: value(i) = i/7 + i%7 for i in 1..n.
func Generate(n int) iter.Seq[float64] {
	return func(yield func(float64) bool) {
		for i := 1; i <= n; i++ {
			if !yield(float64(i/7 + i%7)) {
				return
			}
		}
	}
}

// Infallible adapts a sequence that cannot fail to the fallible form used by
// channel pipelines.
func Infallible[T any](seq iter.Seq[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for v := range seq {
			if !yield(v, nil) {
				return
			}
		}
	}
}

func Slice[T any](s []T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, v := range s {
			if !yield(v, nil) {
				return
			}
		}
	}
}
