package rollavg

import (
	"math"

	"github.com/pkg/errors"
)

var (
	errMismatch = errors.New("batch strategies produced different averages")
	errNoBroker = errors.New("mqtt-source-topic requires mqtt-broker")
)

// Compare reports the first index where a and b differ by more than the relative
// tolerance, or where their lengths differ.
func Compare(a, b []float64, tolerance float64) (int, bool) {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		scale := math.Max(1, math.Max(math.Abs(a[i]), math.Abs(b[i])))
		if math.Abs(a[i]-b[i]) > tolerance*scale {
			return i, false
		}
	}
	if len(a) != len(b) {
		return n, false
	}
	return -1, true
}
