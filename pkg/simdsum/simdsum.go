// Package simdsum reduces a float64 buffer with interleaved partial sums.
//
// Lane i accumulates elements i, i+Lanes, i+2*Lanes, ... and the lane totals are
// folded in lane order before the remainder is added. The result is reproducible
// across calls but is not always bit-identical to a left-to-right sum, since
// floating-point addition is not associative.
package simdsum

const Lanes = 16

func Sum(values []float64) float64 {
	var acc [Lanes]float64

	n := len(values) - len(values)%Lanes
	for i := 0; i < n; i += Lanes {
		chunk := values[i : i+Lanes : i+Lanes]
		for l := range acc {
			acc[l] += chunk[l]
		}
	}

	remainder := 0.0
	for _, v := range values[n:] {
		remainder += v
	}

	reduced := 0.0
	for _, v := range acc {
		reduced += v
	}
	return reduced + remainder
}
