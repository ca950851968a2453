package histogram

import (
	"errors"
	"fmt"
	"math"
)

// ErrRange reports a hull domain that is empty or falls outside the signal.
var ErrRange = errors.New("histogram: invalid hull range")

// ConvexHull removes the lower convex envelope of hist over [start, end).
// The result has the same length as hist; samples inside the range hold
// hist minus the envelope and samples outside it are zero. Non-finite samples
// are ignored when building the envelope and propagate into the result.
func ConvexHull(hist []float64, start, end int) ([]float64, error) {
	if start < 0 || start >= end || end > len(hist) {
		return nil, fmt.Errorf("%w: [%d, %d) over %d samples", ErrRange, start, end, len(hist))
	}

	hull := lowerHull(hist, start, end)
	out := make([]float64, len(hist))
	if len(hull) == 0 {
		for i := start; i < end; i++ {
			out[i] = hist[i]
		}
		return out, nil
	}

	seg := 0
	for i := start; i < end; i++ {
		for seg < len(hull)-2 && i > hull[seg+1] {
			seg++
		}
		out[i] = hist[i] - envelopeAt(hist, hull, seg, i)
	}
	return out, nil
}

// lowerHull returns the indices of the lower convex hull vertices in
// ascending order (Andrew's monotone chain, lower half only).
func lowerHull(hist []float64, start, end int) []int {
	hull := make([]int, 0, 16)
	for i := start; i < end; i++ {
		if !isFinite(hist[i]) {
			continue
		}
		for len(hull) >= 2 {
			a, b := hull[len(hull)-2], hull[len(hull)-1]
			if cross(a, hist[a], b, hist[b], i, hist[i]) > 0 {
				break
			}
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, i)
	}
	return hull
}

// envelopeAt linearly interpolates the hull segment seg at index i. Samples
// before the first vertex or after the last one take the nearest vertex value.
func envelopeAt(hist []float64, hull []int, seg, i int) float64 {
	if len(hull) == 1 {
		return hist[hull[0]]
	}
	first, last := hull[0], hull[len(hull)-1]
	switch {
	case i <= first:
		return hist[first]
	case i >= last:
		return hist[last]
	}
	a, b := hull[seg], hull[seg+1]
	t := float64(i-a) / float64(b-a)
	return hist[a] + t*(hist[b]-hist[a])
}

func cross(ax int, ay float64, bx int, by float64, cx int, cy float64) float64 {
	return float64(bx-ax)*(cy-ay) - (by-ay)*float64(cx-ax)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
