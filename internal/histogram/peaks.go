package histogram

import (
	"fmt"
	"math"
)

// MovePeaks refines each estimate to the nearest local maximum of hist by
// climbing towards the larger neighbour, never straying more than window
// samples from the estimate. Estimates outside the signal are clamped first.
func MovePeaks(hist []float64, peaks []int, window int) []int {
	moved := make([]int, len(peaks))
	n := len(hist)
	if n == 0 {
		return moved
	}
	for k, p := range peaks {
		p = clamp(p, 0, n-1)
		lo := max(p-window, 0)
		hi := min(p+window, n-1)
		pos := p
		for {
			next := pos
			if pos > lo && greater(hist[pos-1], hist[next]) {
				next = pos - 1
			}
			if pos < hi && greater(hist[pos+1], hist[next]) {
				next = pos + 1
			}
			if next == pos {
				break
			}
			pos = next
		}
		moved[k] = pos
	}
	return moved
}

// greater treats NaN as smaller than every number so climbs never stall on it.
func greater(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a > b
}

// Info summarises one peak relative to its baseline.
type Info struct {
	// Left and Right are the interpolated positions where the signal drops
	// to the baseline on either side of the peak.
	Left     float64
	Right    float64
	Centroid float64
	Width    float64
}

// PeakInfo measures the region around peak where hist exceeds baseline.
// When nothing rises above the baseline the centroid falls back to the peak
// position and the width is zero.
func PeakInfo(hist []float64, peak int, baseline float64) Info {
	n := len(hist)
	if n == 0 {
		return Info{Left: float64(peak), Right: float64(peak), Centroid: float64(peak)}
	}
	peak = clamp(peak, 0, n-1)
	if !(hist[peak] > baseline) {
		return Info{Left: float64(peak), Right: float64(peak), Centroid: float64(peak)}
	}

	left := 0.0
	lo := 0
	for i := peak; i > 0; i-- {
		if !(hist[i-1] > baseline) {
			left = crossing(i-1, hist[i-1], i, hist[i], baseline)
			lo = i
			break
		}
	}

	right := float64(n - 1)
	hi := n - 1
	for i := peak; i < n-1; i++ {
		if !(hist[i+1] > baseline) {
			right = crossing(i, hist[i], i+1, hist[i+1], baseline)
			hi = i
			break
		}
	}

	var num, den float64
	for i := lo; i <= hi; i++ {
		w := hist[i] - baseline
		if !(w > 0) {
			continue
		}
		num += float64(i) * w
		den += w
	}
	if den <= 0 {
		return Info{Left: left, Right: right, Centroid: float64(peak)}
	}
	return Info{Left: left, Right: right, Centroid: num / den, Width: right - left}
}

// PeakInfos applies PeakInfo to each peak with its matching baseline.
func PeakInfos(hist []float64, peaks []int, baselines []float64) ([]Info, error) {
	if len(peaks) != len(baselines) {
		return nil, fmt.Errorf("histogram: %d peaks but %d baselines", len(peaks), len(baselines))
	}
	infos := make([]Info, len(peaks))
	for i, p := range peaks {
		infos[i] = PeakInfo(hist, p, baselines[i])
	}
	return infos, nil
}

// crossing returns the x where the segment (x0,y0)-(x1,y1) meets level.
func crossing(x0 int, y0 float64, x1 int, y1 float64, level float64) float64 {
	if !isFinite(y0) || !isFinite(y1) || y1 == y0 {
		return float64(x1)
	}
	t := (level - y0) / (y1 - y0)
	return float64(x0) + t*float64(x1-x0)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
