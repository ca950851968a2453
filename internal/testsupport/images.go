package testsupport

import (
	"math"

	"projtrace/internal/diffimage"
)

// Peak describes one symmetric pair of Gaussian lines at center±Offset.
// Amplitude is the area of each line in a single row.
type Peak struct {
	Offset    float64
	Sigma     float64
	Amplitude float64
}

// Profile samples n bins of a constant base plus the symmetric peak pairs.
func Profile(n int, center, base float64, peaks ...Peak) []float64 {
	out := make([]float64, n)
	for i := range out {
		x := float64(i)
		v := base
		for _, p := range peaks {
			v += gaussian(x, p.Amplitude, center+p.Offset, p.Sigma)
			v += gaussian(x, p.Amplitude, center-p.Offset, p.Sigma)
		}
		out[i] = v
	}
	return out
}

// HorizontalImage repeats profile on every one of rows rows, so a
// horizontal box spanning all rows projects to rows*profile.
func HorizontalImage(profile []float64, rows int) *diffimage.Image {
	img := diffimage.New(len(profile), rows)
	for y := 0; y < rows; y++ {
		copy(img.Pix[y*img.Width:(y+1)*img.Width], profile)
	}
	return img
}

// VerticalImage repeats profile down every one of cols columns.
func VerticalImage(profile []float64, cols int) *diffimage.Image {
	img := diffimage.New(cols, len(profile))
	for y, v := range profile {
		for x := 0; x < cols; x++ {
			img.Set(x, y, v)
		}
	}
	return img
}

// Uniform returns a w×h image filled with v.
func Uniform(w, h int, v float64) *diffimage.Image {
	img := diffimage.New(w, h)
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func gaussian(x, amplitude, center, sigma float64) float64 {
	d := x - center
	return amplitude / (sigma * math.Sqrt(2*math.Pi)) * math.Exp(-d*d/(2*sigma*sigma))
}
