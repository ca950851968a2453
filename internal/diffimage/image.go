// Package diffimage loads diffraction images as float intensity grids.
package diffimage

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"math"
	"os"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

// Image is a row-major grid of intensities.
type Image struct {
	Width  int
	Height int
	Pix    []float64
}

// New allocates a zeroed w×h image.
func New(w, h int) *Image {
	return &Image{Width: w, Height: h, Pix: make([]float64, w*h)}
}

// FromRows builds an image from equal-length rows.
func FromRows(rows [][]float64) (*Image, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.New("diffimage: empty image")
	}
	w := len(rows[0])
	img := New(w, len(rows))
	for y, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("diffimage: row %d has %d columns, want %d", y, len(row), w)
		}
		copy(img.Pix[y*w:(y+1)*w], row)
	}
	return img, nil
}

// At returns the intensity at column x, row y.
func (m *Image) At(x, y int) float64 { return m.Pix[y*m.Width+x] }

// Set stores v at column x, row y.
func (m *Image) Set(x, y int, v float64) { m.Pix[y*m.Width+x] = v }

// Contains reports whether the inclusive pixel ranges lie inside the image.
func (m *Image) Contains(x0, x1, y0, y1 int) bool {
	return x0 >= 0 && y0 >= 0 && x0 <= x1 && y0 <= y1 && x1 < m.Width && y1 < m.Height
}

// Load decodes a PNG, TIFF, BMP or JPEG file. Grey images keep their full
// bit depth; colour images are reduced to 16-bit luminance.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	src, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	img := FromImage(src)
	if img.Width == 0 || img.Height == 0 {
		return nil, fmt.Errorf("decode image %s: empty %s image", path, format)
	}
	return img, nil
}

// FromImage converts any decoded image into intensities.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	img := New(b.Dx(), b.Dy())
	switch s := src.(type) {
	case *image.Gray16:
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				img.Set(x, y, float64(s.Gray16At(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
	case *image.Gray:
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				img.Set(x, y, float64(s.GrayAt(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
	default:
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				g := color.Gray16Model.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				img.Set(x, y, float64(g.Y))
			}
		}
	}
	return img
}

// Gray16 renders the image scaled linearly from its finite minimum to maximum.
func (m *Image) Gray16() *image.Gray16 {
	out := image.NewGray16(image.Rect(0, 0, m.Width, m.Height))
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range m.Pix {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			v := m.At(x, y)
			var level uint16
			if span > 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
				level = uint16(math.Round((v - lo) / span * math.MaxUint16))
			}
			out.SetGray16(x, y, color.Gray16{Y: level})
		}
	}
	return out
}
