package testsupport

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"projtrace/internal/diffimage"
)

// WritePNG16 stores img as a 16-bit grey PNG, rounding and clamping each
// intensity into the uint16 range.
func WritePNG16(t testing.TB, path string, img *diffimage.Image) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	out := image.NewGray16(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			v := math.Round(img.At(x, y))
			v = math.Max(0, math.Min(math.MaxUint16, v))
			out.SetGray16(x, y, color.Gray16{Y: uint16(v)})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, out); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}
