package diffimage

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// SavePreview crops the inclusive pixel ranges out of the image, enlarges the
// crop by an integer factor and writes it to path. The output format follows
// the file extension.
func SavePreview(m *Image, x0, x1, y0, y1, scale int, path string) error {
	if !m.Contains(x0, x1, y0, y1) {
		return fmt.Errorf("preview: region x=[%d,%d] y=[%d,%d] outside %dx%d image", x0, x1, y0, y1, m.Width, m.Height)
	}
	if scale < 1 {
		scale = 1
	}
	crop := imaging.Crop(m.Gray16(), image.Rect(x0, y0, x1+1, y1+1))
	if scale > 1 {
		crop = imaging.Resize(crop, crop.Bounds().Dx()*scale, crop.Bounds().Dy()*scale, imaging.NearestNeighbor)
	}
	if err := imaging.Save(crop, path); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}
