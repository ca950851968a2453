package infostore

import (
	"fmt"
	"slices"
	"strings"

	"projtrace/internal/model"
)

// Orientation is the long axis of a box. Horizontal boxes are projected onto
// x (pixel rows summed), vertical boxes onto y.
type Orientation string

const (
	Horizontal Orientation = "h"
	Vertical   Orientation = "v"
)

// ParseOrientation accepts h/horizontal and v/vertical.
func ParseOrientation(value string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "h", "horizontal":
		return Horizontal, nil
	case "v", "vertical":
		return Vertical, nil
	default:
		return "", fmt.Errorf("unknown orientation %q", value)
	}
}

// Method is the background subtraction strategy of a box.
type Method string

const (
	// MethodFit models the background with the broad and meridian Gaussians.
	MethodFit Method = "fit"
	// MethodHull removes a convex-hull lower envelope before fitting.
	MethodHull Method = "hull"
)

// ParseMethod accepts fit/fit-background and hull/convex-hull.
func ParseMethod(value string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "fit", "fit-background":
		return MethodFit, nil
	case "hull", "convex-hull", "convexhull":
		return MethodHull, nil
	default:
		return "", fmt.Errorf("unknown background method %q", value)
	}
}

// Box is a rectangular region of the image. X and Y are inclusive pixel
// ranges.
type Box struct {
	X           [2]int      `json:"x"`
	Y           [2]int      `json:"y"`
	Orientation Orientation `json:"orientation"`
	Method      Method      `json:"method"`
}

// SameGeometry reports whether b and o cover the same pixels.
func (b Box) SameGeometry(o Box) bool {
	return b.X == o.X && b.Y == o.Y
}

// Width is the number of columns covered by the box.
func (b Box) Width() int { return b.X[1] - b.X[0] + 1 }

// Height is the number of rows covered by the box.
func (b Box) Height() int { return b.Y[1] - b.Y[0] + 1 }

// PeakSet is the ordered list of peak offsets from the box centre.
type PeakSet struct {
	Offsets []float64   `json:"offsets"`
	Shape   model.Shape `json:"shape"`
}

// Equal compares offsets element-wise and the shape.
func (p PeakSet) Equal(o PeakSet) bool {
	return p.Shape == o.Shape && slices.Equal(p.Offsets, o.Offsets)
}

func (p PeakSet) clone() PeakSet {
	p.Offsets = slices.Clone(p.Offsets)
	return p
}

// HullRange is the half-open index window [Start, End) used on each branch
// of a convex-hull box.
type HullRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FitResult is a fitted parameter set plus its quality score.
type FitResult struct {
	Params model.Params `json:"params"`
	// Error is 1 - R² of the fitted curve against the fitted histogram.
	Error      float64 `json:"error"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
	NonFinite  int     `json:"non_finite,omitempty"`
}

func (f FitResult) clone() FitResult {
	f.Params = f.Params.Clone()
	return f
}

// Summary holds per-peak centroids (relative to the fitted centre) and
// widths.
type Summary struct {
	Centroids Series `json:"centroids"`
	Widths    Series `json:"widths"`
}

func (s Summary) clone() Summary {
	return Summary{Centroids: s.Centroids.Clone(), Widths: s.Widths.Clone()}
}
