package model

import (
	"fmt"
	"strings"
)

// Shape selects the line profile used for peak terms.
type Shape string

const (
	ShapeGaussian Shape = "gaussian"
	ShapeVoigt    Shape = "voigt"
)

// ParseShape normalises a user supplied shape name. Empty selects Gaussian.
func ParseShape(value string) (Shape, error) {
	switch Shape(strings.ToLower(strings.TrimSpace(value))) {
	case "", ShapeGaussian:
		return ShapeGaussian, nil
	case ShapeVoigt:
		return ShapeVoigt, nil
	default:
		return "", fmt.Errorf("unknown peak shape %q", value)
	}
}

// Background holds the terms shared by every peak: a constant line, the
// broad background Gaussian and the two meridian Gaussians. All of them are
// centred on Params.Center.
type Background struct {
	Line               float64 `json:"bg_line"`
	Sigma              float64 `json:"bg_sigma"`
	Amplitude          float64 `json:"bg_amplitude"`
	MeridianSigma1     float64 `json:"center_sigma1"`
	MeridianAmplitude1 float64 `json:"center_amplitude1"`
	MeridianSigma2     float64 `json:"center_sigma2"`
	MeridianAmplitude2 float64 `json:"center_amplitude2"`
}

// PinnedBackground is the background used once convex-hull subtraction has
// already removed the smooth component: zero amplitudes and unit widths.
func PinnedBackground() Background {
	return Background{Sigma: 1, MeridianSigma1: 1, MeridianSigma2: 1}
}

// Peak is one symmetric pair of terms at Center+Offset and Center-Offset.
// Gamma is only used by the Voigt shape.
type Peak struct {
	Offset    float64 `json:"p"`
	Sigma     float64 `json:"sigma"`
	Amplitude float64 `json:"amplitude"`
	Gamma     float64 `json:"gamma,omitempty"`
}

// Params is a full parameter set for the layer-line curve.
type Params struct {
	Center     float64    `json:"centerX"`
	Shape      Shape      `json:"shape"`
	Background Background `json:"background"`
	Peaks      []Peak     `json:"peaks"`
}

// Clone returns a deep copy of p.
func (p Params) Clone() Params {
	out := p
	if p.Peaks != nil {
		out.Peaks = make([]Peak, len(p.Peaks))
		copy(out.Peaks, p.Peaks)
	}
	return out
}
