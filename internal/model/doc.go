// Package model defines the layer-line curve used to fit projection
// histograms: a constant offset, a broad Gaussian background and two
// meridian Gaussians centred on the box centre, plus one symmetric pair of
// Gaussian or Voigt terms per peak offset.
package model
