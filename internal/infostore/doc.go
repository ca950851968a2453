// Package infostore holds every artifact derived from one diffraction image,
// keyed by box name and grouped per pipeline stage.
//
// Stages form a chain (histogram, hull range, hull histogram, fit,
// subtracted histogram, moved peaks, baselines, summary). Invalidating a
// stage for a box clears that stage and every later one for the same box,
// never an earlier one. All mutation of box geometry and peak sets goes
// through SetBox, SetPeaks, SetHullRange and Reconcile so the cascade is
// applied consistently.
package infostore
