package projection

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"projtrace/internal/infostore"
	"projtrace/internal/model"
	"projtrace/internal/services"
)

// Settings is one update from the caller. A nil map means the caller did
// not supply that group and the stored values are kept; a non-nil map is
// the complete new set, so names missing from it are deleted.
type Settings struct {
	Boxes map[string]infostore.Box
	Peaks map[string]infostore.PeakSet
	// HullRanges overrides the computed hull window for convex-hull boxes.
	HullRanges map[string]infostore.HullRange
	// Globals are merged key by key (calibration constants and the like).
	Globals map[string]float64
}

// merge applies s to rec. rec is expected to be a scratch copy: on error it
// may be partially updated.
func (p *Processor) merge(rec *infostore.Record, s Settings) error {
	if s.Boxes != nil {
		names := sortedNames(s.Boxes)
		rec.Reconcile(names, nil)
		for _, name := range names {
			box := s.Boxes[name]
			if err := p.validateBox(name, box); err != nil {
				return err
			}
			rec.SetBox(name, box)
		}
	}

	if s.Peaks != nil {
		names := sortedNames(s.Peaks)
		rec.Reconcile(nil, names)
		for _, name := range names {
			peaks := s.Peaks[name]
			if peaks.Shape == "" {
				peaks.Shape = model.ShapeGaussian
			}
			if err := validatePeaks(name, peaks); err != nil {
				return err
			}
			if err := rec.SetPeaks(name, peaks); err != nil {
				return services.Wrap(services.ErrValidation, "settings", "peaks", fmt.Sprintf("box %q", name), err)
			}
		}
	}

	for _, name := range sortedNames(s.HullRanges) {
		if err := rec.SetHullRange(name, s.HullRanges[name]); err != nil {
			return services.Wrap(services.ErrValidation, "settings", "hull range", fmt.Sprintf("box %q", name), err)
		}
	}

	for _, key := range sortedNames(s.Globals) {
		if v := s.Globals[key]; math.IsNaN(v) || math.IsInf(v, 0) {
			return services.Wrap(services.ErrValidation, "settings", "global", fmt.Sprintf("%q is %v", key, v), nil)
		}
	}
	maps.Copy(rec.Globals, s.Globals)

	for _, name := range rec.BoxNames() {
		if err := p.checkHullRange(rec, name); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) validateBox(name string, box infostore.Box) error {
	invalid := func(format string, args ...any) error {
		return services.Wrap(services.ErrValidation, "settings", "box", fmt.Sprintf("box %q: "+format, append([]any{name}, args...)...), nil)
	}
	if name == "" {
		return invalid("empty name")
	}
	if box.Orientation != infostore.Horizontal && box.Orientation != infostore.Vertical {
		return invalid("unknown orientation %q", box.Orientation)
	}
	if box.Method != infostore.MethodFit && box.Method != infostore.MethodHull {
		return invalid("unknown background method %q", box.Method)
	}
	if box.X[0] > box.X[1] || box.Y[0] > box.Y[1] {
		return invalid("inverted coordinates x=%v y=%v", box.X, box.Y)
	}
	if !p.image.Contains(box.X[0], box.X[1], box.Y[0], box.Y[1]) {
		return invalid("x=%v y=%v outside %dx%d image", box.X, box.Y, p.image.Width, p.image.Height)
	}
	return nil
}

func validatePeaks(name string, peaks infostore.PeakSet) error {
	if peaks.Shape != model.ShapeGaussian && peaks.Shape != model.ShapeVoigt {
		return services.Wrap(services.ErrValidation, "settings", "peaks", fmt.Sprintf("box %q: unknown shape %q", name, peaks.Shape), nil)
	}
	for i, off := range peaks.Offsets {
		if math.IsNaN(off) || math.IsInf(off, 0) {
			return services.Wrap(services.ErrValidation, "settings", "peaks", fmt.Sprintf("box %q: peak %d is not finite", name, i), nil)
		}
	}
	return nil
}

// checkHullRange rejects convex-hull boxes whose hull window cannot be
// applied to both branches of the histogram.
func (p *Processor) checkHullRange(rec *infostore.Record, name string) error {
	box := rec.Boxes[name]
	peaks := rec.Peaks[name]
	if box.Method != infostore.MethodHull || len(peaks.Offsets) == 0 {
		return nil
	}
	split, n := p.split(box), histogramLength(box)
	branch := min(split, n-split)
	hr, ok := rec.HullRanges[name]
	if !ok {
		hr = p.defaultHullRange(peaks.Offsets, branch)
	}
	if hr.Start < 0 || hr.Start >= hr.End || hr.End > branch {
		return services.Wrap(services.ErrValidation, "settings", "hull range",
			fmt.Sprintf("box %q: hull range [%d, %d) does not fit branches of length %d", name, hr.Start, hr.End, branch), nil)
	}
	return nil
}

// defaultHullRange spans the peaks plus a margin, never starting before
// HullMinStart and never running past the shorter branch.
func (p *Processor) defaultHullRange(offsets []float64, branch int) infostore.HullRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, off := range offsets {
		a := math.Abs(off)
		lo = math.Min(lo, a)
		hi = math.Max(hi, a)
	}
	return infostore.HullRange{
		Start: max(int(math.Round(lo))-p.opts.HullMargin, p.opts.HullMinStart),
		End:   min(int(math.Round(hi))+p.opts.HullMargin, branch),
	}
}

// sortedNames returns the keys of m in order. The result is never nil so an
// empty map still means "delete everything" to Reconcile.
func sortedNames[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
