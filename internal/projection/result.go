package projection

import (
	"fmt"

	"projtrace/internal/infostore"
	"projtrace/internal/services"
)

// PeakResult is the per-peak read-back of a box.
type PeakResult struct {
	Index     int     `json:"index"`
	Offset    float64 `json:"offset"`
	Sigma     float64 `json:"sigma"`
	Amplitude float64 `json:"amplitude"`
	Position  int     `json:"moved_peak"`
	Baseline  float64 `json:"baseline"`
	Centroid  float64 `json:"centroid"`
	Width     float64 `json:"width"`
}

// BoxResult collects the fit and peak statistics of one box.
type BoxResult struct {
	Name      string               `json:"name"`
	Box       infostore.Box        `json:"box"`
	HullRange *infostore.HullRange `json:"hull_range,omitempty"`
	Center    float64              `json:"center"`
	Error     float64              `json:"error"`
	Converged bool                 `json:"converged"`
	Peaks     []PeakResult         `json:"peaks"`
}

// Result returns the computed statistics of box. It fails with
// services.ErrNotFound when the box is unknown or has no summary yet.
func (p *Processor) Result(box string) (BoxResult, error) {
	b, ok := p.rec.Boxes[box]
	if !ok {
		return BoxResult{}, services.Wrap(services.ErrNotFound, "result", "lookup", fmt.Sprintf("unknown box %q", box), nil)
	}
	summary, ok := p.rec.Summaries[box]
	if !ok {
		return BoxResult{}, services.Wrap(services.ErrNotFound, "result", "lookup", fmt.Sprintf("box %q has no results", box), nil)
	}
	fitted := p.rec.Fits[box]
	moved := p.rec.MovedPeaks[box]
	baselines := p.rec.Baselines[box]

	out := BoxResult{
		Name:      box,
		Box:       b,
		Center:    fitted.Params.Center,
		Error:     fitted.Error,
		Converged: fitted.Converged,
		Peaks:     make([]PeakResult, len(fitted.Params.Peaks)),
	}
	if hr, ok := p.rec.HullRanges[box]; ok {
		out.HullRange = &hr
	}
	for i, pk := range fitted.Params.Peaks {
		out.Peaks[i] = PeakResult{
			Index:     i,
			Offset:    pk.Offset,
			Sigma:     pk.Sigma,
			Amplitude: pk.Amplitude,
			Position:  at(moved, i),
			Baseline:  atSeries(baselines, i),
			Centroid:  atSeries(summary.Centroids, i),
			Width:     atSeries(summary.Widths, i),
		}
	}
	return out, nil
}

// Results returns every box that has a summary, sorted by name.
func (p *Processor) Results() []BoxResult {
	var out []BoxResult
	for _, name := range p.rec.BoxNames() {
		if r, err := p.Result(name); err == nil {
			out = append(out, r)
		}
	}
	return out
}

func at(values []int, i int) int {
	if i < len(values) {
		return values[i]
	}
	return -1
}

func atSeries(values infostore.Series, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}
