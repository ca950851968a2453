package projection

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"projtrace/internal/histogram"
	"projtrace/internal/infostore"
	"projtrace/internal/logging"
	"projtrace/internal/services"
)

// histogramLength is the number of bins produced by a box.
func histogramLength(box infostore.Box) int {
	if box.Orientation == infostore.Vertical {
		return box.Height()
	}
	return box.Width()
}

// split is the bin index of the image centre within the box histogram.
func (p *Processor) split(box infostore.Box) int {
	if box.Orientation == infostore.Vertical {
		return p.image.Height/2 - box.Y[0]
	}
	return p.image.Width/2 - box.X[0]
}

// initialCenter is the geometric image centre in box coordinates.
func (p *Processor) initialCenter(box infostore.Box) float64 {
	if box.Orientation == infostore.Vertical {
		return float64(p.image.Height/2) - 0.5 - float64(box.Y[0])
	}
	return float64(p.image.Width/2) - 0.5 - float64(box.X[0])
}

// project sums the box along its short axis: horizontal boxes add up each
// column, vertical boxes each row.
func (p *Processor) project(box infostore.Box) infostore.Series {
	out := make(infostore.Series, histogramLength(box))
	for y := box.Y[0]; y <= box.Y[1]; y++ {
		for x := box.X[0]; x <= box.X[1]; x++ {
			v := p.image.At(x, y)
			if box.Orientation == infostore.Vertical {
				out[y-box.Y[0]] += v
			} else {
				out[x-box.X[0]] += v
			}
		}
	}
	return out
}

func (p *Processor) stageLogger(ctx context.Context, name string, stage infostore.Stage) *slog.Logger {
	ctx = services.WithStage(services.WithBox(ctx, name), stage.String())
	return logging.WithContext(ctx, p.logger)
}

func (p *Processor) hasPeaks(name string) bool {
	return len(p.rec.Peaks[name].Offsets) > 0
}

func (p *Processor) computeHistograms(ctx context.Context, report *Report) {
	for _, name := range p.rec.BoxNames() {
		if p.rec.Has(infostore.StageHistogram, name) {
			continue
		}
		p.rec.Histograms[name] = p.project(p.rec.Boxes[name])
		// The raw histogram feeds everything else for this box.
		p.rec.Invalidate(name, infostore.StageHullHistogram)
		report.add(infostore.StageHistogram, name)
		p.stageLogger(ctx, name, infostore.StageHistogram).Debug("histogram computed",
			logging.Int("bins", len(p.rec.Histograms[name])))
	}
}

// applyConvexHull fills the hull-adjusted histogram of every box. Boxes
// without the convex-hull method or without peaks pass the raw histogram
// through.
func (p *Processor) applyConvexHull(ctx context.Context, report *Report) error {
	for _, name := range p.rec.BoxNames() {
		if p.rec.Has(infostore.StageHullHistogram, name) {
			continue
		}
		box := p.rec.Boxes[name]
		hist := p.rec.Histograms[name]
		logger := p.stageLogger(ctx, name, infostore.StageHullHistogram)

		if box.Method != infostore.MethodHull || !p.hasPeaks(name) {
			p.rec.HullHistograms[name] = hist.Clone()
		} else {
			adjusted, hr, err := p.convexHull(name, box, hist)
			if err != nil {
				return services.Wrap(services.ErrValidation, infostore.StageHullHistogram.String(), "convex hull", fmt.Sprintf("box %q", name), err)
			}
			p.rec.HullHistograms[name] = adjusted
			logger.Debug("convex hull applied", logging.Int("start", hr.Start), logging.Int("end", hr.End))
		}
		p.rec.Invalidate(name, infostore.StageFit)
		report.add(infostore.StageHullHistogram, name)
	}
	return nil
}

// convexHull splits hist at the image centre, removes the lower hull of each
// branch over the hull range and joins the branches back together.
func (p *Processor) convexHull(name string, box infostore.Box, hist infostore.Series) (infostore.Series, infostore.HullRange, error) {
	c := p.split(box)
	if c <= 0 || c >= len(hist) {
		return nil, infostore.HullRange{}, fmt.Errorf("image centre %d outside histogram of %d bins", c, len(hist))
	}
	left := slices.Clone(hist[:c])
	slices.Reverse(left)
	right := hist[c:]

	hr, ok := p.rec.HullRanges[name]
	if !ok {
		hr = p.defaultHullRange(p.rec.Peaks[name].Offsets, min(len(left), len(right)))
		p.rec.HullRanges[name] = hr
	}

	leftHull, err := histogram.ConvexHull(left, hr.Start, hr.End)
	if err != nil {
		return nil, hr, err
	}
	rightHull, err := histogram.ConvexHull(right, hr.Start, hr.End)
	if err != nil {
		return nil, hr, err
	}
	slices.Reverse(leftHull)
	return append(infostore.Series(leftHull), rightHull...), hr, nil
}

func (p *Processor) fitModels(ctx context.Context, report *Report) {
	for _, name := range p.rec.BoxNames() {
		if !p.hasPeaks(name) || p.rec.Has(infostore.StageFit, name) || !p.rec.Has(infostore.StageHullHistogram, name) {
			continue
		}
		box := p.rec.Boxes[name]
		result := p.fitBox(box, p.rec.Peaks[name], p.rec.HullHistograms[name])
		p.rec.Fits[name] = result
		p.rec.Invalidate(name, infostore.StageSubtracted)
		report.add(infostore.StageFit, name)

		logger := p.stageLogger(ctx, name, infostore.StageFit)
		attrs := []logging.Attr{
			logging.Float64("error", result.Error),
			logging.Float64("center", result.Params.Center),
			logging.Int("iterations", result.Iterations),
			logging.Bool("converged", result.Converged),
		}
		if result.NonFinite > 0 {
			attrs = append(attrs, logging.Int("non_finite", result.NonFinite))
		}
		logger.Info("model fitted", logging.Args(attrs...)...)
		if !result.Converged {
			logging.WarnWithContext(ctx, logger, "fit did not converge", "fit_not_converged",
				logging.Float64("error", result.Error),
				logging.String(logging.FieldErrorHint, "check the peak offsets and box placement"),
				logging.String(logging.FieldImpact, "downstream results use the last parameters"))
		}
	}
}

func (p *Processor) subtractBackgrounds(ctx context.Context, report *Report) {
	for _, name := range p.rec.BoxNames() {
		if p.rec.Has(infostore.StageSubtracted, name) || !p.rec.Has(infostore.StageFit, name) {
			continue
		}
		hist := p.rec.HullHistograms[name]
		background := p.rec.Fits[name].Params.BackgroundCurve(len(hist))
		out := make(infostore.Series, len(hist))
		for i := range hist {
			out[i] = hist[i] - background[i]
		}
		p.rec.Subtracted[name] = out
		p.rec.Invalidate(name, infostore.StageMovedPeaks)
		report.add(infostore.StageSubtracted, name)
		p.stageLogger(ctx, name, infostore.StageSubtracted).Debug("background subtracted")
	}
}

// computePeakInfos locates peak apexes, default baselines and the
// centroid/width summary for every box with a subtracted histogram.
func (p *Processor) computePeakInfos(ctx context.Context, report *Report) error {
	for _, name := range p.rec.BoxNames() {
		if !p.rec.Has(infostore.StageSubtracted, name) {
			continue
		}
		hist := p.rec.Subtracted[name]
		params := p.rec.Fits[name].Params

		if !p.rec.Has(infostore.StageMovedPeaks, name) {
			estimates := make([]int, len(params.Peaks))
			for i, pk := range params.Peaks {
				estimates[i] = int(math.Round(params.Center + pk.Offset))
			}
			p.rec.MovedPeaks[name] = histogram.MovePeaks(hist, estimates, p.opts.PeakSearchWindow)
			p.rec.Invalidate(name, infostore.StageBaselines)
			report.add(infostore.StageMovedPeaks, name)
		}
		moved := p.rec.MovedPeaks[name]

		if !p.rec.Has(infostore.StageBaselines, name) {
			baselines := make(infostore.Series, len(moved))
			for i, pos := range moved {
				baselines[i] = heightAt(hist, pos) * 0.5
			}
			p.rec.Baselines[name] = baselines
			p.rec.Invalidate(name, infostore.StageSummary)
			report.add(infostore.StageBaselines, name)
		}

		if !p.rec.Has(infostore.StageSummary, name) {
			infos, err := histogram.PeakInfos(hist, moved, p.rec.Baselines[name])
			if err != nil {
				return services.Wrap(services.ErrValidation, infostore.StageSummary.String(), "peak info", fmt.Sprintf("box %q", name), err)
			}
			summary := infostore.Summary{
				Centroids: make(infostore.Series, len(infos)),
				Widths:    make(infostore.Series, len(infos)),
			}
			for i, info := range infos {
				summary.Centroids[i] = info.Centroid - params.Center
				summary.Widths[i] = info.Width
			}
			p.rec.Summaries[name] = summary
			report.add(infostore.StageSummary, name)
			p.stageLogger(ctx, name, infostore.StageSummary).Debug("peak summary computed",
				logging.Any("centroids", []float64(summary.Centroids)),
				logging.Any("widths", []float64(summary.Widths)))
		}
	}
	return nil
}

func heightAt(hist infostore.Series, pos int) float64 {
	if pos < 0 || pos >= len(hist) {
		return math.NaN()
	}
	return hist[pos]
}
