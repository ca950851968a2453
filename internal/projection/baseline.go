package projection

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"projtrace/internal/infostore"
	"projtrace/internal/logging"
	"projtrace/internal/services"
)

// SetBaseline changes the baseline of one peak. value is an absolute
// intensity, a percentage of the peak height such as "40%", or empty for
// half height. The new baseline must lie strictly below the peak height;
// otherwise nothing changes and false is returned. An accepted baseline
// clears the box summary, which the next Process call recomputes.
func (p *Processor) SetBaseline(ctx context.Context, box string, peak int, value string) (bool, error) {
	if !p.rec.HasBox(box) {
		return false, services.Wrap(services.ErrNotFound, "baseline", "set", fmt.Sprintf("unknown box %q", box), nil)
	}
	moved, ok := p.rec.MovedPeaks[box]
	baselines, hasBaselines := p.rec.Baselines[box]
	hist, hasHist := p.rec.Subtracted[box]
	if !ok || !hasBaselines || !hasHist {
		return false, services.Wrap(services.ErrNotFound, "baseline", "set", fmt.Sprintf("box %q has no peak results", box), nil)
	}
	if peak < 0 || peak >= len(moved) || peak >= len(baselines) {
		return false, services.Wrap(services.ErrNotFound, "baseline", "set", fmt.Sprintf("box %q has no peak %d", box, peak), nil)
	}

	height := heightAt(hist, moved[peak])
	baseline, err := parseBaseline(value, height)
	if err != nil {
		return false, services.Wrap(services.ErrValidation, "baseline", "parse", fmt.Sprintf("value %q", value), err)
	}

	ctx = services.WithBox(ctx, box)
	logger := logging.WithContext(ctx, p.logger)
	if !(height > baseline) {
		logger.Info("baseline rejected",
			logging.Int("peak", peak),
			logging.Float64("height", height),
			logging.Float64("baseline", baseline))
		return false, nil
	}

	updated := baselines.Clone()
	updated[peak] = baseline
	p.rec.Baselines[box] = updated
	p.rec.Invalidate(box, infostore.StageSummary)
	logger.Info("baseline updated", logging.Int("peak", peak), logging.Float64("baseline", baseline))
	return true, nil
}

func parseBaseline(value string, height float64) (float64, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return height * 0.5, nil
	case strings.Contains(value, "%"):
		percent, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimRight(value, "%")), 64)
		if err != nil {
			return 0, err
		}
		return height * percent / 100, nil
	default:
		return strconv.ParseFloat(value, 64)
	}
}
