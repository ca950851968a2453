package infostore

import "fmt"

// Stage identifies one derived artifact in the processing chain.
type Stage int

const (
	StageHistogram Stage = iota
	StageHullRange
	StageHullHistogram
	StageFit
	StageSubtracted
	StageMovedPeaks
	StageBaselines
	StageSummary
)

var stageNames = [...]string{
	StageHistogram:     "histogram",
	StageHullRange:     "hull_range",
	StageHullHistogram: "hull_histogram",
	StageFit:           "fit",
	StageSubtracted:    "subtracted",
	StageMovedPeaks:    "moved_peaks",
	StageBaselines:     "baselines",
	StageSummary:       "summary",
}

// Stages returns every stage in dependency order.
func Stages() []Stage {
	out := make([]Stage, 0, len(stageNames))
	for s := StageHistogram; s <= StageSummary; s++ {
		out = append(out, s)
	}
	return out
}

// Valid reports whether s names a known stage.
func (s Stage) Valid() bool {
	return s >= StageHistogram && s <= StageSummary
}

func (s Stage) String() string {
	if !s.Valid() {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Downstream returns s and every stage that depends on it.
func (s Stage) Downstream() []Stage {
	if !s.Valid() {
		return nil
	}
	out := make([]Stage, 0, int(StageSummary-s)+1)
	for st := s; st <= StageSummary; st++ {
		out = append(out, st)
	}
	return out
}
