package infostore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"projtrace/internal/services"
)

// Record is the full derived state of one image.
type Record struct {
	Version        string               `json:"program_version"`
	Boxes          map[string]Box       `json:"boxes"`
	Peaks          map[string]PeakSet   `json:"peaks"`
	Histograms     map[string]Series    `json:"histograms"`
	HullRanges     map[string]HullRange `json:"hull_ranges"`
	HullHistograms map[string]Series    `json:"hull_histograms"`
	Fits           map[string]FitResult `json:"fit_results"`
	Subtracted     map[string]Series    `json:"subtracted_hists"`
	MovedPeaks     map[string][]int     `json:"moved_peaks"`
	Baselines      map[string]Series    `json:"baselines"`
	Summaries      map[string]Summary   `json:"summaries"`
	Globals        map[string]float64   `json:"globals"`
}

// New returns an empty record.
func New() *Record {
	r := &Record{}
	r.ensure()
	return r
}

// ensure allocates any nil map, e.g. after decoding an older file.
func (r *Record) ensure() {
	if r.Boxes == nil {
		r.Boxes = map[string]Box{}
	}
	if r.Peaks == nil {
		r.Peaks = map[string]PeakSet{}
	}
	if r.Histograms == nil {
		r.Histograms = map[string]Series{}
	}
	if r.HullRanges == nil {
		r.HullRanges = map[string]HullRange{}
	}
	if r.HullHistograms == nil {
		r.HullHistograms = map[string]Series{}
	}
	if r.Fits == nil {
		r.Fits = map[string]FitResult{}
	}
	if r.Subtracted == nil {
		r.Subtracted = map[string]Series{}
	}
	if r.MovedPeaks == nil {
		r.MovedPeaks = map[string][]int{}
	}
	if r.Baselines == nil {
		r.Baselines = map[string]Series{}
	}
	if r.Summaries == nil {
		r.Summaries = map[string]Summary{}
	}
	if r.Globals == nil {
		r.Globals = map[string]float64{}
	}
}

// UnmarshalJSON decodes a record and allocates any map the file omitted.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*r = Record(decoded)
	r.ensure()
	return nil
}

// BoxNames returns the box names in sorted order.
func (r *Record) BoxNames() []string {
	return slices.Sorted(maps.Keys(r.Boxes))
}

// HasBox reports whether name is a known box.
func (r *Record) HasBox(name string) bool {
	_, ok := r.Boxes[name]
	return ok
}

// Has reports whether stage is cached for name.
func (r *Record) Has(stage Stage, name string) bool {
	var ok bool
	switch stage {
	case StageHistogram:
		_, ok = r.Histograms[name]
	case StageHullRange:
		_, ok = r.HullRanges[name]
	case StageHullHistogram:
		_, ok = r.HullHistograms[name]
	case StageFit:
		_, ok = r.Fits[name]
	case StageSubtracted:
		_, ok = r.Subtracted[name]
	case StageMovedPeaks:
		_, ok = r.MovedPeaks[name]
	case StageBaselines:
		_, ok = r.Baselines[name]
	case StageSummary:
		_, ok = r.Summaries[name]
	}
	return ok
}

// SetBox inserts or updates a box. Moving the box clears everything known
// about it. With unchanged geometry, a new orientation invalidates from the
// histogram and a new method invalidates from the hull range. The histogram
// goes with the orientation because it is summed along the other axis.
func (r *Record) SetBox(name string, box Box) {
	current, ok := r.Boxes[name]
	switch {
	case !ok:
	case !current.SameGeometry(box):
		r.ClearBox(name)
	case current.Orientation != box.Orientation:
		r.Invalidate(name, StageHistogram)
	case current.Method != box.Method:
		r.Invalidate(name, StageHullRange)
	}
	r.Boxes[name] = box
}

// SetPeaks replaces the peak set of a known box. An equal set is a no-op;
// otherwise every stage from the hull range on is cleared. The raw
// histogram does not depend on peaks and is kept.
func (r *Record) SetPeaks(name string, peaks PeakSet) error {
	if !r.HasBox(name) {
		return services.Wrap(services.ErrNotFound, "infostore", "set peaks", fmt.Sprintf("unknown box %q", name), nil)
	}
	if current, ok := r.Peaks[name]; ok && current.Equal(peaks) {
		return nil
	}
	r.Invalidate(name, StageHullRange)
	r.Peaks[name] = peaks.clone()
	return nil
}

// SetHullRange stores an explicit hull range for a known box. A changed
// range invalidates the hull histogram and everything after it.
func (r *Record) SetHullRange(name string, hr HullRange) error {
	if !r.HasBox(name) {
		return services.Wrap(services.ErrNotFound, "infostore", "set hull range", fmt.Sprintf("unknown box %q", name), nil)
	}
	if current, ok := r.HullRanges[name]; ok && current == hr {
		return nil
	}
	r.Invalidate(name, StageHullHistogram)
	r.HullRanges[name] = hr
	return nil
}

// ClearBox removes a box, its peaks and every derived stage.
func (r *Record) ClearBox(name string) {
	r.Invalidate(name, StageHistogram)
	delete(r.Peaks, name)
	delete(r.Boxes, name)
}

// ClearStage removes a single stage for name.
func (r *Record) ClearStage(name string, stage Stage) {
	switch stage {
	case StageHistogram:
		delete(r.Histograms, name)
	case StageHullRange:
		delete(r.HullRanges, name)
	case StageHullHistogram:
		delete(r.HullHistograms, name)
	case StageFit:
		delete(r.Fits, name)
	case StageSubtracted:
		delete(r.Subtracted, name)
	case StageMovedPeaks:
		delete(r.MovedPeaks, name)
	case StageBaselines:
		delete(r.Baselines, name)
	case StageSummary:
		delete(r.Summaries, name)
	}
}

// Invalidate clears from and every downstream stage for name.
func (r *Record) Invalidate(name string, from Stage) {
	for _, stage := range from.Downstream() {
		r.ClearStage(name, stage)
	}
}

// Reconcile drops boxes missing from boxNames and peak sets missing from
// peakNames. A nil list leaves the corresponding set untouched.
func (r *Record) Reconcile(boxNames, peakNames []string) {
	if boxNames != nil {
		for _, name := range r.BoxNames() {
			if !slices.Contains(boxNames, name) {
				r.ClearBox(name)
			}
		}
	}
	if peakNames != nil {
		for _, name := range slices.Sorted(maps.Keys(r.Peaks)) {
			if !slices.Contains(peakNames, name) {
				r.Invalidate(name, StageHullRange)
				delete(r.Peaks, name)
			}
		}
	}
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	out := &Record{
		Version:    r.Version,
		Boxes:      maps.Clone(r.Boxes),
		HullRanges: maps.Clone(r.HullRanges),
		Globals:    maps.Clone(r.Globals),
		Peaks:      make(map[string]PeakSet, len(r.Peaks)),
		Fits:       make(map[string]FitResult, len(r.Fits)),
		MovedPeaks: make(map[string][]int, len(r.MovedPeaks)),
		Summaries:  make(map[string]Summary, len(r.Summaries)),
	}
	for k, v := range r.Peaks {
		out.Peaks[k] = v.clone()
	}
	for k, v := range r.Fits {
		out.Fits[k] = v.clone()
	}
	for k, v := range r.MovedPeaks {
		out.MovedPeaks[k] = slices.Clone(v)
	}
	for k, v := range r.Summaries {
		out.Summaries[k] = v.clone()
	}
	out.Histograms = cloneSeries(r.Histograms)
	out.HullHistograms = cloneSeries(r.HullHistograms)
	out.Subtracted = cloneSeries(r.Subtracted)
	out.Baselines = cloneSeries(r.Baselines)
	out.ensure()
	return out
}

// Equal reports whether both records serialise identically. NaN samples in
// the same position compare equal.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	a, errA := json.Marshal(r)
	b, errB := json.Marshal(o)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

func cloneSeries(m map[string]Series) map[string]Series {
	out := make(map[string]Series, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}
