package infostore

import (
	"encoding/json"
	"errors"
	"math"
	"slices"
	"testing"

	"projtrace/internal/model"
	"projtrace/internal/services"
)

// populated returns a record where box "a" has every stage cached and box
// "b" only has a histogram.
func populated() *Record {
	r := New()
	r.SetBox("a", Box{X: [2]int{10, 90}, Y: [2]int{40, 60}, Orientation: Horizontal, Method: MethodFit})
	r.SetBox("b", Box{X: [2]int{45, 55}, Y: [2]int{0, 99}, Orientation: Vertical, Method: MethodHull})
	_ = r.SetPeaks("a", PeakSet{Offsets: []float64{12, 25}, Shape: model.ShapeGaussian})
	r.Histograms["a"] = Series{1, 2, 3}
	r.HullRanges["a"] = HullRange{Start: 10, End: 40}
	r.HullHistograms["a"] = Series{1, 2, 3}
	r.Fits["a"] = FitResult{Params: model.Params{Center: 40, Peaks: []model.Peak{{Offset: 12}}}, Error: 0.1}
	r.Subtracted["a"] = Series{0, 1, 0}
	r.MovedPeaks["a"] = []int{52, 65}
	r.Baselines["a"] = Series{0.5, 0.5}
	r.Summaries["a"] = Summary{Centroids: Series{12, 25}, Widths: Series{3, 4}}
	r.Histograms["b"] = Series{4, 5}
	return r
}

func cachedStages(r *Record, name string) []Stage {
	var out []Stage
	for _, s := range Stages() {
		if r.Has(s, name) {
			out = append(out, s)
		}
	}
	return out
}

func TestSetBoxMovedClearsEverything(t *testing.T) {
	r := populated()
	r.SetBox("a", Box{X: [2]int{11, 90}, Y: [2]int{40, 60}, Orientation: Horizontal, Method: MethodFit})

	if got := cachedStages(r, "a"); len(got) != 0 {
		t.Fatalf("stages after move = %v, want none", got)
	}
	if _, ok := r.Peaks["a"]; ok {
		t.Fatal("peaks should be cleared when the box moves")
	}
	if !r.HasBox("a") {
		t.Fatal("box should be re-inserted")
	}
	if !r.Has(StageHistogram, "b") {
		t.Fatal("other boxes must be untouched")
	}
}

func TestSetBoxMethodChangeKeepsHistogram(t *testing.T) {
	r := populated()
	r.SetBox("a", Box{X: [2]int{10, 90}, Y: [2]int{40, 60}, Orientation: Horizontal, Method: MethodHull})

	if got := cachedStages(r, "a"); !slices.Equal(got, []Stage{StageHistogram}) {
		t.Fatalf("stages after method change = %v, want [histogram]", got)
	}
	if r.Boxes["a"].Method != MethodHull {
		t.Fatalf("method not updated: %+v", r.Boxes["a"])
	}
	if _, ok := r.Peaks["a"]; !ok {
		t.Fatal("peaks should survive a method change")
	}
}

func TestSetBoxOrientationChangeClearsHistogram(t *testing.T) {
	r := populated()
	r.SetBox("a", Box{X: [2]int{10, 90}, Y: [2]int{40, 60}, Orientation: Vertical, Method: MethodFit})
	if got := cachedStages(r, "a"); len(got) != 0 {
		t.Fatalf("stages after orientation change = %v, want none", got)
	}
}

func TestSetBoxUnchangedKeepsEverything(t *testing.T) {
	r := populated()
	before := r.Clone()
	r.SetBox("a", r.Boxes["a"])
	if !r.Equal(before) {
		t.Fatal("re-setting an identical box must not change the record")
	}
}

func TestSetPeaks(t *testing.T) {
	t.Run("unknown box", func(t *testing.T) {
		r := New()
		err := r.SetPeaks("missing", PeakSet{Offsets: []float64{1}})
		if !errors.Is(err, services.ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	})
	t.Run("equal set is a no-op", func(t *testing.T) {
		r := populated()
		before := r.Clone()
		if err := r.SetPeaks("a", PeakSet{Offsets: []float64{12, 25}, Shape: model.ShapeGaussian}); err != nil {
			t.Fatalf("SetPeaks: %v", err)
		}
		if !r.Equal(before) {
			t.Fatal("equal peaks must not invalidate")
		}
	})
	t.Run("changed set keeps histogram", func(t *testing.T) {
		r := populated()
		if err := r.SetPeaks("a", PeakSet{Offsets: []float64{12, 26}, Shape: model.ShapeGaussian}); err != nil {
			t.Fatalf("SetPeaks: %v", err)
		}
		if got := cachedStages(r, "a"); !slices.Equal(got, []Stage{StageHistogram}) {
			t.Fatalf("stages = %v, want [histogram]", got)
		}
		if !slices.Equal(r.Peaks["a"].Offsets, []float64{12, 26}) {
			t.Fatalf("peaks = %v", r.Peaks["a"].Offsets)
		}
	})
	t.Run("shape change invalidates", func(t *testing.T) {
		r := populated()
		if err := r.SetPeaks("a", PeakSet{Offsets: []float64{12, 25}, Shape: model.ShapeVoigt}); err != nil {
			t.Fatalf("SetPeaks: %v", err)
		}
		if r.Has(StageFit, "a") {
			t.Fatal("fit should be cleared by a shape change")
		}
	})
	t.Run("stored copy is independent", func(t *testing.T) {
		r := populated()
		offsets := []float64{7}
		_ = r.SetPeaks("b", PeakSet{Offsets: offsets})
		offsets[0] = 99
		if r.Peaks["b"].Offsets[0] != 7 {
			t.Fatal("SetPeaks must copy offsets")
		}
	})
}

func TestSetHullRange(t *testing.T) {
	r := populated()
	if err := r.SetHullRange("a", HullRange{Start: 10, End: 40}); err != nil {
		t.Fatalf("SetHullRange: %v", err)
	}
	if !r.Has(StageSummary, "a") {
		t.Fatal("unchanged hull range must not invalidate")
	}
	if err := r.SetHullRange("a", HullRange{Start: 12, End: 40}); err != nil {
		t.Fatalf("SetHullRange: %v", err)
	}
	if got := cachedStages(r, "a"); !slices.Equal(got, []Stage{StageHistogram, StageHullRange}) {
		t.Fatalf("stages = %v, want [histogram hull_range]", got)
	}
	if err := r.SetHullRange("zzz", HullRange{}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestInvalidateNeverTouchesUpstream(t *testing.T) {
	for _, from := range Stages() {
		r := populated()
		r.Invalidate("a", from)
		for _, s := range Stages() {
			if got, want := r.Has(s, "a"), s < from; got != want {
				t.Errorf("Invalidate(%s): Has(%s) = %v, want %v", from, s, got, want)
			}
		}
	}
}

func TestClearStageAndClearBoxAreIdempotent(t *testing.T) {
	r := populated()
	r.ClearStage("a", StageFit)
	r.ClearStage("a", StageFit)
	if r.Has(StageFit, "a") || !r.Has(StageSubtracted, "a") {
		t.Fatal("ClearStage should remove exactly one stage")
	}
	r.ClearBox("b")
	r.ClearBox("b")
	r.ClearBox("never-existed")
	if r.HasBox("b") || r.Has(StageHistogram, "b") {
		t.Fatal("box b should be gone")
	}
}

func TestReconcile(t *testing.T) {
	r := populated()
	r.Reconcile([]string{"a"}, nil)
	if r.HasBox("b") {
		t.Fatal("b should be removed")
	}
	if !r.Has(StageSummary, "a") {
		t.Fatal("a must be untouched")
	}

	r.Reconcile(nil, []string{})
	if _, ok := r.Peaks["a"]; ok {
		t.Fatal("peaks for a should be dropped")
	}
	if got := cachedStages(r, "a"); !slices.Equal(got, []Stage{StageHistogram}) {
		t.Fatalf("stages = %v, want [histogram]", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := populated()
	c := r.Clone()
	if !c.Equal(r) {
		t.Fatal("clone should equal original")
	}
	c.Histograms["a"][0] = 100
	c.MovedPeaks["a"][0] = 1
	c.Fits["a"].Params.Peaks[0].Offset = 50
	c.Peaks["a"].Offsets[0] = 3
	c.Summaries["a"].Widths[0] = 9
	if r.Histograms["a"][0] != 1 || r.MovedPeaks["a"][0] != 52 || r.Fits["a"].Params.Peaks[0].Offset != 12 ||
		r.Peaks["a"].Offsets[0] != 12 || r.Summaries["a"].Widths[0] != 3 {
		t.Fatal("clone shares storage with original")
	}
}

func TestRecordJSONRoundTripKeepsNonFinite(t *testing.T) {
	r := populated()
	r.Version = "1.0.0"
	r.Globals["lambda_sdd"] = 1500
	r.Histograms["b"] = Series{math.NaN(), math.Inf(1), math.Inf(-1), 2.5}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Record
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.Equal(r) {
		t.Fatalf("decoded record differs:\n%s", data)
	}
	h := decoded.Histograms["b"]
	if !math.IsNaN(h[0]) || !math.IsInf(h[1], 1) || !math.IsInf(h[2], -1) || h[3] != 2.5 {
		t.Fatalf("histogram b = %v", h)
	}
}

func TestUnmarshalAllocatesMissingMaps(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{"program_version":"0.9"}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	r.SetBox("x", Box{})
	if r.Version != "0.9" || !r.HasBox("x") {
		t.Fatalf("record = %+v", r)
	}
}

func TestSeriesRejectsUnknownWords(t *testing.T) {
	var s Series
	if err := json.Unmarshal([]byte(`[1, "oops"]`), &s); err == nil {
		t.Fatal("expected error")
	}
}

func TestStageOrdering(t *testing.T) {
	if got := StageFit.Downstream(); !slices.Equal(got, []Stage{StageFit, StageSubtracted, StageMovedPeaks, StageBaselines, StageSummary}) {
		t.Fatalf("Downstream = %v", got)
	}
	if Stage(42).Valid() || Stage(42).Downstream() != nil {
		t.Fatal("unknown stage should have no downstream")
	}
	if StageHullHistogram.String() != "hull_histogram" {
		t.Fatalf("String = %q", StageHullHistogram.String())
	}
}

func TestParseOrientationAndMethod(t *testing.T) {
	if o, err := ParseOrientation("vertical"); err != nil || o != Vertical {
		t.Fatalf("ParseOrientation = %q, %v", o, err)
	}
	if _, err := ParseOrientation("diagonal"); err == nil {
		t.Fatal("expected error")
	}
	if m, err := ParseMethod("convex-hull"); err != nil || m != MethodHull {
		t.Fatalf("ParseMethod = %q, %v", m, err)
	}
	if _, err := ParseMethod("magic"); err == nil {
		t.Fatal("expected error")
	}
}
