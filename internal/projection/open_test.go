package projection

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"projtrace/internal/infostore"
	"projtrace/internal/testsupport"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func TestOpenRoundTripsThroughCache(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	imagePath := filepath.Join(testsupport.BaseDir(cfg), "images", "frame.png")
	profile := testsupport.Profile(testWidth, testCenter, 10, testsupport.Peak{Offset: 30, Sigma: 4, Amplitude: 2000})
	testsupport.WritePNG16(t, imagePath, testsupport.HorizontalImage(profile, testRows))

	ctx := context.Background()
	p, err := Open(ctx, imagePath, cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	report, err := p.Process(ctx, peakSettings(infostore.MethodFit, 28))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !report.Saved {
		t.Fatal("expected the record to be saved")
	}

	reopened, err := Open(ctx, imagePath, cfg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !reopened.Record().Equal(p.Record()) {
		t.Fatal("reopened record differs from the saved one")
	}
	second, err := reopened.Process(ctx, peakSettings(infostore.MethodFit, 28))
	if err != nil {
		t.Fatalf("Process after reopen: %v", err)
	}
	if second.Count(infostore.StageFit) != 0 {
		t.Fatal("cached fit should be reused after reopening")
	}

	want, _ := p.Result("layer")
	got, err := reopened.Result("layer")
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if got.Peaks[0].Centroid != want.Peaks[0].Centroid || got.Peaks[0].Position != want.Peaks[0].Position {
		t.Fatalf("results differ after reopen: %+v vs %+v", got.Peaks[0], want.Peaks[0])
	}
}

func TestOpenMissingImage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := Open(context.Background(), filepath.Join(testsupport.BaseDir(cfg), "nope.png"), cfg, nil); err == nil {
		t.Fatal("expected error for a missing image")
	}
}
