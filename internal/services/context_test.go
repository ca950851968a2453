package services_test

import (
	"context"
	"testing"

	"projtrace/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithImage(ctx, "/data/img_001.tif")
	ctx = services.WithBox(ctx, "m3")
	ctx = services.WithStage(ctx, "fit")
	ctx = services.WithRequestID(ctx, "req-123")

	if img, ok := services.ImageFromContext(ctx); !ok || img != "/data/img_001.tif" {
		t.Fatalf("unexpected image: %v %v", img, ok)
	}
	if box, ok := services.BoxFromContext(ctx); !ok || box != "m3" {
		t.Fatalf("unexpected box: %v %v", box, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "fit" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithBox(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.BoxFromContext(ctx); ok {
		t.Fatal("expected no box value")
	}
}
