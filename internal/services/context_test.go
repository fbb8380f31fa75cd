package services_test

import (
	"context"
	"testing"

	"uxrmate/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithCUJID(ctx, "CUJ-7")
	ctx = services.WithAssetID(ctx, 42)
	ctx = services.WithStage(ctx, "analyzing")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if id, ok := services.CUJIDFromContext(ctx); !ok || id != "CUJ-7" {
		t.Fatalf("unexpected cuj id: %v %v", id, ok)
	}
	if id, ok := services.AssetIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected asset id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "analyzing" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithRunID(ctx, "")
	ctx = services.WithCUJID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected blank stage to be ignored")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected blank run id to be ignored")
	}
	if _, ok := services.CUJIDFromContext(ctx); ok {
		t.Fatal("expected blank cuj id to be ignored")
	}
	if _, ok := services.AssetIDFromContext(ctx); ok {
		t.Fatal("expected missing asset id")
	}
}
