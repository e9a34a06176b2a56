package services_test

import (
	"context"
	"testing"

	"jobdraft/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithDraftID(ctx, "d-42")
	ctx = services.WithConversationID(ctx, "conv-1")
	ctx = services.WithStage(ctx, "generate")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.DraftIDFromContext(ctx); !ok || id != "d-42" {
		t.Fatalf("unexpected draft id: %v %v", id, ok)
	}
	if id, ok := services.ConversationIDFromContext(ctx); !ok || id != "conv-1" {
		t.Fatalf("unexpected conversation id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "generate" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithDraftID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.DraftIDFromContext(ctx); ok {
		t.Fatal("expected no draft id value")
	}
}
