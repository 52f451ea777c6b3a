package vectorindex

import (
	"context"
	"math"
	"testing"
)

func TestMemory_QueryOrdersByDistance(t *testing.T) {
	t.Parallel()

	idx := NewMemory()
	ctx := context.Background()
	if err := idx.Add(ctx, "far", []float64{0, 1, 0}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := idx.Add(ctx, "near", []float64{1, 0.1, 0}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := idx.Add(ctx, "exact", []float64{1, 0, 0}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	got, err := idx.Query(ctx, []float64{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "exact" || got[1].ID != "near" {
		t.Fatalf("unexpected neighbor order: %+v", got)
	}
	if math.Abs(got[0].Distance) > 1e-9 {
		t.Fatalf("identical vector must have distance 0, got %f", got[0].Distance)
	}
}

func TestMemory_AddOverwritesExisting(t *testing.T) {
	t.Parallel()

	idx := NewMemory()
	ctx := context.Background()
	if err := idx.Add(ctx, "a1", []float64{0, 1}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := idx.Add(ctx, "a1", []float64{1, 0}); err != nil {
		t.Fatalf("re-add failed: %v", err)
	}

	got, err := idx.Query(ctx, []float64{1, 0}, 10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("re-adding an id must not duplicate entries: %+v", got)
	}
	if got[0].Distance > 1e-9 {
		t.Fatalf("latest vector must win, got distance %f", got[0].Distance)
	}
}

func TestMemory_TopKZero(t *testing.T) {
	t.Parallel()

	idx := NewMemory()
	if err := idx.Add(context.Background(), "a1", []float64{1}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	got, err := idx.Query(context.Background(), []float64{1}, 0)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if got != nil {
		t.Fatalf("topK 0 must return nothing, got %+v", got)
	}
}

func TestToVectorLiteral(t *testing.T) {
	t.Parallel()

	got, err := ToVectorLiteral([]float64{1, 0.5, -2})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if got != "[1,0.5,-2]" {
		t.Fatalf("unexpected literal: %q", got)
	}

	if _, err := ToVectorLiteral([]float64{math.NaN()}); err == nil {
		t.Fatalf("NaN must be rejected")
	}
	if _, err := ToVectorLiteral([]float64{math.Inf(1)}); err == nil {
		t.Fatalf("Inf must be rejected")
	}
}
