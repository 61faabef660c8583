package memory

import (
	"context"
	"errors"
	"testing"

	"bragg-dose-lab/internal/domain"
	"bragg-dose-lab/internal/storage"
)

func TestParameterSource_PutAndRows(t *testing.T) {
	src := NewParameterSource()
	ctx := context.Background()

	rows := []domain.ParameterRow{
		{Label: "Density", Value: 1.0, Unit: "g/cm3"},
		{Label: "Charge number", Value: 1},
	}
	src.Put("water", rows)

	got, err := src.Rows(ctx, "water")
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0] != rows[0] {
		t.Errorf("row mismatch: got %+v, want %+v", got[0], rows[0])
	}

	// returned slice is a copy
	got[0].Value = 42
	again, _ := src.Rows(ctx, "water")
	if again[0].Value != 1.0 {
		t.Errorf("stored row was modified through returned slice")
	}
}

func TestParameterSource_NotFound(t *testing.T) {
	src := NewParameterSource()

	_, err := src.Rows(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestHitSource_PutAndHits(t *testing.T) {
	src := NewHitSource()
	ctx := context.Background()

	hits := []*domain.Hit{
		{Station: 1, Event: 1, EnergyDeposit: 0.5, Depth: 10},
		{Station: 1, Event: 2, EnergyDeposit: 0.7, Depth: 10},
	}
	src.Put("run1", hits)
	hits[0].EnergyDeposit = 99

	got, err := src.Hits(ctx, "run1")
	if err != nil {
		t.Fatalf("Hits failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(got))
	}
	if got[0].EnergyDeposit != 0.5 {
		t.Errorf("EnergyDeposit mismatch: got %g, want 0.5", got[0].EnergyDeposit)
	}
	if got[1].Event != 2 {
		t.Errorf("order not preserved: got event %d", got[1].Event)
	}
}

func TestHitSource_NotFound(t *testing.T) {
	_, err := NewHitSource().Hits(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
