package utils

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestWaitFor(t *testing.T) {
	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error for zero duration: %v", err)
	}

	if err := WaitFor(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := WaitFor(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi, want float64
	}{
		{v: 0.5, lo: 0, hi: 1, want: 0.5},
		{v: -2, lo: 0, hi: 1, want: 0},
		{v: 3, lo: 0, hi: 1, want: 1},
		{v: 0.05, lo: 0.1, hi: 1, want: 0.1},
		{v: math.NaN(), lo: 0, hi: 1, want: 0},
	}

	for _, tt := range tests {
		if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Fatalf("Clamp(%v, %v, %v) = %v, want %v", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		v      float64
		places int
		want   float64
	}{
		{v: 0.12345, places: 3, want: 0.123},
		{v: 0.9876, places: 2, want: 0.99},
		{v: 12.5, places: 0, want: 13},
		{v: 1, places: 3, want: 1},
	}

	for _, tt := range tests {
		if got := Round(tt.v, tt.places); got != tt.want {
			t.Fatalf("Round(%v, %d) = %v, want %v", tt.v, tt.places, got, tt.want)
		}
	}
}
