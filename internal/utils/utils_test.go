package utils

import (
	"context"
	"testing"
	"time"
)

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{
			name:   "returns empty when limit non-positive",
			input:  "hello world",
			limit:  0,
			expect: "",
		},
		{
			name:   "shorter than limit",
			input:  "hello",
			limit:  10,
			expect: "hello",
		},
		{
			name:   "truncates and adds ellipsis",
			input:  "hello world",
			limit:  5,
			expect: "hello...",
		},
		{
			name:   "trims surrounding whitespace",
			input:  "  spaced  ",
			limit:  5,
			expect: "space...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestWaitForReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := WaitFor(ctx, time.Hour); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected prompt return on cancel, took %v", elapsed)
	}
}

func TestWaitForElapses(t *testing.T) {
	if err := WaitFor(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("expected nil after duration elapsed, got %v", err)
	}
}

func TestWaitForZeroDuration(t *testing.T) {
	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("expected nil for zero duration, got %v", err)
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	initial := 500 * time.Millisecond
	max := 4 * time.Second

	cases := []struct {
		attempt int
		expect  time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{10, 4 * time.Second},
	}

	for _, tc := range cases {
		if got := Backoff(initial, max, tc.attempt); got != tc.expect {
			t.Fatalf("attempt %d: expected %v, got %v", tc.attempt, tc.expect, got)
		}
	}
}

func TestJitterBounds(t *testing.T) {
	t.Parallel()

	base := 2 * time.Second
	spread := 3 * time.Second

	for i := 0; i < 100; i++ {
		got := Jitter(base, spread)
		if got < base || got >= base+spread {
			t.Fatalf("jitter out of bounds: %v", got)
		}
	}

	if got := Jitter(base, 0); got != base {
		t.Fatalf("expected base without spread, got %v", got)
	}
}
