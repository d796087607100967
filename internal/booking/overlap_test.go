package booking

import (
	"testing"
	"time"
)

func interval(t *testing.T, start, end string) Interval {
	t.Helper()

	s, err := time.Parse(time.RFC3339, start)
	if err != nil {
		t.Fatalf("parse start: %v", err)
	}
	e, err := time.Parse(time.RFC3339, end)
	if err != nil {
		t.Fatalf("parse end: %v", err)
	}
	return Interval{Start: s, End: e}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a    Interval
		b    Interval
		want bool
	}{
		{
			name: "identical intervals",
			a:    interval(t, "2026-09-01T10:00:00Z", "2026-09-01T11:00:00Z"),
			b:    interval(t, "2026-09-01T10:00:00Z", "2026-09-01T11:00:00Z"),
			want: true,
		},
		{
			name: "partial overlap",
			a:    interval(t, "2026-09-01T10:00:00Z", "2026-09-01T12:00:00Z"),
			b:    interval(t, "2026-09-01T11:00:00Z", "2026-09-01T13:00:00Z"),
			want: true,
		},
		{
			name: "containment",
			a:    interval(t, "2026-09-01T09:00:00Z", "2026-09-01T13:00:00Z"),
			b:    interval(t, "2026-09-01T10:00:00Z", "2026-09-01T11:00:00Z"),
			want: true,
		},
		{
			name: "back to back does not overlap",
			a:    interval(t, "2026-09-01T10:00:00Z", "2026-09-01T11:00:00Z"),
			b:    interval(t, "2026-09-01T11:00:00Z", "2026-09-01T12:00:00Z"),
			want: false,
		},
		{
			name: "disjoint",
			a:    interval(t, "2026-09-01T08:00:00Z", "2026-09-01T09:00:00Z"),
			b:    interval(t, "2026-09-01T11:00:00Z", "2026-09-01T12:00:00Z"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b); got != tt.want {
				t.Fatalf("Overlaps(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			// Overlap is symmetric.
			if got := Overlaps(tt.b, tt.a); got != tt.want {
				t.Fatalf("Overlaps(%v, %v) = %v, want %v", tt.b, tt.a, got, tt.want)
			}
		})
	}
}

func TestAnyOverlap(t *testing.T) {
	held := []Interval{
		interval(t, "2026-09-01T09:00:00Z", "2026-09-01T10:00:00Z"),
		interval(t, "2026-09-01T14:00:00Z", "2026-09-01T16:00:00Z"),
	}

	if AnyOverlap(interval(t, "2026-09-01T10:00:00Z", "2026-09-01T11:00:00Z"), held) {
		t.Fatal("slot between held intervals should not overlap")
	}
	if !AnyOverlap(interval(t, "2026-09-01T15:00:00Z", "2026-09-01T17:00:00Z"), held) {
		t.Fatal("slot crossing a held interval should overlap")
	}
	if AnyOverlap(interval(t, "2026-09-01T10:00:00Z", "2026-09-01T11:00:00Z"), nil) {
		t.Fatal("empty held list should never overlap")
	}
}
