package logging

import (
	"math"
	"testing"
)

func TestNewProgressSamplerDefaults(t *testing.T) {
	for _, size := range []int{0, -5, 250} {
		if s := NewProgressSampler(size); s.bucket != 10 {
			t.Errorf("NewProgressSampler(%d).bucket = %d, want 10", size, s.bucket)
		}
	}
	if s := NewProgressSampler(25); s.bucket != 25 {
		t.Errorf("bucket = %d, want 25", s.bucket)
	}
}

func TestProgressSamplerNilShowsEverything(t *testing.T) {
	var s *ProgressSampler
	if pct, ok := s.Sample("a", 0.42); !ok || pct != 42 {
		t.Fatalf("Sample = %d, %v; want 42, true", pct, ok)
	}
	s.Reset()
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(25)
	steps := []struct {
		subject  string
		fraction float64
		percent  int
		want     bool
	}{
		{"file-1", 0, 0, true},
		{"file-1", 0.1, 10, false},
		{"file-1", 0.3, 30, true},
		{"file-1", 0.2, 20, false},
		{"file-1", 1.7, 100, true},
		{"file-2", 0.05, 5, true},
		{"file-2", -1, 0, false},
		{"file-2", math.NaN(), 0, false},
		{"file-2", 0.5, 50, true},
	}
	for i, step := range steps {
		pct, ok := s.Sample(step.subject, step.fraction)
		if ok != step.want || pct != step.percent {
			t.Fatalf("step %d (%s, %v): got %d, %v; want %d, %v", i, step.subject, step.fraction, pct, ok, step.percent, step.want)
		}
	}

	s.Reset()
	if _, ok := s.Sample("file-2", 0.5); !ok {
		t.Fatal("expected update after reset")
	}
}
