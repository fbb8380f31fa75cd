package logging

import "math"

// ProgressSampler thins a stream of 0..1 progress fractions to one update per
// bucket of whole percent. Switching subject (another file or CUJ) restarts
// the buckets so the first update for it always passes. It is not safe for
// concurrent use.
type ProgressSampler struct {
	bucket  int
	subject string
	last    int
}

// NewProgressSampler returns a sampler with bucketPercent wide buckets,
// defaulting to 10.
func NewProgressSampler(bucketPercent int) *ProgressSampler {
	if bucketPercent <= 0 || bucketPercent > 100 {
		bucketPercent = 10
	}
	return &ProgressSampler{bucket: bucketPercent, last: -1}
}

// Sample returns the whole percent for fraction and whether it should be
// shown. Fractions are clamped to [0,1]; NaN is never shown. A nil sampler
// shows everything.
func (s *ProgressSampler) Sample(subject string, fraction float64) (int, bool) {
	if math.IsNaN(fraction) {
		return 0, false
	}
	percent := int(math.Floor(min(max(fraction, 0), 1)*100 + 1e-9))
	if s == nil {
		return percent, true
	}
	if subject != s.subject {
		s.subject = subject
		s.last = -1
	}
	bucket := percent / s.bucket
	if bucket <= s.last {
		return percent, false
	}
	s.last = bucket
	return percent, true
}

// Reset forgets the current subject and bucket.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.subject = ""
	s.last = -1
}
