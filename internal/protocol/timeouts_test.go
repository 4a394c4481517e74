package protocol

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTimeoutRing_EmptyReturnsSentinel(t *testing.T) {
	t.Parallel()

	r := NewTimeoutRing(5)
	if got := r.Average(); got != 100 {
		t.Fatalf("average of empty ring = %v, want 100", got)
	}
}

func TestTimeoutRing_PartialFill(t *testing.T) {
	t.Parallel()

	r := NewTimeoutRing(5)
	r.Record(1.0)
	r.Record(2.0)

	// Only occupied slots count toward the mean.
	if got := r.Average(); !almostEqual(got, 1.5) {
		t.Fatalf("average = %v, want 1.5", got)
	}
}

func TestTimeoutRing_WrapsOverOldest(t *testing.T) {
	t.Parallel()

	r := NewTimeoutRing(5)
	for _, v := range []float64{10, 1, 2, 3, 4, 5} {
		r.Record(v)
	}

	// Six records into five slots: the first (10) is gone.
	if got := r.Average(); !almostEqual(got, 3.0) {
		t.Fatalf("average = %v, want 3.0", got)
	}
}

func TestTimeoutRing_ZeroIntervalTreatedAsEmpty(t *testing.T) {
	t.Parallel()

	r := NewTimeoutRing(5)
	r.Record(0)
	if got := r.Average(); got != 100 {
		t.Fatalf("average = %v, want sentinel 100 (zero slot counts as empty)", got)
	}

	r.Record(4)
	if got := r.Average(); !almostEqual(got, 4.0) {
		t.Fatalf("average = %v, want 4.0", got)
	}
}

func TestTimeoutRing_RapidIntervalsCrossThreshold(t *testing.T) {
	t.Parallel()

	r := NewTimeoutRing(5)
	r.Record(1.0) // one slow timeout first
	for i := 0; i < 4; i++ {
		r.Record(0.01)
		if r.Average() < 0.1 {
			t.Fatalf("average dropped below threshold too early after %d rapid intervals", i+1)
		}
	}

	// Sixth record evicts the slow interval; only rapid ones remain.
	r.Record(0.01)
	if got := r.Average(); got >= 0.1 {
		t.Fatalf("average = %v, want < 0.1 once the ring holds only rapid intervals", got)
	}
}

func TestTimeoutRing_Reset(t *testing.T) {
	t.Parallel()

	r := NewTimeoutRing(5)
	r.Record(0.5)
	r.Reset()
	if got := r.Average(); got != 100 {
		t.Fatalf("average after reset = %v, want 100", got)
	}
}
