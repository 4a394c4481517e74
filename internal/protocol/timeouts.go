// internal/protocol/timeouts.go
package protocol

// timeoutRingSize is how many inter-timeout intervals are kept. Matches the
// window the bridge firmware is tuned against.
const timeoutRingSize = 5

// noTimeoutAverage is returned by Average when no timeout has been recorded
// yet, large enough to never trip the fault threshold.
const noTimeoutAverage = 100

// TimeoutRing is a fixed-capacity ring of intervals (in seconds) between
// consecutive receive timeouts. The write cursor advances monotonically and
// wraps over the oldest slot.
type TimeoutRing struct {
	slots  []float64
	cursor int
}

// NewTimeoutRing creates a ring with the given capacity
func NewTimeoutRing(size int) *TimeoutRing {
	if size <= 0 {
		size = timeoutRingSize
	}
	return &TimeoutRing{
		slots: make([]float64, size),
	}
}

// Record stores an interval at the cursor, overwriting the oldest entry
func (r *TimeoutRing) Record(interval float64) {
	r.slots[r.cursor] = interval
	r.cursor++
	if r.cursor >= len(r.slots) {
		r.cursor = 0
	}
}

// Average returns the mean of the occupied slots, or the no-history
// sentinel (100) when every slot is still zero. A genuinely zero-length
// interval is indistinguishable from an empty slot and is excluded from
// the mean.
func (r *TimeoutRing) Average() float64 {
	var sum float64
	count := 0
	for _, v := range r.slots {
		if v != 0 {
			sum += v
			count++
		}
	}
	if count == 0 {
		return noTimeoutAverage
	}
	return sum / float64(count)
}

// Reset clears all recorded intervals
func (r *TimeoutRing) Reset() {
	for i := range r.slots {
		r.slots[i] = 0
	}
	r.cursor = 0
}
