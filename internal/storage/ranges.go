package storage

import "time"

// TimeRange selects how far back a history query reaches.
type TimeRange int

const (
	Range30Min TimeRange = iota
	Range1Hour
	Range6Hour
	Range1Day
	Range1Week
)

// rangeSpec pairs a window with the width of the buckets it is averaged
// into. Short windows are returned at full resolution.
type rangeSpec struct {
	name   string
	window time.Duration
	bucket time.Duration
}

var rangeSpecs = [...]rangeSpec{
	Range30Min: {"30min", 30 * time.Minute, 0},
	Range1Hour: {"1hour", time.Hour, 30 * time.Second},
	Range6Hour: {"6hours", 6 * time.Hour, 5 * time.Minute},
	Range1Day:  {"1day", 24 * time.Hour, 10 * time.Minute},
	Range1Week: {"1week", 7 * 24 * time.Hour, time.Hour},
}

func (t TimeRange) lookup() (rangeSpec, bool) {
	if t < 0 || int(t) >= len(rangeSpecs) {
		return rangeSpec{}, false
	}
	return rangeSpecs[t], true
}

func (t TimeRange) String() string {
	if s, ok := t.lookup(); ok {
		return s.name
	}
	return "unknown"
}

// Duration is the window length. Unknown ranges fall back to 30 minutes.
func (t TimeRange) Duration() time.Duration {
	if s, ok := t.lookup(); ok {
		return s.window
	}
	return rangeSpecs[Range30Min].window
}

// bucketSeconds is the aggregation width; 0 means full resolution.
func (t TimeRange) bucketSeconds() int64 {
	s, _ := t.lookup()
	return int64(s.bucket / time.Second)
}
