package types

import "maps"

// Buckets holds the latest telemetry snapshot split by category. Values are
// overwritten per entry on every refresh and never cleared, so after a failed
// refresh some entries may still hold the previous cycle's value.
type Buckets struct {
	// Power holds <standard key>_now.
	Power map[string]float64 `json:"power"`
	// Energy holds <standard key>_today and <standard key>_total.
	Energy map[string]float64 `json:"energy"`
	// Battery holds <extra key>_now and <extra key>_today.
	Battery map[string]float64 `json:"battery"`
}

// NewBuckets returns Buckets with empty maps.
func NewBuckets() Buckets {
	return Buckets{
		Power:   make(map[string]float64),
		Energy:  make(map[string]float64),
		Battery: make(map[string]float64),
	}
}

// Clone returns a deep copy.
func (b Buckets) Clone() Buckets {
	c := NewBuckets()
	maps.Copy(c.Power, b.Power)
	maps.Copy(c.Energy, b.Energy)
	maps.Copy(c.Battery, b.Battery)
	return c
}

// Len returns the total number of entries across all buckets.
func (b Buckets) Len() int {
	return len(b.Power) + len(b.Energy) + len(b.Battery)
}
