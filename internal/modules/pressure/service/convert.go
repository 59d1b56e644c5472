package service

import "math"

// AtmosphericReference is the raw count that reads as 0 mbar with a zero
// offset. Raw 0 is full vacuum, -1000 mbar.
const AtmosphericReference int64 = 1000

// ToMillibar converts a raw sample to gauge pressure in mbar.
func ToMillibar(raw, offset int64) int64 {
	return (raw - offset) - AtmosphericReference
}

// ZeroOffset is the offset that makes raw read exactly 0 mbar.
func ZeroOffset(raw int64) int64 {
	return raw - AtmosphericReference
}

// roundMbar rounds halves to even, the way the dashboard always has.
func roundMbar(v float64) int64 {
	return int64(math.RoundToEven(v))
}
