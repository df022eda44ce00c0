package game

import "time"

// Rand is the subset of math/rand/v2 the spawner needs. Tests inject a fixed
// sequence.
type Rand interface {
	Float64() float64
}

// RandomGapCenter picks a gap center uniformly in [MinGapCenter, MaxGapCenter).
func RandomGapCenter(r Rand) float64 {
	return MinGapCenter + r.Float64()*(MaxGapCenter-MinGapCenter)
}

// RandomSpawnInterval picks the delay before the next pipe, uniformly in
// [MinSpawnInterval, MaxSpawnInterval) and truncated to whole milliseconds.
func RandomSpawnInterval(r Rand) time.Duration {
	span := float64(MaxSpawnInterval - MinSpawnInterval)
	interval := MinSpawnInterval + time.Duration(r.Float64()*span)
	return interval.Truncate(time.Millisecond)
}
