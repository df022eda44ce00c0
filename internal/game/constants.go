// Package game holds the authoritative fixed-step simulation of a versus
// match: two birds sharing one spawn point, a common stream of pipes and the
// rules that decide who outlasted whom.
package game

import "time"

// World geometry, in world units. The origin is the bottom-left corner and y
// grows upwards.
const (
	WorldWidth   = 100.0
	WorldHeight  = 200.0
	GroundHeight = 0.15 * WorldHeight

	PipeWidth     = WorldWidth / 6
	PipeGapHeight = WorldHeight / 3
	PipeSpeed     = 50.0

	BirdWidth  = 0.15 * WorldWidth
	BirdHeight = WorldHeight / 17

	Gravity      = 400.0
	JumpVelocity = 130.0

	MinGapCenter = 0.30 * WorldHeight
	MaxGapCenter = 0.70 * WorldHeight

	StartX = 24.0
	StartY = 100.0
)

// Timing.
const (
	FixedStep     = 1.0 / 120.0
	MaxFrameDelta = 0.25

	StartDelay       = 1200 * time.Millisecond
	MinSpawnInterval = 1100 * time.Millisecond
	MaxSpawnInterval = 2200 * time.Millisecond
)

// MaxPlayers is the room capacity. Player ids are 1..MaxPlayers.
const MaxPlayers = 2

// NotEliminated marks a runner that is still alive.
const NotEliminated int64 = -1
