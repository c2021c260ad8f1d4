package rts

import (
	"github.com/rudransh61/Physix-go/pkg/vector"
)

// EntityID identifies any entity within a single game. IDs are monotonic
// per game and never reused; cross-entity references are held by id and
// resolved through the entity store each tick.
type EntityID int

// NoEntity is the zero reference — lookups against it always miss.
const NoEntity EntityID = 0

// Team is a cooperation group. Entities sharing a team never target
// each other.
type Team int

// NoTeam marks neutral entities (obstacles, world debris).
const NoTeam Team = -1

// Elevation is the vertical band an entity occupies. Weapons declare
// which bands they can hit.
type Elevation int

const (
	ElevationGround Elevation = iota
	ElevationLow              // helicopters, drones
	ElevationHigh             // bombers, interceptors
)

func (e Elevation) String() string {
	switch e {
	case ElevationGround:
		return "GROUND"
	case ElevationLow:
		return "LOW"
	case ElevationHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// AIStance controls whether idle scanning may open fire and how far a
// unit will stray from its post to do so.
type AIStance int

const (
	StanceDefensive    AIStance = iota // auto-attack, but stay near home
	StanceHoldPosition                 // never auto-acquire
	StanceAggressive                   // auto-attack, no leash
)

func (s AIStance) String() string {
	switch s {
	case StanceDefensive:
		return "DEFENSIVE"
	case StanceHoldPosition:
		return "HOLD_POSITION"
	case StanceAggressive:
		return "AGGRESSIVE"
	default:
		return "UNKNOWN"
	}
}

// Target kind tags carried on the wire and used for variant checks
// (predictive aiming is unit-only).
const (
	TargetKindUnit        = "unit"
	TargetKindBuilding    = "building"
	TargetKindWallSegment = "wallSegment"
)

// Targetable is the capability shared by units, buildings and wall
// segments: anything a weapon can be pointed at. The resolver and the
// combat code accept this interface and never downcast, except for the
// unit-only intercept math in predictive aiming.
type Targetable interface {
	ID() EntityID
	Position() vector.Vector
	Team() Team
	Elevation() Elevation
	// TargetSize is the body radius added to weapon range when
	// resolving effective attack range.
	TargetSize() float64
	TargetKind() string
	IsActive() bool
	TakeDamage(amount float64, source EntityID)
}
