package rts

import (
	"github.com/rudransh61/Physix-go/pkg/vector"
)

// Building is a static structure: production, economy, defense or
// housing. Defensive turret buildings own a rotating weapon.
type Building struct {
	id    EntityID
	def   *BuildingDef
	owner *Faction
	team  Team
	pos   vector.Vector

	health    float64
	maxHealth float64

	underConstruction    bool
	constructionProgress float64 // 0..1

	productionQueue    []string // unit type FIFO
	productionProgress float64  // ticks accumulated on queue head

	rally vector.Vector

	garrison []EntityID // bunker occupants, by id
	hangar   *hangarState

	weapon         *Weapon
	turretRotation float64

	active bool
}

type hangarState struct {
	housed   []EntityID // airframes currently inside
	onSortie int        // airframes out on a mission that will return
}

func newBuilding(id EntityID, def *BuildingDef, owner *Faction, pos vector.Vector, underConstruction bool) *Building {
	b := &Building{
		id:        id,
		def:       def,
		owner:     owner,
		team:      owner.team,
		pos:       pos,
		maxHealth: def.MaxHealth,
		// Default rally: just below the footprint.
		rally:             vector.Vector{X: pos.X, Y: pos.Y + def.Height/2 + 30},
		underConstruction: underConstruction,
		active:            true,
	}
	if underConstruction {
		// Construction starts at a sliver of health and scales up as
		// workers add progress.
		b.health = def.MaxHealth * 0.1
	} else {
		b.health = def.MaxHealth
	}
	if def.Weapon != "" {
		b.weapon = newWeapon(owner.balance.Weapons[def.Weapon], owner, def.Type)
	}
	if def.HangarCapacity > 0 {
		b.hangar = &hangarState{}
	}
	return b
}

// --- Targetable ---

func (b *Building) ID() EntityID            { return b.id }
func (b *Building) Position() vector.Vector { return b.pos }
func (b *Building) Team() Team              { return b.team }
func (b *Building) Elevation() Elevation    { return ElevationGround }
func (b *Building) TargetSize() float64     { return b.def.TargetRadius() }
func (b *Building) TargetKind() string      { return TargetKindBuilding }
func (b *Building) IsActive() bool          { return b.active }

func (b *Building) TakeDamage(amount float64, source EntityID) {
	if !b.active {
		return
	}
	b.health -= amount
	if b.health <= 0 {
		b.health = 0
		b.active = false
	}
}

// Def returns the balance definition.
func (b *Building) Def() *BuildingDef { return b.def }

// Owner returns the owning faction.
func (b *Building) Owner() *Faction { return b.owner }

// Completed reports whether construction has finished.
func (b *Building) Completed() bool { return !b.underConstruction }

// SetRally moves the rally point.
func (b *Building) SetRally(p vector.Vector) { b.rally = p }

// addConstruction advances construction by a fraction and scales
// health up with it. Returns true when construction completes.
func (b *Building) addConstruction(frac float64) bool {
	if !b.underConstruction {
		return false
	}
	b.constructionProgress += frac
	// Health tracks progress from the initial sliver to full.
	b.health = b.maxHealth * (0.1 + 0.9*clamp01(b.constructionProgress))
	if b.constructionProgress >= 1 {
		b.constructionProgress = 1
		b.underConstruction = false
		b.health = b.maxHealth
		return true
	}
	return false
}

// enqueueProduction appends a unit type to the FIFO.
func (b *Building) enqueueProduction(unitType string) {
	b.productionQueue = append(b.productionQueue, unitType)
}

// producesType reports whether this building can build the unit type.
func (b *Building) producesType(unitType string) bool {
	for _, p := range b.def.Produces {
		if p == unitType {
			return true
		}
	}
	return false
}

// WallSegment is a short attackable wall piece. Walls block ground
// movement but never airborne units.
type WallSegment struct {
	id    EntityID
	owner *Faction
	team  Team
	pos   vector.Vector

	health    float64
	maxHealth float64
	active    bool
}

const (
	wallSegmentSize      = 20.0
	wallSegmentMaxHealth = 250.0
)

func newWallSegment(id EntityID, owner *Faction, pos vector.Vector) *WallSegment {
	return &WallSegment{
		id:        id,
		owner:     owner,
		team:      owner.team,
		pos:       pos,
		health:    wallSegmentMaxHealth,
		maxHealth: wallSegmentMaxHealth,
		active:    true,
	}
}

func (w *WallSegment) ID() EntityID            { return w.id }
func (w *WallSegment) Position() vector.Vector { return w.pos }
func (w *WallSegment) Team() Team              { return w.team }
func (w *WallSegment) Elevation() Elevation    { return ElevationGround }
func (w *WallSegment) TargetSize() float64     { return wallSegmentSize / 2 }
func (w *WallSegment) TargetKind() string      { return TargetKindWallSegment }
func (w *WallSegment) IsActive() bool          { return w.active }

func (w *WallSegment) TakeDamage(amount float64, source EntityID) {
	if !w.active {
		return
	}
	w.health -= amount
	if w.health <= 0 {
		w.health = 0
		w.active = false
	}
}
