package rts

import (
	"github.com/rudransh61/Physix-go/pkg/vector"
)

// Unit is a mobile combat or worker entity. Exactly one command is
// active at a time; completed commands fall through to the queue and
// finally to idle.
type Unit struct {
	id    EntityID
	def   *UnitDef
	owner *Faction
	team  Team
	body  *Body

	health    float64
	maxHealth float64
	stance    AIStance
	homePos   vector.Vector // anchor for the DEFENSIVE leash

	weapon       *Weapon
	secondWeapon *Weapon // gunship dual mount

	command *UnitCommand
	queue   []*UnitCommand

	// Per-player selection, for the snapshot `selected` flag.
	selectedBy map[int]bool

	// Component bag. Nil means absent.
	cloak   *cloakState
	carry   *carryState
	pickaxe *pickaxeState
	air     *airframeState

	// housedIn is the bunker or hangar currently holding this unit,
	// or NoEntity when deployed. Housed units have no live body.
	housedIn EntityID
	lastPos  vector.Vector

	active bool
}

type cloakState struct {
	active bool
}

type carryState struct {
	resource ResourceType
	amount   int
}

type pickaxeState struct {
	remaining int
}

type airframeState struct {
	fuel       int // ticks of flight remaining
	ammo       int
	homeHangar EntityID
	onSortie   bool
}

// newUnit builds a unit. A nil body means the unit starts housed; the
// caller anchors lastPos and homePos to the housing building.
func newUnit(id EntityID, def *UnitDef, owner *Faction, body *Body) *Unit {
	u := &Unit{
		id:         id,
		def:        def,
		owner:      owner,
		team:       owner.team,
		body:       body,
		maxHealth:  owner.UnitMaxHealth(def),
		stance:     StanceDefensive,
		selectedBy: make(map[int]bool),
		active:     true,
	}
	if body != nil {
		u.homePos = body.Position()
	}
	u.health = u.maxHealth
	if def.Weapon != "" {
		u.weapon = newWeapon(owner.balance.Weapons[def.Weapon], owner, def.Type)
	}
	if def.SecondWeapon != "" {
		u.secondWeapon = newWeapon(owner.balance.Weapons[def.SecondWeapon], owner, def.Type)
	}
	if def.Cloak {
		u.cloak = &cloakState{}
	}
	if def.CarryCapacity > 0 {
		u.carry = &carryState{}
	}
	if def.PickaxeUses > 0 {
		u.pickaxe = &pickaxeState{remaining: def.PickaxeUses}
	}
	if def.Airframe {
		u.air = &airframeState{fuel: def.FuelTicks, ammo: def.Ammo}
	}
	u.command = newIdleCommand()
	return u
}

// --- Targetable ---

func (u *Unit) ID() EntityID { return u.id }

func (u *Unit) Position() vector.Vector {
	if u.body == nil {
		return u.lastPos
	}
	return u.body.Position()
}

func (u *Unit) Team() Team           { return u.team }
func (u *Unit) Elevation() Elevation { return u.def.elevation }
func (u *Unit) TargetSize() float64  { return u.def.Radius }
func (u *Unit) TargetKind() string   { return TargetKindUnit }

// IsActive reports whether the unit is alive and deployed. Housed
// units (garrisoned or hangared) are not targetable.
func (u *Unit) IsActive() bool { return u.active && u.housedIn == NoEntity }

// TakeDamage applies damage. Units at zero health become inactive and
// are culled at the end of the tick.
func (u *Unit) TakeDamage(amount float64, source EntityID) {
	if !u.active {
		return
	}
	u.health -= amount
	if u.health <= 0 {
		u.health = 0
		u.active = false
	}
}

// --- accessors used across the package ---

// Def returns the balance definition.
func (u *Unit) Def() *UnitDef { return u.def }

// Health returns current hit points.
func (u *Unit) Health() float64 { return u.health }

// Owner returns the owning faction.
func (u *Unit) Owner() *Faction { return u.owner }

// Cloaked reports whether the unit's cloak is currently engaged.
func (u *Unit) Cloaked() bool { return u.cloak != nil && u.cloak.active }

// Stance returns the AI stance.
func (u *Unit) Stance() AIStance { return u.stance }

// SetStance changes the AI stance.
func (u *Unit) SetStance(s AIStance) { u.stance = s }

// Velocity returns the body velocity, or zero when housed.
func (u *Unit) Velocity() vector.Vector {
	if u.body == nil {
		return vector.Vector{}
	}
	return u.body.Velocity()
}

// canAttack reports whether the unit carries any weapon with ammo.
func (u *Unit) canAttack() bool {
	if u.weapon == nil && u.secondWeapon == nil {
		return false
	}
	if u.air != nil && u.def.Interceptor && u.air.ammo <= 0 {
		return false
	}
	return true
}

// speed returns the effective movement speed in world units/second,
// after research modifiers.
func (u *Unit) speed() float64 {
	return u.owner.UnitSpeed(u.def)
}

// searchRadius is how far target scans reach: weapon range plus a
// pursuit margin, capped by vision.
func (u *Unit) searchRadius() float64 {
	r := u.def.VisionRange
	if r <= 0 {
		r = 300
	}
	return r
}

// setCommand cancels the active command and installs a new one,
// clearing the queue. Shift-queued orders use pushCommand instead.
func (u *Unit) setCommand(c *UnitCommand) {
	if u.command != nil {
		u.command.cancel(u)
	}
	u.command = c
	u.queue = u.queue[:0]
}

// pushCommand appends to the queue, keeping the active command.
func (u *Unit) pushCommand(c *UnitCommand) {
	u.queue = append(u.queue, c)
}

// interruptCommand stacks an auto-acquired command on top of the
// current one without disturbing the queue. Scan-issued orders are
// never queued, only issued fresh.
func (u *Unit) interruptCommand(c *UnitCommand) {
	if u.command != nil && u.command.kind != CmdIdle {
		// Only the idle scan interrupts; anything else keeps control.
		return
	}
	u.command = c
}

// advanceCommand drops the completed active command and promotes the
// next queued one, or idle.
func (u *Unit) advanceCommand() {
	u.command.cancel(u)
	if len(u.queue) > 0 {
		u.command = u.queue[0]
		u.queue = u.queue[1:]
		return
	}
	u.command = newIdleCommand()
}
