package rts

import (
	"github.com/rudransh61/Physix-go/pkg/vector"
)

// Ordinance is anything a weapon spawns: a projectile that travels or
// a beam that already resolved. The game loop appends returned
// ordinances to the entity store after the combat pass.
type Ordinance interface {
	ordinance()
}

// Projectile is a travelling round. Homing projectiles re-aim at their
// target each tick; ballistic ones fly the initial vector until they
// reach the aim point or exceed max range.
type Projectile struct {
	id        EntityID
	ordType   OrdinanceType
	pos       vector.Vector
	vel       vector.Vector
	speed     float64
	damage    float64
	team      Team
	source    EntityID
	target    EntityID // homing target; NoEntity for ballistic
	aim       vector.Vector
	aoeRadius float64
	friendly  bool // friendly fire allowed on detonation
	// Elevation capability inherited from the firing weapon.
	hits     map[Elevation]bool
	traveled float64
	maxRange float64
	spent    bool
}

func (*Projectile) ordinance() {}

// Beam is an instant-hit ray. Damage is applied on spawn; the beam
// entity exists only so clients can draw it for its duration.
type Beam struct {
	id        EntityID
	beamType  OrdinanceType
	from      vector.Vector
	to        vector.Vector
	spawnTick int
	duration  int
	team      Team
}

func (*Beam) ordinance() {}

// Field effect damage cadence: ongoing effects re-apply damage every
// half second of sim time.
const fieldEffectDamageInterval = 30 // ticks

// FieldEffect is a transient area entity applying damage over a
// lifetime. EXPLOSION and FLAK_EXPLOSION damage once at spawn;
// SANDSTORM, ELECTRIC and FIRE tick damage at a fixed interval for
// entities currently inside.
type FieldEffect struct {
	id            EntityID
	effectType    FieldEffectType
	center        vector.Vector
	radius        float64
	damagePerTick float64
	lifetime      int // ticks
	age           int
	team          Team // friendly-fire rules
	friendly      bool // damages own team too
	source        EntityID
	// Elevation capability inherited from the detonating round. Nil for
	// environmental effects, which hit every band.
	hits         map[Elevation]bool
	lastDamage   int // age of last damage application
	spentInitial bool
}

// instant reports whether this effect applies its damage exactly once
// at spawn.
func (fe *FieldEffect) instant() bool {
	return fe.effectType == EffectExplosion || fe.effectType == EffectFlakExplosion
}

// expired reports whether the effect should be culled.
func (fe *FieldEffect) expired() bool {
	return fe.age >= fe.lifetime
}
