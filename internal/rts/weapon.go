package rts

import (
	"math"

	"github.com/rudransh61/Physix-go/pkg/vector"
)

// Weapon is the runtime firing state for one weapon mount. Range,
// damage and cadence come from the balance def; damage passes through
// the owner's research modifiers at fire time.
type Weapon struct {
	def      *WeaponDef
	owner    *Faction
	holder   string // unit or building type carrying this mount
	cooldown int
}

func newWeapon(def *WeaponDef, owner *Faction, holder string) *Weapon {
	return &Weapon{def: def, owner: owner, holder: holder}
}

// Def returns the balance definition.
func (w *Weapon) Def() *WeaponDef { return w.def }

// Range returns the base weapon range. Effective attack range adds the
// target's size on top.
func (w *Weapon) Range() float64 { return w.def.Range }

// CanHit reports elevation capability.
func (w *Weapon) CanHit(e Elevation) bool { return w.def.CanHit(e) }

// ready reports whether the cooldown has elapsed.
func (w *Weapon) ready() bool { return w.cooldown <= 0 }

// tickCooldown advances the rate-of-fire timer by one tick.
func (w *Weapon) tickCooldown() {
	if w.cooldown > 0 {
		w.cooldown--
	}
}

// damage returns per-shot damage after the owner's research modifiers.
func (w *Weapon) damage() float64 {
	return w.owner.WeaponDamage(w.holder, w.def)
}

// inRange reports whether the target is inside effective range
// (weapon range plus target size) from the firing position.
func (w *Weapon) inRange(from vector.Vector, target Targetable) bool {
	eff := w.def.Range + target.TargetSize()
	return distSq(from, target.Position()) <= eff*eff
}

// fire produces the ordinance for one trigger pull at the target and
// starts the cooldown. Beams resolve instantly: damage lands here and
// the returned Beam exists for client rendering only. Returns nil when
// the weapon is still cycling or cannot hit the target's elevation.
func (w *Weapon) fire(e *GameEntities, source EntityID, from vector.Vector, team Team, target Targetable, tick int) []Ordinance {
	if !w.ready() || !w.CanHit(target.Elevation()) {
		return nil
	}
	w.cooldown = w.def.CooldownTicks

	if w.def.Beam {
		target.TakeDamage(w.damage(), source)
		beam := &Beam{
			id:        e.NextID(),
			beamType:  w.def.Ordinance,
			from:      from,
			to:        target.Position(),
			spawnTick: tick,
			duration:  w.def.BeamTicks,
			team:      team,
		}
		return []Ordinance{beam}
	}

	aim := w.aimPoint(from, target)
	dir := normalized(sub(aim, from))
	if dir.X == 0 && dir.Y == 0 {
		dir = vector.Vector{X: 1}
	}

	p := &Projectile{
		id:        e.NextID(),
		ordType:   w.def.Ordinance,
		pos:       from,
		vel:       scale(dir, w.def.ProjectileSpeed),
		speed:     w.def.ProjectileSpeed,
		damage:    w.damage(),
		team:      team,
		source:    source,
		aim:       aim,
		aoeRadius: w.def.AoERadius,
		friendly:  w.def.FriendlyFire,
		hits:      w.def.hits,
		maxRange:  w.def.Range + target.TargetSize() + 80,
	}
	if w.def.Ordinance == OrdinanceRocket {
		p.target = target.ID()
	}
	return []Ordinance{p}
}

// fireAtGround fires at a fixed world point regardless of occupants.
func (w *Weapon) fireAtGround(e *GameEntities, source EntityID, from vector.Vector, team Team, point vector.Vector) []Ordinance {
	if !w.ready() || w.def.Beam {
		return nil
	}
	w.cooldown = w.def.CooldownTicks

	dir := normalized(sub(point, from))
	if dir.X == 0 && dir.Y == 0 {
		dir = vector.Vector{X: 1}
	}
	p := &Projectile{
		id:        e.NextID(),
		ordType:   w.def.Ordinance,
		pos:       from,
		vel:       scale(dir, w.def.ProjectileSpeed),
		speed:     w.def.ProjectileSpeed,
		damage:    w.damage(),
		team:      team,
		source:    source,
		aim:       point,
		aoeRadius: w.def.AoERadius,
		friendly:  w.def.FriendlyFire,
		hits:      w.def.hits,
		maxRange:  dist(from, point) + 40,
	}
	return []Ordinance{p}
}

// dropStick releases a stick of bombs aimed at points spaced along the
// flight axis through center. Bypasses the cooldown: a carpet is one
// trigger pull.
func (w *Weapon) dropStick(e *GameEntities, source EntityID, from vector.Vector, team Team, center, dir vector.Vector, count int, spacing float64) []Ordinance {
	if count <= 0 {
		return nil
	}
	w.cooldown = w.def.CooldownTicks
	axis := normalized(dir)
	if axis.X == 0 && axis.Y == 0 {
		axis = vector.Vector{X: 1}
	}
	out := make([]Ordinance, 0, count)
	half := float64(count-1) / 2
	for i := 0; i < count; i++ {
		aim := add(center, scale(axis, (float64(i)-half)*spacing))
		vel := scale(normalized(sub(aim, from)), w.def.ProjectileSpeed)
		out = append(out, &Projectile{
			id:        e.NextID(),
			ordType:   w.def.Ordinance,
			pos:       from,
			vel:       vel,
			speed:     w.def.ProjectileSpeed,
			damage:    w.damage(),
			team:      team,
			source:    source,
			aim:       aim,
			aoeRadius: w.def.AoERadius,
			friendly:  w.def.FriendlyFire,
			hits:      w.def.hits,
			maxRange:  dist(from, aim) + 40,
		})
	}
	return out
}

// aimPoint computes where to shoot. Moving units get a predictive
// intercept from their current velocity and the projectile speed;
// buildings, walls and stationary units are aimed at directly. The
// variant check here is the one sanctioned downcast on Targetable.
func (w *Weapon) aimPoint(from vector.Vector, target Targetable) vector.Vector {
	tp := target.Position()
	u, ok := target.(*Unit)
	if !ok {
		return tp
	}
	tv := u.Velocity()
	if length(tv) < 1 || w.def.ProjectileSpeed <= 0 {
		return tp
	}
	return interceptPoint(from, tp, tv, w.def.ProjectileSpeed)
}

// interceptPoint solves the first-order intercept: find t ≥ 0 with
// |targetPos + targetVel·t − from| = projSpeed·t, then lead the shot
// to the target's position at t. Falls back to the current position
// when no intercept exists (target outrunning the round).
func interceptPoint(from, targetPos, targetVel vector.Vector, projSpeed float64) vector.Vector {
	rel := sub(targetPos, from)
	a := targetVel.X*targetVel.X + targetVel.Y*targetVel.Y - projSpeed*projSpeed
	b := 2 * (rel.X*targetVel.X + rel.Y*targetVel.Y)
	c := rel.X*rel.X + rel.Y*rel.Y

	var t float64
	if math.Abs(a) < 1e-6 {
		if math.Abs(b) < 1e-6 {
			return targetPos
		}
		t = -c / b
	} else {
		disc := b*b - 4*a*c
		if disc < 0 {
			return targetPos
		}
		sq := math.Sqrt(disc)
		t1 := (-b - sq) / (2 * a)
		t2 := (-b + sq) / (2 * a)
		t = math.Min(t1, t2)
		if t < 0 {
			t = math.Max(t1, t2)
		}
	}
	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return targetPos
	}
	return add(targetPos, scale(targetVel, t))
}
