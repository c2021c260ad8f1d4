package rts

import (
	"math"

	"github.com/rudransh61/Physix-go/pkg/vector"
)

// Air operation tuning.
const (
	patrolRadius       = 200.0 // on-station orbit radius
	patrolPointSnap    = 40.0  // distance at which the orbit advances
	defaultPatrolSides = 8
	hangarProximity = 30.0  // docking distance to the hangar center

	// Below this fraction of full fuel a deployed airframe aborts
	// whatever it is doing and heads home.
	bingoFuelFraction = 0.2

	// Bomber payload: bombs per stick and aim spacing along the axis.
	bombStickCount   = 5
	bombStickSpacing = 20.0

	// Attack run: the bomber holds course at full speed for the whole
	// run and releases the stick halfway through.
	attackRunTicks   = 2 * TicksPerSecond
	attackRunRelease = TicksPerSecond

	// Landing approach: speed bleeds off inside this radius.
	landingSlowRadius = 140.0
	landingMinFrac    = 0.25
)

// tickFuel burns flight time for deployed airframes. Losing the home
// hangar loses the airframe with it; an empty tank is a crash; bingo
// fuel forces a return to hangar.
func (u *Unit) tickFuel(g *Game) {
	if u.air == nil || u.housedIn != NoEntity {
		return
	}
	if u.air.homeHangar != NoEntity {
		if home := g.entities.Building(u.air.homeHangar); home == nil || !home.active {
			u.active = false
			g.log.Event(g.tick, u.owner.playerID, "combat", "hangarLost", float64(u.id))
			return
		}
	}
	u.air.fuel--
	if u.air.fuel <= 0 {
		u.active = false
		g.log.Event(g.tick, u.owner.playerID, "combat", "flameout", float64(u.id))
		return
	}
	bingo := int(float64(u.def.FuelTicks) * bingoFuelFraction)
	if u.air.fuel == bingo && u.command.kind != CmdReturnToHangar {
		g.log.Event(g.tick, u.owner.playerID, "command", "bingoFuel", float64(u.id))
		u.setCommand(newReturnToHangarCommand())
	}
}

// tickOnStation orbits the station point, engaging contacts found on
// the scan. Interceptors only chase other aircraft; gunships take
// whatever their mounts can hit. An interceptor that shoots dry heads
// home to rearm.
func (u *Unit) tickOnStation(g *Game) {
	c := u.command

	if u.def.Interceptor && u.air != nil && u.air.ammo <= 0 {
		u.setCommand(newReturnToHangarCommand())
		return
	}

	if c.autoTarget != NoEntity {
		target := g.entities.Targetable(c.autoTarget)
		if target == nil || !target.IsActive() ||
			dist(c.dest, target.Position()) > patrolRadius*2 {
			c.autoTarget = NoEntity
		} else if w := u.weaponFor(target.Elevation()); w == nil {
			c.autoTarget = NoEntity
		} else {
			eff := w.Range() + target.TargetSize()
			if dist(u.Position(), target.Position()) <= eff {
				u.fireAt(g, target)
				return
			}
			c.steer(g, u, target.Position())
			return
		}
	}

	if u.canAttack() && (g.tick+int(u.id))%idleScanInterval == 0 {
		scan := targetScan{
			from:           u.Position(),
			team:           u.team,
			weapon:         u.weapon,
			radius:         patrolRadius * 1.5,
			cloakDetection: u.def.CloakDetection,
			airOnly:        u.def.Interceptor,
		}
		target := g.entities.FindNearestEnemyTargetable(scan)
		if target == nil && u.secondWeapon != nil {
			scan.weapon = u.secondWeapon
			target = g.entities.FindNearestEnemyTargetable(scan)
		}
		if target != nil {
			c.autoTarget = target.ID()
			return
		}
	}

	// Orbit: hop between the corners of the station polygon.
	orbit := vector.Vector{
		X: c.dest.X + math.Cos(c.stationAngle)*patrolRadius,
		Y: c.dest.Y + math.Sin(c.stationAngle)*patrolRadius,
	}
	if dist(u.Position(), orbit) <= patrolPointSnap {
		c.stationAngle += orbitStep(u.def)
	}
	c.steer(g, u, orbit)
}

// orbitStep is the angle between patrol polygon corners. Defs may tune
// the side count; anything below a triangle falls back to the default.
func orbitStep(def *UnitDef) float64 {
	sides := def.PatrolSides
	if sides < 3 {
		sides = defaultPatrolSides
	}
	return 2 * math.Pi / float64(sides)
}

// Sortie phases, tracked in UnitCommand.phase.
const (
	sortieOutbound = iota
	sortieAttackRun
)

// tickSortie flies the mission: outbound to the strike point, then a
// straight attack run held for attackRunTicks with the payload released
// at the halfway mark, then home. A targetable strike target updates
// the aim point while it lives.
func (u *Unit) tickSortie(g *Game) {
	c := u.command
	aim := c.dest
	if c.targetID != NoEntity {
		if target := g.entities.Targetable(c.targetID); target != nil && target.IsActive() {
			aim = target.Position()
		}
	}

	w := u.weapon
	if w == nil {
		u.setCommand(newReturnToHangarCommand())
		return
	}

	if c.phase == sortieOutbound {
		if dist(u.Position(), aim) > w.Range() {
			c.steer(g, u, aim)
			return
		}
		// Lock the run heading through the target and commit.
		c.phase = sortieAttackRun
		c.timer = 0
		c.runHeading = normalized(sub(aim, u.Position()))
		if length(c.runHeading) == 0 {
			c.runHeading = normalized(u.Velocity())
		}
	}

	c.timer++
	u.body.SetVelocity(scale(c.runHeading, u.speed()))
	u.body.Face(c.runHeading)

	if !c.payloadDropped && c.timer >= attackRunRelease {
		// Carpet the strike point along the flight axis.
		ords := w.dropStick(g.entities, u.id, u.Position(), u.team, aim, u.Velocity(), bombStickCount, bombStickSpacing)
		if len(ords) > 0 {
			g.spawnOrdinances(ords)
			c.payloadDropped = true
			g.log.Event(g.tick, u.owner.playerID, "combat", "payloadRelease", float64(u.id))
		}
	}
	if c.timer >= attackRunTicks {
		u.setCommand(newReturnToHangarCommand())
	}
}

// tickReturnToHangar flies home, decelerates on final approach and
// docks. Docking refuels and rearms instantly; a full home hangar
// diverts the airframe to the nearest friendly hangar with room.
func (u *Unit) tickReturnToHangar(g *Game) {
	c := u.command
	hangar := u.resolveHangar(g)
	if hangar == nil {
		u.body.SetVelocity(zeroVec)
		return
	}
	d := dist(u.Position(), hangar.pos)
	if d > hangarProximity {
		if d < landingSlowRadius {
			// Landing: bleed speed off toward the pad.
			frac := d / landingSlowRadius
			if frac < landingMinFrac {
				frac = landingMinFrac
			}
			desired := scale(normalized(sub(hangar.pos, u.Position())), u.speed()*frac)
			u.body.SetVelocity(desired)
			u.body.Face(desired)
			return
		}
		c.steer(g, u, hangar.pos)
		return
	}

	g.houseUnit(u, hangar.id)
	hangar.hangar.housed = append(hangar.hangar.housed, u.id)
	if u.air.onSortie {
		u.air.onSortie = false
		if hangar.hangar.onSortie > 0 {
			hangar.hangar.onSortie--
		}
	}
	u.air.homeHangar = hangar.id
	u.air.fuel = u.def.FuelTicks
	u.air.ammo = u.def.Ammo
	g.log.Event(g.tick, u.owner.playerID, "command", "docked", float64(u.id))
	u.advanceCommand()
}

// resolveHangar picks where to land: the home hangar if it still has
// room, otherwise the nearest friendly hangar that does.
func (u *Unit) resolveHangar(g *Game) *Building {
	fits := func(b *Building) bool {
		if b == nil || !b.active || b.underConstruction || b.team != u.team || b.hangar == nil {
			return false
		}
		occupancy := len(b.hangar.housed) + b.hangar.onSortie
		if b.id == u.air.homeHangar && u.air.onSortie {
			// Our own sortie reservation; landing converts it.
			occupancy--
		}
		return occupancy < b.def.HangarCapacity
	}
	if home := g.entities.Building(u.air.homeHangar); fits(home) {
		return home
	}
	var best *Building
	var bestD float64
	for _, b := range u.owner.sortedOwnedBuildings(g.entities) {
		if !fits(b) {
			continue
		}
		d := dist(u.Position(), b.pos)
		if best == nil || d < bestD {
			best = b
			bestD = d
		}
	}
	return best
}
