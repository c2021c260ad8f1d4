package rts

import (
	"math"

	"github.com/rudransh61/Physix-go/pkg/vector"
)

// tickAttackTargetable pursues and fires on one explicit target. The
// command completes when the target dies, vanishes, re-cloaks out of
// detection, or a scan-issued engagement breaks its leash.
func (u *Unit) tickAttackTargetable(g *Game) {
	c := u.command
	target := g.entities.Targetable(c.targetID)
	if target == nil || !target.IsActive() {
		u.finishEngagement(g)
		return
	}
	if tu, ok := target.(*Unit); ok && tu.Cloaked() {
		det := u.def.CloakDetection
		if det <= 0 || dist(u.Position(), tu.Position()) > det {
			// Lost to cloak.
			u.finishEngagement(g)
			return
		}
	}
	w := u.weaponFor(target.Elevation())
	if w == nil {
		u.finishEngagement(g)
		return
	}

	if c.fromScan && u.stance == StanceDefensive && dist(c.anchor, u.Position()) > defensiveLeash {
		// Leash exceeded: break off and walk home.
		u.setCommand(newMoveCommand(c.anchor))
		return
	}

	eff := w.Range() + target.TargetSize()
	d := dist(u.Position(), target.Position())
	if d <= eff {
		c.engaged = true
		c.lastTargetPos = target.Position()
		u.fireAt(g, target)
		return
	}

	if c.fromScan && u.stance == StanceHoldPosition {
		// HOLD_POSITION never chases what walks away.
		u.finishEngagement(g)
		return
	}

	// Pursue to inside effective range, with slack so boundary jitter
	// does not thrash. A target that relocated far enough invalidates
	// the path immediately (still throttled by the planner).
	if dist(c.lastTargetPos, target.Position()) > repathTargetMoved {
		c.path = nil
		c.lastTargetPos = target.Position()
	}
	c.moveToward(g, u, target.Position(), rangeHysteresis*eff)
}

// finishEngagement ends an attack command. Scan-issued DEFENSIVE
// engagements walk back to their anchor; everything else falls through
// to the queue.
func (u *Unit) finishEngagement(g *Game) {
	c := u.command
	if c.fromScan && u.stance == StanceDefensive && dist(u.Position(), c.anchor) > moveArriveDist {
		u.setCommand(newMoveCommand(c.anchor))
		return
	}
	u.advanceCommand()
}

// tickAttackMove advances toward the destination, engaging anything
// hostile found on the way. The walk resumes once the contact dies or
// falls too far behind.
func (u *Unit) tickAttackMove(g *Game) {
	c := u.command

	if c.autoTarget != NoEntity {
		target := g.entities.Targetable(c.autoTarget)
		if target == nil || !target.IsActive() {
			c.autoTarget = NoEntity
		} else if w := u.weaponFor(target.Elevation()); w == nil {
			c.autoTarget = NoEntity
		} else {
			d := dist(u.Position(), target.Position())
			if d > u.searchRadius()*1.5 {
				// Too far off the axis of advance; drop it.
				c.autoTarget = NoEntity
			} else {
				eff := w.Range() + target.TargetSize()
				if d <= eff {
					u.fireAt(g, target)
					return
				}
				if dist(c.lastTargetPos, target.Position()) > repathTargetMoved {
					c.path = nil
					c.lastTargetPos = target.Position()
				}
				c.moveToward(g, u, target.Position(), rangeHysteresis*eff)
				return
			}
		}
	}

	if u.canAttack() && (g.tick+int(u.id))%idleScanInterval == 0 {
		scan := targetScan{
			from:           u.Position(),
			team:           u.team,
			weapon:         u.weapon,
			radius:         u.searchRadius(),
			cloakDetection: u.def.CloakDetection,
		}
		target := g.entities.FindNearestEnemyTargetable(scan)
		if target == nil && u.secondWeapon != nil {
			scan.weapon = u.secondWeapon
			target = g.entities.FindNearestEnemyTargetable(scan)
		}
		if target != nil {
			c.autoTarget = target.ID()
			c.lastTargetPos = target.Position()
			c.path = nil
			return
		}
	}

	arrive := math.Max(u.def.Radius*0.75, moveArriveDist)
	if len(u.queue) > 0 {
		arrive = waypointArriveDist
	}
	if c.moveToward(g, u, c.dest, arrive) {
		u.homePos = u.Position()
		u.advanceCommand()
	}
}

// tickAttackGround shells a fixed point for as long as the order
// stands. Used for artillery area denial; the command never
// self-completes.
func (u *Unit) tickAttackGround(g *Game) {
	c := u.command
	w := u.weapon
	if w == nil || w.def.Beam {
		u.advanceCommand()
		return
	}
	d := dist(u.Position(), c.dest)
	if d <= w.Range() {
		u.body.SetVelocity(vector.Vector{})
		u.body.Face(c.dest)
		if w.ready() {
			if ords := w.fireAtGround(g.entities, u.id, u.Position(), u.team, c.dest); len(ords) > 0 {
				g.spawnOrdinances(ords)
				g.log.EventVerbose(g.tick, u.owner.playerID, "combat", "fireGround", "", float64(u.id))
			}
		}
		return
	}
	c.moveToward(g, u, c.dest, rangeHysteresis*w.Range())
}
