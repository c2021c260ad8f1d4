package rts

import (
	"github.com/rudransh61/Physix-go/pkg/vector"
)

// CommandKind enumerates the unit command variants.
type CommandKind int

const (
	CmdIdle CommandKind = iota
	CmdMove
	CmdAttackMove
	CmdAttackTargetable
	CmdAttackGround
	CmdConstruct
	CmdHarvest
	CmdMine
	CmdGarrison
	CmdOnStation
	CmdSortie
	CmdReturnToHangar
)

func (k CommandKind) String() string {
	switch k {
	case CmdIdle:
		return "IDLE"
	case CmdMove:
		return "MOVE"
	case CmdAttackMove:
		return "ATTACK_MOVE"
	case CmdAttackTargetable:
		return "ATTACK_TARGETABLE"
	case CmdAttackGround:
		return "ATTACK_GROUND"
	case CmdConstruct:
		return "CONSTRUCT"
	case CmdHarvest:
		return "HARVEST"
	case CmdMine:
		return "MINE"
	case CmdGarrison:
		return "GARRISON"
	case CmdOnStation:
		return "ON_STATION"
	case CmdSortie:
		return "SORTIE"
	case CmdReturnToHangar:
		return "RETURN_TO_HANGAR"
	default:
		return "UNKNOWN"
	}
}

// Movement tuning. Arrival thresholds differ by context: plain moves
// stop dead at the destination, queued waypoints hand off early so the
// unit flows through them.
const (
	moveArriveDist     = 10.0
	waypointArriveDist = 20.0

	pathThrottleTicks = 30 // min ticks between repaths
	repathTargetMoved = 50 // repath when a pursued target moved this far

	idleScanInterval = 30  // ticks between idle target scans
	defensiveLeash   = 300 // max pursuit distance from home for DEFENSIVE

	// Engaged units close to this fraction of effective range so range
	// jitter does not thrash between advance and fire.
	rangeHysteresis = 0.9
)

// UnitCommand is the tagged-variant command record. One struct holds
// the superset of per-kind state; the kind selects which fields are
// live. Commands are created by the constructors below and never
// shared between units.
type UnitCommand struct {
	kind     CommandKind
	dest     vector.Vector
	targetID EntityID

	// Path-following state.
	path         []vector.Vector
	pathIndex    int
	lastPathTick int
	pathGoal     vector.Vector

	// Attack state.
	autoTarget    EntityID
	lastTargetPos vector.Vector
	engaged       bool

	// Scan-issued attacks remember where to fall back to.
	fromScan bool
	anchor   vector.Vector

	// Worker and air loop state.
	phase          int
	timer          int
	payloadDropped bool
	runHeading     vector.Vector // locked attack-run course
	stationAngle   float64
}

// Kind returns the command variant.
func (c *UnitCommand) Kind() CommandKind { return c.kind }

// TargetID returns the target entity, or NoEntity.
func (c *UnitCommand) TargetID() EntityID { return c.targetID }

func newIdleCommand() *UnitCommand {
	return &UnitCommand{kind: CmdIdle}
}

func newMoveCommand(dest vector.Vector) *UnitCommand {
	return &UnitCommand{kind: CmdMove, dest: dest}
}

func newAttackMoveCommand(dest vector.Vector) *UnitCommand {
	return &UnitCommand{kind: CmdAttackMove, dest: dest}
}

func newAttackTargetableCommand(target EntityID) *UnitCommand {
	return &UnitCommand{kind: CmdAttackTargetable, targetID: target}
}

// newScanAttackCommand is the variant the idle scan issues: it carries
// the anchor the unit falls back to when the engagement ends.
func newScanAttackCommand(target EntityID, anchor vector.Vector) *UnitCommand {
	return &UnitCommand{kind: CmdAttackTargetable, targetID: target, fromScan: true, anchor: anchor}
}

func newAttackGroundCommand(point vector.Vector) *UnitCommand {
	return &UnitCommand{kind: CmdAttackGround, dest: point}
}

func newConstructCommand(building EntityID) *UnitCommand {
	return &UnitCommand{kind: CmdConstruct, targetID: building}
}

func newHarvestCommand(obstacle EntityID) *UnitCommand {
	return &UnitCommand{kind: CmdHarvest, targetID: obstacle}
}

func newMineCommand(obstacle EntityID) *UnitCommand {
	return &UnitCommand{kind: CmdMine, targetID: obstacle}
}

func newGarrisonCommand(building EntityID) *UnitCommand {
	return &UnitCommand{kind: CmdGarrison, targetID: building}
}

func newOnStationCommand(center vector.Vector) *UnitCommand {
	return &UnitCommand{kind: CmdOnStation, dest: center}
}

func newSortieCommand(point vector.Vector, target EntityID) *UnitCommand {
	return &UnitCommand{kind: CmdSortie, dest: point, targetID: target}
}

func newReturnToHangarCommand() *UnitCommand {
	return &UnitCommand{kind: CmdReturnToHangar}
}

// cancel clears transient steering state when a command is replaced.
func (c *UnitCommand) cancel(u *Unit) {
	c.path = nil
	c.pathIndex = 0
	c.autoTarget = NoEntity
	c.engaged = false
}

// tickCommand runs one step of the unit's active command.
func (u *Unit) tickCommand(g *Game) {
	if !u.active || u.housedIn != NoEntity {
		return
	}
	if u.weapon != nil {
		u.weapon.tickCooldown()
	}
	if u.secondWeapon != nil {
		u.secondWeapon.tickCooldown()
	}
	if u.air != nil {
		u.tickFuel(g)
		if !u.active {
			return
		}
	}

	switch u.command.kind {
	case CmdIdle:
		u.tickIdle(g)
	case CmdMove:
		u.tickMove(g)
	case CmdAttackMove:
		u.tickAttackMove(g)
	case CmdAttackTargetable:
		u.tickAttackTargetable(g)
	case CmdAttackGround:
		u.tickAttackGround(g)
	case CmdConstruct:
		u.tickConstruct(g)
	case CmdHarvest:
		u.tickHarvest(g)
	case CmdMine:
		u.tickMine(g)
	case CmdGarrison:
		u.tickGarrison(g)
	case CmdOnStation:
		u.tickOnStation(g)
	case CmdSortie:
		u.tickSortie(g)
	case CmdReturnToHangar:
		u.tickReturnToHangar(g)
	}
}

// tickIdle holds position and scans for enemies on a staggered
// interval. What happens on contact depends on stance: HOLD_POSITION
// fires only at what is already in range, DEFENSIVE pursues within the
// leash, AGGRESSIVE pursues to vision range.
func (u *Unit) tickIdle(g *Game) {
	u.body.SetVelocity(vector.Vector{})
	if !u.canAttack() {
		return
	}
	// Stagger scans across units so they don't all pay on the same tick.
	if (g.tick+int(u.id))%idleScanInterval != 0 {
		return
	}

	scan := targetScan{
		from:           u.Position(),
		team:           u.team,
		weapon:         u.weapon,
		cloakDetection: u.def.CloakDetection,
	}
	switch u.stance {
	case StanceHoldPosition:
		// Only engage what the weapon already reaches.
		scan.radius = u.weapon.Range() + 40
	case StanceAggressive:
		scan.radius = u.searchRadius()
	default: // DEFENSIVE
		scan.radius = u.searchRadius()
		scan.anchor = u.homePos
		scan.leash = defensiveLeash
	}

	target := g.entities.FindNearestEnemyTargetable(scan)
	if target == nil && u.secondWeapon != nil {
		scan.weapon = u.secondWeapon
		target = g.entities.FindNearestEnemyTargetable(scan)
	}
	if target == nil {
		return
	}
	g.log.EventVerbose(g.tick, u.owner.playerID, "command", "idleAcquire", target.TargetKind(), float64(target.ID()))
	u.interruptCommand(newScanAttackCommand(target.ID(), u.homePos))
}

// tickMove path-follows to the destination and completes on arrival.
func (u *Unit) tickMove(g *Game) {
	arrive := moveArriveDist
	if len(u.queue) > 0 {
		arrive = waypointArriveDist
	}
	if u.command.moveToward(g, u, u.command.dest, arrive) {
		u.homePos = u.Position()
		u.advanceCommand()
	}
}

// weaponFor picks a mount able to hit the elevation, primary first.
func (u *Unit) weaponFor(e Elevation) *Weapon {
	if u.weapon != nil && u.weapon.CanHit(e) {
		return u.weapon
	}
	if u.secondWeapon != nil && u.secondWeapon.CanHit(e) {
		return u.secondWeapon
	}
	return nil
}

// fireAt fires the appropriate mount if the target is in effective
// range. Returns true when the unit is in range (engaging), whether or
// not a round actually left this tick.
func (u *Unit) fireAt(g *Game, target Targetable) bool {
	w := u.weaponFor(target.Elevation())
	if w == nil || !w.inRange(u.Position(), target) {
		return false
	}
	u.body.SetVelocity(vector.Vector{})
	u.body.Face(sub(target.Position(), u.Position()))
	if !w.ready() {
		return true
	}
	ords := w.fire(g.entities, u.id, u.Position(), u.team, target, g.tick)
	if len(ords) == 0 {
		return true
	}
	g.spawnOrdinances(ords)
	if u.cloak != nil && u.cloak.active {
		// Firing drops the cloak.
		u.cloak.active = false
		g.log.Event(g.tick, u.owner.playerID, "combat", "decloakOnFire", float64(u.id))
	}
	if u.air != nil && u.def.Interceptor && u.air.ammo > 0 {
		u.air.ammo--
	}
	g.log.EventVerbose(g.tick, u.owner.playerID, "combat", "fire", string(w.def.Ordinance), float64(target.ID()))
	return true
}

// moveToward steers the unit along a path to dest. Airborne units fly
// direct; ground units use the grid pathfinder with repaths throttled.
// Returns true once within arrive of dest.
func (c *UnitCommand) moveToward(g *Game, u *Unit, dest vector.Vector, arrive float64) bool {
	pos := u.Position()
	if dist(pos, dest) <= arrive {
		u.body.SetVelocity(vector.Vector{})
		return true
	}

	if u.body.airborne {
		c.steer(g, u, dest)
		return false
	}

	// (Re)plan when there is no path, the goal moved, or the current
	// path is exhausted, at most once per throttle window.
	needPath := c.path == nil || c.pathIndex >= len(c.path) || dist(c.pathGoal, dest) > waypointArriveDist
	if needPath && g.tick-c.lastPathTick >= pathThrottleTicks {
		c.lastPathTick = g.tick
		c.pathGoal = dest
		c.pathIndex = 0
		path, ok := g.pathfinder.FindPath(pos, dest)
		if !ok {
			// Unreachable: creep straight at it and let physics stop us.
			c.path = nil
			c.steer(g, u, dest)
			return false
		}
		c.path = path
	}

	if c.path == nil {
		c.steer(g, u, dest)
		return false
	}

	// Advance through waypoints loosely; the final leg uses dest itself
	// so arrival stays exact.
	for c.pathIndex < len(c.path)-1 && dist(pos, c.path[c.pathIndex]) <= waypointArriveDist {
		c.pathIndex++
	}
	wp := dest
	if c.pathIndex < len(c.path)-1 {
		wp = c.path[c.pathIndex]
	}
	c.steer(g, u, wp)
	return false
}

// steer sets body velocity toward a point with simple separation from
// nearby ground bodies so clumps spread instead of stacking.
func (c *UnitCommand) steer(g *Game, u *Unit, toward vector.Vector) {
	pos := u.Position()
	desired := scale(normalized(sub(toward, pos)), u.speed())

	if !u.body.airborne {
		for _, otherID := range g.world.QueryCircle(pos, u.body.radius*3) {
			other := g.world.Body(otherID)
			if other == nil || other == u.body || other.airborne {
				continue
			}
			d := dist(pos, other.Position())
			minGap := u.body.radius + other.radius
			if d >= minGap || d == 0 {
				continue
			}
			push := scale(normalized(sub(pos, other.Position())), (minGap-d)/minGap*u.speed()*0.6)
			desired = add(desired, push)
		}
	}

	u.body.SetVelocity(desired)
	u.body.Face(desired)
}
