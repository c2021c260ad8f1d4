package rts

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/rudransh61/Physix-go/pkg/vector"
)

// Simulation cadence. Everything downstream of the tick counts in
// these units.
const (
	TicksPerSecond = 60
	TickSeconds    = 1.0 / float64(TicksPerSecond)

	// Snapshots publish every other tick (30 Hz).
	snapshotEveryTicks = 2

	inputQueueCap = 256
)

// GameStatus is the lifecycle state of a game.
type GameStatus string

const (
	StatusRunning  GameStatus = "RUNNING"
	StatusFinished GameStatus = "FINISHED"
	StatusErrored  GameStatus = "ERRORED"
)

// World edge length by player count.
func worldSizeFor(players int) float64 {
	switch {
	case players <= 2:
		return 3000
	case players == 3:
		return 3500
	default:
		return 4000
	}
}

// PlayerSlot describes one participant at game creation.
type PlayerSlot struct {
	PlayerID    int
	Team        Team
	Name        string
	FactionType string
}

// SnapshotSink receives server messages for one player. Implementations
// must not block: the game goroutine calls Deliver inline.
type SnapshotSink interface {
	Deliver(msg *ServerMessage)
}

// Game is one running match. All simulation state is owned by the game
// goroutine; the only concurrent surfaces are the input queue and the
// sink registry.
type Game struct {
	ID      string
	seed    int64
	rng     *rand.Rand
	balance *Balance
	biome   string

	density    string

	world      *World
	entities   *GameEntities
	pathfinder *Pathfinder
	combat     *CombatManager
	log        *SimLog
	logger     *slog.Logger

	players []PlayerSlot

	tick       int
	status     GameStatus
	winnerTeam Team

	inputCh chan *PlayerInput
	stopCh  chan struct{}
	stopped sync.Once

	sinkMu sync.Mutex
	sinks  map[int]SnapshotSink
}

// Resource density presets for map generation.
const (
	DensitySparse = "SPARSE"
	DensityNormal = "NORMAL"
	DensityDense  = "DENSE"
)

// GameOptions tunes game construction.
type GameOptions struct {
	Seed       int64
	Balance    *Balance
	Biome      string
	Density    string
	Logger     *slog.Logger
	VerboseLog bool
}

// NewGame builds a fully initialized match: world, factions, starting
// bases and map geometry. It does not start the loop; call Run or Step.
func NewGame(id string, players []PlayerSlot, opts GameOptions) (*Game, error) {
	if len(players) < 2 || len(players) > 4 {
		return nil, fmt.Errorf("game %s: need 2-4 players, got %d", id, len(players))
	}
	balance := opts.Balance
	if balance == nil {
		balance = DefaultBalance()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	biome := opts.Biome
	if biome == "" {
		biome = "desert"
	}
	density := opts.Density
	if density == "" {
		density = DensityNormal
	}

	size := worldSizeFor(len(players))
	g := &Game{
		ID:         id,
		seed:       opts.Seed,
		rng:        rand.New(rand.NewSource(opts.Seed)), // #nosec G404 -- deterministic sim, not crypto
		balance:    balance,
		biome:      biome,
		density:    density,
		world:      NewWorld(size, size),
		entities:   NewGameEntities(),
		log:        NewSimLog(opts.VerboseLog),
		logger:     logger.With("game", id),
		players:    players,
		status:     StatusRunning,
		winnerTeam: NoTeam,
		inputCh:    make(chan *PlayerInput, inputQueueCap),
		stopCh:     make(chan struct{}),
		sinks:      make(map[int]SnapshotSink),
	}
	g.pathfinder = newPathfinder(g.world, g.entities)
	g.combat = newCombatManager(g)

	for _, p := range players {
		fd := balance.Factions[p.FactionType]
		if fd == nil {
			return nil, fmt.Errorf("game %s: unknown faction type %q", id, p.FactionType)
		}
		g.entities.AddFaction(newFaction(p.PlayerID, p.Team, p.Name, fd, balance))
	}

	g.generateMap()
	g.world.Step(0) // seed the spatial hash
	return g, nil
}

// Status returns the lifecycle state.
func (g *Game) Status() GameStatus { return g.status }

// Tick returns the current tick number.
func (g *Game) Tick() int { return g.tick }

// WinnerTeam returns the latched winner, or NoTeam while running.
func (g *Game) WinnerTeam() Team { return g.winnerTeam }

// SimLog exposes the structured event log (headless runs and tests).
func (g *Game) SimLog() *SimLog { return g.log }

// Units returns every live unit in ascending id order. Not safe to
// call while the game goroutine is stepping.
func (g *Game) Units() []*Unit {
	out := make([]*Unit, 0, len(g.entities.units))
	for _, id := range g.entities.sortedUnitIDs() {
		out = append(out, g.entities.units[id])
	}
	return out
}

// Buildings returns every building in ascending id order.
func (g *Game) Buildings() []*Building {
	out := make([]*Building, 0, len(g.entities.buildings))
	for _, id := range g.entities.sortedBuildingIDs() {
		out = append(out, g.entities.buildings[id])
	}
	return out
}

// Obstacles returns every obstacle in ascending id order.
func (g *Game) Obstacles() []*Obstacle {
	ids := g.entities.sortedObstacleIDs()
	out := make([]*Obstacle, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.entities.obstacles[id])
	}
	return out
}

// QueueInput hands a player input to the game goroutine. Never blocks;
// inputs beyond the queue capacity are dropped with a warning.
func (g *Game) QueueInput(in *PlayerInput) {
	select {
	case g.inputCh <- in:
	default:
		g.logger.Warn("input queue full, dropping input",
			"player", in.PlayerID, "type", in.Type)
	}
}

// AttachSink registers (or replaces) the snapshot sink for a player.
func (g *Game) AttachSink(playerID int, sink SnapshotSink) {
	g.sinkMu.Lock()
	g.sinks[playerID] = sink
	g.sinkMu.Unlock()
}

// DetachSink removes a player's sink.
func (g *Game) DetachSink(playerID int) {
	g.sinkMu.Lock()
	delete(g.sinks, playerID)
	g.sinkMu.Unlock()
}

func (g *Game) deliver(playerID int, msg *ServerMessage) {
	g.sinkMu.Lock()
	sink := g.sinks[playerID]
	g.sinkMu.Unlock()
	if sink != nil {
		sink.Deliver(msg)
	}
}

// Stop terminates the run loop.
func (g *Game) Stop() {
	g.stopped.Do(func() { close(g.stopCh) })
}

// Run drives the fixed-step loop until the game finishes, the context
// ends or Stop is called. Meant to be the body of the per-game
// goroutine.
func (g *Game) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / TicksPerSecond)
	defer ticker.Stop()
	g.logger.Info("game loop started", "players", len(g.players), "seed", g.seed)
	for {
		select {
		case <-ctx.Done():
			g.logger.Info("game loop stopped", "reason", "context", "tick", g.tick)
			return
		case <-g.stopCh:
			g.logger.Info("game loop stopped", "reason", "stop", "tick", g.tick)
			return
		case <-ticker.C:
			g.Step()
			if g.status == StatusErrored {
				return
			}
		}
	}
}

// Step advances the simulation by exactly one tick. A panic anywhere
// in the tick marks the game errored and tells every client, instead
// of taking the process down.
func (g *Game) Step() {
	defer func() {
		if r := recover(); r != nil {
			g.status = StatusErrored
			g.logger.Error("tick panicked", "tick", g.tick, "panic", r)
			g.broadcastGameOver(int(NoTeam), "internal_error")
		}
	}()
	g.stepOnce()
}

// stepOnce is the fixed tick order. Finished games still drain inputs
// and publish snapshots so clients see the final state, but the sim
// itself is frozen.
func (g *Game) stepOnce() {
	g.tick++
	g.drainInputs()

	if g.status == StatusRunning {
		for _, id := range g.entities.sortedUnitIDs() {
			g.entities.units[id].tickCommand(g)
		}
		g.world.Step(TickSeconds)
		g.combat.tick()
		for _, p := range g.players {
			g.entities.factions[p.PlayerID].tickEconomy(g)
		}
		g.cullDead()
		g.checkVictory()
	}

	if g.tick%snapshotEveryTicks == 0 {
		g.publishSnapshots()
	}
}

// drainInputs applies every input queued since the last tick, in
// arrival order.
func (g *Game) drainInputs() {
	for {
		select {
		case in := <-g.inputCh:
			in.apply(g)
		default:
			return
		}
	}
}

// cullDead removes inactive units, buildings and walls, settles their
// side effects (events, housing, geometry) and clears spent rounds.
func (g *Game) cullDead() {
	e := g.entities

	for _, id := range e.sortedUnitIDs() {
		u := e.units[id]
		if u.active {
			continue
		}
		g.world.Remove(id)
		if u.air != nil && u.air.onSortie {
			if h := e.Building(u.air.homeHangar); h != nil && h.hangar != nil && h.hangar.onSortie > 0 {
				h.hangar.onSortie--
			}
		}
		u.owner.pushEvent("combat", u.def.Type+" lost")
		g.log.Event(g.tick, u.owner.playerID, "combat", "unitLost", float64(id))
		e.removeUnit(id)
	}

	geometryChanged := false
	for _, id := range e.sortedBuildingIDs() {
		b := e.buildings[id]
		if b.active {
			continue
		}
		// Bunker occupants spill out; hangared aircraft go down with
		// the building.
		for _, uid := range b.garrison {
			if u := e.Unit(uid); u != nil && u.housedIn == id {
				g.unhouseUnit(u, b.pos)
			}
		}
		if b.hangar != nil {
			for _, uid := range b.hangar.housed {
				if u := e.Unit(uid); u != nil && u.housedIn == id {
					u.active = false
					u.housedIn = NoEntity
					u.owner.pushEvent("combat", u.def.Type+" destroyed in hangar")
					e.removeUnit(uid)
				}
			}
		}
		g.world.Remove(id)
		b.owner.pushEvent("combat", b.def.Type+" destroyed")
		g.log.Event(g.tick, b.owner.playerID, "combat", "buildingLost", float64(id))
		e.removeBuilding(id)
		geometryChanged = true
	}

	for _, id := range e.sortedWallIDs() {
		w := e.wallSegments[id]
		if w.active {
			continue
		}
		g.world.Remove(id)
		delete(e.wallSegments, id)
		geometryChanged = true
	}

	for _, id := range e.sortedObstacleIDs() {
		o := e.obstacles[id]
		if o.active {
			continue
		}
		g.log.Event(g.tick, -1, "combat", "obstacleDestroyed", float64(id))
		delete(e.obstacles, id)
		geometryChanged = true
	}

	for id, p := range e.projectiles {
		if p.spent {
			delete(e.projectiles, id)
		}
	}

	if geometryChanged {
		g.pathfinder.invalidate()
	}

	// Scrub garrison and hangar rosters of removed units.
	for _, id := range e.sortedBuildingIDs() {
		b := e.buildings[id]
		b.garrison = keepLiveIDs(e, b.garrison)
		if b.hangar != nil {
			b.hangar.housed = keepLiveIDs(e, b.hangar.housed)
		}
	}
}

func keepLiveIDs(e *GameEntities, ids []EntityID) []EntityID {
	out := ids[:0]
	for _, id := range ids {
		if e.Unit(id) != nil {
			out = append(out, id)
		}
	}
	return out
}

// checkVictory latches the outcome: a team wins the first time it is
// the only team with a live headquarters; zero teams with one is a
// draw (winningTeam -1). The latch guarantees gameOver fires at most
// once.
func (g *Game) checkVictory() {
	if g.status != StatusRunning {
		return
	}
	e := g.entities

	hqTeams := make(map[Team]bool)
	for _, p := range g.players {
		f := e.factions[p.PlayerID]
		hasHQ := false
		for id := range e.buildingsByOwner[p.PlayerID] {
			b := e.buildings[id]
			if b != nil && b.active && b.def.Type == "HEADQUARTERS" {
				hasHQ = true
				break
			}
		}
		if !hasHQ && !f.defeated {
			f.defeated = true
			g.log.Event(g.tick, p.PlayerID, "game", "defeated", 0)
		}
		if hasHQ {
			hqTeams[f.team] = true
		}
	}

	if len(hqTeams) > 1 {
		return
	}
	g.winnerTeam = NoTeam
	for t := range hqTeams {
		g.winnerTeam = t
	}
	g.status = StatusFinished
	g.log.Event(g.tick, -1, "game", "victory", float64(g.winnerTeam))
	g.logger.Info("game finished", "winnerTeam", int(g.winnerTeam), "tick", g.tick)
	g.broadcastGameOver(int(g.winnerTeam), "victory")
}

// --- spawning and housing ---

// spawnUnit places a new unit in the world at (or near) pos.
func (g *Game) spawnUnit(def *UnitDef, owner *Faction, pos vector.Vector) *Unit {
	id := g.entities.NextID()
	spot := pos
	if !def.Airframe && def.Elevation() == ElevationGround {
		spot = g.pathfinder.NearestFreePoint(pos)
	}
	body := g.world.AddCircleBody(id, spot, def.Radius, 1, def.Elevation() != ElevationGround)
	u := newUnit(id, def, owner, body)
	g.entities.addUnit(u)
	return u
}

// spawnProducedUnit realizes a finished production order. Airframes
// built at a hangar building dock straight into it; ground units exit
// below the footprint and walk to the rally point.
func (g *Game) spawnProducedUnit(b *Building, def *UnitDef) *Unit {
	if def.Airframe && b.hangar != nil {
		if len(b.hangar.housed)+b.hangar.onSortie >= b.def.HangarCapacity {
			// No room: hold the order complete until a slot frees.
			// Production re-runs next tick because the queue head was
			// already popped, so instead spawn airborne beside the pad.
			u := g.spawnUnit(def, b.owner, vector.Vector{X: b.pos.X, Y: b.pos.Y + b.def.Height/2 + 40})
			u.air.homeHangar = b.id
			return u
		}
		id := g.entities.NextID()
		u := newUnit(id, def, b.owner, nil)
		u.lastPos = b.pos
		u.homePos = b.pos
		u.housedIn = b.id
		u.air.homeHangar = b.id
		g.entities.addUnit(u)
		b.hangar.housed = append(b.hangar.housed, u.id)
		return u
	}

	exit := vector.Vector{X: b.pos.X, Y: b.pos.Y + b.def.Height/2 + def.Radius + 12}
	u := g.spawnUnit(def, b.owner, exit)
	if dist(b.rally, u.Position()) > moveArriveDist {
		u.setCommand(newMoveCommand(b.rally))
	}
	u.homePos = b.rally
	return u
}

// spawnBuilding places a structure and registers its static body.
func (g *Game) spawnBuilding(def *BuildingDef, owner *Faction, pos vector.Vector, underConstruction bool) *Building {
	id := g.entities.NextID()
	b := newBuilding(id, def, owner, pos, underConstruction)
	g.world.AddRectBody(id, pos, def.Width, def.Height)
	g.entities.addBuilding(b)
	if !underConstruction {
		g.pathfinder.invalidate()
	}
	return b
}

// spawnWallSegment places a wall segment and registers its static body
// so ground movement routes around it.
func (g *Game) spawnWallSegment(owner *Faction, pos vector.Vector) *WallSegment {
	id := g.entities.NextID()
	w := newWallSegment(id, owner, pos)
	g.world.AddRectBody(id, pos, wallSegmentSize, wallSegmentSize)
	g.entities.wallSegments[id] = w
	g.pathfinder.invalidate()
	return w
}

// onBuildingCompleted runs once when a construction site tops out.
func (g *Game) onBuildingCompleted(b *Building) {
	g.pathfinder.invalidate()
	b.owner.pushEvent("production", b.def.Type+" construction complete")
	g.log.Event(g.tick, b.owner.playerID, "production", "buildingComplete", float64(b.id))
}

// houseUnit removes a unit from the world into a building. The caller
// updates the building's roster.
func (g *Game) houseUnit(u *Unit, buildingID EntityID) {
	u.lastPos = u.Position()
	g.world.Remove(u.id)
	u.body = nil
	u.housedIn = buildingID
}

// unhouseUnit puts a housed unit back on the map near exitPos.
func (g *Game) unhouseUnit(u *Unit, exitPos vector.Vector) {
	spot := g.pathfinder.NearestFreePoint(exitPos)
	u.body = g.world.AddCircleBody(u.id, spot, u.def.Radius, 1, u.def.Elevation() != ElevationGround)
	u.housedIn = NoEntity
	u.homePos = spot
	u.setCommand(newIdleCommand())
}

// spawnOrdinances registers weapon output with the store.
func (g *Game) spawnOrdinances(ords []Ordinance) {
	for _, o := range ords {
		switch v := o.(type) {
		case *Projectile:
			g.entities.projectiles[v.id] = v
		case *Beam:
			g.entities.beams[v.id] = v
		}
	}
}

// nearestDropoff is the closest completed refinery or headquarters a
// gatherer can deliver to. Ties go to the lower id via sorted
// iteration.
func (g *Game) nearestDropoff(u *Unit) *Building {
	var best *Building
	var bestD float64
	for _, b := range u.owner.sortedOwnedBuildings(g.entities) {
		if !b.active || b.underConstruction {
			continue
		}
		if !b.def.Refinery && b.def.Type != "HEADQUARTERS" {
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

// broadcastGameOver pushes the terminal message to every attached sink.
func (g *Game) broadcastGameOver(winningTeam int, reason string) {
	g.sinkMu.Lock()
	sinks := make([]SnapshotSink, 0, len(g.sinks))
	for _, s := range g.sinks {
		sinks = append(sinks, s)
	}
	g.sinkMu.Unlock()
	msg := gameOverMessage(winningTeam, reason)
	for _, s := range sinks {
		s.Deliver(msg)
	}
}

// publishSnapshots drains each faction's event outbox and delivers it
// with a visibility-filtered snapshot.
func (g *Game) publishSnapshots() {
	for _, p := range g.players {
		f := g.entities.factions[p.PlayerID]
		for _, ev := range f.drainEvents() {
			g.deliver(p.PlayerID, gameEventMessage(ev))
		}
		g.deliver(p.PlayerID, g.buildSnapshot(p.PlayerID))
	}
}

// --- map generation ---

const (
	startCornerOffset = 420.0
	depositRadius     = 45.0
	rockHitPoints     = 400.0 // midfield blockers can be shelled open
)

// densityFactor scales resource amounts and terrain clutter from the
// requested map density.
func (g *Game) densityFactor() float64 {
	switch g.density {
	case DensitySparse:
		return 0.5
	case DensityDense:
		return 1.5
	default:
		return 1.0
	}
}

// generateMap lays down starting bases and seeded terrain. Start
// corners rotate through the player list; resource deposits sit near
// each base with extra contested deposits around the center.
func (g *Game) generateMap() {
	size := g.world.Width
	density := g.densityFactor()
	corners := [][2]float64{
		{startCornerOffset, startCornerOffset},
		{size - startCornerOffset, size - startCornerOffset},
		{size - startCornerOffset, startCornerOffset},
		{startCornerOffset, size - startCornerOffset},
	}

	for i, p := range g.players {
		f := g.entities.factions[p.PlayerID]
		base := vector.Vector{X: corners[i][0], Y: corners[i][1]}

		hq := g.spawnBuilding(g.balance.Buildings["HEADQUARTERS"], f, base, false)
		plantPos := vector.Vector{X: base.X + 180, Y: base.Y}
		if base.X > size/2 {
			plantPos.X = base.X - 180
		}
		g.spawnBuilding(g.balance.Buildings["POWER_PLANT"], f, plantPos, false)

		for w := 0; w < 3; w++ {
			pos := vector.Vector{X: base.X + float64(w-1)*30, Y: base.Y + hq.def.Height/2 + 40}
			g.spawnUnit(g.balance.Units["WORKER"], f, pos)
		}
		g.spawnUnit(g.balance.Units["MINER"], f, vector.Vector{X: base.X, Y: base.Y + hq.def.Height/2 + 80})

		// Local deposits: one spice, one ore, jittered by the seed.
		g.spawnDeposit(ResourceSpice, vector.Vector{
			X: base.X + g.jitter(120, 260),
			Y: base.Y + g.jitter(120, 260),
		}, int(1200*density))
		g.spawnDeposit(ResourceOre, vector.Vector{
			X: base.X - g.jitter(120, 260),
			Y: base.Y + g.jitter(120, 260),
		}, int(900*density))
	}

	// Contested center.
	center := vector.Vector{X: size / 2, Y: size / 2}
	g.spawnDeposit(ResourceSpice, vector.Vector{X: center.X - 150, Y: center.Y}, int(2400*density))
	g.spawnDeposit(ResourceOre, vector.Vector{X: center.X + 150, Y: center.Y}, int(1800*density))

	// A few rock blockers scattered around the midfield.
	for i := 0; i < int(6*density); i++ {
		pos := vector.Vector{
			X: size*0.25 + g.rng.Float64()*size*0.5,
			Y: size*0.25 + g.rng.Float64()*size*0.5,
		}
		if dist(pos, center) < 320 {
			continue
		}
		id := g.entities.NextID()
		rock := newCircleObstacle(id, pos, 30+g.rng.Float64()*40)
		rock.hitPoints = rockHitPoints
		g.entities.obstacles[id] = rock
	}
	g.pathfinder.invalidate()
}

// jitter returns a seeded value in [min, max), sign preserved by the
// caller.
func (g *Game) jitter(min, max float64) float64 {
	return min + g.rng.Float64()*(max-min)
}

func (g *Game) spawnDeposit(res ResourceType, pos vector.Vector, amount int) {
	id := g.entities.NextID()
	o := newCircleObstacle(id, pos, depositRadius)
	o.resource = res
	o.remainingResource = amount
	g.entities.obstacles[id] = o
}
