package rts

import (
	"io"
	"log/slog"
	"math/rand"
	"strconv"

	"github.com/rudransh61/Physix-go/pkg/vector"
)

// TestSim is a headless harness used exclusively by tests. It wraps a
// Game with scripted setup: a bare map (no generated terrain), one
// headquarters per player, and direct spawn helpers so scenarios place
// exactly what they need.
type TestSim struct {
	Game *Game

	seed      int64
	verbose   bool
	worldSize float64
	players   []PlayerSlot
}

// simOptionKind controls the pass in which an option is applied.
type simOptionKind int

const (
	simOptInfra simOptionKind = iota // seed, size, verbose, players
	simOptEntity                     // spawn extra entities after game build
)

// SimOption is a builder function applied to a TestSim during
// construction.
type SimOption struct {
	kind simOptionKind
	fn   func(*TestSim)
}

// WithSeed sets the RNG seed for deterministic runs.
func WithSeed(seed int64) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) { ts.seed = seed }}
}

// WithVerbose enables per-tick verbose logging.
func WithVerbose(v bool) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) { ts.verbose = v }}
}

// WithWorldSize overrides the square world edge length.
func WithWorldSize(size float64) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) { ts.worldSize = size }}
}

// WithPlayers replaces the default two-player setup. Slot i gets
// player id i.
func WithPlayers(factionTypes ...string) SimOption {
	return SimOption{simOptInfra, func(ts *TestSim) {
		ts.players = nil
		for i, ft := range factionTypes {
			ts.players = append(ts.players, PlayerSlot{
				PlayerID:    i,
				Team:        Team(i),
				Name:        "p" + strconv.Itoa(i),
				FactionType: ft,
			})
		}
	}}
}

// WithUnit spawns a unit for a player during construction.
func WithUnit(player int, unitType string, x, y float64) SimOption {
	return SimOption{simOptEntity, func(ts *TestSim) {
		ts.SpawnUnit(player, unitType, x, y)
	}}
}

// WithBuilding spawns a completed building for a player during
// construction.
func WithBuilding(player int, buildingType string, x, y float64) SimOption {
	return SimOption{simOptEntity, func(ts *TestSim) {
		ts.SpawnBuilding(player, buildingType, x, y)
	}}
}

// WithDeposit spawns a harvestable deposit during construction.
func WithDeposit(res ResourceType, x, y float64, amount int) SimOption {
	return SimOption{simOptEntity, func(ts *TestSim) {
		ts.SpawnDeposit(res, x, y, amount)
	}}
}

// NewTestSim constructs a harness in two ordered passes: infrastructure
// options first, then a bare game with one headquarters per player in
// opposite corners, then entity options.
func NewTestSim(opts ...SimOption) *TestSim {
	ts := &TestSim{
		seed:      1,
		worldSize: 3000,
		players: []PlayerSlot{
			{PlayerID: 0, Team: 0, Name: "p0", FactionType: "DUNE_COALITION"},
			{PlayerID: 1, Team: 1, Name: "p1", FactionType: "SALT_SYNDICATE"},
		},
	}
	for _, o := range opts {
		if o.kind == simOptInfra {
			o.fn(ts)
		}
	}

	balance := DefaultBalance()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := &Game{
		ID:         "testsim",
		seed:       ts.seed,
		rng:        rand.New(rand.NewSource(ts.seed)), // #nosec G404 -- test harness
		balance:    balance,
		biome:      "desert",
		world:      NewWorld(ts.worldSize, ts.worldSize),
		entities:   NewGameEntities(),
		log:        NewSimLog(ts.verbose),
		logger:     quiet,
		players:    ts.players,
		status:     StatusRunning,
		winnerTeam: NoTeam,
		inputCh:    make(chan *PlayerInput, inputQueueCap),
		stopCh:     make(chan struct{}),
		sinks:      make(map[int]SnapshotSink),
	}
	g.pathfinder = newPathfinder(g.world, g.entities)
	g.combat = newCombatManager(g)
	ts.Game = g

	corners := [][2]float64{
		{200, 200},
		{ts.worldSize - 200, ts.worldSize - 200},
		{ts.worldSize - 200, 200},
		{200, ts.worldSize - 200},
	}
	for i, p := range ts.players {
		f := newFaction(p.PlayerID, p.Team, p.Name, balance.Factions[p.FactionType], balance)
		g.entities.AddFaction(f)
		g.spawnBuilding(balance.Buildings["HEADQUARTERS"], f, vector.Vector{X: corners[i][0], Y: corners[i][1]}, false)
	}

	for _, o := range opts {
		if o.kind == simOptEntity {
			o.fn(ts)
		}
	}
	g.world.Step(0)
	return ts
}

// SpawnUnit places a unit for a player and returns it.
func (ts *TestSim) SpawnUnit(player int, unitType string, x, y float64) *Unit {
	f := ts.Game.entities.Faction(player)
	def := ts.Game.balance.Units[unitType]
	return ts.Game.spawnUnit(def, f, vector.Vector{X: x, Y: y})
}

// SpawnBuilding places a completed building for a player and returns
// it.
func (ts *TestSim) SpawnBuilding(player int, buildingType string, x, y float64) *Building {
	f := ts.Game.entities.Faction(player)
	def := ts.Game.balance.Buildings[buildingType]
	return ts.Game.spawnBuilding(def, f, vector.Vector{X: x, Y: y}, false)
}

// SpawnConstructionSite places an under-construction building.
func (ts *TestSim) SpawnConstructionSite(player int, buildingType string, x, y float64) *Building {
	f := ts.Game.entities.Faction(player)
	def := ts.Game.balance.Buildings[buildingType]
	return ts.Game.spawnBuilding(def, f, vector.Vector{X: x, Y: y}, true)
}

// SpawnDeposit places a harvestable deposit and returns it.
func (ts *TestSim) SpawnDeposit(res ResourceType, x, y float64, amount int) *Obstacle {
	id := ts.Game.entities.NextID()
	o := newCircleObstacle(id, vector.Vector{X: x, Y: y}, depositRadius)
	o.resource = res
	o.remainingResource = amount
	ts.Game.entities.obstacles[id] = o
	ts.Game.pathfinder.invalidate()
	return o
}

// Faction returns the faction for a player slot.
func (ts *TestSim) Faction(player int) *Faction {
	return ts.Game.entities.Faction(player)
}

// Input applies a player input immediately, before the next tick.
func (ts *TestSim) Input(in *PlayerInput) {
	in.apply(ts.Game)
}

// RunTicks advances the simulation n ticks.
func (ts *TestSim) RunTicks(n int) {
	for i := 0; i < n; i++ {
		ts.Game.stepOnce()
	}
}

// RunUntil advances up to maxTicks, stopping early when the predicate
// holds. Returns the tick at which it was satisfied, or -1.
func (ts *TestSim) RunUntil(predicate func(*TestSim) bool, maxTicks int) int {
	for i := 0; i < maxTicks; i++ {
		ts.Game.stepOnce()
		if predicate(ts) {
			return ts.Game.tick
		}
	}
	return -1
}

// RunSeconds advances whole seconds of simulated time.
func (ts *TestSim) RunSeconds(s int) {
	ts.RunTicks(s * TicksPerSecond)
}
