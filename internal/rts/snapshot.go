package rts

import (
	"math"
	"sort"
	"strconv"
)

// wireInfinity stands in for infinite or non-finite floats on the wire.
const wireInfinity = 999999

// round2 formats a float for the wire: two decimals, non-finite and
// oversized values collapse to the sentinel.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v > wireInfinity {
		return wireInfinity
	}
	if v < -wireInfinity {
		return -wireInfinity
	}
	return math.Round(v*100) / 100
}

// PointWire is an {x,y} pair on the wire.
type PointWire struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func pointWire(x, y float64) PointWire {
	return PointWire{X: round2(x), Y: round2(y)}
}

// CommandWire describes a unit's active command for the client.
type CommandWire struct {
	Type           string     `json:"type"`
	Phase          int        `json:"phase,omitempty"`
	TargetLocation *PointWire `json:"targetLocation,omitempty"`
	HomeLocation   *PointWire `json:"homeLocation,omitempty"`
}

// UnitWire is one unit on the wire.
type UnitWire struct {
	ID                   int          `json:"id"`
	X                    float64      `json:"x"`
	Y                    float64      `json:"y"`
	Type                 string       `json:"type"`
	Team                 int          `json:"team"`
	OwnerID              int          `json:"ownerId"`
	Health               float64      `json:"health"`
	MaxHealth            float64      `json:"maxHealth"`
	Rotation             float64      `json:"rotation"`
	Elevation            string       `json:"elevation"`
	Selected             bool         `json:"selected"`
	Cloaked              bool         `json:"cloaked,omitempty"`
	SpecialAbilityActive bool         `json:"specialAbilityActive,omitempty"`
	CurrentCommand       *CommandWire `json:"currentCommand,omitempty"`
}

// BuildingWire is one building on the wire.
type BuildingWire struct {
	ID                   int       `json:"id"`
	X                    float64   `json:"x"`
	Y                    float64   `json:"y"`
	Type                 string    `json:"type"`
	Team                 int       `json:"team"`
	OwnerID              int       `json:"ownerId"`
	Health               float64   `json:"health"`
	MaxHealth            float64   `json:"maxHealth"`
	Width                float64   `json:"width"`
	Height               float64   `json:"height"`
	UnderConstruction    bool      `json:"underConstruction,omitempty"`
	ConstructionProgress float64   `json:"constructionProgress,omitempty"`
	TurretRotation       float64   `json:"turretRotation,omitempty"`
	RallyPoint           PointWire `json:"rallyPoint"`
	GarrisonCount        int       `json:"garrisonCount,omitempty"`
	HangarOccupied       int       `json:"hangarOccupied,omitempty"`
	HangarOnSortie       bool      `json:"hangarOnSortie,omitempty"`
	ProductionQueue      []string  `json:"productionQueue,omitempty"`
	ProductionProgress   float64   `json:"productionProgress,omitempty"`
}

// ObstacleWire is one terrain obstacle on the wire.
type ObstacleWire struct {
	ID                int         `json:"id"`
	X                 float64     `json:"x"`
	Y                 float64     `json:"y"`
	Shape             string      `json:"shape"`
	Radius            float64     `json:"radius,omitempty"`
	Width             float64     `json:"width,omitempty"`
	Height            float64     `json:"height,omitempty"`
	Vertices          []PointWire `json:"vertices,omitempty"`
	ResourceType      string      `json:"resourceType,omitempty"`
	RemainingResource int         `json:"remainingResource,omitempty"`
}

// WallSegmentWire is one wall segment on the wire.
type WallSegmentWire struct {
	ID        int     `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Team      int     `json:"team"`
	OwnerID   int     `json:"ownerId"`
	Health    float64 `json:"health"`
	MaxHealth float64 `json:"maxHealth"`
}

// ProjectileWire is one in-flight round on the wire.
type ProjectileWire struct {
	ID       int     `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Type     string  `json:"type"`
	Rotation float64 `json:"rotation"`
}

// BeamWire is one beam visual on the wire.
type BeamWire struct {
	ID    int     `json:"id"`
	Type  string  `json:"type"`
	FromX float64 `json:"fromX"`
	FromY float64 `json:"fromY"`
	ToX   float64 `json:"toX"`
	ToY   float64 `json:"toY"`
}

// FieldEffectWire is one area effect on the wire.
type FieldEffectWire struct {
	ID       int     `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Type     string  `json:"type"`
	Radius   float64 `json:"radius"`
	Age      int     `json:"age"`
	Lifetime int     `json:"lifetime"`
}

// ResearchJobWire is one in-flight research item on the wire.
type ResearchJobWire struct {
	ID       string  `json:"id"`
	Progress float64 `json:"progress"`
}

// FactionWire is one player's faction state. Enemy factions carry only
// identity fields; the economy numbers stay private to their owner.
type FactionWire struct {
	PlayerID          int               `json:"playerId"`
	Name              string            `json:"name"`
	FactionType       string            `json:"factionType"`
	Team              int               `json:"team"`
	Defeated          bool              `json:"defeated,omitempty"`
	Credits           int               `json:"credits,omitempty"`
	UpkeepUsed        int               `json:"upkeepUsed,omitempty"`
	MaxUpkeep         int               `json:"maxUpkeep,omitempty"`
	PowerGenerated    int               `json:"powerGenerated,omitempty"`
	PowerConsumed     int               `json:"powerConsumed,omitempty"`
	LowPower          bool              `json:"lowPower,omitempty"`
	CompletedResearch []string          `json:"completedResearch,omitempty"`
	ActiveResearch    []ResearchJobWire `json:"activeResearch,omitempty"`
	ResearchQueue     []string          `json:"researchQueue,omitempty"`
}

// GameStateWire is the full per-player snapshot.
type GameStateWire struct {
	Tick         int                     `json:"tick"`
	WorldWidth   float64                 `json:"worldWidth"`
	WorldHeight  float64                 `json:"worldHeight"`
	Biome        string                  `json:"biome"`
	Units        []UnitWire              `json:"units"`
	Buildings    []BuildingWire          `json:"buildings"`
	Obstacles    []ObstacleWire          `json:"obstacles"`
	WallSegments []WallSegmentWire       `json:"wallSegments"`
	Projectiles  []ProjectileWire        `json:"projectiles"`
	Beams        []BeamWire              `json:"beams"`
	FieldEffects []FieldEffectWire       `json:"fieldEffects"`
	Factions     map[string]*FactionWire `json:"factions"`
}

// ServerMessage is the outbound envelope. Exactly one payload field is
// set per message, selected by Type.
type ServerMessage struct {
	Type        string         `json:"type"`
	PlayerID    int            `json:"playerId,omitempty"`
	GameState   *GameStateWire `json:"gameState,omitempty"`
	WinningTeam *int           `json:"winningTeam,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	GameEvent   *GameEvent     `json:"gameEvent,omitempty"`
}

// PlayerIDMessage is sent once when a session attaches.
func PlayerIDMessage(playerID int) *ServerMessage {
	return &ServerMessage{Type: "playerId", PlayerID: playerID}
}

func gameOverMessage(winningTeam int, reason string) *ServerMessage {
	return &ServerMessage{Type: "gameOver", WinningTeam: &winningTeam, Reason: reason}
}

func gameEventMessage(ev GameEvent) *ServerMessage {
	return &ServerMessage{Type: "gameEvent", GameEvent: &ev}
}

// PongMessage answers an application-level ping outside the tick.
func PongMessage() *ServerMessage {
	return &ServerMessage{Type: "pong"}
}

// buildSnapshot assembles the visibility-filtered game state for one
// player. Friendly entities always appear; enemies only inside
// friendly vision, cloaked enemies only inside detection range.
func (g *Game) buildSnapshot(playerID int) *ServerMessage {
	e := g.entities
	f := e.factions[playerID]
	visible := e.VisibleTo(f.team)

	state := &GameStateWire{
		Tick:        g.tick,
		WorldWidth:  g.world.Width,
		WorldHeight: g.world.Height,
		Biome:       g.biome,
		Factions:    make(map[string]*FactionWire, len(g.players)),
	}

	for _, id := range e.sortedUnitIDs() {
		u := e.units[id]
		if !visible[id] || u.housedIn != NoEntity {
			continue
		}
		pos := u.Position()
		uw := UnitWire{
			ID:        int(id),
			X:         round2(pos.X),
			Y:         round2(pos.Y),
			Type:      u.def.Type,
			Team:      int(u.team),
			OwnerID:   u.owner.playerID,
			Health:    round2(u.health),
			MaxHealth: round2(u.maxHealth),
			Rotation:  round2(u.body.Rotation()),
			Elevation: u.def.Elevation().String(),
			Selected:  u.selectedBy[playerID],
			Cloaked:   u.Cloaked(),
		}
		if u.cloak != nil {
			uw.SpecialAbilityActive = u.cloak.active
		}
		if u.owner.playerID == playerID {
			uw.CurrentCommand = commandWire(u)
		}
		state.Units = append(state.Units, uw)
	}

	for _, id := range e.sortedBuildingIDs() {
		b := e.buildings[id]
		if !visible[id] {
			continue
		}
		bw := BuildingWire{
			ID:        int(id),
			X:         round2(b.pos.X),
			Y:         round2(b.pos.Y),
			Type:      b.def.Type,
			Team:      int(b.team),
			OwnerID:   b.owner.playerID,
			Health:    round2(b.health),
			MaxHealth: round2(b.maxHealth),
			Width:     b.def.Width,
			Height:    b.def.Height,
			RallyPoint: pointWire(b.rally.X, b.rally.Y),
			UnderConstruction:    b.underConstruction,
			ConstructionProgress: round2(b.constructionProgress),
			TurretRotation:       round2(b.turretRotation),
		}
		if b.owner.playerID == playerID {
			bw.GarrisonCount = len(b.garrison)
			if b.hangar != nil {
				bw.HangarOccupied = len(b.hangar.housed)
				bw.HangarOnSortie = b.hangar.onSortie > 0
			}
			bw.ProductionQueue = append([]string(nil), b.productionQueue...)
			if len(b.productionQueue) > 0 {
				def := g.balance.Units[b.productionQueue[0]]
				if def != nil && def.BuildTicks > 0 {
					bw.ProductionProgress = round2(b.productionProgress / float64(def.BuildTicks))
				}
			}
		}
		state.Buildings = append(state.Buildings, bw)
	}

	obstacleIDs := make([]EntityID, 0, len(e.obstacles))
	for id := range e.obstacles {
		obstacleIDs = append(obstacleIDs, id)
	}
	sortEntityIDs(obstacleIDs)
	for _, id := range obstacleIDs {
		o := e.obstacles[id]
		if !o.active {
			continue
		}
		ow := ObstacleWire{
			ID:                int(id),
			X:                 round2(o.pos.X),
			Y:                 round2(o.pos.Y),
			Shape:             o.shape.String(),
			Radius:            round2(o.radius),
			Width:             round2(o.width),
			Height:            round2(o.height),
			ResourceType:      string(o.resource),
			RemainingResource: o.remainingResource,
		}
		for _, v := range o.vertices {
			ow.Vertices = append(ow.Vertices, pointWire(v.X, v.Y))
		}
		state.Obstacles = append(state.Obstacles, ow)
	}

	for _, id := range e.sortedWallIDs() {
		w := e.wallSegments[id]
		if !visible[id] {
			continue
		}
		state.WallSegments = append(state.WallSegments, WallSegmentWire{
			ID:        int(id),
			X:         round2(w.pos.X),
			Y:         round2(w.pos.Y),
			Team:      int(w.team),
			OwnerID:   w.owner.playerID,
			Health:    round2(w.health),
			MaxHealth: round2(w.maxHealth),
		})
	}

	for _, id := range sortedProjectileIDs(e) {
		p := e.projectiles[id]
		if !visible[id] || p.spent {
			continue
		}
		state.Projectiles = append(state.Projectiles, ProjectileWire{
			ID:       int(id),
			X:        round2(p.pos.X),
			Y:        round2(p.pos.Y),
			Type:     string(p.ordType),
			Rotation: round2(facing(zeroVec, p.vel)),
		})
	}

	beamIDs := make([]EntityID, 0, len(e.beams))
	for id := range e.beams {
		beamIDs = append(beamIDs, id)
	}
	sortEntityIDs(beamIDs)
	for _, id := range beamIDs {
		b := e.beams[id]
		if !visible[id] {
			continue
		}
		state.Beams = append(state.Beams, BeamWire{
			ID:    int(id),
			Type:  string(b.beamType),
			FromX: round2(b.from.X),
			FromY: round2(b.from.Y),
			ToX:   round2(b.to.X),
			ToY:   round2(b.to.Y),
		})
	}

	for _, id := range sortedFieldEffectIDs(e) {
		fe := e.fieldEffects[id]
		if !visible[id] {
			continue
		}
		state.FieldEffects = append(state.FieldEffects, FieldEffectWire{
			ID:       int(id),
			X:        round2(fe.center.X),
			Y:        round2(fe.center.Y),
			Type:     string(fe.effectType),
			Radius:   round2(fe.radius),
			Age:      fe.age,
			Lifetime: fe.lifetime,
		})
	}

	for _, p := range g.players {
		pf := e.factions[p.PlayerID]
		fw := &FactionWire{
			PlayerID:    pf.playerID,
			Name:        pf.name,
			FactionType: pf.def.Type,
			Team:        int(pf.team),
			Defeated:    pf.defeated,
		}
		if pf.playerID == playerID {
			fw.Credits = pf.credits
			fw.UpkeepUsed = pf.upkeepUsed
			fw.MaxUpkeep = pf.upkeepCap
			fw.PowerGenerated = pf.powerGenerated
			fw.PowerConsumed = pf.powerConsumed
			fw.LowPower = pf.lowPower
			fw.CompletedResearch = sortedResearchIDs(pf.researchDone)
			for _, job := range pf.activeResearch {
				rd := g.balance.Research[job.id]
				prog := 0.0
				if rd != nil && rd.DurationTicks > 0 {
					prog = job.progress / float64(rd.DurationTicks)
				}
				fw.ActiveResearch = append(fw.ActiveResearch, ResearchJobWire{ID: job.id, Progress: round2(prog)})
			}
			fw.ResearchQueue = append([]string(nil), pf.researchQueue...)
		}
		state.Factions[strconv.Itoa(pf.playerID)] = fw
	}

	return &ServerMessage{Type: "gameState", GameState: state}
}

// commandWire summarizes the active command for the owner's client.
func commandWire(u *Unit) *CommandWire {
	c := u.command
	cw := &CommandWire{Type: c.kind.String()}
	switch c.kind {
	case CmdHarvest, CmdMine:
		cw.Phase = c.phase
	}
	switch c.kind {
	case CmdMove, CmdAttackMove, CmdAttackGround, CmdOnStation, CmdSortie:
		p := pointWire(c.dest.X, c.dest.Y)
		cw.TargetLocation = &p
	}
	if c.fromScan {
		h := pointWire(c.anchor.X, c.anchor.Y)
		cw.HomeLocation = &h
	}
	return cw
}

func sortedResearchIDs(done map[string]bool) []string {
	out := make([]string, 0, len(done))
	for id := range done {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

