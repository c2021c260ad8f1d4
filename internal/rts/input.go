package rts

import (
	"github.com/rudransh61/Physix-go/pkg/vector"
)

// PlayerInput is one inbound rtsInput message. All order fields are
// optional; unknown JSON fields are dropped by the decoder. PlayerID
// is stamped server-side from the session, never trusted from the
// client.
type PlayerInput struct {
	PlayerID int    `json:"-"`
	Type     string `json:"type"`

	SelectUnits *[]int `json:"selectUnits,omitempty"`

	MoveOrder        *PointWire `json:"moveOrder,omitempty"`
	AttackMoveOrder  *PointWire `json:"attackMoveOrder,omitempty"`
	ForceAttackOrder *PointWire `json:"forceAttackOrder,omitempty"`

	AttackUnitOrder        int `json:"attackUnitOrder,omitempty"`
	AttackBuildingOrder    int `json:"attackBuildingOrder,omitempty"`
	AttackWallSegmentOrder int `json:"attackWallSegmentOrder,omitempty"`

	HarvestOrder   int `json:"harvestOrder,omitempty"`
	MineOrder      int `json:"mineOrder,omitempty"`
	ConstructOrder int `json:"constructOrder,omitempty"`
	GarrisonOrder  int `json:"garrisonOrder,omitempty"`

	UngarrisonBuildingID int  `json:"ungarrisonBuildingId,omitempty"`
	UngarrisonAll        bool `json:"ungarrisonAll,omitempty"`

	BuildOrder    string     `json:"buildOrder,omitempty"`
	BuildLocation *PointWire `json:"buildLocation,omitempty"`

	ProduceUnitOrder  string `json:"produceUnitOrder,omitempty"`
	ProduceBuildingID int    `json:"produceBuildingId,omitempty"`

	SetRallyBuildingID int        `json:"setRallyBuildingId,omitempty"`
	RallyPoint         *PointWire `json:"rallyPoint,omitempty"`

	StartResearchOrder       string `json:"startResearchOrder,omitempty"`
	ResearchBuildingID       int    `json:"researchBuildingId,omitempty"`
	CancelResearchBuildingID int    `json:"cancelResearchBuildingId,omitempty"`

	SortieHangarID       int        `json:"sortieHangarId,omitempty"`
	SortieTargetLocation *PointWire `json:"sortieTargetLocation,omitempty"`

	ActivateSpecialAbility bool `json:"activateSpecialAbility,omitempty"`

	// Shift-queue: append instead of replacing the active command.
	QueueOrder bool `json:"queueOrder,omitempty"`
}

// apply executes the input against the game state. Runs on the game
// goroutine at tick start. Invalid orders drop with a warning; capacity
// rejections surface as a warning gameEvent for the player.
func (in *PlayerInput) apply(g *Game) {
	f := g.entities.Faction(in.PlayerID)
	if f == nil {
		g.logger.Warn("input from unknown player", "player", in.PlayerID)
		return
	}

	if in.SelectUnits != nil {
		in.applySelection(g, f)
	}
	if in.MoveOrder != nil {
		in.issueToSelection(g, f, func(u *Unit) *UnitCommand {
			return newMoveCommand(in.clampPoint(g, *in.MoveOrder))
		})
	}
	if in.AttackMoveOrder != nil {
		in.issueToSelection(g, f, func(u *Unit) *UnitCommand {
			if !u.canAttack() {
				return newMoveCommand(in.clampPoint(g, *in.AttackMoveOrder))
			}
			return newAttackMoveCommand(in.clampPoint(g, *in.AttackMoveOrder))
		})
	}
	if in.ForceAttackOrder != nil {
		in.issueToSelection(g, f, func(u *Unit) *UnitCommand {
			if u.weapon == nil {
				return nil
			}
			return newAttackGroundCommand(in.clampPoint(g, *in.ForceAttackOrder))
		})
	}
	if in.AttackUnitOrder != 0 {
		in.applyAttackTarget(g, f, EntityID(in.AttackUnitOrder))
	}
	if in.AttackBuildingOrder != 0 {
		in.applyAttackTarget(g, f, EntityID(in.AttackBuildingOrder))
	}
	if in.AttackWallSegmentOrder != 0 {
		in.applyAttackTarget(g, f, EntityID(in.AttackWallSegmentOrder))
	}
	if in.HarvestOrder != 0 {
		in.applyGather(g, f, EntityID(in.HarvestOrder), false)
	}
	if in.MineOrder != 0 {
		in.applyGather(g, f, EntityID(in.MineOrder), true)
	}
	if in.ConstructOrder != 0 {
		in.applyConstruct(g, f, EntityID(in.ConstructOrder))
	}
	if in.GarrisonOrder != 0 {
		in.applyGarrison(g, f, EntityID(in.GarrisonOrder))
	}
	if in.UngarrisonBuildingID != 0 {
		in.applyUngarrison(g, f, EntityID(in.UngarrisonBuildingID))
	}
	if in.BuildOrder != "" && in.BuildLocation != nil {
		in.applyBuild(g, f)
	}
	if in.ProduceUnitOrder != "" && in.ProduceBuildingID != 0 {
		in.applyProduce(g, f)
	}
	if in.SetRallyBuildingID != 0 && in.RallyPoint != nil {
		in.applySetRally(g, f)
	}
	if in.StartResearchOrder != "" && in.ResearchBuildingID != 0 {
		in.applyStartResearch(g, f)
	}
	if in.CancelResearchBuildingID != 0 {
		in.applyCancelResearch(g, f)
	}
	if in.SortieHangarID != 0 && in.SortieTargetLocation != nil {
		in.applySortie(g, f)
	}
	if in.ActivateSpecialAbility {
		in.applySpecialAbility(g, f)
	}
}

func (in *PlayerInput) clampPoint(g *Game, p PointWire) vector.Vector {
	x, y := p.X, p.Y
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x > g.world.Width {
		x = g.world.Width
	}
	if y > g.world.Height {
		y = g.world.Height
	}
	return vector.Vector{X: x, Y: y}
}

func (in *PlayerInput) applySelection(g *Game, f *Faction) {
	for _, id := range g.entities.sortedUnitIDs() {
		delete(g.entities.units[id].selectedBy, in.PlayerID)
	}
	for _, raw := range *in.SelectUnits {
		u := g.entities.Unit(EntityID(raw))
		if u == nil || u.owner != f || !u.active {
			continue
		}
		u.selectedBy[in.PlayerID] = true
	}
}

// selection returns the player's selected, deployed units ascending.
func (in *PlayerInput) selection(g *Game, f *Faction) []*Unit {
	var out []*Unit
	for _, id := range g.entities.sortedUnitIDs() {
		u := g.entities.units[id]
		if u.owner == f && u.selectedBy[in.PlayerID] && u.IsActive() {
			out = append(out, u)
		}
	}
	return out
}

// issueToSelection builds one command per selected unit. A nil command
// skips the unit (capability mismatch).
func (in *PlayerInput) issueToSelection(g *Game, f *Faction, build func(*Unit) *UnitCommand) {
	for _, u := range in.selection(g, f) {
		cmd := build(u)
		if cmd == nil {
			continue
		}
		if in.QueueOrder {
			u.pushCommand(cmd)
		} else {
			u.setCommand(cmd)
		}
	}
}

func (in *PlayerInput) applyAttackTarget(g *Game, f *Faction, id EntityID) {
	target := g.entities.Targetable(id)
	if target == nil || !target.IsActive() {
		g.logger.Warn("attack order on unknown target", "player", in.PlayerID, "target", int(id))
		return
	}
	if target.Team() == f.team {
		return
	}
	in.issueToSelection(g, f, func(u *Unit) *UnitCommand {
		if u.weaponFor(target.Elevation()) == nil {
			return nil
		}
		return newAttackTargetableCommand(id)
	})
}

func (in *PlayerInput) applyGather(g *Game, f *Faction, id EntityID, mining bool) {
	o := g.entities.Obstacle(id)
	if o == nil || !o.Harvestable() {
		g.logger.Warn("gather order on unusable obstacle", "player", in.PlayerID, "obstacle", int(id))
		return
	}
	wantOre := o.resource == ResourceOre
	if mining != wantOre {
		return
	}
	in.issueToSelection(g, f, func(u *Unit) *UnitCommand {
		if u.carry == nil {
			return nil
		}
		if mining {
			if u.pickaxe == nil {
				return nil
			}
			return newMineCommand(id)
		}
		if !u.def.Worker {
			return nil
		}
		return newHarvestCommand(id)
	})
}

func (in *PlayerInput) applyConstruct(g *Game, f *Faction, id EntityID) {
	b := g.entities.Building(id)
	if b == nil || b.owner != f || !b.underConstruction {
		g.logger.Warn("construct order on invalid site", "player", in.PlayerID, "building", int(id))
		return
	}
	in.issueToSelection(g, f, func(u *Unit) *UnitCommand {
		if !u.def.Worker {
			return nil
		}
		return newConstructCommand(id)
	})
}

func (in *PlayerInput) applyGarrison(g *Game, f *Faction, id EntityID) {
	b := g.entities.Building(id)
	if b == nil || b.team != f.team || b.def.GarrisonCapacity == 0 {
		g.logger.Warn("garrison order on invalid building", "player", in.PlayerID, "building", int(id))
		return
	}
	in.issueToSelection(g, f, func(u *Unit) *UnitCommand {
		if u.def.Airframe || u.def.Elevation() != ElevationGround {
			return nil
		}
		return newGarrisonCommand(id)
	})
}

func (in *PlayerInput) applyUngarrison(g *Game, f *Faction, id EntityID) {
	b := g.entities.Building(id)
	if b == nil || b.owner != f || len(b.garrison) == 0 {
		return
	}
	count := 1
	if in.UngarrisonAll {
		count = len(b.garrison)
	}
	exit := vector.Vector{X: b.pos.X, Y: b.pos.Y + b.def.Height/2 + 24}
	for i := 0; i < count; i++ {
		uid := b.garrison[0]
		b.garrison = b.garrison[1:]
		if u := g.entities.Unit(uid); u != nil && u.housedIn == b.id {
			g.unhouseUnit(u, exit)
		}
	}
}

func (in *PlayerInput) applyBuild(g *Game, f *Faction) {
	def := g.balance.Buildings[in.BuildOrder]
	if def == nil || !containsString(f.def.Buildings, in.BuildOrder) {
		g.logger.Warn("build order for unknown type", "player", in.PlayerID, "type", in.BuildOrder)
		return
	}
	if !f.canAfford(def.CostCredits) {
		f.pushEvent("warning", "Insufficient credits for "+def.Type)
		return
	}
	pos := in.clampPoint(g, *in.BuildLocation)
	f.spend(def.CostCredits)

	// Walls go up instantly as segments; everything else starts as a
	// construction site for workers.
	if def.Wall {
		w := g.spawnWallSegment(f, pos)
		g.log.Event(g.tick, in.PlayerID, "production", "wallPlaced", float64(w.id))
		return
	}
	b := g.spawnBuilding(def, f, pos, true)
	g.log.Event(g.tick, in.PlayerID, "production", "buildPlaced", float64(b.id))

	// Any selected workers start on the new site immediately.
	in.issueToSelection(g, f, func(u *Unit) *UnitCommand {
		if !u.def.Worker {
			return nil
		}
		return newConstructCommand(b.id)
	})
}

func (in *PlayerInput) applyProduce(g *Game, f *Faction) {
	b := g.entities.Building(EntityID(in.ProduceBuildingID))
	def := g.balance.Units[in.ProduceUnitOrder]
	if b == nil || b.owner != f || b.underConstruction || def == nil ||
		!b.producesType(in.ProduceUnitOrder) || !containsString(f.def.Units, in.ProduceUnitOrder) {
		g.logger.Warn("produce order rejected", "player", in.PlayerID, "unitType", in.ProduceUnitOrder)
		return
	}
	if f.upkeepUsed+queuedUpkeep(g, f)+def.Upkeep > f.upkeepCap {
		f.pushEvent("warning", "Upkeep capacity reached")
		return
	}
	if !f.canAfford(def.CostCredits) {
		f.pushEvent("warning", "Insufficient credits for "+def.Type)
		return
	}
	f.spend(def.CostCredits)
	b.enqueueProduction(in.ProduceUnitOrder)
	g.log.Event(g.tick, in.PlayerID, "production", "enqueued", float64(b.id))
}

// queuedUpkeep totals upkeep already committed to production queues so
// players cannot overrun the cap by stacking orders.
func queuedUpkeep(g *Game, f *Faction) int {
	total := 0
	for _, b := range f.sortedOwnedBuildings(g.entities) {
		for _, ut := range b.productionQueue {
			if def := g.balance.Units[ut]; def != nil {
				total += def.Upkeep
			}
		}
	}
	return total
}

func (in *PlayerInput) applySetRally(g *Game, f *Faction) {
	b := g.entities.Building(EntityID(in.SetRallyBuildingID))
	if b == nil || b.owner != f {
		return
	}
	b.SetRally(g.pathfinder.NearestFreePoint(in.clampPoint(g, *in.RallyPoint)))
}

func (in *PlayerInput) applyStartResearch(g *Game, f *Faction) {
	b := g.entities.Building(EntityID(in.ResearchBuildingID))
	if b == nil || b.owner != f || b.underConstruction || !b.def.ResearchLab {
		g.logger.Warn("research order without a lab", "player", in.PlayerID)
		return
	}
	if !f.researchAvailable(in.StartResearchOrder) {
		g.logger.Warn("research unavailable", "player", in.PlayerID, "research", in.StartResearchOrder)
		return
	}
	rd := g.balance.Research[in.StartResearchOrder]
	if !f.canAfford(rd.CostCredits) {
		f.pushEvent("warning", "Insufficient credits for "+rd.Name)
		return
	}
	f.enqueueResearch(in.StartResearchOrder)
	g.log.Event(g.tick, in.PlayerID, "research", "enqueued", 0)
}

// applyCancelResearch drops the most recently queued item, or failing
// that the most recently started job. No refund either way.
func (in *PlayerInput) applyCancelResearch(g *Game, f *Faction) {
	b := g.entities.Building(EntityID(in.CancelResearchBuildingID))
	if b == nil || b.owner != f || !b.def.ResearchLab {
		return
	}
	if n := len(f.researchQueue); n > 0 {
		f.researchQueue = f.researchQueue[:n-1]
		return
	}
	if n := len(f.activeResearch); n > 0 {
		f.activeResearch = f.activeResearch[:n-1]
	}
}

// applySortie launches the lowest-id housed airframe from the hangar.
// Bombers fly a strike; gunships and interceptors take station over
// the target point.
func (in *PlayerInput) applySortie(g *Game, f *Faction) {
	b := g.entities.Building(EntityID(in.SortieHangarID))
	if b == nil || b.owner != f || b.hangar == nil || len(b.hangar.housed) == 0 {
		g.logger.Warn("sortie order without a ready airframe", "player", in.PlayerID)
		return
	}
	uid := b.hangar.housed[0]
	u := g.entities.Unit(uid)
	if u == nil {
		b.hangar.housed = b.hangar.housed[1:]
		return
	}
	b.hangar.housed = b.hangar.housed[1:]
	b.hangar.onSortie++
	g.unhouseUnit(u, vector.Vector{X: b.pos.X, Y: b.pos.Y - b.def.Height/2 - 20})
	u.air.onSortie = true
	u.air.homeHangar = b.id

	target := in.clampPoint(g, *in.SortieTargetLocation)
	if u.def.Bomber {
		u.setCommand(newSortieCommand(target, NoEntity))
	} else {
		u.setCommand(newOnStationCommand(target))
	}
	g.log.Event(g.tick, in.PlayerID, "command", "sortie", float64(u.id))
}

// applySpecialAbility toggles the cloak on selected cloak-capable
// units.
func (in *PlayerInput) applySpecialAbility(g *Game, f *Faction) {
	for _, u := range in.selection(g, f) {
		if u.cloak == nil {
			continue
		}
		u.cloak.active = !u.cloak.active
		g.log.Event(g.tick, in.PlayerID, "command", "cloakToggle", float64(u.id))
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
