package rts

import (
	"sort"
)

// GameEvent is a transient notice pushed to the owning player with the
// next snapshot batch: research done, production done, low power and
// capacity rejections.
type GameEvent struct {
	Message         string `json:"message"`
	Category        string `json:"category"` // info, warning, production, research, combat
	Color           string `json:"color,omitempty"`
	DisplayDuration int    `json:"displayDuration,omitempty"`
}

// researchJob is one in-flight research item.
type researchJob struct {
	id       string
	progress float64 // ticks accumulated
}

// Faction is one player's side of a game: credits, upkeep, power,
// research state and the per-player event outbox. All mutation happens
// on the game goroutine.
type Faction struct {
	playerID int
	team     Team
	name     string
	def      *FactionDef
	balance  *Balance

	credits   int
	incomeAcc float64 // fractional credits pending

	upkeepUsed int
	upkeepCap  int

	powerGenerated int
	powerConsumed  int
	lowPower       bool

	researchDone   map[string]bool
	researchQueue  []string
	activeResearch []*researchJob
	// completedEffects in completion order; attribute lookups replay
	// them so later research stacks on earlier research.
	completedEffects []*ResearchEffect

	events   []GameEvent
	defeated bool
}

func newFaction(playerID int, team Team, name string, def *FactionDef, balance *Balance) *Faction {
	return &Faction{
		playerID:     playerID,
		team:         team,
		name:         name,
		def:          def,
		balance:      balance,
		credits:      def.StartingCredits,
		researchDone: make(map[string]bool),
	}
}

// PlayerID returns the player slot this faction belongs to.
func (f *Faction) PlayerID() int { return f.playerID }

// TeamID returns the faction's team.
func (f *Faction) TeamID() Team { return f.team }

// Credits returns the current integer credit balance.
func (f *Faction) Credits() int { return f.credits }

// LowPower reports whether consumption exceeds generation.
func (f *Faction) LowPower() bool { return f.lowPower }

// Defeated reports whether this faction has been eliminated.
func (f *Faction) Defeated() bool { return f.defeated }

// canAfford reports whether the balance covers a cost.
func (f *Faction) canAfford(cost int) bool { return f.credits >= cost }

// spend deducts credits, refusing to go negative.
func (f *Faction) spend(cost int) bool {
	if cost < 0 || f.credits < cost {
		return false
	}
	f.credits -= cost
	return true
}

// addCredits deposits income or refunds.
func (f *Faction) addCredits(amount int) {
	if amount > 0 {
		f.credits += amount
	}
}

func (f *Faction) pushEvent(category, message string) {
	f.events = append(f.events, GameEvent{Category: category, Message: message})
}

// drainEvents hands the outbox to the snapshot builder and clears it.
func (f *Faction) drainEvents() []GameEvent {
	out := f.events
	f.events = nil
	return out
}

// researchSlots is how many research items may run simultaneously:
// one, plus any completed parallel-lab upgrades.
func (f *Faction) researchSlots() int {
	slots := 1
	for id := range f.researchDone {
		if rd := f.balance.Research[id]; rd != nil {
			slots += rd.ParallelSlots
		}
	}
	return slots
}

// researchAvailable reports whether the item can be queued now:
// allowed by the faction, prereqs complete, not already done or
// pending.
func (f *Faction) researchAvailable(id string) bool {
	rd := f.balance.Research[id]
	if rd == nil || f.researchDone[id] {
		return false
	}
	allowed := false
	for _, r := range f.def.Research {
		if r == id {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}
	for _, pre := range rd.Prereqs {
		if !f.researchDone[pre] {
			return false
		}
	}
	for _, q := range f.researchQueue {
		if q == id {
			return false
		}
	}
	for _, j := range f.activeResearch {
		if j.id == id {
			return false
		}
	}
	return true
}

// enqueueResearch pays for and queues a research item. The caller has
// already validated availability and lab presence.
func (f *Faction) enqueueResearch(id string) bool {
	rd := f.balance.Research[id]
	if rd == nil || !f.spend(rd.CostCredits) {
		return false
	}
	f.researchQueue = append(f.researchQueue, id)
	return true
}

// attrValue replays completed research effects over a base attribute.
// Expression failures keep the last good value; they were validated at
// balance load so a failure here is a balance bug, not a crash.
func (f *Faction) attrValue(unitType, attr string, base float64) float64 {
	v := base
	for _, eff := range f.completedEffects {
		if eff.Unit != unitType || eff.Attr != attr {
			continue
		}
		if next, err := eff.Apply(v); err == nil {
			v = next
		}
	}
	return v
}

// UnitMaxHealth is the unit's max health after research.
func (f *Faction) UnitMaxHealth(def *UnitDef) float64 {
	return f.attrValue(def.Type, "maxHealth", def.MaxHealth)
}

// UnitSpeed is the unit's speed after research, in world units/second.
func (f *Faction) UnitSpeed(def *UnitDef) float64 {
	return f.attrValue(def.Type, "speed", def.Speed)
}

// WeaponDamage is per-shot damage for a weapon mounted on the given
// unit or building type, after research.
func (f *Faction) WeaponDamage(holderType string, def *WeaponDef) float64 {
	return f.attrValue(holderType, "damage", def.Damage)
}

// tickEconomy runs the per-tick faction pass: income, power and upkeep
// accounting, research progress and building production. Spawned units
// go through the game so placement and world bodies stay in one place.
func (f *Faction) tickEconomy(g *Game) {
	if f.defeated {
		return
	}
	e := g.entities

	// Recompute power and upkeep capacity from completed buildings.
	refineries := 0
	f.powerGenerated = 0
	f.powerConsumed = 0
	f.upkeepCap = f.def.MaxUpkeepBase
	ownedBuildings := f.sortedOwnedBuildings(e)
	for _, b := range ownedBuildings {
		if !b.active || b.underConstruction {
			continue
		}
		f.powerGenerated += b.def.PowerGenerated
		f.powerConsumed += b.def.PowerConsumed
		f.upkeepCap += b.def.UpkeepProvided
		if b.def.Refinery {
			refineries++
		}
	}
	wasLow := f.lowPower
	f.lowPower = f.powerConsumed > f.powerGenerated
	if f.lowPower && !wasLow {
		f.pushEvent("warning", "Power deficit: production and income halved")
		g.log.Event(g.tick, f.playerID, "economy", "lowPower", 1)
	}

	f.upkeepUsed = 0
	for _, id := range e.sortedUnitIDs() {
		u := e.units[id]
		if u.owner == f && u.active {
			f.upkeepUsed += u.def.Upkeep
		}
	}

	// Passive income accrues fractionally; credits stay integral. A
	// power deficit halves the rate.
	perSecond := f.balance.Economy.BaseIncomePerSecond +
		f.balance.Economy.RefineryIncomePerSecond*float64(refineries)
	if f.lowPower {
		perSecond *= 0.5
	}
	f.incomeAcc += perSecond / float64(TicksPerSecond)
	if whole := int(f.incomeAcc); whole > 0 {
		f.credits += whole
		f.incomeAcc -= float64(whole)
	}

	f.tickResearch(g)
	f.tickProduction(g, ownedBuildings)
}

// tickResearch promotes queued items into free slots and advances the
// active jobs. Low power halves research speed.
func (f *Faction) tickResearch(g *Game) {
	slots := f.researchSlots()
	for len(f.activeResearch) < slots && len(f.researchQueue) > 0 {
		id := f.researchQueue[0]
		f.researchQueue = f.researchQueue[1:]
		f.activeResearch = append(f.activeResearch, &researchJob{id: id})
	}

	rate := 1.0
	if f.lowPower {
		rate = 0.5
	}
	remaining := f.activeResearch[:0]
	for _, job := range f.activeResearch {
		rd := f.balance.Research[job.id]
		job.progress += rate
		if job.progress < float64(rd.DurationTicks) {
			remaining = append(remaining, job)
			continue
		}
		f.researchDone[job.id] = true
		for i := range rd.Effects {
			f.completedEffects = append(f.completedEffects, &rd.Effects[i])
		}
		f.pushEvent("research", rd.Name+" complete")
		g.log.Event(g.tick, f.playerID, "research", job.id, 1)
	}
	f.activeResearch = remaining
}

// tickProduction advances each building's queue head. Completion holds
// while the new unit would break the upkeep cap.
func (f *Faction) tickProduction(g *Game, owned []*Building) {
	rate := 1.0
	if f.lowPower {
		rate = 0.5
	}
	for _, b := range owned {
		if !b.active || b.underConstruction || len(b.productionQueue) == 0 {
			continue
		}
		def := f.balance.Units[b.productionQueue[0]]
		if def == nil {
			b.productionQueue = b.productionQueue[1:]
			b.productionProgress = 0
			continue
		}
		if f.upkeepUsed+def.Upkeep > f.upkeepCap {
			continue // hold until capacity frees up
		}
		b.productionProgress += rate
		if b.productionProgress < float64(def.BuildTicks) {
			continue
		}
		b.productionQueue = b.productionQueue[1:]
		b.productionProgress = 0
		u := g.spawnProducedUnit(b, def)
		if u != nil {
			f.upkeepUsed += def.Upkeep
			f.pushEvent("production", def.Type+" ready")
			g.log.Event(g.tick, f.playerID, "production", def.Type, 1)
		}
	}
}

// sortedOwnedBuildings returns this faction's buildings ascending by
// id via the reverse index.
func (f *Faction) sortedOwnedBuildings(e *GameEntities) []*Building {
	idx := e.buildingsByOwner[f.playerID]
	ids := make([]EntityID, 0, len(idx))
	for id := range idx {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*Building, 0, len(ids))
	for _, id := range ids {
		out = append(out, e.buildings[id])
	}
	return out
}
