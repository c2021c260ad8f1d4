package rts

import (
	"sort"

	"github.com/rudransh61/Physix-go/pkg/vector"
)

// GameEntities is the per-game entity store: keyed collections for
// every entity family plus reverse indexes. Exactly one Targetable
// exists per entity id at any time. Mutation happens only inside the
// owning game's tick.
type GameEntities struct {
	units        map[EntityID]*Unit
	buildings    map[EntityID]*Building
	obstacles    map[EntityID]*Obstacle
	wallSegments map[EntityID]*WallSegment
	projectiles  map[EntityID]*Projectile
	beams        map[EntityID]*Beam
	fieldEffects map[EntityID]*FieldEffect

	factions         map[int]*Faction            // by player slot
	unitsByTeam      map[Team]map[EntityID]bool  // reverse index
	buildingsByOwner map[int]map[EntityID]bool   // reverse index

	nextID EntityID
}

// NewGameEntities creates an empty store. IDs start at 1 so the zero
// EntityID stays a safe "no entity" sentinel.
func NewGameEntities() *GameEntities {
	return &GameEntities{
		units:            make(map[EntityID]*Unit),
		buildings:        make(map[EntityID]*Building),
		obstacles:        make(map[EntityID]*Obstacle),
		wallSegments:     make(map[EntityID]*WallSegment),
		projectiles:      make(map[EntityID]*Projectile),
		beams:            make(map[EntityID]*Beam),
		fieldEffects:     make(map[EntityID]*FieldEffect),
		factions:         make(map[int]*Faction),
		unitsByTeam:      make(map[Team]map[EntityID]bool),
		buildingsByOwner: make(map[int]map[EntityID]bool),
	}
}

// NextID allocates a fresh monotonic entity id.
func (e *GameEntities) NextID() EntityID {
	e.nextID++
	return e.nextID
}

// AddFaction registers a faction under its player slot.
func (e *GameEntities) AddFaction(f *Faction) {
	e.factions[f.playerID] = f
}

// Faction returns the faction for a player slot, or nil.
func (e *GameEntities) Faction(playerID int) *Faction {
	return e.factions[playerID]
}

func (e *GameEntities) addUnit(u *Unit) {
	e.units[u.id] = u
	byTeam := e.unitsByTeam[u.team]
	if byTeam == nil {
		byTeam = make(map[EntityID]bool)
		e.unitsByTeam[u.team] = byTeam
	}
	byTeam[u.id] = true
}

func (e *GameEntities) removeUnit(id EntityID) {
	u, ok := e.units[id]
	if !ok {
		return
	}
	delete(e.unitsByTeam[u.team], id)
	delete(e.units, id)
}

func (e *GameEntities) addBuilding(b *Building) {
	e.buildings[b.id] = b
	byOwner := e.buildingsByOwner[b.owner.playerID]
	if byOwner == nil {
		byOwner = make(map[EntityID]bool)
		e.buildingsByOwner[b.owner.playerID] = byOwner
	}
	byOwner[b.id] = true
}

func (e *GameEntities) removeBuilding(id EntityID) {
	b, ok := e.buildings[id]
	if !ok {
		return
	}
	delete(e.buildingsByOwner[b.owner.playerID], id)
	delete(e.buildings, id)
}

// Unit looks up a unit by id, or nil.
func (e *GameEntities) Unit(id EntityID) *Unit { return e.units[id] }

// Building looks up a building by id, or nil.
func (e *GameEntities) Building(id EntityID) *Building { return e.buildings[id] }

// Obstacle looks up an obstacle by id, or nil.
func (e *GameEntities) Obstacle(id EntityID) *Obstacle { return e.obstacles[id] }

// WallSegment looks up a wall segment by id, or nil.
func (e *GameEntities) WallSegment(id EntityID) *WallSegment { return e.wallSegments[id] }

// Targetable resolves an id to whichever targetable family holds it.
// A miss returns nil — the natural command-completion signal for a
// vanished target.
func (e *GameEntities) Targetable(id EntityID) Targetable {
	if u, ok := e.units[id]; ok {
		return u
	}
	if b, ok := e.buildings[id]; ok {
		return b
	}
	if w, ok := e.wallSegments[id]; ok {
		return w
	}
	return nil
}

// sortedUnitIDs returns all unit ids ascending. Deterministic
// iteration keeps target resolution reproducible across runs.
func (e *GameEntities) sortedUnitIDs() []EntityID {
	ids := make([]EntityID, 0, len(e.units))
	for id := range e.units {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (e *GameEntities) sortedBuildingIDs() []EntityID {
	ids := make([]EntityID, 0, len(e.buildings))
	for id := range e.buildings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (e *GameEntities) sortedObstacleIDs() []EntityID {
	ids := make([]EntityID, 0, len(e.obstacles))
	for id := range e.obstacles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (e *GameEntities) sortedWallIDs() []EntityID {
	ids := make([]EntityID, 0, len(e.wallSegments))
	for id := range e.wallSegments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// targetScan bundles the observer-side parameters of a target search.
type targetScan struct {
	from           vector.Vector
	team           Team
	weapon         *Weapon
	radius         float64
	cloakDetection float64
	// airOnly restricts hits to LOW/HIGH targets (interceptor patrol).
	airOnly bool
	// anchor + leash bound the search around a home position
	// (DEFENSIVE stance). leash <= 0 disables the bound.
	anchor vector.Vector
	leash  float64
}

// FindNearestEnemyTargetable returns the closest enemy targetable the
// scan can engage, or nil. Candidates are filtered by team, activity,
// elevation capability, cloak visibility and search radius. Distance
// ties break toward the lower team number, then the lower id, so
// identical states always resolve identically.
func (e *GameEntities) FindNearestEnemyTargetable(scan targetScan) Targetable {
	var best Targetable
	bestDist := scan.radius * scan.radius

	consider := func(t Targetable) {
		if !t.IsActive() || t.Team() == scan.team || t.Team() == NoTeam {
			return
		}
		if scan.weapon != nil && !scan.weapon.CanHit(t.Elevation()) {
			return
		}
		if scan.airOnly && t.Elevation() == ElevationGround {
			return
		}
		d := distSq(scan.from, t.Position())
		if d > bestDist {
			return
		}
		if u, ok := t.(*Unit); ok && u.Cloaked() {
			det := scan.cloakDetection
			if det <= 0 || distSq(scan.from, u.Position()) > det*det {
				return
			}
		}
		if scan.leash > 0 && dist(scan.anchor, t.Position()) > scan.leash {
			return
		}
		if best != nil && d == bestDist {
			if t.Team() > best.Team() {
				return
			}
			if t.Team() == best.Team() && t.ID() > best.ID() {
				return
			}
		}
		best = t
		bestDist = d
	}

	for _, id := range e.sortedUnitIDs() {
		consider(e.units[id])
	}
	for _, id := range e.sortedBuildingIDs() {
		consider(e.buildings[id])
	}
	for _, id := range e.sortedWallIDs() {
		consider(e.wallSegments[id])
	}
	return best
}

// VisibleTo reports which entity ids a team can currently see: every
// friendly entity, plus enemies within vision range of any friendly
// unit or building. Cloaked enemies additionally require a friendly
// observer inside its cloak-detection radius.
func (e *GameEntities) VisibleTo(team Team) map[EntityID]bool {
	type observer struct {
		pos    vector.Vector
		vision float64
		detect float64
	}
	var observers []observer
	for id := range e.unitsByTeam[team] {
		if u := e.units[id]; u != nil && u.IsActive() {
			observers = append(observers, observer{u.Position(), u.def.VisionRange, u.def.CloakDetection})
		}
	}
	for _, b := range e.buildings {
		if b.team == team && b.active {
			observers = append(observers, observer{b.pos, b.def.VisionRange, b.def.CloakDetection})
		}
	}

	seen := func(pos vector.Vector, cloaked bool) bool {
		for _, o := range observers {
			r := o.vision
			if cloaked {
				r = o.detect
			}
			if r <= 0 {
				continue
			}
			if distSq(o.pos, pos) <= r*r {
				return true
			}
		}
		return false
	}

	visible := make(map[EntityID]bool)
	for id, u := range e.units {
		if u.team == team || seen(u.Position(), u.Cloaked()) {
			visible[id] = true
		}
	}
	for id, b := range e.buildings {
		if b.team == team || seen(b.pos, false) {
			visible[id] = true
		}
	}
	for id, w := range e.wallSegments {
		if w.team == team || seen(w.pos, false) {
			visible[id] = true
		}
	}
	// Obstacles are terrain: always visible.
	for id := range e.obstacles {
		visible[id] = true
	}
	for id, p := range e.projectiles {
		if p.team == team || seen(p.pos, false) {
			visible[id] = true
		}
	}
	for id, b := range e.beams {
		if b.team == team || seen(b.from, false) || seen(b.to, false) {
			visible[id] = true
		}
	}
	for id, fe := range e.fieldEffects {
		if fe.team == team || seen(fe.center, false) {
			visible[id] = true
		}
	}
	return visible
}

// allTargetables iterates every targetable in ascending id order.
func (e *GameEntities) allTargetables() []Targetable {
	out := make([]Targetable, 0, len(e.units)+len(e.buildings)+len(e.wallSegments))
	for _, id := range e.sortedUnitIDs() {
		out = append(out, e.units[id])
	}
	for _, id := range e.sortedBuildingIDs() {
		out = append(out, e.buildings[id])
	}
	for _, id := range e.sortedWallIDs() {
		out = append(out, e.wallSegments[id])
	}
	return out
}
