package rts

import (
	"encoding/json"
	"testing"
)

func TestInputDecodeIgnoresUnknownFields(t *testing.T) {
	raw := `{"type":"rtsInput","moveOrder":{"x":100,"y":200},"queueOrder":true,"cheatMode":true}`
	var in PlayerInput
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		t.Fatal(err)
	}
	if in.MoveOrder == nil || in.MoveOrder.X != 100 || in.MoveOrder.Y != 200 {
		t.Errorf("moveOrder = %+v", in.MoveOrder)
	}
	if !in.QueueOrder {
		t.Error("queueOrder lost in decode")
	}
}

func TestSelectionOnlyTakesOwnLiveUnits(t *testing.T) {
	ts := NewTestSim()
	mine := ts.SpawnUnit(0, "TROOPER", 600, 600)
	theirs := ts.SpawnUnit(1, "TROOPER", 700, 600)
	dead := ts.SpawnUnit(0, "WORKER", 800, 600)
	dead.TakeDamage(1e9, NoEntity)

	selectUnits(ts, 0, int(mine.id), int(theirs.id), int(dead.id), 424242)
	if !mine.selectedBy[0] {
		t.Error("own unit not selected")
	}
	if theirs.selectedBy[0] {
		t.Error("enemy unit selected")
	}
	if dead.selectedBy[0] {
		t.Error("dead unit selected")
	}

	// A new selection replaces the old one.
	selectUnits(ts, 0)
	if mine.selectedBy[0] {
		t.Error("selection survived an empty reselect")
	}
}

func TestOrdersOnlyReachOwnSelection(t *testing.T) {
	ts := NewTestSim()
	theirs := ts.SpawnUnit(1, "TROOPER", 700, 600)

	// Player 0 cannot puppet player 1's unit even by naming its id.
	selectUnits(ts, 0, int(theirs.id))
	dest := PointWire{X: 900, Y: 900}
	ts.Input(&PlayerInput{PlayerID: 0, MoveOrder: &dest})
	if theirs.command.kind != CmdIdle {
		t.Errorf("enemy unit took a foreign order: %v", theirs.command.kind)
	}
}

func TestMoveOrderReplacesUnlessQueued(t *testing.T) {
	ts := NewTestSim()
	u := ts.SpawnUnit(0, "TROOPER", 600, 600)
	selectUnits(ts, 0, int(u.id))

	first := PointWire{X: 900, Y: 600}
	second := PointWire{X: 600, Y: 900}
	ts.Input(&PlayerInput{PlayerID: 0, MoveOrder: &first})
	ts.Input(&PlayerInput{PlayerID: 0, MoveOrder: &second})
	if len(u.queue) != 0 {
		t.Errorf("plain reorder queued instead of replacing: %d queued", len(u.queue))
	}
	if u.command.dest.X != 600 || u.command.dest.Y != 900 {
		t.Errorf("active dest = %+v, want the replacement", u.command.dest)
	}

	ts.Input(&PlayerInput{PlayerID: 0, MoveOrder: &first, QueueOrder: true})
	if len(u.queue) != 1 {
		t.Errorf("shift order queue = %d, want 1", len(u.queue))
	}
}

func TestMoveOrderClampsToWorldBounds(t *testing.T) {
	ts := NewTestSim()
	u := ts.SpawnUnit(0, "SCOUT_BIKE", 600, 600)
	selectUnits(ts, 0, int(u.id))

	wild := PointWire{X: -5000, Y: 99999}
	ts.Input(&PlayerInput{PlayerID: 0, MoveOrder: &wild})
	if u.command.dest.X != 0 || u.command.dest.Y != ts.Game.world.Height {
		t.Errorf("dest = %+v, want clamped to the world edge", u.command.dest)
	}
}

func TestAttackMoveWithoutWeaponDegradesToMove(t *testing.T) {
	ts := NewTestSim()
	worker := ts.SpawnUnit(0, "WORKER", 600, 600)
	selectUnits(ts, 0, int(worker.id))

	dest := PointWire{X: 900, Y: 900}
	ts.Input(&PlayerInput{PlayerID: 0, AttackMoveOrder: &dest})
	if worker.command.kind != CmdMove {
		t.Errorf("unarmed attack-move = %v, want MOVE", worker.command.kind)
	}
}

func TestSetRallySnapsToFreeGround(t *testing.T) {
	ts := NewTestSim(WithBuilding(0, "BARRACKS", 600, 600))
	var barracks *Building
	for _, b := range ts.Faction(0).sortedOwnedBuildings(ts.Game.entities) {
		if b.def.Type == "BARRACKS" {
			barracks = b
		}
	}

	// Rally aimed at the barracks' own footprint lands beside it.
	p := PointWire{X: 600, Y: 600}
	ts.Input(&PlayerInput{PlayerID: 0, SetRallyBuildingID: int(barracks.id), RallyPoint: &p})
	want := ts.Game.pathfinder.NearestFreePoint(vectorAt(600, 600))
	if barracks.rally != want {
		t.Errorf("rally = %+v, want snapped %+v", barracks.rally, want)
	}
	if dist(barracks.rally, vectorAt(600, 600)) < 10 {
		t.Errorf("rally %+v still inside the footprint", barracks.rally)
	}

	// Another player's building refuses the order.
	before := barracks.rally
	far := PointWire{X: 1000, Y: 1000}
	ts.Input(&PlayerInput{PlayerID: 1, SetRallyBuildingID: int(barracks.id), RallyPoint: &far})
	if barracks.rally != before {
		t.Error("enemy moved our rally point")
	}
}

func TestStartResearchRequiresLabAndCredits(t *testing.T) {
	ts := NewTestSim(WithBuilding(0, "RESEARCH_LAB", 600, 600))
	f := ts.Faction(0)
	var lab *Building
	for _, b := range f.sortedOwnedBuildings(ts.Game.entities) {
		if b.def.Type == "RESEARCH_LAB" {
			lab = b
		}
	}

	// Pointing the order at a non-lab drops it.
	var hq *Building
	for _, b := range f.sortedOwnedBuildings(ts.Game.entities) {
		if b.def.Type == "HEADQUARTERS" {
			hq = b
		}
	}
	ts.Input(&PlayerInput{PlayerID: 0, StartResearchOrder: "TROOPER_DOCTRINE", ResearchBuildingID: int(hq.id)})
	if len(f.activeResearch)+len(f.researchQueue) != 0 {
		t.Fatal("research started without a lab")
	}

	// Too poor: warning, nothing queued, credits kept.
	f.credits = 10
	ts.Input(&PlayerInput{PlayerID: 0, StartResearchOrder: "TROOPER_DOCTRINE", ResearchBuildingID: int(lab.id)})
	if len(f.activeResearch)+len(f.researchQueue) != 0 {
		t.Fatal("unaffordable research queued")
	}
	if f.credits != 10 {
		t.Errorf("credits = %d, want untouched 10", f.credits)
	}
	warned := false
	for _, ev := range f.events {
		if ev.Category == "warning" {
			warned = true
		}
	}
	if !warned {
		t.Error("no warning for unaffordable research")
	}

	// Funded: it queues, the cost is debited, and the next tick
	// promotes it into a slot.
	rd := ts.Game.balance.Research["TROOPER_DOCTRINE"]
	f.credits = rd.CostCredits + 100
	ts.Input(&PlayerInput{PlayerID: 0, StartResearchOrder: "TROOPER_DOCTRINE", ResearchBuildingID: int(lab.id)})
	if len(f.researchQueue) != 1 {
		t.Fatalf("research queue = %d, want 1", len(f.researchQueue))
	}
	if f.credits != 100 {
		t.Errorf("credits = %d after start, want 100", f.credits)
	}
	ts.RunTicks(1)
	if len(f.activeResearch) != 1 {
		t.Errorf("active research = %d after a tick, want 1", len(f.activeResearch))
	}
}

func TestCancelResearchDropsNewestFirstNoRefund(t *testing.T) {
	ts := NewTestSim(WithBuilding(0, "RESEARCH_LAB", 600, 600))
	f := ts.Faction(0)
	f.credits = 10000
	var lab *Building
	for _, b := range f.sortedOwnedBuildings(ts.Game.entities) {
		if b.def.Type == "RESEARCH_LAB" {
			lab = b
		}
	}

	ts.Input(&PlayerInput{PlayerID: 0, StartResearchOrder: "TROOPER_DOCTRINE", ResearchBuildingID: int(lab.id)})
	ts.RunTicks(1)
	ts.Input(&PlayerInput{PlayerID: 0, StartResearchOrder: "COMPOSITE_ARMOR", ResearchBuildingID: int(lab.id)})
	if len(f.activeResearch) != 1 || len(f.researchQueue) != 1 {
		t.Fatalf("setup: active=%d queued=%d", len(f.activeResearch), len(f.researchQueue))
	}
	credits := f.credits

	// First cancel takes the queued item, second the running job.
	ts.Input(&PlayerInput{PlayerID: 0, CancelResearchBuildingID: int(lab.id)})
	if len(f.researchQueue) != 0 || len(f.activeResearch) != 1 {
		t.Errorf("after first cancel: active=%d queued=%d", len(f.activeResearch), len(f.researchQueue))
	}
	ts.Input(&PlayerInput{PlayerID: 0, CancelResearchBuildingID: int(lab.id)})
	if len(f.activeResearch) != 0 {
		t.Errorf("after second cancel: active=%d", len(f.activeResearch))
	}
	if f.credits != credits {
		t.Errorf("credits = %d, want no refund at %d", f.credits, credits)
	}
}

func TestBuildOrderPlacesWallSegment(t *testing.T) {
	ts := NewTestSim()
	f := ts.Faction(0)
	def := ts.Game.balance.Buildings["WALL"]
	before := f.credits

	loc := PointWire{X: 800, Y: 600}
	ts.Input(&PlayerInput{PlayerID: 0, BuildOrder: "WALL", BuildLocation: &loc})

	var wall *WallSegment
	for _, id := range ts.Game.entities.sortedWallIDs() {
		wall = ts.Game.entities.wallSegments[id]
	}
	if wall == nil {
		t.Fatal("build order placed no wall segment")
	}
	if wall.pos != vectorAt(800, 600) || wall.team != f.team {
		t.Errorf("wall = %+v team %d", wall.pos, wall.team)
	}
	if f.credits != before-def.CostCredits {
		t.Errorf("credits = %d, want %d debited", f.credits, def.CostCredits)
	}
	if ts.Game.log.CountCategory("production", "wallPlaced") != 1 {
		t.Error("wall placement not logged")
	}

	// Walls go up finished: no construction site appears.
	for _, id := range ts.Game.entities.sortedBuildingIDs() {
		if ts.Game.entities.buildings[id].def.Wall {
			t.Error("wall spawned as a building")
		}
	}

	// Destroying the segment reopens the ground.
	wall.TakeDamage(1e9, NoEntity)
	ts.RunTicks(2)
	if ts.Game.entities.WallSegment(wall.id) != nil {
		t.Error("destroyed wall segment not culled")
	}
}

func TestWallOrderRequiresCredits(t *testing.T) {
	ts := NewTestSim()
	f := ts.Faction(0)
	f.credits = 10

	loc := PointWire{X: 800, Y: 600}
	ts.Input(&PlayerInput{PlayerID: 0, BuildOrder: "WALL", BuildLocation: &loc})
	if len(ts.Game.entities.wallSegments) != 0 {
		t.Error("unaffordable wall placed")
	}
	if f.credits != 10 {
		t.Errorf("credits = %d, want untouched 10", f.credits)
	}
}

func TestCloakToggleOnlyAffectsCloakCapable(t *testing.T) {
	ts := NewTestSim()
	tank := ts.SpawnUnit(0, "CLOAK_TANK", 600, 600)
	trooper := ts.SpawnUnit(0, "TROOPER", 700, 600)

	selectUnits(ts, 0, int(tank.id), int(trooper.id))
	ts.Input(&PlayerInput{PlayerID: 0, ActivateSpecialAbility: true})
	if !tank.Cloaked() {
		t.Error("cloak tank did not engage its cloak")
	}
	if trooper.Cloaked() {
		t.Error("plain infantry reported a cloak")
	}

	ts.Input(&PlayerInput{PlayerID: 0, ActivateSpecialAbility: true})
	if tank.Cloaked() {
		t.Error("second toggle did not drop the cloak")
	}
}

func TestInputFromUnknownPlayerIgnored(t *testing.T) {
	ts := NewTestSim()
	u := ts.SpawnUnit(0, "TROOPER", 600, 600)
	selectUnits(ts, 0, int(u.id))

	dest := PointWire{X: 900, Y: 900}
	ts.Input(&PlayerInput{PlayerID: 99, MoveOrder: &dest})
	if u.command.kind != CmdIdle {
		t.Errorf("stranger's order landed: %v", u.command.kind)
	}
}
