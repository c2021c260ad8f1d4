package rts

import (
	"math"
	"strconv"
	"testing"
)

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{3.14159, 3.14},
		{-3.14159, -3.14},
		{100, 100},
		{0.005, 0.01},
		{math.NaN(), wireInfinity},
		{math.Inf(1), wireInfinity},
		{math.Inf(-1), wireInfinity},
		{1e7, wireInfinity},
		{-1e7, -wireInfinity},
	}
	for _, c := range cases {
		if got := round2(c.in); got != c.want {
			t.Errorf("round2(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func snapshotUnit(msg *ServerMessage, id EntityID) *UnitWire {
	for i := range msg.GameState.Units {
		if msg.GameState.Units[i].ID == int(id) {
			return &msg.GameState.Units[i]
		}
	}
	return nil
}

func snapshotBuilding(msg *ServerMessage, id EntityID) *BuildingWire {
	for i := range msg.GameState.Buildings {
		if msg.GameState.Buildings[i].ID == int(id) {
			return &msg.GameState.Buildings[i]
		}
	}
	return nil
}

func TestSnapshotFiltersEnemiesByVision(t *testing.T) {
	ts := NewTestSim()
	own := ts.SpawnUnit(0, "TROOPER", 300, 300)
	nearEnemy := ts.SpawnUnit(1, "TROOPER", 500, 200)   // inside HQ vision 420
	farEnemy := ts.SpawnUnit(1, "WORKER", 1500, 1500)   // out of everyone's sight
	ts.RunTicks(2)

	snap := ts.Game.buildSnapshot(0)
	if snapshotUnit(snap, own.id) == nil {
		t.Error("own unit missing from snapshot")
	}
	if snapshotUnit(snap, nearEnemy.id) == nil {
		t.Error("enemy inside vision missing from snapshot")
	}
	if snapshotUnit(snap, farEnemy.id) != nil {
		t.Error("enemy outside vision leaked into snapshot")
	}

	// The far worker still shows up for its own side.
	if snapshotUnit(ts.Game.buildSnapshot(1), farEnemy.id) == nil {
		t.Error("unit missing from its owner's snapshot")
	}

	// Enemy buildings follow the same rule.
	var enemyHQ *Building
	for _, b := range ts.Faction(1).sortedOwnedBuildings(ts.Game.entities) {
		enemyHQ = b
	}
	if snapshotBuilding(snap, enemyHQ.id) != nil {
		t.Error("enemy base leaked across the map")
	}
}

func TestSnapshotHidesCloakedOutsideDetection(t *testing.T) {
	ts := NewTestSim()
	// HQ detection 160: (340,340) is ~198 out, inside vision but past
	// detection.
	tank := ts.SpawnUnit(1, "CLOAK_TANK", 340, 340)
	tank.cloak.active = true
	ts.RunTicks(2)

	if snapshotUnit(ts.Game.buildSnapshot(0), tank.id) != nil {
		t.Error("cloaked unit visible beyond detection range")
	}
	tank.cloak.active = false
	if snapshotUnit(ts.Game.buildSnapshot(0), tank.id) == nil {
		t.Error("uncloaked unit in vision not visible")
	}
}

func TestSnapshotEconomyIsOwnerOnly(t *testing.T) {
	ts := NewTestSim()
	ts.RunTicks(2)
	snap := ts.Game.buildSnapshot(0)

	mine := snap.GameState.Factions[strconv.Itoa(0)]
	theirs := snap.GameState.Factions[strconv.Itoa(1)]
	if mine == nil || theirs == nil {
		t.Fatal("faction entries missing")
	}
	if mine.Credits != ts.Faction(0).credits || mine.MaxUpkeep == 0 {
		t.Errorf("own economy missing: %+v", mine)
	}
	if theirs.Credits != 0 || theirs.MaxUpkeep != 0 || theirs.ResearchQueue != nil {
		t.Errorf("enemy economy leaked: %+v", theirs)
	}
	if theirs.FactionType != "SALT_SYNDICATE" || theirs.Team != 1 {
		t.Errorf("enemy identity wrong: %+v", theirs)
	}
}

func TestSnapshotCommandIsOwnerOnly(t *testing.T) {
	ts := NewTestSim()
	own := ts.SpawnUnit(0, "TROOPER", 300, 300)
	enemy := ts.SpawnUnit(1, "TROOPER", 500, 200)
	own.setCommand(newMoveCommand(vectorAt(900, 900)))
	enemy.setCommand(newMoveCommand(vectorAt(600, 200)))
	ts.RunTicks(2)

	snap := ts.Game.buildSnapshot(0)
	mine := snapshotUnit(snap, own.id)
	if mine == nil || mine.CurrentCommand == nil || mine.CurrentCommand.Type != CmdMove.String() {
		t.Errorf("own command missing from wire: %+v", mine)
	}
	if mine.CurrentCommand.TargetLocation == nil {
		t.Error("move command carries no target location")
	}
	theirs := snapshotUnit(snap, enemy.id)
	if theirs == nil {
		t.Fatal("visible enemy missing")
	}
	if theirs.CurrentCommand != nil {
		t.Error("enemy command leaked onto the wire")
	}
}

func TestSnapshotOmitsHousedUnits(t *testing.T) {
	ts := NewTestSim(WithBuilding(0, "AIRBASE", 500, 500))
	base := airbaseOf(t, ts, 0)
	bomber := hangarBomber(t, ts, base)
	ts.RunTicks(2)

	snap := ts.Game.buildSnapshot(0)
	if snapshotUnit(snap, bomber.id) != nil {
		t.Error("hangared airframe appeared as a map unit")
	}
	bw := snapshotBuilding(snap, base.id)
	if bw == nil {
		t.Fatal("airbase missing")
	}
	if bw.HangarOccupied != 1 || bw.HangarOnSortie {
		t.Errorf("hangar wire = occupied %d onSortie %v", bw.HangarOccupied, bw.HangarOnSortie)
	}

	// Hangar contents are private to the owner.
	if ebw := snapshotBuilding(ts.Game.buildSnapshot(1), base.id); ebw != nil && ebw.HangarOccupied != 0 {
		t.Error("hangar contents leaked to the enemy")
	}
}

func TestEventsPrecedeStateOnPublish(t *testing.T) {
	ts := NewTestSim()
	sink := &captureSink{}
	ts.Game.AttachSink(0, sink)

	ts.Faction(0).pushEvent("warning", "convoy inbound")
	ts.RunTicks(2)

	if len(sink.msgs) != 2 {
		t.Fatalf("messages = %d, want event + state", len(sink.msgs))
	}
	if sink.msgs[0].Type != "gameEvent" || sink.msgs[0].GameEvent.Message != "convoy inbound" {
		t.Errorf("first message = %+v, want the queued event", sink.msgs[0])
	}
	if sink.msgs[1].Type != "gameState" {
		t.Errorf("second message = %q, want gameState", sink.msgs[1].Type)
	}
	if sink.msgs[1].GameState.Tick != 2 {
		t.Errorf("snapshot tick = %d, want 2", sink.msgs[1].GameState.Tick)
	}

	// Drained: the next publish carries only state.
	sink.msgs = nil
	ts.RunTicks(2)
	if len(sink.msgs) != 1 || sink.msgs[0].Type != "gameState" {
		t.Errorf("follow-up publish = %+v, want state only", sink.msgs)
	}
}
