package rts

import (
	"testing"

	"github.com/rudransh61/Physix-go/pkg/vector"
)

func scanFrom(ts *TestSim, x, y float64, weaponName string) targetScan {
	f := ts.Faction(0)
	return targetScan{
		from:   vector.Vector{X: x, Y: y},
		team:   f.team,
		weapon: newWeapon(ts.Game.balance.Weapons[weaponName], f, "TROOPER"),
		radius: 1000,
	}
}

func TestFindNearestPrefersCloserTarget(t *testing.T) {
	ts := NewTestSim()
	near := ts.SpawnUnit(1, "TROOPER", 700, 500)
	ts.SpawnUnit(1, "TROOPER", 900, 500)

	got := ts.Game.entities.FindNearestEnemyTargetable(scanFrom(ts, 500, 500, "rifle"))
	if got == nil || got.ID() != near.id {
		t.Fatalf("nearest = %v, want unit %d", got, near.id)
	}
}

func TestFindNearestTieBreaksOnLowerID(t *testing.T) {
	ts := NewTestSim()
	// Equidistant left and right of the scan origin; spawn order fixes
	// which id is lower.
	first := ts.SpawnUnit(1, "TROOPER", 600, 500)
	second := ts.SpawnUnit(1, "TROOPER", 400, 500)
	if second.id < first.id {
		t.Fatal("spawn order did not produce ascending ids")
	}

	got := ts.Game.entities.FindNearestEnemyTargetable(scanFrom(ts, 500, 500, "rifle"))
	if got == nil || got.ID() != first.id {
		t.Fatalf("tie resolved to %v, want lower id %d", got, first.id)
	}
}

func TestFindNearestRespectsWeaponElevation(t *testing.T) {
	ts := NewTestSim()
	ts.SpawnUnit(1, "INTERCEPTOR", 700, 500) // HIGH band

	if got := ts.Game.entities.FindNearestEnemyTargetable(scanFrom(ts, 500, 500, "rifle")); got != nil {
		t.Fatalf("rifle scan found a high flyer: %d", got.ID())
	}
	got := ts.Game.entities.FindNearestEnemyTargetable(scanFrom(ts, 500, 500, "flakGun"))
	if got == nil {
		t.Fatal("flak scan should find the high flyer")
	}

	// Flak never acquires ground targets.
	ts.SpawnUnit(1, "WORKER", 600, 500)
	got = ts.Game.entities.FindNearestEnemyTargetable(scanFrom(ts, 500, 500, "flakGun"))
	if got == nil || got.Elevation() == ElevationGround {
		t.Fatalf("flak scan acquired ground target: %v", got)
	}
}

func TestFindNearestSkipsCloakedBeyondDetection(t *testing.T) {
	ts := NewTestSim()
	tank := ts.SpawnUnit(1, "CLOAK_TANK", 700, 500)
	tank.cloak.active = true

	scan := scanFrom(ts, 500, 500, "rifle")
	scan.cloakDetection = 140
	if got := ts.Game.entities.FindNearestEnemyTargetable(scan); got != nil {
		t.Fatalf("cloaked tank found at 200 with detection 140: %d", got.ID())
	}

	scan.from = vector.Vector{X: 600, Y: 500} // 100 away, inside detection
	got := ts.Game.entities.FindNearestEnemyTargetable(scan)
	if got == nil || got.ID() != tank.id {
		t.Fatal("cloaked tank should be found inside detection range")
	}

	tank.cloak.active = false
	scan.from = vector.Vector{X: 500, Y: 500}
	if got := ts.Game.entities.FindNearestEnemyTargetable(scan); got == nil {
		t.Fatal("uncloaked tank should be found normally")
	}
}

func TestFindNearestLeash(t *testing.T) {
	ts := NewTestSim()
	ts.SpawnUnit(1, "TROOPER", 1400, 500)

	scan := scanFrom(ts, 1000, 500, "rifle")
	scan.anchor = vector.Vector{X: 600, Y: 500}
	scan.leash = 300
	if got := ts.Game.entities.FindNearestEnemyTargetable(scan); got != nil {
		t.Fatalf("target beyond the leash acquired: %d", got.ID())
	}
	scan.leash = 1000
	if got := ts.Game.entities.FindNearestEnemyTargetable(scan); got == nil {
		t.Fatal("target inside the leash should be acquired")
	}
}

func TestVisibleToFiltersByVisionAndCloak(t *testing.T) {
	ts := NewTestSim()
	observer := ts.SpawnUnit(0, "TROOPER", 500, 500) // vision 340, detection 140
	nearEnemy := ts.SpawnUnit(1, "TROOPER", 700, 500)
	farEnemy := ts.SpawnUnit(1, "TROOPER", 1500, 1500)
	cloaked := ts.SpawnUnit(1, "CLOAK_TANK", 700, 600)
	cloaked.cloak.active = true

	visible := ts.Game.entities.VisibleTo(0)
	if !visible[observer.id] {
		t.Error("own unit must always be visible")
	}
	if !visible[nearEnemy.id] {
		t.Error("enemy inside vision range not visible")
	}
	if visible[farEnemy.id] {
		t.Error("enemy far outside all vision ranges visible")
	}
	// ~224 from the observer: inside vision but outside detection.
	if visible[cloaked.id] {
		t.Error("cloaked enemy outside detection radius visible")
	}

	cloaked.cloak.active = false
	visible = ts.Game.entities.VisibleTo(0)
	if !visible[cloaked.id] {
		t.Error("uncloaked enemy inside vision should be visible")
	}
}

func TestTargetableResolvesAllFamilies(t *testing.T) {
	ts := NewTestSim()
	u := ts.SpawnUnit(0, "TROOPER", 600, 600)
	b := ts.SpawnBuilding(0, "BUNKER", 800, 800)
	wid := ts.Game.entities.NextID()
	w := newWallSegment(wid, ts.Faction(0), vector.Vector{X: 1000, Y: 1000})
	ts.Game.entities.wallSegments[wid] = w

	e := ts.Game.entities
	if got := e.Targetable(u.id); got == nil || got.TargetKind() != TargetKindUnit {
		t.Error("unit did not resolve")
	}
	if got := e.Targetable(b.id); got == nil || got.TargetKind() != TargetKindBuilding {
		t.Error("building did not resolve")
	}
	if got := e.Targetable(wid); got == nil || got.TargetKind() != TargetKindWallSegment {
		t.Error("wall segment did not resolve")
	}
	if e.Targetable(NoEntity) != nil {
		t.Error("zero id resolved to something")
	}
}
