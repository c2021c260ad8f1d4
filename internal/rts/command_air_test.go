package rts

import (
	"math"
	"testing"
)

func airbaseOf(t *testing.T, ts *TestSim, player int) *Building {
	t.Helper()
	for _, b := range ts.Faction(player).sortedOwnedBuildings(ts.Game.entities) {
		if b.def.Type == "AIRBASE" {
			return b
		}
	}
	t.Fatal("no airbase in scenario")
	return nil
}

func hangarBomber(t *testing.T, ts *TestSim, base *Building) *Unit {
	t.Helper()
	def := ts.Game.balance.Units["BOMBER"]
	u := ts.Game.spawnProducedUnit(base, def)
	if u == nil || u.housedIn != base.id {
		t.Fatal("bomber did not dock into the hangar")
	}
	return u
}

func TestBomberSortieCarpetAndReturn(t *testing.T) {
	ts := NewTestSim(WithBuilding(0, "AIRBASE", 500, 500))
	base := airbaseOf(t, ts, 0)
	bomber := hangarBomber(t, ts, base)
	target := ts.SpawnBuilding(1, "BUNKER", 1000, 500)

	loc := PointWire{X: 1000, Y: 500}
	ts.Input(&PlayerInput{PlayerID: 0, SortieHangarID: int(base.id), SortieTargetLocation: &loc})

	if bomber.housedIn != NoEntity {
		t.Fatal("bomber still housed after sortie order")
	}
	if !bomber.air.onSortie || base.hangar.onSortie != 1 {
		t.Fatal("sortie reservation not taken")
	}
	if bomber.command.kind != CmdSortie {
		t.Fatalf("command = %v, want SORTIE", bomber.command.kind)
	}

	// One trigger pull releases a full stick.
	if ts.RunUntil(func(ts *TestSim) bool {
		return ts.Game.log.CountCategory("combat", "payloadRelease") >= 1
	}, 600) < 0 {
		t.Fatal("payload never released")
	}
	bombs := 0
	for _, p := range ts.Game.entities.projectiles {
		if p.ordType == OrdinanceBomb && !p.spent {
			bombs++
		}
	}
	if bombs != bombStickCount {
		t.Errorf("bombs in flight = %d, want %d", bombs, bombStickCount)
	}

	if ts.RunUntil(func(ts *TestSim) bool {
		for _, fe := range ts.Game.entities.fieldEffects {
			if fe.effectType == EffectExplosion {
				return true
			}
		}
		return false
	}, 120) < 0 {
		t.Fatal("bombs never detonated")
	}
	ts.RunTicks(60)
	if target.health >= target.maxHealth {
		t.Error("carpet did no damage to the strike target")
	}

	// Home, dock, refuel, rearm.
	if ts.RunUntil(func(ts *TestSim) bool {
		return bomber.housedIn == base.id
	}, 1200) < 0 {
		t.Fatal("bomber never returned to the hangar")
	}
	if base.hangar.onSortie != 0 || len(base.hangar.housed) != 1 {
		t.Errorf("hangar state after dock: housed=%d onSortie=%d", len(base.hangar.housed), base.hangar.onSortie)
	}
	if bomber.air.fuel != bomber.def.FuelTicks {
		t.Errorf("fuel after dock = %d, want full %d", bomber.air.fuel, bomber.def.FuelTicks)
	}
	if bomber.air.onSortie {
		t.Error("sortie flag survived docking")
	}
}

func TestBingoFuelAbortsMission(t *testing.T) {
	ts := NewTestSim(WithBuilding(0, "AIRBASE", 500, 500))
	base := airbaseOf(t, ts, 0)
	bomber := hangarBomber(t, ts, base)

	loc := PointWire{X: 2500, Y: 2500}
	ts.Input(&PlayerInput{PlayerID: 0, SortieHangarID: int(base.id), SortieTargetLocation: &loc})
	bomber.air.fuel = int(float64(bomber.def.FuelTicks)*bingoFuelFraction) + 3

	ts.RunTicks(5)
	if bomber.command.kind != CmdReturnToHangar {
		t.Fatalf("command = %v, want RETURN_TO_HANGAR at bingo fuel", bomber.command.kind)
	}
	if ts.RunUntil(func(ts *TestSim) bool {
		return bomber.housedIn == base.id
	}, 1200) < 0 {
		t.Fatal("bomber never made it home on bingo fuel")
	}
}

func TestFlameoutDestroysAirframe(t *testing.T) {
	ts := NewTestSim(WithBuilding(0, "AIRBASE", 500, 500))
	base := airbaseOf(t, ts, 0)
	bomber := hangarBomber(t, ts, base)

	loc := PointWire{X: 2500, Y: 2500}
	ts.Input(&PlayerInput{PlayerID: 0, SortieHangarID: int(base.id), SortieTargetLocation: &loc})
	bomber.air.fuel = 3

	ts.RunTicks(6)
	if ts.Game.entities.Unit(bomber.id) != nil {
		t.Fatal("flamed-out airframe still exists")
	}
	if ts.Game.log.CountCategory("combat", "flameout") != 1 {
		t.Error("flameout not logged")
	}
	// The crash releases the hangar reservation.
	if base.hangar.onSortie != 0 {
		t.Errorf("onSortie = %d after crash, want 0", base.hangar.onSortie)
	}
}

func TestProducedAirframeDocksIntoHangar(t *testing.T) {
	ts := NewTestSim(
		WithBuilding(0, "AIRBASE", 500, 500),
		WithBuilding(0, "POWER_PLANT", 700, 500),
	)
	base := airbaseOf(t, ts, 0)
	ts.Faction(0).credits = 5000

	ts.Input(&PlayerInput{PlayerID: 0, ProduceUnitOrder: "BOMBER", ProduceBuildingID: int(base.id)})
	if ts.RunUntil(func(ts *TestSim) bool {
		return len(base.hangar.housed) == 1
	}, 4000) < 0 {
		t.Fatal("bomber never rolled off the line")
	}

	u := ts.Game.entities.Unit(base.hangar.housed[0])
	if u == nil || u.housedIn != base.id {
		t.Fatal("produced bomber not housed in its airbase")
	}
	if u.air == nil || u.air.homeHangar != base.id {
		t.Error("produced bomber has no home hangar")
	}
	if p := u.Position(); p.X != base.pos.X || p.Y != base.pos.Y {
		t.Errorf("housed bomber position = %+v, want the airbase at %+v", p, base.pos)
	}
	// Housed airframes sit out the sim without burning fuel.
	fuel := u.air.fuel
	ts.RunTicks(60)
	if u.air.fuel != fuel {
		t.Error("housed airframe burned fuel")
	}
}

func TestSortieLostWhenHomeHangarFalls(t *testing.T) {
	ts := NewTestSim(WithBuilding(0, "AIRBASE", 500, 500))
	base := airbaseOf(t, ts, 0)
	bomber := hangarBomber(t, ts, base)

	loc := PointWire{X: 2500, Y: 2500}
	ts.Input(&PlayerInput{PlayerID: 0, SortieHangarID: int(base.id), SortieTargetLocation: &loc})
	ts.RunTicks(30)
	if bomber.command.kind != CmdSortie {
		t.Fatalf("command = %v, want SORTIE mid-mission", bomber.command.kind)
	}

	base.TakeDamage(1e9, NoEntity)
	ts.RunTicks(3)
	if ts.Game.entities.Unit(bomber.id) != nil {
		t.Fatal("airframe survived losing its home hangar")
	}
	if ts.Game.log.CountCategory("combat", "hangarLost") != 1 {
		t.Error("hangar loss not logged")
	}
}

func TestAttackRunHoldsCourseThenTurnsHome(t *testing.T) {
	ts := NewTestSim(WithBuilding(0, "AIRBASE", 500, 500))
	base := airbaseOf(t, ts, 0)
	bomber := hangarBomber(t, ts, base)
	ts.SpawnBuilding(1, "BUNKER", 1400, 500)

	loc := PointWire{X: 1400, Y: 500}
	ts.Input(&PlayerInput{PlayerID: 0, SortieHangarID: int(base.id), SortieTargetLocation: &loc})

	if ts.RunUntil(func(ts *TestSim) bool {
		return ts.Game.log.CountCategory("combat", "payloadRelease") >= 1
	}, 600) < 0 {
		t.Fatal("payload never released")
	}
	// Release happens partway through the run: the bomber presses on at
	// full forward speed instead of breaking off.
	if bomber.command.kind != CmdSortie {
		t.Fatalf("command = %v right after release, want SORTIE", bomber.command.kind)
	}
	if v := length(bomber.Velocity()); v < 0.5*bomber.speed() {
		t.Errorf("attack-run speed = %0.1f, want at least half of %0.1f", v, bomber.speed())
	}

	ts.RunTicks(attackRunTicks - attackRunRelease + 2)
	if bomber.command.kind != CmdReturnToHangar {
		t.Errorf("command = %v after the run, want RETURN_TO_HANGAR", bomber.command.kind)
	}
	if ts.RunUntil(func(ts *TestSim) bool {
		return bomber.housedIn == base.id
	}, 1800) < 0 {
		t.Fatal("bomber never docked after the run")
	}
}

func TestOrbitStepUsesConfiguredSides(t *testing.T) {
	if got := orbitStep(&UnitDef{PatrolSides: 4}); math.Abs(got-math.Pi/2) > 1e-9 {
		t.Errorf("orbitStep(4 sides) = %v, want %v", got, math.Pi/2)
	}
	if got := orbitStep(&UnitDef{}); math.Abs(got-2*math.Pi/defaultPatrolSides) > 1e-9 {
		t.Errorf("orbitStep(unset) = %v, want the default polygon", got)
	}
	// Degenerate side counts fall back rather than spinning in place.
	if got := orbitStep(&UnitDef{PatrolSides: 2}); math.Abs(got-2*math.Pi/defaultPatrolSides) > 1e-9 {
		t.Errorf("orbitStep(2 sides) = %v, want the default polygon", got)
	}
	b := DefaultBalance()
	if got := orbitStep(b.Units["INTERCEPTOR"]); math.Abs(got-math.Pi/3) > 1e-9 {
		t.Errorf("interceptor orbit step = %v, want %v", got, math.Pi/3)
	}
}

func TestInterceptorOnStationEngagesAircraftOnly(t *testing.T) {
	ts := NewTestSim(WithBuilding(0, "AIRBASE", 500, 500))
	base := airbaseOf(t, ts, 0)
	def := ts.Game.balance.Units["INTERCEPTOR"]
	interceptor := ts.Game.spawnProducedUnit(base, def)

	groundBait := ts.SpawnUnit(1, "WORKER", 1000, 520)
	groundBait.SetStance(StanceHoldPosition)
	raider := ts.SpawnUnit(1, "GUNSHIP", 1050, 500)
	raider.SetStance(StanceHoldPosition)

	loc := PointWire{X: 1000, Y: 500}
	ts.Input(&PlayerInput{PlayerID: 0, SortieHangarID: int(base.id), SortieTargetLocation: &loc})
	if interceptor.command.kind != CmdOnStation {
		t.Fatalf("command = %v, want ON_STATION", interceptor.command.kind)
	}

	if ts.RunUntil(func(ts *TestSim) bool {
		return raider.health < raider.maxHealth
	}, 900) < 0 {
		t.Fatal("interceptor never engaged the gunship")
	}
	if groundBait.health != groundBait.maxHealth {
		t.Error("interceptor damaged a ground unit")
	}
}

func TestSpentInterceptorReturnsToRearm(t *testing.T) {
	ts := NewTestSim(WithBuilding(0, "AIRBASE", 500, 500))
	base := airbaseOf(t, ts, 0)
	def := ts.Game.balance.Units["INTERCEPTOR"]
	interceptor := ts.Game.spawnProducedUnit(base, def)

	loc := PointWire{X: 1200, Y: 500}
	ts.Input(&PlayerInput{PlayerID: 0, SortieHangarID: int(base.id), SortieTargetLocation: &loc})
	interceptor.air.ammo = 0

	ts.RunTicks(2)
	if interceptor.command.kind != CmdReturnToHangar {
		t.Fatalf("command = %v, want RETURN_TO_HANGAR when dry", interceptor.command.kind)
	}
	if ts.RunUntil(func(ts *TestSim) bool {
		return interceptor.housedIn == base.id
	}, 1200) < 0 {
		t.Fatal("interceptor never docked")
	}
	if interceptor.air.ammo != def.Ammo {
		t.Errorf("ammo after rearm = %d, want %d", interceptor.air.ammo, def.Ammo)
	}
}
