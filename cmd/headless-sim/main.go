// Command headless-sim plays scripted matches without any transport
// and prints a per-run report from the simulation event log. Used for
// balance passes and determinism spot checks.
package main

import (
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/Garsondee/Dustline/internal/rts"
)

type runStats struct {
	runIndex int
	seed     int64

	endTick    int
	status     rts.GameStatus
	winnerTeam rts.Team

	firstShotTick     int
	firstUnitLossTick int
	firstBuildingLoss int

	unitsLost     map[int]int
	buildingsLost map[int]int
	deliveries    map[int]int
	harvested     map[int]float64
	produced      map[int]int
	lowPowerDips  int

	endCredits map[int]int
}

func main() {
	var runs int
	var ticks int
	var seedBase int64
	var seedStep int64
	var scenario string

	flag.IntVar(&runs, "runs", 3, "number of headless matches")
	flag.IntVar(&ticks, "ticks", 10800, "tick budget per match (180 s at 60 Hz)")
	flag.Int64Var(&seedBase, "seed-base", 42, "RNG seed for run 1")
	flag.Int64Var(&seedStep, "seed-step", 1, "seed increment between runs")
	flag.StringVar(&scenario, "scenario", "meeting-engagement", "scenario name")
	flag.Parse()

	if runs <= 0 || ticks <= 0 {
		fmt.Println("error: -runs and -ticks must be > 0")
		return
	}
	if scenario != "meeting-engagement" {
		fmt.Printf("error: unsupported scenario %q (supported: meeting-engagement)\n", scenario)
		return
	}

	fmt.Printf("=== Headless Match Report ===\n")
	fmt.Printf("scenario=%s runs=%d ticks=%d seed_base=%d seed_step=%d\n\n", scenario, runs, ticks, seedBase, seedStep)

	all := make([]runStats, 0, runs)
	for i := 0; i < runs; i++ {
		seed := seedBase + int64(i)*seedStep
		stats := runMeetingEngagement(i+1, seed, ticks)
		all = append(all, stats)
		printRun(stats)
	}
	printAggregate(all)
}

// runMeetingEngagement pits two scripted factions against each other:
// both harvest, both train troopers, and both send their standing army
// at the enemy base.
func runMeetingEngagement(runIndex int, seed int64, ticks int) runStats {
	ts := rts.NewTestSim(
		rts.WithSeed(seed),
		rts.WithVerbose(true),
		rts.WithBuilding(0, "BARRACKS", 420, 200),
		rts.WithBuilding(1, "BARRACKS", 2580, 2800),
		rts.WithUnit(0, "WORKER", 200, 360),
		rts.WithUnit(1, "WORKER", 2800, 2640),
		rts.WithDeposit(rts.ResourceSpice, 520, 420, 2400),
		rts.WithDeposit(rts.ResourceSpice, 2480, 2580, 2400),
	)
	g := ts.Game

	armies := map[int][]int{}
	for _, side := range []struct {
		player int
		x, y   float64
	}{
		{0, 600, 600},
		{1, 2400, 2400},
	} {
		for i := 0; i < 4; i++ {
			u := ts.SpawnUnit(side.player, "TROOPER", side.x+float64(i)*30, side.y)
			armies[side.player] = append(armies[side.player], int(u.ID()))
		}
		tank := ts.SpawnUnit(side.player, "LIGHT_TANK", side.x, side.y+60)
		armies[side.player] = append(armies[side.player], int(tank.ID()))
	}

	// Harvest loops.
	orderHarvest(ts, 0)
	orderHarvest(ts, 1)

	// Reinforcement queues.
	orderProduction(ts, 0, "TROOPER", 3)
	orderProduction(ts, 1, "TROOPER", 3)

	// Cross-map push.
	attacks := map[int]rts.PointWire{
		0: {X: 2800, Y: 2800},
		1: {X: 200, Y: 200},
	}
	for player, ids := range armies {
		sel := ids
		ts.Input(&rts.PlayerInput{PlayerID: player, Type: "rtsInput", SelectUnits: &sel})
		dest := attacks[player]
		ts.Input(&rts.PlayerInput{PlayerID: player, AttackMoveOrder: &dest})
	}

	for i := 0; i < ticks && g.Status() == rts.StatusRunning; i++ {
		ts.RunTicks(1)
	}

	log := g.SimLog()
	stats := runStats{
		runIndex:          runIndex,
		seed:              seed,
		endTick:           g.Tick(),
		status:            g.Status(),
		winnerTeam:        g.WinnerTeam(),
		firstShotTick:     firstTick(log, "combat", ""),
		firstUnitLossTick: firstTick(log, "combat", "unitLost"),
		firstBuildingLoss: firstTick(log, "combat", "buildingLost"),
		unitsLost:         map[int]int{},
		buildingsLost:     map[int]int{},
		deliveries:        map[int]int{},
		harvested:         map[int]float64{},
		produced:          map[int]int{},
		endCredits:        map[int]int{},
	}
	for _, e := range log.Entries() {
		switch {
		case e.Category == "combat" && e.Key == "unitLost":
			stats.unitsLost[e.Actor]++
		case e.Category == "combat" && e.Key == "buildingLost":
			stats.buildingsLost[e.Actor]++
		case e.Category == "economy" && e.Key == "harvestDelivery":
			stats.deliveries[e.Actor]++
			stats.harvested[e.Actor] += e.NumVal
		case e.Category == "production" && e.Key == "TROOPER":
			stats.produced[e.Actor]++
		case e.Category == "economy" && e.Key == "lowPower" && e.NumVal == 1:
			stats.lowPowerDips++
		}
	}
	for player := 0; player < 2; player++ {
		stats.endCredits[player] = ts.Faction(player).Credits()
	}
	return stats
}

func orderHarvest(ts *rts.TestSim, player int) {
	g := ts.Game
	var workerID, depositID int
	for _, u := range g.Units() {
		if u.Owner().PlayerID() == player && u.Def().Worker {
			workerID = int(u.ID())
		}
	}
	best := -1.0
	for _, o := range g.Obstacles() {
		if o.Resource() != rts.ResourceSpice {
			continue
		}
		hq := cornerFor(player)
		d := (o.Position().X-hq.X)*(o.Position().X-hq.X) + (o.Position().Y-hq.Y)*(o.Position().Y-hq.Y)
		if best < 0 || d < best {
			best = d
			depositID = int(o.ID())
		}
	}
	sel := []int{workerID}
	ts.Input(&rts.PlayerInput{PlayerID: player, Type: "rtsInput", SelectUnits: &sel})
	ts.Input(&rts.PlayerInput{PlayerID: player, HarvestOrder: depositID})
}

func orderProduction(ts *rts.TestSim, player int, unitType string, count int) {
	for _, b := range ts.Game.Buildings() {
		if b.Owner().PlayerID() != player || b.Def().Type != "BARRACKS" {
			continue
		}
		for i := 0; i < count; i++ {
			ts.Input(&rts.PlayerInput{
				PlayerID:          player,
				ProduceUnitOrder:  unitType,
				ProduceBuildingID: int(b.ID()),
			})
		}
	}
}

func cornerFor(player int) rts.PointWire {
	if player == 0 {
		return rts.PointWire{X: 200, Y: 200}
	}
	return rts.PointWire{X: 2800, Y: 2800}
}

func firstTick(log *rts.SimLog, category, key string) int {
	for _, e := range log.Entries() {
		if e.Category == category && (key == "" || e.Key == key) {
			return e.Tick
		}
	}
	return -1
}

func printRun(rs runStats) {
	fmt.Printf("--- Run %d (seed=%d) ---\n", rs.runIndex, rs.seed)
	outcome := "timeout"
	if rs.status == rts.StatusFinished {
		if rs.winnerTeam == rts.NoTeam {
			outcome = "draw"
		} else {
			outcome = fmt.Sprintf("team %d wins", int(rs.winnerTeam))
		}
	}
	fmt.Printf("outcome=%s end_tick=%d\n", outcome, rs.endTick)
	fmt.Printf("phase_markers: first_shot=%d first_unit_loss=%d first_building_loss=%d\n",
		rs.firstShotTick, rs.firstUnitLossTick, rs.firstBuildingLoss)
	for player := 0; player < 2; player++ {
		fmt.Printf("p%d: units_lost=%d buildings_lost=%d deliveries=%d harvested=%.0f trained=%d end_credits=%d\n",
			player, rs.unitsLost[player], rs.buildingsLost[player],
			rs.deliveries[player], rs.harvested[player], rs.produced[player], rs.endCredits[player])
	}
	fmt.Printf("low_power_dips=%d\n\n", rs.lowPowerDips)
}

func printAggregate(all []runStats) {
	wins := map[string]int{}
	lossTicks := make([]int, 0, len(all))
	totalLost := 0
	totalTrained := 0
	for _, rs := range all {
		key := "timeout"
		if rs.status == rts.StatusFinished {
			if rs.winnerTeam == rts.NoTeam {
				key = "draw"
			} else {
				key = fmt.Sprintf("team%d", int(rs.winnerTeam))
			}
		}
		wins[key]++
		if rs.firstUnitLossTick >= 0 {
			lossTicks = append(lossTicks, rs.firstUnitLossTick)
		}
		for _, n := range rs.unitsLost {
			totalLost += n
		}
		for _, n := range rs.produced {
			totalTrained += n
		}
	}

	fmt.Println("=== Aggregate ===")
	fmt.Printf("runs=%d outcomes=%s\n", len(all), formatOutcomes(wins))
	fmt.Printf("avg_first_unit_loss=%s avg_units_lost_per_run=%.1f avg_trained_per_run=%.1f\n",
		avgTickString(lossTicks),
		float64(totalLost)/float64(len(all)),
		float64(totalTrained)/float64(len(all)))
}

func formatOutcomes(wins map[string]int) string {
	keys := make([]string, 0, len(wins))
	for k := range wins {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, wins[k]))
	}
	return strings.Join(parts, " ")
}

func avgTickString(vals []int) string {
	if len(vals) == 0 {
		return "n/a"
	}
	sum := 0
	for _, v := range vals {
		sum += v
	}
	return fmt.Sprintf("%.1f", float64(sum)/float64(len(vals)))
}
