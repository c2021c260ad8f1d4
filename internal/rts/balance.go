package rts

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"
)

//go:embed default_balance.yaml
var defaultBalanceYAML []byte

// OrdinanceType names what a weapon spawns when it fires.
type OrdinanceType string

const (
	OrdinanceBullet OrdinanceType = "BULLET"
	OrdinanceShell  OrdinanceType = "SHELL"
	OrdinanceRocket OrdinanceType = "ROCKET"
	OrdinanceFlak   OrdinanceType = "FLAK"
	OrdinanceBomb   OrdinanceType = "BOMB"
	OrdinanceLaser  OrdinanceType = "LASER"
)

// FieldEffectType names transient area entities.
type FieldEffectType string

const (
	EffectExplosion     FieldEffectType = "EXPLOSION"
	EffectElectric      FieldEffectType = "ELECTRIC"
	EffectSandstorm     FieldEffectType = "SANDSTORM"
	EffectFlakExplosion FieldEffectType = "FLAK_EXPLOSION"
	EffectFire          FieldEffectType = "FIRE"
)

// ResourceType names what a harvestable obstacle yields.
type ResourceType string

const (
	ResourceSpice ResourceType = "SPICE"
	ResourceOre   ResourceType = "ORE"
)

// WeaponDef is the immutable balance entry for one weapon.
type WeaponDef struct {
	Name            string        `yaml:"name"`
	Range           float64       `yaml:"range"`
	Damage          float64       `yaml:"damage"`
	CooldownTicks   int           `yaml:"cooldownTicks"`
	Ordinance       OrdinanceType `yaml:"ordinance"`
	Beam            bool          `yaml:"beam"`
	BeamTicks       int           `yaml:"beamTicks"`
	ProjectileSpeed float64       `yaml:"projectileSpeed"`
	Hits            []string      `yaml:"hits"` // elevation capability set
	AoERadius       float64       `yaml:"aoeRadius"`
	FriendlyFire    bool          `yaml:"friendlyFire"`

	hits map[Elevation]bool
}

// CanHit reports whether this weapon can damage targets at the given
// elevation.
func (wd *WeaponDef) CanHit(e Elevation) bool {
	return wd.hits[e]
}

// UnitDef is the immutable balance entry for one unit type.
type UnitDef struct {
	Type          string  `yaml:"type"`
	MaxHealth     float64 `yaml:"maxHealth"`
	Speed         float64 `yaml:"speed"` // world units per second
	Radius        float64 `yaml:"radius"`
	ElevationName string  `yaml:"elevation"`
	CostCredits   int     `yaml:"cost"`
	Upkeep        int     `yaml:"upkeep"`
	BuildTicks    int     `yaml:"buildTicks"`
	Weapon        string  `yaml:"weapon"`
	SecondWeapon  string  `yaml:"secondWeapon"` // gunship dual mount
	VisionRange   float64 `yaml:"visionRange"`

	// Component bag. Zero values mean the component is absent.
	Worker         bool    `yaml:"worker"`
	Miner          bool    `yaml:"miner"`
	CarryCapacity  int     `yaml:"carryCapacity"`
	PickaxeUses    int     `yaml:"pickaxeUses"`
	Cloak          bool    `yaml:"cloak"`
	CloakDetection float64 `yaml:"cloakDetection"` // observer-side reveal radius
	Airframe       bool    `yaml:"airframe"`       // hangar-housed aircraft
	FuelTicks      int     `yaml:"fuelTicks"`
	Ammo           int     `yaml:"ammo"`
	PatrolSides    int     `yaml:"patrolSides"` // on-station orbit polygon
	Bomber         bool    `yaml:"bomber"`
	Interceptor    bool    `yaml:"interceptor"`
	Gunship        bool    `yaml:"gunship"`

	elevation Elevation
}

// Elevation returns the parsed elevation band.
func (ud *UnitDef) Elevation() Elevation { return ud.elevation }

// BuildingDef is the immutable balance entry for one building type.
type BuildingDef struct {
	Type             string   `yaml:"type"`
	MaxHealth        float64  `yaml:"maxHealth"`
	Width            float64  `yaml:"width"`
	Height           float64  `yaml:"height"`
	CostCredits      int      `yaml:"cost"`
	BuildTicks       int      `yaml:"buildTicks"`
	PowerGenerated   int      `yaml:"powerGenerated"`
	PowerConsumed    int      `yaml:"powerConsumed"`
	UpkeepProvided   int      `yaml:"upkeepProvided"`
	Produces         []string `yaml:"produces"`
	Weapon           string   `yaml:"weapon"` // defensive turret mount
	Defensive        bool     `yaml:"defensive"`
	Wall             bool     `yaml:"wall"` // placed as a wall segment, not a structure
	GarrisonCapacity int      `yaml:"garrisonCapacity"`
	HangarCapacity   int      `yaml:"hangarCapacity"`
	VisionRange      float64  `yaml:"visionRange"`
	Refinery         bool     `yaml:"refinery"`
	ResearchLab      bool     `yaml:"researchLab"`
	CloakDetection   float64  `yaml:"cloakDetection"`
}

// TargetRadius is the half-diagonal used as target size on the wire.
func (bd *BuildingDef) TargetRadius() float64 {
	return (bd.Width + bd.Height) / 4
}

// ResearchEffect rewrites one unit attribute when its research
// completes. The expression receives the current value as `value`.
type ResearchEffect struct {
	Unit string `yaml:"unit"`
	Attr string `yaml:"attr"` // damage | maxHealth | speed
	Expr string `yaml:"expr"`

	program *vm.Program
}

// Apply runs the compiled effect expression against a current value.
func (re *ResearchEffect) Apply(value float64) (float64, error) {
	out, err := expr.Run(re.program, map[string]any{"value": value})
	if err != nil {
		return value, err
	}
	f, ok := out.(float64)
	if !ok {
		return value, fmt.Errorf("effect %s/%s: expression yielded %T", re.Unit, re.Attr, out)
	}
	return f, nil
}

// ResearchDef is the immutable balance entry for one research item.
type ResearchDef struct {
	ID            string           `yaml:"id"`
	Name          string           `yaml:"name"`
	CostCredits   int              `yaml:"cost"`
	DurationTicks int              `yaml:"durationTicks"`
	Prereqs       []string         `yaml:"prereqs"`
	Effects       []ResearchEffect `yaml:"effects"`
	// ParallelSlots > 0 marks a PARALLEL_RESEARCH_k upgrade granting
	// that many extra simultaneous research slots.
	ParallelSlots int `yaml:"parallelSlots"`
}

// FactionDef is a rule variant: which units, buildings and research a
// player of this faction type can use.
type FactionDef struct {
	Type            string   `yaml:"type"`
	StartingCredits int      `yaml:"startingCredits"`
	MaxUpkeepBase   int      `yaml:"maxUpkeepBase"`
	Units           []string `yaml:"units"`
	Buildings       []string `yaml:"buildings"`
	Research        []string `yaml:"research"`
}

// EconomyDef holds the global income model.
type EconomyDef struct {
	BaseIncomePerSecond     float64 `yaml:"baseIncomePerSecond"`
	RefineryIncomePerSecond float64 `yaml:"refineryIncomePerSecond"`
	HarvestDeliveryCredits  int     `yaml:"harvestDeliveryCredits"`
	MineDeliveryCredits     int     `yaml:"mineDeliveryCredits"`
}

// Balance is the full immutable rule set injected into every game at
// construction. No process-wide balance state exists.
type Balance struct {
	Weapons   map[string]*WeaponDef   `yaml:"weapons"`
	Units     map[string]*UnitDef     `yaml:"units"`
	Buildings map[string]*BuildingDef `yaml:"buildings"`
	Research  map[string]*ResearchDef `yaml:"research"`
	Factions  map[string]*FactionDef  `yaml:"factions"`
	Economy   EconomyDef              `yaml:"economy"`
}

// LoadBalance parses and validates a balance table document.
func LoadBalance(raw []byte) (*Balance, error) {
	var b Balance
	if err := yaml.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	if err := b.finish(); err != nil {
		return nil, err
	}
	return &b, nil
}

// DefaultBalance returns the embedded balance tables.
func DefaultBalance() *Balance {
	b, err := LoadBalance(defaultBalanceYAML)
	if err != nil {
		// The embedded document is part of the build; failing to parse
		// it is a programming error, not an input error.
		panic(err)
	}
	return b
}

// LoadBalanceFile reads a balance override from disk.
func LoadBalanceFile(path string) (*Balance, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read balance file: %w", err)
	}
	return LoadBalance(raw)
}

func (b *Balance) finish() error {
	for name, wd := range b.Weapons {
		wd.Name = name
		wd.hits = make(map[Elevation]bool, len(wd.Hits))
		for _, h := range wd.Hits {
			switch h {
			case "GROUND":
				wd.hits[ElevationGround] = true
			case "LOW":
				wd.hits[ElevationLow] = true
			case "HIGH":
				wd.hits[ElevationHigh] = true
			default:
				return fmt.Errorf("weapon %s: unknown elevation %q", name, h)
			}
		}
	}
	for name, ud := range b.Units {
		ud.Type = name
		switch ud.ElevationName {
		case "", "GROUND":
			ud.elevation = ElevationGround
		case "LOW":
			ud.elevation = ElevationLow
		case "HIGH":
			ud.elevation = ElevationHigh
		default:
			return fmt.Errorf("unit %s: unknown elevation %q", name, ud.ElevationName)
		}
		if ud.Weapon != "" && b.Weapons[ud.Weapon] == nil {
			return fmt.Errorf("unit %s: unknown weapon %q", name, ud.Weapon)
		}
		if ud.SecondWeapon != "" && b.Weapons[ud.SecondWeapon] == nil {
			return fmt.Errorf("unit %s: unknown second weapon %q", name, ud.SecondWeapon)
		}
	}
	for name, bd := range b.Buildings {
		bd.Type = name
		if bd.Weapon != "" && b.Weapons[bd.Weapon] == nil {
			return fmt.Errorf("building %s: unknown weapon %q", name, bd.Weapon)
		}
		for _, p := range bd.Produces {
			if b.Units[p] == nil {
				return fmt.Errorf("building %s: produces unknown unit %q", name, p)
			}
		}
	}
	env := map[string]any{"value": float64(0)}
	for id, rd := range b.Research {
		rd.ID = id
		for i := range rd.Effects {
			eff := &rd.Effects[i]
			if b.Units[eff.Unit] == nil {
				return fmt.Errorf("research %s: effect on unknown unit %q", id, eff.Unit)
			}
			prog, err := expr.Compile(eff.Expr, expr.Env(env))
			if err != nil {
				return fmt.Errorf("research %s: compile effect %q: %w", id, eff.Expr, err)
			}
			eff.program = prog
		}
		for _, pre := range rd.Prereqs {
			if b.Research[pre] == nil {
				return fmt.Errorf("research %s: unknown prereq %q", id, pre)
			}
		}
	}
	for name, fd := range b.Factions {
		fd.Type = name
		for _, u := range fd.Units {
			if b.Units[u] == nil {
				return fmt.Errorf("faction %s: unknown unit %q", name, u)
			}
		}
		for _, bt := range fd.Buildings {
			if b.Buildings[bt] == nil {
				return fmt.Errorf("faction %s: unknown building %q", name, bt)
			}
		}
		for _, r := range fd.Research {
			if b.Research[r] == nil {
				return fmt.Errorf("faction %s: unknown research %q", name, r)
			}
		}
	}
	return nil
}
