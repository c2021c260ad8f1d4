package rts

import (
	"github.com/rudransh61/Physix-go/pkg/vector"
)

// ObstacleShape is the footprint variant of a map obstacle.
type ObstacleShape int

const (
	ShapeCircle ObstacleShape = iota
	ShapeRectangle
	ShapePolygon
	ShapeIrregularPolygon
)

func (s ObstacleShape) String() string {
	switch s {
	case ShapeCircle:
		return "CIRCLE"
	case ShapeRectangle:
		return "RECTANGLE"
	case ShapePolygon:
		return "POLYGON"
	case ShapeIrregularPolygon:
		return "IRREGULAR_POLYGON"
	default:
		return "UNKNOWN"
	}
}

// Obstacle is terrain: it blocks movement and may be harvestable or
// destructible. Indestructible obstacles only block.
type Obstacle struct {
	id    EntityID
	shape ObstacleShape
	pos   vector.Vector

	// Circle footprint.
	radius float64
	// Rectangle footprint.
	width, height float64
	// Polygon footprints, world-space vertices.
	vertices []vector.Vector

	// Harvestable obstacles carry a deposit.
	resource          ResourceType
	remainingResource int

	// Destructible obstacles have hit points; 0 means indestructible.
	hitPoints float64

	active bool
}

func newCircleObstacle(id EntityID, pos vector.Vector, radius float64) *Obstacle {
	return &Obstacle{id: id, shape: ShapeCircle, pos: pos, radius: radius, active: true}
}

func newRectObstacle(id EntityID, pos vector.Vector, w, h float64) *Obstacle {
	return &Obstacle{id: id, shape: ShapeRectangle, pos: pos, width: w, height: h, active: true}
}

// ID returns the obstacle id.
func (o *Obstacle) ID() EntityID { return o.id }

// Position returns the obstacle center.
func (o *Obstacle) Position() vector.Vector { return o.pos }

// Harvestable reports whether resource remains to extract.
func (o *Obstacle) Harvestable() bool {
	return o.active && o.resource != "" && o.remainingResource > 0
}

// Resource returns the deposit type.
func (o *Obstacle) Resource() ResourceType { return o.resource }

// extract removes up to want resource, returning the amount taken.
// Depleted deposits become plain blockers.
func (o *Obstacle) extract(want int) int {
	if want <= 0 || o.remainingResource <= 0 {
		return 0
	}
	if want > o.remainingResource {
		want = o.remainingResource
	}
	o.remainingResource -= want
	return want
}

// damage chips away at a destructible obstacle. Indestructible
// obstacles (hitPoints 0) shrug everything off.
func (o *Obstacle) damage(amount float64) {
	if !o.active || o.hitPoints <= 0 {
		return
	}
	o.hitPoints -= amount
	if o.hitPoints <= 0 {
		o.hitPoints = 0
		o.active = false
	}
}

// blockRadius is the occupancy radius used by the pathfinder.
func (o *Obstacle) blockRadius() float64 {
	switch o.shape {
	case ShapeCircle:
		return o.radius
	case ShapeRectangle:
		if o.width > o.height {
			return o.width / 2
		}
		return o.height / 2
	default:
		// Polygons: coarse bound from the farthest vertex.
		var max float64
		for _, v := range o.vertices {
			if d := dist(o.pos, v); d > max {
				max = d
			}
		}
		if max == 0 {
			max = 20
		}
		return max
	}
}
