package rts

import (
	"math"
	"sort"

	"github.com/rudransh61/Physix-go/pkg/rigidbody"
	"github.com/rudransh61/Physix-go/pkg/vector"
)

const (
	// Spatial hash bucket edge. Tuned for unit radii of 8–24: one bucket
	// holds a handful of bodies even in a deathball.
	hashCellSize = 64.0

	// Velocity damping applied per step to bodies nobody is steering.
	bodyDamping = 0.85
)

// Body is a rigid body registered in the world, indexed back from the
// owning entity's id. Command logic writes target velocity each tick;
// Step integrates.
type Body struct {
	rb       *rigidbody.RigidBody
	id       EntityID
	radius   float64 // circle radius, or half-diagonal for rectangles
	airborne bool
	rotation float64 // facing, radians
	steered  bool    // velocity was set this tick; skip damping
}

// Position returns the body's current world position.
func (b *Body) Position() vector.Vector { return b.rb.Position }

// Velocity returns the body's current linear velocity.
func (b *Body) Velocity() vector.Vector { return b.rb.Velocity }

// Rotation returns the body's facing in radians.
func (b *Body) Rotation() float64 { return b.rotation }

// Radius returns the collision radius.
func (b *Body) Radius() float64 { return b.radius }

// SetVelocity writes the body's linear velocity for this tick.
func (b *Body) SetVelocity(v vector.Vector) {
	b.rb.Velocity = v
	b.steered = true
}

// Face turns the body toward a world point instantly.
func (b *Body) Face(p vector.Vector) {
	dx := p.X - b.rb.Position.X
	dy := p.Y - b.rb.Position.Y
	if dx != 0 || dy != 0 {
		b.rotation = math.Atan2(dy, dx)
	}
}

// Teleport moves the body without integrating (garrison exit, spawn).
func (b *Body) Teleport(p vector.Vector) {
	b.rb.Position = p
}

// World owns all rigid bodies for one game and answers spatial queries.
// It is mutated only inside the owning game's tick.
type World struct {
	Width  float64
	Height float64

	bodies map[EntityID]*Body
	hash   map[[2]int][]*Body // rebuilt by Step
}

// NewWorld creates a bounded world of the given dimensions.
func NewWorld(width, height float64) *World {
	return &World{
		Width:  width,
		Height: height,
		bodies: make(map[EntityID]*Body),
		hash:   make(map[[2]int][]*Body),
	}
}

// AddCircleBody registers a circular body for an entity.
func (w *World) AddCircleBody(id EntityID, pos vector.Vector, radius, mass float64, airborne bool) *Body {
	b := &Body{
		rb: &rigidbody.RigidBody{
			Position:  pos,
			Velocity:  vector.Vector{},
			Mass:      mass,
			Shape:     "Circle",
			Radius:    radius,
			IsMovable: true,
		},
		id:       id,
		radius:   radius,
		airborne: airborne,
	}
	w.bodies[id] = b
	return b
}

// AddRectBody registers a static rectangular body (buildings, walls).
func (w *World) AddRectBody(id EntityID, pos vector.Vector, width, height float64) *Body {
	b := &Body{
		rb: &rigidbody.RigidBody{
			Position:  pos,
			Mass:      0,
			Shape:     "Rectangle",
			Width:     width,
			Height:    height,
			IsMovable: false,
		},
		id:     id,
		radius: math.Hypot(width, height) / 2,
	}
	w.bodies[id] = b
	return b
}

// Remove drops a body. Missing ids are a no-op: removal must never
// fail mid-tick.
func (w *World) Remove(id EntityID) {
	delete(w.bodies, id)
}

// Body returns the body for an entity, or nil.
func (w *World) Body(id EntityID) *Body {
	return w.bodies[id]
}

// Step integrates all movable bodies by dt seconds, clamps to the world
// bounds, applies damping to unsteered bodies and rebuilds the spatial
// hash.
func (w *World) Step(dt float64) {
	for _, b := range w.bodies {
		if !b.rb.IsMovable {
			continue
		}
		b.rb.Position.X += b.rb.Velocity.X * dt
		b.rb.Position.Y += b.rb.Velocity.Y * dt

		if b.rb.Position.X < b.radius {
			b.rb.Position.X = b.radius
		}
		if b.rb.Position.Y < b.radius {
			b.rb.Position.Y = b.radius
		}
		if b.rb.Position.X > w.Width-b.radius {
			b.rb.Position.X = w.Width - b.radius
		}
		if b.rb.Position.Y > w.Height-b.radius {
			b.rb.Position.Y = w.Height - b.radius
		}

		if !b.steered {
			b.rb.Velocity.X *= bodyDamping
			b.rb.Velocity.Y *= bodyDamping
		}
		b.steered = false
	}
	w.rebuildHash()
}

func (w *World) rebuildHash() {
	for k := range w.hash {
		delete(w.hash, k)
	}
	for _, b := range w.bodies {
		c := hashCell(b.rb.Position)
		w.hash[c] = append(w.hash[c], b)
	}
}

func hashCell(p vector.Vector) [2]int {
	return [2]int{int(math.Floor(p.X / hashCellSize)), int(math.Floor(p.Y / hashCellSize))}
}

// QueryCircle returns ids of bodies whose centers lie within radius of
// center, ascending. Uses the spatial hash; correct as long as Step ran
// since the last mutation, which the tick ordering guarantees. Sorted
// output keeps downstream float accumulation deterministic.
func (w *World) QueryCircle(center vector.Vector, radius float64) []EntityID {
	var out []EntityID
	minC := hashCell(vector.Vector{X: center.X - radius, Y: center.Y - radius})
	maxC := hashCell(vector.Vector{X: center.X + radius, Y: center.Y + radius})
	r2 := radius * radius
	for cx := minC[0]; cx <= maxC[0]; cx++ {
		for cy := minC[1]; cy <= maxC[1]; cy++ {
			for _, b := range w.hash[[2]int{cx, cy}] {
				dx := b.rb.Position.X - center.X
				dy := b.rb.Position.Y - center.Y
				if dx*dx+dy*dy <= r2 {
					out = append(out, b.id)
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// --- shared geometry helpers ---

var zeroVec = vector.Vector{}

// facing returns the angle in radians from a to b.
func facing(a, b vector.Vector) float64 {
	return math.Atan2(b.Y-a.Y, b.X-a.X)
}

func sortEntityIDs(ids []EntityID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func dist(a, b vector.Vector) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func distSq(a, b vector.Vector) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return dx*dx + dy*dy
}

func sub(a, b vector.Vector) vector.Vector {
	return vector.Vector{X: a.X - b.X, Y: a.Y - b.Y}
}

func add(a, b vector.Vector) vector.Vector {
	return vector.Vector{X: a.X + b.X, Y: a.Y + b.Y}
}

func scale(v vector.Vector, s float64) vector.Vector {
	return vector.Vector{X: v.X * s, Y: v.Y * s}
}

func length(v vector.Vector) float64 {
	return math.Hypot(v.X, v.Y)
}

// normalized returns v scaled to unit length, or the zero vector.
func normalized(v vector.Vector) vector.Vector {
	l := length(v)
	if l < 1e-9 {
		return vector.Vector{}
	}
	return vector.Vector{X: v.X / l, Y: v.Y / l}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
