package rts

import (
	"container/heap"
	"math"

	"github.com/rudransh61/Physix-go/pkg/vector"
)

const (
	navCellSize = 20.0
	// Clearance padding around blockers so paths keep unit bodies off
	// the geometry.
	navPadding = 12.0
	// Spiral search bound when snapping a blocked point to a free cell.
	navSnapRadius = 10
)

// Pathfinder plans ground routes on a walkability grid derived from
// obstacles, completed buildings and wall segments. The grid is
// rebuilt lazily after construction or destruction marks it dirty.
// Airborne units never consult it.
type Pathfinder struct {
	world    *World
	entities *GameEntities

	cols, rows int
	blocked    []bool
	dirty      bool
}

func newPathfinder(world *World, entities *GameEntities) *Pathfinder {
	return &Pathfinder{
		world:    world,
		entities: entities,
		cols:     int(world.Width / navCellSize),
		rows:     int(world.Height / navCellSize),
		dirty:    true,
	}
}

// invalidate schedules a grid rebuild before the next query.
func (p *Pathfinder) invalidate() { p.dirty = true }

func (p *Pathfinder) cellAt(w vector.Vector) (int, int) {
	return int(w.X / navCellSize), int(w.Y / navCellSize)
}

func (p *Pathfinder) cellCenter(cx, cy int) vector.Vector {
	return vector.Vector{
		X: float64(cx)*navCellSize + navCellSize/2,
		Y: float64(cy)*navCellSize + navCellSize/2,
	}
}

func (p *Pathfinder) isBlocked(cx, cy int) bool {
	if cx < 0 || cy < 0 || cx >= p.cols || cy >= p.rows {
		return true
	}
	return p.blocked[cy*p.cols+cx]
}

func (p *Pathfinder) blockRect(center vector.Vector, halfW, halfH float64) {
	minX := int((center.X - halfW - navPadding) / navCellSize)
	minY := int((center.Y - halfH - navPadding) / navCellSize)
	maxX := int((center.X + halfW + navPadding) / navCellSize)
	maxY := int((center.Y + halfH + navPadding) / navCellSize)
	for cy := maxInt(0, minY); cy <= minInt(p.rows-1, maxY); cy++ {
		for cx := maxInt(0, minX); cx <= minInt(p.cols-1, maxX); cx++ {
			p.blocked[cy*p.cols+cx] = true
		}
	}
}

func (p *Pathfinder) blockCircle(center vector.Vector, radius float64) {
	r := radius + navPadding
	minX := int((center.X - r) / navCellSize)
	minY := int((center.Y - r) / navCellSize)
	maxX := int((center.X + r) / navCellSize)
	maxY := int((center.Y + r) / navCellSize)
	for cy := maxInt(0, minY); cy <= minInt(p.rows-1, maxY); cy++ {
		for cx := maxInt(0, minX); cx <= minInt(p.cols-1, maxX); cx++ {
			if dist(p.cellCenter(cx, cy), center) <= r {
				p.blocked[cy*p.cols+cx] = true
			}
		}
	}
}

// rebuild recomputes the walkability grid from current static
// geometry. Under-construction sites do not block; their footprint
// only matters once the structure stands.
func (p *Pathfinder) rebuild() {
	p.blocked = make([]bool, p.cols*p.rows)
	for _, o := range p.entities.obstacles {
		if !o.active {
			continue
		}
		switch o.shape {
		case ShapeRectangle:
			p.blockRect(o.pos, o.width/2, o.height/2)
		default:
			p.blockCircle(o.pos, o.blockRadius())
		}
	}
	for _, b := range p.entities.buildings {
		if b.active && !b.underConstruction {
			p.blockRect(b.pos, b.def.Width/2, b.def.Height/2)
		}
	}
	for _, w := range p.entities.wallSegments {
		if w.active {
			p.blockRect(w.pos, wallSegmentSize/2, wallSegmentSize/2)
		}
	}
	p.dirty = false
}

// nearestFreeCell spirals outward from a cell until it finds one that
// is walkable. Deterministic scan order: ring by ring, row-major
// within the ring.
func (p *Pathfinder) nearestFreeCell(cx, cy int) (int, int, bool) {
	if !p.isBlocked(cx, cy) {
		return cx, cy, true
	}
	for ring := 1; ring <= navSnapRadius; ring++ {
		for dy := -ring; dy <= ring; dy++ {
			for dx := -ring; dx <= ring; dx++ {
				if maxInt(absInt(dx), absInt(dy)) != ring {
					continue
				}
				if !p.isBlocked(cx+dx, cy+dy) {
					return cx + dx, cy + dy, true
				}
			}
		}
	}
	return cx, cy, false
}

// NearestFreePoint snaps a world point onto walkable ground. Used for
// spawn and rally displacement when the natural point is occupied.
func (p *Pathfinder) NearestFreePoint(w vector.Vector) vector.Vector {
	if p.dirty {
		p.rebuild()
	}
	cx, cy := p.cellAt(w)
	if !p.isBlocked(cx, cy) {
		return w
	}
	nx, ny, ok := p.nearestFreeCell(cx, cy)
	if !ok {
		return w
	}
	return p.cellCenter(nx, ny)
}

type pathNode struct {
	cx, cy int
	g, h   float64
	parent *pathNode
	index  int // heap index
}

type openList []*pathNode

func (ol openList) Len() int           { return len(ol) }
func (ol openList) Less(i, j int) bool { return (ol[i].g + ol[i].h) < (ol[j].g + ol[j].h) }
func (ol openList) Swap(i, j int) {
	ol[i], ol[j] = ol[j], ol[i]
	ol[i].index = i
	ol[j].index = j
}
func (ol *openList) Push(x interface{}) {
	n := x.(*pathNode)
	n.index = len(*ol)
	*ol = append(*ol, n)
}
func (ol *openList) Pop() interface{} {
	old := *ol
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*ol = old[:len(old)-1]
	return n
}

var pathDirs = [8][2]int{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
}

// FindPath plans a route between two world points. Blocked endpoints
// snap to the nearest free cell first. Returns the waypoint list and
// whether a route exists.
func (p *Pathfinder) FindPath(from, to vector.Vector) ([]vector.Vector, bool) {
	if p.dirty {
		p.rebuild()
	}
	scx, scy := p.cellAt(from)
	gcx, gcy := p.cellAt(to)

	var ok bool
	if scx, scy, ok = p.nearestFreeCell(scx, scy); !ok {
		return nil, false
	}
	if gcx, gcy, ok = p.nearestFreeCell(gcx, gcy); !ok {
		return nil, false
	}

	key := func(cx, cy int) int { return cy*p.cols + cx }
	heuristic := func(ax, ay, bx, by int) float64 {
		dx := math.Abs(float64(ax - bx))
		dy := math.Abs(float64(ay - by))
		return dx + dy + (math.Sqrt2-2)*math.Min(dx, dy)
	}

	start := &pathNode{cx: scx, cy: scy, h: heuristic(scx, scy, gcx, gcy)}
	ol := &openList{start}
	heap.Init(ol)

	closed := make(map[int]bool)
	best := make(map[int]*pathNode)
	best[key(scx, scy)] = start

	for ol.Len() > 0 {
		cur := heap.Pop(ol).(*pathNode)
		if cur.cx == gcx && cur.cy == gcy {
			return p.buildPath(cur), true
		}
		k := key(cur.cx, cur.cy)
		if closed[k] {
			continue
		}
		closed[k] = true

		for _, d := range pathDirs {
			nx, ny := cur.cx+d[0], cur.cy+d[1]
			if p.isBlocked(nx, ny) {
				continue
			}
			// Prevent diagonal corner-cutting through blocked cells.
			if d[0] != 0 && d[1] != 0 {
				if p.isBlocked(cur.cx+d[0], cur.cy) || p.isBlocked(cur.cx, cur.cy+d[1]) {
					continue
				}
			}
			nk := key(nx, ny)
			if closed[nk] {
				continue
			}
			cost := 1.0
			if d[0] != 0 && d[1] != 0 {
				cost = math.Sqrt2
			}
			gCost := cur.g + cost
			if prev, exists := best[nk]; exists && gCost >= prev.g {
				continue
			}
			node := &pathNode{cx: nx, cy: ny, g: gCost, h: heuristic(nx, ny, gcx, gcy), parent: cur}
			best[nk] = node
			heap.Push(ol, node)
		}
	}
	return nil, false
}

func (p *Pathfinder) buildPath(end *pathNode) []vector.Vector {
	var cells [][2]int
	for n := end; n != nil; n = n.parent {
		cells = append(cells, [2]int{n.cx, n.cy})
	}
	for i, j := 0, len(cells)-1; i < j; i, j = i+1, j-1 {
		cells[i], cells[j] = cells[j], cells[i]
	}
	path := make([]vector.Vector, len(cells))
	for i, c := range cells {
		path[i] = p.cellCenter(c[0], c[1])
	}
	return path
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
