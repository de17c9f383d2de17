package neighbour

import "math"

// OptionalPID is an explicit option-valued particle handle, used everywhere
// this package would otherwise reach for a sentinel like -1 to mean "no
// particle here". Magic sentinel integers are exactly what a real option
// type should replace; the cell membership lists are that rewrite.
type OptionalPID struct {
	pid PID
	ok  bool
}

// NonePID is the empty option.
func NonePID() OptionalPID { return OptionalPID{} }

// SomePID wraps a concrete particle handle.
func SomePID(p PID) OptionalPID { return OptionalPID{pid: p, ok: true} }

// Get returns the wrapped PID and whether one is present.
func (o OptionalPID) Get() (PID, bool) { return o.pid, o.ok }

// grid is the shared machinery every Structure variant builds on: a regular
// partition of the simulation box into cells, with particle membership kept
// as an intrusive doubly-linked list threaded through side arrays (next/prev
// indexed by PID), never stored on the particle itself, so the core's
// particle representation stays agnostic to which neighbour variant is in
// use.
type grid struct {
	positions PositionSource
	predictor CellExitPredictor
	observer  Observer

	overlink int
	oversize float64

	boxSize [3]float64
	origin  [3]float64
	count   [3]int
	dim     [3]float64

	n          int
	cellOf     []int
	cellHead   []OptionalPID
	next, prev []OptionalPID
	locals     map[int][]ObjectId
}

func newGrid(positions PositionSource, predictor CellExitPredictor, observer Observer) grid {
	if observer == nil {
		observer = NopObserver{}
	}
	return grid{positions: positions, predictor: predictor, observer: observer}
}

// reset sizes the grid so every axis has cells no smaller than
// oversize*longestInteraction, always at least 2*overlink+1 cells wide so the
// stencil a cell walks never wraps onto itself through periodicity. An axis
// too short for that many full-size cells still gets 2*overlink+1 cells,
// each narrower than oversize*longestInteraction; no error is reported.
func (g *grid) reset(n int, boxSize [3]float64, longestInteraction float64, overlink int, oversize float64) {
	g.n = n
	g.overlink = overlink
	g.oversize = oversize
	g.boxSize = boxSize
	g.locals = make(map[int][]ObjectId)

	minWidth := longestInteraction * oversize
	if minWidth <= 0 {
		minWidth = 1
	}
	for axis := 0; axis < 3; axis++ {
		g.origin[axis] = -boxSize[axis] / 2
		nc := int(math.Floor(boxSize[axis] / minWidth))
		if nc < 2*overlink+1 {
			nc = 2*overlink + 1
		}
		g.count[axis] = nc
		g.dim[axis] = boxSize[axis] / float64(nc)
	}

	total := g.count[0] * g.count[1] * g.count[2]
	g.cellHead = make([]OptionalPID, total)
	g.cellOf = make([]int, n)
	g.next = make([]OptionalPID, n)
	g.prev = make([]OptionalPID, n)
	for i := range g.cellOf {
		g.cellOf[i] = -1
	}
}

func (g *grid) coordsOf(pos [3]float64) [3]int {
	var c [3]int
	for axis := 0; axis < 3; axis++ {
		idx := int(math.Floor((pos[axis] - g.origin[axis]) / g.dim[axis]))
		idx = ((idx % g.count[axis]) + g.count[axis]) % g.count[axis]
		c[axis] = idx
	}
	return c
}

func (g *grid) flat(c [3]int) int {
	return (c[2]*g.count[1]+c[1])*g.count[0] + c[0]
}

func (g *grid) cellOrigin(c [3]int) [3]float64 {
	return [3]float64{
		g.origin[0] + float64(c[0])*g.dim[0],
		g.origin[1] + float64(c[1])*g.dim[1],
		g.origin[2] + float64(c[2])*g.dim[2],
	}
}

// place binds p into the cell its current position falls in, firing
// NewNeighbour/NewLocal for every resident already there.
func (g *grid) place(p PID) {
	coords := g.coordsOf(g.positions.Position(p))
	idx := g.flat(coords)
	g.link(idx, p)
	g.announceArrival(idx, p)
}

// remove unlinks p from whatever cell it currently occupies, without
// touching g.cellOf[p] - callers that are about to re-place p should do that
// themselves once the new index is known.
func (g *grid) remove(p PID) {
	idx := g.cellOf[p]
	if idx < 0 {
		return
	}
	if n, ok := g.next[p].Get(); ok {
		g.prev[n] = g.prev[p]
	}
	if pr, ok := g.prev[p].Get(); ok {
		g.next[pr] = g.next[p]
	} else if h, ok := g.cellHead[idx].Get(); ok && h == p {
		g.cellHead[idx] = g.next[p]
	}
	g.next[p] = NonePID()
	g.prev[p] = NonePID()
}

func (g *grid) link(idx int, p PID) {
	head := g.cellHead[idx]
	g.prev[p] = NonePID()
	g.next[p] = head
	if h, ok := head.Get(); ok {
		g.prev[h] = SomePID(p)
	}
	g.cellHead[idx] = SomePID(p)
	g.cellOf[p] = idx
}

func (g *grid) announceArrival(idx int, p PID) {
	for q := g.cellHead[idx]; ; {
		qp, ok := q.Get()
		if !ok {
			break
		}
		if qp != p {
			g.observer.NewNeighbour(p, qp)
		}
		q = g.next[qp]
	}
	for _, l := range g.locals[idx] {
		g.observer.NewLocal(p, l)
	}
}

// AddLocal registers a fixed (non-particle) object as resident in whichever
// cell currently contains pos. Locals never move once placed.
func (g *grid) AddLocal(pos [3]float64, l ObjectId) {
	idx := g.flat(g.coordsOf(pos))
	g.locals[idx] = append(g.locals[idx], l)
}

// forEachInCube calls f for every particle in the (2*overlink+1)^3 cube of
// cells centred on p's own cell, except p itself.
func (g *grid) forEachInCube(p PID, f func(q PID)) {
	centre := g.coordsOf(g.positions.Position(p))
	var c [3]int
	ov := g.overlink
	for dz := -ov; dz <= ov; dz++ {
		c[2] = ((centre[2]+dz)%g.count[2] + g.count[2]) % g.count[2]
		for dy := -ov; dy <= ov; dy++ {
			c[1] = ((centre[1]+dy)%g.count[1] + g.count[1]) % g.count[1]
			for dx := -ov; dx <= ov; dx++ {
				c[0] = ((centre[0]+dx)%g.count[0] + g.count[0]) % g.count[0]
				idx := g.flat(c)
				for q := g.cellHead[idx]; ; {
					qp, ok := q.Get()
					if !ok {
						break
					}
					if qp != p {
						f(qp)
					}
					q = g.next[qp]
				}
			}
		}
	}
}

func (g *grid) localsInCell(p PID, f func(l ObjectId)) {
	idx := g.cellOf[p]
	for _, l := range g.locals[idx] {
		f(l)
	}
}

func (g *grid) cellOfParticle(p PID) int {
	return g.cellOf[p]
}
