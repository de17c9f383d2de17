package neighbour

// PlainGrid is the straightforward cubic cell list: cells indexed directly
// by (ix, iy, iz), the default variant. Grounded on a spatial hash grid's
// bucketing-by-floored-cell-coordinate, 27-cell neighbour query, but
// reworked onto the intrusive doubly-linked
// membership lists the event core needs instead of a hash map of slices,
// and onto genuine PredictCellExit timings instead of AABB overlap queries.
type PlainGrid struct {
	grid
}

var _ Structure = (*PlainGrid)(nil)

// NewPlainGrid returns an uninitialised plain grid; call Init before use.
func NewPlainGrid(positions PositionSource, predictor CellExitPredictor, observer Observer) *PlainGrid {
	return &PlainGrid{grid: newGrid(positions, predictor, observer)}
}

func (g *PlainGrid) Init(n int, boxSize [3]float64, longestInteraction float64) error {
	return g.InitTuned(n, boxSize, longestInteraction, 1, 1.0)
}

// InitTuned is Init with explicit overlink/oversize tuning knobs.
func (g *PlainGrid) InitTuned(n int, boxSize [3]float64, longestInteraction float64, overlink int, oversize float64) error {
	g.reset(n, boxSize, longestInteraction, overlink, oversize)
	for p := 0; p < n; p++ {
		g.place(PID(p))
	}
	g.observer.Reinitialised()
	return nil
}

func (g *PlainGrid) Reinitialise(longestInteraction float64) error {
	n := g.n
	boxSize := g.boxSize
	overlink := g.overlink
	oversize := g.oversize
	return g.InitTuned(n, boxSize, longestInteraction, overlink, oversize)
}

// AssignCellEvents predicts the exit from the cell the grid holds p in, not
// from a re-binning of p's position: right after a crossing p sits exactly
// on the face it just crossed.
func (g *PlainGrid) AssignCellEvents(p PID) CellEvent {
	coords := unflat(g.cellOf[p], g.count)
	origin := g.cellOrigin(coords)
	dt, face := g.predictor.PredictCellExit(PID(p), origin, g.dim)
	return CellEvent{Time: dt, Face: face}
}

func (g *PlainGrid) OnCellCrossing(p PID, face int) int {
	old := g.cellOf[p]
	c := unflat(old, g.count)
	axis := face % 3
	if face < 3 {
		c[axis] = ((c[axis]-1)%g.count[axis] + g.count[axis]) % g.count[axis]
	} else {
		c[axis] = (c[axis] + 1) % g.count[axis]
	}
	g.remove(p)
	idx := g.flat(c)
	g.link(idx, p)
	g.announceArrival(idx, p)
	g.observer.CellChanged(p, old)
	return idx
}

func (g *PlainGrid) Neighbours(p PID, f func(q PID)) {
	g.forEachInCube(p, f)
}

func (g *PlainGrid) Locals(p PID, f func(l ObjectId)) {
	g.localsInCell(p, f)
}

func (g *PlainGrid) CellOf(p PID) int {
	return g.cellOfParticle(p)
}

func unflat(idx int, count [3]int) [3]int {
	x := idx % count[0]
	rest := idx / count[0]
	y := rest % count[1]
	z := rest / count[1]
	return [3]int{x, y, z}
}
