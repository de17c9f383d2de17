package neighbour

import "math"

// MortonGrid is the same cell partition as PlainGrid, but cells are addressed
// by interleaving their (x, y, z) coordinates into a single Morton code
// (dilated.go) instead of a row-major index, so that spatially adjacent
// cells tend to land near each other in the backing slice. Each axis is
// padded to a shared power-of-two cell count so dilate3 can be applied
// independently per axis without codes from different axes colliding.
type MortonGrid struct {
	grid
	axisCap int // power-of-two cell count shared by all three axes
}

var _ Structure = (*MortonGrid)(nil)

func NewMortonGrid(positions PositionSource, predictor CellExitPredictor, observer Observer) *MortonGrid {
	return &MortonGrid{grid: newGrid(positions, predictor, observer)}
}

func (g *MortonGrid) Init(n int, boxSize [3]float64, longestInteraction float64) error {
	return g.InitTuned(n, boxSize, longestInteraction, 1, 1.0)
}

func (g *MortonGrid) InitTuned(n int, boxSize [3]float64, longestInteraction float64, overlink int, oversize float64) error {
	g.reset(n, boxSize, longestInteraction, overlink, oversize)

	cap := g.count[0]
	for _, c := range g.count[1:] {
		if c > cap {
			cap = c
		}
	}
	g.axisCap = nextPow2(cap)

	total := mortonIndex(g.axisCap-1, g.axisCap-1, g.axisCap-1) + 1
	g.cellHead = make([]OptionalPID, total)

	for p := 0; p < n; p++ {
		g.placeMorton(PID(p))
	}
	g.observer.Reinitialised()
	return nil
}

func (g *MortonGrid) Reinitialise(longestInteraction float64) error {
	return g.InitTuned(g.n, g.boxSize, longestInteraction, g.overlink, g.oversize)
}

func (g *MortonGrid) placeMorton(p PID) {
	c := g.coordsOf(g.positions.Position(p))
	idx := mortonIndex(c[0], c[1], c[2])
	g.link(idx, p)
	g.announceArrival(idx, p)
}

func mortonIndex(x, y, z int) int {
	return int(mortonEncode(x, y, z))
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return int(math.Pow(2, math.Ceil(math.Log2(float64(n)))))
}

func (g *MortonGrid) AssignCellEvents(p PID) CellEvent {
	x, y, z := mortonDecode(DilatedInteger(g.cellOf[p]))
	coords := [3]int{x, y, z}
	origin := g.cellOrigin(coords)
	dt, face := g.predictor.PredictCellExit(PID(p), origin, g.dim)
	return CellEvent{Time: dt, Face: face}
}

func (g *MortonGrid) OnCellCrossing(p PID, face int) int {
	old := g.cellOf[p]
	x, y, z := mortonDecode(DilatedInteger(old))
	c := [3]int{x, y, z}
	axis := face % 3
	if face < 3 {
		c[axis] = ((c[axis]-1)%g.count[axis] + g.count[axis]) % g.count[axis]
	} else {
		c[axis] = (c[axis] + 1) % g.count[axis]
	}
	g.remove(p)
	idx := mortonIndex(c[0], c[1], c[2])
	g.link(idx, p)
	g.announceArrival(idx, p)
	g.observer.CellChanged(p, old)
	return idx
}

func (g *MortonGrid) Neighbours(p PID, f func(q PID)) {
	centre := g.coordsOf(g.positions.Position(p))
	var c [3]int
	ov := g.overlink
	for dz := -ov; dz <= ov; dz++ {
		c[2] = ((centre[2]+dz)%g.count[2] + g.count[2]) % g.count[2]
		for dy := -ov; dy <= ov; dy++ {
			c[1] = ((centre[1]+dy)%g.count[1] + g.count[1]) % g.count[1]
			for dx := -ov; dx <= ov; dx++ {
				c[0] = ((centre[0]+dx)%g.count[0] + g.count[0]) % g.count[0]
				idx := mortonIndex(c[0], c[1], c[2])
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

func (g *MortonGrid) Locals(p PID, f func(l ObjectId)) {
	g.localsInCell(p, f)
}

// AddLocal overrides grid.AddLocal: locals must be keyed by the same Morton
// index cellOf uses, not the row-major index the embedded grid computes.
func (g *MortonGrid) AddLocal(pos [3]float64, l ObjectId) {
	c := g.coordsOf(pos)
	idx := mortonIndex(c[0], c[1], c[2])
	g.locals[idx] = append(g.locals[idx], l)
}

func (g *MortonGrid) CellOf(p PID) int {
	return g.cellOfParticle(p)
}
