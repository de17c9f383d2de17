package neighbour

import "math"

// ShearingGrid is the Lees-Edwards sliding-brick variant: identical cell
// partition to PlainGrid, but the boundary normal to Axis
// (conventionally y) is a sliding boundary - the image cell on the far side
// is offset along Flow (conventionally x) by however far the top and bottom
// bricks have slid relative to each other. Grounded in the same stencil walk
// as PlainGrid.Neighbours, with the per-row x-shift folded in wherever the
// stencil crosses the shearing boundary.
//
// The grid only ever answers "which cell", never "what velocity correction
// applies" - the velocity jump a particle picks up crossing the sliding
// boundary is Dynamics' concern (it sees the crossing via OnCellCrossing's
// face and can apply SLLOD/Lees-Edwards image-velocity correction itself).
type ShearingGrid struct {
	PlainGrid

	Axis   int // boundary-normal axis (shear gradient direction), default 1 (y)
	Flow   int // sliding axis, default 0 (x)
	strain float64
}

var _ Structure = (*ShearingGrid)(nil)

func NewShearingGrid(positions PositionSource, predictor CellExitPredictor, observer Observer) *ShearingGrid {
	return &ShearingGrid{
		PlainGrid: *NewPlainGrid(positions, predictor, observer),
		Axis:      1,
		Flow:      0,
	}
}

// AdvanceStrain accumulates the relative displacement between the top and
// bottom bricks, wrapping back into [0, boxSize[Flow]) so the cell shift it
// implies never grows unbounded.
func (g *ShearingGrid) AdvanceStrain(delta float64) {
	g.strain += delta
	width := g.boxSize[g.Flow]
	g.strain = math.Mod(g.strain, width)
	if g.strain < 0 {
		g.strain += width
	}
}

// cellShift returns how many whole cells the sliding boundary has displaced
// the image cell by, along Flow.
func (g *ShearingGrid) cellShift() int {
	return int(math.Floor(g.strain / g.dim[g.Flow]))
}

func (g *ShearingGrid) OnCellCrossing(p PID, face int) int {
	old := g.cellOf[p]
	c := unflat(old, g.count)
	axis := face % 3
	if axis == g.Axis {
		shift := g.cellShift()
		if face < 3 {
			c[axis] = ((c[axis]-1)%g.count[axis] + g.count[axis]) % g.count[axis]
			if c[axis] == g.count[axis]-1 {
				c[g.Flow] = ((c[g.Flow]+shift)%g.count[g.Flow] + g.count[g.Flow]) % g.count[g.Flow]
			}
		} else {
			c[axis] = (c[axis] + 1) % g.count[axis]
			if c[axis] == 0 {
				c[g.Flow] = ((c[g.Flow]-shift)%g.count[g.Flow] + g.count[g.Flow]) % g.count[g.Flow]
			}
		}
	} else if face < 3 {
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

// Neighbours walks the same (2*overlink+1)^3 stencil as PlainGrid, except
// every row that straddles the shearing boundary (Axis wraps past the top
// or bottom of the box) has its Flow coordinate shifted by cellShift() - the
// sliding-brick picture of Lees-Edwards boundaries.
func (g *ShearingGrid) Neighbours(p PID, f func(q PID)) {
	centre := g.coordsOf(g.positions.Position(p))
	shift := g.cellShift()
	var c [3]int
	ov := g.overlink
	for dz := -ov; dz <= ov; dz++ {
		for dy := -ov; dy <= ov; dy++ {
			raw := centre[g.Axis] + dy
			wrapped := ((raw % g.count[g.Axis]) + g.count[g.Axis]) % g.count[g.Axis]
			rowShift := 0
			if raw < 0 {
				rowShift = shift
			} else if raw >= g.count[g.Axis] {
				rowShift = -shift
			}
			for dx := -ov; dx <= ov; dx++ {
				for axis := 0; axis < 3; axis++ {
					switch axis {
					case g.Axis:
						c[axis] = wrapped
					case 2:
						if g.Axis != 2 {
							c[axis] = ((centre[2]+dz)%g.count[2] + g.count[2]) % g.count[2]
						}
					}
				}
				flowRaw := centre[g.Flow] + dx + rowShift
				c[g.Flow] = ((flowRaw % g.count[g.Flow]) + g.count[g.Flow]) % g.count[g.Flow]
				if g.Axis != 2 && g.Flow != 2 {
					c[2] = ((centre[2]+dz)%g.count[2] + g.count[2]) % g.count[2]
				}
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
