package edmd_test

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dynamocore/edmd"
	"github.com/dynamocore/edmd/neighbour"
)

// gasFixture is a small N-sphere elastic gas built only on edmd's exported
// surface, used to drive the scheduler end to end from outside the package
// the way a real Dynamics/ParticleStore collaborator would.
type gasFixture struct {
	pos, vel []([3]float64)
	counter  []uint64
	diameter float64
}

func newGasFixture(n int, boxSize, diameter float64, seed int64) *gasFixture {
	rng := rand.New(rand.NewSource(seed))
	g := &gasFixture{
		pos:      make([][3]float64, n),
		vel:      make([][3]float64, n),
		counter:  make([]uint64, n),
		diameter: diameter,
	}
	for i := range g.pos {
		for axis := 0; axis < 3; axis++ {
			g.pos[i][axis] = (rng.Float64() - 0.5) * boxSize
			g.vel[i][axis] = rng.NormFloat64()
		}
	}
	return g
}

func (g *gasFixture) Count() int                      { return len(g.pos) }
func (g *gasFixture) Position(p edmd.PID) [3]float64  { return g.pos[p] }
func (g *gasFixture) Velocity(p edmd.PID) [3]float64  { return g.vel[p] }
func (g *gasFixture) Counter(p edmd.PID) uint64       { return g.counter[p] }
func (g *gasFixture) BumpCounter(p edmd.PID) uint64 {
	g.counter[p]++
	return g.counter[p]
}

func (g *gasFixture) PredictPair(p, q edmd.PID) edmd.PED {
	var r, v [3]float64
	for axis := 0; axis < 3; axis++ {
		r[axis] = g.pos[q][axis] - g.pos[p][axis]
		v[axis] = g.vel[q][axis] - g.vel[p][axis]
	}
	b := r[0]*v[0] + r[1]*v[1] + r[2]*v[2]
	if b >= 0 {
		return edmd.NonePED()
	}
	a := v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
	if a == 0 {
		return edmd.NonePED()
	}
	c := r[0]*r[0] + r[1]*r[1] + r[2]*r[2] - g.diameter*g.diameter
	disc := b*b - a*c
	if disc < 0 {
		return edmd.NonePED()
	}
	t := -(b + math.Sqrt(disc)) / a
	if t < 0 {
		return edmd.NonePED()
	}
	return edmd.PED{Time: t, Type: edmd.PairInteraction}
}

func (g *gasFixture) PredictCellExit(p edmd.PID, cellOrigin, cellExtent [3]float64) (float64, int) {
	best := math.Inf(1)
	face := 0
	for axis := 0; axis < 3; axis++ {
		v := g.vel[p][axis]
		if v == 0 {
			continue
		}
		var dt float64
		var f int
		if v < 0 {
			dt = (cellOrigin[axis] - g.pos[p][axis]) / v
			f = axis
		} else {
			dt = (cellOrigin[axis] + cellExtent[axis] - g.pos[p][axis]) / v
			f = axis + 3
		}
		if dt >= 0 && dt < best {
			best = dt
			face = f
		}
	}
	return best, face
}

func (g *gasFixture) PredictLocal(edmd.PID, edmd.ObjectId) edmd.PED { return edmd.NonePED() }

func (g *gasFixture) ExecutePair(p, q edmd.PID, kind edmd.EventKind) edmd.Outcome {
	var n [3]float64
	var dist2 float64
	for axis := 0; axis < 3; axis++ {
		n[axis] = g.pos[q][axis] - g.pos[p][axis]
		dist2 += n[axis] * n[axis]
	}
	dist := math.Sqrt(dist2)
	if dist == 0 {
		dist = g.diameter
	}
	for axis := range n {
		n[axis] /= dist
	}
	var relVel [3]float64
	for axis := 0; axis < 3; axis++ {
		relVel[axis] = g.vel[q][axis] - g.vel[p][axis]
	}
	vn := relVel[0]*n[0] + relVel[1]*n[1] + relVel[2]*n[2]
	for axis := 0; axis < 3; axis++ {
		g.vel[p][axis] += vn * n[axis]
		g.vel[q][axis] -= vn * n[axis]
	}
	return edmd.Outcome{}
}

func (g *gasFixture) ExecuteLocal(edmd.PID, edmd.ObjectId) edmd.Outcome        { return edmd.Outcome{} }
func (g *gasFixture) ExecuteGlobal(edmd.ObjectId) edmd.Outcome                 { return edmd.Outcome{} }
func (g *gasFixture) ExecuteSystem(edmd.ObjectId, float64) edmd.Outcome        { return edmd.Outcome{} }

func (g *gasFixture) Stream(p edmd.PID, dt float64) {
	for axis := 0; axis < 3; axis++ {
		g.pos[p][axis] += g.vel[p][axis] * dt
	}
}

func (g *gasFixture) LongestInteractionDistance() float64 { return g.diameter }

var _ = Describe("Scheduler", func() {
	It("never reports a decreasing simulation time across consecutive events", func() {
		gas := newGasFixture(40, 30, 1.0, 7)
		cfg := edmd.DefaultConfig()
		sched := edmd.NewScheduler(cfg, gas, gas, nil, nil)
		Expect(sched.Initialise([3]float64{30, 30, 30})).To(Succeed())

		last := 0.0
		for i := 0; i < 200 && sched.RunNext(); i++ {
			Expect(sched.Err()).NotTo(HaveOccurred())
			Expect(sched.SimTime()).To(BeNumerically(">=", last))
			last = sched.SimTime()
		}
	})

	It("conserves total kinetic energy across elastic collisions", func() {
		gas := newGasFixture(20, 25, 1.0, 11)
		energyOf := func() float64 {
			var e float64
			for _, v := range gas.vel {
				e += v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
			}
			return e
		}

		before := energyOf()
		cfg := edmd.DefaultConfig()
		sched := edmd.NewScheduler(cfg, gas, gas, nil, nil)
		Expect(sched.Initialise([3]float64{25, 25, 25})).To(Succeed())
		for i := 0; i < 100 && sched.RunNext(); i++ {
		}
		after := energyOf()

		Expect(after).To(BeNumerically("~", before, 1e-6))
	})
})

var _ = Describe("DelayedState", func() {
	It("reports zero delay for every particle immediately after UpdateAll", func() {
		d := edmd.NewDelayedState(5, func(edmd.PID, float64) {})
		d.Stream(3.5)
		d.Stream(1.2)
		d.UpdateAll()

		for p := 0; p < 5; p++ {
			Expect(d.DelayOf(edmd.PID(p))).To(BeZero())
		}
	})
})

var _ = Describe("Sorter implementations", func() {
	It("agree on event order for the same pushes (CBT vs BPQ)", func() {
		pushes := []edmd.PED{
			{Time: 3, Partner: 0},
			{Time: 1, Partner: 1},
			{Time: 4, Partner: 2},
			{Time: 1.5, Partner: 3},
			{Time: 9, Partner: 4},
		}

		cbt := edmd.NewCBTSorter()
		cbt.Resize(len(pushes))
		for i, ped := range pushes {
			cbt.Push(ped, edmd.PID(i))
		}
		cbt.Init()

		bpq := edmd.NewBPQSorter(0, nil)
		bpq.Resize(len(pushes))
		for i, ped := range pushes {
			bpq.Push(ped, edmd.PID(i))
		}
		bpq.Init()

		var cbtOrder, bpqOrder []edmd.PID
		for !cbt.Empty() {
			cbtOrder = append(cbtOrder, cbt.NextID())
			cbt.PopNext()
		}
		for !bpq.Empty() {
			bpqOrder = append(bpqOrder, bpq.NextID())
			bpq.PopNext()
		}

		Expect(bpqOrder).To(Equal(cbtOrder))
	})
})

var _ = Describe("Event invalidation under a BoundedPQ scheduler", func() {
	It("keeps the stale-rejection rate within a healthy band, never zero and never dominant", func() {
		gas := newGasFixture(150, 20, 1.0, 23)
		cfg := edmd.DefaultConfig()
		cfg.Scheduler.Kind = edmd.SchedulerBoundedPQ
		sched := edmd.NewScheduler(cfg, gas, gas, nil, nil)
		Expect(sched.Initialise([3]float64{20, 20, 20})).To(Succeed())

		for i := 0; i < 3000 && sched.RunNext(); i++ {
		}
		Expect(sched.Err()).NotTo(HaveOccurred())

		total := sched.EventCount()
		Expect(total).To(BeNumerically(">", 0))

		rejectionRate := float64(sched.StaleRejections()) / float64(total)
		// A dense, colliding gas must produce some stale rejections - that
		// is the entire point of the counter-stamp protocol invalidating
		// in-flight predictions after a real collision - but they must not
		// dominate dispatch, or every CellBoundary/LocalObject touch would
		// be thrashing rather than landing.
		Expect(rejectionRate).To(BeNumerically(">", 0))
		Expect(rejectionRate).To(BeNumerically("<", 0.6))
	})

	It("keeps the BPQ overflow-exception rate low when pushed times track the advancing window", func() {
		const n = 400
		rng := rand.New(rand.NewSource(99))

		s := edmd.NewBPQSorter(64, nil)
		s.Resize(n)
		for i := 0; i < n; i++ {
			s.Push(edmd.PED{Time: rng.Float64() * 20}, edmd.PID(i))
		}
		s.Init()

		var pushes int
		for i := 0; i < 5000 && !s.Empty(); i++ {
			dt := s.NextTime()
			id := s.NextID()
			s.Stream(dt)
			s.PopNext()
			pushes++

			// A realistic caller re-predicts a near-future event for the
			// particle it just consumed, not an arbitrary absolute time -
			// this is what keeps most pushes inside the sorter's moving
			// window.
			s.Push(edmd.PED{Time: rng.Float64() * 5}, id)
			s.Update(id)
		}

		Expect(float64(s.ExceptionCount())).To(BeNumerically("<", 0.1*float64(pushes)))
	})
})

var _ = Describe("Shearing boundary neighbour sets", func() {
	It("matches an independently computed neighbour set across the sliding boundary after a crossing", func() {
		positions := sheetPositions{}
		obs := &countingObserver{}
		g := neighbour.NewShearingGrid(positions, fixedExitPredictor{}, obs)
		Expect(g.Init(4, [3]float64{10, 10, 10}, 1.0)).To(Succeed())

		// Box spans [-5, 5) per axis with cell width 1 (origin is always
		// box-centred), so cell index c maps to position origin+c+0.5.
		const strain = 2.3 // AdvanceStrain accumulates this each step; floor(strain) == 2 cells
		g.AdvanceStrain(strain)

		// Particle 0 starts in cell (5, 9, 5), about to cross the y+ face
		// and wrap to y=0, where the sliding boundary shifts its Flow (x)
		// cell by -shift.
		positions[0] = [3]float64{0.5, 4.5, 0.5}
		Expect(g.Reinitialise(1.0)).To(Succeed()) // re-bin at the new position; keeps the strain

		// After the crossing, particle 0 lands in cell (3, 0, 5): x shifts
		// from 5 to 5-shift=3 because the wrap landed exactly on the
		// sliding face.
		idx := g.OnCellCrossing(0, 4) // face 4 == +y, Axis == 1
		positions[0] = [3]float64{-1.5, -4.5, 0.5}
		Expect(idx).To(Equal(g.CellOf(0)))

		// Same-cell neighbour: cell (3, 0, 5), no shear math involved - a
		// basic sanity check that crossing didn't break ordinary
		// same-cell lookup.
		positions[1] = [3]float64{-1.4, -4.4, 0.6}

		// Across-boundary neighbour: cell (5, 9, 5), the cell particle 0
		// just left, in the row straddling the sheared face (y=9, dy=-1
		// from p's new cell y=0), at the Flow-shifted x range the sliding
		// boundary exposes: x in centre_x(3) + dx(-1..1) + rowShift(+shift=+2)
		// == {4,5,6}.
		positions[2] = [3]float64{0.6, 4.6, 0.5}

		// Trap: cell (3, 9, 5) - same row (y=9) but at the *unshifted* x
		// index (3, outside {4,5,6}) - only visible if the implementation
		// forgot to apply the shear row-shift across the boundary.
		positions[3] = [3]float64{-1.5, 4.5, 0.5}
		Expect(g.Reinitialise(1.0)).To(Succeed()) // bin particles 0-3 where they now are

		var seen []neighbour.PID
		g.Neighbours(0, func(q neighbour.PID) { seen = append(seen, q) })

		Expect(seen).To(ContainElement(neighbour.PID(1)))
		Expect(seen).To(ContainElement(neighbour.PID(2)))
		Expect(seen).NotTo(ContainElement(neighbour.PID(3)))
	})
})

type sheetPositions map[neighbour.PID][3]float64

func (s sheetPositions) Position(p neighbour.PID) [3]float64 { return s[p] }

type fixedExitPredictor struct{}

func (fixedExitPredictor) PredictCellExit(neighbour.PID, [3]float64, [3]float64) (float64, int) {
	return math.Inf(1), 0
}

type countingObserver struct{}

func (*countingObserver) NewNeighbour(neighbour.PID, neighbour.PID)  {}
func (*countingObserver) NewLocal(neighbour.PID, neighbour.ObjectId) {}
func (*countingObserver) CellChanged(neighbour.PID, int)             {}
func (*countingObserver) Reinitialised()                             {}
