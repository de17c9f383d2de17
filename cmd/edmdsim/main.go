// Command edmdsim runs a small elastic hard-sphere gas through the core
// event-driven scheduler and prints periodic progress: a flag-configured
// demo loop with an atexit-flushed summary at the end.
package main

import (
	"flag"
	"math"
	"math/rand"
	"os"

	"github.com/tebeka/atexit"

	"github.com/dynamocore/edmd"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML/TOML/JSON config file (optional)")
		n          = flag.Int("n", 200, "number of particles")
		box        = flag.Float64("box", 40, "cubic box edge length")
		diameter   = flag.Float64("diameter", 1.0, "hard-sphere diameter")
		seed       = flag.Int64("seed", 1, "random seed for the initial configuration")
	)
	flag.Parse()

	cfg := edmd.DefaultConfig()
	if *configPath != "" {
		loaded, err := edmd.LoadConfig(*configPath)
		if err != nil {
			os.Stderr.WriteString(err.Error() + "\n")
			os.Exit(1)
		}
		cfg = loaded
	}

	logger := edmd.NewDefaultLogger("edmdsim", cfg.Logging.Debug)

	gas := newHardSphereGas(*n, *box, *diameter, *seed)
	observer := &statsObserver{logger: logger}

	sched := edmd.NewScheduler(cfg, gas, gas, observer, logger)
	atexit.Register(func() {
		logger.Infof("final: events=%d t=%.4f stale=%d collisions=%d",
			sched.EventCount(), sched.SimTime(), sched.StaleRejections(), observer.collisions)
	})

	boxSize := [3]float64{*box, *box, *box}
	if err := sched.Initialise(boxSize); err != nil {
		logger.Errorf("initialise: %v", err)
		atexit.Exit(1)
	}

	if err := sched.Run(cfg.Simulation.MaxEvents); err != nil {
		logger.Errorf("run: %v", err)
		atexit.Exit(1)
	}
	if err := sched.Err(); err != nil {
		logger.Errorf("scheduler fault: %v", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// statsObserver is the demo's ObserverBus: it counts real collisions and
// logs nothing per-event (that would drown stdout at realistic event
// counts), leaving periodic progress to the scheduler's own PrintInterval.
type statsObserver struct {
	logger      edmd.Logger
	collisions  uint64
}

func (o *statsObserver) EventUpdate(event edmd.PED, outcome edmd.Outcome, dt float64) {
	if event.Type == edmd.PairInteraction {
		o.collisions++
	}
}
func (o *statsObserver) ParticleUpdate(edmd.PID) {}
func (o *statsObserver) Reinitialised()          { o.logger.Debugf("neighbour structure reinitialised") }

// hardSphereGas is a minimal Dynamics + ParticleStore: N identical hard
// spheres in a cubic box, straight-line free flight between elastic,
// equal-mass, momentum-and-energy-conserving collisions. It does not apply
// a minimum-image convention to pair separations - good enough for a demo
// whose box is always larger than a handful of interaction ranges, not
// intended as a production-grade periodic solver.
type hardSphereGas struct {
	pos, vel []([3]float64)
	counter  []uint64
	diameter float64
	boxSize  float64
}

func newHardSphereGas(n int, boxSize, diameter float64, seed int64) *hardSphereGas {
	rng := rand.New(rand.NewSource(seed))
	g := &hardSphereGas{
		pos:      make([][3]float64, n),
		vel:      make([][3]float64, n),
		counter:  make([]uint64, n),
		diameter: diameter,
		boxSize:  boxSize,
	}
	for i := range g.pos {
		for axis := 0; axis < 3; axis++ {
			g.pos[i][axis] = (rng.Float64() - 0.5) * boxSize
			g.vel[i][axis] = rng.NormFloat64()
		}
	}
	return g
}

func (g *hardSphereGas) Count() int                         { return len(g.pos) }
func (g *hardSphereGas) Position(p edmd.PID) [3]float64     { return g.pos[p] }
func (g *hardSphereGas) Velocity(p edmd.PID) [3]float64     { return g.vel[p] }
func (g *hardSphereGas) Counter(p edmd.PID) uint64          { return g.counter[p] }
func (g *hardSphereGas) BumpCounter(p edmd.PID) uint64 {
	g.counter[p]++
	return g.counter[p]
}

func (g *hardSphereGas) PredictPair(p, q edmd.PID) edmd.PED {
	var r, v [3]float64
	for axis := 0; axis < 3; axis++ {
		r[axis] = g.pos[q][axis] - g.pos[p][axis]
		v[axis] = g.vel[q][axis] - g.vel[p][axis]
	}
	b := dot(r, v)
	if b >= 0 {
		return edmd.NonePED()
	}
	a := dot(v, v)
	if a == 0 {
		return edmd.NonePED()
	}
	c := dot(r, r) - g.diameter*g.diameter
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

func (g *hardSphereGas) PredictCellExit(p edmd.PID, cellOrigin, cellExtent [3]float64) (float64, int) {
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

func (g *hardSphereGas) PredictLocal(edmd.PID, edmd.ObjectId) edmd.PED { return edmd.NonePED() }

func (g *hardSphereGas) ExecutePair(p, q edmd.PID, kind edmd.EventKind) edmd.Outcome {
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
	vn := dot(relVel, n)

	for axis := 0; axis < 3; axis++ {
		g.vel[p][axis] += vn * n[axis]
		g.vel[q][axis] -= vn * n[axis]
	}
	return edmd.Outcome{Note: "hard-sphere elastic collision"}
}

func (g *hardSphereGas) ExecuteLocal(edmd.PID, edmd.ObjectId) edmd.Outcome { return edmd.Outcome{} }
func (g *hardSphereGas) ExecuteGlobal(edmd.ObjectId) edmd.Outcome         { return edmd.Outcome{} }
func (g *hardSphereGas) ExecuteSystem(edmd.ObjectId, float64) edmd.Outcome {
	return edmd.Outcome{}
}

func (g *hardSphereGas) Stream(p edmd.PID, dt float64) {
	for axis := 0; axis < 3; axis++ {
		g.pos[p][axis] += g.vel[p][axis] * dt
	}
}

func (g *hardSphereGas) LongestInteractionDistance() float64 { return g.diameter }

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}
