package edmd

import "github.com/dynamocore/edmd/neighbour"

// neighbourAdapter satisfies neighbour.PositionSource and
// neighbour.CellExitPredictor on top of the core's own ParticleStore and
// Dynamics collaborators, so the neighbour package never has to import edmd.
// The capability-interface split applies at the package boundary too, not
// just within a single type.
type neighbourAdapter struct {
	store    ParticleStore
	dynamics Dynamics
	delay    *DelayedState
}

func (a *neighbourAdapter) Position(p neighbour.PID) [3]float64 {
	a.delay.Update(PID(p))
	return a.store.Position(PID(p))
}

func (a *neighbourAdapter) PredictCellExit(p neighbour.PID, origin, extent [3]float64) (float64, int) {
	return a.dynamics.PredictCellExit(PID(p), origin, extent)
}

// observerAdapter forwards neighbour.Observer signals into the core. Unlike
// ObserverBus (a pure signal sink for already-consumed events),
// NewNeighbour/NewLocal carry real scheduling work: a cell crossing that
// brings p and q into view of each other for the first time means each of
// their independent PELs needs a fresh prediction about the other, and the
// only cheap way to get one is right here, incrementally, rather than
// re-deriving p's whole stencil from scratch.
type observerAdapter struct {
	bus       ObserverBus
	scheduler *Scheduler
}

// NewNeighbour fires once, directionally, for (p, q) when q becomes visible
// in p's stencil. Both sides keep independent predictions about each other
// (see FullUpdatePair), so this pushes one incremental PairInteraction
// candidate for p against q and a second for q against p - neither touches
// the other's existing PEL contents or collision counter.
func (a observerAdapter) NewNeighbour(p, q neighbour.PID) {
	a.scheduler.pushPairPrediction(PID(p), PID(q))
	a.scheduler.pushPairPrediction(PID(q), PID(p))
}

// NewLocal fires when p enters a cell holding fixed local object l; locals
// never move, so only p's side needs a fresh prediction.
func (a observerAdapter) NewLocal(p neighbour.PID, l neighbour.ObjectId) {
	a.scheduler.pushLocalPrediction(PID(p), ObjectId(l))
}

// CellChanged has no corresponding ObserverBus signal - the core doesn't
// need a per-crossing structural notification, only the full-rebuild one.
// Left as a no-op rather than widening ObserverBus for a signal nothing in
// this repo consumes.
func (a observerAdapter) CellChanged(neighbour.PID, int) {}
func (a observerAdapter) Reinitialised()                 { a.bus.Reinitialised() }

// tunedStructure is satisfied by every Structure variant here (ShearingGrid
// gets it by embedding PlainGrid) and exposes the overlink/oversize tuning
// knobs that the bare Structure.Init doesn't carry.
type tunedStructure interface {
	neighbour.Structure
	InitTuned(n int, boxSize [3]float64, longestInteraction float64, overlink int, oversize float64) error
}

func newStructure(kind NeighbourKind, adapter *neighbourAdapter, observer neighbour.Observer) tunedStructure {
	switch kind {
	case NeighbourMorton:
		return neighbour.NewMortonGrid(adapter, adapter, observer)
	case NeighbourShearing:
		return neighbour.NewShearingGrid(adapter, adapter, observer)
	default:
		return neighbour.NewPlainGrid(adapter, adapter, observer)
	}
}
