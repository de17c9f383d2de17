// Package neighbour implements the cell-based broadphase that bounds
// PredictPair calls to nearby particles and drives CellBoundary event
// prediction. It is a leaf package - it never imports the edmd core - so
// the core adapts to it via the small capability interfaces below, the same
// pattern spatial-grid code elsewhere in this codebase uses to stay
// decoupled from its owning application.
package neighbour

// PID mirrors edmd.PID's underlying representation. Kept as a distinct type
// so this package has no import-time dependency on the core; callers convert
// with a plain int cast at the edmd/neighbour boundary.
type PID int

// ObjectId names a local (non-particle) neighbourhood resident: a wall,
// obstacle, or other fixed object a cell can hold alongside particles.
type ObjectId uint64

// PositionSource is the one verb the grid needs from whatever owns particle
// state: a current (possibly delayed) position to bin by.
type PositionSource interface {
	Position(p PID) [3]float64
}

// CellExitPredictor is the one verb the grid needs from Dynamics: how long
// until p exits a cell of the given origin/extent, and through which face.
// Face is a signed axis index: 0..2 for -x,-y,-z, 3..5 for +x,+y,+z.
type CellExitPredictor interface {
	PredictCellExit(p PID, cellOrigin, cellExtent [3]float64) (dt float64, face int)
}

// Observer is the grid's signal/callback plumbing: subscribers are told
// when the neighbourhood relation changes shape, never why. The core's
// ObserverBus is a different, richer interface; a neighbour.Observer only
// ever reacts to structural change within the grid itself.
type Observer interface {
	// NewNeighbour fires once for each (p, q) pair that just became mutually
	// visible (q entered p's stencil, or vice versa) and wasn't before.
	NewNeighbour(p, q PID)

	// NewLocal fires when p enters a cell that holds local object l.
	NewLocal(p PID, l ObjectId)

	// CellChanged fires whenever p's cell membership changes, old being the
	// cell index (as Structure.CellOf reports it) p is leaving.
	CellChanged(p PID, old int)

	// Reinitialised fires once after a full grid rebuild (resize, or a
	// structural rescale driven by LongestInteractionDistance changing).
	Reinitialised()
}

// NopObserver discards every signal.
type NopObserver struct{}

func (NopObserver) NewNeighbour(PID, PID)  {}
func (NopObserver) NewLocal(PID, ObjectId) {}
func (NopObserver) CellChanged(PID, int)   {}
func (NopObserver) Reinitialised()         {}

// CellEvent is what AssignCellEvents computes: the grid's own prediction of
// when and through which face a particle next crosses a cell boundary. The
// edmd core wraps this into a PED (Type: CellBoundary) at the scheduler
// boundary; the grid itself has no notion of PED ordering.
type CellEvent struct {
	Time float64
	Face int
}

// Structure is the common contract all three variants (Plain, Morton,
// Shearing) satisfy. Which one is in use is a performance/topology knob,
// never a behavioural one: all three partition the same
// particle set into cells no smaller than LongestInteractionDistance (an
// axis too short for 2*overlink+1 such cells gets 2*overlink+1 narrower
// ones) and support the same five operations.
type Structure interface {
	// Init (re)builds the grid for n particles given the current longest
	// interaction distance and the (possibly non-cubic) simulation box.
	Init(n int, boxSize [3]float64, longestInteraction float64) error

	// AssignCellEvents predicts p's next cell-boundary crossing.
	AssignCellEvents(p PID) CellEvent

	// OnCellCrossing moves p from its current cell into the one it just
	// entered through face, firing NewNeighbour/NewLocal/CellChanged as
	// appropriate, then returns the index of p's new cell (the Morton code
	// for MortonGrid, the flat index for the other variants).
	OnCellCrossing(p PID, face int) int

	// Neighbours calls f once for every other particle currently in p's
	// stencil (p's own cell plus its overlink-widened surrounding cells).
	Neighbours(p PID, f func(q PID))

	// Locals calls f once for every local object currently in p's cell.
	Locals(p PID, f func(l ObjectId))

	// Reinitialise rebuilds the grid in place after LongestInteractionDistance
	// changes (e.g. a species' interaction range grew), firing Reinitialised.
	Reinitialise(longestInteraction float64) error

	// CellOf returns the index of the cell currently holding p (the Morton
	// code for MortonGrid, the flat index for the other variants).
	CellOf(p PID) int
}
