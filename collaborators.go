package edmd

// This file names the core's collaborator interfaces. The core calls these
// verbs; it never cares how a collaborator implements them. Each is a
// capability interface naming only the verbs the core actually calls - no
// polymorphic clone, no shared base type.

// Outcome is what a Dynamics collaborator reports after executing a real
// event: the kinetic-energy change and a free-form note. It carries no
// velocities; any the collaborator applied are only in its own particle
// state. The core does not interpret the physics; it only forwards Outcome
// to the observer bus.
type Outcome struct {
	DeltaKE float64
	Note    string
}

// Dynamics provides all physics predictions and outcomes. Every predict_*
// call must be computable without mutating state - the scheduler is
// responsible for calling DelayedState.Update before it relies on a
// prediction's inputs being current.
type Dynamics interface {
	// PredictPair returns the time and kind of the next interaction between
	// p and q, or a PED with Type == None if they will never interact
	// (equivalently Time == +Inf).
	PredictPair(p, q PID) PED

	// PredictCellExit returns how long until p's trajectory exits a cell of
	// the given origin and extent, and which face it exits through (a
	// signed axis index: 0..2 for -x,-y,-z and 3..5 for +x,+y,+z). Must be
	// computable without mutating state. No delay offset is passed in: the
	// scheduler brings p up to date through DelayedState.Update before it
	// asks for p's cell events.
	PredictCellExit(p PID, cellOrigin, cellExtent [3]float64) (dt float64, face int)

	// PredictLocal returns the time and kind of p's next interaction with
	// local wall/obstacle object l.
	PredictLocal(p PID, l ObjectId) PED

	// ExecutePair applies the collision rule for p and q colliding via kind
	// and returns the resulting Outcome.
	ExecutePair(p, q PID, kind EventKind) Outcome

	// ExecuteLocal applies the collision rule for p interacting with local
	// object l.
	ExecuteLocal(p PID, l ObjectId) Outcome

	// ExecuteGlobal applies a global event's effect; the collaborator is
	// responsible for any subsequent PEL invalidation this implies.
	ExecuteGlobal(id ObjectId) Outcome

	// ExecuteSystem applies a system event's effect (periodic ticker,
	// snapshot) at the given simulation time.
	ExecuteSystem(id ObjectId, simTime float64) Outcome

	// Stream free-flight integrates one particle over dt. Idempotent and
	// exact for the underlying integrator (straight-line under gravity-free
	// dynamics, parabolic under constant gravity).
	Stream(p PID, dt float64)

	// LongestInteractionDistance drives neighbour cell sizing.
	LongestInteractionDistance() float64
}

// ParticleStore owns the N particles. The core never reallocates the
// particle array; it only reads positions/velocities and writes through
// Dynamics.Stream.
type ParticleStore interface {
	// Count returns N, the number of particles the core should enrol.
	Count() int

	// Position returns particle p's current stored position (which may lag
	// the global clock - callers needing the true position must bring p up
	// to date via DelayedState.Update first).
	Position(p PID) [3]float64

	// Velocity returns particle p's current stored velocity.
	Velocity(p PID) [3]float64

	// Counter returns p's collision counter: the invalidation stamp bumped
	// every time p participates in a real event.
	Counter(p PID) uint64

	// BumpCounter increments p's collision counter and returns the new
	// value.
	BumpCounter(p PID) uint64
}

// ObserverBus is the signal surface subscribers see: they may not re-enter
// the scheduler from inside a callback - there are no suspension points in
// the core's event loop.
type ObserverBus interface {
	// EventUpdate is called once per consumed real event.
	EventUpdate(event PED, outcome Outcome, dt float64)

	// ParticleUpdate is called after p has been brought up to date and
	// moved across a cell boundary (a CellBoundary event); other updates of
	// a particle's stored state do not signal it.
	ParticleUpdate(p PID)

	// Reinitialised is called after a full rebuild (rebuild_list,
	// cell-grid reinitialisation, or equivalent).
	Reinitialised()
}

// NopObserverBus discards every signal. Useful in tests and for
// collaborators that do not need to observe the core.
type NopObserverBus struct{}

func (NopObserverBus) EventUpdate(PED, Outcome, float64) {}
func (NopObserverBus) ParticleUpdate(PID)                {}
func (NopObserverBus) Reinitialised()                    {}
