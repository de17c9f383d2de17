package edmd

import (
	"fmt"
	"math"

	"github.com/dynamocore/edmd/neighbour"
)

// Scheduler is the single-threaded event loop tying together the delayed
// state manager, the global event sorter, and the neighbour structure. It
// owns no physics itself - every predict/execute call is forwarded to the
// Dynamics collaborator - and it never suspends mid-dispatch.
type Scheduler struct {
	store    ParticleStore
	dynamics Dynamics
	observer ObserverBus
	logger   Logger
	cfg      *Config

	n      int
	sorter Sorter
	delay  *DelayedState
	nbr    tunedStructure
	boxSize [3]float64

	simTime         float64
	eventCount      uint64
	staleRejections uint64
	err             error
}

// NewScheduler wires the core around its five collaborators. observer and
// logger may be nil, falling back to NopObserverBus / NewNopLogger.
func NewScheduler(cfg *Config, store ParticleStore, dynamics Dynamics, observer ObserverBus, logger Logger) *Scheduler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if observer == nil {
		observer = NopObserverBus{}
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Scheduler{
		store:    store,
		dynamics: dynamics,
		observer: observer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Initialise builds the sorter and neighbour structure for the store's
// current particle count and runs rebuild_list so every particle starts
// with a full, valid prediction set. Must be called once before RunNext.
func (s *Scheduler) Initialise(boxSize [3]float64) error {
	s.n = s.store.Count()
	s.boxSize = boxSize
	s.simTime = 0
	s.eventCount = 0
	s.staleRejections = 0

	streamFreq := s.cfg.DelayedState.StreamFreq
	if streamFreq <= 0 {
		streamFreq = 0 // NewDelayedState defaults to 10*n itself
	}
	s.delay = NewDelayedState(s.n, s.dynamics.Stream)
	if streamFreq > 0 {
		s.delay.streamFreq = streamFreq
	}

	switch s.cfg.Scheduler.Kind {
	case SchedulerBoundedPQ:
		s.sorter = NewBPQSorter(s.cfg.Scheduler.BPQ.Lists, s.logger)
	default:
		s.sorter = NewCBTSorter()
	}
	// One extra slot beyond the n particle PIDs, reserved for
	// ScheduleSystemEvent - system/ticker events are not tied to any single
	// particle's PEL.
	s.sorter.Resize(s.n + 1)

	adapter := &neighbourAdapter{store: s.store, dynamics: s.dynamics, delay: s.delay}
	s.nbr = newStructure(s.cfg.Neighbour.Kind, adapter, observerAdapter{bus: s.observer, scheduler: s})

	if err := s.nbr.InitTuned(s.n, boxSize, s.dynamics.LongestInteractionDistance(),
		s.cfg.Neighbour.Overlink, s.cfg.Neighbour.Oversize); err != nil {
		return fmt.Errorf("edmd: initialising neighbour structure: %w", err)
	}

	return s.RebuildList()
}

// RebuildList recomputes every particle's full prediction set from scratch
// and restarts the sorter's top-level structure. Used by Initialise and
// after any structural change (cell-grid reinitialisation, replica-exchange
// velocity rescale with differing species interaction ranges).
func (s *Scheduler) RebuildList() error {
	for p := 0; p < s.n; p++ {
		s.fullUpdate(PID(p))
	}
	s.sorter.Init()
	s.observer.Reinitialised()
	return nil
}

// fullUpdate discards p's entire prediction set and recomputes it from p's
// current neighbourhood: one CellBoundary event, one PairInteraction
// candidate per particle currently in p's stencil, and one LocalObject
// candidate per local object in p's cell.
func (s *Scheduler) fullUpdate(p PID) {
	bumpThenClear(s.store, s.sorter.Clear, p)
	s.delay.Update(p)

	ce := s.nbr.AssignCellEvents(neighbour.PID(p))
	s.sorter.Push(PED{Time: ce.Time, Type: CellBoundary, Partner: ObjectId(ce.Face), Counter: s.store.Counter(p)}, p)

	s.nbr.Neighbours(neighbour.PID(p), func(q neighbour.PID) {
		s.delay.Update(PID(q))
		ped := s.dynamics.PredictPair(p, PID(q))
		if ped.Type == None || math.IsInf(ped.Time, 1) {
			return
		}
		ped.Partner = ObjectId(q)
		ped.Counter = s.store.Counter(PID(q))
		s.sorter.Push(ped, p)
	})

	s.nbr.Locals(neighbour.PID(p), func(l neighbour.ObjectId) {
		ped := s.dynamics.PredictLocal(p, ObjectId(l))
		if ped.Type == None || math.IsInf(ped.Time, 1) {
			return
		}
		ped.Partner = ObjectId(l)
		s.sorter.Push(ped, p)
	})

	s.sorter.Update(p)
}

// pushPairPrediction adds a single incremental PairInteraction candidate to
// p's PEL for partner q, without touching q's PEL or either particle's
// collision counter. Used when the neighbour structure reports q just
// became visible to p (a cell crossing, not a real event), so nothing here
// may invalidate other particles' in-flight predictions that name p or q.
func (s *Scheduler) pushPairPrediction(p, q PID) {
	s.delay.UpdatePair(p, q)
	ped := s.dynamics.PredictPair(p, q)
	if ped.Type == None || math.IsInf(ped.Time, 1) {
		return
	}
	ped.Partner = ObjectId(q)
	ped.Counter = s.store.Counter(q)
	s.sorter.Push(ped, p)
	s.sorter.Update(p)
}

// pushLocalPrediction is pushPairPrediction's counterpart for a fixed local
// object just entering p's cell.
func (s *Scheduler) pushLocalPrediction(p PID, l ObjectId) {
	ped := s.dynamics.PredictLocal(p, l)
	if ped.Type == None || math.IsInf(ped.Time, 1) {
		return
	}
	ped.Partner = ObjectId(l)
	s.sorter.Push(ped, p)
	s.sorter.Update(p)
}

// FullUpdate is fullUpdate exported for collaborators that need to force a
// recompute after a global/system event touches p outside the normal
// dispatch path.
func (s *Scheduler) FullUpdate(p PID) {
	s.fullUpdate(p)
}

// InvalidateEvents is called when p's stored state changed (a velocity
// thermostat, an external nudge) without p itself being the particle whose
// event was just consumed. The effect is identical to FullUpdate - bump p's
// counter, clear its PEL, recompute from scratch - but it is exposed under
// its own name since callers reach for it from a different situation than a
// just-consumed event.
func (s *Scheduler) InvalidateEvents(p PID) {
	s.fullUpdate(p)
}

// FullUpdatePair recomputes both p and q's prediction sets - required after
// any event that changes either particle's velocity, since each particle
// keeps its own independent predictions about the other.
func (s *Scheduler) FullUpdatePair(p, q PID) {
	s.fullUpdate(p)
	s.fullUpdate(q)
}

// Empty reports whether the sorter has no remaining work (every PEL empty).
func (s *Scheduler) Empty() bool {
	return s.sorter == nil || s.sorter.Empty()
}

// SimTime returns the scheduler's current global simulation clock.
func (s *Scheduler) SimTime() float64 {
	return s.simTime
}

// EventCount returns how many events RunNext has dispatched so far, of
// every kind: stale PairInteraction rejections, CellBoundary and Virtual
// events are counted too.
func (s *Scheduler) EventCount() uint64 {
	return s.eventCount
}

// StaleRejections returns how many PairInteraction events were dropped
// because their stamped counter no longer matched the partner's live
// counter. LocalObject events carry no counter and are never rejected, so
// nothing is counted for them.
func (s *Scheduler) StaleRejections() uint64 {
	return s.staleRejections
}

// RescaleTimes multiplies every pending event time (and the rolling clocks
// that track them) by factor, used by replica-exchange temperature swaps:
// velocities scale by sqrt(factor) so a time rescale by 1/sqrt(factor)
// keeps every still-pending prediction valid without a full rebuild.
func (s *Scheduler) RescaleTimes(factor float64) {
	s.sorter.RescaleTimes(factor)
}

// RunNext advances the simulation by exactly one event of any kind (a stale
// one that dispatch drops included): streams every
// clock to the next event's time, dispatches it, and requeues whatever
// predictions the dispatch invalidated. Returns false if the sorter is
// empty (nothing left to schedule).
func (s *Scheduler) RunNext() bool {
	if s.err != nil || s.sorter.Empty() {
		return false
	}

	dt := s.sorter.NextTime()
	if math.IsInf(dt, 1) {
		return false
	}
	if dt < 0 {
		s.err = NewFatalError(InvariantMonotonicTime, map[string]any{
			"simTime": s.simTime, "dt": dt,
		})
		return false
	}

	id := s.sorter.NextID()
	kind := s.sorter.NextKind()
	partner := s.sorter.NextPartner()
	counter := s.sorter.NextCounter()

	s.simTime += dt
	s.sorter.Stream(dt)
	s.delay.Stream(dt)
	s.sorter.PopNext()

	s.dispatch(id, kind, partner, counter, dt)
	s.eventCount++

	if s.cfg.Simulation.PrintInterval > 0 && s.eventCount%s.cfg.Simulation.PrintInterval == 0 {
		s.logger.Infof("event %d: t=%.6f stale=%d", s.eventCount, s.simTime, s.staleRejections)
	}

	return true
}

// Run drives RunNext until the sorter empties or EventCount reaches
// maxEvents. A maxEvents of 0 falls back to cfg.Simulation.MaxEvents.
func (s *Scheduler) Run(maxEvents uint64) error {
	if maxEvents == 0 {
		maxEvents = s.cfg.Simulation.MaxEvents
	}
	for s.eventCount < maxEvents {
		if !s.RunNext() {
			return nil
		}
	}
	return nil
}
