package edmd

import "github.com/dynamocore/edmd/neighbour"

// dispatch is the per-EventKind table: one case per kind of fired event.
// id/kind/partner/counter are the fired event's fields, read off the sorter
// before PopNext discarded them; dt is the real time that just elapsed.
func (s *Scheduler) dispatch(id PID, kind EventKind, partner ObjectId, counter uint64, dt float64) {
	switch kind {
	case PairInteraction:
		s.dispatchPair(id, partner, counter, dt)
	case CellBoundary:
		s.dispatchCellBoundary(id, partner, dt)
	case LocalObject:
		s.dispatchLocal(id, partner, dt)
	case GlobalEvent:
		s.dispatchGlobal(partner, dt)
	case SystemEvent:
		s.dispatchSystem(partner, dt)
	case Virtual:
		s.delay.Update(id)
		s.fullUpdate(id)
	default:
		s.err = NewFatalError(InvariantExhaustedPEL, map[string]any{
			"pid": int(id), "kind": kind.String(),
		})
	}
}

// dispatchPair is PairInteraction: bring both sides current, check the
// stamped counter against the partner's live one. If stale, drop it, count
// the rejection and push one fresh (id, q) prediction without bumping any
// counter; else execute and recompute both sides' full prediction sets.
func (s *Scheduler) dispatchPair(id PID, partner ObjectId, counter uint64, dt float64) {
	q := PID(partner)
	s.delay.Update(id)
	s.delay.Update(q)

	ped := PED{Time: s.simTime, Type: PairInteraction, Counter: counter, Partner: partner}
	if stale(s.store, ped) {
		s.staleRejections++
		s.pushPairPrediction(id, q)
		return
	}

	outcome := s.dynamics.ExecutePair(id, q, PairInteraction)
	s.observer.EventUpdate(ped, outcome, dt)
	s.FullUpdatePair(id, q)
}

// dispatchCellBoundary is CellBoundary: a virtual event. It carries no
// physics and must bump nothing - p's velocity and every other particle's
// in-flight predictions about p are untouched by a mere change of cell.
// Move p into its new cell (which incrementally pushes fresh predictions
// for any newly-visible neighbour/local via the wired observer signals),
// signal ParticleUpdate, push p's next CellBoundary PED, and restore the
// sorter invariant for p. Unlike a real event, this never touches p's PEL
// via Clear/fullUpdate - the rest of p's predictions remain exactly as
// valid as they were before the crossing.
func (s *Scheduler) dispatchCellBoundary(id PID, partner ObjectId, dt float64) {
	s.delay.Update(id)
	face := int(partner)
	s.nbr.OnCellCrossing(neighbour.PID(id), face)
	s.observer.ParticleUpdate(id)

	ce := s.nbr.AssignCellEvents(neighbour.PID(id))
	s.sorter.Push(PED{Time: ce.Time, Type: CellBoundary, Partner: ObjectId(ce.Face), Counter: s.store.Counter(id)}, id)
	s.sorter.Update(id)
}

// dispatchLocal is LocalObject: local objects carry no counter (they are
// not ParticleStore residents) so there is nothing to invalidate against -
// execute unconditionally and recompute p.
func (s *Scheduler) dispatchLocal(id PID, partner ObjectId, dt float64) {
	s.delay.Update(id)
	ped := PED{Time: s.simTime, Type: LocalObject, Partner: partner}
	outcome := s.dynamics.ExecuteLocal(id, partner)
	s.observer.EventUpdate(ped, outcome, dt)
	s.fullUpdate(id)
}

// dispatchGlobal is GlobalEvent: a field impulse or similar that can touch
// every particle's predictions at once. The core does not guess which
// particles were actually touched, so it does not rebuild anything itself -
// the collaborator is responsible for calling back into FullUpdate /
// FullUpdatePair (or, if it genuinely touched everyone, RebuildList) for
// whatever ExecuteGlobal just changed.
func (s *Scheduler) dispatchGlobal(id ObjectId, dt float64) {
	s.delay.UpdateAll()
	ped := PED{Time: s.simTime, Type: GlobalEvent, Partner: id}
	outcome := s.dynamics.ExecuteGlobal(id)
	s.observer.EventUpdate(ped, outcome, dt)
}

// dispatchSystem is SystemEvent: a periodic ticker or snapshot hook.
// Rescheduling a recurring system event (if the collaborator wants one) is
// the caller's job via ScheduleSystemEvent - the core does not guess a
// period from a one-shot Outcome.
func (s *Scheduler) dispatchSystem(id ObjectId, dt float64) {
	s.delay.UpdateAll()
	ped := PED{Time: s.simTime, Type: SystemEvent, Partner: id}
	outcome := s.dynamics.ExecuteSystem(id, s.simTime)
	s.observer.EventUpdate(ped, outcome, dt)
}

// ScheduleSystemEvent pushes a SystemEvent PED for the distinguished system
// slot reserved for ticker/snapshot bookkeeping, due dt from now. Harnesses
// that want a recurring ticker cannot simply call this again from within an
// ObserverBus.EventUpdate callback - re-entering the scheduler mid-dispatch
// is not allowed, so recurring system events must be rescheduled from the
// driving loop between RunNext calls instead.
func (s *Scheduler) ScheduleSystemEvent(id ObjectId, dt float64) {
	slot := PID(s.n)
	s.sorter.Push(PED{Time: dt, Type: SystemEvent, Partner: id}, slot)
	s.sorter.Update(slot)
}

// SystemEventSpec names one system event a caller wants live in the
// reserved system slot: id is the ticker/snapshot source, Dt is how far in
// the future (from now) it is due.
type SystemEventSpec struct {
	ID ObjectId
	Dt float64
}

// RebuildSystemEvents discards every pending event in the reserved system
// slot and re-pushes the given set from scratch, due Dt from now. Used
// after a RescaleTimes or other change invalidates previously scheduled
// ticker/snapshot times, so the caller can re-enumerate them in one call
// instead of tracking which ones survived.
func (s *Scheduler) RebuildSystemEvents(events []SystemEventSpec) {
	slot := PID(s.n)
	s.sorter.Clear(slot)
	for _, ev := range events {
		s.sorter.Push(PED{Time: ev.Dt, Type: SystemEvent, Partner: ev.ID}, slot)
	}
	s.sorter.Update(slot)
}

// Err returns the first invariant violation dispatch has observed, if any.
// A non-nil Err means RunNext will report false even though events may
// still remain - callers should treat this as fatal.
func (s *Scheduler) Err() error {
	return s.err
}
