package edmd

// Sorter maintains argmin_p PEL(p).Top().Time across every particle. CBT
// and BPQ are interchangeable implementations of this same contract; which
// one is in use is a performance knob, never a behavioural one - both
// return events in strictly non-decreasing time, ties broken by (partner,
// counter) as PED.Less orders them. The PID is not a tie-break: the order
// of two particles whose tops are equal in all of these is up to the
// implementation.
type Sorter interface {
	// Resize discards all state and allocates for n particles.
	Resize(n int)

	// Init builds the top-level structure from whatever has already been
	// Push-ed into each particle's PEL.
	Init()

	// Push shifts ped.Time by the sorter's rolling offset and enrols it in
	// PEL(p). Does not by itself update the top-level structure; call
	// Update(p) afterwards if ped could have become p's new top.
	Push(ped PED, p PID)

	// Update recomputes p's position in the top-level structure. Must be
	// called after any change to PEL(p).Top().
	Update(p PID)

	// Clear empties PEL(p) and restores the top-level invariant. Used by
	// full_update to discard every stale prediction before recomputing.
	Clear(p PID)

	// PopNext pops the top PED off the winning PEL, then restores the
	// top-level invariant.
	PopNext()

	// NextID returns the particle whose PEL currently holds the globally
	// earliest event.
	NextID() PID

	// NextTime returns that event's time in the caller's frame
	// (PEL.Top().Time minus the sorter's rolling offset).
	NextTime() float64

	// NextKind returns that event's EventKind.
	NextKind() EventKind

	// NextPartner returns that event's partner/object id.
	NextPartner() ObjectId

	// NextCounter returns that event's stored counter stamp.
	NextCounter() uint64

	// RescaleTimes multiplies every stored time and the rolling offset by
	// factor. Used on replica-exchange temperature swaps, where velocities
	// scale and every queued event's predicted time must scale to match.
	RescaleTimes(factor float64)

	// Stream advances the rolling offset by dt in O(1).
	Stream(dt float64)

	// Empty reports whether every PEL is empty (used by tests/harness to
	// detect a fully-drained sorter, e.g. right after Resize).
	Empty() bool
}

// pelView is the subset of *PEL behaviour both sorter implementations need;
// factored out so CBT and BPQ share the exact same PEL bookkeeping.
type pelView struct {
	pels []*PEL
}

func newPELView(n, capacityHint int) pelView {
	pels := make([]*PEL, n)
	for i := range pels {
		pels[i] = NewPEL(capacityHint)
	}
	return pelView{pels: pels}
}

func (v pelView) top(p PID) PED {
	return v.pels[p].Top()
}

func (v pelView) push(ped PED, p PID, offset float64) {
	shifted := ped
	shifted.Time += offset
	v.pels[p].Push(shifted)
}

func (v pelView) pop(p PID) {
	v.pels[p].Pop()
}

func (v pelView) clear(p PID) {
	v.pels[p].Clear()
}

func (v pelView) rescale(factor float64) {
	for _, pel := range v.pels {
		for i := range pel.heap {
			pel.heap[i].Time *= factor
		}
	}
}

func (v pelView) streamAll(dt float64) {
	for _, pel := range v.pels {
		for i := range pel.heap {
			pel.heap[i].Time += dt
		}
	}
}
