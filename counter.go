package edmd

// This file holds the event-invalidation protocol: the only mechanism used
// to discard superseded predictions is comparing a PED's stamped counter
// against its partner's live ParticleStore.Counter. There is no eager
// deletion from a partner's PEL - that would be O(|PEL|) and need
// back-pointers the PEL deliberately doesn't carry.
//
// The ordering invariant here is load-bearing: BumpCounter must happen
// strictly before the owning PEL is cleared. If the clear happened
// first, a prediction computed concurrently against the old neighbourhood
// could be pushed stamped with the already-bumped counter and later be
// accepted as fresh when it was actually based on stale state. bumpThenClear
// is the only place PEL invalidation happens, precisely so this ordering
// can't be gotten backwards at a call site.
func bumpThenClear(store ParticleStore, clear func(PID), p PID) {
	store.BumpCounter(p)
	clear(p)
}

// stale reports whether a PairInteraction PED's stamped counter
// disagrees with its partner's live counter - i.e. whether the prediction
// was invalidated by a real event that touched the partner since the
// prediction was made.
func stale(store ParticleStore, ped PED) bool {
	return ped.Counter != store.Counter(ped.PartnerPID())
}
