package edmd

import "math"

// bpqLocKind records which of the three places a particle's earliest event
// currently lives: the small current-bucket heap, one of the L time
// buckets, or the overflow list.
type bpqLocKind int

const (
	bpqLocNone bpqLocKind = iota
	bpqLocHeap
	bpqLocBucket
	bpqLocOverflow
)

type bpqLoc struct {
	kind   bpqLocKind
	bucket int // valid when kind == bpqLocBucket
}

const noPID PID = -1

// BPQSorter is the Bounded Priority Queue / calendar-queue implementation of
// Sorter: L time buckets covering a moving window, plus an
// overflow list for anything outside it, plus a small heap over the
// currently active bucket so NextID/NextTime are O(1) as long as the bucket
// scale matches the real event-rate density.
//
// Grounded on original_source/src/schedulers/sorters/boundedPQ.hpp: the
// intrusive doubly-linked bucket lists, the auto-tuned scale from the
// median gap between the first sorted events, and the exception counter
// for pushes landing outside the window.
type BPQSorter struct {
	pelView

	n int

	listWidth float64 // width of one bucket, in stored-time units
	numLists  int      // L
	base      float64  // stored-time left edge of bucket currentIndex
	current   int      // index of the currently active bucket, 0..numLists-1

	bucketHead []PID // head of each bucket's linked list, noPID if empty
	next, prev []PID // intrusive doubly-linked list over particle indices
	loc        []bpqLoc

	overflowHead   PID
	exceptionCount uint64

	heap pidMinHeap

	offset float64 // rolling accumulator tau_s, exactly as in CBTSorter

	// configuredLists sets the bucket count when non-zero (config
	// scheduler.bpq.lists); zero means the fixed default of 64.
	configuredLists int

	logger Logger
}

var _ Sorter = (*BPQSorter)(nil)

// NewBPQSorter returns a BPQ sorter. configuredLists, if non-zero, sets
// the bucket count, otherwise 64 buckets are used (only the bucket width is
// auto-tuned, at Init); logger may be nil (falls back to
// a no-op logger) and receives the scale-fallback warning logged when the
// auto-tune has too little data to work with.
func NewBPQSorter(configuredLists int, logger Logger) *BPQSorter {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &BPQSorter{configuredLists: configuredLists, logger: logger}
}

func (s *BPQSorter) Resize(n int) {
	s.n = n
	s.pelView = newPELView(n, 8)
	s.next = make([]PID, n)
	s.prev = make([]PID, n)
	s.loc = make([]bpqLoc, n)
	for i := range s.loc {
		s.loc[i] = bpqLoc{kind: bpqLocNone}
		s.next[i] = noPID
		s.prev[i] = noPID
	}
	s.overflowHead = noPID
	s.offset = 0
	s.base = 0
	s.current = 0
	s.exceptionCount = 0
	s.heap = nil
	s.bucketHead = nil
}

// Init auto-tunes the bucket scale from the median gap between the first
// finite event times already enrolled (one push per particle, typically),
// the way boundedPQ.hpp's init() sorts a snapshot of every PEL's top; the
// median of the consecutive finite gaps sets the bucket width. Init may be
// called again (RebuildList does): it re-places every particle from
// scratch. If fewer than two finite events exist -
// e.g. every particle starts at rest with no predicted interaction at all -
// there's too little data to auto-tune from; we follow the source's own
// fallback of scale = 10 and log a warning, since that is the only
// documented behaviour to ground on.
func (s *BPQSorter) Init() {
	times := make([]float64, 0, s.n)
	for p := 0; p < s.n; p++ {
		t := s.top(PID(p)).Time
		if !math.IsInf(t, 1) {
			times = append(times, t)
		}
	}
	sortFloat64s(times)

	var scale float64
	if len(times) < 2 {
		s.logger.Warnf("BPQ: fewer than 2 finite events at init, falling back to scale=10")
		scale = 10
	} else {
		gaps := make([]float64, 0, len(times)-1)
		for i := 1; i < len(times); i++ {
			gaps = append(gaps, times[i]-times[i-1])
		}
		sortFloat64s(gaps)
		median := gaps[len(gaps)/2]
		if median <= 0 {
			median = 1
		}
		scale = 1.0 / median
	}

	s.listWidth = 1.0 / scale
	if s.configuredLists > 0 {
		s.numLists = s.configuredLists
	} else {
		s.numLists = 64
	}
	s.bucketHead = make([]PID, s.numLists)
	for i := range s.bucketHead {
		s.bucketHead[i] = noPID
	}
	s.overflowHead = noPID
	for i := range s.loc {
		s.loc[i] = bpqLoc{kind: bpqLocNone}
		s.next[i] = noPID
		s.prev[i] = noPID
	}
	s.base = 0
	s.current = 0
	s.heap = nil

	for p := 0; p < s.n; p++ {
		s.place(PID(p))
	}
	s.fillCurrent()
}

func (s *BPQSorter) Push(ped PED, p PID) {
	s.pelView.push(ped, p, s.offset)
}

// Update removes p from wherever it currently lives and re-places it
// according to its (possibly new) PEL top. Must be called after every
// change to PEL(p).Top(). Before Init has built the buckets it does
// nothing; Init places every particle itself.
func (s *BPQSorter) Update(p PID) {
	if s.bucketHead == nil {
		return
	}
	s.unlink(p)
	s.place(p)
	s.fillCurrent()
}

// Clear empties PEL(p) and re-places it (an empty PEL reports NonePED, which
// sorts last, so p naturally drops to overflow until something is pushed
// again).
func (s *BPQSorter) Clear(p PID) {
	if s.bucketHead == nil {
		s.pelView.clear(p)
		return
	}
	s.unlink(p)
	s.pelView.clear(p)
	s.place(p)
	s.fillCurrent()
}

func (s *BPQSorter) unlink(p PID) {
	switch s.loc[p].kind {
	case bpqLocHeap:
		s.heap.remove(p)
	case bpqLocBucket:
		s.unlinkFrom(&s.bucketHead[s.loc[p].bucket], p)
	case bpqLocOverflow:
		s.unlinkFrom(&s.overflowHead, p)
	}
	s.loc[p] = bpqLoc{kind: bpqLocNone}
}

func (s *BPQSorter) unlinkFrom(head *PID, p PID) {
	if s.prev[p] != noPID {
		s.next[s.prev[p]] = s.next[p]
	} else {
		*head = s.next[p]
	}
	if s.next[p] != noPID {
		s.prev[s.next[p]] = s.prev[p]
	}
	s.next[p], s.prev[p] = noPID, noPID
}

func (s *BPQSorter) linkInto(head *PID, p PID) {
	s.next[p] = *head
	s.prev[p] = noPID
	if *head != noPID {
		s.prev[*head] = p
	}
	*head = p
}

// place decides where p's current PEL top belongs: the live heap (if it
// falls in the currently active bucket), a time bucket, or overflow.
func (s *BPQSorter) place(p PID) {
	t := s.top(p).Time
	if math.IsInf(t, 1) {
		s.linkInto(&s.overflowHead, p)
		s.loc[p] = bpqLoc{kind: bpqLocOverflow}
		return
	}

	offsetFromBase := t - s.base
	idx := int(math.Floor(offsetFromBase / s.listWidth))

	// At or below the active bucket's left edge (the window may already have
	// advanced past the time of a freshly predicted event): the live heap,
	// which always yields its earliest entry first.
	if idx <= 0 {
		s.heap.push(p, s)
		s.loc[p] = bpqLoc{kind: bpqLocHeap}
		return
	}
	if idx < s.numLists {
		bucket := (s.current + idx) % s.numLists
		s.linkInto(&s.bucketHead[bucket], p)
		s.loc[p] = bpqLoc{kind: bpqLocBucket, bucket: bucket}
		return
	}

	// Beyond the window: counts as an exception push.
	s.exceptionCount++
	s.linkInto(&s.overflowHead, p)
	s.loc[p] = bpqLoc{kind: bpqLocOverflow}
}

// fillCurrent advances the window until the current-bucket heap is
// non-empty or every bucket and the overflow are exhausted.
func (s *BPQSorter) fillCurrent() {
	for s.heap.empty() {
		if s.drainBucketIntoHeap(s.current) {
			return
		}
		if !s.advance() {
			return // nothing left anywhere
		}
		// A wrap may have moved overflow entries into the heap; entries
		// already waiting in the new current bucket join them.
		s.drainBucketIntoHeap(s.current)
	}
}

func (s *BPQSorter) drainBucketIntoHeap(bucket int) bool {
	head := s.bucketHead[bucket]
	if head == noPID {
		return false
	}
	for p := head; p != noPID; {
		next := s.next[p]
		s.next[p], s.prev[p] = noPID, noPID
		s.heap.push(p, s)
		s.loc[p] = bpqLoc{kind: bpqLocHeap}
		p = next
	}
	s.bucketHead[bucket] = noPID
	return true
}

// advance moves the window forward by one bucket width. When the cursor
// wraps all the way around, it folds the overflow list back into the
// buckets/heap now that the window has caught up to it - the catch-up
// scan boundedPQ.hpp runs once per full revolution.
func (s *BPQSorter) advance() bool {
	s.current = (s.current + 1) % s.numLists
	s.base += s.listWidth
	if s.current == 0 {
		return s.reconcileOverflow()
	}
	return s.anyWork()
}

func (s *BPQSorter) anyWork() bool {
	if !s.heap.empty() {
		return true
	}
	for _, h := range s.bucketHead {
		if h != noPID {
			return true
		}
	}
	return s.overflowHead != noPID
}

// reconcileOverflow re-buckets every overflow entry now that the window has
// wrapped. Entries still beyond the (new) window stay in overflow; this is
// O(overflow size) but only runs once per L buckets of progress. Overflow
// entries with no event at all (+Inf) are not work: when only those remain,
// it reports false.
func (s *BPQSorter) reconcileOverflow() bool {
	head := s.overflowHead
	s.overflowHead = noPID
	if head == noPID {
		return s.anyWork()
	}

	pending := make([]PID, 0)
	for p := head; p != noPID; {
		next := s.next[p]
		s.next[p], s.prev[p] = noPID, noPID
		pending = append(pending, p)
		p = next
	}

	bucketsEmpty := true
	for _, h := range s.bucketHead {
		if h != noPID {
			bucketsEmpty = false
			break
		}
	}
	min, finite := s.minFinite(pending)
	if finite && bucketsEmpty && !s.anyFiniteBelowWindow(pending) {
		// Nothing in the window yet: jump base forward to the earliest
		// pending time so we don't spin through empty buckets one at a
		// time when the next real event is far in the future.
		s.base = min
		s.current = 0
	}

	for _, p := range pending {
		s.place(p)
	}
	if !finite {
		return !bucketsEmpty
	}
	return s.anyWork()
}

func (s *BPQSorter) anyFiniteBelowWindow(pending []PID) bool {
	for _, p := range pending {
		t := s.top(p).Time
		if !math.IsInf(t, 1) && t-s.base < float64(s.numLists)*s.listWidth {
			return true
		}
	}
	return false
}

func (s *BPQSorter) minFinite(pending []PID) (float64, bool) {
	min := math.Inf(1)
	found := false
	for _, p := range pending {
		t := s.top(p).Time
		if !math.IsInf(t, 1) && t < min {
			min = t
			found = true
		}
	}
	return min, found
}

func (s *BPQSorter) PopNext() {
	p := s.heap.peekMin(s)
	s.pop(p)
	s.unlink(p)
	s.place(p)
	s.fillCurrent()
}

func (s *BPQSorter) NextID() PID {
	return s.heap.peekMin(s)
}

func (s *BPQSorter) NextTime() float64 {
	p := s.heap.peekMin(s)
	if p == noPID {
		return math.Inf(1)
	}
	return s.top(p).Time - s.offset
}

func (s *BPQSorter) NextKind() EventKind {
	p := s.heap.peekMin(s)
	if p == noPID {
		return None
	}
	return s.top(p).Type
}

func (s *BPQSorter) NextPartner() ObjectId {
	p := s.heap.peekMin(s)
	if p == noPID {
		return 0
	}
	return s.top(p).Partner
}

func (s *BPQSorter) NextCounter() uint64 {
	p := s.heap.peekMin(s)
	if p == noPID {
		return 0
	}
	return s.top(p).Counter
}

func (s *BPQSorter) RescaleTimes(factor float64) {
	s.rescale(factor)
	s.offset *= factor
	s.base *= factor
	s.listWidth *= factor
}

func (s *BPQSorter) Stream(dt float64) {
	s.offset += dt
}

func (s *BPQSorter) Empty() bool {
	for _, pel := range s.pels {
		if !pel.Empty() {
			return false
		}
	}
	return true
}

// ExceptionCount reports how many finite placements landed beyond the bucket
// window and had to go through overflow - counted at Init, on every
// Update/PopNext re-placement, and again each time a wrap re-buckets an
// entry that is still beyond the window - a diagnostic for judging whether the
// bucket scale is still tracking the real event-rate density.
func (s *BPQSorter) ExceptionCount() uint64 {
	return s.exceptionCount
}

func sortFloat64s(xs []float64) {
	// Small, already-mostly-random slices: plain insertion sort keeps this
	// file dependency-free and is fast enough for the handful of particles
	// typically enrolled at init.
	for i := 1; i < len(xs); i++ {
		v := xs[i]
		j := i - 1
		for j >= 0 && xs[j] > v {
			xs[j+1] = xs[j]
			j--
		}
		xs[j+1] = v
	}
}

// pidMinHeap holds the PIDs whose earliest event falls in the currently
// active bucket. Bucket occupancy is small by construction - that is the
// entire premise of calendar-queue bucketing - so this is a flat slice
// scanned for its minimum rather than a tree: simpler than maintaining heap
// invariants through the removals Update() triggers, and just as fast at
// this scale.
type pidMinHeap []PID

func (h *pidMinHeap) push(p PID, _ *BPQSorter) {
	*h = append(*h, p)
}

func (h *pidMinHeap) remove(p PID) {
	for i, v := range *h {
		if v == p {
			n := len(*h)
			(*h)[i] = (*h)[n-1]
			*h = (*h)[:n-1]
			return
		}
	}
}

func (h pidMinHeap) empty() bool {
	return len(h) == 0
}

// peekMin returns the PID whose PEL top is earliest, or noPID if the bucket
// is currently empty.
func (h pidMinHeap) peekMin(s *BPQSorter) PID {
	if len(h) == 0 {
		return noPID
	}
	best := h[0]
	for _, p := range h[1:] {
		if s.top(p).Less(s.top(best)) {
			best = p
		}
	}
	return best
}
