package edmd

import "container/heap"

// PEL is the Per-Particle Event List: the small set of candidate events one
// particle has been enrolled in. It is a binary min-heap ordered by PED.Less,
// typically holding no more than a handful of entries (one per neighbour
// relationship plus the particle's own CellBoundary prediction).
//
// The zero value is not usable; construct with NewPEL.
type PEL struct {
	heap pedHeap
}

// NewPEL returns an empty PEL with room for capacityHint entries before the
// first reallocation.
func NewPEL(capacityHint int) *PEL {
	return &PEL{heap: make(pedHeap, 0, capacityHint)}
}

// Top returns the earliest PED, or NonePED() if the list is empty. Per the
// PEL invariant, a non-empty list's top never has Type == None.
func (l *PEL) Top() PED {
	if len(l.heap) == 0 {
		return NonePED()
	}
	return l.heap[0]
}

// Empty reports whether the list holds no events.
func (l *PEL) Empty() bool {
	return len(l.heap) == 0
}

// Len reports the number of enrolled events.
func (l *PEL) Len() int {
	return len(l.heap)
}

// Push adds ped to the list. A ped with Type == None is never enrolled -
// "never" events carry no information a scheduler needs to track.
func (l *PEL) Push(ped PED) {
	if ped.Type == None {
		return
	}
	heap.Push(&l.heap, ped)
}

// Pop removes and discards the top event. Callers that care whether the new
// top changed should compare Top() before and after, then call
// Sorter.Update(p) if it did - the PEL itself does not know which sorter
// owns it.
func (l *PEL) Pop() {
	if len(l.heap) == 0 {
		return
	}
	heap.Pop(&l.heap)
}

// Clear drops every enrolled event. Used after a real event touches the
// owning particle and invalidates all of its pending predictions.
func (l *PEL) Clear() {
	l.heap = l.heap[:0]
}

// pedHeap implements container/heap.Interface over a slice of PED.
type pedHeap []PED

func (h pedHeap) Len() int            { return len(h) }
func (h pedHeap) Less(i, j int) bool  { return h[i].Less(h[j]) }
func (h pedHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pedHeap) Push(x any)         { *h = append(*h, x.(PED)) }
func (h *pedHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
