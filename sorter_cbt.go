package edmd

// CBTSorter is the Complete Binary Tournament implementation of Sorter: a
// perfect binary tree of size 2N whose internal nodes store the winning
// child (the PID whose PEL currently holds the earliest event). Leaf i
// carries a back-pointer so Update(p) only ever walks O(log N) levels back
// up to the root.
//
// Grounded on original_source/src/schedulers/sorters/cbt.hpp: tree[1] is
// always the winning PID, and UpdateCBT re-plays the tournament only along
// the path from a leaf to the root, stopping early once a level's winner is
// unchanged.
type CBTSorter struct {
	pelView

	tree []PID // tree[i] = PID currently winning internal node i
	leaf []int // leaf[p+1] = tree index of particle p's leaf slot
	n    int
	np   int // number of leaves inserted so far, during Init

	offset float64 // rolling accumulator tau_s; stored times are offset by +this
}

var _ Sorter = (*CBTSorter)(nil)

// NewCBTSorter returns a CBT sorter with no particles enrolled; call Resize
// before use.
func NewCBTSorter() *CBTSorter {
	return &CBTSorter{}
}

func (s *CBTSorter) Resize(n int) {
	s.n = n
	s.tree = make([]PID, 2*n+2)
	s.leaf = make([]int, n+1)
	s.pelView = newPELView(n, 8)
	s.np = 0
	s.offset = 0
}

func (s *CBTSorter) Init() {
	s.np = 0
	for i := 0; i < s.n; i++ {
		s.insert(PID(i))
	}
}

// insert adds particle p's leaf to the tournament tree, replaying the
// CBT build exactly as cbt.hpp's Insert does: the first leaf becomes the
// root outright; every subsequent leaf displaces the leaf held at node np
// down to a fresh pair of children and re-tournaments from there up.
func (s *CBTSorter) insert(p PID) {
	i := int(p) + 1 // 1-indexed internal id, matching cbt.hpp's "i"
	if s.np == 0 {
		s.tree[1] = PID(i - 1)
		s.np++
		return
	}
	j := s.tree[s.np]
	s.tree[s.np*2] = j
	s.tree[s.np*2+1] = PID(i - 1)
	s.leaf[int(j)+1] = s.np * 2
	s.leaf[i] = s.np*2 + 1
	s.np++
	s.replay(int(j) + 1)
}

func (s *CBTSorter) Push(ped PED, p PID) {
	s.pelView.push(ped, p, s.offset)
}

func (s *CBTSorter) Update(p PID) {
	s.replay(int(p) + 1)
}

func (s *CBTSorter) Clear(p PID) {
	s.pelView.clear(p)
	s.Update(p)
}

// replay walks from leaf i up to the root, recomputing each internal node's
// winner. It stops as soon as a level's winner doesn't change, same as
// cbt.hpp's UpdateCBT two-pass structure collapsed into one: the first pass
// establishes whether i itself could still be winning anywhere on the path,
// the second keeps climbing only while the winner actually changes.
func (s *CBTSorter) replay(i int) {
	f := s.leaf[i] / 2
	for ; f > 0; f = f / 2 {
		if s.tree[f] != PID(i-1) {
			break
		}
		l, r := s.tree[f*2], s.tree[f*2+1]
		if s.better(r, l) {
			s.tree[f] = r
		} else {
			s.tree[f] = l
		}
	}
	for ; f > 0; f = f / 2 {
		w := s.tree[f]
		l, r := s.tree[f*2], s.tree[f*2+1]
		var winner PID
		if s.better(r, l) {
			winner = r
		} else {
			winner = l
		}
		s.tree[f] = winner
		if winner == w {
			return
		}
	}
}

// better reports whether a's PEL top beats b's PEL top, i.e. a should win
// the tournament node over b.
func (s *CBTSorter) better(a, b PID) bool {
	return s.top(a).Less(s.top(b))
}

func (s *CBTSorter) PopNext() {
	s.pop(s.tree[1])
	s.Update(s.tree[1])
}

func (s *CBTSorter) NextID() PID {
	return s.tree[1]
}

func (s *CBTSorter) NextTime() float64 {
	return s.top(s.tree[1]).Time - s.offset
}

func (s *CBTSorter) NextKind() EventKind {
	return s.top(s.tree[1]).Type
}

func (s *CBTSorter) NextPartner() ObjectId {
	return s.top(s.tree[1]).Partner
}

func (s *CBTSorter) NextCounter() uint64 {
	return s.top(s.tree[1]).Counter
}

func (s *CBTSorter) RescaleTimes(factor float64) {
	s.rescale(factor)
	s.offset *= factor
}

// Stream is O(1): it only bumps the rolling offset. Stored PED times are
// read back with NextTime()/Top() already folding the offset out, so no PED
// in any PEL is ever touched on the hot path.
func (s *CBTSorter) Stream(dt float64) {
	s.offset += dt
}

func (s *CBTSorter) Empty() bool {
	for _, pel := range s.pels {
		if !pel.Empty() {
			return false
		}
	}
	return true
}
