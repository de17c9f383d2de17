package edmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounterStore struct {
	counters []uint64
}

func (s *fakeCounterStore) Count() int                  { return len(s.counters) }
func (s *fakeCounterStore) Position(PID) [3]float64     { return [3]float64{} }
func (s *fakeCounterStore) Velocity(PID) [3]float64     { return [3]float64{} }
func (s *fakeCounterStore) Counter(p PID) uint64        { return s.counters[p] }
func (s *fakeCounterStore) BumpCounter(p PID) uint64 {
	s.counters[p]++
	return s.counters[p]
}

func TestBumpThenClearOrdersCounterBeforeClear(t *testing.T) {
	store := &fakeCounterStore{counters: []uint64{0}}
	pel := NewPEL(1)
	pel.Push(PED{Time: 1, Type: PairInteraction})

	bumpThenClear(store, pel.Clear, 0)

	require.Equal(t, uint64(1), store.Counter(0))
	assert.True(t, pel.Empty())
}

func TestStaleComparesCounterAgainstPartner(t *testing.T) {
	store := &fakeCounterStore{counters: []uint64{3, 0}}
	fresh := PED{Partner: 0, Counter: 3}
	assert.False(t, stale(store, fresh))

	store.BumpCounter(0)
	assert.True(t, stale(store, fresh))
}
