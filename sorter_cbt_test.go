package edmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCBTSorterFindsGlobalMinimum(t *testing.T) {
	s := NewCBTSorter()
	s.Resize(4)
	s.Push(PED{Time: 5, Partner: 0}, 0)
	s.Push(PED{Time: 1, Partner: 1}, 1)
	s.Push(PED{Time: 9, Partner: 2}, 2)
	s.Push(PED{Time: 3, Partner: 3}, 3)
	s.Init()

	assert.Equal(t, PID(1), s.NextID())
	assert.Equal(t, float64(1), s.NextTime())
}

func TestCBTSorterUpdateReflectsNewTop(t *testing.T) {
	s := NewCBTSorter()
	s.Resize(2)
	s.Push(PED{Time: 5, Partner: 0}, 0)
	s.Push(PED{Time: 1, Partner: 1}, 1)
	s.Init()
	require.Equal(t, PID(1), s.NextID())

	s.Push(PED{Time: 0.1, Partner: 0}, 0)
	s.Update(0)
	assert.Equal(t, PID(0), s.NextID())
}

func TestCBTSorterPopNextAdvancesToNextWinner(t *testing.T) {
	s := NewCBTSorter()
	s.Resize(2)
	s.Push(PED{Time: 1, Partner: 0}, 0)
	s.Push(PED{Time: 2, Partner: 1}, 1)
	s.Init()

	s.PopNext()
	assert.Equal(t, PID(1), s.NextID())
	assert.Equal(t, float64(2), s.NextTime())
}

func TestCBTSorterStreamIsOffsetOnly(t *testing.T) {
	s := NewCBTSorter()
	s.Resize(1)
	s.Push(PED{Time: 4}, 0)
	s.Init()

	s.Stream(1.5)
	assert.Equal(t, 2.5, s.NextTime())
}

func TestCBTSorterRescaleTimesScalesOffsetToo(t *testing.T) {
	s := NewCBTSorter()
	s.Resize(1)
	s.Push(PED{Time: 4}, 0)
	s.Init()
	s.Stream(2)

	s.RescaleTimes(2)
	assert.Equal(t, float64(4), s.NextTime())
}

func TestCBTSorterClearEmptiesParticlePEL(t *testing.T) {
	s := NewCBTSorter()
	s.Resize(2)
	s.Push(PED{Time: 1}, 0)
	s.Push(PED{Time: 5}, 1)
	s.Init()

	s.Clear(0)
	assert.Equal(t, PID(1), s.NextID())
}

func TestCBTSorterEmpty(t *testing.T) {
	s := NewCBTSorter()
	s.Resize(2)
	assert.True(t, s.Empty())
	s.Push(PED{Time: 1, Type: PairInteraction}, 0)
	assert.False(t, s.Empty())
}
