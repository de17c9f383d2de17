package edmd

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNonePEDSortsLast(t *testing.T) {
	none := NonePED()
	assert.Equal(t, None, none.Type)
	assert.True(t, math.IsInf(none.Time, 1))

	earlier := PED{Time: 5, Type: PairInteraction}
	assert.True(t, earlier.Less(none))
	assert.False(t, none.Less(earlier))
}

func TestPEDLessBreaksTiesByPartnerThenCounter(t *testing.T) {
	a := PED{Time: 1, Partner: 2, Counter: 5}
	b := PED{Time: 1, Partner: 3, Counter: 0}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))

	c := PED{Time: 1, Partner: 2, Counter: 1}
	d := PED{Time: 1, Partner: 2, Counter: 2}
	assert.True(t, c.Less(d))
}

func TestPEDPartnerPIDReinterpretsPartner(t *testing.T) {
	p := PED{Partner: ObjectId(7)}
	assert.Equal(t, PID(7), p.PartnerPID())
}

func TestEventKindString(t *testing.T) {
	cases := map[EventKind]string{
		PairInteraction: "PairInteraction",
		CellBoundary:    "CellBoundary",
		LocalObject:     "LocalObject",
		GlobalEvent:     "GlobalEvent",
		SystemEvent:     "SystemEvent",
		Virtual:         "Virtual",
		None:            "None",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
	assert.Equal(t, "Unknown", EventKind(99).String())
}
