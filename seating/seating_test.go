package seating_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flytau/ops-engine/seating"
)

func TestLayoutFor_Table(t *testing.T) {
	cases := []struct {
		manufacturer, size string
		perRow             int
		middle             int
	}{
		{"Boeing", "BIG", 10, 4},
		{"Boeing", "SMALL", 6, 0},
		{"Airbus", "BIG", 9, 3},
		{"Airbus", "small", 6, 0},
		{"Dassault", "BIG", 6, 0},
		{"Dassault", "SMALL", 4, 0},
		{"Embraer", "BIG", 6, 0},
		{"", "", 6, 0},
	}

	for _, tc := range cases {
		t.Run(tc.manufacturer+"/"+tc.size, func(t *testing.T) {
			l := seating.LayoutFor(tc.manufacturer, tc.size)
			assert.Equal(t, tc.perRow, l.SeatsPerRow())
			assert.Len(t, l.Middle, tc.middle)
			assert.Len(t, l.Columns(), tc.perRow)
		})
	}
}

func TestLayoutFor_ReturnsCopy(t *testing.T) {
	l := seating.LayoutFor("Boeing", "BIG")
	l.Left[0] = "Z"

	assert.Equal(t, "A", seating.LayoutFor("Boeing", "BIG").Left[0])
}

func TestGenerate_BusinessFirstThenEconomyContinuesRow(t *testing.T) {
	// GIVEN: 6-abreast layout, 4 business + 5 economy
	// THEN: row 1 = BBBBEE (A-D business, E-F economy), row 2 = EEE
	seats := seating.Generate("AC1", seating.LayoutFor("Airbus", "SMALL"), 5, 4)

	require.Len(t, seats, 9)
	codes := make([]string, len(seats))
	for i, s := range seats {
		codes[i] = s.Code()
		assert.Equal(t, "AC1", s.AircraftID)
	}
	assert.Equal(t, []string{"1A", "1B", "1C", "1D", "1E", "1F", "2A", "2B", "2C"}, codes)

	for _, s := range seats[:4] {
		assert.Equal(t, seating.ClassBusiness, s.Class, s.Code())
	}
	for _, s := range seats[4:] {
		assert.Equal(t, seating.ClassEconomy, s.Class, s.Code())
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	layout := seating.LayoutFor("Boeing", "BIG")
	a := seating.Generate("AC1", layout, 180, 24)
	b := seating.Generate("AC1", layout, 180, 24)

	assert.Equal(t, a, b)
	assert.Len(t, a, 204)
	assert.Equal(t, "21D", a[len(a)-1].Code())
}

func TestGenerate_Empty(t *testing.T) {
	assert.Empty(t, seating.Generate("AC1", seating.LayoutFor("Boeing", "BIG"), 0, 0))
	assert.Empty(t, seating.Generate("AC1", seating.Layout{}, 10, 0))
	assert.Empty(t, seating.Generate("AC1", seating.LayoutFor("Boeing", "BIG"), -3, -1))
}

func TestGenerate_NegativeCountsClampToZero(t *testing.T) {
	seats := seating.Generate("AC1", seating.LayoutFor("Airbus", "SMALL"), -5, 3)
	require.Len(t, seats, 3)
	for _, s := range seats {
		assert.Equal(t, seating.ClassBusiness, s.Class)
	}
	assert.Equal(t, "1C", seats[2].Code())

	assert.Len(t, seating.Generate("AC1", seating.LayoutFor("Airbus", "SMALL"), 4, -2), 4)
}

func TestParseCode(t *testing.T) {
	p, err := seating.ParseCode(" 12c ")
	require.NoError(t, err)
	assert.Equal(t, seating.Position{Row: 12, Column: "C"}, p)
	assert.Equal(t, "12C", p.Code())

	for _, bad := range []string{"", "C", "12", "0A", "-1A", "A1", "1.5A"} {
		_, err := seating.ParseCode(bad)
		assert.ErrorIs(t, err, seating.ErrInvalidCode, bad)
	}
}

func TestSet_Sorted(t *testing.T) {
	s := seating.NewSet(
		seating.Position{Row: 2, Column: "A"},
		seating.Position{Row: 1, Column: "C"},
		seating.Position{Row: 1, Column: "A"},
	)

	assert.True(t, s.Has(seating.Position{Row: 1, Column: "C"}))
	assert.False(t, s.Has(seating.Position{Row: 3, Column: "C"}))
	assert.Equal(t, []seating.Position{{Row: 1, Column: "A"}, {Row: 1, Column: "C"}, {Row: 2, Column: "A"}}, s.Sorted())
}
