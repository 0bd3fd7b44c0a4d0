package seating

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// =============================================================================
// SEAT TYPES
// =============================================================================

// Class is the cabin class of a seat.
type Class string

const (
	ClassEconomy  Class = "ECONOMY"
	ClassBusiness Class = "BUSINESS"
)

// Valid reports whether c is a known class.
func (c Class) Valid() bool { return c == ClassEconomy || c == ClassBusiness }

// Position addresses a seat within one aircraft.
type Position struct {
	Row    int
	Column string
}

// Code formats the position as "<row><column>", e.g. "12C".
func (p Position) Code() string { return strconv.Itoa(p.Row) + p.Column }

func (p Position) String() string { return p.Code() }

// Less orders positions by row, then column.
func (p Position) Less(other Position) bool {
	if p.Row != other.Row {
		return p.Row < other.Row
	}
	return p.Column < other.Column
}

// Seat is one physical seat. (AircraftID, Row, Column) is its identity.
type Seat struct {
	AircraftID string
	Position
	Class Class
}

// ErrInvalidCode is returned by ParseCode for malformed seat codes.
var ErrInvalidCode = errors.New("invalid seat code")

// ParseCode parses "12C" (case-insensitive, surrounding spaces ignored).
// The column is the trailing letter, the row the positive number before it.
func ParseCode(code string) (Position, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 2 {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}

	col := code[len(code)-1:]
	if col[0] < 'A' || col[0] > 'Z' {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}

	row, err := strconv.Atoi(code[:len(code)-1])
	if err != nil || row <= 0 {
		return Position{}, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	return Position{Row: row, Column: col}, nil
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate lays out business seats first and economy seats after them on
// the same column cycle. Economy continues from the column after the last
// business seat instead of starting a fresh row. The result is ordered and
// deterministic, so regenerating never changes an existing seat's class.
func Generate(aircraftID string, layout Layout, economy, business int) []Seat {
	columns := layout.Columns()
	perRow := len(columns)
	if economy < 0 {
		economy = 0
	}
	if business < 0 {
		business = 0
	}
	if perRow == 0 || economy+business == 0 {
		return nil
	}

	seats := make([]Seat, 0, economy+business)
	for i := 0; i < business+economy; i++ {
		class := ClassBusiness
		if i >= business {
			class = ClassEconomy
		}
		seats = append(seats, Seat{
			AircraftID: aircraftID,
			Position:   Position{Row: i/perRow + 1, Column: columns[i%perRow]},
			Class:      class,
		})
	}
	return seats
}

// =============================================================================
// SETS
// =============================================================================

// Set is a set of positions, used for occupancy.
type Set map[Position]struct{}

// NewSet builds a set from positions.
func NewSet(positions ...Position) Set {
	s := make(Set, len(positions))
	for _, p := range positions {
		s[p] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(p Position) bool {
	_, ok := s[p]
	return ok
}

// Sorted returns the positions ordered by row, then column.
func (s Set) Sorted() []Position {
	result := make([]Position, 0, len(s))
	for p := range s {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Less(result[j]) })
	return result
}
