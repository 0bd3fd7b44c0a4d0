/*
Package seating generates and addresses aircraft seat inventory.

PURPOSE:
  Seats are a pure function of an aircraft's type and capacities. This
  package owns that function; persistence and occupancy live in airline.

  LayoutFor:  manufacturer x size -> column letters in three physical blocks
  Generate:   deterministic seat list (business first, then economy)
  ParseCode:  "12C" <-> Position{Row: 12, Column: "C"}

LAYOUT TABLE:
  Boeing    BIG    ABC | DEFG | HIJ   (10 per row)
  Boeing    SMALL  ABC |      | DEF   (6)
  Airbus    BIG    ABC | DEF  | GHI   (9)
  Airbus    SMALL  ABC |      | DEF   (6)
  Dassault  BIG    ABC |      | DEF   (6)
  Dassault  SMALL  AB  |      | CD    (4)
  anything else    ABC |      | DEF   (6)

SEE ALSO:
  - seats.go:          Generate, Seat, Position
  - airline/seats.go:  idempotent persistence and occupancy
*/
package seating

import "strings"

// Layout splits a row's column letters into physical blocks separated by
// aisles. Middle may be empty for single-aisle aircraft.
type Layout struct {
	Left   []string
	Middle []string
	Right  []string
}

// Columns returns every column letter of a row in cabin order.
func (l Layout) Columns() []string {
	cols := make([]string, 0, len(l.Left)+len(l.Middle)+len(l.Right))
	cols = append(cols, l.Left...)
	cols = append(cols, l.Middle...)
	cols = append(cols, l.Right...)
	return cols
}

// SeatsPerRow is len(Columns()).
func (l Layout) SeatsPerRow() int {
	return len(l.Left) + len(l.Middle) + len(l.Right)
}

type layoutKey struct {
	manufacturer string
	size         string
}

func cols(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "")
}

var (
	defaultLayout = Layout{Left: cols("ABC"), Right: cols("DEF")}

	layouts = map[layoutKey]Layout{
		{"Boeing", "BIG"}:     {Left: cols("ABC"), Middle: cols("DEFG"), Right: cols("HIJ")},
		{"Boeing", "SMALL"}:   defaultLayout,
		{"Airbus", "BIG"}:     {Left: cols("ABC"), Middle: cols("DEF"), Right: cols("GHI")},
		{"Airbus", "SMALL"}:   defaultLayout,
		{"Dassault", "BIG"}:   defaultLayout,
		{"Dassault", "SMALL"}: {Left: cols("AB"), Right: cols("CD")},
	}
)

// LayoutFor returns the seat layout for an aircraft type. Size is matched
// case-insensitively; unknown combinations get the 6-abreast default.
func LayoutFor(manufacturer, size string) Layout {
	key := layoutKey{
		manufacturer: strings.TrimSpace(manufacturer),
		size:         strings.ToUpper(strings.TrimSpace(size)),
	}
	l, ok := layouts[key]
	if !ok {
		l = defaultLayout
	}
	return Layout{
		Left:   append([]string(nil), l.Left...),
		Middle: append([]string(nil), l.Middle...),
		Right:  append([]string(nil), l.Right...),
	}
}
