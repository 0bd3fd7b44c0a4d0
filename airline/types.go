/*
Package airline is the resource-allocation and constraint-checking engine
of the FlyTAU operations platform.

PURPOSE:
  Decides whether a candidate flight can use a given aircraft and crew,
  reserves seats without double-booking, and drives the flight and order
  lifecycles. Everything else (pages, sessions, reports) is an external
  collaborator talking to the Engine.

KEY CONCEPTS IN THIS FILE (types.go):
  - Typed records for every persisted entity, with constructors that
    enforce their invariants (capacity >= 0, status in enumerated set,
    arrival = departure + route duration, exactly one purchaser email).
  - Status enums for flights and orders, with terminal-state helpers.

DESIGN PRINCIPLES:
  1. Typed identifiers so a flight number never gets passed as an order id
  2. Money is decimal.Decimal, rounded only where a rule says so
  3. Status is monotone: terminal states never change again

SEE ALSO:
  - store.go:     persistence contract
  - engine.go:    Engine wiring, transactions, retries
  - lifecycle.go: flight status state machine
  - orders.go:    order cancellation and pricing
  - booking.go:   seat reservation
  - draft.go:     multi-step flight creation
*/
package airline

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flytau/ops-engine/schedule"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AircraftID string
type RouteID string
type FlightNumber string
type OrderID string
type EmployeeID string

// =============================================================================
// ENUMERATIONS
// =============================================================================

// SizeClass is the aircraft size class.
type SizeClass string

const (
	SizeSmall SizeClass = "SMALL"
	SizeBig   SizeClass = "BIG"
)

func (s SizeClass) Valid() bool { return s == SizeSmall || s == SizeBig }

// Manufacturer is the enumerated aircraft manufacturer.
type Manufacturer string

const (
	ManufacturerBoeing   Manufacturer = "Boeing"
	ManufacturerAirbus   Manufacturer = "Airbus"
	ManufacturerDassault Manufacturer = "Dassault"
)

func (m Manufacturer) Valid() bool {
	switch m {
	case ManufacturerBoeing, ManufacturerAirbus, ManufacturerDassault:
		return true
	}
	return false
}

// FlightStatus is the state of a flight.
//
//	ACTIVE -> FULL, COMPLETED, CANCELLED
//	FULL   -> ACTIVE, COMPLETED, CANCELLED
//	COMPLETED, CANCELLED: terminal
type FlightStatus string

const (
	FlightActive    FlightStatus = "ACTIVE"
	FlightFull      FlightStatus = "FULL"
	FlightCompleted FlightStatus = "COMPLETED"
	FlightCancelled FlightStatus = "CANCELLED"
)

func (s FlightStatus) Valid() bool {
	switch s {
	case FlightActive, FlightFull, FlightCompleted, FlightCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s FlightStatus) IsTerminal() bool { return s == FlightCompleted || s == FlightCancelled }

// CanTransition reports whether s -> next is a legal edge.
func (s FlightStatus) CanTransition(next FlightStatus) bool {
	if s.IsTerminal() || !next.Valid() || s == next {
		return false
	}
	return true
}

// OrderStatus is the state of an order. Everything but ACTIVE is terminal.
type OrderStatus string

const (
	OrderActive            OrderStatus = "ACTIVE"
	OrderCompleted         OrderStatus = "COMPLETED"
	OrderCustomerCancelled OrderStatus = "CUSTOMER_CANCELLED"
	OrderSystemCancelled   OrderStatus = "SYSTEM_CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderActive, OrderCompleted, OrderCustomerCancelled, OrderSystemCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool { return s.Valid() && s != OrderActive }

// CrewRole is the single role an employee holds.
type CrewRole string

const (
	RolePilot     CrewRole = "PILOT"
	RoleAttendant CrewRole = "ATTENDANT"
)

func (r CrewRole) Valid() bool { return r == RolePilot || r == RoleAttendant }

// =============================================================================
// AIRCRAFT
// =============================================================================

type Aircraft struct {
	ID               AircraftID
	Size             SizeClass
	Manufacturer     Manufacturer
	EconomyCapacity  int
	BusinessCapacity int
	PurchaseDate     time.Time
}

// NewAircraft validates an aircraft record. SMALL aircraft carry no
// business cabin, so their business capacity is forced to zero.
func NewAircraft(id AircraftID, size SizeClass, manufacturer Manufacturer, economy, business int, purchased time.Time) (Aircraft, error) {
	switch {
	case strings.TrimSpace(string(id)) == "":
		return Aircraft{}, invalid("aircraft id is required")
	case !size.Valid():
		return Aircraft{}, invalid("unknown aircraft size %q", size)
	case !manufacturer.Valid():
		return Aircraft{}, invalid("unknown manufacturer %q", manufacturer)
	case economy < 0 || business < 0:
		return Aircraft{}, invalid("capacities must be non-negative")
	}
	if size == SizeSmall {
		business = 0
	}
	return Aircraft{
		ID:               AircraftID(strings.TrimSpace(string(id))),
		Size:             size,
		Manufacturer:     manufacturer,
		EconomyCapacity:  economy,
		BusinessCapacity: business,
		PurchaseDate:     purchased,
	}, nil
}

func (a Aircraft) TotalSeats() int { return a.EconomyCapacity + a.BusinessCapacity }

// =============================================================================
// ROUTE
// =============================================================================

// LongHaulThreshold separates long-haul routes, which need BIG aircraft,
// qualified crew and a business cabin price.
const LongHaulThreshold = 6 * time.Hour

type Route struct {
	ID          RouteID
	Origin      string
	Destination string
	Duration    time.Duration
}

func NewRoute(id RouteID, origin, destination string, duration time.Duration) (Route, error) {
	origin, destination = strings.TrimSpace(origin), strings.TrimSpace(destination)
	switch {
	case strings.TrimSpace(string(id)) == "":
		return Route{}, invalid("route id is required")
	case origin == "" || destination == "":
		return Route{}, invalid("origin and destination are required")
	case origin == destination:
		return Route{}, invalid("origin and destination must differ")
	case duration <= 0:
		return Route{}, invalid("route duration must be positive")
	}
	return Route{ID: id, Origin: origin, Destination: destination, Duration: duration}, nil
}

func (r Route) IsLongHaul() bool { return r.Duration > LongHaulThreshold }

// =============================================================================
// FLIGHT
// =============================================================================

type Flight struct {
	Number        FlightNumber
	AircraftID    AircraftID
	RouteID       RouteID
	Origin        string
	Destination   string
	Duration      time.Duration
	Status        FlightStatus
	Departure     time.Time
	Arrival       time.Time
	EconomyPrice  decimal.Decimal
	BusinessPrice decimal.Decimal
}

// NewFlight builds an ACTIVE flight. Arrival is always derived from the
// route duration; origin and destination are copied from the route.
func NewFlight(number FlightNumber, aircraft AircraftID, route Route, departure time.Time, economy, business decimal.Decimal) (Flight, error) {
	switch {
	case number == "":
		return Flight{}, invalid("flight number is required")
	case aircraft == "":
		return Flight{}, invalid("aircraft is required")
	case departure.IsZero():
		return Flight{}, invalid("departure is required")
	case economy.IsNegative() || business.IsNegative():
		return Flight{}, invalid("prices must be non-negative")
	}
	return Flight{
		Number:        number,
		AircraftID:    aircraft,
		RouteID:       route.ID,
		Origin:        route.Origin,
		Destination:   route.Destination,
		Duration:      route.Duration,
		Status:        FlightActive,
		Departure:     departure,
		Arrival:       departure.Add(route.Duration),
		EconomyPrice:  economy,
		BusinessPrice: business,
	}, nil
}

// Window is the flight as a scheduling commitment.
func (f Flight) Window() schedule.Window {
	return schedule.Window{
		Ref:         string(f.Number),
		Start:       f.Departure,
		End:         f.Arrival,
		Origin:      f.Origin,
		Destination: f.Destination,
		Cancelled:   f.Status == FlightCancelled,
	}
}

// =============================================================================
// CREW
// =============================================================================

type Employee struct {
	ID        EmployeeID
	Role      CrewRole
	FirstName string
	LastName  string
	Qualified bool // cleared for long-haul flights
}

func NewEmployee(id EmployeeID, role CrewRole, first, last string, qualified bool) (Employee, error) {
	switch {
	case strings.TrimSpace(string(id)) == "":
		return Employee{}, invalid("employee id is required")
	case !role.Valid():
		return Employee{}, invalid("unknown crew role %q", role)
	}
	return Employee{
		ID:        EmployeeID(strings.TrimSpace(string(id))),
		Role:      role,
		FirstName: strings.TrimSpace(first),
		LastName:  strings.TrimSpace(last),
		Qualified: qualified,
	}, nil
}

// CrewAssignment is created at flight commit and never mutated.
type CrewAssignment struct {
	EmployeeID   EmployeeID
	Role         CrewRole
	FlightNumber FlightNumber
}

// =============================================================================
// ORDERS
// =============================================================================

// Purchaser carries exactly one of a guest email or a registered email.
type Purchaser struct {
	GuestEmail      string
	RegisteredEmail string
}

func NewGuestPurchaser(email string) (Purchaser, error) {
	p := Purchaser{GuestEmail: normalizeEmail(email)}
	return p, p.Validate()
}

func NewRegisteredPurchaser(email string) (Purchaser, error) {
	p := Purchaser{RegisteredEmail: normalizeEmail(email)}
	return p, p.Validate()
}

func (p Purchaser) Validate() error {
	if (p.GuestEmail == "") == (p.RegisteredEmail == "") {
		return invalid("exactly one of guest or registered email is required")
	}
	if _, err := mail.ParseAddress(p.Email()); err != nil {
		return invalid("invalid email %q", p.Email())
	}
	return nil
}

// Email returns whichever email is set.
func (p Purchaser) Email() string {
	if p.GuestEmail != "" {
		return p.GuestEmail
	}
	return p.RegisteredEmail
}

// Matches reports whether email identifies this purchaser.
func (p Purchaser) Matches(email string) bool {
	return email != "" && normalizeEmail(email) == p.Email()
}

func (p Purchaser) IsGuest() bool { return p.GuestEmail != "" }

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

type Order struct {
	ID           OrderID
	FlightNumber FlightNumber
	Purchaser    Purchaser
	Status       OrderStatus
	Price        decimal.Decimal
	CreatedAt    time.Time
	CancelledAt  *time.Time
}

// OrderSeat reserves one seat for an order. Links are never deleted; an
// order leaving ACTIVE releases its seats for the flight.
type OrderSeat struct {
	OrderID    OrderID
	AircraftID AircraftID
	Row        int
	Column     string
}

// =============================================================================
// MAINTENANCE RUNS
// =============================================================================

// MaintenanceRun records one AutoComplete pass.
type MaintenanceRun struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      time.Time
	FlightsComplete int
	OrdersComplete  int
	Error           string
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
