/*
store.go - Persistence contract for the airline engine

PURPOSE:
  Defines the interface between the engine and the database. The engine
  never speaks SQL; it reads and writes typed records through Store and
  groups read-then-write sequences in TxStore.WithTx.

KEY INTERFACES:
  Store:   typed reads and writes per entity
  TxStore: Store + WithTx (serializable transaction)

WRITE RULES:
  - Seats are insert-only. InsertSeats skips keys that already exist.
  - Order-seat links are never deleted. Occupancy is derived from the
    status of the owning order.
  - Crew assignments are never updated or deleted.
  - InsertFlight and InsertOrder return ErrIdentifierCollision when the
    key is already taken, so allocators can retry.

IMPLEMENTATIONS:
  - airline/store/memory.go:  in-memory, for tests and dev
  - store/sqlite/sqlite.go:   SQLite (single connection, WAL)
  - store/postgres/postgres.go: PostgreSQL at SERIALIZABLE isolation

SEE ALSO:
  - engine.go: transaction retries and timeouts around WithTx
*/
package airline

import (
	"context"
	"time"

	"github.com/flytau/ops-engine/seating"
)

// =============================================================================
// STORE - typed repository
// =============================================================================

// Store is the repository the engine works against. Implementations
// return ErrNotFound (wrapped) for missing records.
type Store interface {
	// Fleet
	InsertAircraft(ctx context.Context, a Aircraft) error
	GetAircraft(ctx context.Context, id AircraftID) (Aircraft, error)
	ListAircraft(ctx context.Context) ([]Aircraft, error)

	InsertRoute(ctx context.Context, r Route) error
	GetRoute(ctx context.Context, id RouteID) (Route, error)
	FindRoute(ctx context.Context, origin, destination string) (Route, error)
	ListRoutes(ctx context.Context) ([]Route, error)

	InsertEmployee(ctx context.Context, e Employee) error
	GetEmployee(ctx context.Context, id EmployeeID) (Employee, error)
	// ListEmployees returns employees of role, or everyone when role is "".
	ListEmployees(ctx context.Context, role CrewRole) ([]Employee, error)

	// Seats
	// InsertSeats stores the seats whose key is not present yet and
	// returns how many were inserted.
	InsertSeats(ctx context.Context, seats []seating.Seat) (int, error)
	ListSeats(ctx context.Context, aircraft AircraftID) ([]seating.Seat, error)

	// Flights
	InsertFlight(ctx context.Context, f Flight) error
	GetFlight(ctx context.Context, number FlightNumber) (Flight, error)
	UpdateFlightStatus(ctx context.Context, number FlightNumber, status FlightStatus) error
	ListFlights(ctx context.Context, filter FlightFilter) ([]Flight, error)
	FlightsByAircraft(ctx context.Context, aircraft AircraftID) ([]Flight, error)
	FlightNumbers(ctx context.Context) ([]FlightNumber, error)

	// Crew
	InsertCrewAssignments(ctx context.Context, assignments []CrewAssignment) error
	CrewForFlight(ctx context.Context, number FlightNumber) ([]CrewAssignment, error)
	FlightsByEmployee(ctx context.Context, employee EmployeeID) ([]Flight, error)

	// Orders
	InsertOrder(ctx context.Context, o Order, seats []OrderSeat) error
	GetOrder(ctx context.Context, id OrderID) (Order, error)
	UpdateOrder(ctx context.Context, o Order) error
	OrdersByFlight(ctx context.Context, number FlightNumber) ([]Order, error)
	OrderSeats(ctx context.Context, id OrderID) ([]OrderSeat, error)
	OrderIDs(ctx context.Context) ([]OrderID, error)
	// ActiveSeats returns the seats linked to ACTIVE orders of a flight.
	ActiveSeats(ctx context.Context, number FlightNumber) ([]seating.Position, error)

	// Maintenance
	InsertMaintenanceRun(ctx context.Context, run MaintenanceRun) error
	ListMaintenanceRuns(ctx context.Context, limit int) ([]MaintenanceRun, error)
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a serializable transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// QUERIES
// =============================================================================

// FlightFilter narrows ListFlights. Zero fields match everything.
type FlightFilter struct {
	Status      FlightStatus
	Origin      string
	Destination string
	From        time.Time // departure >= From
	To          time.Time // departure < To
}

// Matches applies the filter in memory.
func (f FlightFilter) Matches(fl Flight) bool {
	switch {
	case f.Status != "" && fl.Status != f.Status:
		return false
	case f.Origin != "" && fl.Origin != f.Origin:
		return false
	case f.Destination != "" && fl.Destination != f.Destination:
		return false
	case !f.From.IsZero() && fl.Departure.Before(f.From):
		return false
	case !f.To.IsZero() && !fl.Departure.Before(f.To):
		return false
	}
	return true
}
