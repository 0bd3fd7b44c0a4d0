// Package store provides an in-memory airline.TxStore.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/flytau/ops-engine/airline"
	"github.com/flytau/ops-engine/seating"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is a TxStore kept in maps. A transaction holds the write lock for
// its whole duration, which makes every transaction serializable.
type Memory struct {
	mu sync.RWMutex
	st *state
}

func NewMemory() *Memory {
	return &Memory{st: newState()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(airline.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.st.clone()
	if err := fn(m.st); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

// Reset clears all data (for testing/demo).
func (m *Memory) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = newState()
	return nil
}

func (m *Memory) InsertAircraft(ctx context.Context, a airline.Aircraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.InsertAircraft(ctx, a)
}

func (m *Memory) GetAircraft(ctx context.Context, id airline.AircraftID) (airline.Aircraft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.GetAircraft(ctx, id)
}

func (m *Memory) ListAircraft(ctx context.Context) ([]airline.Aircraft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListAircraft(ctx)
}

func (m *Memory) InsertRoute(ctx context.Context, r airline.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.InsertRoute(ctx, r)
}

func (m *Memory) GetRoute(ctx context.Context, id airline.RouteID) (airline.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.GetRoute(ctx, id)
}

func (m *Memory) FindRoute(ctx context.Context, origin, destination string) (airline.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.FindRoute(ctx, origin, destination)
}

func (m *Memory) ListRoutes(ctx context.Context) ([]airline.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListRoutes(ctx)
}

func (m *Memory) InsertEmployee(ctx context.Context, e airline.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.InsertEmployee(ctx, e)
}

func (m *Memory) GetEmployee(ctx context.Context, id airline.EmployeeID) (airline.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.GetEmployee(ctx, id)
}

func (m *Memory) ListEmployees(ctx context.Context, role airline.CrewRole) ([]airline.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListEmployees(ctx, role)
}

func (m *Memory) InsertSeats(ctx context.Context, seats []seating.Seat) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.InsertSeats(ctx, seats)
}

func (m *Memory) ListSeats(ctx context.Context, aircraft airline.AircraftID) ([]seating.Seat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListSeats(ctx, aircraft)
}

func (m *Memory) InsertFlight(ctx context.Context, f airline.Flight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.InsertFlight(ctx, f)
}

func (m *Memory) GetFlight(ctx context.Context, number airline.FlightNumber) (airline.Flight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.GetFlight(ctx, number)
}

func (m *Memory) UpdateFlightStatus(ctx context.Context, number airline.FlightNumber, status airline.FlightStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.UpdateFlightStatus(ctx, number, status)
}

func (m *Memory) ListFlights(ctx context.Context, filter airline.FlightFilter) ([]airline.Flight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListFlights(ctx, filter)
}

func (m *Memory) FlightsByAircraft(ctx context.Context, aircraft airline.AircraftID) ([]airline.Flight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.FlightsByAircraft(ctx, aircraft)
}

func (m *Memory) FlightNumbers(ctx context.Context) ([]airline.FlightNumber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.FlightNumbers(ctx)
}

func (m *Memory) InsertCrewAssignments(ctx context.Context, assignments []airline.CrewAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.InsertCrewAssignments(ctx, assignments)
}

func (m *Memory) CrewForFlight(ctx context.Context, number airline.FlightNumber) ([]airline.CrewAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.CrewForFlight(ctx, number)
}

func (m *Memory) FlightsByEmployee(ctx context.Context, employee airline.EmployeeID) ([]airline.Flight, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.FlightsByEmployee(ctx, employee)
}

func (m *Memory) InsertOrder(ctx context.Context, o airline.Order, seats []airline.OrderSeat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.InsertOrder(ctx, o, seats)
}

func (m *Memory) GetOrder(ctx context.Context, id airline.OrderID) (airline.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.GetOrder(ctx, id)
}

func (m *Memory) UpdateOrder(ctx context.Context, o airline.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.UpdateOrder(ctx, o)
}

func (m *Memory) OrdersByFlight(ctx context.Context, number airline.FlightNumber) ([]airline.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.OrdersByFlight(ctx, number)
}

func (m *Memory) OrderSeats(ctx context.Context, id airline.OrderID) ([]airline.OrderSeat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.OrderSeats(ctx, id)
}

func (m *Memory) OrderIDs(ctx context.Context) ([]airline.OrderID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.OrderIDs(ctx)
}

func (m *Memory) ActiveSeats(ctx context.Context, number airline.FlightNumber) ([]seating.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ActiveSeats(ctx, number)
}

func (m *Memory) InsertMaintenanceRun(ctx context.Context, run airline.MaintenanceRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.InsertMaintenanceRun(ctx, run)
}

func (m *Memory) ListMaintenanceRuns(ctx context.Context, limit int) ([]airline.MaintenanceRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.ListMaintenanceRuns(ctx, limit)
}

// =============================================================================
// STATE - unlocked maps, also the Store handed to WithTx callbacks
// =============================================================================

type seatKey struct {
	aircraft airline.AircraftID
	pos      seating.Position
}

type state struct {
	aircraft   map[airline.AircraftID]airline.Aircraft
	routes     map[airline.RouteID]airline.Route
	employees  map[airline.EmployeeID]airline.Employee
	seats      map[airline.AircraftID][]seating.Seat
	seatKeys   map[seatKey]bool
	flights    map[airline.FlightNumber]airline.Flight
	crew       []airline.CrewAssignment
	orders     map[airline.OrderID]airline.Order
	orderSeats map[airline.OrderID][]airline.OrderSeat
	runs       []airline.MaintenanceRun
}

func newState() *state {
	return &state{
		aircraft:   make(map[airline.AircraftID]airline.Aircraft),
		routes:     make(map[airline.RouteID]airline.Route),
		employees:  make(map[airline.EmployeeID]airline.Employee),
		seats:      make(map[airline.AircraftID][]seating.Seat),
		seatKeys:   make(map[seatKey]bool),
		flights:    make(map[airline.FlightNumber]airline.Flight),
		orders:     make(map[airline.OrderID]airline.Order),
		orderSeats: make(map[airline.OrderID][]airline.OrderSeat),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.aircraft {
		c.aircraft[k] = v
	}
	for k, v := range s.routes {
		c.routes[k] = v
	}
	for k, v := range s.employees {
		c.employees[k] = v
	}
	for k, v := range s.seats {
		c.seats[k] = append([]seating.Seat(nil), v...)
	}
	for k, v := range s.seatKeys {
		c.seatKeys[k] = v
	}
	for k, v := range s.flights {
		c.flights[k] = v
	}
	c.crew = append([]airline.CrewAssignment(nil), s.crew...)
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderSeats {
		c.orderSeats[k] = append([]airline.OrderSeat(nil), v...)
	}
	c.runs = append([]airline.MaintenanceRun(nil), s.runs...)
	return c
}

func notFound(kind string, id any) error {
	return &airline.NotFoundError{Kind: kind, ID: fmt.Sprint(id)}
}

func collision(kind string, id any) error {
	return fmt.Errorf("%w: %s %v", airline.ErrIdentifierCollision, kind, id)
}

// Fleet

func (s *state) InsertAircraft(_ context.Context, a airline.Aircraft) error {
	if _, ok := s.aircraft[a.ID]; ok {
		return collision("aircraft", a.ID)
	}
	s.aircraft[a.ID] = a
	return nil
}

func (s *state) GetAircraft(_ context.Context, id airline.AircraftID) (airline.Aircraft, error) {
	a, ok := s.aircraft[id]
	if !ok {
		return airline.Aircraft{}, notFound("aircraft", id)
	}
	return a, nil
}

func (s *state) ListAircraft(_ context.Context) ([]airline.Aircraft, error) {
	out := make([]airline.Aircraft, 0, len(s.aircraft))
	for _, a := range s.aircraft {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *state) InsertRoute(_ context.Context, r airline.Route) error {
	if _, ok := s.routes[r.ID]; ok {
		return collision("route", r.ID)
	}
	s.routes[r.ID] = r
	return nil
}

func (s *state) GetRoute(_ context.Context, id airline.RouteID) (airline.Route, error) {
	r, ok := s.routes[id]
	if !ok {
		return airline.Route{}, notFound("route", id)
	}
	return r, nil
}

func (s *state) FindRoute(ctx context.Context, origin, destination string) (airline.Route, error) {
	routes, _ := s.ListRoutes(ctx)
	for _, r := range routes {
		if r.Origin == origin && r.Destination == destination {
			return r, nil
		}
	}
	return airline.Route{}, notFound("route", origin+"->"+destination)
}

func (s *state) ListRoutes(_ context.Context) ([]airline.Route, error) {
	out := make([]airline.Route, 0, len(s.routes))
	for _, r := range s.routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *state) InsertEmployee(_ context.Context, e airline.Employee) error {
	if _, ok := s.employees[e.ID]; ok {
		return collision("employee", e.ID)
	}
	s.employees[e.ID] = e
	return nil
}

func (s *state) GetEmployee(_ context.Context, id airline.EmployeeID) (airline.Employee, error) {
	e, ok := s.employees[id]
	if !ok {
		return airline.Employee{}, notFound("employee", id)
	}
	return e, nil
}

func (s *state) ListEmployees(_ context.Context, role airline.CrewRole) ([]airline.Employee, error) {
	var out []airline.Employee
	for _, e := range s.employees {
		if role == "" || e.Role == role {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Seats

func (s *state) InsertSeats(_ context.Context, seats []seating.Seat) (int, error) {
	n := 0
	for _, seat := range seats {
		k := seatKey{aircraft: airline.AircraftID(seat.AircraftID), pos: seat.Position}
		if s.seatKeys[k] {
			continue
		}
		s.seatKeys[k] = true
		s.seats[k.aircraft] = append(s.seats[k.aircraft], seat)
		n++
	}
	return n, nil
}

func (s *state) ListSeats(_ context.Context, aircraft airline.AircraftID) ([]seating.Seat, error) {
	out := append([]seating.Seat(nil), s.seats[aircraft]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Position.Less(out[j].Position) })
	return out, nil
}

// Flights

func (s *state) InsertFlight(_ context.Context, f airline.Flight) error {
	if _, ok := s.flights[f.Number]; ok {
		return collision("flight", f.Number)
	}
	s.flights[f.Number] = f
	return nil
}

func (s *state) GetFlight(_ context.Context, number airline.FlightNumber) (airline.Flight, error) {
	f, ok := s.flights[number]
	if !ok {
		return airline.Flight{}, notFound("flight", number)
	}
	return f, nil
}

func (s *state) UpdateFlightStatus(_ context.Context, number airline.FlightNumber, status airline.FlightStatus) error {
	f, ok := s.flights[number]
	if !ok {
		return notFound("flight", number)
	}
	f.Status = status
	s.flights[number] = f
	return nil
}

func (s *state) ListFlights(_ context.Context, filter airline.FlightFilter) ([]airline.Flight, error) {
	var out []airline.Flight
	for _, f := range s.flights {
		if filter.Matches(f) {
			out = append(out, f)
		}
	}
	sortFlights(out)
	return out, nil
}

func (s *state) FlightsByAircraft(_ context.Context, aircraft airline.AircraftID) ([]airline.Flight, error) {
	var out []airline.Flight
	for _, f := range s.flights {
		if f.AircraftID == aircraft {
			out = append(out, f)
		}
	}
	sortFlights(out)
	return out, nil
}

func (s *state) FlightNumbers(_ context.Context) ([]airline.FlightNumber, error) {
	out := make([]airline.FlightNumber, 0, len(s.flights))
	for n := range s.flights {
		out = append(out, n)
	}
	return out, nil
}

func sortFlights(fs []airline.Flight) {
	sort.Slice(fs, func(i, j int) bool {
		if !fs[i].Departure.Equal(fs[j].Departure) {
			return fs[i].Departure.Before(fs[j].Departure)
		}
		return fs[i].Number < fs[j].Number
	})
}

// Crew

func (s *state) InsertCrewAssignments(_ context.Context, assignments []airline.CrewAssignment) error {
	for _, a := range assignments {
		if _, ok := s.flights[a.FlightNumber]; !ok {
			return notFound("flight", a.FlightNumber)
		}
		for _, existing := range s.crew {
			if existing.EmployeeID == a.EmployeeID && existing.FlightNumber == a.FlightNumber {
				return collision("crew assignment", string(a.EmployeeID)+"@"+string(a.FlightNumber))
			}
		}
		s.crew = append(s.crew, a)
	}
	return nil
}

func (s *state) CrewForFlight(_ context.Context, number airline.FlightNumber) ([]airline.CrewAssignment, error) {
	var out []airline.CrewAssignment
	for _, a := range s.crew {
		if a.FlightNumber == number {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *state) FlightsByEmployee(_ context.Context, employee airline.EmployeeID) ([]airline.Flight, error) {
	var out []airline.Flight
	for _, a := range s.crew {
		if a.EmployeeID == employee {
			if f, ok := s.flights[a.FlightNumber]; ok {
				out = append(out, f)
			}
		}
	}
	sortFlights(out)
	return out, nil
}

// Orders

func (s *state) InsertOrder(_ context.Context, o airline.Order, seats []airline.OrderSeat) error {
	if _, ok := s.orders[o.ID]; ok {
		return collision("order", o.ID)
	}
	if _, ok := s.flights[o.FlightNumber]; !ok {
		return notFound("flight", o.FlightNumber)
	}
	s.orders[o.ID] = o
	s.orderSeats[o.ID] = append([]airline.OrderSeat(nil), seats...)
	return nil
}

func (s *state) GetOrder(_ context.Context, id airline.OrderID) (airline.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return airline.Order{}, notFound("order", id)
	}
	return o, nil
}

func (s *state) UpdateOrder(_ context.Context, o airline.Order) error {
	if _, ok := s.orders[o.ID]; !ok {
		return notFound("order", o.ID)
	}
	s.orders[o.ID] = o
	return nil
}

func (s *state) OrdersByFlight(_ context.Context, number airline.FlightNumber) ([]airline.Order, error) {
	var out []airline.Order
	for _, o := range s.orders {
		if o.FlightNumber == number {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *state) OrderSeats(_ context.Context, id airline.OrderID) ([]airline.OrderSeat, error) {
	return append([]airline.OrderSeat(nil), s.orderSeats[id]...), nil
}

func (s *state) OrderIDs(_ context.Context) ([]airline.OrderID, error) {
	out := make([]airline.OrderID, 0, len(s.orders))
	for id := range s.orders {
		out = append(out, id)
	}
	return out, nil
}

func (s *state) ActiveSeats(_ context.Context, number airline.FlightNumber) ([]seating.Position, error) {
	var out []seating.Position
	for id, o := range s.orders {
		if o.FlightNumber != number || o.Status != airline.OrderActive {
			continue
		}
		for _, link := range s.orderSeats[id] {
			out = append(out, seating.Position{Row: link.Row, Column: link.Column})
		}
	}
	return out, nil
}

// Maintenance

func (s *state) InsertMaintenanceRun(_ context.Context, run airline.MaintenanceRun) error {
	s.runs = append(s.runs, run)
	return nil
}

// ListMaintenanceRuns returns the newest runs first.
func (s *state) ListMaintenanceRuns(_ context.Context, limit int) ([]airline.MaintenanceRun, error) {
	out := make([]airline.MaintenanceRun, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.runs[i])
	}
	return out, nil
}
