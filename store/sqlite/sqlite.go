/*
Package sqlite provides a SQLite-backed implementation of airline.TxStore.

PURPOSE:
  Persists the fleet, schedule, seat inventory and orders for a single
  FlyTAU node. The same contract is implemented for PostgreSQL in
  store/postgres; only the dialect differs.

INTERFACES IMPLEMENTED:
  airline.Store:   typed reads and writes
  airline.TxStore: WithTx

KEY TABLES:
  aircraft, routes, employees: fleet and staff
  seats:            (aircraft_id, row_num, col) inventory, insert-only
  flights:          schedule, origin/destination copied from the route
  crew_assignments: insert-only
  orders:           exactly one of guest_email / registered_email
  order_seats:      insert-only links, occupancy comes from order status
  maintenance_runs: audit of AutoComplete passes

CONCURRENCY:
  The database is opened with a single connection, so a transaction owns
  the connection until it commits. WithTx additionally holds the store
  mutex. Together this makes every transaction serializable, which is
  what the seat reservation critical section needs. SQLITE_BUSY and
  SQLITE_LOCKED surface as airline.ErrConcurrentModification.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Readers don't block the writer
  - Better crash recovery

TIME FORMAT:
  Instants are stored as UTC text in a fixed-width layout, so string
  comparison in SQL matches time order.

USAGE:
  store, err := sqlite.New("./data/flytau.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := airline.NewEngine(store)

SEE ALSO:
  - airline/store.go:          interface definitions
  - airline/store/memory.go:   in-memory implementation for testing
  - store/postgres/postgres.go: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/flytau/ops-engine/airline"
	"github.com/flytau/ops-engine/seating"
)

const timeLayout = "2006-01-02 15:04:05.000000000"

// Store implements airline.TxStore using SQLite.
type Store struct {
	*repo
	db *sql.DB
	mu sync.Mutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{repo: &repo{q: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS aircraft (
		id TEXT PRIMARY KEY,
		size TEXT NOT NULL CHECK (size IN ('SMALL', 'BIG')),
		manufacturer TEXT NOT NULL,
		economy_capacity INTEGER NOT NULL CHECK (economy_capacity >= 0),
		business_capacity INTEGER NOT NULL CHECK (business_capacity >= 0),
		purchase_date TEXT
	);

	CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL CHECK (duration_seconds > 0)
	);

	CREATE INDEX IF NOT EXISTS idx_routes_origin_destination
		ON routes(origin, destination);

	-- One role per employee id, enforced by the primary key.
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		role TEXT NOT NULL CHECK (role IN ('PILOT', 'ATTENDANT')),
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		qualified BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS seats (
		aircraft_id TEXT NOT NULL REFERENCES aircraft(id),
		row_num INTEGER NOT NULL,
		col TEXT NOT NULL,
		class TEXT NOT NULL CHECK (class IN ('ECONOMY', 'BUSINESS')),
		PRIMARY KEY (aircraft_id, row_num, col)
	);

	CREATE TABLE IF NOT EXISTS flights (
		number TEXT PRIMARY KEY,
		aircraft_id TEXT NOT NULL REFERENCES aircraft(id),
		route_id TEXT NOT NULL REFERENCES routes(id),
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('ACTIVE', 'FULL', 'COMPLETED', 'CANCELLED')),
		departure TEXT NOT NULL,
		arrival TEXT NOT NULL,
		economy_price TEXT NOT NULL,
		business_price TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_flights_aircraft ON flights(aircraft_id, departure);
	CREATE INDEX IF NOT EXISTS idx_flights_status ON flights(status);

	CREATE TABLE IF NOT EXISTS crew_assignments (
		employee_id TEXT NOT NULL REFERENCES employees(id),
		flight_number TEXT NOT NULL REFERENCES flights(number),
		role TEXT NOT NULL,
		PRIMARY KEY (employee_id, flight_number)
	);

	CREATE INDEX IF NOT EXISTS idx_crew_flight ON crew_assignments(flight_number);

	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		flight_number TEXT NOT NULL REFERENCES flights(number),
		guest_email TEXT,
		registered_email TEXT,
		status TEXT NOT NULL CHECK (status IN ('ACTIVE', 'COMPLETED', 'CUSTOMER_CANCELLED', 'SYSTEM_CANCELLED')),
		price TEXT NOT NULL,
		created_at TEXT NOT NULL,
		cancelled_at TEXT,
		CHECK ((guest_email IS NULL) <> (registered_email IS NULL))
	);

	CREATE INDEX IF NOT EXISTS idx_orders_flight_status ON orders(flight_number, status);

	CREATE TABLE IF NOT EXISTS order_seats (
		order_id TEXT NOT NULL REFERENCES orders(id),
		aircraft_id TEXT NOT NULL,
		row_num INTEGER NOT NULL,
		col TEXT NOT NULL,
		PRIMARY KEY (order_id, aircraft_id, row_num, col),
		FOREIGN KEY (aircraft_id, row_num, col) REFERENCES seats(aircraft_id, row_num, col)
	);

	CREATE TABLE IF NOT EXISTS maintenance_runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		flights_completed INTEGER NOT NULL DEFAULT 0,
		orders_completed INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (airline.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store airline.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer sqlTx.Rollback()

	if err := fn(&repo{q: sqlTx}); err != nil {
		return err
	}

	return mapError(sqlTx.Commit())
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"maintenance_runs", "order_seats", "orders", "crew_assignments", "flights", "seats", "employees", "routes", "aircraft"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// REPO - airline.Store over *sql.DB or *sql.Tx
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type repo struct {
	q querier
}

func (r *repo) exec(ctx context.Context, what, query string, args ...any) error {
	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return mapError(fmt.Errorf("failed to %s: %w", what, err))
	}
	return nil
}

// Fleet

func (r *repo) InsertAircraft(ctx context.Context, a airline.Aircraft) error {
	return r.exec(ctx, "insert aircraft "+string(a.ID), `
		INSERT INTO aircraft (id, size, manufacturer, economy_capacity, business_capacity, purchase_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Size, a.Manufacturer, a.EconomyCapacity, a.BusinessCapacity, formatTime(a.PurchaseDate))
}

const aircraftColumns = `id, size, manufacturer, economy_capacity, business_capacity, purchase_date`

func scanAircraft(row scanner) (airline.Aircraft, error) {
	var a airline.Aircraft
	var purchased sql.NullString
	if err := row.Scan(&a.ID, &a.Size, &a.Manufacturer, &a.EconomyCapacity, &a.BusinessCapacity, &purchased); err != nil {
		return a, err
	}
	var dec decoder
	a.PurchaseDate = dec.time("aircraft.purchase_date", purchased.String)
	return a, dec.err
}

func (r *repo) GetAircraft(ctx context.Context, id airline.AircraftID) (airline.Aircraft, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+aircraftColumns+` FROM aircraft WHERE id = ?`, id)
	a, err := scanAircraft(row)
	return a, found(err, "aircraft", id)
}

func (r *repo) ListAircraft(ctx context.Context) ([]airline.Aircraft, error) {
	return queryAll(ctx, r.q, scanAircraft, `SELECT `+aircraftColumns+` FROM aircraft ORDER BY id`)
}

func (r *repo) InsertRoute(ctx context.Context, rt airline.Route) error {
	return r.exec(ctx, "insert route "+string(rt.ID), `
		INSERT INTO routes (id, origin, destination, duration_seconds) VALUES (?, ?, ?, ?)`,
		rt.ID, rt.Origin, rt.Destination, int64(rt.Duration/time.Second))
}

const routeColumns = `id, origin, destination, duration_seconds`

func scanRoute(row scanner) (airline.Route, error) {
	var rt airline.Route
	var seconds int64
	if err := row.Scan(&rt.ID, &rt.Origin, &rt.Destination, &seconds); err != nil {
		return rt, err
	}
	rt.Duration = time.Duration(seconds) * time.Second
	return rt, nil
}

func (r *repo) GetRoute(ctx context.Context, id airline.RouteID) (airline.Route, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = ?`, id)
	rt, err := scanRoute(row)
	return rt, found(err, "route", id)
}

func (r *repo) FindRoute(ctx context.Context, origin, destination string) (airline.Route, error) {
	row := r.q.QueryRowContext(ctx, `
		SELECT `+routeColumns+` FROM routes
		WHERE origin = ? AND destination = ?
		ORDER BY id LIMIT 1`, origin, destination)
	rt, err := scanRoute(row)
	return rt, found(err, "route", origin+"->"+destination)
}

func (r *repo) ListRoutes(ctx context.Context) ([]airline.Route, error) {
	return queryAll(ctx, r.q, scanRoute, `SELECT `+routeColumns+` FROM routes ORDER BY id`)
}

func (r *repo) InsertEmployee(ctx context.Context, e airline.Employee) error {
	return r.exec(ctx, "insert employee "+string(e.ID), `
		INSERT INTO employees (id, role, first_name, last_name, qualified) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Role, e.FirstName, e.LastName, e.Qualified)
}

const employeeColumns = `id, role, first_name, last_name, qualified`

func scanEmployee(row scanner) (airline.Employee, error) {
	var e airline.Employee
	err := row.Scan(&e.ID, &e.Role, &e.FirstName, &e.LastName, &e.Qualified)
	return e, err
}

func (r *repo) GetEmployee(ctx context.Context, id airline.EmployeeID) (airline.Employee, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id)
	e, err := scanEmployee(row)
	return e, found(err, "employee", id)
}

func (r *repo) ListEmployees(ctx context.Context, role airline.CrewRole) ([]airline.Employee, error) {
	return queryAll(ctx, r.q, scanEmployee, `
		SELECT `+employeeColumns+` FROM employees
		WHERE ? = '' OR role = ?
		ORDER BY id`, role, role)
}

// Seats

func (r *repo) InsertSeats(ctx context.Context, seats []seating.Seat) (int, error) {
	inserted := 0
	for _, seat := range seats {
		res, err := r.q.ExecContext(ctx, `
			INSERT OR IGNORE INTO seats (aircraft_id, row_num, col, class) VALUES (?, ?, ?, ?)`,
			seat.AircraftID, seat.Row, seat.Column, seat.Class)
		if err != nil {
			return inserted, mapError(fmt.Errorf("failed to insert seat %s/%s: %w", seat.AircraftID, seat.Code(), err))
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	return inserted, nil
}

func scanSeat(row scanner) (seating.Seat, error) {
	var s seating.Seat
	err := row.Scan(&s.AircraftID, &s.Row, &s.Column, &s.Class)
	return s, err
}

func (r *repo) ListSeats(ctx context.Context, aircraft airline.AircraftID) ([]seating.Seat, error) {
	return queryAll(ctx, r.q, scanSeat, `
		SELECT aircraft_id, row_num, col, class FROM seats
		WHERE aircraft_id = ?
		ORDER BY row_num, col`, aircraft)
}

// Flights

func (r *repo) InsertFlight(ctx context.Context, f airline.Flight) error {
	return r.exec(ctx, "insert flight "+string(f.Number), `
		INSERT INTO flights (number, aircraft_id, route_id, origin, destination, duration_seconds,
			status, departure, arrival, economy_price, business_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Number, f.AircraftID, f.RouteID, f.Origin, f.Destination, int64(f.Duration/time.Second),
		f.Status, formatTime(f.Departure), formatTime(f.Arrival), f.EconomyPrice.String(), f.BusinessPrice.String())
}

const flightColumns = `f.number, f.aircraft_id, f.route_id, f.origin, f.destination, f.duration_seconds,
	f.status, f.departure, f.arrival, f.economy_price, f.business_price`

func scanFlight(row scanner) (airline.Flight, error) {
	var f airline.Flight
	var seconds int64
	var dep, arr, economy, business string
	if err := row.Scan(&f.Number, &f.AircraftID, &f.RouteID, &f.Origin, &f.Destination, &seconds,
		&f.Status, &dep, &arr, &economy, &business); err != nil {
		return f, err
	}
	f.Duration = time.Duration(seconds) * time.Second
	var dec decoder
	f.Departure = dec.time("flights.departure", dep)
	f.Arrival = dec.time("flights.arrival", arr)
	f.EconomyPrice = dec.decimal("flights.economy_price", economy)
	f.BusinessPrice = dec.decimal("flights.business_price", business)
	return f, dec.err
}

func (r *repo) GetFlight(ctx context.Context, number airline.FlightNumber) (airline.Flight, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+flightColumns+` FROM flights f WHERE f.number = ?`, number)
	f, err := scanFlight(row)
	return f, found(err, "flight", number)
}

func (r *repo) UpdateFlightStatus(ctx context.Context, number airline.FlightNumber, status airline.FlightStatus) error {
	res, err := r.q.ExecContext(ctx, `UPDATE flights SET status = ? WHERE number = ?`, status, number)
	return affected(res, err, "flight", number)
}

func (r *repo) ListFlights(ctx context.Context, filter airline.FlightFilter) ([]airline.Flight, error) {
	var where []string
	var args []any
	if filter.Status != "" {
		where, args = append(where, "f.status = ?"), append(args, filter.Status)
	}
	if filter.Origin != "" {
		where, args = append(where, "f.origin = ?"), append(args, filter.Origin)
	}
	if filter.Destination != "" {
		where, args = append(where, "f.destination = ?"), append(args, filter.Destination)
	}
	if !filter.From.IsZero() {
		where, args = append(where, "f.departure >= ?"), append(args, formatTime(filter.From))
	}
	if !filter.To.IsZero() {
		where, args = append(where, "f.departure < ?"), append(args, formatTime(filter.To))
	}

	query := `SELECT ` + flightColumns + ` FROM flights f`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY f.departure, f.number`
	return queryAll(ctx, r.q, scanFlight, query, args...)
}

func (r *repo) FlightsByAircraft(ctx context.Context, aircraft airline.AircraftID) ([]airline.Flight, error) {
	return queryAll(ctx, r.q, scanFlight, `
		SELECT `+flightColumns+` FROM flights f
		WHERE f.aircraft_id = ?
		ORDER BY f.departure, f.number`, aircraft)
}

func (r *repo) FlightNumbers(ctx context.Context) ([]airline.FlightNumber, error) {
	return queryAll(ctx, r.q, func(row scanner) (airline.FlightNumber, error) {
		var n airline.FlightNumber
		err := row.Scan(&n)
		return n, err
	}, `SELECT number FROM flights`)
}

// Crew

func (r *repo) InsertCrewAssignments(ctx context.Context, assignments []airline.CrewAssignment) error {
	for _, a := range assignments {
		if err := r.exec(ctx, "assign "+string(a.EmployeeID), `
			INSERT INTO crew_assignments (employee_id, flight_number, role) VALUES (?, ?, ?)`,
			a.EmployeeID, a.FlightNumber, a.Role); err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) CrewForFlight(ctx context.Context, number airline.FlightNumber) ([]airline.CrewAssignment, error) {
	return queryAll(ctx, r.q, func(row scanner) (airline.CrewAssignment, error) {
		var a airline.CrewAssignment
		err := row.Scan(&a.EmployeeID, &a.Role, &a.FlightNumber)
		return a, err
	}, `
		SELECT employee_id, role, flight_number FROM crew_assignments
		WHERE flight_number = ?
		ORDER BY role DESC, employee_id`, number)
}

func (r *repo) FlightsByEmployee(ctx context.Context, employee airline.EmployeeID) ([]airline.Flight, error) {
	return queryAll(ctx, r.q, scanFlight, `
		SELECT `+flightColumns+` FROM flights f
		JOIN crew_assignments c ON c.flight_number = f.number
		WHERE c.employee_id = ?
		ORDER BY f.departure, f.number`, employee)
}

// Orders

func (r *repo) InsertOrder(ctx context.Context, o airline.Order, seats []airline.OrderSeat) error {
	if err := r.exec(ctx, "insert order "+string(o.ID), `
		INSERT INTO orders (id, flight_number, guest_email, registered_email, status, price, created_at, cancelled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.FlightNumber, nullString(o.Purchaser.GuestEmail), nullString(o.Purchaser.RegisteredEmail),
		o.Status, o.Price.String(), formatTime(o.CreatedAt), nullTime(o.CancelledAt)); err != nil {
		return err
	}
	for _, s := range seats {
		if err := r.exec(ctx, "link seat", `
			INSERT INTO order_seats (order_id, aircraft_id, row_num, col) VALUES (?, ?, ?, ?)`,
			s.OrderID, s.AircraftID, s.Row, s.Column); err != nil {
			return err
		}
	}
	return nil
}

const orderColumns = `id, flight_number, guest_email, registered_email, status, price, created_at, cancelled_at`

func scanOrder(row scanner) (airline.Order, error) {
	var o airline.Order
	var guest, registered, cancelled sql.NullString
	var price, created string
	if err := row.Scan(&o.ID, &o.FlightNumber, &guest, &registered, &o.Status, &price, &created, &cancelled); err != nil {
		return o, err
	}
	o.Purchaser = airline.Purchaser{GuestEmail: guest.String, RegisteredEmail: registered.String}
	var dec decoder
	o.Price = dec.decimal("orders.price", price)
	o.CreatedAt = dec.time("orders.created_at", created)
	if cancelled.Valid {
		t := dec.time("orders.cancelled_at", cancelled.String)
		o.CancelledAt = &t
	}
	return o, dec.err
}

func (r *repo) GetOrder(ctx context.Context, id airline.OrderID) (airline.Order, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	return o, found(err, "order", id)
}

func (r *repo) UpdateOrder(ctx context.Context, o airline.Order) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE orders SET status = ?, price = ?, cancelled_at = ? WHERE id = ?`,
		o.Status, o.Price.String(), nullTime(o.CancelledAt), o.ID)
	return affected(res, err, "order", o.ID)
}

func (r *repo) OrdersByFlight(ctx context.Context, number airline.FlightNumber) ([]airline.Order, error) {
	return queryAll(ctx, r.q, scanOrder, `
		SELECT `+orderColumns+` FROM orders
		WHERE flight_number = ?
		ORDER BY created_at, id`, number)
}

func (r *repo) OrderSeats(ctx context.Context, id airline.OrderID) ([]airline.OrderSeat, error) {
	return queryAll(ctx, r.q, func(row scanner) (airline.OrderSeat, error) {
		var s airline.OrderSeat
		err := row.Scan(&s.OrderID, &s.AircraftID, &s.Row, &s.Column)
		return s, err
	}, `
		SELECT order_id, aircraft_id, row_num, col FROM order_seats
		WHERE order_id = ?
		ORDER BY row_num, col`, id)
}

func (r *repo) OrderIDs(ctx context.Context) ([]airline.OrderID, error) {
	return queryAll(ctx, r.q, func(row scanner) (airline.OrderID, error) {
		var id airline.OrderID
		err := row.Scan(&id)
		return id, err
	}, `SELECT id FROM orders`)
}

func (r *repo) ActiveSeats(ctx context.Context, number airline.FlightNumber) ([]seating.Position, error) {
	return queryAll(ctx, r.q, func(row scanner) (seating.Position, error) {
		var p seating.Position
		err := row.Scan(&p.Row, &p.Column)
		return p, err
	}, `
		SELECT s.row_num, s.col FROM order_seats s
		JOIN orders o ON o.id = s.order_id
		WHERE o.flight_number = ? AND o.status = 'ACTIVE'
		ORDER BY s.row_num, s.col`, number)
}

// Maintenance

func (r *repo) InsertMaintenanceRun(ctx context.Context, run airline.MaintenanceRun) error {
	return r.exec(ctx, "record maintenance run", `
		INSERT INTO maintenance_runs (id, started_at, finished_at, flights_completed, orders_completed, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.FlightsComplete, run.OrdersComplete, nullString(run.Error))
}

func (r *repo) ListMaintenanceRuns(ctx context.Context, limit int) ([]airline.MaintenanceRun, error) {
	if limit <= 0 {
		limit = -1
	}
	return queryAll(ctx, r.q, func(row scanner) (airline.MaintenanceRun, error) {
		var run airline.MaintenanceRun
		var started, finished string
		var errText sql.NullString
		if err := row.Scan(&run.ID, &started, &finished, &run.FlightsComplete, &run.OrdersComplete, &errText); err != nil {
			return run, err
		}
		var dec decoder
		run.StartedAt = dec.time("maintenance_runs.started_at", started)
		run.FinishedAt = dec.time("maintenance_runs.finished_at", finished)
		run.Error = errText.String
		return run, dec.err
	}, `
		SELECT id, started_at, finished_at, flights_completed, orders_completed, error
		FROM maintenance_runs
		ORDER BY started_at DESC, id
		LIMIT ?`, limit)
}

// =============================================================================
// HELPERS
// =============================================================================

func queryAll[T any](ctx context.Context, q querier, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(fmt.Errorf("query failed: %w", err))
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		out = append(out, v)
	}
	return out, mapError(rows.Err())
}

// found turns sql.ErrNoRows into a typed not-found error.
func found(err error, kind string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &airline.NotFoundError{Kind: kind, ID: fmt.Sprint(id)}
	}
	if err != nil {
		return mapError(fmt.Errorf("failed to load %s %v: %w", kind, id, err))
	}
	return nil
}

func affected(res sql.Result, err error, kind string, id any) error {
	if err != nil {
		return mapError(fmt.Errorf("failed to update %s %v: %w", kind, id, err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &airline.NotFoundError{Kind: kind, ID: fmt.Sprint(id)}
	}
	return nil
}

// mapError translates SQLite result codes into airline sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var sqlErr sqlite3.Error
	if !errors.As(err, &sqlErr) {
		return err
	}
	switch {
	case sqlErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey,
		sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique:
		return fmt.Errorf("%w: %v", airline.ErrIdentifierCollision, err)
	case sqlErr.ExtendedCode == sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("%w: referenced record missing: %v", airline.ErrNotFound, err)
	case sqlErr.Code == sqlite3.ErrBusy, sqlErr.Code == sqlite3.ErrLocked:
		return fmt.Errorf("%w: %v", airline.ErrConcurrentModification, err)
	}
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// decoder parses text columns back into values and keeps the first
// failure, so a corrupt row is reported instead of read back as zero.
type decoder struct {
	err error
}

func (d *decoder) time(column, s string) time.Time {
	if s == "" || d.err != nil {
		return time.Time{}
	}
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		d.err = fmt.Errorf("corrupt %s %q: %w", column, s, err)
	}
	return t
}

func (d *decoder) decimal(column, s string) decimal.Decimal {
	if d.err != nil {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		d.err = fmt.Errorf("corrupt %s %q: %w", column, s, err)
	}
	return v
}
