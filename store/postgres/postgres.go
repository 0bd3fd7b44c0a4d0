/*
Package postgres provides a PostgreSQL implementation of airline.TxStore.

PURPOSE:
  Multi-node deployment target. Several engine processes can share one
  database: every WithTx runs at SERIALIZABLE isolation, so two
  reservations racing for the same seat cannot both commit. The loser
  gets a serialization failure, surfaced as ErrConcurrentModification
  and retried by the engine.

ERROR MAPPING:
  40001 serialization_failure  -> airline.ErrConcurrentModification
  40P01 deadlock_detected      -> airline.ErrConcurrentModification
  23505 unique_violation       -> airline.ErrIdentifierCollision
  23503 foreign_key_violation  -> airline.ErrNotFound

MIGRATIONS:
  Versioned SQL files under migrations/ are embedded in the binary and
  applied with goose on Open.

USAGE:
  store, err := postgres.Open(ctx, "postgres://flytau@localhost/flytau")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - airline/store.go:       interface definitions
  - store/sqlite/sqlite.go: single-node SQLite implementation
*/
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/flytau/ops-engine/airline"
	"github.com/flytau/ops-engine/seating"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements airline.TxStore on a pgx connection pool.
type Store struct {
	*repo
	pool *pgxpool.Pool
}

// Open connects to url, applies pending migrations and returns the store.
func Open(ctx context.Context, url string) (*Store, error) {
	if err := Migrate(url); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{repo: &repo{q: pool}, pool: pool}, nil
}

// Migrate applies the embedded migrations through database/sql.
func Migrate(url string) error {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// WithTx runs fn in a SERIALIZABLE transaction.
func (s *Store) WithTx(ctx context.Context, fn func(airline.Store) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return mapError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := fn(&repo{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapError(fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}

// Reset clears all data (for tests).
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE maintenance_runs, order_seats, orders, crew_assignments,
		flights, seats, employees, routes, aircraft`)
	return err
}

// =============================================================================
// REPO - airline.Store over a pool or a transaction
// =============================================================================

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type repo struct {
	q querier
}

func (r *repo) exec(ctx context.Context, what, query string, args ...any) error {
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		return mapError(fmt.Errorf("failed to %s: %w", what, err))
	}
	return nil
}

// Fleet

func (r *repo) InsertAircraft(ctx context.Context, a airline.Aircraft) error {
	return r.exec(ctx, "insert aircraft "+string(a.ID), `
		INSERT INTO aircraft (id, size, manufacturer, economy_capacity, business_capacity, purchase_date)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.Size, a.Manufacturer, a.EconomyCapacity, a.BusinessCapacity, nullTime(a.PurchaseDate))
}

const aircraftColumns = `id, size, manufacturer, economy_capacity, business_capacity, purchase_date`

func scanAircraft(row pgx.Row) (airline.Aircraft, error) {
	var a airline.Aircraft
	var purchased *time.Time
	if err := row.Scan(&a.ID, &a.Size, &a.Manufacturer, &a.EconomyCapacity, &a.BusinessCapacity, &purchased); err != nil {
		return a, err
	}
	if purchased != nil {
		a.PurchaseDate = purchased.UTC()
	}
	return a, nil
}

func (r *repo) GetAircraft(ctx context.Context, id airline.AircraftID) (airline.Aircraft, error) {
	a, err := scanAircraft(r.q.QueryRow(ctx, `SELECT `+aircraftColumns+` FROM aircraft WHERE id = $1`, id))
	return a, found(err, "aircraft", id)
}

func (r *repo) ListAircraft(ctx context.Context) ([]airline.Aircraft, error) {
	return queryAll(ctx, r.q, scanAircraft, `SELECT `+aircraftColumns+` FROM aircraft ORDER BY id`)
}

func (r *repo) InsertRoute(ctx context.Context, rt airline.Route) error {
	return r.exec(ctx, "insert route "+string(rt.ID), `
		INSERT INTO routes (id, origin, destination, duration_seconds) VALUES ($1, $2, $3, $4)`,
		rt.ID, rt.Origin, rt.Destination, int64(rt.Duration/time.Second))
}

const routeColumns = `id, origin, destination, duration_seconds`

func scanRoute(row pgx.Row) (airline.Route, error) {
	var rt airline.Route
	var seconds int64
	if err := row.Scan(&rt.ID, &rt.Origin, &rt.Destination, &seconds); err != nil {
		return rt, err
	}
	rt.Duration = time.Duration(seconds) * time.Second
	return rt, nil
}

func (r *repo) GetRoute(ctx context.Context, id airline.RouteID) (airline.Route, error) {
	rt, err := scanRoute(r.q.QueryRow(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = $1`, id))
	return rt, found(err, "route", id)
}

func (r *repo) FindRoute(ctx context.Context, origin, destination string) (airline.Route, error) {
	rt, err := scanRoute(r.q.QueryRow(ctx, `
		SELECT `+routeColumns+` FROM routes
		WHERE origin = $1 AND destination = $2
		ORDER BY id LIMIT 1`, origin, destination))
	return rt, found(err, "route", origin+"->"+destination)
}

func (r *repo) ListRoutes(ctx context.Context) ([]airline.Route, error) {
	return queryAll(ctx, r.q, scanRoute, `SELECT `+routeColumns+` FROM routes ORDER BY id`)
}

func (r *repo) InsertEmployee(ctx context.Context, e airline.Employee) error {
	return r.exec(ctx, "insert employee "+string(e.ID), `
		INSERT INTO employees (id, role, first_name, last_name, qualified) VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.Role, e.FirstName, e.LastName, e.Qualified)
}

const employeeColumns = `id, role, first_name, last_name, qualified`

func scanEmployee(row pgx.Row) (airline.Employee, error) {
	var e airline.Employee
	err := row.Scan(&e.ID, &e.Role, &e.FirstName, &e.LastName, &e.Qualified)
	return e, err
}

func (r *repo) GetEmployee(ctx context.Context, id airline.EmployeeID) (airline.Employee, error) {
	e, err := scanEmployee(r.q.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id))
	return e, found(err, "employee", id)
}

func (r *repo) ListEmployees(ctx context.Context, role airline.CrewRole) ([]airline.Employee, error) {
	return queryAll(ctx, r.q, scanEmployee, `
		SELECT `+employeeColumns+` FROM employees
		WHERE $1::text = '' OR role = $1::text
		ORDER BY id`, string(role))
}

// Seats

func (r *repo) InsertSeats(ctx context.Context, seats []seating.Seat) (int, error) {
	inserted := 0
	for _, seat := range seats {
		tag, err := r.q.Exec(ctx, `
			INSERT INTO seats (aircraft_id, row_num, col, class) VALUES ($1, $2, $3, $4)
			ON CONFLICT DO NOTHING`,
			seat.AircraftID, seat.Row, seat.Column, seat.Class)
		if err != nil {
			return inserted, mapError(fmt.Errorf("failed to insert seat %s/%s: %w", seat.AircraftID, seat.Code(), err))
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func scanSeat(row pgx.Row) (seating.Seat, error) {
	var s seating.Seat
	err := row.Scan(&s.AircraftID, &s.Row, &s.Column, &s.Class)
	return s, err
}

func (r *repo) ListSeats(ctx context.Context, aircraft airline.AircraftID) ([]seating.Seat, error) {
	return queryAll(ctx, r.q, scanSeat, `
		SELECT aircraft_id, row_num, col, class FROM seats
		WHERE aircraft_id = $1
		ORDER BY row_num, col`, aircraft)
}

// Flights

func (r *repo) InsertFlight(ctx context.Context, f airline.Flight) error {
	return r.exec(ctx, "insert flight "+string(f.Number), `
		INSERT INTO flights (number, aircraft_id, route_id, origin, destination, duration_seconds,
			status, departure, arrival, economy_price, business_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		f.Number, f.AircraftID, f.RouteID, f.Origin, f.Destination, int64(f.Duration/time.Second),
		f.Status, f.Departure, f.Arrival, f.EconomyPrice, f.BusinessPrice)
}

const flightColumns = `f.number, f.aircraft_id, f.route_id, f.origin, f.destination, f.duration_seconds,
	f.status, f.departure, f.arrival, f.economy_price, f.business_price`

func scanFlight(row pgx.Row) (airline.Flight, error) {
	var f airline.Flight
	var seconds int64
	if err := row.Scan(&f.Number, &f.AircraftID, &f.RouteID, &f.Origin, &f.Destination, &seconds,
		&f.Status, &f.Departure, &f.Arrival, &f.EconomyPrice, &f.BusinessPrice); err != nil {
		return f, err
	}
	f.Duration = time.Duration(seconds) * time.Second
	f.Departure = f.Departure.UTC()
	f.Arrival = f.Arrival.UTC()
	return f, nil
}

func (r *repo) GetFlight(ctx context.Context, number airline.FlightNumber) (airline.Flight, error) {
	f, err := scanFlight(r.q.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights f WHERE f.number = $1`, number))
	return f, found(err, "flight", number)
}

func (r *repo) UpdateFlightStatus(ctx context.Context, number airline.FlightNumber, status airline.FlightStatus) error {
	tag, err := r.q.Exec(ctx, `UPDATE flights SET status = $1 WHERE number = $2`, status, number)
	return affected(tag, err, "flight", number)
}

func (r *repo) ListFlights(ctx context.Context, filter airline.FlightFilter) ([]airline.Flight, error) {
	var where []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != "" {
		add("f.status = $%d", filter.Status)
	}
	if filter.Origin != "" {
		add("f.origin = $%d", filter.Origin)
	}
	if filter.Destination != "" {
		add("f.destination = $%d", filter.Destination)
	}
	if !filter.From.IsZero() {
		add("f.departure >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("f.departure < $%d", filter.To)
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
		WHERE f.aircraft_id = $1
		ORDER BY f.departure, f.number`, aircraft)
}

func (r *repo) FlightNumbers(ctx context.Context) ([]airline.FlightNumber, error) {
	return queryAll(ctx, r.q, func(row pgx.Row) (airline.FlightNumber, error) {
		var n airline.FlightNumber
		err := row.Scan(&n)
		return n, err
	}, `SELECT number FROM flights`)
}

// Crew

func (r *repo) InsertCrewAssignments(ctx context.Context, assignments []airline.CrewAssignment) error {
	for _, a := range assignments {
		if err := r.exec(ctx, "assign "+string(a.EmployeeID), `
			INSERT INTO crew_assignments (employee_id, flight_number, role) VALUES ($1, $2, $3)`,
			a.EmployeeID, a.FlightNumber, a.Role); err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) CrewForFlight(ctx context.Context, number airline.FlightNumber) ([]airline.CrewAssignment, error) {
	return queryAll(ctx, r.q, func(row pgx.Row) (airline.CrewAssignment, error) {
		var a airline.CrewAssignment
		err := row.Scan(&a.EmployeeID, &a.Role, &a.FlightNumber)
		return a, err
	}, `
		SELECT employee_id, role, flight_number FROM crew_assignments
		WHERE flight_number = $1
		ORDER BY role DESC, employee_id`, number)
}

func (r *repo) FlightsByEmployee(ctx context.Context, employee airline.EmployeeID) ([]airline.Flight, error) {
	return queryAll(ctx, r.q, scanFlight, `
		SELECT `+flightColumns+` FROM flights f
		JOIN crew_assignments c ON c.flight_number = f.number
		WHERE c.employee_id = $1
		ORDER BY f.departure, f.number`, employee)
}

// Orders

func (r *repo) InsertOrder(ctx context.Context, o airline.Order, seats []airline.OrderSeat) error {
	if err := r.exec(ctx, "insert order "+string(o.ID), `
		INSERT INTO orders (id, flight_number, guest_email, registered_email, status, price, created_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.FlightNumber, nullString(o.Purchaser.GuestEmail), nullString(o.Purchaser.RegisteredEmail),
		o.Status, o.Price, o.CreatedAt, o.CancelledAt); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, s := range seats {
		batch.Queue(`INSERT INTO order_seats (order_id, aircraft_id, row_num, col) VALUES ($1, $2, $3, $4)`,
			s.OrderID, s.AircraftID, s.Row, s.Column)
	}
	if batch.Len() == 0 {
		return nil
	}
	return r.sendBatch(ctx, batch)
}

func (r *repo) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	results := r.q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return mapError(fmt.Errorf("failed to link seat: %w", err))
		}
	}
	return mapError(results.Close())
}

const orderColumns = `id, flight_number, guest_email, registered_email, status, price, created_at, cancelled_at`

func scanOrder(row pgx.Row) (airline.Order, error) {
	var o airline.Order
	var guest, registered *string
	if err := row.Scan(&o.ID, &o.FlightNumber, &guest, &registered, &o.Status, &o.Price, &o.CreatedAt, &o.CancelledAt); err != nil {
		return o, err
	}
	if guest != nil {
		o.Purchaser.GuestEmail = *guest
	}
	if registered != nil {
		o.Purchaser.RegisteredEmail = *registered
	}
	o.CreatedAt = o.CreatedAt.UTC()
	if o.CancelledAt != nil {
		t := o.CancelledAt.UTC()
		o.CancelledAt = &t
	}
	return o, nil
}

func (r *repo) GetOrder(ctx context.Context, id airline.OrderID) (airline.Order, error) {
	o, err := scanOrder(r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	return o, found(err, "order", id)
}

func (r *repo) UpdateOrder(ctx context.Context, o airline.Order) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE orders SET status = $1, price = $2, cancelled_at = $3 WHERE id = $4`,
		o.Status, o.Price, o.CancelledAt, o.ID)
	return affected(tag, err, "order", o.ID)
}

func (r *repo) OrdersByFlight(ctx context.Context, number airline.FlightNumber) ([]airline.Order, error) {
	return queryAll(ctx, r.q, scanOrder, `
		SELECT `+orderColumns+` FROM orders
		WHERE flight_number = $1
		ORDER BY created_at, id`, number)
}

func (r *repo) OrderSeats(ctx context.Context, id airline.OrderID) ([]airline.OrderSeat, error) {
	return queryAll(ctx, r.q, func(row pgx.Row) (airline.OrderSeat, error) {
		var s airline.OrderSeat
		err := row.Scan(&s.OrderID, &s.AircraftID, &s.Row, &s.Column)
		return s, err
	}, `
		SELECT order_id, aircraft_id, row_num, col FROM order_seats
		WHERE order_id = $1
		ORDER BY row_num, col`, id)
}

func (r *repo) OrderIDs(ctx context.Context) ([]airline.OrderID, error) {
	return queryAll(ctx, r.q, func(row pgx.Row) (airline.OrderID, error) {
		var id airline.OrderID
		err := row.Scan(&id)
		return id, err
	}, `SELECT id FROM orders`)
}

func (r *repo) ActiveSeats(ctx context.Context, number airline.FlightNumber) ([]seating.Position, error) {
	return queryAll(ctx, r.q, func(row pgx.Row) (seating.Position, error) {
		var p seating.Position
		err := row.Scan(&p.Row, &p.Column)
		return p, err
	}, `
		SELECT s.row_num, s.col FROM order_seats s
		JOIN orders o ON o.id = s.order_id
		WHERE o.flight_number = $1 AND o.status = 'ACTIVE'
		ORDER BY s.row_num, s.col`, number)
}

// Maintenance

func (r *repo) InsertMaintenanceRun(ctx context.Context, run airline.MaintenanceRun) error {
	return r.exec(ctx, "record maintenance run", `
		INSERT INTO maintenance_runs (id, started_at, finished_at, flights_completed, orders_completed, error)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.StartedAt, run.FinishedAt, run.FlightsComplete, run.OrdersComplete, nullString(run.Error))
}

func (r *repo) ListMaintenanceRuns(ctx context.Context, limit int) ([]airline.MaintenanceRun, error) {
	var max *int
	if limit > 0 {
		max = &limit
	}
	return queryAll(ctx, r.q, func(row pgx.Row) (airline.MaintenanceRun, error) {
		var run airline.MaintenanceRun
		var errText *string
		if err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.FlightsComplete, &run.OrdersComplete, &errText); err != nil {
			return run, err
		}
		run.StartedAt = run.StartedAt.UTC()
		run.FinishedAt = run.FinishedAt.UTC()
		if errText != nil {
			run.Error = *errText
		}
		return run, nil
	}, `
		SELECT id, started_at, finished_at, flights_completed, orders_completed, error
		FROM maintenance_runs
		ORDER BY started_at DESC, id
		LIMIT $1`, max)
}

// =============================================================================
// HELPERS
// =============================================================================

func queryAll[T any](ctx context.Context, q querier, scan func(pgx.Row) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(fmt.Errorf("query failed: %w", err))
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, mapError(fmt.Errorf("scan failed: %w", err))
		}
		out = append(out, v)
	}
	return out, mapError(rows.Err())
}

func found(err error, kind string, id any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &airline.NotFoundError{Kind: kind, ID: fmt.Sprint(id)}
	}
	if err != nil {
		return mapError(fmt.Errorf("failed to load %s %v: %w", kind, id, err))
	}
	return nil
}

func affected(tag pgconn.CommandTag, err error, kind string, id any) error {
	if err != nil {
		return mapError(fmt.Errorf("failed to update %s %v: %w", kind, id, err))
	}
	if tag.RowsAffected() == 0 {
		return &airline.NotFoundError{Kind: kind, ID: fmt.Sprint(id)}
	}
	return nil
}

// mapError translates SQLSTATE codes into airline sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "40001", "40P01":
		return fmt.Errorf("%w: %v", airline.ErrConcurrentModification, err)
	case "23505":
		return fmt.Errorf("%w: %v", airline.ErrIdentifierCollision, err)
	case "23503":
		return fmt.Errorf("%w: referenced record missing: %v", airline.ErrNotFound, err)
	}
	return err
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
