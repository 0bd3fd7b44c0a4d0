/*
handlers.go - HTTP API handlers for the FlyTAU operations engine

PURPOSE:
  Exposes the airline engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates every decision to airline.Engine.

ENDPOINTS:
  Fleet:
    GET    /api/aircraft                 List aircraft
    POST   /api/aircraft                 Register aircraft (seats generated)
    GET    /api/aircraft/{id}/seats      Seat inventory
    GET    /api/routes                   List routes
    POST   /api/routes                   Register route
    GET    /api/staff?role=PILOT         List crew
    POST   /api/staff                    Register crew member

  Flights:
    GET    /api/flights?status=&origin=&destination=&date=YYYY-MM-DD
    GET    /api/flights/{num}            Flight with crew
    GET    /api/flights/{num}/seats      Seat map with prices and occupancy
    POST   /api/flights/{num}/reservations  Book seats
    POST   /api/flights/{num}/cancel     Cancel flight, refund active orders
    POST   /api/flights/{num}/recompute  Re-derive ACTIVE/FULL

  Orders:
    GET    /api/orders/{id}              Order with seats
    GET    /api/orders/{id}/cancellation Fee quote
    POST   /api/orders/{id}/cancel       Customer cancellation

  Drafts (stateless replay, see drafts.go):
    POST   /api/drafts/aircraft|crew|validate|commit

  Admin:
    POST   /api/admin/auto-complete      One maintenance pass
    GET    /api/admin/maintenance-runs   Recent passes
    POST   /api/admin/seed               Register a fleet document

ERROR HANDLING:
  Engine errors are mapped by writeEngineError:
  - 400: invalid input, invalid seat, incomplete draft
  - 403: purchaser email does not match the order
  - 404: unknown record
  - 409: rejected by a business rule, duplicate id
  - 503: concurrent modification or timeout (retry)
  - 500: anything else

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - drafts.go: Flight creation handlers
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flytau/ops-engine/airline"
	"github.com/flytau/ops-engine/factory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Resetter clears a store. Scenarios need it; every store provides it.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *airline.Engine
	Store  Resetter
	Fleet  *factory.FleetFactory

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler over engine. store may be nil, in
// which case scenarios are unavailable.
func NewHandler(engine *airline.Engine, store Resetter) *Handler {
	return &Handler{
		Engine: engine,
		Store:  store,
		Fleet:  factory.NewFleetFactory(),
	}
}

// =============================================================================
// FLEET HANDLERS
// =============================================================================

// ListAircraft returns all aircraft.
func (h *Handler) ListAircraft(w http.ResponseWriter, r *http.Request) {
	aircraft, err := h.Engine.Aircraft(r.Context())
	if err != nil {
		writeEngineError(w, "Failed to list aircraft", err)
		return
	}
	dtos := make([]AircraftDTO, len(aircraft))
	for i, a := range aircraft {
		dtos[i] = toAircraftDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAircraft registers an aircraft and generates its seats.
func (h *Handler) CreateAircraft(w http.ResponseWriter, r *http.Request) {
	var req CreateAircraftRequest
	if !decode(w, r, &req) {
		return
	}

	var purchased time.Time
	if req.PurchaseDate != "" {
		var err error
		purchased, err = time.Parse("2006-01-02", req.PurchaseDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid purchase_date format (use YYYY-MM-DD)", err)
			return
		}
	}

	a, err := airline.NewAircraft(airline.AircraftID(req.ID), airline.SizeClass(req.Size),
		airline.Manufacturer(req.Manufacturer), req.EconomySeats, req.BusinessSeats, purchased)
	if err != nil {
		writeEngineError(w, "Invalid aircraft", err)
		return
	}
	if err := h.Engine.RegisterAircraft(r.Context(), a); err != nil {
		writeEngineError(w, "Failed to register aircraft", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAircraftDTO(a))
}

// GetAircraftSeats returns an aircraft's seat inventory.
func (h *Handler) GetAircraftSeats(w http.ResponseWriter, r *http.Request) {
	seats, err := h.Engine.GenerateSeats(r.Context(), airline.AircraftID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, "Failed to load seats", err)
		return
	}
	dtos := make([]SeatDTO, len(seats))
	for i, s := range seats {
		dtos[i] = toSeatDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListRoutes returns all routes.
func (h *Handler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := h.Engine.Routes(r.Context())
	if err != nil {
		writeEngineError(w, "Failed to list routes", err)
		return
	}
	dtos := make([]RouteDTO, len(routes))
	for i, rt := range routes {
		dtos[i] = toRouteDTO(rt)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRoute registers a route.
func (h *Handler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	var req CreateRouteRequest
	if !decode(w, r, &req) {
		return
	}
	rt, err := airline.NewRoute(airline.RouteID(req.ID), req.Origin, req.Destination,
		time.Duration(req.DurationMinutes)*time.Minute)
	if err != nil {
		writeEngineError(w, "Invalid route", err)
		return
	}
	if err := h.Engine.RegisterRoute(r.Context(), rt); err != nil {
		writeEngineError(w, "Failed to register route", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRouteDTO(rt))
}

// ListStaff returns crew, optionally filtered by ?role=.
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	role := airline.CrewRole(r.URL.Query().Get("role"))
	if role != "" && !role.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown role", nil)
		return
	}
	staff, err := h.Engine.Staff(r.Context(), role)
	if err != nil {
		writeEngineError(w, "Failed to list staff", err)
		return
	}
	dtos := make([]EmployeeDTO, len(staff))
	for i, e := range staff {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateStaff registers a crew member.
func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if !decode(w, r, &req) {
		return
	}
	e, err := airline.NewEmployee(airline.EmployeeID(req.ID), airline.CrewRole(req.Role),
		req.FirstName, req.LastName, req.Qualified)
	if err != nil {
		writeEngineError(w, "Invalid employee", err)
		return
	}
	if err := h.Engine.RegisterEmployee(r.Context(), e); err != nil {
		writeEngineError(w, "Failed to register employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(e))
}

// =============================================================================
// FLIGHT HANDLERS
// =============================================================================

// ListFlights returns flights matching the query filters.
func (h *Handler) ListFlights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := airline.FlightFilter{
		Status:      airline.FlightStatus(q.Get("status")),
		Origin:      q.Get("origin"),
		Destination: q.Get("destination"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown status", nil)
		return
	}
	if date := q.Get("date"); date != "" {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
		filter.From, filter.To = day, day.AddDate(0, 0, 1)
	}

	flights, err := h.Engine.Flights(r.Context(), filter)
	if err != nil {
		writeEngineError(w, "Failed to list flights", err)
		return
	}
	dtos := make([]FlightDTO, len(flights))
	for i, f := range flights {
		dtos[i] = toFlightDTO(f)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetFlight returns one flight with its crew.
func (h *Handler) GetFlight(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Engine.Flight(r.Context(), flightParam(r))
	if err != nil {
		writeEngineError(w, "Failed to get flight", err)
		return
	}
	dto := toFlightDTO(detail.Flight)
	for _, c := range detail.Crew {
		dto.Crew = append(dto.Crew, CrewDTO{EmployeeID: string(c.EmployeeID), Role: string(c.Role)})
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetSeatMap returns the seat map of a flight.
func (h *Handler) GetSeatMap(w http.ResponseWriter, r *http.Request) {
	m, err := h.Engine.SeatMap(r.Context(), flightParam(r))
	if err != nil {
		writeEngineError(w, "Failed to load seat map", err)
		return
	}
	dto := SeatMapDTO{
		Flight:    toFlightDTO(m.Flight),
		Layout:    LayoutDTO{Left: m.Layout.Left, Middle: m.Layout.Middle, Right: m.Layout.Right},
		Seats:     make([]SeatDTO, len(m.Seats)),
		Available: m.Available(),
	}
	for i, s := range m.Seats {
		seat := toSeatDTO(s.Seat)
		seat.Price = money(s.Price)
		seat.Taken = s.Taken
		dto.Seats[i] = seat
	}
	writeJSON(w, http.StatusOK, dto)
}

// Reserve books seats on a flight.
func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	var req ReservationRequest
	if !decode(w, r, &req) {
		return
	}

	purchaser := airline.Purchaser{GuestEmail: req.Email}
	if req.Registered {
		purchaser = airline.Purchaser{RegisteredEmail: req.Email}
	}
	passengers := req.Passengers
	if passengers == 0 {
		passengers = len(req.Seats)
	}

	res, err := h.Engine.ReserveSeats(r.Context(), airline.ReservationRequest{
		Flight:     flightParam(r),
		SeatCodes:  req.Seats,
		Passengers: passengers,
		Purchaser:  purchaser,
	})
	if err != nil {
		writeEngineError(w, "Reservation failed", err)
		return
	}

	order := toOrderDTO(res.Order, nil)
	for _, s := range res.Seats {
		order.Seats = append(order.Seats, s.Code())
	}
	writeJSON(w, http.StatusCreated, ReservationDTO{Order: order, FlightStatus: string(res.Status)})
}

// CancelFlight cancels a flight and refunds its active orders.
func (h *Handler) CancelFlight(w http.ResponseWriter, r *http.Request) {
	refunded, err := h.Engine.CancelFlight(r.Context(), flightParam(r))
	if err != nil {
		writeEngineError(w, "Failed to cancel flight", err)
		return
	}
	dtos := make([]OrderDTO, len(refunded))
	for i, o := range refunded {
		dtos[i] = toOrderDTO(o, nil)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"number":   chi.URLParam(r, "num"),
		"status":   airline.FlightCancelled,
		"refunded": dtos,
	})
}

// RecomputeStatus re-derives ACTIVE/FULL from occupancy.
func (h *Handler) RecomputeStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Engine.RecomputeStatus(r.Context(), flightParam(r))
	if err != nil {
		writeEngineError(w, "Failed to recompute status", err)
		return
	}
	writeJSON(w, http.StatusOK, FlightStatusDTO{Number: chi.URLParam(r, "num"), Status: string(status)})
}

// =============================================================================
// ORDER HANDLERS
// =============================================================================

// GetOrder returns an order with its seats.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Engine.Order(r.Context(), airline.OrderID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, "Failed to get order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(detail.Order, detail.Seats))
}

// QuoteCancellation shows the fee before the customer confirms.
func (h *Handler) QuoteCancellation(w http.ResponseWriter, r *http.Request) {
	q, err := h.Engine.QuoteCancellation(r.Context(), airline.OrderID(chi.URLParam(r, "id")))
	if err != nil {
		writeEngineError(w, "Failed to quote cancellation", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteDTO(q))
}

// CancelOrder cancels an order on behalf of its purchaser.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if !decode(w, r, &req) {
		return
	}
	id := airline.OrderID(chi.URLParam(r, "id"))

	detail, err := h.Engine.Order(r.Context(), id)
	if err != nil {
		writeEngineError(w, "Failed to get order", err)
		return
	}
	if !detail.Purchaser.Matches(req.Email) {
		writeError(w, http.StatusForbidden, "Email does not match the order", nil)
		return
	}

	q, err := h.Engine.CancelByCustomer(r.Context(), id)
	if err != nil {
		writeEngineError(w, "Failed to cancel order", err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteDTO(q))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerAutoComplete runs one maintenance pass now.
func (h *Handler) TriggerAutoComplete(w http.ResponseWriter, r *http.Request) {
	run, err := h.Engine.RunMaintenance(r.Context())
	if err != nil {
		writeEngineError(w, "Maintenance pass failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toMaintenanceRunDTO(run))
}

// ListMaintenanceRuns returns recent maintenance passes, newest first.
func (h *Handler) ListMaintenanceRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}
	runs, err := h.Engine.MaintenanceRuns(r.Context(), limit)
	if err != nil {
		writeEngineError(w, "Failed to list maintenance runs", err)
		return
	}
	dtos := make([]MaintenanceRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toMaintenanceRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Seed registers every record of a fleet document in the body.
func (h *Handler) Seed(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}
	fleet, err := h.Fleet.ParseFleet(string(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid fleet document", err)
		return
	}
	sum, err := h.Fleet.Apply(r.Context(), h.Engine, fleet)
	if err != nil {
		writeEngineError(w, "Failed to seed fleet", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// =============================================================================
// HELPERS
// =============================================================================

func flightParam(r *http.Request) airline.FlightNumber {
	return airline.FlightNumber(chi.URLParam(r, "num"))
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case airline.IsNotFound(err):
		return http.StatusNotFound
	case airline.IsRetryable(err):
		return http.StatusServiceUnavailable
	case airline.IsClientError(err):
		return http.StatusBadRequest
	case airline.IsRejected(err), errors.Is(err, airline.ErrIdentifierCollision):
		return http.StatusConflict
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeEngineError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}
