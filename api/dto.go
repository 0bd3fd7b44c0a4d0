/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the airline model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AND TIME:
  Amounts are decimal strings with two places ("149.90"). Instants are
  RFC 3339 in UTC.

VALIDATION:
  Validation is done in handlers and the engine, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/fleet.go: fleet document types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/flytau/ops-engine/airline"
	"github.com/flytau/ops-engine/seating"
)

// =============================================================================
// FLEET
// =============================================================================

type AircraftDTO struct {
	ID            string `json:"id"`
	Size          string `json:"size"`
	Manufacturer  string `json:"manufacturer"`
	EconomySeats  int    `json:"economy_seats"`
	BusinessSeats int    `json:"business_seats"`
	PurchaseDate  string `json:"purchase_date,omitempty"`
}

type CreateAircraftRequest struct {
	ID            string `json:"id"`
	Size          string `json:"size"`
	Manufacturer  string `json:"manufacturer"`
	EconomySeats  int    `json:"economy_seats"`
	BusinessSeats int    `json:"business_seats"`
	PurchaseDate  string `json:"purchase_date"` // YYYY-MM-DD, optional
}

type RouteDTO struct {
	ID              string `json:"id"`
	Origin          string `json:"origin"`
	Destination     string `json:"destination"`
	DurationMinutes int    `json:"duration_minutes"`
	LongHaul        bool   `json:"long_haul"`
}

type CreateRouteRequest struct {
	ID              string `json:"id"`
	Origin          string `json:"origin"`
	Destination     string `json:"destination"`
	DurationMinutes int    `json:"duration_minutes"`
}

type EmployeeDTO struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Qualified bool   `json:"long_haul_qualified"`
}

type CreateEmployeeRequest struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Qualified bool   `json:"long_haul_qualified"`
}

// =============================================================================
// FLIGHTS AND SEATS
// =============================================================================

type FlightDTO struct {
	Number        string    `json:"number"`
	AircraftID    string    `json:"aircraft_id"`
	RouteID       string    `json:"route_id"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	Status        string    `json:"status"`
	Departure     time.Time `json:"departure"`
	Arrival       time.Time `json:"arrival"`
	EconomyPrice  string    `json:"economy_price"`
	BusinessPrice string    `json:"business_price"`
	Crew          []CrewDTO `json:"crew,omitempty"`
}

type CrewDTO struct {
	EmployeeID string `json:"employee_id"`
	Role       string `json:"role"`
}

type SeatDTO struct {
	Code  string `json:"code"`
	Row   int    `json:"row"`
	Col   string `json:"col"`
	Class string `json:"class"`
	Price string `json:"price,omitempty"`
	Taken bool   `json:"taken"`
}

type LayoutDTO struct {
	Left   []string `json:"left"`
	Middle []string `json:"middle,omitempty"`
	Right  []string `json:"right"`
}

type SeatMapDTO struct {
	Flight    FlightDTO `json:"flight"`
	Layout    LayoutDTO `json:"layout"`
	Seats     []SeatDTO `json:"seats"`
	Available int       `json:"available"`
}

type FlightStatusDTO struct {
	Number string `json:"number"`
	Status string `json:"status"`
}

// =============================================================================
// ORDERS
// =============================================================================

type ReservationRequest struct {
	Seats      []string `json:"seats"`
	Passengers int      `json:"passengers"`
	Email      string   `json:"email"`
	Registered bool     `json:"registered"` // email belongs to a registered customer
}

type OrderDTO struct {
	ID              string     `json:"id"`
	FlightNumber    string     `json:"flight_number"`
	Status          string     `json:"status"`
	Price           string     `json:"price"`
	GuestEmail      string     `json:"guest_email,omitempty"`
	RegisteredEmail string     `json:"registered_email,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	Seats           []string   `json:"seats,omitempty"`
}

type ReservationDTO struct {
	Order        OrderDTO `json:"order"`
	FlightStatus string   `json:"flight_status"`
}

type CancellationQuoteDTO struct {
	Order     OrderDTO `json:"order"`
	Fee       string   `json:"fee"`
	NewPrice  string   `json:"new_price"`
	Refund    string   `json:"refund"`
	HoursLeft float64  `json:"hours_left"`
}

type CancelOrderRequest struct {
	Email string `json:"email"`
}

// =============================================================================
// DRAFTS
// =============================================================================

// DraftRequest carries every selection the client has made so far. The
// handlers replay the steps in order against live data.
type DraftRequest struct {
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	Departure     time.Time `json:"departure"`
	AircraftID    string    `json:"aircraft_id,omitempty"`
	Pilots        []string  `json:"pilots,omitempty"`
	Attendants    []string  `json:"attendants,omitempty"`
	EconomyPrice  string    `json:"economy_price,omitempty"`
	BusinessPrice string    `json:"business_price,omitempty"`
}

type DraftDTO struct {
	RouteID       string    `json:"route_id"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	Departure     time.Time `json:"departure"`
	Arrival       time.Time `json:"arrival"`
	LongHaul      bool      `json:"long_haul"`
	AircraftID    string    `json:"aircraft_id,omitempty"`
	Pilots        []string  `json:"pilots,omitempty"`
	Attendants    []string  `json:"attendants,omitempty"`
	EconomyPrice  string    `json:"economy_price,omitempty"`
	BusinessPrice string    `json:"business_price,omitempty"`
	Missing       []string  `json:"missing"`
}

type DraftAircraftDTO struct {
	Draft      DraftDTO      `json:"draft"`
	Candidates []AircraftDTO `json:"candidates"`
}

type DraftCrewDTO struct {
	Draft      DraftDTO      `json:"draft"`
	Pilots     []EmployeeDTO `json:"pilots"`
	Attendants []EmployeeDTO `json:"attendants"`
	Required   struct {
		Pilots     int `json:"pilots"`
		Attendants int `json:"attendants"`
	} `json:"required"`
}

// =============================================================================
// ADMIN
// =============================================================================

type MaintenanceRunDTO struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	FlightsComplete int       `json:"flights_completed"`
	OrdersComplete  int       `json:"orders_completed"`
	Error           string    `json:"error,omitempty"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func toAircraftDTO(a airline.Aircraft) AircraftDTO {
	dto := AircraftDTO{
		ID:            string(a.ID),
		Size:          string(a.Size),
		Manufacturer:  string(a.Manufacturer),
		EconomySeats:  a.EconomyCapacity,
		BusinessSeats: a.BusinessCapacity,
	}
	if !a.PurchaseDate.IsZero() {
		dto.PurchaseDate = a.PurchaseDate.Format("2006-01-02")
	}
	return dto
}

func toRouteDTO(r airline.Route) RouteDTO {
	return RouteDTO{
		ID:              string(r.ID),
		Origin:          r.Origin,
		Destination:     r.Destination,
		DurationMinutes: int(r.Duration / time.Minute),
		LongHaul:        r.IsLongHaul(),
	}
}

func toEmployeeDTO(e airline.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:        string(e.ID),
		Role:      string(e.Role),
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Qualified: e.Qualified,
	}
}

func toFlightDTO(f airline.Flight) FlightDTO {
	return FlightDTO{
		Number:        string(f.Number),
		AircraftID:    string(f.AircraftID),
		RouteID:       string(f.RouteID),
		Origin:        f.Origin,
		Destination:   f.Destination,
		Status:        string(f.Status),
		Departure:     f.Departure.UTC(),
		Arrival:       f.Arrival.UTC(),
		EconomyPrice:  money(f.EconomyPrice),
		BusinessPrice: money(f.BusinessPrice),
	}
}

func toSeatDTO(s seating.Seat) SeatDTO {
	return SeatDTO{Code: s.Code(), Row: s.Row, Col: s.Column, Class: string(s.Class)}
}

func toOrderDTO(o airline.Order, seats []airline.OrderSeat) OrderDTO {
	dto := OrderDTO{
		ID:              string(o.ID),
		FlightNumber:    string(o.FlightNumber),
		Status:          string(o.Status),
		Price:           money(o.Price),
		GuestEmail:      o.Purchaser.GuestEmail,
		RegisteredEmail: o.Purchaser.RegisteredEmail,
		CreatedAt:       o.CreatedAt.UTC(),
		CancelledAt:     o.CancelledAt,
	}
	for _, s := range seats {
		dto.Seats = append(dto.Seats, seating.Position{Row: s.Row, Column: s.Column}.Code())
	}
	return dto
}

func toQuoteDTO(q airline.CancellationQuote) CancellationQuoteDTO {
	return CancellationQuoteDTO{
		Order:     toOrderDTO(q.Order, nil),
		Fee:       money(q.Fee),
		NewPrice:  money(q.NewPrice),
		Refund:    money(q.Refund),
		HoursLeft: q.HoursLeft,
	}
}

func toDraftDTO(d airline.Draft) DraftDTO {
	dto := DraftDTO{
		RouteID:     string(d.Route.ID),
		Origin:      d.Route.Origin,
		Destination: d.Route.Destination,
		Departure:   d.Departure.UTC(),
		Arrival:     d.Arrival.UTC(),
		LongHaul:    d.LongHaul,
		AircraftID:  string(d.Aircraft),
		Missing:     d.Missing(),
	}
	for _, id := range d.Pilots {
		dto.Pilots = append(dto.Pilots, string(id))
	}
	for _, id := range d.Attendants {
		dto.Attendants = append(dto.Attendants, string(id))
	}
	if d.Priced {
		dto.EconomyPrice = money(d.EconomyPrice)
		dto.BusinessPrice = money(d.BusinessPrice)
	}
	if dto.Missing == nil {
		dto.Missing = []string{}
	}
	return dto
}

func toMaintenanceRunDTO(r airline.MaintenanceRun) MaintenanceRunDTO {
	return MaintenanceRunDTO{
		ID:              r.ID,
		StartedAt:       r.StartedAt.UTC(),
		FinishedAt:      r.FinishedAt.UTC(),
		FlightsComplete: r.FlightsComplete,
		OrdersComplete:  r.OrdersComplete,
		Error:           r.Error,
	}
}
