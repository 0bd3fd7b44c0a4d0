/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with a realistic
	fleet, schedule and bookings. Flights are created through the same
	draft steps the API uses, so every scenario obeys the scheduling rules.

AVAILABLE SCENARIOS:

	demo-fleet:  Aircraft, routes and crew only
	busy-week:   demo-fleet plus a TLV-ATH rotation, a full TLV-LCA hop
	             and bookings including a customer cancellation
	long-haul:   demo-fleet plus a TLV-JFK flight with qualified crew

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Apply the demo fleet document via factory
 3. Assemble flights through StartDraft ... Commit
 4. Book and cancel orders through the engine

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "busy-week"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - factory/fleet.go: fleet document format
  - airline/draft.go: flight creation steps
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flytau/ops-engine/airline"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "demo-fleet",
		Name:        "Demo Fleet",
		Description: "Four aircraft, five routes, six pilots and twelve attendants",
	},
	{
		ID:          "busy-week",
		Name:        "Busy Week",
		Description: "Short-haul rotation with bookings, a sold-out flight and a cancellation",
	},
	{
		ID:          "long-haul",
		Name:        "Long Haul",
		Description: "TLV-JFK on a big aircraft with long-haul qualified crew",
	},
}

// DemoFleetJSON is the fleet every scenario starts from.
const DemoFleetJSON = `{
  "aircraft": [
    {"id": "4X-BOE", "size": "BIG",   "manufacturer": "Boeing",   "economy_seats": 60, "business_seats": 20, "purchase_date": "2018-04-12"},
    {"id": "4X-ABB", "size": "BIG",   "manufacturer": "Airbus",   "economy_seats": 54, "business_seats": 18, "purchase_date": "2020-09-01"},
    {"id": "4X-ABS", "size": "SMALL", "manufacturer": "Airbus",   "economy_seats": 12, "purchase_date": "2021-02-15"},
    {"id": "4X-DAS", "size": "SMALL", "manufacturer": "Dassault", "economy_seats": 4,  "purchase_date": "2022-06-30"}
  ],
  "routes": [
    {"id": "TLV-ATH", "origin": "TLV", "destination": "ATH", "duration": "2h"},
    {"id": "ATH-TLV", "origin": "ATH", "destination": "TLV", "duration": "2h"},
    {"id": "TLV-LCA", "origin": "TLV", "destination": "LCA", "duration": "50m"},
    {"id": "TLV-JFK", "origin": "TLV", "destination": "JFK", "duration": "11h45m"},
    {"id": "JFK-TLV", "origin": "JFK", "destination": "TLV", "duration": "10h50m"}
  ],
  "staff": [
    {"id": "P-1", "role": "PILOT", "first_name": "Noa",   "last_name": "Levi"},
    {"id": "P-2", "role": "PILOT", "first_name": "Yael",  "last_name": "Mizrahi"},
    {"id": "P-3", "role": "PILOT", "first_name": "Amit",  "last_name": "Cohen",   "long_haul_qualified": true},
    {"id": "P-4", "role": "PILOT", "first_name": "Dana",  "last_name": "Peretz",  "long_haul_qualified": true},
    {"id": "P-5", "role": "PILOT", "first_name": "Omer",  "last_name": "Biton",   "long_haul_qualified": true},
    {"id": "P-6", "role": "PILOT", "first_name": "Lior",  "last_name": "Friedman"},
    {"id": "A-1",  "role": "ATTENDANT", "first_name": "Maya",  "last_name": "Azoulay"},
    {"id": "A-2",  "role": "ATTENDANT", "first_name": "Tom",   "last_name": "Katz"},
    {"id": "A-3",  "role": "ATTENDANT", "first_name": "Shira", "last_name": "Gabay"},
    {"id": "A-4",  "role": "ATTENDANT", "first_name": "Eden",  "last_name": "Ohana",   "long_haul_qualified": true},
    {"id": "A-5",  "role": "ATTENDANT", "first_name": "Roni",  "last_name": "Segal",   "long_haul_qualified": true},
    {"id": "A-6",  "role": "ATTENDANT", "first_name": "Itai",  "last_name": "Dahan",   "long_haul_qualified": true},
    {"id": "A-7",  "role": "ATTENDANT", "first_name": "Gal",   "last_name": "Avraham", "long_haul_qualified": true},
    {"id": "A-8",  "role": "ATTENDANT", "first_name": "Nir",   "last_name": "Shapiro", "long_haul_qualified": true},
    {"id": "A-9",  "role": "ATTENDANT", "first_name": "Tal",   "last_name": "Golan",   "long_haul_qualified": true},
    {"id": "A-10", "role": "ATTENDANT", "first_name": "Adi",   "last_name": "Vaknin"},
    {"id": "A-11", "role": "ATTENDANT", "first_name": "Hila",  "last_name": "Ben-David"},
    {"id": "A-12", "role": "ATTENDANT", "first_name": "Yoni",  "last_name": "Halevi"}
  ]
}`

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if !decode(w, r, &req) {
		return
	}
	if h.Store == nil {
		writeError(w, http.StatusNotImplemented, "Store cannot be reset", nil)
		return
	}

	if err := h.LoadScenarioByID(r.Context(), req.ScenarioID); err != nil {
		if errors.Is(err, errUnknownScenario) {
			writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
			return
		}
		writeEngineError(w, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

var errUnknownScenario = errors.New("unknown scenario")

// LoadScenarioByID resets the store and loads scenario id.
func (h *Handler) LoadScenarioByID(ctx context.Context, id string) error {
	var load func(context.Context) error
	switch id {
	case "demo-fleet":
		load = h.loadDemoFleet
	case "busy-week":
		load = h.loadBusyWeekScenario
	case "long-haul":
		load = h.loadLongHaulScenario
	default:
		return errUnknownScenario
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	h.currentScenario = ""
	if err := load(ctx); err != nil {
		return err
	}
	h.currentScenario = id
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadDemoFleet(ctx context.Context) error {
	fleet, err := h.Fleet.ParseFleet(DemoFleetJSON)
	if err != nil {
		return err
	}
	_, err = h.Fleet.Apply(ctx, h.Engine, fleet)
	return err
}

// loadBusyWeekScenario builds:
//
//	day+2 08:00 TLV-ATH on 4X-ABS, day+2 12:00 ATH-TLV back (same crew)
//	day+3 09:00 TLV-LCA on 4X-DAS, sold out
func (h *Handler) loadBusyWeekScenario(ctx context.Context) error {
	if err := h.loadDemoFleet(ctx); err != nil {
		return err
	}
	day := h.Engine.Now().UTC().Truncate(24 * time.Hour)
	shortCrew := flightCrew{pilots: []string{"P-1", "P-2"}, attendants: []string{"A-1", "A-2", "A-3"}}

	out, err := h.createFlight(ctx, "TLV", "ATH", day.Add(2*24*time.Hour+8*time.Hour), "4X-ABS", shortCrew, "129.90", "")
	if err != nil {
		return err
	}
	if _, err := h.createFlight(ctx, "ATH", "TLV", day.Add(2*24*time.Hour+12*time.Hour), "4X-ABS", shortCrew, "119.90", ""); err != nil {
		return err
	}
	hop, err := h.createFlight(ctx, "TLV", "LCA", day.Add(3*24*time.Hour+9*time.Hour), "4X-DAS",
		flightCrew{pilots: []string{"P-6", "P-1"}, attendants: []string{"A-10", "A-11", "A-12"}}, "79.00", "")
	if err != nil {
		return err
	}

	bookings := []struct {
		flight airline.FlightNumber
		email  string
		seats  []string
	}{
		{out.Number, "noam@example.com", []string{"1A", "1B"}},
		{out.Number, "guest@example.com", []string{"2C"}},
		{out.Number, "late@example.com", []string{"2D"}},
		{hop.Number, "team@example.com", []string{"1A", "1B", "1C", "1D"}},
	}
	var cancel airline.OrderID
	for _, b := range bookings {
		p, err := airline.NewGuestPurchaser(b.email)
		if err != nil {
			return err
		}
		res, err := h.Engine.ReserveSeats(ctx, airline.ReservationRequest{
			Flight: b.flight, SeatCodes: b.seats, Passengers: len(b.seats), Purchaser: p,
		})
		if err != nil {
			return fmt.Errorf("book %v on %s: %w", b.seats, b.flight, err)
		}
		if b.email == "late@example.com" {
			cancel = res.Order.ID
		}
	}

	_, err = h.Engine.CancelByCustomer(ctx, cancel)
	return err
}

func (h *Handler) loadLongHaulScenario(ctx context.Context) error {
	if err := h.loadDemoFleet(ctx); err != nil {
		return err
	}
	day := h.Engine.Now().UTC().Truncate(24 * time.Hour)

	f, err := h.createFlight(ctx, "TLV", "JFK", day.Add(5*24*time.Hour+23*time.Hour), "4X-BOE",
		flightCrew{
			pilots:     []string{"P-3", "P-4", "P-5"},
			attendants: []string{"A-4", "A-5", "A-6", "A-7", "A-8", "A-9"},
		}, "649.00", "2390.00")
	if err != nil {
		return err
	}

	p, err := airline.NewRegisteredPurchaser("frequent@example.com")
	if err != nil {
		return err
	}
	_, err = h.Engine.ReserveSeats(ctx, airline.ReservationRequest{
		Flight: f.Number, SeatCodes: []string{"1A", "1B"}, Passengers: 2, Purchaser: p,
	})
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

type flightCrew struct {
	pilots     []string
	attendants []string
}

// createFlight walks every draft step, the way a manager would.
func (h *Handler) createFlight(ctx context.Context, origin, destination string, departure time.Time,
	aircraft string, crew flightCrew, economy, business string) (airline.Flight, error) {

	req := DraftRequest{
		Origin:        origin,
		Destination:   destination,
		Departure:     departure,
		AircraftID:    aircraft,
		Pilots:        crew.pilots,
		Attendants:    crew.attendants,
		EconomyPrice:  economy,
		BusinessPrice: business,
	}
	if req.BusinessPrice == "" {
		req.BusinessPrice = decimal.Zero.String()
	}

	d, _, err := h.replay(ctx, req)
	if err != nil {
		return airline.Flight{}, fmt.Errorf("draft %s-%s: %w", origin, destination, err)
	}
	f, err := h.Engine.Commit(ctx, d)
	if err != nil {
		return airline.Flight{}, fmt.Errorf("commit %s-%s: %w", origin, destination, err)
	}
	return f, nil
}
