/*
Package factory provides JSON to Go fleet conversion.

PURPOSE:
  Converts a fleet document (aircraft, routes, staff) into typed airline
  records. Operations can keep the fleet in a versioned JSON file and
  seed a fresh database from it.

JSON SCHEMA:
  {
    "aircraft": [
      {"id": "4X-EKA", "size": "BIG", "manufacturer": "Boeing",
       "economy_seats": 200, "business_seats": 30, "purchase_date": "2019-05-01"}
    ],
    "routes": [
      {"id": "TLV-JFK", "origin": "TLV", "destination": "JFK", "duration": "11h45m"}
    ],
    "staff": [
      {"id": "P-100", "role": "PILOT", "first_name": "Noa", "last_name": "Levi",
       "long_haul_qualified": true}
    ]
  }

KEY FEATURES:
  - Every record goes through the airline constructors, so the document
    obeys the same rules as the API
  - The first invalid record fails the parse with its section and index
  - Apply registers records through the engine and skips ids that exist

USAGE:
  f := factory.NewFleetFactory()
  fleet, err := f.ParseFleet(jsonString)
  summary, err := f.Apply(ctx, engine, fleet)

SEE ALSO:
  - airline/types.go: record constructors
  - api/scenarios.go: built-in demo fleet
*/
package factory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flytau/ops-engine/airline"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// FleetJSON is the JSON representation of a fleet document.
type FleetJSON struct {
	Aircraft []AircraftJSON `json:"aircraft"`
	Routes   []RouteJSON    `json:"routes"`
	Staff    []EmployeeJSON `json:"staff"`
}

// AircraftJSON represents one aircraft.
type AircraftJSON struct {
	ID            string `json:"id"`
	Size          string `json:"size"` // SMALL, BIG
	Manufacturer  string `json:"manufacturer"`
	EconomySeats  int    `json:"economy_seats"`
	BusinessSeats int    `json:"business_seats,omitempty"` // ignored for SMALL
	PurchaseDate  string `json:"purchase_date,omitempty"`  // YYYY-MM-DD
}

// RouteJSON represents one route. Duration uses Go duration syntax ("2h30m").
type RouteJSON struct {
	ID          string `json:"id"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Duration    string `json:"duration"`
}

// EmployeeJSON represents one crew member.
type EmployeeJSON struct {
	ID        string `json:"id"`
	Role      string `json:"role"` // PILOT, ATTENDANT
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Qualified bool   `json:"long_haul_qualified,omitempty"`
}

// Fleet is a parsed, validated fleet document.
type Fleet struct {
	Aircraft []airline.Aircraft
	Routes   []airline.Route
	Staff    []airline.Employee
}

// =============================================================================
// FLEET FACTORY
// =============================================================================

// FleetFactory converts JSON fleet documents to airline records.
type FleetFactory struct{}

// NewFleetFactory creates a new fleet factory.
func NewFleetFactory() *FleetFactory {
	return &FleetFactory{}
}

// ParseFleet parses a JSON string into a Fleet.
func (f *FleetFactory) ParseFleet(jsonStr string) (Fleet, error) {
	var fj FleetJSON
	if err := json.Unmarshal([]byte(jsonStr), &fj); err != nil {
		return Fleet{}, fmt.Errorf("failed to parse fleet JSON: %w", err)
	}
	return f.FromJSON(fj)
}

// FromJSON converts FleetJSON to a Fleet.
func (f *FleetFactory) FromJSON(fj FleetJSON) (Fleet, error) {
	var fleet Fleet

	for i, aj := range fj.Aircraft {
		var purchased time.Time
		if aj.PurchaseDate != "" {
			var err error
			purchased, err = time.Parse("2006-01-02", aj.PurchaseDate)
			if err != nil {
				return Fleet{}, fmt.Errorf("aircraft[%d]: invalid purchase_date: %w", i, err)
			}
		}
		a, err := airline.NewAircraft(airline.AircraftID(aj.ID), airline.SizeClass(aj.Size),
			airline.Manufacturer(aj.Manufacturer), aj.EconomySeats, aj.BusinessSeats, purchased)
		if err != nil {
			return Fleet{}, fmt.Errorf("aircraft[%d]: %w", i, err)
		}
		fleet.Aircraft = append(fleet.Aircraft, a)
	}

	for i, rj := range fj.Routes {
		d, err := time.ParseDuration(rj.Duration)
		if err != nil {
			return Fleet{}, fmt.Errorf("routes[%d]: %w: duration %q", i, airline.ErrInvalidInput, rj.Duration)
		}
		r, err := airline.NewRoute(airline.RouteID(rj.ID), rj.Origin, rj.Destination, d)
		if err != nil {
			return Fleet{}, fmt.Errorf("routes[%d]: %w", i, err)
		}
		fleet.Routes = append(fleet.Routes, r)
	}

	for i, ej := range fj.Staff {
		e, err := airline.NewEmployee(airline.EmployeeID(ej.ID), airline.CrewRole(ej.Role),
			ej.FirstName, ej.LastName, ej.Qualified)
		if err != nil {
			return Fleet{}, fmt.Errorf("staff[%d]: %w", i, err)
		}
		fleet.Staff = append(fleet.Staff, e)
	}

	return fleet, nil
}

// ToJSON converts a Fleet back to its document form.
func (f *FleetFactory) ToJSON(fleet Fleet) FleetJSON {
	var fj FleetJSON
	for _, a := range fleet.Aircraft {
		aj := AircraftJSON{
			ID:            string(a.ID),
			Size:          string(a.Size),
			Manufacturer:  string(a.Manufacturer),
			EconomySeats:  a.EconomyCapacity,
			BusinessSeats: a.BusinessCapacity,
		}
		if !a.PurchaseDate.IsZero() {
			aj.PurchaseDate = a.PurchaseDate.Format("2006-01-02")
		}
		fj.Aircraft = append(fj.Aircraft, aj)
	}
	for _, r := range fleet.Routes {
		fj.Routes = append(fj.Routes, RouteJSON{
			ID:          string(r.ID),
			Origin:      r.Origin,
			Destination: r.Destination,
			Duration:    r.Duration.String(),
		})
	}
	for _, e := range fleet.Staff {
		fj.Staff = append(fj.Staff, EmployeeJSON{
			ID:        string(e.ID),
			Role:      string(e.Role),
			FirstName: e.FirstName,
			LastName:  e.LastName,
			Qualified: e.Qualified,
		})
	}
	return fj
}

// =============================================================================
// APPLY
// =============================================================================

// ApplySummary counts what Apply registered and skipped.
type ApplySummary struct {
	Registered int `json:"registered"`
	Skipped    int `json:"skipped"`
}

// Apply registers every record of fleet through the engine. Records whose
// id already exists are skipped, so re-seeding the same document is safe.
func (f *FleetFactory) Apply(ctx context.Context, engine *airline.Engine, fleet Fleet) (ApplySummary, error) {
	var sum ApplySummary
	count := func(err error) error {
		switch {
		case err == nil:
			sum.Registered++
		case errors.Is(err, airline.ErrIdentifierCollision):
			sum.Skipped++
		default:
			return err
		}
		return nil
	}

	for _, a := range fleet.Aircraft {
		if err := count(engine.RegisterAircraft(ctx, a)); err != nil {
			return sum, fmt.Errorf("aircraft %s: %w", a.ID, err)
		}
	}
	for _, r := range fleet.Routes {
		if err := count(engine.RegisterRoute(ctx, r)); err != nil {
			return sum, fmt.Errorf("route %s: %w", r.ID, err)
		}
	}
	for _, e := range fleet.Staff {
		if err := count(engine.RegisterEmployee(ctx, e)); err != nil {
			return sum, fmt.Errorf("employee %s: %w", e.ID, err)
		}
	}
	return sum, nil
}
