/*
drafts.go - Flight creation over HTTP

PURPOSE:
  Drives airline draft assembly without server-side sessions. The client
  posts every selection made so far; replay re-runs each step against
  live data, so a selection that went stale since the previous call is
  rejected here instead of at commit.

STEPS:
  POST /api/drafts/aircraft  route + departure  -> aircraft candidates
  POST /api/drafts/crew      + aircraft_id      -> pilot and attendant candidates
  POST /api/drafts/validate  any prefix         -> draft with missing steps
  POST /api/drafts/commit    everything         -> created flight (201)

SEE ALSO:
  - airline/draft.go: the step operations
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/flytau/ops-engine/airline"
)

// replay rebuilds a draft from the request, stopping after the last step
// the request carries data for.
func (h *Handler) replay(ctx context.Context, req DraftRequest) (airline.Draft, []airline.Aircraft, error) {
	d, candidates, err := h.Engine.StartDraft(ctx, req.Origin, req.Destination, req.Departure)
	if err != nil {
		return d, nil, err
	}
	if req.AircraftID == "" {
		return d, candidates, nil
	}

	d, err = h.Engine.SelectAircraft(ctx, d, airline.AircraftID(req.AircraftID))
	if err != nil {
		return d, nil, err
	}

	for _, step := range []struct {
		role airline.CrewRole
		ids  []string
	}{
		{airline.RolePilot, req.Pilots},
		{airline.RoleAttendant, req.Attendants},
	} {
		if len(step.ids) == 0 {
			continue
		}
		ids := make([]airline.EmployeeID, len(step.ids))
		for i, id := range step.ids {
			ids[i] = airline.EmployeeID(id)
		}
		d, err = h.Engine.SelectCrew(ctx, d, step.role, ids)
		if err != nil {
			return d, nil, err
		}
	}

	if req.EconomyPrice == "" {
		return d, nil, nil
	}
	economy, err := parseMoney("economy_price", req.EconomyPrice)
	if err != nil {
		return d, nil, err
	}
	business := decimal.Zero
	if req.BusinessPrice != "" {
		if business, err = parseMoney("business_price", req.BusinessPrice); err != nil {
			return d, nil, err
		}
	}
	d, err = airline.SetPricing(d, economy, business)
	return d, nil, err
}

func parseMoney(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s %q is not a number", airline.ErrInvalidInput, field, s)
	}
	return d, nil
}

// DraftAircraft returns the aircraft able to fly the requested route slot.
func (h *Handler) DraftAircraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if !decode(w, r, &req) {
		return
	}
	d, candidates, err := h.Engine.StartDraft(r.Context(), req.Origin, req.Destination, req.Departure)
	if err != nil {
		writeEngineError(w, "Cannot start draft", err)
		return
	}
	dto := DraftAircraftDTO{Draft: toDraftDTO(d), Candidates: make([]AircraftDTO, len(candidates))}
	for i, a := range candidates {
		dto.Candidates[i] = toAircraftDTO(a)
	}
	writeJSON(w, http.StatusOK, dto)
}

// DraftCrew returns the crew able to staff the draft once its aircraft is chosen.
func (h *Handler) DraftCrew(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if !decode(w, r, &req) {
		return
	}
	req.Pilots, req.Attendants, req.EconomyPrice, req.BusinessPrice = nil, nil, "", ""

	ctx := r.Context()
	d, _, err := h.replay(ctx, req)
	if err != nil {
		writeEngineError(w, "Draft rejected", err)
		return
	}
	pilots, err := h.Engine.AvailableCrew(ctx, d, airline.RolePilot)
	if err != nil {
		writeEngineError(w, "Failed to list pilots", err)
		return
	}
	attendants, err := h.Engine.AvailableCrew(ctx, d, airline.RoleAttendant)
	if err != nil {
		writeEngineError(w, "Failed to list attendants", err)
		return
	}

	dto := DraftCrewDTO{Draft: toDraftDTO(d)}
	dto.Required.Pilots, dto.Required.Attendants = airline.CrewRequirement(d.LongHaul)
	for _, e := range pilots {
		dto.Pilots = append(dto.Pilots, toEmployeeDTO(e))
	}
	for _, e := range attendants {
		dto.Attendants = append(dto.Attendants, toEmployeeDTO(e))
	}
	writeJSON(w, http.StatusOK, dto)
}

// ValidateDraft replays the selections and reports what is still missing.
func (h *Handler) ValidateDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if !decode(w, r, &req) {
		return
	}
	d, _, err := h.replay(r.Context(), req)
	if err != nil {
		writeEngineError(w, "Draft rejected", err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftDTO(d))
}

// CommitDraft creates the flight.
func (h *Handler) CommitDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	d, _, err := h.replay(ctx, req)
	if err != nil {
		writeEngineError(w, "Draft rejected", err)
		return
	}
	f, err := h.Engine.Commit(ctx, d)
	if err != nil {
		writeEngineError(w, "Failed to create flight", err)
		return
	}
	writeJSON(w, http.StatusCreated, toFlightDTO(f))
}
