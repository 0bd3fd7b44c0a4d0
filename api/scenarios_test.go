package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flytau/ops-engine/airline"
)

func TestListScenarios(t *testing.T) {
	ts := newTestServer(t)

	var list []ScenarioDTO
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/scenarios", nil, &list))
	require.Len(t, list, 3)
	assert.Equal(t, "demo-fleet", list[0].ID)
}

func TestLoadBusyWeek(t *testing.T) {
	ts := newTestServer(t)
	ts.loadScenario("busy-week")

	var current ScenarioDTO
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/scenarios/current", nil, &current))
	assert.Equal(t, "busy-week", current.ID)

	var full []FlightDTO
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/flights?status=FULL", nil, &full))
	require.Len(t, full, 1)
	assert.Equal(t, "LCA", full[0].Destination)

	var order OrderDTO
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/orders/O502", nil, &order))
	assert.Equal(t, "CUSTOMER_CANCELLED", order.Status)
	assert.Equal(t, "6.50", order.Price, "5% of 129.90, rounded half away from zero")
}

func TestLoadScenarioResetsStore(t *testing.T) {
	ts := newTestServer(t)
	ts.loadScenario("busy-week")
	ts.loadScenario("long-haul")

	var flights []FlightDTO
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/flights", nil, &flights))
	require.Len(t, flights, 1)
	assert.Equal(t, "F600", flights[0].Number)
	assert.Equal(t, "JFK", flights[0].Destination)

	detail, err := ts.handler.Engine.Flight(context.Background(), "F600")
	require.NoError(t, err)
	assert.Len(t, detail.Crew, 9)

	var order OrderDTO
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/orders/O500", nil, &order))
	assert.Equal(t, "frequent@example.com", order.RegisteredEmail)
	assert.Equal(t, "4780.00", order.Price)
}

func TestLoadScenarioErrors(t *testing.T) {
	ts := newTestServer(t)

	code := ts.do(http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": "nope"}, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	var current *ScenarioDTO
	require.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/scenarios/current", nil, &current))
	assert.Nil(t, current)

	noReset := NewHandler(airline.NewEngine(nil), nil)
	ts.router = NewRouter(noReset)
	code = ts.do(http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": "demo-fleet"}, nil)
	assert.Equal(t, http.StatusNotImplemented, code)
}
