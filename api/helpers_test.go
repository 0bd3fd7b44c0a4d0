package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flytau/ops-engine/airline"
	"github.com/flytau/ops-engine/airline/store"
)

var t0 = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

type testServer struct {
	t       *testing.T
	handler *Handler
	router  http.Handler
	now     time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mem := store.NewMemory()
	engine := airline.NewEngine(mem)
	ts := &testServer{t: t, now: t0}
	engine.Clock = func() time.Time { return ts.now }
	ts.handler = NewHandler(engine, mem)
	ts.router = NewRouter(ts.handler)
	return ts
}

// do sends a JSON request and decodes the JSON response into out (if non-nil).
func (ts *testServer) do(method, path string, body any, out any) int {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if out != nil {
		require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func (ts *testServer) loadScenario(id string) {
	ts.t.Helper()
	code := ts.do(http.MethodPost, "/api/scenarios/load", map[string]string{"scenario_id": id}, nil)
	require.Equal(ts.t, http.StatusOK, code)
}
