package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/railyard/rails-server-go/internal/engine"
	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/metrics"
)

func newHTTPTest(t *testing.T) (*httptest.Server, *engine.Engine) {
	t.Helper()
	reg := prometheus.NewRegistry()
	eng := engine.New(zap.NewNop(), engine.WithMetrics(metrics.New(reg)))
	srv := NewHTTPServer(eng, nil, zap.NewNop(), HTTPOptions{
		DefaultVariant: "classic",
		MetricsPath:    "/metrics",
		Gatherer:       reg,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, eng
}

func doJSON(t *testing.T, method, url, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func createHTTPGame(t *testing.T, ts *httptest.Server) game.View {
	t.Helper()
	code, body := doJSON(t, http.MethodPost, ts.URL+"/v1/games",
		`{"variant":"gb","players":[{"id":"ann"},{"id":"bob"},{"id":"cat"}],"seed":3}`)
	require.Equal(t, http.StatusCreated, code, string(body))
	var view game.View
	require.NoError(t, json.Unmarshal(body, &view))
	return view
}

func TestHTTPGameFlow(t *testing.T) {
	ts, _ := newHTTPTest(t)
	view := createHTTPGame(t, ts)
	assert.Equal(t, "gb", view.Variant)
	assert.Equal(t, "ann", view.Round.ActiveEntities[0])

	code, body := doJSON(t, http.MethodGet, ts.URL+"/v1/games/"+view.ID, "")
	require.Equal(t, http.StatusOK, code)
	var got game.View
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, view.ID, got.ID)

	code, body = doJSON(t, http.MethodGet, ts.URL+"/v1/games/"+view.ID+"/legal_actions?entity_id=ann", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"par"`)

	code, body = doJSON(t, http.MethodPost, ts.URL+"/v1/games/"+view.ID+"/actions",
		`{"kind":"par","entity_id":"ann","corporation":"GWR","share_price":70}`)
	require.Equal(t, http.StatusOK, code, string(body))
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, 1, got.Actions)

	code, body = doJSON(t, http.MethodGet, ts.URL+"/v1/games/"+view.ID+"/records", "")
	require.Equal(t, http.StatusOK, code)
	var recs struct {
		Records []json.RawMessage `json:"records"`
	}
	require.NoError(t, json.Unmarshal(body, &recs))
	assert.Len(t, recs.Records, 1)

	code, body = doJSON(t, http.MethodGet, ts.URL+"/v1/games/"+view.ID+"/log", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"log"`)

	code, body = doJSON(t, http.MethodPost, ts.URL+"/v1/games/"+view.ID+"/undo", "")
	require.Equal(t, http.StatusOK, code, string(body))
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, 0, got.Actions)
}

func TestHTTPErrors(t *testing.T) {
	ts, _ := newHTTPTest(t)
	view := createHTTPGame(t, ts)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown game", http.MethodGet, "/v1/games/nope", "", http.StatusNotFound},
		{"malformed create", http.MethodPost, "/v1/games", `{"players":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/v1/games", `{"player":[]}`, http.StatusBadRequest},
		{"unknown variant", http.MethodPost, "/v1/games", `{"variant":"1830","players":[{"id":"a"},{"id":"b"}]}`, http.StatusBadRequest},
		{"missing entity", http.MethodGet, "/v1/games/" + view.ID + "/legal_actions", "", http.StatusBadRequest},
		{"out of turn", http.MethodPost, "/v1/games/" + view.ID + "/actions", `{"kind":"pass","entity_id":"bob"}`, http.StatusUnprocessableEntity},
		{"unknown kind", http.MethodPost, "/v1/games/" + view.ID + "/actions", `{"kind":"teleport","entity_id":"ann"}`, http.StatusUnprocessableEntity},
		{"undo too far", http.MethodPost, "/v1/games/" + view.ID + "/undo", `{"count":5}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := doJSON(t, tt.method, ts.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, code, string(body))
			assert.Contains(t, string(body), `"error"`)
		})
	}
}

func TestHTTPHealthAndMetrics(t *testing.T) {
	ts, _ := newHTTPTest(t)
	createHTTPGame(t, ts)

	code, body := doJSON(t, http.MethodGet, ts.URL+"/healthz", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"ok":true,"games":1}`, string(body))

	code, body = doJSON(t, http.MethodGet, ts.URL+"/metrics", "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, bytes.Contains(body, []byte("rails_active_games")), string(body))

	code, body = doJSON(t, http.MethodGet, ts.URL+"/v1/variants", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"variants":["classic","gb","usa"]}`, string(body))
}

func players3() []game.PlayerSetup {
	return []game.PlayerSetup{{ID: "ann"}, {ID: "bob"}, {ID: "cat"}}
}
