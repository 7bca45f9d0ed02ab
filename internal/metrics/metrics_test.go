package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ActionProcessed("classic", "par", 2*time.Millisecond)
	m.ActionProcessed("classic", "par", time.Millisecond)
	m.ActionRejected("classic", "sell_shares", "violation")
	m.Replayed("undo", nil)
	m.Replayed("load", errors.New("chain broken"))
	m.SetActiveGames(3)
	m.RPC("/rails.v1.GameService/GetView", "OK", time.Millisecond)
	m.ClientConnected(1)
	m.ClientConnected(1)
	m.ClientConnected(-1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.actionsProcessed.WithLabelValues("classic", "par")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actionsRejected.WithLabelValues("classic", "sell_shares", "violation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.replays.WithLabelValues("undo", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.replays.WithLabelValues("load", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activeGames))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.wsClients))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["rails_actions_processed_total"])
	assert.True(t, names["rails_action_duration_seconds"])
	assert.True(t, names["rails_grpc_requests_total"])
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ActionProcessed("gb", "pass", time.Millisecond)
		m.ActionRejected("gb", "pass", "violation")
		m.Replayed("restore", nil)
		m.SetActiveGames(1)
		m.RPC("x", "OK", 0)
		m.ClientConnected(1)
	})
}
