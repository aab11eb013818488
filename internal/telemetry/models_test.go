package telemetry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReportRoundTrip(t *testing.T) {
	rtt := 42.5
	in := Report{
		AgentID:   "10.254.0.1",
		Timestamp: 1700000000,
		Metrics: []Metric{
			{TargetIP: "10.254.0.2", RTTMs: &rtt, LossRate: 0.02},
			{TargetIP: "10.254.0.3", RTTMs: nil, LossRate: 1.0},
		},
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out Report
	require.NoError(t, json.Unmarshal(raw, &out))

	require.Equal(t, in.AgentID, out.AgentID)
	require.Equal(t, in.Timestamp, out.Timestamp)
	require.Len(t, out.Metrics, 2)
	require.NotNil(t, out.Metrics[0].RTTMs)
	require.InDelta(t, *in.Metrics[0].RTTMs, *out.Metrics[0].RTTMs, 1e-9)
	require.Nil(t, out.Metrics[1].RTTMs)
	require.InDelta(t, in.Metrics[1].LossRate, out.Metrics[1].LossRate, 1e-9)
}

func TestReportPayloadCompleteness(t *testing.T) {
	in := Report{
		AgentID:   "a1",
		Timestamp: 1,
		Metrics:   []Metric{{TargetIP: "10.254.0.9", LossRate: 0}},
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))

	for _, key := range []string{"agent_id", "timestamp", "metrics"} {
		_, ok := generic[key]
		require.True(t, ok, "missing key %q", key)
	}

	metrics := generic["metrics"].([]any)
	m0 := metrics[0].(map[string]any)
	for _, key := range []string{"target_ip", "rtt_ms", "loss_rate"} {
		_, ok := m0[key]
		require.True(t, ok, "missing metric key %q", key)
	}
}

func TestRouteJSONShape(t *testing.T) {
	r := Route{DstCIDR: "10.254.0.5/32", NextHop: "10.254.0.2", Reason: ReasonOptimizedPath}
	raw, err := json.Marshal(r)
	require.NoError(t, err)
	require.JSONEq(t, `{"dst_cidr":"10.254.0.5/32","next_hop":"10.254.0.2","reason":"optimized_path"}`, string(raw))
}
