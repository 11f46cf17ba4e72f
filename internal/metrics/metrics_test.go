package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.TradesProcessed(3)
	m.PositionsInRange(5)
	m.ReadFailure("owner")
	m.ReadFailure("owner")
	m.ReadFailure("boost")
	m.HoldersRewarded(2)
	m.Committed(2901)
	m.RunFinished(time.Now(), nil)
	m.RunFinished(time.Now(), errors.New("boom"))

	assert.Equal(t, 3.0, value(t, m.tradesProcessed))
	assert.Equal(t, 5.0, value(t, m.positionsInRange))
	assert.Equal(t, 2.0, value(t, m.readFailures.WithLabelValues("owner")))
	assert.Equal(t, 1.0, value(t, m.readFailures.WithLabelValues("boost")))
	assert.Equal(t, 2.0, value(t, m.holdersRewarded))
	assert.Equal(t, 2901.0, value(t, m.lastCommittedWeek))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, c.Write(&out))
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	}
	t.Fatalf("unsupported metric %s", c.Desc())
	return 0
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.TradesProcessed(1)
	m.ReadFailure("position")
	m.RunFinished(time.Now(), nil)
	m.Committed(1)
}
