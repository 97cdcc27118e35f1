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

// counterValue 读取Counter当前值
func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

// histogramCount 读取Histogram观测次数
func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	h, ok := o.(prometheus.Histogram)
	require.True(t, ok)
	var m dto.Metric
	require.NoError(t, h.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestObserveOperation(t *testing.T) {
	success := LendingOperationsTotal.WithLabelValues("renew", ResultSuccess)
	failure := LendingOperationsTotal.WithLabelValues("renew", ResultFailure)
	beforeSuccess := counterValue(t, success)
	beforeFailure := counterValue(t, failure)
	beforeCount := histogramCount(t, LendingOperationDuration.WithLabelValues("renew"))

	ObserveOperation("renew", time.Now(), nil)
	ObserveOperation("renew", time.Now(), nil)
	ObserveOperation("renew", time.Now(), errors.New("overdue"))

	assert.Equal(t, beforeSuccess+2, counterValue(t, success))
	assert.Equal(t, beforeFailure+1, counterValue(t, failure))
	assert.Equal(t, beforeCount+3, histogramCount(t, LendingOperationDuration.WithLabelValues("renew")))
}

func TestGaugeVec(t *testing.T) {
	CircuitBreakerState.WithLabelValues("mq-publisher").Set(1)

	var m dto.Metric
	require.NoError(t, CircuitBreakerState.WithLabelValues("mq-publisher").Write(&m))
	assert.Equal(t, float64(1), m.GetGauge().GetValue())
}

func TestMetricsRegistered(t *testing.T) {
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	// 不带标签的指标注册后即可被采集
	assert.True(t, names["library_reconciliation_failures_total"])
	assert.True(t, names["library_copy_state_mismatch_total"])
	assert.True(t, names["library_outbox_backlog"])
}
