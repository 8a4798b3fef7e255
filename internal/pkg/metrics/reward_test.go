package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRewardMetrics(t *testing.T) {
	m := Reward()
	assert.Same(t, m, Reward())

	before := testutil.ToFloat64(m.tierPayouts.WithLabelValues("4"))
	m.ObserveTierPayout(4)
	assert.Equal(t, before+1, testutil.ToFloat64(m.tierPayouts.WithLabelValues("4")))

	before = testutil.ToFloat64(m.slotsCreated.WithLabelValues("infinity"))
	m.ObserveSlots("infinity", 4)
	m.ObserveSlots("infinity", 0)
	assert.Equal(t, before+4, testutil.ToFloat64(m.slotsCreated.WithLabelValues("infinity")))

	before = testutil.ToFloat64(m.cascadeFailures.WithLabelValues("unknown"))
	m.ObserveFailure("")
	assert.Equal(t, before+1, testutil.ToFloat64(m.cascadeFailures.WithLabelValues("unknown")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *RewardMetrics
	assert.NotPanics(t, func() {
		m.ObservePoints("purchase", 10)
		m.ObserveSlots("accumulation", 1)
		m.ObserveTierPayout(1)
		m.ObserveCommission("affiliate")
		m.ObserveSettlement(1000)
		m.ObserveReferrerMissing()
		m.ObserveFailure("accumulate")
	})
}
