package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type RewardMetrics struct {
	pointsAccumulated *prometheus.CounterVec
	slotsCreated      *prometheus.CounterVec
	tierPayouts       *prometheus.CounterVec
	commissions       *prometheus.CounterVec
	settlements       prometheus.Counter
	settledAmount     prometheus.Counter
	referrerMissing   prometheus.Counter
	cascadeFailures   *prometheus.CounterVec
}

var (
	rewardOnce     sync.Once
	rewardRegistry *RewardMetrics
)

func Reward() *RewardMetrics {
	rewardOnce.Do(func() {
		rewardRegistry = &RewardMetrics{
			pointsAccumulated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "reward_points_accumulated_total",
				Help: "Points applied to customer ledgers by source type.",
			}, []string{"type"}),
			slotsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "reward_slots_created_total",
				Help: "Reward slots created, split by accumulation or infinity grant.",
			}, []string{"origin"}),
			tierPayouts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "reward_tier_payouts_total",
				Help: "Tier completions paid by tier.",
			}, []string{"tier"}),
			commissions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "reward_commissions_total",
				Help: "Commission credits paid to referrers by kind.",
			}, []string{"kind"}),
			settlements: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "reward_settlements_total",
				Help: "Completed reward to balance transfers.",
			}),
			settledAmount: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "reward_settled_amount_total",
				Help: "Gross reward amount moved to balances.",
			}),
			referrerMissing: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "reward_referrer_missing_total",
				Help: "Commission propagations skipped because the referrer no longer exists.",
			}),
			cascadeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "reward_operation_failures_total",
				Help: "Engine operations rolled back by operation.",
			}, []string{"operation"}),
		}
		prometheus.MustRegister(
			rewardRegistry.pointsAccumulated,
			rewardRegistry.slotsCreated,
			rewardRegistry.tierPayouts,
			rewardRegistry.commissions,
			rewardRegistry.settlements,
			rewardRegistry.settledAmount,
			rewardRegistry.referrerMissing,
			rewardRegistry.cascadeFailures,
		)
	})
	return rewardRegistry
}

func (m *RewardMetrics) ObservePoints(kind string, points float64) {
	if m == nil || points <= 0 {
		return
	}
	m.pointsAccumulated.WithLabelValues(kind).Add(points)
}

func (m *RewardMetrics) ObserveSlots(origin string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.slotsCreated.WithLabelValues(origin).Add(float64(n))
}

func (m *RewardMetrics) ObserveTierPayout(tier int) {
	if m == nil {
		return
	}
	m.tierPayouts.WithLabelValues(strconv.Itoa(tier)).Inc()
}

func (m *RewardMetrics) ObserveCommission(kind string) {
	if m == nil {
		return
	}
	m.commissions.WithLabelValues(kind).Inc()
}

func (m *RewardMetrics) ObserveSettlement(amount float64) {
	if m == nil {
		return
	}
	m.settlements.Inc()
	m.settledAmount.Add(amount)
}

func (m *RewardMetrics) ObserveReferrerMissing() {
	if m == nil {
		return
	}
	m.referrerMissing.Inc()
}

func (m *RewardMetrics) ObserveFailure(operation string) {
	if m == nil {
		return
	}
	if operation == "" {
		operation = "unknown"
	}
	m.cascadeFailures.WithLabelValues(operation).Inc()
}
