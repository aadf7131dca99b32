package ledger

import (
	"math/big"

	"StakePool/internal/model"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type poolMetrics struct {
	operations   *prometheus.CounterVec
	saveErrors   prometheus.Counter
	staked       prometheus.Counter
	rewardsPaid  prometheus.Counter
	payouts      prometheus.Counter
	forfeited    prometheus.Counter
	totalStaked  prometheus.Gauge
	participants prometheus.Gauge
	rewardRate   prometheus.Gauge
	lockedTime   prometheus.Gauge
}

func newPoolMetrics(reg prometheus.Registerer) *poolMetrics {
	factory := promauto.With(reg)
	return &poolMetrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stakepool_operations_total",
			Help: "ledger operations by kind and result",
		}, []string{"op", "result"}),
		saveErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "stakepool_state_save_errors_total",
			Help: "failed pool state writes",
		}),
		staked: factory.NewCounter(prometheus.CounterOpts{
			Name: "stakepool_staked_tokens_total",
			Help: "stake tokens deposited",
		}),
		rewardsPaid: factory.NewCounter(prometheus.CounterOpts{
			Name: "stakepool_rewards_paid_total",
			Help: "reward tokens paid by claims",
		}),
		payouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "stakepool_unstake_payouts_total",
			Help: "stake tokens returned by unstakes",
		}),
		forfeited: factory.NewCounter(prometheus.CounterOpts{
			Name: "stakepool_forfeited_tokens_total",
			Help: "stake tokens kept by the pool as early withdrawal penalty",
		}),
		totalStaked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stakepool_total_staked",
			Help: "sum of all staked principal",
		}),
		participants: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stakepool_participants",
			Help: "number of account records",
		}),
		rewardRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stakepool_reward_rate_percent",
			Help: "reward percentage per period",
		}),
		lockedTime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "stakepool_locked_time_seconds",
			Help: "penalty-free holding duration",
		}),
	}
}

func (m *poolMetrics) observeEvent(evt *model.LedgerEvent) {
	switch evt.Kind {
	case model.OpStake:
		m.staked.Add(toFloat(evt.Amount))
	case model.OpUnstake:
		m.payouts.Add(toFloat(evt.Payout))
		m.forfeited.Add(toFloat(evt.Forfeited))
	case model.OpClaim:
		m.rewardsPaid.Add(toFloat(evt.Amount))
	}
}

func (m *poolMetrics) observeState(state *model.PoolState) {
	m.totalStaked.Set(toFloat(state.TotalStaked()))
	m.participants.Set(float64(len(state.Accounts)))
	m.rewardRate.Set(float64(state.Params.RewardRatePercent))
	m.lockedTime.Set(state.Params.LockedTime.Seconds())
}

func toFloat(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
