// Package rewards implements the Rewards Calculator: a staged,
// deterministic pipeline computing per-node-provider XDR-permyriad
// payouts from block-production failure-rate metrics (§4.6). Each
// stage consumes the previous stage's state and cannot be skipped,
// mirroring the reference source's typestate pipeline as a sequence of
// discrete Go stage types.
package rewards

import (
	"sort"

	"github.com/shopspring/decimal"

	"topology-rewards-core/internal/coreerrors"
	"topology-rewards-core/internal/registry"
)

// SubnetMetricsDailyKey identifies one subnet's metrics for one day.
type SubnetMetricsDailyKey struct {
	SubnetID registry.PrincipalId
	Ts       registry.DayEndNanos
}

// NodeDailyMetric pairs a node id with its recorded metrics for one day,
// the unit the collaborator layer hands to FromSubnetsMetrics grouped by
// (subnet, day).
type NodeDailyMetric struct {
	NodeID  registry.PrincipalId
	Metrics registry.NodeMetricsDaily
}

// NodeMetricsDailyProcessed is a day's metrics for a node, annotated
// with the subnet's percentile failure rate and the node's relative
// rate, i.e. the output of stage 2-4 fused into a single value the way
// the canonical reference pipeline computes it in one aggregation pass.
type NodeMetricsDailyProcessed struct {
	Ts               registry.DayEndNanos
	SubnetAssigned   registry.PrincipalId
	SubnetAssignedFR decimal.Decimal
	BlocksProposed   uint64
	BlocksFailed     uint64
	OriginalFR       decimal.Decimal
	RelativeFR       decimal.Decimal
}

// Calculator holds the reward period, rewards table, and pre-processed
// per-node metrics for one reward epoch; CalculateProviderRewards may be
// called once per provider's roster without recomputing subnet
// percentiles each time.
type Calculator struct {
	rewardPeriod    registry.RewardPeriod
	rewardsTable    *registry.NodeRewardsTable
	metricsByNode   map[registry.PrincipalId][]NodeMetricsDailyProcessed
}

// FromSubnetsMetrics validates the input and computes subnet/node
// failure rates up front, ready for repeated CalculateProviderRewards
// calls (stages 1-4 of §4.6).
func FromSubnetsMetrics(
	period registry.RewardPeriod,
	table *registry.NodeRewardsTable,
	dailyMetricsBySubnet map[SubnetMetricsDailyKey][]NodeDailyMetric,
) (*Calculator, error) {
	if err := validateInput(period, dailyMetricsBySubnet); err != nil {
		return nil, err
	}
	return &Calculator{
		rewardPeriod:  period,
		rewardsTable:  table,
		metricsByNode: processNodeDailyMetrics(dailyMetricsBySubnet),
	}, nil
}

// validateInput checks that every metric timestamp falls within the
// reward period and that no (node, day) pair repeats within a subnet,
// per §4.6 stage 1.
func validateInput(period registry.RewardPeriod, byKey map[SubnetMetricsDailyKey][]NodeDailyMetric) error {
	for key, entries := range byKey {
		if !period.Contains(key.Ts.Get()) {
			return &coreerrors.InputError{Kind: coreerrors.MetricsOutOfRange, Timestamp: key.Ts.Get(), Period: period}
		}
		seen := map[registry.PrincipalId]bool{}
		for _, e := range entries {
			if seen[e.NodeID] {
				return &coreerrors.InputError{Kind: coreerrors.DuplicateMetrics, NodeID: e.NodeID}
			}
			seen[e.NodeID] = true
		}
	}
	return nil
}

// processNodeDailyMetrics aggregates by (subnet, day) to find the
// subnet's percentile failure rate, then computes each member's
// relative rate against it: max(0, original - subnet_fr). This follows
// the canonical dre-canisters pipeline, which subtracts in this
// direction — a node failing more than its subnet's baseline is
// penalized, matching the Glossary's definition exactly (see the repo's
// design notes for the resolution of the original source's inconsistent
// subtraction direction across pipeline versions).
func processNodeDailyMetrics(byKey map[SubnetMetricsDailyKey][]NodeDailyMetric) map[registry.PrincipalId][]NodeMetricsDailyProcessed {
	out := make(map[registry.PrincipalId][]NodeMetricsDailyProcessed)

	// Need a stable key iteration order so floating percentile ties are
	// deterministic across runs; sort keys by (subnet, ts).
	keys := make([]SubnetMetricsDailyKey, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].SubnetID.Equal(keys[j].SubnetID) {
			return keys[i].SubnetID.Less(keys[j].SubnetID)
		}
		return keys[i].Ts.Get() < keys[j].Ts.Get()
	})

	for _, key := range keys {
		entriesForDay := byKey[key]
		subnetFR := subnetPercentileFailureRate(entriesForDay)

		for _, e := range entriesForDay {
			m := e.Metrics
			relative := m.FailureRate.Sub(subnetFR)
			if relative.IsNegative() {
				relative = decimal.Zero
			}
			processed := NodeMetricsDailyProcessed{
				Ts:               key.Ts,
				SubnetAssigned:   key.SubnetID,
				SubnetAssignedFR: subnetFR,
				BlocksProposed:   m.BlocksProposed,
				BlocksFailed:     m.BlocksFailed,
				OriginalFR:       m.FailureRate,
				RelativeFR:       relative,
			}
			out[e.NodeID] = append(out[e.NodeID], processed)
		}
	}
	return out
}

// SubnetFailureRatePercentile is the 75th-percentile (ceiling-index) of
// member failure rates for one subnet-day, per §4.6 stage 2.
const SubnetFailureRatePercentile = 0.75

func subnetPercentileFailureRate(entries []NodeDailyMetric) decimal.Decimal {
	rates := make([]decimal.Decimal, len(entries))
	for i, e := range entries {
		rates[i] = e.Metrics.FailureRate
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].LessThan(rates[j]) })

	index := ceilIndex(len(rates), SubnetFailureRatePercentile)
	return rates[index]
}

// ceilIndex mirrors the reference formula exactly:
// index = ceil(n * percentile) - 1.
func ceilIndex(n int, percentile float64) int {
	idx := int(ceil(float64(n) * percentile))
	if idx < 1 {
		idx = 1
	}
	return idx - 1
}

func ceil(x float64) float64 {
	i := int64(x)
	if float64(i) < x {
		i++
	}
	return float64(i)
}
