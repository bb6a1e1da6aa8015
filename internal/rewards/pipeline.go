package rewards

import (
	"sort"

	"github.com/shopspring/decimal"

	"topology-rewards-core/internal/registry"
)

// MinFailureRate, MaxFailureRate, and MaxRewardsReduction are the
// rewards-reduction clamp bounds of §4.6 stage 8.
var (
	MinFailureRate      = decimal.NewFromFloat(0.1)
	MaxFailureRate      = decimal.NewFromFloat(0.6)
	MaxRewardsReduction = decimal.NewFromFloat(0.8)
)

// FullRewardsMachinesLimit is the small-provider full-reward threshold
// of §4.6 stage 11: providers at or below this many rewardable nodes are
// paid base rewards unconditionally.
const FullRewardsMachinesLimit = 4

// NodeCategory groups nodes for base-reward lookup: (region, node type).
type NodeCategory struct {
	Region   string
	NodeType string
}

// NodeResult is one node's complete pipeline trace, the per-node entry
// of the external Rewards result (§6).
type NodeResult struct {
	NodeID                    registry.PrincipalId
	Region                    string
	NodeType                  string
	DailyMetrics              []NodeMetricsDailyProcessed
	AvgRelativeFR             *decimal.Decimal
	AvgRelativeExtrapolatedFR decimal.Decimal
	RewardsReduction          decimal.Decimal
	PerformanceMultiplier     decimal.Decimal
	BaseXDRPermyriad          decimal.Decimal
	AdjustedXDRPermyriad      decimal.Decimal
}

// Results is the final RewardsTotalComputed state: per-node outcomes,
// the epoch's extrapolated failure rate, the total payout, and the
// audit log.
type Results struct {
	ByNode                    map[registry.PrincipalId]*NodeResult
	BaseRewardsByCategory     map[NodeCategory]decimal.Decimal
	ExtrapolatedFR            decimal.Decimal
	RewardsTotalXDRPermyriad  decimal.Decimal
	RunLog                    []string
}

// CalculateProviderRewards runs the full §4.6 pipeline (stages 3-12) for
// one node provider's rewardable roster.
func (c *Calculator) CalculateProviderRewards(rewardableNodes []registry.RewardableNode) Results {
	logger := newLogger()

	byNode := computeRewardableNodesMetrics(rewardableNodes, c.metricsByNode)
	extrapolatedFR := computeExtrapolatedFR(byNode, logger)
	computeAverageExtrapolatedFR(byNode, extrapolatedFR, c.rewardPeriod, logger)
	computePerformanceMultipliers(byNode, logger)
	baseByCategory := computeBaseRewardsByCategory(rewardableNodes, c.rewardsTable)
	adjustNodesRewards(byNode, baseByCategory, logger)
	total := computeRewardsTotal(byNode)

	return Results{
		ByNode:                   byNode,
		BaseRewardsByCategory:    baseByCategory,
		ExtrapolatedFR:           extrapolatedFR,
		RewardsTotalXDRPermyriad: total,
		RunLog:                   logger.Entries(),
	}
}

// avg is the shared averaging helper used throughout the pipeline;
// an empty slice averages to zero (the canonical reference pipeline's
// behavior, not the superseded one-off pipeline's "set to 1" fallback —
// see the design notes for this resolution).
func avg(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}

// computeRewardableNodesMetrics is stage 3: extract the rewardable
// nodes' metrics from the full metrics_by_node map, selecting (when a
// node has metrics from two subnets on the same day, which can happen
// mid-membership-change) the entry with the most total blocks.
func computeRewardableNodesMetrics(
	nodes []registry.RewardableNode,
	metricsByNode map[registry.PrincipalId][]NodeMetricsDailyProcessed,
) map[registry.PrincipalId]*NodeResult {
	byNode := make(map[registry.PrincipalId]*NodeResult, len(nodes))
	for _, n := range nodes {
		result := &NodeResult{NodeID: n.NodeId, Region: n.Region, NodeType: n.NodeType}
		byNode[n.NodeId] = result

		all, ok := metricsByNode[n.NodeId]
		if !ok {
			continue
		}

		byDay := map[registry.DayEndNanos][]NodeMetricsDailyProcessed{}
		for _, m := range all {
			byDay[m.Ts] = append(byDay[m.Ts], m)
		}

		days := make([]registry.DayEndNanos, 0, len(byDay))
		for d := range byDay {
			days = append(days, d)
		}
		sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

		for _, d := range days {
			entries := byDay[d]
			selected := entries[0]
			for _, e := range entries[1:] {
				if e.BlocksProposed+e.BlocksFailed > selected.BlocksProposed+selected.BlocksFailed {
					selected = e
				}
			}
			result.DailyMetrics = append(result.DailyMetrics, selected)
		}
	}
	return byNode
}

// computeExtrapolatedFR is stage 5: the mean of each node's mean
// relative failure rate, over nodes that have any defined day at all.
func computeExtrapolatedFR(byNode map[registry.PrincipalId]*NodeResult, logger *Logger) decimal.Decimal {
	var nodeAverages []decimal.Decimal
	// Deterministic iteration: sort node ids before folding into the
	// running average so floating-point accumulation order is stable.
	ids := sortedNodeIDs(byNode)
	for _, id := range ids {
		result := byNode[id]
		if len(result.DailyMetrics) == 0 {
			continue
		}
		var relatives []decimal.Decimal
		for _, d := range result.DailyMetrics {
			relatives = append(relatives, d.RelativeFR)
		}
		a := avg(relatives)
		result.AvgRelativeFR = &a
		nodeAverages = append(nodeAverages, a)
	}
	extrapolated := avg(nodeAverages)
	logger.Log("extrapolated failure rate computed from %d nodes with recorded metrics: %s", len(nodeAverages), extrapolated)
	return extrapolated
}

// computeAverageExtrapolatedFR is stages 6-7: fill every missing day in
// the period with the extrapolated rate, then average across the full
// period length (not just recorded days), per §4.6 stage 7.
func computeAverageExtrapolatedFR(
	byNode map[registry.PrincipalId]*NodeResult,
	extrapolatedFR decimal.Decimal,
	period registry.RewardPeriod,
	logger *Logger,
) {
	days := int(period.DaysBetween())
	for _, id := range sortedNodeIDs(byNode) {
		result := byNode[id]
		rel := make([]decimal.Decimal, 0, days)
		for _, d := range result.DailyMetrics {
			rel = append(rel, d.RelativeFR)
		}
		for len(rel) < days {
			rel = append(rel, extrapolatedFR)
		}
		result.AvgRelativeExtrapolatedFR = avg(rel)
	}
	logger.Log("average extrapolated failure rate computed over %d-day period", days)
}

// computePerformanceMultipliers is stages 8-9: the linear-clamp
// rewards-reduction formula and its complement, the performance
// multiplier.
func computePerformanceMultipliers(byNode map[registry.PrincipalId]*NodeResult, logger *Logger) {
	for _, id := range sortedNodeIDs(byNode) {
		result := byNode[id]
		fr := result.AvgRelativeExtrapolatedFR

		var reduction decimal.Decimal
		switch {
		case fr.LessThan(MinFailureRate):
			reduction = decimal.Zero
		case fr.GreaterThan(MaxFailureRate):
			reduction = MaxRewardsReduction
		default:
			reduction = fr.Sub(MinFailureRate).
				Div(MaxFailureRate.Sub(MinFailureRate)).
				Mul(MaxRewardsReduction)
		}

		result.RewardsReduction = reduction
		result.PerformanceMultiplier = decimal.NewFromInt(1).Sub(reduction)
		logger.Log("node %s: aefr=%s -> reduction=%s, multiplier=%s", id.ShortForm(), fr, reduction, result.PerformanceMultiplier)
	}
}

// type3Accumulator collects the per-category inputs needed for the
// geometric-decay averaging of stage 10.
type type3Accumulator struct {
	coefficients []decimal.Decimal
	baseRewards  []decimal.Decimal
	categories   []NodeCategory
}

// computeBaseRewardsByCategory is stage 10: rewards-table lookup for
// ordinary categories, geometric-decay group averaging for type3*.
func computeBaseRewardsByCategory(nodes []registry.RewardableNode, table *registry.NodeRewardsTable) map[NodeCategory]decimal.Decimal {
	out := make(map[NodeCategory]decimal.Decimal)
	type3Groups := make(map[string]*type3Accumulator)

	nodesByCategory := map[NodeCategory]int{}
	var categoryOrder []NodeCategory
	for _, n := range nodes {
		cat := NodeCategory{Region: n.Region, NodeType: n.NodeType}
		if _, ok := nodesByCategory[cat]; !ok {
			categoryOrder = append(categoryOrder, cat)
		}
		nodesByCategory[cat]++
	}

	for _, cat := range categoryOrder {
		count := nodesByCategory[cat]
		baseRewards, coefficientPercent := lookupRate(table, cat.Region, cat.NodeType)

		if isType3(cat.NodeType) && count > 0 {
			groupKey := registry.Type3Category(cat.Region)
			acc, ok := type3Groups[groupKey]
			if !ok {
				acc = &type3Accumulator{}
				type3Groups[groupKey] = acc
			}
			for i := 0; i < count; i++ {
				acc.coefficients = append(acc.coefficients, coefficientPercent)
				acc.baseRewards = append(acc.baseRewards, baseRewards)
			}
			acc.categories = append(acc.categories, cat)
		} else {
			out[cat] = baseRewards
		}
	}

	// Deterministic iteration over type3 groups.
	groupKeys := make([]string, 0, len(type3Groups))
	for k := range type3Groups {
		groupKeys = append(groupKeys, k)
	}
	sort.Strings(groupKeys)

	for _, groupKey := range groupKeys {
		acc := type3Groups[groupKey]
		n := len(acc.baseRewards)
		coefficientAvg := avg(acc.coefficients)
		rewardsAvg := avg(acc.baseRewards)

		running := decimal.NewFromInt(1)
		sequence := make([]decimal.Decimal, 0, n)
		for i := 0; i < n; i++ {
			sequence = append(sequence, rewardsAvg.Mul(running))
			running = running.Mul(coefficientAvg)
		}
		groupAvg := avg(sequence)

		for _, cat := range acc.categories {
			out[cat] = groupAvg
		}
	}

	return out
}

func isType3(nodeType string) bool {
	return len(nodeType) >= 5 && nodeType[:5] == "type3"
}

func lookupRate(table *registry.NodeRewardsTable, region, nodeType string) (baseRewards, coefficientPercent decimal.Decimal) {
	rate, ok := table.GetRate(region, nodeType)
	if !ok {
		return decimal.NewFromInt(1), decimal.NewFromInt(100)
	}
	coeff := int32(registry.DefaultRewardCoefficientPercent)
	if rate.RewardCoefficientPercent != nil {
		coeff = *rate.RewardCoefficientPercent
	}
	return decimal.NewFromInt(int64(rate.XDRPermyriadPerNodePerMonth)),
		decimal.NewFromInt(int64(coeff)).Div(decimal.NewFromInt(100))
}

// adjustNodesRewards is stage 11: base x multiplier, except the
// small-provider rule pays base unconditionally when the whole roster
// (the call's rewardable-node count, i.e. this provider's count) is at
// or below FullRewardsMachinesLimit.
func adjustNodesRewards(byNode map[registry.PrincipalId]*NodeResult, baseByCategory map[NodeCategory]decimal.Decimal, logger *Logger) {
	nodesCount := len(byNode)
	for _, id := range sortedNodeIDs(byNode) {
		result := byNode[id]
		cat := NodeCategory{Region: result.Region, NodeType: result.NodeType}
		base := baseByCategory[cat]
		result.BaseXDRPermyriad = base

		if nodesCount <= FullRewardsMachinesLimit {
			result.AdjustedXDRPermyriad = base
			logger.Log("node %s: small-provider rule (%d <= %d rewardable nodes), adjusted = base = %s", id.ShortForm(), nodesCount, FullRewardsMachinesLimit, base)
		} else {
			result.AdjustedXDRPermyriad = base.Mul(result.PerformanceMultiplier)
		}
	}
}

// computeRewardsTotal is stage 12.
func computeRewardsTotal(byNode map[registry.PrincipalId]*NodeResult) decimal.Decimal {
	total := decimal.Zero
	for _, id := range sortedNodeIDs(byNode) {
		total = total.Add(byNode[id].AdjustedXDRPermyriad)
	}
	return total
}

func sortedNodeIDs(byNode map[registry.PrincipalId]*NodeResult) []registry.PrincipalId {
	ids := make([]registry.PrincipalId, 0, len(byNode))
	for id := range byNode {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}
