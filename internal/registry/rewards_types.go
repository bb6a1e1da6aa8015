package registry

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// NodeMetricsDaily is a single day's recorded block-production outcome
// for a node assigned to a subnet.
type NodeMetricsDaily struct {
	Ts              DayEndNanos
	SubnetAssigned  PrincipalId
	BlocksProposed  uint64
	BlocksFailed    uint64
	FailureRate     decimal.Decimal
}

// NewNodeMetricsDaily computes FailureRate = failed / (proposed + failed),
// defined as zero when no blocks were attempted at all.
func NewNodeMetricsDaily(ts DayEndNanos, subnet PrincipalId, proposed, failed uint64) NodeMetricsDaily {
	total := proposed + failed
	rate := decimal.Zero
	if total != 0 {
		rate = decimal.NewFromInt(int64(failed)).Div(decimal.NewFromInt(int64(total)))
	}
	return NodeMetricsDaily{
		Ts:             ts,
		SubnetAssigned: subnet,
		BlocksProposed: proposed,
		BlocksFailed:   failed,
		FailureRate:    rate,
	}
}

// FailureRateKind discriminates the NodeFailureRate tagged union.
type FailureRateKind int

const (
	FailureRateDefined FailureRateKind = iota
	FailureRateDefinedRelative
	FailureRateExtrapolated
	FailureRateUndefined
)

// NodeFailureRate is the closed, per-(node, day) tagged union of §3.
// Only the fields relevant to Kind are populated.
type NodeFailureRate struct {
	Kind                 FailureRateKind
	SubnetAssigned       PrincipalId
	Value                decimal.Decimal
	OriginalFailureRate  decimal.Decimal
	SubnetFailureRate    decimal.Decimal
}

func DefinedFailureRate(subnet PrincipalId, value decimal.Decimal) NodeFailureRate {
	return NodeFailureRate{Kind: FailureRateDefined, SubnetAssigned: subnet, Value: value}
}

func UndefinedFailureRate() NodeFailureRate {
	return NodeFailureRate{Kind: FailureRateUndefined}
}

func ExtrapolatedFailureRate(value decimal.Decimal) NodeFailureRate {
	return NodeFailureRate{Kind: FailureRateExtrapolated, Value: value}
}

// RewardableNode is the roster entry the rewards calculator is given per
// node provider: which node, what region, what reward-table category.
type RewardableNode struct {
	NodeId   PrincipalId
	Region   string // "continent,country,city"
	NodeType string // e.g. "type0", "type1", "type3.1"
}

// IsType3 reports whether the node's reward-table entry follows the
// geometric-decay type3* aggregation rule.
func (r RewardableNode) IsType3() bool {
	return strings.HasPrefix(r.NodeType, "type3")
}

// Type3Category collapses a region string down to "continent:country",
// the grouping level used for type3* base-reward averaging.
func Type3Category(region string) string {
	parts := strings.SplitN(region, ",", 3)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, ":")
}

// RewardRate is a single rewards-table entry for a (region, node-type)
// pair.
type RewardRate struct {
	XDRPermyriadPerNodePerMonth uint64
	RewardCoefficientPercent    *int32 // nil => default 80
}

// DefaultRewardCoefficientPercent is used whenever a rewards-table row
// omits an explicit coefficient for a type3* category.
const DefaultRewardCoefficientPercent = 80

// NodeRewardsTable maps region-prefix -> node-type -> RewardRate, with
// longest-prefix match on region.
type NodeRewardsTable struct {
	entries map[string]map[string]RewardRate
}

// NewNodeRewardsTable builds an empty table ready for Set calls.
func NewNodeRewardsTable() *NodeRewardsTable {
	return &NodeRewardsTable{entries: make(map[string]map[string]RewardRate)}
}

// Set registers a rate for an exact region prefix and node type.
func (t *NodeRewardsTable) Set(regionPrefix, nodeType string, rate RewardRate) {
	if t.entries[regionPrefix] == nil {
		t.entries[regionPrefix] = make(map[string]RewardRate)
	}
	t.entries[regionPrefix][nodeType] = rate
}

// GetRate performs longest-prefix match on region (by comma-delimited
// component count, most specific first) for the given node type.
func (t *NodeRewardsTable) GetRate(region, nodeType string) (RewardRate, bool) {
	candidates := prefixCandidates(region)
	for _, prefix := range candidates {
		if byType, ok := t.entries[prefix]; ok {
			if rate, ok := byType[nodeType]; ok {
				return rate, true
			}
		}
	}
	return RewardRate{}, false
}

// MarshalJSON exposes the otherwise-unexported entries map so a table
// can round-trip through a snapshot cache.
func (t *NodeRewardsTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.entries)
}

// UnmarshalJSON restores a table serialized by MarshalJSON.
func (t *NodeRewardsTable) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &t.entries)
}

// prefixCandidates returns region and its progressively shorter
// comma-delimited prefixes, longest first, so GetRate tries the most
// specific match before falling back to broader geography.
func prefixCandidates(region string) []string {
	parts := strings.Split(region, ",")
	out := make([]string, 0, len(parts))
	for i := len(parts); i >= 1; i-- {
		out = append(out, strings.Join(parts[:i], ","))
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}
