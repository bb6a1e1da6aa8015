// Package rules implements the business-rule checker: a pure, additive
// penalty function over a candidate subnet's node set. A zero penalty
// means the candidate is compliant; a nonzero penalty is never fatal —
// it is surfaced in the plan's comment for the collaborator layer to
// weigh.
package rules

import (
	"fmt"
	"sort"

	"topology-rewards-core/internal/decentralization/nakamoto"
	"topology-rewards-core/internal/registry"
)

// Checker evaluates the eight clauses of §4.2 against a configured set
// of sensitive subnets and linked-provider clusters.
type Checker struct {
	sensitive SensitiveSubnets
	clusters  LinkedProviderClusters
}

// NewChecker builds a Checker from externally supplied configuration,
// resolving both of §9's open questions at construction time.
func NewChecker(sensitive SensitiveSubnets, clusters LinkedProviderClusters) *Checker {
	return &Checker{sensitive: sensitive, clusters: clusters}
}

// Result is the outcome of Check: an additive penalty plus the
// human-readable explanations for every clause that contributed.
type Result struct {
	Penalty      int
	Explanations []string
}

// Check evaluates all eight clauses against nodes for the named subnet.
func (c *Checker) Check(subnetID registry.PrincipalId, nodes []registry.Node) Result {
	if len(nodes) <= 1 {
		return Result{Penalty: 1}
	}

	n := len(nodes)
	var res Result

	add := func(penalty int, explanation string) {
		if penalty != 0 {
			res.Penalty += penalty
			res.Explanations = append(res.Explanations, explanation)
		}
	}

	// Clause 1: DFINITY quota.
	d := 0
	for _, nd := range nodes {
		if nd.DfinityOwned {
			d++
		}
	}
	target := 1
	if c.sensitive.IsNNS(subnetID) {
		target = 3
	}
	if diff := abs(d - target); diff != 0 {
		add(diff*1000, fmt.Sprintf("Subnet should have %d DFINITY-owned nodes, got %d", target, d))
	}

	// Clause 2: country cap for key-holding subnets.
	if c.sensitive.IsKeyHolding(subnetID) {
		cap := n / 3
		for _, country := range sortedCounts(countBy(nodes, registry.FeatureCountry)) {
			if country.count > cap {
				add((country.count-cap)*1000, fmt.Sprintf("Country %s controls %d nodes, cap is %d for key-holding subnets", country.value, country.count, cap))
			}
		}
	}

	// Clause 3: per-NodeProvider / DataCenter / DataCenterOwner cap.
	for _, f := range []registry.NodeFeature{registry.FeatureNodeProvider, registry.FeatureDataCenter, registry.FeatureDataCenterOwner} {
		for value, group := range groupBy(nodes, f) {
			cap := 1
			if c.sensitive.IsNNS(subnetID) && allDfinityOwned(group) {
				cap = 3
			}
			if len(group) > cap {
				add((len(group)-cap)*10, fmt.Sprintf("%s %s has %d nodes, cap is %d", f, value, len(group), cap))
			}
		}
	}

	// Clause 4: general per-country cap.
	{
		cap := 2
		if c.sensitive.IsKeyHolding(subnetID) {
			cap = 3
		}
		exempt := map[string]bool{}
		if c.sensitive.IsEuropean(subnetID) {
			for _, country := range c.sensitive.EuropeanExemptCountries {
				exempt[country] = true
			}
		}
		for _, country := range sortedCounts(countBy(nodes, registry.FeatureCountry)) {
			if exempt[country.value] {
				continue
			}
			if country.count > cap {
				add((country.count-cap)*10, fmt.Sprintf("Country %s controls %d nodes, cap is %d", country.value, country.count, cap))
			}
		}
	}

	// Clause 5: European subnet is European-only.
	if c.sensitive.IsEuropean(subnetID) {
		nonEuropean := 0
		for _, nd := range nodes {
			if nd.Feature(registry.FeatureContinent) != "Europe" {
				nonEuropean++
			}
		}
		add(nonEuropean*1000, fmt.Sprintf("%d non-European nodes on the European-only subnet", nonEuropean))
	}

	score := nakamoto.Compute(nodes)

	// Clause 6: NodeProvider halting power.
	npScore := score.ByFeature[registry.FeatureNodeProvider]
	if npScore.Coefficient == 1 && n > 3 {
		add(10000, "single NodeProvider can halt this subnet")
	}

	// Clause 7: two-thirds concentration.
	twoThirds := (2 * n) / 3
	for _, f := range registry.FeatureOrder {
		if c.sensitive.IsEuropean(subnetID) && f == registry.FeatureContinent {
			continue
		}
		fs := score.ByFeature[f]
		if fs.Coefficient == 1 && fs.ControlledNodes > twoThirds {
			add((fs.ControlledNodes-twoThirds)*1000, fmt.Sprintf("%s controls %d of %d nodes, exceeding two-thirds concentration", f, fs.ControlledNodes, n))
		}
	}

	// Clause 8: linked-provider clusters.
	providersPresent := map[registry.PrincipalId]bool{}
	for _, nd := range nodes {
		providersPresent[nd.ProviderPrincipal] = true
	}
	for clusterName, members := range c.clusters.Clusters() {
		count := 0
		for _, m := range members {
			if providersPresent[m] {
				count++
			}
		}
		if count > 1 {
			add(10*(count-1), fmt.Sprintf("cluster %s has %d linked providers present", clusterName, count))
		}
	}

	return res
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func groupBy(nodes []registry.Node, f registry.NodeFeature) map[string][]registry.Node {
	out := make(map[string][]registry.Node)
	for _, n := range nodes {
		v := n.Feature(f)
		out[v] = append(out[v], n)
	}
	return out
}

func allDfinityOwned(nodes []registry.Node) bool {
	for _, n := range nodes {
		if !n.DfinityOwned {
			return false
		}
	}
	return true
}

type valueCount struct {
	value string
	count int
}

func countBy(nodes []registry.Node, f registry.NodeFeature) map[string]int {
	out := make(map[string]int)
	for _, n := range nodes {
		out[n.Feature(f)]++
	}
	return out
}

// sortedCounts returns a deterministic ordering over a value->count map
// so clause evaluation never depends on map iteration order.
func sortedCounts(counts map[string]int) []valueCount {
	out := make([]valueCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, valueCount{value: v, count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].value < out[j].value })
	return out
}
