// Package nakamoto computes per-feature decentralization coefficients
// for a candidate subnet membership and the total ordering over scores
// used by the subnet transform engine to pick the best candidate.
package nakamoto

import (
	"fmt"
	"sort"
	"strings"

	"topology-rewards-core/internal/registry"
)

// FeatureScore is the per-feature result: how concentrated the subnet is
// on a single dimension.
type FeatureScore struct {
	Feature         registry.NodeFeature
	ControlledNodes int
	Coefficient     int
	ValueCounts     map[string]int
}

// Score is the full multi-dimensional Nakamoto coefficient of a node
// set, one FeatureScore per registry.FeatureOrder entry.
type Score struct {
	ByFeature map[registry.NodeFeature]FeatureScore
}

// Compute builds the Score for a set of nodes. An empty node set yields
// a zero-valued score for every feature (coefficient 0, no counts).
func Compute(nodes []registry.Node) Score {
	s := Score{ByFeature: make(map[registry.NodeFeature]FeatureScore, len(registry.FeatureOrder))}
	for _, f := range registry.FeatureOrder {
		s.ByFeature[f] = computeFeature(f, nodes)
	}
	return s
}

func computeFeature(f registry.NodeFeature, nodes []registry.Node) FeatureScore {
	counts := make(map[string]int)
	for _, n := range nodes {
		counts[n.Feature(f)]++
	}
	total := len(nodes)
	if total == 0 {
		return FeatureScore{Feature: f, ValueCounts: counts}
	}

	// Rank values by descending count, deterministically breaking ties
	// on the value string itself so iteration order of the map never
	// leaks into the result.
	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool {
		if counts[values[i]] != counts[values[j]] {
			return counts[values[i]] > counts[values[j]]
		}
		return values[i] < values[j]
	})

	controlled := 0
	if len(values) > 0 {
		controlled = counts[values[0]]
	}

	majority := total/2 + 1
	coefficient := 0
	running := 0
	for _, v := range values {
		running += counts[v]
		coefficient++
		if running >= majority {
			break
		}
	}

	return FeatureScore{
		Feature:         f,
		ControlledNodes: controlled,
		Coefficient:     coefficient,
		ValueCounts:     counts,
	}
}

// AverageLinear is the arithmetic mean of the six feature coefficients.
func (s Score) AverageLinear() float64 {
	if len(registry.FeatureOrder) == 0 {
		return 0
	}
	sum := 0
	for _, f := range registry.FeatureOrder {
		sum += s.ByFeature[f].Coefficient
	}
	return float64(sum) / float64(len(registry.FeatureOrder))
}

// TotalControlledNodes sums ControlledNodes across all features; used as
// the final, lowest-priority tie-break term (fewer is better).
func (s Score) TotalControlledNodes() int {
	total := 0
	for _, f := range registry.FeatureOrder {
		total += s.ByFeature[f].ControlledNodes
	}
	return total
}

// Less implements the total order of §4.1: average-linear score first
// (higher is better), then feature-by-feature coefficients in canonical
// order (higher is better), then total controlled-nodes (fewer is
// better). Returns true if s is strictly worse than other.
func (s Score) Less(other Score) bool {
	if s.AverageLinear() != other.AverageLinear() {
		return s.AverageLinear() < other.AverageLinear()
	}
	for _, f := range registry.FeatureOrder {
		a, b := s.ByFeature[f].Coefficient, other.ByFeature[f].Coefficient
		if a != b {
			return a < b
		}
	}
	return s.TotalControlledNodes() > other.TotalControlledNodes()
}

// Equal reports a true tie across the whole ordering.
func (s Score) Equal(other Score) bool {
	return !s.Less(other) && !other.Less(s)
}

// DescribeDifferenceFrom renders a human-readable delta for reporting
// collaborators; it carries no decision-making weight in the core.
func (s Score) DescribeDifferenceFrom(other Score) string {
	var b strings.Builder
	for _, f := range registry.FeatureOrder {
		before := other.ByFeature[f]
		after := s.ByFeature[f]
		if before.Coefficient == after.Coefficient {
			continue
		}
		fmt.Fprintf(&b, "%s coefficient %d -> %d; ", f, before.Coefficient, after.Coefficient)
	}
	if b.Len() == 0 {
		return "no change in decentralization coefficients"
	}
	return strings.TrimSuffix(b.String(), "; ")
}
