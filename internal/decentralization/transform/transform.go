// Package transform implements the subnet transform engine: the three
// primitives that add, remove, or rescue a subnet's membership one node
// at a time, optimizing the Nakamoto score under the business-rule
// checker's penalty function.
package transform

import (
	"fmt"

	"topology-rewards-core/internal/decentralization/nakamoto"
	"topology-rewards-core/internal/decentralization/rules"
	"topology-rewards-core/internal/registry"
)

// Engine evaluates candidates with a configured Checker; it holds no
// mutable state of its own between calls.
type Engine struct {
	checker *rules.Checker
}

// NewEngine builds a transform Engine around a business-rule checker.
func NewEngine(checker *rules.Checker) *Engine {
	return &Engine{checker: checker}
}

// StepLog is one line of the §4.3 business_rules_log / run_log trail.
type StepLog = string

// candidateEval is the per-candidate evaluation used to pick the best
// addition or removal at each greedy step.
type candidateEval struct {
	node    registry.Node
	penalty int
	score   nakamoto.Score
}

// better reports whether a is preferred over b: lower penalty first, then
// higher Nakamoto score.
func (a candidateEval) better(b candidateEval) bool {
	if a.penalty != b.penalty {
		return a.penalty < b.penalty
	}
	return b.score.Less(a.score)
}

func (a candidateEval) tiesWith(b candidateEval) bool {
	return a.penalty == b.penalty && a.score.Equal(b.score)
}

// WithMoreNodes greedily adds k nodes from available to base, one at a
// time, each step picking the candidate that yields the lowest penalty
// and (on tie) the highest Nakamoto score, tie-broken per chooseOne.
// Postcondition: len(result) == len(base) + k when available holds at
// least k nodes; otherwise every available node is added and no more.
func (e *Engine) WithMoreNodes(subnetID registry.PrincipalId, base []registry.Node, k int, available []registry.Node) ([]registry.Node, []StepLog) {
	current := append([]registry.Node(nil), base...)
	pool := append([]registry.Node(nil), available...)
	var log []StepLog

	for i := 0; i < k && len(pool) > 0; i++ {
		allForStats := append(append([]registry.Node(nil), current...), pool...)
		stats := newOperatorStats(allForStats)

		var bestEvals []candidateEval
		for _, c := range pool {
			hypothetical := append(append([]registry.Node(nil), current...), c)
			res := e.checker.Check(subnetID, hypothetical)
			eval := candidateEval{node: c, penalty: res.Penalty, score: nakamoto.Compute(hypothetical)}
			bestEvals = appendRanked(bestEvals, eval)
		}

		winner := bestEvals[0]
		var tied []registry.Node
		for _, ev := range bestEvals {
			if ev.tiesWith(winner) {
				tied = append(tied, ev.node)
			}
		}
		chosen := chooseOne(tied, principalsOf(current), stats)

		current = append(current, chosen)
		pool = removeByPrincipal(pool, chosen.Principal)
		log = append(log, fmt.Sprintf("added %s (penalty=%d)", chosen.Principal.ShortForm(), winner.penalty))
	}

	return current, log
}

// WithFewerNodes greedily removes k nodes from base, each step enumerating
// "which node to drop" under the same (penalty, score) ordering.
func (e *Engine) WithFewerNodes(subnetID registry.PrincipalId, base []registry.Node, k int) ([]registry.Node, []StepLog) {
	current := append([]registry.Node(nil), base...)
	var log []StepLog

	for i := 0; i < k && len(current) > 0; i++ {
		stats := newOperatorStats(current)

		var evals []candidateEval
		for _, c := range current {
			hypothetical := removeByPrincipal(current, c.Principal)
			res := e.checker.Check(subnetID, hypothetical)
			eval := candidateEval{node: c, penalty: res.Penalty, score: nakamoto.Compute(hypothetical)}
			evals = appendRanked(evals, eval)
		}

		winner := evals[0]
		var tied []registry.Node
		for _, ev := range evals {
			if ev.tiesWith(winner) {
				tied = append(tied, ev.node)
			}
		}
		chosen := chooseOne(tied, principalsOf(current), stats)

		current = removeByPrincipal(current, chosen.Principal)
		log = append(log, fmt.Sprintf("removed %s (resulting penalty=%d)", chosen.Principal.ShortForm(), winner.penalty))
	}

	return current, log
}

// Rescue drops every member not in keep, treating the available pool as
// unconstrained (Undefined), then grows back to the original size.
func (e *Engine) Rescue(subnetID registry.PrincipalId, subnet []registry.Node, keep map[registry.PrincipalId]bool, available []registry.Node) ([]registry.Node, []StepLog) {
	originalSize := len(subnet)
	var kept []registry.Node
	for _, n := range subnet {
		if keep[n.Principal] {
			kept = append(kept, n)
		}
	}
	needed := originalSize - len(kept)
	if needed <= 0 {
		return kept, nil
	}
	return e.WithMoreNodes(subnetID, kept, needed, available)
}

// appendRanked inserts eval into a slice kept sorted best-first by
// (penalty, score), used so callers can cheaply read the winner and all
// ties at the front.
func appendRanked(evals []candidateEval, eval candidateEval) []candidateEval {
	insertAt := len(evals)
	for i, e := range evals {
		if eval.better(e) {
			insertAt = i
			break
		}
	}
	evals = append(evals, candidateEval{})
	copy(evals[insertAt+1:], evals[insertAt:])
	evals[insertAt] = eval
	return evals
}

func principalsOf(nodes []registry.Node) []registry.PrincipalId {
	out := make([]registry.PrincipalId, len(nodes))
	for i, n := range nodes {
		out[i] = n.Principal
	}
	return out
}

func removeByPrincipal(nodes []registry.Node, id registry.PrincipalId) []registry.Node {
	out := make([]registry.Node, 0, len(nodes))
	for _, n := range nodes {
		if !n.Principal.Equal(id) {
			out = append(out, n)
		}
	}
	return out
}
