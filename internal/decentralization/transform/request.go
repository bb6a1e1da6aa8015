package transform

import (
	"fmt"

	"topology-rewards-core/internal/decentralization/nakamoto"
	"topology-rewards-core/internal/registry"
)

// ChangePlan is the DE's output: the added/removed nodes with
// human-readable reasons, before/after scores, and the run log,
// matching §6's external-interface shape.
type ChangePlan struct {
	SubnetID      registry.PrincipalId
	Added         []PlanEntry
	Removed       []PlanEntry
	ScoreBefore   nakamoto.Score
	ScoreAfter    nakamoto.Score
	PenaltyComment string // empty from Execute when the resulting subnet is compliant; the healer may append a churn-budget warning
	RunLog        []string
}

// PlanEntry pairs a node with its human-readable plan reason, derived
// from NakamotoScore.DescribeDifferenceFrom and informational only.
type PlanEntry struct {
	NodeID       registry.PrincipalId
	HumanReason  string
}

// Request is the builder-style SubnetChangeRequest of §9: it collects
// add/remove counts, a health-first unhealthy-replacement list, and a
// blacklist before a single Execute call runs the transform engine.
type Request struct {
	engine      *Engine
	subnetID    registry.PrincipalId
	base        []registry.Node
	available   []registry.Node

	addCount                int
	removeCount             int
	replacementsUnhealthy   []registry.PrincipalId
	blacklist               map[registry.PrincipalId]bool
}

// NewRequest starts a builder for the given subnet's current membership
// and the pool of nodes available to add.
func NewRequest(engine *Engine, subnetID registry.PrincipalId, base, available []registry.Node) *Request {
	return &Request{
		engine:    engine,
		subnetID:  subnetID,
		base:      base,
		available: available,
		blacklist: make(map[registry.PrincipalId]bool),
	}
}

// WithAddCount sets how many nodes to add.
func (r *Request) WithAddCount(n int) *Request {
	r.addCount = n
	return r
}

// WithRemoveCount sets how many nodes to remove (beyond any unhealthy
// replacements already queued).
func (r *Request) WithRemoveCount(n int) *Request {
	r.removeCount = n
	return r
}

// WithUnhealthyReplacements queues already-unhealthy nodes that must be
// dropped before any optimization pass runs.
func (r *Request) WithUnhealthyReplacements(ids ...registry.PrincipalId) *Request {
	r.replacementsUnhealthy = append(r.replacementsUnhealthy, ids...)
	return r
}

// WithBlacklist excludes the given principals from ever being added.
func (r *Request) WithBlacklist(ids ...registry.PrincipalId) *Request {
	for _, id := range ids {
		r.blacklist[id] = true
	}
	return r
}

// Execute runs the health-first scheduling described in §4.3: first
// drop the queued unhealthy replacements, then run one combined
// (add_k, remove_k) pass where k = optimize_count + len(replacements).
func (r *Request) Execute() ChangePlan {
	before := nakamoto.Compute(r.base)

	current := append([]registry.Node(nil), r.base...)
	var runLog []string

	for _, id := range r.replacementsUnhealthy {
		current = removeByPrincipal(current, id)
		runLog = append(runLog, fmt.Sprintf("dropped unhealthy node %s", id.ShortForm()))
	}

	pool := filterBlacklist(r.available, r.blacklist)

	addK := r.addCount + len(r.replacementsUnhealthy)
	removeK := r.removeCount

	afterRemoval, removeLog := r.engine.WithFewerNodes(r.subnetID, current, removeK)
	runLog = append(runLog, removeLog...)

	afterAddition, addLog := r.engine.WithMoreNodes(r.subnetID, afterRemoval, addK, pool)
	runLog = append(runLog, addLog...)

	after := nakamoto.Compute(afterAddition)

	plan := ChangePlan{
		SubnetID:    r.subnetID,
		ScoreBefore: before,
		ScoreAfter:  after,
		RunLog:      runLog,
	}
	plan.Added, plan.Removed = diffMembership(r.base, afterAddition, before, after)

	checkResult := checkFinal(r, afterAddition)
	if checkResult.Penalty != 0 {
		plan.PenaltyComment = renderPenaltyComment(checkResult)
	}

	return plan
}

func filterBlacklist(nodes []registry.Node, blacklist map[registry.PrincipalId]bool) []registry.Node {
	if len(blacklist) == 0 {
		return nodes
	}
	out := make([]registry.Node, 0, len(nodes))
	for _, n := range nodes {
		if !blacklist[n.Principal] {
			out = append(out, n)
		}
	}
	return out
}

func diffMembership(before, after []registry.Node, scoreBefore, scoreAfter nakamoto.Score) (added, removed []PlanEntry) {
	beforeSet := map[registry.PrincipalId]registry.Node{}
	for _, n := range before {
		beforeSet[n.Principal] = n
	}
	afterSet := map[registry.PrincipalId]registry.Node{}
	for _, n := range after {
		afterSet[n.Principal] = n
	}
	reason := scoreAfter.DescribeDifferenceFrom(scoreBefore)

	for _, n := range after {
		if _, ok := beforeSet[n.Principal]; !ok {
			added = append(added, PlanEntry{NodeID: n.Principal, HumanReason: reason})
		}
	}
	for _, n := range before {
		if _, ok := afterSet[n.Principal]; !ok {
			removed = append(removed, PlanEntry{NodeID: n.Principal, HumanReason: reason})
		}
	}
	return added, removed
}

// checkResultShim mirrors rules.Result without importing rules directly in
// this file's exported surface (kept local to avoid a circular-seeming
// public dependency on the rule package's Result type name).
type checkResultShim struct {
	Penalty      int
	Explanations []string
}

func checkFinal(r *Request, final []registry.Node) checkResultShim {
	res := r.engine.checker.Check(r.subnetID, final)
	return checkResultShim{Penalty: res.Penalty, Explanations: res.Explanations}
}

func renderPenaltyComment(res checkResultShim) string {
	comment := fmt.Sprintf("resulting subnet carries penalty %d:", res.Penalty)
	for _, e := range res.Explanations {
		comment += " " + e + ";"
	}
	return comment
}
