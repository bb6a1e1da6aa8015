// Package healer implements the network healer: given all subnets, a
// health map, and a pool of available nodes, it produces a sequence of
// per-subnet change plans that replace unhealthy members and optionally
// improve decentralization further within the safe-churn budget.
package healer

import (
	"sort"

	"topology-rewards-core/internal/decentralization/transform"
	"topology-rewards-core/internal/registry"
)

// ImportantSubnetNames is the literal importance list from the reference
// network-healing source, used to rank which subnets heal first.
var ImportantSubnetNames = map[string]bool{
	"NNS":                true,
	"SNS":                true,
	"Bitcoin":            true,
	"Internet Identity":  true,
	"tECDSA signing":     true,
}

// Input bundles everything the healer needs for one run.
type Input struct {
	Subnets            []registry.Subnet
	HasPendingProposal map[registry.PrincipalId]bool
	Health             map[registry.PrincipalId]registry.HealthStatus
	Available          []registry.Node
}

// Healer runs the §4.4 algorithm using a configured transform engine.
type Healer struct {
	engine *transform.Engine
}

func NewHealer(engine *transform.Engine) *Healer {
	return &Healer{engine: engine}
}

// Heal returns one plan per affected subnet, consuming from the shared
// available pool as it goes (so no node is proposed for two subnets in
// the same run).
func (h *Healer) Heal(in Input) []transform.ChangePlan {
	subnets := make([]registry.Subnet, 0, len(in.Subnets))
	for _, s := range in.Subnets {
		if !in.HasPendingProposal[s.Principal] {
			subnets = append(subnets, s)
		}
	}

	sort.SliceStable(subnets, func(i, j int) bool {
		ii, ij := importance(subnets[i]), importance(subnets[j])
		if ii != ij {
			return ii > ij
		}
		return subnets[i].Size() > subnets[j].Size()
	})

	pool := append([]registry.Node(nil), in.Available...)
	var plans []transform.ChangePlan

	for _, subnet := range subnets {
		unhealthy := unhealthyMembers(subnet, in.Health)
		n := subnet.Size()
		maxReplaceable := n / 6
		if len(unhealthy) > maxReplaceable {
			unhealthy = unhealthy[:maxReplaceable]
		}
		if len(unhealthy) == 0 {
			continue
		}

		var bestPlan transform.ChangePlan
		var havePlan bool
		bestPool := pool
		for optimizeCount := 0; optimizeCount <= maxReplaceable-len(unhealthy); optimizeCount++ {
			req := transform.NewRequest(h.engine, subnet.Principal, subnet.Nodes, pool).
				WithUnhealthyReplacements(unhealthy...).
				WithAddCount(optimizeCount).
				WithRemoveCount(optimizeCount)
			plan := req.Execute()

			if !havePlan || bestPlan.ScoreAfter.Less(plan.ScoreAfter) {
				bestPlan = plan
				havePlan = true
				bestPool = removeAddedFromPool(pool, plan)
			}
		}

		if len(unhealthy) > 0 && len(unhealthy) < originalUnhealthyCount(subnet, in.Health) {
			bestPlan.PenaltyComment += " warning: not all unhealthy nodes could be replaced within the safe-churn budget;"
		}

		plans = append(plans, bestPlan)
		pool = bestPool
	}

	return plans
}

func importance(s registry.Subnet) int {
	if ImportantSubnetNames[s.Name] {
		return 1
	}
	return 0
}

func unhealthyMembers(s registry.Subnet, health map[registry.PrincipalId]registry.HealthStatus) []registry.PrincipalId {
	var out []registry.PrincipalId
	for _, n := range s.Nodes {
		status, ok := health[n.Principal]
		if !ok {
			status = n.Health
		}
		if !status.IsHealthy() {
			out = append(out, n.Principal)
		}
	}
	return out
}

func originalUnhealthyCount(s registry.Subnet, health map[registry.PrincipalId]registry.HealthStatus) int {
	return len(unhealthyMembers(s, health))
}

func removeAddedFromPool(pool []registry.Node, plan transform.ChangePlan) []registry.Node {
	added := map[registry.PrincipalId]bool{}
	for _, a := range plan.Added {
		added[a.NodeID] = true
	}
	out := make([]registry.Node, 0, len(pool))
	for _, n := range pool {
		if !added[n.Principal] {
			out = append(out, n)
		}
	}
	return out
}
