package healer

import (
	"testing"

	"topology-rewards-core/internal/decentralization/rules"
	"topology-rewards-core/internal/decentralization/transform"
	"topology-rewards-core/internal/registry"
)

func principal(b byte) registry.PrincipalId {
	return registry.BytesToPrincipal([]byte{b})
}

func member(id byte, provider string) registry.Node {
	return registry.Node{
		Principal:         principal(id),
		ProviderPrincipal: principal(100 + id),
		OperatorPrincipal: principal(150 + id),
		Features: map[registry.NodeFeature]string{
			registry.FeatureNodeProvider: provider,
			registry.FeatureCountry:      "CH",
			registry.FeatureContinent:    "Europe",
		},
	}
}

func newTestEngine() *transform.Engine {
	return transform.NewEngine(rules.NewChecker(rules.SensitiveSubnets{}, rules.NewLinkedProviderClusters(nil)))
}

// TestHealReplacesUpToMaxReplaceableInA13NodeSubnet mirrors the spec's
// literal 13-node, 3-unhealthy healing scenario: max_replaceable = 13/6 = 2,
// so the heal can only replace 2 of the 3 unhealthy members and must
// annotate the plan accordingly.
func TestHealReplacesUpToMaxReplaceableInA13NodeSubnet(t *testing.T) {
	var nodes []registry.Node
	for i := byte(1); i <= 13; i++ {
		nodes = append(nodes, member(i, string(rune('A'+i))))
	}
	subnet := registry.NewSubnet(principal(1), nodes, "v1", registry.SubnetSystem, "Example")

	health := map[registry.PrincipalId]registry.HealthStatus{
		principal(1): registry.HealthDead,
		principal(2): registry.HealthDead,
		principal(3): registry.HealthDegraded,
	}

	var pool []registry.Node
	for i := byte(20); i < 26; i++ {
		pool = append(pool, member(i, string(rune('A'+i))))
	}

	h := NewHealer(newTestEngine())
	plans := h.Heal(Input{
		Subnets:   []registry.Subnet{subnet},
		Health:    health,
		Available: pool,
	})

	if len(plans) != 1 {
		t.Fatalf("expected exactly one plan, got %d", len(plans))
	}
	plan := plans[0]
	if len(plan.Removed) != 2 {
		t.Fatalf("expected exactly 2 removals (max_replaceable=13/6=2), got %d", len(plan.Removed))
	}
	if plan.PenaltyComment == "" {
		t.Fatalf("expected a warning comment since not all unhealthy nodes could be replaced")
	}
}

// TestHealOptimizationPassPreservesSubnetSize covers the case where
// max_replaceable exceeds the unhealthy count: a 20-node subnet (max
// replaceable = 3) with a single unhealthy member lets the healer spend
// up to 2 extra optimize slots, each of which must remove a healthy
// member alongside the addition so the subnet size never drifts.
func TestHealOptimizationPassPreservesSubnetSize(t *testing.T) {
	var nodes []registry.Node
	for i := byte(1); i <= 20; i++ {
		nodes = append(nodes, member(i, string(rune('A'+i))))
	}
	subnet := registry.NewSubnet(principal(1), nodes, "v1", registry.SubnetSystem, "Example")

	health := map[registry.PrincipalId]registry.HealthStatus{
		principal(1): registry.HealthDead,
	}

	var pool []registry.Node
	for i := byte(40); i < 50; i++ {
		pool = append(pool, member(i, string(rune('A'+i))))
	}

	h := NewHealer(newTestEngine())
	plans := h.Heal(Input{
		Subnets:   []registry.Subnet{subnet},
		Health:    health,
		Available: pool,
	})

	if len(plans) != 1 {
		t.Fatalf("expected exactly one plan, got %d", len(plans))
	}
	plan := plans[0]
	if len(plan.Added) != len(plan.Removed) {
		t.Fatalf("expected added/removed counts to match so subnet size is preserved, got added=%d removed=%d", len(plan.Added), len(plan.Removed))
	}
}

func TestHealSkipsSubnetsWithPendingProposals(t *testing.T) {
	nodes := []registry.Node{member(1, "A"), member(2, "B"), member(3, "C"), member(4, "D")}
	subnet := registry.NewSubnet(principal(1), nodes, "v1", registry.SubnetSystem, "Example")

	h := NewHealer(newTestEngine())
	plans := h.Heal(Input{
		Subnets:            []registry.Subnet{subnet},
		HasPendingProposal: map[registry.PrincipalId]bool{principal(1): true},
		Health:             map[registry.PrincipalId]registry.HealthStatus{principal(1): registry.HealthDead},
		Available:          []registry.Node{member(5, "E")},
	})
	if len(plans) != 0 {
		t.Fatalf("expected no plans for a subnet with a pending proposal, got %d", len(plans))
	}
}

func TestHealProducesNoPlanWhenAllHealthy(t *testing.T) {
	nodes := []registry.Node{member(1, "A"), member(2, "B"), member(3, "C")}
	subnet := registry.NewSubnet(principal(1), nodes, "v1", registry.SubnetSystem, "Example")

	h := NewHealer(newTestEngine())
	plans := h.Heal(Input{
		Subnets:   []registry.Subnet{subnet},
		Available: []registry.Node{member(5, "E")},
	})
	if len(plans) != 0 {
		t.Fatalf("expected no plans when every member is healthy, got %d", len(plans))
	}
}
