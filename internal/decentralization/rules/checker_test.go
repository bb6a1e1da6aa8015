package rules

import (
	"strings"
	"testing"

	"topology-rewards-core/internal/registry"
)

func principal(b byte) registry.PrincipalId {
	return registry.BytesToPrincipal([]byte{b})
}

func plainNode(id byte, provider string, dfinityOwned bool, country string) registry.Node {
	return registry.Node{
		Principal:         principal(id),
		DfinityOwned:      dfinityOwned,
		ProviderPrincipal: principal(100 + id),
		Features: map[registry.NodeFeature]string{
			registry.FeatureNodeProvider:   provider,
			registry.FeatureDataCenter:     "dc-" + provider,
			registry.FeatureDataCenterOwner: "owner-" + provider,
			registry.FeatureCountry:        country,
			registry.FeatureContinent:      "Europe",
		},
	}
}

func TestCheckSingleNodeSubnetIsExempt(t *testing.T) {
	c := NewChecker(SensitiveSubnets{}, NewLinkedProviderClusters(nil))
	res := c.Check(principal(1), []registry.Node{plainNode(1, "A", false, "CH")})
	if res.Penalty != 1 {
		t.Fatalf("expected the sentinel penalty of 1 for a trivial subnet, got %d", res.Penalty)
	}
}

func TestCheckNNSWrongDfinityCountProducesExactMessage(t *testing.T) {
	nns := principal(9)
	sensitive := SensitiveSubnets{NNS: nns}
	c := NewChecker(sensitive, NewLinkedProviderClusters(nil))

	nodes := []registry.Node{
		plainNode(1, "A", true, "CH"),
		plainNode(2, "B", true, "DE"),
		plainNode(3, "C", false, "FR"),
		plainNode(4, "D", false, "IT"),
	}
	res := c.Check(nns, nodes)

	if res.Penalty < 1000 {
		t.Fatalf("expected a DFINITY-quota penalty of at least 1000, got %d", res.Penalty)
	}
	found := false
	for _, e := range res.Explanations {
		if e == "Subnet should have 3 DFINITY-owned nodes, got 2" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the exact DFINITY-quota explanation, got %v", res.Explanations)
	}
}

func TestCheckCompliantSubnetHasZeroPenalty(t *testing.T) {
	c := NewChecker(SensitiveSubnets{}, NewLinkedProviderClusters(nil))
	nodes := []registry.Node{
		plainNode(1, "A", true, "CH"),
		plainNode(2, "B", false, "DE"),
		plainNode(3, "C", false, "FR"),
		plainNode(4, "D", false, "IT"),
	}
	nodes[0].Features[registry.FeatureContinent] = "Europe"
	nodes[1].Features[registry.FeatureContinent] = "Europe"
	nodes[2].Features[registry.FeatureContinent] = "NorthAmerica"
	nodes[3].Features[registry.FeatureContinent] = "Asia"
	nodes[0].Features[registry.FeatureCity] = "Zurich"
	nodes[1].Features[registry.FeatureCity] = "Berlin"
	nodes[2].Features[registry.FeatureCity] = "Paris"
	nodes[3].Features[registry.FeatureCity] = "Rome"

	res := c.Check(principal(1), nodes)
	if res.Penalty != 0 {
		t.Fatalf("expected zero penalty for a fully diversified subnet, got %d: %v", res.Penalty, res.Explanations)
	}
}

func TestCheckLinkedProviderClusterPenalty(t *testing.T) {
	a, b := principal(101), principal(102)
	clusters := NewLinkedProviderClusters(map[string][]registry.PrincipalId{"cluster-x": {a, b}})
	c := NewChecker(SensitiveSubnets{}, clusters)

	nodes := []registry.Node{
		{Principal: principal(1), ProviderPrincipal: a, Features: map[registry.NodeFeature]string{registry.FeatureCountry: "CH", registry.FeatureContinent: "Europe"}},
		{Principal: principal(2), ProviderPrincipal: b, Features: map[registry.NodeFeature]string{registry.FeatureCountry: "DE", registry.FeatureContinent: "Europe"}},
		{Principal: principal(3), ProviderPrincipal: principal(103), Features: map[registry.NodeFeature]string{registry.FeatureCountry: "FR", registry.FeatureContinent: "Europe"}},
	}
	res := c.Check(principal(1), nodes)

	any := false
	for _, e := range res.Explanations {
		if strings.Contains(e, "cluster-x") {
			any = true
		}
	}
	if !any {
		t.Fatalf("expected a linked-cluster explanation, got %v", res.Explanations)
	}
}
