package nakamoto

import (
	"testing"

	"topology-rewards-core/internal/registry"
)

func nodeWith(principal byte, provider, country string) registry.Node {
	return registry.Node{
		Principal: registry.BytesToPrincipal([]byte{principal}),
		Features: map[registry.NodeFeature]string{
			registry.FeatureNodeProvider: provider,
			registry.FeatureCountry:      country,
		},
	}
}

func TestComputeSingleProviderCoefficientIsOne(t *testing.T) {
	nodes := []registry.Node{
		nodeWith(1, "A", "CH"),
		nodeWith(2, "A", "CH"),
		nodeWith(3, "A", "CH"),
	}
	score := Compute(nodes)
	np := score.ByFeature[registry.FeatureNodeProvider]
	if np.Coefficient != 1 {
		t.Fatalf("expected coefficient 1 for a single provider, got %d", np.Coefficient)
	}
	if np.ControlledNodes != 3 {
		t.Fatalf("expected controlled nodes 3, got %d", np.ControlledNodes)
	}
}

func TestComputeEvenSplitCoefficient(t *testing.T) {
	nodes := []registry.Node{
		nodeWith(1, "A", "CH"),
		nodeWith(2, "B", "DE"),
		nodeWith(3, "C", "FR"),
		nodeWith(4, "D", "IT"),
	}
	score := Compute(nodes)
	np := score.ByFeature[registry.FeatureNodeProvider]
	// Majority of 4 is 3; each provider owns 1 node, so 3 providers are
	// needed to reach a majority.
	if np.Coefficient != 3 {
		t.Fatalf("expected coefficient 3 for four equally split providers, got %d", np.Coefficient)
	}
}

func TestScoreLessOrdersByAverageLinearFirst(t *testing.T) {
	better := Compute([]registry.Node{
		nodeWith(1, "A", "CH"), nodeWith(2, "B", "DE"), nodeWith(3, "C", "FR"),
	})
	worse := Compute([]registry.Node{
		nodeWith(1, "A", "CH"), nodeWith(2, "A", "CH"), nodeWith(3, "A", "CH"),
	})
	if !worse.Less(better) {
		t.Fatalf("expected the concentrated score to be less than the diversified one")
	}
	if better.Less(worse) {
		t.Fatalf("expected the diversified score to not be less than the concentrated one")
	}
}

func TestScoreEqualIsReflexive(t *testing.T) {
	s := Compute([]registry.Node{nodeWith(1, "A", "CH")})
	if !s.Equal(s) {
		t.Fatalf("expected a score to equal itself")
	}
}
