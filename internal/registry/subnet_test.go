package registry

import "testing"

func TestNewSubnetSortsNodesByPrincipal(t *testing.T) {
	n1 := Node{Principal: BytesToPrincipal([]byte{3})}
	n2 := Node{Principal: BytesToPrincipal([]byte{1})}
	n3 := Node{Principal: BytesToPrincipal([]byte{2})}

	s := NewSubnet(BytesToPrincipal([]byte{9}), []Node{n1, n2, n3}, "v1", SubnetSystem, "Example")

	for i := 1; i < len(s.Nodes); i++ {
		if !s.Nodes[i-1].Principal.Less(s.Nodes[i].Principal) {
			t.Fatalf("expected nodes in ascending principal order, got %v", s.PrincipalIds())
		}
	}
}

func TestSubnetContains(t *testing.T) {
	n := Node{Principal: BytesToPrincipal([]byte{1})}
	s := NewSubnet(BytesToPrincipal([]byte{9}), []Node{n}, "v1", SubnetSystem, "Example")

	if !s.Contains(n.Principal) {
		t.Fatalf("expected the subnet to contain its own member")
	}
	if s.Contains(BytesToPrincipal([]byte{99})) {
		t.Fatalf("expected the subnet to not contain an absent principal")
	}
}

func TestNodeFeatureDefaultsToUnknown(t *testing.T) {
	n := Node{}
	if got := n.Feature(FeatureCountry); got != UnknownFeatureValue {
		t.Fatalf("expected unknown feature value for an unset feature, got %q", got)
	}
}

func TestNodeRegionJoinsFeatures(t *testing.T) {
	n := Node{Features: map[NodeFeature]string{
		FeatureContinent: "Europe",
		FeatureCountry:   "Switzerland",
		FeatureCity:      "Zurich",
	}}
	if got, want := n.Region(), "Europe,Switzerland,Zurich"; got != want {
		t.Fatalf("expected region %q, got %q", want, got)
	}
}
