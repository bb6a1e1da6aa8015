package hostos

import (
	"testing"

	"topology-rewards-core/internal/registry"
)

func principal(b byte) registry.PrincipalId {
	return registry.BytesToPrincipal([]byte{b})
}

func assignedNode(id byte, subnet registry.PrincipalId, version string, dfinityOwned bool) registry.Node {
	s := subnet
	return registry.Node{
		Principal:     principal(id),
		Subnet:        &s,
		HostosVersion: version,
		DfinityOwned:  dfinityOwned,
		Health:        registry.HealthHealthy,
	}
}

func TestSelectRejectsUnelectedTargetVersion(t *testing.T) {
	_, reason := Select(Input{
		TargetVersion:   "v2",
		ElectedVersions: map[string]bool{"v1": true},
	})
	if reason == nil || *reason != AllAlreadyUpdated {
		t.Fatalf("expected AllAlreadyUpdated for an unelected target version")
	}
}

func TestSelectPicksNodesNotYetOnTarget(t *testing.T) {
	subnet := principal(1)
	nodes := map[registry.PrincipalId]registry.Node{
		principal(2): assignedNode(2, subnet, "v1", false),
		principal(3): assignedNode(3, subnet, "v2", false),
	}
	subnets := map[registry.PrincipalId]registry.Subnet{
		subnet: registry.NewSubnet(subnet, []registry.Node{nodes[principal(2)], nodes[principal(3)]}, "v1", registry.SubnetApplication, "Example"),
	}

	out, reason := Select(Input{
		Nodes:           nodes,
		Subnets:         subnets,
		TargetVersion:   "v2",
		ElectedVersions: map[string]bool{"v2": true},
		Group: GroupDescriptor{
			Assignment: Assigned,
			Owner:      AllOwner,
			Count:      Percentage{P: 100},
		},
	})
	if reason != nil {
		t.Fatalf("expected a successful selection, got reason %v", *reason)
	}
	if len(out.Nodes) != 1 || !out.Nodes[0].Equal(principal(2)) {
		t.Fatalf("expected only the node still on v1 to be selected, got %v", out.Nodes)
	}
}

func TestSelectNoNodeHealthyWhenAllUnhealthy(t *testing.T) {
	subnet := principal(1)
	n := assignedNode(2, subnet, "v1", false)
	n.Health = registry.HealthDead
	nodes := map[registry.PrincipalId]registry.Node{principal(2): n}
	subnets := map[registry.PrincipalId]registry.Subnet{
		subnet: registry.NewSubnet(subnet, []registry.Node{n}, "v1", registry.SubnetApplication, "Example"),
	}

	_, reason := Select(Input{
		Nodes:           nodes,
		Subnets:         subnets,
		TargetVersion:   "v2",
		ElectedVersions: map[string]bool{"v2": true},
		Group:           GroupDescriptor{Assignment: Assigned, Owner: AllOwner, Count: Percentage{P: 100}},
	})
	if reason == nil || *reason != NoNodeHealthy {
		t.Fatalf("expected NoNodeHealthy, got %v", reason)
	}
}

// TestSelectCapsDeterministicallyAcrossRepeatedRuns exercises a partial
// per-subnet cap (50% of 6 eligible nodes) over a many-node subnet
// group; without sorting the candidates before slicing, the 3 chosen
// nodes would vary across runs with Go's randomized map iteration.
func TestSelectCapsDeterministicallyAcrossRepeatedRuns(t *testing.T) {
	subnet := principal(1)
	nodes := map[registry.PrincipalId]registry.Node{}
	var members []registry.Node
	for i := byte(2); i <= 7; i++ {
		n := assignedNode(i, subnet, "v1", false)
		nodes[principal(i)] = n
		members = append(members, n)
	}
	subnets := map[registry.PrincipalId]registry.Subnet{
		subnet: registry.NewSubnet(subnet, members, "v1", registry.SubnetApplication, "Example"),
	}

	run := func() []registry.PrincipalId {
		out, reason := Select(Input{
			Nodes:           nodes,
			Subnets:         subnets,
			TargetVersion:   "v2",
			ElectedVersions: map[string]bool{"v2": true},
			Group: GroupDescriptor{
				Assignment: Assigned,
				Owner:      AllOwner,
				Count:      Percentage{P: 50},
			},
		})
		if reason != nil {
			t.Fatalf("expected a successful selection, got reason %v", *reason)
		}
		return out.Nodes
	}

	first := run()
	if len(first) != 3 {
		t.Fatalf("expected floor(6*0.5)=3 nodes selected, got %d", len(first))
	}
	for i := 0; i < 10; i++ {
		again := run()
		if len(again) != len(first) {
			t.Fatalf("selection count changed across runs: %d vs %d", len(first), len(again))
		}
		for j := range first {
			if !first[j].Equal(again[j]) {
				t.Fatalf("selection order/membership changed across runs at index %d: %v vs %v", j, first, again)
			}
		}
	}
}

func TestNodesToTakePercentageFloorsDown(t *testing.T) {
	if n := nodesToTake(Percentage{P: 50}, 5); n != 2 {
		t.Fatalf("expected floor(5*0.5)=2, got %d", n)
	}
}

func TestNodesToTakeAbsolute(t *testing.T) {
	if n := nodesToTake(Absolute{N: 3}, 100); n != 3 {
		t.Fatalf("expected flat count of 3, got %d", n)
	}
}
