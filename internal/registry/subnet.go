package registry

import "sort"

// SubnetType is the closed set of subnet purposes.
type SubnetType int

const (
	SubnetSystem SubnetType = iota
	SubnetApplication
	SubnetVerifiedApplication
)

func (t SubnetType) String() string {
	switch t {
	case SubnetSystem:
		return "System"
	case SubnetVerifiedApplication:
		return "VerifiedApplication"
	default:
		return "Application"
	}
}

// Subnet is a replicated consensus group. Nodes is kept in the stable
// iteration order required by §3: principal ascending.
type Subnet struct {
	Principal      PrincipalId
	Nodes          []Node
	ReplicaVersion string
	SubnetType     SubnetType
	Name           string
}

// NewSubnet builds a Subnet, normalizing Nodes into principal-ascending
// order. It does not verify the membership invariant (node.Subnet ==
// principal) — callers that mutate a registry snapshot are responsible
// for keeping that invariant, the same way the reference node leaves
// cross-reference consistency to its node/blockchain wiring layer.
func NewSubnet(principal PrincipalId, nodes []Node, replicaVersion string, subnetType SubnetType, name string) Subnet {
	s := Subnet{
		Principal:      principal,
		Nodes:          append([]Node(nil), nodes...),
		ReplicaVersion: replicaVersion,
		SubnetType:     subnetType,
		Name:           name,
	}
	s.sortNodes()
	return s
}

func (s *Subnet) sortNodes() {
	sort.Slice(s.Nodes, func(i, j int) bool {
		return s.Nodes[i].Principal.Less(s.Nodes[j].Principal)
	})
}

// Size returns current membership count.
func (s Subnet) Size() int {
	return len(s.Nodes)
}

// PrincipalIds returns the member principals in stable order.
func (s Subnet) PrincipalIds() []PrincipalId {
	out := make([]PrincipalId, len(s.Nodes))
	for i, n := range s.Nodes {
		out[i] = n.Principal
	}
	return out
}

// Contains reports whether id is a current member.
func (s Subnet) Contains(id PrincipalId) bool {
	for _, n := range s.Nodes {
		if n.Principal.Equal(id) {
			return true
		}
	}
	return false
}

// WithNodes returns a copy of s with Nodes replaced and re-sorted.
func (s Subnet) WithNodes(nodes []Node) Subnet {
	cp := s
	cp.Nodes = append([]Node(nil), nodes...)
	cp.sortNodes()
	return cp
}
