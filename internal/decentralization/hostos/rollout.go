// Package hostos implements the Host-OS Rollout Selector (§4.5): given
// the current node/subnet map, a target version, health, open
// proposals, and a rollout group descriptor, it picks the next batch of
// nodes to receive a host-OS update.
package hostos

import (
	"math"
	"sort"

	"topology-rewards-core/internal/registry"
)

// Assignment is the closed set of membership filters a rollout group can
// target.
type Assignment int

const (
	Assigned Assignment = iota
	Unassigned
	AllAssignment
)

// Owner is the closed set of ownership filters a rollout group can
// target.
type Owner int

const (
	Dfinity Owner = iota
	Others
	AllOwner
)

// NodeCountSpec is the closed NumberOfNodes union: either a percentage
// of a group (rounded down) or an absolute count.
type NodeCountSpec interface {
	isNodeCountSpec()
}

type Percentage struct{ P int }
type Absolute struct{ N int }

func (Percentage) isNodeCountSpec() {}
func (Absolute) isNodeCountSpec()   {}

// GroupDescriptor selects which nodes are eligible for this rollout.
type GroupDescriptor struct {
	Assignment Assignment
	Owner      Owner
	Count      NodeCountSpec
	Only       map[registry.PrincipalId]bool
	Exclude    map[registry.PrincipalId]bool
}

// NoCandidatesReason is the typed "nothing to roll out" result, returned
// instead of an error per §7's "Host-OS selection failures → explicit
// NoCandidates{reason} variant, not an exception."
type NoCandidatesReason int

const (
	NoNodeHealthy NoCandidatesReason = iota
	NoNodeWithoutProposal
	AllAlreadyUpdated
)

func (r NoCandidatesReason) String() string {
	switch r {
	case NoNodeHealthy:
		return "NoNodeHealthy"
	case NoNodeWithoutProposal:
		return "NoNodeWithoutProposal"
	default:
		return "AllAlreadyUpdated"
	}
}

// Input bundles the registry data the selector needs.
type Input struct {
	Nodes            map[registry.PrincipalId]registry.Node
	Subnets          map[registry.PrincipalId]registry.Subnet
	TargetVersion    string
	ElectedVersions  map[string]bool
	Health           map[registry.PrincipalId]registry.HealthStatus
	OpenProposalNode map[registry.PrincipalId]bool
	Group            GroupDescriptor
}

// Output is the selector's successful result.
type Output struct {
	Nodes           []registry.PrincipalId
	SubnetsAffected []registry.PrincipalId
}

// Select runs the §4.5 pipeline: filter to group, drop unhealthy, drop
// proposal-pending, drop already-on-target, apply only/exclude, then cap
// per-subnet for Assigned groups.
func Select(in Input) (Output, *NoCandidatesReason) {
	if !in.ElectedVersions[in.TargetVersion] {
		reason := AllAlreadyUpdated
		return Output{}, &reason
	}

	candidates := filterToGroup(in)

	var healthy []registry.Node
	for _, n := range candidates {
		status, ok := in.Health[n.Principal]
		if !ok {
			status = n.Health
		}
		if status.IsHealthy() {
			healthy = append(healthy, n)
		}
	}
	if len(healthy) == 0 {
		reason := NoNodeHealthy
		return Output{}, &reason
	}

	var withoutProposal []registry.Node
	for _, n := range healthy {
		if !in.OpenProposalNode[n.Principal] {
			withoutProposal = append(withoutProposal, n)
		}
	}
	if len(withoutProposal) == 0 {
		reason := NoNodeWithoutProposal
		return Output{}, &reason
	}

	var notOnTarget []registry.Node
	for _, n := range withoutProposal {
		if n.HostosVersion != in.TargetVersion {
			notOnTarget = append(notOnTarget, n)
		}
	}
	if len(notOnTarget) == 0 {
		reason := AllAlreadyUpdated
		return Output{}, &reason
	}

	filtered := applyOnlyExclude(notOnTarget, in.Group)
	if len(filtered) == 0 {
		reason := AllAlreadyUpdated
		return Output{}, &reason
	}

	selected := capPerSubnet(filtered, in)

	subnetSet := map[registry.PrincipalId]bool{}
	var subnets []registry.PrincipalId
	for _, n := range selected {
		if n.Subnet != nil && !subnetSet[*n.Subnet] {
			subnetSet[*n.Subnet] = true
			subnets = append(subnets, *n.Subnet)
		}
	}

	out := Output{SubnetsAffected: subnets}
	for _, n := range selected {
		out.Nodes = append(out.Nodes, n.Principal)
	}
	return out, nil
}

// filterToGroup selects the candidate nodes for this rollout group and
// returns them sorted by principal: in.Nodes is a map, so without this
// sort the rest of the pipeline (and capPerSubnet's take-first-N slice)
// would silently depend on Go's randomized map iteration order.
func filterToGroup(in Input) []registry.Node {
	var out []registry.Node
	for _, n := range in.Nodes {
		switch in.Group.Assignment {
		case Assigned:
			if n.Subnet == nil {
				continue
			}
		case Unassigned:
			if n.Subnet != nil {
				continue
			}
		}
		switch in.Group.Owner {
		case Dfinity:
			if !n.DfinityOwned {
				continue
			}
		case Others:
			if n.DfinityOwned {
				continue
			}
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Principal.Less(out[j].Principal) })
	return out
}

func applyOnlyExclude(nodes []registry.Node, g GroupDescriptor) []registry.Node {
	var out []registry.Node
	for _, n := range nodes {
		if g.Only != nil && !g.Only[n.Principal] {
			continue
		}
		if g.Exclude != nil && g.Exclude[n.Principal] {
			continue
		}
		out = append(out, n)
	}
	return out
}

// capPerSubnet enforces the Assigned group's per-subnet churn cap:
// nodes_to_take = floor(subnet_size * p/100) for Percentage, or a flat n
// for Absolute. Unassigned/All groups apply the same count spec once to
// the whole filtered set instead of per subnet.
func capPerSubnet(nodes []registry.Node, in Input) []registry.Node {
	if in.Group.Assignment != Assigned {
		return takeCount(nodes, in.Group.Count)
	}

	bySubnet := map[registry.PrincipalId][]registry.Node{}
	var order []registry.PrincipalId
	for _, n := range nodes {
		if n.Subnet == nil {
			continue
		}
		if _, ok := bySubnet[*n.Subnet]; !ok {
			order = append(order, *n.Subnet)
		}
		bySubnet[*n.Subnet] = append(bySubnet[*n.Subnet], n)
	}

	var out []registry.Node
	for _, subnetID := range order {
		group := bySubnet[subnetID]
		subnetSize := in.Subnets[subnetID].Size()
		take := nodesToTake(in.Group.Count, subnetSize)
		if take > len(group) {
			take = len(group)
		}
		out = append(out, group[:take]...)
	}
	return out
}

func nodesToTake(spec NodeCountSpec, subnetSize int) int {
	switch c := spec.(type) {
	case Percentage:
		return int(math.Floor(float64(subnetSize) * float64(c.P) / 100.0))
	case Absolute:
		return c.N
	default:
		return 0
	}
}

func takeCount(nodes []registry.Node, spec NodeCountSpec) []registry.Node {
	n := nodesToTake(spec, len(nodes))
	if n > len(nodes) {
		n = len(nodes)
	}
	return nodes[:n]
}
