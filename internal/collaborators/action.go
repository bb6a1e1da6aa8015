package collaborators

import (
	"topology-rewards-core/internal/coreerrors"
	"topology-rewards-core/internal/decentralization/transform"
	"topology-rewards-core/internal/registry"
)

// BuildChangeRequest resolves a subnet-change request against a fetched
// Snapshot, translating the lookups §6's external-interface layer is
// responsible for (subnet existence, pending-proposal exclusion) into
// the TopologyError taxonomy of §4.7 — the pure transform engine itself
// never sees these concerns, since it only operates on already-resolved
// node slices.
func BuildChangeRequest(snap *Snapshot, engine *transform.Engine, subnetID registry.PrincipalId, addCount, removeCount int) (*transform.Request, error) {
	subnet, ok := snap.Subnets[subnetID]
	if !ok {
		return nil, &coreerrors.TopologyError{Kind: coreerrors.SubnetNotFound, ID: subnetID}
	}
	if snap.SubnetsWithProposals[subnetID] {
		return nil, &coreerrors.TopologyError{Kind: coreerrors.PendingProposal, ID: subnetID}
	}
	if removeCount > subnet.Size() {
		return nil, &coreerrors.TopologyError{Kind: coreerrors.ResizeFailed, ID: subnetID, Reason: "remove count exceeds current subnet size"}
	}

	available := make([]registry.Node, 0, len(snap.AvailableNodes))
	for _, n := range snap.AvailableNodes {
		if snap.NodesWithProposals[n.Principal] {
			continue
		}
		available = append(available, n)
	}

	return transform.NewRequest(engine, subnetID, subnet.Nodes, available).
		WithAddCount(addCount).
		WithRemoveCount(removeCount), nil
}

// ResolveNode looks a node up by principal in a fetched Snapshot,
// surfacing TopologyError::NodeNotFound per §4.7 rather than a bare
// "not found" boolean.
func ResolveNode(snap *Snapshot, nodeID registry.PrincipalId) (registry.Node, error) {
	n, ok := snap.Nodes[nodeID]
	if !ok {
		return registry.Node{}, &coreerrors.TopologyError{Kind: coreerrors.NodeNotFound, ID: nodeID}
	}
	return n, nil
}
