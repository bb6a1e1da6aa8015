// Package collaborators defines the external interfaces (§6) the
// decentralization and rewards engines depend on but do not implement
// themselves: the registry snapshot they read and the proposal
// submission surface they write plans to. Concrete adapters live
// outside this package; tests use in-memory fakes.
package collaborators

import (
	"context"

	"topology-rewards-core/internal/decentralization/transform"
	"topology-rewards-core/internal/registry"
)

// RegistrySnapshot is the read surface §6 calls out: a point-in-time
// view of nodes, subnets, operators, data centers, and elected
// versions, plus the rewards table and per-node proposal/availability
// state the selectors need.
type RegistrySnapshot interface {
	Nodes(ctx context.Context) (map[registry.PrincipalId]registry.Node, error)
	Subnets(ctx context.Context) (map[registry.PrincipalId]registry.Subnet, error)
	Operators(ctx context.Context) (map[registry.PrincipalId]Operator, error)
	DataCenters(ctx context.Context) (map[registry.PrincipalId]DataCenter, error)
	ElectedGuestosVersions(ctx context.Context) ([]string, error)
	ElectedHostosVersions(ctx context.Context) ([]string, error)
	UnassignedNodesVersion(ctx context.Context) (string, error)
	NodeRewardsTable(ctx context.Context) (*registry.NodeRewardsTable, error)
	AvailableNodes(ctx context.Context) ([]registry.Node, error)
	GetAPIBoundaryNodes(ctx context.Context) ([]registry.PrincipalId, error)
	NodesWithProposals(ctx context.Context) (map[registry.PrincipalId]bool, error)
	SubnetsAndProposals(ctx context.Context) (map[registry.PrincipalId]bool, error)
}

// Operator is a node operator's registry entry: who may add nodes, and
// to what provider and data center they belong.
type Operator struct {
	Principal         registry.PrincipalId
	ProviderPrincipal registry.PrincipalId
	DataCenterID      string
	NodeAllowance     int
	Rewardable        bool
}

// DataCenter is a node operator's physical location, the source of the
// City/Country/Continent feature values nodes inherit.
type DataCenter struct {
	ID        string
	Region    string
	Owner     string
	GPSLatLon [2]float64
}

// ProposeOptions carries the human-facing fields a submitted plan
// attaches to its governance proposal.
type ProposeOptions struct {
	Title      string
	Summary    string
	Motivation string
}

// ProposalSubmitter is the write surface §6 calls out: submitting a
// ChangePlan as a proposal for the subnet it targets.
type ProposalSubmitter interface {
	Submit(ctx context.Context, plan transform.ChangePlan, opts ProposeOptions) (ProposalID, error)
}

// ProposalID identifies a submitted proposal for later status polling.
type ProposalID uint64
