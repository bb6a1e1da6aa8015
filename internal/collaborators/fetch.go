package collaborators

import (
	"context"

	"golang.org/x/sync/errgroup"

	"topology-rewards-core/internal/registry"
)

// Snapshot is the fully-materialized registry view an engine run
// operates on, gathered from a RegistrySnapshot's independent calls
// concurrently — none of these reads depend on another, so §5's
// "unordered join of independent tasks" model applies directly.
type Snapshot struct {
	Nodes                  map[registry.PrincipalId]registry.Node
	Subnets                map[registry.PrincipalId]registry.Subnet
	Operators              map[registry.PrincipalId]Operator
	DataCenters            map[registry.PrincipalId]DataCenter
	ElectedGuestosVersions []string
	ElectedHostosVersions  []string
	UnassignedNodesVersion string
	RewardsTable           *registry.NodeRewardsTable
	AvailableNodes         []registry.Node
	APIBoundaryNodes       []registry.PrincipalId
	NodesWithProposals     map[registry.PrincipalId]bool
	SubnetsWithProposals   map[registry.PrincipalId]bool
}

// FetchSnapshot gathers every piece of registry state a run needs in
// parallel, failing the whole fetch if any single call errors.
func FetchSnapshot(ctx context.Context, src RegistrySnapshot) (*Snapshot, error) {
	snap := &Snapshot{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		snap.Nodes, err = src.Nodes(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Subnets, err = src.Subnets(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Operators, err = src.Operators(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.DataCenters, err = src.DataCenters(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.ElectedGuestosVersions, err = src.ElectedGuestosVersions(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.ElectedHostosVersions, err = src.ElectedHostosVersions(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.UnassignedNodesVersion, err = src.UnassignedNodesVersion(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.RewardsTable, err = src.NodeRewardsTable(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.AvailableNodes, err = src.AvailableNodes(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.APIBoundaryNodes, err = src.GetAPIBoundaryNodes(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.NodesWithProposals, err = src.NodesWithProposals(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.SubnetsWithProposals, err = src.SubnetsAndProposals(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}
