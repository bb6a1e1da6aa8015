package collaborators

import (
	"encoding/json"

	"github.com/syndtr/goleveldb/leveldb"

	"topology-rewards-core/internal/registry"
)

// SnapshotCache is a local, disk-backed cache keyed by registry
// version, so a heal/rewards run started twice against the same
// version does not re-fetch the full snapshot over the network.
type SnapshotCache struct {
	db *leveldb.DB
}

// OpenSnapshotCache opens (creating if absent) the on-disk cache at
// dbPath.
func OpenSnapshotCache(dbPath string) (*SnapshotCache, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, err
	}
	return &SnapshotCache{db: db}, nil
}

func (c *SnapshotCache) Close() error {
	return c.db.Close()
}

// cachedSnapshot is Snapshot flattened to a JSON-friendly shape; the
// live Snapshot's maps key on PrincipalId, which isn't itself a valid
// JSON object key in Go's encoding/json, so entries are stored as
// slices of (key, value) pairs instead.
type cachedSnapshot struct {
	Nodes                  []nodeEntry
	Subnets                []subnetEntry
	Operators              []operatorEntry
	DataCenters            []dataCenterEntry
	ElectedGuestosVersions []string
	ElectedHostosVersions  []string
	UnassignedNodesVersion string
	RewardsTable           *registry.NodeRewardsTable
	AvailableNodes         []registry.Node
	APIBoundaryNodes       []registry.PrincipalId
	NodesWithProposals     []proposalFlagEntry
	SubnetsWithProposals   []proposalFlagEntry
}

type nodeEntry struct {
	Principal registry.PrincipalId
	Node      registry.Node
}

type subnetEntry struct {
	Principal registry.PrincipalId
	Subnet    registry.Subnet
}

type operatorEntry struct {
	Principal registry.PrincipalId
	Operator  Operator
}

type dataCenterEntry struct {
	Principal  registry.PrincipalId
	DataCenter DataCenter
}

type proposalFlagEntry struct {
	Principal registry.PrincipalId
	Pending   bool
}

// Put stores snap under version, overwriting any prior entry.
func (c *SnapshotCache) Put(version string, snap *Snapshot) error {
	flat := flatten(snap)
	data, err := json.Marshal(flat)
	if err != nil {
		return err
	}
	return c.db.Put([]byte(version), data, nil)
}

// Get retrieves a previously cached snapshot, reporting false if
// version was never stored (goleveldb's ErrNotFound becomes a plain
// miss rather than an error, since a cache miss is an expected,
// non-exceptional outcome here).
func (c *SnapshotCache) Get(version string) (*Snapshot, bool, error) {
	data, err := c.db.Get([]byte(version), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var flat cachedSnapshot
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, false, err
	}
	return unflatten(flat), true, nil
}

func flatten(snap *Snapshot) cachedSnapshot {
	flat := cachedSnapshot{
		ElectedGuestosVersions: snap.ElectedGuestosVersions,
		ElectedHostosVersions:  snap.ElectedHostosVersions,
		UnassignedNodesVersion: snap.UnassignedNodesVersion,
		RewardsTable:           snap.RewardsTable,
		AvailableNodes:         snap.AvailableNodes,
		APIBoundaryNodes:       snap.APIBoundaryNodes,
	}
	for id, n := range snap.Nodes {
		flat.Nodes = append(flat.Nodes, nodeEntry{Principal: id, Node: n})
	}
	for id, s := range snap.Subnets {
		flat.Subnets = append(flat.Subnets, subnetEntry{Principal: id, Subnet: s})
	}
	for id, o := range snap.Operators {
		flat.Operators = append(flat.Operators, operatorEntry{Principal: id, Operator: o})
	}
	for id, dc := range snap.DataCenters {
		flat.DataCenters = append(flat.DataCenters, dataCenterEntry{Principal: id, DataCenter: dc})
	}
	for id, pending := range snap.NodesWithProposals {
		flat.NodesWithProposals = append(flat.NodesWithProposals, proposalFlagEntry{Principal: id, Pending: pending})
	}
	for id, pending := range snap.SubnetsWithProposals {
		flat.SubnetsWithProposals = append(flat.SubnetsWithProposals, proposalFlagEntry{Principal: id, Pending: pending})
	}
	return flat
}

func unflatten(flat cachedSnapshot) *Snapshot {
	snap := &Snapshot{
		Nodes:                  make(map[registry.PrincipalId]registry.Node, len(flat.Nodes)),
		Subnets:                make(map[registry.PrincipalId]registry.Subnet, len(flat.Subnets)),
		Operators:              make(map[registry.PrincipalId]Operator, len(flat.Operators)),
		DataCenters:            make(map[registry.PrincipalId]DataCenter, len(flat.DataCenters)),
		ElectedGuestosVersions: flat.ElectedGuestosVersions,
		ElectedHostosVersions:  flat.ElectedHostosVersions,
		UnassignedNodesVersion: flat.UnassignedNodesVersion,
		RewardsTable:           flat.RewardsTable,
		AvailableNodes:         flat.AvailableNodes,
		APIBoundaryNodes:       flat.APIBoundaryNodes,
		NodesWithProposals:     make(map[registry.PrincipalId]bool, len(flat.NodesWithProposals)),
		SubnetsWithProposals:   make(map[registry.PrincipalId]bool, len(flat.SubnetsWithProposals)),
	}
	for _, e := range flat.Nodes {
		snap.Nodes[e.Principal] = e.Node
	}
	for _, e := range flat.Subnets {
		snap.Subnets[e.Principal] = e.Subnet
	}
	for _, e := range flat.Operators {
		snap.Operators[e.Principal] = e.Operator
	}
	for _, e := range flat.DataCenters {
		snap.DataCenters[e.Principal] = e.DataCenter
	}
	for _, e := range flat.NodesWithProposals {
		snap.NodesWithProposals[e.Principal] = e.Pending
	}
	for _, e := range flat.SubnetsWithProposals {
		snap.SubnetsWithProposals[e.Principal] = e.Pending
	}
	return snap
}
