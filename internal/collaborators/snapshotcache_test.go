package collaborators

import (
	"path/filepath"
	"testing"

	"topology-rewards-core/internal/registry"
)

func TestSnapshotCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cache, err := OpenSnapshotCache(filepath.Join(dir, "snapshots"))
	if err != nil {
		t.Fatalf("OpenSnapshotCache: %v", err)
	}
	defer cache.Close()

	node := registry.BytesToPrincipal([]byte{1})
	snap := &Snapshot{
		Nodes:                  map[registry.PrincipalId]registry.Node{node: {Principal: node}},
		Subnets:                map[registry.PrincipalId]registry.Subnet{},
		Operators:              map[registry.PrincipalId]Operator{},
		DataCenters:            map[registry.PrincipalId]DataCenter{},
		ElectedGuestosVersions: []string{"v1"},
		ElectedHostosVersions:  []string{"v1"},
		UnassignedNodesVersion: "v0",
		RewardsTable:           registry.NewNodeRewardsTable(),
		NodesWithProposals:     map[registry.PrincipalId]bool{},
		SubnetsWithProposals:   map[registry.PrincipalId]bool{},
	}

	if err := cache.Put("version-1", snap); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := cache.Get("version-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected a cache hit for version-1")
	}
	if _, present := got.Nodes[node]; !present {
		t.Fatalf("expected the cached snapshot to contain the stored node")
	}
	if got.UnassignedNodesVersion != "v0" {
		t.Fatalf("expected UnassignedNodesVersion to round-trip, got %q", got.UnassignedNodesVersion)
	}
}

func TestSnapshotCacheMissReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	cache, err := OpenSnapshotCache(filepath.Join(dir, "snapshots"))
	if err != nil {
		t.Fatalf("OpenSnapshotCache: %v", err)
	}
	defer cache.Close()

	_, ok, err := cache.Get("never-stored")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("expected a miss for a version never stored")
	}
}
