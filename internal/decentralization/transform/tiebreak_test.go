package transform

import (
	"testing"

	"topology-rewards-core/internal/registry"
)

func TestSeededRandDeterministicForSameSeed(t *testing.T) {
	a := newSeededRand("seed-text")
	b := newSeededRand("seed-text")

	for i := 0; i < 8; i++ {
		if a.Uint64() != b.Uint64() {
			t.Fatalf("expected identical streams for identical seeds at draw %d", i)
		}
	}
}

func TestSeededRandDiffersForDifferentSeeds(t *testing.T) {
	a := newSeededRand("seed-one")
	b := newSeededRand("seed-two")

	if a.Uint64() == b.Uint64() {
		t.Fatalf("expected distinct streams for distinct seeds (this can theoretically collide, but not in practice)")
	}
}

func TestSeededRandIntnStaysInBounds(t *testing.T) {
	r := newSeededRand("bounds-check")
	for i := 0; i < 100; i++ {
		if v := r.Intn(7); v < 0 || v >= 7 {
			t.Fatalf("Intn(7) produced out-of-bounds value %d", v)
		}
	}
}

func TestChooseOnePrefersCurrentMember(t *testing.T) {
	current := candidateNode(1, "A")
	other := candidateNode(2, "B")
	all := []registry.Node{current, other}
	stats := newOperatorStats(all)

	chosen := chooseOne([]registry.Node{current, other}, []registry.PrincipalId{current.Principal}, stats)
	if !chosen.Principal.Equal(current.Principal) {
		t.Fatalf("expected the already-present candidate to be preferred")
	}
}

func TestChooseOneSingleCandidateShortCircuits(t *testing.T) {
	only := candidateNode(1, "A")
	stats := newOperatorStats([]registry.Node{only})
	chosen := chooseOne([]registry.Node{only}, nil, stats)
	if !chosen.Principal.Equal(only.Principal) {
		t.Fatalf("expected the sole candidate to be returned")
	}
}
