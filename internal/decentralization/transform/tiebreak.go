package transform

import (
	"crypto/sha256"

	"golang.org/x/crypto/chacha20"

	"topology-rewards-core/internal/registry"
)

// seededRand is a deterministic source of uniform choices derived from a
// ChaCha8-class stream cipher, seeded from the sorted, joined principals
// of the current subnet membership. Using a standard stream cipher
// rather than a language-specific hasher is what gives the tie-break its
// cross-implementation reproducibility, per §9.
type seededRand struct {
	cipher *chacha20.Cipher
}

// newSeededRand builds the PRNG from the seed text described in §4.3's
// tie-breaker step 3: sorted current-subnet principals, "_"-joined.
func newSeededRand(seedText string) *seededRand {
	// chacha20.NewUnauthenticatedCipher requires a 32-byte key and a
	// 12-byte nonce; both are
	// derived deterministically from the seed text via SHA-256 so any
	// length of input seed text is accepted.
	key := sha256.Sum256([]byte(seedText))
	nonce := sha256.Sum256(append([]byte("tie-break-nonce"), key[:]...))
	cipher, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:12])
	if err != nil {
		// Only fails on malformed key/nonce sizes, which are fixed
		// constants above; a failure here means the cipher's contract
		// changed underneath us.
		panic("transform: chacha20 cipher construction failed: " + err.Error())
	}
	return &seededRand{cipher: cipher}
}

// Uint64 draws the next 8 keystream bytes as a big-endian uint64.
func (r *seededRand) Uint64() uint64 {
	var buf [8]byte
	r.cipher.XORKeyStream(buf[:], buf[:])
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v
}

// Intn returns a uniform value in [0, n). n must be positive.
func (r *seededRand) Intn(n int) int {
	if n <= 0 {
		panic("transform: Intn requires a positive bound")
	}
	return int(r.Uint64() % uint64(n))
}

// chooseOne applies the full §4.3 tie-breaker to a set of tied
// candidates, given the current subnet membership (for the "already
// present" preference and the PRNG seed) and an operator-ownership
// lookup.
func chooseOne(tied []registry.Node, currentMembers []registry.PrincipalId, opStats operatorStats) registry.Node {
	if len(tied) == 1 {
		return tied[0]
	}

	// Step 1: prefer a candidate already present in the current subnet.
	currentSet := make(map[registry.PrincipalId]bool, len(currentMembers))
	for _, id := range currentMembers {
		currentSet[id] = true
	}
	var present []registry.Node
	for _, c := range tied {
		if currentSet[c.Principal] {
			present = append(present, c)
		}
	}
	if len(present) > 0 {
		tied = present
	}
	if len(tied) == 1 {
		return tied[0]
	}

	// Step 2: rank by operator heuristic, keep only the top-ranked.
	best := tied[0]
	bestStats := opStats.forOperator(best.OperatorPrincipal)
	var top []registry.Node
	for _, c := range tied {
		s := opStats.forOperator(c.OperatorPrincipal)
		if s.better(bestStats) {
			best = c
			bestStats = s
			top = []registry.Node{c}
		} else if s.equal(bestStats) {
			top = append(top, c)
		}
	}
	if len(top) <= 1 {
		return best
	}
	tied = top

	// Step 3: seed a PRNG from sorted current-subnet principals and
	// pick uniformly among the survivors (sorted themselves, for
	// determinism independent of caller-supplied ordering).
	sortedCandidates := make([]registry.Node, len(tied))
	copy(sortedCandidates, tied)
	sortNodesByPrincipal(sortedCandidates)

	seed := registry.JoinSortedPrincipals(currentMembers)
	rnd := newSeededRand(seed)
	return sortedCandidates[rnd.Intn(len(sortedCandidates))]
}

func sortNodesByPrincipal(nodes []registry.Node) {
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && nodes[j].Principal.Less(nodes[j-1].Principal); j-- {
			nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
		}
	}
}

// operatorStats answers the tie-breaker's operator-ranking heuristic:
// (num_nodes_operator_owns_not_in_any_subnet DESC,
//  num_nodes_operator_owns_total DESC).
type operatorStats struct {
	unassignedByOperator map[registry.PrincipalId]int
	totalByOperator       map[registry.PrincipalId]int
}

func newOperatorStats(allNodes []registry.Node) operatorStats {
	s := operatorStats{
		unassignedByOperator: make(map[registry.PrincipalId]int),
		totalByOperator:      make(map[registry.PrincipalId]int),
	}
	for _, n := range allNodes {
		s.totalByOperator[n.OperatorPrincipal]++
		if n.Subnet == nil {
			s.unassignedByOperator[n.OperatorPrincipal]++
		}
	}
	return s
}

type operatorRank struct {
	unassigned int
	total      int
}

func (s operatorStats) forOperator(op registry.PrincipalId) operatorRank {
	return operatorRank{unassigned: s.unassignedByOperator[op], total: s.totalByOperator[op]}
}

func (a operatorRank) better(b operatorRank) bool {
	if a.unassigned != b.unassigned {
		return a.unassigned > b.unassigned
	}
	return a.total > b.total
}

func (a operatorRank) equal(b operatorRank) bool {
	return a.unassigned == b.unassigned && a.total == b.total
}
