// Package registry holds the snapshot-scoped data model shared by the
// decentralization engine and the rewards calculator: principals, nodes,
// subnets, health, and reward-period types. Entities here are values, not
// owners of persistent state — they are constructed from a registry read
// and dropped once the calling action completes.
package registry

import (
	"bytes"
	"encoding/hex"
	"errors"
	"sort"
	"strings"

	"golang.org/x/crypto/sha3"
)

// PrincipalIdLength is the fixed width of an opaque network principal.
const PrincipalIdLength = 29

// PrincipalId is an opaque identifier with total ordering and a textual
// short form (the prefix before the first '-' in its hyphenated hex text
// encoding). The network never interprets the bytes beyond comparison.
type PrincipalId [PrincipalIdLength]byte

// ZeroPrincipal is the empty principal, used as a sentinel "unset" value.
var ZeroPrincipal = PrincipalId{}

// BytesToPrincipal converts bytes to a PrincipalId, left/right padding the
// way Address does in the reference node's types package.
func BytesToPrincipal(b []byte) PrincipalId {
	var p PrincipalId
	if len(b) > PrincipalIdLength {
		copy(p[:], b[len(b)-PrincipalIdLength:])
	} else {
		copy(p[PrincipalIdLength-len(b):], b)
	}
	return p
}

// Bytes returns the principal as a byte slice.
func (p PrincipalId) Bytes() []byte {
	return p[:]
}

// Equal reports whether two principals are the same identifier.
func (p PrincipalId) Equal(other PrincipalId) bool {
	return bytes.Equal(p[:], other[:])
}

// Less gives PrincipalId a total order, used for stable subnet iteration
// and for seeding the tie-breaker PRNG from sorted principal text.
func (p PrincipalId) Less(other PrincipalId) bool {
	return bytes.Compare(p[:], other[:]) < 0
}

// Text renders the principal in the textual form used by ShortForm: a
// hyphen-delimited hex encoding, matching the '-'-separated convention
// the registry's principals use in the wild.
func (p PrincipalId) Text() string {
	h := hex.EncodeToString(p[:])
	var parts []string
	for i := 0; i < len(h); i += 5 {
		end := i + 5
		if end > len(h) {
			end = len(h)
		}
		parts = append(parts, h[i:end])
	}
	return strings.Join(parts, "-")
}

// String satisfies fmt.Stringer.
func (p PrincipalId) String() string {
	return p.Text()
}

// ShortForm is the textual prefix before the first '-', used in
// human-readable plan reasons and log lines.
func (p PrincipalId) ShortForm() string {
	t := p.Text()
	if i := strings.IndexByte(t, '-'); i >= 0 {
		return t[:i]
	}
	return t
}

// IsZero reports whether this is the sentinel zero principal.
func (p PrincipalId) IsZero() bool {
	return p.Equal(ZeroPrincipal)
}

// ParsePrincipal parses the hyphenated hex form produced by Text.
func ParsePrincipal(s string) (PrincipalId, error) {
	if s == "" {
		return ZeroPrincipal, errors.New("empty principal string")
	}
	raw, err := hex.DecodeString(strings.ReplaceAll(s, "-", ""))
	if err != nil {
		return ZeroPrincipal, err
	}
	if len(raw) != PrincipalIdLength {
		return ZeroPrincipal, errors.New("principal: wrong byte length")
	}
	return BytesToPrincipal(raw), nil
}

// DerivePrincipal computes a deterministic PrincipalId from arbitrary
// identity material (e.g. a collaborator source's raw node-identity
// bytes), the way the reference node derives an Address from a public
// key: a Keccak256 digest, truncated/padded to the principal width.
func DerivePrincipal(identity []byte) PrincipalId {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(identity)
	return BytesToPrincipal(hasher.Sum(nil))
}

// SortPrincipals returns a new, ascending-sorted copy of ids.
func SortPrincipals(ids []PrincipalId) []PrincipalId {
	out := make([]PrincipalId, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// JoinSortedPrincipals is the canonical seed material for the subnet
// transform engine's tie-breaker PRNG: sorted principals, joined by "_".
func JoinSortedPrincipals(ids []PrincipalId) string {
	sorted := SortPrincipals(ids)
	texts := make([]string, len(sorted))
	for i, id := range sorted {
		texts[i] = id.Text()
	}
	return strings.Join(texts, "_")
}
