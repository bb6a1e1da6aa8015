package registry

import "testing"

func TestPrincipalTextRoundTrip(t *testing.T) {
	raw := make([]byte, PrincipalIdLength)
	for i := range raw {
		raw[i] = byte(i)
	}
	p := BytesToPrincipal(raw)

	parsed, err := ParsePrincipal(p.Text())
	if err != nil {
		t.Fatalf("ParsePrincipal: %v", err)
	}
	if !parsed.Equal(p) {
		t.Fatalf("round trip mismatch: got %s, want %s", parsed.Text(), p.Text())
	}
}

func TestPrincipalShortForm(t *testing.T) {
	p := BytesToPrincipal([]byte{1, 2, 3})
	short := p.ShortForm()
	if short == "" || len(short) >= len(p.Text()) {
		t.Fatalf("expected a short prefix, got %q from %q", short, p.Text())
	}
}

func TestJoinSortedPrincipalsIsOrderIndependent(t *testing.T) {
	a := BytesToPrincipal([]byte{1})
	b := BytesToPrincipal([]byte{2})
	c := BytesToPrincipal([]byte{3})

	joined1 := JoinSortedPrincipals([]PrincipalId{c, a, b})
	joined2 := JoinSortedPrincipals([]PrincipalId{b, c, a})
	if joined1 != joined2 {
		t.Fatalf("expected seed text independent of input order: %q vs %q", joined1, joined2)
	}
}

func TestDerivePrincipalIsDeterministicAndDistinct(t *testing.T) {
	a := DerivePrincipal([]byte("nns-subnet"))
	b := DerivePrincipal([]byte("nns-subnet"))
	c := DerivePrincipal([]byte("sns-subnet"))

	if !a.Equal(b) {
		t.Fatalf("expected deriving from the same identity twice to produce the same principal")
	}
	if a.Equal(c) {
		t.Fatalf("expected deriving from distinct identities to produce distinct principals")
	}
}

func TestPrincipalLessTotalOrder(t *testing.T) {
	a := BytesToPrincipal([]byte{1})
	b := BytesToPrincipal([]byte{2})
	if !a.Less(b) || b.Less(a) {
		t.Fatalf("expected a < b strictly")
	}
	if a.Less(a) {
		t.Fatalf("expected irreflexivity")
	}
}
