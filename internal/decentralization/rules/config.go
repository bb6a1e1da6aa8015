package rules

import "topology-rewards-core/internal/registry"

// SensitiveSubnets externalises the subnet-principal and
// exemption constants the original source compiled in, per §9's open
// question: "a production implementation should take these as
// construction parameters, not constants." Callers build this once at
// startup (typically from the registry snapshot's own well-known
// subnet list) and pass it to NewChecker.
type SensitiveSubnets struct {
	NNS            registry.PrincipalId
	SNS            registry.PrincipalId
	TECDSASigning  registry.PrincipalId
	InternetIdentity registry.PrincipalId
	European       registry.PrincipalId

	// DfinityNodeProvider is DFINITY's own provider principal. Checker
	// does not read it: the clause 3 NNS exemption (up to 3 nodes per
	// NP/DC/DC-owner) applies to groups whose nodes are all DfinityOwned.
	DfinityNodeProvider registry.PrincipalId

	// EuropeanExemptCountries lists the countries exempt from the
	// Country-cap clause (clause 4) when checking the European subnet.
	EuropeanExemptCountries []string
}

// IsKeyHolding reports whether id is one of the "sensitive" subnets that
// carry the key-holding country cap and the higher general country cap
// (clauses 2 and 4). The DFINITY quota of clause 1 is keyed on IsNNS.
func (s SensitiveSubnets) IsKeyHolding(id registry.PrincipalId) bool {
	return id.Equal(s.NNS) || id.Equal(s.SNS) || id.Equal(s.TECDSASigning) || id.Equal(s.InternetIdentity)
}

// IsNNS reports whether id is the canonical root subnet.
func (s SensitiveSubnets) IsNNS(id registry.PrincipalId) bool {
	return id.Equal(s.NNS)
}

// IsEuropean reports whether id is the single European-only subnet.
func (s SensitiveSubnets) IsEuropean(id registry.PrincipalId) bool {
	return id.Equal(s.European)
}

// LinkedProviderClusters is a static mapping from cluster name to the set
// of NodeProviders considered linked (e.g. co-owned or contractually
// related), loaded from an external config file rather than compiled in
// (§9's other open question).
type LinkedProviderClusters struct {
	clusters map[string][]registry.PrincipalId
}

// NewLinkedProviderClusters builds a LinkedProviderClusters from a plain
// map, as would be decoded from a JSON config file.
func NewLinkedProviderClusters(raw map[string][]registry.PrincipalId) LinkedProviderClusters {
	return LinkedProviderClusters{clusters: raw}
}

// Clusters returns the configured cluster name -> provider-set mapping.
func (c LinkedProviderClusters) Clusters() map[string][]registry.PrincipalId {
	return c.clusters
}
