package main

import (
	"encoding/json"
	"os"

	"topology-rewards-core/internal/decentralization/rules"
	"topology-rewards-core/internal/registry"
)

// sensitiveSubnetsFileFormat mirrors rules.SensitiveSubnets but with
// textual principal fields, the shape an operator writes by hand.
type sensitiveSubnetsFileFormat struct {
	NNS                     string   `json:"nns"`
	SNS                     string   `json:"sns"`
	TECDSASigning           string   `json:"tecdsa_signing"`
	InternetIdentity        string   `json:"internet_identity"`
	European                string   `json:"european"`
	DfinityNodeProvider     string   `json:"dfinity_node_provider"`
	EuropeanExemptCountries []string `json:"european_exempt_countries"`
}

// loadSensitiveSubnets reads the sensitive-subnets config file; a
// missing file yields a zero-valued SensitiveSubnets (no sensitive
// subnets configured), suitable for local experimentation.
func loadSensitiveSubnets(path string) (rules.SensitiveSubnets, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return rules.SensitiveSubnets{}, nil
	}
	if err != nil {
		return rules.SensitiveSubnets{}, err
	}

	var f sensitiveSubnetsFileFormat
	if err := json.Unmarshal(raw, &f); err != nil {
		return rules.SensitiveSubnets{}, err
	}

	// A config value that isn't valid hyphenated-hex principal text is
	// treated as a raw identity string (an operator pasting a subnet
	// name or canister id) and derived into a stable principal, rather
	// than every malformed entry silently colliding on ZeroPrincipal.
	parse := func(s string) registry.PrincipalId {
		if s == "" {
			return registry.ZeroPrincipal
		}
		if id, err := registry.ParsePrincipal(s); err == nil {
			return id
		}
		return registry.DerivePrincipal([]byte(s))
	}

	return rules.SensitiveSubnets{
		NNS:                     parse(f.NNS),
		SNS:                     parse(f.SNS),
		TECDSASigning:           parse(f.TECDSASigning),
		InternetIdentity:        parse(f.InternetIdentity),
		European:                parse(f.European),
		DfinityNodeProvider:     parse(f.DfinityNodeProvider),
		EuropeanExemptCountries: f.EuropeanExemptCountries,
	}, nil
}

// loadLinkedProviderClusters reads the linked-provider-clusters config
// file: cluster name -> list of provider-principal strings.
func loadLinkedProviderClusters(path string) (rules.LinkedProviderClusters, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return rules.NewLinkedProviderClusters(nil), nil
	}
	if err != nil {
		return rules.LinkedProviderClusters{}, err
	}

	var f map[string][]string
	if err := json.Unmarshal(raw, &f); err != nil {
		return rules.LinkedProviderClusters{}, err
	}

	clusters := make(map[string][]registry.PrincipalId, len(f))
	for name, members := range f {
		ids := make([]registry.PrincipalId, 0, len(members))
		for _, m := range members {
			id, err := registry.ParsePrincipal(m)
			if err != nil {
				id = registry.DerivePrincipal([]byte(m))
			}
			ids = append(ids, id)
		}
		clusters[name] = ids
	}
	return rules.NewLinkedProviderClusters(clusters), nil
}
