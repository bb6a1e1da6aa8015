package rewards

import (
	"testing"

	"github.com/shopspring/decimal"

	"topology-rewards-core/internal/registry"
)

func TestAccumulateXDRPermyriadMatchesDecimalTotal(t *testing.T) {
	node1, node2 := principal(1), principal(2)
	results := Results{
		ByNode: map[registry.PrincipalId]*NodeResult{
			node1: {NodeID: node1, AdjustedXDRPermyriad: decimal.NewFromInt(1000)},
			node2: {NodeID: node2, AdjustedXDRPermyriad: decimal.NewFromInt(2500)},
		},
	}

	total, err := AccumulateXDRPermyriad(results)
	if err != nil {
		t.Fatalf("AccumulateXDRPermyriad: %v", err)
	}
	if total.Uint64() != 3500 {
		t.Fatalf("expected accumulated total 3500, got %s", total.String())
	}
}

func TestAccumulateXDRPermyriadRejectsNonInteger(t *testing.T) {
	node1 := principal(1)
	results := Results{
		ByNode: map[registry.PrincipalId]*NodeResult{
			node1: {NodeID: node1, AdjustedXDRPermyriad: decimal.NewFromFloat(10.5)},
		},
	}

	if _, err := AccumulateXDRPermyriad(results); err == nil {
		t.Fatalf("expected an error for a non-integer XDR-permyriad amount")
	}
}

func TestFormatRewardsReportIncludesCrossCheckedTotal(t *testing.T) {
	node1 := principal(1)
	results := Results{
		RewardsTotalXDRPermyriad: decimal.NewFromInt(1000),
		ByNode: map[registry.PrincipalId]*NodeResult{
			node1: {NodeID: node1, AdjustedXDRPermyriad: decimal.NewFromInt(1000)},
		},
	}

	report, err := FormatRewardsReport(results)
	if err != nil {
		t.Fatalf("FormatRewardsReport: %v", err)
	}
	if report == "" {
		t.Fatalf("expected a non-empty report")
	}
}
