package rewards

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// AccumulateXDRPermyriad sums each node's adjusted XDR-permyriad payout
// using an overflow-safe 256-bit counter, guarding the presentation
// layer against a decimal.Decimal silently producing a value a report
// renderer can't fit in a machine word when a provider roster is
// unusually large. This runs alongside, not instead of, the
// decimal.Decimal total computed in CalculateProviderRewards.
func AccumulateXDRPermyriad(results Results) (*uint256.Int, error) {
	total := uint256.NewInt(0)
	for _, id := range sortedNodeIDs(results.ByNode) {
		nr := results.ByNode[id]
		if !nr.AdjustedXDRPermyriad.IsInteger() {
			return nil, fmt.Errorf("adjusted rewards for node %s are not an integer number of XDR-permyriads: %s", id.ShortForm(), nr.AdjustedXDRPermyriad)
		}
		if nr.AdjustedXDRPermyriad.IsNegative() {
			return nil, fmt.Errorf("adjusted rewards for node %s are negative: %s", id.ShortForm(), nr.AdjustedXDRPermyriad)
		}
		share, overflow := uint256.FromBig(nr.AdjustedXDRPermyriad.BigInt())
		if overflow {
			return nil, fmt.Errorf("adjusted rewards for node %s overflow a 256-bit accumulator", id.ShortForm())
		}
		if _, overflow := total.AddOverflow(total, share); overflow {
			return nil, fmt.Errorf("rewards total overflowed while accumulating node %s", id.ShortForm())
		}
	}
	return total, nil
}

// FormatRewardsReport renders a human-readable summary of a
// CalculateProviderRewards run, cross-checking the decimal total
// against the overflow-safe accumulator.
func FormatRewardsReport(results Results) (string, error) {
	checked, err := AccumulateXDRPermyriad(results)
	if err != nil {
		return "", err
	}
	if !results.RewardsTotalXDRPermyriad.Equal(decimal.NewFromBigInt(checked.ToBig(), 0)) {
		return "", fmt.Errorf("rewards total %s does not match the accumulated total %s", results.RewardsTotalXDRPermyriad, checked)
	}
	return fmt.Sprintf("rewards total: %s XDR-permyriad (%d nodes, cross-checked: %s)",
		results.RewardsTotalXDRPermyriad.String(), len(results.ByNode), checked.String()), nil
}
