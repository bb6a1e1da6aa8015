// Package coreerrors holds the two tagged error taxonomies the
// decentralization engine and the rewards calculator return. Neither
// core ever panics for an expected condition — validation failures are
// values, not exceptions, and business-rule violations are not errors
// at all (they surface as a plan's penalty and comment).
package coreerrors

import (
	"fmt"

	"topology-rewards-core/internal/registry"
)

// InputErrorKind is the closed set of input-validation failures the
// rewards calculator (and RewardPeriod construction) can report.
type InputErrorKind int

const (
	EmptyRewardables InputErrorKind = iota
	NodeNotInRewardables
	MetricsOutOfRange
	DuplicateMetrics
	TimestampNotAligned
	StartAfterEnd
	EndInFuture
)

// InputError is returned immediately from the pure core; it is never
// retried by the core itself.
type InputError struct {
	Kind      InputErrorKind
	NodeID    registry.PrincipalId
	Timestamp uint64
	Period    registry.RewardPeriod
}

func (e *InputError) Error() string {
	switch e.Kind {
	case EmptyRewardables:
		return "no rewardable nodes provided"
	case NodeNotInRewardables:
		return fmt.Sprintf("node %s has metrics but is not part of rewardable nodes", e.NodeID.ShortForm())
	case MetricsOutOfRange:
		return fmt.Sprintf("node %s has metrics outside the reward period: timestamp %d not in %s", e.NodeID.ShortForm(), e.Timestamp, e.Period)
	case DuplicateMetrics:
		return fmt.Sprintf("node %s has multiple metrics for the same day and subnet", e.NodeID.ShortForm())
	case TimestampNotAligned:
		return fmt.Sprintf("timestamp %d is not aligned to a day boundary", e.Timestamp)
	case StartAfterEnd:
		return "reward period start is after end"
	case EndInFuture:
		return "reward period end is in the future"
	default:
		return "unknown input error"
	}
}

// TopologyErrorKind is the closed set of failures the decentralization
// engine can report.
type TopologyErrorKind int

const (
	SubnetNotFound TopologyErrorKind = iota
	NodeNotFound
	PendingProposal
	ResizeFailed
	IllegalRequest
)

// TopologyError is returned from DE operations; business-rule penalties
// are never represented this way.
type TopologyError struct {
	Kind   TopologyErrorKind
	ID     registry.PrincipalId
	Reason string
}

func (e *TopologyError) Error() string {
	switch e.Kind {
	case SubnetNotFound:
		return fmt.Sprintf("subnet %s not found", e.ID.ShortForm())
	case NodeNotFound:
		return fmt.Sprintf("node %s not found", e.ID.ShortForm())
	case PendingProposal:
		return fmt.Sprintf("subnet %s has a pending membership proposal", e.ID.ShortForm())
	case ResizeFailed:
		return fmt.Sprintf("resize failed: %s", e.Reason)
	case IllegalRequest:
		return fmt.Sprintf("illegal request: %s", e.Reason)
	default:
		return "unknown topology error"
	}
}

// NewIllegalRequest builds the TopologyError a cancelled collaborator
// task surfaces to its containing action, per §5's cancellation policy.
func NewIllegalRequest(reason string) *TopologyError {
	return &TopologyError{Kind: IllegalRequest, Reason: reason}
}
