package mdp

import (
	"github.com/CodeStranger-Fred/markov/errors"
)

var (
	// ErrMalformedModel reports construction input whose shape does not
	// match the declared state, action or observation counts.
	ErrMalformedModel = errors.Sentinel("malformed model")
	// ErrInvalidDistribution reports a transition or emission row that
	// does not sum to one.
	ErrInvalidDistribution = errors.Sentinel("invalid distribution")
	// ErrDegenerateReward reports a reward signal that is zero everywhere.
	ErrDegenerateReward = errors.Sentinel("degenerate reward")
	// ErrInvalidDiscount reports a discount factor outside (0, 1).
	ErrInvalidDiscount = errors.Sentinel("invalid discount")
	// ErrNotSolved reports a query for a solution that was not computed.
	ErrNotSolved = errors.Sentinel("not solved")
)

// CheckDiscount returns ErrInvalidDiscount unless 0 < gamma < 1.
func CheckDiscount(gamma float64) error {
	if !(gamma > 0 && gamma < 1) {
		return errors.Wrapf(ErrInvalidDiscount, "discount %g is not in (0, 1)", gamma)
	}
	return nil
}
