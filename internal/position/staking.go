package position

import "github.com/rxtech-lab/argo-hybrid/internal/types"

// nextStaking applies the martingale rule after a position went flat. A stop-loss grows the
// multiplier until the loss streak exceeds maxLevels, at which point the streak and the
// multiplier reset. A take-profit always resets.
func nextStaking(state types.StakingState, reason types.ExitReason, multiplier float64, maxLevels int) types.StakingState {
	if reason != types.ExitReasonStopLoss {
		return types.NewStakingState()
	}

	state.ConsecutiveLosses++
	if state.ConsecutiveLosses <= maxLevels {
		state.Multiplier *= multiplier

		return state
	}

	return types.NewStakingState()
}
