package trade

const (
	// exchange
	FEE_DENOMINATOR = 10000000000
	PRECISION       = 1000000000000000000
	MAX_FEE         = FEE_DENOMINATOR / 2 //  50%
	MAX_ADMIN_FEE   = FEE_DENOMINATOR     // 100%

	// deferred actions
	ADMIN_ACTIONS_DELAY = 3 * 86400      // 3 days
	KILL_DEADLINE_DT    = 2 * 30 * 86400 // 60 days

	// stableswap
	MAX_A         = 1000000
	MAX_A_CHANGE  = 10
	MIN_RAMP_TIME = 86400 // 1 day

	// NoFeeIndex marks a pool without a fee-on-transfer coin.
	NoFeeIndex = -1

	maxIterations = 255
)
