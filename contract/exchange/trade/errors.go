package trade

import (
	"github.com/pkg/errors"

	"github.com/meverselabs/stableswap/contract/exchange/util"
)

// Kind classifies why a pool operation was aborted.
type Kind uint8

const (
	KindUnknown Kind = iota
	PreconditionViolation
	ArithmeticFailure
	SlippageViolation
	GovernanceConstraintViolation
	ReentrancyViolation
	ExternalFailure
)

func (k Kind) String() string {
	switch k {
	case PreconditionViolation:
		return "precondition"
	case ArithmeticFailure:
		return "arithmetic"
	case SlippageViolation:
		return "slippage"
	case GovernanceConstraintViolation:
		return "governance"
	case ReentrancyViolation:
		return "reentrancy"
	case ExternalFailure:
		return "external"
	default:
		return "unknown"
	}
}

// Error is a pool failure with a stable code.
type Error struct {
	Kind Kind
	Code string
}

func (e *Error) Error() string {
	return "Exchange: " + e.Code
}

func newError(kind Kind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

var (
	// precondition
	ErrZeroAddress       = newError(PreconditionViolation, "ZERO_ADDRESS")
	ErrTokenNumber       = newError(PreconditionViolation, "TOKEN_NUMBER_LESSER_THAN_2")
	ErrLength            = newError(PreconditionViolation, "LENGTH_MISMATCH")
	ErrRate              = newError(PreconditionViolation, "RATE")
	ErrFeeIndex          = newError(PreconditionViolation, "FEE_INDEX")
	ErrNoLedger          = newError(PreconditionViolation, "NO_LEDGER")
	ErrNoCoin            = newError(PreconditionViolation, "NO_COIN")
	ErrDuplicateCoin     = newError(PreconditionViolation, "DUPLICATE_COIN")
	ErrSameCoin          = newError(PreconditionViolation, "SAME_COIN")
	ErrIn                = newError(PreconditionViolation, "IN")
	ErrOut               = newError(PreconditionViolation, "OUT")
	ErrIdx               = newError(PreconditionViolation, "IDX")
	ErrInsufficientInput = newError(PreconditionViolation, "INSUFFICIENT_INPUT")
	ErrInitialDeposit    = newError(PreconditionViolation, "INITIAL_DEPOSIT")
	ErrSupplyZero        = newError(PreconditionViolation, "LPTOKEN_SUPPLY_0")
	ErrZeroBurn          = newError(PreconditionViolation, "ZERO_TOKEN_BURN")
	ErrD1NotGreater      = newError(PreconditionViolation, "D1_<=_D0")
	ErrKilled            = newError(PreconditionViolation, "KILLED")

	// arithmetic
	ErrDNotConverged = newError(ArithmeticFailure, "D")
	ErrYNotConverged = newError(ArithmeticFailure, "Y")

	// slippage
	ErrSlippage = newError(SlippageViolation, "SLIPPAGE")

	// governance
	ErrForbidden        = newError(GovernanceConstraintViolation, "FORBIDDEN")
	ErrAmp              = newError(GovernanceConstraintViolation, "AMP")
	ErrFeeExceed        = newError(GovernanceConstraintViolation, "FEE_EXCEED_MAXFEE")
	ErrAdminFeeExceed   = newError(GovernanceConstraintViolation, "ADMIN_FEE_EXCEED_MAXADMINFEE")
	ErrActiveAction     = newError(GovernanceConstraintViolation, "ADMIN_ACTIONS_DEADLINE")
	ErrActionDeadline   = newError(GovernanceConstraintViolation, "INSUFFICIENT_TIME")
	ErrNoActiveAction   = newError(GovernanceConstraintViolation, "NO_ACTIVE_ACTION")
	ErrActiveTransfer   = newError(GovernanceConstraintViolation, "ACTIVE_TRANSFER")
	ErrNoActiveTransfer = newError(GovernanceConstraintViolation, "NO_ACTIVE_TRANSFER")
	ErrRampTooSoon      = newError(GovernanceConstraintViolation, "RAMP_A_SMALL")
	ErrRampTooShort     = newError(GovernanceConstraintViolation, "RAMP_A_BIG")
	ErrFutureA          = newError(GovernanceConstraintViolation, "FUTURE_A")
	ErrFutureAChange    = newError(GovernanceConstraintViolation, "FUTURE_A_CHANGE")
	ErrKillDeadline     = newError(GovernanceConstraintViolation, "KILL_DEADLINE")
	ErrRampTime         = newError(GovernanceConstraintViolation, "RAMP_TIME")

	// reentrancy
	ErrReentrancy = newError(ReentrancyViolation, "LOCKED")
)

// KindOf classifies err. Arithmetic faults raised by the util helpers are
// ArithmeticFailure and any error not produced by the pool itself comes
// from a collaborator.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var ae *util.ArithmeticError
	if errors.As(err, &ae) {
		return ArithmeticFailure
	}
	return ExternalFailure
}
