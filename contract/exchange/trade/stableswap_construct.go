package trade

import (
	"github.com/bluele/gcache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	. "github.com/meverselabs/stableswap/contract/exchange/util"
)

// StableSwapConstruction holds everything a pool is created with. Coins and
// their parameters are fixed for the lifetime of the pool.
type StableSwapConstruction struct {
	Name    string
	Address common.Address // holder of the pooled coins

	Coins  []common.Address
	Tokens []Coin
	Rates  []*uint256.Int
	// PrecisionMul defaults to Rates[i] / PRECISION
	PrecisionMul []uint64
	// FeeIndex is the coin whose transfers may deduct a fee, NoFeeIndex for none
	FeeIndex int

	Amp      *uint256.Int
	Fee      uint64
	AdminFee uint64
	Owner    common.Address

	Ledger  Ledger
	Access  AccessControl
	Clock   Clock
	Events  EventSink
	Metrics *Metrics
	Logger  *zap.Logger
}

func (s *StableSwapConstruction) validate() error {
	N := len(s.Coins)
	if N < 2 {
		return ErrTokenNumber
	}
	if len(s.Tokens) != N || len(s.Rates) != N {
		return ErrLength
	}
	if s.PrecisionMul != nil && len(s.PrecisionMul) != N {
		return ErrLength
	}
	if s.Address == ZeroAddress || s.Owner == ZeroAddress {
		return ErrZeroAddress
	}
	seen := map[common.Address]bool{}
	for i, coin := range s.Coins {
		if coin == ZeroAddress {
			return ErrZeroAddress
		}
		if seen[coin] {
			return ErrDuplicateCoin
		}
		seen[coin] = true
		if s.Tokens[i] == nil {
			return ErrNoCoin
		}
		if s.Rates[i] == nil || s.Rates[i].CmpUint64(PRECISION) < 0 {
			return ErrRate
		}
		if s.PrecisionMul != nil && s.PrecisionMul[i] == 0 {
			return ErrRate
		}
	}
	if s.FeeIndex != NoFeeIndex && (s.FeeIndex < 0 || s.FeeIndex >= N) {
		return ErrFeeIndex
	}
	if s.Amp == nil || s.Amp.IsZero() || s.Amp.CmpUint64(MAX_A) >= 0 {
		return ErrAmp
	}
	if s.Fee > MAX_FEE {
		return ErrFeeExceed
	}
	if s.AdminFee > MAX_ADMIN_FEE {
		return ErrAdminFeeExceed
	}
	if s.Ledger == nil {
		return ErrNoLedger
	}
	return nil
}

// PoolState is every mutable field of a pool. A committed PoolState is
// never modified; operations work on a Clone and publish it on success.
type PoolState struct {
	Balances []*uint256.Int
	Amp      AmplificationState
	Volume   *uint256.Int

	Owner                     common.Address
	FutureOwner               common.Address
	TransferOwnershipDeadline uint64

	Fee                  uint64
	AdminFee             uint64
	FutureFee            uint64
	FutureAdminFee       uint64
	AdminActionsDeadline uint64

	IsKilled     bool
	KillDeadline uint64

	// TotalSupply is the LP supply and Held what the pool owned of each
	// coin when the state was published. Neither is persisted: a restored
	// pool reads them from its ledger and coins.
	TotalSupply *uint256.Int
	Held        []*uint256.Int
}

func (s *PoolState) Clone() *PoolState {
	c := *s
	c.Balances = CloneSlice(s.Balances)
	c.Amp = s.Amp.Clone()
	c.Volume = Clone(s.Volume)
	if s.TotalSupply != nil {
		c.TotalSupply = Clone(s.TotalSupply)
	}
	if s.Held != nil {
		c.Held = CloneSlice(s.Held)
	}
	return &c
}

// heldBalances reads what holder owns of every coin.
func heldBalances(tokens []Coin, holder common.Address) ([]*uint256.Int, error) {
	result := make([]*uint256.Int, len(tokens))
	for i, coin := range tokens {
		b, err := coin.BalanceOf(holder)
		if err != nil {
			return nil, err
		}
		result[i] = b
	}
	return result, nil
}

// NewStableSwap creates an empty pool. The kill deadline starts counting
// from the current clock.
func NewStableSwap(c StableSwapConstruction) (*StableSwap, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	clock := c.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	held, err := heldBalances(c.Tokens, c.Address)
	if err != nil {
		return nil, err
	}
	state := &PoolState{
		Balances:     MakeSlice(len(c.Coins)),
		Amp:          NewAmplificationState(c.Amp),
		Volume:       NewInt(0),
		Owner:        c.Owner,
		Fee:          c.Fee,
		AdminFee:     c.AdminFee,
		KillDeadline: clock.Now() + KILL_DEADLINE_DT,
		TotalSupply:  Clone(c.Ledger.TotalSupply()),
		Held:         held,
	}
	return newStableSwap(c, clock, state), nil
}

// RestoreStableSwap rebuilds a pool around a previously saved state. A
// state whose ramp starts after the clock's current time is rejected.
func RestoreStableSwap(c StableSwapConstruction, state *PoolState) (*StableSwap, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if state == nil || len(state.Balances) != len(c.Coins) {
		return nil, ErrLength
	}
	if state.Amp.InitialA == nil || state.Amp.FutureA == nil || state.Volume == nil {
		return nil, ErrAmp
	}
	clock := c.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	if state.Amp.InitialTime > clock.Now() || state.Amp.InitialTime > state.Amp.FutureTime {
		return nil, ErrRampTime
	}
	held, err := heldBalances(c.Tokens, c.Address)
	if err != nil {
		return nil, err
	}
	next := state.Clone()
	next.TotalSupply = Clone(c.Ledger.TotalSupply())
	next.Held = held
	return newStableSwap(c, clock, next), nil
}

func newStableSwap(c StableSwapConstruction, clock Clock, state *PoolState) *StableSwap {
	N := len(c.Coins)
	rates := CloneSlice(c.Rates)
	precisionMul := make([]*uint256.Int, N)
	for i := range rates {
		if c.PrecisionMul != nil {
			precisionMul[i] = NewInt(c.PrecisionMul[i])
		} else {
			precisionMul[i] = DivC(rates[i], PRECISION)
		}
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	events := c.Events
	if events == nil {
		events = NopSink{}
	}

	self := &StableSwap{
		Base: Base{
			addr:    c.Address,
			clock:   clock,
			events:  events,
			metrics: c.Metrics,
			logger:  logger.Named("stableswap").With(zap.String("pool", c.Name)),
		},
		name:         c.Name,
		coins:        append([]common.Address{}, c.Coins...),
		tokens:       append([]Coin{}, c.Tokens...),
		rates:        rates,
		precisionMul: precisionMul,
		feeIndex:     c.FeeIndex,
		ledger:       c.Ledger,
		state:        state,
		invariants:   gcache.New(256).LRU().Build(),
	}
	if c.Access != nil {
		self.access = c.Access
	} else {
		self.access = ownerAccess{self}
	}
	return self
}
