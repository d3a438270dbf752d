package trade

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// Event is emitted after a pool mutation has been committed.
type Event interface {
	EventName() string
}

type TokenExchange struct {
	Buyer        common.Address
	SoldID       int
	TokensSold   *uint256.Int
	BoughtID     int
	TokensBought *uint256.Int
}

type AddLiquidity struct {
	Provider     common.Address
	TokenAmounts []*uint256.Int
	Fees         []*uint256.Int
	Invariant    *uint256.Int
	TokenSupply  *uint256.Int
}

type RemoveLiquidity struct {
	Provider     common.Address
	TokenAmounts []*uint256.Int
	Fees         []*uint256.Int
	TokenSupply  *uint256.Int
}

type RemoveLiquidityOne struct {
	Provider    common.Address
	TokenAmount *uint256.Int
	CoinIndex   int
	CoinAmount  *uint256.Int
}

type RemoveLiquidityImbalance struct {
	Provider     common.Address
	TokenAmounts []*uint256.Int
	Fees         []*uint256.Int
	Invariant    *uint256.Int
	TokenSupply  *uint256.Int
}

type CommitNewAdmin struct {
	Deadline uint64
	Admin    common.Address
}

type NewAdmin struct {
	Admin common.Address
}

type RevertTransferOwnership struct{}

type CommitNewFee struct {
	Deadline uint64
	Fee      uint64
	AdminFee uint64
}

type NewFee struct {
	Fee      uint64
	AdminFee uint64
}

type RevertNewParameters struct{}

type RampA struct {
	OldA        *uint256.Int
	NewA        *uint256.Int
	InitialTime uint64
	FutureTime  uint64
}

type StopRampA struct {
	A *uint256.Int
	T uint64
}

type Kill struct {
	Deadline uint64
}

type Unkill struct{}

type AdminFeesWithdrawn struct {
	Admin   common.Address
	Amounts []*uint256.Int
}

type AdminFeesDonated struct {
	Amounts []*uint256.Int
}

func (TokenExchange) EventName() string            { return "TokenExchange" }
func (AddLiquidity) EventName() string             { return "AddLiquidity" }
func (RemoveLiquidity) EventName() string          { return "RemoveLiquidity" }
func (RemoveLiquidityOne) EventName() string       { return "RemoveLiquidityOne" }
func (RemoveLiquidityImbalance) EventName() string { return "RemoveLiquidityImbalance" }
func (CommitNewAdmin) EventName() string           { return "CommitNewAdmin" }
func (NewAdmin) EventName() string                 { return "NewAdmin" }
func (RevertTransferOwnership) EventName() string  { return "RevertTransferOwnership" }
func (CommitNewFee) EventName() string             { return "CommitNewFee" }
func (NewFee) EventName() string                   { return "NewFee" }
func (RevertNewParameters) EventName() string      { return "RevertNewParameters" }
func (RampA) EventName() string                    { return "RampA" }
func (StopRampA) EventName() string                { return "StopRampA" }
func (Kill) EventName() string                     { return "Kill" }
func (Unkill) EventName() string                   { return "Unkill" }
func (AdminFeesWithdrawn) EventName() string       { return "AdminFeesWithdrawn" }
func (AdminFeesDonated) EventName() string         { return "AdminFeesDonated" }

// EventSink receives pool events. The pool does not depend on anything
// listening.
type EventSink interface {
	Emit(e Event)
}

type NopSink struct{}

func (NopSink) Emit(Event) {}

// LogSink writes every event to a zap logger.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) Emit(e Event) {
	s.Logger.Info(e.EventName(), zap.Any("event", e))
}

type MultiSink []EventSink

func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// Recorder keeps every event in memory.
type Recorder struct {
	sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.Lock()
	defer r.Unlock()
	r.events = append(r.events, e)
}
func (r *Recorder) Events() []Event {
	r.Lock()
	defer r.Unlock()
	result := make([]Event, len(r.events))
	copy(result, r.events)
	return result
}
func (r *Recorder) Last() Event {
	r.Lock()
	defer r.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}
func (r *Recorder) Reset() {
	r.Lock()
	defer r.Unlock()
	r.events = nil
}
