package trade

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Coin is the pool's handle on one pooled asset. Every call moves funds
// between the pool and a holder; a failed call must leave balances
// unchanged.
type Coin interface {
	// TransferFrom pulls amount from owner into the pool.
	TransferFrom(owner common.Address, amount *uint256.Int) error
	// Transfer pays amount out of the pool to to.
	Transfer(to common.Address, amount *uint256.Int) error
	BalanceOf(holder common.Address) (*uint256.Int, error)
}

// Reverter is an optional Coin extension that undoes a completed transfer
// exactly, transfer fee and allowance included. Without it an aborted
// operation refunds pulled coins with Transfer and takes payments back with
// TransferFrom, which needs the recipient's allowance.
type Reverter interface {
	RevertTransferFrom(owner common.Address, amount *uint256.Int) error
	RevertTransfer(to common.Address, amount *uint256.Int) error
}

// Ledger keeps the LP share balances. The pool never touches holder
// balances directly.
type Ledger interface {
	Mint(to common.Address, amount *uint256.Int) error
	Burn(from common.Address, amount *uint256.Int) error
	TotalSupply() *uint256.Int
}

// AccessControl gates every administrative operation.
type AccessControl interface {
	IsAdministrator(caller common.Address) bool
}

// Clock returns the current unix time in seconds.
type Clock interface {
	Now() uint64
}

type SystemClock struct{}

func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// ManualClock only moves when told to.
type ManualClock struct {
	sync.Mutex
	now uint64
}

func NewManualClock(now uint64) *ManualClock {
	return &ManualClock{now: now}
}
func (c *ManualClock) Now() uint64 {
	c.Lock()
	defer c.Unlock()
	return c.now
}
func (c *ManualClock) Set(now uint64) {
	c.Lock()
	defer c.Unlock()
	c.now = now
}
func (c *ManualClock) Advance(seconds uint64) uint64 {
	c.Lock()
	defer c.Unlock()
	c.now += seconds
	return c.now
}
