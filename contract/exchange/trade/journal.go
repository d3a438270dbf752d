package trade

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	. "github.com/meverselabs/stableswap/contract/exchange/util"
)

// journal collects the effects of one in-flight operation. next is a
// private copy of the pool state, events are held back until commit and
// undo compensates the external calls already made.
type journal struct {
	op     string
	now    uint64
	next   *PoolState
	events []Event
	undo   []func() error

	swapped *uint256.Int
}

func (j *journal) emit(e Event) {
	j.events = append(j.events, e)
}

func (j *journal) onRevert(f func() error) {
	j.undo = append(j.undo, f)
}

// begin takes the entered guard. It never blocks: a second entry, from the
// same goroutine through a callback or from another one, fails at once.
func (self *StableSwap) begin(op string) (*journal, error) {
	if !self.entered.TryLock() {
		self.metrics.aborted(op, ErrReentrancy)
		return nil, ErrReentrancy
	}
	self.mu.Lock()
	self.busy = true
	next := self.state.Clone()
	self.mu.Unlock()
	return &journal{
		op:   op,
		now:  self.clock.Now(),
		next: next,
	}, nil
}

// publish clears the in-flight mark and, when st is not nil, makes st the
// committed state.
func (self *StableSwap) publish(st *PoolState) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if st != nil {
		self.state = st
	}
	self.busy = false
}

// end publishes or discards j. It has to be deferred by the operation
// itself, before util.Catch, so that it sees the final err and any panic.
func (self *StableSwap) end(j *journal, err *error) {
	defer self.entered.Unlock()

	r := recover()
	if r == nil && *err == nil {
		if held, herr := heldBalances(self.tokens, self.addr); herr == nil {
			j.next.Held = held
		} else {
			self.logger.Warn("held balances", zap.String("op", j.op), zap.Error(herr))
		}
		self.publish(j.next)

		for _, e := range j.events {
			self.events.Emit(e)
		}
		self.metrics.committed(j.op)
		self.observe(j)
		self.logger.Debug("commit", zap.String("op", j.op), zap.Uint64("now", j.now))
		return
	}

	if uerr := self.rollback(j); uerr != nil {
		self.logger.Error("rollback", zap.String("op", j.op), zap.Error(uerr))
		if *err != nil {
			*err = errors.Wrapf(*err, "rollback failed: %v", uerr)
		}
	}
	self.publish(nil)
	if r != nil {
		panic(r)
	}
	self.metrics.aborted(j.op, *err)
	self.logger.Debug("abort", zap.String("op", j.op), zap.Error(*err))
}

// rollback replays the compensations newest first. It keeps going after a
// failure and reports the first one.
func (self *StableSwap) rollback(j *journal) error {
	var first error
	for i := len(j.undo) - 1; i >= 0; i-- {
		if err := j.undo[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (self *StableSwap) observe(j *journal) {
	if self.metrics == nil {
		return
	}
	if j.swapped != nil {
		self.metrics.swapped(j.swapped)
	}
	if amp, err := j.next.Amp.EffectiveA(j.now); err == nil {
		self.metrics.setA(amp)
	}
	if j.next.TotalSupply.IsZero() {
		return
	}
	if price, err := self.virtualPrice(j.next, j.now); err == nil {
		self.metrics.setVirtualPrice(price)
	}
}

// pull moves amount of coin k from owner into the pool and returns what
// actually arrived. For the fee-index coin that is the change of the pool's
// own balance, for the others the nominal amount.
func (self *StableSwap) pull(j *journal, k int, owner common.Address, amount *uint256.Int) (*uint256.Int, error) {
	coin := self.tokens[k]

	var before *uint256.Int
	if k == self.feeIndex {
		b, err := coin.BalanceOf(self.addr)
		if err != nil {
			return nil, errors.Wrapf(err, "Exchange: BALANCE_OF %d", k)
		}
		before = b
	}

	if err := coin.TransferFrom(owner, amount); err != nil {
		return nil, errors.Wrapf(err, "Exchange: TRANSFER_FROM %d", k)
	}
	received := amount
	j.onRevert(func() error {
		if r, ok := coin.(Reverter); ok {
			return r.RevertTransferFrom(owner, amount)
		}
		return coin.Transfer(owner, received)
	})

	if k == self.feeIndex {
		after, err := coin.BalanceOf(self.addr)
		if err != nil {
			return nil, errors.Wrapf(err, "Exchange: BALANCE_OF %d", k)
		}
		if after.Lt(before) {
			return nil, errors.Wrapf(ErrInsufficientInput, "coin %d", k)
		}
		received = new(uint256.Int).Sub(after, before)
	}
	return received, nil
}

// pay moves amount of coin k out of the pool to to. A payment that has to
// be undone is taken back from the recipient.
func (self *StableSwap) pay(j *journal, k int, to common.Address, amount *uint256.Int) error {
	coin := self.tokens[k]
	if err := coin.Transfer(to, amount); err != nil {
		return errors.Wrapf(err, "Exchange: TRANSFER %d", k)
	}
	j.onRevert(func() error {
		if r, ok := coin.(Reverter); ok {
			return r.RevertTransfer(to, amount)
		}
		return coin.TransferFrom(to, amount)
	})
	return nil
}

func (self *StableSwap) mint(j *journal, to common.Address, amount *uint256.Int) error {
	if err := self.ledger.Mint(to, amount); err != nil {
		return errors.Wrap(err, "Exchange: MINT")
	}
	j.next.TotalSupply = Add(j.next.TotalSupply, amount)
	j.onRevert(func() error {
		return self.ledger.Burn(to, amount)
	})
	return nil
}

func (self *StableSwap) burn(j *journal, from common.Address, amount *uint256.Int) error {
	if err := self.ledger.Burn(from, amount); err != nil {
		return errors.Wrap(err, "Exchange: BURN")
	}
	j.next.TotalSupply = Sub(j.next.TotalSupply, amount)
	j.onRevert(func() error {
		return self.ledger.Mint(from, amount)
	})
	return nil
}
