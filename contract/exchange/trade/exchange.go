package trade

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	. "github.com/meverselabs/stableswap/contract/exchange/util"
)

// Base is the part of a pool that is not about the curve: its holder
// address, the entered guard and the collaborators every operation uses.
type Base struct {
	entered sync.Mutex
	addr    common.Address
	access  AccessControl
	clock   Clock
	events  EventSink
	metrics *Metrics
	logger  *zap.Logger
}

func (self *Base) Address() common.Address {
	return self.addr
}

// ownerAccess is the default AccessControl: the pool's current owner is its
// only administrator.
type ownerAccess struct {
	pool *StableSwap
}

func (a ownerAccess) IsAdministrator(caller common.Address) bool {
	return caller == a.pool.Owner()
}

//////////////////////////////////////////////////
// Exchange Contract : modifier
//////////////////////////////////////////////////
func (self *StableSwap) onlyOwner(caller common.Address) error {
	if !self.access.IsAdministrator(caller) {
		return ErrForbidden
	}
	return nil
}

//////////////////////////////////////////////////
// Exchange Contract : fee
//////////////////////////////////////////////////
func (self *StableSwap) CommitNewFee(caller common.Address, newFee, newAdminFee uint64) (err error) {
	tx, err := self.begin("commit_new_fee")
	if err != nil {
		return err
	}
	defer self.end(tx, &err)

	if err := self.onlyOwner(caller); err != nil {
		return err
	}
	st := tx.next
	if st.AdminActionsDeadline != 0 {
		return ErrActiveAction
	}
	if newFee > MAX_FEE {
		return ErrFeeExceed
	}
	if newAdminFee > MAX_ADMIN_FEE {
		return ErrAdminFeeExceed
	}

	deadline := tx.now + ADMIN_ACTIONS_DELAY
	st.AdminActionsDeadline = deadline
	st.FutureFee = newFee
	st.FutureAdminFee = newAdminFee

	tx.emit(CommitNewFee{Deadline: deadline, Fee: newFee, AdminFee: newAdminFee})
	return nil
}

func (self *StableSwap) ApplyNewFee(caller common.Address) (err error) {
	tx, err := self.begin("apply_new_fee")
	if err != nil {
		return err
	}
	defer self.end(tx, &err)

	if err := self.onlyOwner(caller); err != nil {
		return err
	}
	st := tx.next
	if tx.now < st.AdminActionsDeadline {
		return ErrActionDeadline
	}
	if st.AdminActionsDeadline == 0 {
		return ErrNoActiveAction
	}

	st.AdminActionsDeadline = 0
	st.Fee = st.FutureFee
	st.AdminFee = st.FutureAdminFee

	tx.emit(NewFee{Fee: st.Fee, AdminFee: st.AdminFee})
	return nil
}

func (self *StableSwap) RevertNewParameters(caller common.Address) (err error) {
	tx, err := self.begin("revert_new_parameters")
	if err != nil {
		return err
	}
	defer self.end(tx, &err)

	if err := self.onlyOwner(caller); err != nil {
		return err
	}
	tx.next.AdminActionsDeadline = 0

	tx.emit(RevertNewParameters{})
	return nil
}

//////////////////////////////////////////////////
// Exchange Contract : ownership
//////////////////////////////////////////////////
func (self *StableSwap) CommitTransferOwnership(caller, newOwner common.Address) (err error) {
	tx, err := self.begin("commit_transfer_ownership")
	if err != nil {
		return err
	}
	defer self.end(tx, &err)

	if err := self.onlyOwner(caller); err != nil {
		return err
	}
	st := tx.next
	if st.TransferOwnershipDeadline != 0 {
		return ErrActiveTransfer
	}
	if newOwner == ZeroAddress {
		return ErrZeroAddress
	}

	deadline := tx.now + ADMIN_ACTIONS_DELAY
	st.TransferOwnershipDeadline = deadline
	st.FutureOwner = newOwner

	tx.emit(CommitNewAdmin{Deadline: deadline, Admin: newOwner})
	return nil
}

func (self *StableSwap) ApplyTransferOwnership(caller common.Address) (err error) {
	tx, err := self.begin("apply_transfer_ownership")
	if err != nil {
		return err
	}
	defer self.end(tx, &err)

	if err := self.onlyOwner(caller); err != nil {
		return err
	}
	st := tx.next
	if tx.now < st.TransferOwnershipDeadline {
		return ErrActionDeadline
	}
	if st.TransferOwnershipDeadline == 0 {
		return ErrNoActiveTransfer
	}

	st.TransferOwnershipDeadline = 0
	st.Owner = st.FutureOwner

	tx.emit(NewAdmin{Admin: st.Owner})
	return nil
}

func (self *StableSwap) RevertTransferOwnership(caller common.Address) (err error) {
	tx, err := self.begin("revert_transfer_ownership")
	if err != nil {
		return err
	}
	defer self.end(tx, &err)

	if err := self.onlyOwner(caller); err != nil {
		return err
	}
	tx.next.TransferOwnershipDeadline = 0

	tx.emit(RevertTransferOwnership{})
	return nil
}

//////////////////////////////////////////////////
// Exchange Contract : kill switch
//////////////////////////////////////////////////
func (self *StableSwap) KillMe(caller common.Address) (err error) {
	tx, err := self.begin("kill_me")
	if err != nil {
		return err
	}
	defer self.end(tx, &err)

	if err := self.onlyOwner(caller); err != nil {
		return err
	}
	st := tx.next
	if st.KillDeadline <= tx.now {
		return ErrKillDeadline
	}
	st.IsKilled = true

	tx.emit(Kill{Deadline: st.KillDeadline})
	return nil
}

func (self *StableSwap) UnkillMe(caller common.Address) (err error) {
	tx, err := self.begin("unkill_me")
	if err != nil {
		return err
	}
	defer self.end(tx, &err)

	if err := self.onlyOwner(caller); err != nil {
		return err
	}
	tx.next.IsKilled = false

	tx.emit(Unkill{})
	return nil
}

//////////////////////////////////////////////////
// Exchange Contract : admin fees
//////////////////////////////////////////////////

// WithdrawAdminFees sends every coin's surplus over the tracked balance to
// the caller.
func (self *StableSwap) WithdrawAdminFees(caller common.Address) (_ []*uint256.Int, err error) {
	tx, err := self.begin("withdraw_admin_fees")
	if err != nil {
		return nil, err
	}
	defer self.end(tx, &err)
	defer Catch(&err)

	if err := self.onlyOwner(caller); err != nil {
		return nil, err
	}
	amounts, err := self.adminBalances(tx.next)
	if err != nil {
		return nil, err
	}
	for i, value := range amounts {
		if value.IsZero() {
			continue
		}
		if err := self.pay(tx, i, caller, value); err != nil {
			return nil, err
		}
	}

	tx.emit(AdminFeesWithdrawn{Admin: caller, Amounts: CloneSlice(amounts)})
	return amounts, nil
}

// DonateAdminFees folds every coin's surplus into the tracked balances.
func (self *StableSwap) DonateAdminFees(caller common.Address) (_ []*uint256.Int, err error) {
	tx, err := self.begin("donate_admin_fees")
	if err != nil {
		return nil, err
	}
	defer self.end(tx, &err)
	defer Catch(&err)

	if err := self.onlyOwner(caller); err != nil {
		return nil, err
	}
	st := tx.next
	amounts, err := self.adminBalances(st)
	if err != nil {
		return nil, err
	}
	for i := range st.Balances {
		st.Balances[i] = Add(st.Balances[i], amounts[i])
	}

	tx.emit(AdminFeesDonated{Amounts: CloneSlice(amounts)})
	return amounts, nil
}

// adminBalances is balanceOf(pool) - balances[i] for every coin.
func (self *StableSwap) adminBalances(st *PoolState) ([]*uint256.Int, error) {
	result := MakeSlice(len(self.tokens))
	for i, coin := range self.tokens {
		held, err := coin.BalanceOf(self.addr)
		if err != nil {
			return nil, err
		}
		result[i] = Sub(held, st.Balances[i])
	}
	return result, nil
}
