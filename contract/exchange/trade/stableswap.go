package trade

import (
	"sync"

	"github.com/bluele/gcache"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	. "github.com/meverselabs/stableswap/contract/exchange/util"
)

// StableSwap is a Curve style pool of N pegged coins.
//
// Mutating methods hold the entered guard of Base for their whole run and
// publish a new PoolState only when they succeed. Views read the last
// published state and never wait on a running operation.
type StableSwap struct {
	Base

	mu    sync.RWMutex
	state *PoolState
	busy  bool // an operation is between begin and end

	name         string
	coins        []common.Address
	tokens       []Coin
	rates        []*uint256.Int
	precisionMul []*uint256.Int
	feeIndex     int
	ledger       Ledger

	// invariants memoizes D by (amp, balances)
	invariants gcache.Cache
}

var precision = NewInt(PRECISION)

func (self *StableSwap) snapshot() *PoolState {
	self.mu.RLock()
	defer self.mu.RUnlock()
	return self.state
}

//////////////////////////////////////////////////
// StableSwap : reader functions
//////////////////////////////////////////////////
func (self *StableSwap) Name() string {
	return self.name
}
func (self *StableSwap) NCoins() int {
	return len(self.coins)
}
func (self *StableSwap) Coins() []common.Address {
	return append([]common.Address{}, self.coins...)
}
func (self *StableSwap) Rates() []*uint256.Int {
	return CloneSlice(self.rates)
}
func (self *StableSwap) PrecisionMul() []*uint256.Int {
	return CloneSlice(self.precisionMul)
}
func (self *StableSwap) FeeIndex() int {
	return self.feeIndex
}
func (self *StableSwap) Balances() []*uint256.Int {
	return CloneSlice(self.snapshot().Balances)
}
func (self *StableSwap) Fee() uint64 {
	return self.snapshot().Fee
}
func (self *StableSwap) AdminFee() uint64 {
	return self.snapshot().AdminFee
}
func (self *StableSwap) FutureFee() uint64 {
	return self.snapshot().FutureFee
}
func (self *StableSwap) FutureAdminFee() uint64 {
	return self.snapshot().FutureAdminFee
}
func (self *StableSwap) AdminActionsDeadline() uint64 {
	return self.snapshot().AdminActionsDeadline
}
func (self *StableSwap) Owner() common.Address {
	return self.snapshot().Owner
}
func (self *StableSwap) FutureOwner() common.Address {
	return self.snapshot().FutureOwner
}
func (self *StableSwap) TransferOwnershipDeadline() uint64 {
	return self.snapshot().TransferOwnershipDeadline
}
func (self *StableSwap) IsKilled() bool {
	return self.snapshot().IsKilled
}
func (self *StableSwap) KillDeadline() uint64 {
	return self.snapshot().KillDeadline
}

// Volume is the cumulative swap input in 18 decimal units.
func (self *StableSwap) Volume() *uint256.Int {
	return Clone(self.snapshot().Volume)
}
func (self *StableSwap) TotalSupply() *uint256.Int {
	return Clone(self.snapshot().TotalSupply)
}

// State returns a copy of the committed state, e.g. for persisting it.
func (self *StableSwap) State() *PoolState {
	return self.snapshot().Clone()
}
func (self *StableSwap) AmplificationState() AmplificationState {
	return self.snapshot().Amp.Clone()
}

// A is the effective amplification coefficient right now.
func (self *StableSwap) A() *uint256.Int {
	return self.snapshot().Amp.effectiveA(self.clock.Now())
}

//////////////////////////////////////////////////
// StableSwap : view functions
//////////////////////////////////////////////////
func (self *StableSwap) _xp_mem(_balances []*uint256.Int) []*uint256.Int {
	result := MakeSlice(len(_balances))
	for i := range _balances {
		result[i] = MulDivC(self.rates[i], _balances[i], PRECISION)
	}
	return result
}

func (self *StableSwap) _get_D_mem(_balances []*uint256.Int, amp *uint256.Int) (*uint256.Int, error) {
	key := invariantKey(_balances, amp)
	if v, err := self.invariants.Get(key); err == nil {
		return Clone(v.(*uint256.Int)), nil
	}
	D, err := getD(self._xp_mem(_balances), amp)
	if err != nil {
		return nil, err
	}
	self.invariants.Set(key, Clone(D))
	return D, nil
}

func invariantKey(balances []*uint256.Int, amp *uint256.Int) string {
	bs := make([]byte, 0, 32*(len(balances)+1))
	a := amp.Bytes32()
	bs = append(bs, a[:]...)
	for _, b := range balances {
		x := b.Bytes32()
		bs = append(bs, x[:]...)
	}
	return string(bs)
}

func (self *StableSwap) GetD() (_ *uint256.Int, err error) {
	defer Catch(&err)
	st := self.snapshot()
	return self._get_D_mem(st.Balances, st.Amp.effectiveA(self.clock.Now()))
}

// GetVirtualPrice returns the portfolio value of one LP token, scaled by
// 1e18. It only grows while fees accrue.
func (self *StableSwap) GetVirtualPrice() (_ *uint256.Int, err error) {
	defer Catch(&err)
	return self.virtualPrice(self.snapshot(), self.clock.Now())
}

func (self *StableSwap) virtualPrice(st *PoolState, now uint64) (_ *uint256.Int, err error) {
	defer Catch(&err)
	D, err := self._get_D_mem(st.Balances, st.Amp.effectiveA(now))
	if err != nil {
		return nil, err
	}
	// D is in the units similar to DAI (e.g. converted to precision 1e18)
	// When balanced, D = n * x_u - total virtual value of the portfolio
	return MulDiv(D, precision, st.TotalSupply), nil
}

// CalcTokenAmount estimates the LP amount minted or burned by a deposit or
// withdrawal of amounts. It accounts for slippage but not fees. A deposit
// into an empty pool is priced at the new invariant, as AddLiquidity mints.
func (self *StableSwap) CalcTokenAmount(amounts []*uint256.Int, deposit bool) (_ *uint256.Int, err error) {
	defer Catch(&err)

	st := self.snapshot()
	N := len(self.coins)
	if len(amounts) != N {
		return nil, ErrLength
	}
	if hasNil(amounts) {
		return nil, ErrInsufficientInput
	}
	amp := st.Amp.effectiveA(self.clock.Now())
	_balances := CloneSlice(st.Balances)
	D0, err := self._get_D_mem(_balances, amp)
	if err != nil {
		return nil, err
	}
	for i := 0; i < N; i++ {
		if deposit {
			_balances[i] = Add(_balances[i], amounts[i])
		} else {
			_balances[i] = Sub(_balances[i], amounts[i])
		}
	}
	D1, err := self._get_D_mem(_balances, amp)
	if err != nil {
		return nil, err
	}
	token_amount := st.TotalSupply
	if token_amount.IsZero() && deposit {
		return D1, nil
	}
	var diff *uint256.Int
	if deposit {
		diff = Sub(D1, D0)
	} else {
		diff = Sub(D0, D1)
	}
	return MulDiv(diff, token_amount, D0), nil
}

// hasNil reports a missing amount in xs.
func hasNil(xs []*uint256.Int) bool {
	for _, x := range xs {
		if x == nil {
			return true
		}
	}
	return false
}

func (self *StableSwap) checkPair(in, out int) error {
	N := len(self.coins)
	if in == out {
		return ErrSameCoin
	}
	if in < 0 || in >= N {
		return ErrIn
	}
	if out < 0 || out >= N {
		return ErrOut
	}
	return nil
}

// _get_dy_mem prices a swap of dx (already received) against _balances. It
// returns the amount paid out and the admin part of the fee, both in native
// units of coin out.
func (self *StableSwap) _get_dy_mem(st *PoolState, amp *uint256.Int, in, out int, dx *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	rates := self.rates
	xp := self._xp_mem(st.Balances)

	x := Add(xp[in], MulDivC(dx, rates[in], PRECISION))
	y, err := getY(in, out, x, xp, amp)
	if err != nil {
		return nil, nil, err
	}
	dy := SubC(Sub(xp[out], y), 1) // -1 just in case there were some rounding errors
	dy_fee := MulDivCC(dy, st.Fee, FEE_DENOMINATOR)
	dy_admin_fee := MulDivCC(dy_fee, st.AdminFee, FEE_DENOMINATOR)

	// Convert all to real units
	dy = MulDiv(Sub(dy, dy_fee), precision, rates[out])
	dy_admin_fee = MulDiv(dy_admin_fee, precision, rates[out])
	return dy, dy_admin_fee, nil
}

// GetDy returns what Exchange would pay for dx of coin in right now.
func (self *StableSwap) GetDy(in, out int, dx *uint256.Int) (_ *uint256.Int, err error) {
	defer Catch(&err)
	if err := self.checkPair(in, out); err != nil {
		return nil, err
	}
	if dx == nil {
		return nil, ErrInsufficientInput
	}
	st := self.snapshot()
	dy, _, err := self._get_dy_mem(st, st.Amp.effectiveA(self.clock.Now()), in, out, dx)
	return dy, err
}

func (self *StableSwap) _calc_withdraw_one_coin(st *PoolState, now uint64, _token_amount *uint256.Int, i int) (*uint256.Int, *uint256.Int, error) {
	// First, need to calculate
	// * Get current D
	// * Solve Eqn against y_i for D - _token_amount
	N := len(self.coins)
	if i < 0 || i >= N {
		return nil, nil, ErrIdx
	}
	amp := st.Amp.effectiveA(now)
	_fee := st.Fee * uint64(N) / uint64(4*(N-1))
	precisions := self.precisionMul
	total_supply := st.TotalSupply

	xp := self._xp_mem(st.Balances)

	D0, err := getD(xp, amp)
	if err != nil {
		return nil, nil, err
	}
	D1 := Sub(D0, MulDiv(_token_amount, D0, total_supply))
	xp_reduced := CloneSlice(xp)

	new_y, err := getYD(amp, i, xp, D1)
	if err != nil {
		return nil, nil, err
	}
	dy_0 := Div(Sub(xp[i], new_y), precisions[i]) // w/o fees

	for j := 0; j < N; j++ {
		var dx_expected *uint256.Int
		if j == i {
			dx_expected = Sub(MulDiv(xp[j], D1, D0), new_y)
		} else {
			dx_expected = Sub(xp[j], MulDiv(xp[j], D1, D0))
		}
		xp_reduced[j] = Sub(xp_reduced[j], MulDivCC(dx_expected, _fee, FEE_DENOMINATOR))
	}

	y, err := getYD(amp, i, xp_reduced, D1)
	if err != nil {
		return nil, nil, err
	}
	dy := Sub(xp_reduced[i], y)
	dy = Div(SubC(dy, 1), precisions[i]) // Withdraw less to account for rounding errors

	return dy, Sub(dy_0, dy), nil
}

// CalcWithdrawOneCoin returns what RemoveLiquidityOneCoin would pay for
// burning _token_amount into coin i.
func (self *StableSwap) CalcWithdrawOneCoin(_token_amount *uint256.Int, i int) (_ *uint256.Int, err error) {
	defer Catch(&err)
	if _token_amount == nil {
		return nil, ErrInsufficientInput
	}
	dy, _, err := self._calc_withdraw_one_coin(self.snapshot(), self.clock.Now(), _token_amount, i)
	return dy, err
}

// AdminBalances is the part of coin i held by the pool but not tracked in
// its balances: accrued admin fees and donations. While an operation is
// running it answers from the holdings recorded at the last commit.
func (self *StableSwap) AdminBalances(i int) (_ *uint256.Int, err error) {
	defer Catch(&err)
	if i < 0 || i >= len(self.coins) {
		return nil, ErrIdx
	}
	self.mu.RLock()
	defer self.mu.RUnlock()
	st := self.state
	if self.busy {
		return Sub(st.Held[i], st.Balances[i]), nil
	}
	held, err := self.tokens[i].BalanceOf(self.addr)
	if err != nil {
		return nil, err
	}
	return Sub(held, st.Balances[i]), nil
}

//////////////////////////////////////////////////
// StableSwap : mutable functions
//////////////////////////////////////////////////

// AddLiquidity deposits amounts and mints LP tokens to caller.
func (self *StableSwap) AddLiquidity(caller common.Address, _amounts []*uint256.Int, _min_mint_amount *uint256.Int) (_ *uint256.Int, err error) {
	tx, err := self.begin("add_liquidity")
	if err != nil {
		return nil, err
	}
	defer self.end(tx, &err)
	defer Catch(&err)

	st := tx.next
	if st.IsKilled {
		return nil, ErrKilled // is killed
	}
	N := len(self.coins)
	if len(_amounts) != N {
		return nil, ErrLength
	}
	if hasNil(_amounts) {
		return nil, ErrInsufficientInput
	}

	amp := st.Amp.effectiveA(tx.now)
	old_balances := CloneSlice(st.Balances)
	token_supply := Clone(st.TotalSupply)

	// Initial invariant
	D0 := NewInt(0)
	if IsPlus(token_supply) {
		if D0, err = self._get_D_mem(old_balances, amp); err != nil {
			return nil, err
		}
	}

	new_balances := CloneSlice(old_balances)
	for i := 0; i < N; i++ {
		in_amount := _amounts[i]
		if token_supply.IsZero() && in_amount.IsZero() {
			return nil, ErrInitialDeposit // initial deposit requires all coins
		}
		// Take coins from the sender
		if IsPlus(in_amount) {
			received, err := self.pull(tx, i, caller, in_amount)
			if err != nil {
				return nil, err
			}
			new_balances[i] = Add(old_balances[i], received)
		}
	}

	// Invariant after change
	D1, err := self._get_D_mem(new_balances, amp)
	if err != nil {
		return nil, err
	}
	if !D1.Gt(D0) {
		return nil, ErrD1NotGreater
	}

	// We need to recalculate the invariant accounting for fees
	// to calculate fair user's share
	D2 := D1
	fees := MakeSlice(N)
	if IsPlus(token_supply) {
		// Only account for fees if we are not the first to deposit
		_fee := st.Fee * uint64(N) / uint64(4*(N-1))
		_admin_fee := st.AdminFee
		for i := 0; i < N; i++ {
			ideal_balance := MulDiv(D1, old_balances[i], D0)
			difference := AbsDiff(ideal_balance, new_balances[i])
			fees[i] = MulDivCC(difference, _fee, FEE_DENOMINATOR)
			st.Balances[i] = Sub(new_balances[i], MulDivCC(fees[i], _admin_fee, FEE_DENOMINATOR))
			new_balances[i] = Sub(new_balances[i], fees[i])
		}
		if D2, err = self._get_D_mem(new_balances, amp); err != nil {
			return nil, err
		}
	} else {
		st.Balances = new_balances
	}

	// Calculate, how much pool tokens to mint
	var mint_amount *uint256.Int
	if token_supply.IsZero() {
		mint_amount = Clone(D1) // Take the dust if there was any
	} else {
		mint_amount = MulDiv(token_supply, Sub(D2, D0), D0)
	}
	if _min_mint_amount != nil && mint_amount.Lt(_min_mint_amount) {
		return nil, ErrSlippage
	}

	// Mint pool tokens
	if err := self.mint(tx, caller, mint_amount); err != nil {
		return nil, err
	}

	tx.emit(AddLiquidity{
		Provider:     caller,
		TokenAmounts: CloneSlice(_amounts),
		Fees:         fees,
		Invariant:    Clone(D1),
		TokenSupply:  Add(token_supply, mint_amount),
	})
	return mint_amount, nil
}

// Exchange swaps dx of coin in for at least min_dy of coin out.
func (self *StableSwap) Exchange(caller common.Address, in, out int, dx, min_dy *uint256.Int) (_ *uint256.Int, err error) {
	tx, err := self.begin("exchange")
	if err != nil {
		return nil, err
	}
	defer self.end(tx, &err)
	defer Catch(&err)

	st := tx.next
	if st.IsKilled {
		return nil, ErrKilled // is killed
	}
	if err := self.checkPair(in, out); err != nil {
		return nil, err
	}
	if dx == nil || dx.IsZero() {
		return nil, ErrInsufficientInput
	}

	amp := st.Amp.effectiveA(tx.now)

	// Handling an unexpected charge of a fee on transfer
	dx_w_fee, err := self.pull(tx, in, caller, dx)
	if err != nil {
		return nil, err
	}

	dy, dy_admin_fee, err := self._get_dy_mem(st, amp, in, out, dx_w_fee)
	if err != nil {
		return nil, err
	}
	if min_dy != nil && dy.Lt(min_dy) {
		return nil, ErrSlippage // Exchange resulted in fewer coins than expected
	}

	// Change balances exactly in same way as we change actual ERC20 coin amounts
	st.Balances[in] = Add(st.Balances[in], dx_w_fee)
	// When rounding errors happen, we undercharge admin fee in favor of LP
	st.Balances[out] = Sub(Sub(st.Balances[out], dy), dy_admin_fee)

	volume := MulDivC(dx_w_fee, self.rates[in], PRECISION)
	st.Volume = Add(st.Volume, volume)

	if err := self.pay(tx, out, caller, dy); err != nil {
		return nil, err
	}

	tx.swapped = volume
	tx.emit(TokenExchange{
		Buyer:        caller,
		SoldID:       in,
		TokensSold:   Clone(dx),
		BoughtID:     out,
		TokensBought: Clone(dy),
	})
	return dy, nil
}

// RemoveLiquidity burns _amount LP tokens for a proportional share of every
// coin. It charges no fee and works while the pool is killed.
func (self *StableSwap) RemoveLiquidity(caller common.Address, _amount *uint256.Int, _min_amounts []*uint256.Int) (_ []*uint256.Int, err error) {
	tx, err := self.begin("remove_liquidity")
	if err != nil {
		return nil, err
	}
	defer self.end(tx, &err)
	defer Catch(&err)

	N := len(self.coins)
	if len(_min_amounts) != N {
		return nil, ErrLength
	}
	if _amount == nil || hasNil(_min_amounts) {
		return nil, ErrInsufficientInput
	}
	st := tx.next
	total_supply := Clone(st.TotalSupply)
	if total_supply.IsZero() {
		return nil, ErrSupplyZero
	}

	amounts := MakeSlice(N)
	fees := MakeSlice(N) // Fees are unused but we've got them historically in event
	for i := 0; i < N; i++ {
		value := MulDiv(st.Balances[i], _amount, total_supply)
		if value.Lt(_min_amounts[i]) {
			return nil, ErrSlippage // Withdrawal resulted in fewer coins than expected
		}
		st.Balances[i] = Sub(st.Balances[i], value)
		amounts[i] = value
	}

	if err := self.burn(tx, caller, _amount); err != nil {
		return nil, err
	}
	for i := 0; i < N; i++ {
		if amounts[i].IsZero() {
			continue
		}
		if err := self.pay(tx, i, caller, amounts[i]); err != nil {
			return nil, err
		}
	}

	tx.emit(RemoveLiquidity{
		Provider:     caller,
		TokenAmounts: CloneSlice(amounts),
		Fees:         fees,
		TokenSupply:  Sub(total_supply, _amount),
	})
	return amounts, nil
}

// RemoveLiquidityImbalance withdraws exactly _amounts and burns at most
// _max_burn_amount LP tokens for them.
func (self *StableSwap) RemoveLiquidityImbalance(caller common.Address, _amounts []*uint256.Int, _max_burn_amount *uint256.Int) (_ *uint256.Int, err error) {
	tx, err := self.begin("remove_liquidity_imbalance")
	if err != nil {
		return nil, err
	}
	defer self.end(tx, &err)
	defer Catch(&err)

	st := tx.next
	if st.IsKilled {
		return nil, ErrKilled // is killed
	}
	N := len(self.coins)
	if len(_amounts) != N {
		return nil, ErrLength
	}
	if hasNil(_amounts) {
		return nil, ErrInsufficientInput
	}

	token_supply := Clone(st.TotalSupply)
	if token_supply.IsZero() {
		return nil, ErrSupplyZero // dev: zero total supply
	}
	_fee := st.Fee * uint64(N) / uint64(4*(N-1))
	_admin_fee := st.AdminFee
	amp := st.Amp.effectiveA(tx.now)

	old_balances := CloneSlice(st.Balances)
	new_balances := CloneSlice(old_balances)
	D0, err := self._get_D_mem(old_balances, amp)
	if err != nil {
		return nil, err
	}
	for i := 0; i < N; i++ {
		new_balances[i] = Sub(new_balances[i], _amounts[i])
	}
	D1, err := self._get_D_mem(new_balances, amp)
	if err != nil {
		return nil, err
	}

	fees := MakeSlice(N)
	for i := 0; i < N; i++ {
		ideal_balance := MulDiv(D1, old_balances[i], D0)
		difference := AbsDiff(ideal_balance, new_balances[i])
		fees[i] = MulDivCC(difference, _fee, FEE_DENOMINATOR)
		st.Balances[i] = Sub(new_balances[i], MulDivCC(fees[i], _admin_fee, FEE_DENOMINATOR))
		new_balances[i] = Sub(new_balances[i], fees[i])
	}
	D2, err := self._get_D_mem(new_balances, amp)
	if err != nil {
		return nil, err
	}

	token_amount := MulDiv(Sub(D0, D2), token_supply, D0)
	if token_amount.IsZero() {
		return nil, ErrZeroBurn // dev: zero tokens burned
	}
	token_amount = AddC(token_amount, 1) // In case of rounding errors - make it unfavorable for the "attacker"
	if _max_burn_amount != nil && token_amount.Gt(_max_burn_amount) {
		return nil, ErrSlippage // Slippage screwed you
	}

	if err := self.burn(tx, caller, token_amount); err != nil {
		return nil, err
	}
	for i := 0; i < N; i++ {
		if _amounts[i].IsZero() {
			continue
		}
		if err := self.pay(tx, i, caller, _amounts[i]); err != nil {
			return nil, err
		}
	}

	tx.emit(RemoveLiquidityImbalance{
		Provider:     caller,
		TokenAmounts: CloneSlice(_amounts),
		Fees:         fees,
		Invariant:    Clone(D1),
		TokenSupply:  Sub(token_supply, token_amount),
	})
	return token_amount, nil
}

// RemoveLiquidityOneCoin burns _token_amount LP tokens for coin i only.
func (self *StableSwap) RemoveLiquidityOneCoin(caller common.Address, _token_amount *uint256.Int, i int, _min_amount *uint256.Int) (_ *uint256.Int, err error) {
	tx, err := self.begin("remove_liquidity_one_coin")
	if err != nil {
		return nil, err
	}
	defer self.end(tx, &err)
	defer Catch(&err)

	st := tx.next
	if st.IsKilled {
		return nil, ErrKilled // is killed
	}
	if _token_amount == nil || _token_amount.IsZero() {
		return nil, ErrInsufficientInput
	}

	dy, dy_fee, err := self._calc_withdraw_one_coin(st, tx.now, _token_amount, i)
	if err != nil {
		return nil, err
	}
	if _min_amount != nil && dy.Lt(_min_amount) {
		return nil, ErrSlippage // Not enough coins removed
	}

	st.Balances[i] = Sub(st.Balances[i], Add(dy, MulDivCC(dy_fee, st.AdminFee, FEE_DENOMINATOR)))

	if err := self.burn(tx, caller, _token_amount); err != nil {
		return nil, err
	}
	if err := self.pay(tx, i, caller, dy); err != nil {
		return nil, err
	}

	tx.emit(RemoveLiquidityOne{
		Provider:    caller,
		TokenAmount: Clone(_token_amount),
		CoinIndex:   i,
		CoinAmount:  Clone(dy),
	})
	return dy, nil
}
