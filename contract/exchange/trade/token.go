package trade

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	. "github.com/meverselabs/stableswap/contract/exchange/util"
)

const bpsDenominator = 10000

// Token is an in-memory fungible asset. With a non-zero transfer fee every
// transfer burns that many basis points of the amount on the way, the way
// some stable coins can.
type Token struct {
	sync.Mutex
	address        common.Address
	symbol         string
	decimals       uint8
	transferFeeBps uint64
	totalSupply    *uint256.Int
	balances       map[common.Address]*uint256.Int
	allowances     map[common.Address]map[common.Address]*uint256.Int

	// OnTransfer runs after every completed transfer, outside the token's lock.
	OnTransfer func(from, to common.Address, amount *uint256.Int)
}

func NewToken(address common.Address, symbol string, decimals uint8, transferFeeBps uint64) *Token {
	return &Token{
		address:        address,
		symbol:         symbol,
		decimals:       decimals,
		transferFeeBps: transferFeeBps,
		totalSupply:    NewInt(0),
		balances:       map[common.Address]*uint256.Int{},
		allowances:     map[common.Address]map[common.Address]*uint256.Int{},
	}
}

func (t *Token) Address() common.Address {
	return t.address
}
func (t *Token) Symbol() string {
	return t.symbol
}
func (t *Token) Decimals() uint8 {
	return t.decimals
}
func (t *Token) TransferFeeBps() uint64 {
	return t.transferFeeBps
}

// Rate is the multiplier bringing one unit of t to 18 decimals, scaled by
// 1e18 as pools expect.
func (t *Token) Rate() *uint256.Int {
	return Mul(Pow10(18), Pow10(18-int(t.decimals)))
}

func (t *Token) TotalSupply() *uint256.Int {
	t.Lock()
	defer t.Unlock()
	return Clone(t.totalSupply)
}
func (t *Token) BalanceOf(holder common.Address) *uint256.Int {
	t.Lock()
	defer t.Unlock()
	return t.balanceOf(holder)
}
func (t *Token) Allowance(owner, spender common.Address) *uint256.Int {
	t.Lock()
	defer t.Unlock()
	if m, has := t.allowances[owner]; has {
		if a, has := m[spender]; has {
			return Clone(a)
		}
	}
	return NewInt(0)
}

func (t *Token) balanceOf(holder common.Address) *uint256.Int {
	if b, has := t.balances[holder]; has {
		return Clone(b)
	}
	return NewInt(0)
}

func (t *Token) Mint(to common.Address, amount *uint256.Int) (err error) {
	t.Lock()
	defer t.Unlock()
	defer Catch(&err)

	t.totalSupply = Add(t.totalSupply, amount)
	t.balances[to] = Add(t.balanceOf(to), amount)
	return nil
}

func (t *Token) Approve(owner, spender common.Address, amount *uint256.Int) {
	t.Lock()
	defer t.Unlock()
	m, has := t.allowances[owner]
	if !has {
		m = map[common.Address]*uint256.Int{}
		t.allowances[owner] = m
	}
	m[spender] = Clone(amount)
}

func (t *Token) Transfer(from, to common.Address, amount *uint256.Int) error {
	if err := t.move(from, to, amount, true); err != nil {
		return err
	}
	t.notify(from, to, amount)
	return nil
}

func (t *Token) TransferFrom(spender, from, to common.Address, amount *uint256.Int) error {
	t.Lock()
	allowance := NewInt(0)
	if m, has := t.allowances[from]; has {
		if a, has := m[spender]; has {
			allowance = a
		}
	}
	if allowance.Lt(amount) {
		t.Unlock()
		return errors.Errorf("%s: TRANSFER_EXCEED_ALLOWANCE", t.symbol)
	}
	metered := !allowance.Eq(MaxUint256) && !amount.IsZero()
	if metered {
		t.allowances[from][spender] = new(uint256.Int).Sub(allowance, amount)
	}
	t.Unlock()

	if err := t.move(from, to, amount, true); err != nil {
		t.Lock()
		if metered {
			t.allowances[from][spender] = allowance
		}
		t.Unlock()
		return err
	}
	t.notify(from, to, amount)
	return nil
}

func (t *Token) move(from, to common.Address, amount *uint256.Int, charge bool) (err error) {
	t.Lock()
	defer t.Unlock()
	defer Catch(&err)

	if to == ZeroAddress {
		return errors.Errorf("%s: TRANSFER_TO_ZEROADDRESS", t.symbol)
	}
	fromBalance := t.balanceOf(from)
	if fromBalance.Lt(amount) {
		return errors.Errorf("%s: TRANSFER_EXCEED_BALANCE", t.symbol)
	}
	received := Clone(amount)
	if charge {
		fee := t.fee(amount)
		received = Sub(received, fee)
		t.totalSupply = Sub(t.totalSupply, fee)
	}
	t.balances[from] = Sub(fromBalance, amount)
	t.balances[to] = Add(t.balanceOf(to), received)
	return nil
}

// unmove is the exact inverse of a charged move of amount from from to to.
func (t *Token) unmove(from, to common.Address, amount *uint256.Int) (err error) {
	t.Lock()
	defer t.Unlock()
	defer Catch(&err)

	fee := t.fee(amount)
	received := Sub(amount, fee)
	toBalance := t.balanceOf(to)
	if toBalance.Lt(received) {
		return errors.Errorf("%s: REVERT_EXCEED_BALANCE", t.symbol)
	}
	t.balances[to] = Sub(toBalance, received)
	t.balances[from] = Add(t.balanceOf(from), amount)
	t.totalSupply = Add(t.totalSupply, fee)
	return nil
}

func (t *Token) fee(amount *uint256.Int) *uint256.Int {
	if t.transferFeeBps == 0 {
		return NewInt(0)
	}
	return MulDivCC(amount, t.transferFeeBps, bpsDenominator)
}

func (t *Token) notify(from, to common.Address, amount *uint256.Int) {
	if t.OnTransfer != nil {
		t.OnTransfer(from, to, amount)
	}
}

// Bind returns the Coin handle a pool holding t at holder uses.
func (t *Token) Bind(holder common.Address) Coin {
	return &boundCoin{token: t, holder: holder}
}

type boundCoin struct {
	token  *Token
	holder common.Address
}

func (c *boundCoin) TransferFrom(owner common.Address, amount *uint256.Int) error {
	return c.token.TransferFrom(c.holder, owner, c.holder, amount)
}
func (c *boundCoin) Transfer(to common.Address, amount *uint256.Int) error {
	return c.token.Transfer(c.holder, to, amount)
}
func (c *boundCoin) BalanceOf(holder common.Address) (*uint256.Int, error) {
	return c.token.BalanceOf(holder), nil
}

func (c *boundCoin) RevertTransferFrom(owner common.Address, amount *uint256.Int) error {
	t := c.token
	if err := t.unmove(owner, c.holder, amount); err != nil {
		return err
	}
	t.Lock()
	defer t.Unlock()
	if m, has := t.allowances[owner]; has {
		if a, has := m[c.holder]; has && !a.Eq(MaxUint256) {
			m[c.holder] = new(uint256.Int).Add(a, amount)
		}
	}
	return nil
}
func (c *boundCoin) RevertTransfer(to common.Address, amount *uint256.Int) error {
	return c.token.unmove(c.holder, to, amount)
}
