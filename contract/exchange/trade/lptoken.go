package trade

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	. "github.com/meverselabs/stableswap/contract/exchange/util"
)

// LPToken is an in-memory share ledger with ERC20 style allowances. It
// implements Ledger.
type LPToken struct {
	sync.Mutex
	name        string
	symbol      string
	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
	allowances  map[common.Address]map[common.Address]*uint256.Int
}

// LedgerState is the persisted form of an LPToken.
type LedgerState struct {
	Name        string
	Symbol      string
	TotalSupply *uint256.Int
	Balances    map[common.Address]*uint256.Int
	Allowances  map[common.Address]map[common.Address]*uint256.Int
}

func NewLPToken(name, symbol string) *LPToken {
	return &LPToken{
		name:        name,
		symbol:      symbol,
		totalSupply: NewInt(0),
		balances:    map[common.Address]*uint256.Int{},
		allowances:  map[common.Address]map[common.Address]*uint256.Int{},
	}
}

// RestoreLPToken rebuilds a ledger from s. Balances must add up to the
// total supply.
func RestoreLPToken(s *LedgerState) (*LPToken, error) {
	token := NewLPToken(s.Name, s.Symbol)
	sum := NewInt(0)
	for owner, balance := range s.Balances {
		if balance.IsZero() {
			continue
		}
		token.balances[owner] = Clone(balance)
		if _, overflow := sum.AddOverflow(sum, balance); overflow {
			return nil, errors.New("LPToken: SUPPLY_OVERFLOW")
		}
	}
	if s.TotalSupply == nil || !sum.Eq(s.TotalSupply) {
		return nil, errors.New("LPToken: SUPPLY_MISMATCH")
	}
	token.totalSupply = sum
	for owner, spenders := range s.Allowances {
		for spender, amount := range spenders {
			token.setAllowance(owner, spender, amount)
		}
	}
	return token, nil
}

//////////////////////////////////////////////////
// LPToken : reader functions
//////////////////////////////////////////////////
func (self *LPToken) Name() string {
	return self.name
}
func (self *LPToken) Symbol() string {
	return self.symbol
}
func (self *LPToken) Decimals() int {
	return 18
}
func (self *LPToken) TotalSupply() *uint256.Int {
	self.Lock()
	defer self.Unlock()
	return Clone(self.totalSupply)
}

// Returns the amount of tokens owned by `account`.
func (self *LPToken) BalanceOf(owner common.Address) *uint256.Int {
	self.Lock()
	defer self.Unlock()
	return self.balanceOf(owner)
}

// Returns the remaining number of tokens that `spender` will be
// allowed to spend on behalf of `owner` through TransferFrom.
func (self *LPToken) Allowance(owner, spender common.Address) *uint256.Int {
	self.Lock()
	defer self.Unlock()
	return self.allowance(owner, spender)
}

func (self *LPToken) State() *LedgerState {
	self.Lock()
	defer self.Unlock()
	s := &LedgerState{
		Name:        self.name,
		Symbol:      self.symbol,
		TotalSupply: Clone(self.totalSupply),
		Balances:    make(map[common.Address]*uint256.Int, len(self.balances)),
		Allowances:  make(map[common.Address]map[common.Address]*uint256.Int, len(self.allowances)),
	}
	for owner, balance := range self.balances {
		s.Balances[owner] = Clone(balance)
	}
	for owner, spenders := range self.allowances {
		m := make(map[common.Address]*uint256.Int, len(spenders))
		for spender, amount := range spenders {
			m[spender] = Clone(amount)
		}
		s.Allowances[owner] = m
	}
	return s
}

func (self *LPToken) balanceOf(owner common.Address) *uint256.Int {
	if b, has := self.balances[owner]; has {
		return Clone(b)
	}
	return NewInt(0)
}
func (self *LPToken) allowance(owner, spender common.Address) *uint256.Int {
	if m, has := self.allowances[owner]; has {
		if a, has := m[spender]; has {
			return Clone(a)
		}
	}
	return NewInt(0)
}

//////////////////////////////////////////////////
// LPToken : private writer functions
//////////////////////////////////////////////////
func (self *LPToken) setBalance(owner common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		delete(self.balances, owner)
		return
	}
	self.balances[owner] = amount
}
func (self *LPToken) setAllowance(owner, spender common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		if m, has := self.allowances[owner]; has {
			delete(m, spender)
			if len(m) == 0 {
				delete(self.allowances, owner)
			}
		}
		return
	}
	m, has := self.allowances[owner]
	if !has {
		m = map[common.Address]*uint256.Int{}
		self.allowances[owner] = m
	}
	m[spender] = Clone(amount)
}

func (self *LPToken) _approve(owner, spender common.Address, amount *uint256.Int) error {
	if owner == ZeroAddress {
		return errors.New("LPToken: APPROVE_FROM_ZEROADDRESS")
	}
	if spender == ZeroAddress {
		return errors.New("LPToken: APPROVE_TO_ZEROADDRESS")
	}
	self.setAllowance(owner, spender, amount)
	return nil
}
func (self *LPToken) _transfer(from, to common.Address, amount *uint256.Int) error {
	if from == ZeroAddress {
		return errors.New("LPToken: TRANSFER_FROM_ZEROADDRESS")
	}
	if to == ZeroAddress {
		return errors.New("LPToken: TRANSFER_TO_ZEROADDRESS")
	}
	fromBalance := self.balanceOf(from)
	if fromBalance.Lt(amount) {
		return errors.New("LPToken: TRANSFER_EXCEED_BALANCE")
	}
	self.setBalance(from, Sub(fromBalance, amount))
	self.setBalance(to, Add(self.balanceOf(to), amount))
	return nil
}

//////////////////////////////////////////////////
// LPToken : Ledger
//////////////////////////////////////////////////
func (self *LPToken) Mint(to common.Address, amount *uint256.Int) (err error) {
	self.Lock()
	defer self.Unlock()
	defer Catch(&err)

	if to == ZeroAddress {
		return errors.New("LPToken: MINT_TO_ZEROADDRESS")
	}
	total := Add(self.totalSupply, amount)
	self.setBalance(to, Add(self.balanceOf(to), amount))
	self.totalSupply = total
	return nil
}
func (self *LPToken) Burn(from common.Address, amount *uint256.Int) (err error) {
	self.Lock()
	defer self.Unlock()
	defer Catch(&err)

	balance := self.balanceOf(from)
	if balance.Lt(amount) {
		return errors.New("LPToken: BURN_EXCEED_BALANCE")
	}
	self.setBalance(from, Sub(balance, amount))
	self.totalSupply = Sub(self.totalSupply, amount)
	return nil
}

//////////////////////////////////////////////////
// LPToken : holder functions
//////////////////////////////////////////////////

// Sets `amount` as the allowance of `spender` over the owner's tokens.
func (self *LPToken) Approve(owner, spender common.Address, amount *uint256.Int) error {
	self.Lock()
	defer self.Unlock()
	return self._approve(owner, spender, amount)
}

// IncreaseAllowance is an alternative to Approve that avoids the double
// spend window of resetting an allowance.
func (self *LPToken) IncreaseAllowance(owner, spender common.Address, addAmount *uint256.Int) (err error) {
	self.Lock()
	defer self.Unlock()
	defer Catch(&err)
	return self._approve(owner, spender, Add(self.allowance(owner, spender), addAmount))
}

func (self *LPToken) DecreaseAllowance(owner, spender common.Address, subtractAmount *uint256.Int) error {
	self.Lock()
	defer self.Unlock()
	allowance := self.allowance(owner, spender)
	if allowance.Lt(subtractAmount) {
		return errors.New("LPToken: DECREASED_ALLOWANCE_BELOW_ZERO")
	}
	return self._approve(owner, spender, new(uint256.Int).Sub(allowance, subtractAmount))
}

func (self *LPToken) Transfer(from, to common.Address, amount *uint256.Int) error {
	self.Lock()
	defer self.Unlock()
	return self._transfer(from, to, amount)
}

// TransferFrom moves amount from `from` to `to` using the allowance granted
// to spender.
func (self *LPToken) TransferFrom(spender, from, to common.Address, amount *uint256.Int) error {
	self.Lock()
	defer self.Unlock()

	allowance := self.allowance(from, spender)
	if allowance.Lt(amount) {
		return errors.New("LPToken: TRANSFER_EXCEED_ALLOWANCE")
	}
	if err := self._transfer(from, to, amount); err != nil {
		return err
	}
	if allowance.Eq(MaxUint256) {
		return nil
	}
	return self._approve(from, spender, new(uint256.Int).Sub(allowance, amount))
}
