package apiserver

import (
	"github.com/holiman/uint256"

	"github.com/meverselabs/stableswap/contract/exchange/trade"
	"github.com/meverselabs/stableswap/contract/exchange/util"
)

// PoolInfo is the result of <sub>.state
type PoolInfo struct {
	Name        string   `json:"name"`
	Coins       []string `json:"coins"`
	Balances    []string `json:"balances"`
	A           string   `json:"A"`
	FutureA     string   `json:"futureA"`
	FutureATime uint64   `json:"futureATime"`
	Fee         uint64   `json:"fee"`
	AdminFee    uint64   `json:"adminFee"`
	TotalSupply string   `json:"totalSupply"`
	Volume      string   `json:"volume"`
	Owner       string   `json:"owner"`
	IsKilled    bool     `json:"isKilled"`
}

// RegisterPool serves the read only views of pool under sub. Every amount
// is a decimal string in base units.
func RegisterPool(s *APIServer, sub string, pool *trade.StableSwap) error {
	js, err := s.JRPC(sub)
	if err != nil {
		return err
	}
	js.Set("getDy", func(ID interface{}, arg *Argument) (interface{}, error) {
		i, err := arg.Int(0)
		if err != nil {
			return nil, err
		}
		j, err := arg.Int(1)
		if err != nil {
			return nil, err
		}
		dx, err := arg.Amount(2)
		if err != nil {
			return nil, err
		}
		return dec(pool.GetDy(i, j, dx))
	})
	js.Set("getVirtualPrice", func(ID interface{}, arg *Argument) (interface{}, error) {
		return dec(pool.GetVirtualPrice())
	})
	js.Set("getD", func(ID interface{}, arg *Argument) (interface{}, error) {
		return dec(pool.GetD())
	})
	js.Set("calcTokenAmount", func(ID interface{}, arg *Argument) (interface{}, error) {
		amounts, err := arg.Amounts(0)
		if err != nil {
			return nil, err
		}
		deposit, err := arg.Bool(1)
		if err != nil {
			return nil, err
		}
		return dec(pool.CalcTokenAmount(amounts, deposit))
	})
	js.Set("calcWithdrawOneCoin", func(ID interface{}, arg *Argument) (interface{}, error) {
		amount, err := arg.Amount(0)
		if err != nil {
			return nil, err
		}
		i, err := arg.Int(1)
		if err != nil {
			return nil, err
		}
		return dec(pool.CalcWithdrawOneCoin(amount, i))
	})
	js.Set("adminBalances", func(ID interface{}, arg *Argument) (interface{}, error) {
		i, err := arg.Int(0)
		if err != nil {
			return nil, err
		}
		return dec(pool.AdminBalances(i))
	})
	js.Set("balances", func(ID interface{}, arg *Argument) (interface{}, error) {
		return util.SliceString(pool.Balances()), nil
	})
	js.Set("A", func(ID interface{}, arg *Argument) (interface{}, error) {
		return pool.A().Dec(), nil
	})
	js.Set("state", func(ID interface{}, arg *Argument) (interface{}, error) {
		st := pool.State()
		coins := make([]string, 0, pool.NCoins())
		for _, c := range pool.Coins() {
			coins = append(coins, c.Hex())
		}
		return &PoolInfo{
			Name:        pool.Name(),
			Coins:       coins,
			Balances:    util.SliceString(st.Balances),
			A:           pool.A().Dec(),
			FutureA:     st.Amp.FutureA.Dec(),
			FutureATime: st.Amp.FutureTime,
			Fee:         st.Fee,
			AdminFee:    st.AdminFee,
			TotalSupply: pool.TotalSupply().Dec(),
			Volume:      st.Volume.Dec(),
			Owner:       st.Owner.Hex(),
			IsKilled:    st.IsKilled,
		}, nil
	})
	return nil
}

func dec(v *uint256.Int, err error) (interface{}, error) {
	if err != nil {
		return nil, NewPoolError(err)
	}
	return v.Dec(), nil
}
