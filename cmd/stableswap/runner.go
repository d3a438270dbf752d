package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/meverselabs/stableswap/contract/exchange/trade"
	"github.com/meverselabs/stableswap/contract/exchange/util"
	"github.com/meverselabs/stableswap/store"
)

// accountAddress derives a stable simulator address from a name.
func accountAddress(name string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(name))[12:])
}

func ledgerName(pool string) string {
	return pool + ".lp"
}

type runner struct {
	cfg      *Config
	logger   *zap.Logger
	out      io.Writer
	clock    *trade.ManualClock
	poolAddr common.Address
	tokens   []*trade.Token
	lp       *trade.LPToken
	pool     *trade.StableSwap
	events   *trade.Recorder
	restored bool
}

// newRunner funds the configured accounts and builds the pool, restoring
// it from st when st already holds a pool of that name.
func newRunner(cfg *Config, st *store.Store, reg prometheus.Registerer, logger *zap.Logger, out io.Writer) (*runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := cfg.StartTime
	if start == 0 {
		start = uint64(time.Now().Unix())
	}
	r := &runner{
		cfg:      cfg,
		logger:   logger,
		out:      out,
		clock:    trade.NewManualClock(start),
		poolAddr: accountAddress("pool:" + cfg.Pool.Name),
		lp:       trade.NewLPToken(cfg.Pool.Name+" LP", strings.ToUpper(cfg.Pool.Name)+"-LP"),
		events:   &trade.Recorder{},
	}

	c := trade.StableSwapConstruction{
		Name:     cfg.Pool.Name,
		Address:  r.poolAddr,
		FeeIndex: cfg.feeIndex(),
		Amp:      uint256.NewInt(cfg.Pool.Amp),
		Fee:      cfg.Pool.Fee,
		AdminFee: cfg.Pool.AdminFee,
		Owner:    accountAddress(cfg.Pool.Owner),
		Clock:    r.clock,
		Events:   trade.MultiSink{trade.LogSink{Logger: logger.Named("event")}, r.events},
		Logger:   logger,
	}
	if reg != nil {
		c.Metrics = trade.NewMetrics(reg, cfg.Pool.Name)
	}
	for _, cc := range cfg.Pool.Coins {
		token := trade.NewToken(accountAddress("coin:"+cc.Symbol), cc.Symbol, cc.Decimals, cc.TransferFeeBps)
		r.tokens = append(r.tokens, token)
		c.Coins = append(c.Coins, token.Address())
		c.Tokens = append(c.Tokens, token.Bind(r.poolAddr))
		c.Rates = append(c.Rates, token.Rate())
	}
	for _, acc := range cfg.Accounts {
		holder := accountAddress(acc.Name)
		for i, b := range acc.Balances {
			amount, err := util.ParseAmount(b, int32(r.tokens[i].Decimals()))
			if err != nil {
				return nil, errors.Wrapf(err, "account %s", acc.Name)
			}
			if err := r.tokens[i].Mint(holder, amount); err != nil {
				return nil, errors.Wrapf(err, "account %s", acc.Name)
			}
			r.tokens[i].Approve(holder, r.poolAddr, util.MaxUint256)
		}
	}

	if st != nil {
		state, err := st.LoadPool(cfg.Pool.Name)
		switch {
		case err == nil:
			return r, r.restore(st, c, state)
		case !errors.Is(err, store.ErrNotExistKey):
			return nil, err
		}
	}
	c.Ledger = r.lp
	pool, err := trade.NewStableSwap(c)
	if err != nil {
		return nil, err
	}
	r.pool = pool
	return r, nil
}

// restore rebuilds the pool and its ledger. Coins are in memory only, so
// the pool is refunded its recorded balances; admin fees of earlier runs
// are not.
func (r *runner) restore(st *store.Store, c trade.StableSwapConstruction, state *trade.PoolState) error {
	ls, err := st.LoadLedger(ledgerName(r.cfg.Pool.Name))
	if err != nil {
		return err
	}
	lp, err := trade.RestoreLPToken(ls)
	if err != nil {
		return err
	}
	saved, err := st.LoadClock(r.cfg.Pool.Name)
	switch {
	case err == nil:
		if saved > r.clock.Now() {
			r.clock.Set(saved)
		}
	case !errors.Is(err, store.ErrNotExistKey):
		return err
	}
	if len(state.Balances) != len(r.tokens) {
		return errors.Errorf("stored pool %s has %d coins, config has %d", r.cfg.Pool.Name, len(state.Balances), len(r.tokens))
	}
	for i, b := range state.Balances {
		if err := r.tokens[i].Mint(r.poolAddr, b); err != nil {
			return err
		}
	}
	c.Ledger = lp
	pool, err := trade.RestoreStableSwap(c, state)
	if err != nil {
		return err
	}
	r.lp = lp
	r.pool = pool
	r.restored = true
	r.logger.Info("pool restored", zap.String("pool", r.cfg.Pool.Name), zap.Strings("balances", util.SliceString(state.Balances)))
	return nil
}

func (r *runner) save(st *store.Store) error {
	if err := st.SavePool(r.cfg.Pool.Name, r.pool.State()); err != nil {
		return err
	}
	if err := st.SaveClock(r.cfg.Pool.Name, r.clock.Now()); err != nil {
		return err
	}
	return st.SaveLedger(ledgerName(r.cfg.Pool.Name), r.lp.State())
}

// replay runs every step in order. A step that fails without expecting it
// stops the replay, and so does ctx between steps; committed steps stay
// committed.
func (r *runner) replay(ctx context.Context) error {
	for i := range r.cfg.Steps {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "step %d", i)
		}
		step := &r.cfg.Steps[i]
		result, err := stepOps[step.Op](r, step)
		if len(step.Expect) > 0 {
			if err == nil {
				return errors.Errorf("step %d %s: succeeded, expected %s", i, step.Op, step.Expect)
			}
			if !strings.HasSuffix(err.Error(), step.Expect) {
				return errors.Wrapf(err, "step %d %s: expected %s", i, step.Op, step.Expect)
			}
			fmt.Fprintf(r.out, "%3d %-26s reverted %s\n", i, step.Op, err)
			continue
		}
		if err != nil {
			fmt.Fprintf(r.out, "%3d %-26s reverted %s (%s)\n", i, step.Op, err, trade.KindOf(err))
			return errors.Wrapf(err, "step %d %s", i, step.Op)
		}
		fmt.Fprintf(r.out, "%3d %-26s %s\n", i, step.Op, result)
	}
	return nil
}

func (r *runner) summary() {
	st := r.pool.State()
	fmt.Fprintf(r.out, "pool %s\n", r.cfg.Pool.Name)
	for i, b := range st.Balances {
		admin, err := r.pool.AdminBalances(i)
		if err != nil {
			admin = uint256.NewInt(0)
		}
		fmt.Fprintf(r.out, "  %-8s %s (admin %s)\n", r.tokens[i].Symbol(), r.coin(i, b), r.coin(i, admin))
	}
	fmt.Fprintf(r.out, "  A        %s\n", r.pool.A().Dec())
	fmt.Fprintf(r.out, "  supply   %s\n", r.lpAmount(r.pool.TotalSupply()))
	if vp, err := r.pool.GetVirtualPrice(); err == nil {
		fmt.Fprintf(r.out, "  price    %s\n", util.ToDecimal(vp, 18))
	}
	fmt.Fprintf(r.out, "  volume   %s\n", util.ToDecimal(st.Volume, 18))
	if r.logger.Core().Enabled(zapcore.DebugLevel) {
		r.logger.Debug("state", zap.String("dump", spew.Sdump(st)))
	}
}

func (r *runner) caller(name string) common.Address {
	if len(name) == 0 {
		name = r.cfg.Pool.Owner
	}
	return accountAddress(name)
}

func (r *runner) coin(i int, v *uint256.Int) string {
	return util.ToDecimal(v, int32(r.tokens[i].Decimals())).String() + " " + r.tokens[i].Symbol()
}

func (r *runner) lpAmount(v *uint256.Int) string {
	return util.ToDecimal(v, 18).String() + " " + r.lp.Symbol()
}

func (r *runner) coins(vs []*uint256.Int) string {
	list := make([]string, len(vs))
	for i, v := range vs {
		list[i] = r.coin(i, v)
	}
	return strings.Join(list, ", ")
}

func (r *runner) index(i int) error {
	if i < 0 || i >= len(r.tokens) {
		return errors.Errorf("coin index %d out of range", i)
	}
	return nil
}

// parseCoin reads s in the decimals of coin i. Empty is zero.
func (r *runner) parseCoin(i int, s string) (*uint256.Int, error) {
	if err := r.index(i); err != nil {
		return nil, err
	}
	if len(s) == 0 {
		return uint256.NewInt(0), nil
	}
	return util.ParseAmount(s, int32(r.tokens[i].Decimals()))
}

// parseCoins reads one amount per coin. Empty is all zero.
func (r *runner) parseCoins(ss []string) ([]*uint256.Int, error) {
	if len(ss) == 0 {
		return util.MakeSlice(len(r.tokens)), nil
	}
	if len(ss) != len(r.tokens) {
		return nil, errors.Errorf("%d amounts for %d coins", len(ss), len(r.tokens))
	}
	result := make([]*uint256.Int, len(ss))
	for i, s := range ss {
		v, err := r.parseCoin(i, s)
		if err != nil {
			return nil, err
		}
		result[i] = v
	}
	return result, nil
}

// parseLP reads s with 18 decimals. Empty is def.
func parseLP(s string, def *uint256.Int) (*uint256.Int, error) {
	if len(s) == 0 {
		return def, nil
	}
	return util.ParseAmount(s, 18)
}
