package main

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/meverselabs/stableswap/contract/exchange/util"
)

type stepFunc func(r *runner, s *StepConfig) (string, error)

var stepOps = map[string]stepFunc{
	"add_liquidity":              (*runner).addLiquidity,
	"exchange":                   (*runner).exchange,
	"remove_liquidity":           (*runner).removeLiquidity,
	"remove_liquidity_imbalance": (*runner).removeLiquidityImbalance,
	"remove_liquidity_one_coin":  (*runner).removeLiquidityOneCoin,

	"get_dy":                 (*runner).getDy,
	"get_virtual_price":      (*runner).getVirtualPrice,
	"calc_token_amount":      (*runner).calcTokenAmount,
	"calc_withdraw_one_coin": (*runner).calcWithdrawOneCoin,

	"ramp_a":                    (*runner).rampA,
	"stop_ramp_a":               (*runner).stopRampA,
	"commit_new_fee":            (*runner).commitNewFee,
	"apply_new_fee":             (*runner).applyNewFee,
	"revert_new_parameters":     (*runner).revertNewParameters,
	"commit_transfer_ownership": (*runner).commitTransferOwnership,
	"apply_transfer_ownership":  (*runner).applyTransferOwnership,
	"revert_transfer_ownership": (*runner).revertTransferOwnership,
	"kill_me":                   (*runner).killMe,
	"unkill_me":                 (*runner).unkillMe,
	"withdraw_admin_fees":       (*runner).withdrawAdminFees,
	"donate_admin_fees":         (*runner).donateAdminFees,

	"advance": (*runner).advance,
}

//////////////////////////////////////////////////
// liquidity and swaps
//////////////////////////////////////////////////

func (r *runner) addLiquidity(s *StepConfig) (string, error) {
	amounts, err := r.parseCoins(s.Amounts)
	if err != nil {
		return "", err
	}
	min, err := parseLP(s.Min, uint256.NewInt(0))
	if err != nil {
		return "", err
	}
	minted, err := r.pool.AddLiquidity(r.caller(s.Caller), amounts, min)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s minted %s", s.Caller, r.lpAmount(minted)), nil
}

func (r *runner) exchange(s *StepConfig) (string, error) {
	dx, err := r.parseCoin(s.I, s.Amount)
	if err != nil {
		return "", err
	}
	min, err := r.parseCoin(s.J, s.Min)
	if err != nil {
		return "", err
	}
	dy, err := r.pool.Exchange(r.caller(s.Caller), s.I, s.J, dx, min)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s sold %s for %s", s.Caller, r.coin(s.I, dx), r.coin(s.J, dy)), nil
}

func (r *runner) removeLiquidity(s *StepConfig) (string, error) {
	amount, err := parseLP(s.Amount, nil)
	if err != nil {
		return "", err
	}
	mins, err := r.parseCoins(s.Amounts)
	if err != nil {
		return "", err
	}
	amounts, err := r.pool.RemoveLiquidity(r.caller(s.Caller), amount, mins)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s burned %s for %s", s.Caller, r.lpAmount(amount), r.coins(amounts)), nil
}

func (r *runner) removeLiquidityImbalance(s *StepConfig) (string, error) {
	amounts, err := r.parseCoins(s.Amounts)
	if err != nil {
		return "", err
	}
	max, err := parseLP(s.Max, util.MaxUint256)
	if err != nil {
		return "", err
	}
	burned, err := r.pool.RemoveLiquidityImbalance(r.caller(s.Caller), amounts, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s burned %s for %s", s.Caller, r.lpAmount(burned), r.coins(amounts)), nil
}

func (r *runner) removeLiquidityOneCoin(s *StepConfig) (string, error) {
	amount, err := parseLP(s.Amount, nil)
	if err != nil {
		return "", err
	}
	min, err := r.parseCoin(s.I, s.Min)
	if err != nil {
		return "", err
	}
	dy, err := r.pool.RemoveLiquidityOneCoin(r.caller(s.Caller), amount, s.I, min)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s burned %s for %s", s.Caller, r.lpAmount(amount), r.coin(s.I, dy)), nil
}

//////////////////////////////////////////////////
// views
//////////////////////////////////////////////////

func (r *runner) getDy(s *StepConfig) (string, error) {
	dx, err := r.parseCoin(s.I, s.Amount)
	if err != nil {
		return "", err
	}
	if err := r.index(s.J); err != nil {
		return "", err
	}
	dy, err := r.pool.GetDy(s.I, s.J, dx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s -> %s", r.coin(s.I, dx), r.coin(s.J, dy)), nil
}

func (r *runner) getVirtualPrice(s *StepConfig) (string, error) {
	vp, err := r.pool.GetVirtualPrice()
	if err != nil {
		return "", err
	}
	return util.ToDecimal(vp, 18).String(), nil
}

func (r *runner) calcTokenAmount(s *StepConfig) (string, error) {
	amounts, err := r.parseCoins(s.Amounts)
	if err != nil {
		return "", err
	}
	v, err := r.pool.CalcTokenAmount(amounts, s.Deposit)
	if err != nil {
		return "", err
	}
	return r.lpAmount(v), nil
}

func (r *runner) calcWithdrawOneCoin(s *StepConfig) (string, error) {
	amount, err := parseLP(s.Amount, nil)
	if err != nil {
		return "", err
	}
	v, err := r.pool.CalcWithdrawOneCoin(amount, s.I)
	if err != nil {
		return "", err
	}
	return r.coin(s.I, v), nil
}

//////////////////////////////////////////////////
// administration
//////////////////////////////////////////////////

func (r *runner) rampA(s *StepConfig) (string, error) {
	futureTime := r.clock.Now() + s.FutureTime
	if err := r.pool.RampA(r.caller(s.Caller), uint256.NewInt(s.FutureA), futureTime); err != nil {
		return "", err
	}
	return fmt.Sprintf("A %s -> %d at %d", r.pool.A().Dec(), s.FutureA, futureTime), nil
}

func (r *runner) stopRampA(s *StepConfig) (string, error) {
	if err := r.pool.StopRampA(r.caller(s.Caller)); err != nil {
		return "", err
	}
	return fmt.Sprintf("A %s", r.pool.A().Dec()), nil
}

func (r *runner) commitNewFee(s *StepConfig) (string, error) {
	if err := r.pool.CommitNewFee(r.caller(s.Caller), s.Fee, s.AdminFee); err != nil {
		return "", err
	}
	return fmt.Sprintf("fee %d admin fee %d after %d", s.Fee, s.AdminFee, r.pool.AdminActionsDeadline()), nil
}

func (r *runner) applyNewFee(s *StepConfig) (string, error) {
	if err := r.pool.ApplyNewFee(r.caller(s.Caller)); err != nil {
		return "", err
	}
	return fmt.Sprintf("fee %d admin fee %d", r.pool.Fee(), r.pool.AdminFee()), nil
}

func (r *runner) revertNewParameters(s *StepConfig) (string, error) {
	return "reverted", r.pool.RevertNewParameters(r.caller(s.Caller))
}

func (r *runner) commitTransferOwnership(s *StepConfig) (string, error) {
	if err := r.pool.CommitTransferOwnership(r.caller(s.Caller), accountAddress(s.NewOwner)); err != nil {
		return "", err
	}
	return fmt.Sprintf("owner %s after %d", s.NewOwner, r.pool.TransferOwnershipDeadline()), nil
}

func (r *runner) applyTransferOwnership(s *StepConfig) (string, error) {
	if err := r.pool.ApplyTransferOwnership(r.caller(s.Caller)); err != nil {
		return "", err
	}
	return fmt.Sprintf("owner %s", r.pool.Owner().Hex()), nil
}

func (r *runner) revertTransferOwnership(s *StepConfig) (string, error) {
	return "reverted", r.pool.RevertTransferOwnership(r.caller(s.Caller))
}

func (r *runner) killMe(s *StepConfig) (string, error) {
	return "killed", r.pool.KillMe(r.caller(s.Caller))
}

func (r *runner) unkillMe(s *StepConfig) (string, error) {
	return "unkilled", r.pool.UnkillMe(r.caller(s.Caller))
}

func (r *runner) withdrawAdminFees(s *StepConfig) (string, error) {
	amounts, err := r.pool.WithdrawAdminFees(r.caller(s.Caller))
	if err != nil {
		return "", err
	}
	return "withdrew " + r.coins(amounts), nil
}

func (r *runner) donateAdminFees(s *StepConfig) (string, error) {
	amounts, err := r.pool.DonateAdminFees(r.caller(s.Caller))
	if err != nil {
		return "", err
	}
	return "donated " + r.coins(amounts), nil
}

func (r *runner) advance(s *StepConfig) (string, error) {
	return fmt.Sprintf("now %d", r.clock.Advance(s.Advance)), nil
}
