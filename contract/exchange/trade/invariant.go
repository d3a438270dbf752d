package trade

import (
	"github.com/holiman/uint256"

	. "github.com/meverselabs/stableswap/contract/exchange/util"
)

// GetD computes the StableSwap invariant for the normalized balances xp
// and amplification amp.
//
// D invariant calculation in non-overflowing integer operations
// iteratively
// A * sum(x_i) * n**n + D = A * D * n**n + D**(n+1) / (n**n * prod(x_i))
// Converging solution:
// D[j+1] = (A * n**n * sum(x_i) - D[j]**(n+1) / (n**n prod(x_i))) / (A * n**n - 1)
func GetD(xp []*uint256.Int, amp *uint256.Int) (_ *uint256.Int, err error) {
	defer Catch(&err)
	return getD(xp, amp)
}

func getD(xp []*uint256.Int, amp *uint256.Int) (*uint256.Int, error) {
	N := uint64(len(xp))

	S := Sum(xp)
	if S.IsZero() {
		return NewInt(0), nil
	}

	Dprev := NewInt(0)
	D := Clone(S)
	Ann := MulC(amp, N)

	for k := 0; k < maxIterations; k++ {
		// If division by 0, this will be borked: only withdrawal will work. And that is good
		D_P := Clone(D)
		for _, x := range xp {
			D_P = MulDiv(D_P, D, MulC(x, N))
		}
		Dprev.Set(D)
		D = MulDiv(
			Add(Mul(Ann, S), MulC(D_P, N)),
			D,
			Add(Mul(SubC(Ann, 1), D), MulC(D_P, N+1)))

		// Equality with the precision of 1
		if AbsDiff(D, Dprev).Cmp(One) <= 0 {
			return D, nil
		}
	}
	// convergence typically occurs in 4 rounds or less, this should be unreachable!
	// if it does happen the pool is borked and LPs can withdraw via `RemoveLiquidity`
	return nil, ErrDNotConverged
}

// GetY calculates xp[out] if one makes xp[in] = x, holding D constant.
//
// Done by solving quadratic equation iteratively.
// x_1**2 + x_1 * (sum' - (A*n**n - 1) * D / (A * n**n)) = D ** (n + 1) / (n ** (2 * n) * prod' * A)
// x_1**2 + b*x_1 = c
// x_1 = (x_1**2 + c) / (2*x_1 + b)
func GetY(in, out int, x *uint256.Int, xp []*uint256.Int, amp *uint256.Int) (_ *uint256.Int, err error) {
	defer Catch(&err)
	return getY(in, out, x, xp, amp)
}

func getY(in, out int, x *uint256.Int, xp []*uint256.Int, amp *uint256.Int) (*uint256.Int, error) {
	N := len(xp)
	// x in the input is converted to the same price/precision
	if in == out {
		return nil, ErrSameCoin
	}
	if out < 0 || out >= N {
		return nil, ErrOut
	}
	// should be unreachable, but good for safety
	if in < 0 || in >= N {
		return nil, ErrIn
	}

	D, err := getD(xp, amp)
	if err != nil {
		return nil, err
	}
	n := uint64(N)
	Ann := MulC(amp, n)
	c := Clone(D)
	S := NewInt(0)

	for k := 0; k < N; k++ {
		var _x *uint256.Int
		if k == in {
			_x = x
		} else if k != out {
			_x = xp[k]
		} else {
			continue
		}
		S = Add(S, _x)
		c = MulDiv(c, D, MulC(_x, n))
	}
	c = MulDiv(c, D, MulC(Ann, n))
	b := Add(S, Div(D, Ann))
	return solveForBalance(b, c, D)
}

// GetYD calculates xp[idx] if one reduces D from being calculated for xp
// to D. Same quadratic as GetY, with every other balance held fixed.
func GetYD(amp *uint256.Int, idx int, xp []*uint256.Int, D *uint256.Int) (_ *uint256.Int, err error) {
	defer Catch(&err)
	return getYD(amp, idx, xp, D)
}

func getYD(amp *uint256.Int, idx int, xp []*uint256.Int, D *uint256.Int) (*uint256.Int, error) {
	N := len(xp)
	if idx < 0 || idx >= N {
		return nil, ErrIdx
	}

	n := uint64(N)
	Ann := MulC(amp, n)
	c := Clone(D)
	S := NewInt(0)

	for k := 0; k < N; k++ {
		if k == idx {
			continue
		}
		S = Add(S, xp[k])
		c = MulDiv(c, D, MulC(xp[k], n))
	}
	c = MulDiv(c, D, MulC(Ann, n))
	b := Add(S, Div(D, Ann))
	return solveForBalance(b, c, D)
}

// solveForBalance runs y = (y**2 + c) / (2*y + b - D) from y = D until two
// successive values differ by at most 1.
func solveForBalance(b, c, D *uint256.Int) (*uint256.Int, error) {
	y := Clone(D)
	yPrev := NewInt(0)
	for k := 0; k < maxIterations; k++ {
		yPrev.Set(y)
		y = Div(Add(Mul(y, y), c), Sub(Add(MulC(y, 2), b), D))
		// Equality with the precision of 1
		if AbsDiff(y, yPrev).Cmp(One) <= 0 {
			return y, nil
		}
	}
	return nil, ErrYNotConverged
}
