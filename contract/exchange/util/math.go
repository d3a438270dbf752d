package util

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// ArithmeticError is raised by the checked helpers of this package when a
// result does not fit in 256 bits, would be negative, or divides by zero.
type ArithmeticError struct {
	Op string
}

func (e *ArithmeticError) Error() string {
	return "Exchange: " + e.Op
}

var (
	ErrAddOverflow    = &ArithmeticError{Op: "ADD_OVERFLOW"}
	ErrSubUnderflow   = &ArithmeticError{Op: "SUB_UNDERFLOW"}
	ErrMulOverflow    = &ArithmeticError{Op: "MUL_OVERFLOW"}
	ErrDivisionByZero = &ArithmeticError{Op: "DIVISION_BY_ZERO"}
)

// Catch turns an arithmetic fault raised by the helpers below into *err.
// It must be deferred directly by the function whose result it sets:
//
//	func f() (_ *uint256.Int, err error) {
//		defer Catch(&err)
//		...
//	}
//
// Any other panic is propagated untouched.
func Catch(err *error) {
	if r := recover(); r != nil {
		ae, ok := r.(*ArithmeticError)
		if !ok {
			panic(r)
		}
		*err = errors.WithStack(ae)
	}
}

func NewInt(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}
func IsPlus(a *uint256.Int) bool {
	return !a.IsZero()
}
func Clone(a *uint256.Int) *uint256.Int {
	return new(uint256.Int).Set(a)
}
func Min(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a
	}
	return b
}

// AbsDiff returns |a - b| without going through a signed value.
func AbsDiff(a, b *uint256.Int) *uint256.Int {
	if a.Gt(b) {
		return new(uint256.Int).Sub(a, b)
	}
	return new(uint256.Int).Sub(b, a)
}
func Add(a, b *uint256.Int) *uint256.Int {
	z, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		panic(ErrAddOverflow)
	}
	return z
}
func Sub(a, b *uint256.Int) *uint256.Int {
	z, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		panic(ErrSubUnderflow)
	}
	return z
}
func Mul(a, b *uint256.Int) *uint256.Int {
	z, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		panic(ErrMulOverflow)
	}
	return z
}
func Div(a, b *uint256.Int) *uint256.Int {
	if b.IsZero() {
		panic(ErrDivisionByZero)
	}
	return new(uint256.Int).Div(a, b)
}
func AddC(a *uint256.Int, b uint64) *uint256.Int {
	return Add(a, uint256.NewInt(b))
}
func SubC(a *uint256.Int, b uint64) *uint256.Int {
	return Sub(a, uint256.NewInt(b))
}
func MulC(a *uint256.Int, b uint64) *uint256.Int {
	return Mul(a, uint256.NewInt(b))
}
func DivC(a *uint256.Int, b uint64) *uint256.Int {
	return Div(a, uint256.NewInt(b))
}

// MulDiv computes a * b / denominator. The product is checked on its own,
// there is no 512-bit intermediate.
func MulDiv(a, b, denominator *uint256.Int) *uint256.Int {
	return Div(Mul(a, b), denominator)
}
func MulDivC(a, b *uint256.Int, denominator uint64) *uint256.Int {
	return DivC(Mul(a, b), denominator)
}
func MulDivCC(a *uint256.Int, b, denominator uint64) *uint256.Int {
	return DivC(MulC(a, b), denominator)
}
func Sum(a []*uint256.Int) *uint256.Int {
	result := uint256.NewInt(0)
	for i := 0; i < len(a); i++ {
		result = Add(result, a[i])
	}
	return result
}

// Pow10 returns 10**a; a above 77 does not fit and overflows.
func Pow10(a int) *uint256.Int {
	if a < 0 || a > 77 {
		panic(ErrMulOverflow)
	}
	result := uint256.NewInt(1)
	for i := 0; i < a; i++ {
		result = MulC(result, 10)
	}
	return result
}
