package apiserver

import (
	"github.com/pkg/errors"

	"github.com/meverselabs/stableswap/contract/exchange/trade"
)

// errors
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrInvalidArgumentIndex = errors.New("invalid argument index")
	ErrInvalidArgumentType  = errors.New("invalid argument type")
	ErrInvalidMethod        = errors.New("invalid method")
	ErrExistSubName         = errors.New("exist sub name")
	ErrClosed               = errors.New("closed")
)

type codedError interface {
	error
	ErrorCode() int
	ErrorData() interface{}
}

// PoolError is a failed pool call with its error kind as data.
type PoolError struct {
	error
	kind trade.Kind
}

func NewPoolError(err error) *PoolError {
	return &PoolError{
		error: err,
		kind:  trade.KindOf(err),
	}
}

// ErrorCode is 3 like an execution revert, the kind tells the cause.
func (e *PoolError) ErrorCode() int {
	return 3
}

func (e *PoolError) ErrorData() interface{} {
	return e.kind.String()
}
