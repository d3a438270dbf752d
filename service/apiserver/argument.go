package apiserver

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// Argument parses rpc arguments
type Argument struct {
	args []interface{}
}

// NewArgument returns a Argument
func NewArgument(args []interface{}) *Argument {
	arg := &Argument{
		args: args,
	}
	return arg
}

// Len returns length of arguments
func (arg *Argument) Len() int {
	return len(arg.args)
}

func (arg *Argument) get(index int) (interface{}, error) {
	if index < 0 || index >= len(arg.args) {
		return nil, errors.WithStack(ErrInvalidArgumentIndex)
	}
	a := arg.args[index]
	if a == nil {
		return nil, errors.WithStack(ErrInvalidArgumentType)
	}
	return a, nil
}

// Int returns a int value of the index
func (arg *Argument) Int(index int) (int, error) {
	a, err := arg.get(index)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(fmt.Sprintf("%v", a), 10, 32)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return int(n), nil
}

// Uint64 returns a uint64 value of the index
func (arg *Argument) Uint64(index int) (uint64, error) {
	a, err := arg.get(index)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(fmt.Sprintf("%v", a), 10, 64)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return n, nil
}

// Bool returns a bool value of the index
func (arg *Argument) Bool(index int) (bool, error) {
	a, err := arg.get(index)
	if err != nil {
		return false, err
	}
	b, is := a.(bool)
	if !is {
		return false, errors.WithStack(ErrInvalidArgumentType)
	}
	return b, nil
}

// String returns a string value of the index
func (arg *Argument) String(index int) (string, error) {
	a, err := arg.get(index)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%v", a), nil
}

// Amount returns a base unit integer of the index, given as a decimal
// string or a json number
func (arg *Argument) Amount(index int) (*uint256.Int, error) {
	s, err := arg.String(index)
	if err != nil {
		return nil, err
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidArgument, "amount %q", s)
	}
	return v, nil
}

// Amounts returns a list of base unit integers of the index
func (arg *Argument) Amounts(index int) ([]*uint256.Int, error) {
	list, err := arg.Array(index)
	if err != nil {
		return nil, err
	}
	sub := NewArgument(list)
	result := make([]*uint256.Int, len(list))
	for i := range list {
		if result[i], err = sub.Amount(i); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Address returns a hex address of the index
func (arg *Argument) Address(index int) (common.Address, error) {
	s, err := arg.String(index)
	if err != nil {
		return common.Address{}, err
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Wrapf(ErrInvalidArgument, "address %q", s)
	}
	return common.HexToAddress(s), nil
}

// Array returns a list value of the index
func (arg *Argument) Array(index int) ([]interface{}, error) {
	a, err := arg.get(index)
	if err != nil {
		return nil, err
	}
	switch reflect.TypeOf(a).Kind() {
	case reflect.Slice:
		s := reflect.ValueOf(a)

		r := []interface{}{}
		for i := 0; i < s.Len(); i++ {
			r = append(r, s.Index(i).Interface())
		}
		return r, nil
	}
	return nil, errors.WithStack(ErrInvalidArgumentType)
}
