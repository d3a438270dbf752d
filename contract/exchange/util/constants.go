package util

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	Zero       = uint256.NewInt(0)
	One        = uint256.NewInt(1)
	MaxUint256 = new(uint256.Int).SetAllOne()

	ZeroAddress = common.Address{}
)
