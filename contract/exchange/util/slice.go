package util

import (
	"github.com/holiman/uint256"
)

func MakeSlice(size int) []*uint256.Int {
	result := make([]*uint256.Int, size)
	for i := 0; i < size; i++ {
		result[i] = uint256.NewInt(0)
	}
	return result
}
func CloneSlice(input []*uint256.Int) []*uint256.Int {
	result := make([]*uint256.Int, len(input))
	for i := range input {
		result[i] = new(uint256.Int).Set(input[i])
	}
	return result
}
func SliceOf(values ...uint64) []*uint256.Int {
	result := make([]*uint256.Int, len(values))
	for i, v := range values {
		result[i] = uint256.NewInt(v)
	}
	return result
}
func SliceString(input []*uint256.Int) []string {
	result := make([]string, len(input))
	for i := range input {
		result[i] = input[i].Dec()
	}
	return result
}
