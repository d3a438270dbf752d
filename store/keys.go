package store

import (
	"encoding/binary"
)

// tags
const (
	tagOwner = byte(0x00)

	// LPToken
	tagTokenName        = byte(0x01)
	tagTokenSymbol      = byte(0x02)
	tagTokenTotalSupply = byte(0x03)
	tagTokenAmount      = byte(0x04)
	tagTokenApprove     = byte(0x05)

	// Exchange
	tagExNTokens               = byte(0x23)
	tagExFee                   = byte(0x27)
	tagExAdminFee              = byte(0x28)
	tagExAdminActionsDeadline  = byte(0x32)
	tagExFutureFee             = byte(0x33)
	tagExFutureAdminFee        = byte(0x34)
	tagExTransferOwnerDeadline = byte(0x36)
	tagExFutureOwner           = byte(0x37)
	tagExIsKilled              = byte(0x42)
	tagExKillDeadline          = byte(0x44)
	tagExVolume                = byte(0x45)
	tagExClock                 = byte(0x46)

	// StableSwap
	tagStableReserves       = byte(0x83)
	tagStableInitialAmp     = byte(0x84)
	tagStableFutureAmp      = byte(0x85)
	tagStableInitialAmpTime = byte(0x86)
	tagStableFutureAmpTime  = byte(0x87)
)

// makeKey is len(name) || name || tag || suffix... so that no name is a
// prefix of another one's keys.
func makeKey(name string, tag byte, suffix ...[]byte) []byte {
	size := 2 + len(name)
	for _, s := range suffix {
		size += len(s)
	}
	bs := make([]byte, 0, size)
	bs = append(bs, byte(len(name)))
	bs = append(bs, name...)
	bs = append(bs, tag)
	for _, s := range suffix {
		bs = append(bs, s...)
	}
	return bs
}

func uint64Bytes(v uint64) []byte {
	bs := make([]byte, 8)
	binary.BigEndian.PutUint64(bs, v)
	return bs
}

func boolBytes(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}
