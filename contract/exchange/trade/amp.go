package trade

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	. "github.com/meverselabs/stableswap/contract/exchange/util"
)

// AmplificationState describes a linear ramp of A from InitialA at
// InitialTime to FutureA at FutureTime. A constant A has both ends equal.
type AmplificationState struct {
	InitialA    *uint256.Int
	FutureA     *uint256.Int
	InitialTime uint64
	FutureTime  uint64
}

func NewAmplificationState(amp *uint256.Int) AmplificationState {
	return AmplificationState{
		InitialA: Clone(amp),
		FutureA:  Clone(amp),
	}
}

func (a AmplificationState) Clone() AmplificationState {
	return AmplificationState{
		InitialA:    Clone(a.InitialA),
		FutureA:     Clone(a.FutureA),
		InitialTime: a.InitialTime,
		FutureTime:  a.FutureTime,
	}
}

// Ramping reports whether now is still inside the ramp window.
func (a AmplificationState) Ramping(now uint64) bool {
	return now < a.FutureTime
}

// EffectiveA handle ramping A up or down
func (a AmplificationState) EffectiveA(now uint64) (_ *uint256.Int, err error) {
	defer Catch(&err)
	return a.effectiveA(now), nil
}

func (a AmplificationState) effectiveA(now uint64) *uint256.Int {
	t1 := a.FutureTime
	A1 := a.FutureA
	if now >= t1 {
		// when t1 == 0 or block.timestamp >= t1
		return Clone(A1)
	}

	t0 := a.InitialTime
	A0 := a.InitialA
	if now <= t0 {
		// a clock behind the ramp start holds A at its starting value
		return Clone(A0)
	}
	elapsed := NewInt(now - t0)
	window := NewInt(t1 - t0)
	if A1.Gt(A0) {
		return Add(A0, MulDiv(Sub(A1, A0), elapsed, window))
	}
	return Sub(A0, MulDiv(Sub(A0, A1), elapsed, window))
}

// rampTo validates and starts a new ramp from the current effective A.
// futureTime must be at least MIN_RAMP_TIME away and the change is bounded
// by MAX_A_CHANGE in either direction.
func (a AmplificationState) rampTo(now uint64, futureA *uint256.Int, futureTime uint64) (AmplificationState, error) {
	if now < a.InitialTime+MIN_RAMP_TIME {
		return a, ErrRampTooSoon
	}
	if futureTime < now+MIN_RAMP_TIME {
		return a, ErrRampTooShort
	}
	if futureA.IsZero() || futureA.CmpUint64(MAX_A) >= 0 {
		return a, ErrFutureA
	}

	initialA := a.effectiveA(now)
	if futureA.Lt(initialA) {
		if MulC(futureA, MAX_A_CHANGE).Lt(initialA) {
			return a, ErrFutureAChange
		}
	} else if futureA.Gt(MulC(initialA, MAX_A_CHANGE)) {
		return a, ErrFutureAChange
	}

	return AmplificationState{
		InitialA:    initialA,
		FutureA:     Clone(futureA),
		InitialTime: now,
		FutureTime:  futureTime,
	}, nil
}

// stopAt freezes A at its current effective value.
func (a AmplificationState) stopAt(now uint64) AmplificationState {
	current := a.effectiveA(now)
	return AmplificationState{
		InitialA:    current,
		FutureA:     Clone(current),
		InitialTime: now,
		FutureTime:  now,
	}
}

// RampA starts moving A towards futureA, reaching it at futureTime.
func (self *StableSwap) RampA(caller common.Address, futureA *uint256.Int, futureTime uint64) (err error) {
	tx, err := self.begin("ramp_a")
	if err != nil {
		return err
	}
	defer self.end(tx, &err)
	defer Catch(&err)

	if err := self.onlyOwner(caller); err != nil {
		return err
	}
	if futureA == nil {
		return ErrFutureA
	}
	st := tx.next
	next, err := st.Amp.rampTo(tx.now, futureA, futureTime)
	if err != nil {
		return err
	}
	st.Amp = next

	tx.emit(RampA{
		OldA:        Clone(next.InitialA),
		NewA:        Clone(next.FutureA),
		InitialTime: next.InitialTime,
		FutureTime:  next.FutureTime,
	})
	return nil
}

func (self *StableSwap) StopRampA(caller common.Address) (err error) {
	tx, err := self.begin("stop_ramp_a")
	if err != nil {
		return err
	}
	defer self.end(tx, &err)
	defer Catch(&err)

	if err := self.onlyOwner(caller); err != nil {
		return err
	}
	st := tx.next
	st.Amp = st.Amp.stopAt(tx.now)

	tx.emit(StopRampA{A: Clone(st.Amp.FutureA), T: tx.now})
	return nil
}
