package trade

import (
	"math/rand"

	"github.com/holiman/uint256"

	. "github.com/meverselabs/stableswap/contract/exchange/util"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Invariant", func() {

	amp := NewInt(100)

	It("is zero for an empty pool", func() {
		D, err := GetD(MakeSlice(3), amp)
		Expect(err).To(Succeed())
		Expect(D).To(Equal(NewInt(0)))
	})

	It("equals the sum for a balanced pool", func() {
		for _, n := range []int{2, 3, 4} {
			xp := make([]*uint256.Int, n)
			for i := range xp {
				xp[i] = e18(777)
			}
			D, err := GetD(xp, amp)
			Expect(err).To(Succeed())
			Expect(D).To(Equal(MulC(e18(777), uint64(n))))
		}
	})

	It("stays between the product and the sum", func() {
		xp := e18s(1000, 2000, 5000)
		D, err := GetD(xp, amp)
		Expect(err).To(Succeed())
		Expect(D.Lt(Sum(xp))).To(BeTrue())
		Expect(D.Gt(e18(3 * 2000))).To(BeTrue())
	})

	It("fails when one coin is empty", func() {
		_, err := GetD([]*uint256.Int{NewInt(0), e18(1), e18(1)}, amp)
		Expect(err).To(MatchError(ErrDivisionByZero))
		Expect(KindOf(err)).To(Equal(ArithmeticFailure))
	})

	It("is monotonic in every balance", func() {
		rnd := rand.New(rand.NewSource(GinkgoRandomSeed()))
		for k := 0; k < 100; k++ {
			xp := randomBalances(rnd, 3)
			D, err := GetD(xp, amp)
			Expect(err).To(Succeed())

			i := rnd.Intn(3)
			more := CloneSlice(xp)
			more[i] = Add(more[i], NewInt(uint64(rnd.Int63())+1))
			D2, err := GetD(more, amp)
			Expect(err).To(Succeed())
			Expect(D2.Lt(D)).To(BeFalse())
		}
	})

	It("round trips through y and y_D", func() {
		rnd := rand.New(rand.NewSource(GinkgoRandomSeed()))
		for k := 0; k < 100; k++ {
			xp := randomBalances(rnd, 3)
			a := NewInt(uint64([]int{1, 10, 100, 1000}[rnd.Intn(4)]))
			i := rnd.Intn(3)
			j := (i + 1) % 3

			y, err := GetY(i, j, xp[i], xp, a)
			Expect(err).To(Succeed())
			Expect(AbsDiff(y, xp[j]).CmpUint64(10) <= 0).To(BeTrue())

			D, err := GetD(xp, a)
			Expect(err).To(Succeed())
			yd, err := GetYD(a, i, xp, D)
			Expect(err).To(Succeed())
			Expect(AbsDiff(yd, xp[i]).CmpUint64(10) <= 0).To(BeTrue())
		}
	})

	It("moves y against x", func() {
		xp := e18s(1000000, 1000000, 1000000)
		y, err := GetY(0, 1, e18(1001000), xp, amp)
		Expect(err).To(Succeed())
		Expect(y.Lt(xp[1])).To(BeTrue())
		Expect(Sub(xp[1], y).Lt(e18(1000))).To(BeTrue())
	})

	DescribeTable("rejects bad indices",
		func(in, out int, target error) {
			_, err := GetY(in, out, e18(1), e18s(1, 1, 1), amp)
			Expect(err).To(MatchError(target))
		},
		Entry("same coin", 0, 0, ErrSameCoin),
		Entry("out of range", 0, 3, ErrOut),
		Entry("in out of range", 3, 0, ErrIn),
	)

	It("rejects a bad y_D index", func() {
		_, err := GetYD(amp, 3, e18s(1, 1, 1), e18(3))
		Expect(err).To(MatchError(ErrIdx))
	})
})

var _ = Describe("AmplificationState", func() {
	It("is constant without a ramp", func() {
		a := NewAmplificationState(NewInt(100))
		Expect(a.Ramping(startTime)).To(BeFalse())
		A, err := a.EffectiveA(startTime)
		Expect(err).To(Succeed())
		Expect(A).To(Equal(NewInt(100)))
	})

	It("never moves below the start of a ramp", func() {
		a := AmplificationState{
			InitialA:    NewInt(100),
			FutureA:     NewInt(200),
			InitialTime: 1000,
			FutureTime:  2000,
		}
		for _, now := range []uint64{0, 999, 1000} {
			A, err := a.EffectiveA(now)
			Expect(err).To(Succeed())
			Expect(A).To(Equal(NewInt(100)))
		}
		A, err := a.EffectiveA(1500)
		Expect(err).To(Succeed())
		Expect(A).To(Equal(NewInt(150)))
	})

	It("clones deeply", func() {
		a := NewAmplificationState(NewInt(100))
		b := a.Clone()
		b.FutureA.SetUint64(7)
		Expect(a.FutureA).To(Equal(NewInt(100)))
	})
})
