package trade

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	. "github.com/meverselabs/stableswap/contract/exchange/util"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("StableSwap", func() {

	var f *fixture

	Describe("construction", func() {
		It("rejects bad parameters", func() {
			f = newFixture(defaultConfig())
			base := StableSwapConstruction{
				Address:  poolAddr,
				Coins:    f.pool.Coins(),
				Tokens:   []Coin{f.tokens[0].Bind(poolAddr), f.tokens[1].Bind(poolAddr), f.tokens[2].Bind(poolAddr)},
				Rates:    f.pool.Rates(),
				FeeIndex: NoFeeIndex,
				Amp:      NewInt(100),
				Owner:    owner,
				Ledger:   NewLPToken("lp", "LP"),
			}
			_, err := NewStableSwap(base)
			Expect(err).To(Succeed())

			c := base
			c.Coins = c.Coins[:1]
			_, err = NewStableSwap(c)
			Expect(err).To(MatchError(ErrTokenNumber))

			c = base
			c.Rates = c.Rates[:2]
			_, err = NewStableSwap(c)
			Expect(err).To(MatchError(ErrLength))

			c = base
			c.Coins = []common.Address{c.Coins[0], c.Coins[0], c.Coins[2]}
			_, err = NewStableSwap(c)
			Expect(err).To(MatchError(ErrDuplicateCoin))

			c = base
			c.Owner = ZeroAddress
			_, err = NewStableSwap(c)
			Expect(err).To(MatchError(ErrZeroAddress))

			c = base
			c.Amp = NewInt(MAX_A)
			_, err = NewStableSwap(c)
			Expect(err).To(MatchError(ErrAmp))

			c = base
			c.Fee = MAX_FEE + 1
			_, err = NewStableSwap(c)
			Expect(err).To(MatchError(ErrFeeExceed))

			c = base
			c.FeeIndex = 3
			_, err = NewStableSwap(c)
			Expect(err).To(MatchError(ErrFeeIndex))

			c = base
			c.Ledger = nil
			_, err = NewStableSwap(c)
			Expect(err).To(MatchError(ErrNoLedger))
			Expect(KindOf(err)).To(Equal(PreconditionViolation))
		})

		It("derives precisions from rates", func() {
			cfg := defaultConfig()
			cfg.decimals = []uint8{18, 6, 6}
			f = newFixture(cfg)
			Expect(f.pool.PrecisionMul()).To(Equal([]*uint256.Int{NewInt(1), NewInt(1000000000000), NewInt(1000000000000)}))
			Expect(f.pool.KillDeadline()).To(Equal(uint64(startTime + KILL_DEADLINE_DT)))
		})
	})

	Describe("add_liquidity", func() {
		BeforeEach(func() {
			f = newFixture(defaultConfig())
		})

		It("scenario B: the first deposit mints exactly D1", func() {
			mint, err := f.pool.AddLiquidity(alice, e18s(500, 500, 500), NewInt(0))
			Expect(err).To(Succeed())
			Expect(mint).To(Equal(e18(1500)))

			D, err := f.pool.GetD()
			Expect(err).To(Succeed())
			Expect(mint).To(Equal(D))
			Expect(f.lp.BalanceOf(alice)).To(Equal(mint))
			Expect(f.pool.Balances()).To(Equal(e18s(500, 500, 500)))
			Expect(f.rec.Last()).To(Equal(AddLiquidity{
				Provider:     alice,
				TokenAmounts: e18s(500, 500, 500),
				Fees:         MakeSlice(3),
				Invariant:    e18(1500),
				TokenSupply:  e18(1500),
			}))
		})

		It("requires every coin on the first deposit and refunds what was pulled", func() {
			before := f.holdings(alice)
			_, err := f.pool.AddLiquidity(alice, e18s(500, 0, 500), NewInt(0))
			Expect(err).To(MatchError(ErrInitialDeposit))
			Expect(f.holdings(alice)).To(Equal(before))
			Expect(f.pool.Balances()).To(Equal(MakeSlice(3)))
			Expect(f.pool.TotalSupply()).To(Equal(NewInt(0)))
			Expect(f.rec.Events()).To(BeEmpty())
		})

		It("charges a fee on an imbalanced deposit", func() {
			f.seed(1000000)
			mint, err := f.pool.AddLiquidity(bob, e18s(1000, 0, 0), NewInt(0))
			Expect(err).To(Succeed())
			Expect(mint).To(Equal(dec("998496705209986613907")))
			Expect(f.pool.Balances()).To(Equal([]*uint256.Int{
				dec("1000999624999381531539559"),
				dec("999999812500618468460442"),
				dec("999999812500618468460442"),
			}))
			adminFee, err := f.pool.AdminBalances(0)
			Expect(err).To(Succeed())
			Expect(adminFee).To(Equal(dec("375000618468460441")))

			estimate, err := f.pool.CalcTokenAmount(e18s(1000, 0, 0), true)
			Expect(err).To(Succeed())
			Expect(estimate.Gt(mint)).To(BeTrue())
		})

		It("reverts below the minimum mint and keeps the depositor whole", func() {
			f.seed(1000000)
			before := f.holdings(bob)
			supply := f.pool.TotalSupply()
			_, err := f.pool.AddLiquidity(bob, e18s(1000, 1000, 1000), e18(3001))
			Expect(err).To(MatchError(ErrSlippage))
			Expect(KindOf(err)).To(Equal(SlippageViolation))
			Expect(f.holdings(bob)).To(Equal(before))
			Expect(f.pool.TotalSupply()).To(Equal(supply))
			Expect(f.lp.BalanceOf(bob)).To(Equal(NewInt(0)))
		})

		It("rejects a wrong number of amounts", func() {
			_, err := f.pool.AddLiquidity(alice, e18s(1, 1), NewInt(0))
			Expect(err).To(MatchError(ErrLength))
		})
	})

	Describe("exchange", func() {
		BeforeEach(func() {
			f = newFixture(defaultConfig())
			f.seed(1000000)
		})

		It("scenario A: swaps near 1:1 less the fee and matches GetDy", func() {
			dx := e18(1000)
			quote, err := f.pool.GetDy(0, 1, dx)
			Expect(err).To(Succeed())

			before := f.holdings(bob)
			dy, err := f.pool.Exchange(bob, 0, 1, dx, NewInt(0))
			Expect(err).To(Succeed())
			Expect(dy).To(Equal(quote))
			Expect(dy).To(Equal(dec("996990128800929329844")))
			Expect(dy.Lt(dx)).To(BeTrue())
			Expect(dy.Gt(e18(996))).To(BeTrue())

			after := f.holdings(bob)
			Expect(Sub(before[0], after[0])).To(Equal(dx))
			Expect(Sub(after[1], before[1])).To(Equal(dy))

			Expect(f.pool.Balances()).To(Equal([]*uint256.Int{
				e18(1001000),
				dec("999001509886050423334154"),
				e18(1000000),
			}))
			adminFee, err := f.pool.AdminBalances(1)
			Expect(err).To(Succeed())
			Expect(adminFee).To(Equal(dec("1499985148647336002")))
			Expect(f.pool.Volume()).To(Equal(dx))

			Expect(f.rec.Last()).To(Equal(TokenExchange{
				Buyer:        bob,
				SoldID:       0,
				TokensSold:   dx,
				BoughtID:     1,
				TokensBought: dy,
			}))
		})

		It("moves balances in opposite directions", func() {
			for _, pair := range [][2]int{{0, 1}, {1, 2}, {2, 0}, {1, 0}} {
				before := f.pool.Balances()
				_, err := f.pool.Exchange(bob, pair[0], pair[1], e18(12345), NewInt(0))
				Expect(err).To(Succeed())
				after := f.pool.Balances()
				Expect(after[pair[0]].Gt(before[pair[0]])).To(BeTrue())
				Expect(after[pair[1]].Lt(before[pair[1]])).To(BeTrue())
			}
		})

		It("grows the virtual price", func() {
			price, err := f.pool.GetVirtualPrice()
			Expect(err).To(Succeed())
			Expect(price).To(Equal(e18(1)))

			_, err = f.pool.Exchange(bob, 0, 1, e18(1000), NewInt(0))
			Expect(err).To(Succeed())
			price, err = f.pool.GetVirtualPrice()
			Expect(err).To(Succeed())
			Expect(price).To(Equal(dec("1000000500000000792")))
		})

		DescribeTable("rejects bad pairs",
			func(in, out int, target error) {
				_, err := f.pool.Exchange(bob, in, out, e18(1), NewInt(0))
				Expect(err).To(MatchError(target))
				_, err = f.pool.GetDy(in, out, e18(1))
				Expect(err).To(MatchError(target))
			},
			Entry("same coin", 1, 1, ErrSameCoin),
			Entry("in out of range", 3, 1, ErrIn),
			Entry("negative in", -1, 1, ErrIn),
			Entry("out of range", 0, 3, ErrOut),
		)

		It("rejects an empty input", func() {
			_, err := f.pool.Exchange(bob, 0, 1, NewInt(0), NewInt(0))
			Expect(err).To(MatchError(ErrInsufficientInput))
		})

		It("refunds dx when the output is below min_dy", func() {
			quote, err := f.pool.GetDy(0, 1, e18(1000))
			Expect(err).To(Succeed())
			before := f.holdings(bob)
			balances := f.pool.Balances()
			events := len(f.rec.Events())

			_, err = f.pool.Exchange(bob, 0, 1, e18(1000), AddC(quote, 1))
			Expect(err).To(MatchError(ErrSlippage))
			Expect(f.holdings(bob)).To(Equal(before))
			Expect(f.pool.Balances()).To(Equal(balances))
			Expect(f.rec.Events()).To(HaveLen(events))
			Expect(f.pool.Volume()).To(Equal(NewInt(0)))
		})

		It("fails on overflow instead of wrapping and leaves the pool untouched", func() {
			huge := new(uint256.Int).Lsh(NewInt(1), 200)
			Expect(f.tokens[0].Mint(bob, huge)).To(Succeed())
			before := f.holdings(bob)
			balances := f.pool.Balances()

			_, err := f.pool.GetDy(0, 1, huge)
			Expect(KindOf(err)).To(Equal(ArithmeticFailure))

			_, err = f.pool.Exchange(bob, 0, 1, huge, NewInt(0))
			Expect(KindOf(err)).To(Equal(ArithmeticFailure))
			Expect(f.holdings(bob)).To(Equal(before))
			Expect(f.pool.Balances()).To(Equal(balances))

			_, err = f.pool.Exchange(bob, 0, 1, e18(1), NewInt(0))
			Expect(err).To(Succeed())
		})
	})

	Describe("remove_liquidity", func() {
		BeforeEach(func() {
			f = newFixture(defaultConfig())
			f.seed(1000000)
		})

		It("round trips a balanced deposit", func() {
			before := f.holdings(bob)
			mint, err := f.pool.AddLiquidity(bob, e18s(1000, 1000, 1000), NewInt(0))
			Expect(err).To(Succeed())
			Expect(mint).To(Equal(e18(3000)))

			amounts, err := f.pool.RemoveLiquidity(bob, mint, MakeSlice(3))
			Expect(err).To(Succeed())
			Expect(amounts).To(Equal(e18s(1000, 1000, 1000)))
			Expect(f.holdings(bob)).To(Equal(before))
			Expect(f.lp.BalanceOf(bob)).To(Equal(NewInt(0)))
			Expect(f.rec.Last()).To(Equal(RemoveLiquidity{
				Provider:     bob,
				TokenAmounts: e18s(1000, 1000, 1000),
				Fees:         MakeSlice(3),
				TokenSupply:  e18(3000000),
			}))
		})

		It("checks every minimum", func() {
			_, err := f.pool.RemoveLiquidity(alice, e18(3000), e18s(1000, 1001, 1000))
			Expect(err).To(MatchError(ErrSlippage))
			Expect(f.pool.TotalSupply()).To(Equal(e18(3000000)))
		})

		It("cannot burn more than the holder has", func() {
			_, err := f.pool.RemoveLiquidity(bob, e18(1), MakeSlice(3))
			Expect(KindOf(err)).To(Equal(ExternalFailure))
			Expect(f.pool.Balances()).To(Equal(e18s(1000000, 1000000, 1000000)))
		})

		It("undoes the burn and earlier payments when a payment fails", func() {
			cfg := defaultConfig()
			var broken *failingCoin
			cfg.wrap = func(i int, c Coin) Coin {
				if i != 2 {
					return c
				}
				broken = &failingCoin{Coin: c}
				return broken
			}
			f = newFixture(cfg)
			f.seed(1000000)
			broken.fail = true

			before := f.holdings(alice)
			share := f.lp.BalanceOf(alice)
			_, err := f.pool.RemoveLiquidity(alice, e18(3000), MakeSlice(3))
			Expect(KindOf(err)).To(Equal(ExternalFailure))
			Expect(f.holdings(alice)).To(Equal(before))
			Expect(f.lp.BalanceOf(alice)).To(Equal(share))
			Expect(f.pool.Balances()).To(Equal(e18s(1000000, 1000000, 1000000)))
		})
	})

	Describe("remove_liquidity_imbalance", func() {
		BeforeEach(func() {
			f = newFixture(defaultConfig())
			f.seed(1000000)
		})

		It("burns for exact amounts", func() {
			burn, err := f.pool.RemoveLiquidityImbalance(alice, e18s(100, 0, 0), e18(101))
			Expect(err).To(Succeed())
			Expect(burn).To(Equal(dec("100150033042271368584")))
			Expect(f.pool.TotalSupply()).To(Equal(dec("2999899849966957728631416")))
			Expect(f.pool.Balances()).To(Equal([]*uint256.Int{
				dec("999899962500006188462633"),
				dec("999999981249993811537368"),
				dec("999999981249993811537368"),
			}))
			event := f.rec.Last().(RemoveLiquidityImbalance)
			Expect(event.Fees).To(Equal([]*uint256.Int{
				dec("74999987623074734"),
				dec("37500012376925265"),
				dec("37500012376925265"),
			}))
		})

		It("respects the maximum burn", func() {
			before := f.holdings(alice)
			_, err := f.pool.RemoveLiquidityImbalance(alice, e18s(100, 0, 0), e18(100))
			Expect(err).To(MatchError(ErrSlippage))
			Expect(f.holdings(alice)).To(Equal(before))
			Expect(f.pool.TotalSupply()).To(Equal(e18(3000000)))
		})

		It("rejects a withdrawal that burns nothing", func() {
			_, err := f.pool.RemoveLiquidityImbalance(alice, MakeSlice(3), e18(1))
			Expect(err).To(MatchError(ErrZeroBurn))
		})
	})

	Describe("remove_liquidity_one_coin", func() {
		BeforeEach(func() {
			f = newFixture(defaultConfig())
			f.seed(1000000)
		})

		It("pays what CalcWithdrawOneCoin quotes", func() {
			quote, err := f.pool.CalcWithdrawOneCoin(e18(1000), 0)
			Expect(err).To(Succeed())
			Expect(quote).To(Equal(dec("998496708997678907593")))

			before := f.holdings(alice)
			dy, err := f.pool.RemoveLiquidityOneCoin(alice, e18(1000), 0, NewInt(0))
			Expect(err).To(Succeed())
			Expect(dy).To(Equal(quote))
			Expect(Sub(f.holdings(alice)[0], before[0])).To(Equal(dy))
			Expect(f.pool.Balances()[0]).To(Equal(dec("999000753296572999768247")))
			Expect(f.pool.TotalSupply()).To(Equal(e18(2999000)))
		})

		It("respects the minimum", func() {
			_, err := f.pool.RemoveLiquidityOneCoin(alice, e18(1000), 0, e18(999))
			Expect(err).To(MatchError(ErrSlippage))
			Expect(f.pool.TotalSupply()).To(Equal(e18(3000000)))
		})

		It("rejects a bad index", func() {
			_, err := f.pool.RemoveLiquidityOneCoin(alice, e18(1), 3, NewInt(0))
			Expect(err).To(MatchError(ErrIdx))
		})
	})

	Describe("views", func() {
		BeforeEach(func() {
			f = newFixture(defaultConfig())
		})

		It("has no invariant while empty", func() {
			D, err := f.pool.GetD()
			Expect(err).To(Succeed())
			Expect(D).To(Equal(NewInt(0)))

			mint, err := f.pool.CalcTokenAmount(e18s(500, 500, 500), true)
			Expect(err).To(Succeed())
			Expect(mint).To(Equal(e18(1500)))
		})

		It("estimates balanced deposits and withdrawals exactly", func() {
			f.seed(1000000)
			mint, err := f.pool.CalcTokenAmount(e18s(1000, 1000, 1000), true)
			Expect(err).To(Succeed())
			Expect(mint).To(Equal(e18(3000)))
			burn, err := f.pool.CalcTokenAmount(e18s(1000, 1000, 1000), false)
			Expect(err).To(Succeed())
			Expect(burn).To(Equal(e18(3000)))
		})
	})

	Describe("fee on transfer coin", func() {
		BeforeEach(func() {
			cfg := defaultConfig()
			cfg.feeBps = []uint64{0, 0, 10}
			cfg.feeIndex = 2
			f = newFixture(cfg)
			f.seed(1000000)
		})

		It("tracks what actually arrived", func() {
			Expect(f.pool.Balances()).To(Equal(e18s(1000000, 1000000, 999000)))
			adminFee, err := f.pool.AdminBalances(2)
			Expect(err).To(Succeed())
			Expect(adminFee).To(Equal(NewInt(0)))

			quote, err := f.pool.GetDy(2, 0, e18(999))
			Expect(err).To(Succeed())
			dy, err := f.pool.Exchange(bob, 2, 0, e18(1000), NewInt(0))
			Expect(err).To(Succeed())
			Expect(dy).To(Equal(quote))
			Expect(f.pool.Balances()[2]).To(Equal(e18(999999)))
			Expect(f.pool.Volume()).To(Equal(e18(999)))
		})

		It("restores the depositor exactly on abort", func() {
			before := f.holdings(bob)
			supply := f.tokens[2].TotalSupply()
			_, err := f.pool.AddLiquidity(bob, e18s(1000, 1000, 1000), e18(4000))
			Expect(err).To(MatchError(ErrSlippage))
			Expect(f.holdings(bob)).To(Equal(before))
			Expect(f.tokens[2].TotalSupply()).To(Equal(supply))
			Expect(f.tokens[2].Allowance(bob, poolAddr)).To(Equal(MaxUint256))
		})
	})

	Describe("reentrancy", func() {
		BeforeEach(func() {
			f = newFixture(defaultConfig())
			f.seed(1000000)
		})

		It("refuses a nested operation and shows observers the committed state", func() {
			priceBefore, err := f.pool.GetVirtualPrice()
			Expect(err).To(Succeed())

			var nested error
			var observed *uint256.Int
			f.tokens[1].OnTransfer = func(from, to common.Address, amount *uint256.Int) {
				if from == poolAddr && to == bob {
					_, nested = f.pool.Exchange(bob, 0, 1, e18(1), NewInt(0))
					observed, _ = f.pool.GetVirtualPrice()
				}
			}
			_, err = f.pool.Exchange(bob, 0, 1, e18(1000), NewInt(0))
			Expect(err).To(Succeed())
			Expect(nested).To(MatchError(ErrReentrancy))
			Expect(KindOf(nested)).To(Equal(ReentrancyViolation))
			Expect(observed).To(Equal(priceBefore))

			f.tokens[1].OnTransfer = nil
			_, err = f.pool.Exchange(bob, 0, 1, e18(1000), NewInt(0))
			Expect(err).To(Succeed())
		})

		It("shows observers the committed supply during a withdrawal", func() {
			priceBefore, err := f.pool.GetVirtualPrice()
			Expect(err).To(Succeed())
			supplyBefore := f.pool.TotalSupply()

			var price, supply *uint256.Int
			f.tokens[0].OnTransfer = func(from, to common.Address, amount *uint256.Int) {
				if from == poolAddr {
					price, _ = f.pool.GetVirtualPrice()
					supply = f.pool.TotalSupply()
				}
			}
			_, err = f.pool.RemoveLiquidity(alice, e18(1500000), MakeSlice(3))
			Expect(err).To(Succeed())
			Expect(price).To(Equal(priceBefore))
			Expect(supply).To(Equal(supplyBefore))
			Expect(f.pool.TotalSupply()).To(Equal(e18(1500000)))
		})

		It("shows observers the committed admin balances while coins arrive", func() {
			var admin *uint256.Int
			f.tokens[0].OnTransfer = func(from, to common.Address, amount *uint256.Int) {
				if to == poolAddr {
					admin, _ = f.pool.AdminBalances(0)
				}
			}
			_, err := f.pool.Exchange(bob, 0, 1, e18(1000), NewInt(0))
			Expect(err).To(Succeed())
			Expect(admin).To(Equal(NewInt(0)))
			Expect(f.pool.AdminBalances(0)).To(Equal(NewInt(0)))
			Expect(f.pool.AdminBalances(1)).NotTo(Equal(NewInt(0)))
		})

		It("keeps the guard out of callers' reach", func() {
			_, isLocker := interface{}(f.pool).(sync.Locker)
			Expect(isLocker).To(BeFalse())
		})

		It("releases the guard after a failure", func() {
			_, err := f.pool.Exchange(bob, 0, 0, e18(1), NewInt(0))
			Expect(err).To(HaveOccurred())
			_, err = f.pool.Exchange(bob, 0, 1, e18(1), NewInt(0))
			Expect(err).To(Succeed())
		})
	})
})

var _ = Describe("Restore", func() {

	var f *fixture

	BeforeEach(func() {
		f = newFixture(defaultConfig())
		f.seed(1000000)
		_, err := f.pool.Exchange(bob, 0, 1, e18(1000), NewInt(0))
		Expect(err).To(Succeed())
	})

	It("reads the supply from the ledger and the admin part from the coins", func() {
		restored, err := RestoreStableSwap(f.construction, f.pool.State())
		Expect(err).To(Succeed())
		Expect(restored.TotalSupply()).To(Equal(f.lp.TotalSupply()))
		Expect(restored.Balances()).To(Equal(f.pool.Balances()))
		want, err := f.pool.AdminBalances(1)
		Expect(err).To(Succeed())
		Expect(restored.AdminBalances(1)).To(Equal(want))
	})

	It("rejects a ramp that starts after the clock", func() {
		state := f.pool.State()
		state.Amp = AmplificationState{
			InitialA:    NewInt(100),
			FutureA:     NewInt(200),
			InitialTime: startTime + 1,
			FutureTime:  startTime + 2*86400,
		}
		_, err := RestoreStableSwap(f.construction, state)
		Expect(err).To(MatchError(ErrRampTime))
		Expect(KindOf(err)).To(Equal(GovernanceConstraintViolation))
	})
})
