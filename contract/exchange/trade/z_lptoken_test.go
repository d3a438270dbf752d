package trade

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	. "github.com/meverselabs/stableswap/contract/exchange/util"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LPToken", func() {

	var (
		token *LPToken

		_TOTAL_SUPPLY = e18(10000)
		_TEST_AMOUNT  = NewInt(12345678)
	)

	BeforeEach(func() {
		token = NewLPToken("Curve.fi DAI/USDC/USDT", "3Crv")
		Expect(token.Mint(alice, _TOTAL_SUPPLY)).To(Succeed())
	})

	Describe("Mint", func() {
		It("test_assumptions", func() {
			Expect(token.TotalSupply()).To(Equal(token.BalanceOf(alice)))
			Expect(token.BalanceOf(bob)).To(Equal(NewInt(0)))
			Expect(token.Decimals()).To(Equal(18))
			Expect(token.Symbol()).To(Equal("3Crv"))
		})

		It("test_mint_affects_balance", func() {
			Expect(token.Mint(bob, _TEST_AMOUNT)).To(Succeed())
			Expect(token.BalanceOf(bob)).To(Equal(_TEST_AMOUNT))
		})

		It("test_mint_affects_totalSupply", func() {
			Expect(token.Mint(bob, _TEST_AMOUNT)).To(Succeed())
			Expect(token.TotalSupply()).To(Equal(Add(_TOTAL_SUPPLY, _TEST_AMOUNT)))
		})

		It("test_mint_overflow", func() {
			err := token.Mint(bob, MaxUint256)
			Expect(err).To(MatchError(ErrAddOverflow))
			Expect(token.TotalSupply()).To(Equal(_TOTAL_SUPPLY))
			Expect(token.BalanceOf(bob)).To(Equal(NewInt(0)))
		})

		It("test_mint_zero_address", func() {
			Expect(token.Mint(ZeroAddress, _TEST_AMOUNT)).To(MatchError("LPToken: MINT_TO_ZEROADDRESS"))
		})
	})

	Describe("Burn", func() {
		It("test_burn_affects_totalSupply", func() {
			Expect(token.Burn(alice, _TEST_AMOUNT)).To(Succeed())
			Expect(token.TotalSupply()).To(Equal(Sub(_TOTAL_SUPPLY, _TEST_AMOUNT)))
			Expect(token.BalanceOf(alice)).To(Equal(Sub(_TOTAL_SUPPLY, _TEST_AMOUNT)))
		})

		It("test_burn_underflow", func() {
			Expect(token.Burn(bob, _TEST_AMOUNT)).To(MatchError("LPToken: BURN_EXCEED_BALANCE"))
			Expect(token.TotalSupply()).To(Equal(_TOTAL_SUPPLY))
		})

		It("test_burn_everything", func() {
			Expect(token.Burn(alice, _TOTAL_SUPPLY)).To(Succeed())
			Expect(token.TotalSupply()).To(Equal(NewInt(0)))
			Expect(token.State().Balances).To(BeEmpty())
		})
	})

	Describe("Transfer", func() {
		It("test_transfer", func() {
			Expect(token.Transfer(alice, bob, _TEST_AMOUNT)).To(Succeed())
			Expect(token.BalanceOf(bob)).To(Equal(_TEST_AMOUNT))
			Expect(token.BalanceOf(alice)).To(Equal(Sub(_TOTAL_SUPPLY, _TEST_AMOUNT)))
			Expect(token.TotalSupply()).To(Equal(_TOTAL_SUPPLY))
		})

		It("test_transfer_exceeds_balance", func() {
			Expect(token.Transfer(bob, alice, NewInt(1))).To(MatchError("LPToken: TRANSFER_EXCEED_BALANCE"))
		})

		It("test_transfer_zero_address", func() {
			Expect(token.Transfer(alice, ZeroAddress, NewInt(1))).To(MatchError("LPToken: TRANSFER_TO_ZEROADDRESS"))
		})

		It("test_transferFrom_without_approval", func() {
			Expect(token.TransferFrom(bob, alice, bob, NewInt(1))).To(MatchError("LPToken: TRANSFER_EXCEED_ALLOWANCE"))
		})

		It("test_transferFrom_spends_allowance", func() {
			Expect(token.Approve(alice, bob, _TEST_AMOUNT)).To(Succeed())
			Expect(token.TransferFrom(bob, alice, charlie, NewInt(8))).To(Succeed())
			Expect(token.Allowance(alice, bob)).To(Equal(SubC(_TEST_AMOUNT, 8)))
			Expect(token.BalanceOf(charlie)).To(Equal(NewInt(8)))
		})

		It("test_transferFrom_infinite_allowance", func() {
			Expect(token.Approve(alice, bob, MaxUint256)).To(Succeed())
			Expect(token.TransferFrom(bob, alice, charlie, _TEST_AMOUNT)).To(Succeed())
			Expect(token.Allowance(alice, bob)).To(Equal(MaxUint256))
		})

		It("test_allowance_changes", func() {
			Expect(token.IncreaseAllowance(alice, bob, NewInt(10))).To(Succeed())
			Expect(token.IncreaseAllowance(alice, bob, NewInt(5))).To(Succeed())
			Expect(token.Allowance(alice, bob)).To(Equal(NewInt(15)))
			Expect(token.DecreaseAllowance(alice, bob, NewInt(16))).To(MatchError("LPToken: DECREASED_ALLOWANCE_BELOW_ZERO"))
			Expect(token.DecreaseAllowance(alice, bob, NewInt(15))).To(Succeed())
			Expect(token.Allowance(alice, bob)).To(Equal(NewInt(0)))
			Expect(token.Approve(ZeroAddress, bob, NewInt(1))).To(MatchError("LPToken: APPROVE_FROM_ZEROADDRESS"))
		})
	})

	Describe("State", func() {
		It("test_restore", func() {
			Expect(token.Transfer(alice, bob, _TEST_AMOUNT)).To(Succeed())
			Expect(token.Approve(bob, charlie, NewInt(7))).To(Succeed())

			restored, err := RestoreLPToken(token.State())
			Expect(err).To(Succeed())
			Expect(restored.State()).To(Equal(token.State()))
			Expect(restored.Allowance(bob, charlie)).To(Equal(NewInt(7)))
		})

		It("test_restore_mismatch", func() {
			s := token.State()
			s.TotalSupply = AddC(s.TotalSupply, 1)
			_, err := RestoreLPToken(s)
			Expect(err).To(MatchError("LPToken: SUPPLY_MISMATCH"))
		})
	})
})

var _ = Describe("Token", func() {

	var token *Token

	BeforeEach(func() {
		token = NewToken(accountAddress("usdt"), "USDT", 6, 10)
		Expect(token.Mint(alice, NewInt(1000000))).To(Succeed())
	})

	It("test_rate", func() {
		Expect(token.Rate()).To(Equal(dec("1000000000000000000000000000000")))
		Expect(NewToken(accountAddress("dai"), "DAI", 18, 0).Rate()).To(Equal(NewInt(PRECISION)))
	})

	It("test_transfer_fee_is_burned", func() {
		Expect(token.Transfer(alice, bob, NewInt(10000))).To(Succeed())
		Expect(token.BalanceOf(bob)).To(Equal(NewInt(9990)))
		Expect(token.BalanceOf(alice)).To(Equal(NewInt(990000)))
		Expect(token.TotalSupply()).To(Equal(NewInt(999990)))
	})

	It("test_transferFrom_restores_allowance_on_failure", func() {
		token.Approve(alice, bob, NewInt(2000000))
		Expect(token.TransferFrom(bob, alice, bob, NewInt(1500000))).To(MatchError("USDT: TRANSFER_EXCEED_BALANCE"))
		Expect(token.Allowance(alice, bob)).To(Equal(NewInt(2000000)))
	})

	It("test_bound_coin_reverts_exactly", func() {
		token.Approve(alice, poolAddr, NewInt(50000))
		coin := token.Bind(poolAddr)
		Expect(coin.TransferFrom(alice, NewInt(10000))).To(Succeed())
		held, err := coin.BalanceOf(poolAddr)
		Expect(err).To(Succeed())
		Expect(held).To(Equal(NewInt(9990)))

		r, ok := coin.(Reverter)
		Expect(ok).To(BeTrue())
		Expect(r.RevertTransferFrom(alice, NewInt(10000))).To(Succeed())
		Expect(token.BalanceOf(alice)).To(Equal(NewInt(1000000)))
		Expect(token.BalanceOf(poolAddr)).To(Equal(NewInt(0)))
		Expect(token.TotalSupply()).To(Equal(NewInt(1000000)))
		Expect(token.Allowance(alice, poolAddr)).To(Equal(NewInt(50000)))
	})

	It("test_notifies_outside_the_lock", func() {
		var seen *uint256.Int
		token.OnTransfer = func(from, to common.Address, amount *uint256.Int) {
			seen = token.BalanceOf(to)
		}
		Expect(token.Transfer(alice, bob, NewInt(10000))).To(Succeed())
		Expect(seen).To(Equal(NewInt(9990)))
	})
})
