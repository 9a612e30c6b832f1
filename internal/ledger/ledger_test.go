package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waifuai/solana-ico/internal/curve"
	"github.com/waifuai/solana-ico/internal/errs"
	"github.com/waifuai/solana-ico/internal/transport"
)

func testCurveConfig() CurveConfig {
	return CurveConfig{
		Kind:           curve.KindLinear,
		BasePrice:      decimal.NewFromInt(10_000),
		ScalingFactor:  decimal.NewFromInt(1_000_000),
		TotalSupplyCap: 1_000_000_000_000_000_000,
	}
}

func newTestLedger(t *testing.T, commissionRate float64) (*Ledger, *transport.Memory) {
	t.Helper()
	mem := transport.NewMemory()
	programID := solana.NewWallet().PublicKey()
	led, err := New(mem, programID, commissionRate, zap.NewNop())
	require.NoError(t, err)
	return led, mem
}

func initializedLedger(t *testing.T, commissionRate float64, cfg CurveConfig) (*Ledger, *transport.Memory, solana.PublicKey) {
	t.Helper()
	led, mem := newTestLedger(t, commissionRate)
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	_, err := led.Initialize(context.Background(), owner, mint, cfg)
	require.NoError(t, err)
	return led, mem, owner
}

func TestNewRejectsBadCommissionRate(t *testing.T) {
	mem := transport.NewMemory()
	_, err := New(mem, solana.NewWallet().PublicKey(), -0.1, zap.NewNop())
	assert.Equal(t, errs.KindConfiguration, errs.KindOf(err))

	_, err = New(mem, solana.NewWallet().PublicKey(), 1.1, zap.NewNop())
	assert.Equal(t, errs.KindConfiguration, errs.KindOf(err))
}

func TestInitialize(t *testing.T) {
	led, mem := newTestLedger(t, 0.1)
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	settlement, err := led.Initialize(context.Background(), owner, mint, testCurveConfig())
	require.NoError(t, err)
	assert.Equal(t, KindInitialize, settlement.Kind)
	assert.False(t, settlement.State.StateAddress.IsZero())
	assert.False(t, settlement.State.EscrowAddress.IsZero())
	assert.NotEqual(t, settlement.State.StateAddress, settlement.State.EscrowAddress)
	assert.True(t, mem.Applied(settlement.Effect.Ref))

	state, err := led.State(owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), state.TokensSold)
	assert.Equal(t, uint64(0), state.EscrowBalance)
}

func TestInitializeTwiceFails(t *testing.T) {
	led, _, owner := initializedLedger(t, 0.1, testCurveConfig())

	_, err := led.Initialize(context.Background(), owner, solana.NewWallet().PublicKey(), testCurveConfig())
	assert.ErrorIs(t, err, errs.ErrAlreadyInitialized)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestInitializeRejectsBadConfig(t *testing.T) {
	led, _ := newTestLedger(t, 0.1)
	owner := solana.NewWallet().PublicKey()

	cfg := testCurveConfig()
	cfg.TotalSupplyCap = 0
	_, err := led.Initialize(context.Background(), owner, solana.NewWallet().PublicKey(), cfg)
	assert.ErrorIs(t, err, errs.ErrInvalidConfig)
	assert.Equal(t, errs.KindConfiguration, errs.KindOf(err))

	// A failed initialize must not block a later valid one.
	_, err = led.Initialize(context.Background(), owner, solana.NewWallet().PublicKey(), testCurveConfig())
	assert.NoError(t, err)
}

func TestBuy(t *testing.T) {
	led, mem, owner := initializedLedger(t, 0.1, testCurveConfig())
	buyer := solana.NewWallet().PublicKey()
	mem.Fund(buyer, 1_000_000)

	// price at zero supply is 10_000, so 100_000 lamports buys exactly 10.
	settlement, err := led.Buy(context.Background(), BuyRequest{
		Owner:     owner,
		Buyer:     buyer,
		Principal: 100_000,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(10), settlement.TokensMinted)
	assert.Equal(t, uint64(100_000), settlement.LamportsIn)
	assert.Equal(t, uint64(0), settlement.Commission)
	assert.Equal(t, uint64(10), settlement.State.TokensSold)
	assert.Equal(t, uint64(100_000), settlement.State.EscrowBalance)

	state, err := led.State(owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(900_000), mem.Balance(buyer))
	assert.Equal(t, uint64(100_000), mem.Balance(state.EscrowAddress))
}

func TestBuyPriceRisesWithSupply(t *testing.T) {
	cfg := testCurveConfig()
	cfg.ScalingFactor = decimal.NewFromInt(10)
	led, mem, owner := initializedLedger(t, 0, cfg)
	buyer := solana.NewWallet().PublicKey()
	mem.Fund(buyer, 10_000_000)

	first, err := led.Buy(context.Background(), BuyRequest{Owner: owner, Buyer: buyer, Principal: 100_000})
	require.NoError(t, err)
	assert.Equal(t, uint64(10), first.TokensMinted)

	// After 10 sold the price has doubled to 20_000; the same principal
	// buys half as many.
	second, err := led.Buy(context.Background(), BuyRequest{Owner: owner, Buyer: buyer, Principal: 100_000})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), second.TokensMinted)
}

func TestBuyWithReferrer(t *testing.T) {
	cfg := testCurveConfig()
	cfg.BasePrice = decimal.NewFromInt(100)
	led, mem, owner := initializedLedger(t, 0.1, cfg)
	buyer := solana.NewWallet().PublicKey()
	referrer := solana.NewWallet().PublicKey()
	mem.Fund(buyer, 10_000)

	settlement, err := led.Buy(context.Background(), BuyRequest{
		Owner:     owner,
		Buyer:     buyer,
		Principal: 1_000,
		Referrer:  &referrer,
	})
	require.NoError(t, err)

	// Tokens price on the full principal; the commission only reduces the
	// escrow credit.
	assert.Equal(t, uint64(10), settlement.TokensMinted)
	assert.Equal(t, uint64(100), settlement.Commission)
	assert.Equal(t, uint64(900), settlement.LamportsIn)
	assert.Equal(t, referrer, settlement.Referrer)
	assert.Equal(t, uint64(900), settlement.State.EscrowBalance)

	assert.Equal(t, uint64(100), mem.Balance(referrer))
	assert.Equal(t, referrer, mustReferrer(t, led, buyer))
}

func mustReferrer(t *testing.T, led *Ledger, buyer solana.PublicKey) solana.PublicKey {
	t.Helper()
	ref, ok := led.Referrals().ReferrerOf(buyer)
	require.True(t, ok)
	return ref
}

func TestBuyCommissionRoundsHalfDown(t *testing.T) {
	cfg := testCurveConfig()
	cfg.BasePrice = decimal.NewFromInt(1)
	led, mem, owner := initializedLedger(t, 0.1, cfg)
	buyer := solana.NewWallet().PublicKey()
	referrer := solana.NewWallet().PublicKey()
	mem.Fund(buyer, 10_000)

	// 1005 * 0.1 = 100.5 rounds down to 100.
	settlement, err := led.Buy(context.Background(), BuyRequest{
		Owner:     owner,
		Buyer:     buyer,
		Principal: 1_005,
		Referrer:  &referrer,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(100), settlement.Commission)
	assert.Equal(t, uint64(905), settlement.LamportsIn)
}

func TestBuyZeroPrincipal(t *testing.T) {
	led, _, owner := initializedLedger(t, 0.1, testCurveConfig())

	_, err := led.Buy(context.Background(), BuyRequest{Owner: owner, Buyer: solana.NewWallet().PublicKey()})
	assert.ErrorIs(t, err, errs.ErrInvalidAmount)
}

func TestBuyUnknownOwner(t *testing.T) {
	led, _ := newTestLedger(t, 0.1)

	_, err := led.Buy(context.Background(), BuyRequest{
		Owner:     solana.NewWallet().PublicKey(),
		Buyer:     solana.NewWallet().PublicKey(),
		Principal: 1_000,
	})
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestBuyExceedingSupplyCap(t *testing.T) {
	cfg := testCurveConfig()
	cfg.BasePrice = decimal.NewFromInt(100)
	cfg.TotalSupplyCap = 5
	led, mem, owner := initializedLedger(t, 0, cfg)
	buyer := solana.NewWallet().PublicKey()
	mem.Fund(buyer, 10_000)

	_, err := led.Buy(context.Background(), BuyRequest{Owner: owner, Buyer: buyer, Principal: 1_000})
	assert.ErrorIs(t, err, errs.ErrInsufficientSupply)

	// Rejection must leave everything untouched.
	state, err := led.State(owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), state.TokensSold)
	assert.Equal(t, uint64(0), state.EscrowBalance)
	assert.Equal(t, uint64(10_000), mem.Balance(buyer))
}

func TestSellRoundTrip(t *testing.T) {
	led, mem, owner := initializedLedger(t, 0, testCurveConfig())
	buyer := solana.NewWallet().PublicKey()
	mem.Fund(buyer, 1_000_000)

	bought, err := led.Buy(context.Background(), BuyRequest{Owner: owner, Buyer: buyer, Principal: 100_000})
	require.NoError(t, err)

	// Selling the whole position prices at the pre-buy supply level, so the
	// refund equals the purchase within rounding.
	sold, err := led.Sell(context.Background(), SellRequest{Owner: owner, Seller: buyer, Tokens: bought.TokensMinted})
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), sold.LamportsOut)
	assert.Equal(t, uint64(0), sold.State.TokensSold)
	assert.Equal(t, uint64(0), sold.State.EscrowBalance)
	assert.Equal(t, uint64(1_000_000), mem.Balance(buyer))
}

func TestSellMoreThanCirculation(t *testing.T) {
	led, _, owner := initializedLedger(t, 0, testCurveConfig())

	_, err := led.Sell(context.Background(), SellRequest{Owner: owner, Seller: solana.NewWallet().PublicKey(), Tokens: 1})
	assert.ErrorIs(t, err, errs.ErrInsufficientCirculation)
}

func TestSellExceedingEscrow(t *testing.T) {
	cfg := testCurveConfig()
	cfg.BasePrice = decimal.NewFromInt(100)
	led, mem, owner := initializedLedger(t, 0.5, cfg)
	buyer := solana.NewWallet().PublicKey()
	referrer := solana.NewWallet().PublicKey()
	mem.Fund(buyer, 10_000)

	// Half the principal left as commission, so the escrow cannot cover a
	// full refund.
	bought, err := led.Buy(context.Background(), BuyRequest{
		Owner:     owner,
		Buyer:     buyer,
		Principal: 1_000,
		Referrer:  &referrer,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(500), bought.State.EscrowBalance)

	_, err = led.Sell(context.Background(), SellRequest{Owner: owner, Seller: buyer, Tokens: bought.TokensMinted})
	assert.ErrorIs(t, err, errs.ErrInsufficientEscrow)

	state, err := led.State(owner)
	require.NoError(t, err)
	assert.Equal(t, bought.State.TokensSold, state.TokensSold)
	assert.Equal(t, bought.State.EscrowBalance, state.EscrowBalance)
}

func TestWithdraw(t *testing.T) {
	led, mem, owner := initializedLedger(t, 0, testCurveConfig())
	buyer := solana.NewWallet().PublicKey()
	mem.Fund(buyer, 1_000_000)

	_, err := led.Buy(context.Background(), BuyRequest{Owner: owner, Buyer: buyer, Principal: 100_000})
	require.NoError(t, err)

	settlement, err := led.Withdraw(context.Background(), WithdrawRequest{Owner: owner, Requester: owner, Amount: 40_000})
	require.NoError(t, err)
	assert.Equal(t, uint64(40_000), settlement.LamportsOut)
	assert.Equal(t, uint64(60_000), settlement.State.EscrowBalance)
	assert.Equal(t, uint64(40_000), mem.Balance(owner))
}

func TestWithdrawByNonOwner(t *testing.T) {
	led, mem, owner := initializedLedger(t, 0, testCurveConfig())
	buyer := solana.NewWallet().PublicKey()
	mem.Fund(buyer, 1_000_000)

	_, err := led.Buy(context.Background(), BuyRequest{Owner: owner, Buyer: buyer, Principal: 100_000})
	require.NoError(t, err)

	_, err = led.Withdraw(context.Background(), WithdrawRequest{
		Owner:     owner,
		Requester: solana.NewWallet().PublicKey(),
		Amount:    1,
	})
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	assert.Equal(t, errs.KindAuthorization, errs.KindOf(err))

	state, err := led.State(owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), state.EscrowBalance)
}

func TestWithdrawExceedingEscrow(t *testing.T) {
	led, _, owner := initializedLedger(t, 0, testCurveConfig())

	_, err := led.Withdraw(context.Background(), WithdrawRequest{Owner: owner, Requester: owner, Amount: 1})
	assert.ErrorIs(t, err, errs.ErrInsufficientEscrow)
}

func TestTransportFailureLeavesStateUnchanged(t *testing.T) {
	led, mem, owner := initializedLedger(t, 0, testCurveConfig())
	buyer := solana.NewWallet().PublicKey()
	mem.Fund(buyer, 1_000_000)

	mem.FailWith(errors.New("connection reset"))
	_, err := led.Buy(context.Background(), BuyRequest{Owner: owner, Buyer: buyer, Principal: 100_000})
	require.Error(t, err)
	assert.Equal(t, errs.KindTransport, errs.KindOf(err))
	assert.True(t, errs.IsRetryable(err))

	state, err := led.State(owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), state.TokensSold)
	assert.Equal(t, uint64(0), state.EscrowBalance)
	assert.Equal(t, uint64(1_000_000), mem.Balance(buyer))

	// Once the transport recovers the same request settles.
	mem.FailWith(nil)
	_, err = led.Buy(context.Background(), BuyRequest{Owner: owner, Buyer: buyer, Principal: 100_000})
	assert.NoError(t, err)
}

func TestConcurrentBuys(t *testing.T) {
	led, mem, owner := initializedLedger(t, 0, testCurveConfig())

	const buyers = 20
	const principal = 10_000 // exactly one token at the starting price

	var wg sync.WaitGroup
	errCh := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		buyer := solana.NewWallet().PublicKey()
		mem.Fund(buyer, principal)
		wg.Add(1)
		go func(buyer solana.PublicKey) {
			defer wg.Done()
			_, err := led.Buy(context.Background(), BuyRequest{Owner: owner, Buyer: buyer, Principal: principal})
			errCh <- err
		}(buyer)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	// Every purchase must have settled against a serialized supply; at the
	// gentle slope here each one mints exactly one token.
	state, err := led.State(owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(buyers), state.TokensSold)
	assert.Equal(t, uint64(buyers*principal), state.EscrowBalance)
}

func TestRestore(t *testing.T) {
	led, _ := newTestLedger(t, 0.1)
	owner := solana.NewWallet().PublicKey()

	state := IcoState{
		Owner:         owner,
		TokenMint:     solana.NewWallet().PublicKey(),
		Config:        testCurveConfig(),
		TokensSold:    42,
		EscrowBalance: 420_000,
	}
	require.NoError(t, led.Restore(state))

	got, err := led.State(owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got.TokensSold)
	assert.Equal(t, uint64(420_000), got.EscrowBalance)

	// Restoring over a live state must not clobber it.
	assert.ErrorIs(t, led.Restore(state), errs.ErrAlreadyInitialized)
}
