package ledger

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waifuai/solana-ico/internal/storage/sqlite"
	"github.com/waifuai/solana-ico/internal/transport"
)

func TestJournalRecordsSettlements(t *testing.T) {
	store, err := sqlite.NewStore(":memory:", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.RunMigrations())
	t.Cleanup(func() { _ = store.Close() })

	mem := transport.NewMemory()
	led, err := New(mem, solana.NewWallet().PublicKey(), 0.1, zap.NewNop())
	require.NoError(t, err)
	settler := WithJournal(WithLogging(led, zap.NewNop()), store, zap.NewNop())

	owner := solana.NewWallet().PublicKey()
	buyer := solana.NewWallet().PublicKey()
	referrer := solana.NewWallet().PublicKey()
	mem.Fund(buyer, 1_000_000)

	_, err = settler.Initialize(context.Background(), owner, solana.NewWallet().PublicKey(), testCurveConfig())
	require.NoError(t, err)

	bought, err := settler.Buy(context.Background(), BuyRequest{
		Owner:     owner,
		Buyer:     buyer,
		Principal: 100_000,
		Referrer:  &referrer,
	})
	require.NoError(t, err)

	settlements, err := store.ListSettlements(context.Background(), owner.String(), 10)
	require.NoError(t, err)
	require.Len(t, settlements, 2)

	var sawBuy bool
	for _, s := range settlements {
		if s.Kind != KindBuy {
			continue
		}
		sawBuy = true
		assert.Equal(t, bought.Confirmation.Signature, s.Signature)
		assert.Equal(t, buyer.String(), s.Counterparty)
		assert.Equal(t, referrer.String(), s.Referrer)
		assert.Equal(t, bought.Commission, s.Commission)
		assert.Equal(t, bought.TokensMinted, s.Tokens)
	}
	assert.True(t, sawBuy)

	// The state snapshot tracks the latest commit.
	snapshot, err := store.LoadIcoState(context.Background(), owner.String())
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, bought.State.TokensSold, snapshot.TokensSold)
	assert.Equal(t, bought.State.EscrowBalance, snapshot.EscrowBalance)
	assert.Equal(t, bought.State.StateAddress.String(), snapshot.Address)
}

func TestJournalSkipsRejectedOperations(t *testing.T) {
	store, err := sqlite.NewStore(":memory:", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.RunMigrations())
	t.Cleanup(func() { _ = store.Close() })

	mem := transport.NewMemory()
	led, err := New(mem, solana.NewWallet().PublicKey(), 0.1, zap.NewNop())
	require.NoError(t, err)
	settler := WithJournal(led, store, zap.NewNop())

	owner := solana.NewWallet().PublicKey()
	_, err = settler.Buy(context.Background(), BuyRequest{
		Owner:     owner,
		Buyer:     solana.NewWallet().PublicKey(),
		Principal: 1_000,
	})
	require.Error(t, err)

	settlements, err := store.ListSettlements(context.Background(), owner.String(), 10)
	require.NoError(t, err)
	assert.Empty(t, settlements)
}
