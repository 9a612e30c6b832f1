package resource

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waifuai/solana-ico/internal/errs"
	"github.com/waifuai/solana-ico/internal/transport"
)

func newTestRegistry(t *testing.T) (*Registry, *transport.Memory) {
	t.Helper()
	mem := transport.NewMemory()
	return NewRegistry(mem, solana.NewWallet().PublicKey(), zap.NewNop()), mem
}

func TestCreateOrUpdate(t *testing.T) {
	reg, _ := newTestRegistry(t)
	owner := solana.NewWallet().PublicKey()

	record, err := reg.CreateOrUpdate(context.Background(), owner, "premium-api", 500)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), record.AccessFee)
	assert.False(t, record.Address.IsZero())

	// The derived address is stable across updates.
	updated, err := reg.CreateOrUpdate(context.Background(), owner, "premium-api", 750)
	require.NoError(t, err)
	assert.Equal(t, uint64(750), updated.AccessFee)
	assert.Equal(t, record.Address, updated.Address)

	got, ok := reg.Lookup(owner, "premium-api")
	require.True(t, ok)
	assert.Equal(t, uint64(750), got.AccessFee)
}

func TestCreateOrUpdateRejectsNegativeFee(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.CreateOrUpdate(context.Background(), solana.NewWallet().PublicKey(), "premium-api", -1)
	assert.ErrorIs(t, err, errs.ErrInvalidAmount)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestCreateOrUpdateAllowsZeroFee(t *testing.T) {
	reg, _ := newTestRegistry(t)
	owner := solana.NewWallet().PublicKey()

	record, err := reg.CreateOrUpdate(context.Background(), owner, "free-tier", 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), record.AccessFee)

	// A zero fee still requires an exact zero payment.
	payer := solana.NewWallet().PublicKey()
	_, err = reg.Access(context.Background(), "free-tier", owner, payer, 0)
	assert.NoError(t, err)
	_, err = reg.Access(context.Background(), "free-tier", owner, payer, 1)
	assert.ErrorIs(t, err, errs.ErrFeeMismatch)
}

func TestAccessExactFee(t *testing.T) {
	reg, mem := newTestRegistry(t)
	owner := solana.NewWallet().PublicKey()
	payer := solana.NewWallet().PublicKey()
	mem.Fund(payer, 10_000)

	_, err := reg.CreateOrUpdate(context.Background(), owner, "premium-api", 500)
	require.NoError(t, err)

	grant, err := reg.Access(context.Background(), "premium-api", owner, payer, 500)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), grant.Amount)
	assert.NotEmpty(t, grant.Confirmation.Signature)
	assert.Equal(t, uint64(9_500), mem.Balance(payer))
	assert.Equal(t, uint64(500), mem.Balance(owner))
}

func TestAccessFeeMismatch(t *testing.T) {
	reg, mem := newTestRegistry(t)
	owner := solana.NewWallet().PublicKey()
	payer := solana.NewWallet().PublicKey()
	mem.Fund(payer, 10_000)

	_, err := reg.CreateOrUpdate(context.Background(), owner, "premium-api", 500)
	require.NoError(t, err)

	// Underpayment and overpayment both fail, one lamport either way.
	for _, amount := range []uint64{499, 501} {
		_, err := reg.Access(context.Background(), "premium-api", owner, payer, amount)
		assert.ErrorIs(t, err, errs.ErrFeeMismatch, "amount %d", amount)
		assert.Equal(t, errs.KindValidation, errs.KindOf(err))
	}

	// Nothing moved.
	assert.Equal(t, uint64(10_000), mem.Balance(payer))
	assert.Equal(t, uint64(0), mem.Balance(owner))
}

func TestAccessUnknownResource(t *testing.T) {
	reg, _ := newTestRegistry(t)

	_, err := reg.Access(context.Background(), "no-such-resource",
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 100)
	assert.ErrorIs(t, err, errs.ErrResourceNotFound)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestRestore(t *testing.T) {
	reg, mem := newTestRegistry(t)
	owner := solana.NewWallet().PublicKey()
	payer := solana.NewWallet().PublicKey()
	mem.Fund(payer, 1_000)

	reg.Restore(Record{
		Owner:      owner,
		ResourceID: "premium-api",
		AccessFee:  250,
		Address:    solana.NewWallet().PublicKey(),
	})

	_, err := reg.Access(context.Background(), "premium-api", owner, payer, 250)
	assert.NoError(t, err)
}
