package ledger

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferralBookLastWriteWins(t *testing.T) {
	book := NewReferralBook()
	buyer := solana.NewWallet().PublicKey()
	first := solana.NewWallet().PublicKey()
	second := solana.NewWallet().PublicKey()

	_, ok := book.ReferrerOf(buyer)
	assert.False(t, ok)

	book.Record(buyer, first)
	book.Record(buyer, second)

	got, ok := book.ReferrerOf(buyer)
	require.True(t, ok)
	assert.Equal(t, second, got)
	assert.Equal(t, 1, book.Len())
}
