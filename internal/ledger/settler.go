// internal/ledger/settler.go
package ledger

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/waifuai/solana-ico/internal/transport"
)

// Settlement is the committed outcome of one mutating operation: the
// post-commit state, the effect that was applied and its confirmation,
// plus the amounts that moved.
type Settlement struct {
	Kind         string
	State        IcoState
	Effect       *transport.Effect
	Confirmation transport.Confirmation

	TokensMinted uint64
	TokensBurned uint64
	LamportsIn   uint64 // credited to escrow
	LamportsOut  uint64 // paid out of escrow
	Commission   uint64 // diverted to the referrer
	Counterparty solana.PublicKey
	Referrer     solana.PublicKey
}

// Settler is the settlement interface the decorators wrap. The concrete
// *Ledger implements it; logging and journaling compose around it.
type Settler interface {
	Initialize(ctx context.Context, owner, tokenMint solana.PublicKey, cfg CurveConfig) (Settlement, error)
	Buy(ctx context.Context, req BuyRequest) (Settlement, error)
	Sell(ctx context.Context, req SellRequest) (Settlement, error)
	Withdraw(ctx context.Context, req WithdrawRequest) (Settlement, error)
	State(owner solana.PublicKey) (IcoState, error)
}

// Operation kinds recorded in settlements and the journal.
const (
	KindInitialize = "initialize"
	KindBuy        = "buy"
	KindSell       = "sell"
	KindWithdraw   = "withdraw"
)
