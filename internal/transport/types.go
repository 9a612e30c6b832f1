// internal/transport/types.go
package transport

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

// ActionKind names one atomic sub-action inside an effect.
type ActionKind string

const (
	ActionMint          ActionKind = "mint"
	ActionBurn          ActionKind = "burn"
	ActionTransfer      ActionKind = "transfer"
	ActionCreateAccount ActionKind = "create_account"
)

// Action is a single mint, burn, transfer or account-create addressed to
// specific identities. Lamports and Tokens are raw fixed-point amounts in
// the smallest unit.
type Action struct {
	Kind        ActionKind
	Source      solana.PublicKey
	Destination solana.PublicKey
	Mint        solana.PublicKey
	Lamports    uint64
	Tokens      uint64
}

// Effect is an ordered list of actions the ledger wants applied as a unit.
// Ref is the idempotency reference: an adapter must apply a given reference
// at most once on the backing ledger. A timed-out submission is
// failed-unconfirmed; retrying requires a fresh effect with a fresh Ref.
type Effect struct {
	Ref     uuid.UUID
	Actions []Action
}

// NewEffect assigns a fresh idempotency reference to the given actions.
func NewEffect(actions ...Action) *Effect {
	return &Effect{Ref: uuid.New(), Actions: actions}
}

// Confirmation identifies a successfully applied effect on the backing
// ledger.
type Confirmation struct {
	Signature string
	Slot      uint64
}

// AccountInfo is the narrow account view the settlement core needs before
// composing certain effects.
type AccountInfo struct {
	Lamports uint64
	Owner    solana.PublicKey
	Exists   bool
}

// Adapter submits composed effects to the backing ledger and answers
// account queries. Implementations guarantee at-most-once application per
// effect reference.
type Adapter interface {
	Submit(ctx context.Context, effect *Effect) (Confirmation, error)
	QueryAccount(ctx context.Context, account solana.PublicKey) (*AccountInfo, error)
}
