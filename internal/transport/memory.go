// internal/transport/memory.go
package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/waifuai/solana-ico/internal/errs"
)

// Memory is an in-process adapter backing the local ledger mode and the
// test suite. It tracks applied effect references so a resubmitted effect
// is applied at most once, and keeps simple lamport balances per account so
// transfers are observable.
type Memory struct {
	mu       sync.Mutex
	applied  map[uuid.UUID]Confirmation
	balances map[solana.PublicKey]uint64
	slot     uint64

	// failWith, when set, makes every Submit fail without applying
	// anything. Tests use it to exercise the no-partial-commit path.
	failWith error
}

// NewMemory creates an empty in-memory adapter.
func NewMemory() *Memory {
	return &Memory{
		applied:  make(map[uuid.UUID]Confirmation),
		balances: make(map[solana.PublicKey]uint64),
	}
}

// FailWith makes subsequent submissions fail with err; pass nil to restore
// normal behaviour.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Fund credits an account so transfer actions can debit it.
func (m *Memory) Fund(account solana.PublicKey, lamports uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[account] += lamports
}

// Balance returns the tracked lamport balance of an account.
func (m *Memory) Balance(account solana.PublicKey) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account]
}

// Applied reports whether an effect reference has been applied.
func (m *Memory) Applied(ref uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.applied[ref]
	return ok
}

// Submit applies the effect's actions to the in-memory balances. Transfers
// debit the source only when it holds a tracked balance; mint, burn and
// account-create touch no lamport balances here.
func (m *Memory) Submit(ctx context.Context, effect *Effect) (Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return Confirmation{}, errs.E(errs.KindTransport, "memory.submit", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return Confirmation{}, errs.E(errs.KindTransport, "memory.submit", m.failWith)
	}
	if conf, ok := m.applied[effect.Ref]; ok {
		// At-most-once: the reference was already applied.
		return conf, nil
	}

	for _, action := range effect.Actions {
		switch action.Kind {
		case ActionTransfer:
			if have, tracked := m.balances[action.Source]; tracked && have >= action.Lamports {
				m.balances[action.Source] = have - action.Lamports
			}
			m.balances[action.Destination] += action.Lamports
		case ActionCreateAccount:
			if _, ok := m.balances[action.Destination]; !ok {
				m.balances[action.Destination] = 0
			}
		case ActionMint, ActionBurn:
			// Token supply is the ledger's own state; nothing to track here.
		default:
			return Confirmation{}, errs.E(errs.KindTransport, "memory.submit",
				fmt.Errorf("unsupported action kind %q", action.Kind))
		}
	}

	m.slot++
	conf := Confirmation{
		Signature: fmt.Sprintf("memory-%s", effect.Ref),
		Slot:      m.slot,
	}
	m.applied[effect.Ref] = conf
	return conf, nil
}

// QueryAccount reports the tracked balance of an account.
func (m *Memory) QueryAccount(ctx context.Context, account solana.PublicKey) (*AccountInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.E(errs.KindTransport, "memory.query_account", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	lamports, ok := m.balances[account]
	if !ok {
		return nil, errs.E(errs.KindNotFound, "memory.query_account", errs.ErrAccountNotFound)
	}
	return &AccountInfo{Lamports: lamports, Exists: true}, nil
}
