// internal/resource/registry.go
package resource

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/waifuai/solana-ico/internal/errs"
	"github.com/waifuai/solana-ico/internal/pda"
	"github.com/waifuai/solana-ico/internal/transport"
)

// Record gates one off-chain resource behind an exact lamport fee. Address
// is the program-derived location keyed by (program, owner, resource id).
type Record struct {
	Owner      solana.PublicKey
	ResourceID string
	AccessFee  uint64
	Address    solana.PublicKey
}

// Grant proves one confirmed pay-per-access payment. Access is pay-per-call:
// holding a grant conveys nothing about future calls.
type Grant struct {
	ResourceID   string
	Payer        solana.PublicKey
	Amount       uint64
	Confirmation transport.Confirmation
}

type recordKey struct {
	owner solana.PublicKey
	id    string
}

// Registry owns the resource records and settles access payments through
// the transport. Mutations on one record serialize behind the registry
// lock; reads settle against whatever fee was committed last.
type Registry struct {
	adapter   transport.Adapter
	programID solana.PublicKey
	logger    *zap.Logger

	mu      sync.RWMutex
	records map[recordKey]*Record
}

// NewRegistry creates an empty registry settling through adapter.
func NewRegistry(adapter transport.Adapter, programID solana.PublicKey, logger *zap.Logger) *Registry {
	return &Registry{
		adapter:   adapter,
		programID: programID,
		logger:    logger.Named("resource"),
		records:   make(map[recordKey]*Record),
	}
}

// CreateOrUpdate upserts the fee for (owner, resourceID). The record
// account is created at its derived address on first registration; fee
// changes are local upserts. accessFee is validated as a signed quantity so
// a negative fee from the CLI surface is rejected rather than wrapped.
func (r *Registry) CreateOrUpdate(ctx context.Context, owner solana.PublicKey, resourceID string, accessFee int64) (Record, error) {
	const op = "resource.create_or_update"

	if resourceID == "" {
		return Record{}, errs.Validation(op, fmt.Errorf("resource id must not be empty"))
	}
	if accessFee < 0 {
		return Record{}, errs.Validation(op, errs.ErrInvalidAmount)
	}

	addr, _, err := pda.ResourceState(owner, resourceID, r.programID)
	if err != nil {
		return Record{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := recordKey{owner: owner, id: resourceID}
	existing, exists := r.records[key]
	if !exists {
		effect := transport.NewEffect(transport.Action{
			Kind:        transport.ActionCreateAccount,
			Destination: addr,
		})
		if _, err := r.adapter.Submit(ctx, effect); err != nil {
			return Record{}, r.transportErr(op, err)
		}
	}

	record := &Record{
		Owner:      owner,
		ResourceID: resourceID,
		AccessFee:  uint64(accessFee),
		Address:    addr,
	}
	r.records[key] = record

	if exists {
		r.logger.Info("Resource fee updated",
			zap.String("resource_id", resourceID),
			zap.Uint64("old_fee", existing.AccessFee),
			zap.Uint64("access_fee", record.AccessFee))
	} else {
		r.logger.Info("Resource registered",
			zap.String("resource_id", resourceID),
			zap.String("owner", owner.String()),
			zap.String("address", addr.String()),
			zap.Uint64("access_fee", record.AccessFee))
	}
	return *record, nil
}

// Access settles a pay-per-call payment for (owner, resourceID). The paid
// amount must equal the recorded fee exactly; overpayment and underpayment
// are both rejected, mirroring the settlement's strict-equality design.
func (r *Registry) Access(ctx context.Context, resourceID string, owner, payer solana.PublicKey, amount uint64) (Grant, error) {
	const op = "resource.access"

	r.mu.RLock()
	record, ok := r.records[recordKey{owner: owner, id: resourceID}]
	r.mu.RUnlock()
	if !ok {
		return Grant{}, errs.E(errs.KindNotFound, op, errs.ErrResourceNotFound)
	}

	if amount != record.AccessFee {
		return Grant{}, errs.Validation(op, errs.ErrFeeMismatch)
	}

	effect := transport.NewEffect(transport.Action{
		Kind:        transport.ActionTransfer,
		Source:      payer,
		Destination: record.Owner,
		Lamports:    amount,
	})
	conf, err := r.adapter.Submit(ctx, effect)
	if err != nil {
		return Grant{}, r.transportErr(op, err)
	}

	r.logger.Info("Resource access granted",
		zap.String("resource_id", resourceID),
		zap.String("payer", payer.String()),
		zap.Uint64("amount", amount),
		zap.String("signature", conf.Signature))

	return Grant{
		ResourceID:   resourceID,
		Payer:        payer,
		Amount:       amount,
		Confirmation: conf,
	}, nil
}

// Lookup returns the record for (owner, resourceID), if registered.
func (r *Registry) Lookup(owner solana.PublicKey, resourceID string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[recordKey{owner: owner, id: resourceID}]
	if !ok {
		return Record{}, false
	}
	return *record, true
}

// Restore seeds a record from persisted state without touching the
// transport.
func (r *Registry) Restore(record Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := record
	r.records[recordKey{owner: record.Owner, id: record.ResourceID}] = &rec
}

func (r *Registry) transportErr(op string, err error) error {
	if errs.KindOf(err) != "" {
		return err
	}
	return errs.E(errs.KindTransport, op, err)
}
