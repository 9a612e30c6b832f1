// internal/ledger/journal.go
package ledger

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/waifuai/solana-ico/internal/storage"
)

// journalSettler persists every committed settlement and a fresh state
// snapshot. Journal writes happen after the commit; a write failure is
// logged but never unwinds a confirmed settlement.
type journalSettler struct {
	next   Settler
	store  storage.Store
	logger *zap.Logger
}

// WithJournal decorates s with settlement journaling into store.
func WithJournal(s Settler, store storage.Store, logger *zap.Logger) Settler {
	return &journalSettler{next: s, store: store, logger: logger.Named("journal")}
}

func (j *journalSettler) Initialize(ctx context.Context, owner, tokenMint solana.PublicKey, cfg CurveConfig) (Settlement, error) {
	settlement, err := j.next.Initialize(ctx, owner, tokenMint, cfg)
	if err == nil {
		j.record(ctx, settlement)
	}
	return settlement, err
}

func (j *journalSettler) Buy(ctx context.Context, req BuyRequest) (Settlement, error) {
	settlement, err := j.next.Buy(ctx, req)
	if err == nil {
		j.record(ctx, settlement)
	}
	return settlement, err
}

func (j *journalSettler) Sell(ctx context.Context, req SellRequest) (Settlement, error) {
	settlement, err := j.next.Sell(ctx, req)
	if err == nil {
		j.record(ctx, settlement)
	}
	return settlement, err
}

func (j *journalSettler) Withdraw(ctx context.Context, req WithdrawRequest) (Settlement, error) {
	settlement, err := j.next.Withdraw(ctx, req)
	if err == nil {
		j.record(ctx, settlement)
	}
	return settlement, err
}

func (j *journalSettler) State(owner solana.PublicKey) (IcoState, error) {
	return j.next.State(owner)
}

func (j *journalSettler) record(ctx context.Context, s Settlement) {
	rec := &storage.Settlement{
		Signature:     s.Confirmation.Signature,
		Owner:         s.State.Owner.String(),
		Kind:          s.Kind,
		Counterparty:  s.Counterparty.String(),
		Lamports:      s.LamportsIn + s.LamportsOut,
		Commission:    s.Commission,
		Tokens:        s.TokensMinted + s.TokensBurned,
		TokensSold:    s.State.TokensSold,
		EscrowBalance: s.State.EscrowBalance,
	}
	if !s.Referrer.IsZero() {
		rec.Referrer = s.Referrer.String()
	}
	if err := j.store.SaveSettlement(ctx, rec); err != nil {
		j.logger.Warn("Failed to journal settlement",
			zap.String("signature", s.Confirmation.Signature),
			zap.Error(err))
	}

	snapshot := &storage.IcoStateRecord{
		Owner:         s.State.Owner.String(),
		Address:       s.State.StateAddress.String(),
		TokenMint:     s.State.TokenMint.String(),
		CurveKind:     string(s.State.Config.Kind),
		BasePrice:     s.State.Config.BasePrice.String(),
		ScalingFactor: s.State.Config.ScalingFactor.String(),
		SupplyCap:     s.State.Config.TotalSupplyCap,
		TokensSold:    s.State.TokensSold,
		EscrowBalance: s.State.EscrowBalance,
	}
	if err := j.store.SaveIcoState(ctx, snapshot); err != nil {
		j.logger.Warn("Failed to snapshot ico state",
			zap.String("owner", snapshot.Owner),
			zap.Error(err))
	}
}
