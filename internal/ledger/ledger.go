// internal/ledger/ledger.go
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/waifuai/solana-ico/internal/curve"
	"github.com/waifuai/solana-ico/internal/errs"
	"github.com/waifuai/solana-ico/internal/pda"
	"github.com/waifuai/solana-ico/internal/transport"
)

// Ledger owns the IcoState of every ICO it manages and settles buy, sell
// and withdraw requests against the bonding curve. Each operation runs as a
// single serializable unit per owner: price computation, invariant checks,
// transport submission and the state commit all happen under that owner's
// lock, so concurrent callers can never settle against stale supply.
//
// Commits are two-phase: the effect is composed and submitted first, and
// the local delta is applied only after the transport confirms. A failed or
// timed-out submission leaves the state untouched.
type Ledger struct {
	adapter        transport.Adapter
	programID      solana.PublicKey
	commissionRate decimal.Decimal
	referrals      *ReferralBook
	logger         *zap.Logger

	mu      sync.Mutex
	entries map[solana.PublicKey]*icoEntry
}

// icoEntry serializes operations on one owner's ICO. state is nil while an
// initialize is in flight or after one has failed.
type icoEntry struct {
	mu    sync.Mutex
	state *IcoState
}

// New creates a ledger that settles through the given adapter.
// commissionRate must be within [0, 1].
func New(adapter transport.Adapter, programID solana.PublicKey, commissionRate float64, logger *zap.Logger) (*Ledger, error) {
	if commissionRate < 0 || commissionRate > 1 {
		return nil, errs.E(errs.KindConfiguration, "ledger.new",
			fmt.Errorf("commission rate %f outside [0, 1]", commissionRate))
	}
	return &Ledger{
		adapter:        adapter,
		programID:      programID,
		commissionRate: decimal.NewFromFloat(commissionRate),
		referrals:      NewReferralBook(),
		logger:         logger.Named("ledger"),
	}, nil
}

// Referrals exposes the append-only buyer to referrer book.
func (l *Ledger) Referrals() *ReferralBook { return l.referrals }

// Initialize creates the ICO state for owner. Exactly one initialize can
// succeed per owner; the state then loops on buy/sell/withdraw forever.
func (l *Ledger) Initialize(ctx context.Context, owner, tokenMint solana.PublicKey, cfg CurveConfig) (Settlement, error) {
	const op = "ledger.initialize"

	if err := cfg.Validate(); err != nil {
		return Settlement{}, errs.E(errs.KindConfiguration, op, err)
	}
	if _, err := cfg.Pricer(); err != nil {
		return Settlement{}, errs.E(errs.KindConfiguration, op, err)
	}

	stateAddr, _, err := pda.IcoState(owner, l.programID)
	if err != nil {
		return Settlement{}, err
	}
	escrowAddr, _, err := pda.Escrow(owner, l.programID)
	if err != nil {
		return Settlement{}, err
	}

	l.mu.Lock()
	entry, exists := l.entries[owner]
	if exists {
		entry.mu.Lock()
		initialized := entry.state != nil
		entry.mu.Unlock()
		if initialized {
			l.mu.Unlock()
			return Settlement{}, errs.Validation(op, errs.ErrAlreadyInitialized)
		}
	} else {
		entry = &icoEntry{}
		if l.entries == nil {
			l.entries = make(map[solana.PublicKey]*icoEntry)
		}
		l.entries[owner] = entry
	}
	l.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.state != nil {
		return Settlement{}, errs.Validation(op, errs.ErrAlreadyInitialized)
	}

	effect := transport.NewEffect(
		transport.Action{Kind: transport.ActionCreateAccount, Destination: stateAddr},
		transport.Action{Kind: transport.ActionCreateAccount, Destination: escrowAddr},
	)
	conf, err := l.adapter.Submit(ctx, effect)
	if err != nil {
		return Settlement{}, l.transportErr(op, err)
	}

	entry.state = &IcoState{
		Owner:         owner,
		TokenMint:     tokenMint,
		Config:        cfg,
		StateAddress:  stateAddr,
		EscrowAddress: escrowAddr,
	}

	l.logger.Info("ICO initialized",
		zap.String("owner", owner.String()),
		zap.String("state_address", stateAddr.String()),
		zap.String("escrow_address", escrowAddr.String()),
		zap.Uint64("supply_cap", cfg.TotalSupplyCap))

	return Settlement{
		Kind:         KindInitialize,
		State:        *entry.state,
		Effect:       effect,
		Confirmation: conf,
		Counterparty: owner,
	}, nil
}

// Buy settles a token purchase of req.Principal lamports at the current
// curve price. Tokens minted are floor(principal / price); the price is
// taken at the pre-buy supply level. With a referrer, a commission of
// principal * commissionRate is diverted before the escrow credit.
func (l *Ledger) Buy(ctx context.Context, req BuyRequest) (Settlement, error) {
	const op = "ledger.buy"

	if req.Principal == 0 {
		return Settlement{}, errs.Validation(op, errs.ErrInvalidAmount)
	}

	entry, err := l.entry(req.Owner, op)
	if err != nil {
		return Settlement{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	state := entry.state
	if state == nil {
		return Settlement{}, errs.E(errs.KindNotFound, op, errs.ErrAccountNotFound)
	}

	pricer, err := state.Config.Pricer()
	if err != nil {
		return Settlement{}, errs.E(errs.KindConfiguration, op, err)
	}
	price := pricer.Price(state.TokensSold)
	if price.Sign() <= 0 {
		return Settlement{}, errs.E(errs.KindConfiguration, op,
			fmt.Errorf("curve produced non-positive price %s at supply %d", price, state.TokensSold))
	}

	principal := decimal.NewFromUint64(req.Principal)
	tokensToMint := uint64(principal.Div(price).Floor().IntPart())

	if state.TokensSold+tokensToMint > state.Config.TotalSupplyCap {
		return Settlement{}, errs.Validation(op, errs.ErrInsufficientSupply)
	}

	var commission uint64
	if req.Referrer != nil {
		commission = uint64(curve.RoundHalfDown(principal.Mul(l.commissionRate)).IntPart())
	}
	escrowCredit := req.Principal - commission

	actions := []transport.Action{
		{
			Kind:        transport.ActionMint,
			Destination: req.Buyer,
			Mint:        state.TokenMint,
			Tokens:      tokensToMint,
		},
		{
			Kind:        transport.ActionTransfer,
			Source:      req.Buyer,
			Destination: state.EscrowAddress,
			Lamports:    escrowCredit,
		},
	}
	if req.Referrer != nil && commission > 0 {
		actions = append(actions, transport.Action{
			Kind:        transport.ActionTransfer,
			Source:      req.Buyer,
			Destination: *req.Referrer,
			Lamports:    commission,
		})
	}

	effect := transport.NewEffect(actions...)
	conf, err := l.adapter.Submit(ctx, effect)
	if err != nil {
		return Settlement{}, l.transportErr(op, err)
	}

	state.TokensSold += tokensToMint
	state.EscrowBalance += escrowCredit
	if req.Referrer != nil {
		l.referrals.Record(req.Buyer, *req.Referrer)
	}

	l.logger.Info("Buy settled",
		zap.String("owner", req.Owner.String()),
		zap.String("buyer", req.Buyer.String()),
		zap.Uint64("principal", req.Principal),
		zap.String("token_price", price.String()),
		zap.Uint64("tokens_minted", tokensToMint),
		zap.Uint64("commission", commission),
		zap.Uint64("tokens_sold", state.TokensSold),
		zap.Uint64("escrow_balance", state.EscrowBalance))

	settlement := Settlement{
		Kind:         KindBuy,
		State:        *state,
		Effect:       effect,
		Confirmation: conf,
		TokensMinted: tokensToMint,
		LamportsIn:   escrowCredit,
		Commission:   commission,
		Counterparty: req.Buyer,
	}
	if req.Referrer != nil {
		settlement.Referrer = *req.Referrer
	}
	return settlement, nil
}

// Sell settles a sale of req.Tokens back to the curve. The refund is priced
// at the post-sale supply level: the marginal cost of the last unit
// removed, the mirror of how Buy prices at the pre-buy level.
func (l *Ledger) Sell(ctx context.Context, req SellRequest) (Settlement, error) {
	const op = "ledger.sell"

	if req.Tokens == 0 {
		return Settlement{}, errs.Validation(op, errs.ErrInvalidAmount)
	}

	entry, err := l.entry(req.Owner, op)
	if err != nil {
		return Settlement{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	state := entry.state
	if state == nil {
		return Settlement{}, errs.E(errs.KindNotFound, op, errs.ErrAccountNotFound)
	}

	if req.Tokens > state.TokensSold {
		return Settlement{}, errs.Validation(op, errs.ErrInsufficientCirculation)
	}

	pricer, err := state.Config.Pricer()
	if err != nil {
		return Settlement{}, errs.E(errs.KindConfiguration, op, err)
	}
	price := pricer.Price(state.TokensSold - req.Tokens)
	refund := uint64(decimal.NewFromUint64(req.Tokens).Mul(price).IntPart())

	if refund > state.EscrowBalance {
		return Settlement{}, errs.Validation(op, errs.ErrInsufficientEscrow)
	}

	effect := transport.NewEffect(
		transport.Action{
			Kind:   transport.ActionBurn,
			Source: req.Seller,
			Mint:   state.TokenMint,
			Tokens: req.Tokens,
		},
		transport.Action{
			Kind:        transport.ActionTransfer,
			Source:      state.EscrowAddress,
			Destination: req.Seller,
			Lamports:    refund,
		},
	)
	conf, err := l.adapter.Submit(ctx, effect)
	if err != nil {
		return Settlement{}, l.transportErr(op, err)
	}

	state.TokensSold -= req.Tokens
	state.EscrowBalance -= refund

	l.logger.Info("Sell settled",
		zap.String("owner", req.Owner.String()),
		zap.String("seller", req.Seller.String()),
		zap.Uint64("tokens_burned", req.Tokens),
		zap.String("token_price", price.String()),
		zap.Uint64("refund", refund),
		zap.Uint64("tokens_sold", state.TokensSold),
		zap.Uint64("escrow_balance", state.EscrowBalance))

	return Settlement{
		Kind:         KindSell,
		State:        *state,
		Effect:       effect,
		Confirmation: conf,
		TokensBurned: req.Tokens,
		LamportsOut:  refund,
		Counterparty: req.Seller,
	}, nil
}

// Withdraw moves escrowed lamports to the owner. Only the owner may call
// it.
func (l *Ledger) Withdraw(ctx context.Context, req WithdrawRequest) (Settlement, error) {
	const op = "ledger.withdraw"

	if req.Amount == 0 {
		return Settlement{}, errs.Validation(op, errs.ErrInvalidAmount)
	}

	entry, err := l.entry(req.Owner, op)
	if err != nil {
		return Settlement{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	state := entry.state
	if state == nil {
		return Settlement{}, errs.E(errs.KindNotFound, op, errs.ErrAccountNotFound)
	}

	if !req.Requester.Equals(state.Owner) {
		return Settlement{}, errs.E(errs.KindAuthorization, op, errs.ErrUnauthorized)
	}
	if req.Amount > state.EscrowBalance {
		return Settlement{}, errs.Validation(op, errs.ErrInsufficientEscrow)
	}

	effect := transport.NewEffect(
		transport.Action{
			Kind:        transport.ActionTransfer,
			Source:      state.EscrowAddress,
			Destination: state.Owner,
			Lamports:    req.Amount,
		},
	)
	conf, err := l.adapter.Submit(ctx, effect)
	if err != nil {
		return Settlement{}, l.transportErr(op, err)
	}

	state.EscrowBalance -= req.Amount

	l.logger.Info("Withdraw settled",
		zap.String("owner", req.Owner.String()),
		zap.Uint64("amount", req.Amount),
		zap.Uint64("escrow_balance", state.EscrowBalance))

	return Settlement{
		Kind:         KindWithdraw,
		State:        *state,
		Effect:       effect,
		Confirmation: conf,
		LamportsOut:  req.Amount,
		Counterparty: state.Owner,
	}, nil
}

// State returns a copy of the owner's ICO state.
func (l *Ledger) State(owner solana.PublicKey) (IcoState, error) {
	l.mu.Lock()
	entry, ok := l.entries[owner]
	l.mu.Unlock()
	if !ok {
		return IcoState{}, errs.E(errs.KindNotFound, "ledger.state", errs.ErrAccountNotFound)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.state == nil {
		return IcoState{}, errs.E(errs.KindNotFound, "ledger.state", errs.ErrAccountNotFound)
	}
	return *entry.state, nil
}

// Restore seeds the ledger with a previously persisted state, bypassing the
// transport. The CLI uses it to rehydrate between invocations.
func (l *Ledger) Restore(state IcoState) error {
	if err := state.Config.Validate(); err != nil {
		return errs.E(errs.KindConfiguration, "ledger.restore", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.entries == nil {
		l.entries = make(map[solana.PublicKey]*icoEntry)
	}
	if existing, ok := l.entries[state.Owner]; ok && existing.state != nil {
		return errs.Validation("ledger.restore", errs.ErrAlreadyInitialized)
	}
	s := state
	l.entries[state.Owner] = &icoEntry{state: &s}
	return nil
}

func (l *Ledger) entry(owner solana.PublicKey, op string) (*icoEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[owner]
	if !ok {
		return nil, errs.E(errs.KindNotFound, op, errs.ErrAccountNotFound)
	}
	return entry, nil
}

// transportErr keeps already-classified errors intact and wraps raw ones as
// transport failures.
func (l *Ledger) transportErr(op string, err error) error {
	if errs.KindOf(err) != "" {
		return err
	}
	return errs.E(errs.KindTransport, op, err)
}
