// internal/ledger/logging.go
package ledger

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// loggingSettler wraps a Settler and logs every call with its outcome.
// Composed around the concrete ledger rather than baked into it so callers
// can stack it with other decorators.
type loggingSettler struct {
	next   Settler
	logger *zap.Logger
}

// WithLogging decorates s with request/outcome logging.
func WithLogging(s Settler, logger *zap.Logger) Settler {
	return &loggingSettler{next: s, logger: logger.Named("settle")}
}

func (s *loggingSettler) Initialize(ctx context.Context, owner, tokenMint solana.PublicKey, cfg CurveConfig) (Settlement, error) {
	s.logger.Debug("Initializing ICO",
		zap.String("owner", owner.String()),
		zap.String("token_mint", tokenMint.String()),
		zap.String("curve_kind", string(cfg.Kind)))
	settlement, err := s.next.Initialize(ctx, owner, tokenMint, cfg)
	s.logOutcome("initialize", settlement, err)
	return settlement, err
}

func (s *loggingSettler) Buy(ctx context.Context, req BuyRequest) (Settlement, error) {
	fields := []zap.Field{
		zap.String("owner", req.Owner.String()),
		zap.String("buyer", req.Buyer.String()),
		zap.Uint64("principal", req.Principal),
	}
	if req.Referrer != nil {
		fields = append(fields, zap.String("referrer", req.Referrer.String()))
	}
	s.logger.Debug("Buying tokens", fields...)
	settlement, err := s.next.Buy(ctx, req)
	s.logOutcome("buy", settlement, err)
	return settlement, err
}

func (s *loggingSettler) Sell(ctx context.Context, req SellRequest) (Settlement, error) {
	s.logger.Debug("Selling tokens",
		zap.String("owner", req.Owner.String()),
		zap.String("seller", req.Seller.String()),
		zap.Uint64("tokens", req.Tokens))
	settlement, err := s.next.Sell(ctx, req)
	s.logOutcome("sell", settlement, err)
	return settlement, err
}

func (s *loggingSettler) Withdraw(ctx context.Context, req WithdrawRequest) (Settlement, error) {
	s.logger.Debug("Withdrawing from escrow",
		zap.String("owner", req.Owner.String()),
		zap.String("requester", req.Requester.String()),
		zap.Uint64("amount", req.Amount))
	settlement, err := s.next.Withdraw(ctx, req)
	s.logOutcome("withdraw", settlement, err)
	return settlement, err
}

func (s *loggingSettler) State(owner solana.PublicKey) (IcoState, error) {
	return s.next.State(owner)
}

func (s *loggingSettler) logOutcome(op string, settlement Settlement, err error) {
	if err != nil {
		s.logger.Warn("Settlement rejected", zap.String("op", op), zap.Error(err))
		return
	}
	s.logger.Debug("Settlement committed",
		zap.String("op", op),
		zap.String("signature", settlement.Confirmation.Signature),
		zap.Uint64("tokens_sold", settlement.State.TokensSold),
		zap.Uint64("escrow_balance", settlement.State.EscrowBalance))
}
