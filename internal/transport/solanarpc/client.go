// internal/transport/solanarpc/client.go
package solanarpc

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/waifuai/solana-ico/internal/errs"
	"github.com/waifuai/solana-ico/internal/transport"
	"github.com/waifuai/solana-ico/internal/wallet"
)

// Client submits composed effects to a Solana cluster over JSON-RPC. Every
// effect becomes one transaction signed by the configured wallet, which is
// assumed to hold mint and escrow authority for the sale. Submitted effect
// references are remembered so a resubmission never double-applies.
type Client struct {
	rpc    *rpc.Client
	wallet *wallet.Wallet
	logger *zap.Logger

	submitTimeout time.Duration

	mu        sync.Mutex
	submitted map[uuid.UUID]transport.Confirmation
}

// Options tune submission behaviour.
type Options struct {
	// SubmitTimeout bounds one submit attempt including confirmation.
	SubmitTimeout time.Duration
}

// New creates a cluster-backed adapter.
func New(rpcURL string, w *wallet.Wallet, opts Options, logger *zap.Logger) *Client {
	timeout := opts.SubmitTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		rpc:           rpc.New(rpcURL),
		wallet:        w,
		logger:        logger.Named("solanarpc"),
		submitTimeout: timeout,
		submitted:     make(map[uuid.UUID]transport.Confirmation),
	}
}

// Submit builds, signs and sends one transaction for the effect, then waits
// for confirmation. A timeout is reported as failed-unconfirmed; the caller
// must not assume either outcome and retries require a fresh effect.
func (c *Client) Submit(ctx context.Context, effect *transport.Effect) (transport.Confirmation, error) {
	c.mu.Lock()
	if conf, ok := c.submitted[effect.Ref]; ok {
		c.mu.Unlock()
		c.logger.Debug("Effect reference already confirmed, skipping resubmission",
			zap.String("ref", effect.Ref.String()))
		return conf, nil
	}
	c.mu.Unlock()

	instructions, err := buildInstructions(effect, c.wallet.PublicKey)
	if err != nil {
		return transport.Confirmation{}, errs.E(errs.KindTransport, "solanarpc.submit", err)
	}

	submitCtx, cancel := context.WithTimeout(ctx, c.submitTimeout)
	defer cancel()

	op := func() (transport.Confirmation, error) {
		return c.sendOnce(submitCtx, instructions)
	}

	conf, err := backoff.Retry(
		submitCtx,
		op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(c.submitTimeout),
	)
	if err != nil {
		c.logger.Warn("Effect submission failed",
			zap.String("ref", effect.Ref.String()),
			zap.Int("actions", len(effect.Actions)),
			zap.Error(err))
		return transport.Confirmation{}, errs.E(errs.KindTransport, "solanarpc.submit", err)
	}

	c.mu.Lock()
	c.submitted[effect.Ref] = conf
	c.mu.Unlock()

	c.logger.Info("Effect confirmed",
		zap.String("ref", effect.Ref.String()),
		zap.String("signature", conf.Signature),
		zap.Uint64("slot", conf.Slot))
	return conf, nil
}

func (c *Client) sendOnce(ctx context.Context, instructions []solana.Instruction) (transport.Confirmation, error) {
	blockhash, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return transport.Confirmation{}, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		blockhash.Value.Blockhash,
		solana.TransactionPayer(c.wallet.PublicKey),
	)
	if err != nil {
		return transport.Confirmation{}, backoff.Permanent(fmt.Errorf("failed to create transaction: %w", err))
	}
	if err := c.wallet.SignTransaction(tx); err != nil {
		return transport.Confirmation{}, backoff.Permanent(fmt.Errorf("failed to sign transaction: %w", err))
	}

	sig, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		if strings.Contains(err.Error(), "BlockhashNotFound") {
			return transport.Confirmation{}, err // transient, retry with a fresh blockhash
		}
		return transport.Confirmation{}, backoff.Permanent(fmt.Errorf("transaction failed: %w", err))
	}

	slot, err := c.waitForConfirmation(ctx, sig)
	if err != nil {
		// Confirmation did not arrive in time. The transaction may still
		// land; report unconfirmed rather than retrying the same message.
		return transport.Confirmation{}, backoff.Permanent(fmt.Errorf("transaction %s unconfirmed: %w", sig, err))
	}

	return transport.Confirmation{Signature: sig.String(), Slot: slot}, nil
}

func (c *Client) waitForConfirmation(ctx context.Context, sig solana.Signature) (uint64, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}

		statuses, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			c.logger.Debug("GetSignatureStatuses error", zap.Error(err))
			continue
		}
		if len(statuses.Value) == 0 || statuses.Value[0] == nil {
			continue
		}
		status := statuses.Value[0]
		if status.Err != nil {
			return 0, fmt.Errorf("transaction failed on chain: %v", status.Err)
		}
		switch status.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			return status.Slot, nil
		}
	}
}

// QueryAccount fetches lamport balance and owner for an account.
func (c *Client) QueryAccount(ctx context.Context, account solana.PublicKey) (*transport.AccountInfo, error) {
	result, err := c.rpc.GetAccountInfo(ctx, account)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, errs.E(errs.KindNotFound, "solanarpc.query_account", errs.ErrAccountNotFound)
		}
		return nil, errs.E(errs.KindTransport, "solanarpc.query_account", err)
	}
	if result == nil || result.Value == nil {
		return nil, errs.E(errs.KindNotFound, "solanarpc.query_account", errs.ErrAccountNotFound)
	}
	return &transport.AccountInfo{
		Lamports: result.Value.Lamports,
		Owner:    result.Value.Owner,
		Exists:   true,
	}, nil
}
