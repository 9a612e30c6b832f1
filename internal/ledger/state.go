// internal/ledger/state.go
package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/waifuai/solana-ico/internal/curve"
	"github.com/waifuai/solana-ico/internal/errs"
)

// CurveConfig fixes the pricing function of an ICO at initialization time.
// BasePrice is the per-token price at zero supply in lamports; the meaning
// of the remaining fields depends on Kind.
type CurveConfig struct {
	Kind           curve.Kind
	BasePrice      decimal.Decimal
	ScalingFactor  decimal.Decimal
	TotalSupplyCap uint64

	// Steepness applies to the exponential kind.
	Steepness float64
	// A and B shape the sigmoid kind.
	A float64
	B float64
	// Coefficients parameterize the polynomial kind, lowest degree first.
	Coefficients []decimal.Decimal
}

// Validate rejects configurations the settlement math cannot price.
func (c CurveConfig) Validate() error {
	if c.TotalSupplyCap == 0 {
		return fmt.Errorf("%w: total supply cap must be positive", errs.ErrInvalidConfig)
	}
	if c.BasePrice.IsNegative() {
		return fmt.Errorf("%w: base price must be non-negative", errs.ErrInvalidConfig)
	}
	if c.Kind == "" || c.Kind == curve.KindLinear || c.Kind == curve.KindExponential {
		if c.ScalingFactor.Sign() <= 0 {
			return fmt.Errorf("%w: scaling factor must be positive", errs.ErrInvalidConfig)
		}
	}
	if c.Kind == curve.KindPolynomial && len(c.Coefficients) == 0 {
		return fmt.Errorf("%w: polynomial curve needs coefficients", errs.ErrInvalidConfig)
	}
	return nil
}

// Pricer instantiates the configured curve. The linear kind prices at
// BasePrice * (1 + sold/ScalingFactor), the form the ICO settles on.
func (c CurveConfig) Pricer() (curve.Curve, error) {
	switch c.Kind {
	case curve.KindLinear, "":
		return curve.NewLinear(c.BasePrice.Div(c.ScalingFactor), c.BasePrice), nil
	case curve.KindExponential:
		return curve.NewExponential(c.BasePrice, c.Steepness), nil
	case curve.KindSigmoid:
		return curve.NewSigmoid(c.BasePrice, c.A, c.B), nil
	case curve.KindPolynomial:
		return curve.NewPolynomial(c.Coefficients), nil
	default:
		return nil, fmt.Errorf("%w: unknown curve kind %q", errs.ErrInvalidConfig, c.Kind)
	}
}

// IcoState is the authoritative per-owner sale state. TokensSold and
// EscrowBalance only ever change together, under the owner's serialization,
// and only after the transport confirms the matching effect.
type IcoState struct {
	Owner     solana.PublicKey
	TokenMint solana.PublicKey
	Config    CurveConfig

	// Derived storage addresses, recomputable from (program, owner).
	StateAddress  solana.PublicKey
	EscrowAddress solana.PublicKey

	TokensSold    uint64
	EscrowBalance uint64 // lamports held in escrow
}

// BuyRequest purchases tokens with Principal lamports at the current curve
// price. Referrer, when set, diverts a commission from the escrowed
// principal.
type BuyRequest struct {
	Owner     solana.PublicKey
	Buyer     solana.PublicKey
	Principal uint64
	Referrer  *solana.PublicKey
}

// SellRequest sells Tokens back to the curve.
type SellRequest struct {
	Owner  solana.PublicKey
	Seller solana.PublicKey
	Tokens uint64
}

// WithdrawRequest moves Amount lamports from escrow to the owner.
type WithdrawRequest struct {
	Owner     solana.PublicKey
	Requester solana.PublicKey
	Amount    uint64
}
