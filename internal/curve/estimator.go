// internal/curve/estimator.go
package curve

import (
	"github.com/shopspring/decimal"

	"github.com/waifuai/solana-ico/internal/tokenomics"
)

// Estimator produces client-side price estimates for CTX from the
// tokenomics parameters. The authoritative price is whatever the ledger
// computes during settlement; this exists so the CLI can show a quote
// before committing funds.
type Estimator struct {
	params tokenomics.Params
}

func NewEstimator(params tokenomics.Params) Estimator {
	return Estimator{params: params}
}

// EstimatePrice returns STARTING_PRICE * (1 + sold/SCALING_FACTOR) in
// lamports, the same linear curve the ICO ledger settles on.
func (e Estimator) EstimatePrice(tokensSold uint64) decimal.Decimal {
	sold := decimal.NewFromUint64(tokensSold)
	return RoundHalfDown(e.params.StartingPrice.Mul(one.Add(sold.Div(e.params.ScalingFactor))))
}

// Curve returns the pricer the estimate corresponds to.
func (e Estimator) Curve() Linear {
	return NewLinear(e.params.StartingPrice.Div(e.params.ScalingFactor), e.params.StartingPrice)
}
