// internal/tokenomics/tokenomics.go
package tokenomics

import "github.com/shopspring/decimal"

// Params holds the economic parameters of the ContextCoin (CTX) token:
// supply, decimals, initial distribution and the linear bonding curve used
// by the ICO. The values travel inside the configuration instead of living
// as package globals so tests and multi-token setups can swap them out.
type Params struct {
	Name     string
	Symbol   string
	Decimals uint8

	// TotalSupply is the hard cap in whole tokens.
	TotalSupply uint64

	// Initial distribution shares, must sum to 1.
	TeamShare      float64
	EcosystemShare float64
	SaleShare      float64

	// StartingPrice is the price of one CTX at zero supply, in lamports.
	StartingPrice decimal.Decimal

	// ScalingFactor controls curve steepness: the price doubles once
	// ScalingFactor tokens have been sold.
	ScalingFactor decimal.Decimal
}

// Default returns the canonical CTX parameters.
func Default() Params {
	return Params{
		Name:           "ContextCoin",
		Symbol:         "CTX",
		Decimals:       9,
		TotalSupply:    1_000_000_000,
		TeamShare:      0.20,
		EcosystemShare: 0.30,
		SaleShare:      0.50,
		// 0.00001 SOL per CTX expressed in lamports.
		StartingPrice: decimal.NewFromInt(10_000),
		ScalingFactor: decimal.NewFromInt(100_000_000),
	}
}

// SaleSupply returns the number of tokens reserved for the public sale.
func (p Params) SaleSupply() uint64 {
	return uint64(float64(p.TotalSupply) * p.SaleShare)
}
