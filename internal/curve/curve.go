// internal/curve/curve.go
package curve

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Kind selects one of the supported bonding curve families.
type Kind string

const (
	KindLinear      Kind = "linear"
	KindExponential Kind = "exponential"
	KindSigmoid     Kind = "sigmoid"
	KindPolynomial  Kind = "polynomial"
)

// Curve maps a cumulative tokens-sold count to a per-token price in
// lamports. Implementations must be pure: the same supply always yields a
// bit-identical price. Prices are rounded half-down to a whole lamport
// before they reach settlement math.
type Curve interface {
	Kind() Kind
	Price(supply uint64) decimal.Decimal
}

var (
	one  = decimal.NewFromInt(1)
	two  = decimal.NewFromInt(2)
	half = decimal.New(5, -1)
)

// RoundHalfDown rounds d to a whole lamport, sending exact halves toward
// zero. Settlement always rounds in the escrow's favor this way.
func RoundHalfDown(d decimal.Decimal) decimal.Decimal {
	floor := d.Floor()
	if d.Sub(floor).GreaterThan(half) {
		return floor.Add(one)
	}
	return floor
}

// Linear prices at slope*supply + intercept.
type Linear struct {
	Slope     decimal.Decimal
	Intercept decimal.Decimal
}

func NewLinear(slope, intercept decimal.Decimal) Linear {
	return Linear{Slope: slope, Intercept: intercept}
}

func (Linear) Kind() Kind { return KindLinear }

func (l Linear) Price(supply uint64) decimal.Decimal {
	s := decimal.NewFromUint64(supply)
	return RoundHalfDown(l.Slope.Mul(s).Add(l.Intercept))
}

// DefiniteIntegralCost is the closed-form cost of moving supply by delta
// under the linear curve: slope*delta^2/2 + (slope*supply+intercept)*delta.
// Pricing a trade over the whole traded quantity this way reflects the
// marginal price moving across it, which a point-price times quantity does
// not.
func (l Linear) DefiniteIntegralCost(supply, delta uint64) decimal.Decimal {
	s := decimal.NewFromUint64(supply)
	d := decimal.NewFromUint64(delta)
	area := l.Slope.Mul(d).Mul(d).Div(two)
	base := l.Slope.Mul(s).Add(l.Intercept).Mul(d)
	return RoundHalfDown(area.Add(base))
}

// Exponential prices at scale*exp(steepness*supply). The exponent is
// evaluated in floating point; the result is rounded to a lamport before
// use, which keeps repeated evaluation reproducible.
type Exponential struct {
	Scale     decimal.Decimal
	Steepness float64
}

func NewExponential(scale decimal.Decimal, steepness float64) Exponential {
	return Exponential{Scale: scale, Steepness: steepness}
}

func (Exponential) Kind() Kind { return KindExponential }

func (e Exponential) Price(supply uint64) decimal.Decimal {
	exp := math.Exp(e.Steepness * float64(supply))
	return RoundHalfDown(e.Scale.Mul(decimal.NewFromFloat(exp)))
}

// Sigmoid prices at k / (1 + exp(-a*(supply-b))).
type Sigmoid struct {
	K decimal.Decimal
	A float64
	B float64
}

func NewSigmoid(k decimal.Decimal, a, b float64) Sigmoid {
	return Sigmoid{K: k, A: a, B: b}
}

func (Sigmoid) Kind() Kind { return KindSigmoid }

func (s Sigmoid) Price(supply uint64) decimal.Decimal {
	denom := 1 + math.Exp(-s.A*(float64(supply)-s.B))
	return RoundHalfDown(s.K.Div(decimal.NewFromFloat(denom)))
}

// Polynomial prices at the sum of coefficients[i]*supply^i.
type Polynomial struct {
	Coefficients []decimal.Decimal
}

func NewPolynomial(coefficients []decimal.Decimal) Polynomial {
	return Polynomial{Coefficients: coefficients}
}

func (Polynomial) Kind() Kind { return KindPolynomial }

func (p Polynomial) Price(supply uint64) decimal.Decimal {
	s := decimal.NewFromUint64(supply)
	price := decimal.Zero
	pow := one
	for _, c := range p.Coefficients {
		price = price.Add(c.Mul(pow))
		pow = pow.Mul(s)
	}
	return RoundHalfDown(price)
}

// Validate rejects parameters that would make a curve unusable for
// settlement.
func Validate(c Curve) error {
	switch v := c.(type) {
	case Linear:
		if v.Slope.IsNegative() || v.Intercept.IsNegative() {
			return fmt.Errorf("linear curve parameters must be non-negative")
		}
	case Exponential:
		if v.Scale.Sign() <= 0 {
			return fmt.Errorf("exponential scale must be positive")
		}
	case Sigmoid:
		if v.K.Sign() <= 0 {
			return fmt.Errorf("sigmoid ceiling must be positive")
		}
	case Polynomial:
		if len(v.Coefficients) == 0 {
			return fmt.Errorf("polynomial needs at least one coefficient")
		}
	}
	return nil
}
