package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waifuai/solana-ico/internal/curve"
	"github.com/waifuai/solana-ico/internal/errs"
)

func TestCurveConfigValidate(t *testing.T) {
	valid := testCurveConfig()
	require.NoError(t, valid.Validate())

	noCap := valid
	noCap.TotalSupplyCap = 0
	assert.ErrorIs(t, noCap.Validate(), errs.ErrInvalidConfig)

	negPrice := valid
	negPrice.BasePrice = decimal.NewFromInt(-1)
	assert.ErrorIs(t, negPrice.Validate(), errs.ErrInvalidConfig)

	noScaling := valid
	noScaling.ScalingFactor = decimal.Zero
	assert.ErrorIs(t, noScaling.Validate(), errs.ErrInvalidConfig)

	poly := valid
	poly.Kind = curve.KindPolynomial
	poly.Coefficients = nil
	assert.ErrorIs(t, poly.Validate(), errs.ErrInvalidConfig)
}

func TestCurveConfigPricer(t *testing.T) {
	cfg := testCurveConfig()
	pricer, err := cfg.Pricer()
	require.NoError(t, err)
	assert.Equal(t, curve.KindLinear, pricer.Kind())

	// base 10_000, scaling 1_000_000: price doubles at one scaling factor
	// of supply.
	assert.Equal(t, int64(10_000), pricer.Price(0).IntPart())
	assert.Equal(t, int64(20_000), pricer.Price(1_000_000).IntPart())

	// An empty kind defaults to the linear sale curve.
	cfg.Kind = ""
	pricer, err = cfg.Pricer()
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), pricer.Price(0).IntPart())

	cfg.Kind = "hyperbolic"
	_, err = cfg.Pricer()
	assert.ErrorIs(t, err, errs.ErrInvalidConfig)
}

func TestCurveConfigPricerKinds(t *testing.T) {
	base := testCurveConfig()

	exp := base
	exp.Kind = curve.KindExponential
	exp.Steepness = 0.01
	pricer, err := exp.Pricer()
	require.NoError(t, err)
	assert.Equal(t, curve.KindExponential, pricer.Kind())

	sig := base
	sig.Kind = curve.KindSigmoid
	sig.A = 0.001
	pricer, err = sig.Pricer()
	require.NoError(t, err)
	assert.Equal(t, curve.KindSigmoid, pricer.Kind())

	poly := base
	poly.Kind = curve.KindPolynomial
	poly.Coefficients = []decimal.Decimal{decimal.NewFromInt(5), decimal.NewFromInt(3)}
	pricer, err = poly.Pricer()
	require.NoError(t, err)
	assert.Equal(t, curve.KindPolynomial, pricer.Kind())
	assert.Equal(t, int64(35), pricer.Price(10).IntPart())
}
