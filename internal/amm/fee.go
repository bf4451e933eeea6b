package amm

import (
	"errors"
	"fmt"
	"math/big"

	"feeScope/internal/model"
)

const (
	// Scale is the fixed-point multiplier applied before the integer division.
	Scale = 1_000_000
	// DefaultDecimals is the number of decimal places kept on the fee fraction.
	DefaultDecimals = 3
	maxDecimals     = 6
)

// ErrUndetermined is returned when a trade does not pin down a fee.
var ErrUndetermined = errors.New("fee undetermined")

// UndeterminedError carries the reason a trade could not be inverted.
type UndeterminedError struct {
	Reason string
}

func (e *UndeterminedError) Error() string {
	return fmt.Sprintf("fee undetermined: %s", e.Reason)
}

// Is lets callers match with errors.Is(err, ErrUndetermined).
func (e *UndeterminedError) Is(target error) bool {
	return target == ErrUndetermined
}

func undetermined(reason string) error {
	return &UndeterminedError{Reason: reason}
}

var (
	bigScale = big.NewInt(Scale)
	bigPPM   = big.NewRat(model.FeeDenominator, 1)
)

// Estimator inverts the constant-product invariant for the input fee.
type Estimator struct {
	// Decimals is the rounding precision of the fee fraction (1..6).
	Decimals int
}

// NewEstimator returns an Estimator rounding to the given decimals.
func NewEstimator(decimals int) Estimator {
	return Estimator{Decimals: decimals}
}

// EstimateFee uses DefaultDecimals.
func EstimateFee(before, after model.ReserveSnapshot, swap model.SwapEvent) (uint32, error) {
	return Estimator{Decimals: DefaultDecimals}.EstimateFee(before, after, swap)
}

// EstimateFee returns the fee in ppm implied by a single swap and the pool
// reserves immediately before and after it.
//
// With x, y the input/output reserves before the trade and dx, dy the gross
// input and the output, a fee f on the input satisfies
// (x + dx(1-f)) (y - dy) = x y, so 1 - f = x dy / ((y - dy) dx).
func (e Estimator) EstimateFee(before, after model.ReserveSnapshot, swap model.SwapEvent) (uint32, error) {
	if before.Reserve0 == nil || before.Reserve1 == nil || after.Reserve0 == nil || after.Reserve1 == nil {
		return 0, undetermined("missing reserves")
	}
	if before.Reserve0.Cmp(after.Reserve0) == 0 {
		return 0, undetermined("reserve0 unchanged")
	}

	var dx, dy, x, y, xAfter, yAfter *big.Int
	if orZero(swap.Amount0In).Sign() > 0 {
		dx, dy = swap.Amount0In, orZero(swap.Amount1Out)
		x, y = before.Reserve0, before.Reserve1
		xAfter, yAfter = after.Reserve0, after.Reserve1
	} else {
		dx, dy = orZero(swap.Amount1In), orZero(swap.Amount0Out)
		x, y = before.Reserve1, before.Reserve0
		xAfter, yAfter = after.Reserve1, after.Reserve0
	}

	if x.Sign() <= 0 || y.Sign() <= 0 {
		return 0, undetermined("empty reserves before trade")
	}
	if dx.Sign() == 0 {
		return 0, undetermined("zero input amount")
	}
	if dy.Sign() == 0 {
		return 0, undetermined("zero output amount")
	}
	if xAfter.Cmp(x) <= 0 || yAfter.Cmp(y) >= 0 {
		return 0, undetermined("reserves inconsistent with trade direction")
	}
	if new(big.Int).Sub(xAfter, x).Cmp(dx) != 0 || new(big.Int).Sub(y, yAfter).Cmp(dy) != 0 {
		return 0, undetermined("reserve deltas do not match the swap amounts")
	}

	remaining := new(big.Int).Sub(y, dy)
	if remaining.Sign() <= 0 {
		return 0, undetermined("output drains reserve")
	}

	num := new(big.Int).Mul(x, dy)
	num.Mul(num, bigScale)
	den := new(big.Int).Mul(remaining, dx)
	ratio := new(big.Int).Quo(num, den)

	feeScaled := new(big.Int).Sub(bigScale, ratio)
	if feeScaled.Sign() < 0 {
		return 0, undetermined(fmt.Sprintf("implied fee negative (ratio %s)", ratio))
	}

	return e.toPPM(feeScaled)
}

func (e Estimator) toPPM(feeScaled *big.Int) (uint32, error) {
	frac := new(big.Rat).SetFrac(feeScaled, bigScale)
	rounded, ok := new(big.Rat).SetString(frac.FloatString(e.decimals()))
	if !ok {
		return 0, fmt.Errorf("round fee fraction %s", frac.String())
	}
	rounded.Mul(rounded, bigPPM)
	if !rounded.IsInt() {
		return 0, fmt.Errorf("fee %s is not a whole ppm", rounded.String())
	}
	ppm := rounded.Num()
	if ppm.Sign() < 0 || ppm.Cmp(big.NewInt(model.FeeDenominator)) > 0 {
		return 0, undetermined(fmt.Sprintf("fee out of range: %s ppm", ppm))
	}
	return uint32(ppm.Uint64()), nil
}

func (e Estimator) decimals() int {
	switch {
	case e.Decimals <= 0:
		return DefaultDecimals
	case e.Decimals > maxDecimals:
		return maxDecimals
	default:
		return e.Decimals
	}
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
