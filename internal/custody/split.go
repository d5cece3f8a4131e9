package custody

import (
	"math/bits"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/node"

	"github.com/pkg/errors"
)

// Shares is the exact three way division of a disputed amount. The parts
// always sum to the original amount; no value is lost to rounding.
type Shares struct {
	Fee         uint64
	Depositor   uint64
	Beneficiary uint64
}

// SplitShares divides amount per the resolution. The platform fee is taken
// first, then the remainder is split with depositorPercent going back to
// the depositor. Both divisions are floor divisions; the rounding remainder
// always lands on the beneficiary side.
func SplitShares(amount uint64, feePercent, depositorPercent uint32) (Shares, error) {
	if feePercent > 100 || depositorPercent > 100 {
		return Shares{}, errors.Wrap(node.ErrInvalidInput, "percent over 100")
	}

	fee := percentOf(amount, uint64(feePercent))
	rest := amount - fee
	depositor := percentOf(rest, uint64(depositorPercent))

	return Shares{
		Fee:         fee,
		Depositor:   depositor,
		Beneficiary: rest - depositor,
	}, nil
}

// percentOf computes amount * percent / 100 with a 128 bit intermediate so
// the multiplication can never overflow. Always multiply before dividing;
// the result truncates.
func percentOf(amount, percent uint64) uint64 {
	hi, lo := bits.Mul64(amount, percent)
	// percent <= 100 keeps hi below the divisor, so Div64 cannot panic.
	quo, _ := bits.Div64(hi, lo, 100)
	return quo
}
