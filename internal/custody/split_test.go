package custody

import (
	"testing"
)

func TestSplitShares(t *testing.T) {
	tests := []struct {
		name             string
		amount           uint64
		feePercent       uint32
		depositorPercent uint32
		fee              uint64
		depositor        uint64
		beneficiary      uint64
	}{
		{"even split no fee", 100, 0, 50, 0, 50, 50},
		{"fee then split", 1000, 2, 50, 20, 490, 490},
		{"odd amount rounds to beneficiary", 101, 0, 50, 0, 50, 51},
		{"odd remainder after fee", 100, 3, 50, 3, 48, 49},
		{"all to depositor", 100, 0, 100, 0, 100, 0},
		{"all to beneficiary", 100, 0, 0, 0, 0, 100},
		{"zero amount", 0, 2, 50, 0, 0, 0},
		{"one unit", 1, 0, 50, 0, 0, 1},
		{"large amount no overflow", 1 << 62, 3, 33, (1 << 62) * 3 / 100, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := SplitShares(tt.amount, tt.feePercent, tt.depositorPercent)
			if err != nil {
				t.Fatalf("Failed to split : %s", err)
			}

			if shares.Fee+shares.Depositor+shares.Beneficiary != tt.amount {
				t.Fatalf("Shares do not reconcile : %d + %d + %d != %d",
					shares.Fee, shares.Depositor, shares.Beneficiary, tt.amount)
			}

			if shares.Fee != tt.fee {
				t.Errorf("Wrong fee : got %d, wanted %d", shares.Fee, tt.fee)
			}
			// The large amount case only pins the fee; the remainder split is
			// covered by the reconciliation check above.
			if tt.depositor != 0 || tt.beneficiary != 0 || tt.amount == 0 {
				if shares.Depositor != tt.depositor {
					t.Errorf("Wrong depositor share : got %d, wanted %d", shares.Depositor, tt.depositor)
				}
				if shares.Beneficiary != tt.beneficiary {
					t.Errorf("Wrong beneficiary share : got %d, wanted %d", shares.Beneficiary, tt.beneficiary)
				}
			}
		})
	}
}

func TestSplitSharesInvalidPercent(t *testing.T) {
	if _, err := SplitShares(100, 101, 50); err == nil {
		t.Fatalf("Fee percent over 100 should fail")
	}
	if _, err := SplitShares(100, 2, 101); err == nil {
		t.Fatalf("Depositor percent over 100 should fail")
	}
}

func TestSplitSharesNeverLosesValue(t *testing.T) {
	// Walk a grid of awkward amounts and percents; the three shares must
	// always sum back to the amount.
	amounts := []uint64{1, 3, 7, 99, 100, 101, 999, 12345, 1<<40 + 7}
	for _, amount := range amounts {
		for fee := uint32(0); fee <= 100; fee += 7 {
			for dep := uint32(0); dep <= 100; dep += 13 {
				shares, err := SplitShares(amount, fee, dep)
				if err != nil {
					t.Fatalf("Failed to split %d (fee %d, dep %d) : %s", amount, fee, dep, err)
				}
				if shares.Fee+shares.Depositor+shares.Beneficiary != amount {
					t.Fatalf("Shares do not reconcile for %d (fee %d, dep %d) : %d + %d + %d",
						amount, fee, dep, shares.Fee, shares.Depositor, shares.Beneficiary)
				}
			}
		}
	}
}
