package custody

import (
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/state"
)

// NewRecord holds everything needed to create a custody record.
type NewRecord struct {
	Kind      string
	Initiator string

	// Parties are additional record scoped roles beyond the initiator
	// (depositor, beneficiary, arbiter).
	Parties map[state.Role]string

	// Expected is the deposit required to activate the record. Must be
	// positive unless ZeroAmountOK is set (auctions and lotteries accrue
	// their value after creation).
	Expected     uint64
	ZeroAmountOK bool

	FeePercent uint32

	WindowStart    state.Timestamp
	WindowEnd      state.Timestamp
	SettleAfterEnd bool

	// ActiveAtCreation opens the record immediately instead of waiting for
	// a deposit.
	ActiveAtCreation bool

	TicketPrice uint64
	Description string
}

// Resolution is an arbiter's verdict on a disputed record.
type Resolution uint8

const (
	// ResolutionRelease pays the full held amount to the beneficiary.
	ResolutionRelease Resolution = iota

	// ResolutionRefund returns the full held amount to the depositor.
	ResolutionRefund

	// ResolutionSplit divides the held amount between the parties after
	// the platform fee.
	ResolutionSplit
)

func (r Resolution) String() string {
	switch r {
	case ResolutionRelease:
		return "release"
	case ResolutionRefund:
		return "refund"
	case ResolutionSplit:
		return "split"
	}
	return "unknown"
}

// Payout is one leg of a disbursal with the movement type recorded for it.
type Payout struct {
	To       string
	Amount   uint64
	Movement string
}
