package escrow

import (
	"context"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/access"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/custody"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/ledger"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/state"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/registry"

	"go.opencensus.io/trace"
)

// The escrow template. The buyer deposits the agreed amount, releases it to
// the seller before the deadline, and can reclaim it once the deadline has
// elapsed. Either party can dispute while the record is active; an arbiter
// resolves with a release, a refund or a split.

// Open creates an escrow agreement between buyer and seller. The arbiter is
// optional; without one only statically granted arbiters can resolve
// disputes on this record.
func Open(ctx context.Context, reg *registry.Registry, buyer, seller, arbiter string,
	amount uint64, deadline state.Timestamp, feePercent uint32, description string,
	now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.escrow.Open")
	defer span.End()

	nr := custody.NewRecord{
		Kind:      state.KindEscrow,
		Initiator: buyer,
		Parties: map[state.Role]string{
			state.RoleDepositor:   buyer,
			state.RoleBeneficiary: seller,
			state.RoleArbiter:     arbiter,
		},
		Expected:    amount,
		FeePercent:  feePercent,
		WindowEnd:   deadline,
		Description: description,
	}

	return custody.Create(ctx, reg, &nr, now)
}

// Fund escrows the agreed amount from the buyer.
func Fund(ctx context.Context, reg *registry.Registry, vt ledger.ValueTransfer,
	id uint64, buyer string, amount uint64, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.escrow.Fund")
	defer span.End()

	if _, err := custody.FetchKind(ctx, reg, id, state.KindEscrow); err != nil {
		return nil, err
	}

	return custody.Deposit(ctx, reg, vt, id, buyer, amount, now)
}

// Release pays the seller. Only legal for the buyer before the deadline.
func Release(ctx context.Context, reg *registry.Registry, vt ledger.ValueTransfer,
	policy *access.Policy, id uint64, caller string, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.escrow.Release")
	defer span.End()

	if _, err := custody.FetchKind(ctx, reg, id, state.KindEscrow); err != nil {
		return nil, err
	}

	return custody.Release(ctx, reg, vt, policy, id, caller, now)
}

// Refund returns the held amount to the buyer. The seller can relinquish at
// any time; the buyer can reclaim after the deadline.
func Refund(ctx context.Context, reg *registry.Registry, vt ledger.ValueTransfer,
	policy *access.Policy, id uint64, caller string, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.escrow.Refund")
	defer span.End()

	if _, err := custody.FetchKind(ctx, reg, id, state.KindEscrow); err != nil {
		return nil, err
	}

	return custody.Refund(ctx, reg, vt, policy, id, caller, now)
}

// Dispute freezes the agreement until resolution.
func Dispute(ctx context.Context, reg *registry.Registry, id uint64, caller,
	reason string, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.escrow.Dispute")
	defer span.End()

	if _, err := custody.FetchKind(ctx, reg, id, state.KindEscrow); err != nil {
		return nil, err
	}

	return custody.Dispute(ctx, reg, id, caller, reason, now)
}

// Resolve applies the arbiter's verdict.
func Resolve(ctx context.Context, reg *registry.Registry, vt ledger.ValueTransfer,
	policy *access.Policy, id uint64, caller string, res custody.Resolution,
	buyerPercent uint32, feeAddress string, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.escrow.Resolve")
	defer span.End()

	if _, err := custody.FetchKind(ctx, reg, id, state.KindEscrow); err != nil {
		return nil, err
	}

	return custody.ResolveDispute(ctx, reg, vt, policy, id, caller, res, buyerPercent, feeAddress, now)
}

// Cancel withdraws an unfunded agreement.
func Cancel(ctx context.Context, reg *registry.Registry, id uint64, caller string,
	now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.escrow.Cancel")
	defer span.End()

	if _, err := custody.FetchKind(ctx, reg, id, state.KindEscrow); err != nil {
		return nil, err
	}

	return custody.Cancel(ctx, reg, id, caller, now)
}
