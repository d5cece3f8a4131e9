package bounty

import (
	"context"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/access"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/custody"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/ledger"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/node"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/state"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/registry"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// The bounty template. The poster funds a reward; hunters register a claim
// on the work, at most once each; the poster approves exactly one claim,
// which pays that hunter the full reward. An unapproved bounty can be
// reclaimed by the poster after the deadline.

// Post creates a bounty for the given reward. The poster is also the
// depositor; Fund escrows the reward before claims mean anything.
func Post(ctx context.Context, reg *registry.Registry, poster string, reward uint64,
	deadline state.Timestamp, description string, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.bounty.Post")
	defer span.End()

	nr := custody.NewRecord{
		Kind:      state.KindBounty,
		Initiator: poster,
		Parties: map[state.Role]string{
			state.RoleDepositor: poster,
		},
		Expected:       reward,
		WindowEnd:      deadline,
		SettleAfterEnd: false,
		Description:    description,
	}

	return custody.Create(ctx, reg, &nr, now)
}

// Fund escrows the reward from the poster.
func Fund(ctx context.Context, reg *registry.Registry, vt ledger.ValueTransfer,
	id uint64, poster string, amount uint64, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.bounty.Fund")
	defer span.End()

	if _, err := custody.FetchKind(ctx, reg, id, state.KindBounty); err != nil {
		return nil, err
	}

	return custody.Deposit(ctx, reg, vt, id, poster, amount, now)
}

// Claim registers a hunter's claim on the bounty. Each hunter may claim at
// most once; the poster cannot claim their own bounty.
func Claim(ctx context.Context, reg *registry.Registry, id uint64, hunter string,
	now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.bounty.Claim")
	defer span.End()

	rec, err := custody.FetchKind(ctx, reg, id, state.KindBounty)
	if err != nil {
		return nil, err
	}
	if hunter == rec.Party(state.RoleInitiator) {
		return nil, errors.Wrap(node.ErrInvalidInput, "poster cannot claim their own bounty")
	}

	return custody.Claim(ctx, reg, id, hunter, now)
}

// Approve accepts a hunter's claim and pays the full reward. Only the
// poster may approve, only before the deadline, and only for a hunter who
// has actually claimed. Payment goes terminal, so a bounty pays out once.
func Approve(ctx context.Context, reg *registry.Registry, vt ledger.ValueTransfer,
	id uint64, caller, hunter string, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.bounty.Approve")
	defer span.End()

	rec, err := custody.FetchKind(ctx, reg, id, state.KindBounty)
	if err != nil {
		return nil, err
	}

	if rec.Status.Terminal() {
		return nil, errors.Wrap(node.ErrInvalidState, "bounty is final")
	}
	if rec.Status != state.StatusActive {
		return nil, errors.Wrapf(node.ErrInvalidState, "cannot approve from %s", rec.Status)
	}
	if caller != rec.Party(state.RoleInitiator) {
		return nil, errors.Wrap(node.ErrNotAuthorized, "caller is not the poster")
	}
	if !rec.Approvals[hunter] {
		return nil, errors.Wrapf(node.ErrInvalidInput, "%s has not claimed this bounty", hunter)
	}
	if rec.WindowEnd != 0 && now.Nano() >= rec.WindowEnd.Nano() {
		return nil, errors.Wrap(node.ErrWindowViolation, "deadline passed")
	}

	payouts := []custody.Payout{{To: hunter, Amount: rec.Amount, Movement: state.MovementRelease}}

	// The beneficiary role is staged with the terminal transition so a
	// failed payout never leaves the hunter holding a role on an active
	// record.
	return custody.Disburse(ctx, reg, vt, rec, payouts, state.StatusCompleted, now,
		func(u *state.CustodyRecord) { u.SetParty(state.RoleBeneficiary, hunter) })
}

// Withdraw reclaims an unapproved reward after the deadline.
func Withdraw(ctx context.Context, reg *registry.Registry, vt ledger.ValueTransfer,
	policy *access.Policy, id uint64, caller string, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.bounty.Withdraw")
	defer span.End()

	rec, err := custody.FetchKind(ctx, reg, id, state.KindBounty)
	if err != nil {
		return nil, err
	}

	if rec.Status.Terminal() {
		return nil, errors.Wrap(node.ErrInvalidState, "bounty is final")
	}
	if rec.Status != state.StatusActive {
		return nil, errors.Wrapf(node.ErrInvalidState, "cannot withdraw from %s", rec.Status)
	}
	if caller != rec.Party(state.RoleDepositor) &&
		!policy.HasRole(caller, state.RoleOperator, rec) {
		return nil, errors.Wrap(node.ErrNotAuthorized, "caller cannot withdraw")
	}
	if rec.WindowEnd != 0 && now.Nano() < rec.WindowEnd.Nano() {
		return nil, errors.Wrap(node.ErrWindowViolation, "deadline not reached")
	}

	depositor := rec.Party(state.RoleDepositor)
	payouts := []custody.Payout{{To: depositor, Amount: rec.Amount, Movement: state.MovementRefund}}
	return custody.Disburse(ctx, reg, vt, rec, payouts, state.StatusRefunded, now)
}

// Cancel withdraws an unfunded, unclaimed bounty.
func Cancel(ctx context.Context, reg *registry.Registry, id uint64, caller string,
	now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.bounty.Cancel")
	defer span.End()

	if _, err := custody.FetchKind(ctx, reg, id, state.KindBounty); err != nil {
		return nil, err
	}

	return custody.Cancel(ctx, reg, id, caller, now)
}
