package custody

import (
	"context"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/access"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/ledger"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/node"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/state"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/registry"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// The custody state machine. Every operation takes its time snapshot as an
// explicit argument; all window comparisons inside one operation use that
// single value. Every failure aborts the whole operation with no partial
// state change.

// Create validates inputs and stores a new record.
func Create(ctx context.Context, reg *registry.Registry, nr *NewRecord,
	now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.custody.Create")
	defer span.End()

	if len(nr.Initiator) == 0 {
		return nil, errors.Wrap(node.ErrInvalidInput, "initiator required")
	}
	if nr.Expected == 0 && !nr.ZeroAmountOK {
		return nil, errors.Wrap(node.ErrInvalidInput, "amount required")
	}
	if nr.FeePercent > 100 {
		return nil, errors.Wrap(node.ErrInvalidInput, "fee percent over 100")
	}

	if nr.WindowEnd != 0 {
		if nr.WindowEnd.Nano() <= now.Nano() {
			return nil, errors.Wrap(node.ErrInvalidInput, "deadline not in the future")
		}
		if nr.WindowStart != 0 && nr.WindowEnd.Nano() <= nr.WindowStart.Nano() {
			return nil, errors.Wrap(node.ErrInvalidInput, "window end before start")
		}
	}

	depositor := nr.Parties[state.RoleDepositor]
	beneficiary := nr.Parties[state.RoleBeneficiary]
	arbiter := nr.Parties[state.RoleArbiter]
	if len(depositor) > 0 && depositor == beneficiary {
		return nil, errors.Wrap(node.ErrInvalidInput, "depositor and beneficiary are the same party")
	}
	if len(arbiter) > 0 && (arbiter == depositor || arbiter == beneficiary) {
		return nil, errors.Wrap(node.ErrInvalidInput, "arbiter cannot be a party to the record")
	}

	id, err := reg.NextID(ctx)
	if err != nil {
		return nil, err
	}

	rec := state.CustodyRecord{
		ID:             id,
		Kind:           nr.Kind,
		Status:         state.StatusCreated,
		Parties:        map[state.Role]string{state.RoleInitiator: nr.Initiator},
		Expected:       nr.Expected,
		FeePercent:     nr.FeePercent,
		WindowStart:    nr.WindowStart,
		WindowEnd:      nr.WindowEnd,
		SettleAfterEnd: nr.SettleAfterEnd,
		TicketPrice:    nr.TicketPrice,
		Description:    nr.Description,
		Approvals:      make(map[string]bool),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for role, address := range nr.Parties {
		if len(address) > 0 {
			rec.SetParty(role, address)
		}
	}
	if nr.ActiveAtCreation {
		rec.Status = state.StatusActive
	}

	if err := reg.Save(ctx, &rec); err != nil {
		return nil, err
	}

	return &rec, nil
}

// Deposit escrows the expected amount and activates the record. Partial
// funding is not supported; the paid value must match exactly.
func Deposit(ctx context.Context, reg *registry.Registry, vt ledger.ValueTransfer,
	id uint64, caller string, amount uint64, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.custody.Deposit")
	defer span.End()

	rec, err := reg.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if rec.Status.Terminal() {
		return nil, errors.Wrap(node.ErrInvalidState, "record is final")
	}
	if rec.Status == state.StatusActive {
		return nil, errors.Wrap(node.ErrInvalidState, "already funded")
	}
	if rec.Status != state.StatusCreated {
		return nil, errors.Wrapf(node.ErrInvalidState, "cannot deposit from %s", rec.Status)
	}

	if rec.Party(state.RoleDepositor) != caller {
		return nil, errors.Wrap(node.ErrNotAuthorized, "caller is not the designated depositor")
	}
	if amount != rec.Expected {
		return nil, errors.Wrapf(node.ErrInvalidInput, "paid %d, expected %d", amount, rec.Expected)
	}

	if err := vt.Collect(ctx, caller, amount); err != nil {
		return nil, errors.Wrap(node.ErrTransferFailed, err.Error())
	}

	updated := rec.Copy()
	updated.Amount = amount
	updated.Status = state.StatusActive
	updated.UpdatedAt = now

	if err := reg.Save(ctx, updated); err != nil {
		// Return the collected value so a failed deposit leaves no trace.
		if rerr := vt.Send(ctx, caller, amount); rerr != nil {
			return nil, errors.Wrapf(rerr, "refund failed after save failure : %s", err)
		}
		return nil, err
	}

	movement := state.Movement{
		RecordID:  id,
		Type:      state.MovementDeposit,
		From:      caller,
		Amount:    amount,
		Timestamp: now,
	}
	if err := reg.AddMovement(ctx, &movement); err != nil {
		return nil, errors.Wrap(err, "Failed to record movement")
	}

	return updated, nil
}

// Release pays the full held amount to the beneficiary. The depositor holds
// the releasing role; platform operators may release on their behalf.
func Release(ctx context.Context, reg *registry.Registry, vt ledger.ValueTransfer,
	policy *access.Policy, id uint64, caller string, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.custody.Release")
	defer span.End()

	rec, err := reg.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := checkDisbursable(rec); err != nil {
		return nil, err
	}
	if !policy.HasRole(caller, state.RoleDepositor, rec) &&
		!policy.HasRole(caller, state.RoleOperator, rec) {
		return nil, errors.Wrap(node.ErrNotAuthorized, "caller lacks the releasing role")
	}
	if err := checkDisbursalWindow(rec, now); err != nil {
		return nil, err
	}

	beneficiary := rec.Party(state.RoleBeneficiary)
	if len(beneficiary) == 0 {
		return nil, errors.Wrap(node.ErrInvalidState, "no beneficiary assigned")
	}

	payouts := []Payout{{To: beneficiary, Amount: rec.Amount, Movement: state.MovementRelease}}
	return Disburse(ctx, reg, vt, rec, payouts, state.StatusReleased, now)
}

// Refund returns the full held amount to the depositor. The beneficiary can
// relinquish at any time while the record is active; the depositor can
// reclaim once the window has elapsed.
func Refund(ctx context.Context, reg *registry.Registry, vt ledger.ValueTransfer,
	policy *access.Policy, id uint64, caller string, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.custody.Refund")
	defer span.End()

	rec, err := reg.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := checkDisbursable(rec); err != nil {
		return nil, err
	}

	switch {
	case policy.HasRole(caller, state.RoleBeneficiary, rec):
	case policy.HasRole(caller, state.RoleOperator, rec):
	case policy.HasRole(caller, state.RoleDepositor, rec):
		if rec.WindowEnd != 0 && now.Nano() <= rec.WindowEnd.Nano() {
			return nil, errors.Wrap(node.ErrWindowViolation, "window not elapsed")
		}
	default:
		return nil, errors.Wrap(node.ErrNotAuthorized, "caller lacks the refunding role")
	}

	depositor := rec.Party(state.RoleDepositor)
	if len(depositor) == 0 {
		return nil, errors.Wrap(node.ErrInvalidState, "no depositor assigned")
	}

	payouts := []Payout{{To: depositor, Amount: rec.Amount, Movement: state.MovementRefund}}
	return Disburse(ctx, reg, vt, rec, payouts, state.StatusRefunded, now)
}

// Dispute freezes an active record until an arbiter resolves it.
func Dispute(ctx context.Context, reg *registry.Registry, id uint64, caller,
	reason string, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.custody.Dispute")
	defer span.End()

	rec, err := reg.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if rec.Status == state.StatusDisputed {
		return nil, errors.Wrap(node.ErrInvalidState, "already disputed")
	}
	if rec.Status.Terminal() {
		return nil, errors.Wrap(node.ErrInvalidState, "record is final")
	}
	if rec.Status != state.StatusActive {
		return nil, errors.Wrapf(node.ErrInvalidState, "cannot dispute from %s", rec.Status)
	}
	if !rec.IsParticipant(caller) {
		return nil, errors.Wrap(node.ErrNotAuthorized, "caller is not a participant")
	}
	if len(reason) == 0 {
		return nil, errors.Wrap(node.ErrInvalidInput, "reason required")
	}

	updated := rec.Copy()
	updated.Status = state.StatusDisputed
	updated.DisputeReason = reason
	updated.UpdatedAt = now

	if err := reg.Save(ctx, updated); err != nil {
		return nil, err
	}

	return updated, nil
}

// ResolveDispute applies an arbiter's verdict to a disputed record. A split
// verdict takes the platform fee first, returns depositorPercent of the
// remainder to the depositor, and pays the rest, including any rounding
// remainder, to the beneficiary.
func ResolveDispute(ctx context.Context, reg *registry.Registry, vt ledger.ValueTransfer,
	policy *access.Policy, id uint64, caller string, res Resolution,
	depositorPercent uint32, feeAddress string, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.custody.ResolveDispute")
	defer span.End()

	rec, err := reg.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if rec.Status.Terminal() {
		return nil, errors.Wrap(node.ErrInvalidState, "already resolved")
	}
	if rec.Status != state.StatusDisputed {
		return nil, errors.Wrapf(node.ErrInvalidState, "cannot resolve from %s", rec.Status)
	}
	if !policy.HasRole(caller, state.RoleArbiter, rec) {
		return nil, errors.Wrap(node.ErrNotAuthorized, "caller is not an arbiter")
	}

	depositor := rec.Party(state.RoleDepositor)
	beneficiary := rec.Party(state.RoleBeneficiary)

	switch res {
	case ResolutionRelease:
		payouts := []Payout{{To: beneficiary, Amount: rec.Amount, Movement: state.MovementRelease}}
		return Disburse(ctx, reg, vt, rec, payouts, state.StatusReleased, now)

	case ResolutionRefund:
		payouts := []Payout{{To: depositor, Amount: rec.Amount, Movement: state.MovementRefund}}
		return Disburse(ctx, reg, vt, rec, payouts, state.StatusRefunded, now)

	case ResolutionSplit:
		shares, err := SplitShares(rec.Amount, rec.FeePercent, depositorPercent)
		if err != nil {
			return nil, err
		}
		if shares.Fee > 0 && len(feeAddress) == 0 {
			return nil, errors.Wrap(node.ErrInvalidInput, "fee address required")
		}
		payouts := []Payout{
			{To: feeAddress, Amount: shares.Fee, Movement: state.MovementFee},
			{To: depositor, Amount: shares.Depositor, Movement: state.MovementRefund},
			{To: beneficiary, Amount: shares.Beneficiary, Movement: state.MovementRelease},
		}
		return Disburse(ctx, reg, vt, rec, payouts, state.StatusSplit, now)
	}

	return nil, errors.Wrap(node.ErrInvalidInput, "unknown resolution")
}

// Cancel withdraws a record before any irrevocable commitment.
func Cancel(ctx context.Context, reg *registry.Registry, id uint64, caller string,
	now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.custody.Cancel")
	defer span.End()

	rec, err := reg.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if rec.Party(state.RoleInitiator) != caller {
		return nil, errors.Wrap(node.ErrNotAuthorized, "caller is not the initiator")
	}
	if rec.Status.Terminal() {
		return nil, errors.Wrap(node.ErrInvalidState, "record is final")
	}
	if rec.Amount > 0 || len(rec.Bids) > 0 || len(rec.Tickets) > 0 || len(rec.Approvals) > 0 {
		return nil, errors.Wrap(node.ErrInvalidState, "a counterpart has already committed")
	}

	updated := rec.Copy()
	updated.Status = state.StatusCancelled
	updated.UpdatedAt = now

	if err := reg.Save(ctx, updated); err != nil {
		return nil, err
	}

	return updated, nil
}

// Claim records an at-most-once action for the caller on an active record.
// The check and the set happen against the same fetched state and are saved
// in the same step, so a second claim by the same participant always fails.
func Claim(ctx context.Context, reg *registry.Registry, id uint64, caller string,
	now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.custody.Claim")
	defer span.End()

	rec, err := reg.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if rec.Status.Terminal() {
		return nil, errors.Wrap(node.ErrInvalidState, "record is final")
	}
	if rec.Status != state.StatusActive {
		return nil, errors.Wrapf(node.ErrInvalidState, "cannot claim from %s", rec.Status)
	}
	if len(caller) == 0 {
		return nil, errors.Wrap(node.ErrInvalidInput, "caller required")
	}
	if rec.Approvals[caller] {
		return nil, errors.Wrap(node.ErrInvalidState, "already claimed")
	}

	updated := rec.Copy()
	if updated.Approvals == nil {
		updated.Approvals = make(map[string]bool)
	}
	updated.Approvals[caller] = true
	updated.UpdatedAt = now

	if err := reg.Save(ctx, updated); err != nil {
		return nil, err
	}

	return updated, nil
}

// CheckKind verifies a record belongs to the template invoking it. Every
// template operation refuses records of another kind so one template can
// never rewrite another's state.
func CheckKind(rec *state.CustodyRecord, kind string) error {
	if rec.Kind != kind {
		return errors.Wrapf(node.ErrInvalidState, "record %d is %s, not %s", rec.ID, rec.Kind, kind)
	}
	return nil
}

// FetchKind loads a record and verifies its template kind.
func FetchKind(ctx context.Context, reg *registry.Registry, id uint64,
	kind string) (*state.CustodyRecord, error) {

	rec, err := reg.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CheckKind(rec, kind); err != nil {
		return nil, err
	}
	return rec, nil
}

// checkDisbursable verifies a record can move value out.
func checkDisbursable(rec *state.CustodyRecord) error {
	if rec.Status.Terminal() {
		return errors.Wrap(node.ErrInvalidState, "record is final")
	}
	if rec.Status == state.StatusDisputed {
		return errors.Wrap(node.ErrInvalidState, "record is disputed")
	}
	if rec.Status != state.StatusActive {
		return errors.Wrapf(node.ErrInvalidState, "not funded, status %s", rec.Status)
	}
	if rec.Amount == 0 {
		return errors.Wrap(node.ErrInvalidState, "nothing held")
	}
	return nil
}

// checkDisbursalWindow enforces the record's window direction against the
// operation's single time snapshot.
func checkDisbursalWindow(rec *state.CustodyRecord, now state.Timestamp) error {
	if rec.WindowEnd == 0 {
		return nil
	}
	if rec.SettleAfterEnd {
		if now.Nano() < rec.WindowEnd.Nano() {
			return errors.Wrap(node.ErrWindowViolation, "window not elapsed")
		}
		return nil
	}
	if now.Nano() >= rec.WindowEnd.Nano() {
		return errors.Wrap(node.ErrWindowViolation, "window expired")
	}
	return nil
}
