package lottery

import (
	"context"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/custody"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/ledger"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/node"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/state"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/registry"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// The lottery template. Tickets are sold at a fixed price while the window
// is open; the pot accrues on the record. After the window closes anyone
// may trigger the draw, which assigns a winner but moves no value. The
// winner pulls the prize, minus the owner's fee, in a separate step.

// Open starts a lottery with a fixed ticket price over the given window.
func Open(ctx context.Context, reg *registry.Registry, owner string, ticketPrice uint64,
	start, end state.Timestamp, feePercent uint32, description string,
	now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.lottery.Open")
	defer span.End()

	if ticketPrice == 0 {
		return nil, errors.Wrap(node.ErrInvalidInput, "ticket price required")
	}

	nr := custody.NewRecord{
		Kind:             state.KindLottery,
		Initiator:        owner,
		ZeroAmountOK:     true,
		ActiveAtCreation: true,
		FeePercent:       feePercent,
		WindowStart:      start,
		WindowEnd:        end,
		SettleAfterEnd:   true,
		TicketPrice:      ticketPrice,
		Description:      description,
	}

	return custody.Create(ctx, reg, &nr, now)
}

// BuyTicket escrows one ticket's price from the buyer and adds the buyer to
// the ticket list. A buyer may hold any number of tickets; each purchase is
// one entry in the draw.
func BuyTicket(ctx context.Context, reg *registry.Registry, vt ledger.ValueTransfer,
	id uint64, buyer string, paid uint64, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.lottery.BuyTicket")
	defer span.End()

	rec, err := custody.FetchKind(ctx, reg, id, state.KindLottery)
	if err != nil {
		return nil, err
	}

	if rec.Status.Terminal() {
		return nil, errors.Wrap(node.ErrInvalidState, "lottery is final")
	}
	if rec.Status != state.StatusActive {
		return nil, errors.Wrapf(node.ErrInvalidState, "cannot buy from %s", rec.Status)
	}
	if len(rec.Winner) > 0 {
		return nil, errors.Wrap(node.ErrInvalidState, "already drawn")
	}
	if rec.WindowStart != 0 && now.Nano() < rec.WindowStart.Nano() {
		return nil, errors.Wrap(node.ErrWindowViolation, "sales not open")
	}
	if rec.WindowEnd != 0 && now.Nano() >= rec.WindowEnd.Nano() {
		return nil, errors.Wrap(node.ErrWindowViolation, "sales closed")
	}
	if buyer == rec.Party(state.RoleInitiator) {
		return nil, errors.Wrap(node.ErrInvalidInput, "owner cannot buy a ticket")
	}
	if paid != rec.TicketPrice {
		return nil, errors.Wrapf(node.ErrInvalidInput, "paid %d, ticket costs %d", paid, rec.TicketPrice)
	}

	if err := vt.Collect(ctx, buyer, paid); err != nil {
		return nil, errors.Wrap(node.ErrTransferFailed, err.Error())
	}

	updated := rec.Copy()
	updated.Tickets = append(updated.Tickets, buyer)
	updated.Amount += paid
	updated.UpdatedAt = now

	if err := reg.Save(ctx, updated); err != nil {
		// Return the collected value so a failed purchase leaves no trace.
		if rerr := vt.Send(ctx, buyer, paid); rerr != nil {
			return nil, errors.Wrapf(rerr, "refund failed after save failure : %s", err)
		}
		return nil, err
	}

	movement := state.Movement{
		RecordID:  id,
		Type:      state.MovementDeposit,
		From:      buyer,
		Amount:    paid,
		Timestamp: now,
	}
	if err := reg.AddMovement(ctx, &movement); err != nil {
		return nil, errors.Wrap(err, "Failed to record movement")
	}

	return updated, nil
}

// Draw assigns the winner once the window has closed. Anyone may trigger
// it. The draw moves no value; the winner collects through ClaimPrize. A
// lottery that sold no tickets is cancelled.
func Draw(ctx context.Context, reg *registry.Registry, picker WinnerPicker,
	id uint64, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.lottery.Draw")
	defer span.End()

	rec, err := custody.FetchKind(ctx, reg, id, state.KindLottery)
	if err != nil {
		return nil, err
	}

	if rec.Status.Terminal() {
		return nil, errors.Wrap(node.ErrInvalidState, "lottery is final")
	}
	if rec.Status != state.StatusActive {
		return nil, errors.Wrapf(node.ErrInvalidState, "cannot draw from %s", rec.Status)
	}
	if len(rec.Winner) > 0 {
		return nil, errors.Wrap(node.ErrInvalidState, "already drawn")
	}
	if rec.WindowEnd != 0 && now.Nano() < rec.WindowEnd.Nano() {
		return nil, errors.Wrap(node.ErrWindowViolation, "window not elapsed")
	}

	if len(rec.Tickets) == 0 {
		updated := rec.Copy()
		updated.Status = state.StatusCancelled
		updated.UpdatedAt = now
		if err := reg.Save(ctx, updated); err != nil {
			return nil, err
		}
		return updated, nil
	}

	index, err := picker.Pick(rec.ID, rec.Tickets, now)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to pick winner")
	}
	if index < 0 || index >= len(rec.Tickets) {
		return nil, errors.Wrapf(node.ErrInvalidInput, "picker chose %d of %d tickets", index, len(rec.Tickets))
	}

	updated := rec.Copy()
	updated.Winner = updated.Tickets[index]
	updated.SetParty(state.RoleBeneficiary, updated.Winner)
	updated.UpdatedAt = now

	if err := reg.Save(ctx, updated); err != nil {
		return nil, err
	}

	return updated, nil
}

// ClaimPrize pays the drawn winner the pot minus the owner's fee. The
// record goes terminal on payment, so a prize can only be collected once.
func ClaimPrize(ctx context.Context, reg *registry.Registry, vt ledger.ValueTransfer,
	id uint64, caller string, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.lottery.ClaimPrize")
	defer span.End()

	rec, err := custody.FetchKind(ctx, reg, id, state.KindLottery)
	if err != nil {
		return nil, err
	}

	if rec.Status.Terminal() {
		return nil, errors.Wrap(node.ErrInvalidState, "prize already collected")
	}
	if rec.Status != state.StatusActive {
		return nil, errors.Wrapf(node.ErrInvalidState, "cannot claim from %s", rec.Status)
	}
	if len(rec.Winner) == 0 {
		return nil, errors.Wrap(node.ErrInvalidState, "not drawn yet")
	}
	if caller != rec.Winner {
		return nil, errors.Wrap(node.ErrNotAuthorized, "caller is not the winner")
	}

	shares, err := custody.SplitShares(rec.Amount, rec.FeePercent, 0)
	if err != nil {
		return nil, err
	}

	owner := rec.Party(state.RoleInitiator)
	payouts := []custody.Payout{
		{To: owner, Amount: shares.Fee, Movement: state.MovementFee},
		{To: rec.Winner, Amount: shares.Beneficiary, Movement: state.MovementPrize},
	}

	return custody.Disburse(ctx, reg, vt, rec, payouts, state.StatusCompleted, now)
}

// Cancel withdraws a lottery before any ticket has been sold.
func Cancel(ctx context.Context, reg *registry.Registry, id uint64, caller string,
	now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.lottery.Cancel")
	defer span.End()

	if _, err := custody.FetchKind(ctx, reg, id, state.KindLottery); err != nil {
		return nil, err
	}

	return custody.Cancel(ctx, reg, id, caller, now)
}
