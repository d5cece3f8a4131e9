package auction

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

// The auction template. Bids escrow their value; a strictly higher bid
// displaces the previous one and refunds it immediately, so exactly one
// bidder's value is ever held. Settlement is pull based: anyone may trigger
// it once the window has closed.

// Open lists an item for auction over the given window.
func Open(ctx context.Context, reg *registry.Registry, seller string,
	start, end state.Timestamp, description string, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.auction.Open")
	defer span.End()

	nr := custody.NewRecord{
		Kind:      state.KindAuction,
		Initiator: seller,
		Parties: map[state.Role]string{
			state.RoleBeneficiary: seller,
		},
		ZeroAmountOK:     true,
		ActiveAtCreation: true,
		WindowStart:      start,
		WindowEnd:        end,
		SettleAfterEnd:   true,
		Description:      description,
	}

	return custody.Create(ctx, reg, &nr, now)
}

// PlaceBid escrows a new highest bid. The displaced bidder is refunded
// before the new bid is accepted; if that refund fails the new bid fails
// too and nothing changes.
func PlaceBid(ctx context.Context, reg *registry.Registry, vt ledger.ValueTransfer,
	id uint64, bidder string, amount uint64, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.auction.PlaceBid")
	defer span.End()

	rec, err := custody.FetchKind(ctx, reg, id, state.KindAuction)
	if err != nil {
		return nil, err
	}

	if rec.Status.Terminal() {
		return nil, errors.Wrap(node.ErrInvalidState, "auction is final")
	}
	if rec.Status != state.StatusActive {
		return nil, errors.Wrapf(node.ErrInvalidState, "cannot bid from %s", rec.Status)
	}
	if rec.WindowStart != 0 && now.Nano() < rec.WindowStart.Nano() {
		return nil, errors.Wrap(node.ErrWindowViolation, "bidding not open")
	}
	if rec.WindowEnd != 0 && now.Nano() >= rec.WindowEnd.Nano() {
		return nil, errors.Wrap(node.ErrWindowViolation, "bidding closed")
	}
	if bidder == rec.Party(state.RoleBeneficiary) {
		return nil, errors.Wrap(node.ErrInvalidInput, "seller cannot bid")
	}
	if amount == 0 {
		return nil, errors.Wrap(node.ErrInvalidInput, "bid required")
	}

	high := rec.HighBid()
	if high != nil && amount <= high.Amount {
		return nil, errors.Wrapf(node.ErrInvalidInput, "bid too low, highest is %d", high.Amount)
	}

	// The new bid's value arrives first, then the displaced bid is
	// refunded. A failed refund unwinds the collection so no state change
	// survives.
	if err := vt.Collect(ctx, bidder, amount); err != nil {
		return nil, errors.Wrap(node.ErrTransferFailed, err.Error())
	}
	if high != nil {
		if err := vt.Send(ctx, high.Bidder, high.Amount); err != nil {
			if rerr := vt.Send(ctx, bidder, amount); rerr != nil {
				return nil, errors.Wrapf(rerr, "unwind failed after refund failure : %s", err)
			}
			return nil, errors.Wrap(node.ErrTransferFailed, err.Error())
		}
	}

	updated := rec.Copy()
	updated.Bids = append(updated.Bids, state.Bid{Bidder: bidder, Amount: amount, Timestamp: now})
	updated.SetParty(state.RoleDepositor, bidder)
	updated.Amount = amount
	updated.UpdatedAt = now

	if err := reg.Save(ctx, updated); err != nil {
		// Put the pool back the way it was so the stored record stays true
		// to the ledger.
		if high != nil {
			if cerr := vt.Collect(ctx, high.Bidder, high.Amount); cerr != nil {
				return nil, errors.Wrapf(cerr, "unwind failed after save failure : %s", err)
			}
		}
		if serr := vt.Send(ctx, bidder, amount); serr != nil {
			return nil, errors.Wrapf(serr, "unwind failed after save failure : %s", err)
		}
		return nil, err
	}

	if high != nil {
		refund := state.Movement{
			RecordID:  id,
			Type:      state.MovementBidRefund,
			To:        high.Bidder,
			Amount:    high.Amount,
			Timestamp: now,
		}
		if err := reg.AddMovement(ctx, &refund); err != nil {
			return nil, errors.Wrap(err, "Failed to record movement")
		}
	}
	deposit := state.Movement{
		RecordID:  id,
		Type:      state.MovementDeposit,
		From:      bidder,
		Amount:    amount,
		Timestamp: now,
	}
	if err := reg.AddMovement(ctx, &deposit); err != nil {
		return nil, errors.Wrap(err, "Failed to record movement")
	}

	return updated, nil
}

// Settle closes the auction after the window. Anyone may trigger it; the
// seller is paid the highest bid and the highest bidder becomes the winner.
// An auction with no bids is cancelled.
func Settle(ctx context.Context, reg *registry.Registry, vt ledger.ValueTransfer,
	id uint64, now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.auction.Settle")
	defer span.End()

	rec, err := custody.FetchKind(ctx, reg, id, state.KindAuction)
	if err != nil {
		return nil, err
	}

	if rec.Status.Terminal() {
		return nil, errors.Wrap(node.ErrInvalidState, "auction is final")
	}
	if rec.Status != state.StatusActive {
		return nil, errors.Wrapf(node.ErrInvalidState, "cannot settle from %s", rec.Status)
	}
	if rec.WindowEnd != 0 && now.Nano() < rec.WindowEnd.Nano() {
		return nil, errors.Wrap(node.ErrWindowViolation, "window not elapsed")
	}

	high := rec.HighBid()
	if high == nil {
		updated := rec.Copy()
		updated.Status = state.StatusCancelled
		updated.UpdatedAt = now
		if err := reg.Save(ctx, updated); err != nil {
			return nil, err
		}
		return updated, nil
	}

	seller := rec.Party(state.RoleBeneficiary)
	payouts := []custody.Payout{{To: seller, Amount: rec.Amount, Movement: state.MovementRelease}}

	// The winner is staged with the terminal transition so a failed payout
	// rolls it back along with everything else.
	return custody.Disburse(ctx, reg, vt, rec, payouts, state.StatusReleased, now,
		func(u *state.CustodyRecord) { u.Winner = high.Bidder })
}

// Cancel withdraws an auction before any bid has been placed.
func Cancel(ctx context.Context, reg *registry.Registry, id uint64, caller string,
	now state.Timestamp) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.auction.Cancel")
	defer span.End()

	if _, err := custody.FetchKind(ctx, reg, id, state.KindAuction); err != nil {
		return nil, err
	}

	return custody.Cancel(ctx, reg, id, caller, now)
}
