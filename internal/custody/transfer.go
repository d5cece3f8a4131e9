package custody

import (
	"context"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/ledger"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/node"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/state"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/registry"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/zap"
)

var (
	// ErrInsolvent occurs when the custody pool holds less than the sum
	// owed across all non-terminal records. Disbursals refuse to run until
	// the books balance again.
	ErrInsolvent = errors.New("Custody pool insolvent")
)

// Disburse moves held value out of a record and into its terminal status.
// The bookkeeping mutation is committed first, then the transfer is
// attempted; if the transfer fails the bookkeeping is rolled back and the
// record reads exactly as before the call. The caller must already have
// verified the transition guards and must hold the record's operation lock
// so no other mutation interleaves between commit and rollback.
//
// Mutations that belong to the terminal transition, such as recording the
// winner, go in stage functions. They are applied to the working copy only,
// never to the fetched record, so the rollback restores a record without
// them.
func Disburse(ctx context.Context, reg *registry.Registry, vt ledger.ValueTransfer,
	rec *state.CustodyRecord, payouts []Payout, final state.Status,
	now state.Timestamp, stage ...func(*state.CustodyRecord)) (*state.CustodyRecord, error) {

	ctx, span := trace.StartSpan(ctx, "internal.custody.Disburse")
	defer span.End()

	if !final.Terminal() {
		return nil, errors.New("Disburse requires a terminal status")
	}

	var total uint64
	payments := make([]ledger.Payment, 0, len(payouts))
	for _, p := range payouts {
		if p.Amount == 0 {
			continue
		}
		total += p.Amount
		payments = append(payments, ledger.Payment{To: p.To, Amount: p.Amount})
	}

	if total != rec.Amount {
		return nil, errors.Wrapf(node.ErrInvalidState,
			"payouts total %d, record holds %d", total, rec.Amount)
	}

	// Solvency invariant. The pool must cover everything still owed.
	held, err := vt.Held(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read custody pool")
	}
	outstanding, err := reg.OutstandingTotal(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to sum outstanding")
	}
	if held < outstanding {
		return nil, errors.Wrapf(ErrInsolvent, "pool holds %d, owes %d", held, outstanding)
	}

	prior := rec.Copy()

	updated := rec.Copy()
	for _, apply := range stage {
		apply(updated)
	}
	updated.Amount = 0
	updated.Status = final
	updated.UpdatedAt = now

	if err := reg.Save(ctx, updated); err != nil {
		return nil, errors.Wrap(err, "Failed to save record")
	}

	if err := vt.Disburse(ctx, payments); err != nil {
		// Roll back the bookkeeping so a failed transfer leaves no trace.
		if rerr := reg.Save(ctx, prior); rerr != nil {
			return nil, errors.Wrapf(rerr, "rollback failed after transfer failure : %s", err)
		}
		return nil, errors.Wrap(node.ErrTransferFailed, err.Error())
	}

	for _, p := range payouts {
		if p.Amount == 0 {
			continue
		}
		movement := state.Movement{
			RecordID:  rec.ID,
			Type:      p.Movement,
			To:        p.To,
			Amount:    p.Amount,
			Timestamp: now,
		}
		if err := reg.AddMovement(ctx, &movement); err != nil {
			return nil, errors.Wrap(err, "Failed to record movement")
		}
	}

	node.Logger(ctx).Info("Disbursed",
		zap.Uint64("record_id", rec.ID),
		zap.String("kind", rec.Kind),
		zap.String("status", final.String()),
		zap.Uint64("amount", total),
		zap.Int("payouts", len(payments)))

	return updated, nil
}
