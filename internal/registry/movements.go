package registry

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/db"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/state"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"golang.org/x/crypto/blake2b"
)

// AddMovement appends a movement to a record's history and stamps it with a
// content hash receipt. The history is append only; entries are never
// rewritten.
func (r *Registry) AddMovement(ctx context.Context, m *state.Movement) error {
	ctx, span := trace.StartSpan(ctx, "internal.registry.AddMovement")
	defer span.End()

	m.Receipt = movementReceipt(m)

	history, err := r.Movements(ctx, m.RecordID)
	if err != nil {
		return err
	}
	history = append(history, *m)

	b, err := json.Marshal(history)
	if err != nil {
		return errors.Wrap(err, "Failed to serialize movements")
	}

	return r.db.Put(ctx, buildMovementPath(m.RecordID), b)
}

// Movements returns the movement history for a record, oldest first.
func (r *Registry) Movements(ctx context.Context, id uint64) ([]state.Movement, error) {
	ctx, span := trace.StartSpan(ctx, "internal.registry.Movements")
	defer span.End()

	b, err := r.db.Fetch(ctx, buildMovementPath(id))
	if err != nil {
		if err == db.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}

	var history []state.Movement
	if err := json.Unmarshal(b, &history); err != nil {
		return nil, errors.Wrap(err, "Failed to deserialize movements")
	}

	return history, nil
}

func movementReceipt(m *state.Movement) string {
	content := fmt.Sprintf("%d|%s|%s|%s|%d|%d",
		m.RecordID, m.Type, m.From, m.To, m.Amount, m.Timestamp.Nano())
	digest := blake2b.Sum256([]byte(content))
	return hex.EncodeToString(digest[:])
}

func buildMovementPath(id uint64) string {
	return fmt.Sprintf("%s/%s/%016x", storageKey, movementsSubKey, id)
}
