package node

import (
	"context"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/state"

	"github.com/google/uuid"
)

// ctxKey represents the type of value for the context key.
type ctxKey int

// KeyValues is how request values are stored/retrieved.
const KeyValues ctxKey = 1

// Values represent state for each request. Now is the single time snapshot
// for the whole operation; every window comparison within one operation
// must use it rather than re-reading the clock.
type Values struct {
	TraceID string
	Now     state.Timestamp
}

// ContextWithValues returns a context carrying a new Values with the given
// time snapshot and a fresh trace id.
func ContextWithValues(ctx context.Context, now state.Timestamp) context.Context {
	v := Values{
		TraceID: uuid.New().String(),
		Now:     now,
	}
	return context.WithValue(ctx, KeyValues, &v)
}

// ValuesFromContext returns the request values, or a fresh Values with the
// current time when the context carries none.
func ValuesFromContext(ctx context.Context) *Values {
	v, ok := ctx.Value(KeyValues).(*Values)
	if !ok {
		return &Values{
			TraceID: uuid.New().String(),
			Now:     state.CurrentTimestamp(),
		}
	}
	return v
}
