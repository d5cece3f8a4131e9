package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/db"
	"github.com/Vandelay-Technologies/vandelay-smart-contracts/internal/platform/state"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

const (
	storageKey         = "custody"
	recordsSubKey      = "records"
	participantsSubKey = "participants"
	movementsSubKey    = "movements"
	sequenceKey        = "custody/sequence"
)

var (
	// ErrNotFound abstracts the standard not found error.
	ErrNotFound = errors.New("Record not found")
)

// Registry owns the id -> record mapping, the participant indices and the
// append only movement history. No transition logic lives here; it is pure
// storage plus indices. It is also the sole owner of id assignment through
// its sequence generator.
type Registry struct {
	db *db.DB

	seqLock sync.Mutex
}

// New returns a Registry over the given db.
func New(dbConn *db.DB) *Registry {
	return &Registry{db: dbConn}
}

// NextID assigns the next record id from the persisted sequence.
func (r *Registry) NextID(ctx context.Context) (uint64, error) {
	ctx, span := trace.StartSpan(ctx, "internal.registry.NextID")
	defer span.End()

	r.seqLock.Lock()
	defer r.seqLock.Unlock()

	var seq uint64
	b, err := r.db.Fetch(ctx, sequenceKey)
	if err == nil {
		seq, err = strconv.ParseUint(string(b), 10, 64)
		if err != nil {
			return 0, errors.Wrap(err, "Failed to parse sequence")
		}
	} else if err != db.ErrNotFound {
		return 0, errors.Wrap(err, "Failed to fetch sequence")
	}

	seq++
	if err := r.db.Put(ctx, sequenceKey, []byte(strconv.FormatUint(seq, 10))); err != nil {
		return 0, errors.Wrap(err, "Failed to save sequence")
	}

	return seq, nil
}

// Save puts a record in storage and refreshes the participant indices.
func (r *Registry) Save(ctx context.Context, rec *state.CustodyRecord) error {
	ctx, span := trace.StartSpan(ctx, "internal.registry.Save")
	defer span.End()

	b, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "Failed to serialize record")
	}

	if err := r.db.Put(ctx, buildRecordPath(rec.ID), b); err != nil {
		return errors.Wrap(err, "Failed to save record")
	}

	for _, address := range participants(rec) {
		if err := r.index(ctx, address, rec.ID); err != nil {
			return err
		}
	}

	return nil
}

// Fetch returns a single record from storage.
func (r *Registry) Fetch(ctx context.Context, id uint64) (*state.CustodyRecord, error) {
	ctx, span := trace.StartSpan(ctx, "internal.registry.Fetch")
	defer span.End()

	b, err := r.db.Fetch(ctx, buildRecordPath(id))
	if err != nil {
		if err == db.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rec := state.CustodyRecord{}
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, errors.Wrap(err, "Failed to deserialize record")
	}

	if rec.Parties == nil {
		rec.Parties = make(map[state.Role]string)
	}
	if rec.Approvals == nil {
		rec.Approvals = make(map[string]bool)
	}

	return &rec, nil
}

// List returns all stored records.
func (r *Registry) List(ctx context.Context) ([]*state.CustodyRecord, error) {
	ctx, span := trace.StartSpan(ctx, "internal.registry.List")
	defer span.End()

	bodies, err := r.db.Search(ctx, fmt.Sprintf("%s/%s", storageKey, recordsSubKey))
	if err != nil {
		return nil, err
	}

	result := make([]*state.CustodyRecord, 0, len(bodies))
	for _, b := range bodies {
		rec := state.CustodyRecord{}
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, errors.Wrap(err, "Failed to deserialize record")
		}
		result = append(result, &rec)
	}

	return result, nil
}

// ByParticipant returns the ids of all records an address participates in.
func (r *Registry) ByParticipant(ctx context.Context, address string) ([]uint64, error) {
	ctx, span := trace.StartSpan(ctx, "internal.registry.ByParticipant")
	defer span.End()

	b, err := r.db.Fetch(ctx, buildParticipantPath(address))
	if err != nil {
		if err == db.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}

	var ids []uint64
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, errors.Wrap(err, "Failed to deserialize index")
	}

	return ids, nil
}

// OutstandingTotal sums the held amount over all non-terminal records. The
// solvency invariant requires this to equal the ledger's custody balance.
func (r *Registry) OutstandingTotal(ctx context.Context) (uint64, error) {
	ctx, span := trace.StartSpan(ctx, "internal.registry.OutstandingTotal")
	defer span.End()

	records, err := r.List(ctx)
	if err != nil {
		return 0, err
	}

	var total uint64
	for _, rec := range records {
		if rec.Status.Terminal() {
			continue
		}
		total += rec.Amount
	}

	return total, nil
}

// index appends a record id to a participant's list if not yet present.
func (r *Registry) index(ctx context.Context, address string, id uint64) error {
	ids, err := r.ByParticipant(ctx, address)
	if err != nil {
		return err
	}

	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	ids = append(ids, id)

	b, err := json.Marshal(ids)
	if err != nil {
		return errors.Wrap(err, "Failed to serialize index")
	}

	return r.db.Put(ctx, buildParticipantPath(address), b)
}

func participants(rec *state.CustodyRecord) []string {
	seen := make(map[string]bool)
	var result []string

	add := func(address string) {
		if len(address) == 0 || seen[address] {
			return
		}
		seen[address] = true
		result = append(result, address)
	}

	for _, address := range rec.Parties {
		add(address)
	}
	for _, b := range rec.Bids {
		add(b.Bidder)
	}
	for _, t := range rec.Tickets {
		add(t)
	}

	return result
}

func buildRecordPath(id uint64) string {
	return fmt.Sprintf("%s/%s/%016x", storageKey, recordsSubKey, id)
}

func buildParticipantPath(address string) string {
	return fmt.Sprintf("%s/%s/%s", storageKey, participantsSubKey, address)
}
