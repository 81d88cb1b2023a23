// Package record defines the persistence contract for flat directory
// records and the helpers shared by its implementations.
//
// Implementations live in sub-packages (memory, badger, s3, sqlstore) and are
// verified against the shared conformance suite in record/testing.
package record

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/marmos91/dittodir/pkg/directory"
)

// RecordStore persists directory records.
//
// Record identity is (Owner, Kind, FullPath), called the record's slot.
// Every record also carries a store-assigned ID that survives renames.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type RecordStore interface {
	// FindAllByOwner returns every record of owner, ordered by full path
	// and then kind. An owner without records yields an empty slice.
	FindAllByOwner(ctx context.Context, owner string) ([]*directory.Record, error)

	// FindOne returns the record occupying the given slot.
	//
	// Returns ErrNotFound if the slot is empty.
	FindOne(ctx context.Context, kind directory.Kind, owner, fullPath string) (*directory.Record, error)

	// SaveAll upserts records and returns the stored copies.
	//
	// All records are validated before anything is written. For each record:
	//   - with an ID that is already stored: that entry is replaced, which
	//     releases its previous slot (this is how renames move records)
	//   - without an ID: the occupant of its slot keeps its ID and is
	//     replaced, or a new ID is generated
	//   - any other record occupying the target slot is evicted
	//
	// The input records are not modified.
	SaveAll(ctx context.Context, records []*directory.Record) ([]*directory.Record, error)

	// DeleteAll removes records, matching by ID when set and by slot
	// otherwise. Records that are not stored are ignored.
	DeleteAll(ctx context.Context, records []*directory.Record) error

	// Healthcheck verifies that the backend is reachable.
	Healthcheck(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

// PrepareBatch validates records and returns deep copies ready to be
// written. Records without an ID keep it empty; the caller resolves it.
func PrepareBatch(records []*directory.Record) ([]*directory.Record, error) {
	prepared := make([]*directory.Record, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			return nil, &StoreError{Code: ErrInvalidArgument, Message: "nil record"}
		}
		if err := rec.Validate(); err != nil {
			return nil, &StoreError{Code: ErrInvalidArgument, Message: err.Error(), Path: rec.FullPath}
		}
		prepared = append(prepared, rec.Clone())
	}
	return prepared, nil
}

// NewID generates a record ID.
func NewID() string {
	return uuid.NewString()
}

// SortRecords orders records the way FindAllByOwner must return them.
func SortRecords(records []*directory.Record) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].FullPath != records[j].FullPath {
			return records[i].FullPath < records[j].FullPath
		}
		return records[i].Kind < records[j].Kind
	})
}

// NormalizeLoaded fixes up a record read back from a backend that cannot
// tell an empty payload from a missing one.
func NormalizeLoaded(rec *directory.Record) *directory.Record {
	if rec.Kind == directory.KindFile && rec.Payload == nil {
		rec.Payload = []byte{}
	}
	if rec.Kind == directory.KindFolder && len(rec.Payload) == 0 {
		rec.Payload = nil
	}
	return rec
}
