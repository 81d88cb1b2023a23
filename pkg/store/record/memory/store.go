package memory

import (
	"context"
	"sync"

	"github.com/marmos91/dittodir/pkg/directory"
	"github.com/marmos91/dittodir/pkg/store/record"
)

// MemoryRecordStore implements record.RecordStore with in-memory maps.
//
// It is suitable for tests, development and ephemeral deployments. Records
// are deep-copied on the way in and out, so callers never share payload
// slices with the store.
//
// Thread Safety:
// All operations are protected by a single read-write mutex.
type MemoryRecordStore struct {
	mu sync.RWMutex

	// records maps record ID to the stored record
	records map[string]*directory.Record

	// slots maps a record key (owner, kind, full path) to its record ID
	slots map[string]string
}

// NewMemoryRecordStore creates an empty store.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		records: make(map[string]*directory.Record),
		slots:   make(map[string]string),
	}
}

func (s *MemoryRecordStore) FindAllByOwner(ctx context.Context, owner string) ([]*directory.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*directory.Record, 0)
	for _, rec := range s.records {
		if rec.Owner == owner {
			out = append(out, rec.Clone())
		}
	}
	record.SortRecords(out)
	return out, nil
}

func (s *MemoryRecordStore) FindOne(ctx context.Context, kind directory.Kind, owner, fullPath string) (*directory.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	probe := directory.Record{Owner: owner, Kind: kind, FullPath: fullPath}
	id, ok := s.slots[probe.Key()]
	if !ok {
		return nil, record.NotFound(fullPath)
	}
	return s.records[id].Clone(), nil
}

func (s *MemoryRecordStore) SaveAll(ctx context.Context, records []*directory.Record) ([]*directory.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	batch, err := record.PrepareBatch(records)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	saved := make([]*directory.Record, 0, len(batch))
	for _, rec := range batch {
		key := rec.Key()

		if rec.ID != "" {
			if previous, ok := s.records[rec.ID]; ok {
				delete(s.slots, previous.Key())
			}
		} else if id, ok := s.slots[key]; ok {
			rec.ID = id
		} else {
			rec.ID = record.NewID()
		}

		if occupant, ok := s.slots[key]; ok && occupant != rec.ID {
			delete(s.records, occupant)
		}

		s.records[rec.ID] = rec
		s.slots[key] = rec.ID
		saved = append(saved, rec.Clone())
	}
	return saved, nil
}

func (s *MemoryRecordStore) DeleteAll(ctx context.Context, records []*directory.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		if rec == nil {
			continue
		}
		id := rec.ID
		if id == "" {
			id = s.slots[rec.Key()]
		}
		stored, ok := s.records[id]
		if !ok {
			continue
		}
		delete(s.slots, stored.Key())
		delete(s.records, id)
	}
	return nil
}

func (s *MemoryRecordStore) Healthcheck(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryRecordStore) Close() error {
	return nil
}

// Len returns the number of stored records.
func (s *MemoryRecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
