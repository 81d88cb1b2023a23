// Package service runs directory and file operations for one owner at a
// time: it loads the owner's records, rebuilds the tree, applies the
// operation and writes back only the records that changed.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/dittodir/internal/logger"
	"github.com/marmos91/dittodir/pkg/directory"
	"github.com/marmos91/dittodir/pkg/metrics"
	"github.com/marmos91/dittodir/pkg/store/record"
)

// OwnerLocks serializes the operations of each owner. Reads share the lock;
// mutations hold it exclusively from load to write-back.
//
// Entries are reference counted and dropped once no operation holds or waits
// on them, so the table only tracks owners with work in flight.
type OwnerLocks struct {
	mu    sync.Mutex
	locks map[string]*ownerLock
}

type ownerLock struct {
	sync.RWMutex
	refs int
}

// NewOwnerLocks returns an empty lock table.
func NewOwnerLocks() *OwnerLocks {
	return &OwnerLocks{locks: make(map[string]*ownerLock)}
}

func (l *OwnerLocks) acquire(owner string) *ownerLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[owner]
	if !ok {
		lock = &ownerLock{}
		l.locks[owner] = lock
	}
	lock.refs++
	return lock
}

func (l *OwnerLocks) release(owner string, lock *ownerLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, owner)
	}
}

// Lock acquires owner's lock exclusively and returns the matching unlock.
func (l *OwnerLocks) Lock(owner string) func() {
	lock := l.acquire(owner)
	lock.Lock()
	return func() {
		lock.Unlock()
		l.release(owner, lock)
	}
}

// RLock acquires owner's lock shared and returns the matching unlock.
func (l *OwnerLocks) RLock(owner string) func() {
	lock := l.acquire(owner)
	lock.RLock()
	return func() {
		lock.RUnlock()
		l.release(owner, lock)
	}
}

// Len returns the number of owners with an operation in flight.
func (l *OwnerLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// New returns a DirectoryService and a FileService sharing store, metrics
// and owner locks.
func New(store record.RecordStore, m metrics.DirectoryMetrics) (*DirectoryService, *FileService) {
	locks := NewOwnerLocks()
	return NewDirectoryService(store, m, locks), NewFileService(store, m, locks)
}

// base carries what both services need.
type base struct {
	store   record.RecordStore
	metrics metrics.DirectoryMetrics
	locks   *OwnerLocks
}

func newBase(store record.RecordStore, m metrics.DirectoryMetrics, locks *OwnerLocks) base {
	if m == nil {
		m = metrics.NewNoopDirectoryMetrics()
	}
	if locks == nil {
		locks = NewOwnerLocks()
	}
	return base{store: store, metrics: m, locks: locks}
}

// load fetches owner's records and rebuilds the tree. Any failure is
// reported as ErrDirectoryAccess wrapping the cause.
func (b *base) load(ctx context.Context, owner string) (*directory.Directory, error) {
	start := time.Now()
	records, err := b.store.FindAllByOwner(ctx, owner)
	b.metrics.RecordStoreOperation("FindAllByOwner", len(records), time.Since(start), err)
	if err != nil {
		return nil, accessError(owner, "failed to load records", err)
	}

	dir, err := directory.Expand(records, owner)
	if err != nil {
		return nil, accessError(owner, "failed to rebuild directory", err)
	}

	folders, files := dir.Count()
	b.metrics.SetTreeSize(folders + files + 1)
	return dir, nil
}

func (b *base) save(ctx context.Context, owner string, records []*directory.Record) error {
	start := time.Now()
	_, err := b.store.SaveAll(ctx, records)
	b.metrics.RecordStoreOperation("SaveAll", len(records), time.Since(start), err)
	if err != nil {
		return accessError(owner, "failed to save records", err)
	}
	return nil
}

func (b *base) delete(ctx context.Context, owner string, records []*directory.Record) error {
	start := time.Now()
	err := b.store.DeleteAll(ctx, records)
	b.metrics.RecordStoreOperation("DeleteAll", len(records), time.Since(start), err)
	if err != nil {
		return accessError(owner, "failed to delete records", err)
	}
	return nil
}

// findFile looks up a file record; a missing record yields nil, nil.
func (b *base) findFile(ctx context.Context, owner, fullPath string) (*directory.Record, error) {
	start := time.Now()
	rec, err := b.store.FindOne(ctx, directory.KindFile, owner, fullPath)
	if record.IsNotFound(err) {
		b.metrics.RecordStoreOperation("FindOne", 0, time.Since(start), nil)
		return nil, nil
	}
	b.metrics.RecordStoreOperation("FindOne", 1, time.Since(start), err)
	if err != nil {
		return nil, accessError(owner, "failed to find file record", err)
	}
	return rec, nil
}

// begin logs the start of op and returns the function that records its
// outcome.
func (b *base) begin(op, owner, target string) func(err error) {
	logger.Debug(">> %s: owner=%s target=%s", op, owner, target)
	start := time.Now()

	return func(err error) {
		duration := time.Since(start)
		b.metrics.RecordOperation(op, duration, err)

		switch {
		case err == nil:
			logger.Debug("<< %s: owner=%s target=%s duration=%s", op, owner, target, duration)
		case isClientError(err):
			logger.Debug("<< %s failed: owner=%s target=%s error=%v", op, owner, target, err)
		default:
			logger.Error("%s failed: owner=%s target=%s error=%v", op, owner, target, err)
		}
	}
}

func accessError(owner, message string, cause error) error {
	return &directory.DirectoryError{
		Code:    directory.ErrDirectoryAccess,
		Message: message + " for owner " + owner,
		Cause:   cause,
	}
}

func requireOwner(owner string) error {
	if owner == "" {
		return directory.NewError(directory.ErrInvalidRecord, "owner is required")
	}
	return nil
}

// isClientError reports whether err was caused by the request rather than
// by the service or its store.
func isClientError(err error) bool {
	code, ok := directory.CodeOf(err)
	if !ok {
		return false
	}
	switch code {
	case directory.ErrDirectoryAccess, directory.ErrDataIntegrity, directory.ErrInternal:
		return false
	}
	return true
}
