package badger

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/dittodir/internal/logger"
	"github.com/marmos91/dittodir/pkg/directory"
	"github.com/marmos91/dittodir/pkg/store/record"
)

// BadgerRecordStore implements record.RecordStore on top of BadgerDB.
//
// It is the persistent single-node backend: records survive restarts and
// every SaveAll or DeleteAll batch is applied in one ACID transaction, so a
// rename either moves the whole subtree or nothing.
//
// Thread Safety:
// BadgerDB transactions are safe for concurrent use; the store holds no
// other mutable state.
type BadgerRecordStore struct {
	db *badger.DB
}

// BadgerRecordStoreConfig contains configuration for creating a BadgerDB
// record store.
type BadgerRecordStoreConfig struct {
	// DBPath is the directory where BadgerDB stores its files
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps the database in memory only (DBPath is ignored)
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_mb"`
}

// NewBadgerRecordStore opens (or creates) a BadgerDB record store.
func NewBadgerRecordStore(ctx context.Context, config BadgerRecordStoreConfig) (*BadgerRecordStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if config.DBPath == "" && !config.InMemory {
		return nil, fmt.Errorf("badger record store: db_path is required")
	}

	opts := badger.DefaultOptions(config.DBPath)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)
	opts = opts.WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	logger.Debug("Badger record store opened: path=%s in_memory=%t", config.DBPath, config.InMemory)
	return &BadgerRecordStore{db: db}, nil
}

func (s *BadgerRecordStore) FindAllByOwner(ctx context.Context, owner string) ([]*directory.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]*directory.Record, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyOwnerPrefix(owner)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := getRecord(txn, string(id))
			if err != nil {
				return err
			}
			if rec == nil {
				logger.Warn("Badger record store: dangling slot %q -> %s", it.Item().Key(), id)
				continue
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, record.IOError("find records by owner", err)
	}

	record.SortRecords(out)
	return out, nil
}

func (s *BadgerRecordStore) FindOne(ctx context.Context, kind directory.Kind, owner, fullPath string) (*directory.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *directory.Record
	err := s.db.View(func(txn *badger.Txn) error {
		id, err := getSlot(txn, keySlot(owner, kind, fullPath))
		if err != nil || id == "" {
			return err
		}
		rec, err = getRecord(txn, id)
		return err
	})
	if err != nil {
		return nil, record.IOError("find record", err)
	}
	if rec == nil {
		return nil, record.NotFound(fullPath)
	}
	return rec, nil
}

func (s *BadgerRecordStore) SaveAll(ctx context.Context, records []*directory.Record) ([]*directory.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	batch, err := record.PrepareBatch(records)
	if err != nil {
		return nil, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, rec := range batch {
			slot := keySlotOf(rec)

			if rec.ID != "" {
				previous, err := getRecord(txn, rec.ID)
				if err != nil {
					return err
				}
				if previous != nil {
					if err := txn.Delete(keySlotOf(previous)); err != nil {
						return err
					}
				}
			} else {
				id, err := getSlot(txn, slot)
				if err != nil {
					return err
				}
				if id == "" {
					id = record.NewID()
				}
				rec.ID = id
			}

			occupant, err := getSlot(txn, slot)
			if err != nil {
				return err
			}
			if occupant != "" && occupant != rec.ID {
				if err := txn.Delete(keyRecord(occupant)); err != nil {
					return err
				}
			}

			data, err := encodeRecord(rec)
			if err != nil {
				return err
			}
			if err := txn.Set(keyRecord(rec.ID), data); err != nil {
				return err
			}
			if err := txn.Set(slot, []byte(rec.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, record.IOError("save records", err)
	}

	saved := make([]*directory.Record, 0, len(batch))
	for _, rec := range batch {
		saved = append(saved, rec.Clone())
	}
	return saved, nil
}

func (s *BadgerRecordStore) DeleteAll(ctx context.Context, records []*directory.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, rec := range records {
			if rec == nil {
				continue
			}
			id := rec.ID
			if id == "" {
				var err error
				if id, err = getSlot(txn, keySlotOf(rec)); err != nil {
					return err
				}
			}
			if id == "" {
				continue
			}

			stored, err := getRecord(txn, id)
			if err != nil {
				return err
			}
			if stored == nil {
				continue
			}
			if err := txn.Delete(keySlotOf(stored)); err != nil {
				return err
			}
			if err := txn.Delete(keyRecord(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return record.IOError("delete records", err)
	}
	return nil
}

func (s *BadgerRecordStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		return nil
	})
	if err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}

func (s *BadgerRecordStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

// getSlot returns the ID stored under a slot key, or "" when the slot is free.
func getSlot(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	id, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(id), nil
}

// getRecord loads a record by ID, or nil when it does not exist.
func getRecord(txn *badger.Txn, id string) (*directory.Record, error) {
	item, err := txn.Get(keyRecord(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec *directory.Record
	err = item.Value(func(val []byte) error {
		var decodeErr error
		rec, decodeErr = decodeRecord(val)
		return decodeErr
	})
	return rec, err
}
