// Package sqlstore implements record.RecordStore on an embedded SQL engine.
//
// Two engines are supported through database/sql: DuckDB (driver "duckdb",
// columnar, good for analytics over large trees) and SQLite (driver
// "sqlite", pure Go, no cgo). Both share the same schema and statements.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/marmos91/dittodir/internal/logger"
	"github.com/marmos91/dittodir/pkg/directory"
	"github.com/marmos91/dittodir/pkg/store/record"

	_ "github.com/marcboeker/go-duckdb"
	_ "modernc.org/sqlite"
)

const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite"
)

// The table carries no unique constraints: slot and ID uniqueness are
// enforced by SaveAll deleting before inserting inside one transaction.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS directory_records (
		id            TEXT NOT NULL,
		owner         TEXT NOT NULL,
		kind          TEXT NOT NULL,
		discriminator TEXT NOT NULL,
		full_path     TEXT NOT NULL,
		parent_path   TEXT NOT NULL,
		payload       BLOB
	)`,
	`CREATE INDEX IF NOT EXISTS directory_records_slot ON directory_records (owner, kind, full_path)`,
	`CREATE INDEX IF NOT EXISTS directory_records_id ON directory_records (id)`,
}

const (
	selectColumns = `SELECT id, owner, kind, discriminator, full_path, parent_path, payload FROM directory_records`

	queryByOwner  = selectColumns + ` WHERE owner = ? ORDER BY full_path, kind`
	queryBySlot   = selectColumns + ` WHERE owner = ? AND kind = ? AND full_path = ?`
	queryIDBySlot = `SELECT id FROM directory_records WHERE owner = ? AND kind = ? AND full_path = ?`

	deleteByID   = `DELETE FROM directory_records WHERE id = ?`
	deleteBySlot = `DELETE FROM directory_records WHERE owner = ? AND kind = ? AND full_path = ?`

	insertRecord = `INSERT INTO directory_records (id, owner, kind, discriminator, full_path, parent_path, payload) VALUES (?, ?, ?, ?, ?, ?, ?)`
)

// SQLRecordStoreConfig configures a SQL record store.
type SQLRecordStoreConfig struct {
	// Driver is the database/sql driver name: "duckdb" or "sqlite"
	Driver string `mapstructure:"driver"`

	// DSN is the data source name, usually a database file path.
	// An empty DSN opens an in-memory DuckDB database.
	DSN string `mapstructure:"dsn"`
}

// SQLRecordStore implements record.RecordStore on database/sql.
//
// Thread Safety:
// database/sql pools connections and is safe for concurrent use. SQLite is
// limited to a single connection so writers never contend for the file lock.
type SQLRecordStore struct {
	db     *sql.DB
	driver string
}

// NewSQLRecordStore opens the database and creates the schema if needed.
func NewSQLRecordStore(ctx context.Context, config SQLRecordStoreConfig) (*SQLRecordStore, error) {
	switch config.Driver {
	case DriverDuckDB:
	case DriverSQLite:
		if config.DSN == "" {
			return nil, fmt.Errorf("sqlite record store: dsn is required")
		}
	default:
		return nil, fmt.Errorf("unknown SQL driver: %q (supported: duckdb, sqlite)", config.Driver)
	}

	db, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", config.Driver, err)
	}
	if config.Driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize %s schema: %w", config.Driver, err)
		}
	}

	logger.Debug("SQL record store opened: driver=%s dsn=%s", config.Driver, config.DSN)
	return &SQLRecordStore{db: db, driver: config.Driver}, nil
}

func (s *SQLRecordStore) FindAllByOwner(ctx context.Context, owner string) ([]*directory.Record, error) {
	rows, err := s.db.QueryContext(ctx, queryByOwner, owner)
	if err != nil {
		return nil, record.IOError("find records by owner", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]*directory.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, record.IOError("scan record", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, record.IOError("find records by owner", err)
	}

	record.SortRecords(out)
	return out, nil
}

func (s *SQLRecordStore) FindOne(ctx context.Context, kind directory.Kind, owner, fullPath string) (*directory.Record, error) {
	row := s.db.QueryRowContext(ctx, queryBySlot, owner, string(kind), fullPath)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, record.NotFound(fullPath)
	}
	if err != nil {
		return nil, record.IOError("find record", err)
	}
	return rec, nil
}

func (s *SQLRecordStore) SaveAll(ctx context.Context, records []*directory.Record) ([]*directory.Record, error) {
	batch, err := record.PrepareBatch(records)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, record.IOError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, rec := range batch {
		if rec.ID != "" {
			if _, err := tx.ExecContext(ctx, deleteByID, rec.ID); err != nil {
				return nil, record.IOError("release previous slot", err)
			}
		} else {
			var id string
			err := tx.QueryRowContext(ctx, queryIDBySlot, rec.Owner, string(rec.Kind), rec.FullPath).Scan(&id)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				id = record.NewID()
			case err != nil:
				return nil, record.IOError("resolve record id", err)
			}
			rec.ID = id
		}

		if _, err := tx.ExecContext(ctx, deleteBySlot, rec.Owner, string(rec.Kind), rec.FullPath); err != nil {
			return nil, record.IOError("evict slot occupant", err)
		}

		// Empty payloads are stored as NULL and restored by NormalizeLoaded.
		var payload any
		if len(rec.Payload) > 0 {
			payload = rec.Payload
		}
		if _, err := tx.ExecContext(ctx, insertRecord,
			rec.ID, rec.Owner, string(rec.Kind), rec.Discriminator, rec.FullPath, rec.ParentPath, payload); err != nil {
			return nil, record.IOError("insert record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, record.IOError("commit", err)
	}

	saved := make([]*directory.Record, 0, len(batch))
	for _, rec := range batch {
		saved = append(saved, rec.Clone())
	}
	return saved, nil
}

func (s *SQLRecordStore) DeleteAll(ctx context.Context, records []*directory.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return record.IOError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, rec := range records {
		if rec == nil {
			continue
		}
		if rec.ID != "" {
			_, err = tx.ExecContext(ctx, deleteByID, rec.ID)
		} else {
			_, err = tx.ExecContext(ctx, deleteBySlot, rec.Owner, string(rec.Kind), rec.FullPath)
		}
		if err != nil {
			return record.IOError("delete record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return record.IOError("commit", err)
	}
	return nil
}

func (s *SQLRecordStore) Healthcheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}

func (s *SQLRecordStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close %s database: %w", s.driver, err)
	}
	return nil
}

// Driver returns the database/sql driver name.
func (s *SQLRecordStore) Driver() string {
	return s.driver
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*directory.Record, error) {
	var (
		rec     directory.Record
		kind    string
		payload []byte
	)
	if err := row.Scan(&rec.ID, &rec.Owner, &kind, &rec.Discriminator, &rec.FullPath, &rec.ParentPath, &payload); err != nil {
		return nil, err
	}
	rec.Kind = directory.Kind(kind)
	rec.Payload = payload
	return record.NormalizeLoaded(&rec), nil
}
