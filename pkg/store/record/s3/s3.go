package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/dittodir/internal/logger"
	"github.com/marmos91/dittodir/pkg/directory"
	"github.com/marmos91/dittodir/pkg/store/record"
	"golang.org/x/sync/errgroup"
)

// Client is the subset of the S3 API used by the store. *s3.Client
// satisfies it.
type Client interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3RecordStore implements record.RecordStore on an S3-compatible bucket.
//
// Every record is one JSON object:
//
//	<keyPrefix><escaped owner>/<id>.json
//
// so the records of an owner share a key prefix and a rename rewrites the
// object in place (the ID, and therefore the key, never changes).
//
// S3 has no multi-object transactions: a SaveAll batch is applied object by
// object. Writes for one owner must be serialized by the caller.
type S3RecordStore struct {
	client      Client
	bucket      string
	keyPrefix   string
	concurrency int
}

// S3RecordStoreConfig contains configuration for the S3 record store.
type S3RecordStoreConfig struct {
	// Client is the configured S3 client
	Client Client

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is prepended to every object key (e.g., "dittodir/")
	KeyPrefix string

	// Concurrency bounds parallel GetObject calls when loading an owner
	// (default: 16)
	Concurrency int
}

// NewS3RecordStore creates a store and verifies bucket access.
func NewS3RecordStore(ctx context.Context, cfg S3RecordStoreConfig) (*S3RecordStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 16
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3RecordStore{
		client:      cfg.Client,
		bucket:      cfg.Bucket,
		keyPrefix:   cfg.KeyPrefix,
		concurrency: concurrency,
	}, nil
}

// ownerPrefix returns the key prefix shared by all records of owner.
func (s *S3RecordStore) ownerPrefix(owner string) string {
	return s.keyPrefix + url.PathEscape(owner) + "/"
}

// objectKey returns the key of the record with the given owner and ID.
func (s *S3RecordStore) objectKey(owner, id string) string {
	return s.ownerPrefix(owner) + id + ".json"
}

func (s *S3RecordStore) FindAllByOwner(ctx context.Context, owner string) ([]*directory.Record, error) {
	records, err := s.loadOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make([]*directory.Record, 0, len(records))
	for _, rec := range records {
		out = append(out, rec)
	}
	record.SortRecords(out)
	return out, nil
}

func (s *S3RecordStore) FindOne(ctx context.Context, kind directory.Kind, owner, fullPath string) (*directory.Record, error) {
	records, err := s.loadOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Kind == kind && rec.FullPath == fullPath {
			return rec, nil
		}
	}
	return nil, record.NotFound(fullPath)
}

func (s *S3RecordStore) SaveAll(ctx context.Context, records []*directory.Record) ([]*directory.Record, error) {
	batch, err := record.PrepareBatch(records)
	if err != nil {
		return nil, err
	}

	// Resolve IDs and evictions against each owner's current records.
	states := make(map[string]*ownerState)
	var evicted []*directory.Record
	for _, rec := range batch {
		state, ok := states[rec.Owner]
		if !ok {
			loaded, err := s.loadOwner(ctx, rec.Owner)
			if err != nil {
				return nil, err
			}
			state = newOwnerState(loaded)
			states[rec.Owner] = state
		}
		evicted = append(evicted, state.apply(rec)...)
	}

	for _, rec := range batch {
		if err := s.putRecord(ctx, rec); err != nil {
			return nil, err
		}
	}
	for _, rec := range evicted {
		if _, reused := states[rec.Owner].byID[rec.ID]; reused {
			continue
		}
		if err := s.deleteObject(ctx, s.objectKey(rec.Owner, rec.ID)); err != nil {
			return nil, err
		}
	}

	saved := make([]*directory.Record, 0, len(batch))
	for _, rec := range batch {
		saved = append(saved, rec.Clone())
	}
	return saved, nil
}

func (s *S3RecordStore) DeleteAll(ctx context.Context, records []*directory.Record) error {
	loaded := make(map[string]map[string]*directory.Record)

	for _, rec := range records {
		if rec == nil {
			continue
		}
		id := rec.ID
		if id == "" {
			byID, ok := loaded[rec.Owner]
			if !ok {
				var err error
				if byID, err = s.loadOwner(ctx, rec.Owner); err != nil {
					return err
				}
				loaded[rec.Owner] = byID
			}
			for _, stored := range byID {
				if stored.Key() == rec.Key() {
					id = stored.ID
					break
				}
			}
		}
		if id == "" {
			continue
		}
		if err := s.deleteObject(ctx, s.objectKey(rec.Owner, id)); err != nil {
			return err
		}
	}
	return nil
}

func (s *S3RecordStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}

func (s *S3RecordStore) Close() error {
	return nil
}

// loadOwner lists and fetches every record object of owner, keyed by ID.
func (s *S3RecordStore) loadOwner(ctx context.Context, owner string) (map[string]*directory.Record, error) {
	prefix := s.ownerPrefix(owner)

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, record.IOError("list records", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, ".json") {
				keys = append(keys, key)
			}
		}
	}

	var mu sync.Mutex
	out := make(map[string]*directory.Record, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			rec, err := s.getRecord(gctx, key)
			if err != nil {
				return err
			}
			if rec == nil {
				return nil
			}
			if rec.Owner != owner {
				logger.Warn("S3 record store: object %s belongs to owner %q, skipping", key, rec.Owner)
				return nil
			}
			mu.Lock()
			out[rec.ID] = rec
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// getRecord fetches and decodes one object. A key deleted between list and
// get yields nil.
func (s *S3RecordStore) getRecord(ctx context.Context, key string) (*directory.Record, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, nil
		}
		return nil, record.IOError("get record "+key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, record.IOError("read record "+key, err)
	}

	var rec directory.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, record.IOError("decode record "+key, err)
	}
	return record.NormalizeLoaded(&rec), nil
}

func (s *S3RecordStore) putRecord(ctx context.Context, rec *directory.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return record.IOError("encode record", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(rec.Owner, rec.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return record.IOError("put record "+rec.FullPath, err)
	}
	return nil
}

func (s *S3RecordStore) deleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return record.IOError("delete record "+key, err)
	}
	return nil
}

// ownerState tracks one owner's records while a SaveAll batch is resolved.
type ownerState struct {
	byID   map[string]*directory.Record
	bySlot map[string]string
}

func newOwnerState(records map[string]*directory.Record) *ownerState {
	state := &ownerState{
		byID:   records,
		bySlot: make(map[string]string, len(records)),
	}
	for id, rec := range records {
		state.bySlot[rec.Key()] = id
	}
	return state
}

// apply assigns rec its ID and returns the stored records it displaces.
func (o *ownerState) apply(rec *directory.Record) []*directory.Record {
	key := rec.Key()

	if rec.ID != "" {
		if previous, ok := o.byID[rec.ID]; ok {
			delete(o.bySlot, previous.Key())
		}
	} else if id, ok := o.bySlot[key]; ok {
		rec.ID = id
	} else {
		rec.ID = record.NewID()
	}

	var evicted []*directory.Record
	if occupant, ok := o.bySlot[key]; ok && occupant != rec.ID {
		evicted = append(evicted, o.byID[occupant])
		delete(o.byID, occupant)
	}

	o.byID[rec.ID] = rec
	o.bySlot[key] = rec.ID
	return evicted
}
