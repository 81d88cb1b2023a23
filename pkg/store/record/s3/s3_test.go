package s3

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/dittodir/pkg/directory"
	"github.com/marmos91/dittodir/pkg/store/record"
	recordtesting "github.com/marmos91/dittodir/pkg/store/record/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is an in-memory bucket implementing Client.
type fakeClient struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
}

func newFakeClient(bucket string) *fakeClient {
	return &fakeClient{bucket: bucket, objects: make(map[string][]byte)}
}

func (f *fakeClient) checkBucket(name *string) error {
	if aws.ToString(name) != f.bucket {
		return &types.NoSuchBucket{}
	}
	return nil
}

func (f *fakeClient) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if err := f.checkBucket(params.Bucket); err != nil {
		return nil, err
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeClient) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if err := f.checkBucket(params.Bucket); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := aws.ToString(params.Prefix)
	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, key := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(key)})
	}
	return out, nil
}

func (f *fakeClient) GetObject(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if err := f.checkBucket(params.Bucket); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeClient) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if err := f.checkBucket(params.Bucket); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[aws.ToString(params.Key)] = data
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeClient) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if err := f.checkBucket(params.Bucket); err != nil {
		return nil, err
	}
	f.mu.Lock()
	delete(f.objects, aws.ToString(params.Key))
	f.mu.Unlock()
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeClient) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func newTestStore(t *testing.T, client *fakeClient) *S3RecordStore {
	t.Helper()
	store, err := NewS3RecordStore(context.Background(), S3RecordStoreConfig{
		Client:      client,
		Bucket:      client.bucket,
		KeyPrefix:   "records/",
		Concurrency: 4,
	})
	require.NoError(t, err)
	return store
}

// TestS3RecordStore runs the complete RecordStore test suite against an
// in-memory bucket.
func TestS3RecordStore(t *testing.T) {
	suite := &recordtesting.StoreTestSuite{
		NewStore: func() record.RecordStore {
			return newTestStore(t, newFakeClient("dittodir-test"))
		},
	}

	suite.Run(t)
}

func TestS3RecordStore_ObjectLayout(t *testing.T) {
	client := newFakeClient("dittodir-test")
	store := newTestStore(t, client)
	ctx := context.Background()

	saved, err := store.SaveAll(ctx, []*directory.Record{
		recordtesting.FolderRecord("alice@example.com", "/root", "docs"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"records/alice@example.com/" + saved[0].ID + ".json"}, client.keys())

	// A rename rewrites the same object.
	moved := saved[0].Clone()
	moved.Discriminator = "papers"
	moved.FullPath = "/root/papers"
	_, err = store.SaveAll(ctx, []*directory.Record{moved})
	require.NoError(t, err)

	assert.Len(t, client.keys(), 1)
	found, err := store.FindOne(ctx, directory.KindFolder, "alice@example.com", "/root/papers")
	require.NoError(t, err)
	assert.Equal(t, saved[0].ID, found.ID)
}

func TestS3RecordStore_OwnerWithSlash(t *testing.T) {
	client := newFakeClient("dittodir-test")
	store := newTestStore(t, client)
	ctx := context.Background()

	_, err := store.SaveAll(ctx, []*directory.Record{
		recordtesting.FolderRecord("team/a", "/root", "x"),
		recordtesting.FolderRecord("team", "/root", "y"),
	})
	require.NoError(t, err)

	records, err := store.FindAllByOwner(ctx, "team")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "/root/y", records[0].FullPath)
}

func TestNewS3RecordStore_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewS3RecordStore(ctx, S3RecordStoreConfig{Bucket: "b"})
	require.Error(t, err)

	_, err = NewS3RecordStore(ctx, S3RecordStoreConfig{Client: newFakeClient("b")})
	require.Error(t, err)

	_, err = NewS3RecordStore(ctx, S3RecordStoreConfig{Client: newFakeClient("b"), Bucket: "missing"})
	require.Error(t, err)
}
