package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/dittodir/pkg/directory"
	"github.com/marmos91/dittodir/pkg/store/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// FolderRecord builds a folder record under parentPath.
func FolderRecord(owner, parentPath, name string) *directory.Record {
	full, _ := directory.Combine(parentPath, name)
	return &directory.Record{
		Owner:         owner,
		Kind:          directory.KindFolder,
		Discriminator: name,
		FullPath:      full,
		ParentPath:    parentPath,
	}
}

// FileRecord builds a file record under parentPath.
func FileRecord(owner, parentPath, name string, payload []byte) *directory.Record {
	full, _ := directory.Combine(parentPath, name)
	return &directory.Record{
		Owner:         owner,
		Kind:          directory.KindFile,
		Discriminator: name,
		FullPath:      full,
		ParentPath:    parentPath,
		Payload:       payload,
	}
}

// saveOne stores a single record and returns the stored copy.
func saveOne(t *testing.T, store record.RecordStore, rec *directory.Record) *directory.Record {
	t.Helper()
	saved, err := store.SaveAll(context.Background(), []*directory.Record{rec})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	return saved[0]
}

// closeStore closes store when the test ends.
func closeStore(t *testing.T, store record.RecordStore) {
	t.Cleanup(func() {
		_ = store.Close()
	})
}

// fullPaths returns the full paths of records in order.
func fullPaths(records []*directory.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.FullPath)
	}
	return out
}

// AssertErrorCode asserts that err is a StoreError with the expected code.
func AssertErrorCode(t *testing.T, expected record.ErrorCode, err error, msgAndArgs ...any) bool {
	if err == nil {
		return assert.Fail(t, "Expected an error but got nil", msgAndArgs...)
	}

	var storeErr *record.StoreError
	if errors.As(err, &storeErr) {
		return assert.Equal(t, expected, storeErr.Code, msgAndArgs...)
	}

	return assert.Fail(t, "Expected a StoreError", "got %T: %v", err, err)
}
