package testing

import (
	"context"
	"testing"

	"github.com/marmos91/dittodir/pkg/directory"
	"github.com/marmos91/dittodir/pkg/store/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunDirectoryTests drives a directory through the store: flatten, persist,
// reload, mutate, persist again.
func (suite *StoreTestSuite) RunDirectoryTests(t *testing.T) {
	t.Run("RoundTrip", suite.testDirectoryRoundTrip)
	t.Run("RenameMovesRecords", suite.testDirectoryRename)
	t.Run("DeletePurgesSubtree", suite.testDirectoryDelete)
}

func buildDirectory(t *testing.T, owner string) *directory.Directory {
	t.Helper()
	dir := directory.New(owner)
	for _, req := range []directory.FolderRequest{
		{ParentPath: "/root", Discriminator: "a"},
		{ParentPath: "/root/a", Discriminator: "c"},
		{ParentPath: "/root", Discriminator: "d"},
	} {
		_, err := dir.CreateFolder(req)
		require.NoError(t, err)
	}
	_, err := dir.CreateFile(directory.FileRequest{ParentPath: "/root/a", Discriminator: "f.txt", Payload: []byte("data")})
	require.NoError(t, err)
	return dir
}

func reload(t *testing.T, store record.RecordStore, owner string) *directory.Directory {
	t.Helper()
	records, err := store.FindAllByOwner(context.Background(), owner)
	require.NoError(t, err)
	dir, err := directory.Expand(records, owner)
	require.NoError(t, err)
	return dir
}

func (suite *StoreTestSuite) testDirectoryRoundTrip(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)

	dir := buildDirectory(t, "alice")
	_, err := store.SaveAll(context.Background(), dir.Flatten())
	require.NoError(t, err)

	loaded := reload(t, store, "alice")
	assert.ElementsMatch(t, fullPaths(dir.Flatten()), fullPaths(loaded.Flatten()))

	file, err := loaded.GetFile("/root/a/f.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), file.Payload())
}

func (suite *StoreTestSuite) testDirectoryRename(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)
	ctx := context.Background()

	_, err := store.SaveAll(ctx, buildDirectory(t, "alice").Flatten())
	require.NoError(t, err)

	dir := reload(t, store, "alice")
	view, err := dir.UpdateFolderDiscriminator(directory.RenameRequest{
		Target:           directory.FolderRequest{ParentPath: "/root", Discriminator: "a"},
		NewDiscriminator: "b",
	})
	require.NoError(t, err)

	moved, err := dir.GetSubDirectory(view.FullPath)
	require.NoError(t, err)
	_, err = store.SaveAll(ctx, moved)
	require.NoError(t, err)

	loaded := reload(t, store, "alice")
	assert.Equal(t, []string{"/root", "/root/b", "/root/b/c", "/root/d"}, loaded.AllFolderPaths())

	_, err = loaded.GetFile("/root/b/f.txt")
	require.NoError(t, err)
}

func (suite *StoreTestSuite) testDirectoryDelete(t *testing.T) {
	store := suite.NewStore()
	closeStore(t, store)
	ctx := context.Background()

	_, err := store.SaveAll(ctx, buildDirectory(t, "alice").Flatten())
	require.NoError(t, err)

	dir := reload(t, store, "alice")
	_, removed, err := dir.DeleteParentAndAllChildren("/root/a")
	require.NoError(t, err)
	require.NoError(t, store.DeleteAll(ctx, removed))

	records, err := store.FindAllByOwner(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"/root/d"}, fullPaths(records))
}
