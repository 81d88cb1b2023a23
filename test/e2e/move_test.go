package e2e

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/marmos91/dittodir/pkg/directory"
)

// TestRenameFolder tests that renaming a folder moves its whole subtree
func TestRenameFolder(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		content := []byte("File content")

		expectStatus(t, tc.CreateFolder(alice, "/root", "old"), http.StatusCreated)
		expectStatus(t, tc.CreateFolder(alice, "/root/old", "inner"), http.StatusCreated)
		expectStatus(t, tc.UploadFile(alice, http.MethodPost, "/root/old/inner", "doc.txt", content), http.StatusCreated)

		before := tc.ListDirectory(alice)

		resp := tc.RenameFolder(alice, "/root", "old", "new")
		expectStatus(t, resp, http.StatusOK)

		var view directory.FolderView
		resp.Decode(t, &view)
		if view.FullPath != "/root/new" || !view.HasChild("inner") {
			t.Errorf("Unexpected renamed folder view: %+v", view)
		}

		// Old paths are gone
		expectStatus(t, tc.ReadFolder(alice, "/root/old"), http.StatusNotFound)
		expectStatus(t, tc.ReadFile(alice, "/root/old/inner/doc.txt"), http.StatusNotFound)

		// New paths hold the same content
		got := tc.ReadFile(alice, "/root/new/inner/doc.txt")
		expectStatus(t, got, http.StatusOK)
		if !bytes.Equal(got.Body, content) {
			t.Errorf("Moved file has wrong content: got %q, want %q", got.Body, content)
		}

		// Records keep their identity across the move
		after := tc.ListDirectory(alice)
		if len(after) != len(before) {
			t.Fatalf("Record count changed: %d -> %d", len(before), len(after))
		}
		ids := make(map[string]bool, len(before))
		for _, rec := range before {
			ids[rec.ID] = true
		}
		for _, rec := range after {
			if !ids[rec.ID] {
				t.Errorf("Record %s got a new ID %s", rec.FullPath, rec.ID)
			}
		}
	})
}

// TestRenameFolderErrors tests the status codes of rejected renames
func TestRenameFolderErrors(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		expectStatus(t, tc.CreateFolder(alice, "/root", "a"), http.StatusCreated)
		expectStatus(t, tc.CreateFolder(alice, "/root", "b"), http.StatusCreated)

		// Sibling collision
		expectStatus(t, tc.RenameFolder(alice, "/root", "a", "b"), http.StatusConflict)

		// Missing target
		expectStatus(t, tc.RenameFolder(alice, "/root", "missing", "c"), http.StatusNotFound)

		// Invalid new name
		expectStatus(t, tc.RenameFolder(alice, "/root", "a", "bad|name"), http.StatusBadRequest)

		// Nothing moved
		root := readFolder(t, tc, alice, "/root")
		if !root.HasChild("a") || !root.HasChild("b") || len(root.ChildFolders) != 2 {
			t.Errorf("Root changed after rejected renames: %+v", root.ChildFolders)
		}
	})
}
