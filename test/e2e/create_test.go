package e2e

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/marmos91/dittodir/pkg/directory"
)

// TestCreateFolder tests creating a single folder
func TestCreateFolder(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		resp := tc.CreateFolder(alice, "/root", "testfolder")
		expectStatus(t, resp, http.StatusCreated)

		var view directory.FolderView
		resp.Decode(t, &view)
		if view.FullPath != "/root/testfolder" || view.ParentPath != "/root" {
			t.Errorf("Unexpected folder view: %+v", view)
		}

		root := readFolder(t, tc, alice, "/root")
		if !root.HasChild("testfolder") {
			t.Errorf("Root does not list the new folder: %+v", root)
		}
	})
}

// TestCreateNestedFolders tests creating 20 nested folders
func TestCreateNestedFolders(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		current := "/root"

		for i := 0; i < 20; i++ {
			name := fmt.Sprintf("nested%d", i)
			expectStatus(t, tc.CreateFolder(alice, current, name), http.StatusCreated)
			current = current + "/" + name
		}

		deepest := readFolder(t, tc, alice, current)
		if deepest.Discriminator != "nested19" {
			t.Errorf("Expected deepest folder nested19, got %q", deepest.Discriminator)
		}

		records := tc.ListDirectory(alice)
		if len(records) != 20 {
			t.Errorf("Expected 20 records, got %d", len(records))
		}
	})
}

// TestCreateManyFolders tests creating sibling folders in one parent
func TestCreateManyFolders(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		for i := 0; i < 50; i++ {
			expectStatus(t, tc.CreateFolder(alice, "/root", fmt.Sprintf("folder%02d", i)), http.StatusCreated)
		}

		root := readFolder(t, tc, alice, "/root")
		if len(root.ChildFolders) != 50 {
			t.Fatalf("Expected 50 child folders, got %d", len(root.ChildFolders))
		}
		if root.ChildFolders[0] != "folder00" || root.ChildFolders[49] != "folder49" {
			t.Errorf("Child folders are not sorted: %v", root.ChildFolders)
		}
	})
}

// TestCreateFolderErrors tests the status codes of rejected creations
func TestCreateFolderErrors(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		expectStatus(t, tc.CreateFolder(alice, "/root", "docs"), http.StatusCreated)

		// Duplicate
		expectStatus(t, tc.CreateFolder(alice, "/root", "docs"), http.StatusConflict)

		// Missing parent
		expectStatus(t, tc.CreateFolder(alice, "/root/missing", "docs"), http.StatusNotFound)

		// Forbidden characters
		expectStatus(t, tc.CreateFolder(alice, "/root", "a:b"), http.StatusBadRequest)

		// No owner
		resp := tc.DoJSON("", http.MethodPost, "/api/v1/folder", directory.FolderRequest{ParentPath: "/root", Discriminator: "x"})
		expectStatus(t, resp, http.StatusUnauthorized)
	})
}

// TestUploadFile tests creating files of various sizes
func TestUploadFile(t *testing.T) {
	sizes := []int{0, 1, 1024, 256 * 1024}

	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		expectStatus(t, tc.CreateFolder(alice, "/root", "files"), http.StatusCreated)

		for _, size := range sizes {
			name := fmt.Sprintf("file-%d.bin", size)
			content := []byte(strings.Repeat("x", size))

			resp := tc.UploadFile(alice, http.MethodPost, "/root/files", name, content)
			expectStatus(t, resp, http.StatusCreated)

			got := tc.ReadFile(alice, "/root/files/"+name)
			expectStatus(t, got, http.StatusOK)
			if len(got.Body) != size {
				t.Errorf("%s: expected %d bytes, got %d", name, size, len(got.Body))
			}
		}

		files := readFolder(t, tc, alice, "/root/files")
		if len(files.Files) != len(sizes) {
			t.Errorf("Expected %d files, got %v", len(sizes), files.Files)
		}

		// Uploading the same name again conflicts
		resp := tc.UploadFile(alice, http.MethodPost, "/root/files", "file-1.bin", []byte("again"))
		expectStatus(t, resp, http.StatusConflict)
	})
}

// TestOwnerIsolation tests that owners never see each other's trees
func TestOwnerIsolation(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		expectStatus(t, tc.CreateFolder(alice, "/root", "private"), http.StatusCreated)
		expectStatus(t, tc.UploadFile(alice, http.MethodPost, "/root/private", "secret.txt", []byte("alice only")), http.StatusCreated)

		// bob starts with an empty root
		root := readFolder(t, tc, bob, "/root")
		if len(root.ChildFolders) != 0 || len(root.Files) != 0 {
			t.Errorf("bob should see an empty root, got %+v", root)
		}
		expectStatus(t, tc.ReadFolder(bob, "/root/private"), http.StatusNotFound)
		expectStatus(t, tc.ReadFile(bob, "/root/private/secret.txt"), http.StatusNotFound)

		// bob can use the same names
		expectStatus(t, tc.CreateFolder(bob, "/root", "private"), http.StatusCreated)
		if n := len(tc.ListDirectory(bob)); n != 1 {
			t.Errorf("bob should own 1 record, got %d", n)
		}
		if n := len(tc.ListDirectory(alice)); n != 2 {
			t.Errorf("alice should own 2 records, got %d", n)
		}
	})
}
