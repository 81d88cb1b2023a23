package e2e

import (
	"bytes"
	"net/http"
	"testing"
)

// TestPersistenceAcrossRestart tests that a tree built through the API is
// served again after the server and its store are restarted
func TestPersistenceAcrossRestart(t *testing.T) {
	runOnPersistentConfigs(t, func(t *testing.T, tc *TestContext) {
		content := []byte("persisted")

		expectStatus(t, tc.CreateFolder(alice, "/root", "docs"), http.StatusCreated)
		expectStatus(t, tc.CreateFolder(alice, "/root/docs", "cv"), http.StatusCreated)
		expectStatus(t, tc.UploadFile(alice, http.MethodPost, "/root/docs/cv", "resume.txt", content), http.StatusCreated)
		expectStatus(t, tc.UploadFile(alice, http.MethodPost, "/root", "empty.txt", nil), http.StatusCreated)
		expectStatus(t, tc.RenameFolder(alice, "/root", "docs", "papers"), http.StatusOK)

		tc.Restart()

		papers := readFolder(t, tc, alice, "/root/papers")
		if !papers.HasChild("cv") {
			t.Errorf("Restarted server lost /root/papers/cv: %+v", papers)
		}
		expectStatus(t, tc.ReadFolder(alice, "/root/docs"), http.StatusNotFound)

		got := tc.ReadFile(alice, "/root/papers/cv/resume.txt")
		expectStatus(t, got, http.StatusOK)
		if !bytes.Equal(got.Body, content) {
			t.Errorf("Content mismatch after restart: got %q, want %q", got.Body, content)
		}

		empty := tc.ReadFile(alice, "/root/empty.txt")
		expectStatus(t, empty, http.StatusOK)
		if len(empty.Body) != 0 {
			t.Errorf("Expected empty file after restart, got %q", empty.Body)
		}

		if n := len(tc.ListDirectory(alice)); n != 4 {
			t.Errorf("Expected 4 records after restart, got %d", n)
		}
	})
}
