package e2e

import (
	"bytes"
	"net/http"
	"testing"
)

// TestEditFile tests replacing a file's content
func TestEditFile(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		original := []byte("Original content")
		modified := []byte("Modified content that is longer than the original")

		expectStatus(t, tc.UploadFile(alice, http.MethodPost, "/root", "edit.txt", original), http.StatusCreated)
		expectStatus(t, tc.UploadFile(alice, http.MethodPut, "/root", "edit.txt", modified), http.StatusOK)

		got := tc.ReadFile(alice, "/root/edit.txt")
		expectStatus(t, got, http.StatusOK)
		if !bytes.Equal(got.Body, modified) {
			t.Errorf("Content mismatch: got %q, want %q", got.Body, modified)
		}

		// Replace with empty content
		expectStatus(t, tc.UploadFile(alice, http.MethodPut, "/root", "edit.txt", nil), http.StatusOK)
		got = tc.ReadFile(alice, "/root/edit.txt")
		expectStatus(t, got, http.StatusOK)
		if len(got.Body) != 0 {
			t.Errorf("Expected empty file, got %q", got.Body)
		}
	})
}

// TestEditMissingFile tests that only existing files can be replaced
func TestEditMissingFile(t *testing.T) {
	runOnAllConfigs(t, func(t *testing.T, tc *TestContext) {
		resp := tc.UploadFile(alice, http.MethodPut, "/root", "missing.txt", []byte("x"))
		expectStatus(t, resp, http.StatusNotFound)
	})
}
