package e2e

import (
	"net/http"
	"testing"

	"github.com/marmos91/dittodir/pkg/directory"
)

const (
	alice = "alice@example.com"
	bob   = "bob@example.com"
)

// runOnAllConfigs is a helper that runs a test on all configurations
func runOnAllConfigs(t *testing.T, testFunc func(t *testing.T, tc *TestContext)) {
	t.Helper()

	for _, config := range AllConfigurations() {
		config := config
		t.Run(config.Name, func(t *testing.T) {
			tc := NewTestContext(t, config)
			defer tc.Cleanup()

			testFunc(t, tc)
		})
	}
}

// runOnPersistentConfigs runs a test on every configuration whose records
// survive a restart, including S3 when Localstack is reachable.
func runOnPersistentConfigs(t *testing.T, testFunc func(t *testing.T, tc *TestContext)) {
	t.Helper()

	for _, config := range AllConfigurations() {
		config := config
		if !config.Persistent {
			continue
		}
		t.Run(config.Name, func(t *testing.T) {
			tc := NewTestContext(t, config)
			defer tc.Cleanup()

			testFunc(t, tc)
		})
	}

	for _, config := range S3Configurations() {
		config := config
		t.Run(config.Name, func(t *testing.T) {
			if !CheckLocalstackAvailable(t) {
				t.Skip("Localstack not available")
			}
			helper := NewLocalstackHelper(t)
			defer helper.Cleanup()
			SetupS3Config(t, config, helper)

			tc := NewTestContext(t, config)
			defer tc.Cleanup()

			testFunc(t, tc)
		})
	}
}

// expectStatus fails the test unless resp has the wanted status.
func expectStatus(t *testing.T, resp *Response, want int) {
	t.Helper()
	if resp.Status != want {
		t.Fatalf("Expected status %d, got %d: %s", want, resp.Status, resp.Body)
	}
}

// readFolder reads path and decodes the folder view.
func readFolder(t *testing.T, tc *TestContext, owner, path string) directory.FolderView {
	t.Helper()
	resp := tc.ReadFolder(owner, path)
	expectStatus(t, resp, http.StatusOK)

	var view directory.FolderView
	resp.Decode(t, &view)
	return view
}
