package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/dittodir/internal/logger"
	"github.com/marmos91/dittodir/pkg/api"
	"github.com/marmos91/dittodir/pkg/config"
	"github.com/marmos91/dittodir/pkg/directory"
	"github.com/marmos91/dittodir/pkg/service"
	"github.com/marmos91/dittodir/pkg/store/record"
)

const ownerHeader = "X-Remote-User"

// TestContext provides a complete testing environment with:
// - Running DittoDir API server backed by the configured record store
// - An HTTP client speaking to it
// - Cleanup mechanisms
type TestContext struct {
	T       testing.TB
	Config  *TestConfig
	Server  *api.Server
	Store   record.RecordStore
	BaseURL string
	Port    int
	Client  *http.Client

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	tempDirs []string
}

// NewTestContext creates a new test environment with the specified configuration
// and starts the DittoDir server.
func NewTestContext(t testing.TB, config *TestConfig) *TestContext {
	t.Helper()

	tc := &TestContext{
		T:      t,
		Config: config,
		Port:   findFreePort(t),
		Client: &http.Client{Timeout: 30 * time.Second},
	}
	tc.BaseURL = fmt.Sprintf("http://127.0.0.1:%d", tc.Port)

	tc.start()

	return tc
}

// start opens the record store and starts the API server on it.
func (tc *TestContext) start() {
	tc.T.Helper()

	// Always use ERROR level to keep test output clean
	logger.SetLevel("ERROR")

	tc.ctx, tc.cancel = context.WithCancel(context.Background())

	storeCfg, err := tc.Config.StoreConfig(tc)
	if err != nil {
		tc.T.Fatalf("Failed to configure record store: %v", err)
	}

	tc.Store, err = config.CreateRecordStore(tc.ctx, storeCfg)
	if err != nil {
		tc.T.Fatalf("Failed to create record store: %v", err)
	}

	dirs, files := service.New(tc.Store, nil)
	tc.Server = api.NewServer(api.Config{
		Port:            tc.Port,
		OwnerHeader:     ownerHeader,
		ShutdownTimeout: 5 * time.Second,
	}, dirs, files, tc.Store, nil)

	tc.wg.Add(1)
	go func() {
		defer tc.wg.Done()
		if err := tc.Server.Start(tc.ctx); err != nil {
			tc.T.Logf("Server error: %v", err)
		}
	}()

	tc.waitForServer()
}

// stop shuts the server down and closes the record store.
func (tc *TestContext) stop() {
	if tc.cancel != nil {
		tc.cancel()
	}
	tc.wg.Wait()

	if tc.Store != nil {
		_ = tc.Store.Close()
		tc.Store = nil
	}
}

// Restart stops the server and starts it again on the same record store
// location. The port is kept.
func (tc *TestContext) Restart() {
	tc.T.Helper()
	tc.stop()
	tc.start()
}

// waitForServer waits for the API server to answer its health check
func (tc *TestContext) waitForServer() {
	tc.T.Helper()

	timeout := time.After(10 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			tc.T.Fatal("Timeout waiting for server to start")
		case <-ticker.C:
			resp, err := tc.Client.Get(tc.BaseURL + "/healthz")
			if err == nil {
				_ = resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return
				}
			}
		}
	}
}

// Cleanup stops the server, closes the store, and removes temporary files
func (tc *TestContext) Cleanup() {
	tc.T.Helper()

	tc.stop()

	for _, dir := range tc.tempDirs {
		_ = os.RemoveAll(dir)
	}
	tc.Config.dataDir = ""
}

// CreateTempDir creates a temporary directory and registers it for cleanup
func (tc *TestContext) CreateTempDir(prefix string) string {
	tc.T.Helper()

	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		tc.T.Fatalf("Failed to create temp directory: %v", err)
	}
	tc.tempDirs = append(tc.tempDirs, dir)
	return dir
}

// GetConfig returns the test configuration
func (tc *TestContext) GetConfig() *TestConfig {
	return tc.Config
}

// GetPort returns the server port
func (tc *TestContext) GetPort() int {
	return tc.Port
}

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(t testing.TB, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", r.Body, err)
	}
}

// Do sends a request as owner and reads the whole response.
func (tc *TestContext) Do(owner, method, path, contentType string, body io.Reader) *Response {
	tc.T.Helper()

	req, err := http.NewRequest(method, tc.BaseURL+path, body)
	if err != nil {
		tc.T.Fatalf("Failed to build request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if owner != "" {
		req.Header.Set(ownerHeader, owner)
	}

	resp, err := tc.Client.Do(req)
	if err != nil {
		tc.T.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		tc.T.Fatalf("Failed to read response body: %v", err)
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}
}

// DoJSON sends body encoded as JSON.
func (tc *TestContext) DoJSON(owner, method, path string, body any) *Response {
	tc.T.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		tc.T.Fatalf("Failed to encode request: %v", err)
	}
	return tc.Do(owner, method, path, "application/json", bytes.NewReader(data))
}

// CreateFolder creates parentPath/name.
func (tc *TestContext) CreateFolder(owner, parentPath, name string) *Response {
	tc.T.Helper()
	return tc.DoJSON(owner, http.MethodPost, "/api/v1/folder", directory.FolderRequest{
		ParentPath:    parentPath,
		Discriminator: name,
	})
}

// ReadFolder reads the folder at path.
func (tc *TestContext) ReadFolder(owner, path string) *Response {
	tc.T.Helper()
	return tc.Do(owner, http.MethodGet, "/api/v1/folder?folder="+url.QueryEscape(path), "", nil)
}

// RenameFolder renames parentPath/name to newName.
func (tc *TestContext) RenameFolder(owner, parentPath, name, newName string) *Response {
	tc.T.Helper()
	return tc.DoJSON(owner, http.MethodPut, "/api/v1/folder", directory.RenameRequest{
		Target:           directory.FolderRequest{ParentPath: parentPath, Discriminator: name},
		NewDiscriminator: newName,
	})
}

// DeleteFolder deletes the folder at path with its subtree.
func (tc *TestContext) DeleteFolder(owner, path string) *Response {
	tc.T.Helper()
	return tc.Do(owner, http.MethodDelete, "/api/v1/folder?folder="+url.QueryEscape(path), "", nil)
}

// UploadFile sends content as a multipart upload into parentPath.
// method is POST to create and PUT to replace.
func (tc *TestContext) UploadFile(owner, method, parentPath, name string, content []byte) *Response {
	tc.T.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("parentPath", parentPath); err != nil {
		tc.T.Fatalf("Failed to write form field: %v", err)
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		tc.T.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		tc.T.Fatalf("Failed to write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		tc.T.Fatalf("Failed to close multipart writer: %v", err)
	}

	return tc.Do(owner, method, "/api/v1/file", mw.FormDataContentType(), &buf)
}

// ReadFile downloads the file at fullPath.
func (tc *TestContext) ReadFile(owner, fullPath string) *Response {
	tc.T.Helper()
	return tc.Do(owner, http.MethodGet, "/api/v1/file?fullPath="+url.QueryEscape(fullPath), "", nil)
}

// DeleteFile deletes the file at fullPath.
func (tc *TestContext) DeleteFile(owner, fullPath string) *Response {
	tc.T.Helper()
	return tc.Do(owner, http.MethodDelete, "/api/v1/file?fullPath="+url.QueryEscape(fullPath), "", nil)
}

// ListDirectory lists every record of owner.
func (tc *TestContext) ListDirectory(owner string) []*directory.Record {
	tc.T.Helper()

	resp := tc.Do(owner, http.MethodGet, "/api/v1/directory", "", nil)
	if resp.Status != http.StatusOK {
		tc.T.Fatalf("List directory returned %d: %s", resp.Status, resp.Body)
	}
	var records []*directory.Record
	resp.Decode(tc.T, &records)
	return records
}

// findFreePort finds an available TCP port
func findFreePort(t testing.TB) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer func() { _ = listener.Close() }()

	return listener.Addr().(*net.TCPAddr).Port
}
