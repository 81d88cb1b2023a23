package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/dittodir/pkg/directory"
	"github.com/marmos91/dittodir/pkg/service"
	"github.com/marmos91/dittodir/pkg/store/record/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner = "alice"

func newTestServer(t *testing.T, config Config) *Server {
	t.Helper()
	store := memory.NewMemoryRecordStore()
	dirs, files := service.New(store, nil)
	return NewServer(config, dirs, files, store, nil)
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Remote-User", owner)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, s *Server, method, parentPath, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("parentPath", parentPath))
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, "/api/v1/file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Remote-User", owner)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func folderQuery(path string) string {
	return "/api/v1/folder?folder=" + url.QueryEscape(path)
}

func TestAPI_FolderLifecycle(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := do(t, s, http.MethodPost, "/api/v1/folder", directory.FolderRequest{ParentPath: "/root", Discriminator: "docs"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	view := decode[directory.FolderView](t, rec)
	assert.Equal(t, "/root/docs", view.FullPath)

	rec = do(t, s, http.MethodGet, folderQuery("/root"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"docs"}, decode[directory.FolderView](t, rec).ChildFolders)

	rec = do(t, s, http.MethodPut, "/api/v1/folder", directory.RenameRequest{
		Target:           directory.FolderRequest{ParentPath: "/root", Discriminator: "docs"},
		NewDiscriminator: "papers",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "/root/papers", decode[directory.FolderView](t, rec).FullPath)

	rec = do(t, s, http.MethodDelete, folderQuery("/root/papers"), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, folderQuery("/root/papers"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_ErrorMapping(t *testing.T) {
	s := newTestServer(t, Config{})
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/v1/folder",
		directory.FolderRequest{ParentPath: "/root", Discriminator: "docs"}).Code)

	tests := []struct {
		name   string
		method string
		target string
		body   any
		status int
	}{
		{"duplicate folder", http.MethodPost, "/api/v1/folder", directory.FolderRequest{ParentPath: "/root", Discriminator: "docs"}, http.StatusConflict},
		{"missing parent", http.MethodPost, "/api/v1/folder", directory.FolderRequest{ParentPath: "/root/nope", Discriminator: "x"}, http.StatusNotFound},
		{"invalid name", http.MethodPost, "/api/v1/folder", directory.FolderRequest{ParentPath: "/root", Discriminator: "a?b"}, http.StatusBadRequest},
		{"invalid path", http.MethodGet, folderQuery("root"), nil, http.StatusBadRequest},
		{"missing query", http.MethodGet, "/api/v1/folder", nil, http.StatusBadRequest},
		{"missing file", http.MethodGet, "/api/v1/file?fullPath=" + url.QueryEscape("/root/none.txt"), nil, http.StatusNotFound},
		{"non-UTF-8 folder", http.MethodGet, "/api/v1/folder?folder=%2Froot%2F%FF", nil, http.StatusBadRequest},
		{"non-UTF-8 file", http.MethodDelete, "/api/v1/file?fullPath=%2Froot%2Fa%FF.txt", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.target, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			msg := decode[ErrorMessage](t, rec)
			assert.Equal(t, tt.status, msg.Status)
			assert.NotEmpty(t, msg.Message)
			assert.False(t, msg.Timestamp.IsZero())
		})
	}
}

func TestAPI_RejectsNonUTF8Upload(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := upload(t, s, http.MethodPost, "/root/\xff", "a.txt", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/v1/directory", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]*directory.Record](t, rec))
}

func TestAPI_InvalidJSON(t *testing.T) {
	s := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/folder", strings.NewReader("{"))
	req.Header.Set("X-Remote-User", owner)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_MissingOwner(t *testing.T) {
	s := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/directory", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_CustomOwnerHeader(t *testing.T) {
	s := newTestServer(t, Config{OwnerHeader: "X-User"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/directory", nil)
	req.Header.Set("X-User", owner)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_FileLifecycle(t *testing.T) {
	s := newTestServer(t, Config{})
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/v1/folder",
		directory.FolderRequest{ParentPath: "/root", Discriminator: "docs"}).Code)

	rec := upload(t, s, http.MethodPost, "/root/docs", "cv.pdf", []byte("%PDF-1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, directory.FileRef{ParentPath: "/root/docs", Discriminator: "cv.pdf"}, decode[directory.FileRef](t, rec))

	rec = upload(t, s, http.MethodPost, "/root/docs", "cv.pdf", []byte("again"))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = upload(t, s, http.MethodPut, "/root/docs", "cv.pdf", []byte("%PDF-2"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	fileURL := "/api/v1/file?fullPath=" + url.QueryEscape("/root/docs/cv.pdf")
	rec = do(t, s, http.MethodGet, fileURL, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-2", rec.Body.String())
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "cv.pdf")

	rec = do(t, s, http.MethodGet, "/api/v1/directory", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	records := decode[[]directory.Record](t, rec)
	require.Len(t, records, 2)
	assert.Nil(t, records[1].Payload)

	rec = do(t, s, http.MethodDelete, fileURL, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, fileURL, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_UploadWithoutFilePart(t *testing.T) {
	s := newTestServer(t, Config{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("parentPath", "/root"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Remote-User", owner)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_RateLimit(t *testing.T) {
	s := newTestServer(t, Config{RequestsPerSecond: 1, Burst: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, s, http.MethodGet, "/api/v1/directory", nil).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Another owner has its own budget.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/directory", nil)
	req.Header.Set("X-Remote-User", "bob")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_Healthz(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_ServeAndStop(t *testing.T) {
	s := newTestServer(t, Config{})
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, listener) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + listener.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
