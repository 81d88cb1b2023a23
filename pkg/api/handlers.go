package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/marmos91/dittodir/pkg/directory"
)

// Query parameters and multipart fields.
const (
	paramFolder        = "folder"
	paramFullPath      = "fullPath"
	fieldFile          = "file"
	fieldParentPath    = "parentPath"
	fieldDiscriminator = "discriminator"
)

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req directory.FolderRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	view, err := s.dirs.CreateFolder(r.Context(), OwnerFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleReadFolder(w http.ResponseWriter, r *http.Request) {
	path, ok := requireQuery(w, r, paramFolder)
	if !ok {
		return
	}
	view, err := s.dirs.ReadFolder(r.Context(), OwnerFromContext(r.Context()), path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdateFolder(w http.ResponseWriter, r *http.Request) {
	var req directory.RenameRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	view, err := s.dirs.UpdateFolder(r.Context(), OwnerFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	path, ok := requireQuery(w, r, paramFolder)
	if !ok {
		return
	}
	if _, err := s.dirs.DeleteFolder(r.Context(), OwnerFromContext(r.Context()), path); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDirectory(w http.ResponseWriter, r *http.Request) {
	records, err := s.dirs.ListDirectory(r.Context(), OwnerFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readFileRequest(w, r)
	if !ok {
		return
	}
	ref, err := s.files.UploadFile(r.Context(), OwnerFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.metrics.RecordBytesTransferred("upload", int64(len(req.Payload)))
	writeJSON(w, http.StatusCreated, ref)
}

func (s *Server) handleReadFile(w http.ResponseWriter, r *http.Request) {
	fullPath, ok := requireQuery(w, r, paramFullPath)
	if !ok {
		return
	}
	payload, err := s.files.ReadFile(r.Context(), OwnerFromContext(r.Context()), fullPath)
	if err != nil {
		writeError(w, r, err)
		return
	}

	name := fullPath
	if p, err := directory.NewPath(fullPath); err == nil {
		segments := p.Segments()
		name = segments[len(segments)-1]
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(http.StatusOK)
	n, _ := w.Write(payload)
	s.metrics.RecordBytesTransferred("download", int64(n))
}

func (s *Server) handleUpdateFile(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readFileRequest(w, r)
	if !ok {
		return
	}
	ref, err := s.files.UpdateFile(r.Context(), OwnerFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.metrics.RecordBytesTransferred("upload", int64(len(req.Payload)))
	writeJSON(w, http.StatusOK, ref)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	fullPath, ok := requireQuery(w, r, paramFullPath)
	if !ok {
		return
	}
	if _, err := s.files.DeleteFile(r.Context(), OwnerFromContext(r.Context()), fullPath); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Healthcheck(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "record store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		writeStatus(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// readFileRequest parses a multipart upload. The file name is taken from the
// discriminator field when present, else from the uploaded file's name.
func (s *Server) readFileRequest(w http.ResponseWriter, r *http.Request) (directory.FileRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeStatus(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
		} else {
			writeStatus(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		}
		return directory.FileRequest{}, false
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(fieldFile)
	if err != nil {
		writeStatus(w, http.StatusBadRequest, "missing "+fieldFile+" part")
		return directory.FileRequest{}, false
	}
	defer func() { _ = file.Close() }()

	payload, err := io.ReadAll(file)
	if err != nil {
		writeStatus(w, http.StatusBadRequest, fmt.Sprintf("failed to read upload: %v", err))
		return directory.FileRequest{}, false
	}

	name := r.FormValue(fieldDiscriminator)
	if name == "" {
		name = header.Filename
	}
	return directory.FileRequest{
		ParentPath:    r.FormValue(fieldParentPath),
		Discriminator: name,
		Payload:       payload,
	}, true
}

func requireQuery(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value := r.URL.Query().Get(name)
	if value == "" {
		writeStatus(w, http.StatusBadRequest, "missing "+name+" query parameter")
		return "", false
	}
	return value, true
}
