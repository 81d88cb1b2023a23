package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/marmos91/dittodir/internal/logger"
	"github.com/marmos91/dittodir/pkg/directory"
)

// ErrorMessage is the body of every non-2xx response.
type ErrorMessage struct {
	Status    int       `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

const internalErrorMessage = "An internal server error occurred"

// statusFor maps an error to its HTTP status code.
func statusFor(err error) int {
	code, ok := directory.CodeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch code {
	case directory.ErrInvalidPath, directory.ErrInvalidDiscriminator, directory.ErrInvalidRecord:
		return http.StatusBadRequest
	case directory.ErrFolderDoesNotExist, directory.ErrFileDoesNotExist:
		return http.StatusNotFound
	case directory.ErrFolderAlreadyExists, directory.ErrFileAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Server-side failures hide their details from the
// client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("API %s %s failed: %v", r.Method, r.URL.Path, err)
		message = internalErrorMessage
	}
	writeStatus(w, status, message)
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorMessage{
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("API response encoding failed: %v", err)
	}
}
