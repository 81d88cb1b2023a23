package directory

import (
	"errors"
	"fmt"
)

// DirectoryError represents a domain error raised while parsing paths or
// operating on a directory tree.
//
// These are model errors (bad path, missing folder, corrupted records) as
// opposed to infrastructure errors (disk, network), which are wrapped with
// ErrDirectoryAccess when they prevent a tree from being rebuilt.
//
// The HTTP layer translates the Code into a status code.
type DirectoryError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Segment is the path segment that caused the failure (if applicable)
	Segment string

	// Path is the full path related to the error (if applicable)
	Path string

	// Cause is the underlying error, if any
	Cause error
}

// Error implements the error interface.
func (e *DirectoryError) Error() string {
	msg := e.Message
	if e.Segment != "" {
		msg = fmt.Sprintf("%s: segment %q", msg, e.Segment)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *DirectoryError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a *DirectoryError with the same code, so that
// callers can match on a sentinel built with NewError(code, "").
func (e *DirectoryError) Is(target error) bool {
	var t *DirectoryError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// ErrorCode represents the category of a directory error.
type ErrorCode int

const (
	// ErrInvalidPath indicates a path that violates the path grammar
	ErrInvalidPath ErrorCode = iota

	// ErrInvalidDiscriminator indicates a single name that violates the grammar
	ErrInvalidDiscriminator

	// ErrFolderDoesNotExist indicates that a segment of a path could not be resolved
	ErrFolderDoesNotExist

	// ErrFolderAlreadyExists indicates a sibling folder with the same name exists
	ErrFolderAlreadyExists

	// ErrFileDoesNotExist indicates the addressed file is missing
	ErrFileDoesNotExist

	// ErrFileAlreadyExists indicates a sibling file with the same name exists
	ErrFileAlreadyExists

	// ErrInvalidRecord indicates a flat record that fails field validation
	ErrInvalidRecord

	// ErrDataIntegrity indicates stored records whose paths disagree with the
	// tree they are being attached to
	ErrDataIntegrity

	// ErrDirectoryAccess indicates that a directory could not be loaded
	ErrDirectoryAccess

	// ErrInternal indicates a broken internal precondition
	ErrInternal
)

// String returns the code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrInvalidPath:
		return "InvalidPath"
	case ErrInvalidDiscriminator:
		return "InvalidDiscriminator"
	case ErrFolderDoesNotExist:
		return "FolderDoesNotExist"
	case ErrFolderAlreadyExists:
		return "FolderAlreadyExists"
	case ErrFileDoesNotExist:
		return "FileDoesNotExist"
	case ErrFileAlreadyExists:
		return "FileAlreadyExists"
	case ErrInvalidRecord:
		return "InvalidRecord"
	case ErrDataIntegrity:
		return "DataIntegrityViolation"
	case ErrDirectoryAccess:
		return "DirectoryAccessFailure"
	case ErrInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// NewError builds a DirectoryError with the given code and message.
func NewError(code ErrorCode, message string) *DirectoryError {
	return &DirectoryError{Code: code, Message: message}
}

// CodeOf extracts the ErrorCode of the first DirectoryError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var dirErr *DirectoryError
	if errors.As(err, &dirErr) {
		return dirErr.Code, true
	}
	return 0, false
}

func invalidPath(path, reason string) error {
	return &DirectoryError{Code: ErrInvalidPath, Message: "invalid path (" + reason + ")", Path: path}
}

func invalidDiscriminator(name, reason string) error {
	return &DirectoryError{Code: ErrInvalidDiscriminator, Message: "invalid discriminator (" + reason + ")", Segment: name}
}

func folderDoesNotExist(segment, path string) error {
	return &DirectoryError{Code: ErrFolderDoesNotExist, Message: "folder does not exist", Segment: segment, Path: path}
}

func integrityViolation(path, reason string, cause error) error {
	return &DirectoryError{Code: ErrDataIntegrity, Message: "data integrity violation (" + reason + ")", Path: path, Cause: cause}
}
