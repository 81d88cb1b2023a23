package directory

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind tells whether a record describes a folder or a file.
type Kind string

const (
	KindFolder Kind = "FOLDER"
	KindFile   Kind = "FILE"
)

// Record is the flat, persisted form of a tree node.
//
// Identity is (Owner, Kind, FullPath): a folder and a file may share a path.
// ID is assigned by the record store and survives renames.
type Record struct {
	Owner         string `json:"owner" validate:"required"`
	Kind          Kind   `json:"kind" validate:"required,oneof=FOLDER FILE"`
	Discriminator string `json:"discriminator" validate:"required"`
	FullPath      string `json:"fullPath" validate:"required"`
	ParentPath    string `json:"parentPath" validate:"required"`
	ID            string `json:"id,omitempty"`
	Payload       []byte `json:"payload"`
}

var validate = validator.New()

// Validate checks field presence, path grammar and the payload rule.
func (r *Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		return &DirectoryError{Code: ErrInvalidRecord, Message: "invalid record", Path: r.FullPath, Cause: formatValidationError(err)}
	}
	if strings.ContainsRune(r.Owner, 0) {
		return &DirectoryError{Code: ErrInvalidRecord, Message: "invalid record (owner contains NUL)", Path: r.FullPath}
	}
	if err := ValidatePath(r.FullPath); err != nil {
		return err
	}
	if err := ValidatePath(r.ParentPath); err != nil {
		return err
	}
	if err := ValidateDiscriminator(r.Discriminator); err != nil {
		return err
	}
	if r.Kind == KindFile && r.Payload == nil {
		return &DirectoryError{Code: ErrInvalidRecord, Message: "invalid record (file without payload)", Path: r.FullPath}
	}
	return nil
}

// Key returns the record's identity within a store.
func (r *Record) Key() string {
	return r.Owner + "\x00" + string(r.Kind) + "\x00" + r.FullPath
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	c := *r
	if r.Payload != nil {
		c.Payload = make([]byte, len(r.Payload))
		copy(c.Payload, r.Payload)
	}
	return &c
}

// String implements fmt.Stringer without dumping the payload.
func (r *Record) String() string {
	return fmt.Sprintf("%s %s (owner=%s, id=%s, %d bytes)", r.Kind, r.FullPath, r.Owner, r.ID, len(r.Payload))
}

func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Field(), e.Tag(), e.Value())
	}
	return err
}
