package directory

import "strings"

// FolderRequest addresses a folder by its parent path and name.
type FolderRequest struct {
	ParentPath    string `json:"parentPath"`
	Discriminator string `json:"discriminator"`
}

// Normalize strips trailing separators from ParentPath and a leading
// separator from Discriminator, then validates the combined path.
func (r *FolderRequest) Normalize() error {
	if err := ValidatePath(r.ParentPath); err != nil {
		return err
	}
	r.ParentPath = strings.TrimRight(r.ParentPath, Separator)
	r.Discriminator = strings.TrimPrefix(r.Discriminator, Separator)
	_, err := Combine(r.ParentPath, r.Discriminator)
	return err
}

// FullPath returns the addressed folder's full path.
func (r FolderRequest) FullPath() (string, error) {
	return Combine(r.ParentPath, r.Discriminator)
}

// RenameRequest renames Target to NewDiscriminator, keeping its parent.
type RenameRequest struct {
	Target           FolderRequest `json:"target"`
	NewDiscriminator string        `json:"newDiscriminator"`
}

func (r *RenameRequest) Normalize() error {
	if err := r.Target.Normalize(); err != nil {
		return err
	}
	r.NewDiscriminator = strings.TrimPrefix(r.NewDiscriminator, Separator)
	return ValidateDiscriminator(r.NewDiscriminator)
}

// NewFullPath returns the target's full path after the rename.
func (r RenameRequest) NewFullPath() (string, error) {
	return Combine(r.Target.ParentPath, r.NewDiscriminator)
}

// FileRequest addresses a file and carries its content.
type FileRequest struct {
	ParentPath    string `json:"parentPath"`
	Discriminator string `json:"discriminator"`
	Payload       []byte `json:"-"`
}

func (r *FileRequest) Normalize() error {
	folder := FolderRequest{ParentPath: r.ParentPath, Discriminator: r.Discriminator}
	if err := folder.Normalize(); err != nil {
		return err
	}
	r.ParentPath, r.Discriminator = folder.ParentPath, folder.Discriminator
	if r.Payload == nil {
		r.Payload = []byte{}
	}
	return nil
}

func (r FileRequest) FullPath() (string, error) {
	return Combine(r.ParentPath, r.Discriminator)
}
