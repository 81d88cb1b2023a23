package directory

// FileNode is a leaf of the tree holding a byte payload.
type FileNode struct {
	discriminator string
	fullPath      string
	parentPath    string
	id            string
	payload       []byte
}

// NewFileNode creates a detached file. Its paths are assigned when it is
// attached to a folder with FolderNode.AddFile.
func NewFileNode(discriminator string, payload []byte) (*FileNode, error) {
	if err := ValidateDiscriminator(discriminator); err != nil {
		return nil, err
	}
	if payload == nil {
		payload = []byte{}
	}
	return &FileNode{discriminator: discriminator, payload: payload}, nil
}

func (f *FileNode) Discriminator() string { return f.discriminator }
func (f *FileNode) FullPath() string      { return f.fullPath }
func (f *FileNode) ParentPath() string    { return f.parentPath }
func (f *FileNode) ID() string            { return f.id }

// Payload returns the file content. The slice is shared with the node.
func (f *FileNode) Payload() []byte { return f.payload }

// Size returns the payload length in bytes.
func (f *FileNode) Size() int { return len(f.payload) }

// UpdateParentPath moves the file under newParentPath, recomputing its full
// path. The node is left untouched on error.
func (f *FileNode) UpdateParentPath(newParentPath string) error {
	if err := ValidatePath(newParentPath); err != nil {
		return err
	}
	full, err := Combine(newParentPath, f.discriminator)
	if err != nil {
		return err
	}
	f.parentPath = newParentPath
	f.fullPath = full
	return nil
}

// Ref returns the file's public reference.
func (f *FileNode) Ref() FileRef {
	return FileRef{ParentPath: f.parentPath, Discriminator: f.discriminator}
}

func (f *FileNode) record(owner string) *Record {
	payload := make([]byte, len(f.payload))
	copy(payload, f.payload)
	return &Record{
		Owner:         owner,
		Kind:          KindFile,
		Discriminator: f.discriminator,
		FullPath:      f.fullPath,
		ParentPath:    f.parentPath,
		ID:            f.id,
		Payload:       payload,
	}
}
