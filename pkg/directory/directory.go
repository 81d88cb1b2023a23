// Package directory implements a per-owner virtual folder tree and its
// lossless conversion to and from flat, path-tagged records.
//
// A Directory is built fresh for each request from the owner's records
// (Expand), mutated through path-addressed operations, and converted back
// to the records that must be upserted or deleted (Flatten, GetSubDirectory,
// DeleteParentAndAllChildren). A Directory is not safe for concurrent use.
package directory

import (
	"sort"
	"strings"
)

// Directory is the folder tree of a single owner.
type Directory struct {
	root  *FolderNode
	owner string
}

// New returns an empty directory for owner.
func New(owner string) *Directory {
	return &Directory{root: newRootNode(), owner: owner}
}

// Expand rebuilds the directory of owner from its flat records.
//
// Records may arrive in any order: they are attached shallowest first, so
// every parent exists before its children. A record whose paths disagree
// with the folder it resolves to fails the whole expansion with
// ErrDataIntegrity; nothing is repaired.
func Expand(records []*Record, owner string) (*Directory, error) {
	d := New(owner)

	ordered := make([]*Record, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if da, db := Depth(a.FullPath), Depth(b.FullPath); da != db {
			return da < db
		}
		if len(a.FullPath) != len(b.FullPath) {
			return len(a.FullPath) < len(b.FullPath)
		}
		if a.FullPath != b.FullPath {
			return a.FullPath < b.FullPath
		}
		return a.Kind < b.Kind
	})

	for _, rec := range ordered {
		if err := d.AddRecord(rec); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Owner returns the directory's owner.
func (d *Directory) Owner() string {
	return d.owner
}

// Root returns the root folder.
func (d *Directory) Root() *FolderNode {
	return d.root
}

// AddRecord attaches a single stored record to the tree.
func (d *Directory) AddRecord(rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.Owner != d.owner {
		return integrityViolation(rec.FullPath, "record belongs to owner "+rec.Owner, nil)
	}

	parent, err := d.doGetFolder(rec.ParentPath)
	if err != nil {
		return err
	}
	// Stored paths must already be canonical.
	if parent.fullPath != rec.ParentPath {
		return integrityViolation(rec.FullPath, "parent path "+rec.ParentPath+" resolves to "+parent.fullPath, nil)
	}
	expected, err := Combine(parent.fullPath, rec.Discriminator)
	if err != nil {
		return err
	}
	if expected != rec.FullPath {
		return integrityViolation(rec.FullPath, "expected full path "+expected, nil)
	}

	switch rec.Kind {
	case KindFolder:
		if parent.ContainsChild(rec.Discriminator) {
			return integrityViolation(rec.FullPath, "duplicate folder record", nil)
		}
		node, err := newFolderNode(rec.Discriminator, parent, rec.ID)
		if err != nil {
			return err
		}
		parent.AddChild(node)
	case KindFile:
		if parent.ContainsFile(rec.Discriminator) {
			return integrityViolation(rec.FullPath, "duplicate file record", nil)
		}
		payload := make([]byte, len(rec.Payload))
		copy(payload, rec.Payload)
		file, err := NewFileNode(rec.Discriminator, payload)
		if err != nil {
			return err
		}
		file.id = rec.ID
		if err := parent.AddFile(file); err != nil {
			return err
		}
	}
	return nil
}

// CreateFolder creates an empty folder under an existing parent.
func (d *Directory) CreateFolder(req FolderRequest) (FolderView, error) {
	if err := req.Normalize(); err != nil {
		return FolderView{}, err
	}
	parent, err := d.doGetFolder(req.ParentPath)
	if err != nil {
		return FolderView{}, err
	}
	if parent.ContainsChild(req.Discriminator) {
		return FolderView{}, &DirectoryError{
			Code:    ErrFolderAlreadyExists,
			Message: "folder already exists",
			Segment: req.Discriminator,
			Path:    parent.fullPath,
		}
	}
	node, err := newFolderNode(req.Discriminator, parent, "")
	if err != nil {
		return FolderView{}, err
	}
	return parent.AddChild(node).View(), nil
}

// ReadFolder returns a snapshot of the folder at path.
func (d *Directory) ReadFolder(path string) (FolderView, error) {
	node, err := d.doGetFolder(path)
	if err != nil {
		return FolderView{}, err
	}
	return node.View(), nil
}

// DeleteParentAndAllChildren detaches the folder at path together with its
// whole subtree. It returns a snapshot of the detached folder and the
// records of every detached node, which are the records to purge.
func (d *Directory) DeleteParentAndAllChildren(path string) (FolderView, []*Record, error) {
	node, err := d.doGetFolder(path)
	if err != nil {
		return FolderView{}, nil, err
	}
	if node.IsRoot() {
		return FolderView{}, nil, invalidPath(path, "the root folder cannot be deleted")
	}
	if _, ok := node.parent.RemoveChild(node.discriminator); !ok {
		return FolderView{}, nil, NewError(ErrInternal, "folder is not registered in its parent")
	}
	return node.View(), node.flatten(d.owner, nil), nil
}

// UpdateFolderDiscriminator renames the target folder, cascading the new
// paths to every descendant.
func (d *Directory) UpdateFolderDiscriminator(req RenameRequest) (FolderView, error) {
	if err := req.Normalize(); err != nil {
		return FolderView{}, err
	}
	target, err := req.Target.FullPath()
	if err != nil {
		return FolderView{}, err
	}
	node, err := d.doGetFolder(target)
	if err != nil {
		return FolderView{}, err
	}
	if node.IsRoot() {
		return FolderView{}, invalidPath(target, "the root folder cannot be renamed")
	}
	if err := node.Rename(req.NewDiscriminator); err != nil {
		return FolderView{}, err
	}
	return node.View(), nil
}

// GetSubDirectory returns the records of the folder at path and of all its
// descendants.
func (d *Directory) GetSubDirectory(path string) ([]*Record, error) {
	node, err := d.doGetFolder(path)
	if err != nil {
		return nil, err
	}
	return node.flatten(d.owner, nil), nil
}

// Flatten returns one record per non-root folder and per file.
func (d *Directory) Flatten() []*Record {
	return d.root.flatten(d.owner, nil)
}

// AllFolderPaths returns the full path of every folder, root included.
func (d *Directory) AllFolderPaths() []string {
	return d.root.folderPaths(nil)
}

// Count returns the number of non-root folders and files.
func (d *Directory) Count() (folders, files int) {
	return d.root.count()
}

// CreateFile attaches a new file under an existing folder.
func (d *Directory) CreateFile(req FileRequest) (FileRef, error) {
	if err := req.Normalize(); err != nil {
		return FileRef{}, err
	}
	parent, err := d.doGetFolder(req.ParentPath)
	if err != nil {
		return FileRef{}, err
	}
	if parent.ContainsFile(req.Discriminator) {
		return FileRef{}, &DirectoryError{
			Code:    ErrFileAlreadyExists,
			Message: "file already exists",
			Segment: req.Discriminator,
			Path:    parent.fullPath,
		}
	}
	file, err := NewFileNode(req.Discriminator, req.Payload)
	if err != nil {
		return FileRef{}, err
	}
	if err := parent.AddFile(file); err != nil {
		return FileRef{}, err
	}
	return file.Ref(), nil
}

// GetFile resolves the file at fullPath.
func (d *Directory) GetFile(fullPath string) (*FileNode, error) {
	parentPath, name, err := splitPath(fullPath)
	if err != nil {
		return nil, err
	}
	parent, err := d.doGetFolder(parentPath)
	if err != nil {
		return nil, err
	}
	file, ok := parent.File(name)
	if !ok {
		return nil, &DirectoryError{Code: ErrFileDoesNotExist, Message: "file does not exist", Path: fullPath}
	}
	return file, nil
}

// FileRecord returns the record of the file at fullPath.
func (d *Directory) FileRecord(fullPath string) (*Record, error) {
	file, err := d.GetFile(fullPath)
	if err != nil {
		return nil, err
	}
	return file.record(d.owner), nil
}

// DeleteFile detaches the file at fullPath and returns its reference and
// the record to purge.
func (d *Directory) DeleteFile(fullPath string) (FileRef, *Record, error) {
	file, err := d.GetFile(fullPath)
	if err != nil {
		return FileRef{}, nil, err
	}
	parent, err := d.doGetFolder(file.parentPath)
	if err != nil {
		return FileRef{}, nil, err
	}
	parent.RemoveFile(file.discriminator)
	return file.Ref(), file.record(d.owner), nil
}

// doGetFolder walks the tree from the root along path. The first segment
// must name the root.
func (d *Directory) doGetFolder(path string) (*FolderNode, error) {
	p, err := NewPath(path)
	if err != nil {
		return nil, err
	}

	segment, _ := p.Current()
	if segment != d.root.discriminator {
		return nil, folderDoesNotExist(segment, path)
	}

	current := d.root
	for p.HasNext() {
		p.Advance()
		segment, _ = p.Current()
		child, ok := current.Child(segment)
		if !ok {
			return nil, folderDoesNotExist(segment, path)
		}
		current = child
	}
	return current, nil
}

// splitPath splits a full path into its parent path and last segment.
func splitPath(fullPath string) (parentPath, name string, err error) {
	p, err := NewPath(fullPath)
	if err != nil {
		return "", "", err
	}
	segments := p.Segments()
	if len(segments) < 2 {
		return "", "", invalidPath(fullPath, "no parent folder")
	}
	parentPath = Separator + strings.Join(segments[:len(segments)-1], Separator)
	return parentPath, segments[len(segments)-1], nil
}
