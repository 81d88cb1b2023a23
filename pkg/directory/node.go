package directory

// FolderNode is an interior node of the tree.
//
// Every non-root folder satisfies fullPath == parentPath + "/" + discriminator
// and is reachable from its parent under its own discriminator. The parent
// reference is non-owning and is cleared when the node is detached.
type FolderNode struct {
	discriminator string
	fullPath      string
	parentPath    string
	id            string
	parent        *FolderNode
	children      map[string]*FolderNode
	files         map[string]*FileNode
}

func newRootNode() *FolderNode {
	return &FolderNode{
		discriminator: RootDiscriminator,
		fullPath:      RootPath,
		parentPath:    rootParentPath,
		children:      make(map[string]*FolderNode),
		files:         make(map[string]*FileNode),
	}
}

// newFolderNode builds a folder whose paths derive from parent. It is not
// attached; call parent.AddChild for that.
func newFolderNode(discriminator string, parent *FolderNode, id string) (*FolderNode, error) {
	full, err := Combine(parent.fullPath, discriminator)
	if err != nil {
		return nil, err
	}
	return &FolderNode{
		discriminator: discriminator,
		fullPath:      full,
		parentPath:    parent.fullPath,
		id:            id,
		parent:        parent,
		children:      make(map[string]*FolderNode),
		files:         make(map[string]*FileNode),
	}, nil
}

func (f *FolderNode) Discriminator() string { return f.discriminator }
func (f *FolderNode) FullPath() string      { return f.fullPath }
func (f *FolderNode) ParentPath() string    { return f.parentPath }
func (f *FolderNode) ID() string            { return f.id }
func (f *FolderNode) Parent() *FolderNode   { return f.parent }

// IsRoot reports whether f is the directory root.
func (f *FolderNode) IsRoot() bool {
	return f.parentPath == rootParentPath && f.discriminator == RootDiscriminator
}

// AddChild attaches node under its discriminator, replacing any previous
// child with that name, and returns node.
func (f *FolderNode) AddChild(node *FolderNode) *FolderNode {
	node.parent = f
	f.children[node.discriminator] = node
	return node
}

// RemoveChild detaches and returns the child named discriminator.
func (f *FolderNode) RemoveChild(discriminator string) (*FolderNode, bool) {
	child, ok := f.children[discriminator]
	if !ok {
		return nil, false
	}
	delete(f.children, discriminator)
	child.parent = nil
	return child, true
}

func (f *FolderNode) Child(discriminator string) (*FolderNode, bool) {
	child, ok := f.children[discriminator]
	return child, ok
}

func (f *FolderNode) ContainsChild(discriminator string) bool {
	_, ok := f.children[discriminator]
	return ok
}

func (f *FolderNode) File(discriminator string) (*FileNode, bool) {
	file, ok := f.files[discriminator]
	return file, ok
}

func (f *FolderNode) ContainsFile(discriminator string) bool {
	_, ok := f.files[discriminator]
	return ok
}

// RemoveFile detaches and returns the file named discriminator.
func (f *FolderNode) RemoveFile(discriminator string) (*FileNode, bool) {
	file, ok := f.files[discriminator]
	if !ok {
		return nil, false
	}
	delete(f.files, discriminator)
	return file, true
}

// AddFile rewrites file's paths to live under f and attaches it, replacing
// any previous file with that name.
func (f *FolderNode) AddFile(file *FileNode) error {
	if err := file.UpdateParentPath(f.fullPath); err != nil {
		return err
	}
	f.files[file.discriminator] = file
	return nil
}

// View returns a read-only snapshot of f.
func (f *FolderNode) View() FolderView {
	return FolderView{
		Discriminator: f.discriminator,
		FullPath:      f.fullPath,
		ParentPath:    f.parentPath,
		ChildFolders:  sortedKeys(f.children),
		Files:         sortedKeys(f.files),
	}
}

// pathUpdate is one planned path rewrite produced by planRename.
type pathUpdate struct {
	folder     *FolderNode
	file       *FileNode
	parentPath string
	fullPath   string
}

// Rename changes f's discriminator and rewrites the paths of its whole
// subtree. The new path of every descendant is computed and validated before
// anything is modified, so a failed rename leaves the tree unchanged.
func (f *FolderNode) Rename(newDiscriminator string) error {
	if f.IsRoot() {
		return NewError(ErrInternal, "the root folder cannot be renamed")
	}
	if f.parent == nil {
		return NewError(ErrInternal, "a detached folder cannot be renamed")
	}
	if err := ValidateDiscriminator(newDiscriminator); err != nil {
		return err
	}
	if newDiscriminator == f.discriminator {
		return nil
	}
	if f.parent.ContainsChild(newDiscriminator) {
		return &DirectoryError{
			Code:    ErrFolderAlreadyExists,
			Message: "folder already exists",
			Segment: newDiscriminator,
			Path:    f.parentPath,
		}
	}

	newFull, err := Combine(f.parentPath, newDiscriminator)
	if err != nil {
		return err
	}
	plan := []pathUpdate{{folder: f, parentPath: f.parentPath, fullPath: newFull}}
	plan, err = f.planRename(newFull, plan)
	if err != nil {
		return err
	}

	// Re-key in the parent before touching any path.
	parent := f.parent
	delete(parent.children, f.discriminator)
	f.discriminator = newDiscriminator
	parent.children[newDiscriminator] = f

	for _, u := range plan {
		if u.folder != nil {
			u.folder.parentPath = u.parentPath
			u.folder.fullPath = u.fullPath
			continue
		}
		u.file.parentPath = u.parentPath
		u.file.fullPath = u.fullPath
	}
	return nil
}

// planRename appends, in pre-order, the path rewrites of f's descendants
// given that f's full path becomes newFull.
func (f *FolderNode) planRename(newFull string, plan []pathUpdate) ([]pathUpdate, error) {
	for _, name := range sortedKeys(f.files) {
		full, err := Combine(newFull, name)
		if err != nil {
			return nil, err
		}
		plan = append(plan, pathUpdate{file: f.files[name], parentPath: newFull, fullPath: full})
	}
	for _, name := range sortedKeys(f.children) {
		child := f.children[name]
		full, err := Combine(newFull, name)
		if err != nil {
			return nil, err
		}
		plan = append(plan, pathUpdate{folder: child, parentPath: newFull, fullPath: full})
		if plan, err = child.planRename(full, plan); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// flatten appends one record per descendant of f (and f itself unless it is
// the root) in depth-first order.
func (f *FolderNode) flatten(owner string, out []*Record) []*Record {
	if !f.IsRoot() {
		out = append(out, &Record{
			Owner:         owner,
			Kind:          KindFolder,
			Discriminator: f.discriminator,
			FullPath:      f.fullPath,
			ParentPath:    f.parentPath,
			ID:            f.id,
		})
	}
	for _, name := range sortedKeys(f.files) {
		out = append(out, f.files[name].record(owner))
	}
	for _, name := range sortedKeys(f.children) {
		out = f.children[name].flatten(owner, out)
	}
	return out
}

// folderPaths appends the full path of f and every descendant folder.
func (f *FolderNode) folderPaths(out []string) []string {
	out = append(out, f.fullPath)
	for _, name := range sortedKeys(f.children) {
		out = f.children[name].folderPaths(out)
	}
	return out
}

// count returns the number of folders and files below f.
func (f *FolderNode) count() (folders, files int) {
	files = len(f.files)
	for _, child := range f.children {
		cf, ff := child.count()
		folders += cf + 1
		files += ff
	}
	return folders, files
}
