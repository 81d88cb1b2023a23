package directory

import "sort"

// FolderView is a read-only snapshot of one folder: its own identity plus
// the names of its direct children. It shares no state with the tree.
type FolderView struct {
	Discriminator string   `json:"discriminator"`
	FullPath      string   `json:"fullPath"`
	ParentPath    string   `json:"parentPath"`
	ChildFolders  []string `json:"childFolders"`
	Files         []string `json:"files"`
}

// HasChild reports whether the view lists a child folder named name.
func (v FolderView) HasChild(name string) bool {
	i := sort.SearchStrings(v.ChildFolders, name)
	return i < len(v.ChildFolders) && v.ChildFolders[i] == name
}

// HasFile reports whether the view lists a file named name.
func (v FolderView) HasFile(name string) bool {
	i := sort.SearchStrings(v.Files, name)
	return i < len(v.Files) && v.Files[i] == name
}

// FileRef identifies a file by its parent folder and name.
type FileRef struct {
	ParentPath    string `json:"parentPath"`
	Discriminator string `json:"discriminator"`
}

// FullPath returns the file's full path.
func (r FileRef) FullPath() (string, error) {
	return Combine(r.ParentPath, r.Discriminator)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
