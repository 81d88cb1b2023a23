package service

import (
	"context"

	"github.com/marmos91/dittodir/pkg/directory"
	"github.com/marmos91/dittodir/pkg/metrics"
	"github.com/marmos91/dittodir/pkg/store/record"
)

// DirectoryService implements folder operations on top of a RecordStore.
//
// Every call rebuilds the owner's tree from the store, so no state is held
// between calls apart from the owner locks.
type DirectoryService struct {
	base
}

// NewDirectoryService creates a DirectoryService. A nil m disables metrics;
// a nil locks gives the service its own lock table.
func NewDirectoryService(store record.RecordStore, m metrics.DirectoryMetrics, locks *OwnerLocks) *DirectoryService {
	return &DirectoryService{base: newBase(store, m, locks)}
}

// GetUserDirectory loads owner's complete tree.
func (s *DirectoryService) GetUserDirectory(ctx context.Context, owner string) (dir *directory.Directory, err error) {
	done := s.begin("GetUserDirectory", owner, directory.RootPath)
	defer func() { done(err) }()

	if err = requireOwner(owner); err != nil {
		return nil, err
	}

	unlock := s.locks.RLock(owner)
	defer unlock()

	return s.load(ctx, owner)
}

// CreateFolder creates an empty folder and persists its record.
func (s *DirectoryService) CreateFolder(ctx context.Context, owner string, req directory.FolderRequest) (view directory.FolderView, err error) {
	done := s.begin("CreateFolder", owner, req.ParentPath+directory.Separator+req.Discriminator)
	defer func() { done(err) }()

	if err = requireOwner(owner); err != nil {
		return directory.FolderView{}, err
	}
	if err = req.Normalize(); err != nil {
		return directory.FolderView{}, err
	}

	unlock := s.locks.Lock(owner)
	defer unlock()

	dir, err := s.load(ctx, owner)
	if err != nil {
		return directory.FolderView{}, err
	}
	if view, err = dir.CreateFolder(req); err != nil {
		return directory.FolderView{}, err
	}

	records, err := dir.GetSubDirectory(view.FullPath)
	if err != nil {
		return directory.FolderView{}, err
	}
	if err = s.save(ctx, owner, records); err != nil {
		return directory.FolderView{}, err
	}
	return view, nil
}

// ReadFolder returns a snapshot of the folder at path.
func (s *DirectoryService) ReadFolder(ctx context.Context, owner, path string) (view directory.FolderView, err error) {
	done := s.begin("ReadFolder", owner, path)
	defer func() { done(err) }()

	if err = requireOwner(owner); err != nil {
		return directory.FolderView{}, err
	}
	if err = directory.ValidatePath(path); err != nil {
		return directory.FolderView{}, err
	}

	unlock := s.locks.RLock(owner)
	defer unlock()

	dir, err := s.load(ctx, owner)
	if err != nil {
		return directory.FolderView{}, err
	}
	return dir.ReadFolder(path)
}

// UpdateFolder renames a folder. The renamed subtree is saved with its
// existing IDs, which moves the stored records to their new paths.
func (s *DirectoryService) UpdateFolder(ctx context.Context, owner string, req directory.RenameRequest) (view directory.FolderView, err error) {
	done := s.begin("UpdateFolder", owner, req.Target.ParentPath+directory.Separator+req.Target.Discriminator)
	defer func() { done(err) }()

	if err = requireOwner(owner); err != nil {
		return directory.FolderView{}, err
	}
	if err = req.Normalize(); err != nil {
		return directory.FolderView{}, err
	}

	unlock := s.locks.Lock(owner)
	defer unlock()

	dir, err := s.load(ctx, owner)
	if err != nil {
		return directory.FolderView{}, err
	}
	if view, err = dir.UpdateFolderDiscriminator(req); err != nil {
		return directory.FolderView{}, err
	}

	records, err := dir.GetSubDirectory(view.FullPath)
	if err != nil {
		return directory.FolderView{}, err
	}
	if err = s.save(ctx, owner, records); err != nil {
		return directory.FolderView{}, err
	}
	return view, nil
}

// DeleteFolder removes a folder with its whole subtree and returns a
// snapshot of the removed folder.
func (s *DirectoryService) DeleteFolder(ctx context.Context, owner, path string) (view directory.FolderView, err error) {
	done := s.begin("DeleteFolder", owner, path)
	defer func() { done(err) }()

	if err = requireOwner(owner); err != nil {
		return directory.FolderView{}, err
	}
	if err = directory.ValidatePath(path); err != nil {
		return directory.FolderView{}, err
	}

	unlock := s.locks.Lock(owner)
	defer unlock()

	dir, err := s.load(ctx, owner)
	if err != nil {
		return directory.FolderView{}, err
	}
	view, removed, err := dir.DeleteParentAndAllChildren(path)
	if err != nil {
		return directory.FolderView{}, err
	}
	if err = s.delete(ctx, owner, removed); err != nil {
		return directory.FolderView{}, err
	}
	return view, nil
}

// ListDirectory returns every record of owner in tree order, with file
// payloads stripped.
func (s *DirectoryService) ListDirectory(ctx context.Context, owner string) (records []*directory.Record, err error) {
	done := s.begin("ListDirectory", owner, directory.RootPath)
	defer func() { done(err) }()

	if err = requireOwner(owner); err != nil {
		return nil, err
	}

	unlock := s.locks.RLock(owner)
	defer unlock()

	dir, err := s.load(ctx, owner)
	if err != nil {
		return nil, err
	}

	records = dir.Flatten()
	for _, rec := range records {
		rec.Payload = nil
	}
	return records, nil
}
