package service

import (
	"context"

	"github.com/marmos91/dittodir/pkg/directory"
	"github.com/marmos91/dittodir/pkg/metrics"
	"github.com/marmos91/dittodir/pkg/store/record"
)

// FileService implements file operations on top of a RecordStore.
type FileService struct {
	base
}

// NewFileService creates a FileService. Pass the locks of the
// DirectoryService working on the same store.
func NewFileService(store record.RecordStore, m metrics.DirectoryMetrics, locks *OwnerLocks) *FileService {
	return &FileService{base: newBase(store, m, locks)}
}

// UploadFile stores a new file under an existing folder.
func (s *FileService) UploadFile(ctx context.Context, owner string, req directory.FileRequest) (ref directory.FileRef, err error) {
	done := s.begin("UploadFile", owner, req.ParentPath+directory.Separator+req.Discriminator)
	defer func() { done(err) }()

	if err = requireOwner(owner); err != nil {
		return directory.FileRef{}, err
	}
	if err = req.Normalize(); err != nil {
		return directory.FileRef{}, err
	}
	fullPath, err := req.FullPath()
	if err != nil {
		return directory.FileRef{}, err
	}

	unlock := s.locks.Lock(owner)
	defer unlock()

	// The loaded tree holds every file, so CreateFile reports conflicts.
	dir, err := s.load(ctx, owner)
	if err != nil {
		return directory.FileRef{}, err
	}
	if ref, err = dir.CreateFile(req); err != nil {
		return directory.FileRef{}, err
	}

	rec, err := dir.FileRecord(fullPath)
	if err != nil {
		return directory.FileRef{}, err
	}
	if err = s.save(ctx, owner, []*directory.Record{rec}); err != nil {
		return directory.FileRef{}, err
	}
	return ref, nil
}

// ReadFile returns the content of the file at fullPath.
func (s *FileService) ReadFile(ctx context.Context, owner, fullPath string) (payload []byte, err error) {
	done := s.begin("ReadFile", owner, fullPath)
	defer func() { done(err) }()

	if err = requireOwner(owner); err != nil {
		return nil, err
	}
	if fullPath, err = directory.CanonicalPath(fullPath); err != nil {
		return nil, err
	}

	unlock := s.locks.RLock(owner)
	defer unlock()

	rec, err := s.findFile(ctx, owner, fullPath)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fileDoesNotExist(fullPath)
	}
	return rec.Payload, nil
}

// UpdateFile replaces the content of an existing file.
func (s *FileService) UpdateFile(ctx context.Context, owner string, req directory.FileRequest) (ref directory.FileRef, err error) {
	done := s.begin("UpdateFile", owner, req.ParentPath+directory.Separator+req.Discriminator)
	defer func() { done(err) }()

	if err = requireOwner(owner); err != nil {
		return directory.FileRef{}, err
	}
	if err = req.Normalize(); err != nil {
		return directory.FileRef{}, err
	}
	fullPath, err := req.FullPath()
	if err != nil {
		return directory.FileRef{}, err
	}

	unlock := s.locks.Lock(owner)
	defer unlock()

	rec, err := s.findFile(ctx, owner, fullPath)
	if err != nil {
		return directory.FileRef{}, err
	}
	if rec == nil {
		return directory.FileRef{}, fileDoesNotExist(fullPath)
	}

	rec.Payload = req.Payload
	if err = s.save(ctx, owner, []*directory.Record{rec}); err != nil {
		return directory.FileRef{}, err
	}
	return directory.FileRef{ParentPath: rec.ParentPath, Discriminator: rec.Discriminator}, nil
}

// DeleteFile removes the file at fullPath.
func (s *FileService) DeleteFile(ctx context.Context, owner, fullPath string) (ref directory.FileRef, err error) {
	done := s.begin("DeleteFile", owner, fullPath)
	defer func() { done(err) }()

	if err = requireOwner(owner); err != nil {
		return directory.FileRef{}, err
	}
	if err = directory.ValidatePath(fullPath); err != nil {
		return directory.FileRef{}, err
	}

	unlock := s.locks.Lock(owner)
	defer unlock()

	dir, err := s.load(ctx, owner)
	if err != nil {
		return directory.FileRef{}, err
	}
	ref, rec, err := dir.DeleteFile(fullPath)
	if err != nil {
		return directory.FileRef{}, err
	}
	if err = s.delete(ctx, owner, []*directory.Record{rec}); err != nil {
		return directory.FileRef{}, err
	}
	return ref, nil
}

func fileDoesNotExist(fullPath string) error {
	return &directory.DirectoryError{
		Code:    directory.ErrFileDoesNotExist,
		Message: "file does not exist",
		Path:    fullPath,
	}
}
