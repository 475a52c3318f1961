// Package upload stores user supplied source files and registers them in
// the catalog so FILE data sources can refer to them by id.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	gerrors "github.com/gulp-tools/gulp/internal/errors"
	"github.com/gulp-tools/gulp/internal/logging"
	"github.com/gulp-tools/gulp/internal/storage"
	"github.com/gulp-tools/gulp/pkg/types"
)

// Prefix is the object storage prefix for uploaded files.
const Prefix = "uploads"

// FileCatalog is the part of the catalog the service needs.
type FileCatalog interface {
	CreateFile(ctx context.Context, path string, userID int64, originalFilename string) (int64, error)
	GetFile(ctx context.Context, fileID int64) (*types.File, error)
	FilePaths(ctx context.Context) (map[string]struct{}, error)
}

// Service stores uploads as snappy streams in object storage.
type Service struct {
	files   FileCatalog
	storage storage.ObjectStorage
	logger  *slog.Logger
}

// NewService creates an upload service.
func NewService(files FileCatalog, st storage.ObjectStorage, logger *slog.Logger) *Service {
	return &Service{files: files, storage: st, logger: logging.OrDefault(logger)}
}

// Store writes r to uploads/<uuid>.sz and inserts the file record.
func (s *Service) Store(ctx context.Context, userID int64, originalName string, r io.Reader) (*types.File, error) {
	objectPath := path.Join(Prefix, uuid.NewString()+".sz")
	n, err := storage.PutCompressed(ctx, s.storage, objectPath, r)
	if err != nil {
		return nil, gerrors.NewStorageError(gerrors.CodeTxFailed, "Could not store uploaded file", err)
	}

	name := strings.TrimSpace(path.Base(strings.ReplaceAll(originalName, "\\", "/")))
	if name == "." || name == "/" {
		name = ""
	}
	id, err := s.files.CreateFile(ctx, objectPath, userID, name)
	if err != nil {
		if derr := s.storage.Delete(ctx, objectPath); derr != nil {
			s.logger.Warn("failed to remove orphaned upload", "path", objectPath, "error", derr)
		}
		return nil, err
	}

	s.logger.Info("stored upload", "file_id", id, "path", objectPath, "bytes", n, "user_id", userID)
	return &types.File{ID: id, Path: objectPath, UserID: userID, OriginalFilename: name}, nil
}

// Open returns the uncompressed content of an uploaded file.
func (s *Service) Open(ctx context.Context, fileID int64) (io.ReadCloser, *types.File, error) {
	f, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := storage.GetCompressed(ctx, s.storage, f.Path)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, gerrors.NewTransportError(gerrors.CodeFileNotFound,
				fmt.Sprintf("Uploaded file #%d is missing from storage", fileID), err)
		}
		return nil, nil, gerrors.NewTransportError(gerrors.CodeFetchFailed,
			fmt.Sprintf("Could not read uploaded file #%d", fileID), err)
	}
	return rc, f, nil
}

// Stat returns the record of an uploaded file after checking that its
// object is still in storage.
func (s *Service) Stat(ctx context.Context, fileID int64) (*types.File, error) {
	f, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	ok, err := s.storage.Exists(ctx, f.Path)
	if err != nil {
		return nil, gerrors.NewTransportError(gerrors.CodeFetchFailed,
			fmt.Sprintf("Could not check uploaded file #%d", fileID), err)
	}
	if !ok {
		return nil, gerrors.NewTransportError(gerrors.CodeFileNotFound,
			fmt.Sprintf("Uploaded file #%d is missing from storage", fileID), nil)
	}
	return f, nil
}

// PruneOrphans removes objects under Prefix that no file record points to
// and returns their paths. With dryRun nothing is deleted. Store writes the
// object before its record, so run this while no uploads are in flight.
func (s *Service) PruneOrphans(ctx context.Context, dryRun bool) ([]string, error) {
	objects, err := s.storage.ListObjects(ctx, Prefix)
	if err != nil {
		return nil, gerrors.NewStorageError(gerrors.CodeQueryFailed, "Could not list uploads", err)
	}
	known, err := s.files.FilePaths(ctx)
	if err != nil {
		return nil, err
	}

	var orphans []string
	for _, p := range objects {
		if _, ok := known[p]; ok {
			continue
		}
		orphans = append(orphans, p)
		if dryRun {
			continue
		}
		if err := s.storage.Delete(ctx, p); err != nil {
			return orphans, gerrors.NewStorageError(gerrors.CodeQueryFailed,
				fmt.Sprintf("Could not delete %s", p), err)
		}
	}
	s.logger.Info("pruned uploads", "objects", len(objects), "orphans", len(orphans), "dry_run", dryRun)
	return orphans, nil
}
