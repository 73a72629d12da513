package printing

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

// StoredReport describes a PDF kept in the output directory.
type StoredReport struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// FileSystemStorage keeps exported PDFs flat in one directory, named by the
// report's file name.
type FileSystemStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewFileSystemStorage creates the output directory when missing.
func NewFileSystemStorage(baseDir string, log *zap.Logger) (*FileSystemStorage, error) {
	if baseDir == "" {
		baseDir = "./reports"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to create storage directory: "+baseDir, err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FileSystemStorage{baseDir: baseDir, logger: log}, nil
}

// Store writes data under name, replacing an earlier export of the same
// shop and period. The write goes through a temp file so readers never see a
// partial PDF.
func (s *FileSystemStorage) Store(ctx context.Context, name string, data []byte) (*StoredReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "operation cancelled", err)
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, NewRenderError(ErrCodeStorageFailed, "PDF data is empty", nil)
	}

	tmp, err := os.CreateTemp(s.baseDir, ".export-*.pdf")
	if err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to create temp file", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to write PDF file", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to write PDF file", err)
	}
	path := filepath.Join(s.baseDir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to move PDF into place", err)
	}

	s.logger.Info("PDF stored", zap.String("path", path), zap.Int("size", len(data)))
	return &StoredReport{Name: name, Path: path, Size: int64(len(data)), ModTime: time.Now()}, nil
}

// Open returns a reader for a stored report.
func (s *FileSystemStorage) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "operation cancelled", err)
	}
	if err := validName(name); err != nil {
		s.logger.Warn("blocked invalid report name", zap.String("name", name))
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.baseDir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewRenderError(ErrCodeStorageFailed, "PDF not found", err)
		}
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to open PDF file", err)
	}
	return f, nil
}

// List returns the stored reports, newest first.
func (s *FileSystemStorage) List(ctx context.Context) ([]StoredReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "operation cancelled", err)
	}
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to read storage directory", err)
	}
	out := make([]StoredReport, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".pdf" || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, StoredReport{
			Name:    e.Name(),
			Path:    filepath.Join(s.baseDir, e.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	slices.SortStableFunc(out, func(a, b StoredReport) int {
		return b.ModTime.Compare(a.ModTime)
	})
	return out, nil
}

// validName accepts a bare .pdf file name.
func validName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) ||
		name == "." || name == ".." || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".pdf" {
		return NewRenderError(ErrCodeStorageFailed, "invalid report name", nil)
	}
	return nil
}
