package services

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
)

// FileSource reads a clip through a live directory handle.
type FileSource struct {
	FS   fs.FS
	Path string
}

func (s FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.FS.Open(s.Path)
}

// UploadedFile is one entry of a flat folder upload. The file doubles as the
// clip source of the clip it becomes.
type UploadedFile interface {
	RelativePath() string
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// MemoryFile is an uploaded file already held in memory.
type MemoryFile struct {
	Path string
	Data []byte
}

func (f *MemoryFile) RelativePath() string { return f.Path }

func (f *MemoryFile) Name() string { return leafName(f.Path) }

func (f *MemoryFile) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return readSeekNopCloser{bytes.NewReader(f.Data)}, nil
}

// StagedFile is an uploaded file saved to local disk. Path carries the
// relative path the browser reported; Location is where the bytes live.
type StagedFile struct {
	Path     string
	Location string
}

func (f *StagedFile) RelativePath() string { return f.Path }

func (f *StagedFile) Name() string { return leafName(f.Path) }

func (f *StagedFile) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(f.Location)
}

type readSeekNopCloser struct {
	io.ReadSeeker
}

func (readSeekNopCloser) Close() error { return nil }

// readAll drains one source.
func readAll(ctx context.Context, src interface {
	Open(context.Context) (io.ReadCloser, error)
}) ([]byte, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// splitRelativePath splits on both separator styles and drops empty parts.
func splitRelativePath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\'
	})
}

func leafName(p string) string {
	parts := splitRelativePath(p)
	if len(parts) == 0 {
		return path.Base(p)
	}
	return parts[len(parts)-1]
}
