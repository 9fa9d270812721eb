package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"teslacam/models"
)

func mustTime(t *testing.T, value string) models.Timestamp {
	t.Helper()
	parsed, err := time.Parse(clipTimeLayout, value)
	if err != nil {
		t.Fatalf("bad test time %q: %v", value, err)
	}
	return models.Known(parsed)
}

func newTestSegment(id string, ts models.Timestamp, labels ...string) *models.Segment {
	seg := models.NewSegment(id, ts)
	for _, label := range labels {
		seg.AddClip(&models.Clip{
			Label:     label,
			Filename:  id + "-" + label + ".mp4",
			Timestamp: ts,
			Source:    &MemoryFile{Path: id + "-" + label + ".mp4", Data: []byte(label)},
		})
	}
	return seg
}

func newTestEvent(anchor models.Timestamp, segments ...*models.Segment) *models.Event {
	e := &models.Event{
		ID:         "SavedClips-test",
		FolderName: "test",
		Category:   models.SavedClips,
		Segments:   segments,
		Timestamp:  anchor,
	}
	seen := map[string]bool{}
	for _, s := range segments {
		e.ClipCount += s.ClipCount
		for _, label := range s.CameraOrder {
			if !seen[label] {
				seen[label] = true
				e.CameraCatalog = append(e.CameraCatalog, label)
			}
		}
	}
	return e
}

func strPtr(s string) *string { return &s }

// failingFile is an upload whose bytes cannot be read.
type failingFile struct {
	path string
}

func (f failingFile) RelativePath() string { return f.path }
func (f failingFile) Name() string         { return leafName(f.path) }
func (f failingFile) Open(ctx context.Context) (io.ReadCloser, error) {
	return nil, errors.New("read failed")
}
