package services

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
	"teslacam/logger"
	"teslacam/models"
)

var (
	// ErrNoPlayableMedia means no camera of the segment could be opened.
	ErrNoPlayableMedia = errors.New("no playable media")
	// ErrHandleRevoked means the media handle was released or never issued.
	ErrHandleRevoked = errors.New("media handle revoked")
)

// MediaEntry is one playable camera of the current batch.
type MediaEntry struct {
	Handle    string           `json:"handle"`
	Label     string           `json:"label"`
	Filename  string           `json:"filename"`
	Timestamp models.Timestamp `json:"timestamp"`
}

// Playback issues revocable handles to clip bytes. Only one batch is live at
// a time: acquiring a new batch releases the previous one first.
type Playback struct {
	mu      sync.Mutex
	handles map[string]*models.Clip
}

func NewPlayback() *Playback {
	return &Playback{handles: make(map[string]*models.Clip)}
}

// Acquire materializes the first clip of every camera of segment, in camera
// order. Cameras whose bytes cannot be retrieved are left out.
func (p *Playback) Acquire(ctx context.Context, segment *models.Segment) ([]MediaEntry, error) {
	p.Release()
	if segment == nil {
		return nil, ErrNoPlayableMedia
	}
	log := logger.WithComponent("playback").WithField("segment", segment.ID)

	var entries []MediaEntry
	batch := make(map[string]*models.Clip)
	for _, label := range segment.CameraOrder {
		clip := segment.PrimaryClip(label)
		if clip == nil || clip.Source == nil {
			continue
		}
		rc, err := clip.Source.Open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithError(err).WithField("camera", label).Error("Failed to load video")
			continue
		}
		rc.Close()

		handle := uuid.NewString()
		batch[handle] = clip
		entries = append(entries, MediaEntry{
			Handle:    handle,
			Label:     label,
			Filename:  clip.Filename,
			Timestamp: clip.Timestamp,
		})
	}

	if len(entries) == 0 {
		return nil, ErrNoPlayableMedia
	}

	p.mu.Lock()
	p.handles = batch
	p.mu.Unlock()
	return entries, nil
}

// Open streams the bytes behind handle.
func (p *Playback) Open(ctx context.Context, handle string) (io.ReadCloser, *models.Clip, error) {
	p.mu.Lock()
	clip, ok := p.handles[handle]
	p.mu.Unlock()
	if !ok {
		return nil, nil, ErrHandleRevoked
	}
	rc, err := clip.Source.Open(ctx)
	if err != nil {
		return nil, nil, err
	}
	return rc, clip, nil
}

// Release revokes every handle of the current batch.
func (p *Playback) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handles = make(map[string]*models.Clip)
}

// Len is the number of live handles.
func (p *Playback) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}
