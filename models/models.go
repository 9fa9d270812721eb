package models

import (
	"context"
	"io"
)

// Category is one of the three fixed TeslaCam top-level folders.
type Category string

const (
	RecentClips Category = "RecentClips"
	SavedClips  Category = "SavedClips"
	SentryClips Category = "SentryClips"
)

// Categories lists the category folders in traversal order.
var Categories = []Category{RecentClips, SavedClips, SentryClips}

// ParseCategory matches a path component against the fixed categories.
func ParseCategory(name string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == name {
			return c, true
		}
	}
	return "", false
}

// Materializer lazily retrieves the bytes behind a clip.
type Materializer interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Clip is a single camera file inside a segment.
type Clip struct {
	Label     string       `json:"label"`
	Filename  string       `json:"filename"`
	Timestamp Timestamp    `json:"timestamp"`
	Source    Materializer `json:"-"`
}

// Segment groups the clips recorded during one interval across cameras.
type Segment struct {
	ID          string             `json:"id"`
	Timestamp   Timestamp          `json:"timestamp"`
	Clips       map[string][]*Clip `json:"-"`
	CameraOrder []string           `json:"camera_order"`
	ClipCount   int                `json:"clip_count"`
}

func NewSegment(id string, ts Timestamp) *Segment {
	return &Segment{
		ID:        id,
		Timestamp: ts,
		Clips:     make(map[string][]*Clip),
	}
}

// AddClip appends clip under its camera label. The label joins CameraOrder
// the first time it is seen.
func (s *Segment) AddClip(clip *Clip) {
	if _, ok := s.Clips[clip.Label]; !ok {
		s.CameraOrder = append(s.CameraOrder, clip.Label)
	}
	s.Clips[clip.Label] = append(s.Clips[clip.Label], clip)
	s.ClipCount++
}

func (s *Segment) HasCamera(label string) bool {
	_, ok := s.Clips[label]
	return ok
}

// PrimaryClip returns the first clip recorded for label.
func (s *Segment) PrimaryClip(label string) *Clip {
	clips := s.Clips[label]
	if len(clips) == 0 {
		return nil
	}
	return clips[0]
}

// Metadata is the normalized form of an event.json record. Nil fields are
// absent.
type Metadata struct {
	Timestamp     *string  `json:"timestamp"`
	City          *string  `json:"city"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Reason        *string  `json:"reason"`
	CameraIndex   *string  `json:"camera_index"`
	PrimaryCamera *string  `json:"primary_camera"`
}

// Event is one TeslaCam event folder.
type Event struct {
	ID            string     `json:"id"`
	FolderName    string     `json:"folder_name"`
	Category      Category   `json:"category"`
	Segments      []*Segment `json:"segments"`
	CameraCatalog []string   `json:"camera_catalog"`
	ClipCount     int        `json:"clip_count"`
	Timestamp     Timestamp  `json:"timestamp"`
	Metadata      *Metadata  `json:"metadata"`
}

// EventID builds the globally unique id of a category folder.
func EventID(category Category, folderName string) string {
	return string(category) + "-" + folderName
}

func (e *Event) Segment(id string) *Segment {
	for _, s := range e.Segments {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (e *Event) SegmentIndex(id string) int {
	for i, s := range e.Segments {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (e *Event) HasCamera(label string) bool {
	for _, c := range e.CameraCatalog {
		if c == label {
			return true
		}
	}
	return false
}

// PrimaryCamera returns the metadata's primary camera label, if any.
func (e *Event) PrimaryCamera() string {
	if e.Metadata == nil || e.Metadata.PrimaryCamera == nil {
		return ""
	}
	return *e.Metadata.PrimaryCamera
}

// Telemetry summarises the SEI frames embedded in a clip.
type Telemetry struct {
	Frames         int     `json:"frames"`
	Speed          float32 `json:"speed"` // mph
	Gear           string  `json:"gear"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Heading        float64 `json:"heading"`
	SteeringAngle  float32 `json:"steering_angle"`
	AutopilotState string  `json:"autopilot_state"`
	BrakeApplied   bool    `json:"brake_applied"`
	Camera         string  `json:"camera"`
}
