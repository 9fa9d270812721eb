package models

import (
	"time"
)

// EventRecord is the searchable projection of an Event kept in the
// in-memory index. It is rebuilt on every committed load.
type EventRecord struct {
	ID        uint      `gorm:"primary_key" json:"-"`
	CreatedAt time.Time `json:"-"`

	EventID      string     `gorm:"unique_index" json:"event_id"`
	Category     string     `gorm:"index" json:"category"`
	FolderName   string     `json:"folder_name"`
	Timestamp    *time.Time `gorm:"index" json:"timestamp"`
	ClipCount    int        `json:"clip_count"`
	SegmentCount int        `json:"segment_count"`
	CameraCount  int        `json:"camera_count"`
	City         string     `gorm:"index" json:"city"`
	Reason       string     `gorm:"index" json:"reason"`
	Latitude     *float64   `json:"latitude"`
	Longitude    *float64   `json:"longitude"`
}

// NewEventRecord projects e into its index row.
func NewEventRecord(e *Event) EventRecord {
	rec := EventRecord{
		EventID:      e.ID,
		Category:     string(e.Category),
		FolderName:   e.FolderName,
		Timestamp:    e.Timestamp.Ptr(),
		ClipCount:    e.ClipCount,
		SegmentCount: len(e.Segments),
		CameraCount:  len(e.CameraCatalog),
	}
	if md := e.Metadata; md != nil {
		if md.City != nil {
			rec.City = *md.City
		}
		if md.Reason != nil {
			rec.Reason = *md.Reason
		}
		rec.Latitude = md.Latitude
		rec.Longitude = md.Longitude
	}
	return rec
}
