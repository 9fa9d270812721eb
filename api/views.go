package api

import (
	"fmt"

	"teslacam/models"
	"teslacam/services"
)

type EventSummary struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	FolderName    string           `json:"folder_name"`
	Category      models.Category  `json:"category"`
	CategoryLabel string           `json:"category_label"`
	Timestamp     models.Timestamp `json:"timestamp"`
	Angles        string           `json:"angles"`
	Segments      string           `json:"segments"`
	ClipCount     int              `json:"clip_count"`
	Reason        string           `json:"reason,omitempty"`
	City          string           `json:"city,omitempty"`
	Active        bool             `json:"active"`
}

type EventDetail struct {
	ID             string              `json:"id"`
	Title          string              `json:"title"`
	Subtitle       string              `json:"subtitle"`
	Stats          string              `json:"stats"`
	Timing         string              `json:"timing"`
	Reason         string              `json:"reason,omitempty"`
	City           string              `json:"city,omitempty"`
	Coordinates    string              `json:"coordinates,omitempty"`
	MapsURL        string              `json:"maps_url,omitempty"`
	SegmentID      string              `json:"segment_id"`
	SegmentIndex   int                 `json:"segment_index"`
	Camera         string              `json:"camera,omitempty"`
	CapturedAt     string              `json:"captured_at"`
	Cameras        []string            `json:"cameras"`
	Highlights     []string            `json:"highlights"`
	Navigation     services.Navigation `json:"navigation"`
	Metadata       *models.Metadata    `json:"metadata"`
	EventTimestamp models.Timestamp    `json:"event_timestamp"`
}

func newEventSummary(e *models.Event, selectedID string) EventSummary {
	s := EventSummary{
		ID:            e.ID,
		Title:         services.FormatEventTitle(e),
		FolderName:    e.FolderName,
		Category:      e.Category,
		CategoryLabel: services.CategoryLabel(e.Category),
		Timestamp:     e.Timestamp,
		Angles:        services.Pluralize(len(e.CameraCatalog), "angle"),
		Segments:      services.Pluralize(len(e.Segments), "segment"),
		ClipCount:     e.ClipCount,
		Active:        e.ID == selectedID,
	}
	if md := e.Metadata; md != nil {
		if md.Reason != nil {
			s.Reason = services.FormatReason(*md.Reason)
		}
		if md.City != nil {
			s.City = *md.City
		}
	}
	return s
}

func newEventDetail(e *models.Event, seg *models.Segment, camera string, highlights []string) EventDetail {
	index := e.SegmentIndex(seg.ID)
	if index < 0 {
		index = 0
	}

	d := EventDetail{
		ID:       e.ID,
		Title:    services.FormatEventTitle(e),
		Subtitle: fmt.Sprintf("%s • Segment %d of %d", services.CategoryLabel(e.Category), index+1, len(e.Segments)),
		Stats: fmt.Sprintf("%s • %s • %s",
			services.Pluralize(len(e.CameraCatalog), "angle"),
			services.Pluralize(e.ClipCount, "file"),
			services.Pluralize(len(e.Segments), "segment")),
		Timing:         services.DescribeSegmentTiming(e, seg),
		SegmentID:      seg.ID,
		SegmentIndex:   index,
		Camera:         camera,
		CapturedAt:     services.FormatAbsoluteTime(seg),
		Cameras:        seg.CameraOrder,
		Highlights:     highlights,
		Navigation:     services.SegmentNavigation(e, seg, highlights),
		Metadata:       e.Metadata,
		EventTimestamp: e.Timestamp,
	}
	if md := e.Metadata; md != nil {
		if md.Reason != nil {
			d.Reason = services.FormatReason(*md.Reason)
		}
		if md.City != nil {
			d.City = *md.City
		}
		if md.Latitude != nil && md.Longitude != nil {
			d.Coordinates = services.FormatCoordinates(*md.Latitude, *md.Longitude)
			d.MapsURL = services.MapsURL(*md.Latitude, *md.Longitude)
		}
	}
	return d
}
