package services

import (
	"fmt"

	"teslacam/models"
)

// SegmentChip is one entry of the segment navigation strip.
type SegmentChip struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Detail    string `json:"detail"`
	Active    bool   `json:"active"`
	Highlight bool   `json:"highlight"`
}

// Navigation lists the highlighted segments and the full timeline.
type Navigation struct {
	Highlights []SegmentChip `json:"highlights"`
	Timeline   []SegmentChip `json:"timeline"`
}

// SegmentNavigation builds the chips for event with current marked active.
// Highlights keep timeline order; timeline details carry the clip ordinal.
func SegmentNavigation(event *models.Event, current *models.Segment, highlightIDs []string) Navigation {
	isHighlight := make(map[string]bool, len(highlightIDs))
	for _, id := range highlightIDs {
		isHighlight[id] = true
	}

	nav := Navigation{
		Highlights: []SegmentChip{},
		Timeline:   make([]SegmentChip, 0, len(event.Segments)),
	}
	for i, seg := range event.Segments {
		chip := SegmentChip{
			ID:        seg.ID,
			Label:     FormatSegmentLabel(event, seg),
			Detail:    FormatSegmentDetails(event, seg),
			Active:    current != nil && seg.ID == current.ID,
			Highlight: isHighlight[seg.ID],
		}
		if chip.Highlight {
			nav.Highlights = append(nav.Highlights, chip)
		}
		chip.Detail = fmt.Sprintf("Clip %d • %s", i+1, chip.Detail)
		nav.Timeline = append(nav.Timeline, chip)
	}
	return nav
}
