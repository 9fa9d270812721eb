package services

import (
	"sort"

	"teslacam/models"
)

// SegmentBuilder groups clips of one event folder by segment key.
type SegmentBuilder struct {
	byKey map[string]*models.Segment
	order []*models.Segment
}

func NewSegmentBuilder() *SegmentBuilder {
	return &SegmentBuilder{byKey: make(map[string]*models.Segment)}
}

// Ensure returns the segment for key, creating it on first use. A known
// clip time earlier than the segment's current time lowers it, so a
// segment always reports its earliest clip.
func (b *SegmentBuilder) Ensure(key string, clipTime models.Timestamp) *models.Segment {
	seg, ok := b.byKey[key]
	if !ok {
		seg = models.NewSegment(key, clipTime)
		b.byKey[key] = seg
		b.order = append(b.order, seg)
	}
	if clipTime.IsKnown() && (!seg.Timestamp.IsKnown() || clipTime.Before(seg.Timestamp)) {
		seg.Timestamp = clipTime
	}
	return seg
}

func (b *SegmentBuilder) Len() int {
	return len(b.order)
}

// Sorted returns the segments chronologically. Segments without a time go
// last, ordered by id.
func (b *SegmentBuilder) Sorted() []*models.Segment {
	out := make([]*models.Segment, len(b.order))
	copy(out, b.order)
	SortSegments(out)
	return out
}

func SortSegments(segments []*models.Segment) {
	sort.SliceStable(segments, func(i, j int) bool {
		a, b := segments[i], segments[j]
		if !a.Timestamp.IsKnown() && !b.Timestamp.IsKnown() {
			return a.ID < b.ID
		}
		return models.CompareTimestamps(a.Timestamp, b.Timestamp) < 0
	})
}
