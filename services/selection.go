package services

import (
	"math"
	"sort"
	"time"

	"teslacam/models"
)

// DefaultHighlightLimit is the number of highlight segments offered when the
// caller has no preference.
const DefaultHighlightLimit = 3

// maxScoreDistance stands in for the distance of a segment that cannot be
// placed relative to the anchor (2^53-1 milliseconds).
const maxScoreDistance = float64(1<<53 - 1)

var segmentRules = []rule[*models.Event, *models.Segment]{
	{name: "nearest-anchor", resolve: segmentNearestAnchor},
	{name: "primary-camera", resolve: segmentWithPrimaryCamera},
	{name: "front-camera", resolve: segmentWithFrontCamera},
	{name: "middle", resolve: middleSegment},
	{name: "first", resolve: firstSegment},
}

// ChooseDefaultSegment picks the segment to show first for event, or nil
// when the event has no segments.
func ChooseDefaultSegment(event *models.Event) *models.Segment {
	seg, _ := ChooseDefaultSegmentRule(event)
	return seg
}

// ChooseDefaultSegmentRule is ChooseDefaultSegment that also names the rule
// that decided.
func ChooseDefaultSegmentRule(event *models.Event) (*models.Segment, string) {
	if event == nil || len(event.Segments) == 0 {
		return nil, ""
	}
	seg, name, _ := evaluate(segmentRules, event)
	return seg, name
}

// segmentNearestAnchor returns the segment closest to the anchor; the first
// of several equally close segments wins.
func segmentNearestAnchor(e *models.Event) (*models.Segment, bool) {
	if !e.Timestamp.IsKnown() {
		return nil, false
	}
	var best *models.Segment
	var bestDiff time.Duration
	for _, seg := range e.Segments {
		diff, ok := seg.Timestamp.Sub(e.Timestamp)
		if !ok {
			continue
		}
		if diff < 0 {
			diff = -diff
		}
		if best == nil || diff < bestDiff {
			best, bestDiff = seg, diff
		}
	}
	return best, best != nil
}

func segmentWithPrimaryCamera(e *models.Event) (*models.Segment, bool) {
	primary := e.PrimaryCamera()
	if primary == "" {
		return nil, false
	}
	for _, seg := range e.Segments {
		if seg.HasCamera(primary) {
			return seg, true
		}
	}
	return nil, false
}

func segmentWithFrontCamera(e *models.Event) (*models.Segment, bool) {
	for _, seg := range e.Segments {
		for _, label := range seg.CameraOrder {
			if isFrontLabel(label) {
				return seg, true
			}
		}
	}
	return nil, false
}

func middleSegment(e *models.Event) (*models.Segment, bool) {
	if len(e.Segments) == 0 {
		return nil, false
	}
	return e.Segments[len(e.Segments)/2], true
}

func firstSegment(e *models.Event) (*models.Segment, bool) {
	if len(e.Segments) == 0 {
		return nil, false
	}
	return e.Segments[0], true
}

// ChooseHighlightSegments ranks segments by closeness to the anchor, camera
// coverage and clip count, and returns up to limit ids, best first.
func ChooseHighlightSegments(event *models.Event, limit int) []string {
	if event == nil || len(event.Segments) == 0 || limit <= 0 {
		return []string{}
	}

	totalAngles := len(event.CameraCatalog)
	if totalAngles == 0 {
		totalAngles = 1
	}

	type scored struct {
		id    string
		score float64
	}
	ranked := make([]scored, 0, len(event.Segments))
	for _, seg := range event.Segments {
		diff := maxScoreDistance
		if d, ok := seg.Timestamp.Sub(event.Timestamp); ok {
			diff = math.Abs(float64(d.Milliseconds()))
		}
		coverage := float64(len(seg.CameraOrder)) / float64(totalAngles)
		score := diff - coverage*1000 - float64(seg.ClipCount)*5
		ranked = append(ranked, scored{id: seg.ID, score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score < ranked[j].score
	})

	highlights := make([]string, 0, limit)
	seen := make(map[string]bool)
	for _, item := range ranked {
		if seen[item.id] {
			continue
		}
		seen[item.id] = true
		highlights = append(highlights, item.id)
		if len(highlights) >= limit {
			break
		}
	}
	return highlights
}

type cameraQuery struct {
	event   *models.Event
	segment *models.Segment
	current string
}

var cameraRules = []rule[cameraQuery, string]{
	{name: "selected", resolve: func(q cameraQuery) (string, bool) {
		return q.current, q.current != "" && q.segment != nil && q.segment.HasCamera(q.current)
	}},
	{name: "primary", resolve: func(q cameraQuery) (string, bool) {
		primary := q.event.PrimaryCamera()
		return primary, primary != "" && q.segment != nil && q.segment.HasCamera(primary)
	}},
	{name: "segment-front", resolve: func(q cameraQuery) (string, bool) {
		if q.segment == nil {
			return "", false
		}
		return firstFront(q.segment.CameraOrder)
	}},
	{name: "segment-first", resolve: func(q cameraQuery) (string, bool) {
		if q.segment == nil || len(q.segment.CameraOrder) == 0 {
			return "", false
		}
		return q.segment.CameraOrder[0], true
	}},
	{name: "catalog-selected", resolve: func(q cameraQuery) (string, bool) {
		return q.current, q.current != "" && q.event.HasCamera(q.current)
	}},
	{name: "catalog-primary", resolve: func(q cameraQuery) (string, bool) {
		primary := q.event.PrimaryCamera()
		return primary, primary != "" && q.event.HasCamera(primary)
	}},
	{name: "catalog-front", resolve: func(q cameraQuery) (string, bool) {
		return firstFront(q.event.CameraCatalog)
	}},
	{name: "catalog-first", resolve: func(q cameraQuery) (string, bool) {
		if len(q.event.CameraCatalog) == 0 {
			return "", false
		}
		return q.event.CameraCatalog[0], true
	}},
}

// ChooseDefaultCamera resolves the camera to show for segment. A selection
// stored in session wins while it is still available; the chosen label is
// written back to session. It returns false when no camera exists.
func ChooseDefaultCamera(event *models.Event, segment *models.Segment, session *Session) (string, bool) {
	if event == nil {
		return "", false
	}
	q := cameraQuery{event: event, segment: segment}
	if session != nil {
		q.current, _ = session.SelectedCamera(event.ID)
	}

	label, _, ok := evaluate(cameraRules, q)
	if !ok {
		return "", false
	}
	if session != nil {
		session.SelectCamera(event.ID, label)
	}
	return label, true
}

// ResolveSegment returns the segment selected in session if it still
// exists, else the default segment, which is then recorded in session.
func ResolveSegment(event *models.Event, session *Session) *models.Segment {
	if event == nil || len(event.Segments) == 0 {
		return nil
	}
	if session != nil {
		if id, ok := session.SelectedSegment(event.ID); ok {
			if seg := event.Segment(id); seg != nil {
				return seg
			}
		}
	}
	seg := ChooseDefaultSegment(event)
	if session != nil && seg != nil {
		session.SelectSegment(event.ID, seg.ID)
	}
	return seg
}

// SegmentDeltaSeconds is the signed offset of segment from the event
// anchor in whole seconds, rounded half up.
func SegmentDeltaSeconds(event *models.Event, segment *models.Segment) (int64, bool) {
	if event == nil || segment == nil {
		return 0, false
	}
	d, ok := segment.Timestamp.Sub(event.Timestamp)
	if !ok {
		return 0, false
	}
	return int64(math.Floor(d.Seconds() + 0.5)), true
}

func firstFront(labels []string) (string, bool) {
	for _, label := range labels {
		if isFrontLabel(label) {
			return label, true
		}
	}
	return "", false
}
