package services

import (
	"fmt"
	"strconv"

	"teslacam/models"
)

const (
	clockLayout = "15:04:05"
	dateLayout  = "Jan 2, 2006"
)

// Pluralize renders "1 angle", "3 angles".
func Pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// CategoryLabel is the short name of a category folder.
func CategoryLabel(category models.Category) string {
	switch category {
	case models.RecentClips:
		return "Recent"
	case models.SavedClips:
		return "Saved"
	case models.SentryClips:
		return "Sentry"
	}
	return string(category)
}

// FormatEventTitle shows the anchor date and time, or the folder name when
// the event has no anchor.
func FormatEventTitle(event *models.Event) string {
	t, ok := event.Timestamp.Time()
	if !ok {
		return event.FolderName
	}
	return t.Format(dateLayout) + " • " + t.Format(clockLayout)
}

// FormatAbsoluteTime is the wall-clock capture time of segment.
func FormatAbsoluteTime(segment *models.Segment) string {
	if segment == nil {
		return "Time unknown"
	}
	t, ok := segment.Timestamp.Time()
	if !ok {
		return "Time unknown"
	}
	return t.Format(clockLayout)
}

// FormatSegmentLabel is the short chip label: the trigger moment, a signed
// offset, or the wall clock when the event has no anchor.
func FormatSegmentLabel(event *models.Event, segment *models.Segment) string {
	if delta, ok := SegmentDeltaSeconds(event, segment); ok {
		switch {
		case delta == 0:
			return "Trigger moment"
		case delta > 0:
			return fmt.Sprintf("+%ds", delta)
		default:
			return fmt.Sprintf("-%ds", -delta)
		}
	}
	if segment != nil && segment.Timestamp.IsKnown() {
		return FormatAbsoluteTime(segment)
	}
	return "Segment"
}

// FormatSegmentDetails is the secondary chip text.
func FormatSegmentDetails(event *models.Event, segment *models.Segment) string {
	angles := Pluralize(len(segment.CameraOrder), "angle")
	if delta, ok := SegmentDeltaSeconds(event, segment); ok {
		switch {
		case delta == 0:
			return "Primary clip • " + angles
		case delta > 0:
			return fmt.Sprintf("%ds after • %s", delta, angles)
		default:
			return fmt.Sprintf("%ds before • %s", -delta, angles)
		}
	}
	if segment.Timestamp.IsKnown() {
		return FormatAbsoluteTime(segment) + " • " + angles
	}
	return angles
}

// DescribeSegmentTiming places segment relative to the trigger.
func DescribeSegmentTiming(event *models.Event, segment *models.Segment) string {
	coverage := Pluralize(len(segment.CameraOrder), "angle")
	delta, ok := SegmentDeltaSeconds(event, segment)
	switch {
	case !ok:
		return fmt.Sprintf("Captured at %s • %s", FormatAbsoluteTime(segment), coverage)
	case delta == 0:
		return "Primary trigger moment • " + coverage
	case delta < 0:
		return fmt.Sprintf("%ds before trigger • %s", -delta, coverage)
	default:
		return fmt.Sprintf("%ds after trigger • %s", delta, coverage)
	}
}

func FormatCoordinates(lat, lon float64) string {
	return fmt.Sprintf("%.4f, %.4f", lat, lon)
}

func MapsURL(lat, lon float64) string {
	return "https://www.google.com/maps?q=" +
		strconv.FormatFloat(lat, 'f', -1, 64) + "," +
		strconv.FormatFloat(lon, 'f', -1, 64)
}
