package services

import (
	"time"

	"github.com/sirupsen/logrus"
	"teslacam/logger"
	"teslacam/models"
)

// metadataTimeLayouts are tried in order. Zone-less values are read as UTC.
var metadataTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// eventBuilder accumulates the clips and metadata of one event folder. Both
// the directory and upload loaders feed it file by file.
type eventBuilder struct {
	category   models.Category
	folderName string
	segments   *SegmentBuilder
	catalog    []string
	seen       map[string]bool
	clipCount  int
	metadata   *models.Metadata
	pending    []UploadedFile
	log        *logrus.Entry
}

func newEventBuilder(category models.Category, folderName string) *eventBuilder {
	return &eventBuilder{
		category:   category,
		folderName: folderName,
		segments:   NewSegmentBuilder(),
		seen:       make(map[string]bool),
		log: logger.WithComponent("assembler").WithFields(logrus.Fields{
			"category": category,
			"folder":   folderName,
		}),
	}
}

func (b *eventBuilder) id() string {
	return models.EventID(b.category, b.folderName)
}

// addClip routes one video file into its segment.
func (b *eventBuilder) addClip(name string, src models.Materializer) {
	label := ChannelLabel(ResolveChannel(name))
	clipTime := ParseClipTimestamp(name)
	seg := b.segments.Ensure(DeriveSegmentKey(name), clipTime)

	seg.AddClip(&models.Clip{
		Label:     label,
		Filename:  name,
		Timestamp: clipTime,
		Source:    src,
	})
	b.clipCount++

	if !b.seen[label] {
		b.seen[label] = true
		b.catalog = append(b.catalog, label)
	}
}

// applyMetadata folds one metadata file into the running snapshot.
func (b *eventBuilder) applyMetadata(name string, data []byte) {
	md, err := ParseMetadata(data, b.metadata)
	if err != nil {
		b.log.WithField("file", name).WithError(err).Warn("Failed to parse metadata json")
	}
	b.metadata = md
}

// finalize produces the event, or false when the folder held no clips.
func (b *eventBuilder) finalize() (*models.Event, bool) {
	if b.segments.Len() == 0 {
		b.log.Debug("Skipping event folder without clips")
		return nil, false
	}

	event := &models.Event{
		ID:            b.id(),
		FolderName:    b.folderName,
		Category:      b.category,
		Segments:      b.segments.Sorted(),
		CameraCatalog: b.catalog,
		ClipCount:     b.clipCount,
		Metadata:      b.metadata,
	}
	event.Timestamp, _ = ResolveAnchor(event)
	return event, true
}

var anchorRules = []rule[*models.Event, models.Timestamp]{
	{name: "metadata", resolve: anchorFromMetadata},
	{name: "folder", resolve: anchorFromFolder},
	{name: "middle-segment", resolve: anchorFromMiddleSegment},
}

// ResolveAnchor derives the event's trigger instant and names the rule that
// produced it. It returns an unknown timestamp when every rule fails.
func ResolveAnchor(event *models.Event) (models.Timestamp, string) {
	ts, name, ok := evaluate(anchorRules, event)
	if !ok {
		return models.Unknown(), ""
	}
	return ts, name
}

func anchorFromMetadata(e *models.Event) (models.Timestamp, bool) {
	if e.Metadata == nil || e.Metadata.Timestamp == nil {
		return models.Unknown(), false
	}
	ts := ParseMetadataTimestamp(*e.Metadata.Timestamp)
	return ts, ts.IsKnown()
}

func anchorFromFolder(e *models.Event) (models.Timestamp, bool) {
	ts := ParseClipTimestamp(e.FolderName)
	return ts, ts.IsKnown()
}

func anchorFromMiddleSegment(e *models.Event) (models.Timestamp, bool) {
	if len(e.Segments) == 0 {
		return models.Unknown(), false
	}
	ts := e.Segments[len(e.Segments)/2].Timestamp
	return ts, ts.IsKnown()
}

// ParseMetadataTimestamp reads the ISO-like timestamp of event.json.
func ParseMetadataTimestamp(value string) models.Timestamp {
	if value == "" {
		return models.Unknown()
	}
	for _, layout := range metadataTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return models.Known(t)
		}
	}
	return models.Unknown()
}
