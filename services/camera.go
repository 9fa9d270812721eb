package services

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"teslacam/models"
)

// Camera channel ids as they appear in Tesla filenames.
const (
	ChannelFront            = "front"
	ChannelFrontWide        = "front_wide"
	ChannelLeftRepeater     = "left_repeater"
	ChannelRightRepeater    = "right_repeater"
	ChannelRear             = "rear"
	ChannelBack             = "back"
	ChannelCabin            = "cabin"
	ChannelFrontLeftFender  = "front_left_fender"
	ChannelFrontRightFender = "front_right_fender"
)

const clipTimeLayout = "2006-01-02_15-04-05"

var (
	// Tesla clip format: 2024-01-01_10-00-00-front.mp4
	clipTimeRegex = regexp.MustCompile(`\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}`)

	// Order matters: fender and wide names also contain "front".
	channelMarkers = []struct {
		marker  string
		channel string
	}{
		{"front_left", ChannelFrontLeftFender},
		{"front_right", ChannelFrontRightFender},
		{"left_repeater", ChannelLeftRepeater},
		{"right_repeater", ChannelRightRepeater},
		{"front_wide", ChannelFrontWide},
		{"front", ChannelFront},
		{"cabin", ChannelCabin},
		{"rear", ChannelRear},
		{"back", ChannelBack},
	}

	channelLabels = map[string]string{
		ChannelFront:            "Front",
		ChannelFrontWide:        "Front Wide",
		ChannelLeftRepeater:     "Left Repeater",
		ChannelRightRepeater:    "Right Repeater",
		ChannelRear:             "Rear",
		ChannelBack:             "Rear",
		ChannelCabin:            "Cabin",
		ChannelFrontLeftFender:  "Front Left Fender",
		ChannelFrontRightFender: "Front Right Fender",
	}

	// Index 2 is also the front camera on event.json records.
	channelIndex = map[string]string{
		"0": ChannelFront,
		"1": ChannelFrontWide,
		"2": ChannelFront,
		"3": ChannelLeftRepeater,
		"4": ChannelRightRepeater,
		"5": ChannelRear,
		"6": ChannelCabin,
		"7": ChannelFrontRightFender,
		"8": ChannelFrontLeftFender,
	}
)

// ResolveChannel maps a clip filename to its camera channel id. Unknown
// names fall back to the lower-cased filename stem.
func ResolveChannel(filename string) string {
	lower := strings.ToLower(filename)
	for _, m := range channelMarkers {
		if strings.Contains(lower, m.marker) {
			return m.channel
		}
	}
	return stem(lower)
}

// ChannelLabel returns the display name of a channel id.
func ChannelLabel(channel string) string {
	if label, ok := channelLabels[channel]; ok {
		return label
	}
	if channel == "" {
		return "Unknown"
	}
	return channel
}

// ChannelFromIndex maps the numeric camera field of event.json to a channel.
func ChannelFromIndex(index string) (string, bool) {
	channel, ok := channelIndex[strings.TrimSpace(index)]
	return channel, ok
}

// DeriveSegmentKey groups clips recorded in the same interval. Files
// without a capture time become their own segment.
func DeriveSegmentKey(filename string) string {
	if m := clipTimeRegex.FindString(filename); m != "" {
		return m
	}
	return stem(filename)
}

// ParseClipTimestamp reads the embedded capture time as UTC.
func ParseClipTimestamp(name string) models.Timestamp {
	m := clipTimeRegex.FindString(name)
	if m == "" {
		return models.Unknown()
	}
	t, err := time.ParseInLocation(clipTimeLayout, m, time.UTC)
	if err != nil {
		return models.Unknown()
	}
	return models.Known(t)
}

func IsClipFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".mp4")
}

func IsMetadataFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".json")
}

func isFrontLabel(label string) bool {
	return strings.Contains(strings.ToLower(label), "front")
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
