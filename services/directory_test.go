package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"teslacam/models"
)

func footageFS(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, data := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(data)}
	}
	return fsys
}

func TestLoadFromDirectory_GroupsSegmentsAndMetadata(t *testing.T) {
	fsys := footageFS(map[string]string{
		"SentryClips/2024-03-05_18-30-10/2024-03-05_18-29-10-front.mp4":         "f1",
		"SentryClips/2024-03-05_18-30-10/2024-03-05_18-29-10-back.mp4":          "b1",
		"SentryClips/2024-03-05_18-30-10/2024-03-05_18-30-10-front.mp4":         "f2",
		"SentryClips/2024-03-05_18-30-10/2024-03-05_18-30-10-left_repeater.mp4": "l2",
		"SentryClips/2024-03-05_18-30-10/event.json": `{
			"timestamp": "2024-03-05T18:30:05",
			"city": "Oslo",
			"est_lat": "59.91",
			"est_lon": "10.75",
			"reason": "sentry_aware_object_detection",
			"camera": "3"
		}`,
		"SentryClips/2024-03-05_18-30-10/thumb.png": "png",
	})

	events, err := LoadFromDirectory(context.Background(), fsys)
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, "SentryClips-2024-03-05_18-30-10", e.ID)
	assert.Equal(t, models.SentryClips, e.Category)
	assert.Equal(t, 4, e.ClipCount)
	require.Len(t, e.Segments, 2)
	assert.Equal(t, "2024-03-05_18-29-10", e.Segments[0].ID)
	assert.Equal(t, "2024-03-05_18-30-10", e.Segments[1].ID)
	assert.ElementsMatch(t, []string{"Front", "Rear", "Left Repeater"}, e.CameraCatalog)

	require.NotNil(t, e.Metadata)
	assert.Equal(t, "Oslo", *e.Metadata.City)
	assert.Equal(t, "Left Repeater", *e.Metadata.PrimaryCamera)
	assert.InDelta(t, 59.91, *e.Metadata.Latitude, 1e-9)

	anchor, ok := e.Timestamp.Time()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 5, 18, 30, 5, 0, time.UTC), anchor)
}

func TestLoadFromDirectory_FolderAnchorWhenMetadataTimeInvalid(t *testing.T) {
	fsys := footageFS(map[string]string{
		"SavedClips/2024-03-05_18-30-10/2024-03-05_18-29-10-front.mp4": "f",
		"SavedClips/2024-03-05_18-30-10/event.json":                     `{"timestamp": "not a date"}`,
	})

	events, err := LoadFromDirectory(context.Background(), fsys)
	require.NoError(t, err)
	require.Len(t, events, 1)

	anchor, ok := events[0].Timestamp.Time()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 5, 18, 30, 10, 0, time.UTC), anchor)
	_, rule := ResolveAnchor(events[0])
	assert.Equal(t, "folder", rule)
}

func TestLoadFromDirectory_MiddleSegmentAnchor(t *testing.T) {
	fsys := footageFS(map[string]string{
		"RecentClips/dashcam/2024-01-01_10-00-00-front.mp4": "a",
		"RecentClips/dashcam/2024-01-01_10-01-00-front.mp4": "b",
		"RecentClips/dashcam/2024-01-01_10-02-00-front.mp4": "c",
	})

	events, err := LoadFromDirectory(context.Background(), fsys)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Timestamp.Equal(mustTime(t, "2024-01-01_10-01-00")))
}

func TestLoadFromDirectory_MetadataFoldsInOrder(t *testing.T) {
	fsys := footageFS(map[string]string{
		"SavedClips/evt/2024-01-01_10-00-00-front.mp4": "a",
		"SavedClips/evt/a.json":                        `{"city": "Paris", "camera": 0}`,
		"SavedClips/evt/b.json":                        `{"reason": "user_interaction_honk"}`,
		"SavedClips/evt/c.json":                        `{"city": `,
	})

	events, err := LoadFromDirectory(context.Background(), fsys)
	require.NoError(t, err)
	require.Len(t, events, 1)

	md := events[0].Metadata
	require.NotNil(t, md)
	assert.Equal(t, "Paris", *md.City)
	assert.Equal(t, "user_interaction_honk", *md.Reason)
	assert.Equal(t, "Front", *md.PrimaryCamera)
}

func TestLoadFromDirectory_SkipsFoldersWithoutClips(t *testing.T) {
	fsys := footageFS(map[string]string{
		"SavedClips/empty/event.json":                  `{"city": "Nowhere"}`,
		"SavedClips/loose.mp4":                         "not in an event folder",
		"Other/evt/2024-01-01_10-00-00-front.mp4":      "ignored category",
		"RecentClips/evt/2024-01-01_10-00-00-rear.mp4": "kept",
	})

	events, err := LoadFromDirectory(context.Background(), fsys)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "RecentClips-evt", events[0].ID)
}

func TestLoadFromDirectory_SegmentsSortedWithUnknownLast(t *testing.T) {
	fsys := footageFS(map[string]string{
		"SavedClips/evt/zeta-front.mp4":                "z",
		"SavedClips/evt/2024-01-01_10-02-00-front.mp4": "b",
		"SavedClips/evt/alpha-front.mp4":               "a",
		"SavedClips/evt/2024-01-01_10-00-00-front.mp4": "a",
	})

	events, err := LoadFromDirectory(context.Background(), fsys)
	require.NoError(t, err)
	require.Len(t, events, 1)

	segs := events[0].Segments
	for i := 1; i < len(segs); i++ {
		prev, cur := segs[i-1], segs[i]
		if prev.Timestamp.IsKnown() && cur.Timestamp.IsKnown() {
			assert.False(t, cur.Timestamp.Before(prev.Timestamp))
		}
		if !prev.Timestamp.IsKnown() {
			assert.False(t, cur.Timestamp.IsKnown(), "known segment after unknown at %d", i)
		}
	}
	assert.Equal(t, "alpha-front", segs[2].ID)
	assert.Equal(t, "zeta-front", segs[3].ID)
}

func TestLoadFromDirectory_Cancelled(t *testing.T) {
	fsys := footageFS(map[string]string{
		"SavedClips/evt/2024-01-01_10-00-00-front.mp4": "a",
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadFromDirectory(ctx, fsys)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadFromDirectory_OnDisk(t *testing.T) {
	tempDir := t.TempDir()
	eventDir := filepath.Join(tempDir, "SavedClips", "2023-01-01_12-00-00")
	require.NoError(t, os.MkdirAll(eventDir, 0755))

	for _, name := range []string{"2023-01-01_11-59-00-front.mp4", "2023-01-01_11-59-00-back.mp4"} {
		require.NoError(t, os.WriteFile(filepath.Join(eventDir, name), []byte(name), 0644))
	}

	events, err := LoadFromDirectory(context.Background(), os.DirFS(tempDir))
	require.NoError(t, err)
	require.Len(t, events, 1)

	seg := events[0].Segments[0]
	clip := seg.PrimaryClip("Front")
	require.NotNil(t, clip)

	data, err := readAll(context.Background(), clip.Source)
	require.NoError(t, err)
	assert.Equal(t, "2023-01-01_11-59-00-front.mp4", string(data))
}
