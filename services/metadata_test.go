package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"teslacam/models"
)

func TestParseMetadata_CameraIndexAndReason(t *testing.T) {
	md, err := ParseMetadata([]byte(`{ "camera": "3", "reason": "sentry_aware_object_detection" }`), nil)
	require.NoError(t, err)
	require.NotNil(t, md)

	require.NotNil(t, md.PrimaryCamera)
	assert.Equal(t, "Left Repeater", *md.PrimaryCamera)
	assert.Equal(t, "3", *md.CameraIndex)
	assert.Equal(t, "Sentry detected activity", FormatReason(*md.Reason))
	assert.Nil(t, md.City)
	assert.Nil(t, md.Timestamp)
}

func TestParseMetadata_NumericCamera(t *testing.T) {
	md, err := ParseMetadata([]byte(`{"camera": 6}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "6", *md.CameraIndex)
	assert.Equal(t, "Cabin", *md.PrimaryCamera)
}

func TestParseMetadata_Coordinates(t *testing.T) {
	md, err := ParseMetadata([]byte(`{"est_lat": "37.7749", "longitude": -122.4194}`), nil)
	require.NoError(t, err)
	assert.InDelta(t, 37.7749, *md.Latitude, 1e-9)
	assert.InDelta(t, -122.4194, *md.Longitude, 1e-9)

	md, err = ParseMetadata([]byte(`{"est_lat": "abc", "lat": 12, "lon": "Infinity"}`), nil)
	require.NoError(t, err)
	assert.Nil(t, md.Latitude, "first present alias wins even when invalid")
	assert.Nil(t, md.Longitude, "non-finite values become null")

	md, err = ParseMetadata([]byte(`{"est_lat": "NaN", "est_lon": null, "lon": 4.5}`), nil)
	require.NoError(t, err)
	assert.Nil(t, md.Latitude)
	assert.InDelta(t, 4.5, *md.Longitude, 1e-9)
}

func TestNormalizeMetadata_MergesOverPrior(t *testing.T) {
	prior, err := ParseMetadata([]byte(`{"city": "Austin", "camera": 0, "est_lat": 30.2, "reason": "user_interaction_honk"}`), nil)
	require.NoError(t, err)

	md, err := ParseMetadata([]byte(`{"reason": "sentry_aware_tilt", "camera": "99"}`), prior)
	require.NoError(t, err)

	assert.Equal(t, "Austin", *md.City)
	assert.InDelta(t, 30.2, *md.Latitude, 1e-9)
	assert.Equal(t, "sentry_aware_tilt", *md.Reason)
	assert.Equal(t, "99", *md.CameraIndex)
	// 99 maps to no channel, so the earlier primary camera stays.
	assert.Equal(t, "Front", *md.PrimaryCamera)

	// The prior snapshot is not modified.
	assert.Equal(t, "user_interaction_honk", *prior.Reason)
}

func TestNormalizeMetadata_Idempotent(t *testing.T) {
	raw := map[string]interface{}{
		"timestamp": "2024-01-01T10:00:30",
		"city":      "Berlin",
		"est_lat":   "52.52",
		"est_lon":   13.405,
		"reason":    "sentry_aware_object_detection",
		"camera":    "1",
	}
	first := NormalizeMetadata(raw, nil)
	second := NormalizeMetadata(raw, first)
	assert.Equal(t, first, second)
	assert.Equal(t, "Front Wide", *second.PrimaryCamera)
}

func TestParseMetadata_Malformed(t *testing.T) {
	prior := &models.Metadata{City: strPtr("Oslo")}

	md, err := ParseMetadata([]byte(`{"city": `), prior)
	assert.True(t, errors.Is(err, ErrMalformedMetadata))
	assert.Same(t, prior, md)

	md, err = ParseMetadata([]byte(`not json`), nil)
	assert.True(t, errors.Is(err, ErrMalformedMetadata))
	assert.Nil(t, md)
}

func TestParseMetadata_EmptyAndNonObject(t *testing.T) {
	prior := &models.Metadata{City: strPtr("Oslo")}

	md, err := ParseMetadata([]byte("  \n"), prior)
	assert.NoError(t, err)
	assert.Same(t, prior, md)

	md, err = ParseMetadata([]byte(`[1, 2]`), prior)
	assert.NoError(t, err)
	assert.Same(t, prior, md)
}

func TestFormatReason(t *testing.T) {
	assert.Equal(t, "Horn triggered recording", FormatReason("user_interaction_honk"))
	assert.Equal(t, "Shield mode enabled", FormatReason("user_interaction_shield_mode_enabled"))
	assert.Equal(t, "Custom Reason Code", FormatReason("custom_REASON_code"))
}
