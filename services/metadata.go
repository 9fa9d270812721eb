package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"teslacam/models"
)

// ErrMalformedMetadata marks an event.json that is not valid JSON. It is a
// warning: the previous snapshot stays in effect.
var ErrMalformedMetadata = errors.New("malformed event metadata")

var reasonLabels = map[string]string{
	"sentry_aware_object_detection":                  "Sentry detected activity",
	"sentry_aware_glass_break":                       "Sentry detected glass break",
	"sentry_aware_door_opened":                       "Sentry detected door open",
	"sentry_aware_intrusion":                         "Sentry detected intrusion",
	"sentry_aware_tilt":                              "Sentry detected vehicle tilt",
	"sentry_aware_impact":                            "Sentry detected impact",
	"user_interaction_dashcam_launcher_action_tapped": "Manual save via dashcam icon",
	"user_interaction_save_clip":                     "Manual save (long press)",
	"user_interaction_honk":                          "Horn triggered recording",
	"user_interaction_security_alert":                "Manual security alert",
	"user_interaction_shield_mode_enabled":           "Shield mode enabled",
	"user_interaction_shield_mode_disabled":          "Shield mode disabled",
}

var (
	latitudeKeys  = []string{"est_lat", "latitude", "lat"}
	longitudeKeys = []string{"est_lon", "longitude", "lon"}
	titleWord     = regexp.MustCompile(`\w\S*`)
)

// ParseMetadata decodes an event.json body and merges it over prior.
// Empty or non-object input leaves prior untouched. Invalid JSON returns
// prior together with an error wrapping ErrMalformedMetadata.
func ParseMetadata(data []byte, prior *models.Metadata) (*models.Metadata, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return prior, nil
	}
	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return prior, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	raw, ok := decoded.(map[string]interface{})
	if !ok {
		return prior, nil
	}
	return NormalizeMetadata(raw, prior), nil
}

// NormalizeMetadata merges a decoded record over prior field by field. A
// field missing from raw keeps the prior value.
func NormalizeMetadata(raw map[string]interface{}, prior *models.Metadata) *models.Metadata {
	if raw == nil {
		return prior
	}
	if prior == nil {
		prior = &models.Metadata{}
	}

	md := &models.Metadata{
		Timestamp:     firstString(stringField(raw, "timestamp"), prior.Timestamp),
		City:          firstString(stringField(raw, "city"), prior.City),
		Latitude:      firstNumber(numberField(raw, latitudeKeys), prior.Latitude),
		Longitude:     firstNumber(numberField(raw, longitudeKeys), prior.Longitude),
		Reason:        firstString(stringField(raw, "reason"), prior.Reason),
		CameraIndex:   firstString(stringField(raw, "camera"), prior.CameraIndex),
		PrimaryCamera: prior.PrimaryCamera,
	}

	if md.CameraIndex != nil {
		if channel, ok := ChannelFromIndex(*md.CameraIndex); ok {
			label := ChannelLabel(channel)
			md.PrimaryCamera = &label
		}
	}
	return md
}

// FormatReason turns a trigger code into readable text.
func FormatReason(reason string) string {
	if label, ok := reasonLabels[reason]; ok {
		return label
	}
	return titleWord.ReplaceAllStringFunc(strings.ReplaceAll(reason, "_", " "), func(w string) string {
		return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	})
}

func stringField(raw map[string]interface{}, key string) *string {
	var s string
	switch v := raw[key].(type) {
	case string:
		s = v
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(v)
	default:
		return nil
	}
	return &s
}

// numberField reads the first alias present in raw. A present but
// non-numeric value yields nil, never NaN or Inf.
func numberField(raw map[string]interface{}, keys []string) *float64 {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		return safeNumber(v)
	}
	return nil
}

func safeNumber(v interface{}) *float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func firstString(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstNumber(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
