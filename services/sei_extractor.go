package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
	"teslacam/logger"
	"teslacam/models"
)

const (
	NAL_ID_SEI                        = 6
	NAL_SEI_ID_USER_DATA_UNREGISTERED = 5
	// MaxSEINalSize limits memory allocation for SEI NALs (1MB)
	MaxSEINalSize = 1024 * 1024
	// MaxInMemoryClip bounds how much of a non-seekable clip is buffered.
	MaxInMemoryClip = 256 * 1024 * 1024
)

var (
	ErrNoMdat      = errors.New("mdat atom not found")
	ErrNoTelemetry = errors.New("no telemetry in clip")
)

// Field numbers of Tesla's SeiMetadata message (dashcam.proto).
const (
	seiFieldGear           protowire.Number = 2
	seiFieldFrameSeqNo     protowire.Number = 3
	seiFieldSpeedMps       protowire.Number = 4
	seiFieldSteeringAngle  protowire.Number = 6
	seiFieldBrakeApplied   protowire.Number = 9
	seiFieldAutopilotState protowire.Number = 10
	seiFieldLatitude       protowire.Number = 11
	seiFieldLongitude      protowire.Number = 12
	seiFieldHeading        protowire.Number = 13
)

var (
	gearNames      = map[uint64]string{0: "Park", 1: "Drive", 2: "Reverse", 3: "Neutral"}
	autopilotNames = map[uint64]string{0: "None", 1: "Self Driving", 2: "Autosteer", 3: "TACC"}
)

// SEIFrame is one decoded SeiMetadata message.
type SEIFrame struct {
	Gear               uint64
	FrameSeqNo         uint64
	VehicleSpeedMps    float32
	SteeringWheelAngle float32
	BrakeApplied       bool
	AutopilotState     uint64
	LatitudeDeg        float64
	LongitudeDeg       float64
	HeadingDeg         float64
}

// ExtractSEI extracts all SeiMetadata frames from an MP4 stream.
func ExtractSEI(r io.ReadSeeker) ([]SEIFrame, error) {
	offset, size, err := findMdat(r)
	if err != nil {
		return nil, err
	}

	var frames []SEIFrame
	err = walkSEINals(r, offset, size, func(nal []byte) {
		payload := extractProtoPayload(nal)
		if payload == nil {
			return
		}
		if frame, err := decodeSEIFrame(payload); err == nil {
			frames = append(frames, frame)
		}
	})
	return frames, err
}

// SegmentTelemetry summarises the telemetry of segment from its front
// camera, or its first camera when it has no front camera.
func SegmentTelemetry(ctx context.Context, segment *models.Segment) (*models.Telemetry, error) {
	if segment == nil || len(segment.CameraOrder) == 0 {
		return nil, ErrNoTelemetry
	}
	label := segment.CameraOrder[0]
	if segment.HasCamera(ChannelLabel(ChannelFront)) {
		label = ChannelLabel(ChannelFront)
	}
	clip := segment.PrimaryClip(label)

	rc, err := clip.Source.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", clip.Filename, err)
	}
	defer rc.Close()

	rs, ok := rc.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(io.LimitReader(rc, MaxInMemoryClip))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", clip.Filename, err)
		}
		rs = bytes.NewReader(data)
	}

	frames, err := ExtractSEI(rs)
	if err != nil {
		return nil, fmt.Errorf("extract telemetry from %s: %w", clip.Filename, err)
	}
	if len(frames) == 0 {
		return nil, ErrNoTelemetry
	}

	// Summary fields come from the middle of the clip.
	m := frames[len(frames)/2]
	return &models.Telemetry{
		Frames:         len(frames),
		Speed:          m.VehicleSpeedMps * 2.23694, // mps to mph approx
		Gear:           gearNames[m.Gear],
		Latitude:       m.LatitudeDeg,
		Longitude:      m.LongitudeDeg,
		Heading:        m.HeadingDeg,
		SteeringAngle:  m.SteeringWheelAngle,
		AutopilotState: autopilotNames[m.AutopilotState],
		BrakeApplied:   m.BrakeApplied,
		Camera:         label,
	}, nil
}

// findMdat finds the offset and size of the 'mdat' atom.
func findMdat(r io.ReadSeeker) (int64, int64, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}

	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return 0, 0, ErrNoMdat
			}
			return 0, 0, err
		}

		size32 := binary.BigEndian.Uint32(header[0:4])
		atomType := string(header[4:8])

		var atomSize, headerSize int64
		if size32 == 1 {
			// Extended size
			large := make([]byte, 8)
			if _, err := io.ReadFull(r, large); err != nil {
				return 0, 0, errors.New("truncated extended atom size")
			}
			atomSize = int64(binary.BigEndian.Uint64(large))
			headerSize = 16
		} else {
			atomSize = int64(size32)
			headerSize = 8
		}

		if atomType == "mdat" {
			if size32 == 0 { // extends to end of file
				return 0, 0, errors.New("mdat size 0 not supported")
			}
			pos, err := r.Seek(0, io.SeekCurrent)
			if err != nil {
				return 0, 0, err
			}
			return pos, atomSize - headerSize, nil
		}

		if atomSize < headerSize {
			return 0, 0, errors.New("invalid MP4 atom size")
		}
		if _, err := r.Seek(atomSize-headerSize, io.SeekCurrent); err != nil {
			return 0, 0, err
		}
	}
}

// walkSEINals calls fn with every SEI user-data NAL of the mdat payload.
// NALs are length-prefixed with 4 bytes.
func walkSEINals(r io.ReadSeeker, offset, size int64, fn func([]byte)) error {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	header := make([]byte, 4)
	firstTwo := make([]byte, 2)
	var consumed int64
	for consumed < size {
		if _, err := io.ReadFull(r, header); err != nil {
			return nil
		}
		nalSize := int64(binary.BigEndian.Uint32(header))

		if nalSize < 2 {
			if _, err := r.Seek(nalSize, io.SeekCurrent); err != nil {
				return err
			}
			consumed += 4 + nalSize
			continue
		}

		if _, err := io.ReadFull(r, firstTwo); err != nil {
			return nil
		}

		skip := firstTwo[0]&0x1F != NAL_ID_SEI || firstTwo[1] != NAL_SEI_ID_USER_DATA_UNREGISTERED
		if !skip && nalSize > MaxSEINalSize {
			logger.WithComponent("sei").Warnf("Skipped oversized SEI NAL (%d bytes). Limit is %d bytes.", nalSize, MaxSEINalSize)
			skip = true
		}
		if skip {
			if _, err := r.Seek(nalSize-2, io.SeekCurrent); err != nil {
				return err
			}
			consumed += 4 + nalSize
			continue
		}

		nal := make([]byte, nalSize)
		copy(nal, firstTwo)
		if _, err := io.ReadFull(r, nal[2:]); err != nil {
			return nil
		}
		consumed += 4 + nalSize
		fn(nal)
	}
	return nil
}

// extractProtoPayload skips the 0x42 padding run that precedes the 0x69
// marker and returns the protobuf bytes after it, minus the trailing stop
// bit byte.
func extractProtoPayload(nal []byte) []byte {
	if len(nal) < 2 {
		return nil
	}
	for i := 3; i < len(nal)-1; i++ {
		switch nal[i] {
		case 0x42:
			continue
		case 0x69:
			return stripEmulationPreventionBytes(nal[i+1 : len(nal)-1])
		}
		return nil
	}
	return nil
}

// stripEmulationPreventionBytes removes 0x03 following 0x00 0x00.
func stripEmulationPreventionBytes(data []byte) []byte {
	stripped := make([]byte, 0, len(data))
	zeroCount := 0
	for _, b := range data {
		if zeroCount >= 2 && b == 0x03 {
			zeroCount = 0
			continue
		}
		stripped = append(stripped, b)
		if b == 0x00 {
			zeroCount++
		} else {
			zeroCount = 0
		}
	}
	return stripped
}

func decodeSEIFrame(b []byte) (SEIFrame, error) {
	var f SEIFrame
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return f, protowire.ParseError(n)
		}
		b = b[n:]

		switch {
		case typ == protowire.VarintType && (num == seiFieldGear || num == seiFieldFrameSeqNo || num == seiFieldBrakeApplied || num == seiFieldAutopilotState):
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			switch num {
			case seiFieldGear:
				f.Gear = v
			case seiFieldFrameSeqNo:
				f.FrameSeqNo = v
			case seiFieldBrakeApplied:
				f.BrakeApplied = protowire.DecodeBool(v)
			case seiFieldAutopilotState:
				f.AutopilotState = v
			}
		case typ == protowire.Fixed32Type && (num == seiFieldSpeedMps || num == seiFieldSteeringAngle):
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			if num == seiFieldSpeedMps {
				f.VehicleSpeedMps = math.Float32frombits(v)
			} else {
				f.SteeringWheelAngle = math.Float32frombits(v)
			}
		case typ == protowire.Fixed64Type && (num == seiFieldLatitude || num == seiFieldLongitude || num == seiFieldHeading):
			var v uint64
			v, n = protowire.ConsumeFixed64(b)
			switch num {
			case seiFieldLatitude:
				f.LatitudeDeg = math.Float64frombits(v)
			case seiFieldLongitude:
				f.LongitudeDeg = math.Float64frombits(v)
			case seiFieldHeading:
				f.HeadingDeg = math.Float64frombits(v)
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return f, protowire.ParseError(n)
		}
		b = b[n:]
	}
	return f, nil
}
