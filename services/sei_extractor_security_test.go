package services

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestExtractSEI_DoS_Protection(t *testing.T) {
	// A single SEI NAL claiming 5MB, above the 1MB limit.
	const largeSize = 5 * 1024 * 1024
	nalContent := make([]byte, largeSize)

	// NAL unit type SEI (6), payload type user data unregistered (5)
	nalContent[0] = 6
	nalContent[1] = 5
	nalContent[3] = 0x42
	nalContent[4] = 0x69

	header := make([]byte, 12)
	binary.BigEndian.PutUint32(header[0:4], uint32(4+4+4+len(nalContent)))
	copy(header[4:8], "mdat")
	binary.BigEndian.PutUint32(header[8:12], uint32(largeSize))

	clip := append(header, nalContent...)

	frames, err := ExtractSEI(bytes.NewReader(clip))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) > 0 {
		t.Errorf("Unexpected metadata found")
	}
}

func TestExtractSEI_TruncatedAtoms(t *testing.T) {
	inputs := map[string][]byte{
		"empty":          {},
		"short header":   {0, 0, 0},
		"no mdat":        atom("ftyp", []byte("isom0000")),
		"tiny atom size": {0, 0, 0, 2, 'f', 't', 'y', 'p'},
	}
	for name, data := range inputs {
		frames, err := ExtractSEI(bytes.NewReader(data))
		if err == nil {
			t.Errorf("%s: expected error", name)
		}
		if len(frames) != 0 {
			t.Errorf("%s: unexpected frames", name)
		}
	}
}
