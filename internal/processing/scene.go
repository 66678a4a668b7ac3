// Package processing turns raw calibrated radiance payloads into finished
// images. Everything here is a pure function of (data, channel spec,
// processing level); the only failure mode is a payload that does not
// decode into the expected grid shape.
package processing

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/couchcryptid/goes-imagery/internal/domain"
)

// Raw scene container: a fixed 20-byte header followed by big-endian
// uint16 radiance counts in row-major order.
//
//	bytes 0-3   magic "GRAD"
//	bytes 4-5   width
//	bytes 6-7   height
//	bytes 8-9   ABI band number
//	bytes 10-11 reserved
//	bytes 12-15 scale factor (float32)
//	bytes 16-19 additive offset (float32)
const (
	sceneMagic      = "GRAD"
	sceneHeaderSize = 20
)

// Scene is a decoded raw radiance grid.
type Scene struct {
	Width   int
	Height  int
	Channel int
	Scale   float64
	Offset  float64
	Counts  []uint16
}

func corrupt(op string, err error) error {
	return &domain.SourceError{Source: "processor", Op: op, Kind: domain.KindDataCorrupt, Err: err}
}

// Decode parses a raw scene payload. Any shape mismatch is DataCorrupt.
func Decode(payload []byte) (*Scene, error) {
	if len(payload) < sceneHeaderSize {
		return nil, corrupt("decode", fmt.Errorf("payload of %d bytes is shorter than the scene header", len(payload)))
	}
	if string(payload[:4]) != sceneMagic {
		return nil, corrupt("decode", fmt.Errorf("bad magic %q", payload[:4]))
	}

	width := int(binary.BigEndian.Uint16(payload[4:6]))
	height := int(binary.BigEndian.Uint16(payload[6:8]))
	channel := int(binary.BigEndian.Uint16(payload[8:10]))
	scale := float64(math.Float32frombits(binary.BigEndian.Uint32(payload[12:16])))
	offset := float64(math.Float32frombits(binary.BigEndian.Uint32(payload[16:20])))

	if width == 0 || height == 0 {
		return nil, corrupt("decode", fmt.Errorf("degenerate grid %dx%d", width, height))
	}

	want := sceneHeaderSize + width*height*2
	if len(payload) != want {
		return nil, corrupt("decode", fmt.Errorf("grid %dx%d needs %d bytes, payload has %d", width, height, want, len(payload)))
	}

	counts := make([]uint16, width*height)
	for i := range counts {
		counts[i] = binary.BigEndian.Uint16(payload[sceneHeaderSize+i*2:])
	}

	return &Scene{
		Width:   width,
		Height:  height,
		Channel: channel,
		Scale:   scale,
		Offset:  offset,
		Counts:  counts,
	}, nil
}

// Radiance converts a stored count to spectral radiance.
func (s *Scene) Radiance(i int) float64 {
	return s.Scale*float64(s.Counts[i]) + s.Offset
}
