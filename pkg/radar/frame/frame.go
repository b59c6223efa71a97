package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Wire layout.
const (
	HeaderMarker byte = 0x01

	// HeaderLen is the number of bytes before the payload, including
	// the header checksum.
	HeaderLen = 8
	// Overhead is the number of non-payload bytes in a frame.
	Overhead = HeaderLen + 1
	// MaxPayload is the longest payload the length field can carry.
	MaxPayload = 0xFFFF

	offsetID             = 1
	offsetLength         = 3
	offsetType           = 5
	offsetHeaderChecksum = 7
)

// Type is the frame type carried in bytes 5-6.
type Type uint16

// Known frame types.
const (
	TypePointCloud       Type = 0x0A04
	TypeHeartBreathPhase Type = 0x0A13
	TypeBreathRate       Type = 0x0A14
	TypeHeartRate        Type = 0x0A15
	TypeDistance         Type = 0x0A16
	TypePeopleExist      Type = 0x0F09
	TypeFirmwareVersion  Type = 0xFFFF
)

var typeNames = map[Type]string{
	TypePointCloud:       "point-cloud",
	TypeHeartBreathPhase: "heart-breath-phase",
	TypeBreathRate:       "breath-rate",
	TypeHeartRate:        "heart-rate",
	TypeDistance:         "distance",
	TypePeopleExist:      "people-exist",
	TypeFirmwareVersion:  "firmware-version",
}

// IsKnown reports whether t is one of the known frame types.
func (t Type) IsKnown() bool {
	_, ok := typeNames[t]
	return ok
}

// String implements fmt.Stringer.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("0x%04x", uint16(t))
}

// ParseType parses a type from its name or a numeric value (e.g. 0x0a14).
func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid frame type %q", s)
	}
	return Type(v), nil
}

// KnownTypes returns all known types.
func KnownTypes() []Type {
	return []Type{
		TypePointCloud,
		TypeHeartBreathPhase,
		TypeBreathRate,
		TypeHeartRate,
		TypeDistance,
		TypePeopleExist,
		TypeFirmwareVersion,
	}
}

// Checksum computes the complemented XOR of data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum ^= b
	}
	return ^sum
}

// VerifyChecksum checks data against the expected checksum.
func VerifyChecksum(data []byte, expected byte) bool {
	return Checksum(data) == expected
}

// Frame is a complete, checksum-verified frame.
type Frame struct {
	ID      uint16
	Type    Type
	Payload []byte
}

// Len returns the encoded size of the frame.
func (f *Frame) Len() int {
	return len(f.Payload) + Overhead
}

// ErrPayloadTooLong is returned when a payload exceeds MaxPayload.
var ErrPayloadTooLong = errors.New("payload too long")

// Encode returns encoded bytes for sending.
func (f *Frame) Encode() ([]byte, error) {
	if len(f.Payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLong, len(f.Payload))
	}
	b := make([]byte, f.Len())
	b[0] = HeaderMarker
	binary.BigEndian.PutUint16(b[offsetID:], f.ID)
	binary.BigEndian.PutUint16(b[offsetLength:], uint16(len(f.Payload)))
	binary.BigEndian.PutUint16(b[offsetType:], uint16(f.Type))
	b[offsetHeaderChecksum] = Checksum(b[:offsetHeaderChecksum])
	copy(b[HeaderLen:], f.Payload)
	b[len(b)-1] = Checksum(f.Payload)
	return b, nil
}

// Bytes is Encode for payloads known to fit. It panics when the payload
// exceeds MaxPayload.
func (f *Frame) Bytes() []byte {
	b, err := f.Encode()
	if err != nil {
		panic(err)
	}
	return b
}

// WriteTo implements io.WriterTo.
func (f *Frame) WriteTo(w io.Writer) (int64, error) {
	b, err := f.Encode()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// String implements fmt.Stringer.
func (f *Frame) String() string {
	return fmt.Sprintf("ID: 0x%04x, Type: %s, Data: [% X]", f.ID, f.Type, f.Payload)
}
