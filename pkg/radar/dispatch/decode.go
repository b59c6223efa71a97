package dispatch

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// Minimum payload lengths per frame type.
const (
	MinPhasesLen     = 12
	MinRateLen       = 4
	MinDistanceLen   = 8
	MinPresenceLen   = 2
	MinPointCloudLen = 4
	MinFirmwareLen   = 4

	// TargetRecordLen is the size of one point-cloud target record.
	TargetRecordLen = 16
)

// Phases are the phase readings of a heart/breath phase frame.
type Phases struct {
	Total  float32
	Breath float32
	Heart  float32
}

// Target is one point-cloud target record.
type Target struct {
	X            float32 `json:"x"`
	Y            float32 `json:"y"`
	DopplerIndex int32   `json:"doppler_index"`
	ClusterIndex int32   `json:"cluster_index"`
}

// MarshalJSON implements json.Marshaler. Non-finite coordinates are
// written as null.
func (t Target) MarshalJSON() ([]byte, error) {
	b := append([]byte(nil), `{"x":`...)
	b = appendCoord(b, t.X)
	b = append(b, `,"y":`...)
	b = appendCoord(b, t.Y)
	b = append(b, `,"doppler_index":`...)
	b = strconv.AppendInt(b, int64(t.DopplerIndex), 10)
	b = append(b, `,"cluster_index":`...)
	b = strconv.AppendInt(b, int64(t.ClusterIndex), 10)
	return append(b, '}'), nil
}

func appendCoord(b []byte, v float32) []byte {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return append(b, "null"...)
	}
	return strconv.AppendFloat(b, f, 'g', -1, 32)
}

// FirmwareVersion is the packed firmware version.
type FirmwareVersion struct {
	Project  uint8
	Major    uint8
	Sub      uint8
	Modified uint8
}

// String returns the dotted version.
func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Sub, v.Modified)
}

func float32At(data []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))
}

// DecodeFloat32 decodes a single float32 at offset 0.
func DecodeFloat32(data []byte) (float32, bool) {
	if len(data) < MinRateLen {
		return 0, false
	}
	return float32At(data, 0), true
}

// DecodePhases decodes total, breath and heart phase.
func DecodePhases(data []byte) (p Phases, ok bool) {
	if len(data) < MinPhasesLen {
		return
	}
	p.Total = float32At(data, 0)
	p.Breath = float32At(data, 4)
	p.Heart = float32At(data, 8)
	return p, true
}

// DecodeDistance decodes the distance. valid reflects the flag in byte 0.
func DecodeDistance(data []byte) (distance float32, valid bool, ok bool) {
	if len(data) < MinDistanceLen {
		return
	}
	if data[0] == 0 {
		return 0, false, true
	}
	return float32At(data, 4), true, true
}

// DecodePresence decodes the people-exist flag.
func DecodePresence(data []byte) (present bool, ok bool) {
	if len(data) < MinPresenceLen {
		return
	}
	return binary.LittleEndian.Uint16(data) != 0, true
}

// DecodeTargetCount decodes the number of point-cloud targets.
func DecodeTargetCount(data []byte) (uint32, bool) {
	if len(data) < MinPointCloudLen {
		return 0, false
	}
	return binary.LittleEndian.Uint32(data), true
}

// DecodeTargets decodes the first n target records following the count.
// It fails if the payload doesn't contain n complete records.
func DecodeTargets(data []byte, n int) ([]Target, bool) {
	if len(data) < MinPointCloudLen || n < 0 {
		return nil, false
	}
	records := data[MinPointCloudLen:]
	if n > len(records)/TargetRecordLen {
		return nil, false
	}
	targets := make([]Target, n)
	for i := range targets {
		rec := records[i*TargetRecordLen:]
		targets[i] = Target{
			X:            float32At(rec, 0),
			Y:            float32At(rec, 4),
			DopplerIndex: int32(binary.LittleEndian.Uint32(rec[8:])),
			ClusterIndex: int32(binary.LittleEndian.Uint32(rec[12:])),
		}
	}
	return targets, true
}

// DecodeFirmwareVersion decodes the packed firmware version.
func DecodeFirmwareVersion(data []byte) (v FirmwareVersion, ok bool) {
	if len(data) < MinFirmwareLen {
		return
	}
	return FirmwareVersion{
		Project:  data[0],
		Major:    data[1],
		Sub:      data[2],
		Modified: data[3],
	}, true
}

// EncodeFloat32 encodes v in the payload byte order. Used to build frames.
func EncodeFloat32(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

// EncodePointCloud encodes a point-cloud payload.
func EncodePointCloud(targets []Target) []byte {
	b := make([]byte, MinPointCloudLen+len(targets)*TargetRecordLen)
	binary.LittleEndian.PutUint32(b, uint32(len(targets)))
	for i, t := range targets {
		rec := b[MinPointCloudLen+i*TargetRecordLen:]
		binary.LittleEndian.PutUint32(rec, math.Float32bits(t.X))
		binary.LittleEndian.PutUint32(rec[4:], math.Float32bits(t.Y))
		binary.LittleEndian.PutUint32(rec[8:], uint32(t.DopplerIndex))
		binary.LittleEndian.PutUint32(rec[12:], uint32(t.ClusterIndex))
	}
	return b
}
