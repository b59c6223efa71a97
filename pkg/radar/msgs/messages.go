// Package msgs defines the messages published by the radar daemon.
package msgs

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/mmwave.go/pkg/radar/sink"
)

// Reading is a single published measurement value.
type Reading struct {
	Device    string  `protobuf:"bytes,1,opt,name=device,proto3" json:"device,omitempty"`
	Name      string  `protobuf:"bytes,2,opt,name=name,proto3" json:"name,omitempty"`
	Kind      int32   `protobuf:"varint,3,opt,name=kind,proto3" json:"kind"`
	Number    float64 `protobuf:"fixed64,4,opt,name=number,proto3" json:"number,omitempty"`
	Bool      bool    `protobuf:"varint,5,opt,name=bool,proto3" json:"bool,omitempty"`
	Text      string  `protobuf:"bytes,6,opt,name=text,proto3" json:"text,omitempty"`
	Timestamp int64   `protobuf:"varint,7,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Reading) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Reading) Reset() { *m = Reading{} }

// String implements proto.Message.
func (m *Reading) String() string { return proto.CompactTextString(m) }

// MarshalJSON implements json.Marshaler. A non-finite number is
// written as null.
func (m *Reading) MarshalJSON() ([]byte, error) {
	type reading Reading
	view := struct {
		*reading
		Number json.RawMessage `json:"number,omitempty"`
	}{reading: (*reading)(m)}
	switch {
	case math.IsNaN(m.Number) || math.IsInf(m.Number, 0):
		view.Number = json.RawMessage("null")
	case m.Number != 0:
		view.Number = strconv.AppendFloat(nil, m.Number, 'g', -1, 64)
	}
	return json.Marshal(view)
}

// NewNumber creates a number Reading.
func NewNumber(device string, name sink.Measurement, v float64, at time.Time) *Reading {
	return &Reading{Device: device, Name: string(name), Kind: int32(sink.KindNumber), Number: v, Timestamp: at.UnixNano()}
}

// NewBool creates a bool Reading.
func NewBool(device string, name sink.Measurement, v bool, at time.Time) *Reading {
	return &Reading{Device: device, Name: string(name), Kind: int32(sink.KindBool), Bool: v, Timestamp: at.UnixNano()}
}

// NewText creates a text Reading.
func NewText(device string, name sink.Measurement, v string, at time.Time) *Reading {
	return &Reading{Device: device, Name: string(name), Kind: int32(sink.KindText), Text: v, Timestamp: at.UnixNano()}
}

// Value converts the reading into a sink.Value.
func (m *Reading) Value() sink.Value {
	return sink.Value{
		Name:    sink.Measurement(m.Name),
		Kind:    sink.Kind(m.Kind),
		Number:  m.Number,
		Bool:    m.Bool,
		Text:    m.Text,
		Updated: time.Unix(0, m.Timestamp),
	}
}

// DeviceMeta describes a publishing device. It is retained on the broker.
type DeviceMeta struct {
	Device       string   `protobuf:"bytes,1,opt,name=device,proto3" json:"device"`
	Online       bool     `protobuf:"varint,2,opt,name=online,proto3" json:"online"`
	Port         string   `protobuf:"bytes,3,opt,name=port,proto3" json:"port,omitempty"`
	TargetPolicy string   `protobuf:"bytes,4,opt,name=target_policy,proto3" json:"target_policy,omitempty"`
	Measurements []string `protobuf:"bytes,5,rep,name=measurements,proto3" json:"measurements,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *DeviceMeta) ProtoMessage() {}

// Reset implements proto.Message.
func (m *DeviceMeta) Reset() { *m = DeviceMeta{} }

// String implements proto.Message.
func (m *DeviceMeta) String() string { return proto.CompactTextString(m) }

// Encode serializes a message in protobuf wire format.
func Encode(m proto.Message) ([]byte, error) {
	return proto.Marshal(m)
}

// DecodeReading parses a Reading from protobuf wire format.
func DecodeReading(data []byte) (*Reading, error) {
	m := &Reading{}
	if err := proto.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeMeta encodes DeviceMeta in JSON, the format of the retained meta topic.
func EncodeMeta(m *DeviceMeta) []byte {
	data, _ := json.Marshal(m)
	return data
}

// DecodeMeta parses DeviceMeta from JSON.
func DecodeMeta(data []byte) (*DeviceMeta, error) {
	m := &DeviceMeta{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}
