package frame

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	testCases := []struct {
		name   string
		data   []byte
		expect byte
	}{
		{"empty", nil, 0xff},
		{"single", []byte{0x01}, 0xfe},
		{"cancel out", []byte{0x5a, 0x5a}, 0xff},
		{"header", []byte{0x01, 0x00, 0x01, 0x00, 0x04, 0x0a, 0x14}, ^byte(0x01 ^ 0x01 ^ 0x04 ^ 0x0a ^ 0x14)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, Checksum(tc.data))
			require.True(t, VerifyChecksum(tc.data, tc.expect))
			require.False(t, VerifyChecksum(tc.data, tc.expect^0x80))
		})
	}
}

func TestFrameBytes(t *testing.T) {
	f := &Frame{ID: 0x1234, Type: TypeBreathRate, Payload: []byte{0x00, 0x00, 0x80, 0x41}}
	b := f.Bytes()
	require.Equal(t, []byte{
		0x01, 0x12, 0x34, 0x00, 0x04, 0x0a, 0x14,
		Checksum([]byte{0x01, 0x12, 0x34, 0x00, 0x04, 0x0a, 0x14}),
		0x00, 0x00, 0x80, 0x41,
		Checksum([]byte{0x00, 0x00, 0x80, 0x41}),
	}, b)
	require.Equal(t, len(b), f.Len())

	var buf bytes.Buffer
	n, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(len(b)), n)
	require.Equal(t, b, buf.Bytes())
}

func TestFrameBytesEmptyPayload(t *testing.T) {
	b := (&Frame{Type: TypeFirmwareVersion}).Bytes()
	require.Len(t, b, Overhead)
	require.Equal(t, byte(0xff), b[len(b)-1])
}

func TestFrameMaxPayload(t *testing.T) {
	f := &Frame{Type: TypePointCloud, Payload: make([]byte, MaxPayload)}
	b, err := f.Encode()
	require.NoError(t, err)
	require.Equal(t, []byte{0xff, 0xff}, b[3:5])

	f.Payload = make([]byte, MaxPayload+1)
	_, err = f.Encode()
	require.ErrorIs(t, err, ErrPayloadTooLong)
	var buf bytes.Buffer
	_, err = f.WriteTo(&buf)
	require.ErrorIs(t, err, ErrPayloadTooLong)
	require.Zero(t, buf.Len())
	require.Panics(t, func() { f.Bytes() })
}

func TestType(t *testing.T) {
	for _, typ := range KnownTypes() {
		require.True(t, typ.IsKnown())
		parsed, err := ParseType(typ.String())
		require.NoError(t, err)
		require.Equal(t, typ, parsed)
	}
	require.False(t, Type(0x1234).IsKnown())
	require.Equal(t, "0x1234", Type(0x1234).String())

	typ, err := ParseType("0x0a15")
	require.NoError(t, err)
	require.Equal(t, TypeHeartRate, typ)

	_, err = ParseType("heartbeat")
	require.Error(t, err)
}
