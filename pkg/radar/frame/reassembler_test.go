package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type frameRecorder struct {
	frames []*Frame
}

func (r *frameRecorder) HandleFrame(f *Frame) {
	r.frames = append(r.frames, f)
}

func newTestReassembler() (*Reassembler, *frameRecorder) {
	rec := &frameRecorder{}
	return &Reassembler{Handler: rec}, rec
}

func feed(r *Reassembler, data []byte) []ParseResult {
	results := make([]ParseResult, len(data))
	for i, b := range data {
		results[i] = r.Parse(b)
	}
	return results
}

var testFrames = []*Frame{
	{ID: 0x0001, Type: TypeBreathRate, Payload: []byte{0x00, 0x00, 0x80, 0x41}},
	{ID: 0x0002, Type: TypeHeartRate, Payload: []byte{0x00, 0x00, 0x90, 0x42}},
	{ID: 0x0003, Type: TypeDistance, Payload: []byte{0x01, 0, 0, 0, 0x00, 0x00, 0xc0, 0x3f}},
	{ID: 0x0004, Type: TypePeopleExist, Payload: []byte{0x01, 0x00}},
	{ID: 0x0005, Type: TypePointCloud, Payload: []byte{0x00, 0x00, 0x00, 0x00}},
	{ID: 0x0006, Type: TypeHeartBreathPhase, Payload: make([]byte, 12)},
	{ID: 0xfffe, Type: TypeFirmwareVersion, Payload: []byte{0x01, 0x02, 0x03, 0x04}},
	{ID: 0x0008, Type: TypeBreathRate},
}

func TestReassemblerValidFrames(t *testing.T) {
	for _, f := range testFrames {
		t.Run(f.Type.String(), func(t *testing.T) {
			r, rec := newTestReassembler()
			raw := f.Bytes()
			results := feed(r, raw)
			for i, pr := range results[:len(results)-1] {
				require.Equalf(t, ParseResult{}, pr, "byte[%d] expect continue", i)
			}
			last := results[len(results)-1]
			require.Equal(t, Reset, last.Outcome)
			require.Equal(t, ReasonComplete, last.Reason)
			require.Len(t, rec.frames, 1)
			require.Same(t, rec.frames[0], last.Frame)
			require.Equal(t, f.ID, last.Frame.ID)
			require.Equal(t, f.Type, last.Frame.Type)
			require.Equal(t, len(f.Payload), len(last.Frame.Payload))
			if len(f.Payload) > 0 {
				require.Equal(t, f.Payload, last.Frame.Payload)
			}
			require.Zero(t, r.Len())
		})
	}
}

func TestReassemblerPrefixes(t *testing.T) {
	raw := testFrames[0].Bytes()
	for n := 1; n < len(raw); n++ {
		r, rec := newTestReassembler()
		for i, pr := range feed(r, raw[:n]) {
			require.Equalf(t, Continue, pr.Outcome, "prefix %d byte[%d]", n, i)
		}
		require.Empty(t, rec.frames)
		require.Equal(t, n, r.Len())
	}
}

func TestReassemblerHeaderChecksumCorruption(t *testing.T) {
	raw := testFrames[0].Bytes()
	for bit := uint(0); bit < 8; bit++ {
		r, rec := newTestReassembler()
		data := append([]byte(nil), raw...)
		data[offsetHeaderChecksum] ^= 1 << bit
		results := feed(r, data)
		require.Equal(t, ParseResult{Outcome: Reset, Reason: ReasonHeaderChecksum}, results[offsetHeaderChecksum])
		require.Empty(t, rec.frames)
		require.Zero(t, r.Len())
	}
}

func TestReassemblerPayloadChecksumCorruption(t *testing.T) {
	raw := testFrames[0].Bytes()
	for bit := uint(0); bit < 8; bit++ {
		r, rec := newTestReassembler()
		data := append([]byte(nil), raw...)
		data[len(data)-1] ^= 1 << bit
		results := feed(r, data)
		require.Equal(t, ParseResult{Outcome: Reset, Reason: ReasonPayloadChecksum}, results[len(results)-1])
		require.Empty(t, rec.frames)
		require.Zero(t, r.Len())
	}
}

func TestReassemblerDesync(t *testing.T) {
	r, rec := newTestReassembler()
	for _, b := range []byte{0x00, 0x02, 0xff, 0x55} {
		require.Equal(t, ParseResult{Outcome: Reset, Reason: ReasonDesync}, r.Parse(b))
		require.Zero(t, r.Len())
	}
	require.Empty(t, rec.frames)
}

func TestReassemblerUnknownType(t *testing.T) {
	r, rec := newTestReassembler()
	raw := (&Frame{ID: 1, Type: Type(0x1234), Payload: []byte{1, 2}}).Bytes()
	results := feed(r, raw[:HeaderLen])
	for i, pr := range results[:offsetHeaderChecksum] {
		require.Equalf(t, Continue, pr.Outcome, "byte[%d]", i)
	}
	require.Equal(t, ParseResult{Outcome: Reset, Reason: ReasonUnknownType}, results[offsetHeaderChecksum])
	require.Empty(t, rec.frames)
	require.Zero(t, r.Len())
}

func TestReassemblerUnknownTypeBeforeChecksum(t *testing.T) {
	r, _ := newTestReassembler()
	raw := (&Frame{ID: 1, Type: Type(0x1234)}).Bytes()
	raw[offsetHeaderChecksum] ^= 0xff
	results := feed(r, raw[:HeaderLen])
	require.Equal(t, ReasonUnknownType, results[offsetHeaderChecksum].Reason)
}

func TestReassemblerRecovery(t *testing.T) {
	r, rec := newTestReassembler()
	require.Equal(t, Reset, r.Parse(0x55).Outcome)
	feed(r, testFrames[1].Bytes())
	require.Len(t, rec.frames, 1)
	require.Equal(t, TypeHeartRate, rec.frames[0].Type)
}

func TestReassemblerRecoveryAfterBadChecksum(t *testing.T) {
	r, rec := newTestReassembler()
	bad := testFrames[0].Bytes()
	bad[len(bad)-1] ^= 0x01
	feed(r, bad)
	feed(r, testFrames[1].Bytes())
	require.Len(t, rec.frames, 1)
	require.Equal(t, testFrames[1].ID, rec.frames[0].ID)
}

func TestReassemblerIdempotent(t *testing.T) {
	raw := testFrames[6].Bytes()
	var frames []*Frame
	for i := 0; i < 2; i++ {
		r, rec := newTestReassembler()
		feed(r, raw)
		require.Len(t, rec.frames, 1)
		frames = append(frames, rec.frames[0])
	}
	require.Equal(t, frames[0], frames[1])
}

func TestReassemblerBackToBack(t *testing.T) {
	r, rec := newTestReassembler()
	for _, f := range testFrames {
		feed(r, f.Bytes())
	}
	require.Len(t, rec.frames, len(testFrames))
	// payloads delivered earlier must not be overwritten by later frames.
	for i, f := range testFrames {
		require.Equal(t, f.ID, rec.frames[i].ID)
		if len(f.Payload) > 0 {
			require.Equal(t, f.Payload, rec.frames[i].Payload)
		}
	}
}

func TestReassemblerMaxPayloadLen(t *testing.T) {
	r, rec := newTestReassembler()
	r.MaxPayloadLen = 4
	raw := (&Frame{ID: 1, Type: TypePointCloud, Payload: make([]byte, 20)}).Bytes()
	results := feed(r, raw[:HeaderLen])
	require.Equal(t, ParseResult{Outcome: Reset, Reason: ReasonOversize}, results[offsetHeaderChecksum])
	require.Zero(t, r.Len())

	feed(r, testFrames[0].Bytes())
	require.Len(t, rec.frames, 1)
}

func TestReassemblerTimeout(t *testing.T) {
	r, rec := newTestReassembler()
	require.Equal(t, ParseResult{}, r.Timeout())

	raw := testFrames[0].Bytes()
	feed(r, raw[:5])
	require.Equal(t, 5, r.Len())
	require.Equal(t, ParseResult{Outcome: Reset, Reason: ReasonStale}, r.Timeout())
	require.Zero(t, r.Len())

	feed(r, raw)
	require.Len(t, rec.frames, 1)
}

func TestReassemblerNilHandler(t *testing.T) {
	var r Reassembler
	results := feed(&r, testFrames[0].Bytes())
	last := results[len(results)-1]
	require.Equal(t, ReasonComplete, last.Reason)
	require.NotNil(t, last.Frame)
}

func TestReasonString(t *testing.T) {
	require.Equal(t, "complete", ReasonComplete.String())
	require.Equal(t, "payload_checksum", ReasonPayloadChecksum.String())
	require.Equal(t, "invalid", Reason(99).String())
	require.Equal(t, "reset", Reset.String())
	require.Equal(t, "continue", Continue.String())
}
