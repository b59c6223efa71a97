package frame

import (
	"encoding/binary"

	"github.com/golang/glog"
)

// Outcome tells what happened to the accumulated bytes after one step.
type Outcome int

const (
	// Continue means the accumulated bytes are a valid frame in progress.
	Continue Outcome = iota
	// Reset means the accumulated bytes were discarded, either because a
	// frame was completed or because validation failed.
	Reset
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	if o == Reset {
		return "reset"
	}
	return "continue"
}

// Reason explains a parse result.
type Reason int

// Reasons.
const (
	ReasonNone            Reason = iota // frame in progress
	ReasonComplete                      // a frame was delivered
	ReasonDesync                        // first byte is not the header marker
	ReasonUnknownType                   // type is not a known frame type
	ReasonHeaderChecksum                // header checksum mismatch
	ReasonPayloadChecksum               // payload checksum mismatch
	ReasonOversize                      // declared payload exceeds MaxPayloadLen
	ReasonStale                         // partial frame discarded on timeout
)

var reasonNames = [...]string{
	ReasonNone:            "none",
	ReasonComplete:        "complete",
	ReasonDesync:          "desync",
	ReasonUnknownType:     "unknown_type",
	ReasonHeaderChecksum:  "header_checksum",
	ReasonPayloadChecksum: "payload_checksum",
	ReasonOversize:        "oversize",
	ReasonStale:           "stale",
}

// String implements fmt.Stringer.
func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "invalid"
}

// ParseResult is the result of one parsing step.
type ParseResult struct {
	Outcome Outcome
	Reason  Reason
	Frame   *Frame
}

// FrameHandler is called when a complete frame is received.
type FrameHandler interface {
	HandleFrame(*Frame)
}

// HandleFrameFunc is func type of FrameHandler.
type HandleFrameFunc func(*Frame)

// HandleFrame implements FrameHandler.
func (f HandleFrameFunc) HandleFrame(fr *Frame) {
	f(fr)
}

// Reassembler accumulates bytes and validates them as a frame after
// every byte. The accumulator is always inspected from byte 0 and is
// cleared on every Reset.
type Reassembler struct {
	Handler FrameHandler
	// MaxPayloadLen rejects frames declaring a longer payload when > 0.
	MaxPayloadLen int

	buf []byte
}

// Len returns the number of accumulated bytes.
func (r *Reassembler) Len() int {
	return len(r.buf)
}

// Parse consumes one byte.
func (r *Reassembler) Parse(b byte) ParseResult {
	r.buf = append(r.buf, b)
	pr := r.validate()
	if pr.Outcome == Reset {
		r.buf = r.buf[:0]
	}
	return pr
}

// Timeout discards a partial frame.
func (r *Reassembler) Timeout() ParseResult {
	if len(r.buf) == 0 {
		return ParseResult{}
	}
	glog.V(2).Infof("discard stale partial frame: [% X]", r.buf)
	r.buf = r.buf[:0]
	return ParseResult{Outcome: Reset, Reason: ReasonStale}
}

// Reset discards accumulated bytes.
func (r *Reassembler) Reset() {
	r.buf = r.buf[:0]
}

func (r *Reassembler) validate() ParseResult {
	at := len(r.buf) - 1
	data := r.buf

	if at == 0 {
		if data[0] != HeaderMarker {
			return reset(ReasonDesync)
		}
		return ParseResult{}
	}
	if at < offsetHeaderChecksum {
		return ParseResult{}
	}

	length := int(binary.BigEndian.Uint16(data[offsetLength:]))
	if at == offsetHeaderChecksum {
		if !Type(binary.BigEndian.Uint16(data[offsetType:])).IsKnown() {
			return reset(ReasonUnknownType)
		}
		if sum := data[at]; !VerifyChecksum(data[:offsetHeaderChecksum], sum) {
			glog.Errorf("header checksum error: 0x%02x, frame: [% X]", sum, data[:HeaderLen])
			return reset(ReasonHeaderChecksum)
		}
		if r.MaxPayloadLen > 0 && length > r.MaxPayloadLen {
			glog.Errorf("payload length %d exceeds limit %d, frame: [% X]", length, r.MaxPayloadLen, data[:HeaderLen])
			return reset(ReasonOversize)
		}
		return ParseResult{}
	}

	// wait until the payload and its checksum are read.
	if at-HeaderLen < length {
		return ParseResult{}
	}

	payload := data[HeaderLen:at]
	if sum := data[at]; !VerifyChecksum(payload, sum) {
		glog.Errorf("payload checksum error: 0x%02x, frame: [% X]", sum, data[:at])
		return reset(ReasonPayloadChecksum)
	}

	f := &Frame{
		ID:      binary.BigEndian.Uint16(data[offsetID:]),
		Type:    Type(binary.BigEndian.Uint16(data[offsetType:])),
		Payload: payload,
	}
	// the delivered payload keeps the current backing array.
	r.buf = nil
	if glog.V(2) {
		glog.Infof("received frame %s, raw: [% X]", f, data)
	}
	if h := r.Handler; h != nil {
		h.HandleFrame(f)
	}
	return ParseResult{Outcome: Reset, Reason: ReasonComplete, Frame: f}
}

func reset(reason Reason) ParseResult {
	return ParseResult{Outcome: Reset, Reason: reason}
}
