package transport

import (
	"io"
	"sync"

	"github.com/golang/glog"
)

// DefaultChunkSize is the read size of a Stream.
const DefaultChunkSize = 256

// Stream adapts a blocking io.Reader into a ByteSource. A background
// goroutine reads chunks; Available and ReadByte never block.
type Stream struct {
	// IdleOnEOF treats EOF and empty reads as "no data yet". Serial ports
	// opened with a read timeout report expiry this way.
	IdleOnEOF bool

	reader    io.Reader
	chunkSize int
	chunkCh   chan []byte
	errCh     chan error
	closeCh   chan struct{}
	closeOnce sync.Once
	startOnce sync.Once

	pending []byte
	err     error
}

// NewStream creates a Stream reading from r.
func NewStream(r io.Reader) *Stream {
	return &Stream{
		reader:    r,
		chunkSize: DefaultChunkSize,
		chunkCh:   make(chan []byte, 16),
		errCh:     make(chan error, 1),
		closeCh:   make(chan struct{}),
	}
}

// Available implements ByteSource.
func (s *Stream) Available() bool {
	s.startOnce.Do(func() { go s.readLoop() })
	if len(s.pending) > 0 {
		return true
	}
	// chunks read before an error are queued ahead of it.
	select {
	case chunk := <-s.chunkCh:
		s.pending = chunk
		return true
	default:
	}
	if s.err != nil {
		return true
	}
	select {
	case err := <-s.errCh:
		s.err = err
		return true
	default:
		return false
	}
}

// ReadByte implements ByteSource.
func (s *Stream) ReadByte() (byte, error) {
	if len(s.pending) == 0 && !s.Available() {
		return 0, ErrNoData
	}
	if len(s.pending) > 0 {
		b := s.pending[0]
		s.pending = s.pending[1:]
		return b, nil
	}
	return 0, s.err
}

// Close stops reading and closes the reader if it's an io.Closer.
func (s *Stream) Close() (err error) {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		if closer, ok := s.reader.(io.Closer); ok {
			err = closer.Close()
		}
	})
	return
}

func (s *Stream) readLoop() {
	for {
		buf := make([]byte, s.chunkSize)
		n, err := s.reader.Read(buf)
		if n > 0 {
			select {
			case s.chunkCh <- buf[:n]:
			case <-s.closeCh:
				return
			}
		}
		if err == io.EOF && s.IdleOnEOF {
			err = nil
		}
		if err != nil {
			select {
			case <-s.closeCh:
				err = ErrClosed
			default:
			}
			glog.V(2).Infof("stream read stopped: %v", err)
			s.errCh <- err
			return
		}
	}
}
