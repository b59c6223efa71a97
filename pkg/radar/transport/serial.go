package transport

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/tarm/serial"
)

// SerialConfig specifies a serial port.
type SerialConfig struct {
	Name        string
	Baud        int
	ReadTimeout time.Duration
}

// DefaultSerialReadTimeout bounds each blocking read on the port.
const DefaultSerialReadTimeout = 100 * time.Millisecond

// OpenSerial opens the port and wraps it in a Stream.
func OpenSerial(conf SerialConfig) (*Stream, error) {
	timeout := conf.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultSerialReadTimeout
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        conf.Name,
		Baud:        conf.Baud,
		Parity:      serial.ParityNone,
		ReadTimeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", conf.Name, err)
	}
	glog.Infof("serial port %s opened at %d baud", conf.Name, conf.Baud)
	s := NewStream(port)
	s.IdleOnEOF = true
	return s, nil
}
