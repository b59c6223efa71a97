// Package radar drives the MR60BHA2 frame engine from a byte source.
package radar

import (
	"context"
	"errors"
	"io"
	"time"

	fx "github.com/robotalks/mmwave.go/pkg/framework"
	"github.com/robotalks/mmwave.go/pkg/radar/dispatch"
	"github.com/robotalks/mmwave.go/pkg/radar/frame"
	"github.com/robotalks/mmwave.go/pkg/radar/transport"
)

// Observer receives every reassembler result with the accumulator length
// after it.
type Observer interface {
	ObserveParse(res frame.ParseResult, buffered int)
}

// ObserveFunc is func form of Observer.
type ObserveFunc func(frame.ParseResult, int)

// ObserveParse implements Observer.
func (f ObserveFunc) ObserveParse(res frame.ParseResult, buffered int) {
	f(res, buffered)
}

// DefaultPollInterval is the interval Run polls the source.
const DefaultPollInterval = 10 * time.Millisecond

// Driver feeds bytes from Source into the Reassembler. It is owned by a
// single polling goroutine.
type Driver struct {
	Source      transport.ByteSource
	Reassembler *frame.Reassembler
	// StaleTimeout discards a partial frame when no byte arrived for
	// this long. Zero disables it.
	StaleTimeout time.Duration
	PollInterval time.Duration
	Observer     Observer
	Now          func() time.Time

	lastByte time.Time
}

// NewDriver creates a Driver dispatching complete frames to d.
func NewDriver(src transport.ByteSource, d *dispatch.Dispatcher) *Driver {
	return &Driver{
		Source:       src,
		Reassembler:  &frame.Reassembler{Handler: d},
		PollInterval: DefaultPollInterval,
		Now:          time.Now,
	}
}

func (d *Driver) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d *Driver) observe(res frame.ParseResult) {
	if o := d.Observer; o != nil {
		o.ObserveParse(res, d.Reassembler.Len())
	}
}

// Poll implements framework.Poller. It consumes every byte available
// right now and returns without waiting for more.
func (d *Driver) Poll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := d.now()
	for d.Source.Available() {
		b, err := d.Source.ReadByte()
		if err == transport.ErrNoData {
			break
		}
		if err != nil {
			return err
		}
		d.lastByte = now
		d.observe(d.Reassembler.Parse(b))
	}
	if d.StaleTimeout > 0 && d.Reassembler.Len() > 0 && now.Sub(d.lastByte) >= d.StaleTimeout {
		d.observe(d.Reassembler.Timeout())
	}
	return nil
}

// Run polls the source every PollInterval until ctx is canceled or the
// source fails. The end of a finite source is not an error.
func (d *Driver) Run(ctx context.Context) error {
	interval := d.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := d.Poll(ctx); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// AddToLoop implements framework.LoopAdder.
func (d *Driver) AddToLoop(l *fx.Loop) {
	l.AddPoller(d)
}
