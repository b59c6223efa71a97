package sh

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/mmwave.go/pkg/radar"
	"github.com/robotalks/mmwave.go/pkg/radar/dispatch"
	"github.com/robotalks/mmwave.go/pkg/radar/frame"
	"github.com/robotalks/mmwave.go/pkg/radar/msgs"
	"github.com/robotalks/mmwave.go/pkg/radar/sink"
	"github.com/robotalks/mmwave.go/pkg/radar/transport"
)

// ParseHex parses hex bytes, ignoring spaces and an optional 0x prefix
// per argument.
func ParseHex(args ...string) ([]byte, error) {
	var sb strings.Builder
	for _, arg := range args {
		for _, item := range strings.Fields(arg) {
			sb.WriteString(strings.TrimPrefix(strings.ToLower(item), "0x"))
		}
	}
	return hex.DecodeString(sb.String())
}

// DecodeResult is the outcome of feeding bytes into a fresh engine.
type DecodeResult struct {
	Frames   []*frame.Frame
	Resets   map[string]int
	Buffered int
	Values   []sink.Value
}

// Decode feeds data into a fresh reassembler and dispatcher.
func Decode(data []byte, policy dispatch.TargetPolicy) *DecodeResult {
	store := sink.NewStore()
	r := &frame.Reassembler{Handler: dispatch.New(sink.NewSet(store), policy)}
	res := &DecodeResult{Resets: make(map[string]int)}
	for _, b := range data {
		pr := r.Parse(b)
		if pr.Frame != nil {
			res.Frames = append(res.Frames, pr.Frame)
		}
		if pr.Outcome == frame.Reset && pr.Reason != frame.ReasonComplete {
			res.Resets[pr.Reason.String()]++
		}
	}
	res.Buffered = r.Len()
	res.Values = store.Snapshot()
	return res
}

// EncodeFrame builds the wire bytes of a frame.
func EncodeFrame(typ frame.Type, payload []byte) ([]byte, error) {
	return (&frame.Frame{Type: typ, Payload: payload}).Encode()
}

var (
	// DecodeCmd decodes hex bytes.
	DecodeCmd = ishell.Cmd{
		Name:    "decode",
		Aliases: []string{"dec"},
		Help:    "HEX... decodes raw bytes into frames and values",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			data, err := ParseHex(c.Args...)
			if err != nil {
				c.Err(err)
				return
			}
			res := Decode(data, s.Config.Policy())
			if s.OutputJSON {
				PrintJSON(c, res)
				return
			}
			for _, f := range res.Frames {
				c.Println(f.String())
			}
			for reason, count := range res.Resets {
				c.Printf("reset %s: %d\n", reason, count)
			}
			if res.Buffered > 0 {
				c.Printf("incomplete: %d bytes\n", res.Buffered)
			}
			s.PrintValues(c, res.Values)
		},
	}

	// EncodeCmd builds a frame.
	EncodeCmd = ishell.Cmd{
		Name:    "encode",
		Aliases: []string{"enc"},
		Help:    "TYPE [PAYLOAD-HEX...] builds a frame, TYPE is a name or a number",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("frame type expected"))
				return
			}
			typ, err := frame.ParseType(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			payload, err := ParseHex(c.Args[1:]...)
			if err != nil {
				c.Err(err)
				return
			}
			raw, err := EncodeFrame(typ, payload)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("% X\n", raw)
		},
	}

	// ReplayCmd replays a capture file into the shell's store.
	ReplayCmd = ishell.Cmd{
		Name: "replay",
		Help: "FILE feeds a raw capture through the engine",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("file expected"))
				return
			}
			s := ShellFrom(c)
			f, err := os.Open(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			stream := transport.NewStream(f)
			defer stream.Close()
			var frames, resets int
			d, err := s.Config.NewDriver(stream, sink.NewSet(s.Store, s.Config.MeasurementList()...))
			if err != nil {
				c.Err(err)
				return
			}
			d.StaleTimeout = 0
			d.Observer = radar.ObserveFunc(func(res frame.ParseResult, buffered int) {
				if res.Reason == frame.ReasonComplete {
					frames++
				} else if res.Outcome == frame.Reset {
					resets++
				}
			})
			if err := d.Run(context.Background()); err != nil {
				c.Err(err)
				return
			}
			if !s.OutputJSON {
				c.Printf("frames: %d, resets: %d\n", frames, resets)
			}
			s.PrintValues(c, s.Store.Snapshot())
		},
	}

	// WatchCmd prints readings from the broker.
	WatchCmd = ishell.Cmd{
		Name: "watch",
		Help: "[DEVICE] prints readings published on MQTT",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			device := "+"
			if len(c.Args) > 0 {
				device = c.Args[0]
			}
			err := s.Watch(device, func(topic string, payload []byte) {
				if strings.HasSuffix(topic, "/meta") {
					c.Printf("%s: %s\n", topic, payload)
					return
				}
				r, err := msgs.DecodeReading(payload)
				if err != nil {
					c.Printf("%s: bad reading: %v\n", topic, err)
					return
				}
				s.Store.Put(r.Value())
				if s.OutputJSON {
					PrintJSON(c, r)
					return
				}
				v := r.Value()
				c.Printf("%s %s: %s\n", r.Device, v.Name, v)
			})
			if err != nil {
				c.Err(err)
			}
		},
	}

	// UnwatchCmd stops watching.
	UnwatchCmd = ishell.Cmd{
		Name: "unwatch",
		Help: "stops watching",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Unwatch()
		},
	}

	// StatusCmd prints the latest values.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "prints latest values",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			s.PrintValues(c, s.Store.Snapshot())
		},
	}

	// TypesCmd lists the known frame types.
	TypesCmd = ishell.Cmd{
		Name: "types",
		Help: "lists known frame types",
		Func: func(c *ishell.Context) {
			for _, typ := range frame.KnownTypes() {
				c.Printf("0x%04X %s\n", uint16(typ), typ)
			}
		},
	}
)
