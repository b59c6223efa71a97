// Package dispatch decodes frame payloads and publishes measurements.
package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/mmwave.go/pkg/radar/frame"
	"github.com/robotalks/mmwave.go/pkg/radar/sink"
)

// TargetPolicy selects how point-cloud frames are published.
type TargetPolicy int

const (
	// TargetPolicySlots publishes x/y of each fixed target slot and clears
	// slots beyond the reported target count.
	TargetPolicySlots TargetPolicy = iota
	// TargetPolicyText publishes all targets as one JSON record.
	TargetPolicyText
)

// String implements fmt.Stringer.
func (p TargetPolicy) String() string {
	if p == TargetPolicyText {
		return "text"
	}
	return "slots"
}

// ParseTargetPolicy parses "slots" or "text".
func ParseTargetPolicy(s string) (TargetPolicy, error) {
	switch s {
	case "slots", "":
		return TargetPolicySlots, nil
	case "text":
		return TargetPolicyText, nil
	}
	return 0, fmt.Errorf("invalid target policy %q", s)
}

// Dispatcher publishes decoded payloads to sinks. It never fails:
// undersized payloads are dropped and unknown types are ignored.
type Dispatcher struct {
	Sinks  *sink.Set
	Policy TargetPolicy
}

// New creates a Dispatcher.
func New(sinks *sink.Set, policy TargetPolicy) *Dispatcher {
	if sinks == nil {
		sinks = &sink.Set{}
	}
	return &Dispatcher{Sinks: sinks, Policy: policy}
}

// HandleFrame implements frame.FrameHandler.
func (d *Dispatcher) HandleFrame(f *frame.Frame) {
	d.Dispatch(f.ID, f.Type, f.Payload)
}

// Dispatch decodes a payload by type and publishes the values.
func (d *Dispatcher) Dispatch(id uint16, typ frame.Type, payload []byte) {
	s := d.Sinks
	switch typ {
	case frame.TypeHeartBreathPhase:
		if p, ok := DecodePhases(payload); ok {
			sink.PublishNumber(s.TotalPhase, float64(p.Total))
			sink.PublishNumber(s.BreathPhase, float64(p.Breath))
			sink.PublishNumber(s.HeartPhase, float64(p.Heart))
		}
	case frame.TypeBreathRate:
		if v, ok := DecodeFloat32(payload); ok {
			sink.PublishNumber(s.BreathRate, float64(v))
		}
	case frame.TypeHeartRate:
		if v, ok := DecodeFloat32(payload); ok {
			sink.PublishNumber(s.HeartRate, float64(v))
		}
	case frame.TypeDistance:
		if v, valid, ok := DecodeDistance(payload); ok && valid {
			sink.PublishNumber(s.Distance, float64(v))
		}
	case frame.TypePeopleExist:
		if present, ok := DecodePresence(payload); ok {
			sink.PublishBool(s.HasTarget, present)
			if !present {
				// nobody there, stale vitals must not linger.
				sink.PublishNumber(s.BreathRate, 0)
				sink.PublishNumber(s.HeartRate, 0)
				sink.PublishNumber(s.Distance, 0)
				sink.PublishNumber(s.NumTargets, 0)
			}
		}
	case frame.TypePointCloud:
		d.dispatchPointCloud(payload)
	case frame.TypeFirmwareVersion:
		if v, ok := DecodeFirmwareVersion(payload); ok {
			sink.PublishText(s.FirmwareVersion, v.String())
		}
	default:
		glog.V(2).Infof("unhandled frame type: %s (id 0x%04x)", typ, id)
	}
}

func (d *Dispatcher) dispatchPointCloud(payload []byte) {
	count, ok := DecodeTargetCount(payload)
	if !ok {
		return
	}
	s := d.Sinks
	if d.Policy == TargetPolicyText {
		if uint64(count) > uint64(len(payload)/TargetRecordLen) {
			return
		}
		targets, ok := DecodeTargets(payload, int(count))
		if !ok {
			return
		}
		if targets == nil {
			targets = []Target{}
		}
		sink.PublishNumber(s.NumTargets, float64(count))
		info, err := json.Marshal(targets)
		if err != nil {
			glog.Errorf("encode target info error: %v", err)
			return
		}
		sink.PublishText(s.TargetInfo, string(info))
		return
	}

	n := sink.MaxTargets
	if count < uint32(n) {
		n = int(count)
	}
	targets, ok := DecodeTargets(payload, n)
	if !ok {
		return
	}
	sink.PublishNumber(s.NumTargets, float64(count))
	for i := range s.Targets {
		slot := s.Targets[i]
		if i < len(targets) {
			sink.PublishNumber(slot.X, float64(targets[i].X))
			sink.PublishNumber(slot.Y, float64(targets[i].Y))
		} else {
			sink.PublishNumber(slot.X, 0)
			sink.PublishNumber(slot.Y, 0)
		}
	}
}
