// Package sink defines the publish targets for decoded measurements.
package sink

import (
	"fmt"
	"strings"
)

// NumberSink publishes numeric values.
type NumberSink interface {
	PublishNumber(float64)
}

// BoolSink publishes boolean values.
type BoolSink interface {
	PublishBool(bool)
}

// TextSink publishes text values.
type TextSink interface {
	PublishText(string)
}

// NumberFunc is func type of NumberSink.
type NumberFunc func(float64)

// PublishNumber implements NumberSink.
func (f NumberFunc) PublishNumber(v float64) { f(v) }

// BoolFunc is func type of BoolSink.
type BoolFunc func(bool)

// PublishBool implements BoolSink.
func (f BoolFunc) PublishBool(v bool) { f(v) }

// TextFunc is func type of TextSink.
type TextFunc func(string)

// PublishText implements TextSink.
func (f TextFunc) PublishText(v string) { f(v) }

// PublishNumber publishes v if s is present.
func PublishNumber(s NumberSink, v float64) {
	if s != nil {
		s.PublishNumber(v)
	}
}

// PublishBool publishes v if s is present.
func PublishBool(s BoolSink, v bool) {
	if s != nil {
		s.PublishBool(v)
	}
}

// PublishText publishes v if s is present.
func PublishText(s TextSink, v string) {
	if s != nil {
		s.PublishText(v)
	}
}

// Kind is the value kind of a measurement.
type Kind int

// Kinds.
const (
	KindNumber Kind = iota
	KindBool
	KindText
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	default:
		return "number"
	}
}

// Measurement names a published value.
type Measurement string

// Measurements.
const (
	BreathRate      Measurement = "breath_rate"
	HeartRate       Measurement = "heart_rate"
	Distance        Measurement = "distance"
	NumTargets      Measurement = "num_targets"
	TotalPhase      Measurement = "total_phase"
	BreathPhase     Measurement = "breath_phase"
	HeartPhase      Measurement = "heart_phase"
	HasTarget       Measurement = "has_target"
	FirmwareVersion Measurement = "firmware_version"
	TargetInfo      Measurement = "target_info"
)

// MaxTargets is the number of target slots.
const MaxTargets = 3

// TargetX names the x coordinate of target slot i (0-based).
func TargetX(i int) Measurement {
	return Measurement(fmt.Sprintf("target_%d_x", i+1))
}

// TargetY names the y coordinate of target slot i (0-based).
func TargetY(i int) Measurement {
	return Measurement(fmt.Sprintf("target_%d_y", i+1))
}

// Kind returns the value kind of the measurement.
func (m Measurement) Kind() Kind {
	switch m {
	case HasTarget:
		return KindBool
	case FirmwareVersion, TargetInfo:
		return KindText
	default:
		return KindNumber
	}
}

// Measurements returns all measurement names.
func Measurements() []Measurement {
	names := []Measurement{
		BreathRate, HeartRate, Distance, NumTargets,
		TotalPhase, BreathPhase, HeartPhase,
		HasTarget, FirmwareVersion, TargetInfo,
	}
	for i := 0; i < MaxTargets; i++ {
		names = append(names, TargetX(i), TargetY(i))
	}
	return names
}

// ParseMeasurements parses a comma separated list of measurement names.
func ParseMeasurements(s string) ([]Measurement, error) {
	var names []Measurement
	known := make(map[Measurement]bool)
	for _, m := range Measurements() {
		known[m] = true
	}
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item == "" {
			continue
		}
		m := Measurement(item)
		if !known[m] {
			return nil, fmt.Errorf("unknown measurement %q", item)
		}
		names = append(names, m)
	}
	return names, nil
}

// Factory creates sinks by measurement name.
type Factory interface {
	NumberSink(Measurement) NumberSink
	BoolSink(Measurement) BoolSink
	TextSink(Measurement) TextSink
}

// TargetSinks are the sinks of one target slot.
type TargetSinks struct {
	X NumberSink
	Y NumberSink
}

// Set is the capability set the dispatcher publishes into.
// Every field is optional; a nil sink is not published.
type Set struct {
	BreathRate      NumberSink
	HeartRate       NumberSink
	Distance        NumberSink
	NumTargets      NumberSink
	TotalPhase      NumberSink
	BreathPhase     NumberSink
	HeartPhase      NumberSink
	HasTarget       BoolSink
	FirmwareVersion TextSink
	TargetInfo      TextSink
	Targets         [MaxTargets]TargetSinks
}

// NewSet creates a Set from the factory. Only the named measurements are
// created, or all of them when no name is given.
func NewSet(f Factory, names ...Measurement) *Set {
	if len(names) == 0 {
		names = Measurements()
	}
	s := &Set{}
	for _, name := range names {
		s.Bind(f, name)
	}
	return s
}

// Bind creates the sink for a single measurement.
func (s *Set) Bind(f Factory, name Measurement) {
	switch name {
	case BreathRate:
		s.BreathRate = f.NumberSink(name)
	case HeartRate:
		s.HeartRate = f.NumberSink(name)
	case Distance:
		s.Distance = f.NumberSink(name)
	case NumTargets:
		s.NumTargets = f.NumberSink(name)
	case TotalPhase:
		s.TotalPhase = f.NumberSink(name)
	case BreathPhase:
		s.BreathPhase = f.NumberSink(name)
	case HeartPhase:
		s.HeartPhase = f.NumberSink(name)
	case HasTarget:
		s.HasTarget = f.BoolSink(name)
	case FirmwareVersion:
		s.FirmwareVersion = f.TextSink(name)
	case TargetInfo:
		s.TargetInfo = f.TextSink(name)
	default:
		for i := range s.Targets {
			switch name {
			case TargetX(i):
				s.Targets[i].X = f.NumberSink(name)
			case TargetY(i):
				s.Targets[i].Y = f.NumberSink(name)
			}
		}
	}
}
