package sink

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Value is the last published value of a measurement.
type Value struct {
	Name    Measurement
	Kind    Kind
	Number  float64
	Bool    bool
	Text    string
	Updated time.Time
	Count   uint64
}

// String implements fmt.Stringer.
func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindText:
		return v.Text
	default:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	}
}

// JSONValue returns the value for JSON encoding: a bool, a string, a
// float64, or nil for a non-finite number.
func (v Value) JSONValue() interface{} {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindText:
		return v.Text
	}
	if math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
		return nil
	}
	return v.Number
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name    Measurement `json:"name"`
		Kind    string      `json:"kind"`
		Value   interface{} `json:"value"`
		Updated int64       `json:"updated"`
		Count   uint64      `json:"count"`
	}{v.Name, v.Kind.String(), v.JSONValue(), v.Updated.UnixNano(), v.Count})
}

// Store keeps the last value of every measurement. It implements Factory
// and is safe for concurrent readers.
type Store struct {
	Now func() time.Time

	lock   sync.RWMutex
	values map[Measurement]*Value
}

// NewStore creates a Store.
func NewStore() *Store {
	return &Store{Now: time.Now}
}

// Get returns the last value published to name.
func (s *Store) Get(name Measurement) (Value, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if v := s.values[name]; v != nil {
		return *v, true
	}
	return Value{}, false
}

// Snapshot returns all published values sorted by name.
func (s *Store) Snapshot() []Value {
	s.lock.RLock()
	values := make([]Value, 0, len(s.values))
	for _, v := range s.values {
		values = append(values, *v)
	}
	s.lock.RUnlock()
	sort.Slice(values, func(i, j int) bool { return values[i].Name < values[j].Name })
	return values
}

// Reset forgets all values.
func (s *Store) Reset() {
	s.lock.Lock()
	s.values = nil
	s.lock.Unlock()
}

// Put records a value received from elsewhere, e.g. a remote reading.
// A zero Updated time is replaced by the current time.
func (s *Store) Put(v Value) {
	s.update(v.Name, v.Kind, func(val *Value) {
		val.Number, val.Bool, val.Text = v.Number, v.Bool, v.Text
	})
	if !v.Updated.IsZero() {
		s.lock.Lock()
		s.values[v.Name].Updated = v.Updated
		s.lock.Unlock()
	}
}

// NumberSink implements Factory.
func (s *Store) NumberSink(name Measurement) NumberSink {
	return NumberFunc(func(v float64) {
		s.update(name, KindNumber, func(val *Value) { val.Number = v })
	})
}

// BoolSink implements Factory.
func (s *Store) BoolSink(name Measurement) BoolSink {
	return BoolFunc(func(v bool) {
		s.update(name, KindBool, func(val *Value) { val.Bool = v })
	})
}

// TextSink implements Factory.
func (s *Store) TextSink(name Measurement) TextSink {
	return TextFunc(func(v string) {
		s.update(name, KindText, func(val *Value) { val.Text = v })
	})
}

func (s *Store) update(name Measurement, kind Kind, set func(*Value)) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.values == nil {
		s.values = make(map[Measurement]*Value)
	}
	v := s.values[name]
	if v == nil {
		v = &Value{Name: name, Kind: kind}
		s.values[name] = v
	}
	set(v)
	v.Updated = now()
	v.Count++
}

// Format prints values one per line.
func Format(values []Value) string {
	var out string
	for _, v := range values {
		out += fmt.Sprintf("%-18s %s\n", v.Name, v)
	}
	return out
}
