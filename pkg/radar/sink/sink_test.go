package sink

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewSetAll(t *testing.T) {
	s := NewSet(NewStore())
	require.NotNil(t, s.BreathRate)
	require.NotNil(t, s.HeartRate)
	require.NotNil(t, s.Distance)
	require.NotNil(t, s.NumTargets)
	require.NotNil(t, s.TotalPhase)
	require.NotNil(t, s.BreathPhase)
	require.NotNil(t, s.HeartPhase)
	require.NotNil(t, s.HasTarget)
	require.NotNil(t, s.FirmwareVersion)
	require.NotNil(t, s.TargetInfo)
	for i := range s.Targets {
		require.NotNil(t, s.Targets[i].X)
		require.NotNil(t, s.Targets[i].Y)
	}
}

func TestNewSetSubset(t *testing.T) {
	store := NewStore()
	s := NewSet(store, HeartRate, TargetY(1))
	require.NotNil(t, s.HeartRate)
	require.NotNil(t, s.Targets[1].Y)
	require.Nil(t, s.BreathRate)
	require.Nil(t, s.HasTarget)
	require.Nil(t, s.Targets[1].X)
	require.Nil(t, s.Targets[0].Y)

	s.Targets[1].Y.PublishNumber(1.5)
	v, ok := store.Get("target_2_y")
	require.True(t, ok)
	require.Equal(t, 1.5, v.Number)
}

func TestPublishAbsent(t *testing.T) {
	var s Set
	PublishNumber(s.BreathRate, 1)
	PublishBool(s.HasTarget, true)
	PublishText(s.FirmwareVersion, "1.2.3")
}

func TestJoin(t *testing.T) {
	a, b := NewStore(), NewStore()
	joined := Join(NewSet(a, BreathRate, HasTarget), NewSet(b, BreathRate, FirmwareVersion))
	require.Nil(t, joined.HeartRate)
	require.Nil(t, joined.TargetInfo)

	joined.BreathRate.PublishNumber(12)
	joined.HasTarget.PublishBool(true)
	joined.FirmwareVersion.PublishText("1.0.2")

	for _, store := range []*Store{a, b} {
		v, ok := store.Get(BreathRate)
		require.True(t, ok)
		require.Equal(t, float64(12), v.Number)
	}
	_, ok := b.Get(HasTarget)
	require.False(t, ok)
	v, ok := a.Get(HasTarget)
	require.True(t, ok)
	require.True(t, v.Bool)
	v, ok = b.Get(FirmwareVersion)
	require.True(t, ok)
	require.Equal(t, "1.0.2", v.Text)
}

func TestStore(t *testing.T) {
	now := time.Unix(100, 0)
	store := NewStore()
	store.Now = func() time.Time { return now }
	s := NewSet(store)
	s.HeartRate.PublishNumber(72)
	s.HeartRate.PublishNumber(73)
	s.HasTarget.PublishBool(true)
	s.FirmwareVersion.PublishText("2.3.4")

	values := store.Snapshot()
	require.Len(t, values, 3)
	require.Equal(t, FirmwareVersion, values[0].Name)
	require.Equal(t, HasTarget, values[1].Name)
	require.Equal(t, HeartRate, values[2].Name)
	require.Equal(t, "2.3.4", values[0].String())
	require.Equal(t, "true", values[1].String())
	require.Equal(t, "73", values[2].String())
	require.Equal(t, uint64(2), values[2].Count)
	require.Equal(t, now, values[2].Updated)
	require.Contains(t, Format(values), "heart_rate")

	store.Reset()
	require.Empty(t, store.Snapshot())
}

func TestMeasurements(t *testing.T) {
	names := Measurements()
	require.Len(t, names, 10+2*MaxTargets)
	require.Equal(t, Measurement("target_1_x"), TargetX(0))
	require.Equal(t, Measurement("target_3_y"), TargetY(2))
	require.Equal(t, KindBool, HasTarget.Kind())
	require.Equal(t, KindText, TargetInfo.Kind())
	require.Equal(t, KindNumber, TargetX(1).Kind())

	parsed, err := ParseMeasurements(" heart_rate, target_2_x ,")
	require.NoError(t, err)
	require.Equal(t, []Measurement{HeartRate, TargetX(1)}, parsed)

	_, err = ParseMeasurements("heart_rate,pulse")
	require.Error(t, err)
}

func TestStorePut(t *testing.T) {
	now := time.Unix(100, 0)
	store := NewStore()
	store.Now = func() time.Time { return now }
	store.Put(Value{Name: Distance, Kind: KindNumber, Number: 1.5})
	store.Put(Value{Name: HasTarget, Kind: KindBool, Bool: true, Updated: time.Unix(50, 0)})

	v, ok := store.Get(Distance)
	require.True(t, ok)
	require.Equal(t, 1.5, v.Number)
	require.Equal(t, now, v.Updated)
	v, ok = store.Get(HasTarget)
	require.True(t, ok)
	require.True(t, v.Bool)
	require.Equal(t, time.Unix(50, 0), v.Updated)
}

func TestValueJSON(t *testing.T) {
	cases := []struct {
		v      Value
		expect interface{}
	}{
		{Value{Kind: KindNumber, Number: 1.5}, 1.5},
		{Value{Kind: KindNumber, Number: math.NaN()}, nil},
		{Value{Kind: KindNumber, Number: math.Inf(-1)}, nil},
		{Value{Kind: KindBool, Bool: true}, true},
		{Value{Kind: KindText, Text: "2.3.4"}, "2.3.4"},
	}
	for _, c := range cases {
		require.Equal(t, c.expect, c.v.JSONValue())
	}

	out, err := json.Marshal([]Value{{Name: TotalPhase, Kind: KindNumber, Number: math.NaN(), Updated: time.Unix(0, 5), Count: 1}})
	require.NoError(t, err)
	require.JSONEq(t, `[{"name":"total_phase","kind":"number","value":null,"updated":5,"count":1}]`, string(out))
}
