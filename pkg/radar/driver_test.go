package radar

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fx "github.com/robotalks/mmwave.go/pkg/framework"
	"github.com/robotalks/mmwave.go/pkg/radar/dispatch"
	"github.com/robotalks/mmwave.go/pkg/radar/frame"
	"github.com/robotalks/mmwave.go/pkg/radar/sink"
	"github.com/robotalks/mmwave.go/pkg/radar/transport"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type testDriver struct {
	*Driver
	buf     *transport.Buffer
	store   *sink.Store
	clock   *fakeClock
	results []frame.ParseResult
}

func newTestDriver(policy dispatch.TargetPolicy) *testDriver {
	td := &testDriver{
		buf:   transport.NewBuffer(nil),
		store: sink.NewStore(),
		clock: &fakeClock{now: time.Unix(1000, 0)},
	}
	td.Driver = NewDriver(td.buf, dispatch.New(sink.NewSet(td.store), policy))
	td.Now = td.clock.Now
	td.Observer = ObserveFunc(func(res frame.ParseResult, buffered int) {
		td.results = append(td.results, res)
	})
	return td
}

func (td *testDriver) feed(t *testing.T, data ...[]byte) *testDriver {
	for _, b := range data {
		td.buf.Write(b)
	}
	require.NoError(t, td.Poll(context.Background()))
	return td
}

func (td *testDriver) number(t *testing.T, name sink.Measurement) float64 {
	v, ok := td.store.Get(name)
	require.True(t, ok, "%s not published", name)
	return v.Number
}

func (td *testDriver) completed() (frames []*frame.Frame) {
	for _, res := range td.results {
		if res.Reason == frame.ReasonComplete {
			frames = append(frames, res.Frame)
		}
	}
	return
}

func encode(typ frame.Type, payload []byte) []byte {
	return (&frame.Frame{ID: 7, Type: typ, Payload: payload}).Bytes()
}

func TestDriverHeartRate(t *testing.T) {
	td := newTestDriver(dispatch.TargetPolicySlots).
		feed(t, encode(frame.TypeHeartRate, dispatch.EncodeFloat32(72)))
	require.Equal(t, 72.0, td.number(t, sink.HeartRate))
	require.Len(t, td.completed(), 1)
	require.Zero(t, td.Reassembler.Len())
	require.Zero(t, td.buf.Len())
}

func TestDriverRecoversAfterNoise(t *testing.T) {
	td := newTestDriver(dispatch.TargetPolicySlots).
		feed(t, []byte{0x55}, encode(frame.TypeBreathRate, dispatch.EncodeFloat32(15)))
	require.Equal(t, frame.ReasonDesync, td.results[0].Reason)
	require.Len(t, td.completed(), 1)
	require.Equal(t, 15.0, td.number(t, sink.BreathRate))
}

func TestDriverIdempotent(t *testing.T) {
	raw := encode(frame.TypeDistance, append([]byte{1, 0, 0, 0}, dispatch.EncodeFloat32(1.25)...))
	td := newTestDriver(dispatch.TargetPolicySlots).feed(t, raw, raw)
	frames := td.completed()
	require.Len(t, frames, 2)
	require.Equal(t, frames[0], frames[1])
	v, ok := td.store.Get(sink.Distance)
	require.True(t, ok)
	require.Equal(t, 1.25, v.Number)
	require.EqualValues(t, 2, v.Count)
}

func TestDriverPointCloudEmpty(t *testing.T) {
	td := newTestDriver(dispatch.TargetPolicySlots).
		feed(t, encode(frame.TypePointCloud, dispatch.EncodePointCloud([]dispatch.Target{{X: 1, Y: 2}})))
	require.Equal(t, 1.0, td.number(t, sink.TargetX(0)))
	td.feed(t, encode(frame.TypePointCloud, []byte{0, 0, 0, 0}))
	require.Equal(t, 0.0, td.number(t, sink.NumTargets))
	for i := 0; i < sink.MaxTargets; i++ {
		require.Equal(t, 0.0, td.number(t, sink.TargetX(i)))
		require.Equal(t, 0.0, td.number(t, sink.TargetY(i)))
	}
}

func TestDriverPresenceFalse(t *testing.T) {
	td := newTestDriver(dispatch.TargetPolicySlots).
		feed(t,
			encode(frame.TypeHeartRate, dispatch.EncodeFloat32(72)),
			encode(frame.TypeBreathRate, dispatch.EncodeFloat32(15)),
			encode(frame.TypePeopleExist, []byte{0, 0}))
	v, ok := td.store.Get(sink.HasTarget)
	require.True(t, ok)
	require.False(t, v.Bool)
	for _, m := range []sink.Measurement{sink.BreathRate, sink.HeartRate, sink.Distance, sink.NumTargets} {
		require.Equal(t, 0.0, td.number(t, m), string(m))
	}
}

func TestDriverFirmwareVersion(t *testing.T) {
	td := newTestDriver(dispatch.TargetPolicySlots).
		feed(t, encode(frame.TypeFirmwareVersion, []byte{1, 2, 3, 4}))
	v, ok := td.store.Get(sink.FirmwareVersion)
	require.True(t, ok)
	require.Equal(t, "2.3.4", v.Text)
}

func TestDriverStaleTimeout(t *testing.T) {
	td := newTestDriver(dispatch.TargetPolicySlots)
	td.StaleTimeout = time.Second
	raw := encode(frame.TypeHeartRate, dispatch.EncodeFloat32(72))
	td.feed(t, raw[:5])
	require.Equal(t, 5, td.Reassembler.Len())

	td.clock.Advance(500 * time.Millisecond)
	td.feed(t)
	require.Equal(t, 5, td.Reassembler.Len())

	td.clock.Advance(500 * time.Millisecond)
	td.feed(t)
	require.Zero(t, td.Reassembler.Len())
	require.Equal(t, frame.ReasonStale, td.results[len(td.results)-1].Reason)

	// the rest of the stale frame is noise, the next frame still decodes.
	td.feed(t, raw[5:], raw)
	require.Len(t, td.completed(), 1)
}

func TestDriverMaxPayloadLen(t *testing.T) {
	td := newTestDriver(dispatch.TargetPolicySlots)
	td.Reassembler.MaxPayloadLen = 8
	td.feed(t, encode(frame.TypePointCloud, dispatch.EncodePointCloud([]dispatch.Target{{X: 1}})))
	require.Empty(t, td.completed())
	require.Equal(t, frame.ReasonOversize, td.results[frame.HeaderLen-1].Reason)
}

func TestDriverSourceError(t *testing.T) {
	boom := errors.New("boom")
	s := transport.NewStream(&failingReader{err: boom})
	d := NewDriver(s, dispatch.New(nil, dispatch.TargetPolicySlots))
	d.PollInterval = time.Millisecond
	require.ErrorIs(t, d.Run(context.Background()), boom)
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) {
	return 0, r.err
}

func TestDriverRunReplay(t *testing.T) {
	var raw bytes.Buffer
	(&frame.Frame{Type: frame.TypeHeartRate, Payload: dispatch.EncodeFloat32(60)}).WriteTo(&raw)
	(&frame.Frame{Type: frame.TypeBreathRate, Payload: dispatch.EncodeFloat32(12)}).WriteTo(&raw)

	store := sink.NewStore()
	d := NewDriver(transport.NewStream(&raw), dispatch.New(sink.NewSet(store), dispatch.TargetPolicySlots))
	d.PollInterval = time.Millisecond
	require.NoError(t, d.Run(context.Background()))
	v, ok := store.Get(sink.BreathRate)
	require.True(t, ok)
	require.Equal(t, 12.0, v.Number)
}

func TestDriverInLoop(t *testing.T) {
	td := newTestDriver(dispatch.TargetPolicyText)
	td.Now = time.Now
	td.Observer = nil
	td.buf.Write(encode(frame.TypePointCloud, dispatch.EncodePointCloud([]dispatch.Target{{X: 1, Y: 2, DopplerIndex: 3, ClusterIndex: 4}})))

	l := fx.NewLoop().Add(td.Driver)
	l.Interval = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	require.Eventually(t, func() bool {
		_, ok := td.store.Get(sink.TargetInfo)
		return ok
	}, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-errCh)

	v, _ := td.store.Get(sink.TargetInfo)
	require.JSONEq(t, `[{"x":1,"y":2,"doppler_index":3,"cluster_index":4}]`, v.Text)
	require.Equal(t, 1.0, td.number(t, sink.NumTargets))
}
