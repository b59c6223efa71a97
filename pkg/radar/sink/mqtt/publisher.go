package mqtt

import (
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
	"github.com/golang/protobuf/proto"

	"github.com/robotalks/mmwave.go/pkg/radar/msgs"
	"github.com/robotalks/mmwave.go/pkg/radar/sink"
)

// MetaTopic is the retained device description topic under a device.
const MetaTopic = "meta"

// ReadingTopic returns the topic of a measurement.
func ReadingTopic(device string, name sink.Measurement) string {
	return device + "/" + string(name)
}

// DeviceMetaTopic returns the meta topic of a device.
func DeviceMetaTopic(device string) string {
	return device + "/" + MetaTopic
}

// Publisher is a sink.Factory publishing readings to MQTT. Publishing
// is asynchronous and never blocks the caller.
type Publisher struct {
	Queue  *Queue
	Device string
	Meta   msgs.DeviceMeta
	Now    func() time.Time
}

// NewPublisher creates a Publisher. The broker receives an offline meta
// message as will when the connection drops.
func NewPublisher(brokerURL string, meta msgs.DeviceMeta) (*Publisher, error) {
	opts, prefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	offline := meta
	offline.Online = false
	opts.SetBinaryWill(prefix+DeviceMetaTopic(meta.Device), msgs.EncodeMeta(&offline), 1, true)
	p := &Publisher{Device: meta.Device, Meta: meta, Now: time.Now}
	p.Queue = NewQueue(opts, prefix)
	p.Queue.OnConnect = func(q *Queue) { p.announce(true) }
	return p, nil
}

// Connect connects to the broker and waits for the result.
func (p *Publisher) Connect() error {
	token := p.Queue.Connect()
	token.Wait()
	return token.Error()
}

// Close marks the device offline and disconnects.
func (p *Publisher) Close() error {
	p.announce(false).WaitTimeout(time.Second)
	return p.Queue.Close()
}

func (p *Publisher) announce(online bool) paho.Token {
	meta := p.Meta
	meta.Online = online
	return p.Queue.PubWith(DeviceMetaTopic(p.Device), msgs.EncodeMeta(&meta), 1, true)
}

func (p *Publisher) publish(r *msgs.Reading) {
	data, err := proto.Marshal(r)
	if err != nil {
		glog.Errorf("encode reading %s: %v", r.Name, err)
		return
	}
	p.Queue.Pub(ReadingTopic(p.Device, sink.Measurement(r.Name)), data)
}

func (p *Publisher) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// NumberSink implements sink.Factory.
func (p *Publisher) NumberSink(name sink.Measurement) sink.NumberSink {
	return sink.NumberFunc(func(v float64) {
		p.publish(msgs.NewNumber(p.Device, name, v, p.now()))
	})
}

// BoolSink implements sink.Factory.
func (p *Publisher) BoolSink(name sink.Measurement) sink.BoolSink {
	return sink.BoolFunc(func(v bool) {
		p.publish(msgs.NewBool(p.Device, name, v, p.now()))
	})
}

// TextSink implements sink.Factory.
func (p *Publisher) TextSink(name sink.Measurement) sink.TextSink {
	return sink.TextFunc(func(v string) {
		p.publish(msgs.NewText(p.Device, name, v, p.now()))
	})
}
