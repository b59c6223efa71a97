package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"strings"

	"github.com/golang/glog"

	fx "github.com/robotalks/mmwave.go/pkg/framework"
	"github.com/robotalks/mmwave.go/pkg/metrics"
	"github.com/robotalks/mmwave.go/pkg/radar"
	"github.com/robotalks/mmwave.go/pkg/radar/sink"
	"github.com/robotalks/mmwave.go/pkg/radar/sink/mqtt"
	"github.com/robotalks/mmwave.go/pkg/radar/sink/websocket"
)

func init() {
	radar.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := radar.MustNewConfig()
	if err := conf.Validate(); err != nil {
		glog.Exit(err)
	}
	var dump strings.Builder
	conf.Dump(&dump)
	glog.Info(dump.String())

	names := conf.MeasurementList()
	store := sink.NewStore()
	sets := []*sink.Set{sink.NewSet(store, names...)}
	var runnables []fx.Runnable
	var observer radar.Observer

	if conf.MetricsAddr != "" {
		reg := metrics.NewRegistry()
		observer = metrics.NewFrameMetrics(reg)
		hub := websocket.NewHub(conf.DeviceID)
		sets = append(sets,
			sink.NewSet(metrics.NewGauges(reg), names...),
			sink.NewSet(hub, names...))
		srv := metrics.NewServer(conf.MetricsAddr, reg, store).Handle("/ws", hub.Handler())
		runnables = append(runnables, srv)
	}

	if conf.MQTTURL != "" {
		pub, err := mqtt.NewPublisher(conf.MQTTURL, conf.Meta())
		if err != nil {
			glog.Exitf("invalid MQTT URL: %v", err)
		}
		if err := pub.Connect(); err != nil {
			glog.Exitf("connect MQTT broker: %v", err)
		}
		defer pub.Close()
		sets = append(sets, sink.NewSet(pub, names...))
	}

	src, err := conf.OpenSerial()
	if err != nil {
		glog.Exit(err)
	}
	defer src.Close()

	driver := conf.MustNewDriver(src, sink.Join(sets...))
	driver.Observer = observer

	loop := fx.NewLoop().Add(driver).AddRunnable(runnables...)
	loop.Interval = conf.PollInterval
	loop.FailFast = true

	if err := fx.NewRunner(context.Background()).HandleSignals().Go(loop).Wait(); err != nil {
		glog.Error(err)
	}
}
