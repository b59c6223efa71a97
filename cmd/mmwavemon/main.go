package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/mmwave.go/pkg/radar/msgs"
	"github.com/robotalks/mmwave.go/pkg/radar/sink/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/mmwave/"
	device  = "+"
)

func init() {
	if val := os.Getenv("MMWAVE_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&device, "id", device, "Device ID to monitor, + for all.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer q.Close()

	q.Sub(device+"/+", mqtt.Handler(func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/"+mqtt.MetaTopic) {
			meta, err := msgs.DecodeMeta(payload)
			if err != nil {
				log.Printf("%s: bad meta: %v", topic, err)
				return
			}
			log.Printf("%s: %s", topic, meta)
			return
		}
		r, err := msgs.DecodeReading(payload)
		if err != nil {
			log.Printf("%s: bad reading: %v", topic, err)
			return
		}
		v := r.Value()
		log.Printf("%s: [%s] %s", topic, v.Kind, v)
	}))
	<-(chan struct{})(nil)
}
