// Package websocket broadcasts readings to websocket clients.
package websocket

import (
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/mmwave.go/pkg/radar/msgs"
	"github.com/robotalks/mmwave.go/pkg/radar/sink"
)

// DefaultClientBuffer is the number of readings queued per client.
const DefaultClientBuffer = 64

// Hub is a sink.Factory broadcasting every reading as JSON to all
// connected clients. A slow client loses readings instead of blocking
// the publisher.
type Hub struct {
	Device       string
	ClientBuffer int
	Now          func() time.Time

	lock    sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	ch      chan *msgs.Reading
	dropped uint64
}

// NewHub creates a Hub.
func NewHub(device string) *Hub {
	return &Hub{Device: device, ClientBuffer: DefaultClientBuffer, Now: time.Now}
}

// Handler returns the http.Handler serving websocket clients.
func (h *Hub) Handler() websocket.Handler {
	return websocket.Handler(h.serve)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

func (h *Hub) serve(conn *websocket.Conn) {
	c := h.attach()
	defer h.detach(c)
	glog.V(2).Infof("websocket client %s connected", conn.Request().RemoteAddr)

	closed := make(chan struct{})
	go func() {
		// drain incoming frames to notice disconnects.
		var msg []byte
		for websocket.Message.Receive(conn, &msg) == nil {
		}
		close(closed)
	}()
	for {
		select {
		case r := <-c.ch:
			if err := websocket.JSON.Send(conn, r); err != nil {
				glog.V(2).Infof("websocket send: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}

func (h *Hub) attach() *client {
	size := h.ClientBuffer
	if size <= 0 {
		size = DefaultClientBuffer
	}
	c := &client{ch: make(chan *msgs.Reading, size)}
	h.lock.Lock()
	if h.clients == nil {
		h.clients = make(map[*client]struct{})
	}
	h.clients[c] = struct{}{}
	h.lock.Unlock()
	return c
}

func (h *Hub) detach(c *client) {
	h.lock.Lock()
	delete(h.clients, c)
	dropped := c.dropped
	h.lock.Unlock()
	if dropped > 0 {
		glog.Warningf("websocket client dropped %d readings", dropped)
	}
}

// Broadcast queues a reading to every client.
func (h *Hub) Broadcast(r *msgs.Reading) {
	h.lock.Lock()
	defer h.lock.Unlock()
	for c := range h.clients {
		select {
		case c.ch <- r:
		default:
			c.dropped++
		}
	}
}

func (h *Hub) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// NumberSink implements sink.Factory.
func (h *Hub) NumberSink(name sink.Measurement) sink.NumberSink {
	return sink.NumberFunc(func(v float64) {
		h.Broadcast(msgs.NewNumber(h.Device, name, v, h.now()))
	})
}

// BoolSink implements sink.Factory.
func (h *Hub) BoolSink(name sink.Measurement) sink.BoolSink {
	return sink.BoolFunc(func(v bool) {
		h.Broadcast(msgs.NewBool(h.Device, name, v, h.now()))
	})
}

// TextSink implements sink.Factory.
func (h *Hub) TextSink(name sink.Measurement) sink.TextSink {
	return sink.TextFunc(func(v string) {
		h.Broadcast(msgs.NewText(h.Device, name, v, h.now()))
	})
}
