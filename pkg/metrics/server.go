package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"

	fx "github.com/robotalks/mmwave.go/pkg/framework"
	"github.com/robotalks/mmwave.go/pkg/radar/sink"
)

// Server serves /metrics, the /status snapshot and optional extra handlers.
type Server struct {
	Addr     string
	Registry *prometheus.Registry
	Store    *sink.Store

	mux *http.ServeMux
}

// NewServer creates a Server.
func NewServer(addr string, reg *prometheus.Registry, store *sink.Store) *Server {
	s := &Server{Addr: addr, Registry: reg, Store: store, mux: http.NewServeMux()}
	s.mux.Handle("/metrics", Handler(reg))
	s.mux.HandleFunc("/status", s.serveStatus)
	return s
}

// Handle registers an extra handler, e.g. the websocket feed.
func (s *Server) Handle(pattern string, h http.Handler) *Server {
	s.mux.Handle(pattern, h)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "http " + s.Addr
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.Addr, Handler: s}
	glog.Infof("serving metrics on %s", s.Addr)
	err := fx.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

type statusValue struct {
	Value   interface{} `json:"value"`
	Updated int64       `json:"updated"`
	Count   uint64      `json:"count"`
}

func (s *Server) serveStatus(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]statusValue)
	if s.Store != nil {
		for _, v := range s.Store.Snapshot() {
			sv := statusValue{Value: v.JSONValue(), Updated: v.Updated.UnixNano(), Count: v.Count}
			out[string(v.Name)] = sv
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		glog.Errorf("encode status: %v", err)
	}
}
