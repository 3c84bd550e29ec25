package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/joeycumines/go-reactor/promreactor"
	"github.com/joeycumines/logiface"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metricsServer serves the collector, plus Go runtime and process
// metrics, at /metrics.
type metricsServer struct {
	server   *http.Server
	listener net.Listener
	logger   *logiface.Logger[logiface.Event]
}

func newMetricsServer(addr string, collector *promreactor.Collector, logger *logiface.Logger[logiface.Event]) (*metricsServer, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collector); err != nil {
		return nil, err
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	return &metricsServer{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: listener,
		logger:   logger,
	}, nil
}

func (s *metricsServer) Addr() net.Addr { return s.listener.Addr() }

func (s *metricsServer) start() {
	s.logger.Info().Str("addr", s.Addr().String()).Log("serving metrics")
	go func() {
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Err().Err(err).Log("metrics server failed")
		}
	}()
}

func (s *metricsServer) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warning().Err(err).Log("metrics server shutdown failed")
	}
}
