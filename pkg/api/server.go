// Package api serves the simulator over HTTP: a small REST surface for
// control and inspection, a WebSocket relay for live simulation frames,
// and the usual health and metrics endpoints.
package api

import (
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-zerotrust/pkg/engine"
	"github.com/dd0wney/cluso-zerotrust/pkg/events"
	"github.com/dd0wney/cluso-zerotrust/pkg/health"
	"github.com/dd0wney/cluso-zerotrust/pkg/logging"
	"github.com/dd0wney/cluso-zerotrust/pkg/metrics"
)

// maxBodyBytes caps request bodies; control requests are tiny
const maxBodyBytes = 1 << 20

// Server represents the HTTP API server
type Server struct {
	engine   *engine.Engine
	checker  *health.Checker
	metrics  *metrics.Registry
	logger   logging.Logger
	upgrader websocket.Upgrader

	startTime     time.Time
	metricsStopCh chan struct{}
	metricsOnce   sync.Once
	metricsWg     sync.WaitGroup
}

// NewServer creates an API server around an engine and starts the
// background system metrics updater. Callers should StopMetrics when
// done.
func NewServer(eng *engine.Engine, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	s := &Server{
		engine:  eng,
		checker: health.NewChecker(),
		metrics: eng.Metrics(),
		logger:  logger.With(logging.Component("api")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is served from anywhere, same as the CORS policy
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		startTime:     time.Now(),
		metricsStopCh: make(chan struct{}),
	}

	s.registerHealthChecks()

	s.metricsWg.Add(1)
	go s.updateMetricsPeriodically()

	return s
}

// Handler builds the full HTTP handler: routes wrapped in the
// middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/network/topology", s.handleTopology)
	mux.HandleFunc("/api/network/status", s.handleStatus)
	mux.HandleFunc("/api/simulate/attack", s.handleAttack)
	mux.HandleFunc("/api/simulate/activity", s.handleActivity)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/api/audit/recent", s.handleAuditRecent)

	mux.HandleFunc("/health", s.checker.HTTPHandler())
	mux.HandleFunc("/health/live", s.checker.LivenessHandler())
	mux.HandleFunc("/health/ready", s.checker.ReadinessHandler())
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("/ws", s.handleWebSocket)

	var handler http.Handler = mux
	handler = s.metricsMiddleware(handler)
	handler = s.bodySizeLimitMiddleware(handler, maxBodyBytes)
	handler = s.corsMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = s.panicRecoveryMiddleware(handler)
	return handler
}

// HealthChecker returns the server's health checker so callers can
// register additional checks.
func (s *Server) HealthChecker() *health.Checker {
	return s.checker
}

func (s *Server) registerHealthChecks() {
	net := s.engine.Network()
	bus := s.engine.Bus()

	s.checker.RegisterCheck("network", health.NetworkCheck(func() (int, int) {
		return net.TotalDevices(), net.CompromisedCount()
	}))
	s.checker.RegisterCheck("attack", health.AttackCheck(s.engine.AttackRunning))
	s.checker.RegisterCheck("event_bus", health.EventBusCheck(func() map[string]int {
		return map[string]int{
			events.TopicActivity: bus.SubscriberCount(events.TopicActivity),
			events.TopicAttack:   bus.SubscriberCount(events.TopicAttack),
			events.TopicReset:    bus.SubscriberCount(events.TopicReset),
		}
	}))
	s.checker.RegisterCheck("memory", health.MemoryCheck(func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Alloc, m.Sys
	}))

	// A compromised network is degraded but still serving; readiness
	// only requires devices to exist
	s.checker.RegisterReadinessCheck("engine", func() health.Check {
		if net.TotalDevices() == 0 {
			return health.Check{
				Name:    "engine",
				Status:  health.StatusUnhealthy,
				Message: "No devices configured",
			}
		}
		return health.SimpleCheck("engine")
	})
	s.checker.RegisterLivenessCheck("server", func() health.Check {
		return health.SimpleCheck("server")
	})
}

// updateMetricsPeriodically updates system metrics every 10 seconds
func (s *Server) updateMetricsPeriodically() {
	defer s.metricsWg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.updateSystemMetrics()
		case <-s.metricsStopCh:
			return
		}
	}
}

func (s *Server) updateSystemMetrics() {
	s.metrics.UptimeSeconds.Set(time.Since(s.startTime).Seconds())
	s.metrics.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	s.metrics.MemoryAllocBytes.Set(float64(m.Alloc))
	s.metrics.MemorySysBytes.Set(float64(m.Sys))

	net := s.engine.Network()
	s.metrics.UpdateNetworkGauges(net.TotalDevices(), net.CompromisedCount())
}

// StopMetrics stops the background metrics updater. Safe to call more
// than once.
func (s *Server) StopMetrics() {
	if s.metricsStopCh == nil {
		return
	}
	s.metricsOnce.Do(func() {
		close(s.metricsStopCh)
	})
	s.metricsWg.Wait()
}
