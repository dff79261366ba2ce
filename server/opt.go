package server

import (
	"time"

	"github.com/xy-planning-network/switchback"
	"github.com/xy-planning-network/switchback/logger"
	"github.com/xy-planning-network/switchback/metrics"
)

// A ServerOptFn configures a *Server under construction in New,
// overwriting the matching environment-derived default.
type ServerOptFn func(*Server)

// WithAddress binds the web server to addr, e.g. "127.0.0.1:8080".
func WithAddress(addr string) ServerOptFn {
	return func(s *Server) { s.cfg.Addr = addr }
}

// WithCompression compresses eligible responses at the server boundary.
func WithCompression() ServerOptFn {
	return func(s *Server) { s.compress = true }
}

// WithEnv sets the Environment the server believes it runs in.
func WithEnv(env switchback.Environment) ServerOptFn {
	return func(s *Server) { s.cfg.Env = env }
}

// WithErrorHandler shapes failure responses with fn instead of
// DefaultErrorHandler.
func WithErrorHandler(fn ErrorHandler) ServerOptFn {
	return func(s *Server) { s.errH = fn }
}

// WithIdleTimeout bounds how long a keep-alive connection may sit quiet.
func WithIdleTimeout(d time.Duration) ServerOptFn {
	return func(s *Server) { s.cfg.IdleTimeout = d }
}

// WithLogger routes the server's own lines through l.
func WithLogger(l logger.Logger) ServerOptFn {
	return func(s *Server) { s.ls = l }
}

// WithMaxBodyBytes caps request bodies at n bytes; over the cap requests
// answer 413 and no handler runs.
func WithMaxBodyBytes(n int64) ServerOptFn {
	return func(s *Server) { s.cfg.MaxBodyBytes = n }
}

// WithMaxConnections caps concurrently accepted connections;
// zero lifts the cap.
func WithMaxConnections(n int) ServerOptFn {
	return func(s *Server) { s.cfg.MaxConnections = n }
}

// WithMaxHeaderBytes caps request header size; over the cap net/http
// answers 431.
func WithMaxHeaderBytes(n int) ServerOptFn {
	return func(s *Server) { s.cfg.MaxHeaderBytes = n }
}

// WithMetrics collects into m instead of a per-Server registry,
// for sharing one registry across servers.
func WithMetrics(m *metrics.ServerMetrics) ServerOptFn {
	return func(s *Server) { s.mets = m }
}

// WithMetricsEndpoint serves the Prometheus exposition at path,
// outside the route table.
func WithMetricsEndpoint(path string) ServerOptFn {
	return func(s *Server) { s.metricsPath = path }
}

// WithMode selects the protocol family; confer [Mode].
func WithMode(m Mode) ServerOptFn {
	return func(s *Server) { s.cfg.Mode = m }
}

// WithProxyHeaders trusts X-Forwarded-For and friends at the boundary,
// for servers deployed behind a reverse proxy.
func WithProxyHeaders() ServerOptFn {
	return func(s *Server) { s.proxied = true }
}

// WithReadTimeout bounds reading a request, header included.
func WithReadTimeout(d time.Duration) ServerOptFn {
	return func(s *Server) { s.cfg.ReadTimeout = d }
}

// WithRequestTimeout bounds each handler chain; running over it
// answers 504. Zero leaves chains without a deadline.
func WithRequestTimeout(d time.Duration) ServerOptFn {
	return func(s *Server) { s.cfg.RequestTimeout = d }
}

// WithShutdownGrace gives in-flight requests d to finish during Shutdown.
func WithShutdownGrace(d time.Duration) ServerOptFn {
	return func(s *Server) { s.cfg.ShutdownGrace = d }
}

// WithTLS serves TLS with the cert and key files, TLS 1.3 minimum.
func WithTLS(certFile, keyFile string) ServerOptFn {
	return func(s *Server) {
		s.cfg.CertFile = certFile
		s.cfg.KeyFile = keyFile
	}
}
