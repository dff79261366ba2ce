package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gorilla/handlers"
	// TODO(dlk): configurable env files
	_ "github.com/joho/godotenv/autoload"
	"github.com/xy-planning-network/switchback"
	"github.com/xy-planning-network/switchback/http/router"
	"github.com/xy-planning-network/switchback/logger"
	"github.com/xy-planning-network/switchback/metrics"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/net/netutil"
)

// A State is a phase of the Server lifecycle.
//
// A Server only moves forward: Idle to Listening to Draining to Stopped.
type State string

const (
	Idle      State = "IDLE"
	Listening State = "LISTENING"
	Draining  State = "DRAINING"
	Stopped   State = "STOPPED"
)

var _ switchback.Enumerable = Idle

// String returns s as a string.
func (s State) String() string { return string(s) }

// Valid asserts s is an available State.
func (s State) Valid() error {
	switch s {
	case Idle, Listening, Draining, Stopped:
		return nil
	default:
		return fmt.Errorf("%w: not a valid State: %q", switchback.ErrNotValid, string(s))
	}
}

// A Server pairs a [Dispatcher] with a listener and a one-way lifecycle.
//
// A Server runs once: construct, Run, Shutdown. Misusing the lifecycle,
// say running twice or shutting down before running, reports
// switchback.ErrInvalidState and changes nothing.
type Server struct {
	cfg         Config
	table       *router.Table
	ls          logger.Logger
	mets        *metrics.ServerMetrics
	errH        ErrorHandler
	compress    bool
	proxied     bool
	metricsPath string

	mu        sync.Mutex
	state     State
	disp      *Dispatcher
	srv       *http.Server
	boundAddr string
	stopped   chan struct{}
}

// New constructs an Idle Server around table.
//
// Defaults derive from the environment (confer NewConfig); options
// overwrite them. New validates the result, wrapping problems in
// switchback.ErrBadConfig.
func New(table *router.Table, opts ...ServerOptFn) (*Server, error) {
	if table == nil {
		return nil, fmt.Errorf("switchback/server: %w: nil route table", switchback.ErrBadConfig)
	}

	s := &Server{
		cfg:     NewConfig(),
		table:   table,
		mets:    metrics.New(),
		state:   Idle,
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.ls == nil {
		s.ls = logger.NewLogger(logger.WithEnv(s.cfg.Env.String()))
	}
	if err := s.cfg.Valid(); err != nil {
		return nil, fmt.Errorf("switchback/server: %w: %s", switchback.ErrBadConfig, err)
	}

	return s, nil
}

// State reports the lifecycle phase the Server is in.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// InFlight reports how many requests are being handled right now.
func (s *Server) InFlight() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disp == nil {
		return 0
	}

	return s.disp.InFlight()
}

// Addr reports the bound listener address once Listening,
// else the configured address.
//
// Addr is how callers binding port 0 learn the port they got.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.boundAddr != "" {
		return s.boundAddr
	}

	return s.cfg.Addr
}

// Run freezes the route table, binds the listener and serves until
// Shutdown or listener failure. Run returns nil after a clean drain.
//
// Run only proceeds from Idle; anything else reports ErrInvalidState.
func (s *Server) Run() error {
	s.mu.Lock()
	if s.state != Idle {
		defer s.mu.Unlock()
		return fmt.Errorf("switchback/server: %w: cannot run from %s", switchback.ErrInvalidState, s.state)
	}

	s.disp = NewDispatcher(s.table, DispatcherConfig{
		Logger:         s.ls,
		Metrics:        s.mets,
		ErrorHandler:   s.errH,
		RequestTimeout: s.cfg.RequestTimeout,
		MaxBodyBytes:   s.cfg.MaxBodyBytes,
	})
	srv := s.buildServer()

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.state = Stopped
		s.mu.Unlock()
		close(s.stopped)
		return fmt.Errorf("switchback/server: could not listen on %s: %w", s.cfg.Addr, err)
	}
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	s.srv = srv
	s.boundAddr = ln.Addr().String()
	s.state = Listening
	s.mu.Unlock()

	s.ls.Info(fmt.Sprintf("running web server at %s", ln.Addr()), nil)

	var serveErr error
	if s.cfg.TLS() {
		serveErr = srv.ServeTLS(ln, s.cfg.CertFile, s.cfg.KeyFile)
	} else {
		serveErr = srv.Serve(ln)
	}

	s.mu.Lock()
	s.state = Stopped
	s.mu.Unlock()
	close(s.stopped)

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return fmt.Errorf("switchback/server: serving failed: %w", serveErr)
	}

	return nil
}

// Shutdown drains the Server: the listener closes at once, in-flight
// requests get ShutdownGrace to finish, and whatever remains is cut off
// with the dropped count logged.
//
// Shutdown only proceeds from Listening; anything else, a second
// Shutdown included, reports ErrInvalidState.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Listening {
		defer s.mu.Unlock()
		return fmt.Errorf("switchback/server: %w: cannot shut down from %s", switchback.ErrInvalidState, s.state)
	}
	s.state = Draining
	srv := s.srv
	s.mu.Unlock()

	s.ls.Info("shutting down web server", nil)

	graceCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(graceCtx); err != nil {
		dropped := s.disp.InFlight()
		s.ls.Error(fmt.Sprintf("grace period expired; dropping %d in-flight requests", dropped), &logger.LogContext{Error: err})
		if cerr := srv.Close(); cerr != nil {
			s.ls.Error("failed closing web server", &logger.LogContext{Error: cerr})
		}

		<-s.stopped
		return fmt.Errorf("switchback/server: %w: %d requests dropped at shutdown", switchback.ErrTimeout, dropped)
	}

	<-s.stopped
	s.ls.Info("web server shutdown successfully", nil)
	return nil
}

// Serve runs the Server until a termination signal arrives, then drains.
//
// These stop Serve:
//
// - os.Interrupt
// - syscall.SIGHUP
// - syscall.SIGINT
// - syscall.SIGQUIT
// - syscall.SIGTERM
func (s *Server) Serve() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	defer stop()

	runErr := make(chan error, 1)
	go func() { runErr <- s.Run() }()

	select {
	case err := <-runErr:
		// the listener failed before any signal arrived
		return err
	case <-ctx.Done():
	}

	s.ls.Info("received shutdown signal", nil)
	if err := s.Shutdown(context.Background()); err != nil {
		if rerr := <-runErr; rerr != nil {
			return rerr
		}
		return err
	}

	return <-runErr
}

// boundary assembles the outermost http.Handler: dispatcher, optional
// metrics endpoint, optional compression, optional proxy header trust.
func (s *Server) boundary() http.Handler {
	h := http.Handler(s.disp)

	if s.metricsPath != "" {
		mux := http.NewServeMux()
		mux.Handle(s.metricsPath, s.mets.Handler())
		mux.Handle("/", s.disp)
		h = mux
	}
	if s.compress {
		h = handlers.CompressHandler(h)
	}
	if s.proxied {
		h = handlers.ProxyHeaders(h)
	}

	return h
}

// buildServer constructs the net/http server for the configured Mode.
func (s *Server) buildServer() *http.Server {
	h := s.boundary()

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           h,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		MaxHeaderBytes:    s.cfg.MaxHeaderBytes,
	}

	if s.cfg.TLS() {
		srv.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS13}
	}

	switch s.cfg.Mode {
	case ModeHTTP1:
		// an empty next-proto map keeps net/http from upgrading to h2
		srv.TLSNextProto = map[string]func(*http.Server, *tls.Conn, http.Handler){}

	case ModeHTTP2:
		if s.cfg.TLS() {
			srv.TLSConfig.NextProtos = []string{"h2"}
		} else {
			srv.Handler = h2c.NewHandler(h, &http2.Server{})
		}
	}

	return srv
}
