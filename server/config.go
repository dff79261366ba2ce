package server

import (
	"fmt"
	"time"

	"github.com/xy-planning-network/switchback"
	"github.com/xy-planning-network/switchback/http/web"
)

const (
	// Web server defaults
	hostEnvVar  = "HOST"
	portEnvVar  = "PORT"
	DefaultPort = ":3000"

	serverReadTimeoutEnvVar  = "SERVER_READ_TIMEOUT"
	DefaultServerReadTimeout = 5 * time.Second
	serverIdleTimeoutEnvVar  = "SERVER_IDLE_TIMEOUT"
	DefaultServerIdleTimeout = 120 * time.Second

	// Request handling defaults
	requestTimeoutEnvVar  = "REQUEST_TIMEOUT"
	DefaultRequestTimeout = 30 * time.Second
	maxHeaderBytesEnvVar  = "SERVER_MAX_HEADER_BYTES"
	DefaultMaxHeaderBytes = 32 << 10
	maxBodyBytesEnvVar    = "SERVER_MAX_BODY_BYTES"
	maxConnectionsEnvVar  = "SERVER_MAX_CONNECTIONS"
	DefaultMaxConnections = 100

	// Shutdown defaults
	shutdownGraceEnvVar  = "SERVER_SHUTDOWN_GRACE"
	DefaultShutdownGrace = 5 * time.Second

	// Environment defaults
	environmentEnvVar = "ENVIRONMENT"
)

// A Mode selects the protocol family the server speaks.
type Mode string

const (
	// ModeNegotiated leaves protocol selection to net/http:
	// HTTP/1.1 on cleartext listeners, ALPN-negotiated h2 under TLS.
	ModeNegotiated Mode = "NEGOTIATED"

	// ModeHTTP1 pins the server to HTTP/1.x, disabling the h2 upgrade.
	ModeHTTP1 Mode = "HTTP1"

	// ModeHTTP2 commits to HTTP/2: h2c on cleartext listeners, h2 under TLS.
	ModeHTTP2 Mode = "HTTP2"
)

var _ switchback.Enumerable = ModeNegotiated

// String returns m as a string.
func (m Mode) String() string { return string(m) }

// Valid asserts m is an available Mode.
func (m Mode) Valid() error {
	switch m {
	case ModeNegotiated, ModeHTTP1, ModeHTTP2:
		return nil
	default:
		return fmt.Errorf("%w: not a valid Mode: %q", switchback.ErrNotValid, string(m))
	}
}

// A Config collects the knobs a Server runs under.
//
// Config is immutable once Run starts.
type Config struct {
	// Addr is the bind address, e.g. ":3000".
	Addr string

	// Env tunes environment-sensitive behavior, e.g. log formatting.
	Env switchback.Environment

	// Mode selects the protocol family; confer [Mode].
	Mode Mode

	// ReadTimeout bounds reading a request, header included.
	ReadTimeout time.Duration

	// IdleTimeout bounds how long a keep-alive connection may sit quiet.
	IdleTimeout time.Duration

	// RequestTimeout bounds a handler chain; running over it answers 504.
	// Zero leaves chains without a deadline.
	RequestTimeout time.Duration

	// MaxHeaderBytes caps request header size; over it the connection
	// receives 431 from net/http.
	MaxHeaderBytes int

	// MaxBodyBytes caps request body size; over it the request
	// receives 413 and no handler runs.
	MaxBodyBytes int64

	// MaxConnections caps concurrently accepted connections.
	// Zero leaves the listener unlimited.
	MaxConnections int

	// ShutdownGrace is how long in-flight requests get to finish
	// during Shutdown before their connections close underneath them.
	ShutdownGrace time.Duration

	// CertFile and KeyFile enable TLS when both are set.
	CertFile string
	KeyFile  string
}

// NewConfig builds a Config from environment variables,
// falling back to package defaults.
func NewConfig() Config {
	port := switchback.EnvVarOrString(portEnvVar, DefaultPort)
	if port[0] != ':' {
		port = ":" + port
	}

	return Config{
		Addr:           switchback.EnvVarOrString(hostEnvVar, "") + port,
		Env:            switchback.EnvVarOrEnv(environmentEnvVar, switchback.Development),
		Mode:           ModeNegotiated,
		ReadTimeout:    switchback.EnvVarOrDuration(serverReadTimeoutEnvVar, DefaultServerReadTimeout),
		IdleTimeout:    switchback.EnvVarOrDuration(serverIdleTimeoutEnvVar, DefaultServerIdleTimeout),
		RequestTimeout: switchback.EnvVarOrDuration(requestTimeoutEnvVar, DefaultRequestTimeout),
		MaxHeaderBytes: switchback.EnvVarOrInt(maxHeaderBytesEnvVar, DefaultMaxHeaderBytes),
		MaxBodyBytes:   int64(switchback.EnvVarOrInt(maxBodyBytesEnvVar, int(web.DefaultMaxBodyBytes))),
		MaxConnections: switchback.EnvVarOrInt(maxConnectionsEnvVar, DefaultMaxConnections),
		ShutdownGrace:  switchback.EnvVarOrDuration(shutdownGraceEnvVar, DefaultShutdownGrace),
	}
}

// TLS reports whether the Config carries TLS material.
func (c Config) TLS() bool { return c.CertFile != "" && c.KeyFile != "" }

// Valid asserts the Config can run a server.
func (c Config) Valid() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: missing bind address", switchback.ErrNotValid)
	}
	if err := c.Mode.Valid(); err != nil {
		return err
	}
	if err := c.Env.Valid(); err != nil {
		return err
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("%w: negative request timeout %s", switchback.ErrNotValid, c.RequestTimeout)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: body cap must be positive, have %d", switchback.ErrNotValid, c.MaxBodyBytes)
	}
	if c.MaxHeaderBytes < 0 {
		return fmt.Errorf("%w: negative header cap %d", switchback.ErrNotValid, c.MaxHeaderBytes)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("%w: negative connection cap %d", switchback.ErrNotValid, c.MaxConnections)
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		return fmt.Errorf("%w: TLS needs both a cert and a key file", switchback.ErrNotValid)
	}

	return nil
}
