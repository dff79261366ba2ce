package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"github.com/xy-planning-network/switchback"
	"github.com/xy-planning-network/switchback/http/router"
	"github.com/xy-planning-network/switchback/http/web"
	"github.com/xy-planning-network/switchback/logger"
	"github.com/xy-planning-network/switchback/metrics"
)

// unroutedLabel stands in for a route label when no route matched,
// keeping raw request paths out of metric labels.
const unroutedLabel = "unrouted"

// An ErrorHandler shapes failure responses: not-found, method-not-allowed,
// over-cap payloads, handler faults and timeouts.
//
// The hook writes status, headers and body on c's Response; err wraps a
// sentinel from the root package so hooks can branch with errors.Is.
type ErrorHandler func(c *web.Context, status int, err error)

// DefaultErrorHandler answers compact JSON, echoing the cause for
// client-side statuses and masking it for server-side ones.
func DefaultErrorHandler(c *web.Context, status int, err error) {
	msg := http.StatusText(status)
	if status < http.StatusInternalServerError && err != nil {
		msg = err.Error()
	}

	c.Response().Status(status)
	_ = c.Response().JSON(map[string]any{"error": msg, "status": status})
}

// DispatcherConfig collects a Dispatcher's collaborators and limits.
type DispatcherConfig struct {
	// Logger receives fault, timeout and diagnostic lines.
	// Defaults to the package logger.
	Logger logger.Logger

	// Metrics, when set, collects per-request outcomes.
	Metrics *metrics.ServerMetrics

	// ErrorHandler shapes failure responses. Defaults to DefaultErrorHandler.
	ErrorHandler ErrorHandler

	// RequestTimeout bounds each handler chain.
	// Zero leaves chains without a deadline.
	RequestTimeout time.Duration

	// MaxBodyBytes caps request bodies.
	// Zero falls back to web.DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// A Dispatcher drives requests through a frozen route table while holding
// the protective envelope around each one: body cap, request timeout,
// panic isolation and a single response flush.
//
// A Dispatcher is an http.Handler, so it mounts in any net/http server;
// [Server] pairs one with a listener and lifecycle.
type Dispatcher struct {
	table   *router.Table
	ls      logger.Logger
	mets    *metrics.ServerMetrics
	errH    ErrorHandler
	timeout time.Duration
	maxBody int64

	inflight atomic.Int64
}

// NewDispatcher readies table to serve requests,
// freezing it if the caller has not already.
func NewDispatcher(table *router.Table, cfg DispatcherConfig) *Dispatcher {
	table.Freeze()

	d := &Dispatcher{
		table:   table,
		ls:      cfg.Logger,
		mets:    cfg.Metrics,
		errH:    cfg.ErrorHandler,
		timeout: cfg.RequestTimeout,
		maxBody: cfg.MaxBodyBytes,
	}
	if d.ls == nil {
		d.ls = logger.NewLogger()
	}
	if d.errH == nil {
		d.errH = DefaultErrorHandler
	}
	if d.maxBody == 0 {
		d.maxBody = web.DefaultMaxBodyBytes
	}

	return d
}

// InFlight reports how many requests the Dispatcher is handling right now.
func (d *Dispatcher) InFlight() int64 { return d.inflight.Load() }

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	d.inflight.Add(1)
	if d.mets != nil {
		d.mets.IncInFlight()
	}
	defer func() {
		d.inflight.Add(-1)
		if d.mets != nil {
			d.mets.DecInFlight()
		}
	}()

	body, err := d.readBody(r)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, switchback.ErrPayloadTooLarge) {
			status = http.StatusRequestEntityTooLarge
			d.ls.Warn(fmt.Sprintf("refusing %s %s: %s", r.Method, r.URL.Path, err), nil)
			if d.mets != nil {
				d.mets.IncLimitViolation("body")
			}
		}

		d.finish(w, r, web.NewContext(r), unroutedLabel, status, err, start)
		return
	}

	match, err := d.table.Resolve(r.Method, r.URL.EscapedPath())
	if err != nil {
		status := http.StatusNotFound
		c := web.NewContext(r)

		var mna *router.MethodNotAllowedError
		if errors.As(err, &mna) {
			status = http.StatusMethodNotAllowed
			c.Response().SetHeader("Allow", strings.Join(mna.Allow, ", "))
		}

		d.finish(w, r, c, unroutedLabel, status, err, start)
		return
	}

	ctx := r.Context()
	cancel := context.CancelFunc(func() {})
	if d.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
	}
	defer cancel()
	r = r.WithContext(ctx)

	c := web.NewContext(r,
		web.WithParams(match.Params),
		web.WithBody(body),
		web.WithMaxBodyBytes(d.maxBody),
	)

	done := make(chan chainFault, 1)
	go runChain(c, match, done)

	select {
	case f := <-done:
		if f.faulted() {
			d.fault(w, r, match, f, start)
			return
		}

		d.deliver(w, r, c, match.Route.Path, start)

	case <-ctx.Done():
		d.expire(w, r, c, match, done, start)
	}
}

// readBody buffers the whole request body before any chain work, so
// over-cap requests never reach a handler and handlers never block on a
// slow body mid-chain.
func (d *Dispatcher) readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	if r.ContentLength > d.maxBody {
		return nil, fmt.Errorf("switchback/server: %w: content length %d over the %d byte cap", switchback.ErrPayloadTooLarge, r.ContentLength, d.maxBody)
	}

	b, err := io.ReadAll(io.LimitReader(r.Body, d.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("switchback/server: failed reading request body: %w", err)
	}
	if int64(len(b)) > d.maxBody {
		return nil, fmt.Errorf("switchback/server: %w: body over the %d byte cap", switchback.ErrPayloadTooLarge, d.maxBody)
	}

	return b, nil
}

// fault answers a generic 500 for a chain that panicked.
//
// The handler's own buffered response is abandoned; the client sees
// nothing a half-finished handler wrote.
func (d *Dispatcher) fault(w http.ResponseWriter, r *http.Request, match *router.Match, f chainFault, start time.Time) {
	if d.mets != nil {
		d.mets.IncFault()
	}

	err := fmt.Errorf("switchback/server: %w: %v", switchback.ErrFault, f.val)
	d.ls.Error(
		fmt.Sprintf("panic handling %s %s: %v", r.Method, match.Route.Path, f.val),
		&logger.LogContext{Error: err, Request: r, Data: map[string]any{"stack": string(f.stack)}},
	)

	d.finish(w, r, web.NewContext(r), match.Route.Path, http.StatusInternalServerError, err, start)
}

// expire answers 504 for a chain that outran the request timeout.
//
// The chain's goroutine keeps running against the cancelled context and
// its buffered response is never flushed; a watcher goroutine waits on it
// to report what was discarded.
func (d *Dispatcher) expire(w http.ResponseWriter, r *http.Request, c *web.Context, match *router.Match, done <-chan chainFault, start time.Time) {
	err := fmt.Errorf("switchback/server: %w: %s %s exceeded %s", switchback.ErrTimeout, r.Method, match.Route.Path, d.timeout)
	if errors.Is(r.Context().Err(), context.DeadlineExceeded) {
		d.ls.Error(err.Error(), &logger.LogContext{Request: r})
		if d.mets != nil {
			d.mets.IncTimeout()
		}
	}

	d.finish(w, r, web.NewContext(r), match.Route.Path, http.StatusGatewayTimeout, err, start)

	go func() {
		f := <-done
		switch {
		case f.faulted():
			if d.mets != nil {
				d.mets.IncFault()
			}
			d.ls.Error(
				fmt.Sprintf("panic after timeout handling %s %s: %v", r.Method, match.Route.Path, f.val),
				&logger.LogContext{Data: map[string]any{"stack": string(f.stack)}},
			)

		case c.Response().BodySet():
			d.ls.Debug(fmt.Sprintf("discarding late response for %s %s", r.Method, match.Route.Path), nil)
		}
	}()
}

// finish shapes a failure response through the ErrorHandler and flushes it.
func (d *Dispatcher) finish(w http.ResponseWriter, r *http.Request, c *web.Context, route string, status int, err error, start time.Time) {
	d.errH(c, status, err)
	if c.Response().StatusCode() == 0 {
		c.Response().Status(status)
	}

	d.deliver(w, r, c, route, start)
}

// deliver flushes c's buffered response and records the outcome.
func (d *Dispatcher) deliver(w http.ResponseWriter, r *http.Request, c *web.Context, route string, start time.Time) {
	if n := c.Response().DroppedWrites(); n > 0 {
		d.ls.Debug(fmt.Sprintf("ignored %d extra body writes for %s %s", n, r.Method, route), nil)
	}

	status := c.Response().StatusCode()
	if status == 0 {
		status = http.StatusOK
	}

	if status == http.StatusTooManyRequests {
		d.ls.Warn(fmt.Sprintf("rate limited %s %s", r.Method, route), nil)
		if d.mets != nil {
			d.mets.IncLimitViolation("rate")
		}
	}

	if _, err := c.Response().Flush(w); err != nil {
		d.ls.Error(fmt.Sprintf("failed flushing response for %s %s", r.Method, route), &logger.LogContext{Error: err, Request: r})
	}

	d.observe(r.Method, route, status, start)
}

func (d *Dispatcher) observe(method, route string, status int, start time.Time) {
	if d.mets == nil {
		return
	}

	d.mets.ObserveRequest(method, route, status, time.Since(start))
}

// A chainFault captures a panic escaping a handler chain.
type chainFault struct {
	val   any
	stack []byte
}

func (f chainFault) faulted() bool { return f.val != nil }

// runChain executes the matched chain, converting a panic into a fault on
// done. The reporting path is itself guarded so a second panic cannot
// escape the goroutine and take the process down.
func runChain(c *web.Context, match *router.Match, done chan<- chainFault) {
	defer func() {
		if rec := recover(); rec != nil {
			defer func() { recover() }()
			done <- chainFault{val: rec, stack: debug.Stack()}
		}
	}()

	match.Handle(c)
	done <- chainFault{}
}
