package server_test

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
	"github.com/xy-planning-network/switchback"
	"github.com/xy-planning-network/switchback/http/middleware"
	"github.com/xy-planning-network/switchback/http/router"
	"github.com/xy-planning-network/switchback/http/web"
	"github.com/xy-planning-network/switchback/logger"
	"github.com/xy-planning-network/switchback/metrics"
	"github.com/xy-planning-network/switchback/server"
)

func testLogger(buf *bytes.Buffer) logger.Logger {
	color.NoColor = true
	return logger.NewLogger(
		logger.WithLevel(logger.LogLevelDebug),
		logger.WithLogger(log.New(buf, "", 0)),
	)
}

func TestDispatcherServesRoute(t *testing.T) {
	// Arrange
	tbl := router.NewTable()
	tbl.GET("/users/:id", func(c *web.Context) {
		_ = c.Response().Status(http.StatusOK).JSON(map[string]string{"id": c.Param("id")})
	})

	d := server.NewDispatcher(tbl, server.DispatcherConfig{Logger: testLogger(new(bytes.Buffer))})
	w := httptest.NewRecorder()

	// Act
	d.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/42", nil))

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.JSONEq(t, `{"id":"42"}`, w.Body.String())
}

func TestDispatcherDeliversBodyIntact(t *testing.T) {
	// Arrange
	tbl := router.NewTable()
	tbl.POST("/echo", func(c *web.Context) {
		b, err := c.Body()
		if err != nil {
			c.Response().Status(http.StatusInternalServerError).Text(err.Error())
			return
		}

		c.Response().Status(http.StatusOK).Bytes("application/octet-stream", b)
	})

	d := server.NewDispatcher(tbl, server.DispatcherConfig{
		Logger:       testLogger(new(bytes.Buffer)),
		MaxBodyBytes: 64,
	})

	payload := strings.Repeat("a", 64)
	w := httptest.NewRecorder()

	// Act
	d.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(payload)))

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, payload, w.Body.String())
}

func TestDispatcherBodyCap(t *testing.T) {
	// Arrange
	var ran atomic.Bool
	tbl := router.NewTable()
	tbl.POST("/upload", func(c *web.Context) {
		ran.Store(true)
		c.Response().Text("accepted")
	})

	d := server.NewDispatcher(tbl, server.DispatcherConfig{
		Logger:       testLogger(new(bytes.Buffer)),
		MaxBodyBytes: 16,
	})

	t.Run("Declared-Over-Cap", func(t *testing.T) {
		w := httptest.NewRecorder()

		// Act
		d.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("b", 17))))

		// Assert
		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		require.Contains(t, w.Body.String(), `"status":413`)
		require.False(t, ran.Load())
	})

	t.Run("Undeclared-Over-Cap", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(strings.Repeat("b", 17)))
		r.ContentLength = -1
		w := httptest.NewRecorder()

		// Act
		d.ServeHTTP(w, r)

		// Assert
		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		require.False(t, ran.Load())
	})

	t.Run("Under-Cap", func(t *testing.T) {
		w := httptest.NewRecorder()

		// Act
		d.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("small")))

		// Assert
		require.Equal(t, http.StatusOK, w.Code)
		require.True(t, ran.Load())
	})
}

func TestDispatcherNotFound(t *testing.T) {
	// Arrange
	tbl := router.NewTable()
	tbl.GET("/users", func(c *web.Context) { c.Response().Text("users") })

	d := server.NewDispatcher(tbl, server.DispatcherConfig{Logger: testLogger(new(bytes.Buffer))})
	w := httptest.NewRecorder()

	// Act
	d.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	// Assert
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.Contains(t, w.Body.String(), `"status":404`)
}

func TestDispatcherMethodNotAllowed(t *testing.T) {
	// Arrange
	tbl := router.NewTable()
	tbl.GET("/things/:id", func(c *web.Context) { c.Response().Text("got") })
	tbl.PUT("/things/:id", func(c *web.Context) { c.Response().Text("put") })

	d := server.NewDispatcher(tbl, server.DispatcherConfig{Logger: testLogger(new(bytes.Buffer))})
	w := httptest.NewRecorder()

	// Act
	d.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/things/9", nil))

	// Assert
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	require.Equal(t, "GET, PUT", w.Header().Get("Allow"))
	require.Contains(t, w.Body.String(), `"status":405`)
}

func TestDispatcherFaultIsolation(t *testing.T) {
	// Arrange
	buf := new(bytes.Buffer)
	tbl := router.NewTable()
	tbl.GET("/boom", func(c *web.Context) {
		c.Response().Status(http.StatusOK).Text("partial")
		panic("kaboom")
	})
	tbl.GET("/ok", func(c *web.Context) { c.Response().Text("fine") })

	d := server.NewDispatcher(tbl, server.DispatcherConfig{Logger: testLogger(buf)})
	w := httptest.NewRecorder()

	// Act
	d.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	// Assert
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"error":"Internal Server Error","status":500}`, w.Body.String())
	require.NotContains(t, w.Body.String(), "partial")
	require.Contains(t, buf.String(), "panic handling GET /boom")
	require.Contains(t, buf.String(), "kaboom")

	// the panic cannot poison later requests
	w = httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "fine", w.Body.String())
}

func TestDispatcherTimeout(t *testing.T) {
	// Arrange
	finished := make(chan struct{})
	tbl := router.NewTable()
	tbl.GET("/slow", func(c *web.Context) {
		<-c.Context().Done()
		c.Response().Status(http.StatusOK).Text("too late")
		close(finished)
	})

	d := server.NewDispatcher(tbl, server.DispatcherConfig{
		Logger:         testLogger(new(bytes.Buffer)),
		RequestTimeout: 25 * time.Millisecond,
	})
	w := httptest.NewRecorder()

	// Act
	d.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))

	// Assert
	require.Equal(t, http.StatusGatewayTimeout, w.Code)
	require.JSONEq(t, `{"error":"Gateway Timeout","status":504}`, w.Body.String())

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("handler never observed cancellation")
	}

	// the late write went to the abandoned buffer, not the wire
	require.Equal(t, http.StatusGatewayTimeout, w.Code)
	require.NotContains(t, w.Body.String(), "too late")
}

func TestDispatcherHonorsFirstBodyWrite(t *testing.T) {
	// Arrange
	buf := new(bytes.Buffer)
	tbl := router.NewTable()
	tbl.GET("/multi", func(c *web.Context) {
		c.Response().Status(http.StatusOK).Text("first")
		c.Response().Text("second")
		_ = c.Response().JSON(map[string]string{"third": "write"})
	})

	d := server.NewDispatcher(tbl, server.DispatcherConfig{Logger: testLogger(buf)})
	w := httptest.NewRecorder()

	// Act
	d.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/multi", nil))

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "first", w.Body.String())
	require.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	require.Contains(t, buf.String(), "ignored 2 extra body writes")
}

func TestDispatcherInFlight(t *testing.T) {
	// Arrange
	entered := make(chan struct{})
	release := make(chan struct{})
	tbl := router.NewTable()
	tbl.GET("/block", func(c *web.Context) {
		close(entered)
		<-release
		c.Response().Text("done")
	})

	d := server.NewDispatcher(tbl, server.DispatcherConfig{Logger: testLogger(new(bytes.Buffer))})
	require.EqualValues(t, 0, d.InFlight())

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/block", nil))
	}()

	// Act + Assert
	<-entered
	require.EqualValues(t, 1, d.InFlight())

	close(release)
	<-done
	require.EqualValues(t, 0, d.InFlight())
}

func TestDispatcherCustomErrorHandler(t *testing.T) {
	// Arrange
	var got error
	tbl := router.NewTable()
	tbl.GET("/users", func(c *web.Context) { c.Response().Text("users") })

	d := server.NewDispatcher(tbl, server.DispatcherConfig{
		Logger: testLogger(new(bytes.Buffer)),
		ErrorHandler: func(c *web.Context, status int, err error) {
			got = err
			c.Response().Status(status).Text("custom: " + http.StatusText(status))
		},
	})
	w := httptest.NewRecorder()

	// Act
	d.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	// Assert
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "custom: Not Found", w.Body.String())
	require.ErrorIs(t, got, switchback.ErrNotFound)
}

func TestDispatcherMetrics(t *testing.T) {
	// Arrange
	m := metrics.New()
	finished := make(chan struct{})
	tbl := router.NewTable()
	tbl.GET("/users/:id", func(c *web.Context) {
		_ = c.Response().JSON(map[string]string{"id": c.Param("id")})
	})
	tbl.POST("/upload", func(c *web.Context) { c.Response().Text("accepted") })
	tbl.GET("/boom", func(c *web.Context) { panic("kaboom") })
	tbl.GET("/slow", func(c *web.Context) {
		<-c.Context().Done()
		close(finished)
	})
	tbl.GET("/limited", func(c *web.Context) { c.Response().Text("ok") },
		middleware.RateLimit(middleware.NewVisitors()))

	d := server.NewDispatcher(tbl, server.DispatcherConfig{
		Logger:         testLogger(new(bytes.Buffer)),
		Metrics:        m,
		MaxBodyBytes:   8,
		RequestTimeout: 25 * time.Millisecond,
	})

	// Act
	d.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/1", nil))
	d.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("way past the cap")))
	d.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	d.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	d.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", nil))
	<-finished

	// 30 back-to-back requests blow through the limiter's burst of 20.
	for i := 0; i < 30; i++ {
		d.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/limited", nil))
	}

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// Assert
	body := w.Body.String()
	require.Contains(t, body, `http_requests_total{method="GET",route="/users/:id",status="200"} 1`)
	require.Contains(t, body, `http_requests_total{method="POST",route="unrouted",status="413"} 1`)
	require.Contains(t, body, `http_requests_total{method="GET",route="unrouted",status="404"} 1`)
	require.Contains(t, body, `http_requests_total{method="GET",route="/limited",status="429"}`)
	require.Contains(t, body, `http_limit_violations_total{kind="body"} 1`)
	require.Contains(t, body, `http_limit_violations_total{kind="rate"}`)
	require.Contains(t, body, "http_handler_faults_total 1")
	require.Contains(t, body, "http_request_timeouts_total 1")
	require.Contains(t, body, "http_requests_in_flight 0")
}
