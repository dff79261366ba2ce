package middleware_test

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xy-planning-network/switchback/http/middleware"
)

func TestVisitorFetch(t *testing.T) {
	t.Run("Serial", func(t *testing.T) {
		// Arrange
		vs := middleware.NewVisitors()

		// Act
		v1 := vs.Fetch("127.0.0.1")
		time.Sleep(1 * time.Millisecond)
		v2 := vs.Fetch("127.0.0.1")

		// Assert
		require.Equal(t, v1.Limiter, v2.Limiter)
		require.True(t, v1.LastSeen.Before(v2.LastSeen))

	})

	t.Run("Concurrent", func(t *testing.T) {
		// Arrange
		var wg sync.WaitGroup
		vs := middleware.NewVisitors()
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()

				// Act
				require.NotPanics(t, func() { vs.Fetch("127.0.0.1") })
			}()
		}

		wg.Wait()
	})
}

func TestRateLimit(t *testing.T) {
	// Arrange
	vs := middleware.NewVisitors()
	limit := middleware.RateLimit(vs)

	// Act, the first request sails through
	c := newTestContext(t, http.MethodGet, "/")
	c.Request().Header.Set("X-Forwarded-For", "1.1.1.1")
	limit(c)

	// Assert
	require.False(t, c.Aborted())

	// Act, hammering drains the bucket eventually
	var denied *struct{ status int }
	for i := 0; i < 40; i++ {
		c := newTestContext(t, http.MethodGet, "/")
		c.Request().Header.Set("X-Forwarded-For", "1.1.1.1")
		limit(c)
		if c.Aborted() {
			denied = &struct{ status int }{c.Response().StatusCode()}
			break
		}
	}

	// Assert
	require.NotNil(t, denied)
	require.Equal(t, http.StatusTooManyRequests, denied.status)

	// Act, another IP has its own bucket
	c = newTestContext(t, http.MethodGet, "/")
	c.Request().Header.Set("X-Forwarded-For", "8.8.8.8")
	limit(c)

	// Assert
	require.False(t, c.Aborted())
}
