/*
Package server runs a route table as a web server with a protective
envelope around every request.

# Server

The main entrypoint to package server is the [Server] type.
A [Server] ought to be constructed with [New] around a [router.Table],
tuning defaults with the ServerOptFns as needed.

[*Server.Run] freezes the table and serves requests until [*Server.Shutdown]
drains it; [*Server.Serve] wraps both and stops on the usual termination
signals, suiting an application's main. By default, the web server listens
on [DefaultPort] (:3000), assuming either a reverse proxy proxies requests
or only a client application makes direct requests to it.

A [Server] moves one way through its lifecycle: Idle to Listening to
Draining to Stopped. Misordered calls, say Run twice or Shutdown before
Run, report [switchback.ErrInvalidState] and change nothing.

Every request passing through the [Dispatcher] gets the same envelope:
the body is read up front and refused with 413 over the cap, the chain
runs under the request timeout and answers 504 when it blows past it, a
panicking handler is isolated into a 500 without touching other requests,
and exactly one buffered response is flushed to the wire whatever happens.
[Dispatcher] is itself an http.Handler for embedding in another server.

# Configuration

A developer configures the web server through environment variables
and the ServerOptFns passed to [New]; an option overwrites the matching
environment-derived value.

Environment variables ought to be set in a file called ".env"
found at the same directory the application is executed from.

Here are the available environment variables.
  - ENVIRONMENT: the environment the application is running in; cf. [switchback.Environment]
  - HOST: the host the application is running on
  - PORT: the port the application should listen on; default: :3000
  - REQUEST_TIMEOUT: the timeout - as understood by [time.ParseDuration] - for a handler chain to finish before the client receives 504; default: 30s
  - SERVER_IDLE_TIMEOUT: the timeout - as understood by [time.ParseDuration] - for idling between requests when using keep-alives; default: 120s
  - SERVER_MAX_BODY_BYTES: the cap on request body size in bytes; over it the client receives 413; default: 1048576
  - SERVER_MAX_CONNECTIONS: the cap on concurrently accepted connections; default: 100
  - SERVER_MAX_HEADER_BYTES: the cap on request header size in bytes; over it the client receives 431; default: 32768
  - SERVER_READ_TIMEOUT: the timeout - as understood by [time.ParseDuration] - for reading HTTP requests; default: 5s
  - SERVER_SHUTDOWN_GRACE: the window - as understood by [time.ParseDuration] - in-flight requests get to finish during shutdown; default: 5s
*/
package server
