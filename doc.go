/*
Package switchback holds the shared vocabulary for an embeddable web server:
error sentinels wrapped by every subpackage, the [Environment] a server runs in
and the EnvVarOr* helpers for deriving configuration from it,
and the [Key] type for stashing values on a request as it moves through a middleware chain.

The subpackages do the actual serving:

  - http/router matches requests to handlers by pattern specificity
  - http/middleware defines the middleware chain and a stock set of middlewares
  - http/web carries per-request state and buffers the response under construction
  - server dispatches requests through a frozen route table inside a protective envelope
  - logger and metrics observe all of the above
*/
package switchback
