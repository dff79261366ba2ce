/*
Package web provides the per-request primitives handlers and middlewares work with:
a [Context] wrapping the inbound *http.Request and a buffered [Response].

A [Context] exposes read access to the parts of a request a handler cares about -
path params bound by routing, query params, headers, cookies, and a size-capped body -
alongside a small stash for middlewares to pass values downstream.
Aborting a Context stops any remaining middlewares and the handler from running.

A [Response] accumulates status, headers, cookies, and at most one body write.
Nothing touches the wire until the response is flushed,
so a response under construction can always be discarded,
as happens when a request times out.
*/
package web
