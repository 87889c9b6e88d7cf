// Package httpmw holds the middleware shared by the public listener.
//
// httpserver.NewHandler composes them outermost first: security headers,
// panic recovery, request id, tracing, metrics, request-scoped logger,
// access log and body limits, then the chi router. Query strings and
// user agents stay out of logs.
package httpmw
