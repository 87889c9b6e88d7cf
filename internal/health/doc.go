// Package health evaluates liveness and readiness probes at request time and
// serves them over HTTP.
//
// A Probe returns nil when healthy and an error carrying the reason
// otherwise. All combines probes; ShutdownGate fails readiness as soon as
// draining starts so load balancers stop routing before the listener closes.
package health
