// Package genclient calls POST /api/generate-image and retries rate limited,
// server side and transport failures with exponential backoff.
//
// One Client runs one generation at a time: a second Generate while the
// first is pending fails with ErrInFlight instead of queueing.
package genclient
