// Package generatehttp serves POST /api/generate-image.
//
// A request is admitted by the rate limiter, validated, forwarded to the
// image generator with the configured prefix, and answered with a
// GenerationResult. Provider failures are classified by message into a
// status and a fixed user-facing message. The handler never retries.
package generatehttp
