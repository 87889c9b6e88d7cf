// Package imagegen calls the image generation provider.
//
// GenAI wraps the google.golang.org/genai client for a single model and
// asks for text and image output. Throttled spaces calls out process-wide so
// bursts of users do not trip the provider's own quota.
package imagegen
