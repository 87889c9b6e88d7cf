package httpmw

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSOptions selects the allowed origin for API routes
type CORSOptions struct {
	// Production restricts the allowed origin to Origin; otherwise any origin is allowed
	Production bool
	Origin     string
	MaxAge     int
}

// CORS allows cross-origin POSTs with a JSON body and answers preflights.
func CORS(o CORSOptions) func(http.Handler) http.Handler {
	origins := []string{"*"}
	if o.Production {
		origins = []string{o.Origin}
	}
	maxAge := o.MaxAge
	if maxAge == 0 {
		maxAge = 300
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Retry-After", DefaultRequestIDHeader},
		MaxAge:         maxAge,
	})
}
