package generatehttp

import (
	"net/http"
	"strings"
)

// Outcome categories, also the values of generation_results_total{category}
const (
	CategorySuccess     = "success"
	CategoryRateLimited = "rate_limited"
	CategoryValidation  = "validation"
	CategoryConfig      = "config"
	CategoryNoImage     = "no_image"
	CategoryCredential  = "credential"
	CategoryQuota       = "quota"
	CategorySafety      = "safety"
	CategoryTransient   = "transient"
	CategoryGeneric     = "generic"
)

// Classification is the response chosen for a failed provider call
type Classification struct {
	Category string
	Status   int
	Message  string
}

var rules = []struct {
	needles []string
	class   Classification
}{
	{[]string{"API_KEY"}, Classification{CategoryCredential, http.StatusInternalServerError, "Invalid API key configuration."}},
	{[]string{"quota", "limit"}, Classification{CategoryQuota, http.StatusTooManyRequests, "Usage limit exceeded. Please try again later."}},
	{[]string{"safety", "blocked"}, Classification{CategorySafety, http.StatusBadRequest, "This description is not allowed. Please use a different description."}},
	{[]string{"network", "timeout"}, Classification{CategoryTransient, http.StatusServiceUnavailable, "Connection problem. Please try again."}},
}

var generic = Classification{CategoryGeneric, http.StatusInternalServerError, "An error occurred while generating the image."}

// Classify matches err's message against the rule table in order; the first
// rule with any matching substring wins. Matching is case sensitive.
func Classify(err error) Classification {
	if err == nil {
		return generic
	}
	msg := err.Error()
	for _, r := range rules {
		for _, n := range r.needles {
			if strings.Contains(msg, n) {
				return r.class
			}
		}
	}
	return generic
}
