package middleware

import (
	"net/http"
	"path"
	"strings"
)

// BodyLimitOverride raises or lowers the limit for matching requests.
// Pattern uses path.Match syntax against the path without the /api prefix.
type BodyLimitOverride struct {
	Method   string
	Pattern  string
	MaxBytes int64
}

func (o BodyLimitOverride) matches(r *http.Request) bool {
	if o.Pattern == "" || o.MaxBytes <= 0 {
		return false
	}
	if o.Method != "" && o.Method != r.Method {
		return false
	}
	apiPath := strings.TrimPrefix(r.URL.Path, "/api")
	ok, err := path.Match(o.Pattern, apiPath)
	return err == nil && ok
}

func LimitBodyBytesWithOverrides(defaultMax int64, overrides []BodyLimitOverride) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			maxBytes := defaultMax
			for _, override := range overrides {
				if override.matches(r) {
					maxBytes = override.MaxBytes
					break
				}
			}
			if maxBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
