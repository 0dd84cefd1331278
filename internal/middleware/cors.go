// Package middleware provides HTTP middleware for the widget API. The
// widget is embedded on third-party pages, so cross-origin requests are the
// normal case, not the exception.
package middleware

import "net/http"

// The widget API surface is session CRUD plus message, form and refresh
// posts; PUT and PATCH are not served.
const (
	allowMethods = "GET, POST, DELETE, OPTIONS"
	allowHeaders = "Content-Type"
)

// CORS returns middleware that answers preflights and stamps the allow
// headers for the configured embedding origins.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if originAllowed(allowedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", allowMethods)
				w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
				w.Header().Set("Access-Control-Max-Age", "600")
				// Only allow credentials for explicit origins. Setting
				// Allow-Credentials on a wildcard-echoed origin enables CSRF.
				if explicitOrigin(allowedOrigins, origin) {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origins []string, origin string) bool {
	for _, o := range origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func explicitOrigin(origins []string, origin string) bool {
	for _, o := range origins {
		if o != "*" && o == origin {
			return true
		}
	}
	return false
}
