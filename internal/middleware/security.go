package middleware

import (
	"net/http"
)

// SecurityHeaders adds security headers to HTTP responses
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Referrer policy
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Content Security Policy
		// The service only answers JSON and websocket upgrades
		w.Header().Set("Content-Security-Policy",
			"default-src 'none'; "+
				"connect-src 'self' ws: wss:; "+
				"frame-ancestors 'none'")

		// Calls need the microphone and camera of the embedding page
		w.Header().Set("Permissions-Policy", "camera=(self), microphone=(self), geolocation=()")

		next.ServeHTTP(w, r)
	})
}
