// Package network provides request-origin helpers for the access log.
package network

import (
	"net"
	"net/http"
	"strings"
)

// maxUserAgent bounds the user agent stored with each share access.
const maxUserAgent = 512

// ClientIP extracts the client IP address from the request. Forwarding
// headers (X-Forwarded-For, then X-Real-IP) are honored only when
// trustProxy is set; otherwise a client could write any address into the
// access log.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// UserAgent returns the request's user agent, truncated for storage.
func UserAgent(r *http.Request) string {
	ua := r.UserAgent()
	if len(ua) > maxUserAgent {
		ua = ua[:maxUserAgent]
	}
	return ua
}
