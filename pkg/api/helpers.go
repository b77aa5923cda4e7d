package api

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP resolves the caller's address, preferring proxy headers:
// first X-Forwarded-For entry, then X-Real-IP, then RemoteAddr with the
// port removed.
func GetClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// GetUserAgent returns the request's User-Agent header.
func GetUserAgent(r *http.Request) string {
	return r.UserAgent()
}

// GetReferrer returns the request's Referer header.
func GetReferrer(r *http.Request) string {
	return r.Header.Get("Referer")
}
