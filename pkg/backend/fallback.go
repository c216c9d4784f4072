package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Fallback decides when a failed request is replaced by a demo result.
type Fallback string

const (
	// FallbackNever always reports the error.
	FallbackNever Fallback = "never"
	// FallbackLocal falls back only when a local backend is unreachable.
	FallbackLocal Fallback = "local"
	// FallbackAlways falls back on any error.
	FallbackAlways Fallback = "always"
)

func ParseFallback(s string) (Fallback, error) {
	switch f := Fallback(strings.ToLower(strings.TrimSpace(s))); f {
	case FallbackNever, FallbackLocal, FallbackAlways:
		return f, nil
	}
	return "", fmt.Errorf("backend: unknown fallback policy %q", s)
}

// Applies reports whether err, returned by a request to baseURL, must be
// replaced by a demo result. Cancelled requests never fall back.
func (f Fallback) Applies(baseURL string, err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	switch f {
	case FallbackAlways:
		return true
	case FallbackLocal:
		if !IsLocalURL(baseURL) {
			return false
		}
		var tErr *TransportError
		return errors.As(err, &tErr) && tErr.Unreachable()
	default:
		return false
	}
}

// IsLocalURL reports whether the host of the address is a loopback address
// or a localhost name.
func IsLocalURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsUnspecified()
}
