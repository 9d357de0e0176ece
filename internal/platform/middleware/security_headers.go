package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// HSTS sends Strict-Transport-Security. Only set it when the portal is
	// reached over TLS.
	HSTS bool

	// MediaPrefixes are path prefixes that serve uploaded files and
	// narration audio to the browser.
	MediaPrefixes []string
}

const (
	apiCSP   = "default-src 'none'; frame-ancestors 'none'"
	mediaCSP = "default-src 'none'; media-src 'self'; img-src 'self'; frame-ancestors 'none'; sandbox"
)

// SecurityHeaders returns middleware that sets security response headers.
// JSON responses get a deny-all policy; media downloads may be embedded by
// the portal client, so they are served cross-origin with a sandboxed
// policy.
func SecurityHeaders(opts SecurityOptions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if opts.HSTS {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			if isMedia(c.Request().URL.Path, opts.MediaPrefixes) {
				h.Set("Content-Security-Policy", mediaCSP)
				h.Set("Cross-Origin-Resource-Policy", "cross-origin")
				h.Set("Cache-Control", "private, no-store")
			} else {
				h.Set("Content-Security-Policy", apiCSP)
				h.Set("Cross-Origin-Resource-Policy", "same-site")
				h.Set("Cache-Control", "no-store")
			}

			return next(c)
		}
	}
}

func isMedia(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
