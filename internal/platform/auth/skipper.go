package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists route paths reachable without a session token.
var publicPaths = map[string]bool{
	"/health":          true,
	"/api/v1/sessions": true,
}

// AuthSkipper returns true for requests whose route should skip
// authentication. Only creating a session is public; ending one needs its
// token.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()] && c.Request().Method != "DELETE"
}

// IsPublicPath reports whether the given route path is public.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
