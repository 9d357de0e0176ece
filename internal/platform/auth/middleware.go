package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	SessionIDKey contextKey = "session_id"
	TokenIDKey   contextKey = "token_id"
)

// Config configures SessionMiddleware.
type Config struct {
	Issuer  *Issuer
	Revoked *TokenRevocationStore
	// Skipper bypasses authentication for matching requests.
	Skipper func(c echo.Context) bool
}

// BearerToken extracts the token from an Authorization header, or from the
// token query parameter for websocket upgrades that cannot set headers.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if tok := r.URL.Query().Get("token"); tok != "" {
			return tok, true
		}
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// SessionMiddleware authenticates the portal session token and stores the
// session id on both the echo context and the request context.
func SessionMiddleware(cfg Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			tokenStr, ok := BearerToken(c.Request())
			if !ok {
				if c.Request().Header.Get("Authorization") == "" {
					return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := cfg.Issuer.Parse(tokenStr)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if cfg.Revoked != nil && cfg.Revoked.IsRevoked(claims.ID) {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has been revoked")
			}

			c.Set("session_id", claims.SessionID())
			c.Set("token_claims", claims)

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, SessionIDKey, claims.SessionID())
			ctx = context.WithValue(ctx, TokenIDKey, claims.ID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

func SessionIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(SessionIDKey).(string)
	return sid
}

// ClaimsFromEcho returns the claims stored by SessionMiddleware.
func ClaimsFromEcho(c echo.Context) *Claims {
	claims, _ := c.Get("token_claims").(*Claims)
	return claims
}
