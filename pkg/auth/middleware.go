package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mssp-soc/portal-gateway/pkg/access"
)

// actorContextKey is where the middleware stores the request actor
const actorContextKey = "portal_actor"

// JWTMiddleware validates the bearer token and stores the resulting actor in
// the echo context.
func JWTMiddleware(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header.Get(echo.HeaderAuthorization)
			if h == "" || !strings.HasPrefix(h, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing bearer token"})
			}
			claims, err := svc.ParseToken(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
			}
			c.Set(actorContextKey, ActorFromClaims(claims))
			return next(c)
		}
	}
}

// ActorFromContext returns the request actor stored by JWTMiddleware
func ActorFromContext(c echo.Context) (access.Actor, bool) {
	actor, ok := c.Get(actorContextKey).(access.Actor)
	return actor, ok
}

// SetActor stores an actor on the context; used by handler tests
func SetActor(c echo.Context, actor access.Actor) {
	c.Set(actorContextKey, actor)
}

// RequireSOC rejects non-SOC actors
func RequireSOC(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}
		if !actor.IsSOC() {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "SOC staff only"})
		}
		return next(c)
	}
}

// RequireIncidentEditor rejects roles that may only view incidents
func RequireIncidentEditor(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}
		if !actor.Role.CanEditIncidents() {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "Read-only role"})
		}
		return next(c)
	}
}
