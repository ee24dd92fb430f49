package middleware

import (
	"github.com/labstack/echo/v4"

	"stockchat-proxy/internal/cors"
)

// CORS stamps the policy's headers on every response before the handler
// runs, so router and limiter errors carry them too. Preflight handling is
// left to the route.
func CORS(policy *cors.Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			policy.Apply(c.Response().Header(), c.Request().Header.Get(echo.HeaderOrigin))
			return next(c)
		}
	}
}
