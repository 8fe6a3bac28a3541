package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const requestIDContextKey = "request_id"

// RequestIDMiddleware tags each request with a unique ID, reusing the
// caller's X-Request-ID header when present. The ID is echoed back on the
// response and made available to handlers for log correlation.
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)
			c.Set(requestIDContextKey, rid)
			return next(c)
		}
	}
}

func requestID(c echo.Context) string {
	rid, _ := c.Get(requestIDContextKey).(string)
	return rid
}
