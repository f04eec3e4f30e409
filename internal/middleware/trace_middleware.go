package middleware

import (
	"welfareBot/business/recommendation"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const TraceIDHeader = echo.HeaderXRequestID

// TraceID reuses an incoming X-Request-ID or mints one, and exposes it to
// services through the request context.
func TraceID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tid := c.Request().Header.Get(TraceIDHeader)
			if tid == "" || len(tid) > 64 {
				tid = uuid.NewString()
			}

			ctx := recommendation.WithTraceID(c.Request().Context(), tid)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Response().Header().Set(TraceIDHeader, tid)
			c.Set("trace_id", tid)

			return next(c)
		}
	}
}
