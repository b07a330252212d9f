package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SlogLogger пишет access log через slog
func SlogLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(
		middleware.RequestLoggerConfig{
			LogStatus:   true,
			LogURI:      true,
			LogMethod:   true,
			LogError:    true,
			LogLatency:  true,
			LogRemoteIP: true,
			HandleError: true,

			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				level := slog.LevelInfo
				if v.Error != nil || v.Status >= http.StatusInternalServerError {
					level = slog.LevelError
				} else if v.Status >= http.StatusBadRequest {
					level = slog.LevelWarn
				}

				attrs := []slog.Attr{
					slog.Int("status", v.Status),
					slog.String("uri", v.URI),
					slog.String("method", v.Method),
					slog.Duration("latency", v.Latency),
					slog.String("remote_ip", v.RemoteIP),
				}
				if v.Error != nil {
					attrs = append(attrs, slog.String("error", v.Error.Error()))
				}

				slog.LogAttrs(c.Request().Context(), level, "HTTP request", attrs...)

				return nil
			},
		},
	)
}
