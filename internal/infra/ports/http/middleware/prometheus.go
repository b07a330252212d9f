package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/RoomPoint/internal/application/metric"
)

// PrometheusMiddleware собирает метрики HTTP запросов
func PrometheusMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			// шаблон маршрута, а не сырой URI: /api/v1/rooms/:id
			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "unmatched"
			}

			statusCode := c.Response().Status
			if statusCode == 0 {
				statusCode = http.StatusOK
			}

			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					statusCode = he.Code
				} else if statusCode < http.StatusBadRequest {
					statusCode = http.StatusInternalServerError
				}
			}

			metric.RecordHTTPMetrics(c.Request().Method, endpoint, statusCode, time.Since(start))

			return err
		}
	}
}
