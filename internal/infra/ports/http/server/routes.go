package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/qrave1/RoomPoint/internal/application/config"
	"github.com/qrave1/RoomPoint/internal/infra/ports/http/handlers"
	"github.com/qrave1/RoomPoint/internal/infra/ports/http/middleware"
)

func New(
	cfg *config.Config,
	roomHandler *handlers.RoomHandler,
	wsHandler *handlers.WebSocketHandler,
) *echo.Echo {
	e := echo.New()

	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(middleware.SlogLogger())
	e.Use(middleware.PrometheusMiddleware())

	allowOrigins := []string{cfg.Domain}
	if cfg.Debug {
		allowOrigins = []string{"*"}
	}

	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{http.MethodGet},
	}))

	e.GET("/health", roomHandler.HealthHandler)

	api := e.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ws", wsHandler.Handle)

			v1.GET("/rooms/:id", roomHandler.GetRoomHandler)
			v1.GET("/rooms/:id/reveals", roomHandler.ListRevealsHandler)
		}
	}

	return e
}
