package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/qrave1/RoomPoint/internal/application/constant"
	"github.com/qrave1/RoomPoint/internal/infra/ports/http/dto"
	"github.com/qrave1/RoomPoint/internal/usecase"
)

const maxRevealsLimit = 200

type RoomHandler struct {
	roomUsecase usecase.RoomUsecase
}

func NewRoomHandler(roomUsecase usecase.RoomUsecase) *RoomHandler {
	return &RoomHandler{roomUsecase: roomUsecase}
}

func (h *RoomHandler) GetRoomHandler(c echo.Context) error {
	roomID := c.Param("id")

	snap, err := h.roomUsecase.Snapshot(roomID)
	if err != nil {
		if errors.Is(err, usecase.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "room not found"})
		}

		slog.Error("get room snapshot", slog.Any(constant.Error, err), slog.String(constant.RoomID, roomID))

		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to get room"})
	}

	return c.JSON(http.StatusOK, dto.NewRoomResponseFromSnapshot(snap))
}

func (h *RoomHandler) ListRevealsHandler(c echo.Context) error {
	roomID := c.Param("id")

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid limit"})
		}

		limit = min(n, maxRevealsLimit)
	}

	records, err := h.roomUsecase.Reveals(c.Request().Context(), roomID, limit)
	if err != nil {
		slog.Error("list reveals", slog.Any(constant.Error, err), slog.String(constant.RoomID, roomID))

		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to list reveals"})
	}

	return c.JSON(http.StatusOK, dto.NewListRevealsResponse(roomID, records))
}

func (h *RoomHandler) HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
