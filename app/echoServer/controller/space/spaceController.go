package space

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	spacerepo "itemreserve/repository/space"

	"github.com/labstack/echo/v4"
)

type Controller struct {
	Repo spacerepo.Repo
	Log  *slog.Logger
}

// GET /v1/spaces
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Repo.List(c.Request().Context())
	if err != nil {
		h.Log.Error("space list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/spaces/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	s, err := h.Repo.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "space not found"})
		}
		h.Log.Error("space detail", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	path, err := h.Repo.Path(c.Request().Context(), id)
	if err != nil {
		h.Log.Error("space path", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"space": s, "path": path})
}
