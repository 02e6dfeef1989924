package reservation

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"itemreserve/model"
	resrepo "itemreserve/repository/reservation"
	ressvc "itemreserve/service/reservation"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc ressvc.Service
	V   *validator.Validate
	Log *slog.Logger
	Loc *time.Location
}

func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == model.RoleAdmin
}

// POST /v1/reservations
func (h *Controller) Create(c echo.Context) error {
	var req CreateReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "start must be RFC3339"})
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "end must be RFC3339"})
	}
	uid, _ := c.Get("user_id").(int64)

	res, err := h.Svc.Create(c.Request().Context(), uid, req.ItemID, start, end, req.Notes)
	if err != nil {
		switch ressvc.Code(err) {
		case ressvc.ErrValidation:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
		case ressvc.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{
				"message":    err.Error(),
				"blocked_by": ressvc.BlockedBy(err),
			})
		case ressvc.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "item not found"})
		default:
			h.Log.Error("reservation create", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}

	return c.JSON(http.StatusCreated, toResp(res, h.Loc))
}

// GET /v1/reservations
func (h *Controller) List(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)

	f := resrepo.Filter{
		Status: model.ReservationStatus(c.QueryParam("status")),
	}
	if v := c.QueryParam("item_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid item_id"})
		}
		f.ItemID = id
	}
	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid user_id"})
		}
		f.UserID = id
	}
	// Non-admins only see their own reservations.
	if !isAdmin(c) {
		f.UserID = uid
	}

	list, err := h.Svc.List(c.Request().Context(), f)
	if err != nil {
		h.Log.Error("reservation list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	out := make([]Resp, 0, len(list))
	for i := range list {
		out = append(out, toResp(&list[i], h.Loc))
	}
	return c.JSON(http.StatusOK, echo.Map{"data": out})
}

// GET /v1/reservations/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	res, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		if ressvc.Code(err) == ressvc.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "reservation not found"})
		}
		h.Log.Error("reservation detail", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	uid, _ := c.Get("user_id").(int64)
	if !isAdmin(c) && res.UserID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	return c.JSON(http.StatusOK, toResp(res, h.Loc))
}

// POST /v1/reservations/:id/cancel
func (h *Controller) Cancel(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, _ := c.Get("user_id").(int64)

	if err := h.Svc.Cancel(c.Request().Context(), id, uid, isAdmin(c)); err != nil {
		switch ressvc.Code(err) {
		case ressvc.ErrPermission:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		case ressvc.ErrInvalidState:
			return c.JSON(http.StatusConflict, echo.Map{"message": err.Error()})
		case ressvc.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "reservation not found"})
		case ressvc.ErrLostRace:
			return c.JSON(http.StatusConflict, echo.Map{"message": "try again"})
		default:
			h.Log.Error("reservation cancel", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "cancelled"})
}

// POST /v1/reservations/:id/consume
func (h *Controller) Consume(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req struct {
		UsageLocation string `json:"usage_location" validate:"max=255"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	uid, _ := c.Get("user_id").(int64)

	rec, err := h.Svc.Consume(c.Request().Context(), id, uid, req.UsageLocation)
	if err != nil {
		switch ressvc.Code(err) {
		case ressvc.ErrPermission:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		case ressvc.ErrInvalidState:
			return c.JSON(http.StatusConflict, echo.Map{"message": err.Error()})
		case ressvc.ErrItemUnavailable:
			return c.JSON(http.StatusConflict, echo.Map{"message": err.Error()})
		case ressvc.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "reservation not found"})
		case ressvc.ErrLostRace:
			return c.JSON(http.StatusConflict, echo.Map{"message": "try again"})
		default:
			h.Log.Error("reservation consume", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"record": rec})
}
