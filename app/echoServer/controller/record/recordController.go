package record

import (
	"log/slog"
	"net/http"
	"strconv"

	"itemreserve/model"
	recordrepo "itemreserve/repository/record"
	recsvc "itemreserve/service/record"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc recsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

func isAdmin(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == model.RoleAdmin
}

// POST /v1/records
func (h *Controller) Begin(c echo.Context) error {
	var req BeginRecordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}
	uid, _ := c.Get("user_id").(int64)

	rec, err := h.Svc.Begin(c.Request().Context(), uid, req.ItemID, req.UsageLocation)
	if err != nil {
		switch recsvc.Code(err) {
		case recsvc.ErrItemUnavailable:
			return c.JSON(http.StatusConflict, echo.Map{"message": err.Error()})
		case recsvc.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "item not found"})
		case recsvc.ErrLostRace:
			return c.JSON(http.StatusConflict, echo.Map{"message": "try again"})
		default:
			h.Log.Error("record begin", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, rec)
}

// POST /v1/records/:id/return
func (h *Controller) Return(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	uid, _ := c.Get("user_id").(int64)

	if err := h.Svc.End(c.Request().Context(), id, uid, isAdmin(c)); err != nil {
		switch recsvc.Code(err) {
		case recsvc.ErrPermission:
			return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
		case recsvc.ErrAlreadyReturned:
			return c.JSON(http.StatusConflict, echo.Map{"message": "item already returned"})
		case recsvc.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "record not found"})
		case recsvc.ErrLostRace:
			return c.JSON(http.StatusConflict, echo.Map{"message": "try again"})
		default:
			h.Log.Error("record return", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "returned"})
}

// GET /v1/records/my
func (h *Controller) My(c echo.Context) error {
	uid, _ := c.Get("user_id").(int64)
	f := filterFromQuery(c)
	f.UserID = uid
	f.Username = ""

	rows, total, err := h.Svc.List(c.Request().Context(), f)
	if err != nil {
		h.Log.Error("record history", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows, "total": total})
}

// GET /v1/records  (admin)
func (h *Controller) All(c echo.Context) error {
	if !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}
	rows, total, err := h.Svc.List(c.Request().Context(), filterFromQuery(c))
	if err != nil {
		h.Log.Error("record list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows, "total": total})
}

func filterFromQuery(c echo.Context) recordrepo.Filter {
	f := recordrepo.Filter{
		Status:   model.RecordStatus(c.QueryParam("status")),
		Username: c.QueryParam("username"),
		ItemName: c.QueryParam("item_name"),
		Page:     1,
		PerPage:  10,
	}
	if v, err := strconv.ParseInt(c.QueryParam("item_id"), 10, 64); err == nil && v > 0 {
		f.ItemID = v
	}
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		f.Page = v
	}
	if v, err := strconv.Atoi(c.QueryParam("per_page")); err == nil && v > 0 && v <= 100 {
		f.PerPage = v
	}
	return f
}
