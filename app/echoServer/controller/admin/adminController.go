package admin

import (
	"log/slog"
	"net/http"

	"itemreserve/model"
	ressvc "itemreserve/service/reservation"

	"github.com/labstack/echo/v4"
)

type Controller struct {
	Sweeper *ressvc.Sweeper
	Log     *slog.Logger
}

// POST /v1/admin/reconcile  (admin)
//
// Manual trigger for a reconciliation pass, for operational tooling. The
// pass is idempotent, so overlapping with the scheduled sweep is harmless.
func (h *Controller) Reconcile(c echo.Context) error {
	role, _ := c.Get("role").(string)
	if role != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}

	stats := h.Sweeper.RunOnce(c.Request().Context())
	h.Log.Info("manual reconcile",
		"activated", stats.Activated,
		"conflicted", stats.Conflicted,
		"reactivated", stats.Reactivated,
		"expired", stats.Expired,
		"reminders", stats.Reminders,
		"errors", stats.Errors,
	)
	return c.JSON(http.StatusOK, stats)
}
