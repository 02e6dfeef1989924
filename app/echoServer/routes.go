package echoServer

import (
	"net/http"

	"itemreserve/app/echoServer/controller/admin"
	"itemreserve/app/echoServer/controller/auth"
	"itemreserve/app/echoServer/controller/item"
	"itemreserve/app/echoServer/controller/record"
	"itemreserve/app/echoServer/controller/reservation"
	"itemreserve/app/echoServer/controller/space"
	"itemreserve/app/echoServer/jwtx"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

type C struct {
	Auth        *auth.Controller
	Item        *item.Controller
	Reservation *reservation.Controller
	Record      *record.Controller
	Space       *space.Controller
	Admin       *admin.Controller

	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)

	// Auth
	authGroup := e.Group("/v1")
	authGroup.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(c.JWTSecret),

		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization",
	}))
	// user_id / role extraction
	authGroup.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			uid, err := jwtx.UserIDFromContext(ctx)
			if err != nil {
				return ctx.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
			}
			ctx.Set("user_id", uid)
			if role, err := jwtx.RoleFromContext(ctx); err == nil {
				ctx.Set("role", role)
			}
			return next(ctx)
		}
	})

	// Items
	authGroup.GET("/items", c.Item.List)
	authGroup.GET("/items/:id", c.Item.Detail)
	// Admin endpoints
	authGroup.POST("/items", c.Item.Create)
	authGroup.PUT("/items/:id", c.Item.Update)
	authGroup.DELETE("/items/:id", c.Item.Delete)

	// Spaces (read-only)
	authGroup.GET("/spaces", c.Space.List)
	authGroup.GET("/spaces/:id", c.Space.Detail)

	// Reservations
	authGroup.POST("/reservations", c.Reservation.Create)
	authGroup.GET("/reservations", c.Reservation.List)
	authGroup.GET("/reservations/:id", c.Reservation.Detail)
	authGroup.POST("/reservations/:id/cancel", c.Reservation.Cancel)
	authGroup.POST("/reservations/:id/consume", c.Reservation.Consume)

	// Usage records
	authGroup.POST("/records", c.Record.Begin)
	authGroup.POST("/records/:id/return", c.Record.Return)
	authGroup.GET("/records/my", c.Record.My)
	authGroup.GET("/records", c.Record.All)

	// Operational tooling
	authGroup.POST("/admin/reconcile", c.Admin.Reconcile)
}
