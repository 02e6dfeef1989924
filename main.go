// Package main itemreserve API.
//
// @title           itemreserve API
// @version         1.0
// @description     asset reservation service (items, reservations, usage records).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"itemreserve/app/echoServer"
	adminctrl "itemreserve/app/echoServer/controller/admin"
	authctrl "itemreserve/app/echoServer/controller/auth"
	itemctrl "itemreserve/app/echoServer/controller/item"
	recordctrl "itemreserve/app/echoServer/controller/record"
	resctrl "itemreserve/app/echoServer/controller/reservation"
	spacectrl "itemreserve/app/echoServer/controller/space"
	"itemreserve/app/echoServer/validation"
	"itemreserve/config"
	"itemreserve/notifier"
	authrepo "itemreserve/repository/auth"
	itemrepo "itemreserve/repository/item"
	recordrepo "itemreserve/repository/record"
	resrepo "itemreserve/repository/reservation"
	spacerepo "itemreserve/repository/space"
	authsvc "itemreserve/service/auth"
	itemsvc "itemreserve/service/item"
	recsvc "itemreserve/service/record"
	ressvc "itemreserve/service/reservation"
	"itemreserve/util/clockx"
	"itemreserve/util/database"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	loc, err := time.LoadLocation(cfg.LocalTZ)
	if err != nil {
		log.Error("bad LOCAL_TZ", "tz", cfg.LocalTZ, "err", err)
		os.Exit(1)
	}

	clock := clockx.System()

	// notifier: slog always; AMQP and webhook when configured
	transports := notifier.Fanout{notifier.NewLog(log)}
	if cfg.AMQPURL != "" {
		nq, err := notifier.NewAMQP(cfg.AMQPURL, "", log)
		if err != nil {
			log.Error("amqp connect failed", "err", err)
			os.Exit(1)
		}
		defer nq.Close()
		transports = append(transports, nq)
	}
	if cfg.NotifyWebhookURL != "" {
		transports = append(transports, notifier.NewWebhook(cfg.NotifyWebhookURL, log))
	}

	// repos
	ar := authrepo.New(db)
	ir := itemrepo.New(db)
	rr := resrepo.New(db)
	cr := recordrepo.New(db)
	sr := spacerepo.New(db)

	pol := ressvc.Policy{
		MaxSpan:       time.Duration(cfg.MaxSpanDays) * 24 * time.Hour,
		OverduePickup: time.Duration(cfg.OverduePickupHours) * time.Hour,
		ReminderFrom:  time.Duration(cfg.ReminderLeadFromH) * time.Hour,
		ReminderTo:    time.Duration(cfg.ReminderLeadToH) * time.Hour,
	}

	// services
	as := authsvc.New(ar, cfg.JWTSecret)
	is := itemsvc.New(ir, sr)
	rs := ressvc.New(db, rr, ir, cr, sr, clock, pol)
	cs := recsvc.New(db, cr, ir, rr, sr, clock, transports,
		time.Duration(cfg.RecordOverdueDays)*24*time.Hour)

	sweeper := ressvc.NewSweeper(db, rr, ir, cr, clock, transports, pol, log)
	scheduler := ressvc.NewScheduler(sweeper, cs, cfg.SweepInterval, cfg.OverdueSweepInterval, log)
	scheduler.Start()
	defer scheduler.Stop()

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	itemC := &itemctrl.Controller{Svc: is, V: v, Log: log}
	resC := &resctrl.Controller{Svc: rs, V: v, Log: log, Loc: loc}
	recC := &recordctrl.Controller{Svc: cs, V: v, Log: log}
	spaceC := &spacectrl.Controller{Repo: sr, Log: log}
	adminC := &adminctrl.Controller{Sweeper: sweeper, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:        authC,
		Item:        itemC,
		Reservation: resC,
		Record:      recC,
		Space:       spaceC,
		Admin:       adminC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	go func() {
		if err := e.Start(":" + port); err != nil {
			log.Info("server stopped", "err", err)
		}
	}()
	log.Info("starting server", "port", port, "env", cfg.Env)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "err", err)
	}
}
