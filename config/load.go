package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func Load() App {
	// .env is for local dev only; absence is not an error.
	_ = godotenv.Load()

	cfg := App{
		Port:        getenv("APP_PORT", "8080"),
		DatabaseURL: must("DATABASE_URL"),
		JWTSecret:   getenv("JWT_SECRET", "local_dev_secret"),
		Env:         getenv("APP_ENV", "dev"),

		AMQPURL:          os.Getenv("AMQP_URL"),
		NotifyWebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
		LocalTZ:          getenv("LOCAL_TZ", "Asia/Shanghai"),

		MaxSpanDays:        getint("RES_MAX_SPAN_DAYS", 7),
		OverduePickupHours: getint("RES_OVERDUE_PICKUP_HOURS", 24),
		ReminderLeadFromH:  getint("RES_REMINDER_FROM_HOURS", 11),
		ReminderLeadToH:    getint("RES_REMINDER_TO_HOURS", 12),
		RecordOverdueDays:  getint("RECORD_OVERDUE_DAYS", 10),

		SweepInterval:        getdur("SWEEP_INTERVAL", 30*time.Second),
		OverdueSweepInterval: getdur("OVERDUE_SWEEP_INTERVAL", time.Hour),
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("bad int env, using default", "key", k, "value", v)
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		slog.Warn("bad duration env, using default", "key", k, "value", v)
	}
	return def
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		slog.Error("required env missing", "key", k)
		panic("missing env " + k)
	}
	return v
}
