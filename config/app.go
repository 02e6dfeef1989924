package config

import "time"

type App struct {
	Port        string `env:"APP_PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	Env         string `env:"APP_ENV" default:"dev"`

	// Notifier transports; both optional, slog-only when unset.
	AMQPURL          string `env:"AMQP_URL"`
	NotifyWebhookURL string `env:"NOTIFY_WEBHOOK_URL"`

	// Presentation timezone for API responses. Core logic is UTC-only.
	LocalTZ string `env:"LOCAL_TZ" default:"Asia/Shanghai"`

	// Reservation policy.
	MaxSpanDays        int `env:"RES_MAX_SPAN_DAYS" default:"7"`
	OverduePickupHours int `env:"RES_OVERDUE_PICKUP_HOURS" default:"24"`
	ReminderLeadFromH  int `env:"RES_REMINDER_FROM_HOURS" default:"11"`
	ReminderLeadToH    int `env:"RES_REMINDER_TO_HOURS" default:"12"`
	RecordOverdueDays  int `env:"RECORD_OVERDUE_DAYS" default:"10"`

	SweepInterval        time.Duration `env:"SWEEP_INTERVAL" default:"30s"`
	OverdueSweepInterval time.Duration `env:"OVERDUE_SWEEP_INTERVAL" default:"1h"`
}
