package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

func Load() App {
	// prod uses real env vars, a missing .env is fine
	_ = godotenv.Load()

	cfg := App{
		Port:        getenv("APP_PORT", "8080"),
		DatabaseURL: must("DATABASE_URL"),
		JWTSecret:   getenv("JWT_SECRET", "local_dev_secret"),
		Env:         getenv("APP_ENV", "dev"),
		Migrate:     getbool("DB_MIGRATE", true),
		OverdueCron: getenv("OVERDUE_CRON", "0 9 * * *"),
		Payment: Payment{
			Provider:           strings.ToLower(getenv("PAYMENT_PROVIDER", "xendit")),
			XenditAPIKey:       os.Getenv("XENDIT_API_KEY"),
			XenditCallback:     os.Getenv("XENDIT_CALLBACK_TOKEN"),
			MidtransServerKey:  os.Getenv("MIDTRANS_SERVER_KEY"),
			MidtransProduction: getbool("MIDTRANS_PRODUCTION", false),
			SuccessURL:         getenv("PAYMENT_SUCCESS_URL", "http://localhost:8080/v1/payments/success"),
			CancelURL:          getenv("PAYMENT_CANCEL_URL", "http://localhost:8080/v1/payments/cancel"),
		},
		Notify: Notify{
			BotToken:  os.Getenv("BOT_TOKEN"),
			ChatID:    os.Getenv("CHAT_ID"),
			TestMode:  getbool("NOTIFY_TEST_MODE", false),
			QueueSize: getint("NOTIFY_QUEUE_SIZE", 100),
		},
	}
	// midtrans only settles rupiah
	defCurrency := "USD"
	if cfg.Payment.Provider == "midtrans" {
		defCurrency = "IDR"
	}
	cfg.Payment.Currency = strings.ToUpper(getenv("PAYMENT_CURRENCY", defCurrency))

	if !cfg.Notify.TestMode && (cfg.Notify.BotToken == "" || cfg.Notify.ChatID == "") {
		slog.Warn("BOT_TOKEN or CHAT_ID not provided, notifications only logged")
		cfg.Notify.TestMode = true
	}
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func getint(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		slog.Error("required env missing", "key", k)
		panic("missing env " + k)
	}
	return v
}
