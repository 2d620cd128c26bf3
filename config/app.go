package config

type App struct {
	Port        string `env:"APP_PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	Env         string `env:"APP_ENV" default:"dev"`
	Migrate     bool   `env:"DB_MIGRATE" default:"true"`

	Payment     Payment
	Notify      Notify
	OverdueCron string `env:"OVERDUE_CRON" default:"0 9 * * *"`
}

type Payment struct {
	Provider           string `env:"PAYMENT_PROVIDER" default:"xendit"`
	XenditAPIKey       string `env:"XENDIT_API_KEY"`
	XenditCallback     string `env:"XENDIT_CALLBACK_TOKEN"`
	MidtransServerKey  string `env:"MIDTRANS_SERVER_KEY"`
	MidtransProduction bool   `env:"MIDTRANS_PRODUCTION"`
	Currency           string `env:"PAYMENT_CURRENCY" default:"USD"`
	SuccessURL         string `env:"PAYMENT_SUCCESS_URL"`
	CancelURL          string `env:"PAYMENT_CANCEL_URL"`
}

type Notify struct {
	BotToken  string `env:"BOT_TOKEN"`
	ChatID    string `env:"CHAT_ID"`
	TestMode  bool   `env:"NOTIFY_TEST_MODE"`
	QueueSize int    `env:"NOTIFY_QUEUE_SIZE" default:"100"`
}
