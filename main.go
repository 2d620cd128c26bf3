package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"libraryapi/app/echoServer"
	authctrl "libraryapi/app/echoServer/controller/auth"
	bookctrl "libraryapi/app/echoServer/controller/book"
	borrowingctrl "libraryapi/app/echoServer/controller/borrowing"
	paymentctrl "libraryapi/app/echoServer/controller/payment"
	"libraryapi/app/echoServer/validation"
	"libraryapi/config"
	authrepo "libraryapi/repository/auth"
	bookrepo "libraryapi/repository/book"
	borrowingrepo "libraryapi/repository/borrowing"
	"libraryapi/repository/gateway"
	paymentrepo "libraryapi/repository/payment"
	"libraryapi/repository/telegram"
	authsvc "libraryapi/service/auth"
	booksvc "libraryapi/service/book"
	borrowingsvc "libraryapi/service/borrowing"
	"libraryapi/service/notify"
	"libraryapi/service/overdue"
	paymentsvc "libraryapi/service/payment"
	"libraryapi/util/database"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Migrate {
		if err := db.Migrate(ctx); err != nil {
			log.Error("db migrate failed", "err", err)
			os.Exit(1)
		}
	}

	// repos
	ar := authrepo.New(db)
	br := bookrepo.New(db)
	lr := borrowingrepo.New(db)
	pr := paymentrepo.New(db)
	gw := newGateway(cfg.Payment, log)

	// notifications
	var sender telegram.Sender
	if cfg.Notify.TestMode {
		sender = telegram.NewLogOnly(log)
	} else {
		sender = telegram.NewBot(cfg.Notify.BotToken, cfg.Notify.ChatID)
	}
	disp := notify.NewDispatcher(sender, log, cfg.Notify.QueueSize)

	// services
	as := authsvc.New(ar, cfg.JWTSecret)
	bs := booksvc.New(br)
	ls := borrowingsvc.New(db, lr, br, paymentsvc.NewLedger(pr), disp, log)
	ps := paymentsvc.New(db, pr, lr, gw, disp, log, paymentsvc.Options{
		Currency:            cfg.Payment.Currency,
		SuccessURL:          cfg.Payment.SuccessURL,
		CancelURL:           cfg.Payment.CancelURL,
		XenditCallbackToken: cfg.Payment.XenditCallback,
	})

	scanner := overdue.NewScanner(lr, disp, log)
	cr, err := overdue.Schedule(cfg.OverdueCron, scanner, log)
	if err != nil {
		log.Error("overdue schedule invalid", "cron", cfg.OverdueCron, "err", err)
		os.Exit(1)
	}

	// echo
	e := echo.New()
	e.HideBanner = true
	echoServer.RegisterMiddlewares(e, log)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		if err := db.Pool.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	echoServer.Register(e, echoServer.C{
		Auth:      &authctrl.Controller{Svc: as, Log: log},
		Book:      &bookctrl.Controller{Svc: bs, Log: log},
		Borrowing: &borrowingctrl.Controller{Svc: ls, Log: log},
		Payment:   &paymentctrl.Controller{Svc: ps, Log: log},
		JWTSecret: cfg.JWTSecret,
		Log:       log,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	go func() {
		log.Info("starting server", "port", port, "env", cfg.Env, "payment_provider", cfg.Payment.Provider)
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(sctx); err != nil {
		log.Error("http shutdown", "err", err)
	}
	select {
	case <-cr.Stop().Done():
	case <-sctx.Done():
		log.Warn("overdue scan still running at shutdown")
	}
	if err := disp.Close(sctx); err != nil {
		log.Warn("notification queue not drained", "err", err)
	}
}

func newGateway(cfg config.Payment, log *slog.Logger) gateway.Gateway {
	switch cfg.Provider {
	case "midtrans":
		return gateway.NewMidtrans(cfg.MidtransServerKey, cfg.MidtransProduction)
	case "xendit":
		return gateway.NewXendit(cfg.XenditAPIKey)
	default:
		log.Warn("unknown payment provider, using xendit", "provider", cfg.Provider)
		return gateway.NewXendit(cfg.XenditAPIKey)
	}
}
