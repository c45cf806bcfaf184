package main

import (
	"context"
	"strconv"
	"time"

	config "github.com/anjiri1684/course_academy/configs"
	"github.com/anjiri1684/course_academy/database"
	"github.com/anjiri1684/course_academy/handlers"
	"github.com/anjiri1684/course_academy/jobs"
	"github.com/anjiri1684/course_academy/metrics"
	"github.com/anjiri1684/course_academy/notifications"
	"github.com/anjiri1684/course_academy/payments"
	"github.com/anjiri1684/course_academy/routes"
	"github.com/anjiri1684/course_academy/services"
	"github.com/anjiri1684/course_academy/store"
	"github.com/anjiri1684/course_academy/utils"
	"github.com/anjiri1684/course_academy/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func newProvider(cfg *config.Config) payments.Provider {
	if cfg.PaymentProvider == payments.ProviderPayPal {
		return payments.NewPayPalProvider(payments.PayPalConfig{
			APIBaseURL:   cfg.PayPalAPIBaseURL,
			ClientID:     cfg.PayPalClientID,
			ClientSecret: cfg.PayPalClientSecret,
			WebhookID:    cfg.PayPalWebhookID,
		})
	}
	return payments.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
}

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		panic("cannot load config: " + err.Error())
	}

	log, err := utils.InitLogger(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		panic("cannot init logger: " + err.Error())
	}
	defer log.Sync()

	decimal.MarshalJSONWithoutQuotes = true

	db, err := database.ConnectDB(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db, log); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}
	repo := store.NewPostgresRepository(db)

	notifier := notifications.NewNotifier(cfg.BrevoAPIKey, cfg.EmailSender, cfg.EmailSenderName, log)
	provider := newProvider(cfg)

	hub := websocket.NewHub(log)
	go hub.Run()
	defer hub.Stop()

	commission := decimal.NewFromFloat(cfg.CommissionPercent)
	affiliates := services.NewAffiliateService(repo, notifier, services.AffiliateConfig{
		CommissionPercent: commission,
		MinPayout:         decimal.NewFromFloat(cfg.MinPayout),
		ReferralTTL:       cfg.ReferralTTL(),
		FrontendURL:       cfg.FrontendURL,
	}, log)
	paymentService := services.NewPaymentService(repo, provider, notifier, hub, services.PaymentConfig{
		Currency:          cfg.Currency,
		CommissionPercent: commission,
	}, log)
	auth := services.NewAuthService(repo, affiliates, services.NewTurnstileVerifier(cfg.TurnstileSecret), services.AuthConfig{
		JWTSecret:     cfg.JWTSecret,
		JWTExpiration: cfg.JWTExpiration(),
	}, log)
	catalog := services.NewCatalogService(repo, log)
	admin := services.NewAdminService(repo, hub, log)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := auth.EnsureAdmin(context.Background(), cfg.AdminFullName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatal("admin seeding failed", zap.Error(err))
		}
	}

	c := cron.New()
	if _, err := c.AddFunc("*/15 * * * *", jobs.ExpireStaleSessions(paymentService, cfg.StaleSessionAge(), log)); err != nil {
		log.Fatal("cannot schedule session sweep", zap.Error(err))
	}
	if cfg.AdminEmail != "" {
		if _, err := c.AddFunc("0 8 * * *", jobs.SendPendingPayoutDigest(affiliates, notifier, cfg.AdminFullName, cfg.AdminEmail, log)); err != nil {
			log.Fatal("cannot schedule payout digest", zap.Error(err))
		}
	}
	c.Start()
	defer c.Stop()
	log.Info("cron jobs scheduled", zap.Int("entries", len(c.Entries())))

	h := handlers.New(auth, catalog, paymentService, affiliates, admin, hub, handlers.Config{
		FrontendURL:     cfg.FrontendURL,
		CloudinaryURL:   cfg.CloudinaryURL,
		ConfirmAttempts: cfg.PaymentPollAttempts,
		ConfirmBackoff:  cfg.PaymentPollBackoff(),
	}, log)

	app := fiber.New(fiber.Config{
		AppName:       "Course Academy",
		CaseSensitive: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Error("request failed",
				zap.Error(err),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
			)
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Authorization",
		MaxAge:           86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		path := c.Path()
		if route := c.Route(); route != nil {
			path = route.Path
		}
		metrics.HTTPRequests.WithLabelValues(c.Method(), path, strconv.Itoa(c.Response().StatusCode())).Inc()
		return err
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	routes.AuthRoutes(app, h, cfg.JWTSecret)
	routes.PublicRoutes(app, h, cfg.JWTSecret)
	routes.UserRoutes(app, h, cfg.JWTSecret)
	routes.PaymentRoutes(app, h, cfg.JWTSecret)
	routes.AffiliateRoutes(app, h, cfg.JWTSecret)
	routes.AdminRoutes(app, h, cfg.JWTSecret)
	routes.UploadRoutes(app, h, cfg.JWTSecret)
	routes.WebsocketRoutes(app, h)

	log.Info("server starting", zap.String("port", cfg.ServerPort), zap.String("payment_provider", provider.Name()))
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatal("server failed to start", zap.Error(err))
	}
}
