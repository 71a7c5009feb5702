// Package routes wires repositories, services and handlers onto the Fiber
// app.
package routes

import (
	"fossa/internal/boltz"
	"fossa/internal/config"
	"fossa/internal/handlers"
	"fossa/internal/invoice"
	"fossa/internal/lightning"
	"fossa/internal/lnurl"
	"fossa/internal/metrics"
	"fossa/internal/middleware"
	"fossa/internal/repositories"
	"fossa/internal/repositories/cache"
	"fossa/internal/services/device"
	"fossa/internal/services/ledger"
	"fossa/internal/services/payload"
	"fossa/internal/services/pricing"
	"fossa/internal/services/reconciler"
	"fossa/internal/services/withdraw"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Services exposes the long-lived services the entry point drives outside
// the request path.
type Services struct {
	Ledger     *ledger.Service
	Reconciler *reconciler.Service
}

// SetupRoutes builds the full service graph and registers every route.
func SetupRoutes(app *fiber.App, rdb *redis.Client) *Services {
	callbackBaseURL := config.GetEnv("CALLBACK_BASE_URL", "http://localhost:3000")

	// Repositories
	deviceRepo := repositories.NewDeviceRepository(repositories.DB)
	paymentRepo := repositories.NewPaymentRepository(repositories.DB)

	// External collaborators
	lightningClient := lightning.NewClient(
		config.GetEnv("LNBITS_URL", "http://localhost:5000"),
		config.GetEnv("LNBITS_API_KEY", ""),
	)
	swapClient := boltz.NewClient(
		config.GetEnv("BOLTZ_URL", "http://localhost:9001"),
		config.GetEnv("BOLTZ_API_KEY", ""),
	)

	net, err := invoice.Network(config.GetEnv("NETWORK", "mainnet"))
	if err != nil {
		logrus.WithError(err).Fatal("invalid NETWORK setting")
	}

	decoder, err := payload.NewDecoder(payload.Format(config.GetEnv("FOSSA_PAYLOAD_FORMAT", string(payload.FormatXor))))
	if err != nil {
		logrus.WithError(err).Fatal("invalid FOSSA_PAYLOAD_FORMAT setting")
	}

	collector := metrics.NewCollector(nil)

	// Services
	rateSource := pricing.NewHTTPRateSource(
		config.GetEnv("RATE_SERVICE_URL", "http://localhost:5000"),
		rdb,
	)
	pricer := pricing.NewService(rateSource)
	deviceSvc := device.NewService(deviceRepo, cache.NewDeviceCache(rdb))
	ledgerSvc := ledger.NewService(paymentRepo, decoder, pricer, collector)
	withdrawSvc := withdraw.NewService(
		withdraw.Config{CallbackBaseURL: callbackBaseURL},
		deviceSvc,
		ledgerSvc,
		lightningClient,
		lightningClient,
		swapClient,
		invoice.NewDecoder(net),
		lnurl.NewClient(),
		collector,
	)
	reconcilerSvc := reconciler.NewService(
		reconciler.NewRedisFeed(rdb),
		ledgerSvc,
		reconciler.NewRedisNotifier(rdb),
	)

	// Handlers
	auth := middleware.NewAuthMiddleware(lightningClient)
	lnurlHandler := handlers.NewLnurlHandler(withdrawSvc)
	deviceHandler := handlers.NewDeviceHandler(deviceSvc, callbackBaseURL)
	atmHandler := handlers.NewAtmHandler(deviceSvc, ledgerSvc, paymentRepo, withdrawSvc)

	app.Get("/health", handlers.NewHealthHandler(rdb))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")

	// Device-facing LNURL endpoints, no auth: possession of a valid payload
	// is the credential.
	api.Get("/lnurl/:device_id", lnurlHandler.Params)
	api.Get("/lnurl/cb/:device_id", lnurlHandler.Callback)

	// Device management
	devices := api.Group("/fossa")
	devices.Get("/", auth.RequireKey, deviceHandler.List)
	devices.Get("/:device_id", auth.RequireKey, deviceHandler.Get)
	devices.Post("/", auth.RequireAdminKey, deviceHandler.Create)
	devices.Put("/:device_id", auth.RequireAdminKey, deviceHandler.Update)
	devices.Delete("/:device_id", auth.RequireAdminKey, deviceHandler.Delete)

	api.Post("/lnurlencode", auth.RequireKey, deviceHandler.LnurlEncode)

	// Payment admin and direct ATM payouts
	atm := api.Group("/atm")
	atm.Get("/", auth.RequireKey, atmHandler.List)
	atm.Delete("/:payment_id", auth.RequireAdminKey, atmHandler.Delete)
	atm.Post("/payment/lightning", atmHandler.PayLightning)
	atm.Post("/payment/boltz", atmHandler.PayOnchain)

	return &Services{
		Ledger:     ledgerSvc,
		Reconciler: reconcilerSvc,
	}
}
