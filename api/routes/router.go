package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/splitpay-backend/api/controllers"
	payoutcontrollers "github.com/angelmondragon/splitpay-backend/api/controllers/payouts"
	subaccountcontrollers "github.com/angelmondragon/splitpay-backend/api/controllers/subaccounts"
	"github.com/angelmondragon/splitpay-backend/api/controllers/vendorcontext"
	webhookcontrollers "github.com/angelmondragon/splitpay-backend/api/controllers/webhooks"
	"github.com/angelmondragon/splitpay-backend/api/middleware"
	"github.com/angelmondragon/splitpay-backend/internal/payouts"
	paystackwebhook "github.com/angelmondragon/splitpay-backend/internal/webhooks/paystack"
	"github.com/angelmondragon/splitpay-backend/pkg/config"
	"github.com/angelmondragon/splitpay-backend/pkg/enums"
	"github.com/angelmondragon/splitpay-backend/pkg/idempotency"
	"github.com/angelmondragon/splitpay-backend/pkg/logger"
	"github.com/angelmondragon/splitpay-backend/pkg/paystack"
	pkgredis "github.com/angelmondragon/splitpay-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	idempotencyStore pkgredis.IdempotencyStore,
	metricsHandler http.Handler,
	storeFinder vendorcontext.StoreFinder,
	accountService subaccountcontrollers.AccountService,
	settlementReader subaccountcontrollers.SettlementReader,
	payoutService payouts.Service,
	paystackClient *paystack.Client,
	paystackWebhookService *paystackwebhook.Service,
	webhookGuard *idempotency.Manager,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisP,
		}, logg))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paystack", webhookcontrollers.PaystackWebhook(paystackWebhookService, paystackClient, webhookGuard, logg))
	})

	// Idempotency is attached per route so the middleware sees the full chi pattern.
	idem := middleware.Idempotency(idempotencyStore, logg)

	r.Route("/api/v1/vendor", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.MemberRoleVendor, logg))

		r.With(idem).Post("/subaccounts", subaccountcontrollers.VendorSubaccountCreate(accountService, storeFinder, logg))
		r.With(idem).Put("/subaccounts/{code}", subaccountcontrollers.VendorSubaccountUpdate(accountService, logg))
		r.Get("/subaccounts/{code}", subaccountcontrollers.VendorSubaccountFetch(accountService, logg))
		r.Get("/settlements", subaccountcontrollers.VendorSettlements(settlementReader, storeFinder, logg))
		r.Get("/earnings", payoutcontrollers.VendorEarnings(payoutService, logg))
		r.Get("/payouts", payoutcontrollers.VendorPayoutHistory(payoutService, logg))
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.MemberRoleAdmin, logg))

		r.With(idem).Post("/orders/{orderId}/settle", payoutcontrollers.AdminSettleOrder(payoutService, logg))
		r.Get("/subaccounts", subaccountcontrollers.AdminSubaccountList(accountService, logg))
	})

	return r
}
