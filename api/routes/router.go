package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/storefrontlabs/storefront/api/controllers"
	webhookcontrollers "github.com/storefrontlabs/storefront/api/controllers/webhooks"
	"github.com/storefrontlabs/storefront/api/middleware"
	"github.com/storefrontlabs/storefront/internal/cart"
	"github.com/storefrontlabs/storefront/internal/catalog"
	checkoutsvc "github.com/storefrontlabs/storefront/internal/checkout"
	"github.com/storefrontlabs/storefront/internal/orders"
	"github.com/storefrontlabs/storefront/internal/pricing"
	"github.com/storefrontlabs/storefront/internal/settlement"
	"github.com/storefrontlabs/storefront/pkg/config"
	"github.com/storefrontlabs/storefront/pkg/db"
	"github.com/storefrontlabs/storefront/pkg/logger"
	"github.com/storefrontlabs/storefront/pkg/mercadopago"
)

// NewRouter wires the HTTP surface: catalog reads, tier admin, cart and
// checkout operations, order reads, and the gateway webhook.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	pingers map[string]db.Pinger,
	catalogService catalog.Service,
	pricingService pricing.Service,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	coordinator settlement.Coordinator,
	gatewayClient *mercadopago.Client,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/mercadopago", webhookcontrollers.MercadoPagoWebhook(coordinator, gatewayClient, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/variations", func(r chi.Router) {
			r.Get("/{variationID}", controllers.GetVariation(catalogService, logg))
			r.Get("/{variationID}/price", controllers.ResolvePrice(pricingService, logg))
			r.Post("/{variationID}/tiers", controllers.CreateTier(catalogService, logg))
		})
		r.Patch("/tiers/{tierID}", controllers.UpdateTier(catalogService, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(cartService, logg))
			r.Post("/items", controllers.AddCartItem(cartService, logg))
			r.Delete("/items/{variationID}", controllers.RemoveCartItem(cartService, logg))
		})

		r.Post("/checkout", controllers.CreateCheckout(checkoutService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(ordersService, logg))
			r.Get("/{orderID}", controllers.GetOrder(ordersService, logg))
		})
	})

	return r
}
