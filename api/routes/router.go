package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dishpatch/dishpatch-backend/api/controllers"
	"github.com/dishpatch/dishpatch-backend/api/middleware"
	"github.com/dishpatch/dishpatch-backend/internal/cash"
	"github.com/dishpatch/dishpatch-backend/internal/notifications"
	"github.com/dishpatch/dishpatch-backend/internal/orders"
	"github.com/dishpatch/dishpatch-backend/internal/wallet"
	"github.com/dishpatch/dishpatch-backend/pkg/config"
	"github.com/dishpatch/dishpatch-backend/pkg/db"
	"github.com/dishpatch/dishpatch-backend/pkg/logger"
	"github.com/dishpatch/dishpatch-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ordersService orders.Service,
	ordersEditor orders.Editor,
	cashService cash.Service,
	walletService wallet.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var redisP redis.Pinger
	if redisClient != nil {
		redisP = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ActorContext())
		if redisClient != nil {
			writePolicy := middleware.WriteRatePolicy{
				Window: cfg.RateLimit.WriteWindow,
				Limit:  cfg.RateLimit.WriteLimit,
			}
			r.Use(middleware.WriteRateLimit(writePolicy, redisClient, logg))
			r.Use(middleware.Idempotency(redisClient, logg))
		}

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(ordersService, logg))
			r.Get("/", controllers.ListOrders(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
			r.Get("/{orderId}/timeline", controllers.OrderTimeline(ordersService, logg))
			r.Post("/{orderId}/transition", controllers.TransitionOrder(ordersService, logg))
			r.Post("/{orderId}/assign-agent", controllers.AssignAgent(ordersService, logg))

			r.Post("/{orderId}/items", controllers.AddOrderItem(ordersEditor, logg))
			r.Patch("/{orderId}/items/{itemId}", controllers.UpdateOrderItemQuantity(ordersEditor, logg))
			r.Delete("/{orderId}/items/{itemId}", controllers.RemoveOrderItem(ordersEditor, logg))
			r.Post("/{orderId}/recalculate", controllers.RecalculateOrderTotal(ordersEditor, logg))

			r.Post("/{orderId}/cash/collect", controllers.CollectCash(cashService, logg))
			r.Post("/{orderId}/cash/credit-change", controllers.CreditChange(cashService, logg))
		})

		r.Route("/wallets/{userId}", func(r chi.Router) {
			r.Get("/balance", controllers.WalletBalance(walletService, logg))
			r.Get("/ledger", controllers.WalletLedger(walletService, logg))
			r.Post("/credit", controllers.WalletCredit(walletService, logg))
			r.Post("/debit", controllers.WalletDebit(walletService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/", controllers.CreateNotification(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
		})
	})

	return r
}
