package routes

import (
	"context"
	"fmt"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/customadesign/acfl-booking-api/internal/config"
	"github.com/customadesign/acfl-booking-api/internal/events"
	"github.com/customadesign/acfl-booking-api/internal/handlers"
	"github.com/customadesign/acfl-booking-api/internal/middleware"
	"github.com/customadesign/acfl-booking-api/internal/repository"
	"github.com/customadesign/acfl-booking-api/internal/services"
	notifyws "github.com/customadesign/acfl-booking-api/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, rdb *redis.Client) error {
	feePercent, err := decimal.NewFromString(cfg.PlatformFeePercent)
	if err != nil {
		return fmt.Errorf("invalid PLATFORM_FEE_PERCENT %q: %w", cfg.PlatformFeePercent, err)
	}

	userRepo := repository.NewUserRepository(db)
	coachProfileRepo := repository.NewCoachProfileRepository(db)
	bookingRepo := repository.NewBookingRequestRepository(db)
	rateRepo := repository.NewCoachRateRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	hub := notifyws.NewHub()
	go hub.Run()

	var publisher *events.Publisher
	if cfg.AmqpURL != "" {
		publisher = events.NewPublisher(cfg.AmqpURL)
	}

	bookingService := services.NewBookingService(
		db,
		bookingRepo,
		paymentRepo,
		rateRepo,
		userRepo,
		coachProfileRepo,
		hub,
		publisherOrNil(publisher),
		cfg.RequestTTL,
		cfg.PaymentWindow,
	)
	paymentService := services.NewPaymentService(
		db,
		paymentRepo,
		bookingRepo,
		hub,
		publisherOrNil(publisher),
		feePercent,
	)
	rateService := services.NewRateService(rateRepo)

	go services.NewExpiryWorker(bookingService, cfg.ExpirySweep).Run(context.Background())

	authHandler := handlers.NewAuthHandler(db, userRepo, coachProfileRepo, cfg.JWTSecret)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	rateHandler := handlers.NewRateHandler(rateService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	notificationHandler := handlers.NewNotificationHandler(hub, cfg.JWTSecret)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)
	auth.Put("/me/profile", middleware.AuthRequired(cfg.JWTSecret), authHandler.UpdateProfile)

	limited := middleware.RateLimit(rdb, cfg.RateLimitPerMinute, time.Minute)

	bookings := api.Group("/bookings", middleware.AuthRequired(cfg.JWTSecret))
	bookings.Post("/request", limited, bookingHandler.CreateRequest)
	bookings.Get("/client", bookingHandler.ListClientRequests)
	bookings.Get("/coach/pending", bookingHandler.ListCoachPending)
	bookings.Post("/coach/requests/:id/accept", limited, bookingHandler.Accept)
	bookings.Post("/coach/requests/:id/reject", limited, bookingHandler.Reject)
	bookings.Get("/:id", bookingHandler.GetRequest)
	bookings.Post("/:id/cancel", limited, bookingHandler.Cancel)

	payments := api.Group("/payments", middleware.AuthRequired(cfg.JWTSecret))
	payments.Post("/v2/authorize", limited, paymentHandler.Authorize)
	payments.Post("/v2/authorizations/:id/confirm", limited, paymentHandler.Confirm)
	payments.Post("/v2/authorizations/:id/capture", limited, paymentHandler.Capture)
	payments.Get("/coaches/:id/rates", rateHandler.ListRates)
	payments.Post("/coaches/:id/rates", rateHandler.CreateRate)
	payments.Put("/rates/:id", rateHandler.UpdateRate)
	payments.Delete("/rates/:id", rateHandler.DeleteRate)

	api.Use("/ws", notificationHandler.WebSocketAuth)
	api.Get("/ws", websocket.New(notificationHandler.HandleWebSocket))

	return nil
}

// publisherOrNil keeps the services' publisher interface nil when events are
// disabled, instead of a typed nil pointer that would dodge nil checks.
func publisherOrNil(p *events.Publisher) services.BookingEventPublisher {
	if p == nil {
		return nil
	}
	return p
}
