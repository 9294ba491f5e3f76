package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/aryanpatel/gameden-booking/internal/config"
	"github.com/aryanpatel/gameden-booking/internal/database"
	"github.com/aryanpatel/gameden-booking/internal/gateway"
	"github.com/aryanpatel/gameden-booking/internal/handler"
	"github.com/aryanpatel/gameden-booking/internal/queue"
	"github.com/aryanpatel/gameden-booking/internal/repository"
	"github.com/aryanpatel/gameden-booking/internal/router"
	"github.com/aryanpatel/gameden-booking/internal/service"
)

func main() {
	// Load .env when present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	// Redis is optional; a nil client disables rate limiting and webhook dedup.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and webhook dedup disabled")
	}

	customers := repository.NewCustomerRepo(db)
	bookings := repository.NewBookingRepo(db)

	// The gateway client is rebuilt per invocation from freshly resolved
	// credentials so key rotation and mode switches need no restart.
	newClient := func() (*gateway.Client, error) {
		creds, err := config.ResolveGatewayCredentials()
		if err != nil {
			return nil, err
		}
		return gateway.NewClient(creds.KeyID, creds.KeySecret), nil
	}
	newGateway := func() (service.PaymentGateway, error) { return newClient() }

	materializer := &service.Materializer{
		Customers:  customers,
		Bookings:   bookings,
		NewGateway: newGateway,
		Publish: func(ctx context.Context, ev queue.BookingCreatedEvent) error {
			return queue.PublishBookingCreated(ctx, ev)
		},
	}
	verifier := &service.Verifier{NewGateway: newGateway}

	payments := handler.NewPaymentHandler(materializer, verifier, newClient)
	webhook := &handler.WebhookHandler{ResolveSecret: config.ResolveWebhookSecret, Redis: rdb}
	callback := &handler.CallbackHandler{BaseURL: cfg.BookingPageURL}

	// Background consumer appends created bookings to logs/booking.log.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e, payments, webhook, callback, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, gateway mode=%s)", addr, cfg.Env, config.GatewayMode())

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
