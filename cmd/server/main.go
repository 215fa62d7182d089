package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-occupancy/internal/bus"
	"github.com/iliyamo/venue-occupancy/internal/config"
	"github.com/iliyamo/venue-occupancy/internal/database"
	"github.com/iliyamo/venue-occupancy/internal/handler"
	"github.com/iliyamo/venue-occupancy/internal/middleware"
	"github.com/iliyamo/venue-occupancy/internal/model"
	"github.com/iliyamo/venue-occupancy/internal/queue"
	"github.com/iliyamo/venue-occupancy/internal/repository"
	"github.com/iliyamo/venue-occupancy/internal/router"
	"github.com/iliyamo/venue-occupancy/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("schema: %v", err)
	}
	cancel()

	seatRepo := repository.NewSeatRepo(db)
	ticketRepo := repository.NewTicketRepo(db)

	changeBus := bus.New(cfg.BusRetention)
	publish := func(ctx context.Context, delta model.StateDelta) {
		_ = queue.PublishDelta(ctx, delta) // best effort; errors already logged
	}

	bookingSvc := service.NewBookingService(seatRepo, changeBus, publish)
	checkinSvc := service.NewCheckinService(ticketRepo, changeBus, publish)

	// Redis is optional: when unavailable the limiter and cache are
	// pass-throughs and the service still arbitrates correctly.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and snapshot cache disabled")
	}
	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Background audit consumer; runs its own reconnect loop.
	go func() {
		if err := queue.StartDeltaConsumer(); err != nil {
			log.Printf("delta consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterPublic(e,
		handler.NewFloorPlanHandler(seatRepo, bookingSvc),
		handler.NewStreamHandler(changeBus, seatRepo, ticketRepo),
		handler.NewBookingHandler(bookingSvc),
		cache, rateLimit,
	)
	router.RegisterStaff(e,
		handler.NewFloorPlanHandler(seatRepo, bookingSvc),
		handler.NewTicketHandler(ticketRepo),
		handler.NewBookingHandler(bookingSvc),
		cfg.JWTSecret,
	)
	router.RegisterScanner(e, handler.NewCheckinHandler(checkinSvc), cfg.ScannerKeyHash, rateLimit)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
