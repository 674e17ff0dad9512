package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/bookably/session-reservation/internal/booking"
	"github.com/bookably/session-reservation/internal/config"
	"github.com/bookably/session-reservation/internal/database"
	"github.com/bookably/session-reservation/internal/handler"
	"github.com/bookably/session-reservation/internal/middleware"
	"github.com/bookably/session-reservation/internal/queue"
	"github.com/bookably/session-reservation/internal/repository"
	"github.com/bookably/session-reservation/internal/router"
	"github.com/bookably/session-reservation/internal/scheduler"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment
	cfg := config.Load()

	db, err := database.Open(database.Config{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	sessions := repository.NewSessionRepo(db)
	reservations := repository.NewReservationRepo(db)
	engine := booking.NewEngine(booking.NewMySQLStore(db, sessions, reservations))

	events := queue.NewPublisher()
	go queue.StartReservationConsumer()

	sweeper, err := scheduler.StartCompletionJob(engine, time.Duration(cfg.CompletionEveryMin)*time.Minute)
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	defer func() { _ = sweeper.Shutdown() }()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting disabled")
	}
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterReservations(e, handler.NewReservationHandler(engine, reservations, events), cfg.JWTSecret, limit)
	router.RegisterCreator(e, handler.NewSessionHandler(sessions), cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
