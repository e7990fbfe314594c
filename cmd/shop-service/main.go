package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/sokoswift/internal/cart"
	"github.com/vasiliy-maslov/sokoswift/internal/config"
	"github.com/vasiliy-maslov/sokoswift/internal/customer"
	"github.com/vasiliy-maslov/sokoswift/internal/db"
	"github.com/vasiliy-maslov/sokoswift/internal/events"
	shopHttp "github.com/vasiliy-maslov/sokoswift/internal/handler/http"
	"github.com/vasiliy-maslov/sokoswift/internal/order"
	"github.com/vasiliy-maslov/sokoswift/internal/session"
)

func setupLogger(cfg config.LogConfig, service string) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", service).Logger()
}

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	setupLogger(cfg.Log, cfg.App.Name)
	log.Info().Msg("Shop service starting...")

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 15*time.Second)
	pg, err := db.New(connectCtx, cfg.Postgres)
	cancelConnect()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	if cfg.Postgres.AutoMigrate {
		if err := db.Migrate(cfg.Postgres); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	redisClient := session.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password, cfg.Redis.DB)
	sessionStore := session.NewRedisStore(redisClient, cfg.Session.TTL)
	defer sessionStore.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	err = sessionStore.Ping(pingCtx)
	cancelPing()
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("Failed to connect to redis")
	}

	sessionManager := session.NewManager(sessionStore, session.NewTokenIssuer(cfg.Session.Secret, cfg.Session.TTL))

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	var (
		publisher events.Publisher = events.NoopPublisher{}
		amqpConn  *amqp.Connection
	)
	if cfg.AMQP.Enabled() {
		amqpConn, err = amqp.Dial(cfg.AMQP.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
		}
		defer amqpConn.Close()

		amqpPublisher, err := events.NewAMQPPublisher(amqpConn, cfg.AMQP.OrderEventsQueue)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to set up order events publisher")
		}
		publisher = amqpPublisher
	} else {
		log.Warn().Msg("AMQP_URL not set, order events will not be published")
	}

	customerRepository := customer.NewRepository(pg.Pool)
	customerSvc := customer.NewService(customerRepository)

	carts := cart.NewSampleProvider()
	orderSvc := order.NewService(
		order.NewRepository(pg.Pool),
		order.NewHistoryReader(pg.Reader),
		carts,
		publisher,
	)

	if amqpConn != nil {
		consumer := events.NewStatusConsumer(amqpConn, cfg.AMQP.StatusUpdatesQueue, order.StatusUpdateHandler(orderSvc))
		go func() {
			if err := consumer.Run(consumerCtx); err != nil {
				log.Error().Err(err).Msg("Status consumer stopped")
			}
		}()
	}

	sessionLoader := shopHttp.NewSessionLoader(sessionManager, cfg.Session.CookieName, cfg.Session.SecureCookie)
	router := shopHttp.NewRouter(
		sessionLoader,
		shopHttp.NewCustomerHandler(customerSvc, sessionLoader),
		shopHttp.NewOrderHandler(orderSvc, carts),
	)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down server...")
	stopConsumer()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Shop service stopped gracefully")
}
