package app

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/orderappu/recon-api/configs"
	"github.com/orderappu/recon-api/internal/adapter/cache"
	"github.com/orderappu/recon-api/internal/adapter/http"
	"github.com/orderappu/recon-api/internal/adapter/http/middleware"
	"github.com/orderappu/recon-api/internal/adapter/kafka"
	"github.com/orderappu/recon-api/internal/adapter/queue"
	"github.com/orderappu/recon-api/internal/adapter/remote"
	"github.com/orderappu/recon-api/internal/logging"
	"github.com/orderappu/recon-api/internal/saga"
	"github.com/orderappu/recon-api/internal/sagajournal/sqlite"
	"github.com/orderappu/recon-api/internal/usecase"
)

type App struct {
	Router *gin.Engine
}

func InitWithConfig(cfg configs.Config) (*App, func(), error) {
	logging.Init(cfg.App.Name, cfg.App.LogFile)
	l := logging.New("app")
	l.Info("recon-api: starting up")

	// durable saga journal
	journal, err := sqlite.Open(cfg.Journal.Path)
	if err != nil {
		return nil, nil, err
	}

	// init redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		journal.Close()
		return nil, nil, err
	}

	// upstream clients
	orders := remote.NewOrderClient(cfg.Upstream.OrderBaseURL, cfg.Upstream.BearerToken, cfg.Upstream.Timeout, cfg.Upstream.MaxRetries)
	credit := remote.NewCreditClient(cfg.Upstream.CreditBaseURL, cfg.Upstream.BearerToken, cfg.Upstream.Timeout, cfg.Upstream.MaxRetries)

	// finish anything a previous run left mid-flight before taking traffic
	recovery := usecase.NewRecovery(journal, orders, credit)
	rctx, rcancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := recovery.Run(rctx); err != nil {
		l.Error("journal recovery", "error", err)
	}
	rcancel()

	// rabbitmq outcome producer (optional; recon works without it)
	var events usecase.OutcomePublisher
	var amqpConn *amqp091.Connection
	if cfg.Rabbit.URL != "" {
		amqpConn, err = amqp091.Dial(cfg.Rabbit.URL)
		if err != nil {
			l.Error("rabbitmq dial", "error", err)
		} else {
			ch, err := amqpConn.Channel()
			if err != nil {
				l.Error("rabbitmq channel", "error", err)
			} else if producer, err := queue.NewRabbitProducer(ch); err != nil {
				l.Error("rabbitmq producer", "error", err)
			} else {
				events = producer
			}
		}
	}

	// infra
	idem := cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
	redisCache := cache.NewRedisCache(rdb, cfg.Cache.TTL)
	orch := saga.NewOrchestrator(journal)

	recon := usecase.NewReconciler(orders, credit, orders, orch, idem, redisCache, redisCache, events)

	// fulfillment status listener keeps order flag snapshots warm
	kafkaCancel := setupKafkaListener(cfg, redisCache)

	h := http.NewReconHandler(recon, journal)
	th := http.NewTokenHandler(cfg)
	auth := middleware.NewAuthz(cfg)
	router := http.NewRouter(h, th, auth)

	cleanup := func() {
		kafkaCancel()
		if amqpConn != nil {
			_ = amqpConn.Close()
		}
		_ = rdb.Close()
		_ = journal.Close()
	}

	return &App{Router: router}, cleanup, nil
}

// Run serves HTTP with the configured timeouts.
func (a *App) Run(cfg configs.Config) error {
	srv := &nethttp.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      a.Router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
	return srv.ListenAndServe()
}

func setupKafkaListener(cfg configs.Config, snapshots usecase.SnapshotStore) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())

	if len(cfg.Kafka.Brokers) == 0 {
		return cancel
	}

	grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	if err != nil {
		logging.New("kafka").Error("consumer group init", "error", err)
		return cancel
	}

	h := kafka.NewOrderStatusChangedHandler(snapshots)
	consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.Topic}, h.Handle, logging.New("kafka"))

	go func() {
		defer grp.Close()
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			logging.New("kafka").Error("consumer stopped", "error", err)
		}
	}()
	return cancel
}
