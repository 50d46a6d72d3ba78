package main

import (
	"log"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/fido1hn/agentic-autonomous-wallets/config"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/tasks"
	"github.com/fido1hn/agentic-autonomous-wallets/service"
	"github.com/fido1hn/agentic-autonomous-wallets/storage"
	"github.com/fido1hn/agentic-autonomous-wallets/storage/postgres"
)

func main() {
	cfg, err := config.ReadConfig("config")
	if err != nil {
		log.Fatalf("fail to read config, err: %v", err)
	}

	logger := logrus.WithField("service", "worker").Logger

	db, err := postgres.NewPostgresBackend(cfg.Database.DSN)
	if err != nil {
		logger.Fatalf("fail to connect to database, err: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Errorf("fail to close database, err: %v", err)
		}
	}()

	blockStorage, err := storage.NewBlockStorage(cfg)
	if err != nil {
		logger.Fatalf("fail to create block storage, err: %v", err)
	}

	sdClient, err := statsd.New(cfg.Datadog.Host+":"+cfg.Datadog.Port,
		statsd.WithNamespace(cfg.Server.MetricsNamespace+"."))
	if err != nil {
		logger.Fatalf("fail to create statsd client, err: %v", err)
	}

	redisOpts := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Username: cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	queueClient := asynq.NewClient(redisOpts)
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Errorf("fail to close queue client, err: %v", err)
		}
	}()

	worker, err := service.NewWorker(cfg, db, queueClient, sdClient, blockStorage)
	if err != nil {
		logger.Fatalf("fail to create worker service, err: %v", err)
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	logger.WithFields(logrus.Fields{
		"redis": redisOpts.Addr,
	}).Info("Starting worker")

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeAuditArchive, worker.HandleAuditArchive)

	if err := srv.Run(mux); err != nil {
		logger.Fatalf("could not run worker server: %v", err)
	}
}
