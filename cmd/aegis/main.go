package main

import (
	"log"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/fido1hn/agentic-autonomous-wallets/api"
	"github.com/fido1hn/agentic-autonomous-wallets/config"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/audit"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/builder"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/custody"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/policy"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/simulation"
	"github.com/fido1hn/agentic-autonomous-wallets/internal/solana"
	"github.com/fido1hn/agentic-autonomous-wallets/service"
	"github.com/fido1hn/agentic-autonomous-wallets/storage"
	"github.com/fido1hn/agentic-autonomous-wallets/storage/postgres"
)

func main() {
	cfg, err := config.ReadConfig("config")
	if err != nil {
		log.Fatalf("fail to read config, err: %v", err)
	}

	logger := logrus.WithField("service", "aegis").Logger

	db, err := postgres.NewPostgresBackend(cfg.Database.DSN)
	if err != nil {
		logger.Fatalf("fail to connect to database, err: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Errorf("fail to close database, err: %v", err)
		}
	}()
	if err := db.Migrate(); err != nil {
		logger.Fatalf("fail to run migrations, err: %v", err)
	}

	redis, err := storage.NewRedisStorage(cfg)
	if err != nil {
		logger.Fatalf("fail to connect to redis, err: %v", err)
	}
	defer func() {
		if err := redis.Close(); err != nil {
			logger.Errorf("fail to close redis, err: %v", err)
		}
	}()

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

	sdClient, err := statsd.New(cfg.Datadog.Host+":"+cfg.Datadog.Port,
		statsd.WithNamespace(cfg.Server.MetricsNamespace+"."))
	if err != nil {
		logger.Fatalf("fail to create statsd client, err: %v", err)
	}

	cluster := solana.ResolveCluster(cfg.Solana.Cluster, cfg.Solana.RPC)
	rpcClient := solana.NewRPCClient(cfg.Solana.RPC)

	// With no RPC endpoint the gate must report simulation as unavailable
	// rather than failing against an empty URL.
	var simulator simulation.Simulator
	if cfg.Solana.RPC != "" {
		simulator = rpcClient
	}
	gate := simulation.NewGate(simulator, cfg.Simulation.Require)

	privy := custody.NewPrivyProvider(logger, rpcClient, custody.PrivyOptions{
		BaseURL:   cfg.Custody.BaseURL,
		AppID:     cfg.Custody.AppID,
		AppSecret: cfg.Custody.AppSecret,
	})
	provider, err := custody.ForName(cfg.Custody.Provider, privy)
	if err != nil {
		logger.Fatalf("fail to select custody provider, err: %v", err)
	}

	registry := builder.NewRegistry(logger, rpcClient, builder.Options{
		AllowMock:       cfg.Builder.AllowMock,
		JupiterQuoteURL: cfg.Builder.JupiterQuoteURL,
		JupiterSwapURL:  cfg.Builder.JupiterSwapURL,
		RaydiumQuoteURL: cfg.Builder.RaydiumQuoteURL,
		RaydiumBuildURL: cfg.Builder.RaydiumBuildURL,
		OrcaSwapURL:     cfg.Builder.OrcaSwapURL,
	})

	policyService, err := service.NewPolicyService(db, redis, logger)
	if err != nil {
		logger.Fatalf("fail to create policy service, err: %v", err)
	}
	walletService, err := service.NewWalletService(db, redis, privy, logger)
	if err != nil {
		logger.Fatalf("fail to create wallet service, err: %v", err)
	}

	intentService, err := service.NewIntentService(service.IntentServiceParams{
		Logger:        logger,
		DB:            db,
		PolicyService: policyService,
		WalletService: walletService,
		Builders:      registry,
		Gate:          gate,
		Provider:      provider,
		AuditSink:     audit.NewLogSink(logger),
		Queue:         queueClient,
		SdClient:      sdClient,
		Baseline: policy.BaselineLimits{
			MaxLamportsPerTx: cfg.Baseline.MaxLamportsPerTx,
			DailyLamportsCap: cfg.Baseline.DailyLamportsCap,
		},
		Cluster: cluster,
	})
	if err != nil {
		logger.Fatalf("fail to create intent service, err: %v", err)
	}

	server := api.NewServer(cfg.Server.Port,
		cfg.Server.Mode,
		sdClient,
		db,
		intentService,
		policyService,
		walletService)
	if err := server.StartServer(); err != nil {
		logger.Fatalf("fail to start server, err: %v", err)
	}
}
