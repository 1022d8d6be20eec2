package main

import (
	"context"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minhvu/taskhive-BE/api"
	db "github.com/minhvu/taskhive-BE/internal/db/sqlc"
	"github.com/minhvu/taskhive-BE/internal/dedup"
	"github.com/minhvu/taskhive-BE/internal/hub"
	"github.com/minhvu/taskhive-BE/internal/mailer"
	"github.com/minhvu/taskhive-BE/internal/notification"
	"github.com/minhvu/taskhive-BE/internal/reconciler"
	"github.com/minhvu/taskhive-BE/internal/util"
	"github.com/minhvu/taskhive-BE/internal/webhook"
	"github.com/minhvu/taskhive-BE/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configurations
	config, err := util.LoadConfig("./app.env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config file 😣")
	}

	log.Info().Msg("configurations loaded successfully ✅")

	// Create connection pool
	connPool, err := pgxpool.New(context.Background(), config.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to validate db connection string 😣")
	}

	pingErr := connPool.Ping(context.Background())
	if pingErr != nil {
		log.Fatal().Err(pingErr).Msg("failed to connect to db 😣")
	}
	log.Info().Msg("connected to db ✅")

	store := db.NewStore(connPool)

	redisDb := redis.NewClient(&redis.Options{
		Addr:     config.RedisServerAddress,
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	// The dedup cache backs both webhook idempotency and mail nudge
	// rate-limiting. Redis is the default; the in-memory cache is for
	// single-instance deployments and needs its own sweep.
	var dedupCache dedup.Cache
	if config.DedupBackend == "memory" {
		memCache := dedup.NewMemoryCache()
		go func() {
			ticker := time.NewTicker(config.DedupWindow)
			defer ticker.Stop()
			for range ticker.C {
				memCache.Sweep()
			}
		}()
		dedupCache = memCache
	} else {
		dedupCache = dedup.NewRedisCache(redisDb)
	}

	registry := hub.NewRegistry()

	notifier := notification.NewService(store, registry)

	if config.SMTPHost != "" {
		mailService, err := mailer.NewSMTPSender(config)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create mailer service 😣")
		}
		notifier.WithNudger(mailService, dedupCache, config.MailNudgeWindow)
		log.Info().Msg("mail nudge enabled ✅")
	}

	emitter := webhook.NewEmitter(dedupCache, config.WebhookEndpoint, config.WebhookTimeout, config.DedupWindow)

	redisOpt := asynq.RedisClientOpt{Addr: config.RedisServerAddress}
	taskDistributor := worker.NewTaskDistributor(redisOpt)
	taskInspector := worker.NewTaskInspector(redisOpt)

	go runTaskProcessor(redisOpt, store, notifier, emitter)

	recon, err := reconciler.New(store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create reconciler 😣")
	}
	if err = recon.Start(config.ReconcileInterval); err != nil {
		log.Fatal().Err(err).Msg("failed to start reconciler 😣")
	}
	defer recon.Stop()

	runHTTPServer(config, store, registry, notifier, recon, taskDistributor, taskInspector)
}

func runTaskProcessor(redisOpt asynq.RedisClientOpt, store db.Store, notifier *notification.Service, emitter *webhook.Emitter) {
	taskProcessor := worker.NewRedisTaskProcessor(redisOpt, store, notifier, emitter)

	log.Info().Msg("starting task processor ✅")
	if err := taskProcessor.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start task processor 😣")
	}
}

func runHTTPServer(config util.Config, store db.Store, registry *hub.Registry, notifier *notification.Service, recon *reconciler.Reconciler, taskDistributor worker.TaskDistributor, taskInspector worker.TaskInspector) {
	server, err := api.NewServer(store, registry, notifier, recon, taskDistributor, taskInspector, &config)

	if err != nil {
		log.Fatal().Err(err).Msg("failed to create HTTP server 😣")
	}

	err = server.Start(config.HTTPServerAddress)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start HTTP server 😣")
	}
}
