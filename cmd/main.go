package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"donationBoard/cmd/buildCFG"
	"donationBoard/internal/api/api"
	"donationBoard/internal/auth"
	"donationBoard/internal/board"
	"donationBoard/internal/commands"
	rabbitReader "donationBoard/internal/consumerWorker"
	"donationBoard/internal/mailer"
	"donationBoard/internal/rabbit"
	"donationBoard/internal/render"
	"donationBoard/internal/repo"
	"donationBoard/internal/service"
)

// backend is an opened store plus whatever keeps it in sync and must be shut down.
type backend struct {
	store    repo.Store
	watch    func(ctx context.Context, b *board.Board)
	shutdown func()
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-pin" {
		commands.HashPIN(os.Args[2:])
		return
	}

	zlog.Init()
	log := zlog.Logger
	log.Info().Msg("Starting donation board")

	configPath := "config.yaml"
	if p := os.Getenv("BOARD_CONFIG"); p != "" {
		configPath = p
	}
	cfg := config.New()
	if err := cfg.Load(configPath, "", "BOARD"); err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}
	serverCfg := buildCFG.BuildServerConfig(cfg, &log)
	storageCfg, err := buildCFG.BuildStorageConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build storage config")
	}

	be, err := openBackend(cfg, storageCfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer be.store.Close()

	b := board.New(be.store, &log)
	if err := b.Reload(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to load events")
	}
	log.Info().Int("events", len(b.Events())).Msg("Events loaded")

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	if be.watch != nil {
		be.watch(workerCtx, b)
	}

	gate, err := auth.NewGate(buildCFG.BuildAdminConfig(cfg, &log), &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up admin gate")
	}
	mail := mailer.New(buildCFG.BuildMailConfig(cfg, &log), &log)

	tmpl, err := render.Template()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse page template")
	}

	serviceInstance := service.NewService(b, gate, mail, &log)
	app := api.NewRouters(&api.Routers{
		Service:  serviceInstance,
		Gate:     gate,
		Template: tmpl,
		Mode:     serverCfg.Mode,
	})

	srv := &http.Server{
		Addr:    ":" + serverCfg.Port,
		Handler: app,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", serverCfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Msgf("Server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Msgf("Error shutting down server: %v", err)
	}

	cancelWorkers()
	if be.shutdown != nil {
		be.shutdown()
	}
	log.Info().Msg("Shutdown complete")
}

func openBackend(cfg *config.Config, sc buildCFG.StorageConfig, log *zerolog.Logger) (*backend, error) {
	switch sc.Backend {
	case buildCFG.BackendRedis:
		return openRedis(cfg, log)
	case buildCFG.BackendPostgres:
		return openPostgres(cfg, sc, log)
	default:
		store, err := repo.NewFileStore(sc.FilePath, log)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", sc.FilePath).Msg("Using file storage")
		return &backend{store: store}, nil
	}
}

func openRedis(cfg *config.Config, log *zerolog.Logger) (*backend, error) {
	redisCfg, err := buildCFG.BuildRedisConfig(cfg, log)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	store, err := repo.NewRedisStore(client, redisCfg.Prefix, log)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	log.Info().Msg("Redis connected successfully")

	done := make(chan struct{})
	return &backend{
		store: store,
		watch: func(ctx context.Context, b *board.Board) {
			go func() {
				defer close(done)
				err := store.Watch(ctx, func() {
					if err := b.Reload(ctx); err != nil {
						log.Error().Err(err).Msg("failed to reload events after change")
					}
				})
				if err != nil {
					log.Error().Err(err).Msg("redis watcher stopped")
				}
			}()
		},
		shutdown: func() { <-done },
	}, nil
}

func openPostgres(cfg *config.Config, sc buildCFG.StorageConfig, log *zerolog.Logger) (*backend, error) {
	masterDSN, slaveDSNs, poolOptions, err := buildCFG.BuildDBConfig(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build DB config: %w", err)
	}
	db, err := dbpg.New(masterDSN, slaveDSNs, poolOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	pg, err := repo.NewPostgresStore(db.Master, log)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("Database connected successfully")

	migrationPath := sc.MigrationsPath
	if !filepath.IsAbs(migrationPath) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("cannot get working directory: %w", err)
		}
		migrationPath = filepath.Join(cwd, migrationPath)
	}
	if err := pg.MigrateUp(migrationPath); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	log.Info().Msg("Migrations applied successfully")

	rabbitCfg, err := buildCFG.BuildRabbitConfig(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load RabbitMQ config: %w", err)
	}
	rmq, err := rabbit.NewRabbit(rabbitCfg.Url, rabbitCfg.Exchange, rabbitCfg.Queue)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	var reader *rabbitReader.Reader
	return &backend{
		store: repo.WithNotifications(pg, rmq, log),
		watch: func(ctx context.Context, b *board.Board) {
			reader = rabbitReader.NewReader(rmq, b.Reload)
			reader.Start(ctx)
		},
		shutdown: func() {
			if reader != nil {
				reader.Stop()
			}
			rmq.Close()
			if sc.RollbackOnShutdown {
				log.Info().Msg("Rolling back migrations...")
				if err := pg.MigrateDown(migrationPath); err != nil {
					log.Error().Msgf("failed to rollback migrations: %v", err)
					return
				}
				log.Info().Msg("Migrations rolled back successfully")
			}
		},
	}, nil
}
