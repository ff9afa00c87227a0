package buildCFG

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"

	"donationBoard/internal/auth"
	"donationBoard/internal/mailer"
)

const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type ServerConfig struct {
	Port            string
	Mode            string
	ShutdownTimeout time.Duration
}

type StorageConfig struct {
	Backend            string
	FilePath           string
	MigrationsPath     string
	RollbackOnShutdown bool
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	sc := ServerConfig{
		Port:            cfg.GetString("server.port"),
		Mode:            cfg.GetString("server.mode"),
		ShutdownTimeout: cfg.GetDuration("server.shutdown_timeout"),
	}
	if sc.Port == "" {
		sc.Port = "8080"
		log.Warn().Msg("server.port not set, using 8080")
	}
	if sc.Mode == "" {
		sc.Mode = "release"
	}
	if sc.ShutdownTimeout <= 0 {
		sc.ShutdownTimeout = 10 * time.Second
	}
	return sc
}

func BuildStorageConfig(cfg *config.Config, log *zerolog.Logger) (StorageConfig, error) {
	sc := StorageConfig{
		Backend:            strings.ToLower(cfg.GetString("storage.backend")),
		FilePath:           cfg.GetString("storage.file"),
		MigrationsPath:     cfg.GetString("postgres.migrations"),
		RollbackOnShutdown: cfg.GetBool("postgres.rollback_on_shutdown"),
	}
	if sc.Backend == "" {
		sc.Backend = BackendFile
	}
	if sc.FilePath == "" {
		sc.FilePath = "data/eventos.json"
	}
	if sc.MigrationsPath == "" {
		sc.MigrationsPath = "migrations/postgres"
	}
	switch sc.Backend {
	case BackendFile, BackendRedis, BackendPostgres:
	default:
		return StorageConfig{}, fmt.Errorf("unknown storage.backend %q", sc.Backend)
	}
	log.Info().Str("backend", sc.Backend).Msg("storage configured")
	return sc, nil
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	master := cfg.GetString("postgres.master_dsn")
	if master == "" {
		return "", nil, nil, errors.New("postgres.master_dsn is required")
	}

	var slaves []string
	for _, dsn := range strings.Split(cfg.GetString("postgres.slave_dsns"), ",") {
		if dsn = strings.TrimSpace(dsn); dsn != "" {
			slaves = append(slaves, dsn)
		}
	}

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.GetInt("postgres.max_open_conns"),
		MaxIdleConns:    cfg.GetInt("postgres.max_idle_conns"),
		ConnMaxLifetime: cfg.GetDuration("postgres.conn_max_lifetime"),
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = 30 * time.Minute
	}

	log.Info().Int("slaves", len(slaves)).Int("max_open_conns", opts.MaxOpenConns).Msg("postgres configured")
	return master, slaves, opts, nil
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (RabbitConfig, error) {
	rc := RabbitConfig{
		Url:      cfg.GetString("rabbit.url"),
		Exchange: cfg.GetString("rabbit.exchange"),
		Queue:    cfg.GetString("rabbit.queue"),
	}
	if rc.Url == "" {
		return RabbitConfig{}, errors.New("rabbit.url is required")
	}
	if rc.Exchange == "" {
		rc.Exchange = "eventos.changed"
	}
	log.Info().Str("exchange", rc.Exchange).Msg("rabbit configured")
	return rc, nil
}

func BuildRedisConfig(cfg *config.Config, log *zerolog.Logger) (RedisConfig, error) {
	rc := RedisConfig{
		Addr:     cfg.GetString("redis.addr"),
		Password: cfg.GetString("redis.password"),
		DB:       cfg.GetInt("redis.db"),
		Prefix:   cfg.GetString("redis.prefix"),
	}
	if rc.Addr == "" {
		return RedisConfig{}, errors.New("redis.addr is required")
	}
	log.Info().Str("addr", rc.Addr).Int("db", rc.DB).Msg("redis configured")
	return rc, nil
}

func BuildAdminConfig(cfg *config.Config, log *zerolog.Logger) auth.Config {
	ac := auth.Config{
		PIN:     cfg.GetString("admin.pin"),
		PINHash: cfg.GetString("admin.pin_hash"),
		Secret:  []byte(cfg.GetString("admin.token_secret")),
		TTL:     cfg.GetDuration("admin.token_ttl"),
	}
	if ac.PIN == "" && ac.PINHash == "" {
		log.Warn().Msg("no admin PIN configured, falling back to the demo PIN")
	}
	return ac
}

func BuildMailConfig(cfg *config.Config, log *zerolog.Logger) mailer.Config {
	mc := mailer.Config{
		Host:     cfg.GetString("mail.host"),
		Port:     cfg.GetInt("mail.port"),
		Username: cfg.GetString("mail.username"),
		Password: cfg.GetString("mail.password"),
		From:     cfg.GetString("mail.from"),
	}
	if mc.Host == "" {
		log.Info().Msg("mail.host not set, donation receipts disabled")
	}
	return mc
}
