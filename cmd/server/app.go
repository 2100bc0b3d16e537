package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dom/puckquery/internal/config"
	"github.com/dom/puckquery/internal/engine"
	"github.com/dom/puckquery/internal/ingest"
	"github.com/dom/puckquery/internal/querycache"
	"github.com/dom/puckquery/internal/repository"
	"github.com/dom/puckquery/internal/repository/postgres"
	"github.com/dom/puckquery/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

// app holds the components shared by serve and seed.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	registry *prometheus.Registry
	repos    *repository.Repositories
	cache    *querycache.Cache
	services *service.Services
}

// setup loads the configuration and builds the logger. Failures are fatal.
func setup() (*config.Config, *logrus.Logger) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure logging: %v\n", err)
		os.Exit(1)
	}
	return cfg, log
}

func newLogger(level, format string) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return log, nil
}

// newApp connects to the database and wires repositories, the query cache
// and the services.
func newApp(cfg *config.Config, log *logrus.Logger) (*app, error) {
	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("connected to database")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	eng := engine.NewOpenAI(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	if cfg.LLMAPIKey == "" {
		log.Warn("LLM_API_KEY is not set, chat answers will report the engine as unavailable")
	}

	cache, err := querycache.New(eng, ingest.NewTable(nil), querycache.Options{
		Size:          cfg.QueryCacheSize,
		BuildTimeout:  cfg.EngineBuildTimeout,
		AnswerTimeout: cfg.EngineAnswerTimeout,
	}, log.WithField("component", "querycache"), querycache.NewMetrics(registry))
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}

	repos := postgres.NewRepositories(db)
	services := service.NewServices(repos, cache, cfg, log.WithField("component", "service"))

	return &app{
		cfg:      cfg,
		log:      log,
		registry: registry,
		repos:    repos,
		cache:    cache,
		services: services,
	}, nil
}
