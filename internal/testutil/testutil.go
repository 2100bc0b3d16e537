package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dom/puckquery/internal/api"
	"github.com/dom/puckquery/internal/config"
	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/engine"
	"github.com/dom/puckquery/internal/ingest"
	"github.com/dom/puckquery/internal/querycache"
	"github.com/dom/puckquery/internal/repository"
	repoPostgres "github.com/dom/puckquery/internal/repository/postgres"
	"github.com/dom/puckquery/internal/service"
	"github.com/dom/puckquery/internal/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_puckquery"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(repoPostgres.Models()...); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	tables := []string{
		"query_logs",
		"events",
		"games",
		"players",
		"teams",
		"user_sessions",
		"users",
	}

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:                "0", // Random port
		Environment:         "test",
		CORSAllowedOrigin:   "*",
		JWTSecret:           "test-jwt-secret-key-for-testing-only",
		JWTExpirationHours:  1,
		RefreshTokenHours:   24,
		DefaultRole:         domain.RoleViewer,
		JerseySeed:          42,
		EngineBuildTimeout:  5 * time.Second,
		EngineAnswerTimeout: 5 * time.Second,
		QueryCacheSize:      16,
	}
}

// EchoEngine answers every question with the scoped row count and the
// question, so tests can see which game a reply was built from.
func EchoEngine() engine.Engine {
	return engine.Func(func(ctx context.Context, table *ingest.Table) (engine.Session, error) {
		rows := table.Len()
		return engine.SessionFunc(func(ctx context.Context, question string) (string, error) {
			return fmt.Sprintf("%d rows: %s", rows, question), nil
		}), nil
	})
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	DB       *TestDB
	Repos    *repository.Repositories
	Services *service.Services
	Cache    *querycache.Cache
	Hub      *websocket.Hub
	Config   *config.Config
	Registry *prometheus.Registry
}

// NewTestServer creates a complete test server backed by EchoEngine.
func NewTestServer(t *testing.T, configure ...func(*config.Config)) *TestServer {
	t.Helper()
	return NewTestServerWithEngine(t, EchoEngine(), configure...)
}

// NewTestServerWithEngine creates a complete test server with all
// dependencies. configure may adjust TestConfig before anything is built.
func NewTestServerWithEngine(t *testing.T, eng engine.Engine, configure ...func(*config.Config)) *TestServer {
	t.Helper()

	testDB := NewTestDB(t)
	cfg := TestConfig()
	for _, fn := range configure {
		fn(cfg)
	}
	log, _ := test.NewNullLogger()
	registry := prometheus.NewRegistry()

	cache, err := querycache.New(eng, ingest.NewTable(nil), querycache.Options{
		Size:          cfg.QueryCacheSize,
		BuildTimeout:  cfg.EngineBuildTimeout,
		AnswerTimeout: cfg.EngineAnswerTimeout,
	}, log, querycache.NewMetrics(registry))
	if err != nil {
		t.Fatalf("failed to create query cache: %v", err)
	}

	repos := repoPostgres.NewRepositories(testDB.DB)
	services := service.NewServices(repos, cache, cfg, log)

	hub := websocket.NewHub(services.Chat, log)
	go hub.Run()

	router := api.NewRouter(services, cache, hub, cfg, registry)
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		DB:       testDB,
		Repos:    repos,
		Services: services,
		Cache:    cache,
		Hub:      hub,
		Config:   cfg,
		Registry: registry,
	}

	t.Cleanup(func() {
		hub.Stop()
		server.Close()
	})

	return ts
}

// Seed replaces the store and the query cache's table with rows.
func (ts *TestServer) Seed(t *testing.T, rows []domain.RawEvent) *service.SeedResult {
	t.Helper()

	result, err := ts.Services.Seed.ResetAndSeed(context.Background(), ingest.NewTable(rows), nil)
	if err != nil {
		t.Fatalf("failed to seed: %v", err)
	}
	return result
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1%s", ts.Server.URL, path)
}

// WebSocketURL returns the WebSocket URL with token
func (ts *TestServer) WebSocketURL(token string) string {
	wsURL := "ws" + ts.Server.URL[4:] // Replace "http" with "ws"
	return fmt.Sprintf("%s/api/v1/ws?token=%s", wsURL, token)
}
