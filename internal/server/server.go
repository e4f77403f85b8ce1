package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/golang-migrate/migrate/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/mahfuz-oronno/pathshala/config"
	"github.com/mahfuz-oronno/pathshala/internal/cache"
	"github.com/mahfuz-oronno/pathshala/internal/generate"
	"github.com/mahfuz-oronno/pathshala/internal/ingest"
	"github.com/mahfuz-oronno/pathshala/internal/retrieval"
	"github.com/mahfuz-oronno/pathshala/internal/store"
	"github.com/mahfuz-oronno/pathshala/provider"
)

// Run wires the full service and serves HTTP on addr. An empty addr falls
// back to the configured listen address.
func Run(addr string, configPath string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	cfg := appconfig.LoadConfig(configPath)

	dsn := cfg.Databases.Postgres.DSN()
	if err := Migrate("file://migrations", dsn, "up", 0); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: %w", err)
	}

	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	rdb, err := cache.Conn(ctx, cfg.Databases.Redis.Host, cfg.Databases.Redis.Port,
		cfg.Databases.Redis.Password, cfg.Databases.Redis.DB, cfg.Databases.Redis.Timeout)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	textCache := cache.NewCloudTextCache(rdb)

	llm, err := provider.NewProvider(provider.OpenAI, cfg.Providers.OpenAI)
	if err != nil {
		return err
	}

	pipeline := ingest.NewPipeline(llm, st, textCache, cfg.RAG)
	engine := retrieval.NewEngine(llm, st, cfg.RAG)
	gen := generate.NewLayer(llm, engine, st, cfg.RAG)

	opts := []cache.Option{
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithPreloadWorkers(cfg.Cache.PreloadWorkers),
		cache.WithDownloadTimeout(cfg.Cache.DownloadTimeout),
	}
	if cfg.Cache.InvalidateCloudText {
		opts = append(opts, cache.WithInvalidator(textCache))
	}
	manager, err := cache.NewManager(cfg.Cache.Dir, NewHTTPDownloader(cfg.Cache.SourceBaseURL), opts...)
	if err != nil {
		return fmt.Errorf("cache dir: %w", err)
	}

	th := &TextbookHandler{Pipeline: pipeline, Gen: gen}
	th.Register(e)
	ch := &CacheHandler{Manager: manager}
	ch.Register(e.Group("/cache"))

	if addr == "" {
		addr = cfg.General.Listen
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":10010"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
