package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/atinyakov/go-user-directory/internal/app/server"
	"github.com/atinyakov/go-user-directory/internal/app/service"
	"github.com/atinyakov/go-user-directory/internal/cache"
	"github.com/atinyakov/go-user-directory/internal/config"
	"github.com/atinyakov/go-user-directory/internal/generator"
	"github.com/atinyakov/go-user-directory/internal/logger"
	"github.com/atinyakov/go-user-directory/internal/metrics"
	"github.com/atinyakov/go-user-directory/internal/repository"
	"github.com/atinyakov/go-user-directory/internal/storage"
	"github.com/atinyakov/go-user-directory/internal/worker"

	_ "net/http/pprof"
)

var buildVersion string
var buildDate string
var buildCommit string

const (
	pprofAddr       = "localhost:6060"
	shutdownTimeout = 10 * time.Second
	connectTimeout  = 10 * time.Second
)

func main() {
	options, err := config.Parse()
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		stdlog.Fatalf("config: %v", err)
	}

	fmt.Printf("Build version: %s\n", valueOrNA(buildVersion))
	fmt.Printf("Build date: %s\n", valueOrNA(buildDate))
	fmt.Printf("Build commit: %s\n", valueOrNA(buildCommit))

	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		panic(err)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options, log.Log); err != nil {
		log.Log.Fatal("server stopped", zap.Error(err))
	}
}

func valueOrNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}

func run(ctx context.Context, options *config.Options, zapLogger *zap.Logger) error {
	a, err := newApp(ctx, options, zapLogger)
	if err != nil {
		return err
	}
	defer a.Close()

	return serve(ctx, options, a.handler, zapLogger)
}

// app owns every long-lived dependency of the server.
type app struct {
	handler http.Handler
	closers []func() error
	logger  *zap.Logger
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
}

func newApp(ctx context.Context, options *config.Options, zapLogger *zap.Logger) (*app, error) {
	a := &app{logger: zapLogger}

	store, err := openStore(ctx, options, zapLogger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	var pageCache cache.PageCache = cache.Noop{}
	if options.RedisURL != "" {
		client, err := connectRedis(ctx, options.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		pageCache = cache.NewRedisCache(client, cache.WithTTL(options.CacheTTL))
		zapLogger.Info("using redis page cache", zap.Duration("ttl", options.CacheTTL))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	limit := rate.Inf
	if options.ChunkRate > 0 {
		limit = rate.Limit(options.ChunkRate)
	}

	populator := worker.NewPopulateWorker(store, generator.DefaultConfig(), zapLogger.Named("populate"),
		worker.WithInsertChunkSize(options.InsertChunkSize),
		worker.WithMaxPopulateCount(options.MaxPopulateCount),
		worker.WithPopulateRate(limit),
		worker.WithPopulateMetrics(m),
	)
	deleter := worker.NewDeleteAllWorker(store, zapLogger.Named("deleteAll"),
		worker.WithDeleteChunkSize(options.DeleteChunkSize),
		worker.WithMaxIterations(options.DeleteMaxIterations),
		worker.WithMaxDuration(options.DeleteMaxDuration),
		worker.WithDeleteRate(limit),
		worker.WithDeleteMetrics(m),
	)

	query := service.NewQueryService(store, pageCache, zapLogger, service.WithMaxPageSize(options.MaxPageSize))
	userService := service.NewUserService(store, query, populator, deleter, options.PopulateCount, zapLogger)

	a.handler = server.Init(userService, zapLogger, m, reg, options.TrustedSubnet)
	return a, nil
}

// openStore picks the backend: postgres, then mongo, then a file, then memory.
func openStore(ctx context.Context, options *config.Options, zapLogger *zap.Logger) (storage.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch {
	case options.DatabaseDSN != "":
		zapLogger.Info("using postgres storage")
		db, err := repository.InitDB(ctx, options.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		return repository.NewPostgresRepository(db, zapLogger), nil

	case options.MongoURI != "":
		zapLogger.Info("using mongo storage", zap.String("database", options.MongoDatabase))
		r, err := repository.NewMongoRepository(ctx, options.MongoURI, options.MongoDatabase, zapLogger)
		if err != nil {
			return nil, fmt.Errorf("init mongo: %w", err)
		}
		return r, nil

	case options.FilePath != "":
		zapLogger.Info("using file storage", zap.String("filePath", options.FilePath))
		return storage.NewFileStorage(options.FilePath, zapLogger)

	default:
		zapLogger.Info("using in memory storage")
		return storage.CreateMemoryStorage()
	}
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	return cache.Connect(ctx, url)
}

// serve runs the API (and pprof when enabled) until ctx is done, then shuts
// the servers down gracefully.
func serve(ctx context.Context, options *config.Options, handler http.Handler, zapLogger *zap.Logger) error {
	srv := &http.Server{
		Addr:              options.ServerAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var tlsEnabled bool
	if options.EnableHTTPS {
		manager := &autocert.Manager{
			Cache:      autocert.DirCache("cache-dir"),
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(options.TLSHosts...),
		}
		srv.Addr = ":443"
		srv.TLSConfig = manager.TLSConfig()
		tlsEnabled = true
	}

	servers := []*http.Server{srv}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if tlsEnabled {
			zapLogger.Info("Server is running with TLS", zap.String("addr", srv.Addr), zap.Strings("hosts", options.TLSHosts))
			err = srv.ListenAndServeTLS("", "")
		} else {
			zapLogger.Info("Server is running", zap.String("addr", srv.Addr))
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	if options.EnablePprof {
		pprofSrv := &http.Server{
			Addr:              pprofAddr,
			Handler:           http.DefaultServeMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		servers = append(servers, pprofSrv)

		g.Go(func() error {
			zapLogger.Info("Starting pprof server", zap.String("addr", pprofAddr))
			if err := pprofSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, s := range servers {
			errs = append(errs, s.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
