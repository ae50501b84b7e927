package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/riandyrn/otelchi"
	"github.com/tekio-be/leads/admin"
	"github.com/tekio-be/leads/ai"
	"github.com/tekio-be/leads/cache"
	"github.com/tekio-be/leads/handler"
	"github.com/tekio-be/leads/intake"
	"github.com/tekio-be/leads/mail"
	"github.com/tekio-be/leads/metrics"
	"github.com/tekio-be/leads/notify"
	"github.com/tekio-be/leads/pkg/database"
	"github.com/tekio-be/leads/postgres"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {

	log, err := newLog("leads-api")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run("leads-api", log); err != nil {
		log.Errorw("startup", "err", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(serverName string, log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	if err := loadEnvFile(); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg := struct {
		Http struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:75s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			Host            string        `conf:"default:0.0.0.0:3000"`
		}
		DB struct {
			User            string        `conf:"default:leadsvc"`
			Password        string        `conf:"default:leadsvc,mask"`
			Host            string        `conf:"default:localhost"`
			Name            string        `conf:"default:leads"`
			MaxIdleConns    int           `conf:"default:2"`
			MaxOpenConns    int           `conf:"default:10"`
			ConnMaxLifetime time.Duration `conf:"default:30m"`
			DisableTLS      bool          `conf:"default:true"`
			MigrateTimeout  time.Duration `conf:"default:30s"`
		}
		Jaeger struct {
			ReporterURI string  `conf:"default:http://localhost:14268/api/traces"`
			ServiceName string  `conf:"default:leadsvc-api"`
			Probability float64 `conf:"default:0.5"`
		}
		Webhook struct {
			URL     string
			Website string        `conf:"default:tekio.be"`
			Timeout time.Duration `conf:"default:10s"`
		}
		AI struct {
			APIKey  string        `conf:"mask"`
			BaseURL string        `conf:"default:https://ai.gateway.lovable.dev/v1"`
			Model   string        `conf:"default:google/gemini-2.5-flash"`
			Timeout time.Duration `conf:"default:60s"`
		}
		Mail struct {
			Host     string
			Port     int    `conf:"default:587"`
			User     string
			Password string `conf:"mask"`
			From     string
			To       string `conf:"default:info@tekio.be"`
		}
		Redis struct {
			Addr     string
			Password string        `conf:"mask"`
			DB       int           `conf:"default:0"`
			TTL      time.Duration `conf:"default:5m"`
		}
		CORS struct {
			AllowedOrigins []string `conf:"default:*"`
		}
	}{}

	help, err := conf.Parse("LEAD", &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Database Support

	// Create connectivity to the database.
	log.Infow("startup", "status", "initializing database support", "host", cfg.DB.Host)

	db, err := database.Open(database.Config{
		User:            cfg.DB.User,
		Password:        cfg.DB.Password,
		Host:            cfg.DB.Host,
		Name:            cfg.DB.Name,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		DisableTLS:      cfg.DB.DisableTLS,
	})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() {
		log.Infow("shutdown", "status", "stopping database support", "host", cfg.DB.Host)
		db.Close()
	}()

	// =========================================================================
	// Update database schema

	log.Infow("startup", "status", "updating database schema", "database", cfg.DB.Name, "host", cfg.DB.Host)

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), cfg.DB.MigrateTimeout)
	defer cancelMigrate()

	if err := postgres.Migrate(migrateCtx, db); err != nil {
		return fmt.Errorf("updating database schema: %w", err)
	}

	// =========================================================================
	// Start Tracing Support

	log.Infow("startup", "status", "initializing OT/Jaeger tracing support")

	traceProvider, err := startTracing(
		cfg.Jaeger.ServiceName,
		cfg.Jaeger.ReporterURI,
		cfg.Jaeger.Probability,
	)
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	defer traceProvider.Shutdown(context.Background())

	// =========================================================================
	// Cache Support

	var leadCache cache.LeadCache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		log.Infow("startup", "status", "initializing redis cache", "addr", cfg.Redis.Addr)

		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		leadCache = cache.NewRedis(rdb, cfg.Redis.TTL)
	}

	// =========================================================================
	// Outbound clients

	if cfg.Webhook.URL == "" {
		log.Warnw("startup", "status", "webhook url not configured, leads will not be forwarded")
	}

	dispatcher := notify.NewDispatcher(notify.Config{
		URL:     cfg.Webhook.URL,
		Website: cfg.Webhook.Website,
		Timeout: cfg.Webhook.Timeout,
	}, log)

	generator := ai.NewClient(ai.Config{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	}, log)

	notifier := mail.NewNotifier(mail.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.User,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		To:       cfg.Mail.To,
		Website:  cfg.Webhook.Website,
	}, log)

	// =========================================================================
	// Create router

	log.Infow("startup", "status", "initializing router")

	otelLog := otelzap.New(log.Desugar(), otelzap.WithStackTrace(true)).Sugar()

	leadStore := postgres.NewLeadStore(db)
	intakeService := intake.NewService(leadStore, dispatcher, leadCache, log)
	adminService := admin.NewService(leadStore, leadCache, generator, log)

	leadHandler := handler.NewLeadHandler(intakeService, adminService, otelLog)
	functionHandler := handler.NewFunctionHandler(notifier, generator, dispatcher, otelLog)
	healthHandler := handler.NewHealthHandler(func(ctx context.Context) error {
		return database.StatusCheck(ctx, db)
	}, otelLog)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Client-Info", "Apikey"},
		MaxAge:         300,
	}))
	r.Use(otelchi.Middleware(serverName, otelchi.WithChiRoutes(r)))
	r.Use(metrics.Middleware)

	r.Get("/healthz", healthHandler.Readiness)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	handler.Register(r, leadHandler, functionHandler)

	// =========================================================================
	// Start API Server

	log.Infow("startup", "status", "initializing http server", "host", cfg.Http.Host)

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// The HTTP Server
	server := &http.Server{
		Addr:         cfg.Http.Host,
		Handler:      r,
		ReadTimeout:  cfg.Http.ReadTimeout,
		WriteTimeout: cfg.Http.WriteTimeout,
		IdleTimeout:  cfg.Http.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Http.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}

		// Requests are drained; give in-flight webhook posts the rest of the window.
		if err := dispatcher.Wait(ctx); err != nil {
			log.Warnw("shutdown", "status", "pending lead dispatches abandoned", "error", err.Error())
		}
	}

	return nil
}

// loadEnvFile loads .env, or the given files, into the environment. Only a
// missing file is tolerated.
func loadEnvFile(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func newLog(serviceName string) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	log, err := config.Build()
	if err != nil {
		return nil, err
	}

	return log.Sugar(), nil
}

func startTracing(serviceName, reporterURL string, probability float64) (*tracesdk.TracerProvider, error) {
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(reporterURL)))
	if err != nil {
		return nil, fmt.Errorf("creating new exporter: %w", err)
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithSampler(tracesdk.ParentBased(tracesdk.TraceIDRatioBased(probability))),
		tracesdk.WithBatcher(exp,
			tracesdk.WithMaxExportBatchSize(tracesdk.DefaultMaxExportBatchSize),
			tracesdk.WithBatchTimeout(tracesdk.DefaultScheduleDelay*time.Millisecond),
		),
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			attribute.String("exporter", "jaeger"),
		)),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}
