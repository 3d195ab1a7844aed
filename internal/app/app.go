package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sbilibin2017/gw-todo/internal/config"
	"github.com/sbilibin2017/gw-todo/internal/grpcserver"
	"github.com/sbilibin2017/gw-todo/internal/jwt"
	"github.com/sbilibin2017/gw-todo/internal/logger"
	"github.com/sbilibin2017/gw-todo/internal/routers"
	"github.com/sbilibin2017/gw-todo/internal/services"
	"github.com/sbilibin2017/gw-todo/internal/storage"
	"github.com/sbilibin2017/gw-todo/internal/tracing"
	"github.com/segmentio/kafka-go"
)

const (
	shutdownTimeout   = 10 * time.Second
	kafkaBatchTimeout = 10 * time.Millisecond
)

// Config is the full configuration of one service binary.
type Config struct {
	Host     string `env:"APP_HOST" envDefault:"localhost"`
	Port     string `env:"APP_PORT"`
	LogLevel string `env:"APP_LOG_LEVEL" envDefault:"info"`

	config.Database
	config.JWT
	config.Kafka
	config.Observability
	config.CORS
}

// RouterFunc builds the HTTP handler of a service.
type RouterFunc func(cfg routers.Config) http.Handler

// Run initializes the logger, tracing, database, Kafka writer and optional
// gRPC health server, then serves HTTP until ctx is cancelled or a
// termination signal arrives.
func Run(ctx context.Context, service string, cfg Config, newRouter RouterFunc) error {
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Log.Sync()
	logger.Log.Infof("Logger initialized with level %s", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, service, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Log.Errorw("tracer shutdown error", "error", err)
		}
	}()

	logger.Log.Infow("Connecting to database", "driver", cfg.Driver)
	db, err := storage.Open(ctx, cfg.Driver, cfg.DSN, cfg.MaxOpenConns, cfg.MaxIdleConns)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.Migrate(ctx, db); err != nil {
		return err
	}

	var kafkaWriter services.KafkaWriter
	if writer := newKafkaWriter(cfg.Kafka); writer != nil {
		defer writer.Close()
		kafkaWriter = writer
	}

	handler := newRouter(routers.Config{
		DB: db,
		JWT: jwt.New(
			jwt.WithSecretKey(cfg.SecretKey),
			jwt.WithExpiration(cfg.Expiration),
		),
		KafkaWriter:    kafkaWriter,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	errChan := make(chan error, 2)

	if cfg.GRPCPort != "" {
		healthSrv, err := grpcserver.New(net.JoinHostPort(cfg.Host, cfg.GRPCPort), service, db)
		if err != nil {
			return err
		}
		go func() {
			if err := healthSrv.Serve(ctx); err != nil {
				errChan <- err
			}
		}()
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Log.Infof("HTTP server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Log.Info("Shutdown signal received, stopping HTTP server...")
	case serveErr := <-errChan:
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("HTTP server shutdown error", "error", err)
	}

	logger.Log.Info("HTTP server stopped gracefully")
	return nil
}

// newKafkaWriter returns nil when no brokers are configured. The writer is
// asynchronous: WriteMessages only enqueues and delivery results are reported
// to logKafkaCompletion.
func newKafkaWriter(cfg config.Kafka) *kafka.Writer {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           kafkaBatchTimeout,
		Async:                  true,
		Completion:             logKafkaCompletion,
		AllowAutoTopicCreation: true,
	}
}

func logKafkaCompletion(messages []kafka.Message, err error) {
	if err != nil {
		logger.Log.Errorw("Failed to deliver events to Kafka", "count", len(messages), "error", err)
		return
	}
	logger.Log.Debugw("Events delivered to Kafka", "count", len(messages))
}
