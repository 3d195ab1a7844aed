package app

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sbilibin2017/gw-todo/internal/config"
	"github.com/sbilibin2017/gw-todo/internal/logger"
	"github.com/sbilibin2017/gw-todo/internal/routers"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func sqliteConfig() Config {
	return Config{
		Host:     "127.0.0.1",
		Port:     "0",
		LogLevel: "error",
		Database: config.Database{Driver: "sqlite", DSN: ":memory:"},
		JWT:      config.JWT{SecretKey: "secret", Expiration: time.Hour},
	}
}

func TestNewKafkaWriter(t *testing.T) {
	assert.Nil(t, newKafkaWriter(config.Kafka{}))
	assert.Nil(t, newKafkaWriter(config.Kafka{Brokers: []string{"localhost:9092"}}))

	w := newKafkaWriter(config.Kafka{Brokers: []string{"localhost:9092", "localhost:9093"}, Topic: "todo-events"})
	require.NotNil(t, w)
	assert.Equal(t, "todo-events", w.Topic)
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.True(t, w.Async)
	assert.Equal(t, 10*time.Millisecond, w.BatchTimeout)
	require.NotNil(t, w.Completion)
}

func TestLogKafkaCompletion(t *testing.T) {
	originalLog := logger.Log
	defer func() { logger.Log = originalLog }()

	core, logs := observer.New(zap.DebugLevel)
	logger.Log = zap.New(core).Sugar()

	msgs := []kafka.Message{{Value: []byte("a")}, {Value: []byte("b")}}

	logKafkaCompletion(msgs, errors.New("broker down"))
	logKafkaCompletion(msgs, nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.EqualValues(t, 2, entries[0].ContextMap()["count"])
	assert.Equal(t, "broker down", entries[0].ContextMap()["error"])
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
}

func TestRun_InvalidLogLevel(t *testing.T) {
	cfg := sqliteConfig()
	cfg.LogLevel = "loud"

	err := Run(context.Background(), "users", cfg, routers.NewUsersRouter)
	assert.Error(t, err)
}

func TestRun_UnsupportedDriver(t *testing.T) {
	cfg := sqliteConfig()
	cfg.Driver = "mysql"

	err := Run(context.Background(), "users", cfg, routers.NewUsersRouter)
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestRun_GracefulShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	called := make(chan struct{}, 1)
	newRouter := func(cfg routers.Config) http.Handler {
		assert.NotNil(t, cfg.DB)
		assert.NotNil(t, cfg.JWT)
		assert.Nil(t, cfg.KafkaWriter)
		called <- struct{}{}
		return routers.NewTodosRouter(cfg)
	}

	done := make(chan error, 1)
	go func() { done <- Run(ctx, "todos", sqliteConfig(), newRouter) }()

	select {
	case <-called:
	case err := <-done:
		t.Fatalf("run stopped early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("router was never built")
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestRun_WithGRPCHealth(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := sqliteConfig()
	cfg.GRPCPort = "0"

	done := make(chan error, 1)
	go func() { done <- Run(ctx, "users", cfg, routers.NewUsersRouter) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}
}
