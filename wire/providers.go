package wire

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/QQHKX/rollcall-module/config"
	"github.com/QQHKX/rollcall-module/db/redis"
	"github.com/QQHKX/rollcall-module/events/kafka"
	"github.com/QQHKX/rollcall-module/game"
	"github.com/QQHKX/rollcall-module/logging"
	"github.com/QQHKX/rollcall-module/pkg/audio"
	"github.com/QQHKX/rollcall-module/provider"
	"github.com/QQHKX/rollcall-module/server"
)

// ProvideLogger provides a zerolog.Logger
func ProvideLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.Logging)
}

// ProvideRedisClient provides a Redis client, nil when no address is
// configured.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}
	return redis.New(cfg.Redis)
}

// ProvideStoreProvider provides the persistence layer: Redis-backed when a
// client is available, in-memory otherwise.
func ProvideStoreProvider(client *redis.Client, gameCfg *game.Config, logger zerolog.Logger) provider.StoreProvider {
	if client == nil {
		logger.Warn().Msg("No Redis configured; state will not survive restarts")
		return provider.NewMemoryStore(gameCfg.HistoryCapacity)
	}
	return provider.NewRedisStore(client, gameCfg.HistoryCapacity, logger)
}

// ProvideKafkaProducer provides the draw-event producer, nil when no
// brokers are configured.
func ProvideKafkaProducer(cfg *config.Config, logger zerolog.Logger) (*kafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	return kafka.NewProducerWithConfig(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
		Logger:  logger,
	})
}

// ProvideGameConfig loads the raffle game configuration, falling back to
// built-in defaults when no file is configured.
func ProvideGameConfig(cfg *config.Config) (*game.Config, error) {
	if cfg.Raffle.ConfigPath == "" {
		return game.DefaultConfig(), nil
	}
	return game.LoadConfig(cfg.Raffle.ConfigPath)
}

// ProvideAudioService provides the audio cue service.
func ProvideAudioService(logger zerolog.Logger) *audio.Service {
	return audio.NewService(audio.ServiceConfig{Logger: logger})
}

// ProvideRollcallService provides the rollcall service, rehydrated from the
// store.
func ProvideRollcallService(
	cfg *config.Config,
	gameCfg *game.Config,
	store provider.StoreProvider,
	producer *kafka.Producer,
	audioSvc *audio.Service,
	logger zerolog.Logger,
) (*server.RollcallService, error) {
	return server.NewRollcallService(
		context.Background(),
		gameCfg,
		store,
		producer,
		cfg.Kafka.DrawTopic(),
		audioSvc,
		nil,
		logger,
	)
}

// ProvideServerOptions provides server options
func ProvideServerOptions(cfg *config.Config, logger zerolog.Logger, svc *server.RollcallService, audioSvc *audio.Service) server.Options {
	return server.Options{
		Config:  cfg,
		Logger:  logger,
		Service: svc,
		Audio:   audioSvc,
	}
}

// ProvideApp provides the main application
func ProvideApp(opts server.Options) *server.App {
	return server.New(opts)
}

// ConfigSet is the wire provider set for configuration
var ConfigSet = wire.NewSet(
	config.Load,
	ProvideGameConfig,
)

// LoggingSet is the wire provider set for logging
var LoggingSet = wire.NewSet(
	ProvideLogger,
)

// StorageSet is the wire provider set for persistence
var StorageSet = wire.NewSet(
	ProvideRedisClient,
	ProvideStoreProvider,
)

// EventsSet is the wire provider set for the Kafka producer
var EventsSet = wire.NewSet(
	ProvideKafkaProducer,
)

// ServerSet is the wire provider set for server
var ServerSet = wire.NewSet(
	ProvideAudioService,
	ProvideRollcallService,
	ProvideServerOptions,
	ProvideApp,
)

// DefaultSet is the default wire provider set including all common providers
var DefaultSet = wire.NewSet(
	LoggingSet,
	ServerSet,
)

// FullSet includes all providers including storage and events
var FullSet = wire.NewSet(
	DefaultSet,
	StorageSet,
	EventsSet,
)
