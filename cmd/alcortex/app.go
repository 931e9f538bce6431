package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/alcortex/emr/internal/config"
	"github.com/alcortex/emr/internal/domain/diagnosis"
	"github.com/alcortex/emr/internal/platform/archive"
	"github.com/alcortex/emr/internal/platform/db"
	"github.com/alcortex/emr/internal/platform/engine"
	"github.com/alcortex/emr/internal/platform/kv"
	"github.com/alcortex/emr/internal/platform/notify"
	"github.com/alcortex/emr/internal/platform/report"
)

// app holds the dependencies shared by the commands.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	store    kv.Store
	records  *diagnosis.RecordStore
	users    *diagnosis.UserStore
	notifier notify.Publisher
	archive  report.Archiver
	checks   []db.Check
	closers  []func()
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Str("service", "alcortex").Logger()
}

// loadConfig loads and validates configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newApp opens the configured store, archive and notifier. Callers must
// call close.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if err := a.openStore(ctx); err != nil {
		a.close()
		return nil, err
	}
	a.records = diagnosis.NewRecordStore(a.store)
	a.users = diagnosis.NewUserStore(a.store)
	a.checks = append(a.checks, db.Check{
		Name: "store",
		Ping: func(ctx context.Context) error {
			_, _, err := a.store.Get(ctx, diagnosis.UsersKey)
			return err
		},
	})

	if err := a.openArchive(ctx); err != nil {
		a.close()
		return nil, err
	}

	if len(cfg.KafkaBrokers) > 0 {
		a.notifier = notify.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaUrgentTopic)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaUrgentTopic).Msg("urgent cases published to kafka")
	} else {
		a.notifier = notify.NewLogPublisher(logger)
	}
	a.closers = append(a.closers, func() {
		if err := a.notifier.Close(); err != nil {
			logger.Warn().Err(err).Msg("close notifier")
		}
	})

	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	cfg := a.cfg
	switch cfg.StoreDriver {
	case config.StoreMemory:
		a.store = kv.NewMemoryStore()
	case config.StoreFile:
		fileStore, err := kv.NewFileStore(cfg.StorePath)
		if err != nil {
			return err
		}
		a.store = fileStore
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)
		a.checks = append(a.checks, db.PoolCheck(pool))
		a.store = kv.NewPGStore(pool)
	case config.StoreRedis:
		client, err := kv.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.checks = append(a.checks, db.Check{
			Name: "redis",
			Ping: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
		a.store = kv.NewRedisStore(client, cfg.RedisKeyPrefix)
	default:
		return fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	a.logger.Info().
		Str("driver", cfg.StoreDriver).
		Msg("record store opened")
	return nil
}

func (a *app) openArchive(ctx context.Context) error {
	switch a.cfg.ArchiveDriver {
	case config.ArchiveNone:
		a.archive = nil
	case config.ArchiveMemory:
		a.archive = archive.NewMemoryStore()
	case config.ArchiveS3:
		client, err := archive.NewS3Client(ctx, a.cfg.ArchiveEndpoint)
		if err != nil {
			return err
		}
		a.archive = archive.NewS3Store(client, a.cfg.ArchiveBucket, a.cfg.ArchivePrefix)
	default:
		return fmt.Errorf("unknown archive driver %q", a.cfg.ArchiveDriver)
	}
	return nil
}

// service builds the diagnosis service. It needs engine credentials.
func (a *app) service() (*diagnosis.Service, error) {
	if err := a.cfg.ValidateEngine(); err != nil {
		return nil, err
	}
	eng := engine.NewClient(engine.Config{
		BaseURL: a.cfg.EngineBaseURL,
		APIKey:  a.cfg.EngineAPIKey,
		Timeout: a.cfg.EngineTimeout,
	}, a.logger)
	return diagnosis.NewService(eng, a.records, a.notifier, diagnosis.ServiceConfig{
		Model:           a.cfg.EngineModel,
		ImageModel:      a.cfg.EngineImageModel,
		DefaultLanguage: a.cfg.DefaultLanguage,
	}, a.logger), nil
}

func (a *app) assembler() *report.Assembler {
	return report.NewAssembler(report.Config{
		Practice: a.cfg.PracticeName,
		Preparer: a.cfg.ReportPreparer,
	})
}

// session resolves a practitioner id for the CLI commands.
func (a *app) session(ctx context.Context, userID string) (diagnosis.Session, error) {
	if userID == "" {
		userID = a.cfg.DefaultPractitionerID
	}
	if userID == "" {
		return diagnosis.Session{}, fmt.Errorf("--user is required")
	}
	u, err := a.users.Get(ctx, userID)
	if err != nil {
		return diagnosis.Session{}, fmt.Errorf("practitioner %s: %w", userID, err)
	}
	return diagnosis.SessionFor(u), nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
