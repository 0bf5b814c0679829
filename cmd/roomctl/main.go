package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/diagnosis/roomstay/internal/client"
	"github.com/diagnosis/roomstay/internal/registry"
	"github.com/diagnosis/roomstay/internal/session"
	"github.com/diagnosis/roomstay/internal/storage"
	"github.com/diagnosis/roomstay/internal/workflow"
	"github.com/diagnosis/roomstay/pkg/config"
	"github.com/diagnosis/roomstay/pkg/database"
	"github.com/diagnosis/roomstay/pkg/events"
	"github.com/diagnosis/roomstay/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := config.Load()
	logger.SetDefault(logger.New(os.Stderr, os.Getenv("LOG_LEVEL")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("roomctl exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	kv, closeKV, err := openSessionStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeKV()

	store, err := session.Open(ctx, kv)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}

	var pub events.Publisher = events.Noop{}
	if cfg.NATS.URL != "" {
		natsPub, err := events.NewNATSPublisher(cfg.NATS.URL)
		if err != nil {
			logger.Warn("Event publishing disabled", "error", err)
		} else {
			pub = natsPub
			session.PublishInvalidations(store, pub)
		}
	}
	defer pub.Close()

	api := client.New(registry.FromConfig(cfg.Services), store, client.WithTimeout(cfg.HTTP.Timeout))

	sh := newShell(os.Stdin, os.Stdout)
	attach(sh, api, store, pub, workflow.Options{
		EnforceDateOrder: cfg.Validation.EnforceDateOrder,
		HydrateRooms:     cfg.Workflow.HydrateReservationRooms,
	})

	logger.Info("roomctl started",
		"session_backend", cfg.Session.Backend,
		"users", cfg.Services.Users,
		"search", cfg.Services.Search,
		"hotels", cfg.Services.Hotels,
		"reservations", cfg.Services.Reservations,
	)

	return sh.Run(ctx)
}

// attach builds the controller around the shell, which serves as both its
// navigator and its prompt, and sends the user to login when the session dies.
func attach(sh *shell, api *client.Client, store *session.Store, pub events.Publisher, opts workflow.Options) {
	store.OnInvalidate(func(session.Notice) {
		sh.Navigate(workflow.ScreenLogin)
	})

	deps := workflow.DepsFromClient(api)
	deps.Session = store
	deps.Prompt = sh
	deps.Navigator = sh
	deps.Events = pub
	deps.Options = opts

	sh.ctrl = workflow.NewController(deps)
	sh.store = store
}

func openSessionStorage(ctx context.Context, cfg *config.Config) (storage.KV, func(), error) {
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		kv, err := storage.NewRedisKV(ctx, cfg.Redis, cfg.Session.KeyPrefix)
		if err != nil {
			return nil, nil, err
		}
		return kv, func() { _ = kv.Close() }, nil

	case config.SessionBackendPostgres:
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		kv := storage.NewSQLKV(db, cfg.Session.KeyPrefix)
		if err := kv.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to prepare session table: %w", err)
		}
		return kv, func() { _ = db.Close() }, nil

	case config.SessionBackendFile, "":
		kv, err := storage.NewFileKV(cfg.Session.File)
		if err != nil {
			return nil, nil, err
		}
		return kv, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}
