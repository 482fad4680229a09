package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"wedding-rsvp/internal/admin"
	"wedding-rsvp/internal/api"
	"wedding-rsvp/internal/config"
	"wedding-rsvp/internal/directory"
	"wedding-rsvp/internal/handler"
	"wedding-rsvp/internal/logging"
	"wedding-rsvp/internal/match"
	"wedding-rsvp/internal/rsvp"
	"wedding-rsvp/internal/sheets"
	"wedding-rsvp/internal/storage"
	"wedding-rsvp/internal/whatsapp"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	opts := []fx.Option{fx.Supply(cfg)}
	opts = append(opts, provideOptions()...)
	if cfg.WhatsApp.Enabled {
		opts = append(opts, whatsappOptions()...)
	}
	if cfg.Console {
		opts = append(opts, fx.Invoke(startConsole))
	}
	opts = append(opts, fx.Invoke(run))
	if cfg.IsProduction {
		opts = append(opts, fx.NopLogger)
	}

	fx.New(opts...).Run()
}

func provideOptions() []fx.Option {
	return []fx.Option{
		fx.Provide(provideLogger),
		fx.Provide(provideStore),
		fx.Provide(directory.NewBus),
		fx.Provide(directory.NewRepository),
		fx.Provide(func(cfg *config.Config) *match.Matcher {
			return match.New(cfg.MatchThreshold)
		}),
		fx.Provide(func(repo *directory.Repository, m *match.Matcher, log zerolog.Logger) *rsvp.Engine {
			return rsvp.NewEngine(repo, m, log)
		}),
		fx.Provide(func(repo *directory.Repository, log zerolog.Logger) *admin.Service {
			return admin.NewService(repo, log)
		}),
		fx.Provide(provideServer),
		fx.Invoke(registerControllers),
	}
}

func whatsappOptions() []fx.Option {
	return []fx.Option{
		fx.Provide(provideWhatsApp),
		fx.Provide(provideRSVPHandler),
		fx.Invoke(wireWhatsApp),
	}
}

func provideLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.LogLevel, cfg.IsProduction)
}

// provideStore opens the guest directory backend named by BACKEND
func provideStore(cfg *config.Config, log zerolog.Logger, lc fx.Lifecycle) (directory.Store, error) {
	switch cfg.Backend {
	case "sheets":
		log.Info().Msg("Using the Google Sheets guest list")
		return sheets.NewClient(cfg.SheetsURL, cfg.HTTPTimeout, log), nil
	case "memory":
		log.Warn().Msg("Using an in-memory guest list, changes are lost on exit")
		return directory.NewMemoryStore(), nil
	}

	store, err := storage.NewStorage(cfg.DatabasePath, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

func provideServer(cfg *config.Config, log zerolog.Logger) *fiber.App {
	return api.CreateServer(api.ServerConfig{
		AppName:      cfg.AppName,
		Timeout:      cfg.Timeout,
		BodyLimit:    cfg.BodyLimit,
		IsProduction: cfg.IsProduction,
	}, log)
}

func registerControllers(app *fiber.App, cfg *config.Config, engine *rsvp.Engine, svc *admin.Service) {
	api.RegisterRSVPController(app, &api.RSVPController{Engine: engine})
	api.RegisterGuestController(app, api.AdminOnly(cfg.AdminToken), &api.GuestController{Admin: svc})
}

func provideWhatsApp(cfg *config.Config, log zerolog.Logger, lc fx.Lifecycle) (*whatsapp.Service, error) {
	svc, err := whatsapp.NewService(context.Background(), &whatsapp.Config{
		DataDir:     cfg.WhatsApp.DataDir,
		CountryCode: cfg.WhatsApp.DefaultCountryCode,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize WhatsApp service: %w", err)
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// the first login waits for a QR scan, so it must not hold up startup
			go func() {
				if err := svc.Connect(context.Background()); err != nil {
					log.Error().Err(err).Msg("Error connecting to WhatsApp")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			svc.Disconnect()
			return nil
		},
	})
	return svc, nil
}

func provideRSVPHandler(svc *whatsapp.Service, repo *directory.Repository, engine *rsvp.Engine, cfg *config.Config, log zerolog.Logger) *handler.RSVPHandler {
	return handler.NewRSVPHandler(svc, repo, engine, &handler.Config{
		CountryCode:     cfg.WhatsApp.DefaultCountryCode,
		WeddingDate:     cfg.Wedding.Date,
		WeddingLocation: cfg.Wedding.Location,
		BrideName:       cfg.Wedding.BrideName,
		GroomName:       cfg.Wedding.GroomName,
	}, log)
}

// wireWhatsApp routes incoming chats to the handler and lets it follow
// directory changes.
func wireWhatsApp(svc *whatsapp.Service, h *handler.RSVPHandler, repo *directory.Repository, lc fx.Lifecycle) {
	svc.SetMessageHandler(h.HandleText)

	ctx, cancel := context.WithCancel(context.Background())
	events, unsubscribe := repo.Bus().Subscribe(64)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go h.Run(ctx, events)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			unsubscribe()
			return nil
		},
	})
}

func run(app *fiber.App, cfg *config.Config, log zerolog.Logger, lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			errChan := make(chan error, 1)

			go func() {
				errChan <- app.Listen(cfg.ListenAddr)
			}()

			select {
			case err := <-errChan:
				return err
			case <-time.After(100 * time.Millisecond):
				log.Info().Str("addr", cfg.ListenAddr).Str("backend", cfg.Backend).Msg("Server listening")
				return nil
			}
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})
}
