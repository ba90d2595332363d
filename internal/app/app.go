package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"yard-placement-service/internal/adapters/events"
	"yard-placement-service/internal/adapters/repositories"
	"yard-placement-service/internal/config"
	"yard-placement-service/internal/domain"
	"yard-placement-service/internal/platform/db"
	"yard-placement-service/internal/ports"
	"yard-placement-service/internal/services"

	"go.uber.org/multierr"
)

// App is the composition root shared by the server and yardtool. It picks
// concrete adapters from configuration and wires them behind the ports.
type App struct {
	Config   config.Config
	Topology *domain.Topology
	Service  *services.PlacementService
	DB       *sql.DB // nil for the in-memory store

	// Publisher is nil when REDIS_URL is empty.
	Publisher *events.RedisPublisher

	closers []func() error
}

func New(ctx context.Context, cfg config.Config) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			err = multierr.Append(err, a.Close())
		}
	}()

	topo, err := config.LoadTopology(cfg.TopologyPath)
	if err != nil {
		return nil, err
	}
	if cfg.Alternatives > 0 {
		topo.Ranking.Alternatives = cfg.Alternatives
	}
	a.Topology = topo

	var (
		registry ports.ContainerRegistry
		store    ports.PlacementStore
	)
	if cfg.DatabaseURL == "" {
		registry, store, err = memoryAdapters(cfg.SeedPath)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "using in-memory placement store", "seed_path", cfg.SeedPath)
	} else {
		a.DB, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.DB.Close)

		if err := repositories.InitSchema(ctx, a.DB); err != nil {
			return nil, err
		}
		registry = repositories.NewPostgresContainerRegistry(a.DB)
		store = repositories.NewPostgresPlacementStore(a.DB)
		slog.InfoContext(ctx, "using postgres placement store")
	}

	var opts []services.Option
	if cfg.RedisURL != "" {
		pub, err := events.NewRedisPublisherFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.Publisher = pub
		a.closers = append(a.closers, pub.Close)
		opts = append(opts, services.WithPublisher(pub))
		slog.InfoContext(ctx, "publishing placement events", "channel", pub.Channel())
	}

	a.Service, err = services.NewPlacementService(topo, registry, store, opts...)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func memoryAdapters(seedPath string) (ports.ContainerRegistry, ports.PlacementStore, error) {
	containers, err := repositories.LoadContainerSeeds(seedPath)
	if err != nil {
		return nil, nil, fmt.Errorf("memory adapters: %w", err)
	}
	store, err := repositories.NewMemoryPlacementStore()
	if err != nil {
		return nil, nil, fmt.Errorf("memory adapters: %w", err)
	}
	return repositories.NewMemoryContainerRegistry(containers...), store, nil
}

// Close releases the database pool and the Redis client, in reverse order of opening.
func (a *App) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.closers = nil
	return err
}
