package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventario-ledger/internal/application/analytics"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	domaininv "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
	"github.com/jhoicas/inventario-ledger/internal/interfaces/messaging"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

// stores repositorios y transacciones del driver elegido.
type stores struct {
	tx        inventory.TxRunner
	events    repository.ChangeEventRepository
	stocks    repository.StockRepository
	catalog   repository.CatalogRepository
	forecasts repository.ForecastRepository
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Ledger.StoreDriver).
		Str("lock", cfg.Ledger.LockDriver).
		Msg("iniciando aplicación")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := openStores(ctx, cfg, log)
	defer st.close()

	var locker inventory.KeyLocker
	switch cfg.Ledger.LockDriver {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("conexión a Redis")
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, cfg.Ledger.LockTimeout, log)
	default:
		locker = lock.NewLocalLocker(cfg.Ledger.LockTimeout)
	}

	coord := inventory.NewFulfillmentCoordinator(st.tx, locker, domaininv.NewClassifier(cfg.Ledger.LowStockThreshold), log)
	recon := inventory.NewReconstructionUseCase(st.events, st.stocks, st.catalog, coord, log)
	queries := inventory.NewStockQueryUseCase(st.events, st.stocks)

	deps := httpRouter.RouterDeps{
		Coordinator:    coord,
		Reconstruction: recon,
		Queries:        queries,
		Dashboard:      analytics.NewDashboardUseCase(st.stocks, st.events),
		JWTSecret:      cfg.JWT.Secret,
	}

	// Reposición automática: independiente del servidor HTTP.
	if cfg.Restock.Enabled {
		scheduler := inventory.NewRestockScheduler(st.stocks, st.forecasts, recon, coord, inventory.RestockPolicy{
			Interval:      cfg.Restock.Interval,
			TargetLevel:   cfg.Restock.TargetLevel,
			AutomatedOnly: cfg.Restock.AutomatedOnly,
			Concurrency:   cfg.Restock.Concurrency,
		}, log)
		deps.Sweeper = scheduler
		go scheduler.Start(ctx)
	}

	if cfg.Kafka.Enabled() {
		reader := messaging.NewReader(cfg.Kafka)
		defer reader.Close()
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.OrderTopic).Msg("consumidor de pedidos configurado")
		go messaging.NewOrderListener(reader, coord, queries, log).Start(ctx)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI: http://localhost:<port>/docs
	if cfg.HTTP.DocsPath != "" {
		if err := httpRouter.MountDocs(app, cfg.HTTP.DocsPath, cfg.App.Name); err != nil {
			log.Warn().Err(err).Msg("Swagger UI deshabilitado")
		}
	}

	httpRouter.Router(app, deps)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func openStores(ctx context.Context, cfg *config.Config, log *logger.Logger) stores {
	if cfg.Ledger.StoreDriver == "memory" {
		log.Warn().Msg("store en memoria: el ledger se pierde al reiniciar")
		s := memory.NewStore()
		return stores{
			tx:        memory.NewTxRunner(s),
			events:    s.Events(),
			stocks:    s.Stocks(),
			catalog:   s.Catalog(),
			forecasts: s.Forecasts(),
			close:     func() {},
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	if cfg.DB.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("migración del esquema")
		}
	}
	return stores{
		tx:        postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout),
		events:    postgres.NewChangeEventRepository(pool),
		stocks:    postgres.NewStockRepository(pool),
		catalog:   postgres.NewCatalogRepository(pool),
		forecasts: postgres.NewPredictionRepository(pool),
		close:     pool.Close,
	}
}
