package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/dealer-stock-api/internal/application/inventory"
	"github.com/jhoicas/dealer-stock-api/internal/infrastructure/kafka"
	"github.com/jhoicas/dealer-stock-api/internal/infrastructure/metrics"
	"github.com/jhoicas/dealer-stock-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/dealer-stock-api/internal/infrastructure/redis"
	"github.com/jhoicas/dealer-stock-api/internal/infrastructure/xlsx"
	httpRouter "github.com/jhoicas/dealer-stock-api/internal/interfaces/http"
	"github.com/jhoicas/dealer-stock-api/pkg/config"
	"github.com/jhoicas/dealer-stock-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
		App:   cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("warehouse_id", cfg.Stock.WarehouseID).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.MigrateOnStart {
		if err := postgres.Migrate(pool); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		log.Info().Msg("migraciones aplicadas")
	}

	deps := inventory.Deps{
		Tx:  postgres.NewTxRunner(pool),
		Log: log.Component("inventory"),
	}

	// Bloqueo por ámbito entre réplicas; sin Redis la serialización queda en manos de SELECT FOR UPDATE.
	if cfg.Redis.URL != "" {
		client, err := infraredis.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer client.Close()
		deps.Locker = infraredis.NewLocker(client, time.Duration(cfg.Redis.LockTTLSeconds)*time.Second, log.Component("locker"))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar publicador Kafka")
			}
		}()
		deps.Events = publisher
	}

	var observer *metrics.Observer
	if cfg.Metrics.Enabled {
		observer = metrics.New("dealer")
		deps.Observer = observer
	}

	repos := postgres.Repos(pool)
	allocationUC := inventory.NewAllocationUseCase(postgres.NewRecipeRepository(pool), repos.Batches, deps)
	commitUC := inventory.NewCommitUseCase(deps)
	reversalUC := inventory.NewReversalUseCase(deps)
	lifecycleUC := inventory.NewLifecycleUseCase(repos.Batches, repos.Recertifications, cfg.Stock.RecertificationDays, deps)
	warrantyUC := inventory.NewWarrantyUseCase(repos.Warranties, allocationUC, commitUC, reversalUC, deps)
	receiptUC := inventory.NewReceiptUseCase(repos.Receipts, reversalUC, xlsx.ReceiptImporter{}, cfg.Stock.WarehouseID, deps)
	deliveryUC := inventory.NewDeliveryUseCase(repos.Deliveries, reversalUC, cfg.Stock.WarehouseID, deps)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    8 * 1024 * 1024, // importaciones .xlsx
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Dealer Stock API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	routerDeps := httpRouter.RouterDeps{
		Allocation:  allocationUC,
		Warranty:    warrantyUC,
		Lifecycle:   lifecycleUC,
		Receipt:     receiptUC,
		Delivery:    deliveryUC,
		Log:         log.Component("http"),
		JWTSecret:   cfg.JWT.Secret,
		WarehouseID: cfg.Stock.WarehouseID,
	}
	if observer != nil {
		routerDeps.Metrics = observer.Handler()
	}
	httpRouter.Router(app, routerDeps)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
