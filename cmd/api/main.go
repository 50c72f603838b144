package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/GeorgiDimov1228/warehouse-management/internal/application/auth"
	"github.com/GeorgiDimov1228/warehouse-management/internal/application/ledger"
	"github.com/GeorgiDimov1228/warehouse-management/internal/application/plcsync"
	apprfid "github.com/GeorgiDimov1228/warehouse-management/internal/application/rfid"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	infraopcua "github.com/GeorgiDimov1228/warehouse-management/internal/infrastructure/opcua"
	"github.com/GeorgiDimov1228/warehouse-management/internal/infrastructure/postgres"
	infrarfid "github.com/GeorgiDimov1228/warehouse-management/internal/infrastructure/rfid"
	httpRouter "github.com/GeorgiDimov1228/warehouse-management/internal/interfaces/http"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/config"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/logger"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/metrics"
)

// nodeBindings mapea las señales del almacén a nodos del namespace configurado.
func nodeBindings(namespace int) []entity.NodeBinding {
	node := func(name string) string { return fmt.Sprintf("ns=%d;s=%s", namespace, name) }
	return []entity.NodeBinding{
		{Name: entity.BindingItemCount, NodeID: node("ItemCount"), Direction: entity.DirectionWrite},
		{Name: entity.BindingTrafficLight, NodeID: node("TrafficLight"), Direction: entity.DirectionWrite},
		{Name: entity.BindingHMIStatus, NodeID: node("HMIStatus"), Direction: entity.DirectionWrite},
		{Name: entity.BindingHMICommand, NodeID: node("HMICommand"), Direction: entity.DirectionBoth},
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	m := metrics.New()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	itemRepo := postgres.NewItemRepository(pool)
	staffRepo := postgres.NewStaffRepository(pool)
	cabinetRepo := postgres.NewCabinetRepository(pool)
	categoryRepo := postgres.NewCategoryRepository(pool)
	invRepo := postgres.NewInventoryRepository(pool)
	txRepo := postgres.NewTransactionRepository(pool)
	trackRepo := postgres.NewTrackingRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	ledgerSvc := ledger.NewService(txRunner, cabinetRepo, log, m)
	rfidSvc := apprfid.NewService(itemRepo, staffRepo, cabinetRepo, invRepo, trackRepo, ledgerSvc, log)
	authUC := auth.NewUseCase(staffRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	// Enlace OPC UA con el PLC
	opcClient := infraopcua.NewClient(infraopcua.Config{
		Endpoint:       cfg.OPCUA.Endpoint,
		ConnectTimeout: cfg.OPCUA.ConnectTimeout,
		RequestTimeout: cfg.OPCUA.RequestTimeout,
		InitialBackoff: cfg.OPCUA.InitialBackoff,
		MaxBackoff:     cfg.OPCUA.MaxBackoff,
		MaxRetries:     cfg.OPCUA.MaxRetries,
	}, infraopcua.NewGopcuaTransport(cfg.OPCUA.Endpoint), log, m)

	bindings := nodeBindings(cfg.OPCUA.Namespace)
	syncLoop := plcsync.NewLoop(opcClient, invRepo, cabinetRepo, bindings, plcsync.Config{
		Interval:        cfg.Sync.Interval,
		YellowThreshold: cfg.Sync.YellowThreshold,
		RedThreshold:    cfg.Sync.RedThreshold,
	}, log, m)

	// Cada transacción confirmada provoca un ciclo de sincronización inmediato.
	ledgerSvc.OnCommit(syncLoop.Trigger)

	// Deduplicación de escaneos: Redis si está configurado, memoria si no.
	var deduper infrarfid.Deduper
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		deduper = infrarfid.NewRedisDeduper(rdb, cfg.RFID.DedupeWindow, log)
	} else {
		deduper = infrarfid.NewMemoryDeduper(cfg.RFID.DedupeWindow)
	}
	readerManager := infrarfid.NewManager(cfg.RFID, deduper, log, m)

	go opcClient.Run(ctx)
	go syncLoop.Run(ctx)
	go readerManager.Run(ctx)

	// Consumidor de escaneos: cada lectura deduplicada pasa por el servicio RFID.
	go func() {
		for ev := range readerManager.Events() {
			if _, err := rfidSvc.ProcessEvent(ctx, ev.ReaderID, ev.Tag, ev.Timestamp, syncLoop.OperationMode()); err != nil {
				log.Warn().Err(err).Str("reader", ev.ReaderID).Str("tag", ev.Tag).Msg("procesando lectura")
			}
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Warehouse Management API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.Map{
			"status":  "ok",
			"service": cfg.App.Name,
			"plc":     infraopcua.StateName(opcClient.State()),
			"stale":   syncLoop.Stale(),
		}
		if err := pool.Ping(c.Context()); err != nil {
			status["status"] = "degraded"
			status["db"] = err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(status)
		}
		return c.JSON(status)
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:          authUC,
		RFIDService:     rfidSvc,
		Ledger:          ledgerSvc,
		Readers:         readerManager,
		OPCUAClient:     opcClient,
		SyncLoop:        syncLoop,
		Bindings:        bindings,
		InventoryRepo:   invRepo,
		ItemRepo:        itemRepo,
		CabinetRepo:     cabinetRepo,
		TransactionRepo: txRepo,
		CategoryRepo:    categoryRepo,
		Metrics:         m,
		JWTSecret:       cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
