package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/GeorgiDimov1228/warehouse-management/internal/application/auth"
	"github.com/GeorgiDimov1228/warehouse-management/internal/application/ledger"
	"github.com/GeorgiDimov1228/warehouse-management/internal/application/plcsync"
	"github.com/GeorgiDimov1228/warehouse-management/internal/application/rfid"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/entity"
	"github.com/GeorgiDimov1228/warehouse-management/internal/domain/repository"
	"github.com/GeorgiDimov1228/warehouse-management/internal/infrastructure/opcua"
	"github.com/GeorgiDimov1228/warehouse-management/pkg/metrics"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC      *auth.UseCase
	RFIDService *rfid.Service
	Ledger      *ledger.Service
	Readers     ReaderStatusProvider
	OPCUAClient *opcua.Client
	SyncLoop    *plcsync.Loop
	Bindings    []entity.NodeBinding

	InventoryRepo   repository.InventoryRepository
	ItemRepo        repository.ItemRepository
	CabinetRepo     repository.CabinetRepository
	TransactionRepo repository.TransactionRepository
	CategoryRepo    repository.CategoryRepository

	Metrics   *metrics.Metrics
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	api := app.Group("/api")

	// Auth (público)
	authGroup := api.Group("/auth")
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup.Post("/login", authHandler.Login)

	rfidHandler := NewRFIDHandler(deps.RFIDService, deps.AuthUC, deps.Readers)

	// Autenticación por tag RFID (público: es el login del operario en planta)
	api.Post("/rfid/auth", rfidHandler.Auth)

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Operaciones RFID (protegido)
	rfidGroup := protected.Group("/rfid")
	rfidGroup.Post("/load", rfidHandler.Load)
	rfidGroup.Post("/get", rfidHandler.Get)
	rfidGroup.Post("/move", rfidHandler.Move)
	rfidGroup.Post("/scan", rfidHandler.Scan)
	rfidGroup.Get("/readers/status", rfidHandler.ReadersStatus)
	rfidGroup.Get("/tags/:tag/history", rfidHandler.TagHistory)

	// Enlace OPC UA y lazo de sincronización (protegido)
	opcuaGroup := protected.Group("/opcua")
	opcuaHandler := NewOPCUAHandler(deps.OPCUAClient, deps.SyncLoop, deps.Bindings)
	opcuaGroup.Get("/status", opcuaHandler.Status)
	opcuaGroup.Post("/read", opcuaHandler.Read)
	opcuaGroup.Post("/write", RequireRole("admin"), opcuaHandler.Write)
	opcuaGroup.Get("/item-count", opcuaHandler.ItemCount)
	opcuaGroup.Post("/item-count", RequireRole("admin"), opcuaHandler.SetItemCount)
	opcuaGroup.Get("/traffic-light", opcuaHandler.TrafficLight)
	opcuaGroup.Post("/traffic-light", RequireRole("admin"), opcuaHandler.SetTrafficLight)
	opcuaGroup.Post("/hmi-command", RequireRole("admin"), opcuaHandler.HMICommand)
	opcuaGroup.Post("/sync", opcuaHandler.Sync)
	opcuaGroup.Post("/reset", RequireRole("admin"), opcuaHandler.Reset)

	// Vistas de inventario y ledger (protegido)
	inventoryHandler := NewInventoryHandler(deps.InventoryRepo, deps.ItemRepo, deps.CabinetRepo, deps.TransactionRepo, deps.CategoryRepo, deps.Ledger)
	protected.Get("/categories", inventoryHandler.Categories)
	protected.Get("/inventory", inventoryHandler.List)
	protected.Get("/inventory/items/:id/location", inventoryHandler.ItemLocation)
	protected.Post("/inventory/rebuild", RequireRole("admin"), inventoryHandler.Rebuild)
	protected.Get("/transactions", inventoryHandler.Transactions)
}
