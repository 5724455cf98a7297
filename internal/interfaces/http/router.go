package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jhoicas/dealer-stock-api/internal/application/inventory"
	"github.com/jhoicas/dealer-stock-api/pkg/jwt"
	"github.com/jhoicas/dealer-stock-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Allocation  *inventory.AllocationUseCase
	Warranty    *inventory.WarrantyUseCase
	Lifecycle   *inventory.LifecycleUseCase
	Receipt     *inventory.ReceiptUseCase
	Delivery    *inventory.DeliveryUseCase
	Metrics     http.Handler // nil = sin /metrics
	Log         *logger.Logger
	JWTSecret   string
	WarehouseID string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Log != nil {
		app.Use(RequestLogger(deps.Log))
	}
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	anyRole := RequireRole(jwt.RoleAdmin, jwt.RoleWarehouse, jwt.RoleDealer)
	warehouseOnly := RequireRole(jwt.RoleAdmin, jwt.RoleWarehouse)

	allocationHandler := NewAllocationHandler(deps.Allocation, deps.WarehouseID)
	protected.Post("/allocations/preview", anyRole, allocationHandler.Preview)

	// Garantías: distribuidores sobre su propio stock, admin sobre cualquiera.
	warranties := protected.Group("/warranties", RequireRole(jwt.RoleAdmin, jwt.RoleDealer))
	warrantyHandler := NewWarrantyHandler(deps.Warranty)
	warranties.Post("/", warrantyHandler.Issue)
	warranties.Get("/:id", warrantyHandler.GetByID)
	warranties.Put("/:id", warrantyHandler.Update)
	warranties.Delete("/:id", warrantyHandler.Delete)

	batches := protected.Group("/batches", anyRole)
	batchHandler := NewBatchHandler(deps.Lifecycle, deps.WarehouseID)
	batches.Get("/", batchHandler.List)
	batches.Get("/:id", batchHandler.GetByID)
	batches.Get("/:id/recertifications", batchHandler.History)
	batches.Post("/:id/recertify", warehouseOnly, batchHandler.Recertify)

	receipts := protected.Group("/receipts", warehouseOnly)
	receiptHandler := NewReceiptHandler(deps.Receipt)
	receipts.Post("/", receiptHandler.Create)
	receipts.Post("/import", receiptHandler.Import)
	receipts.Delete("/:id", receiptHandler.Delete)

	deliveries := protected.Group("/deliveries", warehouseOnly)
	deliveryHandler := NewDeliveryHandler(deps.Delivery)
	deliveries.Post("/", deliveryHandler.Create)
	deliveries.Delete("/:id", deliveryHandler.Delete)
}
