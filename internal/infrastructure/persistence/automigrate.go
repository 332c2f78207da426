package persistence

import (
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// AllModels lists every table owned by this service, in dependency order.
func AllModels() []any {
	return []any{
		&integration.MarketplaceChannel{},
		&integration.MarketplaceOrder{},
		&integration.MarketplaceOrderItem{},
		&integration.OrderAuditEntry{},
		&integration.OrderReturn{},
		&integration.OrderDispute{},
		&models.StockLevel{},
		&models.StockMovement{},
	}
}

// AutoMigrate creates or updates the schema from the models. Production
// deployments apply the SQL migrations instead; this serves tests and local runs.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
