// Package models contains persistence-only GORM models: tables owned by the
// service that have no domain aggregate behind them.
//
// Marketplace orders, items, audit entries, returns, disputes and channels are
// mapped directly from their domain structs. The stock ledger tables live here
// because the domain only sees them through integration.InventoryAdjuster.
package models
