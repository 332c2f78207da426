// Package integration holds the application services that reconcile local
// marketplace orders with the marketplace: the order upsert engine used by the
// pull-based sync, and the notification dispatcher with its event handlers.
package integration
