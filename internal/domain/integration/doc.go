// Package integration contains the marketplace order reconciliation context.
// It keeps local MarketplaceOrder records consistent with the remote marketplace,
// which reports order facts through two overlapping channels: a periodic
// pull-based sync and an at-least-once push notification stream.
//
// Key concepts:
//   - MarketplaceOrder: aggregate root, one per channel and external order id
//   - StatusSignals: the raw facts the status resolver derives statuses from
//   - NormalizedOrder: canonical order shape produced from either channel
//   - EventType: closed set of notification kinds, looked up from raw event names
//   - OrderAuditEntry: append-only, per-order ordered event log
//
// Design Pattern: Ports & Adapters
//   - Ports (repositories, transport, inventory and address collaborators) are defined here
//   - Adapters (implementations) are in the infrastructure layer
package integration
