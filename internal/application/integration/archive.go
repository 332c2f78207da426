package integration

import (
	"context"

	"go.uber.org/zap"
)

// NotificationArchive keeps a raw copy of every notification for replay
type NotificationArchive interface {
	Store(ctx context.Context, n *Notification) error
}

// ArchivingDispatcher stores each notification before dispatching it.
// Archive failures are logged and never block the dispatch.
type ArchivingDispatcher struct {
	next    Dispatcher
	archive NotificationArchive
	logger  *zap.Logger
}

// NewArchivingDispatcher wraps next. A nil archive makes it a pass-through.
func NewArchivingDispatcher(next Dispatcher, archive NotificationArchive, logger *zap.Logger) *ArchivingDispatcher {
	return &ArchivingDispatcher{
		next:    next,
		archive: archive,
		logger:  logger.Named("notification_archive"),
	}
}

// Dispatch archives n and forwards it
func (d *ArchivingDispatcher) Dispatch(ctx context.Context, n *Notification) error {
	if d.archive != nil {
		if err := d.archive.Store(ctx, n); err != nil {
			d.logger.Warn("Failed to archive notification",
				zap.String("event_name", n.EventName),
				zap.String("delivery_id", n.DeliveryID),
				zap.Error(err),
			)
		}
	}
	return d.next.Dispatch(ctx, n)
}

var _ Dispatcher = (*ArchivingDispatcher)(nil)
