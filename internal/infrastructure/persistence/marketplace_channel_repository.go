package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMarketplaceChannelRepository implements integration.MarketplaceChannelRepository using GORM
type GormMarketplaceChannelRepository struct {
	db *gorm.DB
}

// NewGormMarketplaceChannelRepository creates a new GormMarketplaceChannelRepository
func NewGormMarketplaceChannelRepository(db *gorm.DB) *GormMarketplaceChannelRepository {
	return &GormMarketplaceChannelRepository{db: db}
}

// FindByID finds a channel by ID
func (r *GormMarketplaceChannelRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.MarketplaceChannel, error) {
	var channel integration.MarketplaceChannel
	if err := conn(ctx, r.db).First(&channel, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &channel, nil
}

// FindEnabled returns all channels with sync enabled
func (r *GormMarketplaceChannelRepository) FindEnabled(ctx context.Context) ([]integration.MarketplaceChannel, error) {
	var channels []integration.MarketplaceChannel
	err := conn(ctx, r.db).
		Where("enabled = ?", true).
		Order("name ASC").
		Find(&channels).Error
	return channels, err
}

// UpdateCredentials stores refreshed tokens. Concurrent refreshes race with
// last-writer-wins semantics; each write stores a complete, valid token set.
func (r *GormMarketplaceChannelRepository) UpdateCredentials(ctx context.Context, channel *integration.MarketplaceChannel) error {
	result := conn(ctx, r.db).Model(&integration.MarketplaceChannel{}).
		Where("id = ?", channel.ID).
		Updates(map[string]any{
			"access_token":     channel.AccessToken,
			"refresh_token":    channel.RefreshToken,
			"token_expires_at": channel.TokenExpiresAt,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MarkSynced records the time of the last successful sync
func (r *GormMarketplaceChannelRepository) MarkSynced(ctx context.Context, id uuid.UUID, syncedAt time.Time) error {
	return conn(ctx, r.db).Model(&integration.MarketplaceChannel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_synced_at": syncedAt,
			"updated_at":     time.Now(),
		}).Error
}

// Ensure GormMarketplaceChannelRepository implements MarketplaceChannelRepository
var _ integration.MarketplaceChannelRepository = (*GormMarketplaceChannelRepository)(nil)
