package integration

import (
	"time"

	"github.com/erp/ordersync/internal/domain/shared"
)

// MarketplaceChannel is one configured seller account on the marketplace.
type MarketplaceChannel struct {
	shared.BaseEntity
	Name           string `gorm:"type:varchar(100);not null"`
	Enabled        bool   `gorm:"not null;default:true"`
	APIBaseURL     string `gorm:"type:varchar(300);not null"`
	ClientID       string `gorm:"type:varchar(200)"`
	ClientSecret   string `gorm:"type:varchar(500)"`
	AccessToken    string `gorm:"type:text"`
	RefreshToken   string `gorm:"type:text"`
	TokenExpiresAt *time.Time
	SyncInterval   time.Duration `gorm:"not null;default:0"`
	SyncWindow     time.Duration `gorm:"not null;default:0"`
	LastSyncedAt   *time.Time
}

// TableName returns the table name for GORM
func (MarketplaceChannel) TableName() string {
	return "marketplace_channels"
}

// TokenNeedsRefresh reports whether the access token is missing, expired, or
// expires within skew of now.
func (c *MarketplaceChannel) TokenNeedsRefresh(now time.Time, skew time.Duration) bool {
	if c.AccessToken == "" || c.TokenExpiresAt == nil {
		return true
	}
	return !now.Add(skew).Before(*c.TokenExpiresAt)
}

// IsSyncDue reports whether a sync should run at now.
func (c *MarketplaceChannel) IsSyncDue(now time.Time, defaultInterval time.Duration) bool {
	if !c.Enabled {
		return false
	}
	if c.LastSyncedAt == nil {
		return true
	}
	interval := c.SyncInterval
	if interval <= 0 {
		interval = defaultInterval
	}
	return !now.Before(c.LastSyncedAt.Add(interval))
}
