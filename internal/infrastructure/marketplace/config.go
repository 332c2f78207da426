package marketplace

import (
	"errors"
	"time"
)

// ClientConfig holds configuration for the marketplace API client
type ClientConfig struct {
	// Timeout bounds every API call and token refresh
	Timeout time.Duration
	// TokenURL is the OAuth token endpoint. Empty means {APIBaseURL}/oauth/token.
	TokenURL string
	// TokenRefreshSkew refreshes tokens this long before they expire
	TokenRefreshSkew time.Duration
	// RepeatableKeys are response keys whose values are always lists, even
	// when the marketplace sends a single element
	RepeatableKeys []string
	// PageSize is the number of orders requested per GetOrders page
	PageSize int
}

// DefaultRepeatableKeys lists the keys the marketplace may send as either a
// single element or a list
var DefaultRepeatableKeys = []string{
	"Order",
	"Transaction",
	"ShipmentTrackingDetails",
	"Errors",
	"Variation",
	"PickupLocations",
	"ExternalTransaction",
	"Refund",
}

const maxResponseSize = 10 * 1024 * 1024

// Errors for client configuration
var (
	ErrConfigInvalidTimeout = errors.New("marketplace: timeout must be positive")
	ErrConfigInvalidPage    = errors.New("marketplace: page size must be between 1 and 200")
)

// DefaultClientConfig returns default configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:          30 * time.Second,
		TokenRefreshSkew: 5 * time.Minute,
		RepeatableKeys:   DefaultRepeatableKeys,
		PageSize:         100,
	}
}

// Validate validates the configuration and fills unset optional fields
func (c *ClientConfig) Validate() error {
	if c.Timeout <= 0 {
		return ErrConfigInvalidTimeout
	}
	if c.PageSize <= 0 || c.PageSize > 200 {
		return ErrConfigInvalidPage
	}
	if c.TokenRefreshSkew < 0 {
		c.TokenRefreshSkew = 0
	}
	if len(c.RepeatableKeys) == 0 {
		c.RepeatableKeys = DefaultRepeatableKeys
	}
	return nil
}
