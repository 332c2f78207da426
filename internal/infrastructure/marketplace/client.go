package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/erp/ordersync/internal/domain/integration"
)

const (
	ackFailure = "Failure"

	// defaultTokenLifetime applies when the token response carries no expiry
	defaultTokenLifetime = time.Hour
)

// Client implements integration.MarketplaceClient over the marketplace's JSON API
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	channels   integration.MarketplaceChannelRepository
	repeatable map[string]bool
	logger     *zap.Logger

	// refreshes collapses concurrent token refreshes for one channel
	refreshes singleflight.Group
	now       func() time.Time
}

// NewClient creates a new marketplace client
func NewClient(config ClientConfig, channels integration.MarketplaceChannelRepository, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		channels:   channels,
		repeatable: keySet(config.RepeatableKeys),
		logger:     logger.Named("marketplace_client"),
		now:        time.Now,
	}, nil
}

// PageSize returns the configured GetOrders page size
func (c *Client) PageSize() int {
	return c.config.PageSize
}

// Call posts request as JSON to {APIBaseURL}/{operation} and returns the
// decoded response with repeatable keys normalised to lists.
func (c *Client) Call(ctx context.Context, channel *integration.MarketplaceChannel, operation string, request any) (integration.Payload, error) {
	if request == nil {
		request = map[string]any{}
	}
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marketplace: failed to encode %s request: %w", operation, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	endpoint := strings.TrimRight(channel.APIBaseURL, "/") + "/" + operation
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("marketplace: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+channel.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", integration.ErrTransportFailure, operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: failed to read response: %v", integration.ErrTransportFailure, operation, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: %s: HTTP %d", integration.ErrTransportFailure, operation, resp.StatusCode)
	}

	payload, err := integration.PayloadFromJSON(raw)
	if err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("%w: %s: HTTP %d", integration.ErrTransportFailure, operation, resp.StatusCode)
		}
		return nil, err
	}
	payload = NormalizeLists(payload, c.repeatable)

	if failure := remoteFailure(operation, payload); failure != nil {
		c.logger.Warn("Marketplace declared call failed",
			zap.String("channel", channel.Name),
			zap.String("operation", operation),
			zap.String("error_code", failure.Code),
			zap.String("short_message", failure.ShortMessage),
		)
		return nil, failure
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s: HTTP %d", integration.ErrTransportFailure, operation, resp.StatusCode)
	}
	return payload, nil
}

// remoteFailure returns the typed failure when the response acknowledges failure.
func remoteFailure(operation string, payload integration.Payload) *integration.RemoteFailureError {
	root := payload
	if root.String("Ack") == "" {
		root = payload.Unwrap()
	}
	if !strings.EqualFold(root.String("Ack"), ackFailure) {
		return nil
	}
	return &integration.RemoteFailureError{
		Operation:    operation,
		Code:         root.String("Errors.ErrorCode"),
		ShortMessage: root.String("Errors.ShortMessage"),
		LongMessage:  root.String("Errors.LongMessage"),
	}
}

// ---------------------------------------------------------------------------
// Token management
// ---------------------------------------------------------------------------

// EnsureValidToken returns channel unchanged while its token is valid beyond
// the refresh skew; otherwise it refreshes the token and persists it.
// Refreshes for the same channel in this process share one request; across
// processes the last writer wins, and every written token set is valid.
func (c *Client) EnsureValidToken(ctx context.Context, channel *integration.MarketplaceChannel) (*integration.MarketplaceChannel, error) {
	if !channel.TokenNeedsRefresh(c.now(), c.config.TokenRefreshSkew) {
		return channel, nil
	}

	v, err, shared := c.refreshes.Do(channel.ID.String(), func() (any, error) {
		return c.refresh(ctx, channel)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("Token refresh shared with concurrent caller",
			zap.String("channel", channel.Name),
		)
	}
	refreshed := *v.(*integration.MarketplaceChannel)
	return &refreshed, nil
}

func (c *Client) refresh(ctx context.Context, channel *integration.MarketplaceChannel) (*integration.MarketplaceChannel, error) {
	if channel.RefreshToken == "" {
		return nil, fmt.Errorf("%w: channel %s has no refresh token", integration.ErrTokenRefreshFailed, channel.Name)
	}

	tokenURL := c.config.TokenURL
	if tokenURL == "" {
		tokenURL = strings.TrimRight(channel.APIBaseURL, "/") + "/oauth/token"
	}
	oauthConfig := &oauth2.Config{
		ClientID:     channel.ClientID,
		ClientSecret: channel.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: channel.RefreshToken}).Token()
	if err != nil {
		c.logger.Error("Failed to refresh marketplace token",
			zap.String("channel", channel.Name),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", integration.ErrTokenRefreshFailed, err)
	}

	updated := *channel
	updated.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		updated.RefreshToken = token.RefreshToken
	}
	expiry := token.Expiry.UTC()
	if token.Expiry.IsZero() {
		expiry = c.now().Add(defaultTokenLifetime).UTC()
	}
	updated.TokenExpiresAt = &expiry

	if err := c.channels.UpdateCredentials(ctx, &updated); err != nil {
		return nil, fmt.Errorf("marketplace: failed to persist refreshed token: %w", err)
	}

	c.logger.Info("Marketplace token refreshed",
		zap.String("channel", channel.Name),
		zap.Timep("expires_at", updated.TokenExpiresAt),
	)
	return &updated, nil
}

// Ensure Client implements MarketplaceClient
var _ integration.MarketplaceClient = (*Client)(nil)
