// Package storage keeps raw marketplace notifications in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	appintegration "github.com/erp/ordersync/internal/application/integration"
	"github.com/erp/ordersync/internal/infrastructure/config"
)

var _ appintegration.NotificationArchive = (*S3NotificationArchive)(nil)

// archivedNotification is the stored JSON document
type archivedNotification struct {
	ChannelID  string          `json:"channel_id"`
	EventName  string          `json:"event_name"`
	DeliveryID string          `json:"delivery_id,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
	Payload    json.RawMessage `json:"payload"`
}

// S3NotificationArchive writes one object per notification. It works with any
// S3-compatible store (AWS S3, MinIO, RustFS).
type S3NotificationArchive struct {
	client  *s3.Client
	bucket  string
	prefix  string
	timeout time.Duration
	logger  *zap.Logger
}

// S3ArchiveOption is a functional option for S3NotificationArchive
type S3ArchiveOption func(*S3NotificationArchive)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3ArchiveOption {
	return func(s *S3NotificationArchive) {
		s.logger = logger
	}
}

// NewS3NotificationArchive creates an archive from configuration
func NewS3NotificationArchive(ctx context.Context, cfg config.ArchiveConfig, opts ...S3ArchiveOption) (*S3NotificationArchive, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New("archive credentials are required")
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if endpoint != "" {
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid archive endpoint: %w", err)
		}
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	a := &S3NotificationArchive{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		timeout: cfg.Timeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.timeout <= 0 {
		a.timeout = 10 * time.Second
	}
	return a, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (a *S3NotificationArchive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	if err == nil {
		return nil
	}
	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to check archive bucket: %w", err)
	}

	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(a.bucket)})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("failed to create archive bucket: %w", err)
	}
	a.logger.Info("Created notification archive bucket", zap.String("bucket", a.bucket))
	return nil
}

// Store writes n under {prefix}/{channel}/{yyyy}/{mm}/{dd}/{delivery}.json.
// Redeliveries with the same delivery id overwrite the same object.
func (a *S3NotificationArchive) Store(ctx context.Context, n *appintegration.Notification) error {
	payload := n.Payload.JSON()
	if payload == "" {
		payload = "null"
	}
	body, err := json.Marshal(archivedNotification{
		ChannelID:  n.ChannelID.String(),
		EventName:  n.EventName,
		DeliveryID: n.DeliveryID,
		ReceivedAt: n.ReceivedAt,
		Payload:    json.RawMessage(payload),
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	key := a.objectKey(n)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload notification %s: %w", key, err)
	}
	return nil
}

func (a *S3NotificationArchive) objectKey(n *appintegration.Notification) string {
	at := n.ReceivedAt
	if at.IsZero() {
		at = time.Now()
	}
	name := n.DeliveryID
	if name == "" {
		name = ulid.Make().String()
	}
	name = url.PathEscape(name) + ".json"
	return path.Join(a.prefix, n.ChannelID.String(), at.UTC().Format("2006/01/02"), name)
}

// Bucket returns the bucket name
func (a *S3NotificationArchive) Bucket() string {
	return a.bucket
}
