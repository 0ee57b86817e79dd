// Package s3 implements objectstore.Store over Amazon S3 or any
// S3-compatible endpoint.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/marmos91/rollcache/internal/logger"
	"github.com/marmos91/rollcache/pkg/objectstore"
)

// retryConfig holds retry settings for transient S3 errors.
type retryConfig struct {
	maxRetries        uint
	initialBackoff    time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
}

// Config configures a Store.
type Config struct {
	// Client is a pre-configured S3 client. If nil, NewClientFromConfig
	// builds one from the remaining fields.
	Client *s3.Client

	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool

	MaxRetries        uint
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

// Store implements objectstore.Store over aws-sdk-go-v2/service/s3.
type Store struct {
	client *s3.Client
	retry  retryConfig
}

// NewClientFromConfig builds an S3 client from endpoint/credential
// parameters, suitable for both AWS S3 and S3-compatible services such as
// Localstack or MinIO.
func NewClientFromConfig(ctx context.Context, cfg Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("objectstore/s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return client, nil
}

// New creates a Store. If cfg.Client is nil, a client is built from the
// remaining connection fields.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = NewClientFromConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	initialBackoff := cfg.InitialBackoff
	if initialBackoff == 0 {
		initialBackoff = 100 * time.Millisecond
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff == 0 {
		maxBackoff = 2 * time.Second
	}
	backoffMultiplier := cfg.BackoffMultiplier
	if backoffMultiplier == 0 {
		backoffMultiplier = 2.0
	}

	return &Store{
		client: client,
		retry: retryConfig{
			maxRetries:        maxRetries,
			initialBackoff:    initialBackoff,
			maxBackoff:        maxBackoff,
			backoffMultiplier: backoffMultiplier,
		},
	}, nil
}

// backoffFor returns the sleep duration before retry attempt n (0-indexed).
func (r retryConfig) backoffFor(attempt uint) time.Duration {
	d := float64(r.initialBackoff) * math.Pow(r.backoffMultiplier, float64(attempt))
	if d > float64(r.maxBackoff) {
		d = float64(r.maxBackoff)
	}
	return time.Duration(d)
}

// withRetry runs op, retrying transient failures up to retry.maxRetries
// times with exponential backoff. Context cancellation aborts immediately.
func (s *Store) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error

	for attempt := uint(0); attempt <= s.retry.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		// A missing object is not transient; retrying cannot change it.
		if errors.Is(lastErr, objectstore.ErrNotFound) {
			return lastErr
		}

		if attempt == s.retry.maxRetries {
			break
		}

		logger.Warn("objectstore/s3: transient error, retrying",
			logger.KeyOperation, op,
			logger.KeyAttempt, attempt+1,
			logger.Err(lastErr),
		)

		select {
		case <-time.After(s.retry.backoffFor(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("objectstore/s3: %s failed after %d attempts: %w", op, s.retry.maxRetries+1, lastErr)
}

func (s *Store) Size(ctx context.Context, ref objectstore.ObjectRef) (size uint64, err error) {
	input := &s3.HeadObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	}
	if ref.Version != "" {
		input.VersionId = aws.String(ref.Version)
	}

	err = s.withRetry(ctx, "Size", func() error {
		out, headErr := s.client.HeadObject(ctx, input)
		if headErr != nil {
			if isNotFound(headErr) {
				return fmt.Errorf("%w: %s", objectstore.ErrNotFound, ref)
			}
			return headErr
		}
		if out.ContentLength != nil {
			size = uint64(*out.ContentLength)
		}
		return nil
	})

	return size, err
}

func (s *Store) GetRange(ctx context.Context, ref objectstore.ObjectRef, start, end int64) (data []byte, err error) {
	if start < 0 || start >= end {
		return nil, objectstore.ErrInvalidRange
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", start, end-1)),
	}
	if ref.Version != "" {
		input.VersionId = aws.String(ref.Version)
	}

	err = s.withRetry(ctx, "GetRange", func() error {
		out, getErr := s.client.GetObject(ctx, input)
		if getErr != nil {
			if isInvalidRange(getErr) {
				// Requested range starts at or beyond the object's end; a
				// short (empty) read is authoritative, not an error.
				data = []byte{}
				return nil
			}
			if isNotFound(getErr) {
				return fmt.Errorf("%w: %s", objectstore.ErrNotFound, ref)
			}
			return getErr
		}
		defer out.Body.Close()

		body, readErr := io.ReadAll(out.Body)
		if readErr != nil {
			return readErr
		}
		data = body
		return nil
	})

	return data, err
}

func isNotFound(err error) bool {
	var notFound *s3.NoSuchKey
	if errors.As(err, &notFound) {
		return true
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == 404
	}
	return false
}

func isInvalidRange(err error) bool {
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode() == 416
	}
	return false
}
