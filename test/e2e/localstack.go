//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// LocalstackHelper manages a Localstack S3 endpoint for end-to-end tests,
// either an externally-configured one (LOCALSTACK_ENDPOINT) or a
// testcontainers-managed one started on demand.
type LocalstackHelper struct {
	T         *testing.T
	Container testcontainers.Container
	Endpoint  string
	Client    *s3.Client
	Buckets   []string
}

var sharedLocalstackHelper *LocalstackHelper

// NewLocalstackHelper returns the shared Localstack helper, starting a
// container (or connecting to LOCALSTACK_ENDPOINT) on first call.
func NewLocalstackHelper(t *testing.T) *LocalstackHelper {
	t.Helper()

	if sharedLocalstackHelper != nil {
		return sharedLocalstackHelper
	}

	ctx := context.Background()

	if endpoint := os.Getenv("LOCALSTACK_ENDPOINT"); endpoint != "" {
		helper := &LocalstackHelper{T: t, Endpoint: endpoint, Buckets: make([]string, 0)}
		helper.createClient()
		sharedLocalstackHelper = helper
		return helper
	}

	req := testcontainers.ContainerRequest{
		Image:        "localstack/localstack:3.0",
		ExposedPorts: []string{"4566/tcp"},
		Env: map[string]string{
			"SERVICES":              "s3",
			"DEFAULT_REGION":        "us-east-1",
			"EAGER_SERVICE_LOADING": "1",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("4566/tcp"),
			wait.ForHTTP("/_localstack/health").
				WithPort("4566/tcp").
				WithStartupTimeout(60*time.Second),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start localstack container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "4566")
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("failed to get container port: %v", err)
	}

	helper := &LocalstackHelper{
		T:         t,
		Container: container,
		Endpoint:  fmt.Sprintf("http://%s:%s", host, port.Port()),
		Buckets:   make([]string, 0),
	}
	helper.createClient()

	sharedLocalstackHelper = helper

	// Not registering t.Cleanup here: the container is shared across the
	// whole e2e package run and Ryuk reaps it when the process exits.
	return helper
}

func (lh *LocalstackHelper) createClient() {
	lh.T.Helper()

	ctx := context.Background()

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	if err != nil {
		lh.T.Fatalf("failed to load aws config: %v", err)
	}

	lh.Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = &lh.Endpoint
		o.UsePathStyle = true
	})
}

// CreateBucket creates bucketName and registers it for Cleanup.
func (lh *LocalstackHelper) CreateBucket(ctx context.Context, bucketName string) error {
	lh.T.Helper()

	_, err := lh.Client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucketName)})
	if err != nil {
		return fmt.Errorf("creating bucket %s: %w", bucketName, err)
	}

	lh.Buckets = append(lh.Buckets, bucketName)
	return nil
}

// PutObject uploads data to bucket/key.
func (lh *LocalstackHelper) PutObject(ctx context.Context, bucket, key string, data []byte) error {
	lh.T.Helper()

	_, err := lh.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

// Cleanup empties and deletes every bucket this helper created.
func (lh *LocalstackHelper) Cleanup() {
	lh.T.Helper()

	ctx := context.Background()
	for _, bucketName := range lh.Buckets {
		lh.cleanupBucket(ctx, bucketName)
	}
}

func (lh *LocalstackHelper) cleanupBucket(ctx context.Context, bucketName string) {
	listResp, err := lh.Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(bucketName)})
	if err != nil {
		return
	}

	if listResp != nil {
		for _, obj := range listResp.Contents {
			_, _ = lh.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(bucketName),
				Key:    obj.Key,
			})
		}
	}

	_, _ = lh.Client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucketName)})
}
