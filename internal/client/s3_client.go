package client

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/terradactile/api/internal/config"
)

// StorageClient defines the interface for publishing finished artifacts to
// object storage.
type StorageClient interface {
	Upload(ctx context.Context, localPath, key string) error
	// Prefix returns the store location prefix all of a job's artifacts
	// live under.
	Prefix(jobID string) string
}

// S3Client implements StorageClient for S3 and S3-compatible stores.
type S3Client struct {
	s3Client   *s3.Client
	bucketName string
}

// NewS3Client creates a new object storage client.
func NewS3Client(cfg *config.StorageConfig) (*S3Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage configuration incomplete: bucket required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: endpoint}, nil
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Client{
		s3Client:   s3.NewFromConfig(awsCfg),
		bucketName: cfg.Bucket,
	}, nil
}

// Upload publishes a finished local file under the given key. The file must
// be fully written before calling; there are no partial uploads or retries
// at this layer.
func (c *S3Client) Upload(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	_, err = c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucketName),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("image/tiff"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// Prefix returns the s3:// location prefix for a job's artifacts.
func (c *S3Client) Prefix(jobID string) string {
	return fmt.Sprintf("s3://%s/%s", c.bucketName, jobID)
}
