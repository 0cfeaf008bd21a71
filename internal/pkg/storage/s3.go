package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"

	"github.com/bookfox/bookfox/internal/pkg/env"
)

// S3Config holds S3 artifact storage configuration
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
}

// LoadS3Config loads S3 configuration from environment variables
func LoadS3Config() (*S3Config, error) {
	cfg := &S3Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "eu-central-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
	}

	if cfg.AccessKeyID == "" {
		return nil, errors.New("S3_ACCESS_KEY_ID is required for s3 artifact storage")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("S3_SECRET_ACCESS_KEY is required for s3 artifact storage")
	}
	if cfg.BucketName == "" {
		return nil, errors.New("S3_BUCKET_NAME is required for s3 artifact storage")
	}
	return cfg, nil
}

// S3Store keeps artifacts in an S3 (or S3-compatible) bucket.
type S3Store struct {
	client *s3.Client
	cfg    *S3Config
}

// NewS3Store creates an S3-backed artifact store.
func NewS3Store(cfg *S3Config) (*S3Store, error) {
	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})

	log.Infof("[Storage] Using S3 artifact store (bucket: %s)", cfg.BucketName)
	return &S3Store{client: client, cfg: cfg}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload artifact %s: %w", key, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artifact %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
