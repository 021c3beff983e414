// Package archive uploads generated report files to S3-compatible object
// storage (R2 in production). A nil *Uploader is valid and skips uploads,
// so the server runs fine without archive credentials.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	appconfig "coffee-backend/internal/config"
	"coffee-backend/internal/timeutil"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Uploader struct {
	client *s3.Client
	bucket string
}

// New builds an uploader from config, or nil when archiving is disabled.
func New(ctx context.Context, cfg *appconfig.Config) (*Uploader, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Archive.AccessKey,
			cfg.Archive.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Archive.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to configure archive client: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Archive.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Archive.Endpoint)
		}
	})
	return &Uploader{client: client, bucket: cfg.Archive.Bucket}, nil
}

// Upload stores data under reports/<date>/<name> and returns the object key.
func (u *Uploader) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if u == nil {
		return "", nil
	}
	key := fmt.Sprintf("reports/%s/%s", timeutil.FormatEAT(timeutil.Now(), timeutil.DateLayout), name)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	log.Printf("[Archive] Uploaded %s (%d bytes)", key, len(data))
	return key, nil
}

// List returns the archived report keys under the reports/ prefix.
func (u *Uploader) List(ctx context.Context) ([]string, error) {
	if u == nil {
		return nil, nil
	}
	result, err := u.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(u.bucket),
		Prefix: aws.String("reports/"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list archived reports: %w", err)
	}
	keys := make([]string, 0, len(result.Contents))
	for _, obj := range result.Contents {
		if obj.Key != nil {
			keys = append(keys, *obj.Key)
		}
	}
	return keys, nil
}
