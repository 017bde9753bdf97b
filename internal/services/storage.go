package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	appConfig "github.com/fitpulse/fitpulse-backend/internal/config"
	apperrors "github.com/fitpulse/fitpulse-backend/pkg/errors"
)

const maxAttachmentSize = 25 << 20 // 25 MiB

var allowedMimePrefixes = []string{"image/", "video/", "audio/", "application/pdf"}

// Uploader stores attachment binaries and returns a public reference URL.
// The default implementation targets R2; tests substitute a fake.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// Storage is the process-wide uploader, set at startup.
var Storage Uploader

// ValidateAttachment enforces the type allow-list and size cap before any
// bytes are stored.
func ValidateAttachment(mimeType string, size int64) error {
	if size <= 0 || size > maxAttachmentSize {
		return apperrors.ErrAttachmentRejected
	}
	for _, prefix := range allowedMimePrefixes {
		if strings.HasPrefix(mimeType, prefix) {
			return nil
		}
	}
	return apperrors.ErrAttachmentRejected
}

type r2Uploader struct {
	client *s3.Client
}

// NewR2Uploader builds an S3 client against the R2 endpoint from config.
func NewR2Uploader() (Uploader, error) {
	cfg := appConfig.AppConfig
	r2Resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID),
		}, nil
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithEndpointResolverWithOptions(r2Resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, err
	}

	return &r2Uploader{client: s3.NewFromConfig(awsCfg)}, nil
}

func (u *r2Uploader) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	cfg := appConfig.AppConfig
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(cfg.R2BucketName),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}

	publicURL := cfg.R2PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.r2.dev", cfg.R2BucketName)
	}
	return fmt.Sprintf("%s/%s", publicURL, key), nil
}
