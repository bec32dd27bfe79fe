package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/creatorstack/keywarden/internal/models"
)

// BackupSnapshot is the exported shape of one backup run. Key material is
// masked before it reaches this struct; the snapshot is safe to store
// outside the secrets boundary.
type BackupSnapshot struct {
	ExportedAt time.Time                 `json:"exported_at"`
	Keys       []BackupKeyRecord         `json:"keys"`
	Mappings   []*models.FunctionMapping `json:"mappings"`
}

type BackupKeyRecord struct {
	ServiceName   string     `json:"service_name"`
	Category      string     `json:"category"`
	MaskedKey     string     `json:"masked_key"`
	BaseURL       *string    `json:"base_url,omitempty"`
	IsPrimary     bool       `json:"is_primary"`
	IsActive      bool       `json:"is_active"`
	Status        string     `json:"status"`
	LastValidated *time.Time `json:"last_validated,omitempty"`
}

type S3BackupConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// S3BackupStore uploads gzipped JSON snapshots of the key and mapping tables.
type S3BackupStore struct {
	client *s3.Client
	bucket string
}

func NewS3BackupStore(ctx context.Context, cfg S3BackupConfig) (*S3BackupStore, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3BackupStore{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
	}, nil
}

// Export uploads one snapshot and returns the object key.
func (s *S3BackupStore) Export(ctx context.Context, snapshot *BackupSnapshot) (string, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to marshal backup: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return "", fmt.Errorf("failed to compress backup: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("failed to compress backup: %w", err)
	}

	key := fmt.Sprintf("backups/keywarden-%s.json.gz", snapshot.ExportedAt.UTC().Format("20060102T150405Z"))

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload backup: %w", err)
	}

	return key, nil
}
