package storage

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/petermazzocco/project-journal/internal/config"
)

// Blobs is the object storage used for project images. Signed URLs are
// time limited; read URLs are cached on the project row.
type Blobs interface {
	SignRead(ctx context.Context, key string) (string, error)
	SignUpload(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

type S3 struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	readTTL   time.Duration
	uploadTTL time.Duration
}

var _ Blobs = (*S3)(nil)

func NewS3(ctx context.Context, cfg config.StorageConfig, endpoint string) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is not configured")
	}

	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS13,
		},
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithHTTPClient(&http.Client{Transport: tr}),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.AccessKeySecret, "")),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewS3FromClient(client, cfg.Bucket, cfg.ImageURLTTL, cfg.UploadURLTTL), nil
}

func NewS3FromClient(client *s3.Client, bucket string, readTTL, uploadTTL time.Duration) *S3 {
	return &S3{
		client:    client,
		presign:   s3.NewPresignClient(client),
		bucket:    bucket,
		readTTL:   readTTL,
		uploadTTL: uploadTTL,
	}
}

func (s *S3) SignRead(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.readTTL))
	if err != nil {
		return "", fmt.Errorf("sign read url for %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3) SignUpload(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.uploadTTL))
	if err != nil {
		return "", fmt.Errorf("sign upload url for %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// ProjectPrefix is the key prefix every image of a project lives under.
func ProjectPrefix(projectID uint) string {
	return fmt.Sprintf("projects/%d/", projectID)
}

// ProjectBlobKey builds a fresh, collision free key for an uploaded file.
func ProjectBlobKey(projectID uint, fileName string) string {
	return ProjectPrefix(projectID) + uuid.NewString() + "_" + cleanFileName(fileName)
}

func cleanFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, name)
	if name == "" || name == "." || name == ".." {
		return "image"
	}
	return name
}
