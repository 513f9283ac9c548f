package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/karthik-cyberexpert/cyber-web-portal-sub002/config"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StorageService keeps generated reports in a private S3 bucket
type StorageService struct {
	s3Client s3iface.S3API
	bucket   string
}

// NewStorageService creates a storage service from the application config
func NewStorageService() (*StorageService, error) {
	awsCfg := &aws.Config{Region: aws.String(config.AppConfig.AWSRegion)}
	// Static keys are optional; without them the default chain (instance role, env) applies
	if config.AppConfig.AWSAccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(
			config.AppConfig.AWSAccessKeyID,
			config.AppConfig.AWSSecretAccessKey,
			"",
		)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewStorageServiceWith(s3.New(sess), config.AppConfig.S3BucketName), nil
}

func NewStorageServiceWith(client s3iface.S3API, bucket string) *StorageService {
	return &StorageService{s3Client: client, bucket: bucket}
}

// ReportKey builds the object key of an attendance workbook:
// reports/attendance/<batch>/<yyyy>/<mm>/<random>.xlsx
func ReportKey(batchLabel string, generatedOn time.Time) string {
	batch := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, strings.TrimSpace(batchLabel))
	if batch == "" {
		batch = "unknown"
	}
	return path.Join("reports", "attendance", batch,
		fmt.Sprintf("%d", generatedOn.Year()),
		fmt.Sprintf("%02d", int(generatedOn.Month())),
		uuid.New().String()[:16]+".xlsx")
}

// UploadReport stores an xlsx workbook and returns its object key
func (s *StorageService) UploadReport(ctx context.Context, batchLabel string, generatedOn time.Time, body []byte) (string, error) {
	key := ReportKey(batchLabel, generatedOn)
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(xlsxContentType),
		ACL:         aws.String(s3.ObjectCannedACLPrivate),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return key, nil
}

// PresignDownload returns a time-limited GET URL for key
func (s *StorageService) PresignDownload(key string, ttl time.Duration) (string, error) {
	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return req.Presign(ttl)
}
