package archive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"

	"github.com/jobtrack/application-tracker/internal/config"
	"github.com/jobtrack/application-tracker/internal/models"
)

// ErrNoBucket is returned when an upload is requested without a bucket.
var ErrNoBucket = errors.New("archive bucket is not configured")

// Archive uploads exported CSV files to S3.
type Archive struct {
	uploader s3manageriface.UploaderAPI
	bucket   string
	prefix   string
	now      func() time.Time
}

// New creates an S3 archive from cfg
func New(cfg config.ArchiveConfig) (*Archive, error) {
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}

	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}

	// For local testing with MinIO or LocalStack
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return newArchive(s3manager.NewUploader(sess), cfg), nil
}

func newArchive(u s3manageriface.UploaderAPI, cfg config.ArchiveConfig) *Archive {
	return &Archive{
		uploader: u,
		bucket:   cfg.Bucket,
		prefix:   cfg.Prefix,
		now:      time.Now,
	}
}

// Key builds the object key for an export produced at t.
func (a *Archive) Key(mode string, t time.Time) string {
	name := fmt.Sprintf("applications-%s-%s.csv", mode, t.UTC().Format("20060102T150405Z"))
	return path.Join(strings.Trim(a.prefix, "/"), name)
}

// Upload stores body under a timestamped key and returns its location.
func (a *Archive) Upload(ctx context.Context, mode, body string) (string, error) {
	key := a.Key(mode, a.now())
	out, err := a.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(body),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to upload %s: %w", models.ErrUpstreamUnavailable, key, err)
	}
	return out.Location, nil
}
