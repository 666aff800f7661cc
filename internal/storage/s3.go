package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/arcane-tl/asset-service/internal/metrics"
	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ObjectStore is the facade over the remote object store. Keys are the
// canonical storage paths (users/{uid}/assets/{assetId}/files/{name}).
type ObjectStore interface {
	// Upload sends the whole payload in a single request and returns a
	// download locator for the stored object.
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
	// DownloadURL resolves a fresh download URL for an existing object.
	DownloadURL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	// Exists probes object metadata; any failure reads as false.
	Exists(ctx context.Context, key string) bool
	// DeletePrefix removes every object under prefix, aggregating failures.
	DeletePrefix(ctx context.Context, prefix string) error
}

type S3Store struct {
	client     *s3.Client
	uploader   *manager.Uploader
	presigner  *s3.PresignClient
	bucket     string
	region     string
	publicRead bool
	presignTTL time.Duration
	log        *zap.SugaredLogger
}

func NewS3Store(ctx context.Context, region, bucket, endpoint string, publicRead bool, presignTTL time.Duration, log *zap.SugaredLogger) (*S3Store, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// custom endpoint (MinIO) needs path-style addressing
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{
		client:     client,
		uploader:   manager.NewUploader(client),
		presigner:  s3.NewPresignClient(client),
		bucket:     bucket,
		region:     region,
		publicRead: publicRead,
		presignTTL: presignTTL,
		log:        log,
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", err
	}
	metrics.UploadsTotal.Inc()
	if s.publicRead {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escapeKey(key)), nil
	}
	return s.DownloadURL(ctx, key)
}

func (s *S3Store) DownloadURL(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignTTL))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		metrics.ObjectDeletesTotal.Inc()
	}
	return err
}

func (s *S3Store) Exists(ctx context.Context, key string) bool {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.log.Debugw("object probe failed", "key", key, "error", err)
		return false
	}
	return true
}

// DeletePrefix fans out one delete per listed object and collects failures
// instead of stopping at the first one.
func (s *S3Store) DeletePrefix(ctx context.Context, prefix string) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	var (
		mu   sync.Mutex
		errs error
		wg   sync.WaitGroup
	)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return multierr.Append(errs, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.Delete(ctx, key); err != nil {
					s.log.Warnw("prefix delete failed", "key", key, "error", err)
					mu.Lock()
					errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", key, err))
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
	}
	return errs
}

func escapeKey(key string) string {
	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}
