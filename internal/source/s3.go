package source

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/offline"
)

// S3Config describes the document bucket.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // optional, for S3-compatible stores
	AccessKeyID     string
	SecretAccessKey string
	SignedURLTTL    time.Duration // defaults to 5 minutes
}

// S3Source is the resource fetch boundary for documents: bytes are read
// through short-lived presigned URLs minted just in time, and the cache
// keeps only the resulting bytes, never credentials.
type S3Source struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	downloader *manager.Downloader
	bucket     string
	prefix     string
	ttl        time.Duration
}

// NewS3Source builds the source from config. Static credentials are used
// when provided, otherwise the default AWS credential chain applies.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	ttl := cfg.SignedURLTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}

	return &S3Source{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		downloader: manager.NewDownloader(client),
		bucket:     cfg.Bucket,
		prefix:     cfg.Prefix,
		ttl:        ttl,
	}, nil
}

func (s *S3Source) key(id string) string {
	return path.Join(s.prefix, id)
}

// SignedURL mints a short-lived presigned GET URL for the document.
func (s *S3Source) SignedURL(ctx context.Context, id string) (string, error) {
	presigned, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presigning %s: %w", id, err)
	}
	return presigned.URL, nil
}

// LastModified returns the source timestamp for the document, or false
// when the object does not exist.
func (s *S3Source) LastModified(ctx context.Context, id string) (time.Time, bool, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("heading %s: %w", id, err)
	}
	if out.LastModified == nil {
		return time.Time{}, false, fmt.Errorf("object %s has no last-modified", id)
	}
	return *out.LastModified, true, nil
}

// Fetch downloads the document bytes.
func (s *S3Source) Fetch(ctx context.Context, id string) ([]byte, error) {
	buf := manager.NewWriteAtBuffer(nil)
	_, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	})
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", id, err)
	}
	return buf.Bytes(), nil
}

// DocumentResolver adapts the source into the sync sweep's resolver: the
// object's LastModified is the freshness timestamp and a missing object
// reports non-existence.
func (s *S3Source) DocumentResolver() offline.ResolverFunc {
	return func(ctx context.Context, id string) (*offline.ResolvedDocument, error) {
		modified, ok, err := s.LastModified(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}

		data, err := s.Fetch(ctx, id)
		if err != nil {
			return nil, err
		}

		url, err := s.SignedURL(ctx, id)
		if err != nil {
			return nil, err
		}

		return &offline.ResolvedDocument{
			LastUpdated: modified,
			BlobData:    data,
			SourceURL:   url,
		}, nil
	}
}
