package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// ObjectAPI is the slice of the S3 client the store needs.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config selects the bucket and key prefix for day objects.
type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Profile      string
	UsePathStyle bool
}

// S3Store keeps one JSON object per day at <prefix>/<day>.json. PutObject
// replaces objects whole, so a failed run never leaves a partial store.
type S3Store struct {
	api    ObjectAPI
	bucket string
	prefix string
}

var _ ports.DayStore = (*S3Store)(nil)

// NewS3Store builds a store on the default AWS credential chain.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 store: bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3StoreWithAPI(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3StoreWithAPI wires a preconfigured client.
func NewS3StoreWithAPI(api ObjectAPI, bucket, prefix string) *S3Store {
	return &S3Store{api: api, bucket: bucket, prefix: prefix}
}

// Key returns the object key backing the given day.
func (s *S3Store) Key(day string) string {
	return path.Join(s.prefix, day+".json")
}

// Load fetches the day's object; a missing key is reported as found=false.
func (s *S3Store) Load(ctx context.Context, day string) ([]domain.Article, bool, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(day)),
	})
	if isNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get day object %s: %w", day, err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read day object %s: %w", day, err)
	}

	articles, err := decodeArticles(raw)
	if err != nil {
		return nil, false, fmt.Errorf("day object %s: %w", day, err)
	}
	return articles, true, nil
}

// Save uploads the full list for the day.
func (s *S3Store) Save(ctx context.Context, day string, articles []domain.Article) error {
	payload, err := encodeArticles(articles)
	if err != nil {
		return fmt.Errorf("day object %s: %w", day, err)
	}

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(day)),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put day object %s: %w", day, err)
	}
	return nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}

	var noKey *s3types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
