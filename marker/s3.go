package marker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client the marker store uses.
type S3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config configures the S3 marker backend.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom endpoint for S3-compatible providers.
	Endpoint string
	// UsePathStyle forces path-style addressing.
	UsePathStyle bool
}

// S3Store keeps markers as objects <prefix>/markers/<stage>.done.
// PutObject is atomic per object.
type S3Store struct {
	api    S3API
	bucket string
	prefix string
}

// NewS3Store creates an S3 marker store using the AWS SDK default
// credential chain (env vars, shared config, IAM role).
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 marker store requires a bucket")
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return NewS3StoreWithAPI(s3.NewFromConfig(awsConfig, s3Opts...), cfg.Bucket, cfg.Prefix), nil
}

// NewS3StoreWithAPI creates a store over an existing client.
func NewS3StoreWithAPI(api S3API, bucket, prefix string) *S3Store {
	return &S3Store{api: api, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for stage.
func (s *S3Store) Key(stage string) string {
	return path.Join(s.prefix, "markers", stage+FileSuffix)
}

func (s *S3Store) Done(ctx context.Context, stage string) (bool, error) {
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(stage)),
	})
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("s3: head marker %s: %w", stage, err)
	}
	return true, nil
}

func (s *S3Store) Get(ctx context.Context, stage string) (*Record, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(stage)),
	})
	if isNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("s3: get marker %s: %w", stage, err)
	}
	defer func() { _ = out.Body.Close() }()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3: read marker %s: %w", stage, err)
	}
	return Decode(b)
}

func (s *S3Store) Put(ctx context.Context, rec Record) error {
	b, err := Encode(rec)
	if err != nil {
		return err
	}
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(rec.Stage)),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/msgpack"),
	})
	if err != nil {
		return fmt.Errorf("s3: put marker %s: %w", rec.Stage, err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, stage string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(stage)),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("s3: delete marker %s: %w", stage, err)
	}
	return nil
}

func (s *S3Store) Clear(ctx context.Context) error {
	prefix := path.Join(s.prefix, "markers") + "/"
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("s3: list markers: %w", err)
		}
		for _, obj := range page.Contents {
			if _, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			}); err != nil && !isNotFound(err) {
				return fmt.Errorf("s3: delete %s: %w", aws.ToString(obj.Key), err)
			}
		}
	}
	return nil
}

func (s *S3Store) Location() string {
	return "s3://" + path.Join(s.bucket, s.prefix, "markers")
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var noKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}

var _ Store = (*S3Store)(nil)
