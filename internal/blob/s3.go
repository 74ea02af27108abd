package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/iyhunko/product-catalog/internal/config"
)

// Uploader is the part of manager.Uploader used by S3Store.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// ObjectDeleter is the part of s3.Client used by S3Store.
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewS3Client creates an S3 client. A custom endpoint switches to path style addressing for LocalStack.
func NewS3Client(ctx context.Context, region string, endpoint string) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, err
	}

	if endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(endpoint)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = endpoint != ""
	}), nil
}

// S3Store keeps images in an S3 bucket under a folder prefix.
type S3Store struct {
	uploader      Uploader
	deleter       ObjectDeleter
	bucket        string
	folder        string
	publicBaseURL string
	validator     Validator
}

// NewS3Store creates an S3Store on top of client.
func NewS3Store(client *s3.Client, conf config.AWSConfig, maxBytes int64) *S3Store {
	return NewS3StoreWith(manager.NewUploader(client), client, conf, maxBytes)
}

// NewS3StoreWith creates an S3Store from explicit upload and delete implementations.
func NewS3StoreWith(uploader Uploader, deleter ObjectDeleter, conf config.AWSConfig, maxBytes int64) *S3Store {
	return &S3Store{
		uploader:      uploader,
		deleter:       deleter,
		bucket:        conf.S3Bucket,
		folder:        strings.Trim(conf.S3Folder, "/"),
		publicBaseURL: strings.TrimRight(conf.S3PublicBaseURL, "/"),
		validator:     Validator{MaxBytes: maxBytes},
	}
}

// Store streams the image to the bucket.
func (s *S3Store) Store(ctx context.Context, r io.Reader, filename string) (Object, error) {
	c, err := s.validator.open(ctx, r, filename)
	if err != nil {
		return Object{}, err
	}

	key := path.Join(s.folder, generateName(c.ext))
	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        c.body,
		ContentType: aws.String(c.contentType),
	})
	if c.body.exceeded {
		return Object{}, ErrTooLarge
	}
	if err != nil {
		return Object{}, fmt.Errorf("failed to upload image to S3: %w", err)
	}

	return Object{URL: s.urlFor(key, out.Location), Key: key}, nil
}

// Delete removes the object. S3 reports success for keys that do not exist.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	_, err := s.deleter.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete image from S3: %w", err)
	}
	return nil
}

// KeyFromURL recovers the object key from a URL previously returned by Store.
func (s *S3Store) KeyFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	p := strings.TrimPrefix(u.Path, "/")
	if s.folder == "" {
		if p == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, rawURL)
		}
		return p, nil
	}

	prefix := s.folder + "/"
	if strings.HasPrefix(p, prefix) {
		return p, nil
	}
	idx := strings.Index(p, "/"+prefix)
	if idx < 0 {
		return "", fmt.Errorf("%w: %q is outside %s", ErrInvalidKey, rawURL, s.folder)
	}
	return p[idx+1:], nil
}

func (s *S3Store) urlFor(key, location string) string {
	if s.publicBaseURL != "" || location == "" {
		return s.publicBaseURL + "/" + key
	}
	return location
}
