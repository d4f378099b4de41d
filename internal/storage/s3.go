package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // for MinIO and other S3-compatible servers
	AccessKey string
	SecretKey string
	PublicURL string // base URL objects are served from; derived when empty
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3 struct {
	api       objectAPI
	bucket    string
	publicURL string
}

func NewS3(ctx context.Context, c S3Config) (*S3, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.Region)}
	if c.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3(client, c), nil
}

func newS3(api objectAPI, c S3Config) *S3 {
	base := c.PublicURL
	if base == "" {
		if c.Endpoint != "" {
			base = strings.TrimRight(c.Endpoint, "/") + "/" + c.Bucket
		} else {
			base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.Bucket, c.Region)
		}
	}
	return &S3{api: api, bucket: c.Bucket, publicURL: strings.TrimRight(base, "/") + "/"}
}

func (s *S3) Save(ctx context.Context, ext, contentType string, r io.Reader, size int64) (string, error) {
	key := "profile/" + objectName(ext)
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return s.publicURL + key, nil
}

func (s *S3) Delete(ctx context.Context, ref string) error {
	if !strings.HasPrefix(ref, s.publicURL) {
		return nil
	}
	key := strings.TrimPrefix(ref, s.publicURL)
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}
