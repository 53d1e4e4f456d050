package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"video-ads/internal/apperr"
	"video-ads/internal/logger"
)

const keyPrefix = "videos/"

// S3API is the subset of the S3 client used here.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type S3Options struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Expiry    time.Duration
}

// S3 keeps media in a bucket and hands out presigned GET URLs.
type S3 struct {
	api       S3API
	presigner Presigner
	bucket    string
	expiry    time.Duration
}

func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, &apperr.ConfigurationError{Key: "AWS_S3_FILES_BUCKET"}
	}
	if opts.Region == "" {
		return nil, &apperr.ConfigurationError{Key: "AWS_S3_REGION"}
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return NewS3WithClient(client, s3.NewPresignClient(client), opts.Bucket, opts.Expiry), nil
}

func NewS3WithClient(api S3API, presigner Presigner, bucket string, expiry time.Duration) *S3 {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &S3{api: api, presigner: presigner, bucket: bucket, expiry: expiry}
}

func (s *S3) Store(ctx context.Context, data []byte, userID, jobID string, kind Kind) (string, error) {
	key, err := Key(userID, jobID, kind)
	if err != nil {
		return "", err
	}
	key = keyPrefix + key

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ContentType(kind)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	logger.GetLogger().WithField("key", key).WithField("bytes", len(data)).Info("Uploaded media to S3")
	return key, nil
}

func (s *S3) URLFor(ctx context.Context, key string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to sign url for %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3) Delete(ctx context.Context, key string) {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		logger.GetLogger().WithError(err).WithField("key", key).Warn("Failed to delete media from S3")
	}
}
