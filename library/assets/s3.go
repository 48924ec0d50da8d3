package assets

import (
	"context"
	"fmt"

	"github.com/Laisky/errors/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Laisky/fingenius-compliance/library/config"
)

// S3 stores assets with the AWS SDK, against AWS or a custom endpoint.
type S3 struct {
	cli     *s3.Client
	bucket  string
	baseURL string
}

// NewS3 creates the s3 driver.
func NewS3(ctx context.Context, settings config.AssetSettings) (*S3, error) {
	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion(settings.Region),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			settings.AccessKey,
			settings.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	cli := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if settings.Endpoint != "" {
			o.BaseEndpoint = aws.String(settings.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := settings.PublicURL
	switch {
	case baseURL != "":
	case settings.Endpoint != "":
		baseURL = endpointBase(settings)
	default:
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", settings.Bucket, settings.Region)
	}

	return &S3{
		cli:     cli,
		bucket:  settings.Bucket,
		baseURL: baseURL,
	}, nil
}

// Store uploads obj and returns its public URL.
func (s *S3) Store(ctx context.Context, obj Object) (*Asset, error) {
	key := objectKey(obj.Folder, obj.Filename)
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          obj.Body,
		ContentLength: aws.Int64(obj.Size),
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}

	if _, err := s.cli.PutObject(ctx, input); err != nil {
		return nil, errors.Wrapf(err, "put object %q", key)
	}

	return &Asset{
		URL:     publicURL(s.baseURL, key),
		AssetID: key,
	}, nil
}

// Delete removes the object.
func (s *S3) Delete(ctx context.Context, assetID string) error {
	if _, err := s.cli.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(assetID),
	}); err != nil {
		return errors.Wrapf(err, "delete object %q", assetID)
	}

	return nil
}

// Ping verifies the bucket is reachable with the configured credentials.
func (s *S3) Ping(ctx context.Context) error {
	if _, err := s.cli.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	}); err != nil {
		return errors.Wrapf(err, "head bucket %q", s.bucket)
	}

	return nil
}
