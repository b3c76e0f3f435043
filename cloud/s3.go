package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client builds an S3 client from opts.
// A nil opts loads the default AWS configuration chain.
func NewS3Client(ctx context.Context, opts *Options) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, loadOptions(opts)...)
	if err != nil {
		return nil, fmt.Errorf("cloud: load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts == nil {
			return
		}
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.ForcePathStyle
	}), nil
}

func loadOptions(opts *Options) []func(*config.LoadOptions) error {
	if opts == nil {
		return nil
	}

	var out []func(*config.LoadOptions) error
	if opts.Region != "" {
		out = append(out, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		out = append(out, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken),
		))
	}
	if opts.MaxRetries > 0 {
		out = append(out, config.WithRetryMaxAttempts(opts.MaxRetries))
	}
	return out
}
