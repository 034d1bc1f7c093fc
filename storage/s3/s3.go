// Package s3 provides an S3-backed reference store for pulseflow.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	amazons3 "github.com/aws/aws-sdk-go-v2/service/s3"
	smithy "github.com/aws/smithy-go"

	loggingpkg "github.com/drblury/pulseflow/internal/runtime/logging"
)

// Config provides the settings needed to build the store.
type Config interface {
	GetAWSRegion() string
	GetAWSAccessKeyID() string
	GetAWSSecretAccessKey() string
	GetAWSEndpoint() string
	GetReferenceBucket() string
	GetReferenceKeyPrefix() string
}

// Client is the subset of the S3 API the store uses.
type Client interface {
	PutObject(ctx context.Context, input *amazons3.PutObjectInput, optFns ...func(*amazons3.Options)) (*amazons3.PutObjectOutput, error)
}

// DefaultConfigLoader allows overriding the AWS config loader for testing.
var DefaultConfigLoader = awsconfig.LoadDefaultConfig

// ClientFactory allows overriding the S3 client creation for testing.
var ClientFactory = func(awsCfg aws.Config, optFns ...func(*amazons3.Options)) Client {
	return amazons3.NewFromConfig(awsCfg, optFns...)
}

// Store uploads reference documents to an S3 bucket. It satisfies the
// reference store contract expected by pulseflow.PublishReference.
type Store struct {
	client    Client
	log       loggingpkg.ServiceLogger
	bucket    string
	keyPrefix string
}

// Build creates a store from cfg. A reference bucket is required; region,
// credentials, and endpoint fall back to the ambient AWS environment when
// unset.
func Build(ctx context.Context, cfg Config, log loggingpkg.ServiceLogger) (*Store, error) {
	if log == nil {
		log = loggingpkg.NewNopLogger()
	}
	if cfg == nil || cfg.GetReferenceBucket() == "" {
		return nil, errors.New("s3: a reference bucket is required")
	}

	awsCfg, err := createAWSConfig(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info("Created AWS config", loggingpkg.LogFields{
		"region":          awsCfg.Region,
		"custom_endpoint": cfg.GetAWSEndpoint() != "",
	})

	var optFns []func(*amazons3.Options)
	if endpoint := cfg.GetAWSEndpoint(); endpoint != "" {
		optFns = append(optFns, func(o *amazons3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			// MinIO and LocalStack do not resolve virtual-hosted bucket names.
			o.UsePathStyle = true
		})
	}

	return &Store{
		client:    ClientFactory(*awsCfg, optFns...),
		log:       log,
		bucket:    cfg.GetReferenceBucket(),
		keyPrefix: cfg.GetReferenceKeyPrefix(),
	}, nil
}

func createAWSConfig(ctx context.Context, cfg Config, log loggingpkg.ServiceLogger) (*aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if region := cfg.GetAWSRegion(); region != "" {
		log.Info("Setting AWS region from config", loggingpkg.LogFields{"region": region})
		opts = append(opts, awsconfig.WithRegion(region))
	}
	accessKey := cfg.GetAWSAccessKeyID()
	secretKey := cfg.GetAWSSecretAccessKey()
	if accessKey != "" && secretKey != "" {
		log.Info("Using static AWS credentials from config", loggingpkg.LogFields{})
		opts = append(opts, awsconfig.WithCredentialsProvider(staticCredentialsProvider(accessKey, secretKey)))
	}

	awsCfg, err := DefaultConfigLoader(ctx, opts...)
	if err != nil {
		log.Error("Failed to load AWS default config", err, loggingpkg.LogFields{})
		return nil, err
	}

	// Ensure region is set even if the loader ignores options
	if region := cfg.GetAWSRegion(); region != "" {
		awsCfg.Region = region
	}

	return &awsCfg, nil
}

// Put uploads body under the configured key prefix with the given content
// type.
func (s *Store) Put(ctx context.Context, key, contentType string, body []byte) error {
	objectKey := s.ObjectKey(key)
	_, err := s.client.PutObject(ctx, &amazons3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		fields := loggingpkg.LogFields{
			"bucket": s.bucket,
			"key":    objectKey,
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			fields["error_code"] = apiErr.ErrorCode()
		}
		s.log.Error("Failed to upload reference document", err, fields)
		return fmt.Errorf("s3: upload %q to bucket %q: %w", objectKey, s.bucket, err)
	}
	s.log.Info("Uploaded reference document", loggingpkg.LogFields{
		"bucket": s.bucket,
		"key":    objectKey,
		"bytes":  len(body),
	})
	return nil
}

// ObjectKey returns the full object key for key, with the configured key
// prefix applied.
func (s *Store) ObjectKey(key string) string {
	if s.keyPrefix == "" {
		return key
	}
	return strings.TrimSuffix(s.keyPrefix, "/") + "/" + strings.TrimPrefix(key, "/")
}

func staticCredentialsProvider(accessKeyID, secretAccessKey string) aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     accessKeyID,
			SecretAccessKey: secretAccessKey,
		}, nil
	})
}
