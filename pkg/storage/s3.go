package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Phlares/arenaflow/pkg/errors"
)

// S3Config holds S3 log store configuration.
type S3Config struct {
	// Region is the AWS region (e.g., "us-east-1")
	Region string

	// Bucket holds the combat logs.
	Bucket string

	// Prefix narrows the listing to the log objects.
	Prefix string

	// Endpoint overrides the default S3 endpoint (for S3-compatible services)
	Endpoint string

	// UsePathStyle forces path-style addressing (for MinIO, LocalStack)
	UsePathStyle bool

	// Credentials (optional - uses default chain if not provided)
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// DownloadTimeout bounds a single log read.
	DownloadTimeout time.Duration
}

// DefaultS3Config returns sensible defaults for an S3 log store.
func DefaultS3Config(bucket, region string) S3Config {
	return S3Config{
		Bucket:          bucket,
		Region:          region,
		DownloadTimeout: 5 * time.Minute,
	}
}

// S3Store finds combat logs in an S3 bucket by their filename stamp.
type S3Store struct {
	cfg    S3Config
	client *s3.Client

	keys   []string
	starts []time.Time
}

// NewS3Store creates the store and lists the stamped log objects under
// the configured prefix.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	st := &S3Store{cfg: cfg, client: s3.NewFromConfig(awsCfg, s3Opts...)}
	if err := st.list(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

// list pages through the bucket collecting stamped log keys.
func (s *S3Store) list(ctx context.Context) error {
	var continuationToken *string
	for {
		input := &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.cfg.Bucket),
			ContinuationToken: continuationToken,
		}
		if s.cfg.Prefix != "" {
			input.Prefix = aws.String(s.cfg.Prefix)
		}

		output, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return errors.Wrap(err, errors.CodeLogUnreadable, "list log bucket")
		}

		for _, obj := range output.Contents {
			key := aws.ToString(obj.Key)
			if ts, ok := parseStamp(key); ok {
				s.keys = append(s.keys, key)
				s.starts = append(s.starts, ts)
			}
		}

		if !aws.ToBool(output.IsTruncated) {
			break
		}
		continuationToken = output.NextContinuationToken
	}
	return nil
}

// Len returns the number of stamped logs listed.
func (s *S3Store) Len() int { return len(s.keys) }

// Find implements LogStore.
func (s *S3Store) Find(ctx context.Context, start time.Time) (*LogHandle, error) {
	i := bestCandidate(s.keys, s.starts, start)
	if i < 0 {
		return nil, errors.New(errors.CodeLogUnreadable, "no combat log covers the declared start").
			WithContext("declared_start", start.Format(time.RFC3339)).
			WithContext("bucket", s.cfg.Bucket)
	}

	key := s.keys[i]
	return &LogHandle{
		path:  "s3://" + s.cfg.Bucket + "/" + key,
		start: s.starts[i],
		open: func(ctx context.Context) (io.ReadCloser, error) {
			return s.reader(ctx, key)
		},
	}, nil
}

// reader streams one log object, canceling its timeout on close.
func (s *S3Store) reader(ctx context.Context, key string) (io.ReadCloser, error) {
	timeout := s.cfg.DownloadTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)

	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to get object %s/%s: %w", s.cfg.Bucket, key, err)
	}

	return &cancelOnCloseReader{ReadCloser: output.Body, cancel: cancel}, nil
}

type cancelOnCloseReader struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *cancelOnCloseReader) Close() error {
	r.cancel()
	return r.ReadCloser.Close()
}
