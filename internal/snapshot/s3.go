package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const defaultRegion = "us-east-1"

// S3Config holds the parameters for an S3 (or S3-compatible, e.g. MinIO)
// bucket. Static keys are optional; without them the default AWS credential
// chain applies.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// S3 stores each key as the object <key>.json holding the JSON envelope.
type S3 struct {
	client *s3.Client
	bucket string
	now    func() time.Time
}

// OpenS3 builds a client from cfg.
func OpenS3(ctx context.Context, cfg S3Config, now func() time.Time) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket required", ErrInvalidConfig)
	}

	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}

	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("snapshot: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle

		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return newS3(client, cfg.Bucket, now), nil
}

func newS3(client *s3.Client, bucket string, now func() time.Time) *S3 {
	if now == nil {
		now = time.Now
	}

	return &S3{client: client, bucket: bucket, now: now}
}

func (s *S3) Driver() Driver { return DriverS3 }

func (s *S3) objectKey(key string) string { return key + ".json" }

func (s *S3) Save(ctx context.Context, key string, data []byte) (Info, error) {
	err := validKey(key)
	if err != nil {
		return Info{}, err
	}

	env, err := newEnvelope(data, s.now)
	if err != nil {
		return Info{}, err
	}

	raw, err := encodeEnvelope(env)
	if err != nil {
		return Info{}, err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          bytes.NewReader(raw),
		ContentLength: aws.Int64(int64(len(raw))),
		ContentType:   aws.String("application/json"),
		Metadata:      map[string]string{"snapshot-id": env.ID.String()},
	})
	if err != nil {
		return Info{}, fmt.Errorf("snapshot: put %s/%s: %w", s.bucket, s.objectKey(key), err)
	}

	return env.info(key), nil
}

func (s *S3) Load(ctx context.Context, key string) ([]byte, Info, error) {
	err := validKey(key)
	if err != nil {
		return nil, Info{}, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if isNotFound(err) {
		return nil, Info{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err != nil {
		return nil, Info{}, fmt.Errorf("snapshot: get %s/%s: %w", s.bucket, s.objectKey(key), err)
	}

	defer func() { _ = out.Body.Close() }()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, Info{}, fmt.Errorf("snapshot: read %s/%s: %w", s.bucket, s.objectKey(key), err)
	}

	return decodeEnvelope(key, raw)
}

func (s *S3) Close() error { return nil }

func isNotFound(err error) bool {
	if err == nil {
		return false
	}

	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}

	var resp *awshttp.ResponseError

	return errors.As(err, &resp) && resp.HTTPStatusCode() == http.StatusNotFound
}
