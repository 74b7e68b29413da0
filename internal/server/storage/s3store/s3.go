// Package s3store keeps the snapshot document as a single object in an
// S3-compatible bucket (AWS S3, MinIO).
package s3store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/dmitrijs2005/loremgate/internal/server/models"
)

// DefaultObjectKey is used when Settings.ObjectKey is empty.
const DefaultObjectKey = "loremgate/snapshot.json"

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// objectAPI is the part of *s3.Client the backend uses.
type objectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Settings locate the bucket and authenticate against it with static
// credentials.
type Settings struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	BaseEndpoint string
	ObjectKey    string
}

type Backend struct {
	api    objectAPI
	bucket string
	key    string
}

func New(ctx context.Context, s Settings) (*Backend, error) {
	if s.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", common.ErrorInvalidArgument)
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.AccessKey,
			s.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		if s.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.BaseEndpoint)
			// MinIO and most self-hosted gateways do not resolve bucket subdomains
			o.UsePathStyle = true
		}
	})

	return newWithAPI(client, s.Bucket, s.ObjectKey), nil
}

func newWithAPI(api objectAPI, bucket, key string) *Backend {
	if key == "" {
		key = DefaultObjectKey
	}
	return &Backend{api: api, bucket: bucket, key: key}
}

func (b *Backend) Load(ctx context.Context) (*models.Snapshot, error) {
	out, err := b.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var nf *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &nf) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("get object %s/%s: %w", b.bucket, b.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}

	snap := &models.Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func (b *Backend) Save(ctx context.Context, snap *models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = b.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", b.bucket, b.key, err)
	}
	return nil
}

func (b *Backend) Close() error { return nil }
