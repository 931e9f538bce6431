package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Object metadata keys written alongside each S3 object.
const (
	metaHash     = "sha256"
	metaRecordID = "record-id"
	metaUserID   = "user-id"
	metaCreated  = "created-at"
)

// s3API is the subset of *s3.Client used by S3Store.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store archives objects in an S3 bucket under an optional key prefix.
type S3Store struct {
	client s3API
	bucket string
	prefix string
}

func NewS3Store(client s3API, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// NewS3Client loads the default AWS configuration. A non-empty endpoint
// switches to path-style addressing for S3-compatible servers.
func NewS3Client(ctx context.Context, endpoint string) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (s *S3Store) objectKey(key string) string {
	return s.prefix + key
}

func (s *S3Store) Put(ctx context.Context, meta Object, content []byte) (*Object, error) {
	meta, err := prepare(meta, content, time.Now())
	if err != nil {
		return nil, err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(meta.Key)),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(meta.ContentType),
		ACL:         types.ObjectCannedACLPrivate,
		Metadata:    map[string]string{
			metaHash:     meta.Hash,
			metaRecordID: meta.RecordID,
			metaUserID:   meta.UserID,
			metaCreated:  meta.CreatedAt.Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("put s3://%s/%s: %w", s.bucket, s.objectKey(meta.Key), err)
	}
	return &meta, nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, *Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, s.objectKey(key), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, MaxObjectSize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("read s3 object: %w", err)
	}
	meta := &Object{
		Key:         key,
		ContentType: aws.ToString(out.ContentType),
		Size:        int64(len(data)),
		Hash:        out.Metadata[metaHash],
		RecordID:    out.Metadata[metaRecordID],
		UserID:      out.Metadata[metaUserID],
	}
	if ts, err := time.Parse(time.RFC3339Nano, out.Metadata[metaCreated]); err == nil {
		meta.CreatedAt = ts
	}
	return data, meta, nil
}
