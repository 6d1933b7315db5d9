package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/tbourn/go-receipt-service/internal/config"
)

// objectAPI is the subset of the S3 client used by S3Store.
type objectAPI interface {
	HeadBucketWithContext(ctx aws.Context, in *s3.HeadBucketInput, opts ...request.Option) (*s3.HeadBucketOutput, error)
	HeadObjectWithContext(ctx aws.Context, in *s3.HeadObjectInput, opts ...request.Option) (*s3.HeadObjectOutput, error)
	GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, opts ...request.Option) (*s3.GetObjectOutput, error)
}

// uploadAPI is the subset of s3manager.Uploader used by S3Store.
type uploadAPI interface {
	UploadWithContext(ctx aws.Context, in *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// S3Store keeps files as objects under Prefix in Bucket.
type S3Store struct {
	Bucket string
	Prefix string

	api      objectAPI
	uploader uploadAPI
}

// NewS3 returns an S3Store using sess for both object reads and uploads.
func NewS3(sess *session.Session, bucket, prefix string) *S3Store {
	return &S3Store{
		Bucket:   bucket,
		Prefix:   prefix,
		api:      s3.New(sess),
		uploader: s3manager.NewUploader(sess),
	}
}

// NewS3FromConfig opens an AWS session for cfg.S3Region. Credentials come
// from the default provider chain.
func NewS3FromConfig(cfg config.StorageConfig) (*S3Store, error) {
	awsCfg := &aws.Config{}
	if cfg.S3Region != "" {
		awsCfg.Region = aws.String(cfg.S3Region)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return NewS3(sess, cfg.S3Bucket, cfg.S3Prefix), nil
}

func (s *S3Store) key(name string) string {
	if s.Prefix == "" {
		return name
	}
	return path.Join(s.Prefix, name)
}

// EnsureDir checks that the bucket exists and is reachable.
func (s *S3Store) EnsureDir(ctx context.Context) error {
	if _, err := s.api.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.Bucket)}); err != nil {
		return fmt.Errorf("head bucket %s: %w", s.Bucket, err)
	}
	return nil
}

// Write uploads data as application/pdf and returns the s3:// location.
func (s *S3Store) Write(ctx context.Context, name string, data []byte) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	key := s.key(name)
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return "s3://" + s.Bucket + "/" + key, nil
}

// Exists issues a HEAD for the object.
func (s *S3Store) Exists(ctx context.Context, name string) (bool, error) {
	if err := checkName(name); err != nil {
		return false, err
	}
	_, err := s.api.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(name)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// Open streams the object body.
func (s *S3Store) Open(ctx context.Context, name string) (*Object, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	out, err := s.api.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	obj := &Object{Body: out.Body, Size: aws.Int64Value(out.ContentLength)}
	if out.LastModified != nil {
		obj.ModTime = *out.LastModified
	}
	return obj, nil
}

func isNotFound(err error) bool {
	var rf awserr.RequestFailure
	if errors.As(err, &rf) && rf.StatusCode() == http.StatusNotFound {
		return true
	}
	var ae awserr.Error
	if errors.As(err, &ae) {
		switch ae.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
