package storage

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/fanserve/media-api/domain/model"
	"github.com/fanserve/media-api/infrastructure/settings"
	"github.com/pkg/errors"
)

// S3 stores objects in an S3-compatible object store. Credentials live in
// the runtime settings store, so every operation builds its session from a
// fresh settings read.
type S3 struct {
	settings *settings.Store
}

func NewS3(store *settings.Store) *S3 {
	return &S3{settings: store}
}

func (s *S3) Type() model.StorageType {
	return model.StorageS3
}

func (s *S3) Upload(ctx context.Context, key string, acl model.ACL, body io.Reader, mimeType string) (*UploadResult, error) {
	cfg := s.settings.Get()
	sess, err := s.newSession(cfg)
	if err != nil {
		return nil, err
	}

	uploader := s3manager.NewUploader(sess)
	out, err := uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(cfg.S3.Bucket),
		Key:         aws.String(key),
		ACL:         aws.String(string(acl)),
		Body:        body,
		ContentType: aws.String(mimeType),
	})
	if err != nil {
		return nil, errors.Wrap(err, "s3 upload failed")
	}

	return &UploadResult{
		Key:      key,
		Location: out.Location,
		Bucket:   cfg.S3.Bucket,
	}, nil
}

func (s *S3) DeleteObjects(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	cfg := s.settings.Get()
	sess, err := s.newSession(cfg)
	if err != nil {
		return err
	}

	client := s3.New(sess)
	objects := make([]*s3.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, &s3.ObjectIdentifier{Key: aws.String(key)})
	}

	_, err = client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(cfg.S3.Bucket),
		Delete: &s3.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		// Missing keys are not an error; bulk delete is already quiet about
		// them, this handles stores that report NoSuchKey anyway.
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil
		}
		return errors.Wrap(err, "s3 delete failed")
	}
	return nil
}

func (s *S3) ReadStream(ctx context.Context, key string) (io.ReadCloser, error) {
	cfg := s.settings.Get()
	sess, err := s.newSession(cfg)
	if err != nil {
		return nil, err
	}

	out, err := s3.New(sess).GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(cfg.S3.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrap(err, "s3 get failed")
	}
	return out.Body, nil
}

// CheckAvailability re-reads the live credentials; availability is false
// whenever any required field is absent.
func (s *S3) CheckAvailability(ctx context.Context) bool {
	return s.settings.Get().S3Configured()
}

func (s *S3) newSession(cfg settings.Storage) (*session.Session, error) {
	if !cfg.S3Configured() {
		return nil, ErrUnavailable
	}

	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String(cfg.S3.Region),
		Endpoint:         aws.String(cfg.S3.Endpoint),
		Credentials:      credentials.NewStaticCredentials(cfg.S3.AccessKey, cfg.S3.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create s3 session")
	}
	return sess, nil
}
