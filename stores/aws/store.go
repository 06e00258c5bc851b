package aws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	"whiteboard/core"
)

// Name is the name the S3 store is addressed by.
const Name = "S3"

const (
	canvasPrefix = "canvases/"
	strokePrefix = "strokes/"
	objectExt    = ".json"
)

// objectAPI is the subset of the S3 client the store uses.
type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	s3.ListObjectsV2APIClient
}

type s3Store struct {
	client objectAPI
	bucket string
}

// NewStore creates a new S3-based store using the default AWS configuration chain.
func NewStore(ctx context.Context, bucketName string) (*s3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return newStore(s3.NewFromConfig(cfg), bucketName), nil
}

func newStore(client objectAPI, bucket string) *s3Store {
	return &s3Store{client: client, bucket: bucket}
}

func (s *s3Store) Name() string {
	return Name
}

// objectKey builds the key for id under prefix. IDs must be plain names.
func objectKey(prefix, id string) (string, error) {
	if path.Base(id) != id {
		return "", fmt.Errorf("invalid id: must not be a path")
	}
	if id == "" || id == "." || id == ".." {
		return "", fmt.Errorf("invalid id: must not be empty or a dot directory")
	}
	return prefix + id + objectExt, nil
}

func (s *s3Store) getObject(ctx context.Context, key string, v any) error {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return core.ErrNotFound
		}
		return fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read object %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal object %s: %w", key, err)
	}
	return nil
}

func (s *s3Store) putObject(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal object %s: %w", key, err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

// List returns every canvas in key order, which for generated IDs is creation order.
func (s *s3Store) List(ctx context.Context) ([]*core.CanvasRecord, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(canvasPrefix),
	})

	records := []*core.CanvasRecord{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list canvases: %w", err)
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			if !strings.HasSuffix(key, objectExt) {
				continue
			}
			var record core.CanvasRecord
			if err := s.getObject(ctx, key, &record); err != nil {
				logrus.WithField("key", key).WithError(err).Warn("Failed to load canvas object, skipping")
				continue
			}
			records = append(records, &record)
		}
	}

	logrus.WithField("bucket", s.bucket).Debugf("Listed %d canvases", len(records))
	return records, nil
}

func (s *s3Store) Get(ctx context.Context, id string) (*core.CanvasRecord, error) {
	key, err := objectKey(canvasPrefix, id)
	if err != nil {
		return nil, err
	}
	var record core.CanvasRecord
	if err := s.getObject(ctx, key, &record); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("canvas with id %s %w", id, core.ErrNotFound)
		}
		return nil, err
	}
	return &record, nil
}

func (s *s3Store) Save(ctx context.Context, record *core.CanvasRecord) error {
	if record == nil {
		return fmt.Errorf("canvas record cannot be nil")
	}
	key, err := objectKey(canvasPrefix, record.ID)
	if err != nil {
		return err
	}
	if err := s.putObject(ctx, key, record); err != nil {
		return fmt.Errorf("failed to save canvas %s: %w", record.ID, err)
	}
	return nil
}

func (s *s3Store) FindStroke(ctx context.Context, id string) (*core.Stroke, error) {
	key, err := objectKey(strokePrefix, id)
	if err != nil {
		return nil, err
	}
	var stroke core.Stroke
	if err := s.getObject(ctx, key, &stroke); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("stroke with id %s %w", id, core.ErrNotFound)
		}
		return nil, err
	}
	return &stroke, nil
}

func (s *s3Store) SaveStroke(ctx context.Context, stroke *core.Stroke) error {
	if stroke == nil {
		return fmt.Errorf("stroke cannot be nil")
	}
	key, err := objectKey(strokePrefix, stroke.ID)
	if err != nil {
		return err
	}
	if err := s.putObject(ctx, key, stroke); err != nil {
		return fmt.Errorf("failed to save stroke %s: %w", stroke.ID, err)
	}
	return nil
}
