package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"
)

var ErrImageNotFound = eris.New("image not found")

// ImageStore archives uploaded meal photos.
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// ImageKey names an upload after its user and time. Only the base name of the
// client-supplied filename is kept.
func ImageKey(userID int64, filename string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
	return fmt.Sprintf("meal_%d_%s_%s", userID, now.UTC().Format("20060102_150405"), base)
}

type FileImageStore struct {
	Dir string
}

func NewFileImageStore(dir string) *FileImageStore {
	return &FileImageStore{Dir: dir}
}

func (s *FileImageStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return eris.Wrapf(err, "failed to create image dir %s", s.Dir)
	}
	if err := os.WriteFile(s.path(key), data, 0o644); err != nil {
		return eris.Wrapf(err, "failed to write image %s", key)
	}
	return nil
}

func (s *FileImageStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, eris.Wrap(ErrImageNotFound, key)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read image %s", key)
	}
	return data, nil
}

func (s *FileImageStore) path(key string) string {
	return filepath.Join(s.Dir, filepath.Base(key))
}

// s3Client is the subset of *s3.Client used for archiving.
type s3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3ImageStore implements ImageStore backed by S3.
type S3ImageStore struct {
	bucket string
	prefix string
	s3     s3Client
}

func NewS3ImageStore(s3Client s3Client, bucket, prefix string) *S3ImageStore {
	return &S3ImageStore{
		bucket: bucket,
		prefix: prefix,
		s3:     s3Client,
	}
}

func (s *S3ImageStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.prefix + key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return eris.Wrapf(err, "failed to put image %s to S3", key)
	}
	return nil
}

func (s *S3ImageStore) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + key),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "failed to get image %s from S3", key)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// MemoryImageStore is an in-memory ImageStore for tests and local runs.
type MemoryImageStore struct {
	mu     sync.RWMutex
	images map[string][]byte
	err    error
}

func NewMemoryImageStore() *MemoryImageStore {
	return &MemoryImageStore{images: make(map[string][]byte)}
}

// NewMemoryImageStoreWithError returns a store whose Put always fails.
func NewMemoryImageStoreWithError(err error) *MemoryImageStore {
	return &MemoryImageStore{images: make(map[string][]byte), err: err}
}

func (m *MemoryImageStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[key] = bytes.Clone(data)
	return nil
}

func (m *MemoryImageStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.images[key]
	if !ok {
		return nil, eris.Wrap(ErrImageNotFound, key)
	}
	return data, nil
}

func (m *MemoryImageStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.images)
}
