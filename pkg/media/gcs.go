package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/xhad/vision-sync/internal/types"
)

type GCSConfig struct {
	Bucket          string
	CredentialsFile string // empty uses application default credentials
	Endpoint        string // emulator or test server
}

// GCSStore uploads room images to a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

func NewGCSStore(ctx context.Context, config GCSConfig) (*GCSStore, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		if _, err := os.Stat(config.CredentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", config.CredentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}
	if config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(config.Endpoint), option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	return &GCSStore{client: client, bucket: config.Bucket}, nil
}

// Upload writes data to objectPath and returns its public URL.
func (s *GCSStore) Upload(ctx context.Context, objectPath, contentType string, data []byte) (string, error) {
	writer := s.client.Bucket(s.bucket).Object(objectPath).NewWriter(ctx)
	writer.ContentType = contentType

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer for %s: %w", objectPath, err)
	}

	return PublicURL(s.bucket, objectPath), nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

// PublicURL is the anonymous-read URL of an object.
func PublicURL(bucket, objectPath string) string {
	u := url.URL{
		Scheme: "https",
		Host:   "storage.googleapis.com",
		Path:   "/" + path.Join(bucket, objectPath),
	}
	return u.String()
}

// ObjectPath names a new upload under prefix, e.g. room-images/<uuid>.jpg.
func ObjectPath(prefix string) string {
	return path.Join(prefix, uuid.NewString()+".jpg")
}

var _ types.ImageStore = (*GCSStore)(nil)
