package adapter

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
)

// Archive persists session transcripts. Implementations must tolerate
// concurrent sessions writing under distinct keys.
type Archive interface {
	// Save writes one transcript entry under the given object key
	Save(ctx context.Context, key string, data []byte) error
	// Load reads a previously saved transcript entry
	Load(ctx context.Context, key string) ([]byte, error)
}

// cloudArchive implements Archive on a Cloud Storage bucket
type cloudArchive struct {
	bucketName string
	client     *storage.Client
}

// NewArchive creates a Cloud Storage backed transcript archive
func NewArchive(ctx context.Context, bucketName string) (Archive, error) {
	if bucketName == "" {
		return nil, goerr.New("bucket name is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &cloudArchive{
		bucketName: bucketName,
		client:     client,
	}, nil
}

func (s *cloudArchive) Save(ctx context.Context, key string, data []byte) error {
	obj := s.client.Bucket(s.bucketName).Object(key)
	w := obj.NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write transcript", goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize transcript", goerr.V("key", key))
	}
	return nil
}

func (s *cloudArchive) Load(ctx context.Context, key string) ([]byte, error) {
	obj := s.client.Bucket(s.bucketName).Object(key)
	r, err := obj.NewReader(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read transcript", goerr.V("key", key))
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read transcript body", goerr.V("key", key))
	}
	return data, nil
}
