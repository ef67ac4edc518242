package adapter

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
)

// ErrNotFound is returned by Storage.Get when no blob exists for the key.
var ErrNotFound = goerr.New("blob not found")

// Storage is a key-value blob store used to persist the memory list
type Storage interface {
	// Put returns a writer that replaces the blob at key once closed
	Put(ctx context.Context, key string) (io.WriteCloser, error)
	// Get opens the blob at key. It returns ErrNotFound if none exists
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// storageClient implements Storage interface using Cloud Storage
type storageClient struct {
	bucketName string
	prefix     string
	client     *storage.Client
}

// NewCloudStorage creates a new Cloud Storage client. Keys are stored under
// prefix inside the bucket.
func NewCloudStorage(ctx context.Context, bucketName, prefix string) (Storage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &storageClient{
		bucketName: bucketName,
		prefix:     prefix,
		client:     client,
	}, nil
}

func (s *storageClient) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	obj := s.client.Bucket(s.bucketName).Object(s.prefix + key)
	writer := obj.NewWriter(ctx)
	writer.ContentType = "application/json"
	return writer, nil
}

func (s *storageClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj := s.client.Bucket(s.bucketName).Object(s.prefix + key)
	reader, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(ErrNotFound, "object does not exist", goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to read from storage", goerr.V("key", key))
	}

	return reader, nil
}

// fileStorage implements Storage interface on the local file system
type fileStorage struct {
	dir string
}

// NewFileStorage stores each key as a file in dir, creating dir if needed.
func NewFileStorage(dir string) (Storage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, goerr.Wrap(err, "failed to create storage directory", goerr.V("dir", dir))
	}
	return &fileStorage{dir: dir}, nil
}

func (s *fileStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	tmp, err := os.CreateTemp(s.dir, "."+filepath.Base(key)+".*")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create temp file", goerr.V("key", key))
	}
	return &atomicFile{File: tmp, path: filepath.Join(s.dir, filepath.Base(key))}, nil
}

func (s *fileStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path := filepath.Join(s.dir, filepath.Base(key))
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, goerr.Wrap(ErrNotFound, "file does not exist", goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to open file", goerr.V("path", path))
	}
	return f, nil
}

// atomicFile renames the temp file over the destination on Close so readers
// never observe a partially written blob.
type atomicFile struct {
	*os.File
	path string
}

func (f *atomicFile) Close() error {
	if err := f.File.Sync(); err != nil {
		_ = f.File.Close()
		_ = os.Remove(f.File.Name())
		return goerr.Wrap(err, "failed to sync file", goerr.V("path", f.path))
	}
	if err := f.File.Close(); err != nil {
		_ = os.Remove(f.File.Name())
		return goerr.Wrap(err, "failed to close file", goerr.V("path", f.path))
	}
	if err := os.Rename(f.File.Name(), f.path); err != nil {
		_ = os.Remove(f.File.Name())
		return goerr.Wrap(err, "failed to replace file", goerr.V("path", f.path))
	}
	return nil
}
