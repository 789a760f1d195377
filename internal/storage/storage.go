// Package storage keeps uploaded objects such as profile pictures and
// hands out their public URLs.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrTooLarge   = errors.New("object exceeds maximum allowed size")
	ErrInvalidKey = errors.New("invalid object key")
)

// Object describes a stored object.
type Object struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// BlobStore is the object storage backend.
type BlobStore interface {
	// Put stores r under bucket/key, replacing any existing object.
	Put(ctx context.Context, bucket, key, contentType string, r io.Reader) (*Object, error)
	Delete(ctx context.Context, bucket, key string) error
	PublicURL(bucket, key string) string
}

func validName(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// readLimited reads r fully, failing with ErrTooLarge past max bytes.
// A max of zero or less disables the limit.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, ErrTooLarge
	}
	return data, nil
}

func publicURL(base, bucket, key string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(bucket) + "/" + url.PathEscape(key)
}

// FileStore keeps objects under root/<bucket>/<key> on local disk. Objects
// are served by the HTTP layer below baseURL.
type FileStore struct {
	root     string
	baseURL  string
	maxBytes int64
}

func NewFileStore(root, baseURL string, maxBytes int64) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &FileStore{root: root, baseURL: baseURL, maxBytes: maxBytes}, nil
}

func (s *FileStore) Root() string { return s.root }

func (s *FileStore) Put(ctx context.Context, bucket, key, contentType string, r io.Reader) (*Object, error) {
	if !validName(bucket) || !validName(key) {
		return nil, ErrInvalidKey
	}
	data, err := readLimited(r, s.maxBytes)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.root, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create object: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write object: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, key)); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to store object: %w", err)
	}

	return &Object{Bucket: bucket, Key: key, ContentType: contentType, Size: int64(len(data))}, nil
}

func (s *FileStore) Delete(ctx context.Context, bucket, key string) error {
	if !validName(bucket) || !validName(key) {
		return ErrInvalidKey
	}
	err := os.Remove(filepath.Join(s.root, bucket, key))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *FileStore) PublicURL(bucket, key string) string {
	return publicURL(s.baseURL, bucket, key)
}

// MemoryStore keeps objects in memory.
type MemoryStore struct {
	mu       sync.RWMutex
	baseURL  string
	maxBytes int64
	objects  map[string][]byte
	meta     map[string]Object
}

func NewMemoryStore(baseURL string, maxBytes int64) *MemoryStore {
	return &MemoryStore{
		baseURL:  baseURL,
		maxBytes: maxBytes,
		objects:  make(map[string][]byte),
		meta:     make(map[string]Object),
	}
}

func (s *MemoryStore) Put(ctx context.Context, bucket, key, contentType string, r io.Reader) (*Object, error) {
	if !validName(bucket) || !validName(key) {
		return nil, ErrInvalidKey
	}
	data, err := readLimited(r, s.maxBytes)
	if err != nil {
		return nil, err
	}
	obj := Object{Bucket: bucket, Key: key, ContentType: contentType, Size: int64(len(data))}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = data
	s.meta[bucket+"/"+key] = obj
	return &obj, nil
}

// Get returns a stored object's content.
func (s *MemoryStore) Get(bucket, key string) (io.Reader, *Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, nil, ErrNotFound
	}
	obj := s.meta[bucket+"/"+key]
	return bytes.NewReader(data), &obj, nil
}

func (s *MemoryStore) Delete(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[bucket+"/"+key]; !ok {
		return ErrNotFound
	}
	delete(s.objects, bucket+"/"+key)
	delete(s.meta, bucket+"/"+key)
	return nil
}

func (s *MemoryStore) PublicURL(bucket, key string) string {
	return publicURL(s.baseURL, bucket, key)
}
