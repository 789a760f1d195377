package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorePutAndDelete(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileStore(root, "http://localhost:8080/storage/", 16)
	require.NoError(t, err)

	obj, err := s.Put(context.Background(), "profile-pictures", "u-1.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), obj.Size)

	data, err := os.ReadFile(filepath.Join(root, "profile-pictures", "u-1.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "http://localhost:8080/storage/profile-pictures/u-1.png", s.PublicURL("profile-pictures", "u-1.png"))

	require.NoError(t, s.Delete(context.Background(), "profile-pictures", "u-1.png"))
	assert.ErrorIs(t, s.Delete(context.Background(), "profile-pictures", "u-1.png"), ErrNotFound)
}

func TestFileStoreRejectsLargeObjects(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "", 4)
	require.NoError(t, err)
	_, err = s.Put(context.Background(), "b", "k", "", strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "", 0)
	require.NoError(t, err)
	for _, key := range []string{"../x", "a/b", "..", ""} {
		_, err = s.Put(context.Background(), "b", key, "", strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore("https://cdn.test", 0)
	_, err := s.Put(context.Background(), "profile-pictures", "a.jpg", "image/jpeg", strings.NewReader("jpg"))
	require.NoError(t, err)

	r, obj, err := s.Get("profile-pictures", "a.jpg")
	require.NoError(t, err)
	body, _ := io.ReadAll(r)
	assert.Equal(t, "jpg", string(body))
	assert.Equal(t, "image/jpeg", obj.ContentType)
	assert.Equal(t, "https://cdn.test/profile-pictures/a.jpg", s.PublicURL("profile-pictures", "a.jpg"))

	require.NoError(t, s.Delete(context.Background(), "profile-pictures", "a.jpg"))
	_, _, err = s.Get("profile-pictures", "a.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}
