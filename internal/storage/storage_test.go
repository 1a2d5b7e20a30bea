package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(Config{BasePath: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, "art/a.jpg", bytes.NewReader([]byte("jpeg")), "image/jpeg"))

	ok, err := s.Exists(ctx, "art/a.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Get(ctx, "art/a.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	url, err := s.GetURL(ctx, "art/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "/files/art/a.jpg", url)

	require.NoError(t, s.Delete(ctx, "art/a.jpg"))
	require.NoError(t, s.Delete(ctx, "art/a.jpg"))
	ok, err = s.Exists(ctx, "art/a.jpg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorage_StaysInsideBase(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(Config{BasePath: t.TempDir(), BaseURL: "https://cdn.example.com/"})
	require.NoError(t, err)

	// ../ схлопывается внутрь корня
	require.NoError(t, s.Save(ctx, "../../x.jpg", bytes.NewReader([]byte("x")), "image/jpeg"))
	ok, err := s.Exists(ctx, "x.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	url, err := s.GetURL(ctx, "x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/x.jpg", url)

	assert.ErrorIs(t, s.Save(ctx, "", bytes.NewReader(nil), "image/jpeg"), ErrInvalidPath)
}

func TestNewStorage_Validation(t *testing.T) {
	_, err := NewStorage(Config{Type: "cloudflare_r2", Bucket: "b"})
	assert.Error(t, err)

	_, err = NewStorage(Config{Type: "s3"})
	assert.Error(t, err)

	_, err = NewStorage(Config{Type: "ftp"})
	assert.Error(t, err)

	r2, err := NewStorage(Config{Type: "cloudflare_r2", Bucket: "dreams", Endpoint: "https://acc.r2.cloudflarestorage.com"})
	require.NoError(t, err)
	url, err := r2.GetURL(context.Background(), "art/1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://dreams.r2.dev/art/1.jpg", url)
}
