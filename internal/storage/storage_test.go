package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
		err  bool
	}{
		"plain":     {in: "images/u/1.png", want: "images/u/1.png"},
		"leading":   {in: "/images/1.png", want: "images/1.png"},
		"backslash": {in: `images\1.png`, want: "images/1.png"},
		"empty":     {in: " ", err: true},
		"root":      {in: "/", err: true},
		"traversal": {in: "../etc/passwd", err: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := cleanKey(tc.in)
			if tc.err {
				assert.ErrorIs(t, err, ErrInvalidKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLocalService(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	svc, err := NewLocalService(root, "http://localhost:8000/", "static")
	require.NoError(t, err)

	require.NoError(t, svc.Put(ctx, "images/u1/a.png", bytes.NewReader([]byte("png")), 3, "image/png"))
	data, err := os.ReadFile(filepath.Join(root, "images", "u1", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	url, err := svc.URL(ctx, "images/u1/a.png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/static/images/u1/a.png", url)

	require.NoError(t, svc.Delete(ctx, "images/u1/a.png"))
	_, err = os.Stat(filepath.Join(root, "images", "u1", "a.png"))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, svc.Delete(ctx, "images/u1/a.png"))

	assert.ErrorIs(t, svc.Put(ctx, "../x", bytes.NewReader(nil), 0, ""), ErrInvalidKey)
}

func TestLocalServiceCancelledPut(t *testing.T) {
	svc, err := NewLocalService(t.TempDir(), "http://localhost", "static")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, svc.Put(ctx, "a.png", bytes.NewReader([]byte("x")), 1, ""))
}

func TestS3PresignedURL(t *testing.T) {
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String("http://localhost:9000"),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
	})
	svc := NewS3Service(client, "avatars", time.Minute)

	url, err := svc.URL(context.Background(), "images/u1/a.png")
	require.NoError(t, err)
	assert.Contains(t, url, "http://localhost:9000/avatars/images/u1/a.png")
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=60")

	_, err = svc.URL(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}
