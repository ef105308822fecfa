package storage_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/petermazzocco/project-journal/internal/storage"
	"github.com/petermazzocco/project-journal/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiresAt(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want time.Time
		ok   bool
	}{
		{
			name: "s3",
			url:  "https://x.test/b/k?X-Amz-Date=20240102T030405Z&X-Amz-Expires=3600&X-Amz-Signature=abc",
			want: time.Date(2024, 1, 2, 4, 4, 5, 0, time.UTC),
			ok:   true,
		},
		{
			name: "sas",
			url:  "https://acct.blob.test/c/k?sv=2021&se=2024-05-01T10:00:00Z&sig=abc",
			want: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{name: "empty", url: ""},
		{name: "no expiry", url: "https://x.test/b/k"},
		{name: "bad date", url: "https://x.test/b/k?X-Amz-Date=yesterday&X-Amz-Expires=60"},
		{name: "bad expires", url: "https://x.test/b/k?X-Amz-Date=20240102T030405Z&X-Amz-Expires=soon"},
		{name: "bad se", url: "https://x.test/b/k?se=tomorrow"},
		{name: "unparsable", url: "://%%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := storage.ExpiresAt(tt.url)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %s", got)
			}
		})
	}
}

func TestRefreshIfExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	blobs := storagetest.NewFake()

	valid, err := blobs.SignRead(ctx, "projects/1/a.jpg")
	require.NoError(t, err)
	require.Equal(t, 1, blobs.ReadSigns())

	got, changed, err := storage.RefreshIfExpired(ctx, blobs, "projects/1/a.jpg", valid, now)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, valid, got)
	assert.Equal(t, 1, blobs.ReadSigns(), "valid url must not be re-signed")

	for _, stale := range []string{"", "https://blobs.test/bucket/projects/1/a.jpg", "garbage"} {
		got, changed, err = storage.RefreshIfExpired(ctx, blobs, "projects/1/a.jpg", stale, now)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.NotEqual(t, stale, got)
		assert.False(t, storage.Expired(got, now))
	}

	got, changed, err = storage.RefreshIfExpired(ctx, blobs, "projects/1/a.jpg", valid, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotEqual(t, valid, got)

	got, changed, err = storage.RefreshIfExpired(ctx, blobs, "", "", now)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, got)

	blobs.Err = errors.New("signing down")
	_, _, err = storage.RefreshIfExpired(ctx, blobs, "projects/1/a.jpg", "", now)
	assert.Error(t, err)
}

func TestS3PresignCarriesExpiry(t *testing.T) {
	client := s3.New(s3.Options{
		Region:       "auto",
		Credentials:  credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
		BaseEndpoint: aws.String("https://acct.r2.cloudflarestorage.com"),
		UsePathStyle: true,
	})
	blobs := storage.NewS3FromClient(client, "journal", 2*time.Hour, 10*time.Minute)
	ctx := context.Background()

	read, err := blobs.SignRead(ctx, "projects/3/logo.jpg")
	require.NoError(t, err)
	exp, ok := storage.ExpiresAt(read)
	require.True(t, ok, read)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), exp, time.Minute)

	upload, err := blobs.SignUpload(ctx, "projects/3/logo.jpg")
	require.NoError(t, err)
	exp, ok = storage.ExpiresAt(upload)
	require.True(t, ok, upload)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), exp, time.Minute)
}

func TestProjectBlobKey(t *testing.T) {
	key := storage.ProjectBlobKey(4, "../My Logo (final).png")
	assert.True(t, strings.HasPrefix(key, storage.ProjectPrefix(4)), key)
	assert.True(t, strings.HasSuffix(key, "_My_Logo_final.png"), key)
	assert.NotContains(t, key, "..")
	assert.NotEqual(t, key, storage.ProjectBlobKey(4, "../My Logo (final).png"))
}
