package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DSN", "")
	t.Setenv("IMAGE_URL_TTL", "")
	t.Setenv("UPLOAD_URL_TTL", "")

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, c.Server.Port)
	assert.Equal(t, ":3000", c.Addr())
	assert.Equal(t, 24*time.Hour, c.Storage.ImageURLTTL)
	assert.Equal(t, 15*time.Minute, c.Storage.UploadURLTTL)
	assert.Equal(t, 86400*30, c.Auth.SessionMaxAge)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
server:
  port: 8080
database:
  dsn: postgres://file
storage:
  bucket: from-file
  image_url_ttl: 2h
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	t.Setenv("PORT", "")
	t.Setenv("DSN", "postgres://env")
	t.Setenv("UPLOAD_URL_TTL", "5m")
	t.Setenv("ACCOUNT_ID", "acct")
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORAGE_ENDPOINT", "")
	t.Setenv("IMAGE_URL_TTL", "")
	t.Setenv("BUCKET_NAME", "")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "postgres://env", c.Database.DSN)
	assert.Equal(t, "from-file", c.Storage.Bucket)
	assert.Equal(t, 2*time.Hour, c.Storage.ImageURLTTL)
	assert.Equal(t, 5*time.Minute, c.Storage.UploadURLTTL)
	assert.True(t, c.Server.Production)
	assert.Equal(t, "https://acct.r2.cloudflarestorage.com", c.StorageEndpoint())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := Default()
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN")
	assert.Contains(t, err.Error(), "SESSION_SECRET")
	assert.Contains(t, err.Error(), "BUCKET_NAME")

	c.Database.DSN = "postgres://x"
	c.Auth.SessionSecret = "secret"
	c.Storage.Bucket = "bucket"
	assert.NoError(t, c.Validate())
}
