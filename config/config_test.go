package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func clearPortEnv(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("PORT", "")
}

func TestLoadFrom_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	clearPortEnv(t)

	c, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "5000", c.AppPort)
	assert.Equal(t, "from-env", c.JWTSecret)
	assert.Equal(t, 60, c.TokenTTLMinutes)
	assert.Equal(t, 100, c.TrendingMinLikes)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Equal(t, StoreBackendFile, c.StoreBackend)
	assert.Equal(t, UploadBackendLocal, c.UploadBackend)
	assert.Equal(t, 10, c.MaxUploadMB)
	assert.False(t, c.EnforceDeleteOwnership)
}

func TestLoadFrom_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrMissingJWTSecret)
}

func TestLoadFrom_JSONSections(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	clearPortEnv(t)
	path := writeConfig(t, `{
		"app": {"AppPort": "8080", "JWTSecret": "file-secret", "TrendingMinLikes": 5, "EnforceDeleteOwnership": true, "AllowedOrigins": ["https://a.example"]},
		"gin": {"Mode": "debug"},
		"store": {"Backend": "mysql", "DataDir": "/var/blog"},
		"database": {"DBHost": "db", "DBName": "blogs"},
		"redis": {"RedisHost": "cache", "CacheTTLSeconds": 30},
		"uploads": {"Backend": "minio", "MinIOEndpoint": "minio:9000", "MinIOUseSSL": true},
		"log": {"Level": "debug", "Compress": true}
	}`)

	c, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "file-secret", c.JWTSecret)
	assert.Equal(t, 5, c.TrendingMinLikes)
	assert.True(t, c.EnforceDeleteOwnership)
	assert.Equal(t, []string{"https://a.example"}, c.AllowedOrigins)
	assert.Equal(t, "debug", c.GinMode)
	assert.Equal(t, StoreBackendMySQL, c.StoreBackend)
	assert.Equal(t, "/var/blog", c.DataDir)
	assert.Equal(t, "db", c.DBHost)
	assert.Equal(t, "3306", c.DBPort)
	assert.Equal(t, "blogs", c.DBName)
	assert.Equal(t, "cache", c.RedisHost)
	assert.Equal(t, 30, c.CacheTTLSeconds)
	assert.Equal(t, UploadBackendMinIO, c.UploadBackend)
	assert.Equal(t, "minio:9000", c.MinIOEndpoint)
	assert.True(t, c.MinIOUseSSL)
	assert.Equal(t, "debug", c.LogLevel)
	assert.True(t, c.LogCompress)
}

func TestLoadFrom_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `{"app": {"AppPort": "8080", "JWTSecret": "file-secret"}, "store": {"Backend": "file"}}`)
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("PORT", "")
	t.Setenv("STORE_BACKEND", "MySQL")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ENFORCE_DELETE_OWNERSHIP", "true")
	t.Setenv("TRENDING_MIN_LIKES", "3")

	c, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", c.JWTSecret)
	assert.Equal(t, "9090", c.AppPort)
	assert.Equal(t, StoreBackendMySQL, c.StoreBackend)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
	assert.True(t, c.EnforceDeleteOwnership)
	assert.Equal(t, 3, c.TrendingMinLikes)
}

func TestLoadFrom_InvalidJSON(t *testing.T) {
	path := writeConfig(t, `{"app": `)
	_, err := LoadFrom(path)
	assert.Error(t, err)
}
