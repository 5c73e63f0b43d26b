package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calvinalkan/latchkv/internal/errs"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad_ParsesCommentedConfig(t *testing.T) {
	path := writeConfig(t, `{
		// table size, must be a power of two
		"bucket_count": 1024,
		"pre_allocation_factor": 0.5,
		"enable_concurrency": true,
	}`)

	opts, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint32(1024), opts.BucketCount)
	require.Equal(t, 0.5, opts.PreAllocationFactor)
	require.True(t, opts.EnableConcurrency)
}

func TestLoad_RejectsNonPowerOfTwoBucketCount(t *testing.T) {
	path := writeConfig(t, `{"bucket_count": 100, "pre_allocation_factor": 1.0, "enable_concurrency": false}`)

	_, err := Load(path)
	require.ErrorIs(t, err, errs.ErrInvalidConfiguration)
}

func TestLoad_RejectsFactorOutOfRange(t *testing.T) {
	path := writeConfig(t, `{"bucket_count": 8, "pre_allocation_factor": 0, "enable_concurrency": false}`)

	_, err := Load(path)
	require.ErrorIs(t, err, errs.ErrInvalidConfiguration)

	path = writeConfig(t, `{"bucket_count": 8, "pre_allocation_factor": 1.5, "enable_concurrency": false}`)

	_, err = Load(path)
	require.ErrorIs(t, err, errs.ErrInvalidConfiguration)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `{"bucket_count": 8, "pre_allocation_factor": 1.0, "enable_concurrency": false, "ttl_seconds": 60}`)

	_, err := Load(path)
	require.ErrorIs(t, err, errs.ErrInvalidConfiguration)
}

func TestLoad_MissingFileIsInvalidConfiguration(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.jsonc"))
	require.ErrorIs(t, err, errs.ErrInvalidConfiguration)
}
