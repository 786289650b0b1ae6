package fs_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilnhq/kiln/pkg/kiln"
	"github.com/kilnhq/kiln/pkg/kiln/storage/fs"
)

func setupBackend(t *testing.T, maxDiskSpace int64) kiln.FileStore {
	t.Helper()

	store, err := fs.New(fs.Config{
		BaseDir:      t.TempDir(),
		URLPrefix:    "/files",
		MaxDiskSpace: maxDiskSpace,
	})
	require.NoError(t, err)
	return store
}

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := fs.New(fs.Config{})
	assert.Error(t, err)
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	store := setupBackend(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "abc_report.pdf", "application/pdf", strings.NewReader("payload")))

	exists, err := store.Exists(ctx, "abc_report.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	rc, err := store.Download(ctx, "abc_report.pdf")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestDownloadMissingObject(t *testing.T) {
	store := setupBackend(t, 0)

	_, err := store.Download(context.Background(), "nope.bin")
	assert.ErrorIs(t, err, kiln.ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := setupBackend(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "gone.txt", "text/plain", strings.NewReader("x")))
	require.NoError(t, store.Delete(ctx, "gone.txt"))
	require.NoError(t, store.Delete(ctx, "gone.txt"))

	exists, err := store.Exists(ctx, "gone.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPresignedUploadUnsupported(t *testing.T) {
	store := setupBackend(t, 0)

	_, err := store.GetUploadURL(context.Background(), "any.bin", time.Hour)
	assert.ErrorIs(t, err, kiln.ErrUnsupportedOperation)
}

func TestDownloadURL(t *testing.T) {
	store := setupBackend(t, 0)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "img.png", "image/png", strings.NewReader("x")))

	url, err := store.GetDownloadURL(ctx, "img.png", "Original Name.png", time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, "/files/img.png")
	assert.Contains(t, url, "filename=")
}

func TestQuota(t *testing.T) {
	store := setupBackend(t, 10)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "a.bin", "application/octet-stream", strings.NewReader("12345")))
	require.NoError(t, store.Upload(ctx, "b.bin", "application/octet-stream", strings.NewReader("12345")))

	err := store.Upload(ctx, "c.bin", "application/octet-stream", strings.NewReader("1"))
	assert.ErrorIs(t, err, kiln.ErrQuotaExceeded)

	t.Run("rejected upload leaves no partial object", func(t *testing.T) {
		exists, err := store.Exists(ctx, "c.bin")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("space freed by delete becomes usable", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "a.bin"))
		require.NoError(t, store.Upload(ctx, "c.bin", "application/octet-stream", strings.NewReader("123")))
	})
}

func TestObjectKeyTraversalRejected(t *testing.T) {
	store := setupBackend(t, 0)
	ctx := context.Background()

	err := store.Upload(ctx, "../escape.txt", "text/plain", strings.NewReader("x"))
	assert.Error(t, err)

	_, err = store.Download(ctx, "../../etc/passwd")
	assert.Error(t, err)
}
