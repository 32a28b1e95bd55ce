package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDiskRoundTrip(t *testing.T) {
	ctx := context.Background()
	d, err := NewLocalDisk(t.TempDir())
	require.NoError(t, err)

	key := NewKey("products", "image/png")
	assert.True(t, strings.HasPrefix(key, "products/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	require.NoError(t, d.Put(ctx, key, strings.NewReader("png-bytes"), 9, "image/png"))

	ok, err := d.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := d.Get(ctx, key)
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "png-bytes", string(b))

	require.NoError(t, d.Delete(ctx, key))
	require.NoError(t, d.Delete(ctx, key))

	_, err = d.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestCleanKeyStaysInsideRoot(t *testing.T) {
	k, err := cleanKey("../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, "etc/passwd", k)

	_, err = cleanKey("/")
	assert.Error(t, err)
}

func TestOpenUnknownDisk(t *testing.T) {
	_, err := Open(context.Background(), "ftp")
	assert.ErrorContains(t, err, "unknown disk")
}
