package media

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviews_CreateOpenRevoke(t *testing.T) {
	previews, err := NewPreviews(t.TempDir())
	require.NoError(t, err)

	preview, err := previews.Create(strings.NewReader("fake-image-bytes"), "image/png", 1024)
	require.NoError(t, err)
	assert.Equal(t, PreviewPathPrefix+preview.ID.String(), preview.URL)
	assert.Equal(t, int64(16), preview.Size)
	assert.Equal(t, 1, previews.Len())

	f, got, err := previews.Open(preview.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "fake-image-bytes", string(data))
	assert.Equal(t, "image/png", got.ContentType)

	assert.True(t, previews.Revoke(preview.ID))
	assert.False(t, previews.Revoke(preview.ID), "revoke is idempotent")
	assert.Equal(t, 0, previews.Len())

	_, statErr := os.Stat(preview.Path())
	assert.True(t, os.IsNotExist(statErr), "file removed on revoke")

	_, _, err = previews.Open(preview.ID)
	assert.ErrorIs(t, err, ErrPreviewNotFound)
}

func TestPreviews_SizeLimit(t *testing.T) {
	previews, err := NewPreviews(t.TempDir())
	require.NoError(t, err)

	_, err = previews.Create(strings.NewReader(strings.Repeat("x", 11)), "video/mp4", 10)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Equal(t, 0, previews.Len())

	_, err = previews.Create(strings.NewReader(strings.Repeat("x", 10)), "video/mp4", 10)
	assert.NoError(t, err)
}

func TestPreviews_CloseRemovesOwnedDir(t *testing.T) {
	previews, err := NewPreviews("")
	require.NoError(t, err)

	preview, err := previews.Create(strings.NewReader("a"), "image/jpeg", 0)
	require.NoError(t, err)

	require.NoError(t, previews.Close())
	assert.Equal(t, 0, previews.Len())

	_, statErr := os.Stat(previews.dir)
	assert.True(t, os.IsNotExist(statErr))

	_, ok := previews.Get(preview.ID)
	assert.False(t, ok)
	assert.False(t, previews.Revoke(uuid.New()))
}
