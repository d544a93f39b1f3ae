package media_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calfield/mediabin/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempHandleFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "preview.bin")
	require.Nil(t, os.WriteFile(path, []byte("payload"), 0o644))
	return path
}

func Test_FileHandle_ReleaseRevokesBackingFile(t *testing.T) {
	t.Parallel()

	path := tempHandleFile(t)
	handle := media.NewFileHandle(path)

	assert.Equal(t, media.HandleFile, handle.Form())
	assert.False(t, handle.Released())

	assert.Nil(t, handle.Release())
	assert.True(t, handle.Released())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "backing file should be deleted on release")
}

func Test_Handle_SecondReleaseIsRejected(t *testing.T) {
	t.Parallel()

	handle := media.NewFileHandle(tempHandleFile(t))
	assert.Nil(t, handle.Release())
	assert.ErrorIs(t, handle.Release(), media.ErrHandleReleased)
}

func Test_InlineHandle_ReleaseIsStateOnly(t *testing.T) {
	t.Parallel()

	handle := media.NewInlineHandle([]byte{0xff, 0xd8})
	assert.Equal(t, media.HandleInline, handle.Form())

	assert.Nil(t, handle.Release())
	assert.True(t, handle.Released())

	// The payload is self-contained; releasing revokes nothing.
	assert.Equal(t, []byte{0xff, 0xd8}, handle.Bytes())
	assert.ErrorIs(t, handle.Release(), media.ErrHandleReleased)
}

func Test_ReleaseHandles_SkipsAlreadyReleased(t *testing.T) {
	t.Parallel()

	preview := media.NewFileHandle(tempHandleFile(t))
	thumb := media.NewInlineHandle([]byte("frame"))
	item := media.Item{Kind: media.KindVideo, Preview: preview, Thumbnail: thumb}

	require.Nil(t, preview.Release())

	// Releasing the item must not attempt to release the preview again.
	item.ReleaseHandles()
	assert.True(t, preview.Released())
	assert.True(t, thumb.Released())
}
