package media_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/calfield/mediabin/internal/media"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProject = "project-1"

var errExpected = errors.New("test: expected error")

// mockPersistence is a hand-rolled Persistence double; each operation can
// be overridden per test and records how often it was invoked.
type mockPersistence struct {
	saveFn    func(projectID string, item *media.Item) error
	deleteFn  func(projectID string, id uuid.UUID) error
	loadAllFn func(projectID string) ([]*media.Item, error)

	saveCalls      int
	deleteCalls    int
	deleteAllCalls int
	loadAllCalls   int
}

func (m *mockPersistence) Save(_ context.Context, projectID string, item *media.Item) error {
	m.saveCalls++
	if m.saveFn != nil {
		return m.saveFn(projectID, item)
	}
	return nil
}

func (m *mockPersistence) Delete(_ context.Context, projectID string, id uuid.UUID) error {
	m.deleteCalls++
	if m.deleteFn != nil {
		return m.deleteFn(projectID, id)
	}
	return nil
}

func (m *mockPersistence) DeleteAll(_ context.Context, _ string) error {
	m.deleteAllCalls++
	return nil
}

func (m *mockPersistence) LoadAll(_ context.Context, projectID string) ([]*media.Item, error) {
	m.loadAllCalls++
	if m.loadAllFn != nil {
		return m.loadAllFn(projectID)
	}
	return []*media.Item{}, nil
}

func draftImageItem(t *testing.T) *media.Item {
	t.Helper()

	return &media.Item{
		Kind:    media.KindImage,
		Source:  media.SourceFile{Name: "photo.png", ContentType: "image/png"},
		Preview: media.NewFileHandle(tempHandleFile(t)),
		Image:   &media.ImageInfo{Width: 800, Height: 600},
	}
}

func draftVideoItem(t *testing.T) *media.Item {
	t.Helper()

	return &media.Item{
		Kind:      media.KindVideo,
		Source:    media.SourceFile{Name: "clip.mp4", ContentType: "video/mp4"},
		Preview:   media.NewFileHandle(tempHandleFile(t)),
		Thumbnail: media.NewInlineHandle([]byte("frame")),
		Video:     &media.VideoInfo{Duration: 0, Width: 1920, Height: 1080},
	}
}

func Test_Add_AssignsIdentityAndPersists(t *testing.T) {
	t.Parallel()

	backend := &mockPersistence{}
	store := media.NewStore(backend, nil)

	draft := draftImageItem(t)
	id, err := store.Add(context.Background(), testProject, draft)

	require.Nil(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.Equal(t, 1, backend.saveCalls)

	held := store.Item(id)
	require.NotNil(t, held)
	assert.Equal(t, draft, held)
}

func Test_Add_RollsBackOptimisticInsertOnPersistenceFailure(t *testing.T) {
	t.Parallel()

	var observedID uuid.UUID
	backend := &mockPersistence{
		saveFn: func(_ string, item *media.Item) error {
			observedID = item.ID
			return errExpected
		},
	}
	store := media.NewStore(backend, nil)

	draft := draftImageItem(t)
	_, err := store.Add(context.Background(), testProject, draft)

	assert.ErrorIs(t, err, errExpected)
	assert.NotEqual(t, uuid.Nil, observedID, "item should have had identity during the save attempt")
	assert.Nil(t, store.Item(observedID), "failed item must not remain in the collection")
	assert.Empty(t, store.AllItems())

	// Rollback returns handle ownership to the caller; the store must not
	// have released anything.
	assert.False(t, draft.Preview.Released())
}

func Test_Remove_ReleasesEachHandleExactlyOnce(t *testing.T) {
	t.Parallel()

	backend := &mockPersistence{}
	store := media.NewStore(backend, nil)

	draft := draftVideoItem(t)
	previewPath := draft.Preview.Path()
	id, err := store.Add(context.Background(), testProject, draft)
	require.Nil(t, err)

	store.Remove(context.Background(), testProject, id)

	assert.True(t, draft.Preview.Released())
	assert.True(t, draft.Thumbnail.Released())
	_, statErr := os.Stat(previewPath)
	assert.True(t, os.IsNotExist(statErr))

	assert.Empty(t, store.AllItems())
	assert.Equal(t, 1, backend.deleteCalls)
}

func Test_Remove_BackingStoreFailureDoesNotUndoLocalRemoval(t *testing.T) {
	t.Parallel()

	backend := &mockPersistence{
		deleteFn: func(string, uuid.UUID) error { return errExpected },
	}
	store := media.NewStore(backend, nil)

	draft := draftImageItem(t)
	id, err := store.Add(context.Background(), testProject, draft)
	require.Nil(t, err)

	store.Remove(context.Background(), testProject, id)

	assert.Empty(t, store.AllItems(), "local removal is honored despite backing store failure")
	assert.True(t, draft.Preview.Released())
}

func Test_Remove_UnknownIDIsNoOp(t *testing.T) {
	t.Parallel()

	backend := &mockPersistence{}
	store := media.NewStore(backend, nil)

	draft := draftImageItem(t)
	_, err := store.Add(context.Background(), testProject, draft)
	require.Nil(t, err)

	store.Remove(context.Background(), testProject, uuid.New())

	assert.Len(t, store.AllItems(), 1)
	assert.False(t, draft.Preview.Released(), "no release may fire for an unknown ID")
	assert.Zero(t, backend.deleteCalls)
}

func Test_LoadAll_ReleasesOutgoingHandlesBeforeFetch(t *testing.T) {
	t.Parallel()

	draft := draftVideoItem(t)

	var releasedBeforeFetch bool
	backend := &mockPersistence{}
	backend.loadAllFn = func(string) ([]*media.Item, error) {
		releasedBeforeFetch = draft.Preview.Released() && draft.Thumbnail.Released()
		return nil, errExpected
	}

	store := media.NewStore(backend, nil)
	_, err := store.Add(context.Background(), testProject, draft)
	require.Nil(t, err)

	err = store.LoadAll(context.Background(), testProject)

	assert.ErrorIs(t, err, errExpected)
	assert.True(t, releasedBeforeFetch, "outgoing handles must be released before the fetch is issued")
	assert.Empty(t, store.AllItems(), "collection resets to empty when the fetch fails")
}

func Test_LoadAll_InstallsFetchedCollection(t *testing.T) {
	t.Parallel()

	fetched := []*media.Item{
		{ID: uuid.New(), Kind: media.KindAudio, Audio: &media.AudioInfo{}},
		{ID: uuid.New(), Kind: media.KindImage, Image: &media.ImageInfo{Width: 1, Height: 1}},
	}
	backend := &mockPersistence{
		loadAllFn: func(string) ([]*media.Item, error) { return fetched, nil },
	}

	store := media.NewStore(backend, nil)
	outgoing := draftImageItem(t)
	_, err := store.Add(context.Background(), testProject, outgoing)
	require.Nil(t, err)

	require.Nil(t, store.LoadAll(context.Background(), testProject))

	assert.True(t, outgoing.Preview.Released())
	assert.Equal(t, fetched, store.AllItems())
}

func Test_ClearProject_ReleasesHandlesAndContactsBackingStore(t *testing.T) {
	t.Parallel()

	backend := &mockPersistence{}
	store := media.NewStore(backend, nil)

	first := draftImageItem(t)
	second := draftVideoItem(t)
	_, err := store.Add(context.Background(), testProject, first)
	require.Nil(t, err)
	_, err = store.Add(context.Background(), testProject, second)
	require.Nil(t, err)

	store.ClearProject(context.Background(), testProject)

	assert.Empty(t, store.AllItems())
	assert.Equal(t, 1, backend.deleteAllCalls)
	assert.True(t, first.Preview.Released())
	assert.True(t, second.Preview.Released())
	assert.True(t, second.Thumbnail.Released())
}

func Test_ClearLocal_NeverContactsBackingStore(t *testing.T) {
	t.Parallel()

	backend := &mockPersistence{}
	store := media.NewStore(backend, nil)

	draft := draftImageItem(t)
	_, err := store.Add(context.Background(), testProject, draft)
	require.Nil(t, err)

	store.ClearLocal()

	assert.Empty(t, store.AllItems())
	assert.True(t, draft.Preview.Released())
	assert.Zero(t, backend.deleteCalls)
	assert.Zero(t, backend.deleteAllCalls)
}
