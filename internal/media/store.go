package media

import (
	"context"
	"fmt"
	"sync"

	"github.com/calfield/mediabin/internal/event"
	"github.com/calfield/mediabin/pkg/logger"
	"github.com/google/uuid"
)

type (
	// Persistence is the backing store collaborator which mirrors the
	// in-memory collection. Implementations live outside this core; the
	// store only depends on this contract.
	Persistence interface {
		Save(ctx context.Context, projectID string, item *Item) error
		Delete(ctx context.Context, projectID string, id uuid.UUID) error
		DeleteAll(ctx context.Context, projectID string) error
		LoadAll(ctx context.Context, projectID string) ([]*Item, error)
	}

	// Store owns the canonical in-memory collection of media items for
	// the active project, and is the sole owner and releaser of the
	// ephemeral handles held by those items. The collection must only
	// ever be mutated through the store's methods; every method leaves
	// the handle invariant satisfied before returning.
	Store struct {
		*sync.Mutex
		backend  Persistence
		eventBus event.EventDispatcher
		items    []*Item
	}
)

var storeLog = logger.Get("MediaStore")

func NewStore(backend Persistence, eventBus event.EventDispatcher) *Store {
	return &Store{
		Mutex:    &sync.Mutex{},
		backend:  backend,
		eventBus: eventBus,
		items:    make([]*Item, 0),
	}
}

// Add assigns a fresh identity to the draft provided and inserts it into
// the in-memory collection optimistically, so that readers observe the item
// before persistence completes. If persisting fails, the optimistic entry
// is removed again and the error returned: the collection never retains an
// entry that failed to persist.
//
// On failure, ownership of the draft's handles reverts to the caller; the
// store does not release them as part of the rollback.
func (store *Store) Add(ctx context.Context, projectID string, draft *Item) (uuid.UUID, error) {
	if draft.ID != uuid.Nil {
		return uuid.Nil, fmt.Errorf("cannot add item %s: identity already assigned", draft)
	}
	draft.ID = uuid.New()

	store.Lock()
	store.items = append(store.items, draft)
	store.Unlock()

	if err := store.backend.Save(ctx, projectID, draft); err != nil {
		store.dropItem(draft.ID)
		draft.ID = uuid.Nil
		return uuid.Nil, fmt.Errorf("failed to persist media item: %w", err)
	}

	store.dispatch(event.MediaAddedEvent, draft.ID)
	return draft.ID, nil
}

// Remove releases the handles of the item with the ID provided, drops it
// from the in-memory collection immediately, and then deletes it from the
// backing store. A backing store failure is logged only; the local removal
// is never undone. An unknown ID is a no-op: nothing is released and no
// error is raised.
func (store *Store) Remove(ctx context.Context, projectID string, id uuid.UUID) {
	item := store.dropItem(id)
	if item == nil {
		return
	}

	item.ReleaseHandles()

	if err := store.backend.Delete(ctx, projectID, id); err != nil {
		storeLog.Emit(logger.WARNING, "Failed to delete media item %s from backing store: %v\n", id, err)
	}

	store.dispatch(event.MediaRemovedEvent, id)
}

// LoadAll replaces the in-memory collection with the backing store's
// contents for the project provided. Every handle held by the outgoing
// collection is released *before* the fetch is issued; if the fetch then
// fails the collection is left empty, as there is nothing consistent left
// to reconcile.
func (store *Store) LoadAll(ctx context.Context, projectID string) error {
	store.evictAll()

	items, err := store.backend.LoadAll(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to load media items for project %s: %w", projectID, err)
	}

	store.Lock()
	store.items = items
	store.Unlock()

	return nil
}

// ClearProject releases all current handles, empties the in-memory
// collection and deletes every backing store entry for the project.
// A backing store failure is logged only.
func (store *Store) ClearProject(ctx context.Context, projectID string) {
	store.evictAll()

	if err := store.backend.DeleteAll(ctx, projectID); err != nil {
		storeLog.Emit(logger.WARNING, "Failed to clear backing store for project %s: %v\n", projectID, err)
	}

	store.dispatch(event.MediaClearedEvent, projectID)
}

// ClearLocal releases all current handles and empties the in-memory
// collection without contacting the backing store. Used for resets that
// are not scoped to a project.
func (store *Store) ClearLocal() {
	store.evictAll()
}

// Item returns the item with the ID provided, or nil if no such item is
// held in the collection.
func (store *Store) Item(id uuid.UUID) *Item {
	store.Lock()
	defer store.Unlock()

	for _, item := range store.items {
		if item.ID == id {
			return item
		}
	}

	return nil
}

// AllItems returns the ordered in-memory collection. The returned slice is
// a copy; the items themselves are shared read-only references.
func (store *Store) AllItems() []*Item {
	store.Lock()
	defer store.Unlock()

	items := make([]*Item, len(store.items))
	copy(items, store.items)
	return items
}

// dropItem removes the item with the ID provided from the collection,
// returning it (or nil if absent). Handles are NOT released here; callers
// decide whether the removal path owns that responsibility.
func (store *Store) dropItem(id uuid.UUID) *Item {
	store.Lock()
	defer store.Unlock()

	for k, item := range store.items {
		if item.ID == id {
			store.items = append(store.items[:k], store.items[k+1:]...)
			return item
		}
	}

	return nil
}

// evictAll releases the handles of every held item and empties the
// collection.
func (store *Store) evictAll() {
	store.Lock()
	outgoing := store.items
	store.items = make([]*Item, 0)
	store.Unlock()

	for _, item := range outgoing {
		item.ReleaseHandles()
	}
}

func (store *Store) dispatch(ev event.Event, payload event.Payload) {
	if store.eventBus != nil {
		store.eventBus.Dispatch(ev, payload)
	}
}
