package media

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// memoryPersistence is a process-local Persistence implementation. It backs
// deployments which have no external persistence configured, and keeps the
// store honest in tests: items survive LoadAll round-trips but not process
// restarts.
type memoryPersistence struct {
	mu       sync.Mutex
	projects map[string][]*Item
}

func NewMemoryPersistence() Persistence {
	return &memoryPersistence{projects: make(map[string][]*Item)}
}

func (persistence *memoryPersistence) Save(_ context.Context, projectID string, item *Item) error {
	persistence.mu.Lock()
	defer persistence.mu.Unlock()

	stored := *item
	persistence.projects[projectID] = append(persistence.projects[projectID], &stored)
	return nil
}

func (persistence *memoryPersistence) Delete(_ context.Context, projectID string, id uuid.UUID) error {
	persistence.mu.Lock()
	defer persistence.mu.Unlock()

	items := persistence.projects[projectID]
	for k, item := range items {
		if item.ID == id {
			persistence.projects[projectID] = append(items[:k], items[k+1:]...)
			return nil
		}
	}

	return fmt.Errorf("no media item %s in project %s", id, projectID)
}

func (persistence *memoryPersistence) DeleteAll(_ context.Context, projectID string) error {
	persistence.mu.Lock()
	defer persistence.mu.Unlock()

	delete(persistence.projects, projectID)
	return nil
}

func (persistence *memoryPersistence) LoadAll(_ context.Context, projectID string) ([]*Item, error) {
	persistence.mu.Lock()
	defer persistence.mu.Unlock()

	items := persistence.projects[projectID]
	out := make([]*Item, len(items))
	for k, item := range items {
		loaded := *item
		out[k] = &loaded
	}

	return out, nil
}
