package media

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

type (
	// HandleForm is set once at creation time and tells the owner of a
	// handle whether releasing it must revoke an underlying resource.
	// The form is never inferred from the handle's content after the fact.
	HandleForm int

	// Handle is a process-local reference to a transient preview or
	// thumbnail resource. Every handle is released exactly once, at the
	// moment its owning item leaves scope; a second release is an error.
	Handle struct {
		mu       sync.Mutex
		form     HandleForm
		path     string
		data     []byte
		released bool
	}
)

const (
	// HandleFile is a revocable handle backed by a file in a preview or
	// thumbnail directory. Releasing it deletes the backing file.
	HandleFile HandleForm = iota

	// HandleInline is a self-contained handle carrying its payload in
	// memory. Releasing it revokes no resource, but the handle still
	// transitions to the released state so reuse can be detected.
	HandleInline
)

var ErrHandleReleased = errors.New("handle has already been released")

// NewFileHandle wraps the path provided in a revocable handle. The handle
// takes ownership of the file; callers must not delete it themselves.
func NewFileHandle(path string) *Handle {
	return &Handle{form: HandleFile, path: path}
}

// NewInlineHandle wraps the bytes provided in a self-contained handle.
func NewInlineHandle(data []byte) *Handle {
	return &Handle{form: HandleInline, data: data}
}

func (handle *Handle) Form() HandleForm { return handle.form }

// Path returns the backing file path for file-form handles. Inline
// handles have no path.
func (handle *Handle) Path() string { return handle.path }

// Bytes returns the in-memory payload for inline-form handles.
func (handle *Handle) Bytes() []byte { return handle.data }

// Released reports whether this handle has been released.
func (handle *Handle) Released() bool {
	handle.mu.Lock()
	defer handle.mu.Unlock()

	return handle.released
}

// Release revokes the resource behind this handle. Only file-form handles
// hold a revocable resource; inline handles simply transition state.
// Releasing a handle twice returns ErrHandleReleased.
func (handle *Handle) Release() error {
	handle.mu.Lock()
	defer handle.mu.Unlock()

	if handle.released {
		return ErrHandleReleased
	}
	handle.released = true

	if handle.form == HandleFile {
		if err := os.Remove(handle.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to revoke handle for %s: %w", handle.path, err)
		}
	}

	return nil
}

func (form HandleForm) String() string {
	switch form {
	case HandleFile:
		return "file"
	case HandleInline:
		return "inline"
	default:
		return fmt.Sprintf("unknown[%d]", form)
	}
}
