package vectorstore

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// collectionLock guarantees a single writer per collection directory,
// adapted from the teacher's internal/embed.FileLock (there guarding a
// shared model-download directory; here guarding one collection's on-disk
// HNSW graph + bleve filter index so two Orchestrator runs never write the
// same collection concurrently).
type collectionLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

func newCollectionLock(dir string) *collectionLock {
	path := filepath.Join(dir, ".minerva.lock")
	return &collectionLock{path: path, flock: flock.New(path)}
}

// tryLock attempts to acquire the lock without blocking, reporting whether
// another process already holds it.
func (l *collectionLock) tryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, storageErrorf("create lock directory: %v", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, storageErrorf("acquire collection lock: %v", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

func (l *collectionLock) unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return storageErrorf("release collection lock: %v", err)
	}
	l.locked = false
	return nil
}
