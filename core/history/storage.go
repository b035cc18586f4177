package history

import (
	"context"
	"io/fs"
	"os"
	"sync"

	"github.com/kilianp07/solarcast/internal/atomicfile"
)

// Storage is the durable handle behind a BoundedStore. Load returns an error
// wrapping fs.ErrNotExist when nothing was saved yet. Save must replace the
// previous content atomically.
type Storage interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	String() string
}

// FileStorage keeps the history in a single file replaced through a
// temporary file and a rename, so readers never observe a partial write.
type FileStorage struct {
	path string
}

// NewFileStorage returns a FileStorage for path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (s *FileStorage) String() string { return s.path }

// Load reads the whole file.
func (s *FileStorage) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(s.path)
}

// Save replaces the file atomically.
func (s *FileStorage) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return atomicfile.WriteFile(s.path, data, 0o644)
}

// MemoryStorage keeps the serialized history in memory. It is used in tests
// and by tools that do not need durability.
type MemoryStorage struct {
	mu     sync.RWMutex
	data   []byte
	exists bool
	saves  int
}

// NewMemoryStorage returns an empty MemoryStorage with nothing saved yet.
func NewMemoryStorage() *MemoryStorage { return &MemoryStorage{} }

func (s *MemoryStorage) String() string { return "memory" }

// Load returns a copy of the saved bytes.
func (s *MemoryStorage) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return nil, fs.ErrNotExist
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}

// Save replaces the saved bytes.
func (s *MemoryStorage) Save(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	s.mu.Lock()
	s.data = cp
	s.exists = true
	s.saves++
	s.mu.Unlock()
	return nil
}

// Set overwrites the content, for example with corrupt bytes.
func (s *MemoryStorage) Set(data []byte) {
	s.mu.Lock()
	s.data = append([]byte(nil), data...)
	s.exists = true
	s.mu.Unlock()
}

// Saves returns how many times Save was called.
func (s *MemoryStorage) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
