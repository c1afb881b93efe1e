package journal

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("delivery record not found")
	ErrInvalidCapacity = errors.New("capacity must be greater than zero")
)

// MemoryStore keeps the most recent delivery records in a ring buffer.
// Lookups by ID go through a map index. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	buf   []Record
	index map[uuid.UUID]int // record ID → position in buf
	cap   int
	count int
	head  int // next write position
	now   func() time.Time
}

// NewMemoryStore creates a MemoryStore holding at most capacity records.
func NewMemoryStore(capacity int) (*MemoryStore, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &MemoryStore{
		buf:   make([]Record, capacity),
		index: make(map[uuid.UUID]int, capacity),
		cap:   capacity,
		now:   time.Now,
	}, nil
}

// Save adds a record, evicting the oldest one when the buffer is full.
func (s *MemoryStore) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}

	if s.count == s.cap {
		old := s.buf[s.head]
		delete(s.index, old.ID)
	}

	s.buf[s.head] = rec
	s.index[rec.ID] = s.head

	s.head = (s.head + 1) % s.cap
	if s.count < s.cap {
		s.count++
	}

	return nil
}

// Get retrieves a record by ID.
func (s *MemoryStore) Get(id uuid.UUID) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return s.buf[pos], nil
}

// List returns up to limit records ordered newest-first, skipping the first offset results.
func (s *MemoryStore) List(limit, offset int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		return nil, nil
	}
	if offset < 0 {
		offset = 0
	}

	result := make([]Record, 0, min(limit, s.count))
	for i := offset; i < s.count && len(result) < limit; i++ {
		pos := (s.head - 1 - i + s.cap) % s.cap
		result = append(result, s.buf[pos])
	}
	return result, nil
}

// Finish stamps the final outcome onto a record.
func (s *MemoryStore) Finish(id uuid.UUID, out Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[id]
	if !ok {
		return ErrNotFound
	}
	finished := s.now()
	rec := &s.buf[pos]
	rec.Status = out.Status
	rec.Channel = out.Channel
	rec.Attempts = out.Attempts
	rec.Error = out.Error
	rec.FinishedAt = &finished
	return nil
}

// Count returns the number of records currently stored.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}
