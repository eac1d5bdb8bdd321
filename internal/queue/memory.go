package queue

import (
	"io/fs"
	"sync"
)

// MemoryStore is an in-process Store used by tests.
// Each queue has its own mutex so an Append to one queue may run inside
// an Update of another, as promotion does.
type MemoryStore struct {
	mu       sync.Mutex
	locks    map[Name]*sync.Mutex
	content  map[Name]string
	failures map[Name]error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:    make(map[Name]*sync.Mutex),
		content:  make(map[Name]string),
		failures: make(map[Name]error),
	}
}

// Set replaces the raw content of a queue
func (m *MemoryStore) Set(q Name, content string) {
	l := m.lock(q)
	l.Lock()
	defer l.Unlock()
	m.mu.Lock()
	m.content[q] = content
	m.mu.Unlock()
}

// Content returns the raw content of a queue
func (m *MemoryStore) Content(q Name) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.content[q]
}

// FailWrites makes every write to q return err until cleared with nil
func (m *MemoryStore) FailWrites(q Name, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, q)
		return
	}
	m.failures[q] = err
}

func (m *MemoryStore) Lines(q Name) ([]string, error) {
	l := m.lock(q)
	l.Lock()
	defer l.Unlock()
	return SplitLines(m.Content(q)), nil
}

func (m *MemoryStore) Read(q Name) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.content[q]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(content), nil
}

func (m *MemoryStore) Append(q Name, line string) error {
	l := m.lock(q)
	l.Lock()
	defer l.Unlock()
	if err := m.failure(q); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.content[q]
	var last byte
	if existing != "" {
		last = existing[len(existing)-1]
	}
	m.content[q] = existing + appendPayload(last, existing == "", line)
	return nil
}

func (m *MemoryStore) Rewrite(q Name, lines []string) error {
	l := m.lock(q)
	l.Lock()
	defer l.Unlock()
	return m.write(q, lines)
}

func (m *MemoryStore) Update(q Name, fn UpdateFunc) error {
	l := m.lock(q)
	l.Lock()
	defer l.Unlock()

	lines, err := fn(SplitLines(m.Content(q)))
	if err != nil {
		return err
	}
	return m.write(q, lines)
}

func (m *MemoryStore) write(q Name, lines []string) error {
	if err := m.failure(q); err != nil {
		return err
	}
	m.mu.Lock()
	m.content[q] = JoinLines(lines)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) failure(q Name) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[q]
}

func (m *MemoryStore) lock(q Name) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[q]
	if !ok {
		l = &sync.Mutex{}
		m.locks[q] = l
	}
	return l
}
