package queue

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps every queue as a plain text file in one directory.
// Writers take an exclusive flock on the file itself, readers a shared one.
type FileStore struct {
	dir   string
	files map[Name]string
}

// NewFileStore creates a store rooted at dir. Names missing from files
// fall back to DefaultFiles.
func NewFileStore(dir string, files map[Name]string) *FileStore {
	merged := make(map[Name]string, len(DefaultFiles))
	for name, file := range DefaultFiles {
		merged[name] = file
	}
	for name, file := range files {
		merged[name] = file
	}
	return &FileStore{dir: dir, files: merged}
}

// Path returns the absolute file path behind a queue name
func (s *FileStore) Path(q Name) string {
	file, ok := s.files[q]
	if !ok {
		file = string(q) + ".txt"
	}
	return filepath.Join(s.dir, file)
}

// Dir returns the directory the store is rooted at
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) Lines(q Name) ([]string, error) {
	content, err := s.Read(q)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	return SplitLines(string(content)), nil
}

func (s *FileStore) Read(q Name) ([]byte, error) {
	f, err := os.Open(s.Path(q))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := lockShared(f); err != nil {
		return nil, fmt.Errorf("lock %s: %w", q, err)
	}
	defer unlock(f)

	return io.ReadAll(f)
}

// Append holds the lock across reading the last byte and writing, so two
// concurrent appends can never glue their lines together.
func (s *FileStore) Append(q Name, line string) error {
	f, err := os.OpenFile(s.Path(q), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", q, err)
	}
	defer f.Close()

	if err := lockExclusive(f); err != nil {
		return fmt.Errorf("lock %s: %w", q, err)
	}
	defer unlock(f)

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", q, err)
	}

	var last [1]byte
	if info.Size() > 0 {
		if _, err := f.ReadAt(last[:], info.Size()-1); err != nil {
			return fmt.Errorf("read %s: %w", q, err)
		}
	}

	if _, err := f.WriteString(appendPayload(last[0], info.Size() == 0, line)); err != nil {
		return fmt.Errorf("append %s: %w", q, err)
	}
	return nil
}

func (s *FileStore) Rewrite(q Name, lines []string) error {
	f, err := os.OpenFile(s.Path(q), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", q, err)
	}
	defer f.Close()

	if err := lockExclusive(f); err != nil {
		return fmt.Errorf("lock %s: %w", q, err)
	}
	defer unlock(f)

	return overwrite(f, q, lines)
}

func (s *FileStore) Update(q Name, fn UpdateFunc) error {
	f, err := os.OpenFile(s.Path(q), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", q, err)
	}
	defer f.Close()

	if err := lockExclusive(f); err != nil {
		return fmt.Errorf("lock %s: %w", q, err)
	}
	defer unlock(f)

	content, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", q, err)
	}

	lines, err := fn(SplitLines(string(content)))
	if err != nil {
		return err
	}
	return overwrite(f, q, lines)
}

func overwrite(f *os.File, q Name, lines []string) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate %s: %w", q, err)
	}
	if _, err := f.WriteAt([]byte(JoinLines(lines)), 0); err != nil {
		return fmt.Errorf("write %s: %w", q, err)
	}
	return nil
}
