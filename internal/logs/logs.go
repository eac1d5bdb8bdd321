// Package logs lists and tails the terminal's own log files
package logs

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Directory names accepted in a file id
const (
	DirMQL4 = "MQL4"
	DirMain = "Main"
)

var (
	ErrInvalidFileName  = errors.New("invalid log file name")
	ErrInvalidDirectory = errors.New("invalid log directory")
	ErrNotFound         = errors.New("log file not found")
)

var fileNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+\.log$`)

// File describes one log file. ID is what Read accepts.
type File struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Directory   string    `json:"directory"`
	Size        int64     `json:"size"`
	SizeDisplay string    `json:"size_display"`
	Modified    time.Time `json:"modified"`
}

// Content is the tail of a log file
type Content struct {
	File
	Lines   int    `json:"lines"`
	Showing string `json:"showing,omitempty"`
	Content string `json:"content"`
	ReadAt  string `json:"read_at"`
}

// Service reads log files from the MQL4 and Main log directories
type Service struct {
	dirs  map[string]string
	order []string
	now   func() time.Time
}

// NewService creates a log reader. An empty directory is skipped.
func NewService(mql4Dir, mainDir string) *Service {
	return &Service{
		dirs:  map[string]string{DirMQL4: mql4Dir, DirMain: mainDir},
		order: []string{DirMQL4, DirMain},
		now:   time.Now,
	}
}

// List returns every *.log file, newest first
func (s *Service) List() ([]File, error) {
	files := []File{}
	for _, dir := range s.order {
		path := s.dirs[dir]
		if path == "" {
			continue
		}

		entries, err := os.ReadDir(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s logs: %w", dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				log.Warn().Err(err).Str("file", entry.Name()).Msg("skipping unreadable log file")
				continue
			}
			files = append(files, newFile(dir, info))
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Modified.After(files[j].Modified)
	})
	return files, nil
}

// Read returns the last n lines of the file with the given id, or the
// whole file when n is 0. The id is "MQL4:name.log", "Main:name.log" or a
// bare name, which is looked up in MQL4 first.
func (s *Service) Read(id string, n int) (*Content, error) {
	if n < 0 {
		n = 0
	}

	dir, path, err := s.resolve(id)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", id, err)
	}

	text, err := tail(path, n)
	if err != nil {
		return nil, fmt.Errorf("cannot read log file %s: %w", id, err)
	}

	content := &Content{
		File:    newFile(dir, info),
		Lines:   n,
		Content: text,
		ReadAt:  s.now().Format("2006-01-02 15:04:05"),
	}
	if n > 0 {
		content.Showing = fmt.Sprintf("Showing last %d lines", n)
	}
	return content, nil
}

func (s *Service) resolve(id string) (string, string, error) {
	dir, name, qualified := strings.Cut(id, ":")
	if !qualified {
		name = id
	}
	if !fileNamePattern.MatchString(name) {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidFileName, name)
	}

	if qualified {
		base, ok := s.dirs[dir]
		if !ok || base == "" {
			return "", "", fmt.Errorf("%w: %s", ErrInvalidDirectory, dir)
		}
		return dir, filepath.Join(base, name), nil
	}

	for _, dir := range s.order {
		base := s.dirs[dir]
		if base == "" {
			continue
		}
		path := filepath.Join(base, name)
		if _, err := os.Stat(path); err == nil {
			return dir, path, nil
		}
	}
	return "", "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// tail keeps the last n lines in a ring while scanning the file once
func tail(path string, n int) (string, error) {
	if n == 0 {
		b, err := os.ReadFile(path)
		return string(b), err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if len(ring) == 0 {
		return "", nil
	}
	return strings.Join(ring, "\n") + "\n", nil
}

func newFile(dir string, info fs.FileInfo) File {
	return File{
		ID:          dir + ":" + info.Name(),
		Name:        info.Name(),
		DisplayName: "[" + dir + "] " + info.Name(),
		Directory:   dir,
		Size:        info.Size(),
		SizeDisplay: FormatBytes(info.Size()),
		Modified:    info.ModTime(),
	}
}

// FormatBytes renders a size as bytes, KB, MB or GB
func FormatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.2f GB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
