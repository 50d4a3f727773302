// Package inventory keeps per-product credential files: one deliverable item
// per line, dispensed head first.
package inventory

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotExist = errors.New("inventory file does not exist")
	ErrEmpty    = errors.New("inventory is empty")
	ErrClosed   = errors.New("inventory handle is closed")
)

// Store serializes access to inventory files in a single directory. All
// operations on one file take that file's lock, so a Pop and its Flush are
// never interleaved with another writer in this process.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// FileName is the inventory file name for a product.
func FileName(productID uuid.UUID) string {
	return fmt.Sprintf("inventory_%s.txt", productID)
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func (s *Store) lock(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	name = filepath.Base(name)
	l, ok := s.locks[name]
	if !ok {
		l = &sync.Mutex{}
		s.locks[name] = l
	}
	return l
}

// Open locks the named file and loads its items. The lock is held until
// Close. A missing file returns ErrNotExist.
func (s *Store) Open(name string) (*Handle, error) {
	l := s.lock(name)
	l.Lock()
	raw, err := os.ReadFile(s.path(name))
	if err != nil {
		l.Unlock()
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return &Handle{
		path:     s.path(name),
		lock:     l,
		original: raw,
		lines:    parseLines(raw),
	}, nil
}

// Stage reads the items from r into a temporary file beside name and takes
// name's lock. The live file is untouched until the returned Upload is
// installed; callers lock the product row before staging.
func (s *Store) Stage(name string, r io.Reader) (*Upload, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	lines := parseLines(raw)
	l := s.lock(name)
	l.Lock()
	tmp, err := writeTemp(s.dir, encodeLines(lines))
	if err != nil {
		l.Unlock()
		return nil, err
	}
	return &Upload{path: s.path(name), tmp: tmp, lock: l, n: len(lines)}, nil
}

// Upload is a staged replacement for an inventory file. It holds the file
// lock until Install or Discard.
type Upload struct {
	path string
	tmp  string
	lock *sync.Mutex
	n    int
	done bool
}

// Len is the number of items in the staged file.
func (u *Upload) Len() int { return u.n }

// Install renames the staged file over the live one and releases the lock.
func (u *Upload) Install() error {
	if u.done {
		return ErrClosed
	}
	u.done = true
	defer u.lock.Unlock()
	if err := os.Rename(u.tmp, u.path); err != nil {
		os.Remove(u.tmp)
		return err
	}
	return nil
}

// Discard removes the staged file and releases the lock. It is a no-op after
// Install.
func (u *Upload) Discard() {
	if u.done {
		return
	}
	u.done = true
	os.Remove(u.tmp)
	u.lock.Unlock()
}

// Count returns the number of items left in the named file.
func (s *Store) Count(name string) (int, error) {
	raw, err := s.Read(name)
	if err != nil {
		return 0, err
	}
	return len(parseLines(raw)), nil
}

// Read returns the raw contents of the named file.
func (s *Store) Read(name string) ([]byte, error) {
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()
	raw, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	return raw, err
}

// Remove deletes the named file. Removing a missing file is not an error.
func (s *Store) Remove(name string) error {
	l := s.lock(name)
	l.Lock()
	defer l.Unlock()
	err := os.Remove(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Handle is an open, locked inventory file. Pop changes only the in-memory
// queue; Flush persists it and Restore puts the original contents back.
type Handle struct {
	path     string
	lock     *sync.Mutex
	original []byte
	lines    []string
	closed   bool
}

// Len is the number of items not yet popped.
func (h *Handle) Len() int { return len(h.lines) }

// Pop removes and returns the first item.
func (h *Handle) Pop() (string, error) {
	if h.closed {
		return "", ErrClosed
	}
	if len(h.lines) == 0 {
		return "", ErrEmpty
	}
	item := h.lines[0]
	h.lines = h.lines[1:]
	return item, nil
}

// Flush atomically rewrites the file with the remaining items.
func (h *Handle) Flush() error {
	if h.closed {
		return ErrClosed
	}
	return writeAtomic(h.path, encodeLines(h.lines))
}

// Restore rewrites the file with the contents it had when opened.
func (h *Handle) Restore() error {
	if h.closed {
		return ErrClosed
	}
	return writeAtomic(h.path, h.original)
}

// Close releases the file lock. It is safe to call more than once.
func (h *Handle) Close() {
	if h.closed {
		return
	}
	h.closed = true
	h.lock.Unlock()
}

func parseLines(raw []byte) []string {
	var lines []string
	for _, l := range strings.Split(string(raw), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func encodeLines(lines []string) []byte {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// writeAtomic writes data to a temp file next to path and renames it into
// place, so readers see either the old or the new contents.
func writeAtomic(path string, data []byte) error {
	tmp, err := writeTemp(filepath.Dir(path), data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// writeTemp writes data to a new synced 0600 file in dir and returns its path.
func writeTemp(dir string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, ".inventory-*")
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Chmod(tmp, 0o600); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}
