// Package storage persists threadwork's flat state records (project, token
// ledger, retry state, gate cache, quality config, checkpoint) as JSON
// documents under the project state directory.
package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// DefaultStateDir is the state directory relative to the project root.
	DefaultStateDir = ".threadwork/state"

	// SchemaVersion tags every record written by this package.
	SchemaVersion = "1"
)

// Record file names inside the state directory.
const (
	ProjectFile       = "project.json"
	TokenLogFile      = "token-log.json"
	RetryStateFile    = "ralph-state.json"
	GateCacheFile     = ".gate-cache.json"
	QualityConfigFile = "quality-config.json"
	CheckpointFile    = "checkpoint.json"
	HookLogFile       = "hook-log.json"
)

// Meta is the envelope embedded in every persisted record.
type Meta struct {
	SchemaVersion string    `json:"schemaVersion,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt,omitzero"`
}

// Stamp sets the schema version and last-updated timestamp.
func (m *Meta) Stamp(at time.Time) {
	m.SchemaVersion = SchemaVersion
	m.UpdatedAt = at.UTC()
}

// Stamper is implemented by records embedding Meta.
type Stamper interface {
	Stamp(at time.Time)
}

// FileStore reads and writes state records in a single directory.
// All writes are serialized through one mutex; there is no cross-process
// locking.
type FileStore struct {
	// Dir is the state directory (e.g., <root>/.threadwork/state).
	Dir string

	now func() time.Time
	mu  sync.Mutex
}

// FileStoreOption configures a FileStore instance.
type FileStoreOption func(*FileStore)

// WithDir sets the state directory.
func WithDir(dir string) FileStoreOption {
	return func(fs *FileStore) {
		fs.Dir = dir
	}
}

// WithClock overrides the clock used to stamp records.
func WithClock(now func() time.Time) FileStoreOption {
	return func(fs *FileStore) {
		fs.now = now
	}
}

// NewFileStore creates a new file-based record store.
func NewFileStore(opts ...FileStoreOption) *FileStore {
	fs := &FileStore{
		Dir: DefaultStateDir,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

// Init creates the state directory.
func (fs *FileStore) Init() error {
	if err := os.MkdirAll(fs.Dir, 0700); err != nil {
		return fmt.Errorf("create directory %s: %w", fs.Dir, err)
	}
	return nil
}

// Path returns the absolute location of a record.
func (fs *FileStore) Path(name string) string {
	return filepath.Join(fs.Dir, name)
}

// Exists reports whether a record file is present.
func (fs *FileStore) Exists(name string) bool {
	_, err := os.Stat(fs.Path(name))
	return err == nil
}

// ReadRaw returns the raw bytes of a record. found is false when the record
// does not exist.
func (fs *FileStore) ReadRaw(name string) (data []byte, found bool, err error) {
	data, err = os.ReadFile(fs.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", name, err)
	}
	return data, true, nil
}

// Read decodes a record into v. found is false when the record does not
// exist; a record that cannot be decoded yields ErrCorruptRecord.
func (fs *FileStore) Read(name string, v any) (found bool, err error) {
	data, found, err := fs.ReadRaw(name)
	if err != nil || !found {
		return found, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, fs.Path(name), err)
	}
	return true, nil
}

// Write stamps v (when it embeds Meta) and replaces the record atomically.
func (fs *FileStore) Write(name string, v any) error {
	if s, ok := v.(Stamper); ok {
		s.Stamp(fs.now())
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.atomicWrite(fs.Path(name), func(w io.Writer) error {
		_, err := w.Write(append(data, '\n'))
		return err
	})
}

// Remove deletes a record. A missing record is not an error.
func (fs *FileStore) Remove(name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.Remove(fs.Path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// AppendJSONL appends v as one JSON line to the named file.
func (fs *FileStore) AppendJSONL(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	w, err := fs.openAppend(name)
	if err != nil {
		return err
	}
	defer func() {
		_ = w.Close() //nolint:errcheck // sync already called, close best-effort
	}()

	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return w.Sync()
}

// ReadJSONL decodes every well-formed line of a JSONL file with decode.
// Malformed lines are skipped.
func (fs *FileStore) ReadJSONL(name string, decode func([]byte) error) (err error) {
	f, err := os.Open(fs.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		_ = decode(scanner.Bytes()) //nolint:errcheck // skip malformed lines
	}
	return scanner.Err()
}

// OpenAppend opens the named file for appending, creating the state
// directory when needed. The caller closes the file.
func (fs *FileStore) OpenAppend(name string) (*os.File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.openAppend(name)
}

func (fs *FileStore) openAppend(name string) (*os.File, error) {
	if err := os.MkdirAll(fs.Dir, 0700); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(fs.Path(name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// atomicWrite writes to a temp file and renames atomically.
func (fs *FileStore) atomicWrite(path string, writeFunc func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath) //nolint:errcheck // cleanup in error path
		}
	}()

	if err := writeFunc(tmpFile); err != nil {
		_ = tmpFile.Close() //nolint:errcheck // cleanup in error path
		return fmt.Errorf("write content: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close() //nolint:errcheck // cleanup in error path
		return fmt.Errorf("sync file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename to final: %w", err)
	}

	success = true
	return nil
}
