package cookiejar

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/gaborage/rurl/logger"
)

const (
	dirPerm  = 0o777
	filePerm = 0o666
)

// Store persists one jar file per origin under a directory.
type Store struct {
	fs  afero.Fs
	dir string
	log logger.Logger
}

// NewStore creates a store rooted at dir. A nil fsys uses the OS filesystem.
func NewStore(fsys afero.Fs, dir string, log logger.Logger) *Store {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Store{fs: fsys, dir: dir, log: log}
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the cache file of origin.
func (s *Store) Path(o Origin) string {
	return filepath.Join(s.dir, o.Key())
}

// Load reads the jar of origin. A missing, empty or undecodable file yields an empty jar.
func (s *Store) Load(o Origin) *Jar {
	p := s.Path(o)
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn().Err(err).Str("origin", o.String()).Str("file", p).Msg("Cookie cache unreadable, using empty jar")
		}
		return NewJar()
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return NewJar()
	}

	jar := NewJar()
	if err := json.Unmarshal(data, jar); err != nil {
		s.log.Warn().Err(err).Str("origin", o.String()).Str("file", p).Msg("Cookie cache corrupt, using empty jar")
		return NewJar()
	}
	return jar
}

// Save replaces the cache file of origin with jar, creating the directory and file first when needed.
// Failures are returned as *CacheError.
func (s *Store) Save(o Origin, jar *Jar) error {
	p := s.Path(o)
	if err := ensureFile(s.fs, p); err != nil {
		return err
	}

	data, err := json.Marshal(jar)
	if err != nil {
		return &CacheError{Op: "encode", Path: p, Err: err}
	}
	if err := afero.WriteFile(s.fs, p, data, filePerm); err != nil {
		return &CacheError{Op: "write", Path: p, Err: err}
	}
	return nil
}

// ensureFile creates p and its parent directories when p does not exist yet.
func ensureFile(fsys afero.Fs, p string) error {
	if exists, err := afero.Exists(fsys, p); err == nil && exists {
		return nil
	}

	dir := filepath.Dir(p)
	if err := fsys.MkdirAll(dir, dirPerm); err != nil {
		return &CacheError{Op: "mkdir", Path: dir, Err: err}
	}
	f, err := fsys.OpenFile(p, os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return &CacheError{Op: "create", Path: p, Err: err}
	}
	return f.Close()
}
