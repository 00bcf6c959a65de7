package session

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/matzehuels/canvasflow/pkg/errors"
)

const sessionExt = ".json"

// FileStore keeps one JSON file per session, for the CLI. Writes go through
// a temporary file and a rename, so a crash never leaves a truncated session.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// DefaultDir returns ~/.config/canvasflow/sessions.
func DefaultDir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInternal, err, "locate config dir")
	}
	return filepath.Join(cfg, "canvasflow", "sessions"), nil
}

// NewFileStore creates the store, and dir if needed. An empty dir uses
// [DefaultDir].
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create session dir")
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) (string, error) {
	if err := errors.ValidateCanvasID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, id+sessionExt), nil
}

// Get returns nil, nil for missing or expired sessions. Expired files are
// removed.
func (s *FileStore) Get(ctx context.Context, id string) (*Session, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	sess, err := readSession(path)
	s.mu.RUnlock()
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.IsExpired() {
		return nil, s.Delete(ctx, id)
	}
	return sess, nil
}

func (s *FileStore) Set(ctx context.Context, sess *Session) error {
	path, err := s.path(sess.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode session %s", sess.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(s.dir, "."+sess.ID+"-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write session %s", sess.ID)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "write session %s", sess.ID)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeInternal, err, "write session %s", sess.ID)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write session %s", sess.ID)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write session %s", sess.ID)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeInternal, err, "remove session %s", id)
	}
	return nil
}

// Cleanup removes expired and unreadable session files.
func (s *FileStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.dir {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !strings.HasSuffix(d.Name(), sessionExt) {
			return nil
		}
		sess, err := readSession(path)
		if err != nil || (sess != nil && sess.IsExpired()) {
			os.Remove(path)
		}
		return nil
	})
}

// Dir returns the directory holding the session files.
func (s *FileStore) Dir() string { return s.dir }

// readSession returns nil, nil when path does not exist.
func readSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read session")
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode session %s", filepath.Base(path))
	}
	return &sess, nil
}

var _ Store = (*FileStore)(nil)
