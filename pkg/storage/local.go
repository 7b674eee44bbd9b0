package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/Phlares/arenaflow/pkg/errors"
)

// LocalStore finds combat logs in a local directory.
type LocalStore struct {
	dir    string
	names  []string
	starts []time.Time
}

// NewLocalStore scans dir once for stamped log files. The directory
// listing is taken at construction; logs appearing later need a new
// store (the watch flow constructs one per event).
func NewLocalStore(dir string) (*LocalStore, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeLogUnreadable, "read log directory")
	}

	s := &LocalStore{dir: dir}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ts, ok := parseStamp(e.Name()); ok {
			s.names = append(s.names, e.Name())
			s.starts = append(s.starts, ts)
		}
	}
	return s, nil
}

// Len returns the number of stamped logs found.
func (s *LocalStore) Len() int { return len(s.names) }

// Find implements LogStore.
func (s *LocalStore) Find(ctx context.Context, start time.Time) (*LogHandle, error) {
	i := bestCandidate(s.names, s.starts, start)
	if i < 0 {
		return nil, errors.New(errors.CodeLogUnreadable, "no combat log covers the declared start").
			WithContext("declared_start", start.Format(time.RFC3339))
	}

	path := filepath.Join(s.dir, s.names[i])
	return &LogHandle{
		path:  path,
		start: s.starts[i],
		open: func(ctx context.Context) (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}
