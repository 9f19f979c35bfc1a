package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/nao1215/darkthread/internal/model"
)

const (
	// DataDir holds raw captures and parsed documents.
	DataDir = "data"
	// ReportsDir holds rendered reports.
	ReportsDir = "reports"

	dirPerm  = 0750
	filePerm = 0600
)

// Store writes artifacts below a root directory. Reserve is safe for
// concurrent use, so one Store can serve a whole batch.
type Store struct {
	root string

	mu       sync.Mutex
	reserved map[string]struct{}
}

// New returns a Store rooted at root. Directories are created on the
// first write.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, ErrEmptyRoot
	}
	return &Store{
		root:     root,
		reserved: make(map[string]struct{}),
	}, nil
}

// Root returns the root directory.
func (s *Store) Root() string {
	return s.root
}

// Paths returns the artifact paths for capture time ts (Unix milliseconds).
func (s *Store) Paths(ts int64) model.ArtifactPaths {
	return s.paths(strconv.FormatInt(ts, 10))
}

func (s *Store) paths(stamp string) model.ArtifactPaths {
	return model.ArtifactPaths{
		RawHTML:        filepath.Join(s.root, DataDir, "raw_"+stamp+".html"),
		ParsedJSON:     filepath.Join(s.root, DataDir, "parsed_"+stamp+".json"),
		ReportJSON:     filepath.Join(s.root, ReportsDir, "report_"+stamp+".json"),
		ReportMarkdown: filepath.Join(s.root, ReportsDir, "report_"+stamp+".md"),
	}
}

// Reserve returns artifact paths for ts that no earlier Reserve call
// returned and that do not exist on disk yet. When two captures share a
// millisecond, the later one gets a "-N" suffix after the timestamp.
func (s *Store) Reserve(ts int64) model.ArtifactPaths {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := strconv.FormatInt(ts, 10)
	stamp := base
	for n := 1; ; n++ {
		paths := s.paths(stamp)
		if !s.taken(paths) {
			s.reserved[paths.RawHTML] = struct{}{}
			return paths
		}
		stamp = base + "-" + strconv.Itoa(n)
	}
}

func (s *Store) taken(paths model.ArtifactPaths) bool {
	if _, ok := s.reserved[paths.RawHTML]; ok {
		return true
	}
	for _, p := range []string{paths.RawHTML, paths.ParsedJSON, paths.ReportJSON, paths.ReportMarkdown} {
		if _, err := os.Stat(p); !errors.Is(err, fs.ErrNotExist) {
			return true
		}
	}
	return false
}

// SaveRaw writes raw to path unchanged.
func (s *Store) SaveRaw(path string, raw []byte) error {
	return s.Write(path, func(w io.Writer) error {
		_, err := w.Write(raw)
		return err
	})
}

// Write creates path and fills it through fn. The content goes to a
// temporary file in the same directory that is renamed into place only
// when fn succeeds, so a failed write never leaves a truncated artifact.
func (s *Store) Write(path string, fn func(w io.Writer) error) (err error) {
	if path == "" {
		return ErrEmptyPath
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()           //nolint:errcheck // already failing
			_ = os.Remove(tmp.Name()) //nolint:errcheck // best effort cleanup
		}
	}()

	if err = fn(tmp); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = tmp.Chmod(filePerm); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
