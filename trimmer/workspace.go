package trimmer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// TempPrefix names auto-created work directories.
const TempPrefix = "chaptertrim-"

// workspace is the directory holding extracted segments for one run.
type workspace struct {
	dir     string
	created bool // auto-created, removed as a whole
	files   []string
	keep    bool
	logger  *slog.Logger
}

// newWorkspace prepares the work directory. With base set the directory is
// used as given and only the files placed in it are removed; otherwise a
// fresh chaptertrim-* directory is created under the system temp dir.
// In dry-run mode nothing is created.
func newWorkspace(base string, keep, dryRun bool, logger *slog.Logger) (*workspace, error) {
	ws := &workspace{keep: keep, logger: logger}

	switch {
	case dryRun && base != "":
		ws.dir = base
	case dryRun:
		ws.dir = filepath.Join(os.TempDir(), TempPrefix+"dry-run")
	case base != "":
		if err := os.MkdirAll(base, 0755); err != nil {
			return nil, fmt.Errorf("create temp dir: %w", err)
		}
		ws.dir = base
	default:
		dir, err := os.MkdirTemp("", TempPrefix+"*")
		if err != nil {
			return nil, fmt.Errorf("create temp dir: %w", err)
		}
		ws.dir = dir
		ws.created = true
	}
	return ws, nil
}

// path returns a file path inside the workspace and tracks it for cleanup.
func (ws *workspace) path(name string) string {
	p := filepath.Join(ws.dir, name)
	ws.files = append(ws.files, p)
	return p
}

// cleanup removes the workspace unless keep was requested.
func (ws *workspace) cleanup() {
	if ws.keep {
		ws.logger.Info("keeping temporary files", "dir", ws.dir)
		return
	}
	if ws.created {
		if err := os.RemoveAll(ws.dir); err != nil {
			ws.logger.Warn("failed to remove temp dir", "dir", ws.dir, "error", err)
			return
		}
		ws.logger.Debug("removed temp dir", "dir", ws.dir)
		return
	}
	for _, f := range ws.files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			ws.logger.Warn("failed to remove temp file", "file", f, "error", err)
		}
	}
}

// outputLock guards an output path against concurrent runs.
type outputLock struct {
	path string
	lock *flock.Flock
}

// lockOutput takes "<target>.lock" without blocking.
func lockOutput(target string) (*outputLock, error) {
	path := target + ".lock"
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	l := flock.New(path)
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, path)
	}
	return &outputLock{path: path, lock: l}, nil
}

func (o *outputLock) release() {
	_ = o.lock.Unlock()
	_ = os.Remove(o.path)
}
