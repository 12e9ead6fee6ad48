package app

import (
	"context"
	"errors"
	"os"
	"strings"
)

// IsLocal reports whether arg names a file on disk rather than a PDB
// identifier or URL
func IsLocal(arg string) bool {
	if strings.Contains(arg, "://") {
		return false
	}
	info, err := os.Stat(arg)
	return err == nil && !info.IsDir()
}

// Open loads arg as a local file when it exists on disk and as a remote
// structure otherwise
func (a *App) Open(ctx context.Context, arg string) error {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return errors.New("no structure given")
	}
	if IsLocal(arg) {
		return a.Viewer.LoadLocal(ctx, arg)
	}
	return a.Viewer.LoadRemote(ctx, arg)
}

// OpenAndWatch opens a local file and reloads it whenever it changes
func (a *App) OpenAndWatch(ctx context.Context, path string) error {
	if err := a.Viewer.LoadLocal(ctx, path); err != nil {
		return err
	}
	return a.Viewer.Watch(path)
}
