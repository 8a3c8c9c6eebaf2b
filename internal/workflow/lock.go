package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"quire/internal/services"
)

// LockFileName is created in the build directory while a build runs.
const LockFileName = ".quire.lock"

// acquireLock takes the build directory lock without blocking.
func acquireLock(buildDir string) (*flock.Flock, error) {
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrTransient, "workflow", "lock", "Create build directory", err)
	}
	path := filepath.Join(buildDir, LockFileName)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "workflow", "lock", "Acquire build lock", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "lock",
			fmt.Sprintf("another quire build is using %s", buildDir), nil)
	}
	return lock, nil
}
