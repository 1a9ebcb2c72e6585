package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultCommand is the fixed launch command used when no override is given,
// resolved relative to the worker's working directory.
const DefaultCommand = "./run.sh"

// resolveCommand turns a launch command string into argv. The default command
// is taken on trust: whether it exists is the worker's business and a launch
// failure will surface as a stale pid record. An explicit override must
// resolve to a PATH name or an existing executable file before anything is
// spawned.
func resolveCommand(runnerPath, override string) ([]string, error) {
	cmdStr := strings.TrimSpace(override)
	if cmdStr == "" {
		return []string{DefaultCommand}, nil
	}
	argv := strings.Fields(cmdStr)
	if err := validateExecutable(runnerPath, argv[0]); err != nil {
		return nil, err
	}
	return argv, nil
}

func validateExecutable(runnerPath, name string) error {
	if strings.ContainsRune(name, os.PathSeparator) || strings.HasPrefix(name, ".") {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(runnerPath, path)
		}
		fi, err := os.Stat(path)
		if err != nil || fi.IsDir() {
			return fmt.Errorf("%w: %s", ErrCommandNotFound, name)
		}
		if runtime.GOOS != "windows" && fi.Mode().Perm()&0o111 == 0 {
			return fmt.Errorf("%w: %s", ErrCommandNotExecutable, name)
		}
		return nil
	}
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%w: %s", ErrCommandNotFound, name)
	}
	return nil
}
