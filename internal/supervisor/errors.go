package supervisor

import "errors"

// Fatal start conditions. All abort the operation before any state is mutated.
var (
	// ErrPathNotFound means the worker's working directory does not exist.
	ErrPathNotFound = errors.New("worker path not found")
	// ErrCommandNotFound means an explicit launch command resolves to nothing,
	// neither on PATH nor as a file.
	ErrCommandNotFound = errors.New("command not found")
	// ErrCommandNotExecutable means an explicit launch command exists as a file
	// but has no executable bit set.
	ErrCommandNotExecutable = errors.New("command not executable")
)
