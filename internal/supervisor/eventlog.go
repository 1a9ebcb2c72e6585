package supervisor

import (
	"fmt"
	"os"
	"time"
)

// eventLog is the append-only lifecycle record shared by every invocation.
// It is never rotated or truncated; the worker's stdout and stderr are
// appended to the same file.
type eventLog struct {
	path     string
	hostname string
}

func newEventLog(path string) eventLog {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return eventLog{path: path, hostname: host}
}

// append writes one timestamped lifecycle event line.
func (l eventLog) append(event string) error {
	f, err := l.open()
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	line := fmt.Sprintf("%s %s %s\n", time.Now().Format(time.RFC3339), l.hostname, event)
	_, err = f.WriteString(line)
	return err
}

// open returns an append-only handle, shared with the spawned worker as its
// stdout and stderr.
func (l eventLog) open() (*os.File, error) {
	return os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
}
