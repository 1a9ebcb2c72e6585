package liveness

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Record is the persisted identity of the supervised worker: the PID written at
// spawn time and, when start-time verification is enabled, the Unix start time
// of the process observed right after spawning.
type Record struct {
	PID       int
	StartUnix int64
}

type recordMeta struct {
	StartUnix int64 `json:"start_unix"`
}

// ReadRecord parses a pid record file. The first line is the decimal PID; an
// optional second line carries JSON meta with the process start time. Plain
// pid-only files remain valid.
func ReadRecord(path string) (Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}
	pidLine, rest, _ := strings.Cut(strings.ReplaceAll(string(b), "\r\n", "\n"), "\n")
	pidStr := strings.TrimSpace(pidLine)
	pid, err := strconv.Atoi(pidStr)
	if err != nil || pid <= 0 {
		return Record{}, fmt.Errorf("invalid pid in %s: %q", path, pidStr)
	}
	rec := Record{PID: pid}
	rest = strings.TrimSpace(rest)
	if rest != "" {
		var m recordMeta
		if err := json.Unmarshal([]byte(rest), &m); err == nil {
			rec.StartUnix = m.StartUnix
		}
	}
	return rec, nil
}

// WriteFile persists the record, overwriting any previous one. Meta is written
// only when StartUnix is known so the default format stays a bare decimal PID.
func (r Record) WriteFile(path string) error {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(r.PID))
	if r.StartUnix > 0 {
		meta, err := json.Marshal(recordMeta{StartUnix: r.StartUnix})
		if err == nil {
			sb.WriteByte('\n')
			sb.Write(meta)
		}
	}
	return os.WriteFile(path, []byte(sb.String()), 0o600)
}
