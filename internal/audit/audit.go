// Package audit implements the append-only audit log: one plain,
// pipe-separated text line per operation. It is deliberately not
// tamper-evident (no HMAC, no hash chain) — an operator with filesystem
// access to the vault already has full plaintext access.
package audit

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ErrLogMissing is returned by Replay when the audit file does not exist.
var ErrLogMissing = errors.New("audit: log file does not exist")

const filePermissions = 0600

// Outcome values recorded in the final required field of a line.
const (
	OutcomeSuccess = "success"
	OutcomeDenied  = "denied"
	OutcomeError   = "error"
)

// noPath is written in the path field for operations with no associated
// secret path (e.g. policy administration).
const noPath = "-"

// Sink appends audit lines to a single file.
type Sink struct {
	path string
}

// New returns a Sink bound to path. It does not touch the filesystem.
func New(path string) *Sink {
	return &Sink{path: path}
}

// Append writes one audit line and fsyncs before returning, so a crash
// immediately after Append cannot silently lose the record. path may be
// empty, in which case the literal "-" is recorded. detail is optional;
// when present it becomes a trailing pipe-separated field.
func (s *Sink) Append(identity, operation, path, outcome string, detail ...string) error {
	if path == "" {
		path = noPath
	}

	fields := []string{
		time.Now().UTC().Format(time.RFC3339Nano),
		identity,
		operation,
		path,
		outcome,
	}
	if len(detail) > 0 && detail[0] != "" {
		fields = append(fields, detail[0])
	}
	line := strings.Join(fields, " | ") + "\n"

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermissions)
	if err != nil {
		return fmt.Errorf("audit: open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("audit: write log entry: %w", err)
	}
	return f.Sync()
}

// Replay returns the raw lines of the audit log, oldest first. If n is
// given and positive, only the last n lines are returned. A missing log
// file is ErrLogMissing.
func (s *Sink) Replay(n ...int) ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrLogMissing
		}
		return nil, fmt.Errorf("audit: open log file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: read log file: %w", err)
	}

	if len(n) > 0 && n[0] > 0 && n[0] < len(lines) {
		lines = lines[len(lines)-n[0]:]
	}
	return lines, nil
}
