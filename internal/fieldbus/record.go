// Package fieldbus reads and writes the line-based records exchanged with the
// EtherCAT driver process. A record is a single line of comma-separated
// integers; a reader either gets a complete record of the expected width or an
// error, never a partial result.
package fieldbus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	// ErrSourceUnavailable is returned when the backing file is missing or unreadable.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrMalformedData is returned for a wrong field count or non-integer content.
	ErrMalformedData = errors.New("malformed data")
)

// ReadRecord reads the whole file at path and parses it as exactly want integers.
func ReadRecord(path string, want int) ([]int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", path, ErrSourceUnavailable, err)
	}
	values, err := ParseRecord(string(data), want)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return values, nil
}

// ParseRecord parses a comma-separated record. Surrounding whitespace on the
// line and on each field is ignored. Fields must fit in an int32, the width
// of the process data the driver copies out.
func ParseRecord(line string, want int) ([]int64, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("%w: empty record", ErrMalformedData)
	}
	fields := strings.Split(line, ",")
	if len(fields) != want {
		return nil, fmt.Errorf("%w: got %d fields, want %d", ErrMalformedData, len(fields), want)
	}
	out := make([]int64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(f), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: field %d %q: %w", ErrMalformedData, i+1, f, err)
		}
		out[i] = v
	}
	return out, nil
}

// FormatRecord renders values as "v1,v2,...,vn\n".
func FormatRecord(values []int) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	b.WriteByte('\n')
	return b.String()
}

// WriteRecord replaces the file at path with the formatted record.
func WriteRecord(path string, values []int) error {
	return WriteFileAtomic(path, []byte(FormatRecord(values)), 0o644)
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
