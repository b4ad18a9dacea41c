// Package filex holds small filesystem helpers.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SQLitePath returns the filesystem path behind a SQLite DSN, or "" when
// the DSN names no file on disk (":memory:", "file:...?mode=memory").
func SQLitePath(dsn string) string {
	if dsn == "" || dsn == ":memory:" {
		return ""
	}

	path, query, _ := strings.Cut(dsn, "?")
	if strings.HasPrefix(path, "file:") {
		if strings.Contains(query, "mode=memory") {
			return ""
		}
		path = strings.TrimPrefix(path, "file:")
	}
	if path == "" || path == ":memory:" {
		return ""
	}
	return path
}

// EnsureParentDir creates the directory that will hold file, relative to
// the working directory when file is relative.
func EnsureParentDir(file string) (string, error) {
	dir := filepath.Dir(file)
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}
