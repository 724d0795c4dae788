package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TimestampedPath returns where a file named after target should be written,
// with a Unix timestamp suffix before the extension. An empty target or an
// existing directory gets defaultName inside it.
func TimestampedPath(target, defaultName string, now time.Time) string {
	dir, name := filepath.Dir(target), filepath.Base(target)
	if target == "" {
		dir, name = ".", defaultName
	} else if info, err := os.Stat(target); err == nil && info.IsDir() {
		dir, name = target, defaultName
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, now.Unix(), ext))
}

// WriteFileWithTimestamp writes data next to target with a timestamp suffix.
// Returns the destination path and error if any
func WriteFileWithTimestamp(target, defaultName string, data []byte) (string, error) {
	destPath := TimestampedPath(target, defaultName, time.Now())
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(destPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return destPath, nil
}
