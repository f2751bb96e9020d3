package util

import "os"

// EnsureDir creates dir and any missing parents. Idempotent: an already
// existing directory is not an error.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// RemoveIfEmpty deletes dir when it holds no entries, e.g. an output
// folder created for a run that downloaded nothing.
func RemoveIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	if len(entries) == 0 {
		_ = os.Remove(dir)
	}
}
