package config

import "path/filepath"

// resolvePath makes path absolute, relative to baseDir, per spec §4.10
// ("relative paths resolve against the config file's directory").
// Empty paths pass through unchanged so optional fields stay optional.
func resolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
