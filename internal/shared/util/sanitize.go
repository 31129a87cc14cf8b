package util

import "strings"

// SanitizeFileName strips path separators and traversal sequences so the name can be
// used as the last segment of a storage key. Empty results fall back to "file".
func SanitizeFileName(name string) string {
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", ".")
	}
	s = strings.Trim(s, ".")
	if s == "" {
		return "file"
	}
	return s
}
