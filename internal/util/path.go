package util

import (
	"path"
	"strings"
)

// NormalizeContentPath validates a relative content path shared by archive
// extraction, asset delivery, and deletion. Backslashes are normalized to
// forward slashes to catch Windows-style traversal in crafted inputs.
//
// Returns ErrUnsafePath for absolute paths, paths beginning with a
// parent-directory segment, and paths that collapse to "." (e.g. "a/..",
// which would otherwise name the content root itself).
func NormalizeContentPath(p string) (string, error) {
	normalized := strings.ReplaceAll(p, "\\", "/")
	normalized = path.Clean(normalized)

	if normalized == "" || normalized == "." {
		return "", ErrUnsafePath
	}
	if strings.HasPrefix(normalized, "/") {
		return "", ErrUnsafePath
	}
	if normalized == ".." || strings.HasPrefix(normalized, "../") {
		return "", ErrUnsafePath
	}
	return normalized, nil
}
