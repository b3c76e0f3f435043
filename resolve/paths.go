package resolve

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/hugr-lab/lazyscan/cloud"
)

// GlobStartIndex returns the byte offset of the first glob metacharacter
// ('*', '?' or '[') in p, or -1 when p is a literal path.
func GlobStartIndex(p string) int {
	return strings.IndexAny(p, "*?[")
}

// HasGlob reports whether p contains glob metacharacters.
func HasGlob(p string) bool {
	return GlobStartIndex(p) >= 0
}

// Clean normalises a local path or remote URL without touching storage.
// Local paths use forward slashes; trailing slashes are dropped.
func Clean(p string) string {
	if cloud.IsURL(p) {
		u, err := cloud.Parse(p)
		if err != nil {
			return p
		}
		key := strings.TrimPrefix(path.Clean("/"+u.Key), "/")
		u.Key = key
		return u.String()
	}
	return path.Clean(filepath.ToSlash(p))
}

// Components splits a cleaned path into its slash separated segments.
// An absolute path starts with an empty root segment: "/a/b" -> ["", "a", "b"].
// The current directory "." has no components.
func Components(p string) []string {
	c := Clean(p)
	switch c {
	case ".":
		return nil
	case "/":
		return []string{""}
	}
	return strings.Split(c, "/")
}

// SamePath reports whether a and b name the same location after cleaning.
func SamePath(a, b string) bool {
	return Clean(a) == Clean(b)
}

// globBase returns the literal directory prefix of a pattern.
func globBase(pattern string) string {
	idx := GlobStartIndex(pattern)
	if idx < 0 {
		return pattern
	}
	slash := strings.LastIndex(pattern[:idx], "/")
	switch {
	case slash < 0:
		return "."
	case slash == 0:
		return "/"
	}
	return pattern[:slash]
}

// matchPath matches a slash separated name against a pattern.
// Segments follow path.Match; a "**" segment matches zero or more segments.
func matchPath(pattern, name string) (bool, error) {
	if !doublestar.ValidatePattern(pattern) {
		return false, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
	}
	return doublestar.Match(pattern, name)
}

// hiddenName reports names skipped during directory expansion
// (".crc" side files, "_SUCCESS" markers and the like).
func hiddenName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}
