// Package safepath provides component-wise containment checks for filesystem
// paths. All comparisons are done on cleaned absolute paths; raw string prefix
// checks are never used so that "/data-evil" is not accepted under "/data".
package safepath

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
)

// IsAbsName reports whether an archive member name is absolute. Unix roots,
// backslash roots and Windows drive letters are all treated as absolute
// regardless of the host platform.
func IsAbsName(name string) bool {
	if name == "" {
		return false
	}
	if name[0] == '/' || name[0] == '\\' {
		return true
	}
	if filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return true
	}
	if len(name) >= 2 && name[1] == ':' && isASCIILetter(name[0]) {
		return true
	}
	return false
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// Within reports whether target equals base or is a descendant of it. Both
// arguments are expected to be absolute; they are cleaned before comparison.
func Within(base, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(base), filepath.Clean(target))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}

// Resolve returns the absolute, cleaned form of path with symlinks of its
// longest existing ancestor evaluated. Components that do not exist yet are
// appended verbatim.
func Resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	existing := abs
	var missing []string
	for {
		resolved, err := filepath.EvalSymlinks(existing)
		if err == nil {
			parts := make([]string, 0, len(missing)+1)
			parts = append(parts, resolved)
			for i := len(missing) - 1; i >= 0; i-- {
				parts = append(parts, missing[i])
			}
			return filepath.Join(parts...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		missing = append(missing, filepath.Base(existing))
		existing = parent
	}
}

// Contains resolves both base and target and reports whether the resolved
// target lies inside the resolved base.
func Contains(base, target string) (bool, error) {
	resolvedBase, err := Resolve(base)
	if err != nil {
		return false, err
	}
	resolvedTarget, err := Resolve(target)
	if err != nil {
		return false, err
	}
	return Within(resolvedBase, resolvedTarget), nil
}
