package batch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPattern selects inbound files when a directory is scanned.
const DefaultPattern = "*.edi"

// DefaultInput is used when no inputs are given.
const DefaultInput = "data/inbound/*.edi"

// ResolveTargets expands inputs into a sorted, de-duplicated list of regular
// files. Each input may be a file, a glob, or a directory. Directories are
// scanned for base names matching pattern, recursively when recursive is set.
// With recursive set a glob may use "**" to match any number of directories.
// Inputs that match nothing on disk are returned in missing.
func ResolveTargets(inputs []string, recursive bool, pattern string) (files, missing []string, err error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, nil, err
	}

	seen := make(map[string]struct{})
	add := func(path string) {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			seen[filepath.Clean(path)] = struct{}{}
		}
	}

	for _, raw := range inputs {
		info, statErr := os.Stat(raw)
		switch {
		case statErr == nil && info.Mode().IsRegular():
			add(raw)

		case isGlob(raw):
			matches, err := expandGlob(raw, recursive)
			if err != nil {
				return nil, nil, err
			}
			for _, m := range matches {
				add(m)
			}

		case statErr == nil && info.IsDir():
			matches, err := scanDir(raw, pattern, recursive)
			if err != nil {
				return nil, nil, err
			}
			for _, m := range matches {
				add(m)
			}

		default:
			missing = append(missing, raw)
		}
	}

	files = make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, missing, nil
}

func isGlob(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

func expandGlob(raw string, recursive bool) ([]string, error) {
	if !recursive || !strings.Contains(raw, "**") {
		return filepath.Glob(raw)
	}

	// "root/**/name*" walks root and matches name* against base names.
	root, rest, _ := strings.Cut(raw, "**")
	root = strings.TrimRight(root, `/\`)
	if root == "" {
		root = "."
	}
	rest = strings.TrimLeft(rest, `/\`)
	if rest == "" {
		rest = "*"
	}
	if _, err := os.Stat(root); err != nil {
		return nil, nil
	}
	return scanDir(root, filepath.Base(rest), true)
}

func scanDir(dir, pattern string, recursive bool) ([]string, error) {
	if !recursive {
		return filepath.Glob(filepath.Join(dir, pattern))
	}

	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}
