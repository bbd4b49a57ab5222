// Package discover expands command line arguments into the list of STL
// files to analyze. Arguments may name files, directories or glob patterns.
package discover

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Ext is the file extension collected from directories, matched
// case-insensitively.
const Ext = ".stl"

// Options controls expansion.
type Options struct {
	// Recursive descends into subdirectories of directory arguments.
	Recursive bool
}

// HasMeta reports whether arg contains glob metacharacters.
func HasMeta(arg string) bool {
	return strings.ContainsAny(arg, "*?[{")
}

// IsSTL reports whether name has the STL extension.
func IsSTL(name string) bool {
	return strings.EqualFold(filepath.Ext(name), Ext)
}

// Expand resolves args into file paths. Directories contribute the STL
// files they contain, regular files are kept as given and patterns are
// matched with '**' crossing directory boundaries. Arguments that cannot
// be resolved are reported in the joined error while the remaining paths
// are still returned.
func Expand(args []string, opts Options) ([]string, error) {
	var (
		out  []string
		errs []error
		seen = make(map[string]bool)
	)
	for _, arg := range args {
		var (
			files []string
			err   error
		)
		if HasMeta(arg) {
			files, err = expandPattern(arg)
		} else {
			files, err = expandPath(arg, opts)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		sort.Strings(files)
		for _, f := range files {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out, errors.Join(errs...)
}

func expandPath(arg string, opts Options) ([]string, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	if !info.IsDir() {
		return []string{arg}, nil
	}

	var files []string
	if !opts.Recursive {
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("discover: %w", err)
		}
		for _, e := range entries {
			if e.Type().IsRegular() && IsSTL(e.Name()) {
				files = append(files, filepath.Join(arg, e.Name()))
			}
		}
		return files, nil
	}

	err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && IsSTL(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	return files, nil
}

// staticPrefix returns the leading directory of pattern that contains no
// metacharacters; it is where the walk starts.
func staticPrefix(pattern string) string {
	parts := strings.Split(pattern, "/")
	var static []string
	for _, p := range parts[:len(parts)-1] {
		if HasMeta(p) {
			break
		}
		static = append(static, p)
	}
	if len(static) == 0 {
		if strings.HasPrefix(pattern, "/") {
			return "/"
		}
		return "."
	}
	if static[0] == "" {
		return "/" + strings.Join(static[1:], "/")
	}
	return strings.Join(static, "/")
}

// zeroDirVariants returns pattern plus every variant with one or more
// "**/" segments removed, so that "**/" also matches zero directories.
func zeroDirVariants(pattern string) []string {
	seen := map[string]bool{pattern: true}
	out := []string{pattern}
	for i := 0; i < len(out); i++ {
		p := out[i]
		for j := 0; j+3 <= len(p); j++ {
			if p[j:j+3] != "**/" || (j > 0 && p[j-1] != '/') {
				continue
			}
			v := p[:j] + p[j+3:]
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

func expandPattern(arg string) ([]string, error) {
	pattern := filepath.ToSlash(filepath.Clean(arg))
	var globs []glob.Glob
	for _, p := range zeroDirVariants(pattern) {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("discover: bad pattern %q: %w", arg, err)
		}
		globs = append(globs, g)
	}
	match := func(path string) bool {
		for _, g := range globs {
			if g.Match(path) {
				return true
			}
		}
		return false
	}
	root := filepath.FromSlash(staticPrefix(pattern))

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && match(filepath.ToSlash(path)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover: %q: %w", arg, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("discover: no files match %q", arg)
	}
	return files, nil
}
