// Package source abstracts where meshes are read from: the local
// filesystem or an S3-compatible object store.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pangeorg/rusty-stl/pkg/discover"
)

// BucketScheme prefixes object store arguments: s3://bucket/prefix.
const BucketScheme = "s3://"

// Source lists and opens mesh files.
type Source interface {
	// List returns the names of all meshes available from the source.
	List(ctx context.Context) ([]string, error)
	// Open returns a reader for one listed name. The caller closes it.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Files is a Source over local paths, files, directories or glob patterns.
type Files struct {
	Args    []string
	Options discover.Options
}

// List expands the arguments. Unresolvable arguments are returned as an
// error alongside the files that were found.
func (f *Files) List(_ context.Context) ([]string, error) {
	return discover.Expand(f.Args, f.Options)
}

// Open opens a local file.
func (f *Files) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// Location is a parsed object store argument.
type Location struct {
	Bucket string
	Prefix string
}

// ParseLocation parses s3://bucket/prefix. ok is false for local paths.
func ParseLocation(arg string) (loc Location, ok bool, err error) {
	if !strings.HasPrefix(arg, BucketScheme) {
		return Location{}, false, nil
	}
	rest := strings.TrimPrefix(arg, BucketScheme)
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, true, fmt.Errorf("source: missing bucket in %q", arg)
	}
	return Location{Bucket: bucket, Prefix: prefix}, true, nil
}

// Split separates local path arguments from object store locations.
func Split(args []string) (local []string, remote []Location, err error) {
	for _, a := range args {
		loc, ok, perr := ParseLocation(a)
		if perr != nil {
			return nil, nil, perr
		}
		if ok {
			remote = append(remote, loc)
		} else {
			local = append(local, a)
		}
	}
	return local, remote, nil
}

// Multi concatenates several sources. Names are prefixed by their source
// index so that Open can route them back.
type Multi []Source

// List lists every source in order. Partial errors are joined.
func (m Multi) List(ctx context.Context) ([]string, error) {
	var (
		out  []string
		errs []error
	)
	for i, s := range m {
		names, err := s.List(ctx)
		if err != nil {
			errs = append(errs, err)
		}
		for _, n := range names {
			out = append(out, fmt.Sprintf("%d:%s", i, n))
		}
	}
	return out, errors.Join(errs...)
}

// Open routes name to the source that listed it.
func (m Multi) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	idx, rest, ok := strings.Cut(name, ":")
	i, err := strconv.Atoi(idx)
	if !ok || err != nil || i < 0 || i >= len(m) {
		return nil, fmt.Errorf("source: unknown name %q", name)
	}
	return m[i].Open(ctx, rest)
}

// DisplayName strips the routing prefix added by Multi.
func DisplayName(name string) string {
	idx, rest, ok := strings.Cut(name, ":")
	if !ok {
		return name
	}
	for _, c := range idx {
		if c < '0' || c > '9' {
			return name
		}
	}
	return rest
}
