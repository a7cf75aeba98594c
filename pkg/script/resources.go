package script

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	gopath "path"
	"path/filepath"
	"strings"
)

const (
	// SourceSuffix is the file extension of Starlark glue sources.
	SourceSuffix = ".star"

	// ClasspathScheme prefixes a glue path that must be resolved against
	// the registered classpath mounts instead of the OS filesystem.
	ClasspathScheme = "classpath:"
)

// ErrUnresolvable reports that a glue path could not be resolved by a
// loader tier. The script loader retries an unresolvable plain path with
// the classpath scheme before treating it as an error.
var ErrUnresolvable = errors.New("glue path not resolvable")

// Resource is one addressable glue source. Path is the resource's
// canonical identity: two glue paths reaching the same resource yield equal
// paths, which is what gives run-once loading across paths.
type Resource interface {
	Path() string
	Open() (io.ReadCloser, error)
}

// ResourceLoader resolves a glue path into its source resources. Supplied
// by the host runner; MultiLoader is the default implementation.
type ResourceLoader interface {
	Resources(gluePath, suffix string) ([]Resource, error)
}

// MultiLoader resolves plain paths against the OS filesystem and
// classpath-scheme paths against a list of registered fs.FS mounts,
// searched in mount order. It mirrors the host runner's two-tier resource
// resolution.
type MultiLoader struct {
	mounts []fs.FS
}

// NewMultiLoader creates a loader with the given classpath mounts.
func NewMultiLoader(mounts ...fs.FS) *MultiLoader {
	return &MultiLoader{mounts: mounts}
}

// AddClasspath appends a classpath mount. Mounts are searched in the order
// they were added.
func (m *MultiLoader) AddClasspath(fsys fs.FS) {
	m.mounts = append(m.mounts, fsys)
}

// Resources resolves gluePath into the source resources beneath it whose
// name carries suffix. A plain path that does not exist on the filesystem
// returns ErrUnresolvable; a classpath path not present in any mount does
// the same.
func (m *MultiLoader) Resources(gluePath, suffix string) ([]Resource, error) {
	if rest, ok := strings.CutPrefix(gluePath, ClasspathScheme); ok {
		return m.classpathResources(rest, suffix)
	}
	return osResources(gluePath, suffix)
}

func osResources(gluePath, suffix string) ([]Resource, error) {
	info, err := os.Stat(gluePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvable, gluePath)
	}

	if !info.IsDir() {
		if !strings.HasSuffix(gluePath, suffix) {
			return nil, nil
		}
		return []Resource{osResource{path: filepath.ToSlash(filepath.Clean(gluePath))}}, nil
	}

	var out []Resource
	err = filepath.WalkDir(gluePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, suffix) {
			out = append(out, osResource{path: filepath.ToSlash(filepath.Clean(p))})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", gluePath, err)
	}
	return out, nil
}

func (m *MultiLoader) classpathResources(name, suffix string) ([]Resource, error) {
	name = gopath.Clean(strings.TrimPrefix(name, "/"))

	var out []Resource
	found := false
	for _, mount := range m.mounts {
		info, err := fs.Stat(mount, name)
		if err != nil {
			continue
		}
		found = true

		if !info.IsDir() {
			if strings.HasSuffix(name, suffix) {
				out = append(out, fsResource{fsys: mount, name: name})
			}
			continue
		}

		err = fs.WalkDir(mount, name, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(p, suffix) {
				out = append(out, fsResource{fsys: mount, name: p})
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan classpath %s: %w", name, err)
		}
	}

	if !found {
		return nil, fmt.Errorf("%w: %s%s", ErrUnresolvable, ClasspathScheme, name)
	}
	return out, nil
}

type osResource struct {
	path string
}

func (r osResource) Path() string { return r.path }

func (r osResource) Open() (io.ReadCloser, error) {
	return os.Open(filepath.FromSlash(r.path))
}

type fsResource struct {
	fsys fs.FS
	name string
}

func (r fsResource) Path() string { return r.name }

func (r fsResource) Open() (io.ReadCloser, error) {
	return r.fsys.Open(r.name)
}
