package resolve

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// Local expands paths on a go-billy filesystem.
type Local struct {
	fs billy.Filesystem
}

// NewLocal creates a Local expander over fsys.
func NewLocal(fsys billy.Filesystem) *Local {
	return &Local{fs: fsys}
}

// NewOSLocal creates a Local expander over the host filesystem.
// Paths are used as given, relative paths resolve against the working directory.
func NewOSLocal() *Local {
	return NewLocal(osfs.New(""))
}

// IsDir reports whether p is an existing directory.
func (l *Local) IsDir(p string) bool {
	info, err := l.fs.Stat(p)
	return err == nil && info.IsDir()
}

// Expand implements Expander.
func (l *Local) Expand(ctx context.Context, p string) (Listing, error) {
	if HasGlob(p) {
		return l.glob(ctx, p)
	}

	info, err := l.fs.Stat(p)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) {
			return Listing{}, &Error{Op: "stat", Path: p, Err: ErrNotFound}
		}
		return Listing{}, &Error{Op: "stat", Path: p, Err: err}
	}
	if !info.IsDir() {
		return Listing{Files: []string{Clean(p)}}, nil
	}

	files, err := l.walk(ctx, p, func(string) (bool, error) { return true, nil })
	if err != nil {
		return Listing{}, err
	}
	return Listing{Files: files, Depth: len(Components(p))}, nil
}

func (l *Local) glob(ctx context.Context, pattern string) (Listing, error) {
	base := globBase(pattern)
	clean := path.Clean(filepath.ToSlash(pattern))

	if !l.IsDir(base) {
		return Listing{}, &Error{Op: "glob", Path: pattern, Err: ErrNoMatch}
	}

	files, err := l.walk(ctx, base, func(name string) (bool, error) {
		return matchPath(clean, filepath.ToSlash(name))
	})
	if err != nil {
		return Listing{}, err
	}
	if len(files) == 0 {
		return Listing{}, &Error{Op: "glob", Path: pattern, Err: ErrNoMatch}
	}
	return Listing{Files: files, Depth: len(Components(base))}, nil
}

// walk collects the regular files below root accepted by keep, sorted.
func (l *Local) walk(ctx context.Context, root string, keep func(name string) (bool, error)) ([]string, error) {
	var files []string
	err := util.Walk(l.fs, root, func(name string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if name != root && hiddenName(info.Name()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		ok, err := keep(name)
		if err != nil {
			return err
		}
		if ok {
			files = append(files, filepath.ToSlash(name))
		}
		return nil
	})
	if err != nil {
		var rerr *Error
		if errors.As(err, &rerr) {
			return nil, rerr
		}
		if errors.Is(err, ErrBadPattern) {
			return nil, &Error{Op: "glob", Path: root, Err: err}
		}
		return nil, &Error{Op: "walk", Path: root, Err: err}
	}
	sort.Strings(files)
	return files, nil
}
