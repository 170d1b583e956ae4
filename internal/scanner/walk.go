package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
)

// Entry is a regular file found under a sweep root
type Entry struct {
	Path string
	Size int64
	Root string
}

// WalkError reports a directory that could not be listed
type WalkError struct {
	Path   string
	IsRoot bool
	Err    error
}

// Walk calls visit for each regular file under root. Links, junctions and
// other special files are neither followed nor visited. Unreadable
// directories go to onError and the walk continues with their siblings.
// It returns the subdirectories seen, parents before children, and stops
// with ctx.Err() once ctx is done.
func Walk(ctx context.Context, root string, visit func(Entry) error, onError func(WalkError)) ([]string, error) {
	var dirs []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if os.IsNotExist(err) {
				// removed by someone else mid-walk
				return nil
			}
			onError(WalkError{Path: path, IsRoot: path == root, Err: err})
			return nil
		}

		if d.IsDir() {
			if path != root {
				dirs = append(dirs, path)
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		var size int64
		if info, err := d.Info(); err == nil {
			size = info.Size()
		} else if os.IsNotExist(err) {
			return nil
		}

		return visit(Entry{Path: path, Size: size, Root: root})
	})

	return dirs, err
}
