package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/imageviewer/internal/domain/image"
)

// ErrNoMatch is returned for a glob pattern that matched no file
var ErrNoMatch = errors.New("pattern matched no files")

const maxParallelReads = 8

// Options controls argument expansion
type Options struct {
	// Recursive walks into subdirectories of directory arguments
	Recursive bool
	// MaxSize skips files larger than this many bytes, 0 for no limit
	MaxSize int64
}

// File is one loaded image
type File struct {
	Path string
	Blob image.Blob
}

// Expand resolves files, directories and glob patterns into file paths
func Expand(ctx context.Context, args []string, opts Options) ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	for _, arg := range args {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		paths, err := expandOne(ctx, arg, opts)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func expandOne(ctx context.Context, arg string, opts Options) ([]string, error) {
	if isPattern(arg) {
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%s: %w", arg, ErrNoMatch)
		}
		sort.Strings(matches)
		return matches, nil
	}

	info, err := os.Stat(arg)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{filepath.Clean(arg)}, nil
	}
	return walkDir(ctx, arg, opts.Recursive)
}

// walkDir lists the regular files below root
func walkDir(ctx context.Context, root string, recursive bool) ([]string, error) {
	root = filepath.Clean(root)

	var (
		mu    sync.Mutex
		files []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && !recursive {
				return fastwalk.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		mu.Lock()
		files = append(files, path)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// Load reads paths concurrently and keeps the images in path order. Files
// whose content is not an image, or that exceed MaxSize, are returned as
// skipped.
func Load(ctx context.Context, paths []string, opts ...Options) ([]File, []string, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	loaded := make([]*File, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelReads)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := readImage(p, o.MaxSize)
			if err != nil {
				return err
			}
			loaded[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		files   []File
		skipped []string
	)
	for i, f := range loaded {
		if f == nil {
			skipped = append(skipped, paths[i])
			continue
		}
		files = append(files, *f)
	}
	return files, skipped, nil
}

func readImage(path string, maxSize int64) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, nil
	}
	return &File{Path: path, Blob: image.Blob{MIME: mt.String(), Data: data}}, nil
}

func isPattern(arg string) bool {
	return strings.ContainsAny(arg, "*?[{")
}
