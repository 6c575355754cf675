package patch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/hashicorp/go-multierror"
)

// resolve confines a manifest path to root. ".." components can't leave the root. Unless
// allowRoot is set, the path must designate something below the root.
func resolve(root string, rel string, allowRoot bool) (string, error) {
	if strings.TrimSpace(rel) == "" && !allowRoot {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	target, err := securejoin.SecureJoin(root, rel)
	if err != nil {
		return "", err
	}

	if !allowRoot && target == filepath.Clean(root) {
		return "", fmt.Errorf("%w: %q designates the root", ErrInvalidPath, rel)
	}

	return target, nil
}

// matchKeyword returns the names of the files in folder containing keyword, ignoring case.
// Sub-directories are left alone.
func matchKeyword(folder string, keyword string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, err
	}

	keyword = strings.ToLower(keyword)
	matches := []string{}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if strings.Contains(strings.ToLower(entry.Name()), keyword) {
			matches = append(matches, entry.Name())
		}
	}

	return matches, nil
}

// mergeTree copies the content of src over dest, creating missing directories and replacing
// existing files. Individual failures don't stop the copy and are returned together.
func mergeTree(ctx context.Context, src string, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %q isn't a directory", ErrInvalidPath, filepath.Base(src))
	}

	var errs *multierror.Error

	err = filepath.WalkDir(src, func(current string, entry fs.DirEntry, err error) error {
		if err != nil {
			errs = multierror.Append(errs, err)

			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(src, current)
		if err != nil {
			return err
		}

		target := filepath.Join(dest, rel)

		switch {
		case entry.IsDir():
			err = os.MkdirAll(target, 0o755)
			if err != nil {
				errs = multierror.Append(errs, err)

				return filepath.SkipDir
			}
		case entry.Type().IsRegular():
			err = copyFile(current, target)
			if err != nil {
				errs = multierror.Append(errs, err)
			}
		}

		return nil
	})
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	return errs.ErrorOrNil()
}

func copyFile(src string, dest string) error {
	// #nosec G304
	in, err := os.Open(src)
	if err != nil {
		return err
	}

	defer in.Close()

	// Never write through links.
	info, err := os.Lstat(dest)
	if err == nil && !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %q isn't a regular file", ErrInvalidPath, dest)
	}

	// #nosec G304
	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	defer out.Close()

	for {
		_, err = io.CopyN(out, in, 4*1024*1024)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return err
		}
	}

	return out.Close()
}
