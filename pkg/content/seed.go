package content

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/marmos91/dittohttp/internal/logger"
)

// Seed copies every regular file below dir into store, keyed by its path
// relative to dir. It returns the number of files written.
//
// Hidden files and directories (leading '.') are skipped.
func Seed(ctx context.Context, store WritableContentStore, dir string) (int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, fmt.Errorf("seed directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("seed directory %s is not a directory", dir)
	}

	count := 0
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := d.Name()
		if p != dir && name[0] == '.' {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		id, err := ParseID(filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		if err := store.WriteContent(ctx, id, data); err != nil {
			return fmt.Errorf("write %s: %w", id, err)
		}

		logger.Debug("Seeded content %s (%d bytes)", id, len(data))
		count++
		return nil
	})
	return count, err
}
