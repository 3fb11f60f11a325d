// Package output writes the accepted track files to a destination directory.
package output

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// CopyStats summarizes a CopyFiles call.
type CopyStats struct {
	FilesCopied int
	BytesCopied int64
	// Overwritten lists base names written more than once in this call; the last
	// source wins.
	Overwritten []string
	// Skipped lists sources that already are their destination file.
	Skipped []string
}

// CopyFiles copies each file into destDir under its base name, creating destDir
// if needed. Existing files are overwritten and modification times are kept. The
// first failure aborts the copy.
func CopyFiles(files []string, destDir string) (*CopyStats, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", destDir, err)
	}

	stats := &CopyStats{}
	sources := make(map[string]string, len(files))

	for _, src := range files {
		name := filepath.Base(src)
		if prev, ok := sources[name]; ok {
			log.Printf("Warning: %s overwrites %s in %s", src, prev, destDir)
			stats.Overwritten = append(stats.Overwritten, name)
		}
		sources[name] = src

		n, err := copyFile(src, filepath.Join(destDir, name))
		if errors.Is(err, errSameFile) {
			log.Printf("Warning: %s is already in %s, not copied", src, destDir)
			stats.Skipped = append(stats.Skipped, src)
			continue
		}
		if err != nil {
			return stats, err
		}
		stats.FilesCopied++
		stats.BytesCopied += n
	}

	return stats, nil
}

var errSameFile = errors.New("source and destination are the same file")

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", src, err)
	}

	// Opening dst with O_TRUNC would empty src.
	if dstInfo, err := os.Stat(dst); err == nil && os.SameFile(info, dstInfo) {
		return 0, errSameFile
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return n, fmt.Errorf("failed to write %s: %w", dst, err)
	}

	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return n, fmt.Errorf("failed to set modification time of %s: %w", dst, err)
	}

	return n, nil
}
