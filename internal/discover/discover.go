// Package discover enumerates report files on disk and loads them for the
// collectors.
package discover

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Doomsbay/QCKit/internal/collect"
	gzip "github.com/klauspost/pgzip"
)

// Find expands glob patterns relative to root and returns the unique
// matches in lexical order. Directories are skipped.
func Find(patterns []string, root string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if root != "" && !filepath.IsAbs(pattern) {
			pattern = filepath.Join(root, pattern)
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, err
			}
			if info.IsDir() {
				continue
			}
			seen[m] = struct{}{}
		}
	}
	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

// Load reads a whole report into memory, decompressing .gz files.
func Load(path string) (collect.Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return collect.Input{}, err
	}
	defer func() {
		_ = f.Close()
	}()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return collect.Input{}, fmt.Errorf("open gzip %s: %w", path, err)
		}
		defer func() {
			_ = gz.Close()
		}()
		r = gz
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return collect.Input{}, fmt.Errorf("read %s: %w", path, err)
	}
	return collect.Input{
		Path:       path,
		Root:       filepath.Dir(path),
		SampleHint: filepath.Base(path),
		Content:    buf.Bytes(),
	}, nil
}

// Cleaner derives sample names from file names by stripping known report
// suffixes.
type Cleaner struct {
	Suffixes []string
}

// Clean strips a trailing .gz and the longest matching suffix, then trims
// separators. When nothing is left the parent directory name is used.
func (c Cleaner) Clean(hint, root string) string {
	name := strings.TrimSuffix(filepath.Base(hint), ".gz")
	suffixes := append([]string(nil), c.Suffixes...)
	sort.SliceStable(suffixes, func(i, j int) bool { return len(suffixes[i]) > len(suffixes[j]) })
	for _, s := range suffixes {
		if s != "" && strings.HasSuffix(name, s) {
			name = strings.TrimSuffix(name, s)
			break
		}
	}
	name = strings.Trim(name, "._- ")
	if name == "" && root != "" {
		name = filepath.Base(filepath.Clean(root))
	}
	return name
}
