// Package export persists tables as raw data files and writes the
// checksum and manifest files describing one export batch.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Doomsbay/QCKit/internal/tables"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ChecksumsFile = "SHA256SUMS.txt"
	ManifestFile  = "manifest.json"

	writerBufferSize = 1 << 20
)

var ErrExists = errors.New("output exists (use -force to overwrite)")

// Batch is one set of tables exported together.
type Batch struct {
	ID      string
	Created time.Time
	Units   tables.Units
	Tables  []tables.Table
}

// Format writes a batch into dir and returns the files it created.
type Format interface {
	Name() string
	Write(dir string, batch Batch, force bool) ([]string, error)
}

var registry = map[string]Format{}

func register(f Format) {
	registry[f.Name()] = f
}

func init() {
	register(jsonFormat{})
	register(tsvFormat{})
	register(parquetFormat{})
	register(sqliteFormat{})
	register(xlsxFormat{})
}

// Lookup returns the named format.
func Lookup(name string) (Format, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown export format %q (supported: %s)", name, strings.Join(Names(), ","))
	}
	return f, nil
}

// Names lists the registered formats.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type Options struct {
	Dir       string
	Formats   []string
	Units     tables.Units
	Checksums bool
	Manifest  bool
	Force     bool
	Logger    *zap.Logger
}

// Result lists what an export wrote.
type Result struct {
	BatchID string
	Files   []string
}

// Export writes every table in each requested format, then the checksum
// and manifest files.
func Export(tbls []tables.Table, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, t := range tbls {
		if err := t.Validate(); err != nil {
			return Result{}, err
		}
	}
	formats := make([]Format, 0, len(opts.Formats))
	for _, name := range opts.Formats {
		f, err := Lookup(name)
		if err != nil {
			return Result{}, err
		}
		formats = append(formats, f)
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}

	batch := Batch{
		ID:      uuid.NewString(),
		Created: time.Now().UTC(),
		Units:   opts.Units,
		Tables:  tbls,
	}
	var files []string
	for _, f := range formats {
		written, err := f.Write(opts.Dir, batch, opts.Force)
		if err != nil {
			return Result{}, fmt.Errorf("export %s: %w", f.Name(), err)
		}
		logger.Info("exported", zap.String("format", f.Name()), zap.Int("files", len(written)))
		files = append(files, written...)
	}
	sort.Strings(files)

	if opts.Checksums {
		path := filepath.Join(opts.Dir, ChecksumsFile)
		if err := writeChecksums(path, files, opts.Force); err != nil {
			return Result{}, err
		}
	}
	if opts.Manifest {
		path := filepath.Join(opts.Dir, ManifestFile)
		if err := writeManifest(path, batch, files, opts.Force); err != nil {
			return Result{}, err
		}
	}
	return Result{BatchID: batch.ID, Files: files}, nil
}

// create opens path for writing, refusing to clobber unless force is set.
func create(path string, force bool) (*os.File, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("%s: %w", path, ErrExists)
		}
	}
	return os.Create(path)
}

func removeExisting(path string, force bool) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if !force {
		return fmt.Errorf("%s: %w", path, ErrExists)
	}
	return os.Remove(path)
}

// safeTag maps a table ID to a file name component.
func safeTag(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '.' || c == '_' || c == '-' {
			b.WriteByte(c)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
