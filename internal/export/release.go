package export

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

func writeChecksums(outputFile string, files []string, force bool) error {
	if len(files) == 0 {
		return fmt.Errorf("no exported files to checksum")
	}
	out, err := create(outputFile, force)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	for _, f := range files {
		sum, err := sha256File(f)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "%s  %s\n", sum, filepath.Base(f)); err != nil {
			return err
		}
	}
	return out.Close()
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type manifestTable struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
}

type manifest struct {
	BatchID    string          `json:"batch_id"`
	CreatedAt  time.Time       `json:"created_at"`
	CommitHash string          `json:"commit_hash"`
	BasePrefix string          `json:"base_count_prefix"`
	Multiplier float64         `json:"base_count_multiplier"`
	Tables     []manifestTable `json:"tables"`
	Files      []string        `json:"files"`
}

func writeManifest(path string, batch Batch, files []string, force bool) error {
	commit := "unknown"
	if c, err := gitCommitHash(); err == nil && c != "" {
		commit = c
	}
	m := manifest{
		BatchID:    batch.ID,
		CreatedAt:  batch.Created,
		CommitHash: commit,
		BasePrefix: batch.Units.Prefix,
		Multiplier: batch.Units.Multiplier,
		Files:      make([]string, 0, len(files)),
	}
	for _, t := range batch.Tables {
		m.Tables = append(m.Tables, manifestTable{ID: t.ID, Title: t.Title, Rows: len(t.Rows), Columns: len(t.Columns)})
	}
	for _, f := range files {
		m.Files = append(m.Files, filepath.Base(f))
	}

	out, err := create(path, force)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return out.Close()
}

func gitCommitHash() (string, error) {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Stderr = io.Discard
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
