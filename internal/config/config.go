// Package config loads qckit settings from a YAML file and QCKIT_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Doomsbay/QCKit/internal/classify"
	"github.com/Doomsbay/QCKit/internal/taxonomy"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "QCKIT"

// Config is the full set of run settings. Environment names follow the
// field path, e.g. QCKIT_OUTPUT_FORMATS=json,parquet or QCKIT_LOG_LEVEL.
type Config struct {
	Workers       int            `yaml:"workers" split_words:"true" validate:"gte=0"`
	Progress      bool           `yaml:"progress" split_words:"true"`
	LogLevel      string         `yaml:"log_level" split_words:"true" validate:"oneof=debug info warn error"`
	Root          string         `yaml:"root" split_words:"true"`
	IgnoreSamples []string       `yaml:"ignore_samples" split_words:"true"`
	Demux         ToolConfig     `yaml:"demux" split_words:"true"`
	Classify      ClassifyConfig `yaml:"classify" split_words:"true"`
	Kmer          ToolConfig     `yaml:"kmer" split_words:"true"`
	Output        OutputConfig   `yaml:"output" split_words:"true"`
	MetricsFile   string         `yaml:"metrics_file" split_words:"true"`
}

// ToolConfig says where a tool's reports are and how their file names
// reduce to sample names.
type ToolConfig struct {
	Patterns []string `yaml:"patterns" split_words:"true"`
	Suffixes []string `yaml:"suffixes" split_words:"true"`
}

type ClassifyConfig struct {
	ToolConfig         `yaml:",inline"`
	AbsentExpectedRank string           `yaml:"absent_expected_rank" split_words:"true" validate:"oneof=root species"`
	Headers            classify.Headers `yaml:"headers" ignored:"true"`
}

type OutputConfig struct {
	Dir            string   `yaml:"dir" split_words:"true" validate:"required"`
	Formats        []string `yaml:"formats" split_words:"true" validate:"dive,oneof=json tsv parquet sqlite xlsx"`
	BasePrefix     string   `yaml:"base_prefix" split_words:"true"`
	BaseMultiplier float64  `yaml:"base_multiplier" split_words:"true" validate:"gt=0"`
	Checksums      bool     `yaml:"checksums" split_words:"true"`
	Manifest       bool     `yaml:"manifest" split_words:"true"`
	Force          bool     `yaml:"force" split_words:"true"`
}

func Default() Config {
	return Config{
		Progress: true,
		LogLevel: "info",
		Root:     ".",
		Demux: ToolConfig{
			Patterns: []string{"Stats.json", "*/Stats.json", "*/*/Stats.json"},
		},
		Classify: ClassifyConfig{
			ToolConfig: ToolConfig{
				Patterns: []string{"*_summary.txt", "*/*_summary.txt"},
				Suffixes: []string{"_summary.txt", ".cf_summary.txt", ".txt"},
			},
			AbsentExpectedRank: "root",
			Headers:            classify.DefaultHeaders(),
		},
		Kmer: ToolConfig{
			Patterns: []string{"*.dist_analysis.txt", "*/*.dist_analysis.txt"},
			Suffixes: []string{".dist_analysis.txt", ".txt", ".log"},
		},
		Output: OutputConfig{
			Dir:            "qckit_data",
			Formats:        []string{"json", "tsv"},
			BasePrefix:     "M",
			BaseMultiplier: 0.000001,
			Checksums:      true,
			Manifest:       true,
		},
	}
}

// Load layers defaults, the YAML file at path (optional) and QCKIT_*
// environment variables, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("config from env: %w", err)
	}
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Normalized trims and lowercases the enumerated fields and fills empty
// headers from the defaults.
func (c Config) Normalized() Config {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.Root = strings.TrimSpace(c.Root)
	c.Classify.AbsentExpectedRank = strings.ToLower(strings.TrimSpace(c.Classify.AbsentExpectedRank))
	if c.Classify.AbsentExpectedRank == "" {
		c.Classify.AbsentExpectedRank = "root"
	}
	c.Classify.Headers = fillHeaders(c.Classify.Headers)
	c.Output.Dir = strings.TrimSpace(c.Output.Dir)
	c.Output.Formats = normalizeList(c.Output.Formats)
	c.IgnoreSamples = trimList(c.IgnoreSamples)
	return c
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Output.Dir != "" && filepath.Clean(c.Output.Dir) == "." {
		return fmt.Errorf("invalid config: output dir %q", c.Output.Dir)
	}
	return nil
}

// ClassifyOptions converts the classification section for the parser.
func (c Config) ClassifyOptions() classify.Options {
	rank := taxonomy.Root
	if c.Classify.AbsentExpectedRank == "species" {
		rank = taxonomy.Species
	}
	return classify.Options{AbsentExpectedRank: rank, Headers: c.Classify.Headers}
}

func fillHeaders(h classify.Headers) classify.Headers {
	d := classify.DefaultHeaders()
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	return classify.Headers{
		ClassifiedLineage: pick(h.ClassifiedLineage, d.ClassifiedLineage),
		ExpectedLineage:   pick(h.ExpectedLineage, d.ExpectedLineage),
		Kingdom:           pick(h.Kingdom, d.Kingdom),
		RankHits:          pick(h.RankHits, d.RankHits),
		TopSpecies:        pick(h.TopSpecies, d.TopSpecies),
		TopClass:          pick(h.TopClass, d.TopClass),
	}
}

func normalizeList(values []string) []string {
	out := trimList(values)
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return out
}

func trimList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
