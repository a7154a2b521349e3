package collect

import (
	"fmt"
	"path"
)

// GlobFilter drops sample names matching any of its patterns.
type GlobFilter struct {
	patterns []string
}

func NewGlobFilter(patterns []string) (GlobFilter, error) {
	var kept []string
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if _, err := path.Match(p, ""); err != nil {
			return GlobFilter{}, fmt.Errorf("ignore pattern %q: %w", p, err)
		}
		kept = append(kept, p)
	}
	return GlobFilter{patterns: kept}, nil
}

// Keep reports whether name survives the filter.
func (f GlobFilter) Keep(name string) bool {
	for _, p := range f.patterns {
		if ok, _ := path.Match(p, name); ok {
			return false
		}
	}
	return true
}

// Apply returns a copy of m without the ignored keys.
func Apply[T any](f GlobFilter, m map[string]T) map[string]T {
	out := make(map[string]T, len(m))
	for k, v := range m {
		if f.Keep(k) {
			out[k] = v
		}
	}
	return out
}
