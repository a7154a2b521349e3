// Package kmer reads the distribution-analysis log of a k-mer spectrum
// tool: peak counts, the genome size estimate and mean k-mer frequency.
package kmer

import (
	"math"
	"strconv"
	"strings"
)

const (
	triggerSpectra = "K-mer frequency spectra statistics"
	triggerGenome  = "Estimated genome size"
	triggerGC      = "GC distribution statistics"

	// line offsets from the trigger line
	offsetSpectraPeaks = 3
	offsetMeanFreq     = 6
	offsetGCPeaks      = 3

	spectraSectionLen = 7
	gcSectionLen      = 4
)

// Stats holds whatever sections were present. Nil fields were not found.
type Stats struct {
	KmerPeaks     *int64   `json:"kmer_peaks,omitempty"`
	GCPeaks       *int64   `json:"gc_peaks,omitempty"`
	EstGenomeSize *int64   `json:"est_genome_size,omitempty"`
	MeanKmerFreq  *float64 `json:"mean_kmer_freq,omitempty"`
}

// Empty reports whether no section was found.
func (s Stats) Empty() bool {
	return s.KmerPeaks == nil && s.GCPeaks == nil && s.EstGenomeSize == nil && s.MeanKmerFreq == nil
}

// Parse never fails: a missing trigger or an unreadable value leaves the
// field unset.
func Parse(lines []string) Stats {
	var s Stats
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(line, triggerSpectra):
			if v, ok := intAt(lines, i+offsetSpectraPeaks); ok {
				s.KmerPeaks = &v
			}
			if v, ok := floatAt(lines, i+offsetMeanFreq, "x"); ok {
				s.MeanKmerFreq = &v
			}
			i += spectraSectionLen - 1
		case strings.HasPrefix(line, triggerGenome):
			if mbp, ok := floatAt(lines, i, "Mbp"); ok {
				v := int64(math.Trunc(mbp * 1000000.0))
				s.EstGenomeSize = &v
			}
		case strings.HasPrefix(line, triggerGC):
			if v, ok := intAt(lines, i+offsetGCPeaks); ok {
				s.GCPeaks = &v
			}
			i += gcSectionLen - 1
		}
	}
	return s
}

// valueAt returns the text after the first ':' on line idx with the unit
// suffix removed.
func valueAt(lines []string, idx int, suffix string) (string, bool) {
	if idx < 0 || idx >= len(lines) {
		return "", false
	}
	_, value, ok := strings.Cut(lines[idx], ":")
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if suffix != "" {
		value = strings.TrimSpace(strings.TrimSuffix(value, suffix))
	}
	return value, value != ""
}

func intAt(lines []string, idx int) (int64, bool) {
	value, ok := valueAt(lines, idx, "")
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func floatAt(lines []string, idx int, suffix string) (float64, bool) {
	value, ok := valueAt(lines, idx, suffix)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
