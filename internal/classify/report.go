// Package classify parses classifier summary reports: scalar taxon lines
// plus a handful of tab-delimited blocks (lineages, kingdoms, rank hits,
// top-5 tables).
package classify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Doomsbay/QCKit/internal/qcerr"
	"github.com/Doomsbay/QCKit/internal/sections"
	"github.com/Doomsbay/QCKit/internal/taxonomy"
)

const (
	prefixClassified       = "Classified Taxon:"
	prefixExpected         = "Expected Taxon:"
	prefixMRCA             = "MRCA Taxon:"
	prefixTotalHits        = "Total hits"
	prefixExpectedProvided = "Expected Taxon ID provided"

	blockRows = 3
)

// Headers are the block header prefixes looked up in a report.
type Headers struct {
	ClassifiedLineage string `yaml:"classified_lineage"`
	ExpectedLineage   string `yaml:"expected_lineage"`
	Kingdom           string `yaml:"kingdom"`
	RankHits          string `yaml:"rank_hits"`
	TopSpecies        string `yaml:"top_species"`
	TopClass          string `yaml:"top_class"`
}

func DefaultHeaders() Headers {
	return Headers{
		ClassifiedLineage: "Classified Taxon's Lineage",
		ExpectedLineage:   "Expected Taxon's Lineage",
		Kingdom:           "Kingdom Perc",
		RankHits:          "Rank Perc",
		TopSpecies:        "Top 5 Species",
		TopClass:          "Top 5 Class",
	}
}

// Options control report-format differences between classifier releases.
type Options struct {
	// AbsentExpectedRank receives 100 in the expected lineage when the
	// report has no expected taxon. Older report formats used Species,
	// current ones Root.
	AbsentExpectedRank taxonomy.Rank
	Headers            Headers
}

func DefaultOptions() Options {
	return Options{
		AbsentExpectedRank: taxonomy.Root,
		Headers:            DefaultHeaders(),
	}
}

// Record is everything extracted from one report.
type Record struct {
	TotalHits         int64                `json:"total_hits"`
	Classified        *taxonomy.Descriptor `json:"classified,omitempty"`
	Expected          *taxonomy.Descriptor `json:"expected,omitempty"`
	MRCA              *taxonomy.Descriptor `json:"mrca,omitempty"`
	ExpectedProvided  bool                 `json:"expected_provided"`
	KingdomHits       Categories           `json:"kingdom_hits"`
	RankHits          LineageSeries        `json:"rank_hits"`
	ClassifiedLineage LineageSeries        `json:"classified_lineage"`
	ExpectedLineage   LineageSeries        `json:"expected_lineage"`
	Top5Species       TopN                 `json:"top5_species"`
	Top5Class         TopN                 `json:"top5_class"`
}

// Parse builds a Record from report lines. Any malformed scalar or
// required block fails the whole report; the top-5 class block is
// optional.
func Parse(lines []string, opts Options) (Record, error) {
	rec := Record{
		Top5Species: emptyTopN(),
		Top5Class:   emptyTopN(),
	}
	if err := parseScalars(lines, &rec); err != nil {
		return Record{}, err
	}

	h := opts.Headers
	var err error
	if rec.ClassifiedLineage, err = extractLineage(lines, h.ClassifiedLineage); err != nil {
		return Record{}, err
	}
	if rec.KingdomHits, err = extractKingdoms(lines, h.Kingdom); err != nil {
		return Record{}, err
	}
	if rec.RankHits, err = extractLineage(lines, h.RankHits); err != nil {
		return Record{}, err
	}
	if rec.Top5Species, err = extractTopN(lines, h.TopSpecies, taxonomy.Species); err != nil {
		return Record{}, err
	}
	rec.Top5Class, err = extractTopN(lines, h.TopClass, taxonomy.Class)
	if err != nil && !errors.Is(err, qcerr.ErrSectionNotFound) {
		return Record{}, err
	}

	if rec.ExpectedProvided {
		if rec.ExpectedLineage, err = extractLineage(lines, h.ExpectedLineage); err != nil {
			return Record{}, err
		}
	} else {
		rec.ExpectedLineage = absentLineage(opts.AbsentExpectedRank)
	}
	return rec, nil
}

func parseScalars(lines []string, rec *Record) error {
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, prefixClassified):
			d, err := taxonomy.ParseFull(strings.TrimPrefix(line, prefixClassified))
			if err != nil {
				return fmt.Errorf("classified taxon: %w", err)
			}
			rec.Classified = &d
		case strings.HasPrefix(line, prefixExpected):
			d, err := taxonomy.ParseFull(strings.TrimPrefix(line, prefixExpected))
			if err != nil {
				return fmt.Errorf("expected taxon: %w", err)
			}
			rec.Expected = &d
		case strings.HasPrefix(line, prefixMRCA):
			d, err := taxonomy.ParseFull(strings.TrimPrefix(line, prefixMRCA))
			if err != nil {
				return fmt.Errorf("mrca taxon: %w", err)
			}
			rec.MRCA = &d
		case strings.HasPrefix(line, prefixExpectedProvided):
			rec.ExpectedProvided = true
		case strings.HasPrefix(line, prefixTotalHits):
			_, value, ok := strings.Cut(line, ":")
			if !ok {
				return qcerr.MalformedValue(prefixTotalHits, line)
			}
			n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil || n < 0 {
				return qcerr.MalformedValue(prefixTotalHits, value)
			}
			rec.TotalHits = n
		}
	}
	return nil
}

func extractLineage(lines []string, header string) (LineageSeries, error) {
	block, err := sections.Extract(lines, header, blockRows)
	if err != nil {
		return LineageSeries{}, err
	}
	return lineageFromBlock(block)
}

func extractTopN(lines []string, header string, rank taxonomy.Rank) (TopN, error) {
	block, err := sections.Extract(lines, header, blockRows)
	if err != nil {
		return emptyTopN(), err
	}
	return topNFromBlock(block, rank)
}

// Category is one named count in a Categories mapping.
type Category struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Categories is an ordered name -> count mapping; later duplicates
// overwrite in place.
type Categories struct {
	items []Category
}

func (c *Categories) Set(name string, count int64) {
	for i := range c.items {
		if c.items[i].Name == name {
			c.items[i].Count = count
			return
		}
	}
	c.items = append(c.items, Category{Name: name, Count: count})
}

func (c Categories) Get(name string) (int64, bool) {
	for _, it := range c.items {
		if it.Name == name {
			return it.Count, true
		}
	}
	return 0, false
}

func (c Categories) Items() []Category {
	out := make([]Category, len(c.items))
	copy(out, c.items)
	return out
}

func (c Categories) Len() int {
	return len(c.items)
}

func (c Categories) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, it := range c.items {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(it.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatInt(it.Count, 10))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func extractKingdoms(lines []string, header string) (Categories, error) {
	block, err := sections.Extract(lines, header, blockRows)
	if err != nil {
		return Categories{}, err
	}
	counts, err := parseInts(block.Header, block.Values(1))
	if err != nil {
		return Categories{}, err
	}
	var out Categories
	for i, label := range block.Labels() {
		d, err := taxonomy.ParseWithFixedRank(label, taxonomy.Kingdom)
		if err != nil {
			return Categories{}, err
		}
		out.Set(strings.ToLower(d.Name), counts[i])
	}
	return out, nil
}
