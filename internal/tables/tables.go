// Package tables lays the folded records out as named, typed tables for
// rendering and export.
package tables

import (
	"fmt"
	"strconv"
)

// Kind is a column's storage type.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "string"
	}
}

// Column describes one field. Counted columns are bases or reads that the
// display layer rescales with Units.
type Column struct {
	Key         string
	Title       string
	Description string
	Kind        Kind
	Counted     bool
	Hidden      bool
}

// Row is one entity; Values align with the table's columns. A nil value is
// "not available".
type Row struct {
	Key    string
	Values []any
}

type Table struct {
	ID          string
	Title       string
	Description string
	RowHeader   string
	Columns     []Column
	Rows        []Row
}

// Units is the base-count display unit, e.g. prefix "M" with multiplier
// 1e-6 shows counts in millions.
type Units struct {
	Prefix     string
	Multiplier float64
}

func DefaultUnits() Units {
	return Units{Prefix: "M", Multiplier: 0.000001}
}

// Title returns the column title with the unit prefix for counted columns.
func (u Units) Title(c Column) string {
	if !c.Counted || u.Prefix == "" {
		return c.Title
	}
	return fmt.Sprintf("%s (%s)", c.Title, u.Prefix)
}

// Display scales counted values; other values pass through.
func (u Units) Display(c Column, v any) any {
	if !c.Counted || u.Multiplier == 0 {
		return v
	}
	switch n := v.(type) {
	case int64:
		return float64(n) * u.Multiplier
	case float64:
		return n * u.Multiplier
	}
	return v
}

// Format renders a value as text; nil renders as NA.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return "NA"
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Record returns the row as a column key -> value mapping.
func (t Table) Record(r Row) map[string]any {
	out := make(map[string]any, len(t.Columns))
	for i, c := range t.Columns {
		out[c.Key] = r.Values[i]
	}
	return out
}

func (t Table) Validate() error {
	for _, r := range t.Rows {
		if len(r.Values) != len(t.Columns) {
			return fmt.Errorf("table %s row %s: %d values for %d columns", t.ID, r.Key, len(r.Values), len(t.Columns))
		}
		for i, v := range r.Values {
			if v == nil {
				continue
			}
			if !kindMatches(t.Columns[i].Kind, v) {
				return fmt.Errorf("table %s row %s column %s: %T is not %s", t.ID, r.Key, t.Columns[i].Key, v, t.Columns[i].Kind)
			}
		}
	}
	return nil
}

func kindMatches(k Kind, v any) bool {
	switch v.(type) {
	case string:
		return k == KindString
	case int64:
		return k == KindInt
	case float64:
		return k == KindFloat
	}
	return false
}

func intCol(key, title, desc string) Column {
	return Column{Key: key, Title: title, Description: desc, Kind: KindInt}
}

func floatCol(key, title, desc string) Column {
	return Column{Key: key, Title: title, Description: desc, Kind: KindFloat}
}

func strCol(key, title, desc string) Column {
	return Column{Key: key, Title: title, Description: desc, Kind: KindString}
}

func counted(c Column) Column {
	c.Counted = true
	return c
}

func hidden(c Column) Column {
	c.Hidden = true
	return c
}
