// Package taxonomy holds the rank vocabulary and the taxon descriptor
// grammars used by classifier summary reports.
package taxonomy

import "strings"

// Rank is a position in the fixed rank table. The zero value is Root.
type Rank int

const (
	Root Rank = iota
	Superkingdom
	Kingdom
	Phylum
	Class
	Order
	Family
	Genus
	Subgenus
	Species
	Subspecies
	NoRank
)

// Fallback is returned for rank labels the table does not know.
const Fallback = Root

type rankInfo struct {
	key   string
	level float64
}

var rankTable = [...]rankInfo{
	Root:         {key: "ROOT", level: 0},
	Superkingdom: {key: "SUPERKINGDOM", level: 1},
	Kingdom:      {key: "KINGDOM", level: 2},
	Phylum:       {key: "PHYLUM", level: 3},
	Class:        {key: "CLASS", level: 4},
	Order:        {key: "ORDER", level: 5},
	Family:       {key: "FAMILY", level: 6},
	Genus:        {key: "GENUS", level: 7},
	Subgenus:     {key: "SUBGENUS", level: 7.5},
	Species:      {key: "SPECIES", level: 8},
	Subspecies:   {key: "SUBSPECIES", level: 8.5},
	NoRank:       {key: "NO_RANK", level: 9},
}

var rankByKey = func() map[string]Rank {
	m := make(map[string]Rank, len(rankTable))
	for i, info := range rankTable {
		m[info.key] = Rank(i)
	}
	return m
}()

// PrincipalRanks are the nine ranks every lineage chart is drawn over.
var PrincipalRanks = []Rank{Root, Superkingdom, Kingdom, Phylum, Class, Order, Family, Genus, Species}

// NormalizeRank upper-cases a rank label and joins words with underscores.
func NormalizeRank(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "-", "_")
	return strings.Join(strings.Fields(name), "_")
}

// LookupRank resolves a rank label, reporting whether it was known.
func LookupRank(name string) (Rank, bool) {
	r, ok := rankByKey[NormalizeRank(name)]
	return r, ok
}

// LevelOf resolves a rank label. Unknown labels map to Fallback so that a
// new classifier release with extra rank names does not break parsing.
func LevelOf(name string) Rank {
	if r, ok := LookupRank(name); ok {
		return r
	}
	return Fallback
}

// Level is the ordinal level; sub-ranks sit half way between their parents.
func (r Rank) Level() float64 {
	if !r.valid() {
		return rankTable[Fallback].level
	}
	return rankTable[r].level
}

// Name is the lower-case label used as a mapping key, e.g. "no_rank".
func (r Rank) Name() string {
	if !r.valid() {
		return strings.ToLower(rankTable[Fallback].key)
	}
	return strings.ToLower(rankTable[r].key)
}

func (r Rank) String() string {
	return r.Name()
}

// Less orders ranks by level.
func (r Rank) Less(other Rank) bool {
	return r.Level() < other.Level()
}

func (r Rank) valid() bool {
	return r >= 0 && int(r) < len(rankTable)
}

func (r Rank) MarshalText() ([]byte, error) {
	return []byte(r.Name()), nil
}

func (r *Rank) UnmarshalText(text []byte) error {
	*r = LevelOf(string(text))
	return nil
}
