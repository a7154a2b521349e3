package taxonomy

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Doomsbay/QCKit/internal/qcerr"
)

// Descriptor is a parsed taxon label such as "Escherichia coli (id:562; rank:species)".
type Descriptor struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	Rank Rank   `json:"rank"`
}

// Display renders the descriptor as "Name (id)".
func (d Descriptor) Display() string {
	return d.Name + " (" + d.ID + ")"
}

// ParseFull parses the full grammar "Name (id:NNNN; rank:Genus)".
func ParseFull(s string) (Descriptor, error) {
	name, inner, err := splitDescriptor(s)
	if err != nil {
		return Descriptor{}, err
	}
	idPart, rankPart, ok := strings.Cut(inner, ";")
	if !ok {
		return Descriptor{}, qcerr.MalformedDescriptor(s)
	}
	_, id, ok := strings.Cut(idPart, ":")
	if !ok {
		return Descriptor{}, qcerr.MalformedDescriptor(s)
	}
	_, rankLabel, ok := strings.Cut(rankPart, ":")
	if !ok {
		return Descriptor{}, qcerr.MalformedDescriptor(s)
	}
	// a third segment, if any, is ignored
	if i := strings.IndexByte(rankLabel, ';'); i >= 0 {
		rankLabel = rankLabel[:i]
	}
	return Descriptor{
		Name: name,
		ID:   strings.TrimSpace(id),
		Rank: LevelOf(rankLabel),
	}, nil
}

// ParseWithFixedRank parses the short grammar "Name (taxid NNNN)" used by
// kingdom and top-N rows, where the report omits the rank token.
func ParseWithFixedRank(s string, rank Rank) (Descriptor, error) {
	name, inner, err := splitDescriptor(s)
	if err != nil {
		return Descriptor{}, err
	}
	return Descriptor{
		Name: name,
		ID:   shortFormID(inner),
		Rank: rank,
	}, nil
}

var shortFormPrefixes = []string{"taxid:", "taxid", "id:"}

// shortFormID drops the id prefix. Unrecognized prefixes fall back to the
// fixed three-character skip the report format uses.
func shortFormID(inner string) string {
	inner = strings.TrimSpace(inner)
	lower := strings.ToLower(inner)
	for _, p := range shortFormPrefixes {
		if strings.HasPrefix(lower, p) {
			return strings.TrimSpace(inner[len(p):])
		}
	}
	if len(inner) <= 3 {
		return ""
	}
	return strings.TrimSpace(inner[3:])
}

// splitDescriptor returns the capitalized name and the text inside the
// parentheses. Anything after the first closing paren is dropped.
func splitDescriptor(s string) (string, string, error) {
	s = strings.TrimSpace(s)
	head, inner, ok := strings.Cut(s, "(")
	if !ok {
		return "", "", qcerr.MalformedDescriptor(s)
	}
	name := CapitalizeName(head)
	if name == "" {
		return "", "", qcerr.MalformedDescriptor(s)
	}
	inner, _, _ = strings.Cut(inner, ")")
	return name, strings.TrimSpace(inner), nil
}

// CapitalizeName lower-cases a taxon name and upper-cases its first letter.
func CapitalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}
