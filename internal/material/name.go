package material

import (
	"regexp"
	"strings"

	"texforge/internal/channel"
	"texforge/internal/udim"
)

// Extractor recovers candidate material base names from filenames. The
// result is a candidate only: consolidation is still required before it is
// canonical, because independently named tiles of one material can disagree
// in minor punctuation.
type Extractor struct {
	// removers holds per-keyword removal regexps, keyed by lowercase keyword
	removers map[string]*regexp.Regexp
	// byRole lists each role's keywords so a fragment classified without an
	// explicit keyword match can still be cleaned
	byRole map[channel.Role][]string
}

// exactKeywords are the precedence-check substrings the classifier matches
// without reporting a table keyword; the extractor must remove them too.
var exactKeywords = map[channel.Role][]string{
	channel.RoleAlpha:        {"alpha", "opacity", "transparency"},
	channel.RoleTranslucency: {"translucency", "translucent", "sss"},
}

// NewExtractor builds an extractor for the configured role→keyword table.
func NewExtractor(keywords map[string][]string) (*Extractor, error) {
	e := &Extractor{
		removers: make(map[string]*regexp.Regexp),
		byRole:   make(map[channel.Role][]string),
	}
	for name, kws := range keywords {
		role, err := channel.ParseRole(name)
		if err != nil {
			return nil, err
		}
		for _, kw := range kws {
			lower := strings.ToLower(kw)
			e.byRole[role] = append(e.byRole[role], lower)
			e.compile(lower)
		}
	}
	for role, kws := range exactKeywords {
		for _, kw := range kws {
			e.byRole[role] = append(e.byRole[role], kw)
			e.compile(kw)
		}
	}
	return e, nil
}

func (e *Extractor) compile(kw string) {
	if _, ok := e.removers[kw]; ok {
		return
	}
	quoted := regexp.QuoteMeta(kw)
	// Matches the keyword with one adjoining separator: either as a suffix
	// or between separators (keeping the trailing separator for the rest).
	e.removers[kw] = regexp.MustCompile(`(?i)[._]` + quoted + `($|[._])`)
}

// Extract recovers the candidate material name for one classified file.
// Steps, in order: strip extension, strip the UDIM fragment per the
// resolver's captured separators, remove the matched channel keyword and one
// adjoining separator, strip trailing separators.
func (e *Extractor) Extract(filename string, res udim.Resolution, cls channel.Classification) string {
	name := filename
	if res.Member {
		name = res.Stripped
	}

	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}

	name = e.removeKeyword(name, cls)
	name = strings.TrimRight(name, "._")
	return name
}

func (e *Extractor) removeKeyword(name string, cls channel.Classification) string {
	if cls.MatchedKeyword != "" {
		if re, ok := e.removers[strings.ToLower(cls.MatchedKeyword)]; ok {
			return re.ReplaceAllString(name, "$1")
		}
	}
	// No explicit keyword (precedence-check or defaulted classification):
	// remove the first of the role's keywords present in the name.
	for _, kw := range e.byRole[cls.Role] {
		re := e.removers[kw]
		if re.MatchString(name) {
			return re.ReplaceAllString(name, "$1")
		}
	}
	return name
}
