// Package udim classifies filenames as members of multi-tile UDIM sequences
// and canonicalizes them to a single placeholder pattern.
//
// Four naming conventions are recognized, in a configurable strict priority
// order (first match wins):
//
//	placeholder  name.<UDIM>.exr or name.%(UDIM)d.exr (already tagged)
//	substance    name.1001.exr (trailing 4-digit tile after a dot)
//	mari         name_u1_v1_suffix.exr or name_u1_v1.exr (u/v coordinates)
//	standard     name_1001_suffix.exr or name_1001.exr (4-digit tile bounded
//	             by separators anywhere in the name)
//
// Canonicalization replaces the tile token in place, so every tile of a
// sequence maps to the identical pattern string regardless of scan order.
package udim

import (
	"fmt"
	"regexp"
	"strings"

	"texforge/internal/errors"
)

// Placeholder is the canonical tile token spelling used in patterns.
const Placeholder = "<UDIM>"

// hostPlaceholder is the host-native spelling normalized to Placeholder.
const hostPlaceholder = "%(UDIM)d"

// Convention names a recognized UDIM naming convention.
type Convention string

const (
	// ConventionPlaceholder matches filenames already carrying a tile token
	ConventionPlaceholder Convention = "placeholder"
	// ConventionSubstance matches Substance-style trailing tiles (name.1001.exr)
	ConventionSubstance Convention = "substance"
	// ConventionMari matches Mari-style u#_v# coordinates
	ConventionMari Convention = "mari"
	// ConventionStandard matches separator-bounded 4-digit tiles anywhere
	ConventionStandard Convention = "standard"
)

// Resolution is the outcome of resolving one filename.
// A zero Resolution means the file is not a UDIM member and passes through
// as a single file.
type Resolution struct {
	// Member is true when the filename belongs to a UDIM sequence
	Member bool
	// Convention that produced the match
	Convention Convention
	// CanonicalPattern is the filename with the tile token replaced by Placeholder
	CanonicalPattern string
	// TileToken is the raw tile token captured from the filename
	TileToken string
	// Stripped is the filename with the tile token and one adjoining
	// separator removed; later stages extract names from it
	Stripped string
	// AlsoMatched lists lower-priority conventions that also matched.
	// Non-empty means the filename was ambiguous and was resolved by
	// priority order; callers report it.
	AlsoMatched []Convention
}

// rule pairs a convention with its recognition logic. Rules are evaluated in
// the resolver's priority order; first match wins.
type rule struct {
	convention Convention
	match      func(filename string) (Resolution, bool)
}

// Resolver resolves filenames against an ordered convention list.
type Resolver struct {
	rules []rule
}

// NewResolver builds a resolver for the given convention priority order.
// Unknown convention names are rejected so configuration typos surface early.
func NewResolver(order []string) (*Resolver, error) {
	if len(order) == 0 {
		order = []string{
			string(ConventionPlaceholder), string(ConventionSubstance),
			string(ConventionMari), string(ConventionStandard),
		}
	}
	r := &Resolver{}
	for _, name := range order {
		m, ok := matchers[Convention(name)]
		if !ok {
			return nil, errors.New(errors.ConfigInvalid,
				fmt.Sprintf("unknown UDIM convention %q", name), nil)
		}
		r.rules = append(r.rules, rule{convention: Convention(name), match: m})
	}
	return r, nil
}

// Resolve classifies a filename. The first convention in priority order that
// matches determines the canonical pattern; any further conventions that also
// match are recorded in AlsoMatched for diagnostics.
func (r *Resolver) Resolve(filename string) Resolution {
	var res Resolution
	for _, ru := range r.rules {
		m, ok := ru.match(filename)
		if !ok {
			continue
		}
		if !res.Member {
			res = m
			res.Convention = ru.convention
			continue
		}
		res.AlsoMatched = append(res.AlsoMatched, ru.convention)
	}
	return res
}

// matchers holds the recognition logic per convention.
var matchers = map[Convention]func(string) (Resolution, bool){
	ConventionPlaceholder: matchPlaceholder,
	ConventionSubstance:   matchSubstance,
	ConventionMari:        matchMari,
	ConventionStandard:    matchStandard,
}

var (
	// name.1001.exr or name.1001; the tile is the last dot-separated token
	// before the (optional) extension.
	reSubstance = regexp.MustCompile(`^(.*?)\.([0-9]{4})(\.[^.]+)?$`)

	// u/v coordinates bounded by separators, mid-name or terminal.
	reMariMid = regexp.MustCompile(`(?i)^(.*?)([._])(u[0-9]+_v[0-9]+)([._].*)$`)
	reMariEnd = regexp.MustCompile(`(?i)^(.*?)([._])(u[0-9]+_v[0-9]+)(\.[^.]+)$`)

	// 4-digit tile bounded by separators on both sides, or terminating the
	// stem before the extension. Never matches at the very start of a name.
	reStandardMid = regexp.MustCompile(`^(.+?)([._])([0-9]{4})([._].*)$`)
	reStandardEnd = regexp.MustCompile(`^(.+?)([._])([0-9]{4})(\.[^.]+)?$`)
)

func matchPlaceholder(filename string) (Resolution, bool) {
	normalized := strings.ReplaceAll(filename, hostPlaceholder, Placeholder)
	if !strings.Contains(normalized, Placeholder) {
		return Resolution{}, false
	}
	return Resolution{
		Member:           true,
		CanonicalPattern: normalized,
		TileToken:        Placeholder,
		Stripped:         stripToken(normalized, Placeholder),
	}, true
}

func matchSubstance(filename string) (Resolution, bool) {
	m := reSubstance.FindStringSubmatch(filename)
	if m == nil {
		return Resolution{}, false
	}
	prefix, tile, ext := m[1], m[2], m[3]
	if prefix == "" {
		return Resolution{}, false
	}
	return Resolution{
		Member:           true,
		CanonicalPattern: prefix + "." + Placeholder + ext,
		TileToken:        tile,
		Stripped:         prefix + ext,
	}, true
}

func matchMari(filename string) (Resolution, bool) {
	for _, re := range []*regexp.Regexp{reMariMid, reMariEnd} {
		m := re.FindStringSubmatch(filename)
		if m == nil {
			continue
		}
		prefix, sep, tile, suffix := m[1], m[2], m[3], m[4]
		if prefix == "" {
			continue
		}
		return Resolution{
			Member:           true,
			CanonicalPattern: prefix + sep + Placeholder + suffix,
			TileToken:        tile,
			Stripped:         prefix + suffix,
		}, true
	}
	return Resolution{}, false
}

func matchStandard(filename string) (Resolution, bool) {
	for _, re := range []*regexp.Regexp{reStandardMid, reStandardEnd} {
		m := re.FindStringSubmatch(filename)
		if m == nil {
			continue
		}
		prefix, sep, tile, suffix := m[1], m[2], m[3], m[4]
		return Resolution{
			Member:           true,
			CanonicalPattern: prefix + sep + Placeholder + suffix,
			TileToken:        tile,
			Stripped:         prefix + suffix,
		}, true
	}
	return Resolution{}, false
}

// stripToken removes a tile token and collapses the separator pair it leaves
// behind ("a_<UDIM>_b" becomes "a_b", "a.<UDIM>.exr" becomes "a.exr").
func stripToken(name, token string) string {
	for _, seps := range [][2]string{{"_", "_"}, {".", "."}, {"_", "."}, {".", "_"}} {
		name = strings.ReplaceAll(name, seps[0]+token+seps[1], seps[1])
	}
	name = strings.TrimSuffix(name, "_"+token)
	name = strings.TrimSuffix(name, "."+token)
	name = strings.TrimPrefix(name, token)
	return strings.ReplaceAll(name, token, "")
}
